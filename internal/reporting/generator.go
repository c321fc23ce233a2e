package reporting

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"washtrade-lab/internal/config"
	"washtrade-lab/internal/detection"
	"washtrade-lab/internal/domain"
	"washtrade-lab/internal/idhash"
)

// Generator produces reports from detection results.
type Generator struct {
	policy config.Detection
	now    func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a report generator for the given policy.
func NewGenerator(policy config.Detection) *Generator {
	return &Generator{
		policy: policy,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Build is shorthand for NewGenerator(policy).WithClock(now).Generate(result).
// A nil clock uses the current UTC time.
func Build(result *detection.Result, policy config.Detection, now func() time.Time) (*Report, error) {
	g := NewGenerator(policy)
	if now != nil {
		g.WithClock(now)
	}
	return g.Generate(result)
}

// Generate produces a complete report.
func (g *Generator) Generate(result *detection.Result) (*Report, error) {
	if result == nil {
		return nil, fmt.Errorf("generate report: nil result")
	}

	policy, err := g.generatePolicy()
	if err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}

	patterns := make([]PatternRow, 0, len(result.Patterns))
	var rounds []RoundRow
	for _, p := range result.Patterns {
		patterns = append(patterns, patternRow(p))
		rounds = append(rounds, roundRows(p)...)
	}

	return &Report{
		GeneratedAt:           g.now(),
		Summary:               generateSummary(result.Summary),
		Policy:                policy,
		TierDistribution:      tierDistribution(policy.Tiers, result.Patterns),
		GroupSizeDistribution: groupSizeDistribution(policy.MaxGroupSize, result.Patterns),
		Lotteries:             groupByLottery(patterns),
		Patterns:              patterns,
		Rounds:                rounds,
		Reproducibility: Reproducibility{
			Fingerprint: idhash.Fingerprint(result.Patterns),
		},
	}, nil
}

func generateSummary(s detection.Summary) SummarySection {
	sizes := make([]int, 0, len(s.CandidatesBySize))
	for k := range s.CandidatesBySize {
		sizes = append(sizes, k)
	}
	sort.Ints(sizes)
	bySize := make([]DistributionRow, 0, len(sizes))
	for _, k := range sizes {
		bySize = append(bySize, DistributionRow{Label: strconv.Itoa(k), Count: s.CandidatesBySize[k]})
	}

	return SummarySection{
		InputRecords:      s.InputRecords,
		FilteredRecords:   s.FilteredRecords,
		ExcludedRecords:   s.ExcludedRecords,
		Rounds:            s.Rounds,
		Accounts:          s.Accounts,
		Lotteries:         s.Lotteries,
		SearchSpace:       s.SearchSpace,
		CandidatesBySize:  bySize,
		Candidates:        s.Candidates,
		Groups:            s.Aggregate.Groups,
		Patterns:          s.Aggregate.Accepted,
		RejectedDisparity: s.Aggregate.RejectedDisparity,
		RejectedThreshold: s.Aggregate.RejectedThreshold,
		Workers:           s.Workers,
		Elapsed:           s.Elapsed,
	}
}

func (g *Generator) generatePolicy() (PolicySection, error) {
	d := g.policy
	model, err := d.DirectionModel()
	if err != nil {
		return PolicySection{}, err
	}
	if _, err := d.ThresholdTable(); err != nil {
		return PolicySection{}, err
	}
	tiers, err := d.Tiers()
	if err != nil {
		return PolicySection{}, err
	}

	section := PolicySection{
		MaxGroupSize:       d.MaxGroupSize,
		MaxPeriodDisparity: d.MaxPeriodDisparity,
		MinAmount:          d.MinAmount,
		ProfileScope:       d.ProfileScope,
	}
	if section.ProfileScope == "" {
		section.ProfileScope = config.ProfileScopeBatch
	}
	for _, p := range model.Pairs {
		section.Pairs = append(section.Pairs, p.Label())
	}
	for _, k := range d.GroupSizes() {
		section.Thresholds = append(section.Thresholds, ThresholdRow{GroupSize: k, MinSimilarity: d.ThresholdFor(k)})
	}
	for _, t := range tiers {
		section.Tiers = append(section.Tiers, TierRow{
			Name:                t.Name,
			MaxRounds:           t.MaxRounds,
			MinQualifyingRounds: t.MinQualifyingRounds,
		})
	}
	return section, nil
}

func patternRow(p domain.AccountGroupPattern) PatternRow {
	members := make([]MemberRow, len(p.Members))
	for i, m := range p.Members {
		members[i] = MemberRow{
			AccountID:    m.AccountID,
			TotalRounds:  m.TotalRounds,
			TotalRecords: m.TotalRecords,
			HasStats:     m.HasStats,
		}
	}
	return PatternRow{
		PatternID:         p.PatternID,
		ShortID:           idhash.ShortPatternID(p.PatternID),
		LotteryID:         p.LotteryID,
		Accounts:          p.Accounts,
		GroupSize:         p.GroupSize,
		QualifyingRounds:  p.QualifyingRounds,
		RequiredRounds:    p.RequiredRounds,
		Tier:              p.Tier.Name,
		MinTotalRounds:    p.MinTotalRounds,
		Members:           members,
		TotalAmount:       p.TotalAmount,
		MeanSimilarity:    p.MeanSimilarity,
		DominantPair:      p.DominantPair,
		PairDistribution:  distribution(p.PairDistribution),
		ShapeDistribution: distribution(p.ShapeDistribution),
		DisparityChecked:  p.Disparity.Performed,
		DisparitySpread:   p.Disparity.Spread,
		DisparityLimit:    p.Disparity.Limit,
	}
}

func roundRows(p domain.AccountGroupPattern) []RoundRow {
	rows := make([]RoundRow, 0, len(p.Rounds))
	for _, r := range p.Rounds {
		stakes := make([]StakeRow, len(r.Stakes))
		for i, s := range r.Stakes {
			stakes[i] = StakeRow{AccountID: s.AccountID, Direction: string(s.Direction), Amount: s.Amount}
		}
		rows = append(rows, RoundRow{
			PatternID:   p.PatternID,
			LotteryID:   r.LotteryID,
			RoundID:     r.RoundID,
			Accounts:    r.Accounts,
			Pair:        r.PairLabel,
			Shape:       r.Shape(),
			FirstTotal:  r.FirstTotal,
			SecondTotal: r.SecondTotal,
			Similarity:  r.Similarity,
			Stakes:      stakes,
		})
	}
	return rows
}

func distribution(counts map[string]int) []DistributionRow {
	rows := make([]DistributionRow, 0, len(counts))
	for _, k := range domain.SortedKeys(counts) {
		rows = append(rows, DistributionRow{Label: k, Count: counts[k]})
	}
	return rows
}

// tierDistribution counts patterns per tier; tiers without patterns are
// listed with zero.
func tierDistribution(tiers []TierRow, patterns []domain.AccountGroupPattern) []DistributionRow {
	counts := make(map[string]int, len(tiers))
	for _, p := range patterns {
		counts[p.Tier.Name]++
	}
	rows := make([]DistributionRow, 0, len(tiers))
	for _, t := range tiers {
		rows = append(rows, DistributionRow{Label: t.Name, Count: counts[t.Name]})
	}
	return rows
}

func groupSizeDistribution(maxGroupSize int, patterns []domain.AccountGroupPattern) []DistributionRow {
	counts := make(map[int]int)
	for _, p := range patterns {
		counts[p.GroupSize]++
	}
	var rows []DistributionRow
	for k := 2; k <= maxGroupSize; k++ {
		rows = append(rows, DistributionRow{Label: strconv.Itoa(k), Count: counts[k]})
	}
	return rows
}

// groupByLottery splits patterns by lottery, preserving their order.
func groupByLottery(patterns []PatternRow) []LotterySection {
	var sections []LotterySection
	index := make(map[string]int)
	for _, p := range patterns {
		i, ok := index[p.LotteryID]
		if !ok {
			i = len(sections)
			index[p.LotteryID] = i
			sections = append(sections, LotterySection{LotteryID: p.LotteryID})
		}
		sections[i].Patterns = append(sections[i].Patterns, p)
	}
	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].LotteryID < sections[j].LotteryID
	})
	return sections
}
