package detection

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"washtrade-lab/internal/domain"
	"washtrade-lab/internal/idhash"
)

// GroupState is the lifecycle of one (account set, lottery) group during
// aggregation.
type GroupState string

const (
	GroupCollected        GroupState = "COLLECTED"
	GroupDisparityChecked GroupState = "DISPARITY_CHECKED"
	GroupTierClassified   GroupState = "TIER_CLASSIFIED"
	GroupThresholdTested  GroupState = "THRESHOLD_TESTED"
	GroupAccepted         GroupState = "ACCEPTED"
	GroupRejected         GroupState = "REJECTED"
)

// Rejection reasons.
const (
	ReasonDisparity = "disparity"
	ReasonThreshold = "threshold"
)

// Policy is the aggregation rule set.
type Policy struct {
	Tiers              []domain.ActivityTier // ascending, last one unbounded
	MaxPeriodDisparity int
}

// GroupDecision is the terminal state of one group. Path lists every state
// the group passed through, ending with State.
type GroupDecision struct {
	LotteryID        string
	Accounts         []string
	QualifyingRounds int
	State            GroupState
	Path             []GroupState
	Reason           string // empty when accepted
	Detail           string
}

func (d *GroupDecision) advance(s GroupState) {
	d.State = s
	d.Path = append(d.Path, s)
}

// AggregateStats counts group outcomes.
type AggregateStats struct {
	Groups            int
	Accepted          int
	RejectedDisparity int
	RejectedThreshold int
}

// AggregateResult is the output of Aggregate.
type AggregateResult struct {
	Patterns  []domain.AccountGroupPattern
	Decisions []GroupDecision
	Stats     AggregateStats
}

type group struct {
	lotteryID string
	accounts  []string
	rounds    []domain.RoundCandidate
}

// Aggregate groups candidates by (account set, lottery), applies the
// disparity rule, classifies each group by its least active member and keeps
// the groups whose qualifying rounds reach the tier requirement. Patterns
// are ordered by lottery, group size, then account set.
func Aggregate(candidates []domain.RoundCandidate, snapshot domain.ActivitySnapshot, policy Policy) AggregateResult {
	groups := collect(candidates)

	res := AggregateResult{
		Patterns:  make([]domain.AccountGroupPattern, 0),
		Decisions: make([]GroupDecision, 0, len(groups)),
	}
	res.Stats.Groups = len(groups)

	for _, g := range groups {
		decision := GroupDecision{
			LotteryID:        g.lotteryID,
			Accounts:         g.accounts,
			QualifyingRounds: len(g.rounds),
		}
		decision.advance(GroupCollected)

		members := memberActivity(g, snapshot)
		disparity := checkDisparity(members, policy.MaxPeriodDisparity)
		if disparity.Performed && disparity.Spread > disparity.Limit {
			decision.advance(GroupRejected)
			decision.Reason = ReasonDisparity
			decision.Detail = fmt.Sprintf("round count spread %d exceeds %d", disparity.Spread, disparity.Limit)
			res.Decisions = append(res.Decisions, decision)
			res.Stats.RejectedDisparity++
			continue
		}
		decision.advance(GroupDisparityChecked)

		minRounds := minTotalRounds(members)
		tier := classifyTier(policy.Tiers, minRounds)
		decision.advance(GroupTierClassified)

		passed := len(g.rounds) >= tier.MinQualifyingRounds
		decision.advance(GroupThresholdTested)
		if !passed {
			decision.advance(GroupRejected)
			decision.Reason = ReasonThreshold
			decision.Detail = fmt.Sprintf("%d qualifying rounds below %d required by tier %s",
				len(g.rounds), tier.MinQualifyingRounds, tier.Name)
			res.Decisions = append(res.Decisions, decision)
			res.Stats.RejectedThreshold++
			continue
		}

		decision.advance(GroupAccepted)
		res.Decisions = append(res.Decisions, decision)
		res.Stats.Accepted++
		res.Patterns = append(res.Patterns, buildPattern(g, members, minRounds, tier, disparity))
	}

	return res
}

func groupKey(lotteryID string, accounts []string) string {
	return lotteryID + "\x1f" + strings.Join(accounts, "\x1f")
}

// collect buckets candidates by group and returns groups in output order.
func collect(candidates []domain.RoundCandidate) []*group {
	byKey := make(map[string]*group)
	for _, c := range candidates {
		key := groupKey(c.LotteryID, c.Accounts)
		g, ok := byKey[key]
		if !ok {
			g = &group{lotteryID: c.LotteryID, accounts: c.Accounts}
			byKey[key] = g
		}
		g.rounds = append(g.rounds, c)
	}

	groups := make([]*group, 0, len(byKey))
	for _, g := range byKey {
		sort.SliceStable(g.rounds, func(i, j int) bool {
			if c := domain.CompareRoundIDs(g.rounds[i].RoundID, g.rounds[j].RoundID); c != 0 {
				return c < 0
			}
			return g.rounds[i].PairLabel < g.rounds[j].PairLabel
		})
		groups = append(groups, g)
	}

	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if a.lotteryID != b.lotteryID {
			return a.lotteryID < b.lotteryID
		}
		if len(a.accounts) != len(b.accounts) {
			return len(a.accounts) < len(b.accounts)
		}
		return compareAccounts(a.accounts, b.accounts) < 0
	})
	return groups
}

func compareAccounts(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := strings.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

func memberActivity(g *group, snapshot domain.ActivitySnapshot) []domain.MemberActivity {
	members := make([]domain.MemberActivity, len(g.accounts))
	for i, acc := range g.accounts {
		m := domain.MemberActivity{AccountID: acc}
		if st, ok := snapshot.Get(g.lotteryID, acc); ok {
			m.TotalRounds = st.TotalRounds
			m.TotalRecords = st.TotalRecords
			m.HasStats = true
		}
		members[i] = m
	}
	return members
}

// checkDisparity compares the round counts of members with stats. With
// fewer than two such members there is nothing to compare.
func checkDisparity(members []domain.MemberActivity, limit int) domain.DisparityCheck {
	check := domain.DisparityCheck{Limit: limit}
	known := 0
	for _, m := range members {
		if !m.HasStats {
			continue
		}
		if known == 0 || m.TotalRounds < check.MinRounds {
			check.MinRounds = m.TotalRounds
		}
		if known == 0 || m.TotalRounds > check.MaxRounds {
			check.MaxRounds = m.TotalRounds
		}
		known++
	}
	if known < 2 {
		return domain.DisparityCheck{Limit: limit}
	}
	check.Performed = true
	check.Spread = check.MaxRounds - check.MinRounds
	return check
}

// minTotalRounds is the least activity in the group. A member without stats
// counts as zero rounds.
func minTotalRounds(members []domain.MemberActivity) int {
	least := -1
	for _, m := range members {
		r := 0
		if m.HasStats {
			r = m.TotalRounds
		}
		if least < 0 || r < least {
			least = r
		}
	}
	if least < 0 {
		return 0
	}
	return least
}

// classifyTier returns the first tier covering totalRounds. Validated tier
// lists end unbounded, so the fallback only guards a hand-built Policy.
func classifyTier(tiers []domain.ActivityTier, totalRounds int) domain.ActivityTier {
	for _, t := range tiers {
		if t.Covers(totalRounds) {
			return t
		}
	}
	if len(tiers) > 0 {
		return tiers[len(tiers)-1]
	}
	return domain.ActivityTier{Name: "unclassified", MinQualifyingRounds: 1}
}

func buildPattern(g *group, members []domain.MemberActivity, minRounds int, tier domain.ActivityTier, disparity domain.DisparityCheck) domain.AccountGroupPattern {
	total := decimal.Zero
	sims := make([]float64, len(g.rounds))
	pairs := make(map[string]int)
	shapes := make(map[string]int)
	for i, r := range g.rounds {
		total = total.Add(r.TotalAmount())
		sims[i] = r.Similarity
		pairs[r.PairLabel]++
		shapes[r.Shape()]++
	}

	return domain.AccountGroupPattern{
		PatternID:         idhash.ComputePatternID(g.lotteryID, g.accounts),
		Accounts:          g.accounts,
		LotteryID:         g.lotteryID,
		GroupSize:         len(g.accounts),
		Rounds:            g.rounds,
		QualifyingRounds:  len(g.rounds),
		TotalAmount:       total,
		MeanSimilarity:    stat.Mean(sims, nil),
		PairDistribution:  pairs,
		DominantPair:      dominant(pairs),
		ShapeDistribution: shapes,
		Members:           members,
		MinTotalRounds:    minRounds,
		Tier:              tier,
		RequiredRounds:    tier.MinQualifyingRounds,
		Disparity:         disparity,
	}
}

// dominant returns the most frequent label, ties broken alphabetically.
func dominant(counts map[string]int) string {
	best, bestN := "", 0
	for _, k := range domain.SortedKeys(counts) {
		if counts[k] > bestN {
			best, bestN = k, counts[k]
		}
	}
	return best
}
