// Package verification checks that detection is idempotent: running the
// engine twice over the same records must produce identical patterns.
package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"washtrade-lab/internal/detection"
	"washtrade-lab/internal/domain"
	"washtrade-lab/internal/idhash"
)

// ErrNotDeterministic is returned when two runs over the same input diverge.
var ErrNotDeterministic = errors.New("detection output is not deterministic")

// Runner runs detection. *detection.Engine satisfies it.
type Runner interface {
	Run(ctx context.Context, records []domain.BetRecord) (*detection.Result, error)
}

// FieldDivergence represents a mismatch between the first and second run.
type FieldDivergence struct {
	Field    string      // field name
	Expected interface{} // first run
	Actual   interface{} // second run
}

// PatternResult is the comparison of one pattern present in both runs.
type PatternResult struct {
	PatternID   string
	Match       bool
	Divergences []FieldDivergence
}

// Report contains the outcome of an idempotence check.
type Report struct {
	FirstFingerprint  string
	SecondFingerprint string
	Match             bool // fingerprints equal byte for byte

	FirstPatterns     int
	SecondPatterns    int
	MissingInSecond   []string        // pattern ids only in the first run
	ExtraInSecond     []string        // pattern ids only in the second run
	DivergentPatterns int             // patterns present in both with field differences
	Results           []PatternResult // one per pattern present in both, first-run order
}

// VerifyIdempotence runs detection twice over records and compares the
// outputs. A divergence returns the report together with an error wrapping
// ErrNotDeterministic.
func VerifyIdempotence(ctx context.Context, runner Runner, records []domain.BetRecord) (*Report, error) {
	first, err := runner.Run(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("first run: %w", err)
	}
	second, err := runner.Run(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("second run: %w", err)
	}

	report := Compare(first.Patterns, second.Patterns)
	if !report.Match {
		return report, fmt.Errorf("%w: fingerprints %s and %s", ErrNotDeterministic,
			idhash.ShortPatternID(report.FirstFingerprint), idhash.ShortPatternID(report.SecondFingerprint))
	}
	return report, nil
}

// Compare builds a Report from two pattern lists.
func Compare(first, second []domain.AccountGroupPattern) *Report {
	report := &Report{
		FirstFingerprint:  idhash.Fingerprint(first),
		SecondFingerprint: idhash.Fingerprint(second),
		FirstPatterns:     len(first),
		SecondPatterns:    len(second),
	}
	report.Match = report.FirstFingerprint == report.SecondFingerprint

	byID := make(map[string]domain.AccountGroupPattern, len(second))
	for _, p := range second {
		byID[p.PatternID] = p
	}
	seen := make(map[string]bool, len(first))
	for _, p := range first {
		seen[p.PatternID] = true
		other, ok := byID[p.PatternID]
		if !ok {
			report.MissingInSecond = append(report.MissingInSecond, p.PatternID)
			continue
		}
		divergences := ComparePatterns(p, other)
		if len(divergences) > 0 {
			report.DivergentPatterns++
		}
		report.Results = append(report.Results, PatternResult{
			PatternID:   p.PatternID,
			Match:       len(divergences) == 0,
			Divergences: divergences,
		})
	}
	for _, p := range second {
		if !seen[p.PatternID] {
			report.ExtraInSecond = append(report.ExtraInSecond, p.PatternID)
		}
	}
	return report
}

// ComparePatterns compares two patterns and returns divergences. Floats
// must match exactly.
func ComparePatterns(expected, actual domain.AccountGroupPattern) []FieldDivergence {
	var divergences []FieldDivergence
	add := func(field string, e, a interface{}) {
		divergences = append(divergences, FieldDivergence{Field: field, Expected: e, Actual: a})
	}

	if expected.PatternID != actual.PatternID {
		add("PatternID", expected.PatternID, actual.PatternID)
	}
	if expected.LotteryID != actual.LotteryID {
		add("LotteryID", expected.LotteryID, actual.LotteryID)
	}
	if !equalStrings(expected.Accounts, actual.Accounts) {
		add("Accounts", strings.Join(expected.Accounts, ","), strings.Join(actual.Accounts, ","))
	}
	if expected.QualifyingRounds != actual.QualifyingRounds {
		add("QualifyingRounds", expected.QualifyingRounds, actual.QualifyingRounds)
	}
	if e, a := roundIDs(expected), roundIDs(actual); e != a {
		add("Rounds", e, a)
	}
	if !expected.TotalAmount.Equal(actual.TotalAmount) {
		add("TotalAmount", expected.TotalAmount.String(), actual.TotalAmount.String())
	}
	if expected.MeanSimilarity != actual.MeanSimilarity {
		add("MeanSimilarity", expected.MeanSimilarity, actual.MeanSimilarity)
	}
	if expected.DominantPair != actual.DominantPair {
		add("DominantPair", expected.DominantPair, actual.DominantPair)
	}
	if !equalCounts(expected.ShapeDistribution, actual.ShapeDistribution) {
		add("ShapeDistribution", expected.ShapeDistribution, actual.ShapeDistribution)
	}
	if expected.MinTotalRounds != actual.MinTotalRounds {
		add("MinTotalRounds", expected.MinTotalRounds, actual.MinTotalRounds)
	}
	if expected.Tier.Name != actual.Tier.Name {
		add("Tier", expected.Tier.Name, actual.Tier.Name)
	}
	if expected.Disparity != actual.Disparity {
		add("Disparity", expected.Disparity, actual.Disparity)
	}

	for i := 0; i < len(expected.Rounds) && i < len(actual.Rounds); i++ {
		e, a := expected.Rounds[i], actual.Rounds[i]
		if e.Similarity != a.Similarity {
			add(fmt.Sprintf("Rounds[%s].Similarity", e.RoundID), e.Similarity, a.Similarity)
		}
		if !e.TotalAmount().Equal(a.TotalAmount()) {
			add(fmt.Sprintf("Rounds[%s].TotalAmount", e.RoundID), e.TotalAmount().String(), a.TotalAmount().String())
		}
	}

	return divergences
}

func roundIDs(p domain.AccountGroupPattern) string {
	ids := make([]string, len(p.Rounds))
	for i, r := range p.Rounds {
		ids[i] = r.RoundID + "/" + r.PairLabel
	}
	return strings.Join(ids, ",")
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalCounts(a, b map[string]int) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
