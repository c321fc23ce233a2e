package detection

import (
	"context"
	"math"

	"github.com/shopspring/decimal"

	"washtrade-lab/internal/domain"
)

// cancelCheckEvery bounds how many combinations run between context checks.
const cancelCheckEvery = 4096

// Generator emits RoundCandidates for one partition and group size.
type Generator struct {
	model      domain.DirectionModel
	thresholds map[int]float64
}

// NewGenerator creates a generator for the given pairs and per-size
// similarity thresholds.
func NewGenerator(pairs []domain.OppositePair, thresholds map[int]float64) *Generator {
	return &Generator{model: domain.DirectionModel{Pairs: pairs}, thresholds: thresholds}
}

// Threshold returns the similarity threshold for group size k.
func (g *Generator) Threshold(k int) float64 {
	if t, ok := g.thresholds[k]; ok {
		return t
	}
	return 1
}

// Generate returns every k-account group in p that stakes both sides of one
// opposite pair with similarity at or above the threshold for k. Pairs are
// tried in declaration order; each group is drawn only from accounts betting
// that pair, so a group never mixes pairs. Candidates are ordered by pair,
// then by account set.
func (g *Generator) Generate(ctx context.Context, p RoundPartition, k int) ([]domain.RoundCandidate, error) {
	threshold := g.Threshold(k)
	var out []domain.RoundCandidate
	visited := 0

	sides := splitByPair(p.Stakes, g.model)
	for i, pair := range g.model.Pairs {
		side := sides[i]
		if len(side) < k {
			continue
		}

		var cancelled error
		forEachCombination(len(side), k, func(idx []int) bool {
			visited++
			if visited%cancelCheckEvery == 0 {
				if err := ctx.Err(); err != nil {
					cancelled = err
					return false
				}
			}
			if c, ok := evaluate(p.Key, side, idx, pair, threshold); ok {
				out = append(out, c)
			}
			return true
		})
		if cancelled != nil {
			return nil, cancelled
		}
	}
	return out, nil
}

// splitByPair buckets stakes under the first pair containing their
// direction, preserving account order. Declaration order of the pairs is
// the precedence when a direction could match more than one.
func splitByPair(stakes []domain.Stake, model domain.DirectionModel) [][]domain.Stake {
	sides := make([][]domain.Stake, len(model.Pairs))
	for _, s := range stakes {
		if i, ok := model.PairIndex(s.Direction); ok {
			sides[i] = append(sides[i], s)
		}
	}
	return sides
}

func evaluate(key domain.RoundKey, side []domain.Stake, idx []int, pair domain.OppositePair, threshold float64) (domain.RoundCandidate, bool) {
	first, second := decimal.Zero, decimal.Zero
	firstCount, secondCount := 0, 0
	for _, i := range idx {
		s := side[i]
		if s.Direction == pair.First {
			first = first.Add(s.Amount)
			firstCount++
		} else {
			second = second.Add(s.Amount)
			secondCount++
		}
	}
	if firstCount == 0 || secondCount == 0 {
		return domain.RoundCandidate{}, false
	}

	sim := Similarity(first, second)
	if sim < threshold {
		return domain.RoundCandidate{}, false
	}

	accounts := make([]string, len(idx))
	stakes := make([]domain.Stake, len(idx))
	for n, i := range idx {
		accounts[n] = side[i].AccountID
		stakes[n] = side[i]
	}

	return domain.RoundCandidate{
		RoundID:     key.RoundID,
		LotteryID:   key.LotteryID,
		Accounts:    accounts,
		Stakes:      stakes,
		Pair:        pair,
		PairLabel:   pair.Label(),
		FirstTotal:  first,
		SecondTotal: second,
		FirstCount:  firstCount,
		SecondCount: secondCount,
		Similarity:  sim,
		GroupSize:   len(idx),
	}, true
}

// Similarity is min(a, b) / max(a, b) for two positive totals. It is exactly
// 1 only when the totals are equal; unequal totals whose ratio rounds to 1 in
// float64 are clamped just below it.
func Similarity(a, b decimal.Decimal) float64 {
	if a.Equal(b) {
		return 1
	}
	lo, hi := a, b
	if lo.GreaterThan(hi) {
		lo, hi = hi, lo
	}
	r := lo.Div(hi).InexactFloat64()
	switch {
	case r >= 1:
		return math.Nextafter(1, 0)
	case r <= 0:
		return math.SmallestNonzeroFloat64
	}
	return r
}
