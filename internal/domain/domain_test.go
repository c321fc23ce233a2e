package domain

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCompareRoundIDs(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"999", "1000", -1},
		{"1000", "999", 1},
		{"0042", "42", -1}, // numerically equal: byte order breaks the tie
		{"20240101001", "20240101002", -1},
		{"123456789012345678901234", "123456789012345678901233", 1},
		{"R2", "R10", 1}, // not numeric: byte order
		{"abc", "abc", 0},
		{"9", "1a", -1}, // digit-only ids sort before the rest
		{"1a", "9", 1},
		{"10", "1a", -1},
		{"9", "10", -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CompareRoundIDs(tt.a, tt.b), "%s vs %s", tt.a, tt.b)
	}

	ids := []string{"10", "9", "100", "1"}
	sort.Slice(ids, func(i, j int) bool { return CompareRoundIDs(ids[i], ids[j]) < 0 })
	assert.Equal(t, []string{"1", "9", "10", "100"}, ids)
}

func TestCompareRoundIDs_MixedFormatsSortStably(t *testing.T) {
	want := []string{"9", "10", "300", "1a", "2b", "x"}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		ids := append([]string(nil), want...)
		rng.Shuffle(len(ids), func(a, b int) { ids[a], ids[b] = ids[b], ids[a] })
		sort.Slice(ids, func(a, b int) bool { return CompareRoundIDs(ids[a], ids[b]) < 0 })
		assert.Equal(t, want, ids)
	}
}

func TestRoundCandidate_ShapeAndTotal(t *testing.T) {
	c := RoundCandidate{
		Pair:        OppositePair{First: DirectionOdd, Second: DirectionEven},
		FirstTotal:  decimal.RequireFromString("150.5"),
		SecondTotal: decimal.RequireFromString("149.5"),
		FirstCount:  2,
		SecondCount: 1,
	}
	assert.Equal(t, "ODD(2) vs EVEN(1)", c.Shape())
	assert.Equal(t, "300", c.TotalAmount().String())
}

func TestDirectionModel(t *testing.T) {
	m := DefaultDirectionModel()
	assert.True(t, m.Known(DirectionEven))
	assert.False(t, m.Known(Direction("TIGER")))

	idx, ok := m.PairIndex(DirectionSmall)
	assert.True(t, ok)
	assert.Equal(t, 0, idx)
	idx, ok = m.PairIndex(DirectionOdd)
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
	_, ok = m.PairIndex(Direction("TIGER"))
	assert.False(t, ok)

	assert.Equal(t, "BIG-SMALL", m.Pairs[0].Label())
}

func TestActivityTier_Covers(t *testing.T) {
	bounded := ActivityTier{Name: "low", MaxRounds: 10}
	assert.True(t, bounded.Covers(10))
	assert.False(t, bounded.Covers(11))
	assert.True(t, ActivityTier{Name: "top"}.Covers(1<<30))
}

func TestActivitySnapshot_CopiesInput(t *testing.T) {
	stats := map[ActivityKey]AccountLotteryStat{
		{LotteryID: "K3", AccountID: "A"}: {LotteryID: "K3", AccountID: "A", TotalRounds: 2},
	}
	snap := NewActivitySnapshot(stats)
	delete(stats, ActivityKey{LotteryID: "K3", AccountID: "A"})

	st, ok := snap.Get("K3", "A")
	assert.True(t, ok)
	assert.Equal(t, 2, st.TotalRounds)
}
