package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// MemberActivity is one group member's history in the pattern's lottery.
type MemberActivity struct {
	AccountID    string
	TotalRounds  int
	TotalRecords int
	HasStats     bool
}

// DisparityCheck records how the activity disparity rule was evaluated.
type DisparityCheck struct {
	Performed bool // false when fewer than two members had stats
	MinRounds int
	MaxRounds int
	Spread    int
	Limit     int
}

// AccountGroupPattern is a confirmed sustained wash-trade pattern for one
// (account set, lottery).
type AccountGroupPattern struct {
	PatternID string
	Accounts  []string // sorted ascending
	LotteryID string
	GroupSize int

	Rounds           []RoundCandidate // ascending by round id
	QualifyingRounds int
	TotalAmount      decimal.Decimal
	MeanSimilarity   float64

	PairDistribution  map[string]int // pair label -> rounds
	DominantPair      string
	ShapeDistribution map[string]int // shape -> rounds

	Members        []MemberActivity // aligned with Accounts
	MinTotalRounds int
	Tier           ActivityTier
	RequiredRounds int
	Disparity      DisparityCheck
}

// SortedKeys returns map keys in ascending order.
func SortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
