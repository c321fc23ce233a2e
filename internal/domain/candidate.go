package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Stake is one account's position inside a RoundCandidate.
type Stake struct {
	AccountID string
	Direction Direction
	Amount    decimal.Decimal // summed over the account's records in the round
}

// RoundCandidate is one account group staking both sides of an opposite pair
// in a single round with matching totals.
type RoundCandidate struct {
	RoundID   string
	LotteryID string
	Accounts  []string // sorted ascending
	Stakes    []Stake  // aligned with Accounts
	Pair      OppositePair
	PairLabel string

	FirstTotal  decimal.Decimal // sum staked on Pair.First
	SecondTotal decimal.Decimal // sum staked on Pair.Second
	FirstCount  int             // accounts on Pair.First
	SecondCount int             // accounts on Pair.Second

	Similarity float64 // min(total) / max(total), in (0, 1]
	GroupSize  int
}

// TotalAmount is the sum of both sides.
func (c RoundCandidate) TotalAmount() decimal.Decimal {
	return c.FirstTotal.Add(c.SecondTotal)
}

// Shape describes the split, e.g. "BIG(2) vs SMALL(1)".
func (c RoundCandidate) Shape() string {
	return fmt.Sprintf("%s(%d) vs %s(%d)", c.Pair.First, c.FirstCount, c.Pair.Second, c.SecondCount)
}
