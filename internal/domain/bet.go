package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// BetRecord is one normalized wager row. Produced by the normalizer and
// never re-parsed by detection.
type BetRecord struct {
	RoundID   string          // betting period, scoped to LotteryID
	LotteryID string          // lottery / game key
	AccountID string          // member account
	Direction Direction       // canonical direction
	Amount    decimal.Decimal // stake, >= configured minimum
}

// RoundKey identifies one (lottery, round) partition.
type RoundKey struct {
	LotteryID string
	RoundID   string
}

// CompareRoundIDs orders round ids ascending. It is a total order: ids made
// only of digits sort before every other id and compare numerically, so
// "999" sorts before "1000"; numerically equal ids such as "0042" and "42"
// fall back to byte order. All other ids compare by bytes.
func CompareRoundIDs(a, b string) int {
	if a == b {
		return 0
	}
	da, db := isDigits(a), isDigits(b)
	switch {
	case da && !db:
		return -1
	case !da && db:
		return 1
	case da && db:
		ta, tb := strings.TrimLeft(a, "0"), strings.TrimLeft(b, "0")
		if len(ta) != len(tb) {
			if len(ta) < len(tb) {
				return -1
			}
			return 1
		}
		if c := strings.Compare(ta, tb); c != 0 {
			return c
		}
	}
	return strings.Compare(a, b)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
