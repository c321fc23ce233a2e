package detection

import (
	"github.com/shopspring/decimal"

	"washtrade-lab/internal/config"
	"washtrade-lab/internal/domain"
)

func bet(lottery, round, account string, dir domain.Direction, amount string) domain.BetRecord {
	return domain.BetRecord{
		RoundID:   round,
		LotteryID: lottery,
		AccountID: account,
		Direction: dir,
		Amount:    decimal.RequireFromString(amount),
	}
}

func testDetection() config.Detection {
	d := config.DefaultDetection()
	d.SimilarityThreshold = 0.8
	d.Workers = 4
	return d
}

// roundsOf returns the round ids of a pattern in output order.
func roundsOf(p domain.AccountGroupPattern) []string {
	ids := make([]string, len(p.Rounds))
	for i, r := range p.Rounds {
		ids[i] = r.RoundID
	}
	return ids
}
