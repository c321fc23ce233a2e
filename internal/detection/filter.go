package detection

import "washtrade-lab/internal/domain"

type roundAccountKey struct {
	lotteryID string
	roundID   string
	accountID string
}

// FilterSingleDirection drops every record of an account that bet more than
// one direction in the same round. Rounds are lottery scoped, so the same
// round id in two lotteries is two rounds. Surviving records keep their
// input order.
func FilterSingleDirection(records []domain.BetRecord) []domain.BetRecord {
	first := make(map[roundAccountKey]domain.Direction, len(records))
	mixed := make(map[roundAccountKey]bool)

	for _, r := range records {
		k := roundAccountKey{r.LotteryID, r.RoundID, r.AccountID}
		d, seen := first[k]
		if !seen {
			first[k] = r.Direction
			continue
		}
		if d != r.Direction {
			mixed[k] = true
		}
	}

	out := make([]domain.BetRecord, 0, len(records))
	for _, r := range records {
		if mixed[roundAccountKey{r.LotteryID, r.RoundID, r.AccountID}] {
			continue
		}
		out = append(out, r)
	}
	return out
}
