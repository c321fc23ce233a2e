package detection

import "washtrade-lab/internal/domain"

// ProfileActivity counts, per (lottery, account), the distinct rounds bet on
// and the number of records. The result is frozen.
func ProfileActivity(records []domain.BetRecord) domain.ActivitySnapshot {
	stats := make(map[domain.ActivityKey]domain.AccountLotteryStat)
	rounds := make(map[roundAccountKey]struct{})

	for _, r := range records {
		key := domain.ActivityKey{LotteryID: r.LotteryID, AccountID: r.AccountID}
		st := stats[key]
		st.LotteryID = r.LotteryID
		st.AccountID = r.AccountID
		st.TotalRecords++

		rk := roundAccountKey{r.LotteryID, r.RoundID, r.AccountID}
		if _, seen := rounds[rk]; !seen {
			rounds[rk] = struct{}{}
			st.TotalRounds++
		}
		stats[key] = st
	}

	return domain.NewActivitySnapshot(stats)
}
