package detection

import (
	"sort"

	"github.com/shopspring/decimal"

	"washtrade-lab/internal/domain"
)

// RoundPartition is every single-direction stake placed in one
// (lottery, round). Stakes are sorted by account and hold one entry per
// account, repeated bets in the same direction summed.
type RoundPartition struct {
	Key    domain.RoundKey
	Stakes []domain.Stake
}

// BuildPartitions groups filtered records by (lottery, round). Partitions
// are ordered by lottery, then round id. Repeat bets by one account in the
// same direction are combined into a single stake holding their sum, so the
// account still counts once toward the group size.
func BuildPartitions(records []domain.BetRecord) []RoundPartition {
	type slot struct {
		direction domain.Direction
		amount    decimal.Decimal
	}
	byRound := make(map[domain.RoundKey]map[string]*slot)

	for _, r := range records {
		key := domain.RoundKey{LotteryID: r.LotteryID, RoundID: r.RoundID}
		accounts, ok := byRound[key]
		if !ok {
			accounts = make(map[string]*slot)
			byRound[key] = accounts
		}
		if s, ok := accounts[r.AccountID]; ok {
			s.amount = s.amount.Add(r.Amount)
			continue
		}
		accounts[r.AccountID] = &slot{direction: r.Direction, amount: r.Amount}
	}

	partitions := make([]RoundPartition, 0, len(byRound))
	for key, accounts := range byRound {
		stakes := make([]domain.Stake, 0, len(accounts))
		for id, s := range accounts {
			stakes = append(stakes, domain.Stake{AccountID: id, Direction: s.direction, Amount: s.amount})
		}
		sort.Slice(stakes, func(i, j int) bool { return stakes[i].AccountID < stakes[j].AccountID })
		partitions = append(partitions, RoundPartition{Key: key, Stakes: stakes})
	}

	sort.Slice(partitions, func(i, j int) bool {
		a, b := partitions[i].Key, partitions[j].Key
		if a.LotteryID != b.LotteryID {
			return a.LotteryID < b.LotteryID
		}
		return domain.CompareRoundIDs(a.RoundID, b.RoundID) < 0
	})
	return partitions
}
