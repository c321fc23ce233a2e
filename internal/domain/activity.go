package domain

// AccountLotteryStat is the historical activity of one account in one lottery.
type AccountLotteryStat struct {
	LotteryID    string
	AccountID    string
	TotalRounds  int // distinct rounds bet on
	TotalRecords int // row count
}

// ActivityKey indexes AccountLotteryStat.
type ActivityKey struct {
	LotteryID string
	AccountID string
}

// ActivitySnapshot is a frozen (lottery, account) -> stat lookup. It is built
// once per run and shared read-only by every worker.
type ActivitySnapshot struct {
	stats map[ActivityKey]AccountLotteryStat
}

// NewActivitySnapshot freezes the given stats. The map is copied.
func NewActivitySnapshot(stats map[ActivityKey]AccountLotteryStat) ActivitySnapshot {
	frozen := make(map[ActivityKey]AccountLotteryStat, len(stats))
	for k, v := range stats {
		frozen[k] = v
	}
	return ActivitySnapshot{stats: frozen}
}

// Get returns the stat for (lotteryID, accountID).
func (s ActivitySnapshot) Get(lotteryID, accountID string) (AccountLotteryStat, bool) {
	st, ok := s.stats[ActivityKey{LotteryID: lotteryID, AccountID: accountID}]
	return st, ok
}

// Len returns the number of (lottery, account) entries.
func (s ActivitySnapshot) Len() int {
	return len(s.stats)
}

// ActivityTier buckets a group by its least active member.
type ActivityTier struct {
	Name                string
	MaxRounds           int // inclusive upper bound; 0 means unbounded
	MinQualifyingRounds int // rounds required before a group is flagged
}

// Unbounded reports whether the tier has no upper bound.
func (t ActivityTier) Unbounded() bool {
	return t.MaxRounds == 0
}

// Covers reports whether totalRounds falls at or below the tier bound.
func (t ActivityTier) Covers(totalRounds int) bool {
	return t.Unbounded() || totalRounds <= t.MaxRounds
}
