package domain

// IngestedBet is a BetRecord with its provenance, as persisted by stores.
type IngestedBet struct {
	RecordID string // idhash.ComputeRecordID(Source, Row)
	Source   string
	Row      int // 1-based data row in the source
	BetRecord
}

// Records strips provenance.
func Records(bets []*IngestedBet) []BetRecord {
	out := make([]BetRecord, len(bets))
	for i, b := range bets {
		out[i] = b.BetRecord
	}
	return out
}
