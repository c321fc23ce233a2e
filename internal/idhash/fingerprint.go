package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"washtrade-lab/internal/domain"
)

// Fingerprint hashes the observable content of a detection result: pattern
// ids, rounds, totals, similarities and tiers, in output order. Two runs over
// the same input and policy must produce the same fingerprint.
func Fingerprint(patterns []domain.AccountGroupPattern) string {
	h := sha256.New()
	for _, p := range patterns {
		fmt.Fprintf(h, "P|%s|%s|%d|%d|%s|%s|%s|%d|%d\n",
			p.PatternID, p.LotteryID, p.GroupSize, p.QualifyingRounds,
			p.TotalAmount.String(), formatFloat(p.MeanSimilarity),
			p.Tier.Name, p.RequiredRounds, p.MinTotalRounds)
		for _, r := range p.Rounds {
			fmt.Fprintf(h, "R|%s|%s|%s|%s|%s\n",
				r.RoundID, r.PairLabel, r.FirstTotal.String(), r.SecondTotal.String(),
				formatFloat(r.Similarity))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
