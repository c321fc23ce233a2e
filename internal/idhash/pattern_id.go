package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/mr-tron/base58"
)

const unitSep = "\x1f"

// ComputePatternID computes a deterministic pattern_id using SHA256.
// Formula: SHA256(lottery_id US account_1 US account_2 ...), US being the
// 0x1F unit separator so ids containing commas or pipes cannot collide.
// Accounts must already be sorted. Returns hex-encoded hash (64 characters).
func ComputePatternID(lotteryID string, accounts []string) string {
	data := lotteryID + unitSep + strings.Join(accounts, unitSep)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ShortPatternID renders the first 8 bytes of a pattern_id in base58 for
// report headings. Returns the input unchanged if it is not hex.
func ShortPatternID(patternID string) string {
	raw, err := hex.DecodeString(patternID)
	if err != nil || len(raw) < 8 {
		return patternID
	}
	return base58.Encode(raw[:8])
}
