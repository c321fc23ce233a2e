package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeRecordID computes a deterministic record_id using SHA256.
// Formula: SHA256(source|row)
// Re-ingesting the same source yields the same ids, so stores reject it as
// a duplicate instead of double counting activity.
func ComputeRecordID(source string, row int) string {
	data := fmt.Sprintf("%s|%d", source, row)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
