package detection

import (
	"errors"
	"fmt"

	"washtrade-lab/internal/domain"
)

// ErrMalformedRecord is the sentinel wrapped by every MalformedRecordError.
var ErrMalformedRecord = errors.New("malformed bet record")

// Record contract rules.
const (
	RuleMissingRoundID    = "round_id is required"
	RuleMissingLotteryID  = "lottery_id is required"
	RuleMissingAccountID  = "account_id is required"
	RuleUnknownDirection  = "direction is not in the direction catalogue"
	RuleNonPositiveAmount = "amount must be positive"
	RuleBelowMinAmount    = "amount is below the minimum stake"
)

// MalformedRecordError identifies the first record that violates the input
// contract and the rule it broke. The run stops on it.
type MalformedRecordError struct {
	Index  int // position in the input batch
	Record domain.BetRecord
	Rule   string
}

func (e *MalformedRecordError) Error() string {
	r := e.Record
	return fmt.Sprintf("malformed bet record #%d (lottery=%q round=%q account=%q direction=%q amount=%s): %s",
		e.Index, r.LotteryID, r.RoundID, r.AccountID, r.Direction, r.Amount.String(), e.Rule)
}

// Unwrap lets errors.Is match ErrMalformedRecord.
func (e *MalformedRecordError) Unwrap() error {
	return ErrMalformedRecord
}
