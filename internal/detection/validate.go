package detection

import (
	"github.com/shopspring/decimal"

	"washtrade-lab/internal/domain"
)

// ValidateRecords checks every record against the input contract and returns
// a *MalformedRecordError for the first violation. Nothing is dropped
// silently: a skipped record would shift the activity thresholds.
func ValidateRecords(records []domain.BetRecord, model domain.DirectionModel, minAmount decimal.Decimal) error {
	for i, r := range records {
		if rule := checkRecord(r, model, minAmount); rule != "" {
			return &MalformedRecordError{Index: i, Record: r, Rule: rule}
		}
	}
	return nil
}

func checkRecord(r domain.BetRecord, model domain.DirectionModel, minAmount decimal.Decimal) string {
	switch {
	case r.RoundID == "":
		return RuleMissingRoundID
	case r.LotteryID == "":
		return RuleMissingLotteryID
	case r.AccountID == "":
		return RuleMissingAccountID
	case !model.Known(r.Direction):
		return RuleUnknownDirection
	case !r.Amount.IsPositive():
		return RuleNonPositiveAmount
	case r.Amount.LessThan(minAmount):
		return RuleBelowMinAmount
	}
	return ""
}
