package normalization

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	plainAmount = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

	// Tried in order on free text.
	labelledAmounts = []*regexp.Regexp{
		regexp.MustCompile(`投注[:：]?\s*(\d+[,，]?\d*\.?\d*)`),
		regexp.MustCompile(`下注[:：]?\s*(\d+[,，]?\d*\.?\d*)`),
		regexp.MustCompile(`金额[:：]?\s*(\d+[,，]?\d*\.?\d*)`),
		regexp.MustCompile(`总额[:：]?\s*(\d+[,，]?\d*\.?\d*)`),
		regexp.MustCompile(`(\d+[,，]?\d*\.?\d*)\s*元`),
		regexp.MustCompile(`[￥¥$]\s*(\d+[,，]?\d*\.?\d*)`),
	}

	anyNumber = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// AmountOutcome classifies a parsed amount cell.
type AmountOutcome int

const (
	AmountOK AmountOutcome = iota
	AmountUnparseable
	AmountBelowMinimum
)

// ParseAmount extracts a stake from an amount cell: a plain number with
// thousands separators, or a number embedded in text such as "投注: 100元".
// A plain number is taken as is; otherwise the first embedded candidate at
// or above minAmount is returned.
func ParseAmount(text string, minAmount decimal.Decimal) (decimal.Decimal, AmountOutcome) {
	text = strings.TrimSpace(text)
	if text == "" {
		return decimal.Zero, AmountUnparseable
	}

	if cleaned := stripSeparators(text); plainAmount.MatchString(cleaned) {
		v, err := decimal.NewFromString(cleaned)
		if err != nil {
			return decimal.Zero, AmountUnparseable
		}
		if v.LessThan(minAmount) {
			return decimal.Zero, AmountBelowMinimum
		}
		return v, AmountOK
	}

	var candidates []string
	for _, re := range labelledAmounts {
		if m := re.FindStringSubmatch(text); m != nil {
			candidates = append(candidates, stripSeparators(m[1]))
		}
	}
	candidates = append(candidates, anyNumber.FindAllString(text, -1)...)

	found := false
	for _, c := range candidates {
		v, err := decimal.NewFromString(strings.TrimSuffix(c, "."))
		if err != nil {
			continue
		}
		found = true
		if v.GreaterThanOrEqual(minAmount) {
			return v, AmountOK
		}
	}
	if found {
		return decimal.Zero, AmountBelowMinimum
	}
	return decimal.Zero, AmountUnparseable
}

func stripSeparators(s string) string {
	return strings.NewReplacer(",", "", "，", "", " ", "").Replace(s)
}
