package normalization

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Field is a logical column of a bet export.
type Field string

const (
	FieldAccount  Field = "account"
	FieldLottery  Field = "lottery"
	FieldRound    Field = "round"
	FieldPlayType Field = "play_type"
	FieldContent  Field = "content"
	FieldAmount   Field = "amount"
)

// fieldOrder fixes matching precedence.
var fieldOrder = []Field{FieldAccount, FieldLottery, FieldRound, FieldPlayType, FieldContent, FieldAmount}

// RequiredFields must be present in every export. Lottery falls back to the
// default lottery.
var RequiredFields = []Field{FieldAccount, FieldRound, FieldContent, FieldAmount}

// DefaultColumnSynonyms maps each field to the header names seen in
// back-office exports plus the normalized English names.
var DefaultColumnSynonyms = map[Field][]string{
	FieldAccount:  {"会员账号", "会员账户", "账号", "账户", "用户账号", "account_id", "account"},
	FieldLottery:  {"彩种", "彩票种类", "游戏类型", "lottery_id", "lottery"},
	FieldRound:    {"期号", "期数", "期次", "期", "round_id", "round", "period"},
	FieldPlayType: {"玩法", "玩法分类", "投注类型", "类型", "play_type"},
	FieldContent:  {"内容", "投注内容", "下注内容", "注单内容", "direction", "content"},
	FieldAmount:   {"金额", "下注总额", "投注金额", "总额", "下注金额", "amount"},
}

// ErrMissingColumns is returned when a required field has no header.
var ErrMissingColumns = errors.New("missing required columns")

// ColumnMap resolves fields to header indexes.
type ColumnMap map[Field]int

// Has reports whether f was mapped.
func (m ColumnMap) Has(f Field) bool {
	_, ok := m[f]
	return ok
}

// Cell returns the trimmed cell for f, or "" if unmapped or out of range.
func (m ColumnMap) Cell(row []string, f Field) string {
	i, ok := m[f]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ResolveColumns maps header names to fields. Exact matches win over
// partial ones; a header is used for at most one field and each field takes
// the first header that matches it. Single-character synonyms only match
// exactly.
func ResolveColumns(header []string, synonyms map[Field][]string) (ColumnMap, error) {
	cols := make(ColumnMap)
	used := make(map[int]bool)

	exact := func(h string, f Field) bool {
		for _, s := range synonyms[f] {
			if strings.EqualFold(h, s) {
				return true
			}
		}
		return false
	}
	partial := func(h string, f Field) bool {
		lh := strings.ToLower(h)
		for _, s := range synonyms[f] {
			if utf8.RuneCountInString(s) > 1 && strings.Contains(lh, strings.ToLower(s)) {
				return true
			}
		}
		return false
	}

	for _, match := range []func(string, Field) bool{exact, partial} {
		for _, f := range fieldOrder {
			if cols.Has(f) {
				continue
			}
			for i, h := range header {
				if used[i] {
					continue
				}
				if match(strings.TrimSpace(h), f) {
					cols[f] = i
					used[i] = true
					break
				}
			}
		}
	}

	var missing []string
	for _, f := range RequiredFields {
		if !cols.Has(f) {
			missing = append(missing, string(f))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s (header: %s)", ErrMissingColumns,
			strings.Join(missing, ", "), strings.Join(header, ", "))
	}
	return cols, nil
}
