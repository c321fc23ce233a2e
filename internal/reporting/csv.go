package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Output file names written by WriteFiles.
const (
	ReportFile   = "REPORT.md"
	PatternsFile = "patterns.csv"
	RoundsFile   = "rounds.csv"
)

var patternHeader = []string{
	"pattern_id", "short_id", "lottery_id", "accounts", "group_size",
	"qualifying_rounds", "required_rounds", "tier", "min_total_rounds", "member_rounds",
	"total_amount", "mean_similarity", "dominant_pair", "pair_distribution", "shape_distribution",
	"disparity_checked", "disparity_spread", "disparity_limit",
}

var roundHeader = []string{
	"pattern_id", "lottery_id", "round_id", "accounts", "pair", "shape",
	"first_total", "second_total", "total_amount", "similarity", "stakes",
}

// RenderPatternCSV renders one row per pattern (the summary table).
func RenderPatternCSV(patterns []PatternRow) string {
	rows := make([][]string, 0, len(patterns)+1)
	rows = append(rows, patternHeader)
	for _, p := range patterns {
		members := make([]string, len(p.Members))
		for i, m := range p.Members {
			members[i] = fmt.Sprintf("%s:%d", m.AccountID, m.TotalRounds)
		}
		rows = append(rows, []string{
			p.PatternID,
			p.ShortID,
			p.LotteryID,
			strings.Join(p.Accounts, ";"),
			strconv.Itoa(p.GroupSize),
			strconv.Itoa(p.QualifyingRounds),
			strconv.Itoa(p.RequiredRounds),
			p.Tier,
			strconv.Itoa(p.MinTotalRounds),
			strings.Join(members, ";"),
			p.TotalAmount.String(),
			fmt.Sprintf("%.6f", p.MeanSimilarity),
			p.DominantPair,
			csvDistribution(p.PairDistribution),
			csvDistribution(p.ShapeDistribution),
			strconv.FormatBool(p.DisparityChecked),
			strconv.Itoa(p.DisparitySpread),
			strconv.Itoa(p.DisparityLimit),
		})
	}
	return writeCSV(rows)
}

// RenderRoundCSV renders one row per qualifying round (the detail table).
func RenderRoundCSV(rounds []RoundRow) string {
	rows := make([][]string, 0, len(rounds)+1)
	rows = append(rows, roundHeader)
	for _, r := range rounds {
		stakes := make([]string, len(r.Stakes))
		for i, s := range r.Stakes {
			stakes[i] = s.AccountID + ":" + s.Direction + ":" + s.Amount.String()
		}
		rows = append(rows, []string{
			r.PatternID,
			r.LotteryID,
			r.RoundID,
			strings.Join(r.Accounts, ";"),
			r.Pair,
			r.Shape,
			r.FirstTotal.String(),
			r.SecondTotal.String(),
			r.FirstTotal.Add(r.SecondTotal).String(),
			fmt.Sprintf("%.6f", r.Similarity),
			strings.Join(stakes, ";"),
		})
	}
	return writeCSV(rows)
}

// WriteFiles writes the Markdown report and both CSV tables into dir and
// returns the paths written.
func WriteFiles(dir string, r *Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	files := []struct {
		name    string
		content string
	}{
		{ReportFile, RenderMarkdown(r)},
		{PatternsFile, RenderPatternCSV(r.Patterns)},
		{RoundsFile, RenderRoundCSV(r.Rounds)},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, []byte(f.content), 0644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func csvDistribution(rows []DistributionRow) string {
	parts := make([]string, len(rows))
	for i, row := range rows {
		parts[i] = fmt.Sprintf("%s=%d", row.Label, row.Count)
	}
	return strings.Join(parts, ";")
}

func writeCSV(rows [][]string) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	// strings.Builder never fails a write.
	_ = w.WriteAll(rows)
	return sb.String()
}
