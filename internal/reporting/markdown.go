package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Wash-Trade Detection Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.RunID != "" {
		sb.WriteString(fmt.Sprintf("Run: `%s`\n\n", r.RunID))
	}

	renderSummary(&sb, r.Summary)
	renderPolicy(&sb, r.Policy)

	// Distributions
	sb.WriteString("## Activity Tier Distribution\n\n")
	renderDistribution(&sb, "Tier", r.TierDistribution)
	sb.WriteString("## Group Size Distribution\n\n")
	renderDistribution(&sb, "Group Size", r.GroupSizeDistribution)

	// Patterns per lottery
	sb.WriteString("## Detected Groups\n\n")
	if len(r.Lotteries) == 0 {
		sb.WriteString("No patterns detected.\n\n")
	}
	for _, lot := range r.Lotteries {
		sb.WriteString(fmt.Sprintf("### Lottery %s\n\n", lot.LotteryID))
		sb.WriteString("| ID | Accounts | Size | Rounds | Required | Tier | Min Rounds | Mean Sim | Total | Dominant Pair | Shapes |\n")
		sb.WriteString("|----|----------|------|--------|----------|------|------------|----------|-------|---------------|--------|\n")
		for _, p := range lot.Patterns {
			sb.WriteString(fmt.Sprintf("| `%s` | %s | %d | %d | %d | %s | %d | %.4f | %s | %s | %s |\n",
				p.ShortID, strings.Join(p.Accounts, ", "), p.GroupSize,
				p.QualifyingRounds, p.RequiredRounds, p.Tier, p.MinTotalRounds,
				p.MeanSimilarity, p.TotalAmount.StringFixed(2), p.DominantPair,
				joinDistribution(p.ShapeDistribution, ", ")))
		}
		sb.WriteString("\n")

		sb.WriteString("Member activity:\n\n")
		for _, p := range lot.Patterns {
			sb.WriteString(fmt.Sprintf("- `%s`: %s", p.ShortID, joinMembers(p.Members, ", ")))
			if p.DisparityChecked {
				sb.WriteString(fmt.Sprintf(" (spread %d, limit %d)", p.DisparitySpread, p.DisparityLimit))
			} else {
				sb.WriteString(" (disparity not checked)")
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	// Reproducibility
	sb.WriteString("## Reproducibility\n\n")
	sb.WriteString(fmt.Sprintf("Fingerprint: `%s`\n\n", r.Reproducibility.Fingerprint))
	if v := r.Reproducibility.Verified; v != nil {
		if *v {
			sb.WriteString("Idempotence check: **PASS**\n")
		} else {
			sb.WriteString("Idempotence check: **FAIL**\n")
		}
	}

	return sb.String()
}

func renderSummary(sb *strings.Builder, s SummarySection) {
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Input Records | %d |\n", s.InputRecords))
	sb.WriteString(fmt.Sprintf("| Records After Filter | %d |\n", s.FilteredRecords))
	sb.WriteString(fmt.Sprintf("| Excluded (multi-direction) | %d |\n", s.ExcludedRecords))
	sb.WriteString(fmt.Sprintf("| Rounds | %d |\n", s.Rounds))
	sb.WriteString(fmt.Sprintf("| Accounts | %d |\n", s.Accounts))
	sb.WriteString(fmt.Sprintf("| Lotteries | %d |\n", s.Lotteries))
	sb.WriteString(fmt.Sprintf("| Combinations Examined | %d |\n", s.SearchSpace))
	for _, row := range s.CandidatesBySize {
		sb.WriteString(fmt.Sprintf("| Round Candidates (k=%s) | %d |\n", row.Label, row.Count))
	}
	sb.WriteString(fmt.Sprintf("| Round Candidates | %d |\n", s.Candidates))
	sb.WriteString(fmt.Sprintf("| Groups Evaluated | %d |\n", s.Groups))
	sb.WriteString(fmt.Sprintf("| Patterns | %d |\n", s.Patterns))
	sb.WriteString(fmt.Sprintf("| Rejected (disparity) | %d |\n", s.RejectedDisparity))
	sb.WriteString(fmt.Sprintf("| Rejected (threshold) | %d |\n", s.RejectedThreshold))
	sb.WriteString(fmt.Sprintf("| Workers | %d |\n", s.Workers))
	sb.WriteString(fmt.Sprintf("| Elapsed | %s |\n", s.Elapsed.Round(time.Millisecond)))
	sb.WriteString("\n")
}

func renderPolicy(sb *strings.Builder, p PolicySection) {
	sb.WriteString("## Thresholds\n\n")
	sb.WriteString(fmt.Sprintf("Opposite pairs: %s\n\n", strings.Join(p.Pairs, ", ")))
	sb.WriteString(fmt.Sprintf("Minimum amount: %s | Max period disparity: %d | Activity scope: %s\n\n",
		p.MinAmount, p.MaxPeriodDisparity, p.ProfileScope))

	sb.WriteString("| Group Size | Min Similarity |\n")
	sb.WriteString("|------------|----------------|\n")
	for _, t := range p.Thresholds {
		sb.WriteString(fmt.Sprintf("| %d | %.4f |\n", t.GroupSize, t.MinSimilarity))
	}
	sb.WriteString("\n")

	sb.WriteString("| Tier | Max Rounds | Required Rounds |\n")
	sb.WriteString("|------|------------|-----------------|\n")
	for _, t := range p.Tiers {
		bound := "unbounded"
		if t.MaxRounds > 0 {
			bound = fmt.Sprintf("%d", t.MaxRounds)
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %d |\n", t.Name, bound, t.MinQualifyingRounds))
	}
	sb.WriteString("\n")
}

func renderDistribution(sb *strings.Builder, label string, rows []DistributionRow) {
	sb.WriteString(fmt.Sprintf("| %s | Patterns |\n", label))
	sb.WriteString("|------|----------|\n")
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("| %s | %d |\n", row.Label, row.Count))
	}
	sb.WriteString("\n")
}

func joinDistribution(rows []DistributionRow, sep string) string {
	parts := make([]string, len(rows))
	for i, row := range rows {
		parts[i] = fmt.Sprintf("%s x%d", row.Label, row.Count)
	}
	return strings.Join(parts, sep)
}

func joinMembers(members []MemberRow, sep string) string {
	parts := make([]string, len(members))
	for i, m := range members {
		if !m.HasStats {
			parts[i] = m.AccountID + " (no history)"
			continue
		}
		parts[i] = fmt.Sprintf("%s %d rounds / %d records", m.AccountID, m.TotalRounds, m.TotalRecords)
	}
	return strings.Join(parts, sep)
}
