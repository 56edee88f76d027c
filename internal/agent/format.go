package agent

import (
	"fmt"
	"strings"

	"athenalens/internal/model"
)

// summarizeAnalysis condenses a cost analysis into the short text handed
// back to the model as a tool result.
func summarizeAnalysis(r *model.CostAnalysis) string {
	var b strings.Builder
	b.WriteString("Cost Analysis Results:\n")

	base := r.Periods.Baseline
	spike := r.Periods.Spike
	fmt.Fprintf(&b, "- Baseline period (%s to %s): %d queries, %.2f GB\n",
		base.StartDate, base.EndDate, base.QueryCount, base.TotalGB)
	fmt.Fprintf(&b, "- Spike period (%s to %s): %d queries, %.2f GB\n",
		spike.StartDate, spike.EndDate, spike.QueryCount, spike.TotalGB)
	fmt.Fprintf(&b, "- Data scanned increase: %.1f%%\n", r.Periods.Changes.DailyDataScannedPct)
	fmt.Fprintf(&b, "- Query count change: %.1f%%\n", r.Periods.Changes.QueryCountPct)

	if len(r.NewPatterns) > 0 {
		fmt.Fprintf(&b, "- New query patterns in spike period: %d (largest: %s, %.2f GB)\n",
			len(r.NewPatterns), r.NewPatterns[0].Pattern, r.NewPatterns[0].TotalGB)
	}
	if len(r.TopQueries.Spike) > 0 {
		fmt.Fprintf(&b, "\nTop expensive query in spike period: %.2f GB", r.TopQueries.Spike[0].GB)
	}
	return b.String()
}

// summarizeComparison condenses a query comparison into the short text
// handed back to the model as a tool result.
func summarizeComparison(r *model.QueryComparison) string {
	var b strings.Builder
	b.WriteString("Query Comparison Results:\n")
	fmt.Fprintf(&b, "- Total queries analyzed: %d\n", r.Statistics.TotalQueries)
	fmt.Fprintf(&b, "- Average data scanned: %.2f GB\n", r.Statistics.AvgGB)
	fmt.Fprintf(&b, "- Max data scanned: %.2f GB\n", r.Statistics.MaxGB)
	if len(r.QueryDetails) > 0 {
		fmt.Fprintf(&b, "\nMost expensive query: %.2f GB", r.QueryDetails[0].DataScannedGB)
	}
	return b.String()
}
