package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"athenalens/internal/model"
)

// RenderCostAnalysis renders the full cost-increase report for the terminal.
func RenderCostAnalysis(a *model.CostAnalysis) string {
	var b strings.Builder

	b.WriteString(RenderTitle("Athena Cost Analysis"))
	b.WriteString("\n\n")

	b.WriteString(RenderTable(Table{
		Title:   "Summary",
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Total queries", FormatNumber(int64(a.Summary.TotalQueries))},
			{"Succeeded", FormatNumber(int64(a.Summary.SucceededQueries))},
			{"Failed / cancelled", FormatNumber(int64(a.Summary.FailedQueries))},
			{"Baseline period queries", FormatNumber(int64(a.Summary.BaselineQueries))},
			{"Spike period queries", FormatNumber(int64(a.Summary.SpikeQueries))},
		},
	}))
	b.WriteString("\n")

	b.WriteString(renderPeriodComparison(a.Periods))
	b.WriteString("\n")

	if len(a.DailyMetrics) > 0 {
		b.WriteString(renderDailyMetrics(a.DailyMetrics))
		b.WriteString("\n")
	}

	if len(a.Patterns) > 0 {
		b.WriteString(renderPatternDiffs(a.Patterns))
		b.WriteString("\n")
	}

	if len(a.NewPatterns) > 0 {
		rows := make([][]string, 0, len(a.NewPatterns))
		for _, p := range a.NewPatterns {
			rows = append(rows, []string{
				Truncate(p.Pattern, 48),
				FormatGB(p.TotalGB),
				FormatNumber(int64(p.Count)),
			})
		}
		b.WriteString(RenderTable(Table{
			Title:   "New Patterns in Spike Period",
			Headers: []string{"Pattern", "Total", "Queries"},
			Rows:    rows,
		}))
		b.WriteString("\n")
	}

	if a.Insert != nil {
		b.WriteString(renderInsertAnalysis(a.Insert))
		b.WriteString("\n")
	}

	b.WriteString(renderTopQueries(a.TopQueries))

	if len(a.QueryChanges) > 0 {
		b.WriteString("\n")
		b.WriteString(renderQueryChanges(a.QueryChanges))
	}

	return b.String()
}

func renderPeriodComparison(p model.PeriodComparison) string {
	rows := [][]string{
		{"Date range",
			fmt.Sprintf("%s .. %s", p.Baseline.StartDate, p.Baseline.EndDate),
			fmt.Sprintf("%s .. %s", p.Spike.StartDate, p.Spike.EndDate),
			""},
		{"Days", strconv.Itoa(p.Baseline.Days), strconv.Itoa(p.Spike.Days), ""},
		{"---"},
		{"Total scanned", FormatGB(p.Baseline.TotalGB), FormatGB(p.Spike.TotalGB), ""},
		{"Daily average", FormatGB(p.Baseline.DailyAvgGB), FormatGB(p.Spike.DailyAvgGB),
			FormatPct(p.Changes.DailyDataScannedPct)},
		{"Avg per query", FormatGB(p.Baseline.AvgGBPerQuery), FormatGB(p.Spike.AvgGBPerQuery),
			FormatPct(p.Changes.AvgPerQueryPct)},
		{"Query count",
			FormatNumber(int64(p.Baseline.QueryCount)),
			FormatNumber(int64(p.Spike.QueryCount)),
			FormatPct(p.Changes.QueryCountPct)},
	}
	return RenderTable(Table{
		Title:   "Baseline vs Spike",
		Headers: []string{"Metric", "Baseline", "Spike", "Change"},
		Rows:    rows,
	})
}

func renderDailyMetrics(metrics []model.DailyMetric) string {
	var b strings.Builder

	values := make([]float64, len(metrics))
	for i, m := range metrics {
		values[i] = m.TotalGB
	}
	b.WriteString("  ")
	b.WriteString(headerStyle.Render("Daily Scanned Data"))
	b.WriteString("  ")
	b.WriteString(costStyle.Render(RenderSparkline(values)))
	b.WriteString("\n")

	rows := make([][]string, 0, len(metrics))
	for _, m := range metrics {
		rows = append(rows, []string{
			m.Date,
			FormatGB(m.TotalGB),
			FormatGB(m.AvgGBPerQuery),
			FormatGB(m.MaxGBSingleQuery),
			FormatNumber(int64(m.QueryCount)),
		})
	}
	b.WriteString(RenderTable(Table{
		Headers: []string{"Date", "Total", "Avg/Query", "Max Query", "Queries"},
		Rows:    rows,
	}))
	return b.String()
}

func renderPatternDiffs(diffs []model.PatternDiff) string {
	rows := make([][]string, 0, len(diffs))
	for _, d := range diffs {
		rows = append(rows, []string{
			Truncate(d.Pattern, 44),
			FormatGB(d.BaselineGB),
			FormatGB(d.SpikeGB),
			FormatGB(d.GBChange),
			FormatPct(d.GBChangePct),
		})
	}
	return RenderTable(Table{
		Title:   "Query Patterns by Spike Volume",
		Headers: []string{"Pattern", "Baseline", "Spike", "Change", "Change %"},
		Rows:    rows,
	})
}

func renderInsertAnalysis(in *model.InsertAnalysis) string {
	return RenderTable(Table{
		Title:   "INSERT / CTAS Activity",
		Headers: []string{"Metric", "Baseline", "Spike"},
		Rows: [][]string{
			{"Total scanned", FormatGB(in.BaselineTotalGB), FormatGB(in.SpikeTotalGB)},
			{"Avg per query", FormatGB(in.BaselineAvgGB), FormatGB(in.SpikeAvgGB)},
			{"Query count", FormatNumber(int64(in.BaselineCount)), FormatNumber(int64(in.SpikeCount))},
			{"Daily change", "", FormatPct(in.DailyChangePct)},
		},
	})
}

func renderTopQueries(top model.TopQueries) string {
	var b strings.Builder
	for _, section := range []struct {
		title   string
		queries []model.TopQuery
	}{
		{"Top Queries (Baseline)", top.Baseline},
		{"Top Queries (Spike)", top.Spike},
	} {
		if len(section.queries) == 0 {
			continue
		}
		rows := make([][]string, 0, len(section.queries))
		for _, q := range section.queries {
			rows = append(rows, []string{
				q.QueryID,
				q.Date,
				Truncate(q.Pattern, 40),
				FormatGB(q.GB),
			})
		}
		b.WriteString(RenderTable(Table{
			Title:   section.title,
			Headers: []string{"Query ID", "Date", "Pattern", "Scanned"},
			Rows:    rows,
		}))
		b.WriteString("\n")
	}
	return b.String()
}

func renderQueryChanges(changes []model.QueryChange) string {
	rows := make([][]string, 0, len(changes))
	for _, c := range changes {
		rows = append(rows, []string{
			Truncate(c.QueryPreview, 48),
			FormatGB(c.BaselineAvgGB),
			FormatGB(c.SpikeAvgGB),
			FormatPct(c.ChangePct),
			fmt.Sprintf("%d/%d", c.BaselineCount, c.SpikeCount),
		})
	}
	return RenderTable(Table{
		Title:   "Recurring Queries That Drifted",
		Headers: []string{"Query", "Baseline Avg", "Spike Avg", "Change", "Runs"},
		Rows:    rows,
	})
}

// RenderComparison renders the expensive-query comparison report.
func RenderComparison(c *model.QueryComparison) string {
	var b strings.Builder

	b.WriteString(RenderTitle("Expensive Query Comparison"))
	b.WriteString("\n\n")

	b.WriteString(renderComparisonStats(c.Statistics))
	b.WriteString("\n")

	if len(c.QueryDetails) > 0 {
		rows := make([][]string, 0, len(c.QueryDetails))
		for _, d := range c.QueryDetails {
			table := d.Features.SourceTable
			if table == "" {
				table = "unknown"
			}
			rows = append(rows, []string{
				d.QueryID,
				d.Date,
				table,
				d.Features.DateRange,
				FormatGB(d.DataScannedGB),
			})
		}
		b.WriteString(RenderTable(Table{
			Title:   "Most Expensive Queries",
			Headers: []string{"Query ID", "Date", "Source Table", "Date Range", "Scanned"},
			Rows:    rows,
		}))
		b.WriteString("\n")
	}

	if len(c.Patterns.BySourceTable) > 0 {
		b.WriteString(renderBreakdown("By Source Table", c.Patterns.BySourceTable))
		b.WriteString("\n")
	}
	if len(c.Patterns.ByEndDate) > 0 {
		b.WriteString(renderBreakdown("By Queried End Date", c.Patterns.ByEndDate))
	}

	return b.String()
}

func renderComparisonStats(s model.ComparisonStats) string {
	rows := [][]string{
		{"Queries", FormatNumber(int64(s.TotalQueries))},
		{"Total scanned", FormatGB(s.TotalGB)},
		{"Average", FormatGB(s.AvgGB)},
		{"Median", FormatGB(s.MedianGB)},
		{"Max", FormatGB(s.MaxGB)},
		{"Min", FormatGB(s.MinGB)},
	}
	if s.Baseline != nil && s.Target != nil {
		rows = append(rows, []string{"---"})
		rows = append(rows,
			[]string{
				fmt.Sprintf("Baseline avg (%s..%s)", s.Baseline.StartDate, s.Baseline.EndDate),
				FormatGB(s.Baseline.AvgGB),
			},
			[]string{
				fmt.Sprintf("Target avg (%s)", s.Target.Date),
				FormatGB(s.Target.AvgGB),
			},
		)
		if s.AvgChangePct != nil {
			rows = append(rows, []string{"Avg change", FormatPct(*s.AvgChangePct)})
		}
	}
	return RenderTable(Table{
		Title:   "Statistics",
		Headers: []string{"Metric", "Value"},
		Rows:    rows,
	})
}

func renderBreakdown(title string, groups map[string]model.GroupStats) string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return groups[keys[i]].SumGB > groups[keys[j]].SumGB
	})

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		rows = append(rows, []string{
			Truncate(k, 40),
			FormatNumber(int64(g.Count)),
			FormatGB(g.MeanGB),
			FormatGB(g.SumGB),
		})
	}
	return RenderTable(Table{
		Title:   title,
		Headers: []string{"Group", "Queries", "Mean", "Total"},
		Rows:    rows,
	})
}
