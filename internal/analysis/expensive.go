package analysis

import (
	"time"

	"athenalens/internal/model"
	"athenalens/internal/sqltext"
)

// ComparisonParams are the inputs of the expensive-query operation.
// StartDate/EndDate bound the snapshot; QueryPattern is a case-insensitive
// substring filter over query text; QueryID narrows to one execution. When
// BaselineStart, BaselineEnd and TargetDate are all set, the filtered set
// is additionally split into a baseline range and a single target date.
type ComparisonParams struct {
	StartDate     string
	EndDate       string
	Workgroup     string
	QueryPattern  string
	QueryID       string
	BaselineStart string
	BaselineEnd   string
	TargetDate    string
}

func (p ComparisonParams) wantsSplit() bool {
	return p.BaselineStart != "" && p.BaselineEnd != "" && p.TargetDate != ""
}

// CompareExpensiveQueries ranks SUCCEEDED queries by scanned bytes,
// extracts features per query, and computes aggregate statistics over the
// filtered set.
func CompareExpensiveQueries(records []model.QueryRecord, p ComparisonParams, opts Options) (*model.QueryComparison, error) {
	start, err := parseDateParam("start_date", p.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDateParam("end_date", p.EndDate)
	if err != nil {
		return nil, err
	}

	var baselineStart, baselineEnd, targetDate time.Time
	if p.wantsSplit() {
		var err error
		if baselineStart, err = parseDateParam("baseline_start", p.BaselineStart); err != nil {
			return nil, err
		}
		if baselineEnd, err = parseDateParam("baseline_end", p.BaselineEnd); err != nil {
			return nil, err
		}
		if targetDate, err = parseDateParam("target_date", p.TargetDate); err != nil {
			return nil, err
		}
	}

	filtered := filterRange(succeededOnly(filterWorkgroup(records, p.Workgroup)), start, end)

	if p.QueryPattern != "" {
		var matched []model.QueryRecord
		for _, r := range filtered {
			if containsIgnoreCase(r.QueryText, p.QueryPattern) {
				matched = append(matched, r)
			}
		}
		filtered = matched
	}
	if p.QueryID != "" {
		var matched []model.QueryRecord
		for _, r := range filtered {
			if r.ID == p.QueryID {
				matched = append(matched, r)
			}
		}
		filtered = matched
	}

	if len(filtered) == 0 {
		return nil, ErrNoData
	}

	analyzer := opts.analyzer()
	sorted := sortByBytesDesc(filtered)

	detailCount := opts.topQueries()
	if p.QueryID != "" {
		detailCount = 1
	}
	if detailCount > len(sorted) {
		detailCount = len(sorted)
	}
	details := make([]model.QueryDetail, detailCount)
	for i, r := range sorted[:detailCount] {
		details[i] = model.QueryDetail{
			QueryID:       r.ID,
			Date:          model.FormatDate(r.Date()),
			StartTime:     r.StartTime.UTC().Format(time.RFC3339),
			DataScannedGB: r.GB(),
			Features:      analyzer.ExtractFeatures(r.QueryText),
		}
	}

	gbs := make([]float64, len(filtered))
	for i, r := range filtered {
		gbs[i] = r.GB()
	}
	stats := model.ComparisonStats{
		TotalQueries: len(filtered),
		TotalGB:      sumGB(filtered),
		AvgGB:        meanGB(filtered),
		MedianGB:     medianOf(gbs),
		MaxGB:        maxOf(gbs),
		MinGB:        minOf(gbs),
	}

	patterns := model.PatternBreakdowns{
		BySourceTable: breakdownBySourceTable(filtered, analyzer),
		ByEndDate:     breakdownByEndDate(filtered, analyzer),
	}

	if p.wantsSplit() {
		baseline := filterRange(filtered, baselineStart, baselineEnd)
		target := filterRange(filtered, targetDate, targetDate)

		if len(baseline) > 0 && len(target) > 0 {
			stats.Baseline = rangeStats(baseline, p.BaselineStart, p.BaselineEnd, "")
			stats.Target = rangeStats(target, "", "", p.TargetDate)

			if stats.Baseline.AvgGB > 0 {
				pct := (stats.Target.AvgGB - stats.Baseline.AvgGB) / stats.Baseline.AvgGB * 100
				stats.AvgChangePct = &pct
			}

			patterns.BaselineBySourceTable = breakdownBySourceTable(baseline, analyzer)
			patterns.TargetBySourceTable = breakdownBySourceTable(target, analyzer)
			patterns.BaselineByEndDate = breakdownByEndDate(baseline, analyzer)
			patterns.TargetByEndDate = breakdownByEndDate(target, analyzer)
		}
	}

	return &model.QueryComparison{
		QueryDetails: details,
		Statistics:   stats,
		Patterns:     patterns,
	}, nil
}

func rangeStats(records []model.QueryRecord, startDate, endDate, date string) *model.RangeStats {
	gbs := make([]float64, len(records))
	for i, r := range records {
		gbs[i] = r.GB()
	}
	return &model.RangeStats{
		StartDate:    startDate,
		EndDate:      endDate,
		Date:         date,
		TotalQueries: len(records),
		AvgGB:        meanGB(records),
		MedianGB:     medianOf(gbs),
		MaxGB:        maxOf(gbs),
		MinGB:        minOf(gbs),
	}
}

const unknownGroup = "unknown"

func breakdownBySourceTable(records []model.QueryRecord, analyzer *sqltext.Analyzer) map[string]model.GroupStats {
	return breakdown(records, func(r model.QueryRecord) string {
		if t := analyzer.ExtractFeatures(r.QueryText).SourceTable; t != "" {
			return t
		}
		return unknownGroup
	})
}

func breakdownByEndDate(records []model.QueryRecord, analyzer *sqltext.Analyzer) map[string]model.GroupStats {
	return breakdown(records, func(r model.QueryRecord) string {
		if d := analyzer.ExtractFeatures(r.QueryText).EndDate; d != "" {
			return d
		}
		return unknownGroup
	})
}

func breakdown(records []model.QueryRecord, key func(model.QueryRecord) string) map[string]model.GroupStats {
	type acc struct {
		sum   float64
		count int
	}
	groups := make(map[string]*acc)
	for _, r := range records {
		k := key(r)
		g, ok := groups[k]
		if !ok {
			g = &acc{}
			groups[k] = g
		}
		g.sum += r.GB()
		g.count++
	}

	out := make(map[string]model.GroupStats, len(groups))
	for k, g := range groups {
		out[k] = model.GroupStats{
			Count:  g.count,
			MeanGB: g.sum / float64(g.count),
			SumGB:  g.sum,
		}
	}
	return out
}

func maxOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
