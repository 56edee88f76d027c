package analysis

import (
	"sort"
	"strings"
	"time"

	"athenalens/internal/model"
	"athenalens/internal/sqltext"
)

// CostAnalysisParams are the inputs of the cost-increase operation. Dates
// are inclusive YYYY-MM-DD bounds; the baseline and spike windows need not
// be disjoint or ordered relative to each other.
type CostAnalysisParams struct {
	BaselineStart string
	BaselineEnd   string
	SpikeStart    string
	SpikeEnd      string
	Workgroup     string
}

// AnalyzeCostIncrease compares a baseline window against a spike window
// over the given record snapshot. The snapshot should cover at least
// min..max of the four dates; records outside both windows still count in
// the summary totals and daily metrics.
func AnalyzeCostIncrease(records []model.QueryRecord, p CostAnalysisParams, opts Options) (*model.CostAnalysis, error) {
	baselineStart, err := parseDateParam("baseline_start", p.BaselineStart)
	if err != nil {
		return nil, err
	}
	baselineEnd, err := parseDateParam("baseline_end", p.BaselineEnd)
	if err != nil {
		return nil, err
	}
	spikeStart, err := parseDateParam("spike_start", p.SpikeStart)
	if err != nil {
		return nil, err
	}
	spikeEnd, err := parseDateParam("spike_end", p.SpikeEnd)
	if err != nil {
		return nil, err
	}

	records = filterWorkgroup(records, p.Workgroup)
	if len(records) == 0 {
		return nil, ErrNoData
	}

	succeeded := succeededOnly(records)
	baseline := filterRange(succeeded, baselineStart, baselineEnd)
	spike := filterRange(succeeded, spikeStart, spikeEnd)

	analyzer := opts.analyzer()
	baselinePatterns := labelPatterns(baseline, analyzer)
	spikePatterns := labelPatterns(spike, analyzer)

	baselineStats := periodStats(baseline, p.BaselineStart, p.BaselineEnd, baselineStart, baselineEnd)
	spikeStats := periodStats(spike, p.SpikeStart, p.SpikeEnd, spikeStart, spikeEnd)

	result := &model.CostAnalysis{
		Summary: model.AnalysisSummary{
			TotalQueries:     len(records),
			SucceededQueries: len(succeeded),
			FailedQueries:    len(records) - len(succeeded),
			BaselineQueries:  len(baseline),
			SpikeQueries:     len(spike),
		},
		DailyMetrics: dailyMetrics(succeeded),
		Periods: model.PeriodComparison{
			Baseline: baselineStats,
			Spike:    spikeStats,
			Changes:  periodChanges(baselineStats, spikeStats),
		},
		Patterns:     patternDiffs(baselinePatterns, spikePatterns, opts.topPatterns()),
		NewPatterns:  newPatterns(baselinePatterns, spikePatterns),
		Insert:       insertAnalysis(baselinePatterns, spikePatterns, baselineStats.Days, spikeStats.Days),
		TopQueries:   model.TopQueries{Baseline: topQueries(baseline, baselinePatterns, opts.topQueries()), Spike: topQueries(spike, spikePatterns, opts.topQueries())},
		QueryChanges: queryDrift(baseline, spike, analyzer, opts.driftThreshold()),
	}
	return result, nil
}

func filterRange(records []model.QueryRecord, start, end time.Time) []model.QueryRecord {
	var out []model.QueryRecord
	for _, r := range records {
		if inRange(r, start, end) {
			out = append(out, r)
		}
	}
	return out
}

// labeled pairs each record with its extracted pattern, computed once and
// shared by the pattern diff, INSERT analysis, and top-query steps.
type labeled struct {
	record  model.QueryRecord
	pattern string
}

func labelPatterns(records []model.QueryRecord, analyzer *sqltext.Analyzer) []labeled {
	out := make([]labeled, len(records))
	for i, r := range records {
		out[i] = labeled{record: r, pattern: analyzer.ExtractPattern(r.QueryText)}
	}
	return out
}

func periodStats(records []model.QueryRecord, startStr, endStr string, start, end time.Time) model.PeriodStats {
	days := rangeDays(start, end)
	total := sumGB(records)

	stats := model.PeriodStats{
		StartDate:     startStr,
		EndDate:       endStr,
		Days:          days,
		TotalGB:       total,
		QueryCount:    len(records),
		AvgGBPerQuery: meanGB(records),
	}
	// days is end-start+1 and >= 1 for any valid range; the guard covers
	// inverted inputs only.
	if days > 0 {
		stats.DailyAvgGB = total / float64(days)
	}
	return stats
}

func periodChanges(baseline, spike model.PeriodStats) model.PeriodChanges {
	changes := model.PeriodChanges{
		DailyDataScannedPct: pctChange(baseline.DailyAvgGB, spike.DailyAvgGB),
		AvgPerQueryPct:      pctChange(baseline.AvgGBPerQuery, spike.AvgGBPerQuery),
	}
	if baseline.QueryCount > 0 && baseline.Days > 0 && spike.Days > 0 {
		baseRate := float64(baseline.QueryCount) / float64(baseline.Days)
		spikeRate := float64(spike.QueryCount) / float64(spike.Days)
		changes.QueryCountPct = pctChange(baseRate, spikeRate)
	}
	return changes
}

func dailyMetrics(records []model.QueryRecord) []model.DailyMetric {
	type bucket struct {
		totalGB float64
		maxGB   float64
		count   int
	}
	days := make(map[string]*bucket)
	for _, r := range records {
		key := model.FormatDate(r.Date())
		b, ok := days[key]
		if !ok {
			b = &bucket{}
			days[key] = b
		}
		gb := r.GB()
		b.totalGB += gb
		if gb > b.maxGB {
			b.maxGB = gb
		}
		b.count++
	}

	metrics := make([]model.DailyMetric, 0, len(days))
	for date, b := range days {
		m := model.DailyMetric{
			Date:             date,
			TotalGB:          b.totalGB,
			MaxGBSingleQuery: b.maxGB,
			QueryCount:       b.count,
		}
		if b.count > 0 {
			m.AvgGBPerQuery = b.totalGB / float64(b.count)
		}
		metrics = append(metrics, m)
	}
	sort.Slice(metrics, func(i, j int) bool { return metrics[i].Date < metrics[j].Date })
	return metrics
}

// patternBucket accumulates one pattern's totals within a period.
type patternBucket struct {
	totalGB float64
	count   int
}

func (b patternBucket) avgGB() float64 {
	if b.count == 0 {
		return 0
	}
	return b.totalGB / float64(b.count)
}

func bucketByPattern(items []labeled) map[string]*patternBucket {
	buckets := make(map[string]*patternBucket)
	for _, it := range items {
		b, ok := buckets[it.pattern]
		if !ok {
			b = &patternBucket{}
			buckets[it.pattern] = b
		}
		b.totalGB += it.record.GB()
		b.count++
	}
	return buckets
}

// patternDiffs outer-joins the per-pattern buckets of both periods, filling
// the missing side with zeros, and keeps the top N by spike-period GB.
func patternDiffs(baseline, spike []labeled, topN int) []model.PatternDiff {
	base := bucketByPattern(baseline)
	spk := bucketByPattern(spike)

	names := make(map[string]struct{}, len(base)+len(spk))
	for p := range base {
		names[p] = struct{}{}
	}
	for p := range spk {
		names[p] = struct{}{}
	}

	diffs := make([]model.PatternDiff, 0, len(names))
	for name := range names {
		var b, s patternBucket
		if pb, ok := base[name]; ok {
			b = *pb
		}
		if sb, ok := spk[name]; ok {
			s = *sb
		}
		d := model.PatternDiff{
			Pattern:       name,
			BaselineGB:    b.totalGB,
			BaselineAvgGB: b.avgGB(),
			BaselineCount: b.count,
			SpikeGB:       s.totalGB,
			SpikeAvgGB:    s.avgGB(),
			SpikeCount:    s.count,
			GBChange:      s.totalGB - b.totalGB,
		}
		// A zero baseline still surfaces the absolute change instead of
		// dividing by zero.
		denom := b.totalGB
		if denom == 0 {
			denom = 1
		}
		d.GBChangePct = (s.totalGB - b.totalGB) / denom * 100
		diffs = append(diffs, d)
	}

	sort.Slice(diffs, func(i, j int) bool {
		if diffs[i].SpikeGB != diffs[j].SpikeGB {
			return diffs[i].SpikeGB > diffs[j].SpikeGB
		}
		return diffs[i].Pattern < diffs[j].Pattern
	})
	if len(diffs) > topN {
		diffs = diffs[:topN]
	}
	return diffs
}

// newPatterns lists patterns that appear in the spike period only; these
// are the most actionable "what changed" signal.
func newPatterns(baseline, spike []labeled) []model.NewPattern {
	base := bucketByPattern(baseline)
	spk := bucketByPattern(spike)

	var out []model.NewPattern
	for name, b := range spk {
		if _, ok := base[name]; ok {
			continue
		}
		out = append(out, model.NewPattern{Pattern: name, TotalGB: b.totalGB, Count: b.count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalGB != out[j].TotalGB {
			return out[i].TotalGB > out[j].TotalGB
		}
		return out[i].Pattern < out[j].Pattern
	})
	return out
}

// insertAnalysis summarizes INSERT-labeled activity separately; write-query
// growth is a distinct cost driver from read-query growth. Nil unless both
// periods contain INSERT work.
func insertAnalysis(baseline, spike []labeled, baselineDays, spikeDays int) *model.InsertAnalysis {
	baseIns := filterInsert(baseline)
	spikeIns := filterInsert(spike)
	if len(baseIns) == 0 || len(spikeIns) == 0 {
		return nil
	}

	ia := &model.InsertAnalysis{
		BaselineTotalGB: sumGB(baseIns),
		BaselineAvgGB:   meanGB(baseIns),
		BaselineCount:   len(baseIns),
		SpikeTotalGB:    sumGB(spikeIns),
		SpikeAvgGB:      meanGB(spikeIns),
		SpikeCount:      len(spikeIns),
	}
	if ia.BaselineTotalGB > 0 && baselineDays > 0 && spikeDays > 0 {
		ia.DailyChangePct = pctChange(ia.BaselineTotalGB/float64(baselineDays), ia.SpikeTotalGB/float64(spikeDays))
	}
	return ia
}

func filterInsert(items []labeled) []model.QueryRecord {
	var out []model.QueryRecord
	for _, it := range items {
		if strings.Contains(it.pattern, "INSERT") {
			out = append(out, it.record)
		}
	}
	return out
}

func topQueries(records []model.QueryRecord, items []labeled, topN int) []model.TopQuery {
	patterns := make(map[string]string, len(items))
	for _, it := range items {
		patterns[it.record.ID] = it.pattern
	}

	sorted := sortByBytesDesc(records)
	if len(sorted) > topN {
		sorted = sorted[:topN]
	}
	out := make([]model.TopQuery, len(sorted))
	for i, r := range sorted {
		out[i] = model.TopQuery{
			QueryID: r.ID,
			Date:    model.FormatDate(r.Date()),
			Pattern: patterns[r.ID],
			GB:      r.GB(),
		}
	}
	return out
}

// queryDrift compares mean scanned GB per normalized query shape across the
// two periods and reports shapes whose mean moved by more than threshold.
func queryDrift(baseline, spike []model.QueryRecord, analyzer *sqltext.Analyzer, thresholdPct float64) []model.QueryChange {
	type shape struct {
		gbSum float64
		count int
	}
	group := func(records []model.QueryRecord) map[string]*shape {
		m := make(map[string]*shape)
		for _, r := range records {
			key := analyzer.Normalize(r.QueryText)
			s, ok := m[key]
			if !ok {
				s = &shape{}
				m[key] = s
			}
			s.gbSum += r.GB()
			s.count++
		}
		return m
	}

	base := group(baseline)
	spk := group(spike)

	var changes []model.QueryChange
	for key, b := range base {
		s, ok := spk[key]
		if !ok {
			continue
		}
		baseAvg := b.gbSum / float64(b.count)
		spikeAvg := s.gbSum / float64(s.count)
		if baseAvg <= 0 {
			continue
		}
		changePct := (spikeAvg - baseAvg) / baseAvg * 100
		if abs(changePct) <= thresholdPct {
			continue
		}
		preview := key
		if len(preview) > 100 {
			preview = preview[:100]
		}
		changes = append(changes, model.QueryChange{
			QueryPreview:  preview,
			BaselineAvgGB: baseAvg,
			SpikeAvgGB:    spikeAvg,
			ChangePct:     changePct,
			BaselineCount: b.count,
			SpikeCount:    s.count,
		})
	}
	sort.Slice(changes, func(i, j int) bool {
		ai, aj := abs(changes[i].ChangePct), abs(changes[j].ChangePct)
		if ai != aj {
			return ai > aj
		}
		return changes[i].QueryPreview < changes[j].QueryPreview
	})
	return changes
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
