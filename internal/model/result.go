package model

// PeriodStats aggregates SUCCEEDED records inside one inclusive date range.
type PeriodStats struct {
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	Days          int     `json:"days"`
	TotalGB       float64 `json:"total_gb"`
	DailyAvgGB    float64 `json:"daily_avg_gb"`
	QueryCount    int     `json:"query_count"`
	AvgGBPerQuery float64 `json:"avg_gb_per_query"`
}

// PeriodChanges holds the baseline-vs-spike percentage deltas.
type PeriodChanges struct {
	DailyDataScannedPct float64 `json:"daily_data_scanned_pct"`
	AvgPerQueryPct      float64 `json:"avg_per_query_pct"`
	QueryCountPct       float64 `json:"query_count_pct"`
}

// PeriodComparison bundles both period aggregates with their deltas.
type PeriodComparison struct {
	Baseline PeriodStats   `json:"baseline"`
	Spike    PeriodStats   `json:"spike"`
	Changes  PeriodChanges `json:"changes"`
}

// AnalysisSummary carries the record counts across the loaded range.
// Failed and cancelled queries count here but never toward GB metrics.
type AnalysisSummary struct {
	TotalQueries     int `json:"total_queries"`
	SucceededQueries int `json:"succeeded_queries"`
	FailedQueries    int `json:"failed_queries"`
	BaselineQueries  int `json:"baseline_queries"`
	SpikeQueries     int `json:"spike_queries"`
}

// DailyMetric is the per-day rollup of SUCCEEDED records.
type DailyMetric struct {
	Date             string  `json:"date"`
	TotalGB          float64 `json:"total_gb_scanned"`
	AvgGBPerQuery    float64 `json:"avg_gb_per_query"`
	MaxGBSingleQuery float64 `json:"max_gb_single_query"`
	QueryCount       int     `json:"query_count"`
}

// PatternDiff is the outer-joined per-pattern comparison between periods.
// A pattern missing from one side contributes zeros there.
type PatternDiff struct {
	Pattern       string  `json:"pattern"`
	BaselineGB    float64 `json:"total_gb_baseline"`
	BaselineAvgGB float64 `json:"avg_gb_baseline"`
	BaselineCount int     `json:"count_baseline"`
	SpikeGB       float64 `json:"total_gb_spike"`
	SpikeAvgGB    float64 `json:"avg_gb_spike"`
	SpikeCount    int     `json:"count_spike"`
	GBChange      float64 `json:"gb_change"`
	GBChangePct   float64 `json:"gb_change_pct"`
}

// NewPattern is a pattern seen in the spike period but not the baseline.
type NewPattern struct {
	Pattern string  `json:"pattern"`
	TotalGB float64 `json:"total_gb"`
	Count   int     `json:"count"`
}

// InsertAnalysis summarizes write-heavy (INSERT-labeled) activity, which is
// a distinct cost driver from read growth.
type InsertAnalysis struct {
	BaselineTotalGB float64 `json:"baseline_total_gb"`
	BaselineAvgGB   float64 `json:"baseline_avg_gb"`
	BaselineCount   int     `json:"baseline_count"`
	SpikeTotalGB    float64 `json:"spike_total_gb"`
	SpikeAvgGB      float64 `json:"spike_avg_gb"`
	SpikeCount      int     `json:"spike_count"`
	DailyChangePct  float64 `json:"daily_change_pct"`
}

// TopQuery is one entry of a period's most-expensive list.
type TopQuery struct {
	QueryID string  `json:"query_execution_id"`
	Date    string  `json:"date"`
	Pattern string  `json:"query_pattern"`
	GB      float64 `json:"gb"`
}

// TopQueries holds the per-period expensive-query lists.
type TopQueries struct {
	Baseline []TopQuery `json:"baseline"`
	Spike    []TopQuery `json:"spike"`
}

// QueryChange reports drift: a normalized query shape present in both
// periods whose mean scanned GB moved by more than the configured threshold.
type QueryChange struct {
	QueryPreview  string  `json:"query_preview"`
	BaselineAvgGB float64 `json:"baseline_avg_gb"`
	SpikeAvgGB    float64 `json:"spike_avg_gb"`
	ChangePct     float64 `json:"change_pct"`
	BaselineCount int     `json:"baseline_count"`
	SpikeCount    int     `json:"spike_count"`
}

// CostAnalysis is the full result of the cost-increase operation.
type CostAnalysis struct {
	Summary      AnalysisSummary  `json:"summary"`
	DailyMetrics []DailyMetric    `json:"daily_metrics"`
	Periods      PeriodComparison `json:"period_comparison"`
	Patterns     []PatternDiff    `json:"query_patterns"`
	TopQueries   TopQueries       `json:"top_queries"`
	NewPatterns  []NewPattern     `json:"new_patterns"`
	Insert       *InsertAnalysis  `json:"insert_analysis,omitempty"`
	QueryChanges []QueryChange    `json:"query_changes"`
}

// QueryDetail is one analyzed query in a comparison result.
type QueryDetail struct {
	QueryID       string        `json:"query_id"`
	Date          string        `json:"date"`
	StartTime     string        `json:"start_time"`
	DataScannedGB float64       `json:"data_scanned_gb"`
	Features      QueryFeatures `json:"features"`
}

// RangeStats summarizes scanned GB over a sub-range of the filtered set.
type RangeStats struct {
	StartDate    string  `json:"start_date,omitempty"`
	EndDate      string  `json:"end_date,omitempty"`
	Date         string  `json:"date,omitempty"`
	TotalQueries int     `json:"total_queries"`
	AvgGB        float64 `json:"avg_data_scanned_gb"`
	MedianGB     float64 `json:"median_data_scanned_gb"`
	MaxGB        float64 `json:"max_data_scanned_gb"`
	MinGB        float64 `json:"min_data_scanned_gb"`
}

// ComparisonStats holds overall statistics for the filtered query set, plus
// the optional baseline-vs-target split.
type ComparisonStats struct {
	TotalQueries int         `json:"total_queries"`
	TotalGB      float64     `json:"total_data_scanned_gb"`
	AvgGB        float64     `json:"avg_data_scanned_gb"`
	MedianGB     float64     `json:"median_data_scanned_gb"`
	MaxGB        float64     `json:"max_data_scanned_gb"`
	MinGB        float64     `json:"min_data_scanned_gb"`
	Baseline     *RangeStats `json:"baseline,omitempty"`
	Target       *RangeStats `json:"target_date,omitempty"`
	AvgChangePct *float64    `json:"avg_data_scanned_pct,omitempty"`
}

// GroupStats is one bucket of a feature-keyed breakdown.
type GroupStats struct {
	Count  int     `json:"count"`
	MeanGB float64 `json:"mean_gb"`
	SumGB  float64 `json:"sum_gb"`
}

// PatternBreakdowns groups the filtered set by extracted features. The
// baseline/target maps are populated only when a split was requested.
type PatternBreakdowns struct {
	BySourceTable         map[string]GroupStats `json:"by_source_table,omitempty"`
	ByEndDate             map[string]GroupStats `json:"by_end_date,omitempty"`
	BaselineBySourceTable map[string]GroupStats `json:"baseline_by_source_table,omitempty"`
	TargetBySourceTable   map[string]GroupStats `json:"target_by_source_table,omitempty"`
	BaselineByEndDate     map[string]GroupStats `json:"baseline_by_end_date,omitempty"`
	TargetByEndDate       map[string]GroupStats `json:"target_by_end_date,omitempty"`
}

// QueryComparison is the full result of the expensive-query operation.
type QueryComparison struct {
	QueryDetails []QueryDetail     `json:"query_details"`
	Statistics   ComparisonStats   `json:"statistics"`
	Patterns     PatternBreakdowns `json:"patterns"`
}
