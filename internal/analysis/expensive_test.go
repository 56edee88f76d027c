package analysis

import (
	"errors"
	"testing"

	"athenalens/internal/model"
)

func TestCompareExpensiveQueriesRanking(t *testing.T) {
	records := []model.QueryRecord{
		testRecord(t, "small", "2024-01-01", 1),
		testRecord(t, "big", "2024-01-02", 50),
		testRecord(t, "medium", "2024-01-03", 10),
	}
	p := ComparisonParams{StartDate: "2024-01-01", EndDate: "2024-01-07"}

	result, err := CompareExpensiveQueries(records, p, DefaultOptions())
	if err != nil {
		t.Fatalf("CompareExpensiveQueries: %v", err)
	}

	if len(result.QueryDetails) != 3 {
		t.Fatalf("details = %d, want 3", len(result.QueryDetails))
	}
	wantOrder := []string{"big", "medium", "small"}
	for i, want := range wantOrder {
		if result.QueryDetails[i].QueryID != want {
			t.Errorf("details[%d] = %q, want %q", i, result.QueryDetails[i].QueryID, want)
		}
	}

	s := result.Statistics
	if s.TotalQueries != 3 {
		t.Errorf("total queries = %d, want 3", s.TotalQueries)
	}
	if !approxEqual(s.TotalGB, 61) || !approxEqual(s.MaxGB, 50) || !approxEqual(s.MinGB, 1) {
		t.Errorf("stats = %+v", s)
	}
	if !approxEqual(s.MedianGB, 10) {
		t.Errorf("median = %v, want 10", s.MedianGB)
	}
}

func TestCompareExpensiveQueriesTopTenCap(t *testing.T) {
	var records []model.QueryRecord
	for i := 0; i < 15; i++ {
		records = append(records, testRecord(t, string(rune('a'+i)), "2024-01-01", float64(i+1)))
	}
	p := ComparisonParams{StartDate: "2024-01-01", EndDate: "2024-01-01"}

	result, err := CompareExpensiveQueries(records, p, DefaultOptions())
	if err != nil {
		t.Fatalf("CompareExpensiveQueries: %v", err)
	}
	if len(result.QueryDetails) != 10 {
		t.Errorf("details = %d, want 10", len(result.QueryDetails))
	}
	if result.Statistics.TotalQueries != 15 {
		t.Errorf("statistics should cover all matches, got %d", result.Statistics.TotalQueries)
	}
}

func TestCompareExpensiveQueriesQueryIDFilter(t *testing.T) {
	records := []model.QueryRecord{
		testRecord(t, "q1", "2024-01-01", 5),
		testRecord(t, "q2", "2024-01-01", 50),
	}
	p := ComparisonParams{StartDate: "2024-01-01", EndDate: "2024-01-01", QueryID: "q1"}

	result, err := CompareExpensiveQueries(records, p, DefaultOptions())
	if err != nil {
		t.Fatalf("CompareExpensiveQueries: %v", err)
	}
	if len(result.QueryDetails) != 1 || result.QueryDetails[0].QueryID != "q1" {
		t.Errorf("details = %+v, want only q1", result.QueryDetails)
	}
	if result.Statistics.TotalQueries != 1 {
		t.Errorf("statistics total = %d, want 1", result.Statistics.TotalQueries)
	}
}

func TestCompareExpensiveQueriesQueryIDNotFound(t *testing.T) {
	records := []model.QueryRecord{testRecord(t, "q1", "2024-01-01", 5)}
	p := ComparisonParams{StartDate: "2024-01-01", EndDate: "2024-01-01", QueryID: "missing"}

	_, err := CompareExpensiveQueries(records, p, DefaultOptions())
	if !errors.Is(err, ErrNoData) {
		t.Errorf("err = %v, want ErrNoData", err)
	}
}

func TestCompareExpensiveQueriesPatternFilter(t *testing.T) {
	events := testRecord(t, "ev", "2024-01-01", 5)
	events.QueryText = "SELECT * FROM analytics.events WHERE day = DATE('2024-01-01')"
	orders := testRecord(t, "ord", "2024-01-01", 5)

	p := ComparisonParams{StartDate: "2024-01-01", EndDate: "2024-01-01", QueryPattern: "ANALYTICS.EVENTS"}

	result, err := CompareExpensiveQueries([]model.QueryRecord{events, orders}, p, DefaultOptions())
	if err != nil {
		t.Fatalf("CompareExpensiveQueries: %v", err)
	}
	if result.Statistics.TotalQueries != 1 || result.QueryDetails[0].QueryID != "ev" {
		t.Errorf("pattern filter should match case-insensitively, got %+v", result.QueryDetails)
	}
}

func TestCompareExpensiveQueriesBaselineTargetSplit(t *testing.T) {
	records := []model.QueryRecord{
		testRecord(t, "b1", "2024-01-01", 10),
		testRecord(t, "b2", "2024-01-02", 10),
		testRecord(t, "t1", "2024-01-08", 25),
	}
	p := ComparisonParams{
		StartDate: "2024-01-01", EndDate: "2024-01-08",
		BaselineStart: "2024-01-01", BaselineEnd: "2024-01-02",
		TargetDate: "2024-01-08",
	}

	result, err := CompareExpensiveQueries(records, p, DefaultOptions())
	if err != nil {
		t.Fatalf("CompareExpensiveQueries: %v", err)
	}

	s := result.Statistics
	if s.Baseline == nil || s.Target == nil {
		t.Fatalf("expected baseline and target stats, got %+v", s)
	}
	if s.Baseline.TotalQueries != 2 || !approxEqual(s.Baseline.AvgGB, 10) {
		t.Errorf("baseline = %+v", s.Baseline)
	}
	if s.Target.TotalQueries != 1 || !approxEqual(s.Target.AvgGB, 25) {
		t.Errorf("target = %+v", s.Target)
	}
	if s.AvgChangePct == nil || !approxEqual(*s.AvgChangePct, 150.0) {
		t.Errorf("avg change pct = %v, want 150.0", s.AvgChangePct)
	}
	if len(result.Patterns.BaselineBySourceTable) == 0 || len(result.Patterns.TargetBySourceTable) == 0 {
		t.Errorf("split breakdowns missing: %+v", result.Patterns)
	}
}

func TestCompareExpensiveQueriesSplitWithEmptyTarget(t *testing.T) {
	records := []model.QueryRecord{
		testRecord(t, "b1", "2024-01-01", 10),
	}
	p := ComparisonParams{
		StartDate: "2024-01-01", EndDate: "2024-01-08",
		BaselineStart: "2024-01-01", BaselineEnd: "2024-01-02",
		TargetDate: "2024-01-08",
	}

	result, err := CompareExpensiveQueries(records, p, DefaultOptions())
	if err != nil {
		t.Fatalf("CompareExpensiveQueries: %v", err)
	}
	if result.Statistics.Baseline != nil || result.Statistics.Target != nil {
		t.Errorf("split stats should be omitted when a sub-range is empty, got %+v", result.Statistics)
	}
}

func TestCompareExpensiveQueriesBreakdowns(t *testing.T) {
	known := testRecord(t, "k", "2024-01-01", 8)
	known.QueryText = "SELECT * FROM parquet_dmp_raw_v3 WHERE day BETWEEN DATE('2024-01-01') AND DATE('2024-01-05')"
	unknown := testRecord(t, "u", "2024-01-01", 2)
	unknown.QueryText = "SELECT 1"

	p := ComparisonParams{StartDate: "2024-01-01", EndDate: "2024-01-01"}

	result, err := CompareExpensiveQueries([]model.QueryRecord{known, unknown}, p, DefaultOptions())
	if err != nil {
		t.Fatalf("CompareExpensiveQueries: %v", err)
	}

	bySource := result.Patterns.BySourceTable
	g, ok := bySource["parquet_dmp_raw_v3"]
	if !ok {
		t.Fatalf("by_source_table = %+v, want parquet_dmp_raw_v3 bucket", bySource)
	}
	if g.Count != 1 || !approxEqual(g.SumGB, 8) || !approxEqual(g.MeanGB, 8) {
		t.Errorf("source bucket = %+v", g)
	}
	if u, ok := bySource["unknown"]; !ok || u.Count != 1 {
		t.Errorf("featureless queries should land in the unknown bucket, got %+v", bySource)
	}

	byEnd := result.Patterns.ByEndDate
	if g, ok := byEnd["2024-01-05"]; !ok || g.Count != 1 {
		t.Errorf("by_end_date = %+v, want 2024-01-05 bucket", byEnd)
	}
}

func TestCompareExpensiveQueriesMissingDates(t *testing.T) {
	records := []model.QueryRecord{testRecord(t, "q1", "2024-01-01", 5)}

	for _, p := range []ComparisonParams{
		{EndDate: "2024-01-01"},
		{StartDate: "2024-01-01"},
	} {
		_, err := CompareExpensiveQueries(records, p, DefaultOptions())
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("params %+v: err = %v, want ValidationError", p, err)
		}
	}
}
