package sqltext

import (
	"strings"
	"testing"

	"athenalens/internal/model"
)

func TestExtractPattern_Labels(t *testing.T) {
	a := Default()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"empty", "", "EMPTY"},
		{"unload", "UNLOAD (SELECT * FROM db.t) TO 's3://bucket/x'", "UNLOAD"},
		{"insert generic", "INSERT INTO warehouse.events SELECT * FROM raw.events", "INSERT/CREATE"},
		{"create table", "CREATE TABLE reports.daily AS SELECT 1", "INSERT/CREATE"},
		{"insert crm users", "INSERT INTO analytics.parquet__all_crm_users SELECT ...", "INSERT: parquet__all_crm_users"},
		{"insert has stream", "insert into analytics.parquet__has_stream select ...", "INSERT: parquet__has_stream"},
		{"select with table", "SELECT id FROM orders_daily WHERE dt = '2024-01-01'", "SELECT from ORDERS_DAILY"},
		{"select qualified", "select * from warehouse.orders o join x on o.id = x.id", "SELECT from WAREHOUSE.ORDERS"},
		{"select no from target", "SELECT 1 FROM ", "SELECT"},
		{"other", "SHOW TABLES", "OTHER"},
		{"garbage", "#!$%", "OTHER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.ExtractPattern(tt.text); got != tt.want {
				t.Errorf("ExtractPattern(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

// Pattern extraction is total: every input maps to exactly one label family.
func TestExtractPattern_Total(t *testing.T) {
	a := Default()
	inputs := []string{
		"", " ", "SELECT", "FROM", "select from", "DELETE FROM x.y",
		"INSERT", "UNLOAD", "CREATE TABLE t", "random words here",
		strings.Repeat("x", 10000),
	}
	for _, in := range inputs {
		label := a.ExtractPattern(in)
		switch {
		case label == "EMPTY", label == "UNLOAD", label == "INSERT/CREATE",
			label == "SELECT", label == "OTHER",
			strings.HasPrefix(label, "INSERT: "),
			strings.HasPrefix(label, "SELECT from "):
		default:
			t.Errorf("ExtractPattern(%q) = %q, not a known label", in, label)
		}
	}
}

func TestExtractPattern_InsertBeatsSelect(t *testing.T) {
	a := Default()
	// INSERT...SELECT is a write; the write target drives cost.
	got := a.ExtractPattern("INSERT INTO t SELECT * FROM big_table")
	if got != "INSERT/CREATE" {
		t.Errorf("INSERT...SELECT classified as %q, want INSERT/CREATE", got)
	}
}

func TestExtractFeatures_DateRange(t *testing.T) {
	a := Default()

	f := a.ExtractFeatures("SELECT * FROM t WHERE dt BETWEEN DATE('2024-03-01') AND DATE('2024-03-07')")
	if f.DateRange != "2024-03-01 to 2024-03-07" {
		t.Errorf("DateRange = %q", f.DateRange)
	}
	if f.StartDate != "2024-03-01" || f.EndDate != "2024-03-07" {
		t.Errorf("StartDate/EndDate = %q/%q", f.StartDate, f.EndDate)
	}

	single := a.ExtractFeatures("SELECT * FROM t WHERE dt = DATE('2024-03-01')")
	if single.DateRange != "2024-03-01" || single.EndDate != "2024-03-01" {
		t.Errorf("single date: DateRange=%q EndDate=%q", single.DateRange, single.EndDate)
	}
}

func TestExtractFeatures_Heuristics(t *testing.T) {
	a := Default()

	text := `SELECT user_id FROM distinct_users_with_publishers_daily
		CROSS JOIN UNNEST(set_publishers) AS t(pub)
		WHERE country LIKE '%US%' AND lower(publisher) IN ('a', 'b', 'c')`
	f := a.ExtractFeatures(text)

	if !f.HasCrossJoinUnnest || !f.UsesSetPublishers {
		t.Errorf("cross join unnest flags = %v/%v", f.HasCrossJoinUnnest, f.UsesSetPublishers)
	}
	if f.SourceTable != "distinct_users_with_publishers_daily" {
		t.Errorf("SourceTable = %q", f.SourceTable)
	}
	if f.CountryFilter != "US" {
		t.Errorf("CountryFilter = %q", f.CountryFilter)
	}
	if f.PublisherFilterType != "IN list" || f.PublisherCount != 3 {
		t.Errorf("publisher filter = %q count %d", f.PublisherFilterType, f.PublisherCount)
	}
	if f.QueryLength == 0 {
		t.Error("QueryLength not recorded")
	}
}

func TestExtractFeatures_ArraySplit(t *testing.T) {
	a := Default()
	f := a.ExtractFeatures("SELECT * FROM parquet_dmp_raw_v3 WHERE app IN (SELECT x FROM split(array_of_appids, ','))")
	if f.PublisherFilterType != "array/split" {
		t.Errorf("PublisherFilterType = %q, want array/split", f.PublisherFilterType)
	}
	if f.SourceTable != "parquet_dmp_raw_v3" {
		t.Errorf("SourceTable = %q", f.SourceTable)
	}
}

func TestExtractFeatures_Empty(t *testing.T) {
	f := Default().ExtractFeatures("")
	if f != (model.QueryFeatures{}) {
		t.Errorf("empty text should produce zero features, got %+v", f)
	}
}

func TestExtractFeatures_CustomHeuristics(t *testing.T) {
	a := New(Heuristics{
		InsertLabels: []InsertLabel{{Match: "my_table", Label: "INSERT: my_table"}},
		SourceTables: []string{"my_source"},
	})
	if got := a.ExtractPattern("INSERT INTO db.my_table SELECT 1"); got != "INSERT: my_table" {
		t.Errorf("custom insert label = %q", got)
	}
	if f := a.ExtractFeatures("SELECT * FROM my_source"); f.SourceTable != "my_source" {
		t.Errorf("custom source table = %q", f.SourceTable)
	}
}

func TestPrimaryDatabase(t *testing.T) {
	a := Default()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"from", "SELECT * FROM db1.table1", "db1"},
		{"from quoted", "SELECT * FROM `db1`.`table1`", "db1"},
		{"three part", "CREATE TABLE db1.schema1.table1 AS SELECT 1", "db1"},
		{"insert into", "INSERT INTO warehouse.events VALUES (1)", "warehouse"},
		{"external table", "CREATE EXTERNAL TABLE logs.raw (id int) STORED AS PARQUET", "logs"},
		{"join", "SELECT * FROM t LEFT JOIN refdata.countries c ON t.cc = c.cc", "refdata"},
		{"delete from", "DELETE FROM staging.tmp WHERE dt < DATE('2024-01-01')", "staging"},
		{"no qualified table", "SELECT * FROM orders", ""},
		{"empty", "", ""},
		{"numeric db rejected", "SELECT * FROM 123.456", ""},
		{"short alias rejected", "SELECT * FROM a.b", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.PrimaryDatabase(tt.text); got != tt.want {
				t.Errorf("PrimaryDatabase(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

// The extractor must never emit a stop-list keyword, a sub-2-char name, or a
// purely numeric token no matter what the regexes over-match.
func TestPrimaryDatabase_Filters(t *testing.T) {
	a := Default()
	inputs := []string{
		"SELECT * FROM (SELECT a.b FROM x) WHERE 1=1",
		"FROM SELECT.WHERE",
		"SELECT * FROM 99.bottles",
		"from as.df",
		"INSERT INTO values.thing SELECT 1",
	}
	for _, in := range inputs {
		got := a.PrimaryDatabase(in)
		if got == "" {
			continue
		}
		if len(got) < 2 {
			t.Errorf("PrimaryDatabase(%q) = %q: too short", in, got)
		}
		if isDigits(got) {
			t.Errorf("PrimaryDatabase(%q) = %q: numeric", in, got)
		}
		if _, kw := sqlKeywords[strings.ToUpper(got)]; kw {
			t.Errorf("PrimaryDatabase(%q) = %q: stop-list keyword", in, got)
		}
	}
}

func TestNormalize_MasksDates(t *testing.T) {
	a := Default()

	got := a.Normalize("SELECT * FROM t WHERE dt = DATE('2024-06-15') AND year = '2024' AND month = '6' AND day = '115'")
	want := "SELECT * FROM t WHERE dt = DATE('YYYY-MM-DD') AND year = 'YYYY' AND month = 'MM' AND day = 'DD'"
	if got != want {
		t.Errorf("Normalize = %q, want %q", got, want)
	}
}

func TestNormalize_SameQueryDifferentDates(t *testing.T) {
	a := Default()
	q1 := a.Normalize("SELECT count(*) FROM t WHERE dt BETWEEN DATE('2024-01-01') AND DATE('2024-01-07')")
	q2 := a.Normalize("SELECT count(*) FROM t WHERE dt BETWEEN DATE('2024-02-01') AND DATE('2024-02-07')")
	if q1 != q2 {
		t.Errorf("same query with different dates did not normalize to one key:\n%q\n%q", q1, q2)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	a := Default()
	inputs := []string{
		"",
		"SELECT 1",
		"SELECT * FROM t WHERE dt = DATE('2025-11-30') AND y = '2025' AND m = '11'",
		strings.Repeat("SELECT '2024' FROM t WHERE x = '7'; ", 40), // forces truncation
	}
	for _, in := range inputs {
		once := a.Normalize(in)
		twice := a.Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q:\nonce:  %q\ntwice: %q", in, once, twice)
		}
	}
}

func TestNormalize_Truncates(t *testing.T) {
	a := Default()
	long := strings.Repeat("a", 2000)
	if got := a.Normalize(long); len(got) != 500 {
		t.Errorf("len(Normalize(long)) = %d, want 500", len(got))
	}
}
