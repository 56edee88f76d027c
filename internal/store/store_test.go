package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"athenalens/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "queries.db")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func storeRecord(t *testing.T, id, date string, gb float64, workgroup string) model.QueryRecord {
	t.Helper()
	day, err := model.ParseDate(date)
	if err != nil {
		t.Fatalf("bad test date %q: %v", date, err)
	}
	start := day.Add(10 * time.Hour)
	end := start.Add(3 * time.Minute)
	bytes := int64(gb * (1 << 30))
	return model.QueryRecord{
		ID:               id,
		StartTime:        start,
		EndTime:          &end,
		State:            model.StateSucceeded,
		DataScannedBytes: bytes,
		Cost:             model.DeriveCost(bytes),
		Workgroup:        workgroup,
		QueryText:        "SELECT * FROM orders_daily",
	}
}

func TestUpsertBatchAndQueryRange(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	records := []model.QueryRecord{
		storeRecord(t, "q2", "2024-01-02", 2, "primary"),
		storeRecord(t, "q1", "2024-01-01", 1, "primary"),
		storeRecord(t, "q3", "2024-01-03", 3, "etl"),
	}
	n, err := s.UpsertBatch(ctx, records)
	if err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}
	if n != 3 {
		t.Errorf("upserted = %d, want 3", n)
	}

	start, _ := model.ParseDate("2024-01-01")
	end, _ := model.ParseDate("2024-01-03")

	got, err := s.QueryRange(ctx, start, end, "")
	if err != nil {
		t.Fatalf("QueryRange: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("loaded %d records, want 3", len(got))
	}
	for i, want := range []string{"q1", "q2", "q3"} {
		if got[i].ID != want {
			t.Errorf("got[%d] = %q, want %q (start time order)", i, got[i].ID, want)
		}
	}
	if got[0].EndTime == nil || got[0].Cost == nil {
		t.Errorf("nullable fields lost on round trip: %+v", got[0])
	}

	filtered, err := s.QueryRange(ctx, start, end, "etl")
	if err != nil {
		t.Fatalf("QueryRange(etl): %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != "q3" {
		t.Errorf("workgroup filter = %+v, want only q3", filtered)
	}
}

func TestUpsertBatchOverwrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	r := storeRecord(t, "q1", "2024-01-01", 1, "primary")
	if _, err := s.UpsertBatch(ctx, []model.QueryRecord{r}); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}

	r.State = model.StateFailed
	r.StatusReason = "HIVE_CURSOR_ERROR"
	if _, err := s.UpsertBatch(ctx, []model.QueryRecord{r}); err != nil {
		t.Fatalf("UpsertBatch update: %v", err)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 after re-upsert", count)
	}

	start, _ := model.ParseDate("2024-01-01")
	got, err := s.QueryRange(ctx, start, start, "")
	if err != nil {
		t.Fatalf("QueryRange: %v", err)
	}
	if got[0].State != model.StateFailed || got[0].StatusReason != "HIVE_CURSOR_ERROR" {
		t.Errorf("record not updated: %+v", got[0])
	}
}

func TestExpensiveQueries(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	failed := storeRecord(t, "f1", "2024-01-01", 100, "primary")
	failed.State = model.StateFailed
	records := []model.QueryRecord{
		storeRecord(t, "small", "2024-01-01", 1, "primary"),
		storeRecord(t, "big", "2024-01-01", 50, "primary"),
		storeRecord(t, "medium", "2024-01-01", 10, "primary"),
		failed,
	}
	if _, err := s.UpsertBatch(ctx, records); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}

	start, _ := model.ParseDate("2024-01-01")
	got, err := s.ExpensiveQueries(ctx, start, start, 2)
	if err != nil {
		t.Fatalf("ExpensiveQueries: %v", err)
	}
	if len(got) != 2 || got[0].ID != "big" || got[1].ID != "medium" {
		t.Errorf("expensive = %+v, want big then medium", got)
	}
}

func TestDateRangeAndStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, _, ok, err := s.DateRange(ctx); err != nil || ok {
		t.Fatalf("empty store DateRange = ok=%v err=%v, want ok=false", ok, err)
	}

	failed := storeRecord(t, "f1", "2024-01-05", 4, "etl")
	failed.State = model.StateFailed
	records := []model.QueryRecord{
		storeRecord(t, "q1", "2024-01-01", 1, "primary"),
		failed,
	}
	if _, err := s.UpsertBatch(ctx, records); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}

	min, max, ok, err := s.DateRange(ctx)
	if err != nil || !ok {
		t.Fatalf("DateRange: ok=%v err=%v", ok, err)
	}
	if model.FormatDate(min) != "2024-01-01" || model.FormatDate(max) != "2024-01-05" {
		t.Errorf("date range = %s..%s", model.FormatDate(min), model.FormatDate(max))
	}

	stats, err := s.DashboardStats(ctx)
	if err != nil {
		t.Fatalf("DashboardStats: %v", err)
	}
	if stats.TotalQueries != 2 || stats.SucceededQueries != 1 || stats.FailedQueries != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Workgroups != 2 {
		t.Errorf("workgroups = %d, want 2", stats.Workgroups)
	}

	wgs, err := s.Workgroups(ctx)
	if err != nil {
		t.Fatalf("Workgroups: %v", err)
	}
	if len(wgs) != 2 || wgs[0] != "etl" || wgs[1] != "primary" {
		t.Errorf("workgroups = %v", wgs)
	}
}

func TestDailyRollup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	yesterday := model.FormatDate(time.Now().UTC().AddDate(0, 0, -1))
	twoDaysAgo := model.FormatDate(time.Now().UTC().AddDate(0, 0, -2))
	failed := storeRecord(t, "f1", yesterday, 100, "primary")
	failed.State = model.StateFailed
	records := []model.QueryRecord{
		storeRecord(t, "q1", twoDaysAgo, 1, "primary"),
		storeRecord(t, "q2", yesterday, 2, "primary"),
		storeRecord(t, "q3", yesterday, 3, "primary"),
		storeRecord(t, "q4", yesterday, 4, "etl"),
		failed,
	}
	if _, err := s.UpsertBatch(ctx, records); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}

	rollup, err := s.DailyRollup(ctx, 7)
	if err != nil {
		t.Fatalf("DailyRollup: %v", err)
	}
	if len(rollup) != 3 {
		t.Fatalf("buckets = %d, want 3: %+v", len(rollup), rollup)
	}
	// Sorted by date then workgroup.
	if rollup[0].Date != twoDaysAgo || rollup[1].Workgroup != "etl" {
		t.Errorf("ordering = %+v", rollup)
	}
	for _, b := range rollup {
		if b.Date == yesterday && b.Workgroup == "primary" {
			if b.QueryCount != 2 || b.TotalGB < 4.9 || b.TotalGB > 5.1 {
				t.Errorf("primary bucket = %+v", b)
			}
		}
	}
}

func TestDeleteRange(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	records := []model.QueryRecord{
		storeRecord(t, "q1", "2024-01-01", 1, "primary"),
		storeRecord(t, "q2", "2024-01-02", 1, "primary"),
		storeRecord(t, "q3", "2024-01-05", 1, "primary"),
	}
	if _, err := s.UpsertBatch(ctx, records); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}

	start, _ := model.ParseDate("2024-01-01")
	end, _ := model.ParseDate("2024-01-02")
	deleted, err := s.DeleteRange(ctx, start, end)
	if err != nil {
		t.Fatalf("DeleteRange: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}
