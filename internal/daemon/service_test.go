package daemon

import (
	"context"
	"testing"
	"time"

	"athenalens/internal/athena"
	"athenalens/internal/model"
)

type fakeFetcher struct {
	workgroups []string
	records    []model.QueryRecord
	listCalls  int
	gotStart   time.Time
	gotEnd     time.Time
	gotGroups  []string
	err        error
}

func (f *fakeFetcher) ListWorkgroups(context.Context) ([]string, error) {
	f.listCalls++
	return f.workgroups, nil
}

func (f *fakeFetcher) FetchRange(_ context.Context, workgroups []string, start, end time.Time, _ func(athena.Progress)) ([]model.QueryRecord, error) {
	f.gotGroups = workgroups
	f.gotStart = start
	f.gotEnd = end
	return f.records, f.err
}

type fakeSink struct {
	stored int
}

func (s *fakeSink) UpsertBatch(_ context.Context, records []model.QueryRecord) (int, error) {
	s.stored += len(records)
	return len(records), nil
}

func TestRunOnceFetchesLookbackWindow(t *testing.T) {
	fetcher := &fakeFetcher{records: []model.QueryRecord{{ID: "q1"}, {ID: "q2"}}}
	sink := &fakeSink{}

	svc := New(Config{Workgroups: []string{"primary"}, LookbackDays: 3}, fetcher, sink)
	now := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	wantStart := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	if !fetcher.gotStart.Equal(wantStart) || !fetcher.gotEnd.Equal(wantEnd) {
		t.Errorf("window = %v..%v, want %v..%v",
			fetcher.gotStart, fetcher.gotEnd, wantStart, wantEnd)
	}
	if fetcher.listCalls != 0 {
		t.Error("should not list workgroups when configured explicitly")
	}
	if sink.stored != 2 {
		t.Errorf("stored = %d, want 2", sink.stored)
	}

	st := svc.Status()
	if st.RunCount != 1 || st.LastStored != 2 || st.LastError != "" {
		t.Errorf("status = %+v", st)
	}
}

func TestRunOnceDiscoversWorkgroups(t *testing.T) {
	fetcher := &fakeFetcher{workgroups: []string{"etl", "adhoc"}}
	svc := New(Config{}, fetcher, &fakeSink{})
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC) }

	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if fetcher.listCalls != 1 {
		t.Errorf("listCalls = %d, want 1", fetcher.listCalls)
	}
	if len(fetcher.gotGroups) != 2 {
		t.Errorf("gotGroups = %v", fetcher.gotGroups)
	}
}

func TestRunOnceRecordsError(t *testing.T) {
	fetcher := &fakeFetcher{err: context.DeadlineExceeded}
	svc := New(Config{Workgroups: []string{"primary"}}, fetcher, &fakeSink{})

	if err := svc.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if svc.Status().LastError == "" {
		t.Error("LastError not recorded")
	}
}

func TestScheduleDefaults(t *testing.T) {
	if got := (Config{}).schedule(); got != "0 2 * * *" {
		t.Errorf("default schedule = %q", got)
	}
	if got := (Config{LookbackDays: -1}).lookback(); got != 2 {
		t.Errorf("default lookback = %d", got)
	}
}
