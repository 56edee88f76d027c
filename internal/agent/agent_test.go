package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"athenalens/internal/analysis"
	"athenalens/internal/model"
)

type fakeSource struct {
	records []model.QueryRecord
}

func (f *fakeSource) QueryRange(_ context.Context, start, end time.Time, workgroup string) ([]model.QueryRecord, error) {
	endExclusive := end.Add(24 * time.Hour)
	var out []model.QueryRecord
	for _, r := range f.records {
		if r.StartTime.Before(start) || !r.StartTime.Before(endExclusive) {
			continue
		}
		if workgroup != "" && r.Workgroup != workgroup {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func sourceRecord(t *testing.T, id, date string, gb float64) model.QueryRecord {
	t.Helper()
	day, err := model.ParseDate(date)
	if err != nil {
		t.Fatalf("bad date %q: %v", date, err)
	}
	return model.QueryRecord{
		ID:               id,
		StartTime:        day.Add(8 * time.Hour),
		State:            model.StateSucceeded,
		DataScannedBytes: int64(gb * (1 << 30)),
		Workgroup:        "primary",
		QueryText:        "SELECT * FROM orders_daily",
	}
}

func testToolset(t *testing.T, records ...model.QueryRecord) *Toolset {
	t.Helper()
	return NewToolset(&fakeSource{records: records}, analysis.DefaultOptions(), t.TempDir())
}

func TestRelativeDateRange(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		text      string
		wantStart string
		wantOK    bool
	}{
		{"show me the last 7 days", "2024-03-08", true},
		{"costs went up in the past week", "2024-03-08", true},
		{"analyze the last 14 days", "2024-03-01", true},
		{"what happened last month", "2024-02-14", true},
		{"from 2024-01-01 to 2024-01-31", "", false},
	}
	for _, tc := range cases {
		start, end, ok := relativeDateRange(tc.text, now)
		if ok != tc.wantOK {
			t.Errorf("%q: ok = %v, want %v", tc.text, ok, tc.wantOK)
			continue
		}
		if !ok {
			continue
		}
		if start != tc.wantStart || end != "2024-03-15" {
			t.Errorf("%q: range = %s..%s, want %s..2024-03-15", tc.text, start, end, tc.wantStart)
		}
	}
}

func TestCallToolAnalyze(t *testing.T) {
	tools := testToolset(t,
		sourceRecord(t, "b1", "2024-01-01", 10),
		sourceRecord(t, "s1", "2024-01-08", 25),
	)

	input, _ := json.Marshal(map[string]string{
		"baseline_start": "2024-01-01",
		"baseline_end":   "2024-01-01",
		"spike_start":    "2024-01-08",
		"spike_end":      "2024-01-08",
	})
	out, err := tools.CallTool(context.Background(), toolAnalyzeCost, input)
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !strings.Contains(out, "Cost Analysis Results") || !strings.Contains(out, "150.0%") {
		t.Errorf("summary = %q", out)
	}
}

func TestCallToolReportsOperationErrors(t *testing.T) {
	tools := testToolset(t)

	input, _ := json.Marshal(map[string]string{
		"start_date": "2024-01-01",
		"end_date":   "2024-01-07",
	})
	out, err := tools.CallTool(context.Background(), toolCompareCostly, input)
	if err != nil {
		t.Fatalf("operation failures should come back as text, got error %v", err)
	}
	if !strings.HasPrefix(out, "Error:") {
		t.Errorf("result = %q, want an Error: message", out)
	}
}

func TestCallToolUnknown(t *testing.T) {
	tools := testToolset(t)
	if _, err := tools.CallTool(context.Background(), "bogus", nil); err == nil {
		t.Fatal("expected error for unknown tool")
	}
}

func TestFallbackGreeting(t *testing.T) {
	a := New(testToolset(t), nil)
	reply, err := a.Chat(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if !strings.Contains(reply, "Athena") {
		t.Errorf("greeting = %q", reply)
	}
}

func TestFallbackRunsComparison(t *testing.T) {
	a := New(testToolset(t,
		sourceRecord(t, "q1", "2024-01-05", 10),
		sourceRecord(t, "q2", "2024-01-06", 20),
	), nil)

	reply, err := a.Chat(context.Background(), "compare expensive queries from 2024-01-01 to 2024-01-07", nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if !strings.Contains(reply, "Query Comparison Results") {
		t.Errorf("reply = %q, want tool output", reply)
	}
}

func TestFallbackAsksForDates(t *testing.T) {
	a := New(testToolset(t), nil)
	reply, err := a.Chat(context.Background(), "compare expensive queries", nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if !strings.Contains(reply, "date range") {
		t.Errorf("reply = %q, want a clarifying question", reply)
	}
}

func TestChatToolUseLoop(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req struct {
			Messages []json.RawMessage `json:"messages"`
			Tools    []json.RawMessage `json:"tools"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		if calls == 1 {
			if len(req.Tools) != 3 {
				t.Errorf("first call carried %d tools, want 3", len(req.Tools))
			}
			_, _ = w.Write([]byte(`{"content":[{"type":"tool_use","id":"t1","name":"compare_expensive_queries",
				"input":{"start_date":"2024-01-01","end_date":"2024-01-07"}}],"stop_reason":"tool_use"}`))
			return
		}
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Your biggest query scanned 20 GB."}],"stop_reason":"end_turn"}`))
	}))
	defer srv.Close()

	client := NewAnthropicClient("test-key", "", srv.URL)
	a := New(testToolset(t,
		sourceRecord(t, "q1", "2024-01-05", 20),
	), client)

	reply, err := a.Chat(context.Background(), "what was my biggest query last week?", nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if calls != 2 {
		t.Errorf("api calls = %d, want tool round trip of 2", calls)
	}
	if reply != "Your biggest query scanned 20 GB." {
		t.Errorf("reply = %q", reply)
	}
}
