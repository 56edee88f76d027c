package csvio

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"athenalens/internal/model"
)

func TestWriteReadRoundTrip(t *testing.T) {
	start := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	end := start.Add(2 * time.Minute)
	runtime := 2.0
	bytesScanned := int64(10 * (1 << 30))

	records := []model.QueryRecord{
		{
			ID:               "abc-123",
			StartTime:        start,
			EndTime:          &end,
			RuntimeMinutes:   &runtime,
			State:            model.StateSucceeded,
			DataScannedBytes: bytesScanned,
			Cost:             model.DeriveCost(bytesScanned),
			Workgroup:        "primary",
			Database:         "analytics_db",
			EngineVersion:    "Athena engine version 3",
			QueryText:        "SELECT a, b FROM orders_daily WHERE dt = '2024-01-15'",
		},
		{
			ID:        "def-456",
			StartTime: start.Add(time.Hour),
			State:     model.StateFailed,
			Workgroup: "etl",
		},
	}

	var buf bytes.Buffer
	if err := Write(&buf, records); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("read %d records, want 2", len(got))
	}

	r := got[0]
	if r.ID != "abc-123" || !r.StartTime.Equal(start) || r.DataScannedBytes != bytesScanned {
		t.Errorf("record = %+v", r)
	}
	if r.EndTime == nil || !r.EndTime.Equal(end) {
		t.Errorf("end time = %v, want %v", r.EndTime, end)
	}
	if r.RuntimeMinutes == nil || *r.RuntimeMinutes != runtime {
		t.Errorf("runtime = %v", r.RuntimeMinutes)
	}
	if r.Cost == nil {
		t.Error("cost should be derived from scanned bytes")
	}

	// Empty optional fields stay empty.
	if got[1].EndTime != nil || got[1].Cost != nil || got[1].RuntimeMinutes != nil {
		t.Errorf("optional fields should be nil: %+v", got[1])
	}
}

func TestReadRecomputesCost(t *testing.T) {
	// The cost column carries a stale value; the scanned bytes win.
	csvData := strings.Join(header, ",") + "\n" +
		`q1,2024-01-15 09:30:00,,,SUCCEEDED,,1000000000000,999.0,primary,analytics_db,,SELECT 1` + "\n"

	got, err := Read(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got[0].Cost == nil || *got[0].Cost != 5.0 {
		t.Errorf("cost = %v, want recomputed 5.0 per TB", got[0].Cost)
	}
}

func TestReadRejectsBadHeader(t *testing.T) {
	csvData := "id,start\nq1,2024-01-15 09:30:00\n"
	if _, err := Read(strings.NewReader(csvData)); err == nil {
		t.Fatal("expected header error")
	}
}

func TestReadRejectsBadTimestamp(t *testing.T) {
	csvData := strings.Join(header, ",") + "\n" +
		`q1,15/01/2024,,,SUCCEEDED,,0,,primary,,,SELECT 1` + "\n"
	if _, err := Read(strings.NewReader(csvData)); err == nil {
		t.Fatal("expected timestamp error")
	}
}
