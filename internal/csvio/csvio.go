// Package csvio reads and writes query record snapshots as CSV, using the
// same column layout as the queries table.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"athenalens/internal/model"
)

var header = []string{
	"query_execution_id", "start_time", "end_time", "runtime_minutes",
	"state", "status_reason", "data_scanned_bytes", "cost",
	"workgroup", "database", "engine_version", "query_text",
}

const timeLayout = "2006-01-02 15:04:05"

// Write serializes records to w with a header row.
func Write(w io.Writer, records []model.QueryRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, r := range records {
		row := []string{
			r.ID,
			r.StartTime.UTC().Format(timeLayout),
			formatTime(r.EndTime),
			formatFloat(r.RuntimeMinutes),
			r.State,
			r.StatusReason,
			strconv.FormatInt(r.DataScannedBytes, 10),
			formatFloat(r.Cost),
			r.Workgroup,
			r.Database,
			r.EngineVersion,
			r.QueryText,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing record %s: %w", r.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFile writes records to the named file.
func WriteFile(path string, records []model.QueryRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating csv file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := Write(f, records); err != nil {
		return err
	}
	return f.Close()
}

// Read parses records from r. The first row must be a header; unknown
// columns cause an error. Cost is recomputed from scanned bytes so stale
// exported values cannot disagree with the pricing formula.
func Read(r io.Reader) ([]model.QueryRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	for i, col := range header {
		if head[i] != col {
			return nil, fmt.Errorf("unexpected csv column %d: got %q, want %q", i, head[i], col)
		}
	}

	var records []model.QueryRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv line %d: %w", line, err)
		}

		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadFile reads records from the named file.
func ReadFile(path string) ([]model.QueryRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening csv file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Read(f)
}

func parseRow(row []string) (model.QueryRecord, error) {
	var r model.QueryRecord
	r.ID = row[0]

	start, err := parseTime(row[1])
	if err != nil {
		return r, fmt.Errorf("start_time: %w", err)
	}
	if start == nil {
		return r, fmt.Errorf("start_time is required")
	}
	r.StartTime = *start

	if r.EndTime, err = parseTime(row[2]); err != nil {
		return r, fmt.Errorf("end_time: %w", err)
	}
	if r.RuntimeMinutes, err = parseFloat(row[3]); err != nil {
		return r, fmt.Errorf("runtime_minutes: %w", err)
	}

	r.State = row[4]
	r.StatusReason = row[5]

	if row[6] != "" {
		if r.DataScannedBytes, err = strconv.ParseInt(row[6], 10, 64); err != nil {
			return r, fmt.Errorf("data_scanned_bytes: %w", err)
		}
	}
	r.Cost = model.DeriveCost(r.DataScannedBytes)

	r.Workgroup = row[8]
	r.Database = row[9]
	r.EngineVersion = row[10]
	r.QueryText = row[11]
	return r, nil
}

func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{timeLayout, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized timestamp %q", s)
}

func parseFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
