// Package model defines the query-execution domain types shared across
// the store, analysis pipeline, and API layers.
package model

import "time"

// Query execution states as reported by Athena.
const (
	StateSucceeded = "SUCCEEDED"
	StateFailed    = "FAILED"
	StateCancelled = "CANCELLED"
	StateRunning   = "RUNNING"
	StateQueued    = "QUEUED"
)

const (
	bytesPerGB = float64(1 << 30)

	// Athena bills $5 per TB (10^12 bytes, decimal) scanned.
	costBytesPerTB = 1e12
	costPerTBUSD   = 5.0
)

// QueryRecord is one Athena query execution as stored in the queries table.
type QueryRecord struct {
	ID               string     `json:"query_execution_id"`
	StartTime        time.Time  `json:"start_time"`
	EndTime          *time.Time `json:"end_time,omitempty"`
	RuntimeMinutes   *float64   `json:"runtime_minutes,omitempty"`
	State            string     `json:"state"`
	StatusReason     string     `json:"status_reason,omitempty"`
	DataScannedBytes int64      `json:"data_scanned_bytes"`
	Cost             *float64   `json:"cost,omitempty"`
	Workgroup        string     `json:"workgroup,omitempty"`
	Database         string     `json:"database,omitempty"`
	EngineVersion    string     `json:"engine_version,omitempty"`
	QueryText        string     `json:"query_text,omitempty"`
}

// DeriveCost returns the Athena cost in USD for the given scanned bytes.
// Returns nil when nothing was scanned; the cost column is a pure
// derivation and is recomputed on every ingest.
func DeriveCost(scannedBytes int64) *float64 {
	if scannedBytes <= 0 {
		return nil
	}
	c := float64(scannedBytes) / costBytesPerTB * costPerTBUSD
	return &c
}

// GB returns the scanned volume in GiB.
func (r QueryRecord) GB() float64 {
	return float64(r.DataScannedBytes) / bytesPerGB
}

// Date returns the calendar date of the record's start time, at midnight UTC.
// Range membership throughout the analysis layer is decided on this value,
// not the full timestamp.
func (r QueryRecord) Date() time.Time {
	return DateOf(r.StartTime)
}

// DateOf truncates a timestamp to its calendar date at midnight UTC.
func DateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
