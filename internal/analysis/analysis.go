// Package analysis implements the two cost-analysis operations over an
// in-memory snapshot of query records: baseline-vs-spike cost comparison
// and expensive-query ranking. Both are pure computations; loading the
// snapshot (store, CSV) is the caller's concern.
package analysis

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"athenalens/internal/model"
	"athenalens/internal/sqltext"
)

// ErrNoData marks a "good parameters, no data" failure: there was nothing
// in the requested range, or nothing survived the filters. Callers surface
// it to the user as an explanation, not a crash.
var ErrNoData = errors.New("no matching query records")

// ValidationError reports missing or malformed input parameters.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Options carries the tunable constants of both operations. The defaults
// are the values the heuristics were tuned with; they are configuration,
// not contract.
type Options struct {
	// TopQueries is the length of the most-expensive lists.
	TopQueries int
	// TopPatterns caps the per-pattern diff table, ranked by spike GB.
	TopPatterns int
	// DriftThresholdPct is the minimum |mean GB change| for a normalized
	// query shape to be reported as drift.
	DriftThresholdPct float64
	// Analyzer performs all text classification. Nil means the default
	// heuristic set.
	Analyzer *sqltext.Analyzer
}

// DefaultOptions returns the standard thresholds.
func DefaultOptions() Options {
	return Options{
		TopQueries:        10,
		TopPatterns:       15,
		DriftThresholdPct: 10,
		Analyzer:          sqltext.Default(),
	}
}

func (o Options) analyzer() *sqltext.Analyzer {
	if o.Analyzer != nil {
		return o.Analyzer
	}
	return sqltext.Default()
}

func (o Options) topQueries() int {
	if o.TopQueries > 0 {
		return o.TopQueries
	}
	return 10
}

func (o Options) topPatterns() int {
	if o.TopPatterns > 0 {
		return o.TopPatterns
	}
	return 15
}

func (o Options) driftThreshold() float64 {
	if o.DriftThresholdPct > 0 {
		return o.DriftThresholdPct
	}
	return 10
}

// parseDateParam validates one YYYY-MM-DD parameter and returns it as a
// midnight-UTC calendar date.
func parseDateParam(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, &ValidationError{Msg: fmt.Sprintf("%s is required (YYYY-MM-DD)", name)}
	}
	t, err := model.ParseDate(value)
	if err != nil {
		return time.Time{}, &ValidationError{Msg: fmt.Sprintf("invalid %s %q: expected YYYY-MM-DD", name, value)}
	}
	return model.DateOf(t), nil
}

// inRange reports whether a record's start date falls inside the inclusive
// calendar range.
func inRange(r model.QueryRecord, start, end time.Time) bool {
	d := r.Date()
	return !d.Before(start) && !d.After(end)
}

// rangeDays is the inclusive day count of a calendar range, guarded against
// inverted inputs.
func rangeDays(start, end time.Time) int {
	days := int(end.Sub(start).Hours()/24) + 1
	if days < 0 {
		return 0
	}
	return days
}

// succeededOnly filters to records eligible for GB/cost math. Failed and
// cancelled queries may report zero or partial scan bytes that would
// distort the numbers.
func succeededOnly(records []model.QueryRecord) []model.QueryRecord {
	out := make([]model.QueryRecord, 0, len(records))
	for _, r := range records {
		if r.State == model.StateSucceeded {
			out = append(out, r)
		}
	}
	return out
}

// filterWorkgroup narrows records to one workgroup; empty means all.
func filterWorkgroup(records []model.QueryRecord, workgroup string) []model.QueryRecord {
	if workgroup == "" {
		return records
	}
	var out []model.QueryRecord
	for _, r := range records {
		if r.Workgroup == workgroup {
			out = append(out, r)
		}
	}
	return out
}

// pctChange computes (current-base)/base*100, returning 0 when the baseline
// is zero.
func pctChange(base, current float64) float64 {
	if base <= 0 {
		return 0
	}
	return (current - base) / base * 100
}

// meanGB averages scanned GB over records; 0 for an empty slice.
func meanGB(records []model.QueryRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	var sum float64
	for _, r := range records {
		sum += r.GB()
	}
	return sum / float64(len(records))
}

// sumGB totals scanned GB over records.
func sumGB(records []model.QueryRecord) float64 {
	var sum float64
	for _, r := range records {
		sum += r.GB()
	}
	return sum
}

// medianOf computes the median of a value slice (mean of the middle two for
// even lengths). The slice is not modified.
func medianOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	s := make([]float64, len(values))
	copy(s, values)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

// sortByBytesDesc orders a copy of records by scanned bytes descending,
// breaking ties by id for stable output.
func sortByBytesDesc(records []model.QueryRecord) []model.QueryRecord {
	s := make([]model.QueryRecord, len(records))
	copy(s, records)
	sort.Slice(s, func(i, j int) bool {
		if s[i].DataScannedBytes != s[j].DataScannedBytes {
			return s[i].DataScannedBytes > s[j].DataScannedBytes
		}
		return s[i].ID < s[j].ID
	})
	return s
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
