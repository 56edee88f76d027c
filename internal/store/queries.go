package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"athenalens/internal/model"
)

const recordColumns = `query_execution_id, start_time, end_time, runtime_minutes,
	state, status_reason, data_scanned_bytes, cost, workgroup, database_name,
	engine_version, query_text`

// UpsertBatch inserts or updates records keyed by query execution id inside
// one transaction. Returns the number of records written.
func (s *Store) UpsertBatch(ctx context.Context, records []model.QueryRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO queries (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (query_execution_id) DO UPDATE SET
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			runtime_minutes = excluded.runtime_minutes,
			state = excluded.state,
			status_reason = excluded.status_reason,
			data_scanned_bytes = excluded.data_scanned_bytes,
			cost = excluded.cost,
			workgroup = excluded.workgroup,
			database_name = excluded.database_name,
			engine_version = excluded.engine_version,
			query_text = excluded.query_text`)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			r.ID, r.StartTime.UTC(), nullTime(r.EndTime), nullFloat(r.RuntimeMinutes),
			r.State, nullString(r.StatusReason), r.DataScannedBytes, nullFloat(r.Cost),
			r.Workgroup, nullString(r.Database), nullString(r.EngineVersion),
			// Postgres text columns reject NUL bytes.
			nullString(strings.ReplaceAll(r.QueryText, "\x00", "")),
		)
		if err != nil {
			return 0, fmt.Errorf("upsert query %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert: %w", err)
	}
	return len(records), nil
}

// QueryRange loads records whose start_time falls on the inclusive date
// range start..end, ordered by start time. workgroup narrows the result
// when non-empty.
func (s *Store) QueryRange(ctx context.Context, start, end time.Time, workgroup string) ([]model.QueryRecord, error) {
	q := `SELECT ` + recordColumns + ` FROM queries
		WHERE start_time >= $1 AND start_time < $2`
	args := []any{start.UTC(), end.UTC().Add(24 * time.Hour)}
	if workgroup != "" {
		q += ` AND workgroup = $3`
		args = append(args, workgroup)
	}
	q += ` ORDER BY start_time`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query range: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanRecords(rows)
}

// ExpensiveQueries returns the top records by scanned bytes in the inclusive
// date range.
func (s *Store) ExpensiveQueries(ctx context.Context, start, end time.Time, limit int) ([]model.QueryRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM queries
		WHERE start_time >= $1 AND start_time < $2 AND state = $3
		ORDER BY data_scanned_bytes DESC
		LIMIT $4`,
		start.UTC(), end.UTC().Add(24*time.Hour), model.StateSucceeded, limit)
	if err != nil {
		return nil, fmt.Errorf("expensive queries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanRecords(rows)
}

// DeleteRange removes records whose start_time falls on the inclusive date
// range and reports how many were deleted.
func (s *Store) DeleteRange(ctx context.Context, start, end time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM queries WHERE start_time >= $1 AND start_time < $2`,
		start.UTC(), end.UTC().Add(24*time.Hour))
	if err != nil {
		return 0, fmt.Errorf("delete range: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the total number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM queries`).Scan(&n)
	return n, err
}

// Workgroups lists the distinct workgroups present in the store.
func (s *Store) Workgroups(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT workgroup FROM queries ORDER BY workgroup`)
	if err != nil {
		return nil, fmt.Errorf("workgroups: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var wg string
		if err := rows.Scan(&wg); err != nil {
			return nil, err
		}
		out = append(out, wg)
	}
	return out, rows.Err()
}

// DateRange reports the earliest and latest start times in the store. ok is
// false when the store is empty.
func (s *Store) DateRange(ctx context.Context) (min, max time.Time, ok bool, err error) {
	var minT, maxT sql.NullTime
	err = s.db.QueryRowContext(ctx,
		`SELECT MIN(start_time), MAX(start_time) FROM queries`).Scan(&minT, &maxT)
	if err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("date range: %w", err)
	}
	if !minT.Valid || !maxT.Valid {
		return time.Time{}, time.Time{}, false, nil
	}
	return minT.Time.UTC(), maxT.Time.UTC(), true, nil
}

// Stats summarizes the whole store for the dashboard.
type Stats struct {
	TotalQueries     int     `json:"total_queries"`
	SucceededQueries int     `json:"succeeded_queries"`
	FailedQueries    int     `json:"failed_queries"`
	TotalGB          float64 `json:"total_data_scanned_gb"`
	TotalCost        float64 `json:"total_cost_usd"`
	Workgroups       int     `json:"workgroups"`
}

// DashboardStats computes aggregate counters over all stored records.
func (s *Store) DashboardStats(ctx context.Context) (*Stats, error) {
	var st Stats
	var totalBytes sql.NullInt64
	var totalCost sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `SELECT
			COUNT(*),
			COUNT(CASE WHEN state = 'SUCCEEDED' THEN 1 END),
			COUNT(CASE WHEN state = 'FAILED' THEN 1 END),
			SUM(data_scanned_bytes),
			SUM(cost),
			COUNT(DISTINCT workgroup)
		FROM queries`).Scan(
		&st.TotalQueries, &st.SucceededQueries, &st.FailedQueries,
		&totalBytes, &totalCost, &st.Workgroups)
	if err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	st.TotalGB = float64(totalBytes.Int64) / (1 << 30)
	st.TotalCost = totalCost.Float64
	return &st, nil
}

// DailyWorkgroupStats is one day-and-workgroup bucket of the dashboard
// rollup.
type DailyWorkgroupStats struct {
	Date       string  `json:"date"`
	Workgroup  string  `json:"workgroup"`
	QueryCount int     `json:"query_count"`
	TotalGB    float64 `json:"total_gb"`
	TotalCost  float64 `json:"total_cost_usd"`
}

// DailyRollup aggregates SUCCEEDED records per day and workgroup over the
// trailing window. Grouping happens in Go to keep the SQL portable across
// both drivers.
func (s *Store) DailyRollup(ctx context.Context, days int) ([]DailyWorkgroupStats, error) {
	if days <= 0 {
		days = 30
	}
	since := model.DateOf(time.Now()).AddDate(0, 0, -days)

	rows, err := s.db.QueryContext(ctx, `SELECT start_time, workgroup, data_scanned_bytes, cost
		FROM queries WHERE start_time >= $1 AND state = $2`,
		since, model.StateSucceeded)
	if err != nil {
		return nil, fmt.Errorf("daily rollup: %w", err)
	}
	defer func() { _ = rows.Close() }()

	type key struct {
		date      string
		workgroup string
	}
	buckets := make(map[key]*DailyWorkgroupStats)
	for rows.Next() {
		var start time.Time
		var workgroup string
		var bytes int64
		var cost sql.NullFloat64
		if err := rows.Scan(&start, &workgroup, &bytes, &cost); err != nil {
			return nil, err
		}
		k := key{model.FormatDate(model.DateOf(start)), workgroup}
		b := buckets[k]
		if b == nil {
			b = &DailyWorkgroupStats{Date: k.date, Workgroup: k.workgroup}
			buckets[k] = b
		}
		b.QueryCount++
		b.TotalGB += float64(bytes) / (1 << 30)
		b.TotalCost += cost.Float64
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]DailyWorkgroupStats, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Workgroup < out[j].Workgroup
	})
	return out, nil
}

func scanRecords(rows *sql.Rows) ([]model.QueryRecord, error) {
	var out []model.QueryRecord
	for rows.Next() {
		var r model.QueryRecord
		var endTime sql.NullTime
		var runtime, cost sql.NullFloat64
		var statusReason, database, engineVersion, queryText sql.NullString

		err := rows.Scan(&r.ID, &r.StartTime, &endTime, &runtime,
			&r.State, &statusReason, &r.DataScannedBytes, &cost,
			&r.Workgroup, &database, &engineVersion, &queryText)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		r.StartTime = r.StartTime.UTC()
		if endTime.Valid {
			t := endTime.Time.UTC()
			r.EndTime = &t
		}
		if runtime.Valid {
			v := runtime.Float64
			r.RuntimeMinutes = &v
		}
		if cost.Valid {
			v := cost.Float64
			r.Cost = &v
		}
		r.StatusReason = statusReason.String
		r.Database = database.String
		r.EngineVersion = engineVersion.String
		r.QueryText = queryText.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
