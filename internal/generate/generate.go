// Package generate produces synthetic query records for local development
// and for exercising the analysis pipeline without AWS access.
package generate

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"athenalens/internal/model"
)

var workgroups = []string{
	"primary", "analytics", "reporting", "etl", "dashboard",
	"ad-hoc", "data-science", "ml-training", "marketing-campaigns",
}

var tables = []string{
	"users_raw", "users_processed", "orders_daily", "orders_historical",
	"products_catalog", "clickstream_logs", "app_impressions", "transactions_ledger",
	"system_logs", "inventory_snapshot", "customer_profiles", "ad_campaign_metrics",
}

var failureReasons = []string{
	`SYNTAX_ERROR: line 1:15: Column "x" cannot be resolved`,
	"HIVE_CURSOR_ERROR: Row is too large to fit in cursor",
	"GENERIC_INTERNAL_ERROR: ConnectTimeoutException",
	"RESOURCE_LIMIT_EXCEEDED: Query exhausted resources",
	"HIVE_PARTITION_SCHEMA_MISMATCH: Partition schema mismatch",
	"ACCESS_DENIED: User is not authorized to read path",
}

// Generator creates random query records from a seeded source so scenarios
// are reproducible.
type Generator struct {
	rng *rand.Rand
}

// New returns a generator seeded with the given value.
func New(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Random produces count records spread uniformly over the last days days.
func (g *Generator) Random(count, days int) []model.QueryRecord {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)
	span := int64(end.Sub(start) / time.Second)

	records := make([]model.QueryRecord, count)
	for i := range records {
		at := start.Add(time.Duration(g.rng.Int63n(span)) * time.Second)
		records[i] = g.record(at, workgroups[g.rng.Intn(len(workgroups))], 1.0)
	}
	return records
}

// Spike produces a baseline period followed by a spike period in which the
// target workgroup scans factor times more data per query. Dates are
// inclusive day bounds.
func (g *Generator) Spike(baselineStart, spikeStart, spikeEnd time.Time, target string, factor float64, perDay int) []model.QueryRecord {
	var records []model.QueryRecord

	day := baselineStart
	for !day.After(spikeEnd) {
		inSpike := !day.Before(spikeStart)
		for i := 0; i < perDay; i++ {
			at := day.Add(time.Duration(g.rng.Int63n(86400)) * time.Second)
			wg := workgroups[g.rng.Intn(len(workgroups))]
			f := 1.0
			if inSpike && wg == target {
				f = factor
			}
			records = append(records, g.record(at, wg, f))
		}
		day = day.AddDate(0, 0, 1)
	}
	return records
}

func (g *Generator) record(at time.Time, workgroup string, sizeFactor float64) model.QueryRecord {
	duration := g.durationSeconds()
	end := at.Add(time.Duration(duration * float64(time.Second)))
	runtime := duration / 60.0

	state := g.state()
	var statusReason string
	switch state {
	case model.StateFailed:
		statusReason = failureReasons[g.rng.Intn(len(failureReasons))]
	case model.StateCancelled:
		statusReason = "Query cancelled by user"
	}

	bytes := int64(float64(g.scannedBytes(state)) * sizeFactor)

	return model.QueryRecord{
		ID:               uuid.NewString(),
		StartTime:        at,
		EndTime:          &end,
		RuntimeMinutes:   &runtime,
		State:            state,
		StatusReason:     statusReason,
		DataScannedBytes: bytes,
		Cost:             model.DeriveCost(bytes),
		Workgroup:        workgroup,
		Database:         "analytics_db",
		EngineVersion:    fmt.Sprintf("Athena engine version %d", 2+g.rng.Intn(2)),
		QueryText:        g.queryText(at),
	}
}

// durationSeconds draws from a mixture: mostly fast queries, a long tail of
// slow ones.
func (g *Generator) durationSeconds() float64 {
	switch v := g.rng.Float64(); {
	case v < 0.5:
		return g.uniform(0.1, 10)
	case v < 0.8:
		return g.uniform(10, 120)
	case v < 0.95:
		return g.uniform(120, 900)
	default:
		return g.uniform(900, 7200)
	}
}

func (g *Generator) state() string {
	switch v := g.rng.Float64(); {
	case v < 0.85:
		return model.StateSucceeded
	case v < 0.95:
		return model.StateFailed
	default:
		return model.StateCancelled
	}
}

const (
	mb = 1 << 20
	gb = 1 << 30
)

func (g *Generator) scannedBytes(state string) int64 {
	if state != model.StateSucceeded {
		if g.rng.Float64() < 0.5 {
			return g.intBetween(1024, 100*mb)
		}
		return 0
	}
	switch v := g.rng.Float64(); {
	case v < 0.4:
		return g.intBetween(1024, 100*mb)
	case v < 0.7:
		return g.intBetween(100*mb, 10*gb)
	case v < 0.9:
		return g.intBetween(10*gb, 500*gb)
	default:
		return g.intBetween(500*gb, 5*1024*gb)
	}
}

func (g *Generator) queryText(at time.Time) string {
	dt := model.FormatDate(at)
	table := tables[g.rng.Intn(len(tables))]

	var text string
	switch g.rng.Intn(6) {
	case 0:
		cols := []string{"*", "id, created_at, status", "count(*)", "distinct user_id"}
		text = fmt.Sprintf("SELECT %s FROM %s WHERE dt = '%s'", cols[g.rng.Intn(len(cols))], table, dt)
		if g.rng.Float64() < 0.5 {
			text += fmt.Sprintf(" LIMIT %d", 10+g.rng.Intn(990))
		}
	case 1:
		aggs := []string{"count(*)", "sum(amount)", "avg(latency)", "max(price)"}
		groups := []string{"category", "region, country", "status"}
		agg := aggs[g.rng.Intn(len(aggs))]
		group := groups[g.rng.Intn(len(groups))]
		text = fmt.Sprintf("SELECT %s, %s FROM %s WHERE dt = '%s' GROUP BY %s", group, agg, table, dt, group)
	case 2:
		other := tables[g.rng.Intn(len(tables))]
		text = fmt.Sprintf("SELECT t1.id, t1.name, t2.total FROM %s t1 JOIN %s t2 ON t1.id = t2.foreign_id WHERE t1.dt = '%s' AND t2.amount > 100", table, other, dt)
	case 3:
		text = fmt.Sprintf("SELECT id, category, amount, RANK() OVER (PARTITION BY category ORDER BY amount DESC) AS rank_val FROM %s WHERE dt = '%s'", table, dt)
	case 4:
		text = fmt.Sprintf("WITH daily_stats AS (SELECT region, sum(views) AS total_views FROM %s WHERE dt = '%s' GROUP BY region) SELECT * FROM daily_stats WHERE total_views > 1000", table, dt)
	default:
		text = fmt.Sprintf("INSERT INTO %s_aggregated SELECT * FROM %s WHERE dt = '%s'", table, table, dt)
	}

	if g.rng.Float64() < 0.2 {
		text = "-- Query generated by automated report\n" + text
	}
	return text
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func (g *Generator) intBetween(lo, hi int64) int64 {
	return lo + g.rng.Int63n(hi-lo)
}
