// Package daemon provides the long-running background fetch service that
// keeps the query store current.
package daemon

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"athenalens/internal/athena"
	"athenalens/internal/model"
)

// Fetcher retrieves query executions for a set of workgroups.
type Fetcher interface {
	ListWorkgroups(ctx context.Context) ([]string, error)
	FetchRange(ctx context.Context, workgroups []string, start, end time.Time, onProgress func(athena.Progress)) ([]model.QueryRecord, error)
}

// Sink stores fetched records.
type Sink interface {
	UpsertBatch(ctx context.Context, records []model.QueryRecord) (int, error)
}

// Config controls the daemon runtime behavior.
type Config struct {
	// Schedule is a cron expression; empty means 02:00 daily.
	Schedule string
	// Workgroups to fetch; empty means all workgroups in the account.
	Workgroups []string
	// LookbackDays is how many trailing days each run re-fetches. Athena
	// retains execution history for 45 days; re-fetching a short window
	// papers over runs that were missed while the daemon was down.
	LookbackDays int
	// RunOnStart triggers a fetch immediately instead of waiting for the
	// first scheduled tick.
	RunOnStart bool
}

func (c Config) schedule() string {
	if c.Schedule == "" {
		return "0 2 * * *"
	}
	return c.Schedule
}

func (c Config) lookback() int {
	if c.LookbackDays <= 0 {
		return 2
	}
	return c.LookbackDays
}

// Status summarizes the daemon runtime for logging and inspection.
type Status struct {
	StartedAt  time.Time `json:"started_at"`
	LastRunAt  time.Time `json:"last_run_at,omitempty"`
	RunCount   int64     `json:"run_count"`
	LastStored int       `json:"last_stored"`
	LastError  string    `json:"last_error,omitempty"`
}

// Service periodically fetches recent query executions into the store.
type Service struct {
	cfg     Config
	fetcher Fetcher
	sink    Sink
	now     func() time.Time

	mu     sync.RWMutex
	status Status
}

// New creates the daemon service.
func New(cfg Config, fetcher Fetcher, sink Sink) *Service {
	return &Service{cfg: cfg, fetcher: fetcher, sink: sink, now: time.Now}
}

// Status returns a copy of the current runtime status.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Run starts the cron scheduler and blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.mu.Lock()
	s.status.StartedAt = s.now()
	s.mu.Unlock()

	c := cron.New()
	_, err := c.AddFunc(s.cfg.schedule(), func() {
		if err := s.RunOnce(ctx); err != nil {
			log.Printf("daemon: fetch failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.cfg.schedule(), err)
	}

	if s.cfg.RunOnStart {
		if err := s.RunOnce(ctx); err != nil {
			log.Printf("daemon: initial fetch failed: %v", err)
		}
	}

	c.Start()
	log.Printf("daemon: scheduled %q, lookback %d day(s)", s.cfg.schedule(), s.cfg.lookback())

	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	return ctx.Err()
}

// RunOnce fetches the trailing lookback window and upserts it.
func (s *Service) RunOnce(ctx context.Context) error {
	end := model.DateOf(s.now())
	start := end.AddDate(0, 0, -s.cfg.lookback())

	err := s.fetch(ctx, start, end)

	s.mu.Lock()
	s.status.LastRunAt = s.now()
	s.status.RunCount++
	if err != nil {
		s.status.LastError = err.Error()
	} else {
		s.status.LastError = ""
	}
	s.mu.Unlock()
	return err
}

func (s *Service) fetch(ctx context.Context, start, end time.Time) error {
	workgroups := s.cfg.Workgroups
	if len(workgroups) == 0 {
		var err error
		workgroups, err = s.fetcher.ListWorkgroups(ctx)
		if err != nil {
			return fmt.Errorf("listing workgroups: %w", err)
		}
	}

	records, err := s.fetcher.FetchRange(ctx, workgroups, start, end, nil)
	if err != nil {
		return fmt.Errorf("fetching range: %w", err)
	}

	n, err := s.sink.UpsertBatch(ctx, records)
	if err != nil {
		return fmt.Errorf("storing records: %w", err)
	}

	s.mu.Lock()
	s.status.LastStored = n
	s.mu.Unlock()

	log.Printf("daemon: stored %d records for %s..%s",
		n, model.FormatDate(start), model.FormatDate(end))
	return nil
}
