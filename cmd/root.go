// Package cmd implements the athenalens command line interface.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"athenalens/internal/analysis"
	"athenalens/internal/config"
	"athenalens/internal/csvio"
	"athenalens/internal/model"
	"athenalens/internal/store"
)

var (
	flagCSV       string
	flagWorkgroup string
	flagJSON      bool
)

var rootCmd = &cobra.Command{
	Use:   "athenalens",
	Short: "Athena query cost analysis",
	Long:  "Fetch, store, and analyze AWS Athena query executions to explain cost spikes.",
	RunE:  runStatus,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagCSV, "csv", "", "Read query records from a CSV export instead of the database")
	rootCmd.PersistentFlags().StringVarP(&flagWorkgroup, "workgroup", "w", "", "Filter to one workgroup")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Emit JSON instead of rendered output")
}

func loadAppConfig() config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v, using defaults\n", err)
		return config.DefaultConfig()
	}
	return cfg
}

// openStore opens and migrates the configured record store.
func openStore(cfg config.Config) (*store.Store, error) {
	st, err := store.Open(cfg.StoreConfig())
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func analysisOptions(cfg config.Config) analysis.Options {
	return analysis.Options{
		TopQueries:        cfg.Analysis.TopQueries,
		TopPatterns:       cfg.Analysis.TopPatterns,
		DriftThresholdPct: cfg.Analysis.DriftThresholdPct,
	}
}

// loadRecords returns records covering the inclusive date range, from the
// CSV file when --csv is set, otherwise from the store.
func loadRecords(ctx context.Context, cfg config.Config, start, end time.Time) ([]model.QueryRecord, error) {
	if flagCSV != "" {
		records, err := csvio.ReadFile(flagCSV)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", flagCSV, err)
		}
		return records, nil
	}

	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = st.Close() }()

	return st.QueryRange(ctx, start, end, flagWorkgroup)
}

// dateSpan resolves the covering range of the parseable dates among args.
func dateSpan(dates ...string) (start, end time.Time, err error) {
	for _, d := range dates {
		if d == "" {
			continue
		}
		parsed, perr := model.ParseDate(d)
		if perr != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", d)
		}
		if start.IsZero() || parsed.Before(start) {
			start = parsed
		}
		if end.IsZero() || parsed.After(end) {
			end = parsed
		}
	}
	if start.IsZero() {
		return time.Time{}, time.Time{}, fmt.Errorf("no dates given")
	}
	return start, end, nil
}
