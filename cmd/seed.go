package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"athenalens/internal/generate"
	"athenalens/internal/model"
)

var (
	flagSeedCount  int
	flagSeedDays   int
	flagSeedSeed   int64
	flagSeedSpike  bool
	flagSeedTarget string
	flagSeedFactor float64
	flagSeedPerDay int
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Generate synthetic query data for testing",
	Long: "Fill the store with synthetic Athena query executions. The default\n" +
		"mode spreads random queries over the last --days days; --spike builds a\n" +
		"baseline week followed by a cost spike against one table.",
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().IntVar(&flagSeedCount, "count", 500, "Number of random queries to generate")
	seedCmd.Flags().IntVar(&flagSeedDays, "days", 30, "Days of history to spread queries over")
	seedCmd.Flags().Int64Var(&flagSeedSeed, "seed", 0, "Random seed (0 means time-based)")
	seedCmd.Flags().BoolVar(&flagSeedSpike, "spike", false, "Generate a baseline week plus a spike scenario")
	seedCmd.Flags().StringVar(&flagSeedTarget, "spike-target", "parquet_dmp_raw_v3", "Table the spike queries hit")
	seedCmd.Flags().Float64Var(&flagSeedFactor, "spike-factor", 10, "Per-query scan inflation during the spike")
	seedCmd.Flags().IntVar(&flagSeedPerDay, "per-day", 40, "Queries per day in spike mode")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg := loadAppConfig()

	seed := flagSeedSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gen := generate.New(seed)

	var records []model.QueryRecord
	if flagSeedSpike {
		today := model.DateOf(time.Now())
		spikeEnd := today
		spikeStart := today.AddDate(0, 0, -2)
		baselineStart := spikeStart.AddDate(0, 0, -7)
		records = gen.Spike(baselineStart, spikeStart, spikeEnd,
			flagSeedTarget, flagSeedFactor, flagSeedPerDay)
		fmt.Printf("Generated spike scenario: baseline %s..%s, spike %s..%s on %s\n",
			model.FormatDate(baselineStart), model.FormatDate(spikeStart.AddDate(0, 0, -1)),
			model.FormatDate(spikeStart), model.FormatDate(spikeEnd), flagSeedTarget)
	} else {
		records = gen.Random(flagSeedCount, flagSeedDays)
		fmt.Printf("Generated %d random queries over %d days\n", len(records), flagSeedDays)
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	n, err := st.UpsertBatch(cmd.Context(), records)
	if err != nil {
		return err
	}
	fmt.Printf("Stored %d records\n", n)
	return nil
}
