package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"athenalens/internal/analysis"
	"athenalens/internal/cli"
)

var (
	flagBaselineStart string
	flagBaselineEnd   string
	flagSpikeStart    string
	flagSpikeEnd      string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Compare a baseline period against a spike period",
	Long: "Compare scanned-data volume between two date ranges and break the\n" +
		"increase down by query pattern, recurring query drift, and write activity.",
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&flagBaselineStart, "baseline-start", "", "Baseline period start (YYYY-MM-DD)")
	analyzeCmd.Flags().StringVar(&flagBaselineEnd, "baseline-end", "", "Baseline period end (YYYY-MM-DD)")
	analyzeCmd.Flags().StringVar(&flagSpikeStart, "spike-start", "", "Spike period start (YYYY-MM-DD)")
	analyzeCmd.Flags().StringVar(&flagSpikeEnd, "spike-end", "", "Spike period end (YYYY-MM-DD)")
	_ = analyzeCmd.MarkFlagRequired("baseline-start")
	_ = analyzeCmd.MarkFlagRequired("baseline-end")
	_ = analyzeCmd.MarkFlagRequired("spike-start")
	_ = analyzeCmd.MarkFlagRequired("spike-end")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	cfg := loadAppConfig()

	start, end, err := dateSpan(flagBaselineStart, flagBaselineEnd, flagSpikeStart, flagSpikeEnd)
	if err != nil {
		return err
	}

	records, err := loadRecords(cmd.Context(), cfg, start, end)
	if err != nil {
		return err
	}

	result, err := analysis.AnalyzeCostIncrease(records, analysis.CostAnalysisParams{
		BaselineStart: flagBaselineStart,
		BaselineEnd:   flagBaselineEnd,
		SpikeStart:    flagSpikeStart,
		SpikeEnd:      flagSpikeEnd,
		Workgroup:     flagWorkgroup,
	}, analysisOptions(cfg))
	if err != nil {
		return err
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Println(cli.RenderCostAnalysis(result))
	return nil
}
