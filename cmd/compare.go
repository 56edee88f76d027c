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
	flagCompareStart   string
	flagCompareEnd     string
	flagComparePattern string
	flagCompareQueryID string
	flagCompareBase    string
	flagCompareBaseEnd string
	flagCompareTarget  string
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Rank expensive queries and extract their patterns",
	Long: "Rank the most expensive queries in a date range, extract structured\n" +
		"features from their text, and optionally compare a baseline sub-range\n" +
		"against a single target date.",
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().StringVar(&flagCompareStart, "start", "", "Range start (YYYY-MM-DD)")
	compareCmd.Flags().StringVar(&flagCompareEnd, "end", "", "Range end (YYYY-MM-DD)")
	compareCmd.Flags().StringVar(&flagComparePattern, "pattern", "", "Substring filter on query text")
	compareCmd.Flags().StringVar(&flagCompareQueryID, "query-id", "", "Inspect a single query execution id")
	compareCmd.Flags().StringVar(&flagCompareBase, "baseline-start", "", "Baseline sub-range start for the split")
	compareCmd.Flags().StringVar(&flagCompareBaseEnd, "baseline-end", "", "Baseline sub-range end for the split")
	compareCmd.Flags().StringVar(&flagCompareTarget, "target-date", "", "Target date for the split")
	_ = compareCmd.MarkFlagRequired("start")
	_ = compareCmd.MarkFlagRequired("end")
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, _ []string) error {
	cfg := loadAppConfig()

	start, end, err := dateSpan(flagCompareStart, flagCompareEnd)
	if err != nil {
		return err
	}

	records, err := loadRecords(cmd.Context(), cfg, start, end)
	if err != nil {
		return err
	}

	result, err := analysis.CompareExpensiveQueries(records, analysis.ComparisonParams{
		StartDate:     flagCompareStart,
		EndDate:       flagCompareEnd,
		Workgroup:     flagWorkgroup,
		QueryPattern:  flagComparePattern,
		QueryID:       flagCompareQueryID,
		BaselineStart: flagCompareBase,
		BaselineEnd:   flagCompareBaseEnd,
		TargetDate:    flagCompareTarget,
	}, analysisOptions(cfg))
	if err != nil {
		return err
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Println(cli.RenderComparison(result))
	return nil
}
