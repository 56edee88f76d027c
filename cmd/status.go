package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"athenalens/internal/cli"
	"athenalens/internal/model"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what the store contains",
	RunE:  runStatus,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(_ *cobra.Command, _ []string) error {
		st, err := openStore(loadAppConfig())
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		fmt.Println("Migrations applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(migrateCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg := loadAppConfig()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	ctx := cmd.Context()
	stats, err := st.DashboardStats(ctx)
	if err != nil {
		return err
	}
	min, max, ok, err := st.DateRange(ctx)
	if err != nil {
		return err
	}

	if flagJSON {
		out := map[string]any{"stats": stats}
		if ok {
			out["min_date"] = model.FormatDate(min)
			out["max_date"] = model.FormatDate(max)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	dateRange := "empty"
	if ok {
		dateRange = fmt.Sprintf("%s .. %s", model.FormatDate(min), model.FormatDate(max))
	}

	fmt.Println(cli.RenderTable(cli.Table{
		Title:   "Store",
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Queries", cli.FormatNumber(int64(stats.TotalQueries))},
			{"Succeeded", cli.FormatNumber(int64(stats.SucceededQueries))},
			{"Failed", cli.FormatNumber(int64(stats.FailedQueries))},
			{"Data scanned", cli.FormatGB(stats.TotalGB)},
			{"Estimated cost", cli.FormatCost(stats.TotalCost)},
			{"Workgroups", cli.FormatNumber(int64(stats.Workgroups))},
			{"Date range", dateRange},
		},
	}))
	return nil
}
