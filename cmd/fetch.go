package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"athenalens/internal/athena"
	"athenalens/internal/csvio"
	"athenalens/internal/model"
)

var (
	flagFetchStart      string
	flagFetchEnd        string
	flagFetchRegion     string
	flagFetchWorkgroups []string
	flagFetchReplace    bool
	flagFetchOut        string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch query executions from Athena into the store",
	RunE:  runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&flagFetchStart, "start", "", "Range start (YYYY-MM-DD)")
	fetchCmd.Flags().StringVar(&flagFetchEnd, "end", "", "Range end (YYYY-MM-DD)")
	fetchCmd.Flags().StringVar(&flagFetchRegion, "region", "", "AWS region (defaults to config)")
	fetchCmd.Flags().StringSliceVar(&flagFetchWorkgroups, "workgroups", nil, "Workgroups to fetch (defaults to config, then all)")
	fetchCmd.Flags().BoolVar(&flagFetchReplace, "replace", false, "Delete the date range from the store before writing")
	fetchCmd.Flags().StringVarP(&flagFetchOut, "out", "o", "", "Also write the fetched rows to a CSV file")
	_ = fetchCmd.MarkFlagRequired("start")
	_ = fetchCmd.MarkFlagRequired("end")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, _ []string) error {
	cfg := loadAppConfig()
	ctx := cmd.Context()

	start, err := model.ParseDate(flagFetchStart)
	if err != nil {
		return fmt.Errorf("invalid --start %q", flagFetchStart)
	}
	end, err := model.ParseDate(flagFetchEnd)
	if err != nil {
		return fmt.Errorf("invalid --end %q", flagFetchEnd)
	}

	region := cfg.AWS.Region
	if flagFetchRegion != "" {
		region = flagFetchRegion
	}
	client := athena.New(region)

	workgroups := flagFetchWorkgroups
	if len(workgroups) == 0 {
		workgroups = cfg.AWS.Workgroups
	}
	if len(workgroups) == 0 {
		workgroups, err = client.ListWorkgroups(ctx)
		if err != nil {
			return fmt.Errorf("listing workgroups: %w", err)
		}
	}

	fmt.Fprintf(os.Stderr, "Fetching %d workgroup(s) from %s to %s in %s\n",
		len(workgroups), flagFetchStart, flagFetchEnd, region)

	records, err := client.FetchRange(ctx, workgroups, start, end, func(p athena.Progress) {
		fmt.Fprintf(os.Stderr, "  %s: %d listed, %d in range\n", p.Workgroup, p.Listed, p.Matched)
	})
	if err != nil {
		return err
	}

	if flagFetchOut != "" {
		if err := csvio.WriteFile(flagFetchOut, records); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %d rows to %s\n", len(records), flagFetchOut)
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if flagFetchReplace {
		deleted, err := st.DeleteRange(ctx, start, end)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Deleted %d existing records in range\n", deleted)
	}

	n, err := st.UpsertBatch(ctx, records)
	if err != nil {
		return err
	}
	fmt.Printf("Stored %d query executions\n", n)
	return nil
}
