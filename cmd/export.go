package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"athenalens/internal/csvio"
	"athenalens/internal/model"
)

var (
	flagExportStart string
	flagExportEnd   string
	flagExportOut   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored query records to CSV",
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import query records from a CSV export",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	exportCmd.Flags().StringVar(&flagExportStart, "start", "", "Range start (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&flagExportEnd, "end", "", "Range end (YYYY-MM-DD)")
	exportCmd.Flags().StringVarP(&flagExportOut, "out", "o", "", "Output file (defaults to athena_queries_<start>_<end>.csv)")
	_ = exportCmd.MarkFlagRequired("start")
	_ = exportCmd.MarkFlagRequired("end")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	cfg := loadAppConfig()

	start, err := model.ParseDate(flagExportStart)
	if err != nil {
		return fmt.Errorf("invalid --start %q", flagExportStart)
	}
	end, err := model.ParseDate(flagExportEnd)
	if err != nil {
		return fmt.Errorf("invalid --end %q", flagExportEnd)
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	records, err := st.QueryRange(cmd.Context(), start, end, flagWorkgroup)
	if err != nil {
		return err
	}

	out := flagExportOut
	if out == "" {
		out = fmt.Sprintf("athena_queries_%s_%s.csv", flagExportStart, flagExportEnd)
	}
	if err := csvio.WriteFile(out, records); err != nil {
		return err
	}
	fmt.Printf("Wrote %d records to %s\n", len(records), out)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg := loadAppConfig()

	records, err := csvio.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
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
	fmt.Printf("Imported %d records from %s\n", n, args[0])
	return nil
}
