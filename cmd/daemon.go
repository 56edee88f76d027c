package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"athenalens/internal/athena"
	"athenalens/internal/daemon"
)

var (
	flagDaemonSchedule   string
	flagDaemonLookback   int
	flagDaemonRunOnStart bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the scheduled background fetcher",
	Long: "Periodically fetch recent query executions from Athena into the\n" +
		"store so analyses and the dashboard stay current.",
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().StringVar(&flagDaemonSchedule, "schedule", "", "Cron schedule (default 02:00 daily)")
	daemonCmd.Flags().IntVar(&flagDaemonLookback, "lookback", 2, "Trailing days to re-fetch on each run")
	daemonCmd.Flags().BoolVar(&flagDaemonRunOnStart, "run-on-start", false, "Fetch immediately before waiting for the schedule")
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	cfg := loadAppConfig()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	svc := daemon.New(daemon.Config{
		Schedule:     flagDaemonSchedule,
		Workgroups:   cfg.AWS.Workgroups,
		LookbackDays: flagDaemonLookback,
		RunOnStart:   flagDaemonRunOnStart,
	}, athena.New(cfg.AWS.Region), st)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
