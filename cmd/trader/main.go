package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"signal-trader/internal/logger"
	"signal-trader/internal/signals"
	"signal-trader/internal/trace"
	"signal-trader/internal/types"

	"github.com/spf13/cobra"
)

var version = "dev"

type options struct {
	configPath string
	date       string
	dryRun     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "trader:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "trader",
		Short: "Reconcile brokerage holdings with a day's published signals",
		Long: `trader fetches the signal CSV, keeps the rows for the target date
(yesterday by default), compares them with the account's positions and
submits the market orders that close the gap. It runs once and exits.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "config.yaml", "Configuration file path (optional)")
	cmd.Flags().StringVar(&opts.date, "date", "", "Target date as MM/DD/YYYY or YYYY-MM-DD (yesterday if not provided)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Simulate orders instead of sending them")

	return cmd
}

func run(parent context.Context, opts options) error {
	if parent == nil {
		parent = context.Background()
	}
	if err := initializeSystem(); err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = trace.Shutdown(sctx)
	}()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx, opts.configPath, opts.dryRun)
	if err != nil {
		return err
	}

	target, err := resolveTargetDate(opts.date, time.Now(), cfg.Location())
	if err != nil {
		logger.ErrorWithErr(ctx, "Invalid --date", err)
		return err
	}

	compressOldLogs(ctx)

	rawBroker, err := initializeBroker(ctx, cfg)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to initialize broker", err, "broker", cfg.Broker)
		return err
	}

	recorder, eng, err := initializeEngine(ctx, cfg, rawBroker)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to initialize engine", err)
		return err
	}

	report, runErr := eng.Run(ctx, target)
	pushMetrics(ctx, cfg, recorder)
	if report != nil && len(report.Orders) > 0 {
		summarizeJournal(ctx)
	}

	if report != nil {
		printReport(report)
	}
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			logger.Warn(ctx, "Run cancelled", "target_date", target.String())
		}
		return runErr
	}
	return nil
}

func resolveTargetDate(flag string, now time.Time, loc *time.Location) (types.Date, error) {
	if flag == "" {
		return signals.Yesterday(now, loc), nil
	}
	return signals.ParseDate(flag)
}

func printReport(r *types.RunReport) {
	b, err := json.Marshal(r)
	if err != nil {
		return
	}
	fmt.Println(string(b))
}
