/*
main.go - Command-line entry point

PURPOSE:
  Replays a CSV file of transactions against a fresh ledger and prints the
  final state of every client account as CSV on stdout.

STARTUP SEQUENCE:
  1. Resolve configuration (flags, environment, .env)
  2. Build the logger (stderr)
  3. Create the engine and metrics collector
  4. Replay the input file
  5. Run the optional SQLite and metrics exports
  6. Write the account report, only once everything above succeeded

EXIT CODES:
  0  success
  1  the replay or an export failed (malformed input, I/O, strict rejection)
  2  bad invocation or configuration

INTERRUPTS:
  SIGINT/SIGTERM stop the replay between two records. Nothing is printed
  on stdout for an interrupted or failed run.

EXAMPLES:
  payments transactions.csv > accounts.csv
  payments -strict -log-format=console transactions.csv
  payments -sqlite=./out/run.db -metrics-file=./out/payments.prom transactions.csv

SEE ALSO:
  - config/config.go: flags and environment
  - ingest/replay.go: Replayer
*/
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/payments-engine/config"
	"github.com/warp/payments-engine/ingest"
	"github.com/warp/payments-engine/logging"
	"github.com/warp/payments-engine/metrics"
	"github.com/warp/payments-engine/payments"
	"github.com/warp/payments-engine/report"
	"github.com/warp/payments-engine/report/sqlite"
)

const (
	exitOK    = 0
	exitRun   = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Getenv, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, getenv func(string) string, stdout, stderr io.Writer) int {
	cfg, err := config.Load(args, getenv, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "payments: %v\n", err)
		return exitUsage
	}

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: logging.Format(cfg.LogFormat)}, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "payments: %v\n", err)
		return exitUsage
	}
	defer logger.Sync()

	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))

	if err := replay(ctx, cfg, runID, logger, stdout); err != nil {
		logger.Error("run failed", zap.Error(err))
		return exitRun
	}
	return exitOK
}

func replay(ctx context.Context, cfg config.Config, runID string, logger *zap.Logger, stdout io.Writer) error {
	in, err := os.Open(cfg.InputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	engine := payments.NewEngine(payments.WithLogger(logger.Named("engine")))
	collector := metrics.New()

	policy := ingest.PolicySkip
	if cfg.Strict {
		policy = ingest.PolicyAbort
	}
	replayer := &ingest.Replayer{
		Engine:  engine,
		Logger:  logger.Named("ingest"),
		Metrics: collector,
		Policy:  policy,
	}

	logger.Info("replay started", zap.String("input", cfg.InputPath), zap.Stringer("policy", policy))
	if _, err := replayer.Run(ctx, in); err != nil {
		return fmt.Errorf("replay %s: %w", cfg.InputPath, err)
	}

	// The report is held back until every export has succeeded.
	accounts := engine.Accounts()
	var out bytes.Buffer
	if err := report.WriteCSV(&out, accounts); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if cfg.SQLitePath != "" {
		if err := exportSQLite(ctx, cfg, runID, engine); err != nil {
			return err
		}
		logger.Info("snapshot exported", zap.String("path", cfg.SQLitePath))
	}

	if cfg.MetricsFile != "" {
		collector.ObserveSnapshot(accounts)
		if err := collector.WriteTextfile(cfg.MetricsFile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := out.WriteTo(stdout); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func exportSQLite(ctx context.Context, cfg config.Config, runID string, engine *payments.Engine) error {
	exp, err := sqlite.New(cfg.SQLitePath)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer exp.Close()

	err = exp.Export(ctx, sqlite.Snapshot{
		RunID:        runID,
		CreatedAt:    time.Now().UTC(),
		Source:       cfg.InputPath,
		Accounts:     engine.Accounts(),
		Transactions: engine.Transactions(),
	})
	if err != nil {
		return fmt.Errorf("export sqlite: %w", err)
	}
	return nil
}
