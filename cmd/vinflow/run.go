package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lotsign/vinflow/internal/common"
	"github.com/lotsign/vinflow/internal/export"
	"github.com/lotsign/vinflow/internal/job"
	"github.com/lotsign/vinflow/internal/service"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the decision job for a dealership",
		Long: `Run one dealership's processing job: load its current inventory,
consult the VIN history ledger, and decide which vehicles need graphics
production. Without --dry-run, processed VINs are committed to the history
ledger atomically and emitted to the export boundary.

--dry-run computes and reports decisions without writing anything, so it can
be repeated safely against production data.`,
		RunE: runRun,
	}

	cmd.Flags().String("dealer", "", "dealership name (required)")
	cmd.Flags().String("date", "", "reference date YYYY-MM-DD (default: today)")
	cmd.Flags().BoolP("dry-run", "d", false, "compute decisions without committing history")
	_ = cmd.MarkFlagRequired("dealer")

	return cmd
}

func runRun(cmd *cobra.Command, _ []string) error {
	dealer, _ := cmd.Flags().GetString("dealer")
	dateStr, _ := cmd.Flags().GetString("date")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	asOf, err := parseDateFlag(dateStr)
	if err != nil {
		return err
	}

	dealers, err := loadDealers()
	if err != nil {
		return err
	}

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	orch := job.NewOrchestrator(store, export.LogSink{}, dealers)

	var result *job.Result
	runOnce := func() error {
		var runErr error
		result, runErr = orch.RunJob(ctx, dealer, asOf, dryRun)
		return runErr
	}

	// Commit failures roll the whole job back, so retrying is safe.
	if err := common.WithRetry(ctx, runOnce, service.RetryOptions{MaxAttempts: 3}); err != nil {
		if result != nil {
			reportResult(result)
		}
		return err
	}

	reportResult(result)
	return nil
}

func reportResult(result *job.Result) {
	slog.Info("Job result",
		"job_id", result.ID,
		"dealership", result.Dealership,
		"state", result.State,
		"dry_run", result.DryRun,
		"candidates", result.Candidates,
		"processed", result.Processed,
		"skipped", result.Skipped)

	for rule, count := range result.SkippedByRule {
		slog.Info("Skipped by rule", "rule", int(rule), "count", count)
	}
	for rule, count := range result.ProcessedByRule {
		slog.Info("Processed by rule", "rule", int(rule), "count", count)
	}

	for _, item := range result.ToProcess {
		slog.Debug("To process",
			"vin", item.VIN,
			"stock", item.Stock,
			"condition", item.Condition,
			"qr_path", item.ExpectedQRPath)
	}
}
