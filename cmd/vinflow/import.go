package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/lotsign/vinflow/internal/ingest"
	"github.com/lotsign/vinflow/internal/model"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import daily inventory snapshots",
		Long: `Import CSV inventory snapshots for a dealership.

Rows are appended to the raw audit log, normalized, and upserted into the
inventory. Rows that fail normalization are counted by skip reason, never
fatal. A snapshot may contain rows for multiple dealerships tagged by a
location column; only rows for the target dealership are imported.

Examples:
  # Import one snapshot for a dealership
  vinflow import --dealer "Sunset Honda" ~/snapshots/sunset_honda_0115.csv

  # Import all of today's snapshots
  vinflow import --dealer "Sunset Honda" ~/snapshots/*.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}

	cmd.Flags().String("dealer", "", "target dealership name (required)")
	cmd.Flags().String("date", "", "batch date YYYY-MM-DD (default: today)")
	_ = cmd.MarkFlagRequired("dealer")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	dealer, _ := cmd.Flags().GetString("dealer")
	dateStr, _ := cmd.Flags().GetString("date")

	batchDate, err := parseDateFlag(dateStr)
	if err != nil {
		return err
	}

	dealers, err := loadDealers()
	if err != nil {
		return err
	}
	cfg, ok := dealers[dealer]
	if !ok {
		return fmt.Errorf("no config for dealership %q", dealer)
	}

	// Expand globs and collect all files
	var allFiles []string
	for _, pattern := range args {
		matches, globErr := filepath.Glob(pattern)
		if globErr != nil {
			return fmt.Errorf("invalid pattern %s: %w", pattern, globErr)
		}
		if len(matches) == 0 {
			if _, statErr := os.Stat(pattern); statErr == nil {
				allFiles = append(allFiles, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
		} else {
			allFiles = append(allFiles, matches...)
		}
	}

	if len(allFiles) == 0 {
		return fmt.Errorf("no files found to import")
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

	importer := ingest.NewImporter(store)
	totals := ingest.BatchResult{
		Dealership:  dealer,
		SkipReasons: make(map[model.SkipReason]int),
	}

	for _, filePath := range allFiles {
		f, openErr := os.Open(filePath)
		if openErr != nil {
			slog.Error("Failed to open file", "file", filePath, "error", openErr)
			continue
		}

		rows, parseErr := ingest.ReadSnapshot(f, dealer)
		_ = f.Close()
		if parseErr != nil {
			slog.Error("Failed to parse snapshot", "file", filePath, "error", parseErr)
			continue
		}

		bar := progressbar.Default(int64(len(rows)), filepath.Base(filePath))
		result, importErr := importer.ImportBatch(ctx, rows, cfg, batchDate, func() {
			_ = bar.Add(1)
		})
		_ = bar.Finish()
		if importErr != nil {
			return fmt.Errorf("import of %s failed: %w", filePath, importErr)
		}

		totals.Imported += result.Imported
		totals.Skipped += result.Skipped
		for reason, count := range result.SkipReasons {
			totals.SkipReasons[reason] += count
		}
	}

	slog.Info("Import complete",
		"dealership", dealer,
		"files", len(allFiles),
		"csv_vehicles_imported", totals.Imported,
		"skipped", totals.Skipped)
	for reason, count := range totals.SkipReasons {
		slog.Info("Skip reason", "reason", reason, "count", count)
	}

	return nil
}
