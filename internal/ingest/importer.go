package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lotsign/vinflow/internal/model"
	"github.com/lotsign/vinflow/internal/normalize"
	"github.com/lotsign/vinflow/internal/service"
)

// BatchResult reports what happened to each row of a snapshot import.
// Skips are broken down by reason so an operator can tell a broken feed
// from an aggressively filtered one.
type BatchResult struct {
	SkipReasons map[model.SkipReason]int
	Dealership  string
	Imported    int
	Skipped     int
}

// Importer drives one snapshot batch through the normalizer and into the
// inventory store.
type Importer struct {
	storage service.Storage
}

// NewImporter creates an importer backed by the given storage.
func NewImporter(storage service.Storage) *Importer {
	return &Importer{storage: storage}
}

// ImportBatch appends every row to the raw audit log, normalizes each one
// for the target dealership, and upserts the survivors into the inventory.
// Row-level failures are counted, never fatal. The optional progress
// callback fires once per row.
func (im *Importer) ImportBatch(ctx context.Context, rows []model.RawRecord, cfg *model.DealershipConfig, batchDate time.Time, progress func()) (*BatchResult, error) {
	result := &BatchResult{
		Dealership:  cfg.Name,
		SkipReasons: make(map[model.SkipReason]int),
	}

	if len(rows) == 0 {
		return result, nil
	}

	// Every sighting lands in the audit log, skipped or not.
	if err := im.storage.AppendRawRecords(ctx, rows); err != nil {
		return nil, fmt.Errorf("failed to append raw records: %w", err)
	}

	for _, raw := range rows {
		if progress != nil {
			progress()
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		rec, reason := normalize.Normalize(raw, cfg, cfg.Name, batchDate)
		if reason != model.SkipNone {
			result.Skipped++
			result.SkipReasons[reason]++
			continue
		}

		if err := im.storage.UpsertVehicle(ctx, &rec); err != nil {
			return result, fmt.Errorf("failed to upsert vehicle %s: %w", rec.VIN, err)
		}
		result.Imported++
	}

	slog.Info("Imported snapshot batch",
		"dealership", cfg.Name,
		"rows", len(rows),
		"imported", result.Imported,
		"skipped", result.Skipped)

	return result, nil
}
