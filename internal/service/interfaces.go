// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/lotsign/vinflow/internal/model"
)

// InventoryFilter narrows candidate selection for a job run. Zero values
// mean "no constraint" except ExcludeConditions, which is applied as given.
type InventoryFilter struct {
	ExcludeConditions []model.Condition
	MinPrice          float64
	MinYear           int
	RequireStock      bool
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Raw audit log operations. The log is append-only; PruneRawRecords
	// exists for retention cleanup and deletes nothing else.
	AppendRawRecords(ctx context.Context, records []model.RawRecord) error
	GetRawRecordCount(ctx context.Context) (int, error)
	PruneRawRecords(ctx context.Context, before time.Time) (int64, error)

	// Inventory operations
	UpsertVehicle(ctx context.Context, rec *model.NormalizedRecord) error
	GetVehicle(ctx context.Context, dealership, vin string) (*model.NormalizedRecord, error)
	GetActiveInventory(ctx context.Context, dealership string, filter InventoryFilter) ([]model.NormalizedRecord, error)

	// History ledger operations. Entries are insert-only.
	SaveHistoryEntries(ctx context.Context, entries []model.HistoryEntry) error
	GetHistoryForVIN(ctx context.Context, vin string) ([]model.HistoryEntry, error)
	GetHistoryForVINs(ctx context.Context, vins []string) (map[string][]model.HistoryEntry, error)
	GetHistoryCount(ctx context.Context) (int, error)

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
