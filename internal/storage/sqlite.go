package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lotsign/vinflow/internal/model"
	"github.com/lotsign/vinflow/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new database transaction.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (service.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &sqliteTransaction{
		tx:      tx,
		storage: s,
	}, nil
}

// sqliteTransaction wraps sql.Tx to implement service.Transaction.
type sqliteTransaction struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTransaction) Rollback() error {
	return t.tx.Rollback()
}

// Transaction methods delegate to the main storage with the transaction.
func (t *sqliteTransaction) AppendRawRecords(ctx context.Context, records []model.RawRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRawRecords(records); err != nil {
		return err
	}
	return t.storage.appendRawRecordsTx(ctx, t.tx, records)
}

func (t *sqliteTransaction) GetRawRecordCount(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return t.storage.getRawRecordCountTx(ctx, t.tx)
}

func (t *sqliteTransaction) PruneRawRecords(ctx context.Context, before time.Time) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return t.storage.pruneRawRecordsTx(ctx, t.tx, before)
}

func (t *sqliteTransaction) UpsertVehicle(ctx context.Context, rec *model.NormalizedRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateVehicle(rec); err != nil {
		return err
	}
	return t.storage.upsertVehicleTx(ctx, t.tx, rec)
}

func (t *sqliteTransaction) GetVehicle(ctx context.Context, dealership, vin string) (*model.NormalizedRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getVehicleTx(ctx, t.tx, dealership, vin)
}

func (t *sqliteTransaction) GetActiveInventory(ctx context.Context, dealership string, filter service.InventoryFilter) ([]model.NormalizedRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(dealership, "dealership"); err != nil {
		return nil, err
	}
	return t.storage.getActiveInventoryTx(ctx, t.tx, dealership, filter)
}

func (t *sqliteTransaction) SaveHistoryEntries(ctx context.Context, entries []model.HistoryEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateHistoryEntries(entries); err != nil {
		return err
	}
	return t.storage.saveHistoryEntriesTx(ctx, t.tx, entries)
}

func (t *sqliteTransaction) GetHistoryForVIN(ctx context.Context, vin string) ([]model.HistoryEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(vin, "vin"); err != nil {
		return nil, err
	}
	return t.storage.getHistoryForVINTx(ctx, t.tx, vin)
}

func (t *sqliteTransaction) GetHistoryForVINs(ctx context.Context, vins []string) (map[string][]model.HistoryEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getHistoryForVINsTx(ctx, t.tx, vins)
}

func (t *sqliteTransaction) GetHistoryCount(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return t.storage.getHistoryCountTx(ctx, t.tx)
}

func (t *sqliteTransaction) Migrate(_ context.Context) error {
	// Migrations should not be run within a transaction
	return fmt.Errorf("migrations cannot be run within a transaction")
}

func (t *sqliteTransaction) BeginTx(_ context.Context) (service.Transaction, error) {
	// Nested transactions not supported
	return nil, fmt.Errorf("nested transactions not supported")
}

func (t *sqliteTransaction) Close() error {
	// Transactions should be committed or rolled back, not closed
	return fmt.Errorf("transactions must be committed or rolled back, not closed")
}

// queryable is an interface satisfied by both *sql.DB and *sql.Tx.
type queryable interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
