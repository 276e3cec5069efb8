package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lotsign/vinflow/internal/model"
)

// AppendRawRecords writes scraped rows to the append-only audit log.
func (s *SQLiteStorage) AppendRawRecords(ctx context.Context, records []model.RawRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRawRecords(records); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.appendRawRecordsTx(ctx, tx, records); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStorage) appendRawRecordsTx(ctx context.Context, q queryable, records []model.RawRecord) error {
	var stmt *sql.Stmt
	var err error

	prep, ok := q.(interface {
		PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	})
	if !ok {
		return fmt.Errorf("queryable does not support prepared statements")
	}

	stmt, err = prep.PrepareContext(ctx, `
		INSERT INTO raw_records (
			dealership, vin, stock, raw_type, raw_status, year,
			make, model, trim, price, msrp, location, source_time
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, rec := range records {
		_, err = stmt.ExecContext(ctx,
			rec.Dealership,
			rec.VIN,
			rec.Stock,
			rec.RawType,
			rec.RawStatus,
			rec.Year,
			rec.Make,
			rec.Model,
			rec.Trim,
			rec.Price,
			rec.MSRP,
			rec.Location,
			rec.SourceTime,
		)
		if err != nil {
			return fmt.Errorf("failed to insert raw record for VIN %q: %w", rec.VIN, err)
		}
	}

	return nil
}

// GetRawRecordCount returns the total number of audit rows.
func (s *SQLiteStorage) GetRawRecordCount(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return s.getRawRecordCountTx(ctx, s.db)
}

func (s *SQLiteStorage) getRawRecordCountTx(ctx context.Context, q queryable) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM raw_records`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get raw record count: %w", err)
	}
	return count, nil
}

// PruneRawRecords deletes audit rows imported before the cutoff. This is the
// only path that ever removes raw rows; vehicles and history are untouched.
func (s *SQLiteStorage) PruneRawRecords(ctx context.Context, before time.Time) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return s.pruneRawRecordsTx(ctx, s.db, before)
}

func (s *SQLiteStorage) pruneRawRecordsTx(ctx context.Context, q queryable, before time.Time) (int64, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM raw_records WHERE imported_at < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune raw records: %w", err)
	}
	return res.RowsAffected()
}
