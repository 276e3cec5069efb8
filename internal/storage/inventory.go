package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lotsign/vinflow/internal/common"
	"github.com/lotsign/vinflow/internal/model"
	"github.com/lotsign/vinflow/internal/service"
)

// dateLayout is how calendar dates (last-seen, order dates) are stored.
// Plain TEXT dates keep the uniqueness constraints timezone-proof.
const dateLayout = "2006-01-02"

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// UpsertVehicle inserts or refreshes the (VIN, dealership) inventory row.
// On conflict the mutable fields are updated, last-seen is refreshed and
// scan_count is incremented; exactly one row ever exists per key.
func (s *SQLiteStorage) UpsertVehicle(ctx context.Context, rec *model.NormalizedRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateVehicle(rec); err != nil {
		return err
	}
	return s.upsertVehicleTx(ctx, s.db, rec)
}

func (s *SQLiteStorage) upsertVehicleTx(ctx context.Context, q queryable, rec *model.NormalizedRecord) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO vehicles (
			dealership, vin, stock, condition, year, make, model, trim,
			price, msrp, last_seen, scan_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(dealership, vin) DO UPDATE SET
			stock = excluded.stock,
			condition = excluded.condition,
			year = excluded.year,
			make = excluded.make,
			model = excluded.model,
			trim = excluded.trim,
			price = excluded.price,
			msrp = excluded.msrp,
			last_seen = excluded.last_seen,
			scan_count = vehicles.scan_count + 1
	`,
		rec.Dealership,
		rec.VIN,
		rec.Stock,
		string(rec.Condition),
		rec.Year,
		rec.Make,
		rec.Model,
		rec.Trim,
		rec.Price,
		rec.MSRP,
		rec.LastSeen.Format(dateLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert vehicle %s at %s: %w", rec.VIN, rec.Dealership, err)
	}
	return nil
}

// GetVehicle retrieves a single inventory row by (dealership, VIN).
func (s *SQLiteStorage) GetVehicle(ctx context.Context, dealership, vin string) (*model.NormalizedRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(dealership, "dealership"); err != nil {
		return nil, err
	}
	if err := validateString(vin, "vin"); err != nil {
		return nil, err
	}
	return s.getVehicleTx(ctx, s.db, dealership, vin)
}

func (s *SQLiteStorage) getVehicleTx(ctx context.Context, q queryable, dealership, vin string) (*model.NormalizedRecord, error) {
	row := q.QueryRowContext(ctx, `
		SELECT dealership, vin, stock, condition, year, make, model, trim,
		       price, msrp, last_seen, scan_count
		FROM vehicles
		WHERE dealership = ? AND vin = ?
	`, dealership, vin)

	rec, err := scanVehicle(row)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicle: %w", err)
	}
	return rec, nil
}

// GetActiveInventory returns the dealership's normalized inventory with the
// config filters applied in SQL.
func (s *SQLiteStorage) GetActiveInventory(ctx context.Context, dealership string, filter service.InventoryFilter) ([]model.NormalizedRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(dealership, "dealership"); err != nil {
		return nil, err
	}
	return s.getActiveInventoryTx(ctx, s.db, dealership, filter)
}

func (s *SQLiteStorage) getActiveInventoryTx(ctx context.Context, q queryable, dealership string, filter service.InventoryFilter) ([]model.NormalizedRecord, error) {
	query := `
		SELECT dealership, vin, stock, condition, year, make, model, trim,
		       price, msrp, last_seen, scan_count
		FROM vehicles
		WHERE dealership = ?
	`
	args := []any{dealership}

	if filter.MinPrice > 0 {
		query += " AND price >= ?"
		args = append(args, filter.MinPrice)
	}
	if filter.MinYear > 0 {
		query += " AND year >= ?"
		args = append(args, filter.MinYear)
	}
	if filter.RequireStock {
		query += " AND stock != ''"
	}
	if len(filter.ExcludeConditions) > 0 {
		placeholders := strings.Repeat("?,", len(filter.ExcludeConditions))
		query += fmt.Sprintf(" AND condition NOT IN (%s)", placeholders[:len(placeholders)-1])
		for _, cond := range filter.ExcludeConditions {
			args = append(args, string(cond))
		}
	}

	query += " ORDER BY vin ASC"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.NormalizedRecord
	for rows.Next() {
		rec, scanErr := scanVehicle(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan vehicle: %w", scanErr)
		}
		records = append(records, *rec)
	}

	return records, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanVehicle(row rowScanner) (*model.NormalizedRecord, error) {
	var rec model.NormalizedRecord
	var condition string
	var lastSeen string

	err := row.Scan(
		&rec.Dealership,
		&rec.VIN,
		&rec.Stock,
		&condition,
		&rec.Year,
		&rec.Make,
		&rec.Model,
		&rec.Trim,
		&rec.Price,
		&rec.MSRP,
		&lastSeen,
		&rec.ScanCount,
	)
	if err != nil {
		return nil, err
	}

	rec.Condition = model.Condition(condition)
	rec.LastSeen, err = parseDate(lastSeen)
	if err != nil {
		return nil, fmt.Errorf("failed to parse last-seen date %q: %w", lastSeen, err)
	}

	return &rec, nil
}
