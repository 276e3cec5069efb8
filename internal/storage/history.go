package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lotsign/vinflow/internal/common"
	"github.com/lotsign/vinflow/internal/model"

	"github.com/mattn/go-sqlite3"
)

// SaveHistoryEntries appends processing facts to the ledger. The ledger is
// insert-only; a (dealership, VIN, order_date) collision is surfaced as
// common.ErrDuplicateEntry, never resolved by overwriting.
func (s *SQLiteStorage) SaveHistoryEntries(ctx context.Context, entries []model.HistoryEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateHistoryEntries(entries); err != nil {
		return err
	}
	return s.saveHistoryEntriesTx(ctx, s.db, entries)
}

func (s *SQLiteStorage) saveHistoryEntriesTx(ctx context.Context, q queryable, entries []model.HistoryEntry) error {
	for _, e := range entries {
		_, err := q.ExecContext(ctx, `
			INSERT INTO vin_history (dealership, vin, vehicle_type, order_date)
			VALUES (?, ?, ?, ?)
		`,
			e.Dealership,
			e.VIN,
			string(e.Type),
			e.OrderDate.Format(dateLayout),
		)
		if err != nil {
			var sqliteErr sqlite3.Error
			if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
				return fmt.Errorf("%w: history for %s at %s on %s", common.ErrDuplicateEntry,
					e.VIN, e.Dealership, e.OrderDate.Format(dateLayout))
			}
			return fmt.Errorf("failed to insert history entry for %s: %w", e.VIN, err)
		}
	}
	return nil
}

// GetHistoryForVIN returns every history entry for a VIN across all
// dealerships, oldest first.
func (s *SQLiteStorage) GetHistoryForVIN(ctx context.Context, vin string) ([]model.HistoryEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(vin, "vin"); err != nil {
		return nil, err
	}
	return s.getHistoryForVINTx(ctx, s.db, vin)
}

func (s *SQLiteStorage) getHistoryForVINTx(ctx context.Context, q queryable, vin string) ([]model.HistoryEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, dealership, vin, vehicle_type, order_date
		FROM vin_history
		WHERE vin = ?
		ORDER BY order_date ASC, id ASC
	`, vin)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanHistoryEntries(rows)
}

// GetHistoryForVINs returns the full cross-dealership history for each VIN,
// keyed by VIN. VINs without history are absent from the map.
func (s *SQLiteStorage) GetHistoryForVINs(ctx context.Context, vins []string) (map[string][]model.HistoryEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getHistoryForVINsTx(ctx, s.db, vins)
}

func (s *SQLiteStorage) getHistoryForVINsTx(ctx context.Context, q queryable, vins []string) (map[string][]model.HistoryEntry, error) {
	result := make(map[string][]model.HistoryEntry, len(vins))
	if len(vins) == 0 {
		return result, nil
	}

	// SQLite's default parameter limit is 999; chunk to stay under it.
	const chunkSize = 500
	for start := 0; start < len(vins); start += chunkSize {
		end := start + chunkSize
		if end > len(vins) {
			end = len(vins)
		}
		chunk := vins[start:end]

		placeholders := strings.Repeat("?,", len(chunk))
		query := fmt.Sprintf(`
			SELECT id, dealership, vin, vehicle_type, order_date
			FROM vin_history
			WHERE vin IN (%s)
			ORDER BY order_date ASC, id ASC
		`, placeholders[:len(placeholders)-1])

		args := make([]any, len(chunk))
		for i, v := range chunk {
			args[i] = v
		}

		rows, err := q.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query history: %w", err)
		}

		entries, err := scanHistoryEntries(rows)
		_ = rows.Close()
		if err != nil {
			return nil, err
		}

		for _, e := range entries {
			result[e.VIN] = append(result[e.VIN], e)
		}
	}

	return result, nil
}

// GetHistoryCount returns the total number of ledger rows.
func (s *SQLiteStorage) GetHistoryCount(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return s.getHistoryCountTx(ctx, s.db)
}

func (s *SQLiteStorage) getHistoryCountTx(ctx context.Context, q queryable) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM vin_history`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get history count: %w", err)
	}
	return count, nil
}

func scanHistoryEntries(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]model.HistoryEntry, error) {
	var entries []model.HistoryEntry
	for rows.Next() {
		var e model.HistoryEntry
		var vehicleType string
		var orderDate string

		if err := rows.Scan(&e.ID, &e.Dealership, &e.VIN, &vehicleType, &orderDate); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}

		e.Type = model.VehicleType(vehicleType)
		parsed, err := parseDate(orderDate)
		if err != nil {
			return nil, fmt.Errorf("failed to parse order date %q: %w", orderDate, err)
		}
		e.OrderDate = parsed

		entries = append(entries, e)
	}
	return entries, rows.Err()
}
