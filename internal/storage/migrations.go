package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS raw_records (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					dealership TEXT NOT NULL,
					vin TEXT,
					stock TEXT,
					raw_type TEXT,
					raw_status TEXT,
					year INTEGER,
					make TEXT,
					model TEXT,
					trim TEXT,
					price REAL,
					msrp REAL,
					location TEXT,
					source_time DATETIME,
					imported_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_raw_records_dealership ON raw_records(dealership)`,

				`CREATE TABLE IF NOT EXISTS vehicles (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					dealership TEXT NOT NULL,
					vin TEXT NOT NULL,
					stock TEXT NOT NULL,
					condition TEXT NOT NULL,
					year INTEGER,
					make TEXT,
					model TEXT,
					trim TEXT,
					price REAL,
					msrp REAL,
					last_seen TEXT NOT NULL,
					scan_count INTEGER NOT NULL DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(dealership, vin)
				)`,
				`CREATE INDEX idx_vehicles_dealership ON vehicles(dealership)`,

				`CREATE TABLE IF NOT EXISTS vin_history (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					dealership TEXT NOT NULL,
					vin TEXT NOT NULL,
					vehicle_type TEXT NOT NULL,
					order_date TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(dealership, vin, order_date)
				)`,
				`CREATE INDEX idx_vin_history_dealership ON vin_history(dealership)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Index history by VIN for cross-dealership lookups",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE INDEX IF NOT EXISTS idx_vin_history_vin ON vin_history(vin)`,
				`CREATE INDEX IF NOT EXISTS idx_raw_records_imported_at ON raw_records(imported_at)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Maintain updated_at on vehicle upserts",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TRIGGER IF NOT EXISTS update_vehicles_updated_at
				AFTER UPDATE ON vehicles
				FOR EACH ROW
				BEGIN
					UPDATE vehicles SET updated_at = CURRENT_TIMESTAMP WHERE id = NEW.id;
				END
			`)
			return err
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// Get current version
	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	// Apply migrations
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		// Update version
		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	// Verify we're at the expected schema version
	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
