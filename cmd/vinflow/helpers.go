package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/lotsign/vinflow/internal/config"
	"github.com/lotsign/vinflow/internal/model"
	"github.com/lotsign/vinflow/internal/storage"
)

func databasePath() (string, error) {
	if path := viper.GetString("database.path"); path != "" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "vinflow", "vinflow.db"), nil
}

func dealersDir() (string, error) {
	if dir := viper.GetString("dealers.dir"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "vinflow", "dealers"), nil
}

// openStorage opens the SQLite store at the configured path. Callers own
// Close.
func openStorage() (*storage.SQLiteStorage, error) {
	path, err := databasePath()
	if err != nil {
		return nil, err
	}
	return storage.NewSQLiteStorage(path)
}

// loadDealers reads every dealership document from the configured directory.
func loadDealers() (map[string]*model.DealershipConfig, error) {
	dir, err := dealersDir()
	if err != nil {
		return nil, err
	}
	return config.LoadDealers(dir)
}

// parseDateFlag parses a --date value, defaulting to today's UTC date.
func parseDateFlag(value string) (time.Time, error) {
	if value == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", value, err)
	}
	return t, nil
}
