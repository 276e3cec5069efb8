// Package storage provides the data persistence layer for the vinflow application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lotsign/vinflow/internal/model"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrNilParameter   = errors.New("parameter cannot be nil")
	ErrEmptySlice     = errors.New("slice cannot be empty")
	ErrInvalidVehicle = errors.New("invalid vehicle record")
	ErrInvalidHistory = errors.New("invalid history entry")
	ErrInvalidRaw     = errors.New("invalid raw record")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRawRecords validates a slice of raw records.
func validateRawRecords(records []model.RawRecord) error {
	if records == nil {
		return fmt.Errorf("%w: records", ErrNilParameter)
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: records", ErrEmptySlice)
	}
	for i, rec := range records {
		if rec.Dealership == "" {
			return fmt.Errorf("raw record at index %d: %w: missing dealership", i, ErrInvalidRaw)
		}
	}
	return nil
}

// validateVehicle validates a normalized record before persistence.
func validateVehicle(rec *model.NormalizedRecord) error {
	if rec == nil {
		return fmt.Errorf("%w: record", ErrNilParameter)
	}
	if len(rec.VIN) != 17 {
		return fmt.Errorf("%w: VIN must be 17 characters, got %d", ErrInvalidVehicle, len(rec.VIN))
	}
	if rec.Dealership == "" {
		return fmt.Errorf("%w: missing dealership", ErrInvalidVehicle)
	}
	if rec.Stock == "" {
		return fmt.Errorf("%w: missing stock number", ErrInvalidVehicle)
	}
	if rec.LastSeen.IsZero() {
		return fmt.Errorf("%w: missing last-seen date", ErrInvalidVehicle)
	}

	switch rec.Condition {
	case model.ConditionNew,
		model.ConditionUsed,
		model.ConditionCertified,
		model.ConditionOnLot,
		model.ConditionOffLot:
		// Valid condition
	default:
		return fmt.Errorf("%w: unknown condition %q", ErrInvalidVehicle, rec.Condition)
	}

	return nil
}

// validateHistoryEntries validates history entries before persistence.
func validateHistoryEntries(entries []model.HistoryEntry) error {
	if entries == nil {
		return fmt.Errorf("%w: entries", ErrNilParameter)
	}
	if len(entries) == 0 {
		return fmt.Errorf("%w: entries", ErrEmptySlice)
	}
	for i, e := range entries {
		if e.Dealership == "" {
			return fmt.Errorf("history entry at index %d: %w: missing dealership", i, ErrInvalidHistory)
		}
		if e.VIN == "" {
			return fmt.Errorf("history entry at index %d: %w: missing VIN", i, ErrInvalidHistory)
		}
		if e.OrderDate.IsZero() {
			return fmt.Errorf("history entry at index %d: %w: missing order date", i, ErrInvalidHistory)
		}
		switch e.Type {
		case model.TypeNew, model.TypeUsed, model.TypeCertified, model.TypeUnknown:
			// Valid type
		default:
			return fmt.Errorf("history entry at index %d: %w: unknown vehicle type %q", i, ErrInvalidHistory, e.Type)
		}
	}
	return nil
}
