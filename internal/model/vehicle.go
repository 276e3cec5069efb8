// Package model defines the core domain models used throughout the application.
package model

import "time"

// Condition is the canonical inventory bucket derived from raw type/status text.
type Condition string

// Condition constants.
const (
	ConditionNew       Condition = "new"
	ConditionUsed      Condition = "used"
	ConditionCertified Condition = "certified"
	ConditionOnLot     Condition = "on_lot"
	ConditionOffLot    Condition = "off_lot"
)

// VehicleType is the collapsed condition used for history comparisons.
// Certified variants merge to CERTIFIED; anything unmatched is UNKNOWN,
// and two UNKNOWN values compare equal.
type VehicleType string

// VehicleType constants.
const (
	TypeNew       VehicleType = "NEW"
	TypeUsed      VehicleType = "USED"
	TypeCertified VehicleType = "CERTIFIED"
	TypeUnknown   VehicleType = "UNKNOWN"
)

// VehicleType collapses a condition into its comparison bucket.
func (c Condition) VehicleType() VehicleType {
	switch c {
	case ConditionNew:
		return TypeNew
	case ConditionUsed:
		return TypeUsed
	case ConditionCertified:
		return TypeCertified
	case ConditionOnLot, ConditionOffLot:
		return TypeUnknown
	default:
		return TypeUnknown
	}
}

// RawRecord is one scraped sighting of a vehicle at a dealership on a given
// day, exactly as the acquisition collaborator handed it over. Rows are
// append-only; only retention cleanup ever removes them.
type RawRecord struct {
	SourceTime time.Time
	VIN        string // unvalidated
	Stock      string
	RawType    string // e.g. "Certified Pre-Owned", "New"
	RawStatus  string // e.g. "In Stock", "In Transit"
	Make       string
	Model      string
	Trim       string
	Dealership string
	Location   string // dealer tag on multi-dealership feeds; may be blank
	Year       int
	Price      float64
	MSRP       float64
}

// NormalizedRecord is the current best-known state of a vehicle at a
// dealership. Exactly one row exists per (VIN, dealership); re-imports
// upsert it rather than duplicating.
type NormalizedRecord struct {
	LastSeen   time.Time
	VIN        string // validated, 17 characters
	Stock      string
	Condition  Condition
	Make       string
	Model      string
	Trim       string
	Dealership string
	Year       int
	Price      float64
	MSRP       float64
	ScanCount  int
}
