package model

import "time"

// HistoryEntry is an immutable fact: dealership D processed VIN V as
// vehicle-type T on date X. Unique on (dealership, VIN, order date).
// These entries are the decision engine's only memory and are never
// mutated or deleted.
type HistoryEntry struct {
	OrderDate  time.Time
	Dealership string
	VIN        string
	Type       VehicleType
	ID         int64
}
