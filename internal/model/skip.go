package model

// SkipReason explains why a raw row was not normalized. Row-level skips are
// counted per batch and never abort an import.
type SkipReason string

// Skip reason constants.
const (
	// SkipNone marks a row that was normalized successfully.
	SkipNone SkipReason = ""
	// SkipInvalidVIN marks a missing or malformed VIN.
	SkipInvalidVIN SkipReason = "invalid_vin"
	// SkipMissingField marks a blank required field (VIN, stock, dealership).
	SkipMissingField SkipReason = "missing_field"
	// SkipWrongDealership marks a row tagged for another dealership on a
	// multi-dealership feed.
	SkipWrongDealership SkipReason = "wrong_dealership"
	// SkipTypeFilter marks a condition excluded by the dealership config.
	SkipTypeFilter SkipReason = "type_filter"
)
