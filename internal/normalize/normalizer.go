// Package normalize maps raw inventory rows into canonical vehicle records.
package normalize

import (
	"regexp"
	"strings"
	"time"

	"github.com/lotsign/vinflow/internal/model"
)

var vinPattern = regexp.MustCompile(`^[A-Za-z0-9]{17}$`)

// ValidVIN reports whether s is exactly 17 alphanumeric characters.
func ValidVIN(s string) bool {
	return vinPattern.MatchString(s)
}

// conditionRule maps a raw-text substring to a canonical condition. Rules are
// evaluated in order; the first match wins.
type conditionRule struct {
	substr string
	cond   model.Condition
}

// Type text is checked before status text, so "Certified Pre-Owned" beats an
// "In Transit" status tag.
var typeRules = []conditionRule{
	{"certified", model.ConditionCertified},
	{"cpo", model.ConditionCertified},
	{"new", model.ConditionNew},
	{"pre-owned", model.ConditionUsed},
	{"preowned", model.ConditionUsed},
	{"used", model.ConditionUsed},
}

var statusRules = []conditionRule{
	{"in transit", model.ConditionOffLot},
	{"in-transit", model.ConditionOffLot},
	{"arriving", model.ConditionOffLot},
	{"on order", model.ConditionOffLot},
}

// MapCondition canonicalizes raw type/status text. The mapping is total:
// every input resolves to exactly one condition, defaulting to on_lot.
func MapCondition(rawType, rawStatus string) model.Condition {
	t := strings.ToLower(strings.TrimSpace(rawType))
	for _, r := range typeRules {
		if strings.Contains(t, r.substr) {
			return r.cond
		}
	}

	s := strings.ToLower(strings.TrimSpace(rawStatus))
	for _, r := range statusRules {
		if strings.Contains(s, r.substr) {
			return r.cond
		}
	}

	return model.ConditionOnLot
}

// Normalize maps a raw row into a canonical record for the target dealership.
// It is pure: callers own the inventory upsert. A non-empty SkipReason means
// the row was rejected, which is counted, not an error.
func Normalize(raw model.RawRecord, cfg *model.DealershipConfig, target string, batchDate time.Time) (model.NormalizedRecord, model.SkipReason) {
	vin := strings.ToUpper(strings.TrimSpace(raw.VIN))
	if !ValidVIN(vin) {
		return model.NormalizedRecord{}, model.SkipInvalidVIN
	}

	stock := strings.TrimSpace(raw.Stock)
	dealership := strings.TrimSpace(raw.Dealership)
	if stock == "" || dealership == "" {
		return model.NormalizedRecord{}, model.SkipMissingField
	}

	// A populated location column marks a multi-dealership feed; only rows
	// tagged for the target dealership are ours.
	if loc := strings.TrimSpace(raw.Location); loc != "" && !strings.EqualFold(loc, target) {
		return model.NormalizedRecord{}, model.SkipWrongDealership
	}

	cond := MapCondition(raw.RawType, raw.RawStatus)
	if cfg.Excludes(cond) {
		return model.NormalizedRecord{}, model.SkipTypeFilter
	}

	return model.NormalizedRecord{
		VIN:        vin,
		Stock:      stock,
		Condition:  cond,
		Year:       raw.Year,
		Make:       strings.TrimSpace(raw.Make),
		Model:      strings.TrimSpace(raw.Model),
		Trim:       strings.TrimSpace(raw.Trim),
		Price:      raw.Price,
		MSRP:       raw.MSRP,
		Dealership: dealership,
		LastSeen:   batchDate,
		ScanCount:  1,
	}, model.SkipNone
}
