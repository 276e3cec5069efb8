package normalize

import (
	"testing"
	"time"

	"github.com/lotsign/vinflow/internal/model"
)

var batchDate = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func testConfig() *model.DealershipConfig {
	return &model.DealershipConfig{
		Name:   "Sunset Honda",
		Active: true,
	}
}

func validRaw() model.RawRecord {
	return model.RawRecord{
		VIN:        "1hgcm82633a004352",
		Stock:      "H1234",
		RawType:    "Used",
		RawStatus:  "In Stock",
		Year:       2021,
		Make:       "Honda",
		Model:      "Accord",
		Trim:       "EX-L",
		Price:      24995,
		MSRP:       27500,
		Dealership: "Sunset Honda",
	}
}

func TestMapCondition(t *testing.T) {
	tests := []struct {
		rawType   string
		rawStatus string
		want      model.Condition
	}{
		{"Certified Pre-Owned", "", model.ConditionCertified},
		{"CPO", "In Stock", model.ConditionCertified},
		{"New", "", model.ConditionNew},
		{"NEW", "In Transit", model.ConditionNew},
		{"Used", "", model.ConditionUsed},
		{"Pre-Owned", "", model.ConditionUsed},
		{"preowned special", "", model.ConditionUsed},
		{"", "In Transit", model.ConditionOffLot},
		{"", "Arriving Soon", model.ConditionOffLot},
		{"", "On Order", model.ConditionOffLot},
		{"", "", model.ConditionOnLot},
		{"Demo Vehicle", "Available", model.ConditionOnLot},
	}

	for _, tt := range tests {
		got := MapCondition(tt.rawType, tt.rawStatus)
		if got != tt.want {
			t.Errorf("MapCondition(%q, %q) = %q, want %q", tt.rawType, tt.rawStatus, got, tt.want)
		}
	}
}

func TestValidVIN(t *testing.T) {
	tests := []struct {
		vin  string
		want bool
	}{
		{"1HGCM82633A004352", true},
		{"1hgcm82633a004352", true},
		{"", false},
		{"1HGCM82633A00435", false},   // 16 chars
		{"1HGCM82633A0043522", false}, // 18 chars
		{"1HGCM82633A00435!", false},  // non-alphanumeric
		{"1HGCM82633A 04352", false},  // embedded space
	}

	for _, tt := range tests {
		if got := ValidVIN(tt.vin); got != tt.want {
			t.Errorf("ValidVIN(%q) = %v, want %v", tt.vin, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*model.RawRecord)
		cfg      *model.DealershipConfig
		wantSkip model.SkipReason
	}{
		{
			name:     "valid row imports",
			mutate:   func(_ *model.RawRecord) {},
			cfg:      testConfig(),
			wantSkip: model.SkipNone,
		},
		{
			name:     "missing vin",
			mutate:   func(r *model.RawRecord) { r.VIN = "" },
			cfg:      testConfig(),
			wantSkip: model.SkipInvalidVIN,
		},
		{
			name:     "short vin",
			mutate:   func(r *model.RawRecord) { r.VIN = "ABC123" },
			cfg:      testConfig(),
			wantSkip: model.SkipInvalidVIN,
		},
		{
			name:     "blank stock",
			mutate:   func(r *model.RawRecord) { r.Stock = "  " },
			cfg:      testConfig(),
			wantSkip: model.SkipMissingField,
		},
		{
			name:     "blank dealership",
			mutate:   func(r *model.RawRecord) { r.Dealership = "" },
			cfg:      testConfig(),
			wantSkip: model.SkipMissingField,
		},
		{
			name:     "wrong dealership on multi-dealer feed",
			mutate:   func(r *model.RawRecord) { r.Location = "Downtown Toyota" },
			cfg:      testConfig(),
			wantSkip: model.SkipWrongDealership,
		},
		{
			name:     "matching location imports",
			mutate:   func(r *model.RawRecord) { r.Location = "sunset honda" },
			cfg:      testConfig(),
			wantSkip: model.SkipNone,
		},
		{
			name:   "excluded condition",
			mutate: func(r *model.RawRecord) { r.RawType = "Used" },
			cfg: &model.DealershipConfig{
				Name:               "Sunset Honda",
				Active:             true,
				ExcludedConditions: []model.Condition{model.ConditionUsed},
			},
			wantSkip: model.SkipTypeFilter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRaw()
			tt.mutate(&raw)

			rec, skip := Normalize(raw, tt.cfg, "Sunset Honda", batchDate)
			if skip != tt.wantSkip {
				t.Fatalf("Normalize() skip = %q, want %q", skip, tt.wantSkip)
			}
			if tt.wantSkip != model.SkipNone {
				return
			}

			if rec.VIN != "1HGCM82633A004352" {
				t.Errorf("VIN not uppercased: %q", rec.VIN)
			}
			if rec.ScanCount != 1 {
				t.Errorf("ScanCount = %d, want 1", rec.ScanCount)
			}
			if !rec.LastSeen.Equal(batchDate) {
				t.Errorf("LastSeen = %v, want %v", rec.LastSeen, batchDate)
			}
		})
	}
}
