package ingest

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lotsign/vinflow/internal/model"
	"github.com/lotsign/vinflow/internal/storage"
)

func TestReadSnapshot(t *testing.T) {
	csv := `VIN,Stock_Number,Type,Status,Year,Make,Model,Trim,Price,MSRP,Dealer,Date_Scraped
1HGCM82633A004352,H1234,Certified Pre-Owned,In Stock,2021,Honda,Accord,EX-L,"$24,995.00","$27,500",Sunset Honda,2024-03-10
5YJSA1DG9DFP14705,T9876,Used,In Transit,2013,Tesla,Model S,,41000,,,
`
	records, err := ReadSnapshot(strings.NewReader(csv), "Fallback Motors")
	if err != nil {
		t.Fatalf("ReadSnapshot failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first.VIN != "1HGCM82633A004352" {
		t.Errorf("VIN = %q", first.VIN)
	}
	if first.Stock != "H1234" {
		t.Errorf("Stock = %q", first.Stock)
	}
	if first.RawType != "Certified Pre-Owned" {
		t.Errorf("RawType = %q", first.RawType)
	}
	if first.Price != 24995 {
		t.Errorf("Price = %v, want 24995", first.Price)
	}
	if first.MSRP != 27500 {
		t.Errorf("MSRP = %v, want 27500", first.MSRP)
	}
	if first.Dealership != "Sunset Honda" {
		t.Errorf("Dealership = %q", first.Dealership)
	}
	if !first.SourceTime.Equal(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("SourceTime = %v", first.SourceTime)
	}

	second := records[1]
	if second.Dealership != "Fallback Motors" {
		t.Errorf("Blank dealership should inherit fallback, got %q", second.Dealership)
	}
	if second.Year != 2013 {
		t.Errorf("Year = %d", second.Year)
	}
	if second.Price != 41000 {
		t.Errorf("Price = %v", second.Price)
	}
}

func TestReadSnapshotMissingVINColumn(t *testing.T) {
	csv := "stock,year\nH1234,2021\n"
	_, err := ReadSnapshot(strings.NewReader(csv), "")
	if err == nil {
		t.Fatal("Expected error for snapshot without vin column")
	}
}

func TestParseMoney(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"$28,995.00", 28995},
		{"28995", 28995},
		{"$ 1,250", 1250},
		{"", 0},
		{"Call for price", 0},
	}

	for _, tt := range tests {
		if got := parseMoney(tt.input); got != tt.want {
			t.Errorf("parseMoney(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestImportBatch(t *testing.T) {
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	cfg := &model.DealershipConfig{
		Name:   "Sunset Honda",
		Active: true,
	}
	batchDate := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	// A multi-dealership feed: one good row, one for another store, one
	// with a bad VIN, one missing its stock number.
	rows := []model.RawRecord{
		{VIN: "1hgcm82633a004352", Stock: "H1", RawType: "New", Dealership: "Sunset Honda"},
		{VIN: "5YJSA1DG9DFP14705", Stock: "T1", RawType: "Used", Dealership: "Sunset Honda",
			Location: "Downtown Toyota"},
		{VIN: "SHORT", Stock: "H2", RawType: "New", Dealership: "Sunset Honda"},
		{VIN: "JH4KA7660MC000000", Stock: "", RawType: "Used", Dealership: "Sunset Honda"},
	}

	var ticks int
	result, err := NewImporter(store).ImportBatch(ctx, rows, cfg, batchDate, func() { ticks++ })
	if err != nil {
		t.Fatalf("ImportBatch failed: %v", err)
	}

	if result.Imported != 1 {
		t.Errorf("Imported = %d, want 1", result.Imported)
	}
	if result.Skipped != 3 {
		t.Errorf("Skipped = %d, want 3", result.Skipped)
	}
	if result.SkipReasons[model.SkipWrongDealership] != 1 {
		t.Errorf("wrong_dealership count = %d, want 1", result.SkipReasons[model.SkipWrongDealership])
	}
	if result.SkipReasons[model.SkipInvalidVIN] != 1 {
		t.Errorf("invalid_vin count = %d, want 1", result.SkipReasons[model.SkipInvalidVIN])
	}
	if result.SkipReasons[model.SkipMissingField] != 1 {
		t.Errorf("missing_field count = %d, want 1", result.SkipReasons[model.SkipMissingField])
	}
	if ticks != len(rows) {
		t.Errorf("Progress fired %d times, want %d", ticks, len(rows))
	}

	// Every row, skipped or not, reached the audit log.
	rawCount, err := store.GetRawRecordCount(ctx)
	if err != nil {
		t.Fatalf("GetRawRecordCount failed: %v", err)
	}
	if rawCount != len(rows) {
		t.Errorf("Raw record count = %d, want %d", rawCount, len(rows))
	}

	// The surviving row was upserted with an uppercased VIN.
	vehicle, err := store.GetVehicle(ctx, "Sunset Honda", "1HGCM82633A004352")
	if err != nil {
		t.Fatalf("GetVehicle failed: %v", err)
	}
	if vehicle.Condition != model.ConditionNew {
		t.Errorf("Condition = %q, want new", vehicle.Condition)
	}
	if vehicle.ScanCount != 1 {
		t.Errorf("ScanCount = %d, want 1", vehicle.ScanCount)
	}
}
