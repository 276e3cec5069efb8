// Package ingest reads daily inventory snapshots and drives the normalizer
// and inventory store. The snapshot files come from the scraping
// collaborator as CSV, one row per vehicle sighting.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/lotsign/vinflow/internal/model"
)

// headerAliases maps the column names seen across dealership feeds to
// canonical field keys. Matching is case-insensitive.
var headerAliases = map[string]string{
	"vin":            "vin",
	"stock":          "stock",
	"stock_number":   "stock",
	"stocknumber":    "stock",
	"type":           "type",
	"vehicle_type":   "type",
	"condition":      "type",
	"status":         "status",
	"vehicle_status": "status",
	"year":           "year",
	"make":           "make",
	"model":          "model",
	"trim":           "trim",
	"price":          "price",
	"msrp":           "msrp",
	"dealership":     "dealership",
	"dealer":         "dealership",
	"dealer_name":    "dealership",
	"location":       "location",
	"date_scraped":   "source_time",
	"scraped_at":     "source_time",
}

// ReadSnapshot parses a CSV snapshot into raw records. Rows keep whatever
// the feed said; validation happens in the normalizer, not here. Rows whose
// dealership column is blank inherit the fallback dealership.
func ReadSnapshot(r io.Reader, fallbackDealership string) ([]model.RawRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if canonical, ok := headerAliases[key]; ok {
			cols[canonical] = i
		}
	}
	if _, ok := cols["vin"]; !ok {
		return nil, fmt.Errorf("snapshot has no vin column (header: %v)", header)
	}

	field := func(row []string, key string) string {
		i, ok := cols[key]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []model.RawRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read snapshot row: %w", err)
		}

		rec := model.RawRecord{
			VIN:        field(row, "vin"),
			Stock:      field(row, "stock"),
			RawType:    field(row, "type"),
			RawStatus:  field(row, "status"),
			Make:       field(row, "make"),
			Model:      field(row, "model"),
			Trim:       field(row, "trim"),
			Dealership: field(row, "dealership"),
			Location:   field(row, "location"),
			Year:       parseIntField(field(row, "year")),
			Price:      parseMoney(field(row, "price")),
			MSRP:       parseMoney(field(row, "msrp")),
		}

		if rec.Dealership == "" {
			rec.Dealership = fallbackDealership
		}
		if ts := field(row, "source_time"); ts != "" {
			if parsed, perr := parseTimestamp(ts); perr == nil {
				rec.SourceTime = parsed
			}
		}

		records = append(records, rec)
	}

	return records, nil
}

func parseIntField(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// parseMoney tolerates the "$28,995.00" formatting dealership sites use.
func parseMoney(s string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '$', ',', ' ':
			return -1
		}
		return r
	}, s)
	if cleaned == "" {
		return 0
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
