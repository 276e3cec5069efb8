// Package export defines the boundary to the QR/file-export collaborator.
// The core emits processed vehicles with their expected QR paths; checking
// file existence and building vendor files is the collaborator's problem.
package export

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lotsign/vinflow/internal/model"
)

// Item is one processed vehicle handed to the export collaborator.
type Item struct {
	VIN            string
	Stock          string
	Make           string
	Model          string
	Trim           string
	Condition      model.Condition
	ExpectedQRPath string
	Year           int
	Price          float64
}

// Sink consumes the processed set of a job run.
type Sink interface {
	Emit(ctx context.Context, dealership string, items []Item) error
}

// QRPath expands a dealership's QR path template for one vehicle. Recognized
// placeholders: {dealer}, {vin}, {stock}.
func QRPath(template, dealership, vin, stock string) string {
	if template == "" {
		return ""
	}
	r := strings.NewReplacer(
		"{dealer}", dealership,
		"{vin}", vin,
		"{stock}", stock,
	)
	return r.Replace(template)
}

// NewItem builds an export item from a normalized record and the
// dealership's QR path template.
func NewItem(rec *model.NormalizedRecord, template string) Item {
	return Item{
		VIN:            rec.VIN,
		Stock:          rec.Stock,
		Year:           rec.Year,
		Make:           rec.Make,
		Model:          rec.Model,
		Trim:           rec.Trim,
		Price:          rec.Price,
		Condition:      rec.Condition,
		ExpectedQRPath: QRPath(template, rec.Dealership, rec.VIN, rec.Stock),
	}
}

// LogSink logs emitted items instead of delivering them anywhere. It stands
// in for the real collaborator in dry runs and tests.
type LogSink struct{}

// Emit logs each item at debug level and the batch at info level.
func (LogSink) Emit(_ context.Context, dealership string, items []Item) error {
	for _, item := range items {
		slog.Debug("Export item",
			"dealership", dealership,
			"vin", item.VIN,
			"stock", item.Stock,
			"condition", item.Condition,
			"qr_path", item.ExpectedQRPath)
	}
	slog.Info("Emitted processed vehicles", "dealership", dealership, "count", len(items))
	return nil
}
