package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lotsign/vinflow/internal/normalize"
)

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history [vin]",
		Short: "Show the processing ledger for a VIN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vin := strings.ToUpper(strings.TrimSpace(args[0]))
			if !normalize.ValidVIN(vin) {
				return fmt.Errorf("invalid VIN %q: want exactly 17 alphanumeric characters", args[0])
			}

			store, err := openStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ctx := cmd.Context()
			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}

			entries, err := store.GetHistoryForVIN(ctx, vin)
			if err != nil {
				return err
			}

			for _, e := range entries {
				slog.Info("History entry",
					"dealership", e.Dealership,
					"type", e.Type,
					"order_date", e.OrderDate.Format("2006-01-02"))
			}
			slog.Info("History for VIN", "vin", vin, "entries", len(entries))
			return nil
		},
	}
}
