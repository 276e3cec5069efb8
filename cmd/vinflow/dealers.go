package main

import (
	"log/slog"
	"sort"

	"github.com/spf13/cobra"
)

func dealersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dealers",
		Short: "List configured dealerships",
		RunE: func(_ *cobra.Command, _ []string) error {
			dealers, err := loadDealers()
			if err != nil {
				return err
			}

			names := make([]string, 0, len(dealers))
			for name := range dealers {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				cfg := dealers[name]
				slog.Info("Dealership",
					"name", cfg.Name,
					"active", cfg.Active,
					"excluded_conditions", cfg.ExcludedConditions,
					"min_price", cfg.MinPrice,
					"min_year", cfg.MinYear,
					"require_stock", cfg.RequireStock)
			}

			slog.Info("Dealerships configured", "count", len(dealers))
			return nil
		},
	}
}
