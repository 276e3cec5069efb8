package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func pruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old raw audit rows",
		Long: `Delete raw audit-log rows imported before the given date. Only the raw
log is touched; normalized inventory and the VIN history ledger are never
pruned.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			beforeStr, _ := cmd.Flags().GetString("before")
			if beforeStr == "" {
				return fmt.Errorf("--before is required")
			}

			before, err := parseDateFlag(beforeStr)
			if err != nil {
				return err
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

			deleted, err := store.PruneRawRecords(ctx, before)
			if err != nil {
				return err
			}

			slog.Info("Pruned raw records",
				"before", before.Format("2006-01-02"),
				"deleted", deleted)
			return nil
		},
	}

	cmd.Flags().String("before", "", "delete raw rows imported before this date (YYYY-MM-DD)")

	return cmd
}
