package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/rd-classifier/internal/service"
	"github.com/Veraticus/rd-classifier/internal/storage"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the store's database schema to the latest version.
Other commands migrate on open; this one reports what it did.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			out := cmd.OutOrStdout()
			v, ok := store.ConfigStore.(schemaVersioner)
			if !ok {
				if _, isDB := store.ConfigStore.(service.Storage); isDB {
					fmt.Fprintf(out, "Migrations applied to the %s store\n", store.driver)
				} else {
					fmt.Fprintf(out, "The %s store has no schema to migrate\n", store.driver)
				}
				return nil
			}
			version, err := v.SchemaVersion(ctx)
			if err != nil {
				return fmt.Errorf("failed to read schema version: %w", err)
			}
			slog.Debug("Schema version", "current", version, "expected", storage.ExpectedSchemaVersion)
			fmt.Fprintf(out, "Database schema is at version %d of %d\n", version, storage.ExpectedSchemaVersion)
			return nil
		},
	}
	return cmd
}
