package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clinicfinder/backend/internal/infrastructure/clients/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending clinics schema migrations",
	Long: `Migrate applies the embedded goose migrations to the PostgreSQL database
named by the DB_* variables and prints the resulting schema version.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Database.Driver != "postgres" {
			return fmt.Errorf("migrate requires DB_DRIVER=postgres, got %q", cfg.Database.Driver)
		}

		client, err := postgres.NewClient(&cfg.Database)
		if err != nil {
			return err
		}
		defer client.Close()

		ctx := cmd.Context()
		if statusOnly, _ := cmd.Flags().GetBool("status"); !statusOnly {
			if err := client.Migrate(ctx); err != nil {
				return err
			}
		}
		return printVersion(ctx, cmd, client)
	},
}

func printVersion(ctx context.Context, cmd *cobra.Command, client *postgres.Client) error {
	version, err := client.MigrationVersion(ctx)
	if err != nil {
		return err
	}
	return printJSON(cmd, map[string]int64{"version": version})
}

func init() {
	migrateCmd.Flags().Bool("status", false, "print the current version without migrating")

	rootCmd.AddCommand(migrateCmd)
}
