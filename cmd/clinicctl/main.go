// Package main is the clinicctl operations CLI. It runs the same resolution
// services as the API server against the configured stores and sources.
package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/clinicfinder/backend/internal/bootstrap"
	"github.com/clinicfinder/backend/internal/infrastructure/observability"
	"github.com/clinicfinder/backend/pkg/config"
)

var rootCmd = &cobra.Command{
	Use:   "clinicctl",
	Short: "Operate the clinic discovery backend",
	Long: `clinicctl runs clinic discovery operations from the command line: schema
migrations, nearby and cached lookups, geocoding and directions. Configuration
is read from the environment (and .env) exactly as the API server reads it.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().Bool("pretty", true, "indent JSON output")
}

// loadConfig reads configuration and sends logs to stderr so stdout stays JSON
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	observability.InitLoggerTo(os.Stderr, cfg.OTEL.ServiceName, cfg.Server.Env)
	return cfg, nil
}

// withApp builds the services, runs fn, and closes the app so background
// detail updates finish before exit.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *bootstrap.App) (interface{}, error)) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	app, err := bootstrap.New(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer app.Close()

	out, err := fn(ctx, app)
	if err != nil {
		return err
	}
	return printJSON(cmd, out)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if pretty, _ := cmd.Flags().GetBool("pretty"); pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
