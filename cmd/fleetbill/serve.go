package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/fleetbill/bootstrap"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the reporting API server",
	Long: `Start the FleetBill reporting server.

The server will:
  - Load configuration from fleetbill.yaml (or --config)
  - Or load configuration from FLEETBILL_* environment variables
  - Connect to the database and seed configured plans
  - Serve the read-only reporting API (/plans, /bills/{id}/summary, ...)

Environment variables (for Docker deployments):
  FLEETBILL_DATABASE_DSN    - Database path (default: fleetbill.db)
  FLEETBILL_SERVER_PORT     - Server port (default: 8080)
  FLEETBILL_LOG_LEVEL       - Log level: debug, info, warn, error
  FLEETBILL_METRICS_ENABLED - Expose /metrics

Examples:
  fleetbill serve
  fleetbill serve --config /etc/fleetbill/config.yaml
  fleetbill serve --hot-reload=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	hasConfigFile := false
	if _, err := os.Stat(cfgFile); err == nil {
		hasConfigFile = true
	}

	var app *bootstrap.App
	var err error

	if hasConfigFile && hotReload {
		// Hot reload only works with a config file
		app, err = bootstrap.NewWithHotReload(cfgFile)
	} else {
		cfg, loadErr := loadConfig()
		if loadErr != nil {
			return loadErr
		}
		if !hasConfigFile {
			fmt.Println("Running with environment variables (no config file)")
		}
		app, err = bootstrap.New(cfg)
	}
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}
