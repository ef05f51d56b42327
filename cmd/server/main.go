/*
main.go - Application entry point

PURPOSE:
  CLI for the simulation service. Loads configuration, opens the SQLite
  store, and either serves HTTP or runs a one-shot maintenance command.

COMMANDS:
  serve                         Start the HTTP server
  import-coefficients <file>    Upsert a CSV coefficient table
  seed <fixture.yaml>           Load dev attendances and coefficients
  token --sub X --role Y        Mint a bearer token for local testing

GLOBAL FLAGS:
  -c, --config   YAML config file (optional, env LIFECALLER_* always applies)

STARTUP SEQUENCE (serve):
  1. Load config, build logger
  2. Open SQLite store (auto-migrates)
  3. Connect Redis cache if redis.addr is set
  4. Build policy, service, handler, router
  5. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests (server.shutdown_timeout)
  3. Close cache and database connections

EXAMPLES:
  LIFECALLER_AUTH_SECRET=dev ./server serve
  ./server import-coefficients ./coeficientes.csv
  LIFECALLER_AUTH_SECRET=dev ./server token --sub calc --role calculista

SEE ALSO:
  - config/config.go: Keys and defaults
  - api/server.go: Router configuration
*/
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/lifecaller/simulator/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var cfgPath string

func main() {
	root := &cobra.Command{
		Use:           "lifecaller",
		Short:         "Loan-restructuring simulation service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to a YAML config file")

	root.AddCommand(
		newServeCmd(),
		newImportCmd(),
		newSeedCmd(),
		newTokenCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, newLogger(cfg.Log), nil
}

func newLogger(c config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(c.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if c.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Logger()
}
