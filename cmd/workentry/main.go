/*
main.go - Command-line entry point

PURPOSE:
  One binary for the service and its tooling:
    workentry serve                  HTTP API and scheduler
    workentry generate               Generate work entries for a window
    workentry scenario list|load|show Demo scenarios

STARTUP:
  Every command loads the configuration (--config, .env, WORKENTRY_*),
  builds the logrus logger and opens the SQLite store before running.

EXAMPLES:
  # Serve on the configured port with an in-memory database
  workentry serve --db ":memory:"

  # Generate one week for C1 and store it
  workentry generate --contract C1 --from 2022-02-14 --to 2022-02-18 --persist

  # Try a dataset file without touching the database
  workentry generate --dataset fixtures/week.yaml --from 2022-02-14 --to 2022-02-18

SEE ALSO:
  - config/config.go: Configuration
  - api/server.go: Router configuration
*/
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/warp/workentry-engine/config"
	"github.com/warp/workentry-engine/store/sqlite"
)

var (
	cfgPath string
	dbPath  string

	cfg    *config.Config
	logger *logrus.Logger
	store  *sqlite.Store
)

var rootCmd = &cobra.Command{
	Use:           "workentry",
	Short:         "Work-entry generation engine",
	Long:          `Turns contracts, working-time calendars, leaves and attendances into daily work entries.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if dbPath != "" {
			cfg.Database.Path = dbPath
		}

		logger, err = cfg.Log.NewLogger()
		if err != nil {
			return err
		}

		store, err = sqlite.New(cfg.Database.Path)
		if err != nil {
			return err
		}
		store.Configure(cfg.Engine.Settings())
		logger.WithField("db", cfg.Database.Path).Debug("Store opened")
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if store != nil {
			return store.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path, overrides the configuration (\":memory:\" for in-memory)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(scenarioCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}
