package main

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"habit-stacker-backend/db"
	"habit-stacker-backend/internal/config"
	"habit-stacker-backend/internal/logger"
)

var (
	envFiles []string
	logLevel string

	cfg    config.Config
	appLog *log.Logger
	conn   *gorm.DB
)

var rootCmd = &cobra.Command{
	Use:   "habitstacker",
	Short: "Habit tracking backend",
	Long: `Habitstacker serves the habit tracking API: habits with weekly
recurrence rules, per-day completions, streaks and insight messages.

COMMANDS:

  $ habitstacker serve     # Run the HTTP API
  $ habitstacker migrate   # Create or update the schema
  $ habitstacker purge     # Drop soft deleted habits and areas for good

CONFIGURATION:

  Settings come from the environment, optionally seeded from .env files.
  DB_DRIVER picks "postgres" (DB_HOST, DB_USER, DB_PASSWORD, DB_NAME,
  DB_PORT) or "sqlite" (SQLITE_PATH).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load(envFiles...)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		appLog = logger.Init(cfg.LogLevel)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		conn, err = db.ConnectDB(cfg)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if conn == nil {
			return nil
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "env files to load before reading the environment (default .env)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
}
