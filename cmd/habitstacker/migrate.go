package main

import (
	"github.com/spf13/cobra"

	"habit-stacker-backend/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := db.Migrate(conn); err != nil {
			return err
		}
		appLog.Info("Schema is up to date", "driver", cfg.DBDriver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
