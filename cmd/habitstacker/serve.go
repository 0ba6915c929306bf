package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"habit-stacker-backend/db"
	"habit-stacker-backend/internal/auth"
	"habit-stacker-backend/internal/server"
)

var serveSkipMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !serveSkipMigrate {
			if err := db.Migrate(conn); err != nil {
				return err
			}
		}
		if cfg.GoogleClientID == "" {
			appLog.Warn("GOOGLE_CLIENT_ID not set, sign in is disabled")
		}
		auth.NewAuth(cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.NewServer(cfg, db.NewStore(conn), appLog).ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveSkipMigrate, "skip-migrate", false, "do not migrate the schema on startup")
	rootCmd.AddCommand(serveCmd)
}
