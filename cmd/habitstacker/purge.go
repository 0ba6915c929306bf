package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"habit-stacker-backend/db"
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Permanently remove soft deleted habits and areas",
	Long: `Deleting a habit or area through the API only marks it deleted.
Purge removes those rows for good, together with their rules, completions
and area links. It is safe to run on a schedule.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := db.NewStore(conn).PurgeSoftDeleted(cmd.Context())
		if err != nil {
			return err
		}
		appLog.Info("Purged soft deleted rows", "habits", res.Habits, "areas", res.Areas)
		fmt.Fprintf(cmd.OutOrStdout(), "purged %d habits, %d areas\n", res.Habits, res.Areas)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(purgeCmd)
}
