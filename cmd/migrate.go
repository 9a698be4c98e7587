package cmd

import (
	"fmt"

	"github.com/neo/personasim/internal/database"
	"github.com/spf13/cobra"
)

var migrateStatus bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the local datastore schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.New(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Database migrations completed successfully (%s)\n", db.Path())

		if migrateStatus {
			applied, err := db.AppliedMigrations()
			if err != nil {
				return err
			}
			for _, m := range applied {
				fmt.Fprintf(out, "  %03d %-32s %s\n", m.ID, m.Name, m.AppliedAt.Format("2006-01-02 15:04:05"))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "list applied migrations")
}
