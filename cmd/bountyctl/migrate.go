package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yukikurage/bounty-flow-api/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create tables and indexes and seed the task counter",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}

	if err := database.MigrateDatabase(db); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Migrations completed successfully")
	return nil
}
