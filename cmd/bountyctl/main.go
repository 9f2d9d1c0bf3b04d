// Package main implements bountyctl, the operator CLI for the bounty store.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/yukikurage/bounty-flow-api/internal/config"
	"github.com/yukikurage/bounty-flow-api/internal/database"
	"gorm.io/gorm"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "bountyctl",
	Short:        "Inspect and maintain the bounty store",
	SilenceUsage: true,
}

// openDB connects using the same configuration as the API server.
// Tests replace it with an in-memory database.
var openDB = func() (*gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := database.Connect(cfg); err != nil {
		return nil, err
	}
	return database.GetDB(), nil
}
