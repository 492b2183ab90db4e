package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andrapra-work/rag-system-api/db"
	"github.com/andrapra-work/rag-system-api/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long: `Applies the embedded schema migrations to the configured PostgreSQL
database. Safe to run repeatedly; already-applied migrations are skipped.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runMigrate()
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	fmt.Println("migrations applied")
	return nil
}
