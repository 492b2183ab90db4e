// Package cmd contains the CLI entry points.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rag-api",
	Short: "Multi-tenant retrieval-augmented generation API",
	Long: `rag-api serves a JSON HTTP API for tenant-scoped document storage
and retrieval-augmented question answering on PostgreSQL with pgvector.

Running rag-api without a subcommand starts the HTTP server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
