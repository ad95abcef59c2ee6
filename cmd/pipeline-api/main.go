// Command pipeline-api serves the candidate pipeline API and runs its
// supporting jobs (schema migration, bulk import).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "hiring-pipeline/docs"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "pipeline-api",
	Short:         "Candidate pipeline manager",
	Long:          "Tracks candidates through the hiring pipeline for many organizations: stages, scores, notes and timeline.",
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a config file (defaults to configs/config.yaml)")
	rootCmd.AddCommand(serveCmd, migrateCmd, importCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
