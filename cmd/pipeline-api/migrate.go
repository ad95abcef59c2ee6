package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hiring-pipeline/internal/common/database"
	"hiring-pipeline/internal/search"
	"hiring-pipeline/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the candidates table in PostgreSQL and the search index",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newBase()
		if err != nil {
			return err
		}
		defer a.Close()

		pg, err := a.openPostgres(ctx)
		if err != nil {
			return err
		}
		if err := storage.Migrate(ctx, pg.DB); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		if a.cfg.Pipeline.SearchEnabled {
			es, err := database.NewElasticsearch(ctx, a.cfg.Database.Elasticsearch)
			if err != nil {
				return fmt.Errorf("elasticsearch failed: %w", err)
			}
			if err := search.NewIndexer(es, a.cfg.Pipeline.SearchIndex).EnsureIndex(ctx); err != nil {
				return fmt.Errorf("search index migration failed: %w", err)
			}
		}
		a.log.Info("Migration complete", nil)
		return nil
	},
}
