package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/spec-kit/coverage-service/internal/persistence"
	"github.com/spec-kit/coverage-service/migrations"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply bundled SQL migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			pg, err := persistence.NewPostgres(cmd.Context(), cfg.Postgres, logger)
			if err != nil {
				return err
			}
			defer pg.Close()
			if pg.PoolHandle() == nil {
				return errors.New("POSTGRES_DSN is required to migrate")
			}
			return persistence.RunMigrations(cmd.Context(), pg.PoolHandle(), migrations.Files, logger)
		},
	}
}
