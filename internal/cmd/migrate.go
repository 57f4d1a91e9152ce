package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/tailqueue/core/config"
	"github.com/dmitrymomot/tailqueue/integration/database/pg"
	"github.com/dmitrymomot/tailqueue/integration/tailqueue/pgstore"
)

func newMigrateCommand(a *app) *cobra.Command {
	var appMigrations bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the PostgreSQL positions table",
		Long: "migrate applies the embedded positions migration. With --app it also applies " +
			"application migrations from PG_MIGRATIONS_PATH.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var cfg pg.Config
			if err := config.Load(&cfg); err != nil {
				return err
			}
			pool, err := pg.Connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := pgstore.Migrate(ctx, pool, a.log); err != nil {
				return err
			}
			if appMigrations {
				if err := pg.Migrate(ctx, pool, cfg, a.log); err != nil {
					return err
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}

	cmd.Flags().BoolVar(&appMigrations, "app", false, "also apply migrations from PG_MIGRATIONS_PATH")
	return cmd
}
