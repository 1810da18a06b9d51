package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/utafrali/storefront/migrations"
	"github.com/utafrali/storefront/pkg/database"
)

func newMigrateCmd(cc *cliContext) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if list {
				names, err := database.PendingMigrations(migrations.FS)
				if err != nil {
					return err
				}
				for _, n := range names {
					fmt.Fprintln(cmd.OutOrStdout(), n)
				}
				return nil
			}

			pgCfg := cc.cfg.Postgres()
			pool, err := database.NewPostgresPool(cmd.Context(), &pgCfg, cc.logger)
			if err != nil {
				return fmt.Errorf("connect to postgres: %w", err)
			}
			defer pool.Close()

			if err := database.RunMigrations(cmd.Context(), pool, migrations.FS, cc.logger); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "print the embedded migration files without connecting")
	return cmd
}
