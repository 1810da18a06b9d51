package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/repository/postgres"
	redisrepo "github.com/utafrali/storefront/internal/repository/redis"
	"github.com/utafrali/storefront/internal/seed"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/database"
)

func newSeedCmd(cc *cliContext) *cobra.Command {
	var (
		file   string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert catalog products from a YAML file",
		Long: `Insert catalog products from a YAML file of the form

  products:
    - title: Банка тушенки
      description: Говядина тушёная
      price: 300        # major units
      quantity_left: 12
      logo: https://example.com/can.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fh, err := os.Open(file)
			if err != nil {
				return err
			}
			defer fh.Close()

			f, err := seed.Parse(fh)
			if err != nil {
				return err
			}
			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "%d products are valid\n", len(f.Products))
				return nil
			}

			ctx := cmd.Context()
			pgCfg := cc.cfg.Postgres()
			pool, err := database.NewPostgresPool(ctx, &pgCfg, cc.logger)
			if err != nil {
				return fmt.Errorf("connect to postgres: %w", err)
			}
			defer pool.Close()

			rdb, err := database.NewRedisClient(ctx, cc.cfg.Redis())
			if err != nil {
				return fmt.Errorf("connect to redis: %w", err)
			}
			defer rdb.Close()

			products := service.NewProductService(
				postgres.NewProductRepository(pool),
				redisrepo.NewCatalogCache(rdb, cc.cfg.CatalogCacheTTL, prometheus.NewRegistry()),
				event.Nop{},
				cc.logger,
				cc.cfg.CatalogPerPage,
			)

			n, err := seed.Apply(ctx, products, f, cc.logger)
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d products created\n", n, len(f.Products))
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "catalog.yaml", "seed file to load")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the file without writing")
	return cmd
}
