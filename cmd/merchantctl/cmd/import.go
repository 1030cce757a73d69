package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	pg "telegram-affiliate-bot/internal/infra/db/postgres"
	red "telegram-affiliate-bot/internal/infra/redis"
	"telegram-affiliate-bot/internal/usecase"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	var (
		input, country string
		dryRun         bool
	)
	c := &cobra.Command{
		Use:   "import",
		Short: "Import merchants from an affiliation or extracted export",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			recs, err := usecase.ExtractAffiliations(data, country)
			if err != nil {
				return err
			}

			ctx := c.Context()
			var im *usecase.MerchantImporter
			if dryRun {
				im = usecase.NewMerchantImporter(nil, nil, nil, logger)
			} else {
				if cfg.Database.URL == "" || cfg.Redis.URL == "" {
					return fmt.Errorf("database.url and redis.url are required to import")
				}
				db, err := pg.NewPgxPool(ctx, cfg.Database)
				if err != nil {
					return err
				}
				defer db.Close()
				rc, err := red.NewClient(ctx, &cfg.Redis)
				if err != nil {
					return fmt.Errorf("redis: %w", err)
				}
				defer rc.Close()

				repo := pg.NewMerchantRepoCacheDecorator(pg.NewPostgresMerchantRepo(db), rc, cfg.Redis.TTL, logger)
				im = usecase.NewMerchantImporter(repo, pg.NewTxManager(db), red.NewLocker(rc), logger)
			}

			rep, err := im.Import(ctx, recs, dryRun)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(c.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		},
	}
	c.Flags().StringVar(&input, "input", "", "path to the export file")
	c.Flags().StringVar(&country, "country", usecase.DefaultCountry, "country_filter to keep (empty for extracted files)")
	c.Flags().BoolVar(&dryRun, "dry-run", false, "validate and report without writing")
	_ = c.MarkFlagRequired("input")
	return c
}
