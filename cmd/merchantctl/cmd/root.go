package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"telegram-affiliate-bot/internal/config"
	"telegram-affiliate-bot/internal/domain"
	"telegram-affiliate-bot/internal/domain/model"
	"telegram-affiliate-bot/internal/domain/ports/repository"
	pg "telegram-affiliate-bot/internal/infra/db/postgres"
	"telegram-affiliate-bot/internal/infra/logging"
	"telegram-affiliate-bot/internal/usecase"
)

type rootOptions struct {
	configPath string
	dev        bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "merchantctl",
		Short:         "Manage the affiliate merchant catalogue",
		Long:          "Extract merchants from affiliation exports, import them, and check search and link output offline.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "config.yaml", "path to YAML config file")
	root.PersistentFlags().BoolVar(&opts.dev, "dev", false, "developer mode (console logs)")

	root.AddCommand(newExtractCmd(opts))
	root.AddCommand(newImportCmd(opts))
	root.AddCommand(newSearchCmd(opts))
	root.AddCommand(newLinkCmd(opts))
	root.AddCommand(newTokenCmd(opts))
	return root
}

// Execute runs the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	return nil
}

func (o *rootOptions) load() (*config.Config, *zerolog.Logger, error) {
	cfg, err := config.ReadConfig(o.configPath, o.dev)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.NewWithWriter(cfg.Log, o.dev, os.Stderr), nil
}

// staticRepo serves merchants read from a file.
type staticRepo struct {
	byslug map[string]*model.Merchant
	order  []string
}

var _ repository.MerchantRepository = (*staticRepo)(nil)

func newStaticRepo(recs []usecase.ExtractedMerchant) *staticRepo {
	r := &staticRepo{byslug: map[string]*model.Merchant{}}
	for _, rec := range recs {
		m, err := rec.ToMerchant()
		if err != nil {
			continue
		}
		if _, ok := r.byslug[m.Slug]; !ok {
			r.order = append(r.order, m.Slug)
		}
		r.byslug[m.Slug] = m
	}
	return r
}

func (r *staticRepo) Upsert(ctx context.Context, tx repository.Tx, m *model.Merchant) error {
	return fmt.Errorf("%w: file catalogue is read-only", domain.ErrInvalidArgument)
}

func (r *staticRepo) FindBySlug(ctx context.Context, tx repository.Tx, slug string) (*model.Merchant, error) {
	m, ok := r.byslug[slug]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *staticRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Merchant, error) {
	out := make([]*model.Merchant, 0, len(r.order))
	for _, s := range r.order {
		cp := *r.byslug[s]
		out = append(out, &cp)
	}
	return out, nil
}

func (r *staticRepo) Delete(ctx context.Context, tx repository.Tx, slug string) error {
	return fmt.Errorf("%w: file catalogue is read-only", domain.ErrInvalidArgument)
}

// catalogueFlags selects where search and link read merchants from.
type catalogueFlags struct {
	input   string
	country string
}

func (f *catalogueFlags) bind(c *cobra.Command) {
	c.Flags().StringVar(&f.input, "input", "", "read merchants from an affiliation or extracted JSON file instead of Postgres")
	c.Flags().StringVar(&f.country, "country", "", "country_filter to keep when reading a raw export (empty keeps all)")
}

// open returns a merchant usecase over the file or the database, plus a closer.
func (f *catalogueFlags) open(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (usecase.MerchantUseCase, func(), error) {
	if f.input != "" {
		data, err := os.ReadFile(f.input)
		if err != nil {
			return nil, nil, fmt.Errorf("read input: %w", err)
		}
		recs, err := usecase.ExtractAffiliations(data, f.country)
		if err != nil {
			return nil, nil, err
		}
		return usecase.NewMerchantUseCase(newStaticRepo(recs), logger), func() {}, nil
	}
	if cfg.Database.URL == "" {
		return nil, nil, fmt.Errorf("database.url is not set; pass --input to work from a file")
	}
	db, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return usecase.NewMerchantUseCase(pg.NewPostgresMerchantRepo(db), logger), db.Close, nil
}
