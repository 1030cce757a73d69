package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"telegram-affiliate-bot/internal/domain"
	"telegram-affiliate-bot/internal/domain/model"
	"telegram-affiliate-bot/internal/domain/ports/repository"
	"telegram-affiliate-bot/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ MerchantUseCase = (*merchantUC)(nil)

// MerchantUseCase reads the merchant reference set and runs searches over it.
type MerchantUseCase interface {
	// Search matches term against all merchants and returns at most limit results.
	// An empty term yields the top-rated merchants with a zero MatchScore.
	Search(ctx context.Context, term string, limit int) ([]model.SearchCandidate, error)
	TopRated(ctx context.Context, limit int) ([]model.Merchant, error)
	// List returns every merchant ordered by BaseRate desc, then name.
	List(ctx context.Context) ([]model.Merchant, error)
	GetBySlug(ctx context.Context, slug string) (*model.Merchant, error)
	// Resolve maps free text to one merchant: exact slug first, then the best match.
	Resolve(ctx context.Context, query string) (*model.Merchant, error)
	Examples(ctx context.Context, n int) ([]model.Merchant, error)
	Upsert(ctx context.Context, m *model.Merchant) error
}

type merchantUC struct {
	merchants repository.MerchantRepository
	log       *zerolog.Logger
}

func NewMerchantUseCase(merchants repository.MerchantRepository, logger *zerolog.Logger) *merchantUC {
	return &merchantUC{merchants: merchants, log: logger}
}

func (u *merchantUC) Search(ctx context.Context, term string, limit int) ([]model.SearchCandidate, error) {
	defer logging.TraceDuration(u.log, "MerchantUC.Search")()

	if strings.TrimSpace(term) == "" {
		top, err := u.TopRated(ctx, limit)
		if err != nil {
			return nil, err
		}
		out := make([]model.SearchCandidate, len(top))
		for i, m := range top {
			out[i] = model.SearchCandidate{Merchant: m}
		}
		return out, nil
	}

	all, err := u.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	res := Match(all, term)
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (u *merchantUC) TopRated(ctx context.Context, limit int) ([]model.Merchant, error) {
	defer logging.TraceDuration(u.log, "MerchantUC.TopRated")()
	all, err := u.List(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (u *merchantUC) List(ctx context.Context) ([]model.Merchant, error) {
	all, err := u.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].BaseRate != all[j].BaseRate {
			return all[i].BaseRate > all[j].BaseRate
		}
		return all[i].DisplayName < all[j].DisplayName
	})
	return all, nil
}

func (u *merchantUC) GetBySlug(ctx context.Context, slug string) (*model.Merchant, error) {
	defer logging.TraceDuration(u.log, "MerchantUC.GetBySlug")()
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, domain.ErrMerchantNotFound
	}
	m, err := u.merchants.FindBySlug(ctx, repository.NoTX, slug)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && m.IsZero()) {
		return nil, domain.ErrMerchantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find merchant %q: %w", slug, err)
	}
	return m, nil
}

func (u *merchantUC) Resolve(ctx context.Context, query string) (*model.Merchant, error) {
	defer logging.TraceDuration(u.log, "MerchantUC.Resolve")()
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrInvalidInput
	}

	m, err := u.GetBySlug(ctx, strings.ToLower(query))
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, domain.ErrMerchantNotFound) {
		return nil, err
	}

	res, err := u.Search(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, domain.ErrMerchantNotFound
	}
	best := res[0].Merchant
	return &best, nil
}

func (u *merchantUC) Examples(ctx context.Context, n int) ([]model.Merchant, error) {
	return u.TopRated(ctx, n)
}

func (u *merchantUC) Upsert(ctx context.Context, m *model.Merchant) error {
	defer logging.TraceDuration(u.log, "MerchantUC.Upsert")()
	if m.IsZero() {
		return domain.ErrInvalidArgument
	}
	valid, err := model.NewMerchant(m.Slug, m.DisplayName, m.LinkTemplate, m.BaseRate)
	if err != nil {
		return fmt.Errorf("merchant %q: %w", m.Slug, err)
	}
	if !valid.HasPlaceholder() {
		u.log.Warn().Str("slug", valid.Slug).Msg("link template has no user id placeholder")
	}
	return u.merchants.Upsert(ctx, repository.NoTX, valid)
}

func (u *merchantUC) loadAll(ctx context.Context) ([]model.Merchant, error) {
	list, err := u.merchants.ListAll(ctx, repository.NoTX)
	if err != nil {
		return nil, fmt.Errorf("list merchants: %w", err)
	}
	out := make([]model.Merchant, 0, len(list))
	for _, m := range list {
		if m != nil {
			out = append(out, *m)
		}
	}
	return out, nil
}
