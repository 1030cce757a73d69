//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-affiliate-bot/internal/domain"
	"telegram-affiliate-bot/internal/domain/model"
	"telegram-affiliate-bot/internal/domain/ports/repository"
	"telegram-affiliate-bot/internal/infra/i18n"
	"telegram-affiliate-bot/internal/infra/worker"
	"telegram-affiliate-bot/internal/usecase"
)

// =============================
// Repositories
// =============================

// ---- Mock MerchantRepository ----

type MockMerchantRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Merchant
	order []string

	ListAllFunc    func(ctx context.Context, tx repository.Tx) ([]*model.Merchant, error)
	FindBySlugFunc func(ctx context.Context, tx repository.Tx, slug string) (*model.Merchant, error)
	UpsertFunc     func(ctx context.Context, tx repository.Tx, m *model.Merchant) error
	ListCalls      int
}

var _ repository.MerchantRepository = (*MockMerchantRepo)(nil)

func NewMockMerchantRepo(ms ...model.Merchant) *MockMerchantRepo {
	r := &MockMerchantRepo{store: map[string]*model.Merchant{}}
	for i := range ms {
		_ = r.Upsert(context.Background(), repository.NoTX, &ms[i])
	}
	return r
}

func (r *MockMerchantRepo) Upsert(ctx context.Context, tx repository.Tx, m *model.Merchant) error {
	if r.UpsertFunc != nil {
		if err := r.UpsertFunc(ctx, tx, m); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.store[m.Slug]; !ok {
		r.order = append(r.order, m.Slug)
	}
	cp := *m
	r.store[m.Slug] = &cp
	return nil
}

func (r *MockMerchantRepo) FindBySlug(ctx context.Context, tx repository.Tx, slug string) (*model.Merchant, error) {
	if r.FindBySlugFunc != nil {
		return r.FindBySlugFunc(ctx, tx, slug)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.store[slug]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *MockMerchantRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Merchant, error) {
	r.mu.Lock()
	r.ListCalls++
	r.mu.Unlock()
	if r.ListAllFunc != nil {
		return r.ListAllFunc(ctx, tx)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Merchant, 0, len(r.order))
	for _, slug := range r.order {
		cp := *r.store[slug]
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MockMerchantRepo) Delete(ctx context.Context, tx repository.Tx, slug string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.store, slug)
	for i, s := range r.order {
		if s == slug {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// ---- Mock UserRepository ----

type MockUserRepo struct {
	mu    sync.Mutex
	store map[int64]*model.User

	UpsertFunc         func(ctx context.Context, tx repository.Tx, u *model.User) error
	CountSeenSinceFunc func(ctx context.Context, tx repository.Tx, since time.Time) (int, error)
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{store: map[int64]*model.User{}}
}

func (r *MockUserRepo) Upsert(ctx context.Context, tx repository.Tx, u *model.User) error {
	if r.UpsertFunc != nil {
		return r.UpsertFunc(ctx, tx, u)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	if prev, ok := r.store[u.TelegramID]; ok {
		cp.FirstSeenAt = prev.FirstSeenAt
	}
	r.store[u.TelegramID] = &cp
	return nil
}

func (r *MockUserRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.store[tgID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *MockUserRepo) CountSeenSince(ctx context.Context, tx repository.Tx, since time.Time) (int, error) {
	if r.CountSeenSinceFunc != nil {
		return r.CountSeenSinceFunc(ctx, tx, since)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, u := range r.store {
		if !u.LastSeenAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// ---- Mock InteractionRepository ----

type MockInteractionRepo struct {
	mu       sync.Mutex
	Searches []model.SearchEvent
	Links    []model.LinkGeneration
	Virals   []model.ViralInteraction

	SaveErr error
}

var _ repository.InteractionRepository = (*MockInteractionRepo)(nil)

func NewMockInteractionRepo() *MockInteractionRepo { return &MockInteractionRepo{} }

func (r *MockInteractionRepo) SaveSearch(ctx context.Context, tx repository.Tx, e *model.SearchEvent) error {
	if r.SaveErr != nil {
		return r.SaveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Searches = append(r.Searches, *e)
	return nil
}

func (r *MockInteractionRepo) SaveLinkGeneration(ctx context.Context, tx repository.Tx, g *model.LinkGeneration) error {
	if r.SaveErr != nil {
		return r.SaveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Links = append(r.Links, *g)
	return nil
}

func (r *MockInteractionRepo) SaveViral(ctx context.Context, tx repository.Tx, v *model.ViralInteraction) error {
	if r.SaveErr != nil {
		return r.SaveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Virals = append(r.Virals, *v)
	return nil
}

func (r *MockInteractionRepo) CountSearches(ctx context.Context, tx repository.Tx, since time.Time) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total, zero := 0, 0
	for _, e := range r.Searches {
		if e.CreatedAt.Before(since) {
			continue
		}
		total++
		if e.ResultCount == 0 {
			zero++
		}
	}
	return total, zero, nil
}

func (r *MockInteractionRepo) CountLinkGenerations(ctx context.Context, tx repository.Tx, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, g := range r.Links {
		if !g.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *MockInteractionRepo) CountViral(ctx context.Context, tx repository.Tx, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, v := range r.Virals {
		if !v.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *MockInteractionRepo) TopMerchants(ctx context.Context, tx repository.Tx, since time.Time, limit int) ([]model.MerchantStat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	by := map[string]*model.MerchantStat{}
	for _, g := range r.Links {
		if g.CreatedAt.Before(since) {
			continue
		}
		st, ok := by[g.MerchantSlug]
		if !ok {
			st = &model.MerchantStat{MerchantSlug: g.MerchantSlug}
			by[g.MerchantSlug] = st
		}
		st.Links++
		if g.Source == model.LinkSourceCallback {
			st.ViralLinks++
		}
	}
	out := make([]model.MerchantStat, 0, len(by))
	for _, st := range by {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Links != out[j].Links {
			return out[i].Links > out[j].Links
		}
		return out[i].MerchantSlug < out[j].MerchantSlug
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// =============================
// Worker pool
// =============================

// inlinePool runs submitted tasks synchronously so tests can assert on their effects.
type inlinePool struct {
	mu      sync.Mutex
	errs    []error
	Full    bool
	Submits int
}

var _ usecase.TaskSubmitter = (*inlinePool)(nil)

func (p *inlinePool) Submit(task worker.Task) error {
	p.mu.Lock()
	p.Submits++
	full := p.Full
	p.mu.Unlock()
	if full {
		return domain.ErrQueueFull
	}
	if err := task(context.Background()); err != nil {
		p.mu.Lock()
		p.errs = append(p.errs, err)
		p.mu.Unlock()
	}
	return nil
}

func (p *inlinePool) Errors() []error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]error(nil), p.errs...)
}

// ---- Mock InteractionRecorder ----

type MockRecorder struct {
	mu       sync.Mutex
	Searches []model.SearchEvent
	Links    []model.LinkGeneration
	Virals   []model.ViralInteraction
	Users    []model.User
}

var _ usecase.InteractionRecorder = (*MockRecorder)(nil)

func (r *MockRecorder) RecordSearch(e model.SearchEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Searches = append(r.Searches, e)
}

func (r *MockRecorder) RecordLinkGeneration(g model.LinkGeneration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Links = append(r.Links, g)
}

func (r *MockRecorder) RecordViral(v model.ViralInteraction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Virals = append(r.Virals, v)
}

func (r *MockRecorder) TouchUser(u model.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Users = append(r.Users, u)
}

// =============================
// Fixtures
// =============================

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

func newTestTranslator() *i18n.Translator {
	return i18n.MustDefault()
}

func merchant(slug, name, tmpl string, rate float64) model.Merchant {
	return model.Merchant{Slug: slug, DisplayName: name, LinkTemplate: tmpl, BaseRate: rate}
}

func sampleMerchants() []model.Merchant {
	return []model.Merchant{
		merchant("klook", "Klook", "https://klook.com/?ref={{USER_ID}}", 6.5),
		merchant("amazon-sg", "Amazon Singapore", "https://amazon.sg/?aff={{USER_ID}}", 1.5),
		merchant("apple-sg", "Apple Singapore", "https://apple.com/sg?sub={{USER_ID}}", 2),
		merchant("foodpanda", "Food Panda", "https://foodpanda.sg/r/{{USER_ID}}", 3),
		merchant("agoda", "Agoda", "https://agoda.com/?cid={{USER_ID}}", 7),
	}
}
