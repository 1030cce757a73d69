//go:build !integration

package application_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"telegram-affiliate-bot/internal/application"
	"telegram-affiliate-bot/internal/config"
	"telegram-affiliate-bot/internal/domain"
	"telegram-affiliate-bot/internal/domain/model"
	"telegram-affiliate-bot/internal/domain/ports/adapter"
	"telegram-affiliate-bot/internal/domain/ports/repository"
	"telegram-affiliate-bot/internal/infra/i18n"
	"telegram-affiliate-bot/internal/usecase"
)

// mockMerchantUC serves a fixed catalogue through the real matcher.
type mockMerchantUC struct {
	list      []model.Merchant
	searchErr error
	resolveFn func(query string) (*model.Merchant, error)
}

func (m *mockMerchantUC) Search(ctx context.Context, term string, limit int) ([]model.SearchCandidate, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if term == "" {
		out := make([]model.SearchCandidate, 0, len(m.list))
		for _, mm := range m.list {
			out = append(out, model.SearchCandidate{Merchant: mm})
		}
		return out, nil
	}
	res := usecase.Match(m.list, term)
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (m *mockMerchantUC) List(ctx context.Context) ([]model.Merchant, error) { return m.list, nil }

func (m *mockMerchantUC) Resolve(ctx context.Context, query string) (*model.Merchant, error) {
	if m.resolveFn != nil {
		return m.resolveFn(query)
	}
	for _, mm := range m.list {
		if mm.Slug == query {
			cp := mm
			return &cp, nil
		}
	}
	return nil, domain.ErrMerchantNotFound
}

func (m *mockMerchantUC) Examples(ctx context.Context, n int) ([]model.Merchant, error) {
	if n < len(m.list) {
		return m.list[:n], nil
	}
	return m.list, nil
}

// mockLinkUC fakes composition and remembers requests.
type mockLinkUC struct {
	requests  []usecase.GenerateRequest
	composed  []string
	previewed []string
	genErr    error
}

func (m *mockLinkUC) Generate(ctx context.Context, req usecase.GenerateRequest) (*usecase.LinkResult, error) {
	m.requests = append(m.requests, req)
	if m.genErr != nil {
		return nil, m.genErr
	}
	res := fakeResult(req.User, req.MerchantSlug)
	res.Viral = req.OriginalUserID != req.User.TelegramID
	return res, nil
}

func (m *mockLinkUC) Compose(ctx context.Context, user model.User, mm model.Merchant, source model.LinkSource) (*usecase.LinkResult, error) {
	if strings.Contains(mm.Slug, model.CallbackDelimiter) {
		return nil, domain.ErrInvalidInput
	}
	m.composed = append(m.composed, mm.Slug+":"+string(source))
	return fakeResult(user, mm.Slug), nil
}

func (m *mockLinkUC) Preview(ctx context.Context, user model.User, mm model.Merchant) (*usecase.LinkResult, error) {
	if strings.Contains(mm.Slug, model.CallbackDelimiter) {
		return nil, domain.ErrInvalidInput
	}
	m.previewed = append(m.previewed, mm.Slug)
	return fakeResult(user, mm.Slug), nil
}

func fakeResult(user model.User, slug string) *usecase.LinkResult {
	return &usecase.LinkResult{
		Message: "link for " + user.DisplayName() + " at " + slug,
		Buttons: model.ButtonLayout{Rows: [][]model.Button{{{Text: slug, URL: "https://x/" + slug}}}},
	}
}

type mockRecorder struct {
	searches []model.SearchEvent
	touched  int
}

func (r *mockRecorder) RecordSearch(e model.SearchEvent) { r.searches = append(r.searches, e) }
func (r *mockRecorder) TouchUser(u model.User) { r.touched++ }

type facadeDeps struct {
	merchants *mockMerchantUC
	links     *mockLinkUC
	recorder  *mockRecorder
	facade    *application.BotFacade
}

func newFacade(t *testing.T, list ...model.Merchant) facadeDeps {
	t.Helper()
	cfg, err := config.Parse(nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Search.PageSize = 2
	cfg.Search.Examples = 2
	logger := zerolog.New(io.Discard)
	d := facadeDeps{
		merchants: &mockMerchantUC{list: list},
		links:     &mockLinkUC{},
		recorder:  &mockRecorder{},
	}
	d.facade = application.NewBotFacade(d.merchants, d.links, d.recorder, i18n.MustDefault(), cfg.Search, "miles_bot", false, &logger)
	return d
}

func catalogue() []model.Merchant {
	return []model.Merchant{
		{Slug: "agoda", DisplayName: "Agoda", LinkTemplate: "https://agoda.com/?cid={{USER_ID}}", BaseRate: 7},
		{Slug: "klook", DisplayName: "Klook", LinkTemplate: "https://klook.com/?ref={{USER_ID}}", BaseRate: 6.5},
		{Slug: "apple-sg", DisplayName: "Apple Singapore", LinkTemplate: "https://apple.com/sg?sub={{USER_ID}}", BaseRate: 2},
		{Slug: "amazon-sg", DisplayName: "Amazon Singapore", LinkTemplate: "https://amazon.sg/?aff={{USER_ID}}", BaseRate: 1.5},
		{Slug: "foodpanda", DisplayName: "Food Panda", LinkTemplate: "https://foodpanda.sg/r/{{USER_ID}}", BaseRate: 3},
	}
}

var alice = model.User{TelegramID: 555, FirstName: "Alice"}

func TestBotFacade_HandleInlineQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("one result per match", func(t *testing.T) {
		d := newFacade(t, catalogue()...)
		res := d.facade.HandleInlineQuery(ctx, alice, "singapore")
		if len(res) != 2 {
			t.Fatalf("expected 2 results, got %d", len(res))
		}
		if res[0].Title != "Apple Singapore" || !strings.Contains(res[0].Description, "2 miles") {
			t.Errorf("unexpected first result %+v", res[0])
		}
		if res[0].ID == res[1].ID {
			t.Error("result ids must be unique")
		}
		if len(d.recorder.searches) != 1 || d.recorder.searches[0].MerchantSlug != "apple-sg" || d.recorder.searches[0].ResultCount != 2 {
			t.Errorf("unexpected search record %+v", d.recorder.searches)
		}
		if res[0].ID != "m_apple-sg" {
			t.Errorf("result id should carry the slug, got %q", res[0].ID)
		}
		if len(d.links.composed) != 0 || len(d.links.requests) != 0 {
			t.Errorf("inline answers must not record links, got %v %v", d.links.composed, d.links.requests)
		}
		if len(d.links.previewed) != 2 || d.links.previewed[0] != "apple-sg" {
			t.Errorf("expected previews for both matches, got %v", d.links.previewed)
		}
	})

	t.Run("no match offers examples", func(t *testing.T) {
		d := newFacade(t, catalogue()...)
		res := d.facade.HandleInlineQuery(ctx, alice, "zzzz")
		if len(res) != 1 || !res[0].Buttons.IsEmpty() {
			t.Fatalf("expected a single fallback result, got %+v", res)
		}
		if !strings.Contains(res[0].MessageText, "Agoda") || !strings.Contains(res[0].MessageText, "zzzz") {
			t.Errorf("fallback should list examples:\n%s", res[0].MessageText)
		}
		if d.recorder.searches[0].ResultCount != 0 || d.recorder.searches[0].MerchantSlug != "" {
			t.Errorf("zero result search recorded wrong: %+v", d.recorder.searches[0])
		}
	})

	t.Run("search failure gives retry result", func(t *testing.T) {
		d := newFacade(t, catalogue()...)
		d.merchants.searchErr = errors.New("db down")
		res := d.facade.HandleInlineQuery(ctx, alice, "klook")
		if len(res) != 1 || res[0].ID != "retry" {
			t.Fatalf("expected retry result, got %+v", res)
		}
		if len(d.recorder.searches) != 0 {
			t.Error("failed searches are not recorded")
		}
	})

	t.Run("bad merchant is skipped", func(t *testing.T) {
		d := newFacade(t, model.Merchant{Slug: "k|x", DisplayName: "Klook Bad", BaseRate: 9}, catalogue()[1])
		res := d.facade.HandleInlineQuery(ctx, alice, "klook")
		if len(res) != 1 || res[0].Title != "Klook" {
			t.Fatalf("expected only the valid merchant, got %+v", res)
		}
	})
}

func TestBotFacade_HandleChosenInline(t *testing.T) {
	ctx := context.Background()

	t.Run("records the sent merchant", func(t *testing.T) {
		d := newFacade(t, catalogue()...)
		if err := d.facade.HandleChosenInline(ctx, alice, "m_klook"); err != nil {
			t.Fatalf("HandleChosenInline returned error: %v", err)
		}
		if len(d.links.requests) != 1 {
			t.Fatalf("expected one generate request, got %+v", d.links.requests)
		}
		req := d.links.requests[0]
		if req.MerchantSlug != "klook" || req.Source != model.LinkSourceInline || req.OriginalUserID != 0 {
			t.Errorf("unexpected request %+v", req)
		}
	})

	t.Run("fallback results are ignored", func(t *testing.T) {
		d := newFacade(t, catalogue()...)
		for _, id := range []string{"none", "retry", "m_", ""} {
			if err := d.facade.HandleChosenInline(ctx, alice, id); err != nil {
				t.Errorf("%q: unexpected error %v", id, err)
			}
		}
		if len(d.links.requests) != 0 {
			t.Errorf("expected no requests, got %+v", d.links.requests)
		}
	})

	t.Run("deleted merchant is not an error", func(t *testing.T) {
		d := newFacade(t, catalogue()...)
		d.links.genErr = domain.ErrMerchantNotFound
		if err := d.facade.HandleChosenInline(ctx, alice, "m_gone"); err != nil {
			t.Errorf("unexpected error %v", err)
		}
		d.links.genErr = errors.New("db down")
		if err := d.facade.HandleChosenInline(ctx, alice, "m_klook"); err == nil {
			t.Error("expected collaborator failure to surface")
		}
	})
}

// memMerchantRepo backs the real merchant usecase in analytics tests.
type memMerchantRepo struct{ list []model.Merchant }

func (r *memMerchantRepo) Upsert(ctx context.Context, tx repository.Tx, m *model.Merchant) error {
	r.list = append(r.list, *m)
	return nil
}

func (r *memMerchantRepo) FindBySlug(ctx context.Context, tx repository.Tx, slug string) (*model.Merchant, error) {
	for _, m := range r.list {
		if m.Slug == slug {
			cp := m
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memMerchantRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Merchant, error) {
	out := make([]*model.Merchant, 0, len(r.list))
	for i := range r.list {
		out = append(out, &r.list[i])
	}
	return out, nil
}

func (r *memMerchantRepo) Delete(ctx context.Context, tx repository.Tx, slug string) error {
	return nil
}

// countingRecorder counts every analytics record the usecases submit.
type countingRecorder struct {
	searches, links, virals int
}

func (r *countingRecorder) RecordSearch(e model.SearchEvent) { r.searches++ }
func (r *countingRecorder) RecordLinkGeneration(g model.LinkGeneration) { r.links++ }
func (r *countingRecorder) RecordViral(v model.ViralInteraction) { r.virals++ }
func (r *countingRecorder) TouchUser(u model.User) {}

func TestBotFacade_InlineAnalytics(t *testing.T) {
	ctx := context.Background()
	cfg, err := config.Parse(nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	logger := zerolog.New(io.Discard)
	tr := i18n.MustDefault()
	rec := &countingRecorder{}
	merchants := usecase.NewMerchantUseCase(&memMerchantRepo{list: catalogue()}, &logger)
	links := usecase.NewLinkUseCase(merchants, usecase.NewLinkComposer(cfg.Links, tr), rec, &logger)
	facade := application.NewBotFacade(merchants, links, rec, tr, cfg.Search, "miles_bot", false, &logger)

	var last []adapter.InlineResult
	for _, term := range []string{"", "s", "si", "sin"} {
		last = facade.HandleInlineQuery(ctx, alice, term)
	}
	if rec.searches != 4 {
		t.Errorf("expected one search record per query, got %d", rec.searches)
	}
	if rec.links != 0 {
		t.Errorf("typing must not record link generations, got %d", rec.links)
	}

	if err := facade.HandleChosenInline(ctx, alice, last[0].ID); err != nil {
		t.Fatalf("HandleChosenInline returned error: %v", err)
	}
	if rec.links != 1 || rec.virals != 0 {
		t.Errorf("expected exactly one link record after sending, got links=%d virals=%d", rec.links, rec.virals)
	}
}

func TestBotFacade_HandleGenerate(t *testing.T) {
	ctx := context.Background()
	bob := model.User{TelegramID: 777, FirstName: "Bob"}

	t.Run("viewer gets own link", func(t *testing.T) {
		d := newFacade(t, catalogue()...)
		reply, err := d.facade.HandleGenerate(ctx, bob, model.GeneratePayload{MerchantSlug: "klook", OriginalUserID: 555})
		if err != nil {
			t.Fatalf("HandleGenerate returned error: %v", err)
		}
		if !strings.Contains(reply.Text, "Bob") || reply.Buttons == nil {
			t.Errorf("unexpected reply %+v", reply)
		}
		req := d.links.requests[0]
		if req.User.TelegramID != 777 || req.OriginalUserID != 555 || req.Source != model.LinkSourceCallback {
			t.Errorf("unexpected request %+v", req)
		}
	})

	t.Run("unknown merchant falls back", func(t *testing.T) {
		d := newFacade(t, catalogue()...)
		d.links.genErr = domain.ErrMerchantNotFound
		reply, err := d.facade.HandleGenerate(ctx, bob, model.GeneratePayload{MerchantSlug: "gone", OriginalUserID: 555})
		if err != nil {
			t.Fatalf("not found must not be an error: %v", err)
		}
		if !strings.Contains(reply.Text, "gone") || reply.Buttons != nil {
			t.Errorf("unexpected fallback %+v", reply)
		}
	})

	t.Run("collaborator failure", func(t *testing.T) {
		d := newFacade(t, catalogue()...)
		d.links.genErr = errors.New("boom")
		if _, err := d.facade.HandleGenerate(ctx, bob, model.GeneratePayload{MerchantSlug: "klook", OriginalUserID: 555}); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestBotFacade_HandleStart(t *testing.T) {
	ctx := context.Background()

	t.Run("plain start welcomes", func(t *testing.T) {
		d := newFacade(t, catalogue()...)
		reply, err := d.facade.HandleStart(ctx, alice, "")
		if err != nil || !strings.Contains(reply.Text, "Alice") || !strings.Contains(reply.Text, "@miles_bot") {
			t.Fatalf("unexpected welcome %+v, %v", reply, err)
		}
	})

	t.Run("deep link generates", func(t *testing.T) {
		d := newFacade(t, catalogue()...)
		arg, _ := model.EncodeStartPayload(model.GeneratePayload{MerchantSlug: "klook", OriginalUserID: 42})
		if _, err := d.facade.HandleStart(ctx, alice, arg); err != nil {
			t.Fatalf("HandleStart returned error: %v", err)
		}
		if len(d.links.requests) != 1 || d.links.requests[0].OriginalUserID != 42 {
			t.Errorf("expected generate request from deep link, got %+v", d.links.requests)
		}
	})

	t.Run("garbage parameter is ignored", func(t *testing.T) {
		d := newFacade(t, catalogue()...)
		reply, err := d.facade.HandleStart(ctx, alice, "promo2024")
		if err != nil || !strings.Contains(reply.Text, "Alice") || len(d.links.requests) != 0 {
			t.Fatalf("unexpected result %+v, %v", reply, err)
		}
	})
}

func TestBotFacade_HandleLinkCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("usage", func(t *testing.T) {
		d := newFacade(t, catalogue()...)
		reply, _ := d.facade.HandleLinkCommand(ctx, alice, " ")
		if !strings.Contains(reply.Text, "/link") {
			t.Errorf("expected usage text, got %q", reply.Text)
		}
	})

	t.Run("resolved merchant", func(t *testing.T) {
		d := newFacade(t, catalogue()...)
		reply, err := d.facade.HandleLinkCommand(ctx, alice, "klook")
		if err != nil || reply.Buttons == nil {
			t.Fatalf("unexpected reply %+v, %v", reply, err)
		}
		if d.links.composed[0] != "klook:command" {
			t.Errorf("expected command composition, got %v", d.links.composed)
		}
	})

	t.Run("not found", func(t *testing.T) {
		d := newFacade(t, catalogue()...)
		reply, err := d.facade.HandleLinkCommand(ctx, alice, "<nope>")
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		if !strings.Contains(reply.Text, "&lt;nope&gt;") {
			t.Errorf("term should be escaped in fallback: %s", reply.Text)
		}
	})

	t.Run("lookup failure", func(t *testing.T) {
		d := newFacade(t, catalogue()...)
		d.merchants.resolveFn = func(string) (*model.Merchant, error) { return nil, errors.New("db down") }
		if _, err := d.facade.HandleLinkCommand(ctx, alice, "klook"); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestBotFacade_HandleMerchants(t *testing.T) {
	ctx := context.Background()
	d := newFacade(t, catalogue()...)

	first, err := d.facade.HandleMerchants(ctx, 0)
	if err != nil {
		t.Fatalf("HandleMerchants returned error: %v", err)
	}
	if !strings.Contains(first.Text, "page 1 of 3") || !strings.Contains(first.Text, "Agoda") {
		t.Errorf("unexpected first page:\n%s", first.Text)
	}
	if first.Buttons == nil || len(first.Buttons.Rows[0]) != 1 {
		t.Fatalf("first page should only have a next button: %+v", first.Buttons)
	}
	p, err := model.DecodeCallback(first.Buttons.Rows[0][0].Data)
	if err != nil || p != (model.MerchantsPagePayload{Page: 1}) {
		t.Errorf("unexpected next payload %+v, %v", p, err)
	}

	last, _ := d.facade.HandleMerchants(ctx, 99)
	if !strings.Contains(last.Text, "page 3 of 3") || len(last.Buttons.Rows[0]) != 1 {
		t.Errorf("expected clamped last page with prev button:\n%s", last.Text)
	}

	empty := newFacade(t)
	reply, _ := empty.facade.HandleMerchants(ctx, 0)
	if reply.Buttons != nil || reply.Text == "" {
		t.Errorf("unexpected empty catalogue reply %+v", reply)
	}
}

func TestBotFacade_HandleHelp(t *testing.T) {
	d := newFacade(t)
	if !strings.Contains(d.facade.HandleHelp().Text, "@miles_bot") {
		t.Error("help should mention the bot username")
	}
}
