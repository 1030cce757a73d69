package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-affiliate-bot/internal/domain/model"
	"telegram-affiliate-bot/internal/domain/ports/adapter"
	"telegram-affiliate-bot/internal/usecase"
)

// MerchantService is the part of the merchant usecase the admin API needs.
type MerchantService interface {
	Search(ctx context.Context, term string, limit int) ([]model.SearchCandidate, error)
	List(ctx context.Context) ([]model.Merchant, error)
	GetBySlug(ctx context.Context, slug string) (*model.Merchant, error)
	Upsert(ctx context.Context, m *model.Merchant) error
}

type LinkService interface {
	Generate(ctx context.Context, req usecase.GenerateRequest) (*usecase.LinkResult, error)
}

// LinkPreviewer composes a link without recording it.
type LinkPreviewer interface {
	ComposeLink(userID int64, m model.Merchant) model.LinkComposition
}

type StatsService interface {
	Totals(ctx context.Context, since time.Time, topN int) (*model.InteractionTotals, error)
}

// HealthCheck is one named dependency check for /healthz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Deps struct {
	Merchants MerchantService
	Links     LinkService
	Previewer LinkPreviewer
	Stats     StatsService
	Bot       adapter.TelegramBotAdapter
	Health    []HealthCheck

	SearchLimit int
	StatsDays   int
}

type Server struct {
	deps Deps
	auth *AuthManager
	log  *zerolog.Logger
	now  func() time.Time
}

func NewServer(deps Deps, auth *AuthManager, logger *zerolog.Logger) *Server {
	if deps.SearchLimit <= 0 {
		deps.SearchLimit = 10
	}
	if deps.StatsDays <= 0 {
		deps.StatsDays = 7
	}
	l := logger.With().Str("component", "admin_api").Logger()
	return &Server{deps: deps, auth: auth, log: &l, now: time.Now}
}

// Router builds the admin HTTP handler. /healthz and /metrics are public.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log), Timeout(15*time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.auth.RequireAdmin(s.log))

		r.Get("/merchants", s.handleListMerchants)
		r.Get("/merchants/search", s.handleSearchMerchants)
		r.Put("/merchants/{slug}", s.handleUpsertMerchant)
		r.Get("/merchants/{slug}/link", s.handleLinkPreview)
		r.Post("/merchants/{slug}/send", s.handleSendLink)
		r.Get("/stats", s.handleStats)
	})
	return r
}

// HTTPServer wraps Router in an http.Server listening on addr.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
