package application

import (
	"context"

	"telegram-affiliate-bot/internal/domain/model"
	"telegram-affiliate-bot/internal/usecase"
)

// ---- small interfaces to decouple the facade from concrete usecase structs ----
// These describe the minimal surface that the facade needs.

type MerchantUseCaseIface interface {
	Search(ctx context.Context, term string, limit int) ([]model.SearchCandidate, error)
	List(ctx context.Context) ([]model.Merchant, error)
	Resolve(ctx context.Context, query string) (*model.Merchant, error)
	Examples(ctx context.Context, n int) ([]model.Merchant, error)
}

type LinkUseCaseIface interface {
	Generate(ctx context.Context, req usecase.GenerateRequest) (*usecase.LinkResult, error)
	Compose(ctx context.Context, user model.User, m model.Merchant, source model.LinkSource) (*usecase.LinkResult, error)
	Preview(ctx context.Context, user model.User, m model.Merchant) (*usecase.LinkResult, error)
}

type RecorderIface interface {
	RecordSearch(e model.SearchEvent)
	TouchUser(u model.User)
}
