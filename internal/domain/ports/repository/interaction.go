package repository

import (
	"context"
	"time"

	"telegram-affiliate-bot/internal/domain/model"
)

// -----------------------------
// Interaction analytics
// -----------------------------

type InteractionRepository interface {
	SaveSearch(ctx context.Context, tx Tx, e *model.SearchEvent) error
	SaveLinkGeneration(ctx context.Context, tx Tx, g *model.LinkGeneration) error
	SaveViral(ctx context.Context, tx Tx, v *model.ViralInteraction) error

	CountSearches(ctx context.Context, tx Tx, since time.Time) (total int, zeroResult int, err error)
	CountLinkGenerations(ctx context.Context, tx Tx, since time.Time) (int, error)
	CountViral(ctx context.Context, tx Tx, since time.Time) (int, error)
	TopMerchants(ctx context.Context, tx Tx, since time.Time, limit int) ([]model.MerchantStat, error)
}
