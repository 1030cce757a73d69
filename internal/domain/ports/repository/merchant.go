package repository

import (
	"context"

	"telegram-affiliate-bot/internal/domain/model"
)

// MerchantRepository is the merchant source. ListAll returns the full reference set
// in no particular order; callers sort.
type MerchantRepository interface {
	Upsert(ctx context.Context, tx Tx, m *model.Merchant) error
	FindBySlug(ctx context.Context, tx Tx, slug string) (*model.Merchant, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.Merchant, error)
	Delete(ctx context.Context, tx Tx, slug string) error
}
