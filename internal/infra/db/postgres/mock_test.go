//go:build !integration

package postgres

import (
	"context"
	"time"

	"telegram-affiliate-bot/internal/domain/model"
	"telegram-affiliate-bot/internal/domain/ports/repository"
	red "telegram-affiliate-bot/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerMerchantRepo mocks the database repository that the merchant decorator wraps.
type mockInnerMerchantRepo struct {
	UpsertFunc     func(ctx context.Context, tx repository.Tx, m *model.Merchant) error
	DeleteFunc     func(ctx context.Context, tx repository.Tx, slug string) error
	FindBySlugFunc func(ctx context.Context, tx repository.Tx, slug string) (*model.Merchant, error)
	ListAllFunc    func(ctx context.Context, tx repository.Tx) ([]*model.Merchant, error)
}

func (m *mockInnerMerchantRepo) Upsert(ctx context.Context, tx repository.Tx, mc *model.Merchant) error {
	return m.UpsertFunc(ctx, tx, mc)
}
func (m *mockInnerMerchantRepo) Delete(ctx context.Context, tx repository.Tx, slug string) error {
	return m.DeleteFunc(ctx, tx, slug)
}
func (m *mockInnerMerchantRepo) FindBySlug(ctx context.Context, tx repository.Tx, slug string) (*model.Merchant, error) {
	return m.FindBySlugFunc(ctx, tx, slug)
}
func (m *mockInnerMerchantRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Merchant, error) {
	return m.ListAllFunc(ctx, tx)
}

// mockRedisClient mocks the cache surface of our Redis client.
type mockRedisClient struct {
	GetFunc func(ctx context.Context, key string) (string, error)
	SetFunc func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc func(ctx context.Context, keys ...string) error
}

var _ red.Cache = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc == nil {
		return nil
	}
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc == nil {
		return nil
	}
	return m.DelFunc(ctx, keys...)
}
