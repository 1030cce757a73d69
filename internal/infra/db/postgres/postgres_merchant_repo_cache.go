package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"telegram-affiliate-bot/internal/domain/model"
	"telegram-affiliate-bot/internal/domain/ports/repository"
	"telegram-affiliate-bot/internal/infra/metrics"
	red "telegram-affiliate-bot/internal/infra/redis"
)

var _ repository.MerchantRepository = (*merchantRepoCacheDecorator)(nil)

const merchantsAllKey = "merchants:all"

func merchantKey(slug string) string { return fmt.Sprintf("merchant:%s", slug) }

// merchantRepoCacheDecorator serves merchant reads from Redis. Merchants change
// only through imports, so a plain TTL plus invalidation on writes is enough.
type merchantRepoCacheDecorator struct {
	inner  repository.MerchantRepository
	cache  red.Cache
	ttl    time.Duration
	logger *zerolog.Logger
}

func NewMerchantRepoCacheDecorator(inner repository.MerchantRepository, cache red.Cache, ttl time.Duration, logger *zerolog.Logger) repository.MerchantRepository {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		l := zerolog.Nop()
		logger = &l
	}
	return &merchantRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, logger: logger}
}

func (d *merchantRepoCacheDecorator) FindBySlug(ctx context.Context, tx repository.Tx, slug string) (*model.Merchant, error) {
	key := merchantKey(slug)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var m model.Merchant
		if json.Unmarshal([]byte(val), &m) == nil {
			metrics.IncCacheRequest("merchant", "hit")
			return &m, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		d.logger.Warn().Err(err).Str("key", key).Msg("merchant cache read failed")
	}

	metrics.IncCacheRequest("merchant", "miss")
	m, err := d.inner.FindBySlug(ctx, tx, slug)
	if err != nil {
		return nil, err
	}
	if m != nil {
		if b, err := json.Marshal(m); err == nil {
			_ = d.cache.Set(ctx, key, b, d.ttl)
		}
	}
	return m, nil
}

func (d *merchantRepoCacheDecorator) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Merchant, error) {
	val, err := d.cache.Get(ctx, merchantsAllKey)
	if err == nil {
		var ms []*model.Merchant
		if json.Unmarshal([]byte(val), &ms) == nil {
			metrics.IncCacheRequest("merchant_list", "hit")
			return ms, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		d.logger.Warn().Err(err).Str("key", merchantsAllKey).Msg("merchant cache read failed")
	}

	metrics.IncCacheRequest("merchant_list", "miss")
	ms, err := d.inner.ListAll(ctx, tx)
	if err != nil {
		return nil, err
	}
	if len(ms) > 0 {
		if b, err := json.Marshal(ms); err == nil {
			_ = d.cache.Set(ctx, merchantsAllKey, b, d.ttl)
		}
	}
	return ms, nil
}

// Writes go to the inner repo first; the cache is dropped only when they succeed.
func (d *merchantRepoCacheDecorator) Upsert(ctx context.Context, tx repository.Tx, m *model.Merchant) error {
	if err := d.inner.Upsert(ctx, tx, m); err != nil {
		return err
	}
	d.invalidate(ctx, m.Slug)
	return nil
}

func (d *merchantRepoCacheDecorator) Delete(ctx context.Context, tx repository.Tx, slug string) error {
	if err := d.inner.Delete(ctx, tx, slug); err != nil {
		return err
	}
	d.invalidate(ctx, slug)
	return nil
}

func (d *merchantRepoCacheDecorator) invalidate(ctx context.Context, slug string) {
	if err := d.cache.Del(ctx, merchantKey(slug), merchantsAllKey); err != nil {
		d.logger.Warn().Err(err).Str("slug", slug).Msg("merchant cache invalidation failed")
	}
}
