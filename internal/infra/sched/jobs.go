package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-affiliate-bot/internal/domain/model"
	"telegram-affiliate-bot/internal/infra/metrics"
)

type TotalsSource interface {
	Totals(ctx context.Context, since time.Time, topN int) (*model.InteractionTotals, error)
}

// StatsDigest refreshes the analytics window gauges and logs a summary line.
type StatsDigest struct {
	stats  TotalsSource
	window time.Duration
	topN   int
	log    *zerolog.Logger
	now    func() time.Time
}

func NewStatsDigest(stats TotalsSource, windowDays int, logger *zerolog.Logger) *StatsDigest {
	if windowDays <= 0 {
		windowDays = 7
	}
	l := logger.With().Str("component", "StatsDigest").Logger()
	return &StatsDigest{
		stats:  stats,
		window: time.Duration(windowDays) * 24 * time.Hour,
		topN:   3,
		log:    &l,
		now:    time.Now,
	}
}

func (d *StatsDigest) Name() string { return "stats_digest" }

func (d *StatsDigest) Run(ctx context.Context) error {
	t, err := d.stats.Totals(ctx, d.now().Add(-d.window), d.topN)
	if err != nil {
		return err
	}
	metrics.SetAnalyticsWindow(t.Users, t.Searches, t.ZeroResultSearch, t.LinksGenerated, t.ViralInteractions)

	top := make([]string, 0, len(t.TopMerchants))
	for _, m := range t.TopMerchants {
		top = append(top, m.MerchantSlug)
	}
	d.log.Info().
		Dur("window", d.window).
		Int("users", t.Users).
		Int("searches", t.Searches).
		Int("zero_result", t.ZeroResultSearch).
		Int("links", t.LinksGenerated).
		Int("viral", t.ViralInteractions).
		Strs("top_merchants", top).
		Msg("analytics digest")
	return nil
}

type MerchantLister interface {
	List(ctx context.Context) ([]model.Merchant, error)
}

// CacheWarmer lists merchants so the cached catalogue is refilled before
// inline queries need it.
type CacheWarmer struct {
	merchants MerchantLister
	log       *zerolog.Logger
}

func NewCacheWarmer(merchants MerchantLister, logger *zerolog.Logger) *CacheWarmer {
	l := logger.With().Str("component", "CacheWarmer").Logger()
	return &CacheWarmer{merchants: merchants, log: &l}
}

func (w *CacheWarmer) Name() string { return "merchant_cache_warmer" }

func (w *CacheWarmer) Run(ctx context.Context) error {
	ms, err := w.merchants.List(ctx)
	if err != nil {
		return err
	}
	w.log.Debug().Int("merchants", len(ms)).Msg("catalogue warm")
	return nil
}
