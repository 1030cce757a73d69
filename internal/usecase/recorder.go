package usecase

import (
	"context"
	"fmt"
	"time"

	"telegram-affiliate-bot/internal/domain/model"
	"telegram-affiliate-bot/internal/domain/ports/repository"
	"telegram-affiliate-bot/internal/infra/metrics"
	"telegram-affiliate-bot/internal/infra/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ InteractionRecorder = (*recorder)(nil)

// InteractionRecorder stores analytics without blocking the caller. Every method
// returns immediately; failures are logged and counted, never returned.
type InteractionRecorder interface {
	RecordSearch(e model.SearchEvent)
	RecordLinkGeneration(g model.LinkGeneration)
	RecordViral(v model.ViralInteraction)
	TouchUser(u model.User)
}

// TaskSubmitter queues background work (worker.Pool).
type TaskSubmitter interface {
	Submit(task worker.Task) error
}

type recorder struct {
	pool         TaskSubmitter
	interactions repository.InteractionRepository
	users        repository.UserRepository
	log          *zerolog.Logger
	now          func() time.Time
}

func NewInteractionRecorder(pool TaskSubmitter, interactions repository.InteractionRepository, users repository.UserRepository, logger *zerolog.Logger) *recorder {
	return &recorder{
		pool:         pool,
		interactions: interactions,
		users:        users,
		log:          logger,
		now:          time.Now,
	}
}

func (r *recorder) RecordSearch(e model.SearchEvent) {
	r.stamp(&e.ID, &e.CreatedAt)
	r.submit("search", func(ctx context.Context) error {
		return r.interactions.SaveSearch(ctx, repository.NoTX, &e)
	})
}

func (r *recorder) RecordLinkGeneration(g model.LinkGeneration) {
	r.stamp(&g.ID, &g.CreatedAt)
	r.submit("link", func(ctx context.Context) error {
		return r.interactions.SaveLinkGeneration(ctx, repository.NoTX, &g)
	})
}

func (r *recorder) RecordViral(v model.ViralInteraction) {
	r.stamp(&v.ID, &v.CreatedAt)
	r.submit("viral", func(ctx context.Context) error {
		return r.interactions.SaveViral(ctx, repository.NoTX, &v)
	})
}

func (r *recorder) TouchUser(u model.User) {
	if u.IsZero() {
		return
	}
	now := r.now()
	if u.FirstSeenAt.IsZero() {
		u.FirstSeenAt = now
	}
	u.LastSeenAt = now
	r.submit("user", func(ctx context.Context) error {
		return r.users.Upsert(ctx, repository.NoTX, &u)
	})
}

func (r *recorder) stamp(id *string, at *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	if at.IsZero() {
		*at = r.now()
	}
}

func (r *recorder) submit(kind string, save func(ctx context.Context) error) {
	task := func(ctx context.Context) error {
		if err := save(ctx); err != nil {
			metrics.IncAnalyticsFailure(kind)
			return fmt.Errorf("record %s: %w", kind, err)
		}
		return nil
	}
	if err := r.pool.Submit(task); err != nil {
		metrics.IncAnalyticsFailure(kind)
		r.log.Warn().Err(err).Str("kind", kind).Msg("analytics record dropped")
	}
}
