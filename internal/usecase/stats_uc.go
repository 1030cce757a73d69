package usecase

import (
	"context"
	"time"

	"telegram-affiliate-bot/internal/domain/model"
	"telegram-affiliate-bot/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

type StatsUseCase interface {
	Totals(ctx context.Context, since time.Time, topN int) (*model.InteractionTotals, error)
}

type statsUC struct {
	users        repository.UserRepository
	interactions repository.InteractionRepository

	log *zerolog.Logger
}

func NewStatsUseCase(users repository.UserRepository, interactions repository.InteractionRepository, logger *zerolog.Logger) *statsUC {
	return &statsUC{users: users, interactions: interactions, log: logger}
}

func (s *statsUC) Totals(ctx context.Context, since time.Time, topN int) (*model.InteractionTotals, error) {
	users, err := s.users.CountSeenSince(ctx, repository.NoTX, since)
	if err != nil {
		return nil, err
	}
	searches, zero, err := s.interactions.CountSearches(ctx, repository.NoTX, since)
	if err != nil {
		return nil, err
	}
	links, err := s.interactions.CountLinkGenerations(ctx, repository.NoTX, since)
	if err != nil {
		return nil, err
	}
	viral, err := s.interactions.CountViral(ctx, repository.NoTX, since)
	if err != nil {
		return nil, err
	}
	top, err := s.interactions.TopMerchants(ctx, repository.NoTX, since, topN)
	if err != nil {
		return nil, err
	}
	return &model.InteractionTotals{
		Since:             since,
		Users:             users,
		Searches:          searches,
		ZeroResultSearch:  zero,
		LinksGenerated:    links,
		ViralInteractions: viral,
		TopMerchants:      top,
	}, nil
}
