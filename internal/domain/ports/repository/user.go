package repository

import (
	"context"
	"time"

	"telegram-affiliate-bot/internal/domain/model"
)

// -----------------------------
// Users
// -----------------------------

type UserRepository interface {
	// Upsert inserts the user or refreshes profile fields and last_seen_at.
	Upsert(ctx context.Context, tx Tx, u *model.User) error
	FindByTelegramID(ctx context.Context, tx Tx, tgID int64) (*model.User, error)
	CountSeenSince(ctx context.Context, tx Tx, since time.Time) (int, error)
}
