package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-affiliate-bot/internal/domain"
	"telegram-affiliate-bot/internal/domain/model"
	"telegram-affiliate-bot/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*PostgresUserRepo)(nil)

type PostgresUserRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{pool: pool}
}

// Upsert keeps the stored first_seen_at on conflict.
func (r *PostgresUserRepo) Upsert(ctx context.Context, tx repository.Tx, u *model.User) error {
	if u.IsZero() {
		return domain.ErrInvalidArgument
	}
	now := time.Now()
	if u.FirstSeenAt.IsZero() {
		u.FirstSeenAt = now
	}
	if u.LastSeenAt.IsZero() {
		u.LastSeenAt = now
	}
	const q = `
INSERT INTO tg_users (telegram_id, username, first_name, language_code, first_seen_at, last_seen_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (telegram_id) DO UPDATE SET
  username=EXCLUDED.username, first_name=EXCLUDED.first_name,
  language_code=EXCLUDED.language_code, last_seen_at=EXCLUDED.last_seen_at;
`
	_, err := execSQL(ctx, r.pool, tx, q, u.TelegramID, u.Username, u.FirstName, u.LanguageCode, u.FirstSeenAt, u.LastSeenAt)
	return err
}

func (r *PostgresUserRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.User, error) {
	const q = `
SELECT telegram_id, username, first_name, language_code, first_seen_at, last_seen_at
  FROM tg_users WHERE telegram_id=$1;
`
	row, err := pickRow(ctx, r.pool, tx, q, tgID)
	if err != nil {
		return nil, err
	}
	var u model.User
	if err := row.Scan(&u.TelegramID, &u.Username, &u.FirstName, &u.LanguageCode, &u.FirstSeenAt, &u.LastSeenAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *PostgresUserRepo) CountSeenSince(ctx context.Context, tx repository.Tx, since time.Time) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM tg_users WHERE last_seen_at >= $1;`, since)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
