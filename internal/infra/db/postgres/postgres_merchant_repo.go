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

var _ repository.MerchantRepository = (*PostgresMerchantRepo)(nil)

type PostgresMerchantRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresMerchantRepo(pool *pgxpool.Pool) *PostgresMerchantRepo {
	return &PostgresMerchantRepo{pool: pool}
}

func (r *PostgresMerchantRepo) Upsert(ctx context.Context, tx repository.Tx, m *model.Merchant) error {
	if m.IsZero() {
		return domain.ErrInvalidArgument
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = time.Now()
	}
	const q = `
INSERT INTO merchants (slug, display_name, link_template, base_rate, updated_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (slug) DO UPDATE SET
  display_name=EXCLUDED.display_name, link_template=EXCLUDED.link_template,
  base_rate=EXCLUDED.base_rate, updated_at=EXCLUDED.updated_at;
`
	_, err := execSQL(ctx, r.pool, tx, q, m.Slug, m.DisplayName, m.LinkTemplate, m.BaseRate, m.UpdatedAt)
	return err
}

func (r *PostgresMerchantRepo) FindBySlug(ctx context.Context, tx repository.Tx, slug string) (*model.Merchant, error) {
	const q = `
SELECT slug, display_name, link_template, base_rate, updated_at
  FROM merchants WHERE slug=$1;
`
	row, err := pickRow(ctx, r.pool, tx, q, slug)
	if err != nil {
		return nil, err
	}
	var m model.Merchant
	if err := row.Scan(&m.Slug, &m.DisplayName, &m.LinkTemplate, &m.BaseRate, &m.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *PostgresMerchantRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Merchant, error) {
	const q = `SELECT slug, display_name, link_template, base_rate, updated_at FROM merchants;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Merchant
	for rows.Next() {
		var m model.Merchant
		if err := rows.Scan(&m.Slug, &m.DisplayName, &m.LinkTemplate, &m.BaseRate, &m.UpdatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (r *PostgresMerchantRepo) Delete(ctx context.Context, tx repository.Tx, slug string) error {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM merchants WHERE slug=$1;`, slug)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
