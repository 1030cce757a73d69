package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-affiliate-bot/internal/domain"
	"telegram-affiliate-bot/internal/domain/model"
	"telegram-affiliate-bot/internal/domain/ports/repository"
)

var _ repository.InteractionRepository = (*PostgresInteractionRepo)(nil)

type PostgresInteractionRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresInteractionRepo(pool *pgxpool.Pool) *PostgresInteractionRepo {
	return &PostgresInteractionRepo{pool: pool}
}

func (r *PostgresInteractionRepo) SaveSearch(ctx context.Context, tx repository.Tx, e *model.SearchEvent) error {
	const q = `
INSERT INTO search_events (id, user_id, merchant_slug, search_term, result_count, created_at)
VALUES ($1,$2,$3,$4,$5,$6);
`
	_, err := execSQL(ctx, r.pool, tx, q, e.ID, e.UserID, e.MerchantSlug, e.SearchTerm, e.ResultCount, stamp(e.CreatedAt))
	return err
}

func (r *PostgresInteractionRepo) SaveLinkGeneration(ctx context.Context, tx repository.Tx, g *model.LinkGeneration) error {
	const q = `
INSERT INTO link_generations (id, tracking_id, user_id, merchant_slug, tracked_url, source, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7);
`
	_, err := execSQL(ctx, r.pool, tx, q, g.ID, g.TrackingID, g.UserID, g.MerchantSlug, g.TrackedURL, string(g.Source), stamp(g.CreatedAt))
	return err
}

func (r *PostgresInteractionRepo) SaveViral(ctx context.Context, tx repository.Tx, v *model.ViralInteraction) error {
	const q = `
INSERT INTO viral_interactions (id, original_user_id, viral_user_id, merchant_slug, created_at)
VALUES ($1,$2,$3,$4,$5);
`
	_, err := execSQL(ctx, r.pool, tx, q, v.ID, v.OriginalUserID, v.ViralUserID, v.MerchantSlug, stamp(v.CreatedAt))
	return err
}

func (r *PostgresInteractionRepo) CountSearches(ctx context.Context, tx repository.Tx, since time.Time) (int, int, error) {
	const q = `
SELECT COUNT(*), COUNT(*) FILTER (WHERE result_count = 0)
  FROM search_events WHERE created_at >= $1;
`
	row, err := pickRow(ctx, r.pool, tx, q, since)
	if err != nil {
		return 0, 0, err
	}
	var total, zero int
	if err := row.Scan(&total, &zero); err != nil {
		return 0, 0, err
	}
	return total, zero, nil
}

func (r *PostgresInteractionRepo) CountLinkGenerations(ctx context.Context, tx repository.Tx, since time.Time) (int, error) {
	return r.count(ctx, tx, `SELECT COUNT(*) FROM link_generations WHERE created_at >= $1;`, since)
}

func (r *PostgresInteractionRepo) CountViral(ctx context.Context, tx repository.Tx, since time.Time) (int, error) {
	return r.count(ctx, tx, `SELECT COUNT(*) FROM viral_interactions WHERE created_at >= $1;`, since)
}

// TopMerchants ranks merchants by links generated since the cutoff.
// Callback-sourced links count as viral.
func (r *PostgresInteractionRepo) TopMerchants(ctx context.Context, tx repository.Tx, since time.Time, limit int) ([]model.MerchantStat, error) {
	if limit <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	const q = `
SELECT merchant_slug,
       COUNT(*) AS links,
       COUNT(*) FILTER (WHERE source = 'callback') AS viral_links
  FROM link_generations
 WHERE created_at >= $1
 GROUP BY merchant_slug
 ORDER BY links DESC, merchant_slug ASC
 LIMIT $2;
`
	rows, err := queryRows(ctx, r.pool, tx, q, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MerchantStat
	for rows.Next() {
		var s model.MerchantStat
		if err := rows.Scan(&s.MerchantSlug, &s.Links, &s.ViralLinks); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresInteractionRepo) count(ctx context.Context, tx repository.Tx, q string, since time.Time) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, q, since)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
