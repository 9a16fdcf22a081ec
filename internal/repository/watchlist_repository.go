package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/coverage-service/internal/domain"
)

// ErrDuplicateWatch signals the unique watch index rejected an insert.
var ErrDuplicateWatch = errors.New("watchlist: duplicate entry")

// WatchlistRepository manages per-user product watches.
type WatchlistRepository interface {
	Create(ctx context.Context, q Querier, entry *domain.WatchlistEntry) error
	Delete(ctx context.Context, q Querier, userID, id string) error
	ListByUser(ctx context.Context, q Querier, userID string) ([]domain.WatchlistEntry, error)
	ListByProduct(ctx context.Context, q Querier, productID string) ([]domain.WatchlistEntry, error)
}

type watchlistRepository struct{}

// NewWatchlistRepository constructs repository.
func NewWatchlistRepository() WatchlistRepository {
	return &watchlistRepository{}
}

const watchlistColumns = `id, user_id, product_id, scope_level, city_id, country_code, region, notify_email, created_at`

func (r *watchlistRepository) Create(ctx context.Context, q Querier, entry *domain.WatchlistEntry) error {
	var (
		level *string
		cols  domain.MarketColumns
	)
	if entry.Market != nil {
		l := string(entry.Market.Level)
		level = &l
		cols = entry.Market.Columns()
	}
	const query = `
        INSERT INTO watchlist (user_id, product_id, scope_level, city_id, country_code, region, notify_email)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	err := q.QueryRow(ctx, query,
		entry.UserID,
		entry.ProductID,
		level,
		cols.CityID,
		cols.CountryCode,
		cols.Region,
		entry.NotifyEmail,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateWatch
		}
		return err
	}
	return nil
}

func (r *watchlistRepository) Delete(ctx context.Context, q Querier, userID, id string) error {
	cmd, err := q.Exec(ctx, `DELETE FROM watchlist WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *watchlistRepository) ListByUser(ctx context.Context, q Querier, userID string) ([]domain.WatchlistEntry, error) {
	query := `SELECT ` + watchlistColumns + ` FROM watchlist WHERE user_id=$1 ORDER BY created_at DESC`
	return r.list(ctx, q, query, userID)
}

func (r *watchlistRepository) ListByProduct(ctx context.Context, q Querier, productID string) ([]domain.WatchlistEntry, error) {
	query := `SELECT ` + watchlistColumns + ` FROM watchlist WHERE product_id=$1 ORDER BY created_at ASC`
	return r.list(ctx, q, query, productID)
}

func (r *watchlistRepository) list(ctx context.Context, q Querier, query string, arg any) ([]domain.WatchlistEntry, error) {
	rows, err := q.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.WatchlistEntry{}
	for rows.Next() {
		var (
			entry domain.WatchlistEntry
			level *string
			cols  domain.MarketColumns
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.ProductID,
			&level,
			&cols.CityID,
			&cols.CountryCode,
			&cols.Region,
			&entry.NotifyEmail,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		if level != nil {
			market, err := domain.MarketRefFromColumns(domain.ScopeLevel(*level), cols)
			if err != nil {
				return nil, fmt.Errorf("watchlist %s: %w", entry.ID, err)
			}
			entry.Market = &market
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
