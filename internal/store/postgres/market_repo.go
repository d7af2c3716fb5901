package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"predictd/internal/domain"
)

// MarketRepository implements domain.MarketRepository using PostgreSQL.
type MarketRepository struct {
	pool *pgxpool.Pool
}

// NewMarketRepository creates a MarketRepository backed by the given pool.
func NewMarketRepository(pool *pgxpool.Pool) *MarketRepository {
	return &MarketRepository{pool: pool}
}

const marketSelectCols = `id, name, description, q_yes, q_no, liquidity, status, resolved_outcome`

func scanMarket(row pgx.Row) (*domain.Market, error) {
	var m domain.Market
	var status string
	var resolved *string
	if err := row.Scan(&m.ID, &m.Name, &m.Description, &m.QYes, &m.QNo, &m.Liquidity, &status, &resolved); err != nil {
		return nil, err
	}
	m.Status = domain.MarketStatus(status)
	if resolved != nil {
		m.ResolvedOutcome = domain.Outcome(*resolved)
	}
	return &m, nil
}

func scanMarkets(rows pgx.Rows) ([]*domain.Market, error) {
	defer rows.Close()
	var markets []*domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, err
		}
		markets = append(markets, m)
	}
	return markets, rows.Err()
}

// LoadAll returns every market, ordered by id.
func (r *MarketRepository) LoadAll(ctx context.Context) ([]*domain.Market, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+marketSelectCols+` FROM markets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: load markets: %w", err)
	}
	markets, err := scanMarkets(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan markets: %w", err)
	}
	return markets, nil
}

// SaveAll replaces the markets table with the given collection in one
// transaction.
func (r *MarketRepository) SaveAll(ctx context.Context, markets []*domain.Market) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin save markets: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM markets`); err != nil {
		return fmt.Errorf("postgres: clear markets: %w", err)
	}

	const insert = `
		INSERT INTO markets (id, name, description, q_yes, q_no, liquidity, status, resolved_outcome)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, m := range markets {
		var resolved *string
		if m.ResolvedOutcome != "" {
			s := string(m.ResolvedOutcome)
			resolved = &s
		}
		if _, err := tx.Exec(ctx, insert,
			m.ID, m.Name, m.Description, m.QYes, m.QNo, m.Liquidity, string(m.Status), resolved,
		); err != nil {
			return fmt.Errorf("postgres: insert market %s: %w", m.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit save markets: %w", err)
	}
	return nil
}

// LoadByID returns a single market, or domain.ErrNotFound.
func (r *MarketRepository) LoadByID(ctx context.Context, id string) (*domain.Market, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+marketSelectCols+` FROM markets WHERE id = $1`, id)
	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("market %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("postgres: load market %s: %w", id, err)
	}
	return m, nil
}

// LoadByStatus returns the markets with the given status, ordered by id.
func (r *MarketRepository) LoadByStatus(ctx context.Context, status domain.MarketStatus) ([]*domain.Market, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+marketSelectCols+` FROM markets WHERE status = $1 ORDER BY id`, string(status))
	if err != nil {
		return nil, fmt.Errorf("postgres: load markets by status: %w", err)
	}
	markets, err := scanMarkets(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan markets by status: %w", err)
	}
	return markets, nil
}
