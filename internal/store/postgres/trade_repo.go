package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"predictd/internal/domain"
)

// TradeRepository implements domain.TradeRepository using PostgreSQL.
type TradeRepository struct {
	pool *pgxpool.Pool
}

// NewTradeRepository creates a TradeRepository backed by the given pool.
func NewTradeRepository(pool *pgxpool.Pool) *TradeRepository {
	return &TradeRepository{pool: pool}
}

// LoadAll returns the whole trade journal in commit order.
func (r *TradeRepository) LoadAll(ctx context.Context) ([]*domain.Trade, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, market_id, outcome, shares_bought, cost, created_at
		 FROM trades ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: load trades: %w", err)
	}
	defer rows.Close()

	var trades []*domain.Trade
	for rows.Next() {
		var t domain.Trade
		var outcome string
		var cost decimal.Decimal
		if err := rows.Scan(&t.ID, &t.UserID, &t.MarketID, &outcome, &t.SharesBought, &cost, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		t.Outcome = domain.Outcome(outcome)
		t.Cost = cost
		trades = append(trades, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate trades: %w", err)
	}
	return trades, nil
}

// SaveAll replaces the trades table with the given journal in one
// transaction.
func (r *TradeRepository) SaveAll(ctx context.Context, trades []*domain.Trade) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin save trades: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM trades`); err != nil {
		return fmt.Errorf("postgres: clear trades: %w", err)
	}

	const insert = `
		INSERT INTO trades (id, user_id, market_id, outcome, shares_bought, cost, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, t := range trades {
		if _, err := tx.Exec(ctx, insert,
			t.ID, t.UserID, t.MarketID, string(t.Outcome), t.SharesBought, t.Cost, t.CreatedAt,
		); err != nil {
			return fmt.Errorf("postgres: insert trade %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit save trades: %w", err)
	}
	return nil
}
