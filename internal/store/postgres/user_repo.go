package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"predictd/internal/domain"
)

// UserRepository implements domain.UserRepository using PostgreSQL. Users and
// their positions live in two tables joined on user_id.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a UserRepository backed by the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// LoadAll returns every user with positions attached, ordered by id.
func (r *UserRepository) LoadAll(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, balance FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: load users: %w", err)
	}
	users, byID, err := scanUsers(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan users: %w", err)
	}

	posRows, err := r.pool.Query(ctx,
		`SELECT user_id, market_id, yes_shares, no_shares, settled FROM positions ORDER BY user_id, market_id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: load positions: %w", err)
	}
	if err := attachPositions(posRows, byID); err != nil {
		return nil, fmt.Errorf("postgres: scan positions: %w", err)
	}
	return users, nil
}

func scanUsers(rows pgx.Rows) ([]*domain.User, map[string]*domain.User, error) {
	defer rows.Close()
	var users []*domain.User
	byID := make(map[string]*domain.User)
	for rows.Next() {
		var u domain.User
		var balance decimal.Decimal
		if err := rows.Scan(&u.ID, &balance); err != nil {
			return nil, nil, err
		}
		u.Balance = balance
		u.Positions = make(map[string]*domain.Position)
		users = append(users, &u)
		byID[u.ID] = &u
	}
	return users, byID, rows.Err()
}

func attachPositions(rows pgx.Rows, byID map[string]*domain.User) error {
	defer rows.Close()
	for rows.Next() {
		var userID string
		var p domain.Position
		if err := rows.Scan(&userID, &p.MarketID, &p.YesShares, &p.NoShares, &p.Settled); err != nil {
			return err
		}
		if u, ok := byID[userID]; ok {
			pos := p
			u.Positions[pos.MarketID] = &pos
		}
	}
	return rows.Err()
}

// SaveAll replaces the users and positions tables with the given collection
// in one transaction.
func (r *UserRepository) SaveAll(ctx context.Context, users []*domain.User) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin save users: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM positions`); err != nil {
		return fmt.Errorf("postgres: clear positions: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM users`); err != nil {
		return fmt.Errorf("postgres: clear users: %w", err)
	}

	for _, u := range users {
		if _, err := tx.Exec(ctx,
			`INSERT INTO users (id, balance) VALUES ($1, $2)`,
			u.ID, u.Balance,
		); err != nil {
			return fmt.Errorf("postgres: insert user %s: %w", u.ID, err)
		}
		for _, p := range u.Positions {
			if _, err := tx.Exec(ctx,
				`INSERT INTO positions (user_id, market_id, yes_shares, no_shares, settled)
				 VALUES ($1, $2, $3, $4, $5)`,
				u.ID, p.MarketID, p.YesShares, p.NoShares, p.Settled,
			); err != nil {
				return fmt.Errorf("postgres: insert position %s/%s: %w", u.ID, p.MarketID, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit save users: %w", err)
	}
	return nil
}

// LoadByID returns a single user with positions attached, or
// domain.ErrNotFound.
func (r *UserRepository) LoadByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	var balance decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT id, balance FROM users WHERE id = $1`, id).
		Scan(&u.ID, &balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("postgres: load user %s: %w", id, err)
	}
	u.Balance = balance
	u.Positions = make(map[string]*domain.Position)

	rows, err := r.pool.Query(ctx,
		`SELECT user_id, market_id, yes_shares, no_shares, settled FROM positions WHERE user_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("postgres: load positions for %s: %w", id, err)
	}
	if err := attachPositions(rows, map[string]*domain.User{u.ID: &u}); err != nil {
		return nil, fmt.Errorf("postgres: scan positions for %s: %w", id, err)
	}
	return &u, nil
}
