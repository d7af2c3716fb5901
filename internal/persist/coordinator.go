// Package persist coordinates the durable backend with the in-memory stores.
// The coordinator loads and validates all collections at boot, and writes
// them back after every committed mutation. It is the only writer of the
// persistence layer.
package persist

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"predictd/internal/domain"
	"predictd/internal/store/memory"
)

// Coordinator owns the three repositories and the two in-memory stores.
type Coordinator struct {
	markets domain.MarketRepository
	users   domain.UserRepository
	trades  domain.TradeRepository

	marketStore *memory.MarketStore
	userStore   *memory.UserStore

	mu      sync.RWMutex
	journal []*domain.Trade

	logger *slog.Logger
}

// NewCoordinator creates a Coordinator over the given backend and stores.
func NewCoordinator(
	markets domain.MarketRepository,
	users domain.UserRepository,
	trades domain.TradeRepository,
	marketStore *memory.MarketStore,
	userStore *memory.UserStore,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		markets:     markets,
		users:       users,
		trades:      trades,
		marketStore: marketStore,
		userStore:   userStore,
		logger:      logger.With(slog.String("component", "persist")),
	}
}

// LoadAll restores the durable state into the in-memory stores. Every object
// is validated before admission; a structural failure aborts the load. After
// validation the collections are cross-checked: positions whose market does
// not exist, and trades whose user or market does not exist, are dropped with
// a warning rather than admitted.
func (c *Coordinator) LoadAll(ctx context.Context) error {
	markets, err := c.markets.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("persist: load markets: %w", err)
	}
	users, err := c.users.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("persist: load users: %w", err)
	}
	trades, err := c.trades.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("persist: load trades: %w", err)
	}

	knownMarkets := make(map[string]bool, len(markets))
	for _, m := range markets {
		if err := c.marketStore.Put(m); err != nil {
			return fmt.Errorf("persist: admit market %s: %w", m.ID, err)
		}
		knownMarkets[m.ID] = true
	}

	for _, u := range users {
		for marketID := range u.Positions {
			if !knownMarkets[marketID] {
				c.logger.WarnContext(ctx, "dropping position referencing unknown market",
					slog.String("user_id", u.ID),
					slog.String("market_id", marketID),
				)
				delete(u.Positions, marketID)
			}
		}
		if err := c.userStore.Put(u); err != nil {
			return fmt.Errorf("persist: admit user %s: %w", u.ID, err)
		}
	}

	knownUsers := make(map[string]bool, len(users))
	for _, u := range users {
		knownUsers[u.ID] = true
	}

	kept := make([]*domain.Trade, 0, len(trades))
	for _, t := range trades {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("persist: admit trade: %w", err)
		}
		if !knownUsers[t.UserID] || !knownMarkets[t.MarketID] {
			c.logger.WarnContext(ctx, "dropping trade with dangling reference",
				slog.String("trade_id", t.ID),
				slog.String("user_id", t.UserID),
				slog.String("market_id", t.MarketID),
			)
			continue
		}
		kept = append(kept, t)
	}

	c.mu.Lock()
	c.journal = kept
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "state restored",
		slog.Int("markets", c.marketStore.Len()),
		slog.Int("users", c.userStore.Len()),
		slog.Int("trades", len(kept)),
	)
	return nil
}

// SaveAll writes every collection back to the durable backend. It runs after
// the in-memory commit; a failure here means memory and storage have
// diverged, which the caller surfaces as a durability error. Memory is never
// rolled back.
func (c *Coordinator) SaveAll(ctx context.Context) error {
	if err := c.markets.SaveAll(ctx, c.marketStore.All()); err != nil {
		return fmt.Errorf("%w: save markets: %v", domain.ErrDurability, err)
	}
	if err := c.trades.SaveAll(ctx, c.Trades()); err != nil {
		return fmt.Errorf("%w: save trades: %v", domain.ErrDurability, err)
	}
	if err := c.users.SaveAll(ctx, c.userStore.All()); err != nil {
		return fmt.Errorf("%w: save users: %v", domain.ErrDurability, err)
	}
	return nil
}

// RecordTrade appends a committed trade to the journal. The journal mirrors
// the trade repository; SaveAll writes it out.
func (c *Coordinator) RecordTrade(t *domain.Trade) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.journal = append(c.journal, t)
}

// Trades returns a copy of the trade journal in commit order.
func (c *Coordinator) Trades() []*domain.Trade {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*domain.Trade, len(c.journal))
	copy(out, c.journal)
	return out
}

// TradesByMarket returns the journal entries for one market in commit order.
func (c *Coordinator) TradesByMarket(marketID string) []*domain.Trade {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*domain.Trade
	for _, t := range c.journal {
		if t.MarketID == marketID {
			out = append(out, t)
		}
	}
	return out
}
