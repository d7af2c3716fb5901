package file

import (
	"context"
	"path/filepath"

	"predictd/internal/domain"
)

// TradeRepository persists the trade journal to trades.json.
type TradeRepository struct {
	path string
}

// NewTradeRepository creates a TradeRepository rooted at dir.
func NewTradeRepository(dir string) *TradeRepository {
	return &TradeRepository{path: filepath.Join(dir, tradesFile)}
}

// LoadAll reads the persisted trade journal. A missing snapshot yields an
// empty collection.
func (r *TradeRepository) LoadAll(ctx context.Context) ([]*domain.Trade, error) {
	var trades []*domain.Trade
	if err := readCollection(r.path, &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

// SaveAll atomically replaces the trade snapshot.
func (r *TradeRepository) SaveAll(ctx context.Context, trades []*domain.Trade) error {
	if trades == nil {
		trades = []*domain.Trade{}
	}
	return writeAtomic(r.path, trades)
}
