package file

import (
	"context"
	"fmt"
	"path/filepath"

	"predictd/internal/domain"
)

// MarketRepository persists markets to markets.json in the data directory.
type MarketRepository struct {
	path string
}

// NewMarketRepository creates a MarketRepository rooted at dir.
func NewMarketRepository(dir string) *MarketRepository {
	return &MarketRepository{path: filepath.Join(dir, marketsFile)}
}

// LoadAll reads every persisted market. A missing snapshot yields an empty
// collection.
func (r *MarketRepository) LoadAll(ctx context.Context) ([]*domain.Market, error) {
	var markets []*domain.Market
	if err := readCollection(r.path, &markets); err != nil {
		return nil, err
	}
	return markets, nil
}

// SaveAll atomically replaces the market snapshot.
func (r *MarketRepository) SaveAll(ctx context.Context, markets []*domain.Market) error {
	if markets == nil {
		markets = []*domain.Market{}
	}
	return writeAtomic(r.path, markets)
}

// LoadByID scans the snapshot for a single market.
func (r *MarketRepository) LoadByID(ctx context.Context, id string) (*domain.Market, error) {
	markets, err := r.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range markets {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, fmt.Errorf("market %s: %w", id, domain.ErrNotFound)
}

// LoadByStatus returns the persisted markets with the given status.
func (r *MarketRepository) LoadByStatus(ctx context.Context, status domain.MarketStatus) ([]*domain.Market, error) {
	markets, err := r.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	filtered := markets[:0:0]
	for _, m := range markets {
		if m.Status == status {
			filtered = append(filtered, m)
		}
	}
	return filtered, nil
}
