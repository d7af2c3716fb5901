package service

import (
	"context"
	"sort"
	"sync"

	"predictd/internal/domain"
	"predictd/internal/lmsr"
)

// CommitLock serializes every mutating operation across the services. It is
// created once in wiring and shared by MarketService, UserService, and
// TradeService.
type CommitLock = sync.Mutex

// PricePublisher receives price updates and resolution events after a commit.
// Implementations are best-effort side channels (cache, pub/sub, websocket);
// a publish failure never fails the operation.
type PricePublisher interface {
	PublishPrices(ctx context.Context, marketID string, yesPrice, noPrice float64) error
	PublishResolved(ctx context.Context, marketID string, outcome domain.Outcome) error
}

func marketMaxLoss(m *domain.Market) float64 {
	return lmsr.MaxLoss(m.Liquidity)
}

func sortedPositionKeys(positions map[string]*domain.Position) []string {
	keys := make([]string, 0, len(positions))
	for k := range positions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
