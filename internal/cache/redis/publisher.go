package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"predictd/internal/domain"
)

// Channel names used on the signal bus.
const (
	ChannelPrices  = "prices"
	ChannelMarkets = "markets"
)

// Publisher implements service.PricePublisher on top of the price cache and
// the signal bus: each committed trade refreshes the cached quote and emits
// a price_update event; each resolution emits a market_resolved event.
type Publisher struct {
	cache *PriceCache
	bus   *SignalBus
}

// NewPublisher creates a Publisher over the given cache and bus.
func NewPublisher(cache *PriceCache, bus *SignalBus) *Publisher {
	return &Publisher{cache: cache, bus: bus}
}

// PublishPrices refreshes the cached quote and broadcasts the update.
func (p *Publisher) PublishPrices(ctx context.Context, marketID string, yesPrice, noPrice float64) error {
	now := time.Now().UTC()
	if err := p.cache.SetPrices(ctx, marketID, yesPrice, noPrice, now); err != nil {
		return err
	}

	evt, err := json.Marshal(map[string]any{
		"event":     "price_update",
		"market":    marketID,
		"yesPrice":  yesPrice,
		"noPrice":   noPrice,
		"timestamp": now.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("redis: marshal price update: %w", err)
	}
	return p.bus.Publish(ctx, ChannelPrices, evt)
}

// PublishResolved broadcasts a resolution event.
func (p *Publisher) PublishResolved(ctx context.Context, marketID string, outcome domain.Outcome) error {
	evt, err := json.Marshal(map[string]any{
		"event":     "market_resolved",
		"market":    marketID,
		"outcome":   outcome,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("redis: marshal resolution: %w", err)
	}
	return p.bus.Publish(ctx, ChannelMarkets, evt)
}
