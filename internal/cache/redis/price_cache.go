package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"predictd/internal/domain"
)

// PriceCache stores the latest derived prices per market as a Redis hash at
// key "price:{marketId}" with fields "yes", "no", and "ts" (Unix nanosecond
// timestamp). Readers that only need the current quote hit Redis instead of
// the engine.
type PriceCache struct {
	rdb *redis.Client
}

// NewPriceCache creates a PriceCache backed by the given Client.
func NewPriceCache(c *Client) *PriceCache {
	return &PriceCache{rdb: c.Underlying()}
}

func priceKey(marketID string) string {
	return "price:" + marketID
}

// SetPrices stores the latest price pair for a market.
func (pc *PriceCache) SetPrices(ctx context.Context, marketID string, yesPrice, noPrice float64, ts time.Time) error {
	fields := map[string]interface{}{
		"yes": strconv.FormatFloat(yesPrice, 'f', -1, 64),
		"no":  strconv.FormatFloat(noPrice, 'f', -1, 64),
		"ts":  strconv.FormatInt(ts.UnixNano(), 10),
	}
	if err := pc.rdb.HSet(ctx, priceKey(marketID), fields).Err(); err != nil {
		return fmt.Errorf("redis: set prices %s: %w", marketID, err)
	}
	return nil
}

// GetPrices retrieves the latest price pair for a market. It returns
// domain.ErrNotFound when no quote has been cached yet.
func (pc *PriceCache) GetPrices(ctx context.Context, marketID string) (yesPrice, noPrice float64, ts time.Time, err error) {
	vals, err := pc.rdb.HGetAll(ctx, priceKey(marketID)).Result()
	if err != nil {
		return 0, 0, time.Time{}, fmt.Errorf("redis: get prices %s: %w", marketID, err)
	}
	if len(vals) == 0 {
		return 0, 0, time.Time{}, domain.ErrNotFound
	}

	yesPrice, err = strconv.ParseFloat(vals["yes"], 64)
	if err != nil {
		return 0, 0, time.Time{}, fmt.Errorf("redis: parse yes price %s: %w", marketID, err)
	}
	noPrice, err = strconv.ParseFloat(vals["no"], 64)
	if err != nil {
		return 0, 0, time.Time{}, fmt.Errorf("redis: parse no price %s: %w", marketID, err)
	}
	tsNano, err := strconv.ParseInt(vals["ts"], 10, 64)
	if err != nil {
		return 0, 0, time.Time{}, fmt.Errorf("redis: parse ts %s: %w", marketID, err)
	}
	return yesPrice, noPrice, time.Unix(0, tsNano), nil
}
