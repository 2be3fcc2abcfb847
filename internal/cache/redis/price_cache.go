package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/majorbet/internal/domain"
)

// PriceCache implements domain.PriceCache using Redis hashes.
// Each asset's quote is stored at "price:{asset}" with fields "symbol",
// "price", "source" and "ts" (Unix nanoseconds).
type PriceCache struct {
	rdb *redis.Client
}

// NewPriceCache creates a PriceCache backed by the given Client.
func NewPriceCache(c *Client) *PriceCache {
	return &PriceCache{rdb: c.Underlying()}
}

func priceKey(asset string) string {
	return "price:" + asset
}

// SetQuote stores the latest quote and timestamp for an asset.
func (pc *PriceCache) SetQuote(ctx context.Context, asset string, quote domain.PriceQuote, ts time.Time) error {
	fields := map[string]interface{}{
		"symbol": quote.Symbol,
		"price":  quote.Price,
		"source": quote.Source,
		"ts":     strconv.FormatInt(ts.UnixNano(), 10),
	}
	if err := pc.rdb.HSet(ctx, priceKey(asset), fields).Err(); err != nil {
		return fmt.Errorf("redis: set quote %s: %w", asset, err)
	}
	return nil
}

// GetQuote returns the latest quote and its timestamp for an asset.
// It returns domain.ErrNotFound when no complete quote is stored.
func (pc *PriceCache) GetQuote(ctx context.Context, asset string) (domain.PriceQuote, time.Time, error) {
	vals, err := pc.rdb.HGetAll(ctx, priceKey(asset)).Result()
	if err != nil {
		return domain.PriceQuote{}, time.Time{}, fmt.Errorf("redis: get quote %s: %w", asset, err)
	}
	price, ok := vals["price"]
	if !ok || price == "" {
		return domain.PriceQuote{}, time.Time{}, domain.ErrNotFound
	}
	tsStr, ok := vals["ts"]
	if !ok {
		return domain.PriceQuote{}, time.Time{}, domain.ErrNotFound
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return domain.PriceQuote{}, time.Time{}, fmt.Errorf("redis: parse ts %s: %w", asset, err)
	}

	q := domain.PriceQuote{
		Symbol: vals["symbol"],
		Price:  price,
		Source: vals["source"],
	}
	return q, time.Unix(0, tsNano), nil
}

// Compile-time interface check.
var _ domain.PriceCache = (*PriceCache)(nil)
