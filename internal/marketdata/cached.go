package marketdata

import (
	"context"
	"time"

	"github.com/wonny/divsage/internal/contracts"
	"github.com/wonny/divsage/pkg/redis"
)

// Cache TTLs. Fundamentals move on quarterly reports, prices daily;
// short TTLs keep repeated advisory runs cheap without masking a
// refresh for long.
const (
	fundamentalTTL = 15 * time.Minute
	priceTTL       = 5 * time.Minute
)

// cachedPrice distinguishes "no price exists" from a cache miss
type cachedPrice struct {
	Price float64 `json:"price"`
	Found bool    `json:"found"`
}

// CachedMarketData layers a read-through cache over the repository.
// Implements contracts.MarketData. Cache failures fall through to the
// database: staleness and availability both degrade softly.
type CachedMarketData struct {
	repo  *Repository
	cache *redis.Cache
}

// NewCachedMarketData wraps a repository with a read-through cache
func NewCachedMarketData(repo *Repository, cache *redis.Cache) *CachedMarketData {
	return &CachedMarketData{repo: repo, cache: cache}
}

// LatestFundamental retrieves the active fundamental record,
// cache-first
func (c *CachedMarketData) LatestFundamental(ctx context.Context, ticker string) (*contracts.FundamentalRecord, error) {
	key := redis.FundamentalKey(ticker)

	var rec contracts.FundamentalRecord
	if found, err := c.cache.Get(ctx, key, &rec); err == nil && found {
		return &rec, nil
	}

	fresh, err := c.repo.LatestFundamental(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if fresh != nil {
		_ = c.cache.Set(ctx, key, fresh, fundamentalTTL)
	}

	return fresh, nil
}

// LatestPrice retrieves the most recent close price, cache-first
func (c *CachedMarketData) LatestPrice(ctx context.Context, ticker string) (float64, bool, error) {
	key := redis.PriceKey(ticker)

	var cached cachedPrice
	if found, err := c.cache.Get(ctx, key, &cached); err == nil && found {
		return cached.Price, cached.Found, nil
	}

	price, ok, err := c.repo.LatestPrice(ctx, ticker)
	if err != nil {
		return 0, false, err
	}
	_ = c.cache.Set(ctx, key, cachedPrice{Price: price, Found: ok}, priceTTL)

	return price, ok, nil
}

// Invalidate drops cached entries for a ticker after re-ingestion
func (c *CachedMarketData) Invalidate(ctx context.Context, ticker string) {
	_ = c.cache.Delete(ctx, redis.FundamentalKey(ticker))
	_ = c.cache.Delete(ctx, redis.PriceKey(ticker))
}
