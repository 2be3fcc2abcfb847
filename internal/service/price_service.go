package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/alanyoungcy/majorbet/internal/domain"
)

// priceAsset is the cache key for the ETH quote.
const priceAsset = "ETH"

// priceQuotaKey meters upstream provider calls across every instance.
const priceQuotaKey = "pricefeed:upstream"

// quotaWait bounds how long a refresh waits for upstream quota.
const quotaWait = 2 * time.Second

// PriceService keeps the latest ETH quote in the price cache.
type PriceService struct {
	feed    PriceFetcher
	cache   domain.PriceCache
	limiter domain.RateLimiter
	maxAge  time.Duration
	logger  *slog.Logger
}

// NewPriceService creates a PriceService. Cached quotes older than maxAge
// are refreshed on read. A non-nil limiter is waited on before each upstream
// fetch.
func NewPriceService(feed PriceFetcher, cache domain.PriceCache, limiter domain.RateLimiter, maxAge time.Duration, logger *slog.Logger) *PriceService {
	if maxAge <= 0 {
		maxAge = time.Minute
	}
	return &PriceService{
		feed:    feed,
		cache:   cache,
		limiter: limiter,
		maxAge:  maxAge,
		logger:  logger,
	}
}

// Refresh fetches a quote and caches it. It always returns a quote. When the
// upstream quota is exhausted the cached quote is returned instead, if any.
func (s *PriceService) Refresh(ctx context.Context) domain.PriceQuote {
	if s.limiter != nil {
		waitCtx, cancel := context.WithTimeout(ctx, quotaWait)
		err := s.limiter.Wait(waitCtx, priceQuotaKey)
		cancel()
		if err != nil {
			s.logger.WarnContext(ctx, "price_service: upstream quota wait failed", slog.String("error", err.Error()))
			if q, _, cerr := s.cache.GetQuote(ctx, priceAsset); cerr == nil {
				return q
			}
		}
	}

	q := s.feed.FetchPrice(ctx)
	if err := s.cache.SetQuote(ctx, priceAsset, q, time.Now()); err != nil {
		s.logger.WarnContext(ctx, "price_service: cache quote failed",
			slog.String("symbol", q.Symbol),
			slog.String("error", err.Error()),
		)
	}
	return q
}

// Quote returns the cached quote, refreshing it when missing or stale.
func (s *PriceService) Quote(ctx context.Context) domain.PriceQuote {
	q, ts, err := s.cache.GetQuote(ctx, priceAsset)
	if err == nil && time.Since(ts) <= s.maxAge {
		return q
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.WarnContext(ctx, "price_service: read cached quote failed", slog.String("error", err.Error()))
	}
	return s.Refresh(ctx)
}

// USDPerEth returns the quote as a number, or 0 if it cannot be parsed.
func (s *PriceService) USDPerEth(ctx context.Context) float64 {
	q := s.Quote(ctx)
	px, err := strconv.ParseFloat(q.Price, 64)
	if err != nil {
		s.logger.WarnContext(ctx, "price_service: unparsable price",
			slog.String("price", q.Price),
			slog.String("error", err.Error()),
		)
		return 0
	}
	return px
}
