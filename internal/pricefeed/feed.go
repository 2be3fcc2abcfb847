// Package pricefeed fetches the ETH/USD exchange rate from an ordered chain of
// providers, ending in a fixed fallback quote.
package pricefeed

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/majorbet/internal/domain"
)

const (
	// DefaultStageTimeout bounds each provider call.
	DefaultStageTimeout = 5 * time.Second
	// FallbackSymbol and FallbackPrice form the quote returned when every
	// provider fails.
	FallbackSymbol = "ETHUSD"
	FallbackPrice  = "3000"
)

// Provider is one stage of the price chain.
type Provider interface {
	Name() string
	Fetch(ctx context.Context) (domain.PriceQuote, error)
}

// Feed tries each provider in order and returns the first successful quote.
type Feed struct {
	providers    []Provider
	stageTimeout time.Duration
	fallback     domain.PriceQuote
	logger       *slog.Logger
}

// Option customizes a Feed.
type Option func(*Feed)

// WithStageTimeout overrides DefaultStageTimeout.
func WithStageTimeout(d time.Duration) Option {
	return func(f *Feed) {
		if d > 0 {
			f.stageTimeout = d
		}
	}
}

// WithFallback overrides the constant quote returned when all providers fail.
func WithFallback(symbol, price string) Option {
	return func(f *Feed) {
		if symbol != "" && price != "" {
			f.fallback = domain.PriceQuote{Symbol: symbol, Price: price, Source: "fallback"}
		}
	}
}

// NewFeed creates a Feed over providers, tried in the given order.
func NewFeed(logger *slog.Logger, providers []Provider, opts ...Option) *Feed {
	f := &Feed{
		providers:    providers,
		stageTimeout: DefaultStageTimeout,
		fallback:     domain.PriceQuote{Symbol: FallbackSymbol, Price: FallbackPrice, Source: "fallback"},
		logger:       logger.With(slog.String("component", "price_feed")),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchPrice never fails. Each provider gets its own timeout and is tried at
// most once per call.
func (f *Feed) FetchPrice(ctx context.Context) domain.PriceQuote {
	for _, p := range f.providers {
		if ctx.Err() != nil {
			break
		}
		q, err := f.fetchStage(ctx, p)
		if err == nil {
			return q
		}
		f.logger.WarnContext(ctx, "price provider failed",
			slog.String("provider", p.Name()),
			slog.String("error", err.Error()),
		)
	}
	f.logger.WarnContext(ctx, "all price providers failed, using fallback",
		slog.String("symbol", f.fallback.Symbol),
		slog.String("price", f.fallback.Price),
	)
	return f.fallback
}

func (f *Feed) fetchStage(ctx context.Context, p Provider) (domain.PriceQuote, error) {
	stageCtx, cancel := context.WithTimeout(ctx, f.stageTimeout)
	defer cancel()
	q, err := p.Fetch(stageCtx)
	if err != nil {
		return domain.PriceQuote{}, err
	}
	if q.Source == "" {
		q.Source = p.Name()
	}
	return q, nil
}
