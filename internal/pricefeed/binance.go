package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/alanyoungcy/majorbet/internal/domain"
)

// DefaultBinanceURL is the public Binance REST root.
const DefaultBinanceURL = "https://api.binance.com"

// Binance reads the spot ticker for a single symbol.
type Binance struct {
	baseURL    string
	symbol     string
	httpClient *http.Client
}

// NewBinance creates a Binance provider for ETHUSDT.
func NewBinance(baseURL string, httpClient *http.Client) *Binance {
	if baseURL == "" {
		baseURL = DefaultBinanceURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Binance{
		baseURL:    strings.TrimRight(baseURL, "/"),
		symbol:     "ETHUSDT",
		httpClient: httpClient,
	}
}

func (b *Binance) Name() string { return "binance" }

type binanceTicker struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// Fetch returns the ticker as reported, e.g. {ETHUSDT, "3120.55"}.
func (b *Binance) Fetch(ctx context.Context) (domain.PriceQuote, error) {
	params := url.Values{}
	params.Set("symbol", b.symbol)

	body, err := doGet(ctx, b.httpClient, b.baseURL+"/api/v3/ticker/price?"+params.Encode())
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("pricefeed/binance: get ticker: %w", err)
	}

	var t binanceTicker
	if err := json.Unmarshal(body, &t); err != nil {
		return domain.PriceQuote{}, fmt.Errorf("pricefeed/binance: decode ticker: %w: %v", domain.ErrMalformedResponse, err)
	}
	if t.Symbol == "" {
		return domain.PriceQuote{}, fmt.Errorf("pricefeed/binance: missing symbol: %w", domain.ErrMalformedResponse)
	}
	price, err := normalizePrice(t.Price)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("pricefeed/binance: %w", err)
	}
	return domain.PriceQuote{Symbol: t.Symbol, Price: price, Source: b.Name()}, nil
}
