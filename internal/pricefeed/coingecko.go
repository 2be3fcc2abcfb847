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

// DefaultCoinGeckoURL is the public CoinGecko REST root.
const DefaultCoinGeckoURL = "https://api.coingecko.com"

// CoinGecko reads the simple price endpoint and reshapes it into a ticker.
type CoinGecko struct {
	baseURL    string
	httpClient *http.Client
}

// NewCoinGecko creates a CoinGecko provider for ethereum/usd.
func NewCoinGecko(baseURL string, httpClient *http.Client) *CoinGecko {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &CoinGecko{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *CoinGecko) Name() string { return "coingecko" }

// Fetch maps {"ethereum":{"usd":n}} to {ETHUSD, "n"}.
func (c *CoinGecko) Fetch(ctx context.Context) (domain.PriceQuote, error) {
	params := url.Values{}
	params.Set("ids", "ethereum")
	params.Set("vs_currencies", "usd")

	body, err := doGet(ctx, c.httpClient, c.baseURL+"/api/v3/simple/price?"+params.Encode())
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("pricefeed/coingecko: get price: %w", err)
	}

	var resp map[string]map[string]json.Number
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.PriceQuote{}, fmt.Errorf("pricefeed/coingecko: decode price: %w: %v", domain.ErrMalformedResponse, err)
	}
	usd, ok := resp["ethereum"]["usd"]
	if !ok {
		return domain.PriceQuote{}, fmt.Errorf("pricefeed/coingecko: missing ethereum.usd: %w", domain.ErrMalformedResponse)
	}
	price, err := normalizePrice(usd.String())
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("pricefeed/coingecko: %w", err)
	}
	return domain.PriceQuote{Symbol: "ETHUSD", Price: price, Source: c.Name()}, nil
}
