package handler

import (
	"context"
	"net/http"

	"github.com/alanyoungcy/majorbet/internal/domain"
)

// PriceQuoter returns the current ETH quote. It never fails.
type PriceQuoter interface {
	Quote(ctx context.Context) domain.PriceQuote
}

// PriceHandler serves the ETH/USD quote.
type PriceHandler struct {
	prices PriceQuoter
}

// NewPriceHandler creates a PriceHandler.
func NewPriceHandler(prices PriceQuoter) *PriceHandler {
	return &PriceHandler{prices: prices}
}

// GetPrice returns {symbol, price, source}.
// GET /api/price
func (h *PriceHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.prices.Quote(r.Context()))
}
