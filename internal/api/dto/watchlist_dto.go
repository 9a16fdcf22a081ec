package dto

import (
	"time"

	"github.com/spec-kit/coverage-service/internal/domain"
)

// AddWatchRequest payload. Omit scope_level and market_id to watch every
// market of the product.
type AddWatchRequest struct {
	ProductID   string `json:"product_id"`
	ScopeLevel  string `json:"scope_level"`
	MarketID    string `json:"market_id"`
	NotifyEmail string `json:"notify_email"`
}

// WatchResponse represents a watchlist entry.
type WatchResponse struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	Market      *MarketResponse `json:"market"`
	NotifyEmail string          `json:"notify_email"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewWatchResponse maps a watchlist entry.
func NewWatchResponse(w *domain.WatchlistEntry) WatchResponse {
	resp := WatchResponse{
		ID:          w.ID,
		ProductID:   w.ProductID,
		NotifyEmail: w.NotifyEmail,
		CreatedAt:   w.CreatedAt,
	}
	if w.Market != nil {
		m := NewMarketResponse(*w.Market)
		resp.Market = &m
	}
	return resp
}
