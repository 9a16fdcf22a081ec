package domain

import "time"

// WatchlistEntry subscribes a user to escalation activity on a product,
// optionally narrowed to one market.
type WatchlistEntry struct {
	ID          string
	UserID      string
	ProductID   string
	Market      *MarketRef
	NotifyEmail string
	CreatedAt   time.Time
}

// Matches reports whether an escalation in market m concerns this watch.
func (w WatchlistEntry) Matches(productID string, m MarketRef) bool {
	if w.ProductID != productID {
		return false
	}
	return w.Market == nil || *w.Market == m
}
