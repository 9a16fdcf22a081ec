package domain

import "time"

// Product is read-only launch metadata for a product.
type Product struct {
	ID          string
	Name        string
	ProductArea string
	Owner       string
	LaunchStage string
	UpdatedAt   time.Time
}
