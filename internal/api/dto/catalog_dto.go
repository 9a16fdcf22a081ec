package dto

import (
	"time"

	"github.com/spec-kit/coverage-service/internal/domain"
)

// ProductResponse represents product metadata.
type ProductResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ProductArea string    `json:"product_area"`
	Owner       string    `json:"owner"`
	LaunchStage string    `json:"launch_stage"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EtlStatusResponse represents ingestion freshness.
type EtlStatusResponse struct {
	JobName    string              `json:"job_name"`
	Status     domain.EtlRunStatus `json:"status"`
	LastRunAt  *time.Time          `json:"last_run_at"`
	RowsLoaded int64               `json:"rows_loaded"`
	Message    *string             `json:"message"`
}

// NewProductResponse maps a product.
func NewProductResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		ProductArea: p.ProductArea,
		Owner:       p.Owner,
		LaunchStage: p.LaunchStage,
		UpdatedAt:   p.UpdatedAt,
	}
}

// NewEtlStatusResponse maps an ETL status row.
func NewEtlStatusResponse(s *domain.EtlStatus) EtlStatusResponse {
	return EtlStatusResponse{
		JobName:    s.JobName,
		Status:     s.Status,
		LastRunAt:  s.LastRunAt,
		RowsLoaded: s.RowsLoaded,
		Message:    s.Message,
	}
}
