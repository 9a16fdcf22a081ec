package repository

import (
	"context"

	"github.com/spec-kit/coverage-service/internal/domain"
)

// EtlStatusRepository reads ingestion job freshness.
type EtlStatusRepository interface {
	List(ctx context.Context, q Querier) ([]domain.EtlStatus, error)
}

type etlStatusRepository struct{}

// NewEtlStatusRepository builds the repository.
func NewEtlStatusRepository() EtlStatusRepository {
	return &etlStatusRepository{}
}

func (r *etlStatusRepository) List(ctx context.Context, q Querier) ([]domain.EtlStatus, error) {
	const query = `
        SELECT job_name, status, last_run_at, rows_loaded, message
        FROM etl_status ORDER BY job_name ASC`
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.EtlStatus{}
	for rows.Next() {
		var status domain.EtlStatus
		if err := rows.Scan(&status.JobName, &status.Status, &status.LastRunAt, &status.RowsLoaded, &status.Message); err != nil {
			return nil, err
		}
		result = append(result, status)
	}
	return result, rows.Err()
}
