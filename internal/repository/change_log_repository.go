package repository

import (
	"context"

	"github.com/spec-kit/coverage-service/internal/domain"
)

// ChangeLogRepository appends audit rows.
type ChangeLogRepository interface {
	Create(ctx context.Context, q Querier, entry *domain.ChangeLogEntry) error
}

type changeLogRepository struct{}

// NewChangeLogRepository builds repository.
func NewChangeLogRepository() ChangeLogRepository {
	return &changeLogRepository{}
}

func (r *changeLogRepository) Create(ctx context.Context, q Querier, entry *domain.ChangeLogEntry) error {
	diff := entry.Diff
	if diff == nil {
		diff = map[string]any{}
	}
	const query = `
        INSERT INTO change_log (operation, table_name, rows_affected, diff, changed_by)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return q.QueryRow(ctx, query,
		entry.Operation,
		entry.TableName,
		entry.RowsAffected,
		diff,
		entry.ChangedBy,
	).Scan(&entry.ID, &entry.CreatedAt)
}
