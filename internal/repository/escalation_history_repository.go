package repository

import (
	"context"
	"fmt"

	"github.com/spec-kit/coverage-service/internal/domain"
)

// EscalationHistoryRepository stores append-only history entries.
type EscalationHistoryRepository interface {
	Create(ctx context.Context, q Querier, entry *domain.EscalationHistoryEntry) error
	ListByEscalation(ctx context.Context, q Querier, escalationID string) ([]domain.EscalationHistoryEntry, error)
}

type escalationHistoryRepository struct{}

// NewEscalationHistoryRepository builds repository.
func NewEscalationHistoryRepository() EscalationHistoryRepository {
	return &escalationHistoryRepository{}
}

func (r *escalationHistoryRepository) Create(ctx context.Context, q Querier, entry *domain.EscalationHistoryEntry) error {
	newStatus, err := domain.ToStorageStatus(entry.NewStatus)
	if err != nil {
		return err
	}
	var oldStatus *string
	if entry.OldStatus != nil {
		stored, err := domain.ToStorageStatus(*entry.OldStatus)
		if err != nil {
			return err
		}
		s := string(stored)
		oldStatus = &s
	}
	const query = `
        INSERT INTO escalation_history (escalation_id, user_id, old_status, new_status, notes)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, changed_at`
	return q.QueryRow(ctx, query,
		entry.EscalationID,
		entry.UserID,
		oldStatus,
		string(newStatus),
		entry.Notes,
	).Scan(&entry.ID, &entry.ChangedAt)
}

// ListByEscalation returns entries newest first.
func (r *escalationHistoryRepository) ListByEscalation(ctx context.Context, q Querier, escalationID string) ([]domain.EscalationHistoryEntry, error) {
	const query = `
        SELECT id, escalation_id, user_id, old_status, new_status, notes, changed_at
        FROM escalation_history WHERE escalation_id=$1 ORDER BY changed_at DESC, id DESC`
	rows, err := q.Query(ctx, query, escalationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.EscalationHistoryEntry{}
	for rows.Next() {
		var (
			entry     domain.EscalationHistoryEntry
			oldStatus *string
			newStatus string
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.EscalationID,
			&entry.UserID,
			&oldStatus,
			&newStatus,
			&entry.Notes,
			&entry.ChangedAt,
		); err != nil {
			return nil, err
		}
		if oldStatus != nil {
			app, err := domain.ToAppStatus(domain.StorageStatus(*oldStatus))
			if err != nil {
				return nil, fmt.Errorf("history %s: %w", entry.ID, err)
			}
			entry.OldStatus = &app
		}
		app, err := domain.ToAppStatus(domain.StorageStatus(newStatus))
		if err != nil {
			return nil, fmt.Errorf("history %s: %w", entry.ID, err)
		}
		entry.NewStatus = app
		result = append(result, entry)
	}
	return result, rows.Err()
}
