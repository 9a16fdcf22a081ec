package domain

import "time"

// ChangeLogEntry is an audit row describing one write operation.
type ChangeLogEntry struct {
	ID           string
	Operation    string
	TableName    string
	RowsAffected int64
	Diff         map[string]any
	ChangedBy    string
	CreatedAt    time.Time
}
