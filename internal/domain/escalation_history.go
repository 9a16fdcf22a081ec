package domain

import "time"

// EscalationHistoryEntry is an immutable status or comment record.
// OldStatus is nil only for the entry written at creation.
type EscalationHistoryEntry struct {
	ID           string
	EscalationID string
	UserID       string
	OldStatus    *AppStatus
	NewStatus    AppStatus
	Notes        *string
	ChangedAt    time.Time
}

// IsComment reports whether the entry left the status unchanged.
func (h EscalationHistoryEntry) IsComment() bool {
	return h.OldStatus != nil && *h.OldStatus == h.NewStatus
}
