package events

import (
	"time"

	"github.com/spec-kit/coverage-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventEscalationCreated       EventType = "escalation_created"
	EventEscalationStatusChanged EventType = "escalation_status_changed"
	EventEscalationCommented     EventType = "escalation_commented"
)

// AllEventTypes lists every type the service emits.
func AllEventTypes() []EventType {
	return []EventType{EventEscalationCreated, EventEscalationStatusChanged, EventEscalationCommented}
}

// Actor identifies who caused an event.
type Actor struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID           string      `json:"id"`
	Type         EventType   `json:"type"`
	EscalationID string      `json:"escalation_id"`
	ProductID    string      `json:"product_id"`
	Market       MarketRef   `json:"market"`
	Actor        Actor       `json:"actor"`
	Timestamp    time.Time   `json:"timestamp"`
	Payload      interface{} `json:"payload"`
}

// MarketRef is the wire form of domain.MarketRef.
type MarketRef struct {
	ScopeLevel domain.ScopeLevel `json:"scope_level"`
	ID         string            `json:"id"`
}

// NewMarketRef converts a domain reference.
func NewMarketRef(m domain.MarketRef) MarketRef {
	return MarketRef{ScopeLevel: m.Level, ID: m.ID}
}

// Domain converts back to the domain reference.
func (m MarketRef) Domain() domain.MarketRef {
	return domain.MarketRef{Level: m.ScopeLevel, ID: m.ID}
}

// EscalationCreatedPayload payload.
type EscalationCreatedPayload struct {
	POC        string            `json:"poc"`
	ReasonType domain.ReasonType `json:"reason_type"`
	Status     domain.AppStatus  `json:"status"`
}

// EscalationStatusChangedPayload payload.
type EscalationStatusChangedPayload struct {
	OldStatus domain.AppStatus `json:"old_status"`
	NewStatus domain.AppStatus `json:"new_status"`
	Notes     string           `json:"notes,omitempty"`
}

// EscalationCommentedPayload payload.
type EscalationCommentedPayload struct {
	Status      domain.AppStatus `json:"status"`
	NotePreview string           `json:"note_preview"`
}
