package dto

import (
	"time"

	"github.com/spec-kit/coverage-service/internal/domain"
)

// SubmitEscalationRequest payload.
type SubmitEscalationRequest struct {
	ProductID              string  `json:"product_id"`
	ScopeLevel             string  `json:"scope_level"`
	MarketID               string  `json:"market_id"`
	POC                    string  `json:"poc"`
	Reason                 string  `json:"reason"`
	ReasonType             string  `json:"reason_type"`
	BusinessCaseURL        *string `json:"business_case_url"`
	TechPOC                *string `json:"tech_poc"`
	TechSponsor            *string `json:"tech_sponsor"`
	OpsPOC                 *string `json:"ops_poc"`
	OpsSponsor             *string `json:"ops_sponsor"`
	AdditionalStakeholders *string `json:"additional_stakeholders"`
}

// UpdateStatusRequest payload. ExpectedStatus enables an optimistic check.
type UpdateStatusRequest struct {
	Status         string `json:"status"`
	Notes          string `json:"notes"`
	ExpectedStatus string `json:"expected_status"`
}

// AddCommentRequest payload.
type AddCommentRequest struct {
	Notes string `json:"notes"`
}

// MarketResponse is the wire form of a market reference.
type MarketResponse struct {
	ScopeLevel domain.ScopeLevel `json:"scope_level"`
	ID         string            `json:"id"`
}

// EscalationResponse represents an escalation record.
type EscalationResponse struct {
	ID                     string            `json:"id"`
	ProductID              string            `json:"product_id"`
	Market                 MarketResponse    `json:"market"`
	RaisedBy               string            `json:"raised_by"`
	POC                    string            `json:"poc"`
	Reason                 string            `json:"reason"`
	ReasonType             domain.ReasonType `json:"reason_type"`
	ReasonLabel            string            `json:"reason_label"`
	BusinessCaseURL        *string           `json:"business_case_url"`
	TechPOC                *string           `json:"tech_poc"`
	TechSponsor            *string           `json:"tech_sponsor"`
	OpsPOC                 *string           `json:"ops_poc"`
	OpsSponsor             *string           `json:"ops_sponsor"`
	AdditionalStakeholders *string           `json:"additional_stakeholders"`
	Status                 domain.AppStatus  `json:"status"`
	AlignedAt              *time.Time        `json:"aligned_at"`
	ResolvedAt             *time.Time        `json:"resolved_at"`
	CreatedAt              time.Time         `json:"created_at"`
	UpdatedAt              time.Time         `json:"updated_at"`
}

// HistoryEntryResponse represents one status log entry.
type HistoryEntryResponse struct {
	ID           string            `json:"id"`
	EscalationID string            `json:"escalation_id"`
	UserID       string            `json:"user_id"`
	OldStatus    *domain.AppStatus `json:"old_status"`
	NewStatus    domain.AppStatus  `json:"new_status"`
	Notes        *string           `json:"notes"`
	ChangedAt    time.Time         `json:"changed_at"`
}

// NewEscalationResponse maps a domain escalation.
func NewEscalationResponse(e *domain.Escalation) EscalationResponse {
	return EscalationResponse{
		ID:                     e.ID,
		ProductID:              e.ProductID,
		Market:                 NewMarketResponse(e.Market),
		RaisedBy:               e.RaisedBy,
		POC:                    e.POC,
		Reason:                 e.Reason,
		ReasonType:             e.ReasonType,
		ReasonLabel:            e.ReasonType.Label(),
		BusinessCaseURL:        e.BusinessCaseURL,
		TechPOC:                e.TechPOC,
		TechSponsor:            e.TechSponsor,
		OpsPOC:                 e.OpsPOC,
		OpsSponsor:             e.OpsSponsor,
		AdditionalStakeholders: e.AdditionalStakeholders,
		Status:                 e.Status,
		AlignedAt:              e.AlignedAt,
		ResolvedAt:             e.ResolvedAt,
		CreatedAt:              e.CreatedAt,
		UpdatedAt:              e.UpdatedAt,
	}
}

// NewMarketResponse maps a market reference.
func NewMarketResponse(m domain.MarketRef) MarketResponse {
	return MarketResponse{ScopeLevel: m.Level, ID: m.ID}
}

// NewHistoryResponses maps history entries, never returning nil.
func NewHistoryResponses(entries []domain.EscalationHistoryEntry) []HistoryEntryResponse {
	resp := make([]HistoryEntryResponse, 0, len(entries))
	for i := range entries {
		resp = append(resp, NewHistoryEntryResponse(&entries[i]))
	}
	return resp
}

// NewHistoryEntryResponse maps one history entry.
func NewHistoryEntryResponse(entry *domain.EscalationHistoryEntry) HistoryEntryResponse {
	return HistoryEntryResponse{
		ID:           entry.ID,
		EscalationID: entry.EscalationID,
		UserID:       entry.UserID,
		OldStatus:    entry.OldStatus,
		NewStatus:    entry.NewStatus,
		Notes:        entry.Notes,
		ChangedAt:    entry.ChangedAt,
	}
}
