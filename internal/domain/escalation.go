package domain

import (
	"fmt"
	"strings"
	"time"
)

// ReasonType categorizes why a market opt-out is requested.
type ReasonType string

const (
	ReasonPolicyRisk             ReasonType = "POLICY_RISK"
	ReasonNegativeBusinessImpact ReasonType = "NEGATIVE_BUSINESS_IMPACT"
	ReasonLegalRisk              ReasonType = "LEGAL_RISK"
	ReasonOther                  ReasonType = "OTHER"
)

var reasonLabels = map[ReasonType]string{
	ReasonPolicyRisk:             "Policy Risk",
	ReasonNegativeBusinessImpact: "Negative Business Impact",
	ReasonLegalRisk:              "Legal Risk",
	ReasonOther:                  "Other",
}

// ParseReasonType accepts either the code or the display label.
func ParseReasonType(raw string) (ReasonType, error) {
	trimmed := strings.TrimSpace(raw)
	for code, label := range reasonLabels {
		if strings.EqualFold(trimmed, string(code)) || strings.EqualFold(trimmed, label) {
			return code, nil
		}
	}
	return "", fmt.Errorf("unknown reason type %q", raw)
}

// Label returns the display label.
func (r ReasonType) Label() string {
	return reasonLabels[r]
}

// Escalation is a request to keep a product out of one market.
type Escalation struct {
	ID                     string
	ProductID              string
	Market                 MarketRef
	RaisedBy               string
	POC                    string
	Reason                 string
	ReasonType             ReasonType
	BusinessCaseURL        *string
	TechPOC                *string
	TechSponsor            *string
	OpsPOC                 *string
	OpsSponsor             *string
	AdditionalStakeholders *string
	Status                 AppStatus
	AlignedAt              *time.Time
	ResolvedAt             *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// ApplyStatus moves the escalation to next and maintains the derived
// timestamps.
func (e *Escalation) ApplyStatus(next AppStatus, now time.Time) {
	e.Status = next
	if next.IsResolved() {
		e.ResolvedAt = &now
	} else {
		e.ResolvedAt = nil
	}
	if next.IsLaunched() {
		e.AlignedAt = &now
	} else {
		e.AlignedAt = nil
	}
}
