package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/coverage-service/internal/domain"
	"github.com/spec-kit/coverage-service/internal/events"
)

func watchersFixture() *fakeWatchlistRepo {
	c1 := domain.MarketRef{Level: domain.ScopeCity, ID: "C1"}
	c2 := domain.MarketRef{Level: domain.ScopeCity, ID: "C2"}
	return &fakeWatchlistRepo{entries: []domain.WatchlistEntry{
		{ID: "w1", UserID: "bob", ProductID: "P1", NotifyEmail: "bob@example.com"},
		{ID: "w2", UserID: "carol", ProductID: "P1", Market: &c1, NotifyEmail: "carol@example.com"},
		{ID: "w3", UserID: "dave", ProductID: "P1", Market: &c2, NotifyEmail: "dave@example.com"},
		{ID: "w4", UserID: "alice", ProductID: "P1", NotifyEmail: "alice@example.com"},
		{ID: "w5", UserID: "erin", ProductID: "P9", NotifyEmail: "erin@example.com"},
	}}
}

func statusEvent() events.Event {
	return events.Event{
		ID:           "ev1",
		Type:         events.EventEscalationStatusChanged,
		EscalationID: "esc-1",
		ProductID:    "P1",
		Market:       events.MarketRef{ScopeLevel: domain.ScopeCity, ID: "C1"},
		Actor:        events.Actor{UserID: "alice", Name: "Alice"},
		Payload: events.EscalationStatusChangedPayload{
			OldStatus: domain.StatusSubmitted,
			NewStatus: domain.StatusResolvedLaunched,
			Notes:     "approved",
		},
	}
}

func TestNotifyEmailsMatchingWatchers(t *testing.T) {
	sender := &fakeSender{}
	svc := NewNotificationService(&fakeDB{}, watchersFixture(), sender, nil, zaptest.NewLogger(t))

	require.NoError(t, svc.Notify(context.Background(), statusEvent()))

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, []string{"bob@example.com", "carol@example.com"}, msg.recipients)
	assert.Equal(t, "[P1] Escalation for CITY C1 is now RESOLVED_LAUNCHED", msg.subject)
	assert.Contains(t, msg.body, "Status changed from SUBMITTED to RESOLVED_LAUNCHED.")
	assert.Contains(t, msg.body, "Notes:   approved")
	assert.Contains(t, msg.body, "By:      Alice")
}

func TestNotifySkipsCommentsAndEmptyAudiences(t *testing.T) {
	sender := &fakeSender{}
	svc := NewNotificationService(&fakeDB{}, watchersFixture(), sender, nil, nil)

	comment := statusEvent()
	comment.Type = events.EventEscalationCommented
	comment.Payload = events.EscalationCommentedPayload{Status: domain.StatusSubmitted, NotePreview: "hi"}
	require.NoError(t, svc.Notify(context.Background(), comment))

	orphan := statusEvent()
	orphan.ProductID = "P404"
	require.NoError(t, svc.Notify(context.Background(), orphan))

	assert.Empty(t, sender.sent)
}

func TestNotifyReportsDeliveryFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp down")}
	svc := NewNotificationService(&fakeDB{}, watchersFixture(), sender, nil, zaptest.NewLogger(t))

	created := statusEvent()
	created.Type = events.EventEscalationCreated
	created.Payload = events.EscalationCreatedPayload{POC: "Alice", ReasonType: domain.ReasonLegalRisk, Status: domain.StatusSubmitted}
	assert.ErrorContains(t, svc.Notify(context.Background(), created), "smtp down")
}
