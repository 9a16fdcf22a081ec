package service

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"text/template"

	"go.uber.org/zap"

	"github.com/spec-kit/coverage-service/internal/events"
	"github.com/spec-kit/coverage-service/internal/notify"
	"github.com/spec-kit/coverage-service/internal/observability"
	"github.com/spec-kit/coverage-service/internal/repository"
)

// NotificationService emails watchers about escalation activity on the
// products they follow.
type NotificationService struct {
	db        repository.Querier
	watchlist repository.WatchlistRepository
	sender    notify.Sender
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(db repository.Querier, watchlist repository.WatchlistRepository, sender notify.Sender, metrics *observability.Metrics, logger *zap.Logger) *NotificationService {
	if sender == nil {
		sender = notify.NopSender{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		db:        db,
		watchlist: watchlist,
		sender:    sender,
		metrics:   metrics,
		logger:    logger,
	}
}

// NotifiedEvents lists the event types watchers are told about.
func NotifiedEvents() []events.EventType {
	return []events.EventType{events.EventEscalationCreated, events.EventEscalationStatusChanged}
}

var notificationBody = template.Must(template.New("escalation").Parse(
	`{{.Headline}}

Product: {{.Event.ProductID}}
Market:  {{.Event.Market.ScopeLevel}} {{.Event.Market.ID}}
By:      {{if .Event.Actor.Name}}{{.Event.Actor.Name}}{{else}}{{.Event.Actor.UserID}}{{end}}
{{- if .Notes}}
Notes:   {{.Notes}}{{end}}

Escalation: {{.Event.EscalationID}}
`))

// Notify sends one message to every watcher matching the event's product and
// market. The acting user is not notified about their own change.
func (n *NotificationService) Notify(ctx context.Context, event events.Event) error {
	subject, headline, notes, ok := describe(event)
	if !ok {
		return nil
	}

	watches, err := n.watchlist.ListByProduct(ctx, n.db, event.ProductID)
	if err != nil {
		n.logger.Error("load watchers failed", zap.String("product_id", event.ProductID), zap.Error(err))
		return fmt.Errorf("load watchers: %w", err)
	}
	market := event.Market.Domain()
	seen := map[string]struct{}{}
	for _, w := range watches {
		if !w.Matches(event.ProductID, market) || w.UserID == event.Actor.UserID {
			continue
		}
		seen[w.NotifyEmail] = struct{}{}
	}
	if len(seen) == 0 {
		return nil
	}
	recipients := make([]string, 0, len(seen))
	for addr := range seen {
		recipients = append(recipients, addr)
	}
	sort.Strings(recipients)

	var body bytes.Buffer
	if err := notificationBody.Execute(&body, map[string]any{
		"Headline": headline,
		"Notes":    notes,
		"Event":    event,
	}); err != nil {
		return fmt.Errorf("render notification: %w", err)
	}

	err = n.sender.Send(ctx, recipients, subject, body.String())
	n.metrics.NotificationSent("email", err)
	if err != nil {
		n.logger.Error("notification delivery failed",
			zap.String("escalation_id", event.EscalationID),
			zap.Int("recipients", len(recipients)),
			zap.Error(err))
		return err
	}
	n.logger.Debug("notification sent",
		zap.String("escalation_id", event.EscalationID),
		zap.String("event_type", string(event.Type)),
		zap.Int("recipients", len(recipients)))
	return nil
}

func describe(event events.Event) (subject, headline, notes string, ok bool) {
	market := fmt.Sprintf("%s %s", event.Market.ScopeLevel, event.Market.ID)
	switch p := event.Payload.(type) {
	case events.EscalationCreatedPayload:
		return fmt.Sprintf("[%s] New escalation for %s", event.ProductID, market),
			fmt.Sprintf("A new escalation (%s) was raised.", p.ReasonType.Label()), "", true
	case events.EscalationStatusChangedPayload:
		return fmt.Sprintf("[%s] Escalation for %s is now %s", event.ProductID, market, p.NewStatus),
			fmt.Sprintf("Status changed from %s to %s.", p.OldStatus, p.NewStatus), p.Notes, true
	}
	return "", "", "", false
}
