package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/coverage-service/internal/domain"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

type countingObserver struct {
	ok, failed int
}

func (o *countingObserver) EventPublished(_ string, err error) {
	if err != nil {
		o.failed++
		return
	}
	o.ok++
}

func sampleEvent() Event {
	return Event{
		ID:           "ev-1",
		Type:         EventEscalationStatusChanged,
		EscalationID: "esc-1",
		ProductID:    "P1",
		Market:       MarketRef{ScopeLevel: domain.ScopeCountry, ID: "FR"},
		Actor:        Actor{UserID: "u-1", Name: "Alice"},
		Timestamp:    time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC),
		Payload: EscalationStatusChangedPayload{
			OldStatus: domain.StatusSubmitted,
			NewStatus: domain.StatusUnderReview,
		},
	}
}

func TestKafkaPublisherRoutesByEventType(t *testing.T) {
	w := &recordingWriter{}
	obs := &countingObserver{}
	p := newKafkaPublisher(w, "coverage", zaptest.NewLogger(t), obs)

	d := NewInMemoryDispatcher()
	d.Subscribe(EventEscalationStatusChanged, p.Handle)
	require.NoError(t, d.Publish(context.Background(), sampleEvent()))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "coverage.escalation_status_changed", msg.Topic)
	assert.Equal(t, "esc-1", string(msg.Key))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "esc-1", decoded["escalation_id"])
	payload := decoded["payload"].(map[string]any)
	assert.Equal(t, "UNDER_REVIEW", payload["new_status"])
	assert.Equal(t, 1, obs.ok)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisherReportsWriteFailure(t *testing.T) {
	w := &recordingWriter{err: errors.New("leader not available")}
	obs := &countingObserver{}
	p := newKafkaPublisher(w, "", zaptest.NewLogger(t), obs)

	err := p.Handle(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
	assert.Equal(t, 1, obs.failed)
}

func TestKafkaPublisherTopicWithoutPrefix(t *testing.T) {
	p := newKafkaPublisher(&recordingWriter{}, "", nil, nil)
	msg, err := p.buildMessage(sampleEvent())
	require.NoError(t, err)
	assert.Equal(t, "escalation_status_changed", msg.Topic)
}

func TestNewKafkaPublisherRequiresBrokers(t *testing.T) {
	_, err := NewKafkaPublisher(nil, "coverage", nil, nil)
	assert.Error(t, err)
}

func TestKafkaWriterFlushesPromptly(t *testing.T) {
	w := newKafkaWriter([]string{"kafka-1:9092", "kafka-2:9092"})
	t.Cleanup(func() { _ = w.Close() })

	assert.Equal(t, kafkaBatchTimeout, w.BatchTimeout)
	assert.LessOrEqual(t, w.BatchTimeout, 50*time.Millisecond)
	assert.Equal(t, kafkaWriteTimeout, w.WriteTimeout)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
	assert.False(t, w.Async)
}
