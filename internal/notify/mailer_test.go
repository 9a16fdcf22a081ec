package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gopkg.in/gomail.v2"
)

type flakyDialer struct {
	failures int
	calls    int
	last     *gomail.Message
}

func (d *flakyDialer) DialAndSend(m ...*gomail.Message) error {
	d.calls++
	d.last = m[0]
	if d.calls <= d.failures {
		return errors.New("connection refused")
	}
	return nil
}

func TestSMTPSenderRetries(t *testing.T) {
	d := &flakyDialer{failures: 2}
	s := newSMTPSender(d, "noreply@example.com", "Launch Coverage", zaptest.NewLogger(t))
	s.backoff = time.Millisecond

	err := s.Send(context.Background(), []string{"a@example.com", "b@example.com"}, "Escalation updated", "body")
	require.NoError(t, err)
	assert.Equal(t, 3, d.calls)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, d.last.GetHeader("Bcc"))
	assert.Equal(t, []string{"Escalation updated"}, d.last.GetHeader("Subject"))
}

func TestSMTPSenderGivesUp(t *testing.T) {
	d := &flakyDialer{failures: 10}
	s := newSMTPSender(d, "noreply@example.com", "", nil)
	s.backoff = time.Millisecond

	err := s.Send(context.Background(), []string{"a@example.com"}, "s", "b")
	require.Error(t, err)
	assert.Equal(t, 4, d.calls)
}

func TestSMTPSenderSkipsEmptyRecipients(t *testing.T) {
	d := &flakyDialer{}
	s := newSMTPSender(d, "noreply@example.com", "", nil)
	require.NoError(t, s.Send(context.Background(), nil, "s", "b"))
	assert.Zero(t, d.calls)
}
