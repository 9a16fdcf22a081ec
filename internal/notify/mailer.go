package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/spec-kit/coverage-service/internal/config"
)

// Sender delivers a message to a set of recipients.
type Sender interface {
	Send(ctx context.Context, recipients []string, subject, body string) error
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender sends mail through an SMTP relay with bounded retries.
type SMTPSender struct {
	dialer     dialer
	from       string
	senderName string
	retries    int
	backoff    time.Duration
	logger     *zap.Logger
}

// NewSMTPSender builds a sender from mail configuration.
func NewSMTPSender(cfg config.MailConfig, logger *zap.Logger) *SMTPSender {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	return newSMTPSender(d, cfg.From, cfg.SenderName, logger)
}

func newSMTPSender(d dialer, from, senderName string, logger *zap.Logger) *SMTPSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTPSender{
		dialer:     d,
		from:       from,
		senderName: senderName,
		retries:    3,
		backoff:    100 * time.Millisecond,
		logger:     logger,
	}
}

// Send delivers the message, retrying with exponential backoff. Recipients
// are placed in Bcc so watchers do not see each other.
func (s *SMTPSender) Send(ctx context.Context, recipients []string, subject, body string) error {
	if len(recipients) == 0 {
		return nil
	}
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", s.from, s.senderName)
	msg.SetHeader("Bcc", recipients...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	backoff := s.backoff
	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if lastErr = s.dialer.DialAndSend(msg); lastErr == nil {
			return nil
		}
		if attempt == s.retries {
			break
		}
		s.logger.Warn("mail send failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(lastErr))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("send mail after %d attempts: %w", s.retries+1, lastErr)
}

// NopSender discards messages. Used when no SMTP host is configured.
type NopSender struct{}

// Send implements Sender.
func (NopSender) Send(context.Context, []string, string, string) error { return nil }
