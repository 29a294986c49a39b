package common

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Email is an outgoing HTML message.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// EmailSender delivers transactional mail such as order confirmations.
type EmailSender interface {
	Send(ctx context.Context, msg Email) error
}

// Outbox keeps sent messages in memory. Safe for concurrent task workers.
type Outbox struct {
	mu   sync.Mutex
	sent []Email
}

func (o *Outbox) Send(_ context.Context, msg Email) error {
	o.mu.Lock()
	o.sent = append(o.sent, msg)
	o.mu.Unlock()
	return nil
}

// Sent returns a copy of the messages delivered so far.
func (o *Outbox) Sent() []Email {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Email(nil), o.sent...)
}

// NopEmailSender drops every message (MAIL_DRIVER=none).
type NopEmailSender struct{}

func (NopEmailSender) Send(context.Context, Email) error { return nil }

// LogEmailSender logs the envelope of each message instead of delivering it.
type LogEmailSender struct {
	Logger zerolog.Logger
}

func (l LogEmailSender) Send(ctx context.Context, msg Email) error {
	l.Logger.Info().Ctx(ctx).
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Int("bytes", len(msg.HTML)).
		Msg("email sent")
	return nil
}
