// Package logmail is a Mailer that only logs. It is used when no SMTP relay
// is configured, so local runs exercise the full notification path.
package logmail

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rai/storefront-payments/modules/notifications/domain"
)

type Mailer struct {
	logger *slog.Logger

	mu   sync.Mutex
	sent []domain.Message
}

func New(logger *slog.Logger) *Mailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailer{logger: logger}
}

func (m *Mailer) Send(ctx context.Context, msg domain.Message) error {
	if msg.To == "" {
		return domain.ErrNoRecipient
	}
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()

	m.logger.Info("mail not sent, no smtp relay configured",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
	)
	return nil
}

// Sent returns the messages logged so far.
func (m *Mailer) Sent() []domain.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Message(nil), m.sent...)
}
