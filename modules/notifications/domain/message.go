// Package domain defines outgoing notification messages.
package domain

import (
	"context"
	"errors"
)

var (
	ErrNoRecipient   = errors.New("message has no recipient")
	ErrNotConfigured = errors.New("mail transport is not configured")
)

// Message is one rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
