// Package mail delivers the transactional emails the auth engine produces: SMTP via
// gomail, Postmark's HTTP API, or a logging sender for development.
package mail

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
)

var (
	// ErrInvalidMessage is returned for messages missing a recipient, subject or body.
	ErrInvalidMessage = errors.New("mail: invalid message")
	// ErrInvalidConfig is returned by constructors for incomplete configuration.
	ErrInvalidConfig = errors.New("mail: invalid config")
	// ErrSendFailed wraps transport failures.
	ErrSendFailed = errors.New("mail: send failed")
)

// Message is a single outbound email. At least one of Text or HTML is required.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
	Tag     string
}

// Validate checks the message is deliverable.
func (m Message) Validate() error {
	if _, err := mail.ParseAddress(m.To); err != nil {
		return fmt.Errorf("%w: recipient %q", ErrInvalidMessage, m.To)
	}
	if m.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	}
	if m.Text == "" && m.HTML == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidMessage)
	}
	return nil
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}
