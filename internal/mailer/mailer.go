// Package mailer sends outbound mail. The portal only sends login-link
// messages; delivery is fire-and-forget with no queue or retry, and a failure
// is fatal to the request that triggered it.
package mailer

import (
	"context"

	"github.com/wneessen/go-mail"
)

// Mailer sends a single plain-text message.
type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// SMTPMailer sends mail through an SMTP relay.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
}

// NewSMTPMailer returns a Mailer that relays through host:port. username may be
// empty for unauthenticated relays.
func NewSMTPMailer(host string, port int, username, password string) *SMTPMailer {
	return &SMTPMailer{host: host, port: port, username: username, password: password}
}

// Send delivers one message synchronously. Dial, auth, and delivery failures
// are all returned to the caller.
func (m *SMTPMailer) Send(ctx context.Context, from, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{mail.WithPort(m.port)}
	if m.username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.username),
			mail.WithPassword(m.password))
	}
	client, err := mail.NewClient(m.host, opts...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// NopMailer discards messages. Used in tests and in deployments without an
// SMTP relay (password login mode needs no mail).
type NopMailer struct{}

func (NopMailer) Send(ctx context.Context, from, to, subject, body string) error { return nil }
