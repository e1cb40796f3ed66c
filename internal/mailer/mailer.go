// Package mailer sends the login code and delivery emails over SMTP.
package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/iliyamo/portrait-booth/internal/queue"
)

const (
	otpSubject   = "Login Code for Portrait Booth"
	readySubject = "Your portraits are ready"
)

// Mailer is what the rest of the service sends mail through.
type Mailer interface {
	SendOTP(ctx context.Context, to, code string) error
	SendOrderReady(ctx context.Context, ev queue.OrderReadyEvent) error
}

var (
	_ Mailer = (*SMTPMailer)(nil)
	_ Mailer = LogMailer{}
)

// Config holds SMTP relay settings.  The relay is reached with STARTTLS.
type Config struct {
	Relay    string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends plain text mail through one relay.
type SMTPMailer struct {
	cfg Config
}

func NewSMTPMailer(cfg Config) *SMTPMailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) message(to, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("from %q: %w", m.cfg.From, err)
	}
	if err := msg.ReplyTo(m.cfg.From); err != nil {
		return nil, fmt.Errorf("reply-to %q: %w", m.cfg.From, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("to %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}

func (m *SMTPMailer) send(ctx context.Context, msg *mail.Msg) error {
	c, err := mail.NewClient(m.cfg.Relay,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := c.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func otpBody(code string) string {
	return fmt.Sprintf("Your login code is: %s.\n"+
		"This code will expire soon after which you will need to request a new login code.", code)
}

func readyBody(ev queue.OrderReadyEvent) string {
	var b strings.Builder
	name := ev.CustomerName
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hi %s,\n\nYour order #%d is ready. Download your photos here:\n\n", name, ev.OrderID)
	for _, l := range ev.Links {
		fmt.Fprintf(&b, "  %s\n  %s\n\n", l.FileName, l.URL)
	}
	b.WriteString("These links expire after a few days. Sign in to get fresh ones.\n")
	return b.String()
}

// SendOTP mails a one-time login code.
func (m *SMTPMailer) SendOTP(ctx context.Context, to, code string) error {
	msg, err := m.message(to, otpSubject, otpBody(code))
	if err != nil {
		return err
	}
	return m.send(ctx, msg)
}

// SendOrderReady mails the customer their download links.
func (m *SMTPMailer) SendOrderReady(ctx context.Context, ev queue.OrderReadyEvent) error {
	msg, err := m.message(ev.CustomerEmail, readySubject, readyBody(ev))
	if err != nil {
		return err
	}
	return m.send(ctx, msg)
}

// LogMailer writes mail to a logger instead of sending it.  It stands in
// when no relay is configured.
type LogMailer struct {
	Printf func(format string, args ...any)
}

func (l LogMailer) SendOTP(_ context.Context, to, code string) error {
	l.Printf("mailer: no relay configured; login code for %s is %s", to, code)
	return nil
}

func (l LogMailer) SendOrderReady(_ context.Context, ev queue.OrderReadyEvent) error {
	l.Printf("mailer: no relay configured; order %d ready for %s (%d links)", ev.OrderID, ev.CustomerEmail, len(ev.Links))
	return nil
}
