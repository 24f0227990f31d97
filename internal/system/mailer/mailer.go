// Package mailer sends operational emails to staff over SMTP.
package mailer

import (
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail/v2"

	"github.com/leadflow/consent-service/internal/system/config"
)

// Mailer sends an HTML email.
type Mailer interface {
	Send(to []string, subject, html string) error
}

// sender abstracts the go-mail dialer so tests can capture messages.
type sender interface {
	DialAndSend(m ...*mail.Message) error
}

type smtpMailer struct {
	from   string
	dialer sender
}

// New returns an SMTP mailer, or a no-op mailer when SMTP is not configured.
func New(cfg config.MailConfig) Mailer {
	if !cfg.IsMailEnabled() {
		return noopMailer{}
	}

	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: cfg.SkipTLSVerify,
	}
	return &smtpMailer{from: cfg.From, dialer: d}
}

func (m *smtpMailer) Send(to []string, subject, html string) error {
	if len(to) == 0 {
		return nil
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

type noopMailer struct{}

func (noopMailer) Send([]string, string, string) error { return nil }
