// Package mailer delivers rendered emails.
package mailer

import (
	"context"
	"errors"
	"strings"

	"github.com/diagnosis/luxbus/pkg/config"
)

var ErrNoRecipient = errors.New("empty recipient email")

type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

func (m Message) validate() error {
	if strings.TrimSpace(m.To) == "" {
		return ErrNoRecipient
	}
	return nil
}

// Service sends a message and returns the provider's message id when it
// reports one.
type Service interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// New picks the delivery backend: dev output when DevMode is set, MailerSend
// when an API key is configured, plain SMTP otherwise.
func New(cfg config.EmailConfig) Service {
	switch {
	case cfg.DevMode:
		return NewDevMailer(nil)
	case cfg.MailerSendKey != "":
		return NewMailerSend(cfg.MailerSendKey, cfg.FromName, cfg.SMTPFrom)
	default:
		return NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPUseTLS)
	}
}
