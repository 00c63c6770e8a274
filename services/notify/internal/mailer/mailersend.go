package mailer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mailersend/mailersend-go"
)

type MailerSend struct {
	client *mailersend.Mailersend
	from   mailersend.From
}

func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSend {
	return &MailerSend{
		client: mailersend.NewMailersend(apiKey),
		from:   mailersend.From{Name: fromName, Email: fromEmail},
	}
}

func (m *MailerSend) Send(ctx context.Context, msg Message) (string, error) {
	if err := msg.validate(); err != nil {
		return "", err
	}

	em := m.client.Email.NewMessage()
	em.SetFrom(m.from)
	em.SetRecipients([]mailersend.Recipient{{Name: msg.ToName, Email: msg.To}})
	em.SetSubject(msg.Subject)
	if strings.TrimSpace(msg.Text) != "" {
		em.SetText(msg.Text)
	}
	if strings.TrimSpace(msg.HTML) != "" {
		em.SetHTML(msg.HTML)
	}

	res, err := m.client.Email.Send(ctx, em)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return "", fmt.Errorf("mailersend error: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return res.Header.Get("X-Message-Id"), nil
}
