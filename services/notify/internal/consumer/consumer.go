// Package consumer turns notification events into sent emails.
package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/diagnosis/luxbus/pkg/events"
	"github.com/diagnosis/luxbus/pkg/logger"
	"github.com/diagnosis/luxbus/services/notify/internal/mailer"
)

const sendTimeout = 10 * time.Second

type Consumer struct {
	mailer mailer.Service
}

func New(m mailer.Service) *Consumer {
	return &Consumer{mailer: m}
}

// Start subscribes the consumer to subject within the given queue group, so
// each event is delivered to one notify instance.
func (c *Consumer) Start(sub events.Subscriber, subject, group string) error {
	return sub.QueueSubscribe(subject, group, c.Handle)
}

// Handle sends one event. Delivery failures are logged; the event is not
// redelivered.
func (c *Consumer) Handle(msg *events.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	var ev events.NotificationEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		logger.Warn("Dropping malformed notification", "subject", msg.Subject, "error", err)
		return
	}

	id, err := c.mailer.Send(ctx, mailer.Message{
		To:      ev.Recipient,
		Subject: ev.Subject,
		Text:    ev.Text,
		HTML:    ev.HTML,
	})
	if err != nil {
		logger.Error("Failed to send notification", "to", ev.Recipient, "subject", ev.Subject, "error", err)
		return
	}
	logger.Info("Notification sent", "to", ev.Recipient, "message_id", id)
}
