package service

import (
	"context"

	"github.com/diagnosis/luxbus/pkg/events"
	"github.com/diagnosis/luxbus/pkg/logger"
	"github.com/diagnosis/luxbus/services/reservations/internal/domain"
)

// Notifier hands a notification off for delivery. Submit never blocks on
// delivery and never reports failure to the caller.
type Notifier interface {
	Submit(ctx context.Context, n domain.NotificationRequest)
}

type eventNotifier struct {
	pub     events.Publisher
	subject string
}

func NewEventNotifier(pub events.Publisher, subject string) Notifier {
	if subject == "" {
		subject = events.NotifySend
	}
	return &eventNotifier{pub: pub, subject: subject}
}

func (n *eventNotifier) Submit(ctx context.Context, req domain.NotificationRequest) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		err := n.pub.Publish(ctx, n.subject, events.NotificationEvent{
			Recipient: req.Recipient,
			Subject:   req.Subject,
			Text:      req.PlainBody,
			HTML:      req.RichBody,
		})
		if err != nil {
			logger.WarnContext(ctx, "Failed to submit notification", "error", err, "recipient", req.Recipient)
			return
		}
		logger.DebugContext(ctx, "Notification submitted", "recipient", req.Recipient)
	}()
}
