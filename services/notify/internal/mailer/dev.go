package mailer

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/diagnosis/luxbus/pkg/logger"
	"github.com/google/uuid"
)

// DevMailer prints messages instead of sending them.
type DevMailer struct {
	out io.Writer
}

func NewDevMailer(out io.Writer) *DevMailer {
	if out == nil {
		out = os.Stdout
	}
	return &DevMailer{out: out}
}

func (d *DevMailer) Send(ctx context.Context, msg Message) (string, error) {
	if err := msg.validate(); err != nil {
		return "", err
	}
	id := uuid.NewString()

	logger.InfoContext(ctx, "[DEV MAIL] Email", "to", msg.To, "subject", msg.Subject, "message_id", id)

	rule := strings.Repeat("━", 64)
	fmt.Fprintf(d.out, "\n%s\nEMAIL (DEV MODE)\n%s\nTo: %s\nSubject: %s\n\n%s\n%s\n\n",
		rule, rule, msg.To, msg.Subject, msg.Text, rule)
	return id, nil
}
