package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/diagnosis/luxbus/pkg/events"
	"github.com/diagnosis/luxbus/services/notify/internal/mailer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg mailer.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "msg-1", nil
}

type fakeSubscriber struct {
	subject, group string
	handler        func(*events.Message)
}

func (f *fakeSubscriber) QueueSubscribe(subject, group string, h func(*events.Message)) error {
	f.subject, f.group, f.handler = subject, group, h
	return nil
}

func (f *fakeSubscriber) Close() error { return nil }

func event(t *testing.T, ev events.NotificationEvent) *events.Message {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return &events.Message{Subject: events.NotifySend, Data: b}
}

func TestHandleSendsEmail(t *testing.T) {
	m := &fakeMailer{}
	sub := &fakeSubscriber{}
	require.NoError(t, New(m).Start(sub, events.NotifySend, "notify-workers"))

	assert.Equal(t, events.NotifySend, sub.subject)
	assert.Equal(t, "notify-workers", sub.group)

	sub.handler(event(t, events.NotificationEvent{
		Recipient: "ana@example.com",
		Subject:   "Reservation confirmed - trip City A -> City B",
		Text:      "Seat 7",
		HTML:      "<p>Seat 7</p>",
	}))

	require.Len(t, m.sent, 1)
	assert.Equal(t, mailer.Message{
		To:      "ana@example.com",
		Subject: "Reservation confirmed - trip City A -> City B",
		Text:    "Seat 7",
		HTML:    "<p>Seat 7</p>",
	}, m.sent[0])
}

func TestHandleMalformedPayload(t *testing.T) {
	m := &fakeMailer{}
	New(m).Handle(&events.Message{Subject: events.NotifySend, Data: []byte("{")})
	assert.Empty(t, m.sent)
}

func TestHandleSendFailureIsSwallowed(t *testing.T) {
	m := &fakeMailer{err: errors.New("smtp down")}
	assert.NotPanics(t, func() {
		New(m).Handle(event(t, events.NotificationEvent{Recipient: "ana@example.com"}))
	})
	assert.Empty(t, m.sent)
}
