package mailer

import (
	"bytes"
	"context"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/diagnosis/luxbus/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMIME(t *testing.T) {
	body := string(buildMIME("no-reply@example.com", "abc", Message{
		To:      " ana@example.com ",
		Subject: "Reservation confirmed",
		Text:    "Hello Ana",
		HTML:    "<p>Hello Ana</p>",
	}))

	assert.Contains(t, body, "To: ana@example.com\r\n")
	assert.Contains(t, body, "Subject: Reservation confirmed\r\n")
	assert.Contains(t, body, "boundary=alt-abc\r\n")
	assert.Contains(t, body, "text/plain; charset=utf-8\r\n\r\nHello Ana\r\n")
	assert.Contains(t, body, "text/html; charset=utf-8\r\n\r\n<p>Hello Ana</p>\r\n")
	assert.True(t, strings.HasSuffix(body, "--alt-abc--\r\n"))
}

func TestBuildMIMEEncodesSubject(t *testing.T) {
	body := string(buildMIME("a@b.c", "x", Message{To: "d@e.f", Subject: "Trip São Paulo -> Curitiba"}))
	assert.Contains(t, body, "Subject: =?utf-8?q?")
	assert.NotContains(t, body, "São")

	plain := string(buildMIME("a@b.c", "x", Message{To: "d@e.f", Subject: "Trip A -> B"}))
	assert.Contains(t, plain, "Subject: Trip A -> B\r\n")
}

func TestBuildMIMETextOnly(t *testing.T) {
	body := string(buildMIME("a@b.c", "x", Message{To: "d@e.f", Text: "hi"}))
	assert.NotContains(t, body, "text/html")
}

func TestDevMailer(t *testing.T) {
	var out bytes.Buffer
	m := NewDevMailer(&out)

	id, err := m.Send(context.Background(), Message{To: "ana@example.com", Subject: "Hi", Text: "Body"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Contains(t, out.String(), "To: ana@example.com")
	assert.Contains(t, out.String(), "Body")

	_, err = m.Send(context.Background(), Message{To: "  "})
	assert.ErrorIs(t, err, ErrNoRecipient)
}

// serveSMTP answers one SMTP session and returns the DATA payload.
func serveSMTP(t *testing.T, ln net.Listener) <-chan string {
	t.Helper()
	out := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		tp := textproto.NewConn(conn)
		_ = tp.PrintfLine("220 localhost ESMTP")

		var data strings.Builder
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			switch cmd := strings.ToUpper(strings.Fields(line)[0]); cmd {
			case "EHLO", "HELO", "MAIL", "RCPT":
				_ = tp.PrintfLine("250 ok")
			case "DATA":
				_ = tp.PrintfLine("354 go ahead")
				lines, err := tp.ReadDotLines()
				if err != nil {
					return
				}
				data.WriteString(strings.Join(lines, "\n"))
				_ = tp.PrintfLine("250 queued")
			case "QUIT":
				_ = tp.PrintfLine("221 bye")
				out <- data.String()
				return
			default:
				_ = tp.PrintfLine("502 unknown")
			}
		}
	}()
	return out
}

func listen(t *testing.T) (net.Listener, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	return ln, ln.Addr().(*net.TCPAddr).Port
}

func TestSMTPMailerSends(t *testing.T) {
	ln, port := listen(t)
	got := serveSMTP(t, ln)

	m := NewSMTPMailer("127.0.0.1", port, "no-reply@example.com", "", "", false)
	id, err := m.Send(context.Background(), Message{To: "ana@example.com", Subject: "Hi", Text: "Seat 7"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	select {
	case body := <-got:
		assert.Contains(t, body, "To: ana@example.com")
		assert.Contains(t, body, "Seat 7")
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestSMTPMailerHonoursContext(t *testing.T) {
	ln, port := listen(t)
	held := make(chan net.Conn, 1)
	go func() {
		// Accept and never greet.
		if conn, err := ln.Accept(); err == nil {
			held <- conn
		}
	}()
	defer func() {
		select {
		case conn := <-held:
			_ = conn.Close()
		default:
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	m := NewSMTPMailer("127.0.0.1", port, "no-reply@example.com", "", "", false)
	start := time.Now()
	_, err := m.Send(ctx, Message{To: "ana@example.com", Subject: "Hi"})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSMTPMailerRejectsEmptyRecipient(t *testing.T) {
	m := NewSMTPMailer("localhost", 1025, "from@example.com", "", "", false)
	_, err := m.Send(context.Background(), Message{})
	assert.ErrorIs(t, err, ErrNoRecipient)
}

func TestNewSelectsBackend(t *testing.T) {
	assert.IsType(t, &DevMailer{}, New(config.EmailConfig{DevMode: true, MailerSendKey: "k"}))
	assert.IsType(t, &MailerSend{}, New(config.EmailConfig{MailerSendKey: "k"}))
	assert.IsType(t, &SMTPMailer{}, New(config.EmailConfig{SMTPHost: "localhost", SMTPPort: 1025}))
}
