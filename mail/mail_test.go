package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

func TestMessageValidate(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		ok   bool
	}{
		{"valid text", Message{To: "a@example.com", Subject: "s", Text: "t"}, true},
		{"valid html", Message{To: "a@example.com", Subject: "s", HTML: "<p>t</p>"}, true},
		{"bad recipient", Message{To: "not-an-address", Subject: "s", Text: "t"}, false},
		{"no subject", Message{To: "a@example.com", Text: "t"}, false},
		{"no body", Message{To: "a@example.com", Subject: "s"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidMessage)
			}
		})
	}
}

func TestTemplates(t *testing.T) {
	v := VerificationMessage("a@example.com", "abc123")
	assert.Equal(t, "Email Verification", v.Subject)
	assert.Equal(t, "Your verification token is: abc123", v.Text)
	assert.Equal(t, TagEmailVerification, v.Tag)
	assert.NoError(t, v.Validate())

	r := PasswordResetMessage("a@example.com", "xyz")
	assert.Equal(t, "Password Reset", r.Subject)
	assert.Equal(t, "Your reset token is: xyz", r.Text)
	assert.Equal(t, TagPasswordReset, r.Tag)
}

type recordingDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *recordingDialer) DialAndSend(m ...*gomail.Message) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m...)
	return nil
}

func TestNewSMTPSenderValidation(t *testing.T) {
	_, err := NewSMTPSender(SMTPConfig{Port: 587, Username: "a@example.com"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Port: 0, Username: "a@example.com"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "nobody"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	s, err := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "a@example.com", FromName: "Auth"})
	require.NoError(t, err)
	assert.Equal(t, `"Auth" <a@example.com>`, s.from)
}

func TestSMTPSenderSend(t *testing.T) {
	d := &recordingDialer{}
	s := &SMTPSender{from: "noreply@example.com", dialer: d}

	err := s.Send(context.Background(), VerificationMessage("user@example.com", "tok"))
	require.NoError(t, err)
	require.Len(t, d.sent, 1)

	var buf bytes.Buffer
	_, err = d.sent[0].WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "To: user@example.com")
	assert.Contains(t, raw, "Subject: Email Verification")
	assert.Contains(t, raw, "Your verification token is: tok")
}

func TestSMTPSenderErrors(t *testing.T) {
	d := &recordingDialer{err: errors.New("connection refused")}
	s := &SMTPSender{from: "noreply@example.com", dialer: d}

	err := s.Send(context.Background(), VerificationMessage("user@example.com", "tok"))
	assert.ErrorIs(t, err, ErrSendFailed)

	err = s.Send(context.Background(), Message{To: "user@example.com"})
	assert.ErrorIs(t, err, ErrInvalidMessage)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = (&SMTPSender{from: "noreply@example.com", dialer: &recordingDialer{}}).Send(ctx, VerificationMessage("user@example.com", "tok"))
	assert.ErrorIs(t, err, ErrSendFailed)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewPostmarkSenderValidation(t *testing.T) {
	_, err := NewPostmarkSender(PostmarkConfig{SenderEmail: "a@example.com"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewPostmarkSender(PostmarkConfig{ServerToken: "tok"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestPostmarkSenderSend(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "server-token", r.Header.Get("X-Postmark-Server-Token"))
		assert.True(t, strings.HasSuffix(r.URL.Path, "/email"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"To":"user@example.com","MessageID":"id-1","ErrorCode":0,"Message":"OK"}`))
	}))
	defer srv.Close()

	s, err := NewPostmarkSender(PostmarkConfig{
		ServerToken: "server-token",
		SenderEmail: "noreply@example.com",
		BaseURL:     srv.URL,
	})
	require.NoError(t, err)

	require.NoError(t, s.Send(context.Background(), PasswordResetMessage("user@example.com", "tok")))
	assert.Equal(t, "user@example.com", got["To"])
	assert.Equal(t, "Password Reset", got["Subject"])
	assert.Equal(t, "Your reset token is: tok", got["TextBody"])
	assert.Equal(t, TagPasswordReset, got["Tag"])
}

func TestPostmarkSenderProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ErrorCode":300,"Message":"Invalid email request"}`))
	}))
	defer srv.Close()

	s, err := NewPostmarkSender(PostmarkConfig{ServerToken: "t", SenderEmail: "noreply@example.com", BaseURL: srv.URL})
	require.NoError(t, err)

	err = s.Send(context.Background(), PasswordResetMessage("user@example.com", "tok"))
	assert.ErrorIs(t, err, ErrSendFailed)
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, s.Send(context.Background(), VerificationMessage("user@example.com", "5ecret70ken")))
	assert.Contains(t, buf.String(), `"to":"user@example.com"`)
	assert.Contains(t, buf.String(), `"subject":"Email Verification"`)
	assert.NotContains(t, buf.String(), "5ecret70ken", "token must not reach info-level logs")

	buf.Reset()
	debug := NewLogSender(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	require.NoError(t, debug.Send(context.Background(), PasswordResetMessage("user@example.com", "5ecret70ken")))
	assert.Contains(t, buf.String(), "5ecret70ken")

	assert.ErrorIs(t, s.Send(context.Background(), Message{}), ErrInvalidMessage)
}

func TestSenderFunc(t *testing.T) {
	var called bool
	var s Sender = SenderFunc(func(context.Context, Message) error {
		called = true
		return nil
	})
	require.NoError(t, s.Send(context.Background(), Message{}))
	assert.True(t, called)
}
