package sender

import (
	"context"
	"strings"
	"testing"

	"github.com/vetdesk/notify/internal/domain/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestEmail_DevMode(t *testing.T) {
	m := NewEmail(EmailConfig{From: "clinic@example.com"}, zaptest.NewLogger(t))

	id, err := m.Send(context.Background(), "ana@example.com",
		notification.EmailContent{Subject: "Hello", Text: "body"}, "idem-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "dev-"), "got %q", id)
}

func TestEmail_EmptyRecipient(t *testing.T) {
	m := NewEmail(EmailConfig{}, zaptest.NewLogger(t))

	_, err := m.Send(context.Background(), "", notification.EmailContent{}, "idem-1")

	var se *notification.SendError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "to is required", se.Error())
}

func TestEmail_BuildMessage(t *testing.T) {
	m := NewEmail(EmailConfig{From: "clinic@example.com", SubjPrefix: "[VetDesk]"}, zaptest.NewLogger(t))

	html := "<p>hi</p>"
	msg := string(m.buildMessage("ana@example.com", "[VetDesk] Hello",
		notification.EmailContent{Subject: "Hello", Text: "hi", HTML: &html}, "idem-9"))

	assert.Contains(t, msg, "From: clinic@example.com\r\n")
	assert.Contains(t, msg, "To: ana@example.com\r\n")
	assert.Contains(t, msg, "Subject: [VetDesk] Hello\r\n")
	assert.Contains(t, msg, "X-Idempotency-Key: idem-9\r\n")
	assert.Contains(t, msg, "Content-Type: text/html")
	assert.Contains(t, msg, "<p>hi</p>")

	plain := string(m.buildMessage("ana@example.com", "Hello",
		notification.EmailContent{Subject: "Hello", Text: "plain body"}, "idem-9"))
	assert.Contains(t, plain, "Content-Type: text/plain")
	assert.Contains(t, plain, "plain body")
}

func TestSMS_DevMode(t *testing.T) {
	s, err := NewSMS(context.Background(), SMSConfig{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	id, err := s.Send(context.Background(), "+15550001", "Rex is booked.", "idem-2")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "dev-"), "got %q", id)
}

func TestSMS_EmptyRecipient(t *testing.T) {
	s, err := NewSMS(context.Background(), SMSConfig{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = s.Send(context.Background(), "", "body", "idem-2")

	var se *notification.SendError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "to is required", se.Error())
}

func TestPush_DevMode(t *testing.T) {
	p, err := NewPush(context.Background(), PushConfig{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	id, err := p.Send(context.Background(), "tok-1", "Title", "Body", "idem-3")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "dev-"), "got %q", id)
}

func TestPush_EmptyToken(t *testing.T) {
	p, err := NewPush(context.Background(), PushConfig{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = p.Send(context.Background(), "", "Title", "Body", "idem-3")

	var se *notification.SendError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "token required", se.Error())
}

func TestDevMessageIDShape(t *testing.T) {
	assert.Regexp(t, `^dev-\d+$`, devMessageID())
}

func TestSMTPHost(t *testing.T) {
	assert.Equal(t, "smtp.example.com", smtpHost("smtp.example.com:587"))
	assert.Equal(t, "localhost", smtpHost("localhost"))
}
