package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/vetdesk/notify/internal/domain/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeTemplates struct {
	byKey      map[string]*notification.Template
	lastLocale string
}

func tplKey(key, locale string) string { return key + "/" + locale }

func (f *fakeTemplates) GetByKey(_ context.Context, key, locale string) (*notification.Template, error) {
	f.lastLocale = locale
	if t, ok := f.byKey[tplKey(key, locale)]; ok {
		return t, nil
	}
	return nil, notification.ErrTemplateNotFound
}

type emailCall struct {
	To      string
	Content notification.EmailContent
}

type fakeEmail struct {
	calls []emailCall
	id    string
	err   error
}

func (f *fakeEmail) Send(_ context.Context, to string, content notification.EmailContent, _ string) (string, error) {
	f.calls = append(f.calls, emailCall{To: to, Content: content})
	return f.id, f.err
}

type fakeSMS struct {
	tos    []string
	bodies []string
	id     string
	err    error
}

func (f *fakeSMS) Send(_ context.Context, to, body, _ string) (string, error) {
	f.tos = append(f.tos, to)
	f.bodies = append(f.bodies, body)
	return f.id, f.err
}

type fakePush struct {
	tokens []string
	titles []string
	bodies []string
	id     string
	err    error
}

func (f *fakePush) Send(_ context.Context, token, title, body, _ string) (string, error) {
	f.tokens = append(f.tokens, token)
	f.titles = append(f.titles, title)
	f.bodies = append(f.bodies, body)
	return f.id, f.err
}

func newTestService(t *testing.T) (*Service, *fakeTemplates, *fakeEmail, *fakeSMS, *fakePush) {
	templates := &fakeTemplates{byKey: map[string]*notification.Template{
		tplKey("appointment_confirmed", "en"): {
			Key:      "appointment_confirmed",
			Locale:   "en",
			Subject:  strPtr("Appointment for {{pet_name}}"),
			Body:     "Hi {{owner_name}}, {{pet_name}} is booked.",
			BodyHTML: strPtr("<p>Hi {{owner_name}}</p>"),
		},
	}}
	email := &fakeEmail{}
	sms := &fakeSMS{id: "SM123"}
	push := &fakePush{id: "projects/x/messages/1"}
	svc := &Service{
		Templates: templates,
		Email:     email,
		SMS:       sms,
		Push:      push,
		Log:       zaptest.NewLogger(t),
	}
	return svc, templates, email, sms, push
}

func notif(channel notification.Channel, target notification.Target) *notification.Notification {
	return &notification.Notification{
		ID:          7,
		Channel:     channel,
		Target:      target,
		TemplateKey: "appointment_confirmed",
		Locale:      "en",
		Payload:     map[string]any{"pet_name": "Rex", "owner_name": "Ana"},
	}
}

func TestDispatch_TemplateNotFound_EveryChannel(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)

	for _, c := range []notification.Channel{
		notification.ChannelEmail, notification.ChannelSMS, notification.ChannelPush,
	} {
		n := notif(c, notification.Target{Email: "a@b.c", Phone: "+1555", PushToken: "tok"})
		n.TemplateKey = "nope"
		_, err := svc.Dispatch(context.Background(), n)
		assert.ErrorIs(t, err, notification.ErrTemplateNotFound, "channel %s", c)
	}
}

func TestDispatch_MissingTargetPerChannel(t *testing.T) {
	svc, _, email, sms, push := newTestService(t)

	tests := []struct {
		channel notification.Channel
		target  notification.Target
		want    string
	}{
		{notification.ChannelEmail, notification.Target{Phone: "+1555"}, "no email target"},
		{notification.ChannelSMS, notification.Target{Email: "a@b.c"}, "no phone target"},
		{notification.ChannelPush, notification.Target{Email: "a@b.c"}, "no push token"},
	}
	for _, tc := range tests {
		_, err := svc.Dispatch(context.Background(), notif(tc.channel, tc.target))
		var mt *notification.MissingTargetError
		require.ErrorAs(t, err, &mt, "channel %s", tc.channel)
		assert.Equal(t, tc.channel, mt.Channel)
		assert.Equal(t, tc.want, mt.Error())
	}

	// Target checks happen before any sender is invoked.
	assert.Empty(t, email.calls)
	assert.Empty(t, sms.tos)
	assert.Empty(t, push.tokens)
}

func TestDispatch_UnsupportedChannel(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)

	n := notif("fax", notification.Target{Email: "a@b.c"})
	_, err := svc.Dispatch(context.Background(), n)

	var uc *notification.UnsupportedChannelError
	require.ErrorAs(t, err, &uc)
	assert.Equal(t, "unsupported channel: fax", uc.Error())
}

func TestDispatch_Email_RendersAndReturnsReceipt(t *testing.T) {
	svc, _, email, _, _ := newTestService(t)

	rcpt, err := svc.Dispatch(context.Background(), notif(notification.ChannelEmail, notification.Target{Email: "ana@example.com"}))
	require.NoError(t, err)

	require.Len(t, email.calls, 1)
	call := email.calls[0]
	assert.Equal(t, "ana@example.com", call.To)
	assert.Equal(t, "Appointment for Rex", call.Content.Subject)
	assert.Equal(t, "Hi Ana, Rex is booked.", call.Content.Text)
	require.NotNil(t, call.Content.HTML)
	assert.Equal(t, "<p>Hi Ana</p>", *call.Content.HTML)

	assert.Equal(t, ProviderSMTP, rcpt.Provider)
	// SMTP issues no message id; null is recorded, not "".
	assert.Nil(t, rcpt.ProviderMessageID)
}

func TestDispatch_SMS_ReceiptCarriesProviderID(t *testing.T) {
	svc, _, _, sms, _ := newTestService(t)

	rcpt, err := svc.Dispatch(context.Background(), notif(notification.ChannelSMS, notification.Target{Phone: "+15550001"}))
	require.NoError(t, err)

	assert.Equal(t, []string{"+15550001"}, sms.tos)
	assert.Equal(t, []string{"Hi Ana, Rex is booked."}, sms.bodies)
	assert.Equal(t, ProviderSMSGateway, rcpt.Provider)
	require.NotNil(t, rcpt.ProviderMessageID)
	assert.Equal(t, "SM123", *rcpt.ProviderMessageID)
}

func TestDispatch_Push_TitleFromSubject(t *testing.T) {
	svc, _, _, _, push := newTestService(t)

	rcpt, err := svc.Dispatch(context.Background(), notif(notification.ChannelPush, notification.Target{PushToken: "tok-1"}))
	require.NoError(t, err)

	assert.Equal(t, []string{"tok-1"}, push.tokens)
	assert.Equal(t, []string{"Appointment for Rex"}, push.titles)
	assert.Equal(t, ProviderPushGateway, rcpt.Provider)
	require.NotNil(t, rcpt.ProviderMessageID)
	assert.Equal(t, "projects/x/messages/1", *rcpt.ProviderMessageID)
}

func TestDispatch_EmptyLocaleDefaultsToEN(t *testing.T) {
	svc, templates, _, _, _ := newTestService(t)

	n := notif(notification.ChannelSMS, notification.Target{Phone: "+1555"})
	n.Locale = ""
	_, err := svc.Dispatch(context.Background(), n)
	require.NoError(t, err)
	assert.Equal(t, "en", templates.lastLocale)
}

func TestDispatch_SendErrorPropagates(t *testing.T) {
	svc, _, _, sms, _ := newTestService(t)
	sms.err = &notification.SendError{Reason: "sns publish", Err: errors.New("throttled")}

	_, err := svc.Dispatch(context.Background(), notif(notification.ChannelSMS, notification.Target{Phone: "+1555"}))

	var se *notification.SendError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "sns publish", se.Reason)
}
