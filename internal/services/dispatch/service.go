package dispatch

import (
	"context"
	"fmt"

	"github.com/vetdesk/notify/internal/domain/notification"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Provider names reported in receipts and send-log rows.
const (
	ProviderSMTP        = "smtp"
	ProviderSMSGateway  = "sms-gateway"
	ProviderPushGateway = "push-gateway"
)

// DefaultLocale is applied when a notification carries no locale. This is the
// only place locale defaulting happens; the template repo never falls back.
const DefaultLocale = "en"

// Service turns one notification into one delivery attempt: resolve the
// template, render per channel, check the target, call the sender. It owns no
// persisted state.
type Service struct {
	Templates notification.TemplateRepo
	Email     notification.EmailSender
	SMS       notification.SMSSender
	Push      notification.PushSender
	Log       *zap.Logger
}

func (s *Service) Dispatch(ctx context.Context, n *notification.Notification) (notification.Receipt, error) {
	tr := otel.Tracer("dispatch.service")
	ctx, span := tr.Start(ctx, "dispatch.send",
		trace.WithAttributes(
			attribute.Int64("notification.id", n.ID),
			attribute.String("notification.channel", string(n.Channel)),
			attribute.String("notification.template_key", n.TemplateKey),
		),
	)
	defer span.End()

	locale := n.Locale
	if locale == "" {
		locale = DefaultLocale
	}

	tpl, err := s.Templates.GetByKey(ctx, n.TemplateKey, locale)
	if err != nil {
		span.RecordError(err)
		return notification.Receipt{}, err
	}

	idemKey := uuid.NewString()

	switch n.Channel {
	case notification.ChannelEmail:
		if n.Target.Email == "" {
			return notification.Receipt{}, &notification.MissingTargetError{Channel: notification.ChannelEmail}
		}
		content := notification.EmailContent{
			Subject: derefOr(Render(tpl.Subject, n.Payload), ""),
			Text:    RenderString(tpl.Body, n.Payload),
			HTML:    Render(tpl.BodyHTML, n.Payload),
		}
		id, err := s.Email.Send(ctx, n.Target.Email, content, idemKey)
		if err != nil {
			span.RecordError(err)
			return notification.Receipt{}, fmt.Errorf("email send: %w", err)
		}
		return receipt(ProviderSMTP, id), nil

	case notification.ChannelSMS:
		if n.Target.Phone == "" {
			return notification.Receipt{}, &notification.MissingTargetError{Channel: notification.ChannelSMS}
		}
		id, err := s.SMS.Send(ctx, n.Target.Phone, RenderString(tpl.Body, n.Payload), idemKey)
		if err != nil {
			span.RecordError(err)
			return notification.Receipt{}, fmt.Errorf("sms send: %w", err)
		}
		return receipt(ProviderSMSGateway, id), nil

	case notification.ChannelPush:
		if n.Target.PushToken == "" {
			return notification.Receipt{}, &notification.MissingTargetError{Channel: notification.ChannelPush}
		}
		title := derefOr(Render(tpl.Subject, n.Payload), "")
		id, err := s.Push.Send(ctx, n.Target.PushToken, title, RenderString(tpl.Body, n.Payload), idemKey)
		if err != nil {
			span.RecordError(err)
			return notification.Receipt{}, fmt.Errorf("push send: %w", err)
		}
		return receipt(ProviderPushGateway, id), nil

	default:
		return notification.Receipt{}, &notification.UnsupportedChannelError{Channel: n.Channel}
	}
}

// ProviderFor maps a channel to the provider name used in log rows. Unknown
// channels map to "".
func ProviderFor(c notification.Channel) string {
	switch c {
	case notification.ChannelEmail:
		return ProviderSMTP
	case notification.ChannelSMS:
		return ProviderSMSGateway
	case notification.ChannelPush:
		return ProviderPushGateway
	}
	return ""
}

func receipt(provider, messageID string) notification.Receipt {
	r := notification.Receipt{Provider: provider}
	if messageID != "" {
		r.ProviderMessageID = &messageID
	}
	return r
}

func derefOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}
