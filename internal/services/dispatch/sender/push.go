package sender

import (
	"context"
	"fmt"

	"github.com/vetdesk/notify/internal/domain/notification"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

type PushConfig struct {
	CredentialsFile string
}

// Push delivers over FCM. With an empty CredentialsFile it runs in dev mode.
type Push struct {
	client *messaging.Client
	log    *zap.Logger
}

func NewPush(ctx context.Context, cfg PushConfig, log *zap.Logger) (*Push, error) {
	p := &Push{log: log.With(zap.String("component", "sender.push"))}
	if cfg.CredentialsFile == "" {
		return p, nil
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("messaging client: %w", err)
	}
	p.client = client
	return p, nil
}

var _ notification.PushSender = (*Push)(nil)

func (p *Push) Send(ctx context.Context, token, title, body, idemKey string) (string, error) {
	if token == "" {
		return "", &notification.SendError{Reason: "token required"}
	}

	if p.client == nil {
		p.log.Info("dev-mode push",
			zap.String("title", title),
			zap.Int("body_len", len(body)),
			zap.String("idempotency_key", idemKey),
		)
		return devMessageID(), nil
	}

	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: map[string]string{"idempotency_key": idemKey},
	}
	name, err := p.client.Send(ctx, msg)
	if err != nil {
		return "", &notification.SendError{Reason: "fcm send", Err: err}
	}
	return name, nil
}
