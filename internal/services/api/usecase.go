package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vetdesk/notify/internal/domain/notification"
	"github.com/vetdesk/notify/internal/services/dispatch"

	"go.uber.org/zap"
)

// ErrValidation marks bad create/preview input that never reached storage.
var ErrValidation = errors.New("validation")

// Usecase backs the REST surface. Immediate sends reuse the worker's
// Processor so API-triggered attempts are recorded exactly like polled ones.
type Usecase struct {
	Repo      notification.Repo
	Templates notification.TemplateRepo
	Proc      *dispatch.Processor
	Clock     notification.Clock
	Log       *zap.Logger
}

type CreateInput struct {
	Key         string
	TemplateKey string
	Channel     notification.Channel
	UserID      *int64
	Target      notification.Target
	Payload     map[string]any
	ScheduledAt *time.Time
	Locale      string
}

// Create stores a pending notification and, when it is already due,
// dispatches it inline. The returned notification reflects the outcome of
// that synchronous attempt (sent or failed); future-scheduled rows come back
// pending and are left to the worker.
func (u *Usecase) Create(ctx context.Context, in CreateInput) (*notification.Notification, error) {
	if in.TemplateKey == "" {
		return nil, fmt.Errorf("%w: template_key is required", ErrValidation)
	}
	if !in.Channel.Valid() {
		return nil, &notification.UnsupportedChannelError{Channel: in.Channel}
	}

	n := &notification.Notification{
		UserID:      in.UserID,
		Key:         in.Key,
		Channel:     in.Channel,
		Target:      in.Target,
		TemplateKey: in.TemplateKey,
		Locale:      in.Locale,
		Payload:     in.Payload,
	}
	if in.ScheduledAt != nil {
		n.ScheduledAt = in.ScheduledAt.UTC()
	}

	if err := u.Repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}

	if n.Due(u.Clock.Now()) {
		if _, err := u.Proc.Process(ctx, n); err != nil {
			u.Log.Warn("immediate dispatch failed",
				zap.Int64("id", n.ID),
				zap.Error(err),
			)
		}
	}
	return n, nil
}

func (u *Usecase) Get(ctx context.Context, id int64) (*notification.Notification, error) {
	return u.Repo.GetByID(ctx, id)
}

func (u *Usecase) ListPending(ctx context.Context, limit int) ([]*notification.Notification, error) {
	return u.Repo.ListDuePending(ctx, limit)
}

// Resend resets a failed notification to pending, clearing error and
// retry_count; the worker picks it up on its next tick.
func (u *Usecase) Resend(ctx context.Context, id int64) (*notification.Notification, error) {
	return u.Repo.Resend(ctx, id)
}

type PreviewInput struct {
	TemplateKey string
	Locale      string
	Payload     map[string]any
}

type PreviewResult struct {
	Subject  *string `json:"subject,omitempty"`
	Body     string  `json:"body"`
	BodyHTML *string `json:"body_html,omitempty"`
}

// Preview renders a template against a payload without sending anything.
func (u *Usecase) Preview(ctx context.Context, in PreviewInput) (*PreviewResult, error) {
	if in.TemplateKey == "" {
		return nil, fmt.Errorf("%w: template_key is required", ErrValidation)
	}
	locale := in.Locale
	if locale == "" {
		locale = dispatch.DefaultLocale
	}

	tpl, err := u.Templates.GetByKey(ctx, in.TemplateKey, locale)
	if err != nil {
		return nil, err
	}
	return &PreviewResult{
		Subject:  dispatch.Render(tpl.Subject, in.Payload),
		Body:     dispatch.RenderString(tpl.Body, in.Payload),
		BodyHTML: dispatch.Render(tpl.BodyHTML, in.Payload),
	}, nil
}
