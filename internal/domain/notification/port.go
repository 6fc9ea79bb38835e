package notification

import (
	"context"
	"time"
)

// Repo is the notifications table port.
type Repo interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id int64) (*Notification, error)
	ListDuePending(ctx context.Context, limit int) ([]*Notification, error)

	// ClaimDue atomically moves up to limit due pending rows to in_progress and
	// returns them in scheduled_at order. Rows stuck in_progress longer than
	// leaseTTL are reclaimable.
	ClaimDue(ctx context.Context, limit int, leaseTTL time.Duration) ([]*Notification, error)

	MarkSent(ctx context.Context, id int64, sentAt time.Time) error
	MarkFailed(ctx context.Context, id int64, errMsg string) error

	// Resend resets a failed row to pending, clears its error and zeroes
	// retry_count. Rows in any other status are rejected.
	Resend(ctx context.Context, id int64) (*Notification, error)
}

// TemplateRepo resolves templates by (key, locale). A miss is
// ErrTemplateNotFound, never a silent default.
type TemplateRepo interface {
	GetByKey(ctx context.Context, key, locale string) (*Template, error)
}

// LogRepo appends delivery-attempt rows. Log rows are never updated or deleted.
type LogRepo interface {
	Append(ctx context.Context, l *SendLog) error
}

type EmailContent struct {
	Subject string
	Text    string
	HTML    *string
}

// Channel senders. Each returns the provider-native message id ("" when the
// provider does not issue one) and fails with *SendError on invalid input or
// transport rejection. idemKey is a per-attempt idempotency token providers
// may deduplicate on.
type EmailSender interface {
	Send(ctx context.Context, to string, content EmailContent, idemKey string) (string, error)
}

type SMSSender interface {
	Send(ctx context.Context, to, body, idemKey string) (string, error)
}

type PushSender interface {
	Send(ctx context.Context, token, title, body, idemKey string) (string, error)
}

type Clock interface {
	Now() time.Time
}
