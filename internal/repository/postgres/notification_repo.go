package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vetdesk/notify/internal/domain/notification"

	"github.com/jackc/pgx/v5"
)

var _ notification.Repo = (*NotificationRepo)(nil)

type NotificationRepo struct{ db *DB }

func NewNotificationRepo(db *DB) *NotificationRepo { return &NotificationRepo{db: db} }

const notifCols = `
id, user_id, notify_key, channel, target, template_key, locale, payload,
scheduled_at, status, error, retry_count, sent_at, created_at, updated_at`

const (
	qNotifInsert = `
INSERT INTO notifications (user_id, notify_key, channel, target, template_key, locale, payload, scheduled_at, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, now()), 'pending')
RETURNING ` + notifCols + `;`

	qNotifByID = `
SELECT ` + notifCols + `
FROM notifications
WHERE id = $1;`

	qNotifDuePending = `
SELECT ` + notifCols + `
FROM notifications
WHERE status = 'pending' AND scheduled_at <= now()
ORDER BY scheduled_at
LIMIT $1;`

	qNotifClaim = `
SELECT ` + notifCols + `
FROM notifications
WHERE (status = 'pending' AND scheduled_at <= now())
   OR (status = 'in_progress' AND claimed_at < now() - $2::interval)
ORDER BY scheduled_at
FOR UPDATE SKIP LOCKED
LIMIT $1;`

	qNotifMarkClaimed = `
UPDATE notifications
SET status = 'in_progress', claimed_at = now(), updated_at = now()
WHERE id = ANY($1);`

	qNotifMarkSent = `
UPDATE notifications
SET status = 'sent', sent_at = $2, error = NULL, updated_at = now()
WHERE id = $1;`

	qNotifMarkFailed = `
UPDATE notifications
SET status = 'failed', error = $2, retry_count = retry_count + 1, updated_at = now()
WHERE id = $1;`

	qNotifResend = `
UPDATE notifications
SET status = 'pending', error = NULL, retry_count = 0, updated_at = now()
WHERE id = $1 AND status = 'failed'
RETURNING ` + notifCols + `;`
)

func scanNotif(row pgx.Row, n *notification.Notification) error {
	if err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Key,
		&n.Channel,
		&n.Target,
		&n.TemplateKey,
		&n.Locale,
		&n.Payload,
		&n.ScheduledAt,
		&n.Status,
		&n.Error,
		&n.RetryCount,
		&n.SentAt,
		&n.CreatedAt,
		&n.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan notification: %w", err)
	}
	return nil
}

func (r *NotificationRepo) Create(ctx context.Context, n *notification.Notification) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	row := r.db.Pool.QueryRow(ctx, qNotifInsert,
		n.UserID,
		n.Key,
		n.Channel,
		n.Target,
		n.TemplateKey,
		n.Locale,
		n.Payload,
		nullTime(n.ScheduledAt),
	)
	return scanNotif(row, n)
}

func (r *NotificationRepo) GetByID(ctx context.Context, id int64) (*notification.Notification, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var n notification.Notification
	if err := scanNotif(r.db.Pool.QueryRow(ctx, qNotifByID, id), &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepo) ListDuePending(ctx context.Context, limit int) ([]*notification.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qNotifDuePending, limit)
	if err != nil {
		return nil, fmt.Errorf("query due pending: %w", err)
	}
	defer rows.Close()

	return collectNotifs(rows)
}

// ClaimDue selects due rows under FOR UPDATE SKIP LOCKED and flips them to
// in_progress inside one transaction, so concurrent workers never pick the
// same row. Stale in_progress rows past the lease are reclaimed; delivery
// stays at-least-once.
func (r *NotificationRepo) ClaimDue(ctx context.Context, limit int, leaseTTL time.Duration) ([]*notification.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ttl := fmt.Sprintf("%f seconds", leaseTTL.Seconds())
	rows, err := tx.Query(ctx, qNotifClaim, limit, ttl)
	if err != nil {
		return nil, fmt.Errorf("claim due: %w", err)
	}

	out, err := collectNotifs(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(out))
	for _, n := range out {
		ids = append(ids, n.ID)
		n.Status = notification.StatusInProgress
	}
	if _, err := tx.Exec(ctx, qNotifMarkClaimed, ids); err != nil {
		return nil, fmt.Errorf("mark claimed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

func (r *NotificationRepo) MarkSent(ctx context.Context, id int64, sentAt time.Time) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, qNotifMarkSent, id, sentAt)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *NotificationRepo) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, qNotifMarkFailed, id, errMsg)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *NotificationRepo) Resend(ctx context.Context, id int64) (*notification.Notification, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var n notification.Notification
	err := scanNotif(r.db.Pool.QueryRow(ctx, qNotifResend, id), &n)
	if err == nil {
		return &n, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	// Distinguish "no such row" from "row not in failed status".
	if _, gerr := r.GetByID(ctx, id); gerr != nil {
		return nil, gerr
	}
	return nil, ErrConflict
}

func collectNotifs(rows pgx.Rows) ([]*notification.Notification, error) {
	defer rows.Close()

	var out []*notification.Notification
	for rows.Next() {
		var n notification.Notification
		if err := scanNotif(rows, &n); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
