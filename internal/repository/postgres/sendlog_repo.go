package postgres

import (
	"context"
	"fmt"

	"github.com/vetdesk/notify/internal/domain/notification"
)

var _ notification.LogRepo = (*SendLogRepo)(nil)

type SendLogRepo struct{ db *DB }

func NewSendLogRepo(db *DB) *SendLogRepo { return &SendLogRepo{db: db} }

const qSendLogInsert = `
INSERT INTO notification_send_log (notification_id, channel, provider, provider_message_id, status, response)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at;`

// Append writes one attempt row. The table is append-only: one row per
// attempt, retries included, never updated.
func (r *SendLogRepo) Append(ctx context.Context, l *notification.SendLog) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if err := r.db.Pool.QueryRow(ctx, qSendLogInsert,
		l.NotificationID,
		l.Channel,
		l.Provider,
		l.ProviderMessageID,
		l.Status,
		l.Response,
	).Scan(&l.ID, &l.CreatedAt); err != nil {
		return fmt.Errorf("insert send log: %w", err)
	}
	return nil
}
