package dispatch

import (
	"context"

	"github.com/vetdesk/notify/internal/domain/notification"
	"github.com/vetdesk/notify/internal/obs"

	"go.uber.org/zap"
)

// Processor runs one dispatch attempt and persists its outcome: status flip,
// sent_at or error + retry_count bump, plus an append-only log row. Shared by
// the polling worker and the API's immediate-send path so both record outcomes
// the same way.
type Processor struct {
	Svc   *Service
	Repo  notification.Repo
	Logs  notification.LogRepo
	Clock notification.Clock
	Log   *zap.Logger
}

// Process attempts delivery of n and writes the outcome back. The returned
// error is the dispatch error (nil on success); bookkeeping failures are
// logged, not escalated, so one bad row cannot stall a batch.
func (p *Processor) Process(ctx context.Context, n *notification.Notification) (notification.Receipt, error) {
	rcpt, dispatchErr := p.Svc.Dispatch(ctx, n)
	now := p.Clock.Now().UTC()
	log := obs.WithTrace(ctx, p.Log)

	if dispatchErr != nil {
		msg := dispatchErr.Error()
		if err := p.Repo.MarkFailed(ctx, n.ID, msg); err != nil {
			log.Error("mark failed", zap.Int64("id", n.ID), zap.Error(err))
		}
		n.Status = notification.StatusFailed
		n.Error = &msg
		n.RetryCount++

		p.appendLog(ctx, &notification.SendLog{
			NotificationID: n.ID,
			Channel:        n.Channel,
			Provider:       ProviderFor(n.Channel),
			Status:         notification.StatusFailed,
			Response:       map[string]any{"error": msg},
		})
		return notification.Receipt{}, dispatchErr
	}

	if err := p.Repo.MarkSent(ctx, n.ID, now); err != nil {
		log.Error("mark sent", zap.Int64("id", n.ID), zap.Error(err))
	}
	n.Status = notification.StatusSent
	n.SentAt = &now
	n.Error = nil

	resp := map[string]any{"provider": rcpt.Provider}
	if rcpt.ProviderMessageID != nil {
		resp["provider_message_id"] = *rcpt.ProviderMessageID
	}
	p.appendLog(ctx, &notification.SendLog{
		NotificationID:    n.ID,
		Channel:           n.Channel,
		Provider:          rcpt.Provider,
		ProviderMessageID: rcpt.ProviderMessageID,
		Status:            notification.StatusSent,
		Response:          resp,
	})
	return rcpt, nil
}

func (p *Processor) appendLog(ctx context.Context, l *notification.SendLog) {
	if err := p.Logs.Append(ctx, l); err != nil {
		p.Log.Error("append send log", zap.Int64("id", l.NotificationID), zap.Error(err))
	}
}
