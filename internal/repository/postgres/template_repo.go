package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/vetdesk/notify/internal/domain/notification"

	"github.com/jackc/pgx/v5"
)

var _ notification.TemplateRepo = (*TemplateRepo)(nil)

type TemplateRepo struct{ db *DB }

func NewTemplateRepo(db *DB) *TemplateRepo { return &TemplateRepo{db: db} }

const qTemplateByKey = `
SELECT id, template_key, locale, subject, body, body_html
FROM notification_templates
WHERE template_key = $1 AND locale = $2;`

// GetByKey resolves (key, locale) exactly. There is no locale fallback here;
// the dispatch service decides the default before calling.
func (r *TemplateRepo) GetByKey(ctx context.Context, key, locale string) (*notification.Template, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var t notification.Template
	err := r.db.Pool.QueryRow(ctx, qTemplateByKey, key, locale).Scan(
		&t.ID,
		&t.Key,
		&t.Locale,
		&t.Subject,
		&t.Body,
		&t.BodyHTML,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s/%s", notification.ErrTemplateNotFound, key, locale)
		}
		return nil, fmt.Errorf("scan template: %w", err)
	}
	return &t, nil
}
