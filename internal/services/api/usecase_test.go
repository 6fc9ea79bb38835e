package api

import (
	"context"
	"testing"
	"time"

	"github.com/vetdesk/notify/internal/domain/notification"
	"github.com/vetdesk/notify/internal/repository/postgres"
	"github.com/vetdesk/notify/internal/services/dispatch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type memRepo struct {
	nextID int64
	now    time.Time
	rows   map[int64]*notification.Notification
}

func newMemRepo(now time.Time) *memRepo {
	return &memRepo{nextID: 1, now: now, rows: map[int64]*notification.Notification{}}
}

func (m *memRepo) Create(_ context.Context, n *notification.Notification) error {
	n.ID = m.nextID
	m.nextID++
	n.Status = notification.StatusPending
	if n.ScheduledAt.IsZero() {
		n.ScheduledAt = m.now
	}
	cp := *n
	m.rows[n.ID] = &cp
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id int64) (*notification.Notification, error) {
	n, ok := m.rows[id]
	if !ok {
		return nil, postgres.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (m *memRepo) ListDuePending(_ context.Context, limit int) ([]*notification.Notification, error) {
	var out []*notification.Notification
	for _, n := range m.rows {
		if n.Status == notification.StatusPending && len(out) < limit {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memRepo) ClaimDue(context.Context, int, time.Duration) ([]*notification.Notification, error) {
	return nil, nil
}

func (m *memRepo) MarkSent(_ context.Context, id int64, sentAt time.Time) error {
	n, ok := m.rows[id]
	if !ok {
		return postgres.ErrNotFound
	}
	n.Status = notification.StatusSent
	n.SentAt = &sentAt
	n.Error = nil
	return nil
}

func (m *memRepo) MarkFailed(_ context.Context, id int64, msg string) error {
	n, ok := m.rows[id]
	if !ok {
		return postgres.ErrNotFound
	}
	n.Status = notification.StatusFailed
	n.Error = &msg
	n.RetryCount++
	return nil
}

func (m *memRepo) Resend(_ context.Context, id int64) (*notification.Notification, error) {
	n, ok := m.rows[id]
	if !ok {
		return nil, postgres.ErrNotFound
	}
	if n.Status != notification.StatusFailed {
		return nil, postgres.ErrConflict
	}
	n.Status = notification.StatusPending
	n.Error = nil
	n.RetryCount = 0
	cp := *n
	return &cp, nil
}

type memTemplates struct {
	rows map[string]*notification.Template
}

func (m *memTemplates) GetByKey(_ context.Context, key, locale string) (*notification.Template, error) {
	if t, ok := m.rows[key+"/"+locale]; ok {
		return t, nil
	}
	return nil, notification.ErrTemplateNotFound
}

type memLogs struct {
	rows []*notification.SendLog
}

func (m *memLogs) Append(_ context.Context, l *notification.SendLog) error {
	m.rows = append(m.rows, l)
	return nil
}

type stubSMS struct{ id string }

func (s stubSMS) Send(context.Context, string, string, string) (string, error) { return s.id, nil }

type stubEmail struct{}

func (stubEmail) Send(context.Context, string, notification.EmailContent, string) (string, error) {
	return "", nil
}

type stubPush struct{}

func (stubPush) Send(context.Context, string, string, string, string) (string, error) {
	return "fcm-1", nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func strPtr(s string) *string { return &s }

func newTestUsecase(t *testing.T) (*Usecase, *memRepo, *memLogs) {
	log := zaptest.NewLogger(t)
	clock := fixedClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	repo := newMemRepo(clock.t)
	templates := &memTemplates{rows: map[string]*notification.Template{
		"appointment_confirmed/en": {
			Key:     "appointment_confirmed",
			Locale:  "en",
			Subject: strPtr("Appointment for {{pet_name}}"),
			Body:    "Hi {{owner_name}}, {{pet_name}} is booked.",
		},
	}}
	logs := &memLogs{}
	proc := &dispatch.Processor{
		Svc: &dispatch.Service{
			Templates: templates,
			Email:     stubEmail{},
			SMS:       stubSMS{id: "SM1"},
			Push:      stubPush{},
			Log:       log,
		},
		Repo:  repo,
		Logs:  logs,
		Clock: clock,
		Log:   log,
	}
	return &Usecase{
		Repo:      repo,
		Templates: templates,
		Proc:      proc,
		Clock:     clock,
		Log:       log,
	}, repo, logs
}

func validCreate() CreateInput {
	return CreateInput{
		Key:         "appt-42",
		TemplateKey: "appointment_confirmed",
		Channel:     notification.ChannelSMS,
		Target:      notification.Target{Phone: "+15550001"},
		Payload:     map[string]any{"pet_name": "Rex", "owner_name": "Ana"},
	}
}

func TestCreate_ValidatesInput(t *testing.T) {
	uc, _, _ := newTestUsecase(t)

	in := validCreate()
	in.TemplateKey = ""
	_, err := uc.Create(context.Background(), in)
	assert.ErrorIs(t, err, ErrValidation)

	in = validCreate()
	in.Channel = "carrier-pigeon"
	_, err = uc.Create(context.Background(), in)
	var uce *notification.UnsupportedChannelError
	assert.ErrorAs(t, err, &uce)
}

func TestCreate_DueNow_SendsInline(t *testing.T) {
	uc, repo, logs := newTestUsecase(t)

	n, err := uc.Create(context.Background(), validCreate())
	require.NoError(t, err)

	assert.Equal(t, notification.StatusSent, n.Status)
	require.NotNil(t, n.SentAt)

	stored, err := repo.GetByID(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusSent, stored.Status)

	require.Len(t, logs.rows, 1)
	assert.Equal(t, notification.StatusSent, logs.rows[0].Status)
	require.NotNil(t, logs.rows[0].ProviderMessageID)
	assert.Equal(t, "SM1", *logs.rows[0].ProviderMessageID)
}

func TestCreate_FutureSchedule_StaysPending(t *testing.T) {
	uc, repo, logs := newTestUsecase(t)

	later := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	in := validCreate()
	in.ScheduledAt = &later

	n, err := uc.Create(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, notification.StatusPending, n.Status)
	assert.Nil(t, n.SentAt)
	assert.Empty(t, logs.rows)

	stored, err := repo.GetByID(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, later, stored.ScheduledAt)
}

func TestCreate_DispatchFailureStillReturnsRow(t *testing.T) {
	uc, repo, _ := newTestUsecase(t)

	in := validCreate()
	in.Target = notification.Target{} // no phone

	n, err := uc.Create(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, notification.StatusFailed, n.Status)
	require.NotNil(t, n.Error)
	assert.Equal(t, "no phone target", *n.Error)
	assert.Equal(t, 1, n.RetryCount)

	stored, err := repo.GetByID(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusFailed, stored.Status)
}

func TestResend_ResetsFailedRow(t *testing.T) {
	uc, repo, _ := newTestUsecase(t)

	in := validCreate()
	in.Target = notification.Target{}
	created, err := uc.Create(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, notification.StatusFailed, created.Status)

	out, err := uc.Resend(context.Background(), created.ID)
	require.NoError(t, err)

	assert.Equal(t, notification.StatusPending, out.Status)
	assert.Nil(t, out.Error)
	assert.Zero(t, out.RetryCount)

	stored, err := repo.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusPending, stored.Status)
}

func TestResend_RejectsNonFailedRows(t *testing.T) {
	uc, _, _ := newTestUsecase(t)

	sent, err := uc.Create(context.Background(), validCreate())
	require.NoError(t, err)
	require.Equal(t, notification.StatusSent, sent.Status)

	_, err = uc.Resend(context.Background(), sent.ID)
	assert.ErrorIs(t, err, postgres.ErrConflict)

	_, err = uc.Resend(context.Background(), 9999)
	assert.ErrorIs(t, err, postgres.ErrNotFound)
}

func TestPreview_RendersWithoutSending(t *testing.T) {
	uc, _, logs := newTestUsecase(t)

	out, err := uc.Preview(context.Background(), PreviewInput{
		TemplateKey: "appointment_confirmed",
		Payload:     map[string]any{"pet_name": "Rex", "owner_name": "Ana"},
	})
	require.NoError(t, err)

	require.NotNil(t, out.Subject)
	assert.Equal(t, "Appointment for Rex", *out.Subject)
	assert.Equal(t, "Hi Ana, Rex is booked.", out.Body)
	assert.Nil(t, out.BodyHTML)
	assert.Empty(t, logs.rows)
}

func TestPreview_Errors(t *testing.T) {
	uc, _, _ := newTestUsecase(t)

	_, err := uc.Preview(context.Background(), PreviewInput{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = uc.Preview(context.Background(), PreviewInput{TemplateKey: "nope"})
	assert.ErrorIs(t, err, notification.ErrTemplateNotFound)

	// Unknown locale is a hard miss, not a fallback to "en".
	_, err = uc.Preview(context.Background(), PreviewInput{TemplateKey: "appointment_confirmed", Locale: "pt"})
	assert.ErrorIs(t, err, notification.ErrTemplateNotFound)
}

