package notification

import "time"

// Channel is the delivery medium for a notification.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPush:
		return true
	}
	return false
}

// Status of a notification row. A row moves pending → in_progress → sent|failed;
// failed rows go back to pending only through an explicit resend.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

// Target holds the channel-specific delivery address. The dispatch service
// checks the field its channel needs before calling a sender.
type Target struct {
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	PushToken string `json:"push_token,omitempty"`
}

type Notification struct {
	ID          int64          `json:"id"`
	UserID      *int64         `json:"user_id,omitempty"`
	Key         string         `json:"key"`
	Channel     Channel        `json:"channel"`
	Target      Target         `json:"target"`
	TemplateKey string         `json:"template_key"`
	Locale      string         `json:"locale"`
	Payload     map[string]any `json:"payload"`
	ScheduledAt time.Time      `json:"scheduled_at"`
	Status      Status         `json:"status"`
	Error       *string        `json:"error,omitempty"`
	RetryCount  int            `json:"retry_count"`
	SentAt      *time.Time     `json:"sent_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Due reports whether the notification should be delivered at or before now.
func (n *Notification) Due(now time.Time) bool {
	return !n.ScheduledAt.After(now)
}

// Template is the subject/body pair looked up by (key, locale). Subject and
// BodyHTML are optional; SMS uses the plain body only.
type Template struct {
	ID       int64   `json:"id"`
	Key      string  `json:"template_key"`
	Locale   string  `json:"locale"`
	Subject  *string `json:"subject,omitempty"`
	Body     string  `json:"body"`
	BodyHTML *string `json:"body_html,omitempty"`
}

// SendLog is the append-only record of one delivery attempt.
type SendLog struct {
	ID                int64          `json:"id"`
	NotificationID    int64          `json:"notification_id"`
	Channel           Channel        `json:"channel"`
	Provider          string         `json:"provider"`
	ProviderMessageID *string        `json:"provider_message_id,omitempty"`
	Status            Status         `json:"status"`
	Response          map[string]any `json:"response"`
	CreatedAt         time.Time      `json:"created_at"`
}

// Receipt is the normalized outcome of a successful dispatch.
type Receipt struct {
	Provider          string  `json:"provider"`
	ProviderMessageID *string `json:"provider_message_id,omitempty"`
}
