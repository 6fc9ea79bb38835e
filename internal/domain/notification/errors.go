package notification

import "errors"

// Dispatch failures are a small closed set of tagged variants so callers can
// branch on kind rather than on message text.

// ErrTemplateNotFound means no template row matched (template_key, locale).
// There is no silent locale fallback below the dispatch service.
var ErrTemplateNotFound = errors.New("template not found")

// MissingTargetError means the target lacks the field the channel requires.
type MissingTargetError struct {
	Channel Channel
}

func (e *MissingTargetError) Error() string {
	switch e.Channel {
	case ChannelEmail:
		return "no email target"
	case ChannelSMS:
		return "no phone target"
	case ChannelPush:
		return "no push token"
	}
	return "no target for channel " + string(e.Channel)
}

// UnsupportedChannelError means the channel is not one of email|sms|push.
type UnsupportedChannelError struct {
	Channel Channel
}

func (e *UnsupportedChannelError) Error() string {
	return "unsupported channel: " + string(e.Channel)
}

// SendError is a transport-level failure reported by a channel sender.
type SendError struct {
	Reason string
	Err    error
}

func (e *SendError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *SendError) Unwrap() error { return e.Err }
