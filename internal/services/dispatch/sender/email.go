package sender

import (
	"context"
	"crypto/tls"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/vetdesk/notify/internal/domain/notification"

	"go.uber.org/zap"
)

type EmailConfig struct {
	Addr       string
	From       string
	User       string
	Password   string
	UseTLS     bool
	Timeout    time.Duration
	SubjPrefix string
}

// Email delivers over SMTP. With an empty Addr it runs in dev mode.
type Email struct {
	addr       string
	auth       smtp.Auth
	useTLS     bool
	timeout    time.Duration
	from       string
	subjPrefix string

	log *zap.Logger
}

func NewEmail(cfg EmailConfig, log *zap.Logger) *Email {
	var auth smtp.Auth
	if cfg.User != "" || cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Password, smtpHost(cfg.Addr))
	}
	return &Email{
		addr:       cfg.Addr,
		auth:       auth,
		useTLS:     cfg.UseTLS,
		timeout:    cfg.Timeout,
		from:       cfg.From,
		subjPrefix: cfg.SubjPrefix,
		log:        log.With(zap.String("component", "sender.email")),
	}
}

var _ notification.EmailSender = (*Email)(nil)

func (m *Email) Send(ctx context.Context, to string, content notification.EmailContent, idemKey string) (string, error) {
	if to == "" {
		return "", &notification.SendError{Reason: "to is required"}
	}

	subj := strings.TrimSpace(m.subjPrefix + " " + content.Subject)

	if m.addr == "" {
		m.log.Info("dev-mode email",
			zap.String("to", to),
			zap.String("subject", subj),
			zap.String("idempotency_key", idemKey),
		)
		return devMessageID(), nil
	}

	msg := m.buildMessage(to, subj, content, idemKey)

	start := time.Now()
	log := m.log.With(
		zap.String("smtp_addr", m.addr),
		zap.Bool("tls", m.useTLS),
		zap.String("to", to),
		zap.String("subject", subj),
	)

	if m.useTLS {
		if err := m.sendTLS(to, msg); err != nil {
			log.Error("smtp send (TLS)", zap.Error(err))
			return "", &notification.SendError{Reason: "smtp send", Err: err}
		}
	} else {
		if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, msg); err != nil {
			log.Error("smtp send", zap.Error(err))
			return "", &notification.SendError{Reason: "smtp send", Err: err}
		}
	}
	log.Info("email sent", zap.Duration("elapsed", time.Since(start)))

	// SMTP has no provider message id; the dispatch layer records null.
	return "", nil
}

func (m *Email) buildMessage(to, subj string, content notification.EmailContent, idemKey string) []byte {
	var b strings.Builder
	b.WriteString("From: " + m.from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subj + "\r\n")
	b.WriteString("X-Idempotency-Key: " + idemKey + "\r\n")
	if content.HTML != nil {
		b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
		b.WriteString(*content.HTML)
	} else {
		b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		b.WriteString(content.Text)
	}
	b.WriteString("\r\n")
	return []byte(b.String())
}

func (m *Email) sendTLS(to string, msg []byte) error {
	dialer := net.Dialer{Timeout: m.timeout}
	conn, err := tls.DialWithDialer(&dialer, "tcp", m.addr, &tls.Config{ServerName: smtpHost(m.addr)})
	if err != nil {
		return err
	}
	c, err := smtp.NewClient(conn, smtpHost(m.addr))
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	if m.auth != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(m.auth); err != nil {
				return err
			}
		}
	}
	if err := c.Mail(m.from); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err = w.Write(msg); err != nil {
		return err
	}
	return w.Close()
}

func smtpHost(addr string) string {
	if i := strings.Index(addr, ":"); i >= 0 {
		return addr[:i]
	}
	return addr
}
