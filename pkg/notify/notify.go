// pkg/notify/notify.go

// Package notify delivers operator notifications. Delivery is best
// effort: a failed send is logged and never propagated, so notification
// problems cannot take down an ingestion run.
package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/dropstream-io/order-ingress/pkg/config"
)

// Notifier sends an operator-facing message.
type Notifier interface {
	Notify(subject, body string)
}

// EmailNotifier sends notifications over SMTP.
type EmailNotifier struct {
	cfg    *config.SMTPConfig
	logger *zap.Logger

	// send is swappable for tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailNotifier creates a notifier for a configured SMTP channel. If
// the channel is not configured a no-op notifier is returned instead.
func NewEmailNotifier(cfg *config.SMTPConfig, logger *zap.Logger) Notifier {
	log := logger.Named("notify")
	if !cfg.Enabled() {
		log.Info("Notifications are disabled; no SMTP host or recipients configured")
		return NopNotifier{}
	}
	return &EmailNotifier{
		cfg:    cfg,
		logger: log,
		send:   smtp.SendMail,
	}
}

// Notify sends one message to every configured recipient.
func (n *EmailNotifier) Notify(subject, body string) {
	msg := buildMessage(n.cfg.From, n.cfg.Recipients, subject, body)

	var auth smtp.Auth
	if n.cfg.User != "" {
		auth = smtp.PlainAuth("", n.cfg.User, n.cfg.Password, n.cfg.Host)
	}

	if err := n.send(n.cfg.Address(), auth, n.cfg.From, n.cfg.Recipients, msg); err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("subject", subject),
			zap.Error(err))
		return
	}

	n.logger.Info("Sent notification",
		zap.String("subject", subject),
		zap.Int("recipients", len(n.cfg.Recipients)))
}

func buildMessage(from string, to []string, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// NopNotifier discards every message. Used when the notification channel
// is not configured.
type NopNotifier struct{}

// Notify discards the message.
func (NopNotifier) Notify(subject, body string) {}
