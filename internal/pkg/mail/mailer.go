package mail

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/nexochat/nexo/internal/pkg/env"
)

// Message is one outbound HTML email.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
}

// Mailer sends a message and returns the provider message id when there is one.
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// LogMailer only logs. Used in development and when no provider is configured.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, msg Message) (string, error) {
	id := "log-" + uuid.NewString()
	log.Infof("[Mail] (log driver) to=%s subject=%q id=%s bytes=%d", msg.To, msg.Subject, id, len(msg.HTML))
	return id, nil
}

// ProviderSettings carries lookups for values an operator may store in the
// settings table. A sender lookup returning empty values falls back to
// BREVO_SENDER_EMAIL and BREVO_SENDER_NAME.
type ProviderSettings struct {
	APIKey APIKeyFunc
	Sender SenderFunc
}

// NewMailerFromEnv picks the mailer named by MAIL_DRIVER. The API key and the
// sender are resolved at send time so values saved in settings take effect
// without a restart.
func NewMailerFromEnv(ps ProviderSettings) Mailer {
	switch strings.ToLower(env.GetEnv("MAIL_DRIVER", "log")) {
	case "brevo":
		return NewBrevoMailer(BrevoConfig{
			APIKey:      ps.APIKey,
			Sender:      ps.Sender,
			SenderEmail: env.GetEnv("BREVO_SENDER_EMAIL", "no-reply@localhost"),
			SenderName:  env.GetEnv("BREVO_SENDER_NAME", "Nexo"),
		})
	case "smtp":
		return NewSMTPMailerFromEnv()
	default:
		return LogMailer{}
	}
}
