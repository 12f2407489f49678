package mailer

import (
	"context"

	"llouest/internal/logger"
)

// LogSender writes emails to the log instead of sending them. Used in
// development and whenever SMTP_HOST is empty.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, e Email) error {
	logger.FromContext(ctx).Info().
		Str("component", "mailer").
		Str("to", e.To).
		Str("subject", e.Subject).
		Int("attachments", len(e.Attachments)).
		Str("body", e.TextBody).
		Msg("email not sent, smtp disabled")
	return nil
}
