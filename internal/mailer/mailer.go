// Package mailer delivers transactional email over SMTP, or to the log when
// SMTP is not configured.
package mailer

import (
	"context"

	"llouest/internal/retry"
)

// Email is a rendered message with a plain text body and an optional HTML alternative.
type Email struct {
	To          string
	ToName      string
	Subject     string
	TextBody    string
	HTMLBody    string
	Attachments []Attachment
}

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Sender delivers one email.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

type retrySender struct {
	next Sender
	cfg  retry.Config
}

// WithRetry retries failed sends with a fixed delay. Errors marked with
// retry.Permanent are returned immediately.
func WithRetry(next Sender, cfg retry.Config) Sender {
	return &retrySender{next: next, cfg: cfg}
}

func (r *retrySender) Send(ctx context.Context, e Email) error {
	return retry.Do(ctx, r.cfg, "email:"+e.Subject, func() error {
		return r.next.Send(ctx, e)
	})
}
