package mailer

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"llouest/internal/config"
	"llouest/internal/retry"
)

// SMTPSender sends through one SMTP relay. go-mail dials per call, so the
// sender is safe for concurrent use.
type SMTPSender struct {
	client   *mail.Client
	from     string
	fromName string
}

func NewSMTPSender(cfg config.MailConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(15 * time.Second),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	switch {
	case cfg.Port == 465:
		opts = append(opts, mail.WithSSL())
	case cfg.UseTLS:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &SMTPSender{client: client, from: cfg.From, fromName: cfg.FromName}, nil
}

func (s *SMTPSender) Send(ctx context.Context, e Email) error {
	msg, err := s.message(e)
	if err != nil {
		// A malformed address will not get better on retry.
		return retry.Permanent(err)
	}
	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *SMTPSender) message(e Email) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.FromFormat(s.fromName, s.from); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	var err error
	if e.ToName != "" {
		err = m.AddToFormat(e.ToName, e.To)
	} else {
		err = m.To(e.To)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}

	m.Subject(e.Subject)
	m.SetBodyString(mail.TypeTextPlain, e.TextBody)
	if e.HTMLBody != "" {
		m.AddAlternativeString(mail.TypeTextHTML, e.HTMLBody)
	}
	for _, a := range e.Attachments {
		if err := m.AttachReader(a.Filename, bytes.NewReader(a.Data),
			mail.WithFileContentType(mail.ContentType(a.ContentType))); err != nil {
			return nil, fmt.Errorf("attach %s: %w", a.Filename, err)
		}
	}
	return m, nil
}
