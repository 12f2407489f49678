// Package push sends mobile and web push notifications through Firebase Cloud Messaging.
package push

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"llouest/internal/config"
	"llouest/internal/retry"
)

// ErrInvalidToken means the device token is no longer registered and should be forgotten.
var ErrInvalidToken = errors.New("push token is no longer valid")

// Pusher delivers one notification to one device token.
type Pusher interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

// NoopPusher is used when push is disabled.
type NoopPusher struct{}

func (NoopPusher) Send(context.Context, string, string, string, map[string]string) error {
	return nil
}

type messagingClient interface {
	Send(ctx context.Context, msg *messaging.Message) (string, error)
}

var isUnregistered = messaging.IsUnregistered

// FCMPusher sends through the Firebase Admin SDK with a fixed-delay retry.
type FCMPusher struct {
	client messagingClient
	retry  retry.Config
}

// NewFCM builds the Firebase app from a service account file. An empty file
// falls back to Application Default Credentials.
func NewFCM(ctx context.Context, cfg config.PushConfig, rc retry.Config) (*FCMPusher, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	var fbCfg *firebase.Config
	if cfg.ProjectID != "" {
		fbCfg = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase messaging: %w", err)
	}
	return &FCMPusher{client: client, retry: rc}, nil
}

func (p *FCMPusher) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	if token == "" {
		return ErrInvalidToken
	}
	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	}

	return retry.Do(ctx, p.retry, "fcm_send", func() error {
		_, err := p.client.Send(ctx, msg)
		if err == nil {
			return nil
		}
		if isUnregistered(err) {
			return retry.Permanent(fmt.Errorf("%w: %v", ErrInvalidToken, err))
		}
		return err
	})
}
