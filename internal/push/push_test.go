package push

import (
	"context"
	"errors"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"

	"llouest/internal/retry"
)

type fakeClient struct {
	errs []error
	sent []*messaging.Message
}

func (f *fakeClient) Send(_ context.Context, msg *messaging.Message) (string, error) {
	f.sent = append(f.sent, msg)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return "", err
		}
	}
	return "projects/p/messages/1", nil
}

var errUnregistered = errors.New("registration-token-not-registered")

func withUnregistered(t *testing.T) {
	orig := isUnregistered
	isUnregistered = func(err error) bool { return errors.Is(err, errUnregistered) }
	t.Cleanup(func() { isUnregistered = orig })
}

func TestFCMPusher_Send(t *testing.T) {
	withUnregistered(t)
	rc := retry.Config{Attempts: 3, Delay: time.Millisecond}
	ctx := context.Background()

	t.Run("builds the message", func(t *testing.T) {
		client := &fakeClient{}
		p := &FCMPusher{client: client, retry: rc}

		err := p.Send(ctx, "tok", "Réservation confirmée", "À mardi", map[string]string{"reservation_id": "r-1"})

		assert.NoError(t, err)
		if assert.Len(t, client.sent, 1) {
			msg := client.sent[0]
			assert.Equal(t, "tok", msg.Token)
			assert.Equal(t, "Réservation confirmée", msg.Notification.Title)
			assert.Equal(t, "r-1", msg.Data["reservation_id"])
			assert.Equal(t, "high", msg.Android.Priority)
		}
	})

	t.Run("retries transient errors", func(t *testing.T) {
		client := &fakeClient{errs: []error{errors.New("unavailable"), nil}}
		p := &FCMPusher{client: client, retry: rc}

		assert.NoError(t, p.Send(ctx, "tok", "t", "b", nil))
		assert.Len(t, client.sent, 2)
	})

	t.Run("unregistered token is permanent", func(t *testing.T) {
		client := &fakeClient{errs: []error{errUnregistered}}
		p := &FCMPusher{client: client, retry: rc}

		err := p.Send(ctx, "stale", "t", "b", nil)

		assert.ErrorIs(t, err, ErrInvalidToken)
		assert.Len(t, client.sent, 1)
	})

	t.Run("empty token", func(t *testing.T) {
		client := &fakeClient{}
		p := &FCMPusher{client: client, retry: rc}

		assert.ErrorIs(t, p.Send(ctx, "", "t", "b", nil), ErrInvalidToken)
		assert.Empty(t, client.sent)
	})
}

func TestNoopPusher(t *testing.T) {
	assert.NoError(t, NoopPusher{}.Send(context.Background(), "tok", "t", "b", nil))
}
