// Package realtime fans events out to connected clients. Channels are named
// per user ("user:<id>").
package realtime

import (
	"context"
	"encoding/json"
	"time"
)

// subscriberBuffer is the per-subscriber queue; events for a full queue are dropped.
const subscriberBuffer = 64

func UserChannel(userID string) string {
	return "user:" + userID
}

// Event is one message on a channel. Data is the JSON payload forwarded to clients.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	At   time.Time       `json:"at"`
}

func NewEvent(typ string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: typ, Data: data, At: time.Now().UTC()}, nil
}

// Bus publishes events and hands out subscriptions. A subscription channel is
// closed when its context ends or the bus is closed.
type Bus interface {
	Publish(ctx context.Context, channel string, e Event) error
	Subscribe(ctx context.Context, channel string) (<-chan Event, error)
	Close() error
}
