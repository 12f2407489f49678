package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"llouest/internal/config"
	"llouest/internal/logger"
)

// keyPrefix namespaces pub/sub channels on a shared Redis.
const keyPrefix = "llouest:rt:"

// RedisBus relays events between API instances through Redis pub/sub. Each
// instance holds at most one Redis subscription per channel and fans
// messages out to its local subscribers.
type RedisBus struct {
	client *redis.Client

	mu            sync.RWMutex
	subscriptions map[string]*redis.PubSub
	subscribers   map[string]map[chan Event]struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

var _ Bus = (*RedisBus)(nil)

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func NewRedisBus(client *redis.Client) *RedisBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisBus{
		client:        client,
		subscriptions: make(map[string]*redis.PubSub),
		subscribers:   make(map[string]map[chan Event]struct{}),
		ctx:           ctx,
		cancel:        cancel,
	}
}

func (b *RedisBus) Publish(ctx context.Context, channel string, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, keyPrefix+channel, data).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, channel string) (<-chan Event, error) {
	if b.ctx.Err() != nil {
		return nil, ErrBusClosed
	}

	b.mu.Lock()
	if _, ok := b.subscriptions[channel]; !ok {
		pubsub := b.client.Subscribe(b.ctx, keyPrefix+channel)
		// Wait for the confirmation so events published right after Subscribe returns are seen.
		if _, err := pubsub.Receive(ctx); err != nil {
			b.mu.Unlock()
			_ = pubsub.Close()
			return nil, fmt.Errorf("subscribe %s: %w", channel, err)
		}
		b.subscriptions[channel] = pubsub
		go b.receive(channel, pubsub)
	}
	if b.subscribers[channel] == nil {
		b.subscribers[channel] = make(map[chan Event]struct{})
	}
	ch := make(chan Event, subscriberBuffer)
	b.subscribers[channel][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-b.ctx.Done():
		}
		b.removeSubscriber(channel, ch)
	}()
	return ch, nil
}

func (b *RedisBus) receive(channel string, pubsub *redis.PubSub) {
	log := logger.Get().With().Str("component", "realtime").Str("channel", channel).Logger()
	msgs := pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				log.Warn().Err(err).Msg("dropping malformed event")
				continue
			}
			b.mu.RLock()
			fanOut(b.subscribers[channel], channel, e)
			b.mu.RUnlock()
		}
	}
}

func (b *RedisBus) removeSubscriber(channel string, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[channel]
	if !ok {
		return
	}
	if _, ok := subs[ch]; !ok {
		return
	}
	delete(subs, ch)
	close(ch)

	if len(subs) == 0 {
		delete(b.subscribers, channel)
		if pubsub, ok := b.subscriptions[channel]; ok {
			_ = pubsub.Close()
			delete(b.subscriptions, channel)
		}
	}
}

// Close ends every subscription. The Redis client itself is owned by the caller.
func (b *RedisBus) Close() error {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for channel, pubsub := range b.subscriptions {
		if err := pubsub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", channel, err))
		}
		delete(b.subscriptions, channel)
	}
	for channel, subs := range b.subscribers {
		for ch := range subs {
			close(ch)
		}
		delete(b.subscribers, channel)
	}
	return errors.Join(errs...)
}

// fanOut delivers e without blocking; a slow subscriber loses the event.
// Callers hold at least a read lock on the subscriber map.
func fanOut(subs map[chan Event]struct{}, channel string, e Event) {
	for ch := range subs {
		select {
		case ch <- e:
		default:
			logger.Get().Warn().
				Str("component", "realtime").
				Str("channel", channel).
				Str("event_type", e.Type).
				Msg("subscriber buffer full, dropping event")
		}
	}
}
