package events

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Handler receives a published payload.
type Handler func(payload any)

// Subscription identifies a registered handler. The zero value is not a
// valid subscription and is ignored by Unsubscribe.
type Subscription struct {
	id    uint64
	topic string
}

// Topic returns the subscribed topic.
func (s Subscription) Topic() string { return s.topic }

// Observer is notified of bus activity, typically to feed metrics.
type Observer interface {
	Published(topic string, delivered int)
	HandlerPanicked(topic string)
}

type subscriber struct {
	id      uint64
	handler Handler
}

// Bus fans payloads out to the handlers subscribed to a topic.
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	topics   map[string][]subscriber
	logger   *zerolog.Logger
	observer Observer
}

// NewBus creates an empty bus. A nil logger discards log output.
func NewBus(logger *zerolog.Logger) *Bus {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Bus{
		topics: make(map[string][]subscriber),
		logger: logger,
	}
}

// SetObserver installs an observer. It must be called before the bus is in use.
func (b *Bus) SetObserver(o Observer) {
	b.observer = o
}

// Subscribe registers handler for topic.
func (b *Bus) Subscribe(topic string, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := Subscription{id: b.nextID, topic: topic}
	b.topics[topic] = append(b.topics[topic], subscriber{id: sub.id, handler: handler})

	b.logger.Debug().
		Str("topic", topic).
		Int("subscribers", len(b.topics[topic])).
		Msg("Subscriber registered")
	return sub
}

// SubscribeContext registers handler for topic until ctx is done.
func (b *Bus) SubscribeContext(ctx context.Context, topic string, handler Handler) Subscription {
	sub := b.Subscribe(topic, handler)
	context.AfterFunc(ctx, func() { b.Unsubscribe(sub) })
	return sub
}

// Unsubscribe removes a subscription. Removing an unknown or already removed
// subscription is a no-op.
func (b *Bus) Unsubscribe(sub Subscription) {
	if sub.id == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.topics[sub.topic]
	for i, s := range subs {
		if s.id != sub.id {
			continue
		}
		// Copy so that slices handed out to in-flight publishes stay intact.
		next := make([]subscriber, 0, len(subs)-1)
		next = append(next, subs[:i]...)
		next = append(next, subs[i+1:]...)
		if len(next) == 0 {
			delete(b.topics, sub.topic)
		} else {
			b.topics[sub.topic] = next
		}
		b.logger.Debug().
			Str("topic", sub.topic).
			Int("subscribers", len(next)).
			Msg("Subscriber unregistered")
		return
	}
}

// Publish delivers payload to every handler subscribed to topic at the time
// of the call, in registration order, and returns how many returned
// normally. A panicking handler is logged and skipped.
func (b *Bus) Publish(topic string, payload any) int {
	b.mu.RLock()
	subs := b.topics[topic]
	b.mu.RUnlock()

	delivered := 0
	for _, s := range subs {
		if b.invoke(topic, s, payload) {
			delivered++
		}
	}

	if b.observer != nil {
		b.observer.Published(topic, delivered)
	}
	return delivered
}

func (b *Bus) invoke(topic string, s subscriber, payload any) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Str("topic", topic).
				Uint64("subscription", s.id).
				Interface("panic", r).
				Msg("Event handler panicked")
			if b.observer != nil {
				b.observer.HandlerPanicked(topic)
			}
			ok = false
		}
	}()
	s.handler(payload)
	return true
}

// SubscriberCount returns the number of handlers subscribed to topic.
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}
