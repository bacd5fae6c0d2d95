// Package stream serves bus events to long-lived client sessions over
// Server-Sent Events, WebSocket and gRPC server streaming.
//
// Each session owns a bounded queue. The bus callback only enqueues, so a
// slow client never blocks the publisher; when its queue is full the event is
// dropped for that session alone. A single writer goroutine per session
// drains the queue in arrival order.
package stream

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/HatiCode/healthwatch/pkg/events"
)

// State is the lifecycle state of a session.
type State int32

const (
	StateOpening State = iota
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Transport names.
const (
	TransportSSE       = "sse"
	TransportWebSocket = "websocket"
	TransportGRPC      = "grpc"
)

// Session is one connected client.
type Session struct {
	id        string
	transport string
	queue     chan events.Envelope
	state     atomic.Int32
	dropped   atomic.Uint64
	onDrop    func(transport string)

	mu   sync.Mutex
	bus  *events.Bus
	subs []events.Subscription
}

func newSession(transport string, buffer int, onDrop func(string)) *Session {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Session{
		id:        uuid.NewString(),
		transport: transport,
		queue:     make(chan events.Envelope, buffer),
		onDrop:    onDrop,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Transport returns the transport name.
func (s *Session) Transport() string { return s.transport }

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Dropped returns how many events were discarded because the queue was full.
func (s *Session) Dropped() uint64 { return s.dropped.Load() }

// Events returns the queue drained by the session writer.
func (s *Session) Events() <-chan events.Envelope { return s.queue }

// subscribe attaches the session to topics until ctx is done and marks it
// active.
func (s *Session) subscribe(ctx context.Context, bus *events.Bus, topics []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bus = bus
	for _, topic := range topics {
		topic := topic
		s.subs = append(s.subs, bus.SubscribeContext(ctx, topic, func(payload any) {
			s.enqueue(events.Envelope{Type: topic, Data: payload})
		}))
	}
	s.state.CompareAndSwap(int32(StateOpening), int32(StateActive))
}

// enqueue never blocks.
func (s *Session) enqueue(env events.Envelope) {
	if s.State() != StateActive {
		return
	}
	select {
	case s.queue <- env:
	default:
		s.dropped.Add(1)
		if s.onDrop != nil {
			s.onDrop(s.transport)
		}
	}
}

// close removes the subscriptions. It is safe to call more than once.
func (s *Session) close() {
	if !s.state.CompareAndSwap(int32(StateActive), int32(StateClosing)) &&
		!s.state.CompareAndSwap(int32(StateOpening), int32(StateClosing)) {
		return
	}
	s.mu.Lock()
	for _, sub := range s.subs {
		s.bus.Unsubscribe(sub)
	}
	s.subs = nil
	s.mu.Unlock()
	s.state.Store(int32(StateClosed))
}
