package stream

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/HatiCode/healthwatch/pkg/events"
)

// Defaults for Options.
const (
	DefaultBuffer    = 64
	DefaultKeepAlive = 15 * time.Second
	// RetryMillis is the reconnect delay advertised to EventSource clients.
	RetryMillis = 3000
)

// Options configures a Manager.
type Options struct {
	// Buffer is the per-session queue size.
	Buffer int
	// KeepAlive is the interval of SSE comments and WebSocket pings that
	// keep idle connections open and surface dead ones.
	KeepAlive time.Duration
}

// Observer is notified of session activity, typically to feed metrics.
type Observer interface {
	SessionOpened(transport string)
	SessionClosed(transport string)
	EventDropped(transport string)
}

// Manager opens sessions on a bus and tracks the live ones.
type Manager struct {
	bus      *events.Bus
	opts     Options
	logger   *zerolog.Logger
	observer Observer

	mu       sync.RWMutex
	sessions map[string]*Session

	done     chan struct{}
	shutdown sync.Once
}

// NewManager creates a session manager for bus.
func NewManager(bus *events.Bus, opts Options, logger *zerolog.Logger) *Manager {
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultBuffer
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = DefaultKeepAlive
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Manager{
		bus:      bus,
		opts:     opts,
		logger:   logger,
		sessions: make(map[string]*Session),
		done:     make(chan struct{}),
	}
}

// Shutdown ends every live stream and makes new ones end right after the
// connected greeting. Servers call it before draining connections.
func (m *Manager) Shutdown() {
	m.shutdown.Do(func() {
		close(m.done)
		m.logger.Info().Int("sessions", m.Stats().Total).Msg("Stream manager shutting down")
	})
}

// SetObserver installs an observer. It must be called before serving.
func (m *Manager) SetObserver(o Observer) {
	m.observer = o
}

// Open creates a session subscribed to topics until ctx is done or Close is
// called.
func (m *Manager) Open(ctx context.Context, transport string, topics ...string) *Session {
	var onDrop func(string)
	if m.observer != nil {
		onDrop = m.observer.EventDropped
	}
	s := newSession(transport, m.opts.Buffer, onDrop)

	m.mu.Lock()
	m.sessions[s.id] = s
	total := len(m.sessions)
	m.mu.Unlock()

	s.subscribe(ctx, m.bus, topics)
	if m.observer != nil {
		m.observer.SessionOpened(transport)
	}
	m.logger.Info().
		Str("session", s.id).
		Str("transport", transport).
		Strs("topics", topics).
		Int("total_sessions", total).
		Msg("Stream session opened")
	return s
}

// Close ends a session and forgets it.
func (m *Manager) Close(s *Session) {
	if s.State() == StateClosed {
		return
	}
	s.close()

	m.mu.Lock()
	_, known := m.sessions[s.id]
	delete(m.sessions, s.id)
	total := len(m.sessions)
	m.mu.Unlock()
	if !known {
		return
	}

	if m.observer != nil {
		m.observer.SessionClosed(s.transport)
	}
	m.logger.Info().
		Str("session", s.id).
		Str("transport", s.transport).
		Uint64("dropped", s.Dropped()).
		Int("total_sessions", total).
		Msg("Stream session closed")
}

// Stats summarizes live sessions.
type Stats struct {
	Total      int            `json:"total"`
	Transports map[string]int `json:"transports"`
}

// Stats returns the number of live sessions per transport.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := Stats{Transports: map[string]int{
		TransportSSE:       0,
		TransportWebSocket: 0,
		TransportGRPC:      0,
	}}
	for _, s := range m.sessions {
		st.Transports[s.transport]++
		st.Total++
	}
	return st
}
