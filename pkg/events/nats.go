package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// DefaultSubjectPrefix prefixes the NATS subject of every mirrored topic.
const DefaultSubjectPrefix = "healthwatch"

// NATSMirror republishes bus traffic on NATS subjects named
// "<prefix>.<topic>" so that other processes can follow the stream.
// Publishing is best effort: failures are logged and never reach the bus.
type NATSMirror struct {
	nc     *nats.Conn
	prefix string
	logger *zerolog.Logger
	bus    *Bus
	subs   []Subscription
}

// ConnectNATS dials the NATS server at url with reconnects enabled.
func ConnectNATS(url string, logger *zerolog.Logger) (*nats.Conn, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	nc, err := nats.Connect(url,
		nats.Name("healthwatch"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// NewNATSMirror creates a mirror publishing through nc.
func NewNATSMirror(nc *nats.Conn, prefix string, logger *zerolog.Logger) *NATSMirror {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &NATSMirror{nc: nc, prefix: prefix, logger: logger}
}

// Subject returns the NATS subject for a bus topic.
func (m *NATSMirror) Subject(topic string) string {
	return m.prefix + "." + topic
}

// Attach subscribes the mirror to topics on bus.
func (m *NATSMirror) Attach(bus *Bus, topics ...string) {
	m.bus = bus
	for _, topic := range topics {
		topic := topic
		m.subs = append(m.subs, bus.Subscribe(topic, func(payload any) {
			m.forward(topic, payload)
		}))
	}
}

func (m *NATSMirror) forward(topic string, payload any) {
	data, err := json.Marshal(Envelope{Type: topic, Data: payload})
	if err != nil {
		m.logger.Error().Err(err).Str("topic", topic).Msg("Failed to encode mirrored event")
		return
	}
	if err := m.nc.Publish(m.Subject(topic), data); err != nil {
		m.logger.Warn().Err(err).Str("subject", m.Subject(topic)).Msg("Failed to mirror event to NATS")
	}
}

// Close detaches from the bus and flushes pending messages.
func (m *NATSMirror) Close() error {
	if m.bus != nil {
		for _, s := range m.subs {
			m.bus.Unsubscribe(s)
		}
		m.subs = nil
	}
	if m.nc.IsClosed() {
		return nil
	}
	return m.nc.Flush()
}
