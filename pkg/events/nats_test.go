package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runNATSServer(t *testing.T) *server.Server {
	t.Helper()

	srv, err := server.NewServer(&server.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	})
	require.NoError(t, err)

	go srv.Start()
	if !srv.ReadyForConnections(10 * time.Second) {
		t.Fatal("nats server not ready")
	}
	t.Cleanup(srv.Shutdown)
	return srv
}

func TestNATSMirror_Forwards(t *testing.T) {
	srv := runNATSServer(t)

	nc, err := ConnectNATS(srv.ClientURL(), nil)
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	reader, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	t.Cleanup(reader.Close)

	msgs := make(chan *nats.Msg, 4)
	_, err = reader.ChanSubscribe("healthwatch.>", msgs)
	require.NoError(t, err)
	require.NoError(t, reader.Flush())

	bus := NewBus(nil)
	mirror := NewNATSMirror(nc, "", nil)
	mirror.Attach(bus, TopicHealthUpdate, TopicStockUpdate)
	assert.Equal(t, 1, bus.SubscriberCount(TopicHealthUpdate))

	bus.Publish(TopicHealthUpdate, UpdateEvent{Country: "Thailand", Indicator: "Deaths", Value: 9, Change: 2, Timestamp: 1})

	select {
	case msg := <-msgs:
		assert.Equal(t, "healthwatch.health-update", msg.Subject)
		var env struct {
			Type string      `json:"type"`
			Data UpdateEvent `json:"data"`
		}
		require.NoError(t, json.Unmarshal(msg.Data, &env))
		assert.Equal(t, TopicHealthUpdate, env.Type)
		assert.Equal(t, "Thailand", env.Data.Country)
	case <-time.After(5 * time.Second):
		t.Fatal("mirrored message not received")
	}

	require.NoError(t, mirror.Close())
	assert.Equal(t, 0, bus.SubscriberCount(TopicHealthUpdate))
}

func TestNATSMirror_ClosedConnectionDoesNotBreakBus(t *testing.T) {
	srv := runNATSServer(t)
	nc, err := ConnectNATS(srv.ClientURL(), nil)
	require.NoError(t, err)

	bus := NewBus(nil)
	NewNATSMirror(nc, "test", nil).Attach(bus, TopicStockUpdate)
	nc.Close()

	assert.Equal(t, 1, bus.Publish(TopicStockUpdate, StockEvent{ItemID: "OBT-002"}))
}

func TestConnectNATS_BadURL(t *testing.T) {
	_, err := ConnectNATS("nats://127.0.0.1:1", nil)
	assert.Error(t, err)
}
