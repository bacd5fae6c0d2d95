package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/HatiCode/healthwatch/cmd/watcher/metrics"
	"github.com/HatiCode/healthwatch/pkg/client"
	"github.com/HatiCode/healthwatch/pkg/events"
	"github.com/HatiCode/healthwatch/pkg/stream"
)

func newTestWatcher() (*Watcher, *metrics.Metrics) {
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	w := NewWatcher(m, nil)
	w.now = func() time.Time { return time.Unix(1700000000, 0) }
	return w, m
}

func message(t *testing.T, typ string, data any) client.Message {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return client.Message{Type: typ, Data: raw}
}

func TestWatcher_Handle(t *testing.T) {
	w, m := newTestWatcher()

	require.Error(t, w.Ready(context.Background()))
	w.Handle(client.Message{Type: events.TypeConnected})
	require.NoError(t, w.Ready(context.Background()))

	w.Handle(message(t, events.TopicHealthUpdate, events.UpdateEvent{Country: "Thailand", Indicator: "Deaths", Value: 310, Change: -4}))
	w.Handle(message(t, events.TopicStockUpdate, events.StockEvent{ItemID: "OBT-002", Stock: 13, Event: "sold", Quantity: 2}))
	w.Handle(client.Message{Type: events.TopicStockUpdate, Data: json.RawMessage(`"oops"`)})
	w.Handle(client.Message{Type: "weather"})

	assert.Equal(t, 310.0, testutil.ToFloat64(m.IndicatorValue.WithLabelValues("Thailand", "Deaths")))
	assert.Equal(t, 13.0, testutil.ToFloat64(m.StockLevel.WithLabelValues("OBT-002")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsReceived.WithLabelValues(events.TopicStockUpdate)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DecodeErrors))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.LastEvent))
}

func TestWatcher_FollowHTTP(t *testing.T) {
	bus := events.NewBus(nil)
	mgr := stream.NewManager(bus, stream.Options{}, nil)
	mux := http.NewServeMux()
	mux.Handle("/api/who/stream", mgr.SSEHandler(events.TopicHealthUpdate))
	mux.Handle("/api/events", mgr.SSEHandler(events.TopicStockUpdate))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	w, m := newTestWatcher()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.FollowHTTP(ctx, srv.URL, []string{events.TopicHealthUpdate, events.TopicStockUpdate}, client.StreamOptions{})
	}()

	require.Eventually(t, func() bool {
		return bus.SubscriberCount(events.TopicHealthUpdate) == 1 && bus.SubscriberCount(events.TopicStockUpdate) == 1
	}, 2*time.Second, 5*time.Millisecond)

	bus.Publish(events.TopicHealthUpdate, events.UpdateEvent{Country: "Vietnam", Indicator: "Recovered", Value: 99})
	bus.Publish(events.TopicStockUpdate, events.StockEvent{ItemID: "OBT-005", Stock: 21})

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.IndicatorValue.WithLabelValues("Vietnam", "Recovered")) == 99 &&
			testutil.ToFloat64(m.StockLevel.WithLabelValues("OBT-005")) == 21
	}, 2*time.Second, 5*time.Millisecond)
	assert.NoError(t, w.Ready(ctx))

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("FollowHTTP did not return after cancel")
	}
}

func TestWatcher_FollowHTTPNotReadyAfterDrop(t *testing.T) {
	bus := events.NewBus(nil)
	mgr := stream.NewManager(bus, stream.Options{}, nil)
	var down atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if down.Load() {
			rw.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		mgr.SSEHandler(events.TopicStockUpdate).ServeHTTP(rw, r)
	}))
	defer srv.Close()

	w, _ := newTestWatcher()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.FollowHTTP(ctx, srv.URL, []string{events.TopicStockUpdate}, client.StreamOptions{InitialInterval: 10 * time.Millisecond})
	}()

	require.Eventually(t, func() bool { return w.Ready(ctx) == nil }, 2*time.Second, 5*time.Millisecond)

	down.Store(true)
	srv.CloseClientConnections()
	require.Eventually(t, func() bool { return w.Ready(ctx) != nil }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("FollowHTTP did not return after cancel")
	}
}

func TestWatcher_FollowGRPCNotReadyAfterDrop(t *testing.T) {
	bus := events.NewBus(nil)
	mgr := stream.NewManager(bus, stream.Options{}, nil)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := grpc.NewServer()
	stream.NewWatchServer(mgr, events.TopicHealthUpdate, events.TopicStockUpdate).Register(srv)
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	w, _ := newTestWatcher()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.FollowGRPC(ctx, lis.Addr().String(), []string{events.TopicStockUpdate}, time.Second)
	}()

	require.Eventually(t, func() bool { return w.Ready(ctx) == nil }, 5*time.Second, 5*time.Millisecond)

	srv.Stop()
	require.Eventually(t, func() bool { return w.Ready(ctx) != nil }, 5*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("FollowGRPC did not return after cancel")
	}
}

func TestWatcher_FollowHTTPUnknownTopic(t *testing.T) {
	w, _ := newTestWatcher()

	err := w.FollowHTTP(context.Background(), "http://localhost", []string{"weather"}, client.StreamOptions{})
	assert.Error(t, err)
}

func TestWatcher_WatchOnce(t *testing.T) {
	bus := events.NewBus(nil)
	mgr := stream.NewManager(bus, stream.Options{}, nil)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	stream.NewWatchServer(mgr, events.TopicHealthUpdate, events.TopicStockUpdate).Register(srv)
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()

	w, m := newTestWatcher()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool, 1)
	go func() {
		received, _ := w.watchOnce(ctx, conn, []string{events.TopicStockUpdate})
		done <- received
	}()

	require.Eventually(t, func() bool {
		return bus.SubscriberCount(events.TopicStockUpdate) == 1
	}, 2*time.Second, 5*time.Millisecond)
	bus.Publish(events.TopicStockUpdate, events.StockEvent{ItemID: "OBT-003", Stock: 7, Event: "sold", Quantity: 23, Timestamp: 1700000000})

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.StockLevel.WithLabelValues("OBT-003")) == 7
	}, 2*time.Second, 5*time.Millisecond)
	assert.NoError(t, w.Ready(ctx))

	cancel()
	select {
	case received := <-done:
		assert.True(t, received)
	case <-time.After(5 * time.Second):
		t.Fatal("watchOnce did not return after cancel")
	}
}
