package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/HatiCode/healthwatch/pkg/events"
)

const (
	time2s = 2 * time.Second
	tick   = 5 * time.Millisecond
)

// readFrame reads one SSE frame (lines up to a blank line).
func readFrame(t *testing.T, r *bufio.Reader) []string {
	t.Helper()
	var lines []string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		if line == "" {
			return lines
		}
		lines = append(lines, line)
	}
}

func openSSE(t *testing.T, ctx context.Context, url string) (*http.Response, *bufio.Reader) {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp, bufio.NewReader(resp.Body)
}

func TestSSEHandler_HeadersAndGreeting(t *testing.T) {
	bus := events.NewBus(nil)
	m := NewManager(bus, Options{}, nil)
	server := httptest.NewServer(m.SSEHandler(events.TopicHealthUpdate))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	resp, r := openSSE(t, ctx, server.URL)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache, no-transform", resp.Header.Get("Cache-Control"))

	assert.Equal(t, []string{`data: {"type":"connected"}`}, readFrame(t, r))
	assert.Equal(t, []string{"retry: 3000"}, readFrame(t, r))
}

func TestSSEHandler_DeliversInOrder(t *testing.T) {
	bus := events.NewBus(nil)
	m := NewManager(bus, Options{}, nil)
	server := httptest.NewServer(m.SSEHandler(events.TopicHealthUpdate))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, r := openSSE(t, ctx, server.URL)
	readFrame(t, r)
	readFrame(t, r)
	require.Equal(t, 1, bus.SubscriberCount(events.TopicHealthUpdate))

	for i := 1; i <= 3; i++ {
		bus.Publish(events.TopicHealthUpdate, events.UpdateEvent{
			Country: "Indonesia", Indicator: "Deaths", Value: float64(i), Change: 1, Timestamp: 1700000000,
		})
	}
	bus.Publish(events.TopicStockUpdate, events.StockEvent{ItemID: "OBT-001"})

	for i := 1; i <= 3; i++ {
		frame := readFrame(t, r)
		require.Len(t, frame, 1)
		require.True(t, strings.HasPrefix(frame[0], "data: "))

		var env struct {
			Type string             `json:"type"`
			Data events.UpdateEvent `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frame[0], "data: ")), &env))
		assert.Equal(t, events.TopicHealthUpdate, env.Type)
		assert.Equal(t, float64(i), env.Data.Value)
		assert.Equal(t, "Indonesia", env.Data.Country)
	}
}

func TestSSEHandler_KeepAlive(t *testing.T) {
	m := NewManager(events.NewBus(nil), Options{KeepAlive: 20 * time.Millisecond}, nil)
	server := httptest.NewServer(m.SSEHandler(events.TopicHealthUpdate))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, r := openSSE(t, ctx, server.URL)
	readFrame(t, r)
	readFrame(t, r)

	assert.Equal(t, []string{": ping"}, readFrame(t, r))
}

func TestSSEHandler_DisconnectCleansUp(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	bus := events.NewBus(nil)
	m := NewManager(bus, Options{}, nil)
	server := httptest.NewServer(m.SSEHandler(events.TopicHealthUpdate, events.TopicStockUpdate))
	defer server.Close()

	client := &http.Client{Transport: &http.Transport{}}
	defer client.CloseIdleConnections()

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	r := bufio.NewReader(resp.Body)
	readFrame(t, r)
	require.Equal(t, 1, m.Stats().Transports[TransportSSE])

	cancel()
	resp.Body.Close()

	require.Eventually(t, func() bool {
		return bus.SubscriberCount(events.TopicHealthUpdate) == 0 &&
			bus.SubscriberCount(events.TopicStockUpdate) == 0 &&
			m.Stats().Total == 0
	}, time2s, tick)

	// Publishing after the client left reaches nobody and does not block.
	assert.Equal(t, 0, bus.Publish(events.TopicHealthUpdate, events.UpdateEvent{}))
}

func TestSSEHandler_SlowClientDoesNotBlockPublisher(t *testing.T) {
	bus := events.NewBus(nil)
	m := NewManager(bus, Options{Buffer: 1}, nil)
	server := httptest.NewServer(m.SSEHandler(events.TopicHealthUpdate))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, r := openSSE(t, ctx, server.URL)
	readFrame(t, r)

	done := make(chan struct{})
	go func() {
		defer close(done)
		payload := events.UpdateEvent{Country: strings.Repeat("x", 4096)}
		for i := 0; i < 1000; i++ {
			bus.Publish(events.TopicHealthUpdate, payload)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publisher blocked by a client that is not reading")
	}
}

type plainWriter struct{ header http.Header }

func (p *plainWriter) Header() http.Header         { return p.header }
func (p *plainWriter) Write(b []byte) (int, error) { return len(b), nil }
func (p *plainWriter) WriteHeader(int)             {}

func TestSSEHandler_RequiresFlusher(t *testing.T) {
	m := NewManager(events.NewBus(nil), Options{}, nil)
	w := &plainWriter{header: http.Header{}}
	m.SSEHandler(events.TopicHealthUpdate).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, 0, m.Stats().Total)
}

func TestSSEHandler_ShutdownEndsStream(t *testing.T) {
	bus := events.NewBus(nil)
	m := NewManager(bus, Options{}, nil)
	server := httptest.NewServer(m.SSEHandler(events.TopicHealthUpdate))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, r := openSSE(t, ctx, server.URL)
	readFrame(t, r)
	require.Eventually(t, func() bool { return m.Stats().Total == 1 }, time2s, tick)

	m.Shutdown()
	m.Shutdown()

	require.Eventually(t, func() bool { return m.Stats().Total == 0 }, time2s, tick)
	assert.Zero(t, bus.SubscriberCount(events.TopicHealthUpdate))
}
