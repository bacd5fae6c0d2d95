package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/HatiCode/healthwatch/cmd/watcher/metrics"
	"github.com/HatiCode/healthwatch/pkg/client"
	"github.com/HatiCode/healthwatch/pkg/events"
	"github.com/HatiCode/healthwatch/pkg/stream"
)

// streamPaths maps topics to their event stream endpoints.
var streamPaths = map[string]string{
	events.TopicHealthUpdate: "/api/who/stream",
	events.TopicStockUpdate:  "/api/events",
}

// Watcher follows the healthwatch event streams and turns the events into
// log lines and metrics.
type Watcher struct {
	metrics *metrics.Metrics
	logger  *zerolog.Logger
	now     func() time.Time

	connected atomic.Bool
}

func NewWatcher(m *metrics.Metrics, logger *zerolog.Logger) *Watcher {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Watcher{metrics: m, logger: logger, now: time.Now}
}

// Ready reports an error until a stream greeting has been received, and again
// after a stream drops until it is greeted anew.
func (w *Watcher) Ready(context.Context) error {
	if !w.connected.Load() {
		return errors.New("no stream connected yet")
	}
	return nil
}

// Handle processes one stream message.
func (w *Watcher) Handle(msg client.Message) {
	switch msg.Type {
	case events.TypeConnected:
		w.connected.Store(true)
		w.logger.Debug().Msg("stream greeting received")
		return
	case events.TopicHealthUpdate:
		var ev events.UpdateEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			w.decodeFailed(msg, err)
			return
		}
		w.metrics.SetIndicator(ev.Country, ev.Indicator, ev.Value)
		w.logger.Info().
			Str("country", ev.Country).
			Str("indicator", ev.Indicator).
			Float64("value", ev.Value).
			Float64("change", ev.Change).
			Msg("health update")
	case events.TopicStockUpdate:
		var ev events.StockEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			w.decodeFailed(msg, err)
			return
		}
		w.metrics.SetStock(ev.ItemID, ev.Stock)
		w.logger.Info().
			Str("medicine", ev.ItemID).
			Str("event", ev.Event).
			Int("quantity", ev.Quantity).
			Int("stock", ev.Stock).
			Msg("stock update")
	default:
		w.logger.Debug().Str("type", msg.Type).Msg("ignoring unknown event type")
		return
	}
	w.metrics.RecordEvent(msg.Type, w.now())
}

func (w *Watcher) disconnected(err error) {
	if w.connected.Swap(false) {
		w.logger.Warn().Err(err).Msg("stream lost, not ready")
	}
}

func (w *Watcher) decodeFailed(msg client.Message, err error) {
	w.metrics.RecordDecodeError()
	w.logger.Warn().Err(err).Str("type", msg.Type).Msg("failed to decode event")
}

// FollowHTTP follows one event stream per topic until ctx is cancelled.
func (w *Watcher) FollowHTTP(ctx context.Context, serverURL string, topics []string, opts client.StreamOptions) error {
	opts.OnDisconnect = w.disconnected
	g, ctx := errgroup.WithContext(ctx)
	for _, topic := range topics {
		path, ok := streamPaths[topic]
		if !ok {
			return fmt.Errorf("no event stream for topic %q", topic)
		}
		sc := client.NewStreamClient(serverURL+path, opts, w.logger)
		g.Go(func() error {
			return sc.Stream(ctx, w.Handle)
		})
	}
	return g.Wait()
}

// FollowGRPC follows the Watch stream at addr until ctx is cancelled,
// reconnecting with exponential backoff.
func (w *Watcher) FollowGRPC(ctx context.Context, addr string, topics []string, maxInterval time.Duration) error {
	cc, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to create gRPC client for %s: %w", addr, err)
	}
	defer cc.Close()

	b := backoff.NewExponentialBackOff()
	b.MaxInterval = maxInterval
	b.MaxElapsedTime = 0

	for {
		received, err := w.watchOnce(ctx, cc, topics)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.disconnected(err)
		if received {
			b.Reset()
		}
		wait := b.NextBackOff()
		w.logger.Warn().Err(err).Dur("retry_in", wait).Str("addr", addr).Msg("watch stream disconnected")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (w *Watcher) watchOnce(ctx context.Context, cc grpc.ClientConnInterface, topics []string) (received bool, err error) {
	ws, err := stream.Watch(ctx, cc, topics...)
	if err != nil {
		return false, err
	}
	for {
		env, err := ws.Recv()
		if err != nil {
			return received, err
		}
		received = true

		msg := client.Message{Type: env.Type}
		if env.Data != nil {
			if msg.Data, err = json.Marshal(env.Data); err != nil {
				w.decodeFailed(msg, err)
				continue
			}
		}
		w.Handle(msg)
	}
}
