package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/HatiCode/healthwatch/pkg/adapters"
	"github.com/HatiCode/healthwatch/pkg/events"
	"github.com/HatiCode/healthwatch/pkg/storage"
)

// scriptedReader returns the next batch on each call and repeats the last.
type scriptedReader struct {
	mu      sync.Mutex
	batches [][]storage.Reading
	calls   int
	block   chan struct{}
}

func (r *scriptedReader) FetchReadings(ctx context.Context, entity string) []storage.Reading {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.calls
	if i >= len(r.batches) {
		i = len(r.batches) - 1
	}
	r.calls++
	if i < 0 {
		return nil
	}
	return r.batches[i]
}

func (r *scriptedReader) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type fixedGenerator struct{}

func (fixedGenerator) Update() events.UpdateEvent {
	return events.UpdateEvent{Country: "Singapore", Indicator: "Deaths", Value: 1234, Change: 10, Timestamp: 1}
}

// collector records published health updates.
type collector struct {
	mu      sync.Mutex
	updates []events.UpdateEvent
}

func (c *collector) handle(payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates = append(c.updates, payload.(events.UpdateEvent))
}

func (c *collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.updates)
}

func (c *collector) All() []events.UpdateEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]events.UpdateEvent(nil), c.updates...)
}

func reading(entity, metric string, v float64) storage.Reading {
	return storage.Reading{EntityKey: entity, MetricName: metric, Value: v}
}

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestPoller(reader adapters.Reader, store storage.ReadingStore) (*Poller, *collector, *testclock.Clock) {
	bus := events.NewBus(nil)
	c := &collector{}
	bus.Subscribe(events.TopicHealthUpdate, c.handle)
	clk := testclock.NewClock(t0)
	p := New(Config{
		Reader:    reader,
		Generator: fixedGenerator{},
		Store:     store,
		Bus:       bus,
		Clock:     clk,
		Interval:  5 * time.Second,
	})
	return p, c, clk
}

func TestTick_FirstCycleAnnouncesEverything(t *testing.T) {
	reader := &scriptedReader{batches: [][]storage.Reading{{
		reading("Indonesia", "Deaths", 100),
		reading("Malaysia", "Deaths", 50),
	}}}
	store := storage.NewMemoryStore()
	p, c, _ := newTestPoller(reader, store)

	res := p.Tick(context.Background())
	assert.Equal(t, TickResult{Fetched: 2, Emitted: 2}, res)

	got := c.All()
	require.Len(t, got, 2)
	assert.Equal(t, events.UpdateEvent{Country: "Indonesia", Indicator: "Deaths", Value: 100, Change: 0, Timestamp: t0.Unix()}, got[0])

	readings, err := store.ListReadings(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, readings, 2)
	updates, err := store.ListUpdates(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, updates, 2)
	assert.Equal(t, readings[0].ID, updates[1].ReadingRef)
}

func TestTick_OnlyChangedKeysEmit(t *testing.T) {
	reader := &scriptedReader{batches: [][]storage.Reading{
		{reading("Indonesia", "Deaths", 100), reading("Malaysia", "Deaths", 50)},
		{reading("Indonesia", "Deaths", 100), reading("Malaysia", "Deaths", 65)},
		{reading("Indonesia", "Deaths", 100), reading("Malaysia", "Deaths", 65)},
	}}
	store := storage.NewMemoryStore()
	p, c, _ := newTestPoller(reader, store)
	ctx := context.Background()

	p.Tick(ctx)
	res := p.Tick(ctx)
	assert.Equal(t, 1, res.Emitted)
	res = p.Tick(ctx)
	assert.Equal(t, 0, res.Emitted)

	got := c.All()
	require.Len(t, got, 3)
	assert.Equal(t, "Malaysia", got[2].Country)
	assert.Equal(t, 15.0, got[2].Change)

	updates, err := store.ListUpdates(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, updates, 3, "one update record per emitted event")

	readings, err := store.ListReadings(ctx, "Malaysia")
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, 65.0, readings[0].Value)
}

func TestTick_CancelledCycleStillRecordsEveryKey(t *testing.T) {
	reader := &scriptedReader{batches: [][]storage.Reading{{
		reading("Indonesia", "Deaths", 100),
		reading("Malaysia", "Deaths", 50),
		reading("Vietnam", "Recovered", 7),
	}}}
	store := storage.NewMemoryStore()
	p, c, _ := newTestPoller(reader, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := p.Tick(ctx)

	assert.Equal(t, 0, res.Emitted)
	assert.Zero(t, c.Len())
	assert.Equal(t, 3, p.detector.Len())
	last, ok := p.detector.Last(reading("Vietnam", "Recovered", 0).Key())
	require.True(t, ok)
	assert.Equal(t, 7.0, last)
}

func TestTick_PersistenceFailureStillPublishes(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := storage.NewMockReadingStore(ctrl)
	store.EXPECT().UpsertReading(gomock.Any(), gomock.Any()).Return(storage.Reading{}, errors.New("connection refused")).Times(2)
	store.EXPECT().AppendUpdate(gomock.Any(), gomock.Any()).Return(errors.New("connection refused")).Times(2)

	reader := &scriptedReader{batches: [][]storage.Reading{{
		reading("Thailand", "Deaths", 7),
		reading("Vietnam", "Deaths", 9),
	}}}
	p, c, _ := newTestPoller(reader, store)

	res := p.Tick(context.Background())
	assert.Equal(t, 2, res.Emitted)
	assert.Equal(t, 4, res.PersistErrors)
	assert.Equal(t, 2, c.Len())
}

func TestTick_EmptyFetchPublishesGeneratedUpdate(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := storage.NewMockReadingStore(ctrl)

	p, c, _ := newTestPoller(&scriptedReader{batches: [][]storage.Reading{{}}}, store)

	res := p.Tick(context.Background())
	assert.True(t, res.Fallback)
	assert.Equal(t, 1, res.Emitted)

	got := c.All()
	require.Len(t, got, 1)
	assert.Equal(t, "Singapore", got[0].Country)
	assert.Equal(t, t0.Unix(), got[0].Timestamp, "timestamp is the cycle time")
}

func TestTick_NoSubscribers(t *testing.T) {
	reader := &scriptedReader{batches: [][]storage.Reading{{reading("Indonesia", "Deaths", 1)}}}
	p := New(Config{
		Reader:    reader,
		Generator: fixedGenerator{},
		Store:     storage.NewMemoryStore(),
		Bus:       events.NewBus(nil),
		Clock:     testclock.NewClock(t0),
	})
	assert.Equal(t, 1, p.Tick(context.Background()).Emitted)
}

func TestWarmStart(t *testing.T) {
	store := storage.NewMemoryStore()
	_, err := store.UpsertReading(context.Background(), reading("Indonesia", "Deaths", 100))
	require.NoError(t, err)

	reader := &scriptedReader{batches: [][]storage.Reading{{
		reading("Indonesia", "Deaths", 100),
		reading("Malaysia", "Deaths", 3),
	}}}
	p, c, _ := newTestPoller(reader, store)
	p.WarmStart(context.Background())

	res := p.Tick(context.Background())
	assert.Equal(t, 1, res.Emitted)
	assert.Equal(t, "Malaysia", c.All()[0].Country)
}

func TestWarmStart_StoreDown(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := storage.NewMockReadingStore(ctrl)
	store.EXPECT().ListReadings(gomock.Any(), "").Return(nil, errors.New("down"))
	store.EXPECT().UpsertReading(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, r storage.Reading) (storage.Reading, error) { return r, nil })
	store.EXPECT().AppendUpdate(gomock.Any(), gomock.Any()).Return(nil)

	p, c, _ := newTestPoller(&scriptedReader{batches: [][]storage.Reading{{reading("Indonesia", "Deaths", 1)}}}, store)
	p.WarmStart(context.Background())
	p.Tick(context.Background())
	assert.Equal(t, 1, c.Len())
}

func TestRun_FixedIntervalAndCancel(t *testing.T) {
	reader := &scriptedReader{batches: [][]storage.Reading{
		{reading("Indonesia", "Deaths", 1)},
		{reading("Indonesia", "Deaths", 2)},
		{reading("Indonesia", "Deaths", 3)},
	}}
	p, c, clk := newTestPoller(reader, storage.NewMemoryStore())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return c.Len() == 1 }, time.Second, time.Millisecond, "first cycle runs immediately")

	require.NoError(t, clk.WaitAdvance(5*time.Second, time.Second, 1))
	require.Eventually(t, func() bool { return c.Len() == 2 }, time.Second, time.Millisecond)

	require.NoError(t, clk.WaitAdvance(5*time.Second, time.Second, 1))
	require.Eventually(t, func() bool { return c.Len() == 3 }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	assert.Equal(t, 3, reader.Calls())
}

func TestRun_CyclesDoNotOverlap(t *testing.T) {
	reader := &scriptedReader{
		batches: [][]storage.Reading{{reading("Indonesia", "Deaths", 1)}},
		block:   make(chan struct{}),
	}
	p, _, clk := newTestPoller(reader, storage.NewMemoryStore())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Run(ctx) }()

	// The first cycle is stuck in fetch; time passing must not start another.
	clk.Advance(time.Minute)
	reader.block <- struct{}{}
	require.Eventually(t, func() bool { return reader.Calls() == 1 }, time.Second, time.Millisecond)

	// Next cycle is armed only now, one interval after the first finished.
	require.NoError(t, clk.WaitAdvance(5*time.Second, time.Second, 1))
	reader.block <- struct{}{}
	require.Eventually(t, func() bool { return reader.Calls() == 2 }, time.Second, time.Millisecond)

	cancel()
	close(reader.block)
}
