// Package poller runs the fetch, detect, persist and publish cycle at a fixed
// interval.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/rs/zerolog"

	"github.com/HatiCode/healthwatch/pkg/adapters"
	"github.com/HatiCode/healthwatch/pkg/detector"
	"github.com/HatiCode/healthwatch/pkg/events"
	"github.com/HatiCode/healthwatch/pkg/storage"
)

// DefaultInterval is the poll period when none is configured.
const DefaultInterval = 5 * time.Second

// Publisher delivers events to subscribers. *events.Bus implements it.
type Publisher interface {
	Publish(topic string, payload any) int
}

// UpdateGenerator produces a single update when a cycle has no readings at
// all. *adapters.Synthetic implements it.
type UpdateGenerator interface {
	Update() events.UpdateEvent
}

// Observer is told about every completed cycle.
type Observer interface {
	CycleCompleted(res TickResult, took time.Duration)
}

// TickResult summarizes one cycle.
type TickResult struct {
	Fetched       int
	Emitted       int
	PersistErrors int
	// Fallback is set when no readings were available and a generated
	// update was published instead.
	Fallback bool
}

// Config wires a Poller.
type Config struct {
	Reader    adapters.Reader
	Generator UpdateGenerator
	Store     storage.ReadingStore
	Bus       Publisher
	// Clock defaults to the wall clock.
	Clock clock.Clock
	// Interval defaults to DefaultInterval.
	Interval time.Duration
	// Entity restricts polling to one entity; empty polls the whole roster.
	Entity   string
	Logger   *zerolog.Logger
	Observer Observer
}

// Poller orchestrates the poll loop: fetch → detect → persist → publish.
type Poller struct {
	cfg      Config
	detector *detector.Detector
	logger   *zerolog.Logger

	// mu serializes cycles.
	mu sync.Mutex
}

// New creates a poller. Reader, Generator, Store and Bus are required.
func New(cfg Config) *Poller {
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	logger := cfg.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "poller").Logger()
	return &Poller{
		cfg:      cfg,
		detector: detector.New(),
		logger:   &l,
	}
}

// WarmStart seeds the change detector from the persisted readings so that
// unchanged keys are not announced again after a restart. Failure to read
// the store is logged and leaves the detector empty.
func (p *Poller) WarmStart(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	readings, err := p.cfg.Store.ListReadings(ctx, p.cfg.Entity)
	if err != nil {
		p.logger.Warn().Err(err).Msg("warm start skipped, store unavailable")
		return
	}
	values := make(map[string]float64, len(readings))
	for _, r := range readings {
		values[r.Key()] = r.Value
	}
	p.detector.Seed(values)
	p.logger.Info().Int("keys", len(values)).Msg("change detector seeded from store")
}

// Run executes cycles until ctx is cancelled. The first cycle starts
// immediately; each following one starts Interval after the previous one
// finished, so cycles never overlap.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info().Dur("interval", p.cfg.Interval).Msg("starting poll loop")

	p.Tick(ctx)
	timer := p.cfg.Clock.NewTimer(p.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("poll loop stopped")
			return ctx.Err()
		case <-timer.Chan():
			p.Tick(ctx)
			timer.Reset(p.cfg.Interval)
		}
	}
}

// Tick performs one cycle. Persistence failures are logged and counted but
// never stop the cycle or suppress the event. Once ctx is done the remaining
// readings still update the detector but are neither stored nor published.
// Exported for testing purposes.
func (p *Poller) Tick(ctx context.Context) TickResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := p.cfg.Clock.Now()
	now := start.Unix()

	readings := p.cfg.Reader.FetchReadings(ctx, p.cfg.Entity)
	res := TickResult{Fetched: len(readings)}

	if len(readings) == 0 {
		ev := p.cfg.Generator.Update()
		ev.Timestamp = now
		p.cfg.Bus.Publish(events.TopicHealthUpdate, ev)
		res.Emitted = 1
		res.Fallback = true
		p.finish(res, start)
		return res
	}

	for _, r := range readings {
		delta, changed := p.detector.Detect(r.Key(), r.Value)
		if !changed || ctx.Err() != nil {
			continue
		}

		stored, err := p.cfg.Store.UpsertReading(ctx, r)
		if err != nil {
			res.PersistErrors++
			p.logger.Error().Err(err).Str("key", r.Key()).Msg("failed to persist reading")
			stored = r
		}

		update := storage.UpdateRecord{
			ReadingRef: stored.ID,
			EntityKey:  r.EntityKey,
			MetricName: r.MetricName,
			Value:      r.Value,
			Delta:      delta,
			Timestamp:  now,
		}
		if err := p.cfg.Store.AppendUpdate(ctx, update); err != nil {
			res.PersistErrors++
			p.logger.Error().Err(err).Str("key", r.Key()).Msg("failed to record update")
		}

		p.cfg.Bus.Publish(events.TopicHealthUpdate, events.UpdateEvent{
			Country:   r.EntityKey,
			Indicator: r.MetricName,
			Value:     r.Value,
			Change:    delta,
			Timestamp: now,
		})
		res.Emitted++
	}

	p.finish(res, start)
	return res
}

func (p *Poller) finish(res TickResult, start time.Time) {
	took := p.cfg.Clock.Now().Sub(start)
	p.logger.Debug().
		Int("fetched", res.Fetched).
		Int("emitted", res.Emitted).
		Int("persist_errors", res.PersistErrors).
		Bool("fallback", res.Fallback).
		Dur("took", took).
		Msg("poll cycle complete")
	if p.cfg.Observer != nil {
		p.cfg.Observer.CycleCompleted(res, took)
	}
}
