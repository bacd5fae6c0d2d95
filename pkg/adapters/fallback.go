package adapters

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/HatiCode/healthwatch/pkg/storage"
)

// Fallback reads from a Source and substitutes synthetic readings whenever
// the source fails, times out or yields nothing usable. It implements Reader.
type Fallback struct {
	source    Source
	builder   *Builder
	synthetic *Synthetic
	timeout   time.Duration
	logger    zerolog.Logger

	// OnFallback, if set, is called with a short reason each time synthetic
	// data is served.
	OnFallback func(reason string)
}

// NewFallback wraps source. A nil source always serves synthetic data.
func NewFallback(source Source, synthetic *Synthetic, timeout time.Duration, logger *zerolog.Logger) *Fallback {
	if synthetic == nil {
		synthetic = NewSynthetic(nil, nil)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "adapter").Logger()
	}
	return &Fallback{
		source:    source,
		builder:   NewBuilder(),
		synthetic: synthetic,
		timeout:   timeout,
		logger:    l,
	}
}

// Synthetic exposes the generator backing this reader.
func (f *Fallback) Synthetic() *Synthetic {
	return f.synthetic
}

// FetchReadings implements Reader. It never fails.
func (f *Fallback) FetchReadings(ctx context.Context, entity string) []storage.Reading {
	if f.source == nil {
		return f.fallback(entity, "disabled")
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	df, err := f.source.Collect(ctx, entity)
	if err != nil {
		f.logger.Warn().Err(err).Str("source", f.source.Name()).Msg("upstream fetch failed, serving synthetic readings")
		return f.fallback(entity, "upstream")
	}

	readings, err := f.builder.BuildReadings(df)
	if err != nil {
		f.logger.Warn().Err(err).Str("source", f.source.Name()).Msg("upstream data unusable, serving synthetic readings")
		return f.fallback(entity, "malformed")
	}

	if entity != "" {
		filtered := readings[:0]
		for _, r := range readings {
			if r.EntityKey == entity {
				filtered = append(filtered, r)
			}
		}
		readings = filtered
	}
	if len(readings) == 0 {
		return f.fallback(entity, "empty")
	}
	return readings
}

func (f *Fallback) fallback(entity, reason string) []storage.Reading {
	if f.OnFallback != nil {
		f.OnFallback(reason)
	}
	return f.synthetic.Readings(entity)
}
