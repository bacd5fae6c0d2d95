package adapters

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/HatiCode/healthwatch/pkg/events"
	"github.com/HatiCode/healthwatch/pkg/storage"
)

type syntheticMetric struct {
	name     string
	category string
	base     float64
	variance float64
}

// syntheticMetrics lists the metrics generated for every roster entity. The
// first five are also used for single last-resort updates.
var syntheticMetrics = []syntheticMetric{
	{"Total Cases", "disease", 500000, 200000},
	{"Deaths", "mortality", 15000, 5000},
	{"Recovered", "disease", 450000, 150000},
	{"Active Cases", "disease", 35000, 15000},
	{"Vaccination Rate", "vaccination", 75, 20},
	{"Life Expectancy", "health", 72, 5},
	{"Infant Mortality", "mortality", 20, 10},
}

const updateMetricCount = 5

// Synthetic generates plausible readings when no real data is available.
// Every call redraws values. It is safe for concurrent use.
type Synthetic struct {
	mu       sync.Mutex
	rnd      *rand.Rand
	entities []string
	now      func() time.Time
}

// NewSynthetic returns a generator over entities (DefaultEntities when
// empty). A nil rnd uses a randomly seeded source.
func NewSynthetic(rnd *rand.Rand, entities []string) *Synthetic {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if len(entities) == 0 {
		entities = DefaultEntities
	}
	return &Synthetic{rnd: rnd, entities: entities, now: time.Now}
}

// Readings returns one reading per entity and metric, optionally restricted
// to a single entity.
func (s *Synthetic) Readings(entity string) []storage.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	out := make([]storage.Reading, 0, len(s.entities)*len(syntheticMetrics))
	for _, e := range s.entities {
		if entity != "" && e != entity {
			continue
		}
		for _, m := range syntheticMetrics {
			value := math.Floor(m.base + (s.rnd.Float64()-0.5)*m.variance*2)
			out = append(out, storage.Reading{
				EntityKey:  e,
				MetricName: m.name,
				Value:      math.Max(0, value),
				Category:   m.category,
				ObservedAt: now,
				IsAlert:    m.category == "mortality" && value > m.base+m.variance,
			})
		}
	}
	return out
}

// Update returns a single randomly generated update event.
func (s *Synthetic) Update() events.UpdateEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	return events.UpdateEvent{
		Country:   s.entities[s.rnd.IntN(len(s.entities))],
		Indicator: syntheticMetrics[s.rnd.IntN(updateMetricCount)].name,
		Value:     math.Floor(s.rnd.Float64()*50000) + 1000,
		Change:    math.Floor(s.rnd.Float64()*1000) - 500,
		Timestamp: s.now().Unix(),
	}
}

// Outbreaks returns the current outbreak roster.
func (s *Synthetic) Outbreaks() []storage.Outbreak {
	reported := s.now().UTC().Truncate(24 * time.Hour)
	return []storage.Outbreak{
		{Disease: "Influenza", Country: "Indonesia", Severity: "medium", Cases: 1523, Status: "active", ReportedAt: reported},
		{Disease: "Dengue", Country: "Malaysia", Severity: "high", Cases: 3421, Status: "active", ReportedAt: reported},
		{Disease: "Cholera", Country: "Philippines", Severity: "high", Cases: 234, Status: "active", ReportedAt: reported},
	}
}
