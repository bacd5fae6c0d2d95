package adapters

import (
	"math/rand/v2"
	"testing"
)

func TestSynthetic_Readings(t *testing.T) {
	s := NewSynthetic(rand.New(rand.NewPCG(1, 2)), nil)

	all := s.Readings("")
	if want := len(DefaultEntities) * len(syntheticMetrics); len(all) != want {
		t.Fatalf("len = %d, want %d", len(all), want)
	}

	bounds := make(map[string]syntheticMetric)
	for _, m := range syntheticMetrics {
		bounds[m.name] = m
	}
	for _, r := range all {
		m := bounds[r.MetricName]
		if r.Value < 0 {
			t.Errorf("%s negative value %v", r.Key(), r.Value)
		}
		if r.Value < m.base-m.variance-1 || r.Value > m.base+m.variance {
			t.Errorf("%s value %v outside [%v, %v]", r.Key(), r.Value, m.base-m.variance, m.base+m.variance)
		}
		if r.Category != m.category {
			t.Errorf("%s category = %q, want %q", r.Key(), r.Category, m.category)
		}
		if r.IsAlert && m.category != "mortality" {
			t.Errorf("%s alert on non-mortality metric", r.Key())
		}
	}
}

func TestSynthetic_ReadingsFiltered(t *testing.T) {
	s := NewSynthetic(nil, nil)
	got := s.Readings("Philippines")
	if len(got) != len(syntheticMetrics) {
		t.Fatalf("len = %d, want %d", len(got), len(syntheticMetrics))
	}
	for _, r := range got {
		if r.EntityKey != "Philippines" {
			t.Errorf("unexpected entity %q", r.EntityKey)
		}
	}
	if got := s.Readings("Atlantis"); len(got) != 0 {
		t.Errorf("unknown entity returned %d readings", len(got))
	}
}

func TestSynthetic_Update(t *testing.T) {
	s := NewSynthetic(rand.New(rand.NewPCG(3, 4)), nil)
	allowed := make(map[string]bool)
	for _, m := range syntheticMetrics[:updateMetricCount] {
		allowed[m.name] = true
	}

	for i := 0; i < 200; i++ {
		u := s.Update()
		if !allowed[u.Indicator] {
			t.Fatalf("indicator %q not in update set", u.Indicator)
		}
		if u.Value < 1000 || u.Value >= 51000 {
			t.Fatalf("value %v out of range", u.Value)
		}
		if u.Change < -500 || u.Change >= 500 {
			t.Fatalf("change %v out of range", u.Change)
		}
		if u.Timestamp <= 0 {
			t.Fatalf("timestamp not set")
		}
	}
}

func TestSynthetic_Outbreaks(t *testing.T) {
	out := NewSynthetic(nil, nil).Outbreaks()
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	if out[1].Disease != "Dengue" || out[1].Severity != "high" || out[1].Cases != 3421 {
		t.Errorf("outbreak[1] = %+v", out[1])
	}
}
