package adapters

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubSource struct {
	df    *DataFrame
	err   error
	delay time.Duration
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Collect(ctx context.Context, entity string) (*DataFrame, error) {
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return &DataFrame{}, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	return s.df, s.err
}

func TestFallback_UsesSourceData(t *testing.T) {
	src := &stubSource{df: &DataFrame{Rows: []Row{
		{FieldEntity: "Indonesia", FieldMetric: "MORT_100", FieldValue: 3.5},
		{FieldEntity: "Malaysia", FieldMetric: "MORT_100", FieldValue: 4.5},
	}}}
	var reasons []string
	f := NewFallback(src, nil, time.Second, nil)
	f.OnFallback = func(reason string) { reasons = append(reasons, reason) }

	got := f.FetchReadings(context.Background(), "")
	if len(got) != 2 || got[0].Value != 3.5 {
		t.Fatalf("readings = %+v", got)
	}

	got = f.FetchReadings(context.Background(), "Malaysia")
	if len(got) != 1 || got[0].EntityKey != "Malaysia" {
		t.Fatalf("filtered readings = %+v", got)
	}
	if len(reasons) != 0 {
		t.Errorf("unexpected fallbacks: %v", reasons)
	}
}

func TestFallback_DegradesToSynthetic(t *testing.T) {
	tests := []struct {
		name   string
		src    Source
		reason string
	}{
		{"nil source", nil, "disabled"},
		{"upstream error", &stubSource{df: &DataFrame{}, err: errors.New("boom")}, "upstream"},
		{"timeout", &stubSource{df: &DataFrame{}, delay: time.Second}, "upstream"},
		{"malformed", &stubSource{df: &DataFrame{Rows: []Row{{"junk": true}}}}, "malformed"},
		{"entity missing", &stubSource{df: &DataFrame{Rows: []Row{
			{FieldEntity: "Germany", FieldMetric: "X", FieldValue: 1.0},
		}}}, "empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reason string
			f := NewFallback(tt.src, nil, 50*time.Millisecond, nil)
			f.OnFallback = func(r string) { reason = r }

			got := f.FetchReadings(context.Background(), "Vietnam")
			if len(got) != len(syntheticMetrics) {
				t.Fatalf("len = %d, want %d synthetic readings", len(got), len(syntheticMetrics))
			}
			for _, r := range got {
				if r.EntityKey != "Vietnam" {
					t.Errorf("synthetic reading for %q, want Vietnam", r.EntityKey)
				}
			}
			if reason != tt.reason {
				t.Errorf("reason = %q, want %q", reason, tt.reason)
			}
		})
	}
}
