package adapters

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/HatiCode/healthwatch/pkg/storage"
)

// Builder turns raw DataFrame rows into readings.
type Builder struct {
	// Now supplies the observation time for rows without a timestamp.
	// Defaults to time.Now.
	Now func() time.Time
}

// NewBuilder creates a new reading builder.
func NewBuilder() *Builder {
	return &Builder{Now: time.Now}
}

// BuildReadings converts rows into readings, one per (entity, metric) key.
// When a key appears more than once the row with the latest timestamp wins.
// The result is sorted by key.
//
// Rows without an entity, metric or numeric value are skipped. An error is
// returned when no row survives.
func (b *Builder) BuildReadings(df *DataFrame) ([]storage.Reading, error) {
	if df == nil || len(df.Rows) == 0 {
		return nil, fmt.Errorf("dataframe is empty")
	}
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}

	latest := make(map[string]storage.Reading, len(df.Rows))
	for _, row := range df.Rows {
		entity, _ := row[FieldEntity].(string)
		metric, _ := row[FieldMetric].(string)
		if entity == "" || metric == "" {
			continue
		}
		value, ok := toFloat64(row[FieldValue])
		if !ok {
			continue
		}
		category, _ := row[FieldCategory].(string)

		observed := now().UTC()
		if raw, has := row[FieldTime]; has {
			if ts, err := parseTimestamp(raw); err == nil {
				observed = ts.UTC()
			}
		}

		r := storage.Reading{
			EntityKey:  entity,
			MetricName: metric,
			Value:      value,
			Category:   category,
			ObservedAt: observed,
		}
		if alert, ok := row["isAlert"].(bool); ok {
			r.IsAlert = alert
		}

		if prev, seen := latest[r.Key()]; seen && !r.ObservedAt.After(prev.ObservedAt) {
			continue
		}
		latest[r.Key()] = r
	}

	if len(latest) == 0 {
		return nil, fmt.Errorf("no valid rows with entity, metric and value")
	}

	out := make([]storage.Reading, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

// toFloat64 converts numeric values and numeric strings to float64.
func toFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// parseTimestamp accepts RFC3339 strings, years (as number or string, as GHO
// reports TimeDim) and unix seconds.
func parseTimestamp(v any) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return val, nil
	case string:
		if t, err := time.Parse(time.RFC3339, val); err == nil {
			return t, nil
		}
		if n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64); err == nil {
			return fromNumber(n), nil
		}
		return time.Time{}, fmt.Errorf("invalid timestamp string %q", val)
	default:
		f, ok := toFloat64(v)
		if !ok {
			return time.Time{}, fmt.Errorf("unsupported timestamp type: %T", v)
		}
		return fromNumber(int64(f)), nil
	}
}

// fromNumber reads small numbers as a calendar year and anything else as
// unix seconds.
func fromNumber(n int64) time.Time {
	if n > 0 && n < 10000 {
		return time.Date(int(n), time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Unix(n, 0).UTC()
}
