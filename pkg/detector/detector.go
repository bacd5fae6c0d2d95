// Package detector remembers the last value seen for each reading key and
// reports whether a new observation differs from it.
//
// A Detector is not safe for concurrent use. The poll loop owns it.
package detector

// Detector tracks the last observed value per key.
//
// The first observation of a key always counts as a change with a delta of
// zero, so every key is announced once after a restart.
type Detector struct {
	last map[string]float64
}

// New creates an empty detector.
func New() *Detector {
	return &Detector{last: make(map[string]float64)}
}

// Detect compares current against the last value for key and records current
// as the new last value. Equal values are not a change.
func (d *Detector) Detect(key string, current float64) (delta float64, changed bool) {
	prev, seen := d.last[key]
	d.last[key] = current
	if !seen {
		return 0, true
	}
	if prev == current {
		return 0, false
	}
	return current - prev, true
}

// Seed preloads last values, for example from the persisted readings, so that
// a restart does not re-announce unchanged keys.
func (d *Detector) Seed(values map[string]float64) {
	for k, v := range values {
		d.last[k] = v
	}
}

// Last returns the last value recorded for key.
func (d *Detector) Last(key string) (float64, bool) {
	v, ok := d.last[key]
	return v, ok
}

// Len returns the number of tracked keys.
func (d *Detector) Len() int {
	return len(d.last)
}
