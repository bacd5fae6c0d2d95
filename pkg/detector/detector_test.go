package detector

import "testing"

func TestDetect(t *testing.T) {
	d := New()

	steps := []struct {
		name        string
		key         string
		value       float64
		wantDelta   float64
		wantChanged bool
	}{
		{"first observation", "Indonesia-Deaths", 100, 0, true},
		{"same value", "Indonesia-Deaths", 100, 0, false},
		{"increase", "Indonesia-Deaths", 130, 30, true},
		{"decrease", "Indonesia-Deaths", 120, -10, true},
		{"other key first", "Malaysia-Deaths", 5, 0, true},
		{"back to zero", "Malaysia-Deaths", 0, -5, true},
		{"zero again", "Malaysia-Deaths", 0, 0, false},
	}

	for _, s := range steps {
		delta, changed := d.Detect(s.key, s.value)
		if changed != s.wantChanged {
			t.Errorf("%s: changed = %v, want %v", s.name, changed, s.wantChanged)
		}
		if delta != s.wantDelta {
			t.Errorf("%s: delta = %v, want %v", s.name, delta, s.wantDelta)
		}
	}

	if d.Len() != 2 {
		t.Errorf("Len() = %d, want 2", d.Len())
	}
}

func TestDetect_StoresLastEvenWhenUnchanged(t *testing.T) {
	d := New()
	d.Detect("k", 1)
	d.Detect("k", 1)

	last, ok := d.Last("k")
	if !ok || last != 1 {
		t.Fatalf("Last() = %v, %v; want 1, true", last, ok)
	}
}

func TestSeed(t *testing.T) {
	d := New()
	d.Seed(map[string]float64{"Thailand-Deaths": 42})

	if _, changed := d.Detect("Thailand-Deaths", 42); changed {
		t.Error("seeded value reported as change")
	}
	delta, changed := d.Detect("Thailand-Deaths", 50)
	if !changed || delta != 8 {
		t.Errorf("Detect() = %v, %v; want 8, true", delta, changed)
	}
}

func TestLast_Unknown(t *testing.T) {
	if _, ok := New().Last("missing"); ok {
		t.Error("Last() reported unknown key as present")
	}
}
