package aggregation

import (
	"bytes"
	"math"

	"github.com/grafana/metricreduce/pkg/format"
)

// Tolerance is the relative difference under which two values are
// considered equal by Equal.
const Tolerance = 1e-9

// Equal reports whether a and b describe the same result: same name, kind,
// format and metadata, and state values within Tolerance of each other.
// NaN equals NaN. Identity and Go types are irrelevant.
func Equal(a, b Result) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Name() != b.Name() || a.Kind() != b.Kind() {
		return false
	}
	if !format.Equal(a.Format(), b.Format()) {
		return false
	}
	if !MetadataEqual(a.Metadata(), b.Metadata()) {
		return false
	}
	return StateEqual(a.State(), b.State(), Tolerance)
}

// StateEqual compares two states. Components are matched by key; a missing
// component counts as zero. Sketches must be identical.
func StateEqual(a, b State, tolerance float64) bool {
	if !FloatEqual(a.Raw, b.Raw, tolerance) {
		return false
	}
	if !keysEqual(a.Keys, b.Keys) || !bytes.Equal(a.Sketch, b.Sketch) {
		return false
	}
	for _, c := range a.Extra {
		v, _ := b.Get(c.Key)
		if !FloatEqual(c.Val, v, tolerance) {
			return false
		}
	}
	for _, c := range b.Extra {
		v, _ := a.Get(c.Key)
		if !FloatEqual(c.Val, v, tolerance) {
			return false
		}
	}
	return true
}

// FloatEqual reports whether a and b are within a relative tolerance of
// each other. NaNs are equal to each other, infinities only to themselves.
func FloatEqual(a, b, tolerance float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	if a == b {
		return true
	}
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return false
	}
	diff := math.Abs(a - b)
	scale := math.Max(math.Abs(a), math.Abs(b))
	return diff <= tolerance*scale
}

func keysEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
