// Package aggregation defines the results of metric aggregations as they are
// produced per shard, and the one reduction that merges them.
//
// Every metric kind (sum, avg, weighted_avg, ...) is a Result variant.
// Variants only supply their combine rule through a Combiner; name, format
// and metadata handling is shared and lives in Reduce.
//
// A result whose normalizer is zero (an average over no documents, a
// minimum of nothing) has no value. Internally this is represented by an
// infinity, which must never be compared against directly: use IsAbsent.
package aggregation

import (
	"math"

	"github.com/grafana/metricreduce/pkg/format"
)

var (
	absentSentinel = math.Inf(1)
	maxSentinel    = math.Inf(-1)
)

// Result is the outcome of one metric aggregation, either computed by a
// single shard or merged from several.
// Results are immutable once constructed.
type Result interface {
	Name() string
	Kind() Kind
	Format() format.Formatter
	Metadata() Metadata

	// Value is the final numeric value. It is a sentinel when IsAbsent.
	Value() float64
	IsAbsent() bool
	// ValueAsString is the formatted value, if the result has a value and
	// its formatter produces text for it.
	ValueAsString() (string, bool)

	// State exposes everything needed to rebuild the result or merge it
	// with others.
	State() State
	// NewCombiner returns a fresh combiner for results of this kind.
	NewCombiner() Combiner
}

// Combiner holds the accumulation state of a single reduction.
// Add is called once per input, in input order, then Result once.
type Combiner interface {
	Add(s State)
	Result(c Common) Result
}

// Common holds the attributes every kind has.
type Common struct {
	Name     string
	Format   format.Formatter
	Metadata Metadata
}

// Component is a named piece of kind specific state, such as the count of
// an average.
type Component struct {
	Key string
	Val float64
}

// State is the raw value of a result plus its kind specific components.
// Kinds that summarize values in a sketch rather than in a few numbers
// carry the serialized sketch, and the keys it is evaluated at.
type State struct {
	Raw    float64
	Extra  []Component
	Keys   []float64
	Sketch []byte
}

// Get returns the component named key.
func (s State) Get(key string) (float64, bool) {
	for _, c := range s.Extra {
		if c.Key == key {
			return c.Val, true
		}
	}
	return 0, false
}

type common struct {
	name   string
	format format.Formatter
	meta   Metadata
}

func newCommon(c Common) common {
	return common{
		name:   c.Name,
		format: format.OrRaw(c.Format),
		meta:   c.Metadata,
	}
}

func (c common) Name() string {
	return c.name
}

func (c common) Format() format.Formatter {
	return c.format
}

// Metadata returns the result's metadata. Callers must not modify it.
func (c common) Metadata() Metadata {
	return c.meta
}

func valueAsString(r Result) (string, bool) {
	if r.IsAbsent() {
		return "", false
	}
	return format.Format(r.Format(), r.Value())
}
