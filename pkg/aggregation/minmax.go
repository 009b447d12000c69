package aggregation

import (
	"math"

	"github.com/grafana/metricreduce/pkg/batch"
	"github.com/grafana/metricreduce/pkg/format"
)

// Min is the smallest value seen. Without any value it holds +Inf. An
// infinite minimum is never rendered, so -Inf has no value either.
type Min struct {
	common
	min float64
}

func NewMin(name string, min float64, f format.Formatter, meta Metadata) *Min {
	return &Min{
		common: newCommon(Common{Name: name, Format: f, Metadata: meta}),
		min:    min,
	}
}

func MinOf(name string, values []float64, f format.Formatter, meta Metadata) *Min {
	min := batch.Min(values)
	if math.IsNaN(min) {
		min = absentSentinel
	}
	return NewMin(name, min, f, meta)
}

func newMinFromState(c Common, s State) (Result, error) {
	return &Min{common: newCommon(c), min: s.Raw}, nil
}

func emptyMin(c Common) Result {
	return &Min{common: newCommon(c), min: absentSentinel}
}

func (m *Min) Kind() Kind {
	return KindMin
}

func (m *Min) Value() float64 {
	return m.min
}

func (m *Min) IsAbsent() bool {
	return math.IsInf(m.min, 0)
}

func (m *Min) ValueAsString() (string, bool) {
	return valueAsString(m)
}

func (m *Min) State() State {
	return State{Raw: m.min}
}

func (m *Min) NewCombiner() Combiner {
	return &minCombiner{min: absentSentinel}
}

type minCombiner struct {
	min float64
}

func (c *minCombiner) Add(s State) {
	c.min = math.Min(c.min, s.Raw)
}

func (c *minCombiner) Result(cm Common) Result {
	return &Min{common: newCommon(cm), min: c.min}
}

// Max is the largest value seen. Without any value it holds -Inf. Like
// Min, an infinite maximum has no value.
type Max struct {
	common
	max float64
}

func NewMax(name string, max float64, f format.Formatter, meta Metadata) *Max {
	return &Max{
		common: newCommon(Common{Name: name, Format: f, Metadata: meta}),
		max:    max,
	}
}

func MaxOf(name string, values []float64, f format.Formatter, meta Metadata) *Max {
	max := batch.Max(values)
	if math.IsNaN(max) {
		max = maxSentinel
	}
	return NewMax(name, max, f, meta)
}

func newMaxFromState(c Common, s State) (Result, error) {
	return &Max{common: newCommon(c), max: s.Raw}, nil
}

func emptyMax(c Common) Result {
	return &Max{common: newCommon(c), max: maxSentinel}
}

func (m *Max) Kind() Kind {
	return KindMax
}

func (m *Max) Value() float64 {
	return m.max
}

func (m *Max) IsAbsent() bool {
	return math.IsInf(m.max, 0)
}

func (m *Max) ValueAsString() (string, bool) {
	return valueAsString(m)
}

func (m *Max) State() State {
	return State{Raw: m.max}
}

func (m *Max) NewCombiner() Combiner {
	return &maxCombiner{max: maxSentinel}
}

type maxCombiner struct {
	max float64
}

func (c *maxCombiner) Add(s State) {
	c.max = math.Max(c.max, s.Raw)
}

func (c *maxCombiner) Result(cm Common) Result {
	return &Max{common: newCommon(cm), max: c.max}
}
