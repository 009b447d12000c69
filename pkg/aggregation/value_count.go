package aggregation

import (
	"math"

	"github.com/grafana/metricreduce/pkg/batch"
	"github.com/grafana/metricreduce/pkg/format"
)

// ValueCount is the number of values seen.
type ValueCount struct {
	common
	count uint64
}

func NewValueCount(name string, count uint64, f format.Formatter, meta Metadata) *ValueCount {
	return &ValueCount{
		common: newCommon(Common{Name: name, Format: f, Metadata: meta}),
		count:  count,
	}
}

func ValueCountOf(name string, values []float64, f format.Formatter, meta Metadata) *ValueCount {
	cnt := batch.Cnt(values)
	if math.IsNaN(cnt) {
		cnt = 0
	}
	return NewValueCount(name, uint64(cnt), f, meta)
}

func newValueCountFromState(c Common, s State) (Result, error) {
	count, err := toCount(s.Raw)
	if err != nil {
		return nil, err
	}
	return &ValueCount{common: newCommon(c), count: count}, nil
}

func emptyValueCount(c Common) Result {
	return &ValueCount{common: newCommon(c)}
}

func (v *ValueCount) Kind() Kind {
	return KindValueCount
}

func (v *ValueCount) Count() uint64 {
	return v.count
}

func (v *ValueCount) Value() float64 {
	return float64(v.count)
}

func (v *ValueCount) IsAbsent() bool {
	return false
}

func (v *ValueCount) ValueAsString() (string, bool) {
	return valueAsString(v)
}

func (v *ValueCount) State() State {
	return State{Raw: float64(v.count)}
}

func (v *ValueCount) NewCombiner() Combiner {
	return &valueCountCombiner{}
}

type valueCountCombiner struct {
	count uint64
}

func (c *valueCountCombiner) Add(s State) {
	count, _ := toCount(s.Raw)
	c.count += count
}

func (c *valueCountCombiner) Result(cm Common) Result {
	return &ValueCount{common: newCommon(cm), count: c.count}
}
