package aggregation

import (
	"fmt"
	"math"

	"github.com/grafana/metricreduce/pkg/batch"
	"github.com/grafana/metricreduce/pkg/format"
)

const countKey = "count"

// Avg is the arithmetic mean. The sum and the count are kept separately
// and only divided when the value is read, so partial averages can be
// merged without loss.
type Avg struct {
	common
	sum   float64
	count uint64
}

func NewAvg(name string, sum float64, count uint64, f format.Formatter, meta Metadata) *Avg {
	return &Avg{
		common: newCommon(Common{Name: name, Format: f, Metadata: meta}),
		sum:    sum,
		count:  count,
	}
}

// AvgOf computes the partial average of one shard's scanned values.
func AvgOf(name string, values []float64, f format.Formatter, meta Metadata) *Avg {
	cnt := batch.Cnt(values)
	if math.IsNaN(cnt) {
		return NewAvg(name, 0, 0, f, meta)
	}
	return NewAvg(name, batch.Sum(values), uint64(cnt), f, meta)
}

func newAvgFromState(c Common, s State) (Result, error) {
	cnt, _ := s.Get(countKey)
	count, err := toCount(cnt)
	if err != nil {
		return nil, err
	}
	return &Avg{common: newCommon(c), sum: s.Raw, count: count}, nil
}

func emptyAvg(c Common) Result {
	return &Avg{common: newCommon(c)}
}

func (a *Avg) Kind() Kind {
	return KindAvg
}

func (a *Avg) Sum() float64 {
	return a.sum
}

func (a *Avg) Count() uint64 {
	return a.count
}

func (a *Avg) Value() float64 {
	if a.count == 0 {
		return absentSentinel
	}
	return a.sum / float64(a.count)
}

func (a *Avg) IsAbsent() bool {
	return a.count == 0
}

func (a *Avg) ValueAsString() (string, bool) {
	return valueAsString(a)
}

func (a *Avg) State() State {
	return State{
		Raw:   a.sum,
		Extra: []Component{{Key: countKey, Val: float64(a.count)}},
	}
}

func (a *Avg) NewCombiner() Combiner {
	return &avgCombiner{}
}

type avgCombiner struct {
	sum   batch.CompensatedSum
	count uint64
}

func (c *avgCombiner) Add(s State) {
	c.sum.Add(s.Raw)
	cnt, _ := s.Get(countKey)
	count, _ := toCount(cnt)
	c.count += count
}

func (c *avgCombiner) Result(cm Common) Result {
	return &Avg{common: newCommon(cm), sum: c.sum.Value(), count: c.count}
}

// toCount validates a count that travelled as a float64. Counts above 2^53
// lose precision on the way, but every uint64 survives within Tolerance.
func toCount(v float64) (uint64, error) {
	if math.IsNaN(v) || v < 0 || v > 1<<64 || v != math.Trunc(v) {
		return 0, fmt.Errorf("invalid count %v", v)
	}
	if v == 1<<64 {
		// counts close to the maximum round up to 2^64
		return math.MaxUint64, nil
	}
	return uint64(v), nil
}
