package aggregation

import (
	"math"

	"github.com/grafana/metricreduce/pkg/batch"
	"github.com/grafana/metricreduce/pkg/format"
)

// Sum is the sum of all values. It always has a value.
type Sum struct {
	common
	sum float64
}

func NewSum(name string, sum float64, f format.Formatter, meta Metadata) *Sum {
	return &Sum{
		common: newCommon(Common{Name: name, Format: f, Metadata: meta}),
		sum:    sum,
	}
}

// SumOf computes the partial sum of one shard's scanned values.
// NaN values are documents without a value.
func SumOf(name string, values []float64, f format.Formatter, meta Metadata) *Sum {
	sum := batch.Sum(values)
	if math.IsNaN(sum) {
		sum = 0
	}
	return NewSum(name, sum, f, meta)
}

func newSumFromState(c Common, s State) (Result, error) {
	return &Sum{common: newCommon(c), sum: s.Raw}, nil
}

func emptySum(c Common) Result {
	return &Sum{common: newCommon(c)}
}

func (s *Sum) Kind() Kind {
	return KindSum
}

func (s *Sum) Value() float64 {
	return s.sum
}

func (s *Sum) IsAbsent() bool {
	return false
}

func (s *Sum) ValueAsString() (string, bool) {
	return valueAsString(s)
}

func (s *Sum) State() State {
	return State{Raw: s.sum}
}

func (s *Sum) NewCombiner() Combiner {
	return &sumCombiner{}
}

type sumCombiner struct {
	sum batch.CompensatedSum
}

func (c *sumCombiner) Add(s State) {
	c.sum.Add(s.Raw)
}

func (c *sumCombiner) Result(cm Common) Result {
	return &Sum{common: newCommon(cm), sum: c.sum.Value()}
}
