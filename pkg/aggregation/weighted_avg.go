package aggregation

import (
	"github.com/grafana/metricreduce/pkg/batch"
	"github.com/grafana/metricreduce/pkg/format"
)

const weightKey = "weight"

// WeightedAvg is sum(value*weight) / sum(weight). Numerator and denominator
// are accumulated independently and divided only when the value is read.
// A zero total weight means there is no value.
type WeightedAvg struct {
	common
	sum    float64
	weight float64
}

func NewWeightedAvg(name string, sum, weight float64, f format.Formatter, meta Metadata) *WeightedAvg {
	return &WeightedAvg{
		common: newCommon(Common{Name: name, Format: f, Metadata: meta}),
		sum:    sum,
		weight: weight,
	}
}

// WeightedAvgOf computes the partial weighted average of one shard's
// scanned (value, weight) pairs.
func WeightedAvgOf(name string, values, weights []float64, f format.Formatter, meta Metadata) *WeightedAvg {
	sum, weight := batch.WeightedSums(values, weights)
	return NewWeightedAvg(name, sum, weight, f, meta)
}

func newWeightedAvgFromState(c Common, s State) (Result, error) {
	weight, _ := s.Get(weightKey)
	return &WeightedAvg{common: newCommon(c), sum: s.Raw, weight: weight}, nil
}

func emptyWeightedAvg(c Common) Result {
	return &WeightedAvg{common: newCommon(c)}
}

func (w *WeightedAvg) Kind() Kind {
	return KindWeightedAvg
}

func (w *WeightedAvg) Sum() float64 {
	return w.sum
}

func (w *WeightedAvg) Weight() float64 {
	return w.weight
}

func (w *WeightedAvg) Value() float64 {
	if w.weight == 0 {
		return absentSentinel
	}
	return w.sum / w.weight
}

func (w *WeightedAvg) IsAbsent() bool {
	return w.weight == 0
}

func (w *WeightedAvg) ValueAsString() (string, bool) {
	return valueAsString(w)
}

func (w *WeightedAvg) State() State {
	return State{
		Raw:   w.sum,
		Extra: []Component{{Key: weightKey, Val: w.weight}},
	}
}

func (w *WeightedAvg) NewCombiner() Combiner {
	return &weightedAvgCombiner{}
}

type weightedAvgCombiner struct {
	sum    batch.CompensatedSum
	weight batch.CompensatedSum
}

func (c *weightedAvgCombiner) Add(s State) {
	c.sum.Add(s.Raw)
	weight, _ := s.Get(weightKey)
	c.weight.Add(weight)
}

func (c *weightedAvgCombiner) Result(cm Common) Result {
	return &WeightedAvg{common: newCommon(cm), sum: c.sum.Value(), weight: c.weight.Value()}
}
