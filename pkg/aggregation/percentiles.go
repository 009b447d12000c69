package aggregation

import (
	"fmt"
	"math"

	"github.com/grafana/metricreduce/pkg/format"
	"github.com/spenczar/tdigest"
)

// DefaultPercents are the percents a percentiles result is evaluated at
// unless others are given.
var DefaultPercents = []float64{1, 5, 25, 50, 75, 95, 99}

// Percentiles estimates the values at a set of percents from a t-digest of
// the scanned values. Reduction merges the digests of all partials, so the
// estimate covers every shard. Without any value there is no value at any
// percent.
//
// Merging digests is approximate and not order independent: reducing the
// same partials in a different order gives slightly different estimates.
type Percentiles struct {
	common
	percents []float64
	count    uint64
	digest   *tdigest.TDigest
	sketch   []byte
}

// PercentilesOf computes the partial percentiles of one shard's scanned
// values. NaN and infinite values are skipped. nil percents means
// DefaultPercents.
func PercentilesOf(name string, percents, values []float64, f format.Formatter, meta Metadata) (*Percentiles, error) {
	ps, err := checkPercents(percents)
	if err != nil {
		return nil, err
	}
	d := tdigest.New()
	var count uint64
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		d.Add(v, 1)
		count++
	}
	return newPercentiles(Common{Name: name, Format: f, Metadata: meta}, ps, count, d), nil
}

func newPercentiles(c Common, percents []float64, count uint64, d *tdigest.TDigest) *Percentiles {
	sketch, err := d.MarshalBinary()
	if err != nil {
		// the digest is written to a bytes.Buffer
		panic(fmt.Sprintf("aggregation: marshaling digest: %s", err))
	}
	return &Percentiles{
		common:   newCommon(c),
		percents: percents,
		count:    count,
		digest:   d,
		sketch:   sketch,
	}
}

// checkPercents returns a copy of percents, or of DefaultPercents if there
// are none.
func checkPercents(percents []float64) ([]float64, error) {
	if len(percents) == 0 {
		return append([]float64(nil), DefaultPercents...), nil
	}
	seen := make(map[float64]bool, len(percents))
	for _, p := range percents {
		if math.IsNaN(p) || p < 0 || p > 100 {
			return nil, fmt.Errorf("invalid percent %v", p)
		}
		if seen[p] {
			return nil, fmt.Errorf("duplicate percent %v", p)
		}
		seen[p] = true
	}
	return append([]float64(nil), percents...), nil
}

func digestOf(sketch []byte) (*tdigest.TDigest, error) {
	d := tdigest.New()
	if len(sketch) == 0 {
		return d, nil
	}
	if err := d.UnmarshalBinary(sketch); err != nil {
		return nil, fmt.Errorf("invalid digest: %s", err)
	}
	return d, nil
}

func newPercentilesFromState(c Common, s State) (Result, error) {
	ps, err := checkPercents(s.Keys)
	if err != nil {
		return nil, err
	}
	count, err := toCount(s.Raw)
	if err != nil {
		return nil, err
	}
	d, err := digestOf(s.Sketch)
	if err != nil {
		return nil, err
	}
	return newPercentiles(c, ps, count, d), nil
}

func emptyPercentiles(c Common) Result {
	return newPercentiles(c, append([]float64(nil), DefaultPercents...), 0, tdigest.New())
}

func (p *Percentiles) Kind() Kind {
	return KindPercentiles
}

// Percents returns the percents the result is evaluated at. Callers must
// not modify it.
func (p *Percentiles) Percents() []float64 {
	return p.percents
}

// Count is the number of values the digest was built from.
func (p *Percentiles) Count() uint64 {
	return p.count
}

// Percentile estimates the value at percent, between 0 and 100.
func (p *Percentiles) Percentile(percent float64) float64 {
	if p.count == 0 {
		return absentSentinel
	}
	return p.digest.Quantile(percent / 100)
}

func (p *Percentiles) PercentileAsString(percent float64) (string, bool) {
	if p.IsAbsent() {
		return "", false
	}
	return format.Format(p.Format(), p.Percentile(percent))
}

// Value is the median.
func (p *Percentiles) Value() float64 {
	return p.Percentile(50)
}

func (p *Percentiles) IsAbsent() bool {
	return p.count == 0
}

func (p *Percentiles) ValueAsString() (string, bool) {
	return valueAsString(p)
}

func (p *Percentiles) State() State {
	return State{
		Raw:    float64(p.count),
		Keys:   append([]float64(nil), p.percents...),
		Sketch: append([]byte(nil), p.sketch...),
	}
}

func (p *Percentiles) NewCombiner() Combiner {
	return &percentilesCombiner{digest: tdigest.New()}
}

type percentilesCombiner struct {
	percents []float64
	count    uint64
	digest   *tdigest.TDigest
}

func (c *percentilesCombiner) Add(s State) {
	if c.percents == nil {
		c.percents = s.Keys
	}
	count, _ := toCount(s.Raw)
	c.count += count
	d, err := digestOf(s.Sketch)
	if err != nil {
		// every sketch in a State was produced or checked when its result was built
		panic(fmt.Sprintf("aggregation: merging percentiles: %s", err))
	}
	d.MergeInto(c.digest)
}

func (c *percentilesCombiner) Result(cm Common) Result {
	ps, err := checkPercents(c.percents)
	if err != nil {
		ps = append([]float64(nil), DefaultPercents...)
	}
	return newPercentiles(cm, ps, c.count, c.digest)
}
