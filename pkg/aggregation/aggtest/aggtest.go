// Package aggtest provides random results and mutations for tests of code
// that handles aggregation results.
package aggtest

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/grafana/metricreduce/pkg/aggregation"
	"github.com/grafana/metricreduce/pkg/format"
)

const letters = "abcdefghijklmnopqrstuvwxyz"

func RandomString(rng *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rng.Intn(len(letters))]
	}
	return string(b)
}

// RandomValue returns a finite value most of the time, and NaN or an
// infinity otherwise.
func RandomValue(rng *rand.Rand) float64 {
	if rng.Intn(10) > 0 {
		return (rng.Float64() - 0.5) * math.Pow(10, float64(rng.Intn(12)))
	}
	switch rng.Intn(3) {
	case 0:
		return math.NaN()
	case 1:
		return math.Inf(1)
	}
	return math.Inf(-1)
}

// RandomFormat returns either a decimal formatter or Raw.
func RandomFormat(rng *rand.Rand) format.Formatter {
	if rng.Intn(2) == 0 {
		return format.MustDecimal("###.##")
	}
	return format.Raw
}

// RandomMetadata returns nil or a small map with scalar and nested values,
// non-finite floats included.
func RandomMetadata(rng *rand.Rand) aggregation.Metadata {
	if rng.Intn(3) == 0 {
		return nil
	}
	meta := make(aggregation.Metadata)
	for i := rng.Intn(4); i >= 0; i-- {
		key := RandomString(rng, 8)
		switch rng.Intn(6) {
		case 0:
			meta[key] = rng.Int63()
		case 1:
			meta[key] = RandomString(rng, 5)
		case 2:
			meta[key] = rng.Float64()
		case 3:
			meta[key] = rng.Intn(2) == 0
		case 4:
			meta[key] = []float64{math.NaN(), math.Inf(1), math.Inf(-1)}[rng.Intn(3)]
		default:
			meta[key] = map[string]interface{}{
				"inner": RandomString(rng, 3),
				"list":  []interface{}{int64(rng.Intn(100)), "x"},
			}
		}
	}
	return meta
}

// RandomResult returns a random result of kind k.
func RandomResult(rng *rand.Rand, k aggregation.Kind, name string) aggregation.Result {
	f := RandomFormat(rng)
	meta := RandomMetadata(rng)
	switch k {
	case aggregation.KindSum:
		return aggregation.NewSum(name, RandomValue(rng), f, meta)
	case aggregation.KindAvg:
		return aggregation.NewAvg(name, RandomValue(rng), uint64(rng.Intn(1000)), f, meta)
	case aggregation.KindWeightedAvg:
		return aggregation.NewWeightedAvg(name, RandomValue(rng), math.Abs(RandomValue(rng)), f, meta)
	case aggregation.KindMin:
		return aggregation.NewMin(name, RandomValue(rng), f, meta)
	case aggregation.KindMax:
		return aggregation.NewMax(name, RandomValue(rng), f, meta)
	case aggregation.KindValueCount:
		return aggregation.NewValueCount(name, uint64(rng.Int63n(1<<40)), f, meta)
	case aggregation.KindPercentiles:
		values := make([]float64, rng.Intn(50))
		for i := range values {
			values[i] = RandomValue(rng)
		}
		p, err := aggregation.PercentilesOf(name, nil, values, f, meta)
		if err != nil {
			panic(fmt.Sprintf("aggtest.RandomResult: %s", err))
		}
		return p
	}
	panic(fmt.Sprintf("aggtest.RandomResult: unsupported kind %s", k))
}

// RandomPartials returns n finite partials of kind k, all sharing name and
// format, as shards would produce for one metric.
func RandomPartials(rng *rand.Rand, k aggregation.Kind, name string, f format.Formatter, n int) []aggregation.Result {
	out := make([]aggregation.Result, n)
	for i := range out {
		v := rng.Float64() * 1000
		meta := aggregation.Metadata{"shard": int64(i)}
		switch k {
		case aggregation.KindSum:
			out[i] = aggregation.NewSum(name, v, f, meta)
		case aggregation.KindAvg:
			out[i] = aggregation.NewAvg(name, v, uint64(rng.Intn(100)+1), f, meta)
		case aggregation.KindWeightedAvg:
			out[i] = aggregation.NewWeightedAvg(name, v, rng.Float64()*10+0.1, f, meta)
		case aggregation.KindMin:
			out[i] = aggregation.NewMin(name, v, f, meta)
		case aggregation.KindMax:
			out[i] = aggregation.NewMax(name, v, f, meta)
		case aggregation.KindValueCount:
			out[i] = aggregation.NewValueCount(name, uint64(rng.Intn(1000)), f, meta)
		case aggregation.KindPercentiles:
			values := make([]float64, rng.Intn(100)+1)
			for j := range values {
				values[j] = rng.Float64() * 1000
			}
			p, err := aggregation.PercentilesOf(name, nil, values, f, meta)
			if err != nil {
				panic(fmt.Sprintf("aggtest.RandomPartials: %s", err))
			}
			out[i] = p
		default:
			panic(fmt.Sprintf("aggtest.RandomPartials: unsupported kind %s", k))
		}
	}
	return out
}

// Mutate returns a copy of r that differs in exactly one of name, value or
// metadata, so that it must not compare Equal to r.
func Mutate(rng *rand.Rand, r aggregation.Result) aggregation.Result {
	c := aggregation.Common{
		Name:     r.Name(),
		Format:   r.Format(),
		Metadata: r.Metadata().Copy(),
	}
	s := r.State()
	s.Extra = append([]aggregation.Component(nil), s.Extra...)
	if s.Keys != nil {
		s.Keys = append([]float64(nil), s.Keys...)
	}
	if s.Sketch != nil {
		s.Sketch = append([]byte(nil), s.Sketch...)
	}

	switch rng.Intn(3) {
	case 0:
		c.Name += RandomString(rng, 5)
	case 1:
		if math.IsInf(s.Raw, 0) || math.IsNaN(s.Raw) {
			s.Raw = float64(rng.Intn(100) + 1)
		} else {
			s.Raw += math.Round((math.Abs(s.Raw) + 1) * (rng.Float64() + 0.5))
		}
	default:
		if c.Metadata == nil {
			c.Metadata = make(aggregation.Metadata, 1)
		}
		c.Metadata[RandomString(rng, 15)] = int64(rng.Int31())
	}
	out, err := aggregation.Build(r.Kind(), c, s)
	if err != nil {
		panic(fmt.Sprintf("aggtest.Mutate: %s", err))
	}
	return out
}
