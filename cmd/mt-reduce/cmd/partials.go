package cmd

import (
	"fmt"
	"io/ioutil"

	"github.com/grafana/metricreduce/pkg/aggregation"
	"github.com/grafana/metricreduce/pkg/format"
	"github.com/grafana/metricreduce/pkg/reduce"
	"github.com/pelletier/go-toml"
)

// partialsFile is the input of the reduce and encode commands: one entry
// per shard and metric, holding the values the shard scanned. e.g.
//
//	[[partial]]
//	kind = "weighted_avg"
//	name = "load"
//	format = "decimal:0.00"
//	values = [1.0, 2.5]
//	weights = [2.0, 1.0]
//	[partial.meta]
//	shard = 1
//
// percentiles partials may list the percents to evaluate, e.g.
// percents = [50.0, 99.0].
//
// Values must be written as floats. nan marks a missing value.
type partialsFile struct {
	Partials []partialSpec `toml:"partial"`
}

type partialSpec struct {
	Kind     string                 `toml:"kind"`
	Name     string                 `toml:"name"`
	Format   string                 `toml:"format"`
	Values   []float64              `toml:"values"`
	Weights  []float64              `toml:"weights"`
	Percents []float64              `toml:"percents"`
	Meta     map[string]interface{} `toml:"meta"`
}

func loadPartials(path string) ([]aggregation.Result, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pf partialsFile
	if err := toml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	out := make([]aggregation.Result, 0, len(pf.Partials))
	for i, p := range pf.Partials {
		r, err := p.build()
		if err != nil {
			return nil, fmt.Errorf("%s: partial %d: %w", path, i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// build computes the partial result the way the shard would have.
func (p partialSpec) build() (aggregation.Result, error) {
	f, err := format.Parse(p.Format)
	if err != nil {
		return nil, err
	}
	var meta aggregation.Metadata
	if len(p.Meta) > 0 {
		meta = aggregation.Metadata(p.Meta)
	}
	if p.Name == "" {
		return nil, fmt.Errorf("missing name")
	}
	kind := aggregation.KindFromString(p.Kind)
	if kind == aggregation.KindUnknown {
		return nil, fmt.Errorf("%q: unknown kind %q", p.Name, p.Kind)
	}
	if kind != aggregation.KindWeightedAvg && len(p.Weights) > 0 {
		return nil, fmt.Errorf("%s %q: weights are only supported for weighted_avg", p.Kind, p.Name)
	}
	if kind != aggregation.KindPercentiles && len(p.Percents) > 0 {
		return nil, fmt.Errorf("%s %q: percents are only supported for percentiles", p.Kind, p.Name)
	}
	switch kind {
	case aggregation.KindSum:
		return aggregation.SumOf(p.Name, p.Values, f, meta), nil
	case aggregation.KindAvg:
		return aggregation.AvgOf(p.Name, p.Values, f, meta), nil
	case aggregation.KindWeightedAvg:
		if len(p.Weights) != len(p.Values) {
			return nil, fmt.Errorf("%s %q: %d values but %d weights", p.Kind, p.Name, len(p.Values), len(p.Weights))
		}
		return aggregation.WeightedAvgOf(p.Name, p.Values, p.Weights, f, meta), nil
	case aggregation.KindMin:
		return aggregation.MinOf(p.Name, p.Values, f, meta), nil
	case aggregation.KindMax:
		return aggregation.MaxOf(p.Name, p.Values, f, meta), nil
	case aggregation.KindValueCount:
		return aggregation.ValueCountOf(p.Name, p.Values, f, meta), nil
	case aggregation.KindPercentiles:
		r, err := aggregation.PercentilesOf(p.Name, p.Percents, p.Values, f, meta)
		if err != nil {
			return nil, fmt.Errorf("%s %q: %w", p.Kind, p.Name, err)
		}
		return r, nil
	}
	return nil, fmt.Errorf("%q: kind %q can not be built from values", p.Name, p.Kind)
}

// groupPartials groups results by kind and name, in order of first
// appearance. Every group falls back to the empty result of its kind.
func groupPartials(results []aggregation.Result) ([]reduce.Group, error) {
	type key struct {
		kind aggregation.Kind
		name string
	}
	var groups []reduce.Group
	pos := make(map[key]int)
	for _, r := range results {
		k := key{r.Kind(), r.Name()}
		i, ok := pos[k]
		if !ok {
			zero, err := aggregation.Empty(r.Kind(), aggregation.Common{Name: r.Name(), Format: r.Format()})
			if err != nil {
				return nil, err
			}
			i = len(groups)
			pos[k] = i
			groups = append(groups, reduce.Group{Zero: zero})
		}
		groups[i].Results = append(groups[i].Results, r)
	}
	return groups, nil
}
