package aggregation

import (
	"fmt"
	"sort"
)

// Kind identifies a metric kind, i.e. a concrete Result variant.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindSum
	KindAvg
	KindWeightedAvg
	KindMin
	KindMax
	KindValueCount
	KindPercentiles
)

// String provides the name used on the wire and in rendered documents.
func (k Kind) String() string {
	if spec, ok := kinds[k]; ok {
		return spec.Name
	}
	return fmt.Sprintf("unknown(%d)", uint8(k))
}

// KindFromString returns the kind with the given wire name, or KindUnknown.
func KindFromString(name string) Kind {
	for k, spec := range kinds {
		if spec.Name == name {
			return k
		}
	}
	return KindUnknown
}

// KindSpec describes everything the generic machinery needs to know about a
// kind that is not carried by a Result value.
type KindSpec struct {
	Kind Kind
	Name string
	// New builds a result from its common attributes and its state,
	// e.g. after decoding it.
	New func(c Common, s State) (Result, error)
	// Empty builds the result of reducing zero values.
	Empty func(c Common) Result
	// Sentinel is the raw value a rendered null stands for.
	Sentinel float64
	// Nullable reports whether the rendered value can be null at all.
	Nullable bool
}

var kinds = map[Kind]KindSpec{}

// Register adds a kind. It panics if the kind or its name is already taken,
// which can only happen at init time.
func Register(spec KindSpec) {
	if spec.Kind == KindUnknown || spec.Name == "" || spec.New == nil || spec.Empty == nil {
		panic(fmt.Sprintf("aggregation.Register: incomplete KindSpec %+v", spec))
	}
	if _, ok := kinds[spec.Kind]; ok {
		panic(fmt.Sprintf("aggregation.Register: kind %d already registered", spec.Kind))
	}
	if KindFromString(spec.Name) != KindUnknown {
		panic(fmt.Sprintf("aggregation.Register: kind name %q already registered", spec.Name))
	}
	kinds[spec.Kind] = spec
}

// Lookup returns the spec of k.
func Lookup(k Kind) (KindSpec, bool) {
	spec, ok := kinds[k]
	return spec, ok
}

// Kinds returns all registered kinds in ascending order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kinds))
	for k := range kinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Build constructs a result of kind k.
func Build(k Kind, c Common, s State) (Result, error) {
	spec, ok := kinds[k]
	if !ok {
		return nil, fmt.Errorf("aggregation: unknown kind %d", k)
	}
	return spec.New(c, s)
}

// Empty returns the zero result of kind k, suitable as a reduction fallback
// when there are no partials at all.
func Empty(k Kind, c Common) (Result, error) {
	spec, ok := kinds[k]
	if !ok {
		return nil, fmt.Errorf("aggregation: unknown kind %d", k)
	}
	return spec.Empty(c), nil
}

func init() {
	Register(KindSpec{Kind: KindSum, Name: "sum", New: newSumFromState, Empty: emptySum})
	Register(KindSpec{Kind: KindAvg, Name: "avg", New: newAvgFromState, Empty: emptyAvg, Sentinel: absentSentinel, Nullable: true})
	Register(KindSpec{Kind: KindWeightedAvg, Name: "weighted_avg", New: newWeightedAvgFromState, Empty: emptyWeightedAvg, Sentinel: absentSentinel, Nullable: true})
	Register(KindSpec{Kind: KindMin, Name: "min", New: newMinFromState, Empty: emptyMin, Sentinel: absentSentinel, Nullable: true})
	Register(KindSpec{Kind: KindMax, Name: "max", New: newMaxFromState, Empty: emptyMax, Sentinel: maxSentinel, Nullable: true})
	Register(KindSpec{Kind: KindValueCount, Name: "value_count", New: newValueCountFromState, Empty: emptyValueCount})
	Register(KindSpec{Kind: KindPercentiles, Name: "percentiles", New: newPercentilesFromState, Empty: emptyPercentiles, Sentinel: absentSentinel, Nullable: true})
}
