package aggregation

import (
	"fmt"
	"net/http"

	"github.com/grafana/metricreduce/pkg/format"
)

// Reason tells why a reduction was rejected.
type Reason uint8

const (
	EmptyInput Reason = iota + 1
	KindMismatch
	NameMismatch
	FormatMismatch
	KeysMismatch
)

func (r Reason) String() string {
	switch r {
	case EmptyInput:
		return "EmptyInput"
	case KindMismatch:
		return "KindMismatch"
	case NameMismatch:
		return "NameMismatch"
	case FormatMismatch:
		return "FormatMismatch"
	case KeysMismatch:
		return "KeysMismatch"
	}
	return fmt.Sprintf("Reason(%d)", uint8(r))
}

// ReductionError is returned when a set of results cannot be reduced.
// errors.Is matches on the reason, so callers can test against the Err*
// values below.
type ReductionError struct {
	Reason Reason
	Msg    string
}

var (
	ErrEmptyInput     = &ReductionError{Reason: EmptyInput, Msg: "no results to reduce"}
	ErrKindMismatch   = &ReductionError{Reason: KindMismatch, Msg: "results are of different kinds"}
	ErrNameMismatch   = &ReductionError{Reason: NameMismatch, Msg: "results have different names"}
	ErrFormatMismatch = &ReductionError{Reason: FormatMismatch, Msg: "results have different formats"}
	ErrKeysMismatch   = &ReductionError{Reason: KeysMismatch, Msg: "results are evaluated at different keys"}
)

func (e *ReductionError) Error() string {
	return "reduce: " + e.Msg
}

func (e *ReductionError) Is(target error) bool {
	t, ok := target.(*ReductionError)
	return ok && t.Reason == e.Reason
}

// HTTPStatusCode: an empty input is the caller's to handle, mismatches are
// orchestration bugs upstream.
func (e *ReductionError) HTTPStatusCode() int {
	if e.Reason == EmptyInput {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// multiValued results are evaluated at a list of keys, which all partials
// must share.
type multiValued interface {
	Percents() []float64
}

func mismatch(reason Reason, format string, a ...interface{}) *ReductionError {
	return &ReductionError{Reason: reason, Msg: fmt.Sprintf(format, a...)}
}

// Validate checks that results can be reduced together: there is at least
// one, and all share kind, name, format and, for multi valued kinds, keys.
func Validate(results []Result) error {
	if len(results) == 0 {
		return ErrEmptyInput
	}
	first := results[0]
	if first == nil {
		return mismatch(KindMismatch, "result 0 is nil")
	}
	var keys []float64
	if multi, ok := first.(multiValued); ok {
		keys = multi.Percents()
	}
	for i, r := range results[1:] {
		if r == nil {
			return mismatch(KindMismatch, "result %d is nil", i+1)
		}
		if r.Kind() != first.Kind() {
			return mismatch(KindMismatch, "result %d of %q is %s, expected %s", i+1, r.Name(), r.Kind(), first.Kind())
		}
		if r.Name() != first.Name() {
			return mismatch(NameMismatch, "result %d is named %q, expected %q", i+1, r.Name(), first.Name())
		}
		if !format.Equal(r.Format(), first.Format()) {
			return mismatch(FormatMismatch, "result %d of %q has format %s, expected %s", i+1, r.Name(), format.Descriptor(r.Format()), format.Descriptor(first.Format()))
		}
		if multi, ok := r.(multiValued); ok && !keysEqual(multi.Percents(), keys) {
			return mismatch(KeysMismatch, "result %d of %q is evaluated at %v, expected %v", i+1, r.Name(), multi.Percents(), keys)
		}
	}
	return nil
}

// Reduce merges same-kind results into a new one, folding them left to
// right through the kind's Combiner. The inputs are not modified.
// The merged metadata is the union of the inputs' metadata, later inputs
// winning on key collisions.
func Reduce(results []Result) (Result, error) {
	if err := Validate(results); err != nil {
		return nil, err
	}
	first := results[0]
	c := first.NewCombiner()
	for _, r := range results {
		c.Add(r.State())
	}
	return c.Result(Common{
		Name:     first.Name(),
		Format:   first.Format(),
		Metadata: MergeMetadata(results),
	}), nil
}
