// Package format turns raw aggregation values into their human readable
// form.
//
// A Formatter is identified on the wire and in configuration by its
// descriptor: "raw" for values that have no textual form, and
// "decimal:<pattern>" for values rendered through a decimal pattern.
// Formatting is total: it never fails and never panics, whatever the input.
// Non-finite values have no textual form under any formatter.
package format

import (
	"math"
	"strings"

	"github.com/grafana/metricreduce/pkg/errors"
)

const (
	RawDescriptor = "raw"
	decimalPrefix = "decimal:"
)

// Formatter renders a raw value. ok is false when the value has no textual
// form, in which case callers use the number as is.
type Formatter interface {
	Format(v float64) (s string, ok bool)
	Descriptor() string
}

type raw struct{}

// Raw is the formatter of values that are shipped as plain numbers.
var Raw Formatter = raw{}

func (raw) Format(v float64) (string, bool) {
	return "", false
}

func (raw) Descriptor() string {
	return RawDescriptor
}

func (raw) String() string {
	return RawDescriptor
}

// Parse returns the formatter for the given descriptor.
// the empty descriptor means raw.
func Parse(descriptor string) (Formatter, error) {
	switch {
	case descriptor == "" || descriptor == RawDescriptor:
		return Raw, nil
	case strings.HasPrefix(descriptor, decimalPrefix):
		return NewDecimal(strings.TrimPrefix(descriptor, decimalPrefix))
	}
	return nil, errors.NewBadRequestf("unknown format descriptor %q", descriptor)
}

// Descriptor returns f's descriptor, treating nil as Raw.
func Descriptor(f Formatter) string {
	if f == nil {
		return RawDescriptor
	}
	return f.Descriptor()
}

// OrRaw returns f, or Raw if f is nil.
func OrRaw(f Formatter) Formatter {
	if f == nil {
		return Raw
	}
	return f
}

// Equal reports whether a and b produce the same output for every value.
func Equal(a, b Formatter) bool {
	return Descriptor(a) == Descriptor(b)
}

// Format applies f (nil meaning Raw) to v.
func Format(f Formatter, v float64) (string, bool) {
	if f == nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return "", false
	}
	return f.Format(v)
}
