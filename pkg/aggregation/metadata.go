package aggregation

import (
	"math"
	"reflect"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// metadataOpts make NaN equal to NaN, and let values of any type, exported
// fields or not, be compared.
var metadataOpts = []cmp.Option{
	cmpopts.EquateNaNs(),
	cmp.Exporter(func(reflect.Type) bool { return true }),
}

// Metadata is the free form metadata the requester attached to an
// aggregation. It is carried through reduction unchanged.
type Metadata map[string]interface{}

// MergeMetadata unions the metadata of results in order: on key
// collisions later results win. The returned map is newly allocated and
// shares no maps or slices with the inputs. It is nil if no result carries
// metadata.
func MergeMetadata(results []Result) Metadata {
	var out Metadata
	for _, r := range results {
		meta := r.Metadata()
		if len(meta) == 0 {
			continue
		}
		if out == nil {
			out = make(Metadata, len(meta))
		}
		for k, v := range meta {
			out[k] = deepCopy(v)
		}
	}
	return out
}

// Copy returns a deep copy of m.
func (m Metadata) Copy() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = deepCopy(v)
	}
	return out
}

func deepCopy(v interface{}) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, e := range v {
			out[k] = deepCopy(e)
		}
		return out
	case Metadata:
		return map[string]interface{}(v.Copy())
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, e := range v {
			out[i] = deepCopy(e)
		}
		return out
	case []byte:
		return append([]byte(nil), v...)
	}
	return v
}

// MetadataEqual compares metadata semantically: nil equals empty, numbers
// compare by value regardless of their Go type, and NaN equals NaN, so
// metadata that went through the wire compares equal to the original.
func MetadataEqual(a, b Metadata) bool {
	if len(a) != len(b) {
		return false
	}
	for k, va := range a {
		vb, ok := b[k]
		if !ok {
			return false
		}
		if !cmp.Equal(normalize(va), normalize(vb), metadataOpts...) {
			return false
		}
	}
	return true
}

// normalize maps a metadata value onto a canonical representation:
// integers become int64 (or uint64 if they do not fit), float32 becomes
// float64, string keyed maps become map[string]interface{} and slices other
// than []byte become []interface{}.
func normalize(v interface{}) interface{} {
	switch v := v.(type) {
	case nil, bool, string, int64, float64, []byte:
		return v
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint:
		return normalizeUint(uint64(v))
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return normalizeUint(v)
	case float32:
		return float64(v)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = normalize(iter.Value().Interface())
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]interface{}, rv.Len())
		for i := range out {
			out[i] = normalize(rv.Index(i).Interface())
		}
		return out
	}
	return v
}

func normalizeUint(v uint64) interface{} {
	if v <= math.MaxInt64 {
		return int64(v)
	}
	return v
}
