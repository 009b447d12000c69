// Package codec implements the node to node encoding of aggregation
// results.
//
// A result is a msgpack map. Encoders write the keys in this order:
//
//	kind     string  wire name of the kind, e.g. "weighted_avg"
//	name     string
//	value    float64 the raw value, always in the 9 byte form
//	format   string  formatter descriptor, e.g. "raw" or "decimal:#,##0.00"
//	meta     map     string keys, arbitrary values
//	count    float64 avg only
//	weight   float64 weighted_avg only
//	percents array   percentiles only, the percents as float64
//	digest   bin     percentiles only, the serialized t-digest
//	ver      int     payload version
//
// Decoders do not depend on the order, and skip keys they don't know, so
// that newer encoders can add fields.
package codec

import (
	"sort"

	"github.com/grafana/metricreduce/pkg/aggregation"
	"github.com/grafana/metricreduce/pkg/format"
	"github.com/tinylib/msgp/msgp"
)

const (
	// Version is written by Encode.
	Version = 1
	// MinSupportedVersion is the oldest payload version Decode accepts.
	// Payloads without a version are version 1.
	MinSupportedVersion = 1
)

const (
	keyKind     = "kind"
	keyName     = "name"
	keyValue    = "value"
	keyFormat   = "format"
	keyMeta     = "meta"
	keyPercents = "percents"
	keyDigest   = "digest"
	keyVer      = "ver"
)

// Encode returns the wire form of r.
func Encode(r aggregation.Result) ([]byte, error) {
	return Append(nil, r)
}

// Append appends the wire form of r to b.
func Append(b []byte, r aggregation.Result) ([]byte, error) {
	if r == nil {
		return b, newError(Malformed, "cannot encode nil result")
	}
	s := r.State()

	fields := 6 + len(s.Extra)
	if s.Keys != nil {
		fields++
	}
	if s.Sketch != nil {
		fields++
	}
	b = msgp.AppendMapHeader(b, uint32(fields))
	b = msgp.AppendString(b, keyKind)
	b = msgp.AppendString(b, r.Kind().String())
	b = msgp.AppendString(b, keyName)
	b = msgp.AppendString(b, r.Name())
	b = msgp.AppendString(b, keyValue)
	b = msgp.AppendFloat64(b, s.Raw)
	b = msgp.AppendString(b, keyFormat)
	b = msgp.AppendString(b, format.Descriptor(r.Format()))
	b = msgp.AppendString(b, keyMeta)
	b, err := appendMeta(b, r.Metadata())
	if err != nil {
		return b, newError(Malformed, "metadata of %q: %s", r.Name(), err)
	}
	for _, c := range s.Extra {
		b = msgp.AppendString(b, c.Key)
		b = msgp.AppendFloat64(b, c.Val)
	}
	if s.Keys != nil {
		b = msgp.AppendString(b, keyPercents)
		b = msgp.AppendArrayHeader(b, uint32(len(s.Keys)))
		for _, k := range s.Keys {
			b = msgp.AppendFloat64(b, k)
		}
	}
	if s.Sketch != nil {
		b = msgp.AppendString(b, keyDigest)
		b = msgp.AppendBytes(b, s.Sketch)
	}
	b = msgp.AppendString(b, keyVer)
	b = msgp.AppendInt(b, Version)
	return b, nil
}

// appendMeta writes metadata with sorted keys so that equal metadata
// encodes to equal bytes. Copy turns nested Metadata into the plain maps
// msgp knows how to write.
func appendMeta(b []byte, meta aggregation.Metadata) ([]byte, error) {
	plain := meta.Copy()
	keys := make([]string, 0, len(plain))
	for k := range plain {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b = msgp.AppendMapHeader(b, uint32(len(keys)))
	for _, k := range keys {
		b = msgp.AppendString(b, k)
		var err error
		b, err = msgp.AppendIntf(b, plain[k])
		if err != nil {
			return b, err
		}
	}
	return b, nil
}

// EncodeMany encodes results as a msgpack array.
func EncodeMany(results []aggregation.Result) ([]byte, error) {
	b := msgp.AppendArrayHeader(nil, uint32(len(results)))
	for _, r := range results {
		var err error
		b, err = Append(b, r)
		if err != nil {
			return nil, err
		}
	}
	return b, nil
}
