package codec

import (
	"github.com/grafana/metricreduce/pkg/aggregation"
	"github.com/grafana/metricreduce/pkg/format"
	"github.com/tinylib/msgp/msgp"
)

// decoded collects the fields of one payload until the kind is known.
type decoded struct {
	kind     string
	hasKind  bool
	name     string
	value    float64
	hasValue bool
	format   string
	meta     aggregation.Metadata
	extra    []aggregation.Component
	keys     []float64
	sketch   []byte
	ver      int
	hasVer   bool
}

type fieldDecoder func(d *decoded, b []byte) ([]byte, error)

var fieldDecoders = map[string]fieldDecoder{
	keyKind:     decodeKind,
	keyName:     decodeName,
	keyValue:    decodeValue,
	keyFormat:   decodeFormat,
	keyMeta:     decodeMeta,
	keyPercents: decodePercents,
	keyDigest:   decodeDigest,
	keyVer:      decodeVer,
	"count":     extraDecoder("count"),
	"weight":    extraDecoder("weight"),
}

func decodeKind(d *decoded, b []byte) (o []byte, err error) {
	d.kind, o, err = msgp.ReadStringBytes(b)
	d.hasKind = err == nil
	return
}

func decodeName(d *decoded, b []byte) (o []byte, err error) {
	d.name, o, err = msgp.ReadStringBytes(b)
	return
}

func decodeValue(d *decoded, b []byte) (o []byte, err error) {
	d.value, o, err = readFloat(b)
	d.hasValue = err == nil
	return
}

func decodeFormat(d *decoded, b []byte) (o []byte, err error) {
	d.format, o, err = msgp.ReadStringBytes(b)
	return
}

func decodeVer(d *decoded, b []byte) (o []byte, err error) {
	if err := expectType(b, msgp.IntType, msgp.UintType); err != nil {
		return b, err
	}
	d.ver, o, err = msgp.ReadIntBytes(b)
	d.hasVer = err == nil
	return
}

func extraDecoder(key string) fieldDecoder {
	return func(d *decoded, b []byte) (o []byte, err error) {
		var v float64
		v, o, err = readFloat(b)
		if err == nil {
			d.extra = append(d.extra, aggregation.Component{Key: key, Val: v})
		}
		return
	}
}

func decodePercents(d *decoded, b []byte) ([]byte, error) {
	if err := expectType(b, msgp.ArrayType); err != nil {
		return b, err
	}
	sz, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return b, err
	}
	d.keys = make([]float64, 0, sz)
	for ; sz > 0; sz-- {
		var k float64
		k, b, err = readFloat(b)
		if err != nil {
			return b, err
		}
		d.keys = append(d.keys, k)
	}
	return b, nil
}

func decodeDigest(d *decoded, b []byte) (o []byte, err error) {
	if err := expectType(b, msgp.BinType); err != nil {
		return b, err
	}
	d.sketch, o, err = msgp.ReadBytesBytes(b, nil)
	return
}

// expectType fails with a type error, not a short read, if the next object
// is none of types. msgp checks lengths before types for fixed size objects.
func expectType(b []byte, types ...msgp.Type) error {
	if len(b) == 0 {
		return msgp.ErrShortBytes
	}
	t := msgp.NextType(b)
	for _, want := range types {
		if t == want {
			return nil
		}
	}
	return msgp.TypeError{Method: types[0], Encoded: t}
}

// readFloat reads a float64, or a float32 from older or foreign encoders.
func readFloat(b []byte) (float64, []byte, error) {
	if err := expectType(b, msgp.Float64Type, msgp.Float32Type); err != nil {
		return 0, b, err
	}
	return msgp.ReadFloat64Bytes(b)
}

func decodeMeta(d *decoded, b []byte) ([]byte, error) {
	if msgp.IsNil(b) {
		return msgp.ReadNilBytes(b)
	}
	sz, b, err := msgp.ReadMapHeaderBytes(b)
	if err != nil {
		return b, err
	}
	if sz == 0 {
		return b, nil
	}
	d.meta = make(aggregation.Metadata, sz)
	for ; sz > 0; sz-- {
		var k string
		k, b, err = msgp.ReadStringBytes(b)
		if err != nil {
			return b, err
		}
		var v interface{}
		v, b, err = msgp.ReadIntfBytes(b)
		if err != nil {
			return b, err
		}
		d.meta[k] = v
	}
	return b, nil
}

// Decode parses a single result. The payload must not have trailing bytes.
func Decode(b []byte) (aggregation.Result, error) {
	r, rest, err := DecodeFrom(b)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, newError(Malformed, "%d trailing bytes after result %q", len(rest), r.Name())
	}
	return r, nil
}

// DecodeFrom parses the result at the start of b and returns the remaining
// bytes.
func DecodeFrom(b []byte) (aggregation.Result, []byte, error) {
	var d decoded
	sz, b, err := msgp.ReadMapHeaderBytes(b)
	if err != nil {
		return nil, b, readError(err, "header")
	}
	for ; sz > 0; sz-- {
		var field []byte
		field, b, err = msgp.ReadMapKeyZC(b)
		if err != nil {
			return nil, b, readError(err, "key")
		}
		dec, ok := fieldDecoders[msgp.UnsafeString(field)]
		if !ok {
			b, err = msgp.Skip(b)
			if err != nil {
				return nil, b, readError(err, string(field))
			}
			continue
		}
		b, err = dec(&d, b)
		if err != nil {
			return nil, b, readError(err, string(field))
		}
	}

	r, err := d.build()
	return r, b, err
}

func (d *decoded) build() (aggregation.Result, error) {
	if d.hasVer && d.ver < MinSupportedVersion {
		return nil, newError(Incompatible, "payload version %d, need at least %d", d.ver, MinSupportedVersion)
	}
	if !d.hasKind {
		return nil, newError(Malformed, "missing %q", keyKind)
	}
	kind := aggregation.KindFromString(d.kind)
	if kind == aggregation.KindUnknown {
		return nil, newError(UnknownKind, "unknown kind %q", d.kind)
	}
	if !d.hasValue {
		return nil, newError(Malformed, "%s %q: missing %q", d.kind, d.name, keyValue)
	}
	f, err := format.Parse(d.format)
	if err != nil {
		return nil, newError(Malformed, "%s %q: %s", d.kind, d.name, err)
	}
	r, err := aggregation.Build(kind, aggregation.Common{
		Name:     d.name,
		Format:   f,
		Metadata: d.meta,
	}, aggregation.State{
		Raw:    d.value,
		Extra:  d.extra,
		Keys:   d.keys,
		Sketch: d.sketch,
	})
	if err != nil {
		return nil, newError(Malformed, "%s %q: %s", d.kind, d.name, err)
	}
	return r, nil
}

func readError(err error, field string) *CodecError {
	if msgp.Cause(err) == msgp.ErrShortBytes {
		return newError(Truncated, "reading %s: %s", field, err)
	}
	return newError(Malformed, "reading %s: %s", field, err)
}

// DecodeMany parses a msgpack array of results, as written by EncodeMany.
func DecodeMany(b []byte) ([]aggregation.Result, error) {
	sz, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return nil, readError(err, "array header")
	}
	out := make([]aggregation.Result, 0, sz)
	for i := uint32(0); i < sz; i++ {
		var r aggregation.Result
		r, b, err = DecodeFrom(b)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if len(b) != 0 {
		return nil, newError(Malformed, "%d trailing bytes after %d results", len(b), sz)
	}
	return out, nil
}
