// Package render turns finalized aggregation results into the documents
// handed to clients, and parses such documents back.
package render

import (
	"bytes"
	"math"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/grafana/metricreduce/pkg/aggregation"
	"github.com/tinylib/msgp/msgp"
)

const (
	fieldMeta          = "meta"
	fieldValue         = "value"
	fieldValueAsString = "value_as_string"
	fieldValues        = "values"

	asStringSuffix = "_as_string"
)

// Field is one entry of a Document. Val is nil, a float64, a string,
// Metadata or a nested Document.
type Field struct {
	Key string
	Val interface{}
}

// Document is an ordered set of fields. Fields that do not apply are
// absent rather than null, except for the value, which is null when the
// result has none.
type Document struct {
	fields []Field
}

func (d Document) Fields() []Field {
	return d.fields
}

// Get returns the field with the given key.
func (d Document) Get(key string) (interface{}, bool) {
	for _, f := range d.fields {
		if f.Key == key {
			return f.Val, true
		}
	}
	return nil, false
}

// MarshalJSON writes the fields in order. Non-finite values are written as
// the strings "Infinity", "-Infinity" and "NaN", since JSON has no literal
// for them.
func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range d.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSON(&buf, f.Key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSON(&buf, f.Val); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v interface{}) error {
	b, err := json.Marshal(jsonSafe(v))
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

// jsonSafe replaces non-finite floats, including those nested in metadata,
// by their names.
func jsonSafe(v interface{}) interface{} {
	switch v := v.(type) {
	case float64:
		if s, nonFinite := nonFiniteName(v); nonFinite {
			return s
		}
	case float32:
		if s, nonFinite := nonFiniteName(float64(v)); nonFinite {
			return s
		}
	case aggregation.Metadata:
		return jsonSafe(map[string]interface{}(v))
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, e := range v {
			out[k] = jsonSafe(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, e := range v {
			out[i] = jsonSafe(e)
		}
		return out
	}
	return v
}

func nonFiniteName(f float64) (string, bool) {
	switch {
	case math.IsNaN(f):
		return "NaN", true
	case math.IsInf(f, 1):
		return "Infinity", true
	case math.IsInf(f, -1):
		return "-Infinity", true
	}
	return "", false
}

// parseNonFinite is the inverse of nonFiniteName.
func parseNonFinite(s string) (float64, bool) {
	switch s {
	case "NaN":
		return math.NaN(), true
	case "Infinity":
		return math.Inf(1), true
	case "-Infinity":
		return math.Inf(-1), true
	}
	return 0, false
}

// MarshalMsg implements msgp.Marshaler. msgpack has native non-finite
// floats, so values are written as they are.
func (d Document) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, uint32(len(d.fields)))
	for _, f := range d.fields {
		b = msgp.AppendString(b, f.Key)
		v := f.Val
		if meta, ok := v.(aggregation.Metadata); ok {
			v = map[string]interface{}(meta.Copy())
		}
		var err error
		b, err = msgp.AppendIntf(b, v)
		if err != nil {
			return b, msgp.WrapError(err, f.Key)
		}
	}
	return b, nil
}

// String is the JSON form, for logging and debugging.
func (d Document) String() string {
	b, err := d.MarshalJSON()
	if err != nil {
		return "render.Document(" + strconv.Quote(err.Error()) + ")"
	}
	return string(b)
}
