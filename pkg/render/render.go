package render

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/grafana/metricreduce/pkg/aggregation"
	"github.com/tinylib/msgp/msgp"
)

// Renderable is the part of a result that shows up in its document.
// It is implemented by every aggregation.Result and by Parsed.
type Renderable interface {
	Name() string
	Metadata() aggregation.Metadata
	Value() float64
	IsAbsent() bool
	ValueAsString() (string, bool)
}

// Percentiler is implemented by results that have a value per percent.
type Percentiler interface {
	Percents() []float64
	Percentile(percent float64) float64
	PercentileAsString(percent float64) (string, bool)
}

// Render returns the document for r:
//
//	meta             only if there is metadata
//	value            null if r has no value
//	value_as_string  only if r has a value and its format produced text
//
// A Percentiler with percents has a values object instead of value and
// value_as_string, keyed by percent, e.g. "50.0" and "50.0_as_string".
func Render(r Renderable) Document {
	d := Document{fields: make([]Field, 0, 3)}
	if meta := r.Metadata(); len(meta) > 0 {
		d.fields = append(d.fields, Field{Key: fieldMeta, Val: meta})
	}
	if p, ok := r.(Percentiler); ok && len(p.Percents()) > 0 {
		d.fields = append(d.fields, Field{Key: fieldValues, Val: renderValues(p, r.IsAbsent())})
		return d
	}
	if r.IsAbsent() {
		d.fields = append(d.fields, Field{Key: fieldValue, Val: nil})
		return d
	}
	d.fields = append(d.fields, Field{Key: fieldValue, Val: r.Value()})
	if s, ok := r.ValueAsString(); ok {
		d.fields = append(d.fields, Field{Key: fieldValueAsString, Val: s})
	}
	return d
}

func renderValues(p Percentiler, absent bool) Document {
	percents := p.Percents()
	d := Document{fields: make([]Field, 0, 2*len(percents))}
	for _, pc := range percents {
		key := percentKey(pc)
		if absent {
			d.fields = append(d.fields, Field{Key: key, Val: nil})
			continue
		}
		d.fields = append(d.fields, Field{Key: key, Val: p.Percentile(pc)})
		if s, ok := p.PercentileAsString(pc); ok {
			d.fields = append(d.fields, Field{Key: key + asStringSuffix, Val: s})
		}
	}
	return d
}

// percentKey always has a fraction, 50 is "50.0".
func percentKey(p float64) string {
	s := strconv.FormatFloat(p, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// NamedDocument pairs a document with the name it is published under.
type NamedDocument struct {
	Name string
	Doc  Document
}

// Named is a set of documents keyed by result name, in the order the
// results were given.
type Named []NamedDocument

// RenderNamed renders results into a single object keyed by result name.
// A later result replaces an earlier one of the same name, keeping the
// earlier position.
func RenderNamed(results ...Renderable) Named {
	out := make(Named, 0, len(results))
	pos := make(map[string]int, len(results))
	for _, r := range results {
		nd := NamedDocument{Name: r.Name(), Doc: Render(r)}
		if i, ok := pos[nd.Name]; ok {
			out[i] = nd
			continue
		}
		pos[nd.Name] = len(out)
		out = append(out, nd)
	}
	return out
}

// Get returns the document published under name.
func (n Named) Get(name string) (Document, bool) {
	for _, nd := range n {
		if nd.Name == name {
			return nd.Doc, true
		}
	}
	return Document{}, false
}

func (n Named) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, nd := range n {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSON(&buf, nd.Name); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		b, err := nd.Doc.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (n Named) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, uint32(len(n)))
	for _, nd := range n {
		b = msgp.AppendString(b, nd.Name)
		var err error
		b, err = nd.Doc.MarshalMsg(b)
		if err != nil {
			return b, msgp.WrapError(err, nd.Name)
		}
	}
	return b, nil
}
