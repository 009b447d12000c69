package render

import (
	"strconv"
	"strings"

	"github.com/grafana/metricreduce/pkg/aggregation"
	"github.com/grafana/metricreduce/pkg/errors"
	"github.com/tidwall/gjson"
)

// Parsed is a result read back from its rendered document. It only knows
// what the document shows: there is no state to reduce it further.
type Parsed struct {
	kind          aggregation.Kind
	name          string
	meta          aggregation.Metadata
	value         float64
	absent        bool
	valueAsString string
	hasString     bool

	percents []float64
	pvalues  map[float64]float64
	pstrings map[float64]string
}

func (p *Parsed) Kind() aggregation.Kind {
	return p.kind
}

func (p *Parsed) Name() string {
	return p.name
}

func (p *Parsed) Metadata() aggregation.Metadata {
	return p.meta
}

// Value returns the kind's sentinel if the document had a null value.
func (p *Parsed) Value() float64 {
	return p.value
}

func (p *Parsed) IsAbsent() bool {
	return p.absent
}

func (p *Parsed) ValueAsString() (string, bool) {
	return p.valueAsString, p.hasString
}

// Percents are those of the values object, in document order.
func (p *Parsed) Percents() []float64 {
	return p.percents
}

func (p *Parsed) Percentile(percent float64) float64 {
	if v, ok := p.pvalues[percent]; ok {
		return v
	}
	return p.value
}

func (p *Parsed) PercentileAsString(percent float64) (string, bool) {
	s, ok := p.pstrings[percent]
	return s, ok
}

type fieldParser func(p *Parsed, v gjson.Result) error

var fieldParsers = map[string]fieldParser{
	fieldMeta:          parseMeta,
	fieldValue:         parseValue,
	fieldValueAsString: parseValueAsString,
	fieldValues:        parseValues,
}

func parseMeta(p *Parsed, v gjson.Result) error {
	if v.Type == gjson.Null {
		return nil
	}
	if !v.IsObject() {
		return errors.NewBadRequestf("%s: %q is not an object", p.name, fieldMeta)
	}
	m := plain(v).(map[string]interface{})
	if len(m) > 0 {
		p.meta = aggregation.Metadata(m)
	}
	return nil
}

// plain converts a json value like gjson's Value does, except that
// integer literals become int64 so they are not rounded through float64.
func plain(v gjson.Result) interface{} {
	switch v.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.String:
		return v.Str
	case gjson.Number:
		if !strings.ContainsAny(v.Raw, ".eE") {
			if i, err := strconv.ParseInt(v.Raw, 10, 64); err == nil {
				return i
			}
		}
		return v.Num
	}
	if v.IsArray() {
		out := []interface{}{}
		v.ForEach(func(_, e gjson.Result) bool {
			out = append(out, plain(e))
			return true
		})
		return out
	}
	out := map[string]interface{}{}
	v.ForEach(func(k, e gjson.Result) bool {
		out[k.Str] = plain(e)
		return true
	})
	return out
}

func parseValue(p *Parsed, v gjson.Result) error {
	switch v.Type {
	case gjson.Null:
		p.absent = true
		if spec, ok := aggregation.Lookup(p.kind); ok {
			p.value = spec.Sentinel
		}
	case gjson.Number:
		p.value = v.Float()
	case gjson.String:
		f, ok := parseNonFinite(v.Str)
		if !ok {
			return errors.NewBadRequestf("%s: invalid %q %q", p.name, fieldValue, v.Str)
		}
		p.value = f
	default:
		return errors.NewBadRequestf("%s: %q must be a number or null, got %s", p.name, fieldValue, v.Type)
	}
	return nil
}

func parseValueAsString(p *Parsed, v gjson.Result) error {
	if v.Type != gjson.String {
		return errors.NewBadRequestf("%s: %q must be a string, got %s", p.name, fieldValueAsString, v.Type)
	}
	p.valueAsString, p.hasString = v.Str, true
	return nil
}

// parseValues reads the values object of a percentiles document. Either
// every percent has a value or none has.
func parseValues(p *Parsed, v gjson.Result) error {
	if !v.IsObject() {
		return errors.NewBadRequestf("%s: %q is not an object", p.name, fieldValues)
	}
	p.pvalues = map[float64]float64{}
	p.pstrings = map[float64]string{}
	nulls := 0
	var err error
	v.ForEach(func(key, e gjson.Result) bool {
		k := key.Str
		asString := strings.HasSuffix(k, asStringSuffix)
		if asString {
			k = strings.TrimSuffix(k, asStringSuffix)
		}
		pc, perr := strconv.ParseFloat(k, 64)
		if perr != nil {
			err = errors.NewBadRequestf("%s: invalid percent %q", p.name, key.Str)
			return false
		}
		if asString {
			if e.Type != gjson.String {
				err = errors.NewBadRequestf("%s: %q must be a string, got %s", p.name, key.Str, e.Type)
				return false
			}
			p.pstrings[pc] = e.Str
			return true
		}
		if _, dup := p.pvalues[pc]; dup {
			err = errors.NewBadRequestf("%s: duplicate percent %q", p.name, key.Str)
			return false
		}
		p.percents = append(p.percents, pc)
		switch e.Type {
		case gjson.Null:
			nulls++
			p.pvalues[pc] = 0
		case gjson.Number:
			p.pvalues[pc] = e.Float()
		case gjson.String:
			f, ok := parseNonFinite(e.Str)
			if !ok {
				err = errors.NewBadRequestf("%s: invalid value %q for percent %q", p.name, e.Str, key.Str)
				return false
			}
			p.pvalues[pc] = f
		default:
			err = errors.NewBadRequestf("%s: percent %q must be a number or null, got %s", p.name, key.Str, e.Type)
			return false
		}
		return true
	})
	if err != nil {
		return err
	}
	if len(p.percents) == 0 {
		return errors.NewBadRequestf("%s: %q is empty", p.name, fieldValues)
	}
	if nulls > 0 && nulls != len(p.percents) {
		return errors.NewBadRequestf("%s: %d of %d percents are null", p.name, nulls, len(p.percents))
	}
	if nulls > 0 {
		if err := parseValue(p, gjson.Result{Type: gjson.Null}); err != nil {
			return err
		}
		p.pvalues = nil
		p.pstrings = nil
		return nil
	}
	if v, ok := p.pvalues[50]; ok {
		p.value = v
	}
	return nil
}

// Parse reads a document as produced by Render for a result of the given
// kind and name. Unknown fields are ignored. A document without a value
// field is treated like one with a null value, so rendering the Parsed
// result again yields the same document. A percentiles document has a
// values object instead.
func Parse(kind aggregation.Kind, name string, data []byte) (*Parsed, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.NewBadRequestf("%s: invalid json document", name)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, errors.NewBadRequestf("%s: document is not an object", name)
	}

	p := &Parsed{kind: kind, name: name}
	sawValue := false
	var err error
	doc.ForEach(func(key, v gjson.Result) bool {
		parse, ok := fieldParsers[key.Str]
		if !ok {
			return true
		}
		if key.Str == fieldValue || key.Str == fieldValues {
			sawValue = true
		}
		err = parse(p, v)
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	if !sawValue {
		err = parseValue(p, gjson.Result{Type: gjson.Null})
	}
	return p, err
}
