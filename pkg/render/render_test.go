package render

import (
	"math"
	"math/rand"
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/grafana/metricreduce/pkg/aggregation"
	"github.com/grafana/metricreduce/pkg/aggregation/aggtest"
	"github.com/grafana/metricreduce/pkg/errors"
	"github.com/grafana/metricreduce/pkg/format"
	"github.com/tinylib/msgp/msgp"
)

type testCase struct {
	title string
	in    aggregation.Result
	json  string
}

func TestRenderJSON(t *testing.T) {
	dec := format.MustDecimal("#,##0.00")
	cases := []testCase{
		{
			title: "avg over no documents",
			in:    aggregation.NewAvg("latency", 0, 0, dec, nil),
			json:  `{"value":null}`,
		},
		{
			title: "weighted avg over no weight",
			in:    aggregation.NewWeightedAvg("load", 0, 0, dec, nil),
			json:  `{"value":null}`,
		},
		{
			title: "min of nothing",
			in:    aggregation.MinOf("min", nil, dec, nil),
			json:  `{"value":null}`,
		},
		{
			title: "max of nothing",
			in:    aggregation.MaxOf("max", nil, dec, nil),
			json:  `{"value":null}`,
		},
		{
			title: "weighted avg with metadata",
			in:    aggregation.NewWeightedAvg("load", 3, 2, format.MustDecimal("0.0"), aggregation.Metadata{"unit": "cores"}),
			json:  `{"meta":{"unit":"cores"},"value":1.5,"value_as_string":"1.5"}`,
		},
		{
			title: "raw format has no string",
			in:    aggregation.NewSum("bytes", 1234.5, nil, nil),
			json:  `{"value":1234.5}`,
		},
		{
			title: "grouped decimal",
			in:    aggregation.NewSum("bytes", 1234.567, dec, nil),
			json:  `{"value":1234.567,"value_as_string":"1,234.57"}`,
		},
		{
			title: "empty metadata is omitted",
			in:    aggregation.NewSum("bytes", 1, nil, aggregation.Metadata{}),
			json:  `{"value":1}`,
		},
		{
			title: "overflowed sum",
			in:    aggregation.NewSum("big", math.Inf(1), dec, nil),
			json:  `{"value":"Infinity"}`,
		},
		{
			title: "negative infinity",
			in:    aggregation.NewSum("big", math.Inf(-1), dec, nil),
			json:  `{"value":"-Infinity"}`,
		},
		{
			title: "nan",
			in:    aggregation.NewSum("nan", math.NaN(), dec, nil),
			json:  `{"value":"NaN"}`,
		},
		{
			title: "max that is infinite",
			in:    aggregation.NewMax("max", math.Inf(1), nil, nil),
			json:  `{"value":null}`,
		},
		{
			title: "min that is infinite",
			in:    aggregation.NewMin("min", math.Inf(-1), dec, nil),
			json:  `{"value":null}`,
		},
		{
			title: "non-finite metadata",
			in:    aggregation.NewSum("s", 1, nil, aggregation.Metadata{"x": math.NaN(), "y": []interface{}{math.Inf(-1)}}),
			json:  `{"meta":{"x":"NaN","y":["-Infinity"]},"value":1}`,
		},
		{
			title: "percentiles",
			in:    mustPercentiles(t, []float64{50, 99}, []float64{2.5, 2.5}, format.MustDecimal("0.00")),
			json:  `{"values":{"50.0":2.5,"50.0_as_string":"2.50","99.0":2.5,"99.0_as_string":"2.50"}}`,
		},
		{
			title: "percentiles with fractional percents",
			in:    mustPercentiles(t, []float64{99.9}, []float64{7}, nil),
			json:  `{"values":{"99.9":7}}`,
		},
		{
			title: "percentiles of nothing",
			in:    mustPercentiles(t, []float64{50, 99}, nil, format.MustDecimal("0.00")),
			json:  `{"values":{"50.0":null,"99.0":null}}`,
		},
		{
			title: "value count",
			in:    aggregation.NewValueCount("hits", 42, format.MustDecimal("#,##0"), nil),
			json:  `{"value":42,"value_as_string":"42"}`,
		},
	}
	for _, c := range cases {
		b, err := Render(c.in).MarshalJSON()
		if err != nil {
			t.Fatalf("%s: %s", c.title, err)
		}
		if diff := cmp.Diff(c.json, string(b)); diff != "" {
			t.Errorf("%s: json mismatch (-want +got):\n%s", c.title, diff)
		}
	}
}

func TestRenderAbsentHasNoString(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, k := range aggregation.Kinds() {
		for i := 0; i < 100; i++ {
			r := aggtest.RandomResult(rng, k, "x")
			d := Render(r)
			key := fieldValue
			if k == aggregation.KindPercentiles {
				key = fieldValues
			}
			v, ok := d.Get(key)
			if !ok {
				t.Fatalf("%s: %s must always be present", k, key)
			}
			if !r.IsAbsent() {
				continue
			}
			if values, ok := v.(Document); ok {
				for _, f := range values.Fields() {
					if f.Val != nil {
						t.Fatalf("%s: absent percentile %s rendered as %v", k, f.Key, f.Val)
					}
				}
			} else if v != nil {
				t.Fatalf("%s: absent value rendered as %v", k, v)
			}
			if _, ok := d.Get(fieldValueAsString); ok {
				t.Fatalf("%s: absent value must not have value_as_string", k)
			}
			// metadata may hold non-finite values of its own
			withoutMeta := Document{}
			for _, f := range d.Fields() {
				if f.Key != fieldMeta {
					withoutMeta.fields = append(withoutMeta.fields, f)
				}
			}
			if strings.Contains(withoutMeta.String(), "Infinity") {
				t.Fatalf("%s: absent value leaked an infinity: %s", k, d)
			}
		}
	}
}

func mustPercentiles(t *testing.T, percents, values []float64, f format.Formatter) *aggregation.Percentiles {
	t.Helper()
	p, err := aggregation.PercentilesOf("p", percents, values, f, nil)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRenderNamed(t *testing.T) {
	named := RenderNamed(
		aggregation.NewSum("b", 1, nil, nil),
		aggregation.NewAvg("a", 0, 0, nil, nil),
		aggregation.NewSum("b", 2, nil, nil),
	)
	b, err := named.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	want := `{"b":{"value":2},"a":{"value":null}}`
	if diff := cmp.Diff(want, string(b)); diff != "" {
		t.Errorf("json mismatch (-want +got):\n%s", diff)
	}
	if _, ok := named.Get("a"); !ok {
		t.Errorf("expected a document named a")
	}
}

func TestRenderMsgp(t *testing.T) {
	named := RenderNamed(
		aggregation.NewSum("nan", math.NaN(), nil, aggregation.Metadata{"nested": aggregation.Metadata{"k": int64(1)}}),
		aggregation.NewAvg("none", 0, 0, nil, nil),
	)
	b, err := named.MarshalMsg(nil)
	if err != nil {
		t.Fatal(err)
	}
	m, rest, err := msgp.ReadMapStrIntfBytes(b, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 0 {
		t.Fatalf("expected no trailing bytes, got %d", len(rest))
	}
	nan := m["nan"].(map[string]interface{})
	if v, ok := nan["value"].(float64); !ok || !math.IsNaN(v) {
		t.Errorf("expected a native NaN, got %#v", nan["value"])
	}
	meta := nan["meta"].(map[string]interface{})
	if diff := cmp.Diff(map[string]interface{}{"k": int64(1)}, meta["nested"]); diff != "" {
		t.Errorf("meta mismatch (-want +got):\n%s", diff)
	}
	none := m["none"].(map[string]interface{})
	if v, ok := none["value"]; !ok || v != nil {
		t.Errorf("expected an explicit nil value, got %#v (present: %t)", v, ok)
	}
}

func TestParseRerender(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	for _, k := range aggregation.Kinds() {
		for i := 0; i < 100; i++ {
			r := aggtest.RandomResult(rng, k, aggtest.RandomString(rng, 6))
			first, err := Render(r).MarshalJSON()
			if err != nil {
				t.Fatalf("%s: %s", k, err)
			}
			p, err := Parse(k, r.Name(), first)
			if err != nil {
				t.Fatalf("%s: Parse(%s): %s", k, first, err)
			}
			if p.IsAbsent() != r.IsAbsent() {
				t.Fatalf("%s: absence changed for %s", k, first)
			}
			second, err := Render(p).MarshalJSON()
			if err != nil {
				t.Fatalf("%s: %s", k, err)
			}
			if diff := cmp.Diff(string(first), string(second)); diff != "" {
				t.Fatalf("%s: re-rendered document differs (-first +second):\n%s", k, diff)
			}
		}
	}
}

func TestParseSentinels(t *testing.T) {
	cases := []struct {
		kind aggregation.Kind
		doc  string
		want float64
	}{
		{aggregation.KindAvg, `{"value":null}`, math.Inf(1)},
		{aggregation.KindWeightedAvg, `{}`, math.Inf(1)},
		{aggregation.KindMin, `{"value":null,"unknown":[1,2]}`, math.Inf(1)},
		{aggregation.KindMax, `{"value":null}`, math.Inf(-1)},
		{aggregation.KindPercentiles, `{"values":{"50.0":null,"99.0":null}}`, math.Inf(1)},
	}
	for _, c := range cases {
		p, err := Parse(c.kind, "x", []byte(c.doc))
		if err != nil {
			t.Fatalf("%s %s: %s", c.kind, c.doc, err)
		}
		if !p.IsAbsent() || p.Value() != c.want {
			t.Errorf("%s %s: expected absent with sentinel %v, got absent=%t value=%v", c.kind, c.doc, c.want, p.IsAbsent(), p.Value())
		}
	}
}

func TestParseErrors(t *testing.T) {
	docs := []string{
		`{"value":`,
		`[1,2]`,
		`{"value":true}`,
		`{"value":"twelve"}`,
		`{"value":1,"value_as_string":1}`,
		`{"meta":"x","value":1}`,
		`{"values":{}}`,
		`{"values":[1]}`,
		`{"values":{"50.0":1,"99.0":null}}`,
		`{"values":{"median":1}}`,
		`{"values":{"50.0":true}}`,
		`{"values":{"50.0":1,"50.0_as_string":1}}`,
		`{"values":{"50.0":1,"50":2}}`,
	}
	for _, doc := range docs {
		_, err := Parse(aggregation.KindSum, "x", []byte(doc))
		if err == nil {
			t.Errorf("%s: expected an error", doc)
			continue
		}
		if code := errors.Code(err); code != http.StatusBadRequest {
			t.Errorf("%s: expected status %d, got %d", doc, http.StatusBadRequest, code)
		}
	}
}

func TestParsePercentiles(t *testing.T) {
	doc := `{"meta":{"unit":"ms"},"values":{"50.0":2.5,"50.0_as_string":"2.50","99.9":"Infinity"}}`
	p, err := Parse(aggregation.KindPercentiles, "latency", []byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if p.IsAbsent() {
		t.Fatalf("expected a value")
	}
	if diff := cmp.Diff([]float64{50, 99.9}, p.Percents()); diff != "" {
		t.Fatalf("percents mismatch (-want +got):\n%s", diff)
	}
	if p.Value() != 2.5 || !math.IsInf(p.Percentile(99.9), 1) {
		t.Fatalf("expected median 2.5 and an infinite p99.9, got %v and %v", p.Value(), p.Percentile(99.9))
	}
	if s, ok := p.PercentileAsString(50); !ok || s != "2.50" {
		t.Fatalf("expected 2.50, got %q (%t)", s, ok)
	}
	if _, ok := p.PercentileAsString(99.9); ok {
		t.Fatalf("expected no string for p99.9")
	}
	b, err := Render(p).MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(doc, string(b)); diff != "" {
		t.Errorf("re-rendered document differs (-want +got):\n%s", diff)
	}
}
