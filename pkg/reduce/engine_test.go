package reduce

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"testing"
	"time"

	"github.com/grafana/metricreduce/pkg/aggregation"
	"github.com/grafana/metricreduce/pkg/aggregation/aggtest"
	"github.com/grafana/metricreduce/pkg/codec"
	errs "github.com/grafana/metricreduce/pkg/errors"
	"github.com/grafana/metricreduce/pkg/format"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEngineReduce(t *testing.T) {
	e := NewEngine(4)
	f := format.MustDecimal("0.00")

	Convey("When reducing partial sums", t, func() {
		in := []aggregation.Result{
			aggregation.NewSum("bytes", 1.5, f, aggregation.Metadata{"a": int64(1)}),
			aggregation.NewSum("bytes", 2.25, f, aggregation.Metadata{"a": int64(2), "b": "x"}),
			aggregation.NewSum("bytes", 3, f, nil),
		}
		out, err := e.Reduce(in, nil)
		So(err, ShouldBeNil)
		So(out.Kind(), ShouldEqual, aggregation.KindSum)
		So(out.Value(), ShouldEqual, 6.75)
		s, ok := out.ValueAsString()
		So(ok, ShouldBeTrue)
		So(s, ShouldEqual, "6.75")
		So(out.Metadata(), ShouldResemble, aggregation.Metadata{"a": int64(2), "b": "x"})

		Convey("the inputs are left alone", func() {
			So(in[0].Value(), ShouldEqual, 1.5)
			So(in[0].Metadata(), ShouldResemble, aggregation.Metadata{"a": int64(1)})
		})
	})

	Convey("When there are no partials", t, func() {
		Convey("and no zero result", func() {
			out, err := e.Reduce(nil, nil)
			So(out, ShouldBeNil)
			So(errors.Is(err, aggregation.ErrEmptyInput), ShouldBeTrue)
			So(errs.Code(err), ShouldEqual, http.StatusBadRequest)
		})
		Convey("and a zero result", func() {
			zero, err := aggregation.Empty(aggregation.KindAvg, aggregation.Common{Name: "latency"})
			So(err, ShouldBeNil)
			out, err := e.Reduce(nil, zero)
			So(err, ShouldBeNil)
			So(out, ShouldEqual, zero)
			So(out.IsAbsent(), ShouldBeTrue)
		})
	})

	Convey("When partials are of different kinds", t, func() {
		in := []aggregation.Result{
			aggregation.NewSum("x", 1, nil, nil),
			aggregation.NewWeightedAvg("x", 1, 1, nil, nil),
		}
		_, err := e.Reduce(in, aggregation.NewSum("x", 0, nil, nil))
		So(errors.Is(err, aggregation.ErrKindMismatch), ShouldBeTrue)
		So(errs.Code(err), ShouldEqual, http.StatusInternalServerError)
	})
}

func TestEngineReduceAll(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	e := NewEngine(3)

	// merged digests differ from one reduction to the next
	var kinds []aggregation.Kind
	for _, k := range aggregation.Kinds() {
		if k != aggregation.KindPercentiles {
			kinds = append(kinds, k)
		}
	}

	Convey("Given many independent groups", t, func() {
		var groups []Group
		for i := 0; i < 50; i++ {
			k := kinds[i%len(kinds)]
			name := aggtest.RandomString(rng, 6)
			groups = append(groups, Group{Results: aggtest.RandomPartials(rng, k, name, format.Raw, 1+rng.Intn(20))})
		}

		Convey("all are reduced, in order", func() {
			out, err := e.ReduceAll(context.Background(), groups)
			So(err, ShouldBeNil)
			So(out, ShouldHaveLength, len(groups))
			for i, g := range groups {
				want, err := aggregation.Reduce(g.Results)
				So(err, ShouldBeNil)
				So(aggregation.Equal(want, out[i]), ShouldBeTrue)
			}
		})

		Convey("an empty group without zero fails the whole call", func() {
			broken := append(append([]Group(nil), groups...), Group{})
			out, err := e.ReduceAll(context.Background(), broken)
			So(out, ShouldBeNil)
			So(errors.Is(err, aggregation.ErrEmptyInput), ShouldBeTrue)
		})

		Convey("a canceled context stops the reduction", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			out, err := e.ReduceAll(ctx, groups)
			So(out, ShouldBeNil)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})

	Convey("Given no groups", t, func() {
		out, err := e.ReduceAll(context.Background(), nil)
		So(err, ShouldBeNil)
		So(out, ShouldHaveLength, 0)
	})
}

func TestEngineReduceEncoded(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	e := NewEngine(1)

	Convey("Given encoded partials from several nodes", t, func() {
		partials := aggtest.RandomPartials(rng, aggregation.KindWeightedAvg, "load", format.MustDecimal("#,##0.0"), 10)
		var payloads [][]byte
		for _, p := range partials {
			b, err := codec.Encode(p)
			So(err, ShouldBeNil)
			payloads = append(payloads, b)
		}

		Convey("they reduce the same as the originals", func() {
			want, err := aggregation.Reduce(partials)
			So(err, ShouldBeNil)
			got, err := e.ReduceEncoded(payloads, nil)
			So(err, ShouldBeNil)
			So(aggregation.Equal(want, got), ShouldBeTrue)
		})

		Convey("a damaged payload is reported", func() {
			payloads[3] = payloads[3][:len(payloads[3])-2]
			_, err := e.ReduceEncoded(payloads, nil)
			So(errors.Is(err, codec.ErrTruncated), ShouldBeTrue)
			So(err.Error(), ShouldStartWith, "partial 3: ")
			So(errs.Code(err), ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestConfigValidate(t *testing.T) {
	cfg := NewConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid, got %s", err)
	}
	ctx, cancel := cfg.Context(context.Background())
	defer cancel()
	if _, ok := ctx.Deadline(); ok {
		t.Fatalf("default config should not set a deadline")
	}

	cfg.Timeout = "2min"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("2min should be a valid timeout, got %s", err)
	}
	ctx, cancel = cfg.Context(context.Background())
	defer cancel()
	deadline, ok := ctx.Deadline()
	if !ok || time.Until(deadline) > 2*time.Minute || time.Until(deadline) < time.Minute {
		t.Fatalf("expected a deadline about 2 minutes out, got %v (%t)", deadline, ok)
	}

	for _, timeout := range []string{"", "-1s", "5parsecs"} {
		cfg := NewConfig()
		cfg.Timeout = timeout
		if err := cfg.Validate(); err == nil {
			t.Errorf("expected an error for timeout %q", timeout)
		}
	}

	cfg.Concurrency = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected an error for concurrency 0")
	}
}
