// Package reduce merges the partial aggregation results that shards
// produce into final results.
package reduce

import (
	"context"
	"fmt"
	"time"

	"github.com/grafana/metricreduce/pkg/aggregation"
	"github.com/grafana/metricreduce/pkg/codec"
	"github.com/grafana/metricreduce/pkg/stats"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	// metric reduce.results is how many results were produced by reductions
	reduceResults = stats.NewCounter32("reduce.results")
	// metric reduce.errors is how many reductions failed
	reduceErrors = stats.NewCounter32("reduce.errors")
	// metric reduce.partials is how many partial results were merged
	reducePartials = stats.NewCounter32("reduce.partials")
	// metric reduce.zero is how many reductions had no partials and returned the caller's zero result
	reduceZero = stats.NewCounter32("reduce.zero")
	// metric reduce.decode_errors is how many encoded partials could not be decoded
	reduceDecodeErrors = stats.NewCounter32("reduce.decode_errors")
	// metric reduce.duration is the duration of a single reduction
	reduceDuration = stats.NewLatencyHistogram15s32("reduce.duration")
	// metric reduce.groups.inflight is how many groups ReduceAll is currently reducing
	reduceGroupsInflight = stats.NewGauge32("reduce.groups.inflight")
)

// Engine reduces groups of same-kind results. It holds no state besides its
// settings and may be shared.
type Engine struct {
	concurrency int
}

// NewEngine returns an engine that reduces at most concurrency groups at
// once in ReduceAll.
func NewEngine(concurrency int) *Engine {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Engine{concurrency: concurrency}
}

// Group is one set of partials to reduce, with the result to fall back on
// if there are none.
type Group struct {
	Results []aggregation.Result
	Zero    aggregation.Result
}

// Reduce merges results, in order, into a new result. If results is empty,
// zero is returned, or aggregation.ErrEmptyInput if zero is nil.
func (e *Engine) Reduce(results []aggregation.Result, zero aggregation.Result) (aggregation.Result, error) {
	if len(results) == 0 {
		if zero == nil {
			reduceErrors.Inc()
			return nil, aggregation.ErrEmptyInput
		}
		reduceZero.Inc()
		return zero, nil
	}

	pre := time.Now()
	out, err := aggregation.Reduce(results)
	if err != nil {
		reduceErrors.Inc()
		return nil, err
	}
	took := time.Since(pre)
	reduceDuration.Value(took)
	reducePartials.Add(len(results))
	reduceResults.Inc()
	if log.IsLevelEnabled(log.DebugLevel) {
		log.Debugf("reduce: merged %d partials of %s %q in %s", len(results), out.Kind(), out.Name(), took)
	}
	return out, nil
}

// ReduceAll reduces independent groups concurrently. Each group is folded
// sequentially. The output is in the order of groups. The first failure
// cancels the groups that have not started yet and is returned.
func (e *Engine) ReduceAll(ctx context.Context, groups []Group) ([]aggregation.Result, error) {
	out := make([]aggregation.Result, len(groups))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i := range groups {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			reduceGroupsInflight.Inc()
			defer reduceGroupsInflight.Dec()
			r, err := e.Reduce(groups[i].Results, groups[i].Zero)
			if err != nil {
				return fmt.Errorf("group %d: %w", i, err)
			}
			out[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ReduceEncoded decodes partials that were shipped by other nodes and
// reduces them.
func (e *Engine) ReduceEncoded(payloads [][]byte, zero aggregation.Result) (aggregation.Result, error) {
	results := make([]aggregation.Result, 0, len(payloads))
	for i, p := range payloads {
		r, err := codec.Decode(p)
		if err != nil {
			reduceDecodeErrors.Inc()
			return nil, fmt.Errorf("partial %d: %w", i, err)
		}
		results = append(results, r)
	}
	return e.Reduce(results, zero)
}
