package stats

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"
)

var errFmtMetricExists = "fatal: metric %q already exists as type %T"

var registry = NewRegistry()

type GraphiteMetric interface {
	// Report the measurements in graphite format and reset measurements for the next interval if needed
	ReportGraphite(prefix []byte, buf []byte, now time.Time) []byte
}

// Registry tracks metrics by name. Names do not include a prefix.
type Registry struct {
	sync.Mutex
	metrics map[string]GraphiteMetric
}

func NewRegistry() *Registry {
	return &Registry{
		metrics: make(map[string]GraphiteMetric),
	}
}

// getOrAdd returns the metric registered under name, registering metric if
// there is none. Asking for an existing name with another type is fatal.
func (r *Registry) getOrAdd(name string, metric GraphiteMetric) GraphiteMetric {
	r.Lock()
	defer r.Unlock()
	if existing, ok := r.metrics[name]; ok {
		if reflect.TypeOf(existing) == reflect.TypeOf(metric) {
			return existing
		}
		panic(fmt.Sprintf(errFmtMetricExists, name, existing))
	}
	r.metrics[name] = metric
	return metric
}

func (r *Registry) names() []string {
	r.Lock()
	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	r.Unlock()
	sort.Strings(names)
	return names
}

func (r *Registry) get(name string) GraphiteMetric {
	r.Lock()
	defer r.Unlock()
	return r.metrics[name]
}

func (r *Registry) Clear() {
	r.Lock()
	r.metrics = make(map[string]GraphiteMetric)
	r.Unlock()
}
