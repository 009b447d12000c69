// Package stats keeps in-process instrumentation and reports it in the
// graphite line protocol.
package stats

import (
	"io"
	"strings"
	"time"
)

// Report appends one graphite line per measurement of every registered
// metric to buf, ordered by metric name. A trailing dot is added to a
// non-empty prefix.
func Report(buf []byte, prefix string, now time.Time) []byte {
	if prefix != "" && !strings.HasSuffix(prefix, ".") {
		prefix += "."
	}
	var full []byte
	for _, name := range registry.names() {
		metric := registry.get(name)
		if metric == nil {
			continue
		}
		full = append(full[:0], prefix...)
		full = append(full, name...)
		full = append(full, '.')
		buf = metric.ReportGraphite(full, buf, now)
	}
	return buf
}

// WriteTo writes a Report to w.
func WriteTo(w io.Writer, prefix string, now time.Time) error {
	_, err := w.Write(Report(nil, prefix, now))
	return err
}

// Clear drops all registered metrics. Metrics handed out before remain
// usable but are no longer reported.
func Clear() {
	registry.Clear()
}
