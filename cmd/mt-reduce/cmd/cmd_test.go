package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/grafana/metricreduce/pkg/aggregation"
)

const testPartials = `
[[partial]]
kind = "sum"
name = "bytes"
format = "decimal:#,##0.00"
values = [1000.0, 0.125]
[partial.meta]
shard = 1

[[partial]]
kind = "avg"
name = "latency"
values = []

[[partial]]
kind = "sum"
name = "bytes"
format = "decimal:#,##0.00"
values = [234.5, nan]
[partial.meta]
shard = 2
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "mt-reduce")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "partials.toml")
	if err := ioutil.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	out = &buf
	defer func() { out = os.Stdout }()
	rootCmd.SetArgs(append([]string{"--conf", "/nonexistent/metricreduce.ini", "--log-level", "error"}, args...))
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("mt-reduce %s: %s", strings.Join(args, " "), err)
	}
	return buf.String()
}

func TestLoadAndGroupPartials(t *testing.T) {
	results, err := loadPartials(writeTemp(t, testPartials))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 partials, got %d", len(results))
	}
	groups, err := groupPartials(results)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, g := range groups {
		got = append(got, fmt.Sprintf("%s:%s:%d", g.Zero.Kind(), g.Zero.Name(), len(g.Results)))
	}
	want := []string{"sum:bytes:2", "avg:latency:1"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("groups mismatch (-want +got):\n%s", diff)
	}
	if !groups[1].Results[0].IsAbsent() {
		t.Errorf("an avg over no values must be absent")
	}
}

func TestBuildErrors(t *testing.T) {
	cases := []partialSpec{
		{Kind: "median", Name: "x"},
		{Kind: "sum"},
		{Kind: "sum", Name: "x", Format: "printf:%d"},
		{Kind: "sum", Name: "x", Weights: []float64{1}},
		{Kind: "weighted_avg", Name: "x", Values: []float64{1, 2}, Weights: []float64{1}},
		{Kind: "sum", Name: "x", Percents: []float64{50}},
		{Kind: "percentiles", Name: "x", Percents: []float64{50, 50}},
	}
	for _, c := range cases {
		if _, err := c.build(); err == nil {
			t.Errorf("%+v: expected an error", c)
		}
	}
}

func TestReduceCommand(t *testing.T) {
	got := run(t, "reduce", "-i", writeTemp(t, testPartials))
	want := `{"bytes":{"meta":{"shard":2},"value":1234.625,"value_as_string":"1,234.62"},"latency":{"value":null}}` + "\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeDecodeCommands(t *testing.T) {
	const sums = `
[[partial]]
kind = "weighted_avg"
name = "load"
format = "decimal:0.0"
values = [1.0, 2.0]
weights = [1.0, 3.0]

[[partial]]
kind = "weighted_avg"
name = "load"
format = "decimal:0.0"
values = [4.0]
weights = [4.0]
`
	encoded := strings.Fields(run(t, "encode", "-i", writeTemp(t, sums)))
	if len(encoded) != 2 {
		t.Fatalf("expected 2 payloads, got %d", len(encoded))
	}
	got := run(t, append([]string{"decode"}, encoded...)...)
	// (1*1 + 2*3 + 4*4) / (1+3+4)
	want := `{"load":{"value":2.875,"value_as_string":"2.9"}}` + "\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRejectsMixedMetrics(t *testing.T) {
	encoded := strings.Fields(run(t, "encode", "-i", writeTemp(t, testPartials)))
	rootCmd.SetArgs(append([]string{"--conf", "/nonexistent/metricreduce.ini", "--log-level", "error", "decode"}, encoded...))
	out = ioutil.Discard
	defer func() { out = os.Stdout }()
	if err := rootCmd.Execute(); !errors.Is(err, aggregation.ErrKindMismatch) {
		t.Fatalf("expected a kind mismatch reducing a sum with an avg, got %v", err)
	}
}

func TestReducePercentiles(t *testing.T) {
	const partials = `
[[partial]]
kind = "percentiles"
name = "latency"
format = "decimal:0.0"
percents = [50.0]
values = [4.0, 4.0]

[[partial]]
kind = "percentiles"
name = "latency"
format = "decimal:0.0"
percents = [50.0]
values = [4.0]
`
	got := run(t, "reduce", "-i", writeTemp(t, partials))
	want := `{"latency":{"values":{"50.0":4,"50.0_as_string":"4.0"}}}` + "\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestReportError(t *testing.T) {
	cases := []struct {
		err  error
		msg  string
		code int
	}{
		{fmt.Errorf("partial 1: %w", aggregation.ErrEmptyInput), "Error: partial 1: reduce: no results to reduce (status 400)\n", 2},
		{errors.New("disk full"), "Error: disk full (status 500)\n", 1},
	}
	for _, c := range cases {
		var buf bytes.Buffer
		if code := reportError(&buf, c.err); code != c.code {
			t.Errorf("%q: expected exit code %d, got %d", c.err, c.code, code)
		}
		if diff := cmp.Diff(c.msg, buf.String()); diff != "" {
			t.Errorf("%q: message mismatch (-want +got):\n%s", c.err, diff)
		}
	}
}
