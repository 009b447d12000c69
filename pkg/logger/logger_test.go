package logger

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	log "github.com/sirupsen/logrus"
)

func TestFormat(t *testing.T) {
	ts := time.Date(2020, 5, 17, 10, 4, 5, 123000000, time.UTC)
	cases := []struct {
		title string
		f     *TextFormatter
		entry *log.Entry
		want  string
	}{
		{
			title: "plain message",
			f:     &TextFormatter{},
			entry: &log.Entry{Time: ts, Level: log.InfoLevel, Message: "started"},
			want:  "2020-05-17 10:04:05.123 [INFO] started\n",
		},
		{
			title: "module and sorted fields",
			f:     &TextFormatter{DisableTimestamp: true, ModuleName: "mt-reduce"},
			entry: &log.Entry{
				Level:   log.DebugLevel,
				Message: "reduced",
				Data:    log.Fields{"partials": 12, "name": "bytes.sum", "took": 1500 * time.Microsecond},
			},
			want: "[DEBUG] [mt-reduce] reduced name=bytes.sum partials=12 took=1.5ms\n",
		},
		{
			title: "quoted values",
			f:     &TextFormatter{DisableTimestamp: true},
			entry: &log.Entry{
				Level:   log.ErrorLevel,
				Message: "decode failed",
				Data:    log.Fields{"err": errors.New("codec: payload ends prematurely"), "file": ""},
			},
			want: "[ERROR] decode failed err=\"codec: payload ends prematurely\" file=\"\"\n",
		},
	}
	for _, c := range cases {
		got, err := c.f.Format(c.entry)
		if err != nil {
			t.Fatalf("%s: %s", c.title, err)
		}
		if diff := cmp.Diff(c.want, string(got)); diff != "" {
			t.Errorf("%s: mismatch (-want +got):\n%s", c.title, diff)
		}
	}
}

func TestSetup(t *testing.T) {
	defer log.SetLevel(log.GetLevel())
	defer log.SetOutput(log.StandardLogger().Out)

	var buf bytes.Buffer
	if err := Setup(&buf, "warn", "test"); err != nil {
		t.Fatal(err)
	}
	log.Info("hidden")
	log.Warn("shown")
	if !bytes.Contains(buf.Bytes(), []byte("[WARNING] [test] shown\n")) || bytes.Contains(buf.Bytes(), []byte("hidden")) {
		t.Errorf("unexpected output %q", buf.String())
	}

	if err := Setup(&buf, "loud", "test"); err == nil {
		t.Errorf("expected an error for an unknown level")
	}
}
