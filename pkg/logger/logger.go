// Package logger provides the log line format and setup shared by the
// metricreduce tools, on top of github.com/sirupsen/logrus.
package logger

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const defaultTimestampFormat = "2006-01-02 15:04:05.000"

// TextFormatter writes one line per entry:
//
//	<timestamp> [LEVEL] [module] message key=value key=value
//
// with the fields sorted by key.
type TextFormatter struct {
	// Disable timestamp logging. useful when output is redirected to logging
	// system that already adds timestamps
	DisableTimestamp bool

	// Timestamp format to use for display when a full timestamp is printed
	TimestampFormat string

	// The name of the module, printed before the message if not empty.
	ModuleName string
}

// Format renders a single log entry.
func (f *TextFormatter) Format(entry *log.Entry) ([]byte, error) {
	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b := entry.Buffer
	if b == nil {
		b = &bytes.Buffer{}
	}

	if !f.DisableTimestamp {
		format := f.TimestampFormat
		if format == "" {
			format = defaultTimestampFormat
		}
		b.WriteString(entry.Time.Format(format))
		b.WriteByte(' ')
	}

	b.WriteByte('[')
	b.WriteString(strings.ToUpper(entry.Level.String()))
	b.WriteString("] ")

	if f.ModuleName != "" {
		b.WriteByte('[')
		b.WriteString(f.ModuleName)
		b.WriteString("] ")
	}

	b.WriteString(entry.Message)
	for _, key := range keys {
		b.WriteByte(' ')
		b.WriteString(key)
		b.WriteByte('=')
		appendValue(b, entry.Data[key])
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

func needsQuoting(text string) bool {
	if len(text) == 0 {
		return true
	}
	for _, ch := range text {
		if !((ch >= 'a' && ch <= 'z') ||
			(ch >= 'A' && ch <= 'Z') ||
			(ch >= '0' && ch <= '9') ||
			ch == '-' || ch == '.' || ch == '_') {
			return true
		}
	}
	return false
}

func appendValue(b *bytes.Buffer, value interface{}) {
	var s string
	switch value := value.(type) {
	case string:
		s = value
	case error:
		s = value.Error()
	case time.Duration:
		s = value.String()
	default:
		fmt.Fprint(b, value)
		return
	}
	if needsQuoting(s) {
		fmt.Fprintf(b, "%q", s)
		return
	}
	b.WriteString(s)
}

// Setup points the standard logrus logger at out, formatted by a
// TextFormatter for module, at the named level ("debug", "info", ...).
func Setup(out io.Writer, level, module string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetOutput(out)
	log.SetFormatter(&TextFormatter{ModuleName: module})
	log.SetLevel(lvl)
	return nil
}
