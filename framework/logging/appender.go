package logging

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("logging: appender closed")

// Event is one log record handed to an appender.
type Event struct {
	Time    time.Time
	Level   string
	Logger  string
	Message string
	Fields  map[string]any
}

// Formatter renders an event as a single line without the trailing newline.
type Formatter interface {
	Format(Event) string
}

// Appender is a log sink.
type Appender interface {
	Write(Event) error
	SetFormatter(Formatter)
	Close() error
}

// Simple renders "time [LEVEL] logger: message key=value ..." with fields
// sorted by key.
type Simple struct {
	// TimeFormat defaults to time.RFC3339.
	TimeFormat string
}

func (s Simple) Format(e Event) string {
	layout := s.TimeFormat
	if layout == "" {
		layout = time.RFC3339
	}

	var b strings.Builder
	b.WriteString(e.Time.Format(layout))
	b.WriteString(" [")
	b.WriteString(e.Level)
	b.WriteString("] ")
	if e.Logger != "" {
		b.WriteString(e.Logger)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Fields[k])
	}
	return b.String()
}

// Output writes formatted events to an io.Writer, one per line.
type Output struct {
	mu     sync.Mutex
	w      io.Writer
	f      Formatter
	closed bool
}

// NewOutput returns an Output using the Simple formatter.
func NewOutput(w io.Writer) *Output {
	return &Output{w: w, f: Simple{}}
}

func (o *Output) Write(e Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}
	_, err := io.WriteString(o.w, o.f.Format(e)+"\n")
	return err
}

func (o *Output) SetFormatter(f Formatter) {
	o.mu.Lock()
	o.f = f
	o.mu.Unlock()
}

// Close stops the appender. The underlying writer is left open.
func (o *Output) Close() error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	return nil
}
