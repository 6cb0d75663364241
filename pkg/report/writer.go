package report

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
)

// Writer prints results as they are recorded and a summary on Flush.
type Writer struct {
	out       io.Writer
	junitPath string
	now       func() time.Time

	started time.Time
	summary Summary
}

// Option configures a Writer.
type Option func(*Writer)

// WithOutput sets the writer results are printed to. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(wr *Writer) { wr.out = w }
}

// WithJUnit also writes a JUnit XML report to path on Flush.
func WithJUnit(path string) Option {
	return func(wr *Writer) { wr.junitPath = path }
}

// NewWriter creates a result writer. Without options it prints to stdout.
func NewWriter(opts ...Option) *Writer {
	w := &Writer{
		out: os.Stdout,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.started = w.now()
	w.summary.RunID = uuid.NewString()
	return w
}

// Record adds a result and prints one line for it.
func (w *Writer) Record(r Result) {
	w.summary.add(r)

	fmt.Fprintf(w.out, "%-7s %s (%s)\n", label(r.Status), r.Name, r.Duration.Round(time.Millisecond))
	if r.Passed() {
		return
	}
	if r.Message != "" {
		fmt.Fprintf(w.out, "        %s\n", r.Message)
	}
	for _, line := range r.Output {
		fmt.Fprintf(w.out, "        | %s\n", line)
	}
}

// Flush prints the summary, writes the JUnit report if configured and
// returns the summary.
func (w *Writer) Flush() (*Summary, error) {
	summary := w.summary
	summary.Duration = w.now().Sub(w.started)

	fmt.Fprintf(w.out, "\nTests: %d passed, %d failed, %d timed out, %d errors, %d total (%s)\n",
		summary.Passed, summary.Failed, summary.TimedOut, summary.Errored, summary.Total,
		summary.Duration.Round(time.Millisecond))

	if w.junitPath != "" {
		if err := WriteJUnit(w.junitPath, &summary); err != nil {
			return &summary, err
		}
	}
	return &summary, nil
}

func label(s Status) string {
	switch s {
	case StatusPassed:
		return "PASS"
	case StatusFailed:
		return "FAIL"
	case StatusTimedOut:
		return "TIMEOUT"
	default:
		return "ERROR"
	}
}
