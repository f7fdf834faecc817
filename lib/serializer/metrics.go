package serializer

import (
	"fmt"
	"io"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// opMetrics records per operation counters into a caller supplied set. A nil *opMetrics records nothing.
type opMetrics struct {
	set    *metrics.Set
	format string
}

func newOpMetrics(set *metrics.Set, format Format) *opMetrics {
	if set == nil {
		return nil
	}
	return &opMetrics{set: set, format: string(format)}
}

// observe counts one finished operation
func (m *opMetrics) observe(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	labels := fmt.Sprintf(`{op=%q,format=%q}`, op, m.format)
	m.set.GetOrCreateCounter("dpersist_serializer_ops_total" + labels).Inc()
	if err != nil {
		m.set.GetOrCreateCounter("dpersist_serializer_errors_total" + labels).Inc()
	}
	m.set.GetOrCreateHistogram("dpersist_serializer_duration_seconds" + labels).UpdateDuration(start)
}

// countWriter wraps w so that written bytes are added to the bytes counter
func (m *opMetrics) countWriter(w io.Writer) io.Writer {
	if m == nil {
		return w
	}
	return &countingWriter{w: w, c: m.set.GetOrCreateCounter(fmt.Sprintf(`dpersist_serializer_bytes_written_total{format=%q}`, m.format))}
}

type countingWriter struct {
	w io.Writer
	c *metrics.Counter
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.c.Add(n)
	return n, err
}

// Flush keeps the wrapped stream flushable
func (cw *countingWriter) Flush() error {
	if f, ok := cw.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}
