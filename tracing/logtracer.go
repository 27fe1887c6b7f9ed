package tracing

import (
	"bufio"
	"fmt"
	"io"

	"github.com/sarchlab/memsym/cpu"
	"github.com/sarchlab/memsym/mem/vm/mmu"
	"github.com/sarchlab/memsym/mem/vm/tlb"
)

// LogTracer writes the output trace. Every line is prefixed with the process
// the line is reported under.
type LogTracer struct {
	w   *bufio.Writer
	err error
}

// NewLogTracer creates a LogTracer that writes to w. Call Flush once the
// simulation ends.
func NewLogTracer(w io.Writer) *LogTracer {
	return &LogTracer{w: bufio.NewWriter(w)}
}

// Record writes the line of an instruction.
func (t *LogTracer) Record(r cpu.Record) {
	t.writeLine(r)
}

// Translate writes the line of a translation step.
func (t *LogTracer) Translate(e mmu.Event) {
	t.writeLine(e)
}

// Evict does nothing. Evictions are not part of the output trace.
func (t *LogTracer) Evict(_ tlb.Entry) {}

func (t *LogTracer) writeLine(l Line) {
	if t.err != nil {
		return
	}

	_, t.err = fmt.Fprintf(t.w, "Current PID: %d. %s\n",
		l.ProcessID(), l.Message())
}

// Flush writes buffered lines to the underlying writer.
func (t *LogTracer) Flush() error {
	if t.err != nil {
		return t.err
	}

	t.err = t.w.Flush()

	return t.err
}

// Err returns the first write error, if any.
func (t *LogTracer) Err() error {
	return t.err
}
