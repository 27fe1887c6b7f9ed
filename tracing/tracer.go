// Package tracing turns what the simulated components report into output
// traces, counters, and database records.
package tracing

import (
	"github.com/sarchlab/memsym/cpu"
	"github.com/sarchlab/memsym/mem/vm"
	"github.com/sarchlab/memsym/mem/vm/mmu"
	"github.com/sarchlab/memsym/mem/vm/tlb"
	"github.com/sarchlab/memsym/sim"
)

// A Line is an item that appears in the output trace.
type Line interface {
	ProcessID() vm.PID
	Message() string
}

// A Tracer is notified about everything the core reports.
type Tracer interface {
	// Record is called when an instruction produces a line of output.
	Record(r cpu.Record)

	// Translate is called for every step of an address translation.
	Translate(e mmu.Event)

	// Evict is called when a valid TLB entry is replaced.
	Evict(e tlb.Entry)
}

// CollectTrace lets the tracer receive the reports of a domain.
func CollectTrace(domain sim.Hookable, tracer Tracer) {
	domain.AcceptHook(&traceHook{t: tracer})
}

type traceHook struct {
	t Tracer
}

// Func calls the tracer interfaces when the hook is triggered
func (h *traceHook) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case cpu.HookPosRecord:
		h.t.Record(ctx.Item.(cpu.Record))
	case mmu.HookPosTranslation:
		h.t.Translate(ctx.Item.(mmu.Event))
	case tlb.HookPosEvict:
		h.t.Evict(ctx.Item.(tlb.Entry))
	}
}
