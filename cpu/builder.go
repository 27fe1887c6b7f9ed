package cpu

import (
	"github.com/sarchlab/memsym/sim"
)

// A Builder can build cores.
type Builder struct {
	clock *sim.Clock
	tlb   TLB
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{}
}

// WithClock sets the instruction clock. The core advances it once per
// instruction.
func (b Builder) WithClock(clock *sim.Clock) Builder {
	b.clock = clock
	return b
}

// WithTLB sets the TLB that the core translates through. The TLB must tell
// time with the same clock.
func (b Builder) WithTLB(tlb TLB) Builder {
	b.tlb = tlb
	return b
}

// Build creates a core.
func (b Builder) Build(name string) *Core {
	if b.clock == nil {
		panic("a core requires a clock")
	}

	if b.tlb == nil {
		panic("a core requires a TLB")
	}

	c := &Core{}
	c.ComponentBase = sim.NewComponentBase(name)
	c.clock = b.clock
	c.tlb = b.tlb
	c.state = Unconfigured

	c.tlb.AcceptHook(c)

	return c
}
