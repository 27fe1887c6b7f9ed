// Package cpu provides the core that interprets an instruction trace against
// the virtual memory system.
package cpu

import (
	"errors"
	"fmt"
	"io"

	"github.com/sarchlab/memsym/mem/mem"
	"github.com/sarchlab/memsym/mem/vm"
	"github.com/sarchlab/memsym/mem/vm/mmu"
	"github.com/sarchlab/memsym/mem/vm/tlb"
	"github.com/sarchlab/memsym/sim"
	"github.com/sarchlab/memsym/trace"
)

// State is the lifecycle state of a core.
type State int

// A core starts Unconfigured, becomes Running after define, and ends Halted.
const (
	Unconfigured State = iota
	Running
	Halted
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Running:
		return "running"
	case Halted:
		return "halted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// A TLB is the translation cache that the core drives.
type TLB interface {
	mmu.TLB
	sim.Hookable
	Reset()
	Entry(slot int) (tlb.Entry, bool)
}

// An InstructionSource provides instructions until it returns io.EOF.
type InstructionSource interface {
	Next() (trace.Instruction, error)
}

// Core interprets instructions one at a time. It owns all the simulated
// state: the clock, the execution context, the TLB, and, once defined, the
// physical memory and the MMU with its page tables.
type Core struct {
	*sim.ComponentBase

	clock *sim.Clock
	tlb   TLB

	state    State
	haltErr  error
	geometry vm.Geometry
	memory   *mem.Storage
	mmu      *mmu.Comp
	context  Context

	inst trace.Instruction
}

// State returns the lifecycle state.
func (c *Core) State() State {
	return c.state
}

// Now returns the clock value of the latest instruction.
func (c *Core) Now() sim.VTime {
	return c.clock.Now()
}

// Geometry returns the address geometry. It is zero until defined.
func (c *Core) Geometry() vm.Geometry {
	return c.geometry
}

// TLB returns the translation cache.
func (c *Core) TLB() TLB {
	return c.tlb
}

// MMU returns the translation engine, or nil before define.
func (c *Core) MMU() *mmu.Comp {
	return c.mmu
}

// Memory returns the physical memory, or nil before define.
func (c *Core) Memory() *mem.Storage {
	return c.memory
}

// Context returns a copy of the execution context.
func (c *Core) Context() Context {
	return c.context
}

// HaltErr returns the error that halted the core, if any.
func (c *Core) HaltErr() error {
	return c.haltErr
}

// Run executes instructions from the source until it is exhausted or an
// instruction halts the core. Reaching the end of the source is not an
// error; a halting instruction yields a *HaltError.
func (c *Core) Run(src InstructionSource) error {
	for {
		inst, err := src.Next()
		if errors.Is(err, io.EOF) {
			c.halt(nil)
			return nil
		}

		if err != nil {
			return err
		}

		if err := c.Step(inst); err != nil {
			return err
		}
	}
}

// Step advances the clock and executes one instruction.
func (c *Core) Step(inst trace.Instruction) error {
	if c.state == Halted {
		return ErrHalted
	}

	c.clock.Tick()
	c.inst = inst

	err := c.execute(inst)
	if err != nil {
		haltErr := &HaltError{Inst: inst, Time: c.clock.Now(), Err: err}
		c.halt(haltErr)

		return haltErr
	}

	return nil
}

func (c *Core) halt(err error) {
	c.state = Halted
	c.haltErr = err
}

func (c *Core) execute(inst trace.Instruction) error {
	if c.state == Unconfigured && inst.Op != trace.OpDefine {
		return c.fail(ErrConfigurationMissing,
			"Error: attempt to execute instruction before define")
	}

	switch inst.Op {
	case trace.OpDefine:
		return c.define(inst)
	case trace.OpCtxSwitch:
		return c.ctxSwitch(inst)
	case trace.OpLoad:
		return c.load(inst)
	case trace.OpStore:
		return c.store(inst)
	case trace.OpAdd:
		return c.add()
	case trace.OpMap:
		return c.mapPage(inst)
	case trace.OpUnmap:
		return c.unmapPage(inst)
	case trace.OpPInspect:
		return c.pInspect(inst)
	case trace.OpTInspect:
		return c.tInspect(inst)
	case trace.OpLInspect:
		return c.lInspect(inst)
	case trace.OpRInspect:
		return c.rInspect(inst)
	default:
		return nil
	}
}

// Func forwards what the owned MMU and TLB report to the hooks of the core,
// so that a tracer attached to the core sees every line of the trace.
func (c *Core) Func(ctx sim.HookCtx) {
	c.InvokeHook(ctx)
}

func (c *Core) log(format string, args ...any) {
	c.logErr(nil, format, args...)
}

func (c *Core) logErr(err error, format string, args ...any) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    HookPosRecord,
		Item: Record{
			PID:  c.context.PID(),
			Inst: c.inst,
			Text: fmt.Sprintf(format, args...),
			Err:  err,
		},
	})
}
