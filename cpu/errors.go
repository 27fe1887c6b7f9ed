package cpu

import (
	"errors"
	"fmt"

	"github.com/sarchlab/memsym/sim"
	"github.com/sarchlab/memsym/trace"
)

// Errors that halt the core. Each of them is fatal: the instruction that
// raised it is logged and no further instruction is executed.
var (
	ErrConfigurationMissing   = errors.New("instruction before define")
	ErrConfigurationRepeated  = errors.New("define repeated")
	ErrInvalidProcessID       = errors.New("invalid process id")
	ErrInvalidRegisterOperand = errors.New("invalid register operand")
)

// ErrHalted is returned when instructions are issued to a halted core.
var ErrHalted = errors.New("core is halted")

// A HaltError tells which instruction stopped the core and why.
type HaltError struct {
	Inst trace.Instruction
	Time sim.VTime
	Err  error
}

func (e *HaltError) Error() string {
	return fmt.Sprintf("line %d %q at time %d: %v",
		e.Inst.Line, e.Inst.String(), e.Time, e.Err)
}

func (e *HaltError) Unwrap() error {
	return e.Err
}
