package cpu

import (
	"github.com/sarchlab/memsym/mem/vm"
	"github.com/sarchlab/memsym/sim"
	"github.com/sarchlab/memsym/trace"
)

// HookPosRecord marks the core producing a line of the output trace. The hook
// item is a Record.
var HookPosRecord = &sim.HookPos{Name: "Record"}

// A Record is the outcome of one instruction.
type Record struct {
	PID  vm.PID
	Inst trace.Instruction
	Text string

	// Err is set if the instruction halted the core.
	Err error
}

// ProcessID returns the process the record is reported under.
func (r Record) ProcessID() vm.PID {
	return r.PID
}

// Message returns the text of the record.
func (r Record) Message() string {
	return r.Text
}
