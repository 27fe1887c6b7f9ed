package cpu

import (
	"github.com/sarchlab/memsym/mem/vm"
)

// Registers holds the general registers of one process.
type Registers struct {
	R1 uint32
	R2 uint32
}

// Context is the execution context: the current process and the registers of
// every process slot. Registers survive context switches.
type Context struct {
	pid  vm.PID
	regs [vm.NumProcesses]Registers
}

// PID returns the current process.
func (c *Context) PID() vm.PID {
	return c.pid
}

// Registers returns the registers of a process.
func (c *Context) Registers(pid vm.PID) Registers {
	return c.regs[pid]
}

func (c *Context) switchTo(pid vm.PID) {
	c.pid = pid
}

// register returns the named register of the current process.
func (c *Context) register(name string) (*uint32, bool) {
	switch name {
	case "r1":
		return &c.regs[c.pid].R1, true
	case "r2":
		return &c.regs[c.pid].R2, true
	default:
		return nil, false
	}
}

func (c *Context) resetRegisters() {
	c.regs = [vm.NumProcesses]Registers{}
}
