package cpu

import (
	"errors"
	"fmt"

	"github.com/sarchlab/memsym/mem/mem"
	"github.com/sarchlab/memsym/mem/vm"
	"github.com/sarchlab/memsym/mem/vm/mmu"
	"github.com/sarchlab/memsym/trace"
)

func (c *Core) fail(err error, format string, args ...any) error {
	c.logErr(err, format, args...)
	return err
}

func (c *Core) invalidRegister(name string) error {
	return c.fail(
		fmt.Errorf("%w %q", ErrInvalidRegisterOperand, name),
		"Error: invalid register operand %s", name)
}

func (c *Core) define(inst trace.Instruction) error {
	if c.state != Unconfigured {
		return c.fail(ErrConfigurationRepeated,
			"Error: multiple calls to define in the same trace")
	}

	g := vm.Geometry{
		OffsetBits: int(inst.Operand(0).Int()),
		PFNBits:    int(inst.Operand(1).Int()),
		VPNBits:    int(inst.Operand(2).Int()),
	}

	if err := g.Validate(); err != nil {
		return c.fail(err, "Error: invalid memory geometry")
	}

	c.geometry = g
	c.memory = mem.NewStorage(g.PhysWords())
	c.tlb.Reset()
	c.context.resetRegisters()
	c.mmu = mmu.MakeBuilder().
		WithGeometry(g).
		WithTLB(c.tlb).
		Build("MMU")
	c.mmu.AcceptHook(c)
	c.state = Running

	c.log("Memory instantiation complete. OFF bits: %d. PFN bits: %d. VPN bits: %d",
		g.OffsetBits, g.PFNBits, g.VPNBits)

	return nil
}

func (c *Core) ctxSwitch(inst trace.Instruction) error {
	target := inst.Operand(0).Int()
	if target < 0 || target >= vm.NumProcesses {
		return c.fail(
			fmt.Errorf("%w: %d", ErrInvalidProcessID, target),
			"Invalid context switch to process %d", target)
	}

	c.context.switchTo(vm.PID(target))
	c.log("Switched execution context to process: %d", target)

	return nil
}

// access translates a virtual address of the current process and checks that
// the physical address is backed by memory.
func (c *Core) access(vAddrOperand trace.Operand) (uint64, error) {
	vAddr := uint64(vAddrOperand.Word())

	pAddr, err := c.mmu.Translate(c.context.PID(), vAddr)
	if err != nil {
		return 0, err
	}

	if pAddr >= c.memory.Capacity() {
		return 0, c.fail(
			fmt.Errorf("%w: %d", mem.ErrAddressOutOfRange, pAddr),
			"Error: physical address %d out of range", pAddr)
	}

	return pAddr, nil
}

func (c *Core) load(inst trace.Instruction) error {
	regName := inst.Operand(0).Text
	src := inst.Operand(1)

	if src.IsImmediate() {
		reg, ok := c.context.register(regName)
		if !ok {
			return c.invalidRegister(regName)
		}

		*reg = src.Immediate()
		c.log("Loaded immediate %d into register %s", *reg, regName)

		return nil
	}

	pAddr, err := c.access(src)
	if err != nil {
		return err
	}

	value, err := c.memory.Read(pAddr)
	if err != nil {
		return err
	}

	reg, ok := c.context.register(regName)
	if !ok {
		return c.invalidRegister(regName)
	}

	*reg = value
	c.log("Loaded value of location %s (%d) into register %s",
		src.Text, value, regName)

	return nil
}

func (c *Core) store(inst trace.Instruction) error {
	dst := inst.Operand(0)
	src := inst.Operand(1)

	var value uint32
	if src.IsImmediate() {
		value = src.Immediate()
	} else {
		reg, ok := c.context.register(src.Text)
		if !ok {
			return c.invalidRegister(dst.Text)
		}

		value = *reg
	}

	pAddr, err := c.access(dst)
	if err != nil {
		return err
	}

	if err := c.memory.Write(pAddr, value); err != nil {
		return err
	}

	if src.IsImmediate() {
		c.log("Stored immediate %d into location %s", value, dst.Text)
	} else {
		c.log("Stored value of register %s (%d) into location %s",
			src.Text, value, dst.Text)
	}

	return nil
}

func (c *Core) add() error {
	r1, _ := c.context.register("r1")
	r2, _ := c.context.register("r2")

	prev := *r1
	*r1 += *r2

	c.log("Added contents of registers r1 (%d) and r2 (%d). Result: %d",
		prev, *r2, *r1)

	return nil
}

func (c *Core) mapPage(inst trace.Instruction) error {
	vpn := uint64(inst.Operand(0).Word())
	pfn := uint64(inst.Operand(1).Word())

	c.mmu.Map(c.context.PID(), vpn, pfn)
	c.log("Mapped virtual page number %d to physical frame number %d", vpn, pfn)

	return nil
}

func (c *Core) unmapPage(inst trace.Instruction) error {
	vpn := uint64(inst.Operand(0).Word())

	c.mmu.Unmap(c.context.PID(), vpn)
	c.log("Unmapped virtual page number %d", vpn)

	return nil
}

func (c *Core) pInspect(inst trace.Instruction) error {
	vpn := uint64(inst.Operand(0).Word())
	page := c.mmu.PageTable().Entry(c.context.PID(), vpn)

	c.log("Inspected page table entry %d. Physical frame number: %d. Valid: %d",
		vpn, page.PFN, boolToInt(page.Valid))

	return nil
}

func (c *Core) tInspect(inst trace.Instruction) error {
	slot := inst.Operand(0).Int()

	entry, _ := c.tlb.Entry(clampSlot(slot))

	c.log("Inspected TLB entry %d. VPN: %d. PFN: %d. Valid: %d. PID: %d. Timestamp: %d",
		slot, entry.VPN, entry.PFN, boolToInt(entry.Valid), entry.PID,
		entry.Timestamp)

	return nil
}

func (c *Core) lInspect(inst trace.Instruction) error {
	pAddr := uint64(inst.Operand(0).Word())

	c.log("Inspected physical location %d. Value: %d",
		pAddr, c.memory.Peek(pAddr))

	return nil
}

func (c *Core) rInspect(inst trace.Instruction) error {
	regName := inst.Operand(0).Text

	reg, ok := c.context.register(regName)
	if !ok {
		return c.invalidRegister(regName)
	}

	c.log("Inspected register %s. Content: %d", regName, *reg)

	return nil
}

// clampSlot maps slot numbers that do not fit an int to -1, which no TLB
// holds.
func clampSlot(slot int64) int {
	if slot < 0 || slot > int64(^uint32(0)) {
		return -1
	}

	return int(slot)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}

// IsFatal tells if err halted a core.
func IsFatal(err error) bool {
	var haltErr *HaltError
	return errors.As(err, &haltErr)
}
