// Package trace decodes the instruction traces that drive the simulator.
package trace

import "strings"

// An Opcode identifies the command of an instruction.
type Opcode int

// The commands a trace can hold.
const (
	OpUnknown Opcode = iota
	OpDefine
	OpCtxSwitch
	OpLoad
	OpStore
	OpAdd
	OpMap
	OpUnmap
	OpPInspect
	OpTInspect
	OpLInspect
	OpRInspect
)

var mnemonics = map[string]Opcode{
	"define":    OpDefine,
	"ctxswitch": OpCtxSwitch,
	"load":      OpLoad,
	"store":     OpStore,
	"add":       OpAdd,
	"map":       OpMap,
	"unmap":     OpUnmap,
	"pinspect":  OpPInspect,
	"tinspect":  OpTInspect,
	"linspect":  OpLInspect,
	"rinspect":  OpRInspect,
}

func (op Opcode) String() string {
	for name, o := range mnemonics {
		if o == op {
			return name
		}
	}

	return "unknown"
}

// MaxOperands is the largest number of operands any command takes.
const MaxOperands = 3

// An Operand is one argument of an instruction, kept as written.
type Operand struct {
	Text string
}

// IsImmediate tells if the operand is an immediate value, written with a
// leading '#'.
func (o Operand) IsImmediate() bool {
	return strings.HasPrefix(o.Text, "#")
}

// Int returns the numeric value of the operand. The text is read like C's
// atoi: an optional sign followed by the leading digits. Text without leading
// digits, including immediates such as "#5", is zero.
func (o Operand) Int() int64 {
	return atoi(o.Text)
}

// Word returns the numeric value truncated to 32 bits, so negative values
// wrap around.
func (o Operand) Word() uint32 {
	return uint32(o.Int())
}

// Immediate returns the value written after the leading '#', truncated to 32
// bits. Operands that are not immediates read as zero.
func (o Operand) Immediate() uint32 {
	if !o.IsImmediate() {
		return 0
	}

	return uint32(atoi(o.Text[1:]))
}

// An Instruction is one decoded trace line.
type Instruction struct {
	Op       Opcode
	Mnemonic string
	Operands [MaxOperands]Operand
	Line     int
}

// Operand returns the i-th operand. Missing operands are empty.
func (inst Instruction) Operand(i int) Operand {
	if i < 0 || i >= MaxOperands {
		return Operand{}
	}

	return inst.Operands[i]
}

func (inst Instruction) String() string {
	parts := []string{inst.Mnemonic}
	for _, o := range inst.Operands {
		if o.Text == "" {
			break
		}

		parts = append(parts, o.Text)
	}

	return strings.Join(parts, " ")
}

const atoiLimit = 1 << 40

func atoi(s string) int64 {
	s = strings.TrimLeft(s, " \t\n\v\f\r")

	negative := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		negative = s[0] == '-'
		s = s[1:]
	}

	var n int64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}

		if n < atoiLimit {
			n = n*10 + int64(c-'0')
		}
	}

	if negative {
		return -n
	}

	return n
}
