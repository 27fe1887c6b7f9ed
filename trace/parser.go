package trace

import (
	"bufio"
	"io"
	"strings"
)

// CommentPrefix starts a line that is skipped.
const CommentPrefix = "%"

// Parse decodes one trace line. It reports false for comments and blank
// lines, which are not instructions. Unrecognized commands are decoded with
// OpUnknown. Operands beyond MaxOperands are dropped.
func Parse(line string) (Instruction, bool) {
	if strings.HasPrefix(line, CommentPrefix) {
		return Instruction{}, false
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Instruction{}, false
	}

	inst := Instruction{
		Op:       mnemonics[fields[0]],
		Mnemonic: fields[0],
	}

	for i, f := range fields[1:] {
		if i >= MaxOperands {
			break
		}

		inst.Operands[i] = Operand{Text: f}
	}

	return inst, true
}

// A Reader produces the instructions of a trace, one line at a time.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader creates a Reader that reads from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Next returns the next instruction, skipping comments and blank lines. It
// returns io.EOF once the trace is exhausted.
func (r *Reader) Next() (Instruction, error) {
	for r.scanner.Scan() {
		r.line++

		inst, ok := Parse(r.scanner.Text())
		if !ok {
			continue
		}

		inst.Line = r.line

		return inst, nil
	}

	if err := r.scanner.Err(); err != nil {
		return Instruction{}, err
	}

	return Instruction{}, io.EOF
}
