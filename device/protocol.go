// Package device speaks the line protocol of the LED matrix firmware:
// one instruction per line, an integer opcode followed by
// comma-separated integer arguments. Display wraps an open link with
// frame diffing so only changed cells travel over the wire.
package device

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Op identifies one firmware instruction.
type Op int

// Opcodes understood by the matrix firmware.
const (
	OpSetPixel   Op = 1 // x, y, r, g, b
	OpClear      Op = 2 // no arguments
	OpDimensions Op = 3 // no arguments; device answers with one width,height line
	OpSetClock   Op = 4 // unix seconds
	OpSchedule   Op = 5 // unix seconds, inner opcode, inner arguments
)

// Instruction is one line of the wire protocol.
type Instruction struct {
	Op   Op
	Args []int64
}

// Marshal renders the instruction as a newline-terminated protocol
// line. Zero-argument instructions carry no trailing comma; parsers on
// both ends tolerate one for compatibility with older senders.
func (in Instruction) Marshal() []byte {
	buf := make([]byte, 0, 8+12*len(in.Args))
	buf = strconv.AppendInt(buf, int64(in.Op), 10)
	for _, arg := range in.Args {
		buf = append(buf, ',')
		buf = strconv.AppendInt(buf, arg, 10)
	}
	return append(buf, '\n')
}

// String renders the instruction without the line terminator.
func (in Instruction) String() string {
	b := in.Marshal()
	return string(b[:len(b)-1])
}

// ParseInstruction decodes one protocol line. Blank fields are skipped,
// which covers the trailing comma some senders emit after zero-argument
// opcodes.
func ParseInstruction(line string) (Instruction, error) {
	line = strings.TrimSpace(strings.TrimRight(line, "\r\n"))
	if line == "" {
		return Instruction{}, fmt.Errorf("empty instruction")
	}
	fields := strings.Split(line, ",")
	opRaw := strings.TrimSpace(fields[0])
	op, err := strconv.ParseInt(opRaw, 10, 64)
	if err != nil {
		return Instruction{}, fmt.Errorf("opcode %q: %w", opRaw, err)
	}
	var args []int64
	for _, field := range fields[1:] {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return Instruction{}, fmt.Errorf("argument %q: %w", field, err)
		}
		args = append(args, v)
	}
	return Instruction{Op: Op(op), Args: args}, nil
}

// Delayed wraps in into an op 5 instruction the device executes at the
// given instant, truncated to whole seconds.
func Delayed(at time.Time, in Instruction) Instruction {
	args := make([]int64, 0, 2+len(in.Args))
	args = append(args, at.Unix(), int64(in.Op))
	args = append(args, in.Args...)
	return Instruction{Op: OpSchedule, Args: args}
}

// Unwrap splits an op 5 instruction into its execution instant and the
// inner instruction it carries.
func (in Instruction) Unwrap() (time.Time, Instruction, error) {
	if in.Op != OpSchedule {
		return time.Time{}, Instruction{}, fmt.Errorf("op %d is not a scheduled instruction", in.Op)
	}
	if len(in.Args) < 2 {
		return time.Time{}, Instruction{}, fmt.Errorf("scheduled instruction needs a timestamp and an opcode, got %d fields", len(in.Args))
	}
	inner := Instruction{Op: Op(in.Args[1]), Args: in.Args[2:]}
	return time.Unix(in.Args[0], 0).UTC(), inner, nil
}
