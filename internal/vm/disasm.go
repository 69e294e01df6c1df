package vm

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of the program.
func Disassemble(p *Program, name string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "== %s ==\n", name)

	offset := 0
	for offset < len(p.Code) {
		offset = disassembleInstruction(&sb, p, offset)
	}

	return sb.String()
}

func disassembleInstruction(sb *strings.Builder, p *Program, offset int) int {
	fmt.Fprintf(sb, "%04d ", offset)

	if offset > 0 && p.Lines[offset] == p.Lines[offset-1] {
		sb.WriteString("   | ")
	} else {
		fmt.Fprintf(sb, "%4d ", p.Lines[offset])
	}

	op := Opcode(p.Code[offset])
	offset++

	switch op {
	case OP_PUSH_NUMBER:
		idx := p.readInt(offset)
		if idx >= 0 && idx < len(p.Numbers) {
			fmt.Fprintf(sb, "%-14s %d (%g)\n", op, idx, p.Numbers[idx])
		} else {
			fmt.Fprintf(sb, "%-14s %d (?)\n", op, idx)
		}
		return offset + 4

	case OP_PUSH_STRING:
		idx := p.readInt(offset)
		if idx >= 0 && idx < len(p.Strings) {
			fmt.Fprintf(sb, "%-14s %d (%q)\n", op, idx, p.Strings[idx])
		} else {
			fmt.Fprintf(sb, "%-14s %d (?)\n", op, idx)
		}
		return offset + 4

	case OP_GET, OP_SET, OP_GETLOCAL, OP_SETLOCAL, OP_GOTO, OP_GOTOZ:
		fmt.Fprintf(sb, "%-14s %d\n", op, p.readInt(offset))
		return offset + 4

	case OP_CALL, OP_CALLF:
		nargs := p.readInt(offset)
		fnIdx := p.readInt(offset + 4)
		fmt.Fprintf(sb, "%-14s nargs=%d fn=%d\n", op, nargs, fnIdx)
		return offset + 8
	}

	fmt.Fprintf(sb, "%s\n", op)
	return offset
}
