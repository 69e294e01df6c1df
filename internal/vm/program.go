package vm

import (
	"encoding/binary"

	"github.com/hiperiondev/tiny/internal/config"
	"github.com/hiperiondev/tiny/internal/diagnostics"
)

// Program is the bytecode image of one state: the instruction stream,
// the interned literal pools its operands index into, and the
// function-entry table. Pools are per-state so that independent states
// compile concurrently and die with their state.
type Program struct {
	Code []byte

	// Lines maps each code byte to its source line, for diagnostics.
	Lines []int

	Numbers []float64
	Strings []string

	// FunctionPCs maps a function symbol index to the entry PC of its
	// body (first instruction of the local-slot prologue).
	FunctionPCs []int

	// File is the label of the most recent compilation.
	File string
}

func NewProgram() *Program {
	return &Program{}
}

// RegisterNumber interns value and returns its pool index. Repeated
// calls with the same value return the same index.
func (p *Program) RegisterNumber(value float64) (int, *diagnostics.Error) {
	for i, n := range p.Numbers {
		if n == value {
			return i, nil
		}
	}

	if len(p.Numbers) >= config.MaxNumbers {
		return 0, diagnostics.NewErrorAt(diagnostics.ErrR002, p.File, 0,
			"too many distinct number literals (max %d)", config.MaxNumbers)
	}

	p.Numbers = append(p.Numbers, value)
	return len(p.Numbers) - 1, nil
}

// RegisterString interns value and returns its pool index. Repeated
// calls with the same value return the same index.
func (p *Program) RegisterString(value string) (int, *diagnostics.Error) {
	for i, s := range p.Strings {
		if s == value {
			return i, nil
		}
	}

	if len(p.Strings) >= config.MaxStrings {
		return 0, diagnostics.NewErrorAt(diagnostics.ErrR002, p.File, 0,
			"too many distinct string literals (max %d)", config.MaxStrings)
	}

	p.Strings = append(p.Strings, value)
	return len(p.Strings) - 1, nil
}

// Len returns the current program length in bytes.
func (p *Program) Len() int {
	return len(p.Code)
}

func (p *Program) writeByte(b byte, line int) *diagnostics.Error {
	if len(p.Code) >= config.MaxProgramLen {
		return diagnostics.NewErrorAt(diagnostics.ErrR002, p.File, line,
			"program exceeds maximum length (%d bytes)", config.MaxProgramLen)
	}
	p.Code = append(p.Code, b)
	p.Lines = append(p.Lines, line)
	return nil
}

func (p *Program) writeOp(op Opcode, line int) *diagnostics.Error {
	return p.writeByte(byte(op), line)
}

// writeInt appends a 32-bit little-endian operand.
func (p *Program) writeInt(value int, line int) *diagnostics.Error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(int32(value)))
	for _, b := range buf {
		if err := p.writeByte(b, line); err != nil {
			return err
		}
	}
	return nil
}

// patchInt overwrites the operand at offset with value.
func (p *Program) patchInt(offset, value int) {
	binary.LittleEndian.PutUint32(p.Code[offset:offset+4], uint32(int32(value)))
}

// readInt decodes the 32-bit little-endian operand at offset.
func (p *Program) readInt(offset int) int {
	return int(int32(binary.LittleEndian.Uint32(p.Code[offset : offset+4])))
}

// lineAt returns the source line recorded for the code byte at pc.
func (p *Program) lineAt(pc int) int {
	if pc >= 0 && pc < len(p.Lines) {
		return p.Lines[pc]
	}
	return 0
}
