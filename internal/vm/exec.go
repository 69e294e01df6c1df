package vm

import (
	"fmt"

	"github.com/hiperiondev/tiny/internal/diagnostics"
)

// readOperand decodes the 32-bit operand at the current pc and
// advances past it.
func (t *Thread) readOperand() (int, *diagnostics.Error) {
	prog := t.State.Prog
	if t.PC+4 > prog.Len() {
		return 0, t.runtimeError(diagnostics.ErrX005, "truncated operand at pc %d", t.PC)
	}
	v := prog.readInt(t.PC)
	t.PC += 4
	return v, nil
}

func (t *Thread) popNumber(op Opcode) (float64, *diagnostics.Error) {
	v, err := t.pop()
	if err != nil {
		return 0, err
	}
	if v.Type() != ValNumber {
		return 0, t.runtimeError(diagnostics.ErrX001,
			"%s expects numbers, got %s", op, v.Type())
	}
	return v.ToNumber(), nil
}

func (t *Thread) popBool(op Opcode) (bool, *diagnostics.Error) {
	v, err := t.pop()
	if err != nil {
		return false, err
	}
	if v.Type() != ValBool {
		return false, t.runtimeError(diagnostics.ErrX001,
			"%s expects a bool, got %s", op, v.Type())
	}
	return v.ToBool(), nil
}

// ExecuteCycle performs exactly one instruction. It returns false when
// the thread is done. A runtime fault parks the thread (pc = -1) and
// is returned; there is no catch mechanism in the language.
func (t *Thread) ExecuteCycle() (bool, error) {
	if t.PC < 0 {
		return false, nil
	}

	if err := t.executeOne(); err != nil {
		t.PC = -1
		return false, err
	}

	// Collect only between instructions.
	if t.numObjects >= t.maxNumObjects {
		t.collectGarbage()
	}

	return true, nil
}

func (t *Thread) executeOne() *diagnostics.Error {
	prog := t.State.Prog
	if t.PC >= prog.Len() {
		return t.runtimeError(diagnostics.ErrX005, "program counter %d out of bounds", t.PC)
	}

	op := Opcode(prog.Code[t.PC])
	t.PC++

	switch op {
	case OP_PUSH_NULL:
		return t.push(Null)

	case OP_PUSH_TRUE:
		return t.push(NewBool(true))

	case OP_PUSH_FALSE:
		return t.push(NewBool(false))

	case OP_PUSH_NUMBER:
		idx, err := t.readOperand()
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(prog.Numbers) {
			return t.runtimeError(diagnostics.ErrX005, "bad number-pool index %d", idx)
		}
		return t.push(NewNumber(prog.Numbers[idx]))

	case OP_PUSH_STRING:
		idx, err := t.readOperand()
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(prog.Strings) {
			return t.runtimeError(diagnostics.ErrX005, "bad string-pool index %d", idx)
		}
		return t.push(NewConstString(prog.Strings[idx]))

	case OP_POP:
		_, err := t.pop()
		return err

	case OP_ADD, OP_SUB, OP_MUL, OP_DIV:
		return t.binaryNumberOp(op)

	case OP_MOD, OP_OR, OP_AND:
		return t.binaryIntOp(op)

	case OP_LT, OP_LTE, OP_GT, OP_GTE:
		return t.comparisonOp(op)

	case OP_EQU:
		b, err := t.pop()
		if err != nil {
			return err
		}
		a, err := t.pop()
		if err != nil {
			return err
		}
		return t.push(NewBool(a.Equals(b)))

	case OP_LOG_NOT:
		a, err := t.popBool(op)
		if err != nil {
			return err
		}
		return t.push(NewBool(!a))

	case OP_LOG_AND, OP_LOG_OR:
		b, err := t.popBool(op)
		if err != nil {
			return err
		}
		a, err := t.popBool(op)
		if err != nil {
			return err
		}
		if op == OP_LOG_AND {
			return t.push(NewBool(a && b))
		}
		return t.push(NewBool(a || b))

	case OP_GET:
		idx, err := t.readOperand()
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(t.Globals) {
			return t.runtimeError(diagnostics.ErrX005, "bad global index %d", idx)
		}
		return t.push(t.Globals[idx])

	case OP_SET:
		idx, err := t.readOperand()
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(t.Globals) {
			return t.runtimeError(diagnostics.ErrX005, "bad global index %d", idx)
		}
		v, err := t.pop()
		if err != nil {
			return err
		}
		t.Globals[idx] = v
		return nil

	case OP_GETLOCAL:
		off, err := t.readOperand()
		if err != nil {
			return err
		}
		slot := t.FP + off
		if slot < 0 || slot >= t.SP {
			return t.runtimeError(diagnostics.ErrX005, "bad local offset %d", off)
		}
		return t.push(t.Stack[slot])

	case OP_SETLOCAL:
		off, err := t.readOperand()
		if err != nil {
			return err
		}
		v, err := t.pop()
		if err != nil {
			return err
		}
		slot := t.FP + off
		if slot < 0 || slot >= len(t.Stack) {
			return t.runtimeError(diagnostics.ErrX005, "bad local offset %d", off)
		}
		t.Stack[slot] = v
		return nil

	case OP_GOTO:
		target, err := t.readOperand()
		if err != nil {
			return err
		}
		if target < 0 || target > prog.Len() {
			return t.runtimeError(diagnostics.ErrX005, "jump target %d out of bounds", target)
		}
		t.PC = target
		return nil

	case OP_GOTOZ:
		target, err := t.readOperand()
		if err != nil {
			return err
		}
		if target < 0 || target > prog.Len() {
			return t.runtimeError(diagnostics.ErrX005, "jump target %d out of bounds", target)
		}
		cond, err := t.popBool(op)
		if err != nil {
			return err
		}
		if !cond {
			t.PC = target
		}
		return nil

	case OP_CALL:
		nargs, err := t.readOperand()
		if err != nil {
			return err
		}
		fnIdx, err := t.readOperand()
		if err != nil {
			return err
		}
		if fnIdx < 0 || fnIdx >= len(prog.FunctionPCs) || prog.FunctionPCs[fnIdx] < 0 {
			return t.runtimeError(diagnostics.ErrX004, "call to unknown function %d", fnIdx)
		}
		if err := t.pushIndir(nargs); err != nil {
			return err
		}
		t.PC = prog.FunctionPCs[fnIdx]
		return nil

	case OP_CALLF:
		nargs, err := t.readOperand()
		if err != nil {
			return err
		}
		fnIdx, err := t.readOperand()
		if err != nil {
			return err
		}
		if fnIdx < 0 || fnIdx >= len(t.State.foreignFuncs) {
			return t.runtimeError(diagnostics.ErrX004, "call to unknown foreign function %d", fnIdx)
		}
		argBase := t.SP - nargs
		if argBase < 0 {
			return t.runtimeError(diagnostics.ErrX002, "stack underflow in foreign call at pc %d", t.PC)
		}
		t.RetVal = t.State.foreignFuncs[fnIdx](t, t.Stack[argBase:t.SP])
		t.SP = argBase
		return nil

	case OP_RETURN:
		t.RetVal = Null
		return t.popIndir()

	case OP_RETURN_VALUE:
		v, err := t.pop()
		if err != nil {
			return err
		}
		t.RetVal = v
		return t.popIndir()

	case OP_GET_RETVAL:
		return t.push(t.RetVal)

	case OP_HALT:
		t.PC = -1
		return nil

	case OP_READ:
		return t.doRead()

	case OP_PRINT:
		v, err := t.pop()
		if err != nil {
			return err
		}
		_, werr := fmt.Fprintln(t.Out, v.Inspect())
		if werr != nil {
			return t.runtimeError(diagnostics.ErrX001, "print failed: %v", werr)
		}
		return nil
	}

	return t.runtimeError(diagnostics.ErrX005, "unknown opcode %d", byte(op))
}

func (t *Thread) binaryNumberOp(op Opcode) *diagnostics.Error {
	b, err := t.popNumber(op)
	if err != nil {
		return err
	}
	a, err := t.popNumber(op)
	if err != nil {
		return err
	}

	var result float64
	switch op {
	case OP_ADD:
		result = a + b
	case OP_SUB:
		result = a - b
	case OP_MUL:
		result = a * b
	case OP_DIV:
		result = a / b
	}
	return t.push(NewNumber(result))
}

// binaryIntOp implements the integer-truncating operators. Operands
// are truncated toward zero; a zero right operand to MOD is a fault.
func (t *Thread) binaryIntOp(op Opcode) *diagnostics.Error {
	b, err := t.popNumber(op)
	if err != nil {
		return err
	}
	a, err := t.popNumber(op)
	if err != nil {
		return err
	}

	ia, ib := int64(a), int64(b)

	var result int64
	switch op {
	case OP_MOD:
		if ib == 0 {
			return t.runtimeError(diagnostics.ErrX003, "integer modulo by zero")
		}
		result = ia % ib
	case OP_OR:
		result = ia | ib
	case OP_AND:
		result = ia & ib
	}
	return t.push(NewNumber(float64(result)))
}

func (t *Thread) comparisonOp(op Opcode) *diagnostics.Error {
	b, err := t.popNumber(op)
	if err != nil {
		return err
	}
	a, err := t.popNumber(op)
	if err != nil {
		return err
	}

	var result bool
	switch op {
	case OP_LT:
		result = a < b
	case OP_LTE:
		result = a <= b
	case OP_GT:
		result = a > b
	case OP_GTE:
		result = a >= b
	}
	return t.push(NewBool(result))
}

// doRead consumes a line from the thread's input and pushes it as an
// owned string (without the trailing newline).
func (t *Thread) doRead() *diagnostics.Error {
	line, err := t.ReadLine()
	if err != nil {
		return t.runtimeError(diagnostics.ErrX001, "read failed: %v", err)
	}
	return t.push(NewString(t, line))
}
