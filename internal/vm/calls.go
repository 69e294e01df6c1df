package vm

import "github.com/hiperiondev/tiny/internal/diagnostics"

// CallFunction runs the user function at fnIdx with args and returns
// its result. It is re-entrant: a foreign callee may call back into
// the VM, and the caller's pc/fp/sp and call-frame depth are restored
// exactly when the callee returns.
//
// If the thread has never been started, globals are allocated here and
// the thread reads as done once the call completes.
func (t *Thread) CallFunction(fnIdx int, args []Value) (Value, error) {
	prog := t.State.Prog
	if fnIdx < 0 || fnIdx >= len(prog.FunctionPCs) || prog.FunctionPCs[fnIdx] < 0 {
		return Null, diagnostics.NewErrorAt(diagnostics.ErrX004, prog.File, 0,
			"call to unknown function %d", fnIdx)
	}

	savedPC := t.PC
	savedFP := t.FP
	savedSP := t.SP
	savedIndirSize := t.IndirSize

	t.allocGlobals()

	for _, arg := range args {
		if err := t.push(arg); err != nil {
			return Null, err
		}
	}

	t.PC = prog.FunctionPCs[fnIdx]
	if err := t.pushIndir(len(args)); err != nil {
		return Null, err
	}

	// Run until the indirection stack drops back to the caller's
	// depth, i.e. the function returned.
	for t.IndirSize > savedIndirSize {
		executed, err := t.ExecuteCycle()
		if err != nil {
			return Null, err
		}
		if !executed {
			break
		}
	}

	retVal := t.RetVal

	t.PC = savedPC
	t.FP = savedFP
	t.SP = savedSP
	t.IndirSize = savedIndirSize

	return retVal, nil
}

// Run starts the thread and executes until it halts or faults.
func (t *Thread) Run() error {
	t.Start()
	for {
		executed, err := t.ExecuteCycle()
		if err != nil {
			return err
		}
		if !executed {
			return nil
		}
	}
}
