// Package tiny is the public embedding API. A host creates a State,
// binds foreign functions and constants, compiles scripts into it, and
// runs threads over the compiled program.
package tiny

import (
	"fmt"

	"github.com/hiperiondev/tiny/internal/vm"
)

// Core types re-exported for hosts.
type (
	State           = vm.State
	Thread          = vm.Thread
	Value           = vm.Value
	ValueType       = vm.ValueType
	NativeProp      = vm.NativeProp
	ForeignFunction = vm.ForeignFunction
)

// Null is the null value.
var Null = vm.Null

// Value constructors.
var (
	NewBool        = vm.NewBool
	NewNumber      = vm.NewNumber
	NewConstString = vm.NewConstString
	NewLightNative = vm.NewLightNative
	NewString      = vm.NewString
	NewNative      = vm.NewNative
)

// ProtectFromGC manually roots a value during a mark phase. Foreign
// callees use it for transient allocations.
var ProtectFromGC = vm.ProtectFromGC

// NewState creates an empty compilation state.
func NewState() *State {
	return vm.NewState()
}

// NewThread creates an execution thread over state with default stack
// sizes.
func NewThread(state *State) *Thread {
	return vm.NewThread(state)
}

// NewThreadWithSizes creates a thread with explicit stack capacities.
func NewThreadWithSizes(state *State, stackSize, indirSize int) *Thread {
	return vm.NewThreadWithSizes(state, stackSize, indirSize)
}

// VM couples one state with one main thread and a marshaller, for
// hosts that just want to bind Go functions and run scripts.
type VM struct {
	State  *State
	Thread *Thread

	marshaller *Marshaller
}

// New creates a VM with a fresh state and main thread.
func New() *VM {
	state := vm.NewState()
	return &VM{
		State:      state,
		Thread:     vm.NewThread(state),
		marshaller: NewMarshaller(),
	}
}

// BindFunction registers a raw foreign function.
func (v *VM) BindFunction(name string, fn ForeignFunction) error {
	return v.State.BindFunction(name, fn)
}

// Bind registers an arbitrary Go function or constant under name.
// Functions are adapted through reflection; float64, int, and string
// values become constants. Other non-function values are rejected.
func (v *VM) Bind(name string, value any) error {
	switch val := value.(type) {
	case float64:
		return v.State.BindConstNumber(name, val)
	case int:
		return v.State.BindConstNumber(name, float64(val))
	case string:
		return v.State.BindConstString(name, val)
	}

	fn, err := v.marshaller.WrapFunc(name, value)
	if err != nil {
		return err
	}
	return v.State.BindFunction(name, fn)
}

// CompileString compiles source under label into the VM's state.
func (v *VM) CompileString(label, source string) error {
	return v.State.CompileString(label, source)
}

// CompileFile compiles the script at path.
func (v *VM) CompileFile(path string) error {
	return v.State.CompileFile(path)
}

// Run executes the compiled program on the main thread from the top.
func (v *VM) Run() error {
	return v.Thread.Run()
}

// Call invokes a script function by name with Go arguments and
// returns its result as a Go value.
func (v *VM) Call(name string, args ...any) (any, error) {
	fnIdx := v.State.GetFunctionIndex(name)
	if fnIdx < 0 {
		return nil, fmt.Errorf("function '%s' not found", name)
	}

	vmArgs := make([]Value, len(args))
	for i, arg := range args {
		vmArgs[i] = v.marshaller.ToValue(v.Thread, arg)
	}

	result, err := v.Thread.CallFunction(fnIdx, vmArgs)
	if err != nil {
		return nil, err
	}
	return v.marshaller.FromValue(result), nil
}

// Global reads a global variable by name as a Go value.
func (v *VM) Global(name string) (any, error) {
	idx := v.State.GetGlobalIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("global '%s' not found", name)
	}
	return v.marshaller.FromValue(v.Thread.GetGlobal(idx)), nil
}

// SetGlobal writes a global variable by name.
func (v *VM) SetGlobal(name string, value any) error {
	idx := v.State.GetGlobalIndex(name)
	if idx < 0 {
		return fmt.Errorf("global '%s' not found", name)
	}
	v.Thread.SetGlobal(idx, v.marshaller.ToValue(v.Thread, value))
	return nil
}
