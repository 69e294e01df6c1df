package vm

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/hiperiondev/tiny/internal/config"
	"github.com/hiperiondev/tiny/internal/diagnostics"
)

// Thread is one execution context over a compiled state. Each thread
// owns its value stack, indirection stack, global variables, and GC
// heap; threads never share values. A state may back many threads.
type Thread struct {
	// ID labels the thread for host logs; diagnostics do not include it.
	ID uuid.UUID

	State *State

	// Garbage-collected heap, thread-local.
	gcHead        *Object
	numObjects    int
	maxNumObjects int

	// Globals are allocated lazily on first start or call.
	Globals []Value

	PC, FP, SP int
	RetVal     Value

	Stack []Value

	// Indir records call frames as (nargs, prev fp, return pc) triples.
	Indir     []int
	IndirSize int

	// Userdata is free for the host.
	Userdata any

	// In and Out back the READ and PRINT instructions.
	In  io.Reader
	Out io.Writer

	reader *bufio.Reader
}

// NewThread initializes a thread over state with the default stack
// sizes. The thread is "done" until Start or CallFunction runs it.
func NewThread(state *State) *Thread {
	return NewThreadWithSizes(state, config.DefaultStackSize, config.DefaultIndirSize)
}

// NewThreadWithSizes initializes a thread with explicit value-stack
// and indirection-stack capacities.
func NewThreadWithSizes(state *State, stackSize, indirSize int) *Thread {
	return &Thread{
		ID:            uuid.New(),
		State:         state,
		maxNumObjects: config.InitialGCThreshold,
		PC:            -1,
		Stack:         make([]Value, stackSize),
		Indir:         make([]int, indirSize),
		In:            os.Stdin,
		Out:           os.Stdout,
	}
}

// Start points the thread at the program entry and allocates globals
// if needed. The state must be compiled.
func (t *Thread) Start() {
	t.allocGlobals()
	t.PC = 0
}

// IsDone reports whether the thread has halted.
func (t *Thread) IsDone() bool {
	return t.PC < 0
}

// Destroy halts the thread and releases its heap and globals. Finalize
// callbacks run for every live native object.
func (t *Thread) Destroy() {
	t.PC = -1

	for obj := t.gcHead; obj != nil; {
		next := obj.next
		t.deleteObject(obj)
		obj = next
	}
	t.gcHead = nil
	t.numObjects = 0

	t.Globals = nil
}

func (t *Thread) allocGlobals() {
	if t.Globals == nil {
		t.Globals = make([]Value, t.State.NumGlobalVars())
	}
}

// GetGlobal returns the global at index. The thread must have been
// started (or entered via CallFunction) so globals exist.
func (t *Thread) GetGlobal(index int) Value {
	if t.Globals == nil || index < 0 || index >= len(t.Globals) {
		return Null
	}
	return t.Globals[index]
}

// SetGlobal stores value into the global at index.
func (t *Thread) SetGlobal(index int, value Value) {
	if t.Globals == nil || index < 0 || index >= len(t.Globals) {
		return
	}
	t.Globals[index] = value
}

func (t *Thread) push(v Value) *diagnostics.Error {
	if t.SP >= len(t.Stack) {
		return t.runtimeError(diagnostics.ErrX002,
			"stack overflow at pc %d (stack size %d)", t.PC, t.SP)
	}
	t.Stack[t.SP] = v
	t.SP++
	return nil
}

func (t *Thread) pop() (Value, *diagnostics.Error) {
	if t.SP <= 0 {
		return Null, t.runtimeError(diagnostics.ErrX002, "stack underflow at pc %d", t.PC)
	}
	t.SP--
	return t.Stack[t.SP], nil
}

// pushIndir opens a call frame: the frame metadata goes on the
// indirection stack and the frame pointer moves to the current top.
func (t *Thread) pushIndir(nargs int) *diagnostics.Error {
	if t.IndirSize+3 > len(t.Indir) {
		return t.runtimeError(diagnostics.ErrX002, "call stack overflow at pc %d", t.PC)
	}

	t.Indir[t.IndirSize] = nargs
	t.Indir[t.IndirSize+1] = t.FP
	t.Indir[t.IndirSize+2] = t.PC
	t.IndirSize += 3

	t.FP = t.SP
	return nil
}

// popIndir closes the current frame: locals are discarded, the callers
// fp/pc are restored, and the argument slots are dropped.
func (t *Thread) popIndir() *diagnostics.Error {
	if t.IndirSize < 3 {
		return t.runtimeError(diagnostics.ErrX002, "return without a call frame at pc %d", t.PC)
	}

	t.SP = t.FP

	t.IndirSize -= 3
	nargs := t.Indir[t.IndirSize]
	prevFP := t.Indir[t.IndirSize+1]
	prevPC := t.Indir[t.IndirSize+2]

	t.SP -= nargs
	t.FP = prevFP
	t.PC = prevPC
	return nil
}

func (t *Thread) runtimeError(code string, format string, args ...interface{}) *diagnostics.Error {
	file := ""
	line := 0
	if t.State != nil {
		file = t.State.Prog.File
		line = t.State.Prog.lineAt(t.PC)
	}
	return diagnostics.NewErrorAt(code, file, line, format, args...)
}

func (t *Thread) stdin() *bufio.Reader {
	if t.reader == nil {
		t.reader = bufio.NewReader(t.In)
	}
	return t.reader
}

// ReadLine consumes one line from the thread's input, without the
// trailing newline. Foreign functions use it so their reads share the
// READ instruction's buffer.
func (t *Thread) ReadLine() (string, error) {
	line, err := t.stdin().ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// NumObjects reports the current GC-managed object count.
func (t *Thread) NumObjects() int {
	return t.numObjects
}

// newObject allocates a heap cell bound to this thread's GC list.
func (t *Thread) newObject(typ ValueType) *Object {
	obj := &Object{typ: typ, next: t.gcHead}
	t.gcHead = obj
	t.numObjects++
	return obj
}

// NewString allocates an owned, GC-managed copy of s on t's heap.
func NewString(t *Thread, s string) Value {
	obj := t.newObject(ValString)
	obj.str = s
	return Value{typ: ValString, obj: obj}
}

// NewNative wraps a host object on t's heap. prop may be nil, in which
// case the object has no GC or finalize hooks.
func NewNative(t *Thread, addr any, prop *NativeProp) Value {
	obj := t.newObject(ValNative)
	obj.addr = addr
	obj.prop = prop
	return Value{typ: ValNative, obj: obj}
}
