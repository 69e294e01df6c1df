package vm

// NativeProp describes a kind of native object to the runtime. The
// host allocates one descriptor per native type, statically; it must
// outlive every object that references it.
type NativeProp struct {
	Name string

	// ProtectFromGC is invoked during the mark phase. It must call
	// ProtectFromGC on every Value the payload transitively holds.
	ProtectFromGC func(addr any)

	// Finalize is invoked when the object is swept.
	Finalize func(addr any)

	// ToString renders the payload for PRINT and diagnostics.
	ToString func(addr any) string
}

// Object is a GC-managed heap cell: either an owned string or a native
// payload with its descriptor. Objects are linked into the owning
// thread's intrusive list and carry a single mark bit.
type Object struct {
	typ    ValueType // ValString or ValNative
	marked bool
	next   *Object

	str  string // owned string payload
	addr any    // native payload
	prop *NativeProp
}

// ForeignFunction is the host-callback signature. The args slice is a
// view of the invoking thread's stack; callees must not retain it.
type ForeignFunction func(t *Thread, args []Value) Value
