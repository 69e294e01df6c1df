package vm

import (
	"testing"
)

func TestStringChurnStaysBounded(t *testing.T) {
	// A loop that churns through temporary strings must not grow the
	// heap: everything unreachable is collected as the thread runs.
	state := NewState()
	if err := state.BindFunction("mkstr", func(th *Thread, args []Value) Value {
		return NewString(th, "tmp")
	}); err != nil {
		t.Fatalf("bind: %s", err)
	}

	if err := state.CompileString("test.tiny", `
func churn() {
	tmp := ""
	for i := 0; i < 1000; i += 1 {
		tmp = mkstr()
	}
}
churn()
`); err != nil {
		t.Fatalf("compile: %s", err)
	}

	thread := NewThread(state)
	if err := thread.Run(); err != nil {
		t.Fatalf("run: %s", err)
	}

	// Only a handful of roots can be live; the trigger rearms at
	// twice the survivor count.
	if thread.NumObjects() > 16 {
		t.Errorf("heap grew to %d objects; churned strings were not collected", thread.NumObjects())
	}
}

func TestReachableValuesSurvive(t *testing.T) {
	_, thread := runSource(t, "s := 0 for i := 0; i < 5; i += 1 { s += i }")

	keep := NewString(thread, "keep")
	thread.RetVal = keep

	for i := 0; i < 100; i++ {
		NewString(thread, "garbage")
	}
	thread.collectGarbage()

	if s, ok := thread.RetVal.ToString(); !ok || s != "keep" {
		t.Fatal("value reachable from the return register was collected")
	}
	if thread.NumObjects() != 1 {
		t.Errorf("expected 1 survivor, got %d", thread.NumObjects())
	}
}

func TestGlobalsAreRoots(t *testing.T) {
	state, thread := runSource(t, "x := 1")

	idx := state.GetGlobalIndex("x")
	thread.SetGlobal(idx, NewString(thread, "rooted"))

	for i := 0; i < 50; i++ {
		NewString(thread, "garbage")
	}
	thread.collectGarbage()

	if s, ok := thread.GetGlobal(idx).ToString(); !ok || s != "rooted" {
		t.Fatal("global value was collected")
	}
}

func TestFinalizeRunsExactlyOnce(t *testing.T) {
	_, thread := runSource(t, "x := 1")

	finalized := 0
	prop := &NativeProp{
		Name:     "counted",
		Finalize: func(addr any) { finalized++ },
	}

	NewNative(thread, &struct{}{}, prop)
	thread.collectGarbage()

	if finalized != 1 {
		t.Fatalf("finalize ran %d times, want 1", finalized)
	}

	thread.collectGarbage()
	if finalized != 1 {
		t.Fatalf("finalize ran again on a later cycle: %d", finalized)
	}
}

func TestDestroyFinalizesEverything(t *testing.T) {
	_, thread := runSource(t, "x := 1")

	finalized := 0
	prop := &NativeProp{
		Name:     "counted",
		Finalize: func(addr any) { finalized++ },
	}

	for i := 0; i < 3; i++ {
		NewNative(thread, &struct{ n int }{i}, prop)
	}

	thread.Destroy()
	if finalized != 3 {
		t.Errorf("finalize ran %d times on destroy, want 3", finalized)
	}
	if thread.NumObjects() != 0 {
		t.Errorf("objects remain after destroy: %d", thread.NumObjects())
	}
}

// box holds a script value inside a native payload; the descriptor's
// protect callback is what keeps the inner value alive.
type box struct {
	inner Value
}

var boxProp = &NativeProp{
	Name: "box",
	ProtectFromGC: func(addr any) {
		ProtectFromGC(addr.(*box).inner)
	},
}

func TestProtectFromGCCallback(t *testing.T) {
	state, thread := runSource(t, "x := 1")

	inner := NewString(thread, "inner")
	outer := NewNative(thread, &box{inner: inner}, boxProp)
	thread.SetGlobal(state.GetGlobalIndex("x"), outer)

	for i := 0; i < 50; i++ {
		NewString(thread, "garbage")
	}
	thread.collectGarbage()

	// Both the native and its transitively referenced string survive.
	if thread.NumObjects() != 2 {
		t.Fatalf("expected 2 survivors, got %d", thread.NumObjects())
	}
	if s, ok := inner.ToString(); !ok || s != "inner" {
		t.Fatal("transitively referenced string was collected")
	}
}

func TestConstStringsNeverTracked(t *testing.T) {
	_, thread := runSource(t, `s := "literal"`)

	before := thread.NumObjects()
	thread.collectGarbage()
	if thread.NumObjects() != before {
		t.Error("const strings must not participate in collection")
	}

	v := NewConstString("host")
	ProtectFromGC(v) // must be a no-op
}

func TestLightNativeNeverTracked(t *testing.T) {
	_, thread := runSource(t, "x := 1")

	payload := &struct{ n int }{42}
	v := NewLightNative(payload)
	if thread.NumObjects() != 0 {
		t.Error("light natives must not allocate on the GC heap")
	}
	if v.ToAddr() != payload {
		t.Error("light native address lost")
	}
}
