package tiny

import (
	"testing"
)

func TestBindAndCall(t *testing.T) {
	v := New()

	if err := v.Bind("add", func(a, b float64) float64 { return a + b }); err != nil {
		t.Fatalf("bind: %s", err)
	}
	if err := v.CompileString("test.tiny", "z := add(2, 40)"); err != nil {
		t.Fatalf("compile: %s", err)
	}
	if err := v.Run(); err != nil {
		t.Fatalf("run: %s", err)
	}

	z, err := v.Global("z")
	if err != nil {
		t.Fatalf("global: %s", err)
	}
	if z != 42.0 {
		t.Errorf("z = %v, want 42", z)
	}
}

func TestBindConstants(t *testing.T) {
	v := New()

	if err := v.Bind("limit", 10); err != nil {
		t.Fatalf("bind: %s", err)
	}
	if err := v.Bind("name", "tiny"); err != nil {
		t.Fatalf("bind: %s", err)
	}

	if err := v.CompileString("test.tiny", `x := limit ok := (name == "tiny")`); err != nil {
		t.Fatalf("compile: %s", err)
	}
	if err := v.Run(); err != nil {
		t.Fatalf("run: %s", err)
	}

	if x, _ := v.Global("x"); x != 10.0 {
		t.Errorf("x = %v, want 10", x)
	}
	if ok, _ := v.Global("ok"); ok != true {
		t.Errorf("ok = %v, want true", ok)
	}
}

func TestCallScriptFunction(t *testing.T) {
	v := New()

	if err := v.CompileString("test.tiny", "func greet(name) { return name } x := 0"); err != nil {
		t.Fatalf("compile: %s", err)
	}
	if err := v.Run(); err != nil {
		t.Fatalf("run: %s", err)
	}

	result, err := v.Call("greet", "hello")
	if err != nil {
		t.Fatalf("call: %s", err)
	}
	if result != "hello" {
		t.Errorf("result = %v, want hello", result)
	}
}

func TestBindStringFunction(t *testing.T) {
	v := New()

	if err := v.Bind("shout", func(s string) string { return s + "!" }); err != nil {
		t.Fatalf("bind: %s", err)
	}
	if err := v.CompileString("test.tiny", `r := shout("hey")`); err != nil {
		t.Fatalf("compile: %s", err)
	}
	if err := v.Run(); err != nil {
		t.Fatalf("run: %s", err)
	}

	if r, _ := v.Global("r"); r != "hey!" {
		t.Errorf("r = %v, want hey!", r)
	}
}

func TestBindThreadParameter(t *testing.T) {
	v := New()

	// A *Thread parameter receives the invoking thread and consumes no
	// script argument.
	if err := v.Bind("mkstr", func(th *Thread, s string) Value {
		return NewString(th, s)
	}); err != nil {
		t.Fatalf("bind: %s", err)
	}
	if err := v.CompileString("test.tiny", `r := (mkstr("owned") == "owned")`); err != nil {
		t.Fatalf("compile: %s", err)
	}
	if err := v.Run(); err != nil {
		t.Fatalf("run: %s", err)
	}

	if r, _ := v.Global("r"); r != true {
		t.Errorf("r = %v, want true", r)
	}
}

func TestBindErrorReturnsNull(t *testing.T) {
	v := New()

	if err := v.Bind("fail", func() (float64, error) {
		return 0, errTest
	}); err != nil {
		t.Fatalf("bind: %s", err)
	}
	if err := v.CompileString("test.tiny", "r := (fail() == null)"); err != nil {
		t.Fatalf("compile: %s", err)
	}
	if err := v.Run(); err != nil {
		t.Fatalf("run: %s", err)
	}

	if r, _ := v.Global("r"); r != true {
		t.Errorf("r = %v, want true", r)
	}
}

var errTest = errorString("host failure")

type errorString string

func (e errorString) Error() string { return string(e) }

func TestSetGlobal(t *testing.T) {
	v := New()

	if err := v.CompileString("test.tiny", "x := 1"); err != nil {
		t.Fatalf("compile: %s", err)
	}
	if err := v.Run(); err != nil {
		t.Fatalf("run: %s", err)
	}

	if err := v.SetGlobal("x", 5.0); err != nil {
		t.Fatalf("set: %s", err)
	}
	if x, _ := v.Global("x"); x != 5.0 {
		t.Errorf("x = %v, want 5", x)
	}
}

func TestDuplicateBindingFails(t *testing.T) {
	v := New()

	if err := v.Bind("f", func() float64 { return 1 }); err != nil {
		t.Fatalf("bind: %s", err)
	}
	if err := v.Bind("f", func() float64 { return 2 }); err == nil {
		t.Fatal("expected duplicate binding to fail")
	}
}
