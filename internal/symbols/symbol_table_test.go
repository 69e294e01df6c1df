package symbols

import (
	"testing"

	"github.com/hiperiondev/tiny/internal/token"
)

func tok(name string) token.Token {
	return token.Token{Lexeme: name, File: "test.tiny", Line: 1}
}

func TestGlobalLookup(t *testing.T) {
	table := NewTable()

	sym, err := table.DeclareGlobal("x", tok("x"))
	if err != nil {
		t.Fatalf("declare: %s", err)
	}
	if sym.Index != 0 {
		t.Errorf("expected index 0, got %d", sym.Index)
	}

	if table.ReferenceVariable("x") != sym {
		t.Error("lookup did not return the declared symbol")
	}
	if table.ReferenceVariable("y") != nil {
		t.Error("lookup of undeclared name should be nil")
	}
}

func TestLocalShadowsGlobal(t *testing.T) {
	table := NewTable()

	global, _ := table.DeclareGlobal("v", tok("v"))
	table.CurFunc = table.DeclareFunction("f", tok("f"))
	table.OpenScope()

	local, err := table.DeclareLocal("v", tok("v"))
	if err != nil {
		t.Fatalf("declare local: %s", err)
	}

	if table.ReferenceVariable("v") != local {
		t.Error("local should shadow the global inside the function")
	}

	table.CloseScope()
	table.CurFunc = nil

	if table.ReferenceVariable("v") != global {
		t.Error("global should be visible again at top level")
	}
}

func TestScopeEndedLocalsInvisible(t *testing.T) {
	table := NewTable()
	table.CurFunc = table.DeclareFunction("f", tok("f"))

	table.OpenScope()
	table.OpenScope()
	inner, _ := table.DeclareLocal("a", tok("a"))
	table.CloseScope()

	if !inner.ScopeEnded {
		t.Fatal("closing the scope should end the local")
	}
	if table.ReferenceVariable("a") != nil {
		t.Error("scope-ended local must not resolve")
	}

	// The slot survives for the compiler even though lookups skip it.
	if len(table.CurFunc.Locals) != 1 {
		t.Errorf("expected the local to stay registered, got %d", len(table.CurFunc.Locals))
	}
}

func TestArgumentsAlwaysVisible(t *testing.T) {
	table := NewTable()
	table.CurFunc = table.DeclareFunction("f", tok("f"))

	arg, _ := table.DeclareArgument("n", 1, tok("n"))
	if !arg.Initialized {
		t.Error("arguments are implicitly initialized")
	}

	table.OpenScope()
	table.OpenScope()
	if table.ReferenceVariable("n") != arg {
		t.Error("argument should be visible in nested scopes")
	}
	table.CloseScope()
	table.CloseScope()
}

func TestDuplicateForeignFunction(t *testing.T) {
	table := NewTable()

	if _, err := table.DeclareForeignFunction("add", tok("add")); err != nil {
		t.Fatalf("first bind: %s", err)
	}
	if _, err := table.DeclareForeignFunction("add", tok("add")); err == nil {
		t.Fatal("expected duplicate foreign binding to fail")
	}
}

func TestFunctionIndices(t *testing.T) {
	table := NewTable()

	f := table.DeclareFunction("f", tok("f"))
	g := table.DeclareFunction("g", tok("g"))
	if f.Index != 0 || g.Index != 1 {
		t.Errorf("bad function indices: %d %d", f.Index, g.Index)
	}

	if table.ReferenceFunction("g") != g {
		t.Error("function lookup failed")
	}
}
