package parser

import (
	"testing"

	"github.com/hiperiondev/tiny/internal/ast"
	"github.com/hiperiondev/tiny/internal/diagnostics"
	"github.com/hiperiondev/tiny/internal/lexer"
	"github.com/hiperiondev/tiny/internal/symbols"
	"github.com/hiperiondev/tiny/internal/token"
)

func parse(t *testing.T, input string) ([]ast.Expr, *symbols.Table) {
	t.Helper()

	table := symbols.NewTable()
	p := New(lexer.New("test.tiny", input), table)
	program, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("parse error: %s", err)
	}
	return program, table
}

func parseError(t *testing.T, input string) *diagnostics.Error {
	t.Helper()

	table := symbols.NewTable()
	p := New(lexer.New("test.tiny", input), table)
	_, err := p.ParseProgram()
	if err == nil {
		t.Fatalf("expected parse error for %q", input)
	}
	return err
}

func TestPrecedence(t *testing.T) {
	program, _ := parse(t, "x := 1 + 2 * 3")

	decl, ok := program[0].(*ast.BinaryExpr)
	if !ok || decl.Op != token.DECLARE {
		t.Fatalf("expected declaration, got %T", program[0])
	}

	add, ok := decl.Rhs.(*ast.BinaryExpr)
	if !ok || add.Op != token.PLUS {
		t.Fatalf("expected + at the top of the rhs, got %T", decl.Rhs)
	}

	mul, ok := add.Rhs.(*ast.BinaryExpr)
	if !ok || mul.Op != token.STAR {
		t.Fatalf("expected * under +, got %T", add.Rhs)
	}
}

func TestLeftAssociativity(t *testing.T) {
	program, _ := parse(t, "x := 10 - 4 - 3")

	decl := program[0].(*ast.BinaryExpr)
	outer, ok := decl.Rhs.(*ast.BinaryExpr)
	if !ok || outer.Op != token.MINUS {
		t.Fatalf("expected - at the top, got %T", decl.Rhs)
	}
	if _, ok := outer.Lhs.(*ast.BinaryExpr); !ok {
		t.Fatalf("expected (10-4) on the left, got %T", outer.Lhs)
	}
}

func TestGlobalDeclaration(t *testing.T) {
	_, table := parse(t, "x := 1")

	sym := table.ReferenceVariable("x")
	if sym == nil || sym.Kind != symbols.GlobalSymbol {
		t.Fatalf("expected x to be a global, got %+v", sym)
	}
	if table.NumGlobalVars != 1 {
		t.Errorf("expected 1 global var, got %d", table.NumGlobalVars)
	}
}

func TestLocalAndArgumentDeclaration(t *testing.T) {
	_, table := parse(t, "func f(a, b) { x := 1 }")

	fn := table.ReferenceFunction("f")
	if fn == nil {
		t.Fatal("function f not declared")
	}
	if len(fn.Args) != 2 || len(fn.Locals) != 1 {
		t.Fatalf("expected 2 args and 1 local, got %d and %d", len(fn.Args), len(fn.Locals))
	}

	// Argument k of an n-ary function sits at frame offset -n+k.
	if fn.Args[0].Index != -2 || fn.Args[1].Index != -1 {
		t.Errorf("bad argument offsets: %d %d", fn.Args[0].Index, fn.Args[1].Index)
	}
	if fn.Locals[0].Index != 0 {
		t.Errorf("bad local index: %d", fn.Locals[0].Index)
	}
}

func TestConstDeclaration(t *testing.T) {
	_, table := parse(t, `pi :: 3.14 greeting :: "hi"`)

	pi := table.ReferenceVariable("pi")
	if pi == nil || pi.Kind != symbols.ConstSymbol || pi.IsString || pi.ConstNumber != 3.14 {
		t.Fatalf("bad pi symbol: %+v", pi)
	}

	greeting := table.ReferenceVariable("greeting")
	if greeting == nil || !greeting.IsString || greeting.ConstString != "hi" {
		t.Fatalf("bad greeting symbol: %+v", greeting)
	}
}

func TestConstRequiresLiteral(t *testing.T) {
	err := parseError(t, "c :: 1 + 2")
	if err.Code != diagnostics.ErrP003 {
		t.Errorf("expected P003, got %s", err.Code)
	}
}

func TestScopeVisibility(t *testing.T) {
	// A local declared inside a block is not visible after the block
	// closes; re-declaring the same name in a sibling scope is fine.
	_, table := parse(t, "func f() { { a := 1 } { a := 2 } }")

	fn := table.ReferenceFunction("f")
	if len(fn.Locals) != 2 {
		t.Fatalf("expected 2 locals, got %d", len(fn.Locals))
	}
	for i, local := range fn.Locals {
		if !local.ScopeEnded {
			t.Errorf("local %d should be out of scope after parsing", i)
		}
	}
	if fn.Locals[0].Index == fn.Locals[1].Index {
		t.Error("sibling-scope locals must occupy distinct slots")
	}
}

func TestRedeclarationInScope(t *testing.T) {
	err := parseError(t, "func f() { a := 1 a := 2 }")
	if err.Code != diagnostics.ErrS001 {
		t.Errorf("expected S001, got %s", err.Code)
	}
}

func TestGlobalRedeclaration(t *testing.T) {
	err := parseError(t, "x := 1 x := 2")
	if err.Code != diagnostics.ErrS001 {
		t.Errorf("expected S001, got %s", err.Code)
	}
}

func TestNestedFunctionRejected(t *testing.T) {
	err := parseError(t, "func f() { func g() { } }")
	if err.Code != diagnostics.ErrP006 {
		t.Errorf("expected P006, got %s", err.Code)
	}
}

func TestReturnOutsideFunction(t *testing.T) {
	err := parseError(t, "return 1")
	if err.Code != diagnostics.ErrP006 {
		t.Errorf("expected P006, got %s", err.Code)
	}
}

func TestForHeadRequiresSemicolons(t *testing.T) {
	err := parseError(t, "for i := 0 i < 10; i += 1 { }")
	if err.Code != diagnostics.ErrP004 {
		t.Errorf("expected P004, got %s", err.Code)
	}
}

func TestUnmatchedParen(t *testing.T) {
	err := parseError(t, "x := (1 + 2")
	if err.Code != diagnostics.ErrP002 {
		t.Errorf("expected P002, got %s", err.Code)
	}
}

func TestUnmatchedBrace(t *testing.T) {
	err := parseError(t, "func f() { a := 1")
	if err.Code != diagnostics.ErrP002 {
		t.Errorf("expected P002, got %s", err.Code)
	}
}

func TestBadArgumentList(t *testing.T) {
	err := parseError(t, "func f(a b) { }")
	if err.Code != diagnostics.ErrP005 {
		t.Errorf("expected P005, got %s", err.Code)
	}
}

func TestDeclareRequiresIdent(t *testing.T) {
	err := parseError(t, "1 := 2")
	if err.Code != diagnostics.ErrP003 {
		t.Errorf("expected P003, got %s", err.Code)
	}
}

func TestConstInsideFunctionWarns(t *testing.T) {
	table := symbols.NewTable()
	p := New(lexer.New("test.tiny", "func f() { k :: 1 }"), table)
	if _, err := p.ParseProgram(); err != nil {
		t.Fatalf("parse error: %s", err)
	}

	if len(table.Warnings()) == 0 {
		t.Fatal("expected a warning for const declared inside a function")
	}

	// The const is still registered at global scope.
	sym := table.ReferenceVariable("k")
	if sym == nil || sym.Kind != symbols.ConstSymbol {
		t.Fatalf("const k not registered globally: %+v", sym)
	}
}

func TestCallArguments(t *testing.T) {
	program, _ := parse(t, "f(1, 2 + 3, x)")

	call, ok := program[0].(*ast.CallExpr)
	if !ok {
		t.Fatalf("expected call, got %T", program[0])
	}
	if call.Callee != "f" || len(call.Args) != 3 {
		t.Fatalf("bad call: callee=%q args=%d", call.Callee, len(call.Args))
	}
}

func TestIfElseChain(t *testing.T) {
	program, _ := parse(t, "if true { } else if false { } else { }")

	ifExpr, ok := program[0].(*ast.IfExpr)
	if !ok {
		t.Fatalf("expected if, got %T", program[0])
	}
	if _, ok := ifExpr.Alt.(*ast.IfExpr); !ok {
		t.Fatalf("expected else-if chain, got %T", ifExpr.Alt)
	}
}
