// Package symbols implements the per-compilation symbol table: globals,
// constants, user functions, foreign functions, and the locals and
// arguments of the function currently being parsed.
package symbols

import (
	"github.com/hiperiondev/tiny/internal/diagnostics"
	"github.com/hiperiondev/tiny/internal/token"
)

type Kind int

const (
	GlobalSymbol Kind = iota
	LocalSymbol
	ConstSymbol
	FunctionSymbol
	ForeignFunctionSymbol
)

func (k Kind) String() string {
	switch k {
	case GlobalSymbol:
		return "global"
	case LocalSymbol:
		return "local"
	case ConstSymbol:
		return "const"
	case FunctionSymbol:
		return "function"
	case ForeignFunctionSymbol:
		return "foreign function"
	}
	return "symbol"
}

// Symbol is a single named entity. Which fields are meaningful depends
// on Kind. Every symbol remembers where it was declared for diagnostics.
type Symbol struct {
	Name string
	Kind Kind
	File string
	Line int

	// Variables (globals, locals, arguments). For locals, Index is the
	// stack offset relative to the frame pointer; arguments use
	// negative offsets (-nargs+k for argument k).
	Index       int
	Scope       int
	ScopeEnded  bool
	Initialized bool

	// Constants. The literal value is carried here; the compiler
	// interns it into the state's literal pool when referenced.
	IsString    bool
	ConstNumber float64
	ConstString string

	// Functions. Index is the slot in the function-PC table (user
	// functions) or the foreign-function table (foreign functions).
	Args   []*Symbol
	Locals []*Symbol
}

// Table is the symbol registry of one compilation state. It persists
// across multiple compilations of the same state so that bindings and
// previously declared globals stay visible.
type Table struct {
	Globals []*Symbol

	NumGlobalVars       int
	NumFunctions        int
	NumForeignFunctions int

	// CurFunc is the function currently being parsed, nil at top level.
	CurFunc *Symbol

	scope    int
	warnings []*diagnostics.Error
}

func NewTable() *Table {
	return &Table{}
}

// Warnings drains the non-fatal diagnostics collected so far.
func (t *Table) Warnings() []*diagnostics.Error {
	w := t.warnings
	t.warnings = nil
	return w
}

// OpenScope enters a nested lexical scope.
func (t *Table) OpenScope() {
	t.scope++
}

// CloseScope leaves the current scope. Locals declared in it are not
// deleted — the compiler still needs their slots — but they stop being
// visible to later lookups.
func (t *Table) CloseScope() {
	if t.CurFunc != nil {
		for _, sym := range t.CurFunc.Locals {
			if sym.Scope == t.scope {
				sym.ScopeEnded = true
			}
		}
	}
	t.scope--
}

// ReferenceVariable resolves name against locals (in open scopes),
// then arguments, then globals and constants. Returns nil when the
// name is not declared; the caller decides whether that is fatal.
func (t *Table) ReferenceVariable(name string) *Symbol {
	if t.CurFunc != nil {
		for _, sym := range t.CurFunc.Locals {
			if !sym.ScopeEnded && sym.Name == name {
				return sym
			}
		}
		for _, sym := range t.CurFunc.Args {
			if sym.Name == name {
				return sym
			}
		}
	}

	for _, sym := range t.Globals {
		if (sym.Kind == GlobalSymbol || sym.Kind == ConstSymbol) && sym.Name == name {
			return sym
		}
	}

	return nil
}

// ReferenceFunction resolves name against user and foreign functions.
func (t *Table) ReferenceFunction(name string) *Symbol {
	for _, sym := range t.Globals {
		if (sym.Kind == FunctionSymbol || sym.Kind == ForeignFunctionSymbol) && sym.Name == name {
			return sym
		}
	}
	return nil
}

func newSymbol(kind Kind, name string, tok token.Token) *Symbol {
	return &Symbol{
		Name: name,
		Kind: kind,
		File: tok.File,
		Line: tok.Line,
	}
}

// DeclareGlobal registers a new global variable.
func (t *Table) DeclareGlobal(name string, tok token.Token) (*Symbol, *diagnostics.Error) {
	if sym := t.ReferenceVariable(name); sym != nil && (sym.Kind == GlobalSymbol || sym.Kind == ConstSymbol) {
		return nil, diagnostics.NewError(diagnostics.ErrS001, tok,
			"attempted to declare multiple global entities with the same name '%s'", name)
	}

	sym := newSymbol(GlobalSymbol, name, tok)
	sym.Index = t.NumGlobalVars
	t.Globals = append(t.Globals, sym)
	t.NumGlobalVars++

	return sym, nil
}

// DeclareLocal registers a new local in the current function and scope.
func (t *Table) DeclareLocal(name string, tok token.Token) (*Symbol, *diagnostics.Error) {
	for _, sym := range t.CurFunc.Locals {
		if !sym.ScopeEnded && sym.Name == name {
			return nil, diagnostics.NewError(diagnostics.ErrS001, tok,
				"function '%s' has multiple locals in the same scope with name '%s'",
				t.CurFunc.Name, name)
		}
	}

	sym := newSymbol(LocalSymbol, name, tok)
	sym.Index = len(t.CurFunc.Locals)
	sym.Scope = t.scope
	t.CurFunc.Locals = append(t.CurFunc.Locals, sym)

	return sym, nil
}

// DeclareArgument registers parameter k of the current function. The
// total argument count must be known up front: arguments are pushed
// left to right, so argument k lives at frame offset -nargs+k. That
// layout also lets a foreign call view the argument run as one slice.
func (t *Table) DeclareArgument(name string, nargs int, tok token.Token) (*Symbol, *diagnostics.Error) {
	for _, sym := range t.CurFunc.Args {
		if sym.Name == name {
			return nil, diagnostics.NewError(diagnostics.ErrS001, tok,
				"function '%s' takes multiple arguments with name '%s'", t.CurFunc.Name, name)
		}
	}

	sym := newSymbol(LocalSymbol, name, tok)
	sym.Index = -nargs + len(t.CurFunc.Args)
	sym.Initialized = true // arguments are initialized by the caller
	t.CurFunc.Args = append(t.CurFunc.Args, sym)

	return sym, nil
}

func (t *Table) declareConst(name string, tok token.Token) (*Symbol, *diagnostics.Error) {
	if sym := t.ReferenceVariable(name); sym != nil {
		return nil, diagnostics.NewError(diagnostics.ErrS001, tok,
			"attempted to define constant '%s' with the same name as another value", name)
	}

	if t.CurFunc != nil {
		t.warnings = append(t.warnings, diagnostics.NewError(diagnostics.ErrS001, tok,
			"constant '%s' declared inside a function body still has global scope", name))
	}

	sym := newSymbol(ConstSymbol, name, tok)
	t.Globals = append(t.Globals, sym)
	return sym, nil
}

// DeclareConstNumber registers a numeric constant.
func (t *Table) DeclareConstNumber(name string, value float64, tok token.Token) (*Symbol, *diagnostics.Error) {
	sym, err := t.declareConst(name, tok)
	if err != nil {
		return nil, err
	}
	sym.ConstNumber = value
	return sym, nil
}

// DeclareConstString registers a string constant.
func (t *Table) DeclareConstString(name string, value string, tok token.Token) (*Symbol, *diagnostics.Error) {
	sym, err := t.declareConst(name, tok)
	if err != nil {
		return nil, err
	}
	sym.IsString = true
	sym.ConstString = value
	return sym, nil
}

// DeclareFunction registers a new user function and returns its symbol.
func (t *Table) DeclareFunction(name string, tok token.Token) *Symbol {
	sym := newSymbol(FunctionSymbol, name, tok)
	sym.Index = t.NumFunctions
	t.Globals = append(t.Globals, sym)
	t.NumFunctions++
	return sym
}

// DeclareForeignFunction registers a host-implemented function slot.
// Duplicate names are an error.
func (t *Table) DeclareForeignFunction(name string, tok token.Token) (*Symbol, *diagnostics.Error) {
	for _, sym := range t.Globals {
		if sym.Kind == ForeignFunctionSymbol && sym.Name == name {
			return nil, diagnostics.NewError(diagnostics.ErrS005, tok,
				"there is already a foreign function bound to name '%s'", name)
		}
	}

	sym := newSymbol(ForeignFunctionSymbol, name, tok)
	sym.Index = t.NumForeignFunctions
	t.Globals = append(t.Globals, sym)
	t.NumForeignFunctions++
	return sym, nil
}
