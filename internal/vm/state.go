package vm

import (
	"os"

	"github.com/hiperiondev/tiny/internal/diagnostics"
	"github.com/hiperiondev/tiny/internal/parser"
	"github.com/hiperiondev/tiny/internal/pipeline"
	"github.com/hiperiondev/tiny/internal/symbols"
	"github.com/hiperiondev/tiny/internal/token"
)

// State is one compilation unit: the symbol table, the bytecode
// program with its literal pools, and the foreign-function table.
// A state may back any number of threads; the threads only read it.
type State struct {
	Prog  *Program
	Table *symbols.Table

	// foreignFuncs is indexed by the foreign-function symbol index.
	foreignFuncs []ForeignFunction

	// lastSource retains the text of the most recent compilation so
	// diagnostics can render a source window.
	lastSource string

	warnings []*diagnostics.Error
}

func NewState() *State {
	return &State{
		Prog:  NewProgram(),
		Table: symbols.NewTable(),
	}
}

func bindingToken(name string) token.Token {
	return token.Token{File: "<binding>", Lexeme: name}
}

// BindFunction registers a host-implemented function under name.
// Duplicate names are an error.
func (s *State) BindFunction(name string, fn ForeignFunction) error {
	if _, err := s.Table.DeclareForeignFunction(name, bindingToken(name)); err != nil {
		return err
	}
	s.foreignFuncs = append(s.foreignFuncs, fn)
	return nil
}

// BindConstNumber registers a host-owned numeric constant.
func (s *State) BindConstNumber(name string, value float64) error {
	if _, err := s.Table.DeclareConstNumber(name, value, bindingToken(name)); err != nil {
		return err
	}
	return nil
}

// BindConstString registers a host-owned string constant.
func (s *State) BindConstString(name, value string) error {
	if _, err := s.Table.DeclareConstString(name, value, bindingToken(name)); err != nil {
		return err
	}
	return nil
}

// CompileString parses and compiles source under the given label.
// Compiling the same state again concatenates programs: the previous
// trailing HALT is overwritten so execution falls through into the new
// code. The first diagnostic aborts compilation and is returned.
func (s *State) CompileString(label, source string) error {
	s.lastSource = source
	s.Prog.File = label

	ctx := &pipeline.Context{
		File:   label,
		Source: source,
		Table:  s.Table,
	}

	p := pipeline.New(
		&parser.Processor{},
		&CompilerProcessor{State: s},
	)
	ctx = p.Run(ctx)

	s.warnings = append(s.warnings, ctx.Warnings...)

	if len(ctx.Errors) > 0 {
		return ctx.Errors[0]
	}
	return nil
}

// CompileFile reads and compiles the file at path.
func (s *State) CompileFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return diagnostics.NewErrorAt(diagnostics.ErrR001, path, 0,
			"unable to open file '%s' for reading", path)
	}
	return s.CompileString(path, string(data))
}

// Warnings drains the non-fatal diagnostics collected by compilation.
func (s *State) Warnings() []*diagnostics.Error {
	w := s.warnings
	s.warnings = nil
	return w
}

// LastSource returns the text of the most recent compilation, for
// rendering diagnostic source windows.
func (s *State) LastSource() string {
	return s.lastSource
}

// GetGlobalIndex returns the index of a global variable, or -1. Global
// constants are inlined at use sites and have no index.
func (s *State) GetGlobalIndex(name string) int {
	for _, sym := range s.Table.Globals {
		if sym.Kind == symbols.GlobalSymbol && sym.Name == name {
			return sym.Index
		}
	}
	return -1
}

// GetFunctionIndex returns the index of a user function, or -1.
func (s *State) GetFunctionIndex(name string) int {
	for _, sym := range s.Table.Globals {
		if sym.Kind == symbols.FunctionSymbol && sym.Name == name {
			return sym.Index
		}
	}
	return -1
}

// NumGlobalVars returns how many global variable slots compiled
// programs of this state expect.
func (s *State) NumGlobalVars() int {
	return s.Table.NumGlobalVars
}

// CompilerProcessor lowers the parsed program into the state's
// bytecode image.
type CompilerProcessor struct {
	State *State
}

func (cp *CompilerProcessor) Process(ctx *pipeline.Context) *pipeline.Context {
	// An empty program still compiles (to a bare HALT) and still runs
	// the initialization sweep.
	if len(ctx.Errors) > 0 {
		return ctx
	}

	c := newCompiler(cp.State, ctx.File)
	if err := c.compileProgram(ctx.Program); err != nil {
		ctx.Errors = append(ctx.Errors, err)
	}
	return ctx
}
