// Package pipeline sequences the compilation stages (parsing, code
// generation) over a shared context.
package pipeline

import (
	"github.com/hiperiondev/tiny/internal/ast"
	"github.com/hiperiondev/tiny/internal/diagnostics"
	"github.com/hiperiondev/tiny/internal/symbols"
)

// Context carries one compilation through the pipeline.
type Context struct {
	File   string
	Source string

	// Table is the persistent symbol table of the owning state; it
	// survives across compilations so bindings stay visible.
	Table *symbols.Table

	// Program is the parsed expression list.
	Program []ast.Expr

	Errors   []*diagnostics.Error
	Warnings []*diagnostics.Error
}

// Processor is one pipeline stage.
type Processor interface {
	Process(ctx *Context) *Context
}

// Pipeline is a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the stages in order. A stage that records errors stops
// the stages after it from doing real work (they check ctx.Errors).
func (p *Pipeline) Run(ctx *Context) *Context {
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
	}
	return ctx
}
