package parser

import (
	"github.com/hiperiondev/tiny/internal/lexer"
	"github.com/hiperiondev/tiny/internal/pipeline"
)

// Processor runs lexing and parsing as one pipeline stage. The lexer
// is owned by the compilation, so repeated compilations need no state
// reset.
type Processor struct{}

func (pp *Processor) Process(ctx *pipeline.Context) *pipeline.Context {
	if len(ctx.Errors) > 0 {
		return ctx
	}

	lex := lexer.New(ctx.File, ctx.Source)
	p := New(lex, ctx.Table)

	program, err := p.ParseProgram()
	if err != nil {
		ctx.Errors = append(ctx.Errors, err)
		return ctx
	}

	ctx.Program = program
	ctx.Warnings = append(ctx.Warnings, ctx.Table.Warnings()...)
	return ctx
}
