package vm

import (
	"github.com/hiperiondev/tiny/internal/ast"
	"github.com/hiperiondev/tiny/internal/diagnostics"
	"github.com/hiperiondev/tiny/internal/symbols"
	"github.com/hiperiondev/tiny/internal/token"
)

// compiler lowers a parsed expression list into the state's program in
// a single pass, patching forward jumps as it goes.
type compiler struct {
	state *State
	prog  *Program
	table *symbols.Table
	file  string
}

func newCompiler(s *State, file string) *compiler {
	return &compiler{
		state: s,
		prog:  s.Prog,
		table: s.Table,
		file:  file,
	}
}

func (c *compiler) errorE(e ast.Expr, code string, format string, args ...interface{}) *diagnostics.Error {
	return diagnostics.NewError(code, e.GetToken(), format, args...)
}

func (c *compiler) errorS(sym *symbols.Symbol, code string, format string, args ...interface{}) *diagnostics.Error {
	return diagnostics.NewErrorAt(code, sym.File, sym.Line, format, args...)
}

func (c *compiler) compileProgram(program []ast.Expr) *diagnostics.Error {
	// Recompiling a state concatenates programs: drop the previous
	// trailing HALT so execution falls through into the new code.
	if n := c.prog.Len(); n > 0 && Opcode(c.prog.Code[n-1]) == OP_HALT {
		c.prog.Code = c.prog.Code[:n-1]
		c.prog.Lines = c.prog.Lines[:n-1]
	}

	for len(c.prog.FunctionPCs) < c.table.NumFunctions {
		c.prog.FunctionPCs = append(c.prog.FunctionPCs, -1)
	}

	for _, stmt := range program {
		if err := c.compileStatement(stmt); err != nil {
			return err
		}
	}

	if err := c.prog.writeOp(OP_HALT, 0); err != nil {
		return err
	}

	return c.checkInitialized()
}

// checkInitialized sweeps the symbol table after code generation:
// every declared global and every function local must have seen an
// initializing assignment. Arguments are initialized by the caller.
// Done after compilation because functions may be referenced before
// they are defined.
func (c *compiler) checkInitialized() *diagnostics.Error {
	const format = "attempted to use uninitialized variable '%s'"

	for _, sym := range c.table.Globals {
		switch sym.Kind {
		case symbols.GlobalSymbol:
			if !sym.Initialized {
				return c.errorS(sym, diagnostics.ErrS004, format, sym.Name)
			}
		case symbols.FunctionSymbol:
			for _, local := range sym.Locals {
				if !local.Initialized {
					return c.errorS(local, diagnostics.ErrS004, format, local.Name)
				}
			}
		}
	}

	return nil
}

// compileGetId emits the value-producing load for an identifier:
// GET/GETLOCAL for variables, a literal push for constants.
func (c *compiler) compileGetId(e *ast.Ident) *diagnostics.Error {
	sym := e.Sym
	if sym == nil {
		sym = c.table.ReferenceVariable(e.Name)
	}
	if sym == nil {
		return c.errorE(e, diagnostics.ErrS002, "referencing undeclared identifier '%s'", e.Name)
	}

	line := e.Token.Line

	switch sym.Kind {
	case symbols.GlobalSymbol:
		if err := c.prog.writeOp(OP_GET, line); err != nil {
			return err
		}
		return c.prog.writeInt(sym.Index, line)

	case symbols.LocalSymbol:
		if err := c.prog.writeOp(OP_GETLOCAL, line); err != nil {
			return err
		}
		return c.prog.writeInt(sym.Index, line)

	case symbols.ConstSymbol:
		if sym.IsString {
			idx, err := c.prog.RegisterString(sym.ConstString)
			if err != nil {
				return err
			}
			if err := c.prog.writeOp(OP_PUSH_STRING, line); err != nil {
				return err
			}
			return c.prog.writeInt(idx, line)
		}
		idx, err := c.prog.RegisterNumber(sym.ConstNumber)
		if err != nil {
			return err
		}
		if err := c.prog.writeOp(OP_PUSH_NUMBER, line); err != nil {
			return err
		}
		return c.prog.writeInt(idx, line)
	}

	return c.errorE(e, diagnostics.ErrS002, "'%s' is a %s, not a variable", e.Name, sym.Kind)
}

// compileCall pushes the arguments left to right and emits CALL or
// CALLF. The callee is resolved here, not at parse time, so calls may
// precede the function definition.
func (c *compiler) compileCall(e *ast.CallExpr) *diagnostics.Error {
	for _, arg := range e.Args {
		if err := c.compileExpr(arg); err != nil {
			return err
		}
	}

	sym := c.table.ReferenceFunction(e.Callee)
	if sym == nil {
		return c.errorE(e, diagnostics.ErrS002, "attempted to call undefined function '%s'", e.Callee)
	}

	line := e.Token.Line

	op := OP_CALL
	if sym.Kind == symbols.ForeignFunctionSymbol {
		op = OP_CALLF
	}
	if err := c.prog.writeOp(op, line); err != nil {
		return err
	}
	if err := c.prog.writeInt(len(e.Args), line); err != nil {
		return err
	}
	return c.prog.writeInt(sym.Index, line)
}

var binaryOps = map[token.TokenType]Opcode{
	token.PLUS:    OP_ADD,
	token.MINUS:   OP_SUB,
	token.STAR:    OP_MUL,
	token.SLASH:   OP_DIV,
	token.PERCENT: OP_MOD,
	token.PIPE:    OP_OR,
	token.AMP:     OP_AND,
	token.LT:      OP_LT,
	token.GT:      OP_GT,
	token.LTE:     OP_LTE,
	token.GTE:     OP_GTE,
	token.EQ:      OP_EQU,
	token.AND:     OP_LOG_AND,
	token.OR:      OP_LOG_OR,
}

// compileExpr emits value-producing code: after it runs, exactly one
// new value sits on the stack.
func (c *compiler) compileExpr(e ast.Expr) *diagnostics.Error {
	line := e.GetToken().Line

	switch e := e.(type) {
	case *ast.NullLit:
		return c.prog.writeOp(OP_PUSH_NULL, line)

	case *ast.BoolLit:
		if e.Value {
			return c.prog.writeOp(OP_PUSH_TRUE, line)
		}
		return c.prog.writeOp(OP_PUSH_FALSE, line)

	case *ast.NumberLit:
		idx, err := c.prog.RegisterNumber(e.Value)
		if err != nil {
			return err
		}
		if err := c.prog.writeOp(OP_PUSH_NUMBER, line); err != nil {
			return err
		}
		return c.prog.writeInt(idx, line)

	case *ast.StringLit:
		idx, err := c.prog.RegisterString(e.Value)
		if err != nil {
			return err
		}
		if err := c.prog.writeOp(OP_PUSH_STRING, line); err != nil {
			return err
		}
		return c.prog.writeInt(idx, line)

	case *ast.Ident:
		return c.compileGetId(e)

	case *ast.CallExpr:
		if err := c.compileCall(e); err != nil {
			return err
		}
		return c.prog.writeOp(OP_GET_RETVAL, line)

	case *ast.ParenExpr:
		return c.compileExpr(e.Inner)

	case *ast.BinaryExpr:
		op, ok := binaryOps[e.Op]
		if !ok {
			if e.Op == token.NOT_EQ {
				if err := c.compileBinaryOperands(e); err != nil {
					return err
				}
				if err := c.prog.writeOp(OP_EQU, line); err != nil {
					return err
				}
				return c.prog.writeOp(OP_LOG_NOT, line)
			}
			return c.errorE(e, diagnostics.ErrP006, "found assignment when expecting expression")
		}
		if err := c.compileBinaryOperands(e); err != nil {
			return err
		}
		return c.prog.writeOp(op, line)

	case *ast.UnaryExpr:
		if err := c.compileExpr(e.Operand); err != nil {
			return err
		}
		switch e.Op {
		case token.MINUS:
			idx, err := c.prog.RegisterNumber(-1)
			if err != nil {
				return err
			}
			if err := c.prog.writeOp(OP_PUSH_NUMBER, line); err != nil {
				return err
			}
			if err := c.prog.writeInt(idx, line); err != nil {
				return err
			}
			return c.prog.writeOp(OP_MUL, line)
		case token.NOT:
			return c.prog.writeOp(OP_LOG_NOT, line)
		case token.PLUS:
			return nil
		}
		return c.errorE(e, diagnostics.ErrP006, "unsupported unary operator '%s'", e.Op)
	}

	return c.errorE(e, diagnostics.ErrP006, "got statement when expecting expression")
}

func (c *compiler) compileBinaryOperands(e *ast.BinaryExpr) *diagnostics.Error {
	if err := c.compileExpr(e.Lhs); err != nil {
		return err
	}
	return c.compileExpr(e.Rhs)
}

var compoundOps = map[token.TokenType]Opcode{
	token.PLUS_ASSIGN:    OP_ADD,
	token.MINUS_ASSIGN:   OP_SUB,
	token.STAR_ASSIGN:    OP_MUL,
	token.SLASH_ASSIGN:   OP_DIV,
	token.PERCENT_ASSIGN: OP_MOD,
	token.AND_ASSIGN:     OP_AND,
	token.OR_ASSIGN:      OP_OR,
}

// compileStatement emits stack-balanced code for a statement-position
// node.
func (c *compiler) compileStatement(e ast.Expr) *diagnostics.Error {
	line := e.GetToken().Line

	switch e := e.(type) {
	case *ast.CallExpr:
		// Call as statement: the return value stays in the return
		// register and is simply not fetched.
		return c.compileCall(e)

	case *ast.BlockExpr:
		for _, stmt := range e.Exprs {
			if err := c.compileStatement(stmt); err != nil {
				return err
			}
		}
		return nil

	case *ast.BinaryExpr:
		return c.compileAssignment(e)

	case *ast.ProcDecl:
		return c.compileProc(e)

	case *ast.IfExpr:
		return c.compileIf(e)

	case *ast.WhileExpr:
		return c.compileWhile(e)

	case *ast.ForExpr:
		return c.compileFor(e)

	case *ast.ReturnExpr:
		if e.Value != nil {
			if err := c.compileExpr(e.Value); err != nil {
				return err
			}
			return c.prog.writeOp(OP_RETURN_VALUE, line)
		}
		return c.prog.writeOp(OP_RETURN, line)
	}

	return c.errorE(e, diagnostics.ErrP006, "got expression when expecting statement")
}

// compileAssignment handles the statement forms of binary nodes:
// declarations, plain and compound assignments. Constant declarations
// generate no code.
func (c *compiler) compileAssignment(e *ast.BinaryExpr) *diagnostics.Error {
	if e.Op == token.DECLARE_CONST {
		return nil
	}

	if !e.Op.IsAssignment() {
		return c.errorE(e, diagnostics.ErrP006, "invalid operation when expecting statement")
	}

	lhs, ok := e.Lhs.(*ast.Ident)
	if !ok {
		return c.errorE(e, diagnostics.ErrP003, "left-hand side of assignment operation must be a variable")
	}

	if op, compound := compoundOps[e.Op]; compound {
		if err := c.compileGetId(lhs); err != nil {
			return err
		}
		if err := c.compileExpr(e.Rhs); err != nil {
			return err
		}
		if err := c.prog.writeOp(op, e.Token.Line); err != nil {
			return err
		}
	} else {
		if err := c.compileExpr(e.Rhs); err != nil {
			return err
		}
	}

	sym := lhs.Sym
	if sym == nil {
		sym = c.table.ReferenceVariable(lhs.Name)
	}
	if sym == nil {
		return c.errorE(e, diagnostics.ErrS002, "assigning to undeclared identifier '%s'", lhs.Name)
	}

	line := e.Token.Line

	switch sym.Kind {
	case symbols.GlobalSymbol:
		if err := c.prog.writeOp(OP_SET, line); err != nil {
			return err
		}
	case symbols.LocalSymbol:
		if err := c.prog.writeOp(OP_SETLOCAL, line); err != nil {
			return err
		}
	default:
		return c.errorE(e, diagnostics.ErrS003, "cannot assign to %s '%s'", sym.Kind, lhs.Name)
	}

	if err := c.prog.writeInt(sym.Index, line); err != nil {
		return err
	}
	sym.Initialized = true
	return nil
}

// compileProc lowers a function definition. At top level a GOTO skips
// over the body; the entry PC recorded for the function points at a
// prologue that reserves one zeroed slot per local.
func (c *compiler) compileProc(e *ast.ProcDecl) *diagnostics.Error {
	line := e.Token.Line

	if err := c.prog.writeOp(OP_GOTO, line); err != nil {
		return err
	}
	skipPatch := c.prog.Len()
	if err := c.prog.writeInt(0, line); err != nil {
		return err
	}

	c.prog.FunctionPCs[e.Decl.Index] = c.prog.Len()

	zeroIdx, err := c.prog.RegisterNumber(0)
	if err != nil {
		return err
	}
	for range e.Decl.Locals {
		if err := c.prog.writeOp(OP_PUSH_NUMBER, line); err != nil {
			return err
		}
		if err := c.prog.writeInt(zeroIdx, line); err != nil {
			return err
		}
	}

	if e.Body != nil {
		if err := c.compileStatement(e.Body); err != nil {
			return err
		}
	}

	if err := c.prog.writeOp(OP_RETURN, line); err != nil {
		return err
	}
	c.prog.patchInt(skipPatch, c.prog.Len())
	return nil
}

func (c *compiler) compileIf(e *ast.IfExpr) *diagnostics.Error {
	line := e.Token.Line

	if err := c.compileExpr(e.Cond); err != nil {
		return err
	}

	if err := c.prog.writeOp(OP_GOTOZ, line); err != nil {
		return err
	}
	elsePatch := c.prog.Len()
	if err := c.prog.writeInt(0, line); err != nil {
		return err
	}

	if e.Body != nil {
		if err := c.compileStatement(e.Body); err != nil {
			return err
		}
	}

	if err := c.prog.writeOp(OP_GOTO, line); err != nil {
		return err
	}
	endPatch := c.prog.Len()
	if err := c.prog.writeInt(0, line); err != nil {
		return err
	}

	c.prog.patchInt(elsePatch, c.prog.Len())

	if e.Alt != nil {
		if err := c.compileStatement(e.Alt); err != nil {
			return err
		}
	}

	c.prog.patchInt(endPatch, c.prog.Len())
	return nil
}

func (c *compiler) compileWhile(e *ast.WhileExpr) *diagnostics.Error {
	line := e.Token.Line

	condPC := c.prog.Len()
	if err := c.compileExpr(e.Cond); err != nil {
		return err
	}

	if err := c.prog.writeOp(OP_GOTOZ, line); err != nil {
		return err
	}
	exitPatch := c.prog.Len()
	if err := c.prog.writeInt(0, line); err != nil {
		return err
	}

	if e.Body != nil {
		if err := c.compileStatement(e.Body); err != nil {
			return err
		}
	}

	if err := c.prog.writeOp(OP_GOTO, line); err != nil {
		return err
	}
	if err := c.prog.writeInt(condPC, line); err != nil {
		return err
	}

	c.prog.patchInt(exitPatch, c.prog.Len())
	return nil
}

func (c *compiler) compileFor(e *ast.ForExpr) *diagnostics.Error {
	line := e.Token.Line

	if err := c.compileStatement(e.Init); err != nil {
		return err
	}

	condPC := c.prog.Len()
	if err := c.compileExpr(e.Cond); err != nil {
		return err
	}

	if err := c.prog.writeOp(OP_GOTOZ, line); err != nil {
		return err
	}
	exitPatch := c.prog.Len()
	if err := c.prog.writeInt(0, line); err != nil {
		return err
	}

	if e.Body != nil {
		if err := c.compileStatement(e.Body); err != nil {
			return err
		}
	}

	if err := c.compileStatement(e.Step); err != nil {
		return err
	}

	if err := c.prog.writeOp(OP_GOTO, line); err != nil {
		return err
	}
	if err := c.prog.writeInt(condPC, line); err != nil {
		return err
	}

	c.prog.patchInt(exitPatch, c.prog.Len())
	return nil
}
