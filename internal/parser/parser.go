// Package parser builds the expression tree for a compilation unit.
//
// It is a recursive-descent factor parser with precedence climbing for
// binary operators. Declarations are a side effect of parsing: seeing
// `:=`, `::`, or a `func` header registers symbols in the table the
// compiler later resolves against.
package parser

import (
	"github.com/hiperiondev/tiny/internal/ast"
	"github.com/hiperiondev/tiny/internal/config"
	"github.com/hiperiondev/tiny/internal/diagnostics"
	"github.com/hiperiondev/tiny/internal/lexer"
	"github.com/hiperiondev/tiny/internal/symbols"
	"github.com/hiperiondev/tiny/internal/token"
)

// Binding powers, lowest to highest. Unary operators bind tighter than
// any binary operator.
const (
	precNone       = -1
	precAssignment = 1 // = := :: and the compound assignments
	precLogical    = 2 // and or
	precComparison = 3 // < > <= >= == !=
	precAdditive   = 4 // + -
	precFactor     = 5 // * / % & |
)

func tokenPrec(t token.TokenType) int {
	switch t {
	case token.STAR, token.SLASH, token.PERCENT, token.AMP, token.PIPE:
		return precFactor
	case token.PLUS, token.MINUS:
		return precAdditive
	case token.LT, token.GT, token.LTE, token.GTE, token.EQ, token.NOT_EQ:
		return precComparison
	case token.AND, token.OR:
		return precLogical
	case token.ASSIGN, token.DECLARE, token.DECLARE_CONST,
		token.PLUS_ASSIGN, token.MINUS_ASSIGN, token.STAR_ASSIGN,
		token.SLASH_ASSIGN, token.PERCENT_ASSIGN, token.AND_ASSIGN,
		token.OR_ASSIGN:
		return precAssignment
	}
	return precNone
}

type Parser struct {
	lex      *lexer.Lexer
	curToken token.Token
	table    *symbols.Table
}

func New(lex *lexer.Lexer, table *symbols.Table) *Parser {
	return &Parser{lex: lex, table: table}
}

func (p *Parser) nextToken() {
	p.curToken = p.lex.NextToken()
}

func (p *Parser) errorf(code string, format string, args ...interface{}) *diagnostics.Error {
	return diagnostics.NewError(code, p.curToken, format, args...)
}

func (p *Parser) expect(t token.TokenType, code string, format string, args ...interface{}) *diagnostics.Error {
	if p.curToken.Type != t {
		return p.errorf(code, format, args...)
	}
	return nil
}

// ParseProgram consumes the whole token stream and returns the
// top-level expression list. Parsing stops at the first fatal
// diagnostic; lexical faults surface here as well.
func (p *Parser) ParseProgram() ([]ast.Expr, *diagnostics.Error) {
	p.nextToken()

	var program []ast.Expr
	for p.curToken.Type != token.EOF {
		if p.curToken.Type == token.ILLEGAL {
			if errs := p.lex.Errors(); len(errs) > 0 {
				return nil, errs[0]
			}
			return nil, p.errorf(diagnostics.ErrP001, "illegal token")
		}

		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		program = append(program, expr)
	}

	return program, nil
}

func (p *Parser) parseExpr() (ast.Expr, *diagnostics.Error) {
	lhs, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	return p.parseBinRhs(0, lhs)
}

// parseBinRhs climbs binary operators with precedence at least
// exprPrec. The `prec < nextPrec` recursion makes same-precedence
// operators left-associative; this includes the assignment family, so
// `a = b = c` folds as `(a = b) = c`.
func (p *Parser) parseBinRhs(exprPrec int, lhs ast.Expr) (ast.Expr, *diagnostics.Error) {
	for {
		prec := tokenPrec(p.curToken.Type)
		if prec < exprPrec {
			return lhs, nil
		}

		opToken := p.curToken
		op := opToken.Type

		// A declaration is only recognizable once its operator shows
		// up; the identifier on the left is registered here, before
		// the right-hand side is parsed.
		if op == token.DECLARE {
			ident, ok := lhs.(*ast.Ident)
			if !ok {
				return nil, p.errorf(diagnostics.ErrP003,
					"expected identifier on the left-hand side of ':='")
			}

			var sym *symbols.Symbol
			var err *diagnostics.Error
			if p.table.CurFunc != nil {
				sym, err = p.table.DeclareLocal(ident.Name, ident.Token)
			} else {
				sym, err = p.table.DeclareGlobal(ident.Name, ident.Token)
			}
			if err != nil {
				return nil, err
			}
			ident.Sym = sym
		}

		p.nextToken()

		rhs, err := p.parseFactor()
		if err != nil {
			return nil, err
		}

		if nextPrec := tokenPrec(p.curToken.Type); prec < nextPrec {
			rhs, err = p.parseBinRhs(prec+1, rhs)
			if err != nil {
				return nil, err
			}
		}

		if op == token.DECLARE_CONST {
			ident, ok := lhs.(*ast.Ident)
			if !ok {
				return nil, p.errorf(diagnostics.ErrP003,
					"expected identifier on the left-hand side of '::'")
			}

			var declErr *diagnostics.Error
			switch lit := rhs.(type) {
			case *ast.NumberLit:
				_, declErr = p.table.DeclareConstNumber(ident.Name, lit.Value, ident.Token)
			case *ast.StringLit:
				_, declErr = p.table.DeclareConstString(ident.Name, lit.Value, ident.Token)
			default:
				declErr = diagnostics.NewError(diagnostics.ErrP003, opToken,
					"expected number or string to be bound to constant '%s'", ident.Name)
			}
			if declErr != nil {
				return nil, declErr
			}
		}

		lhs = &ast.BinaryExpr{Token: opToken, Op: op, Lhs: lhs, Rhs: rhs}
	}
}

func (p *Parser) parseFactor() (ast.Expr, *diagnostics.Error) {
	tok := p.curToken

	switch tok.Type {
	case token.NULL:
		p.nextToken()
		return &ast.NullLit{Token: tok}, nil

	case token.TRUE, token.FALSE:
		p.nextToken()
		return &ast.BoolLit{Token: tok, Value: tok.Type == token.TRUE}, nil

	case token.NUMBER:
		p.nextToken()
		return &ast.NumberLit{Token: tok, Value: tok.Number}, nil

	case token.STRING:
		p.nextToken()
		return &ast.StringLit{Token: tok, Value: tok.Lexeme}, nil

	case token.LBRACE:
		return p.parseBlock()

	case token.IDENT:
		return p.parseIdentOrCall()

	case token.MINUS, token.PLUS, token.NOT:
		p.nextToken()
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Token: tok, Op: tok.Type, Operand: operand}, nil

	case token.FUNC:
		return p.parseProc()

	case token.IF:
		return p.parseIf()

	case token.WHILE:
		return p.parseWhile()

	case token.FOR:
		return p.parseFor()

	case token.RETURN:
		return p.parseReturn()

	case token.LPAREN:
		p.nextToken()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RPAREN, diagnostics.ErrP002, "expected matching ')' after previous '('"); err != nil {
			return nil, err
		}
		p.nextToken()
		return &ast.ParenExpr{Token: tok, Inner: inner}, nil
	}

	return nil, p.errorf(diagnostics.ErrP001, "unexpected token '%s'", tok.Type)
}

func (p *Parser) parseBlock() (ast.Expr, *diagnostics.Error) {
	block := &ast.BlockExpr{Token: p.curToken}

	p.nextToken()
	p.table.OpenScope()

	for p.curToken.Type != token.RBRACE {
		if p.curToken.Type == token.EOF {
			return nil, p.errorf(diagnostics.ErrP002, "expected '}' to close block")
		}
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		block.Exprs = append(block.Exprs, expr)
	}

	p.nextToken()
	p.table.CloseScope()

	return block, nil
}

func (p *Parser) parseIdentOrCall() (ast.Expr, *diagnostics.Error) {
	identTok := p.curToken
	p.nextToken()

	if p.curToken.Type != token.LPAREN {
		return &ast.Ident{
			Token: identTok,
			Name:  identTok.Lexeme,
			Sym:   p.table.ReferenceVariable(identTok.Lexeme),
		}, nil
	}

	call := &ast.CallExpr{Token: identTok, Callee: identTok.Lexeme}

	p.nextToken()
	for p.curToken.Type != token.RPAREN {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)

		if p.curToken.Type == token.COMMA {
			p.nextToken()
		} else if p.curToken.Type != token.RPAREN {
			return nil, p.errorf(diagnostics.ErrP005, "expected ')' after call")
		}
	}
	p.nextToken()

	return call, nil
}

func (p *Parser) parseProc() (ast.Expr, *diagnostics.Error) {
	procTok := p.curToken

	if p.table.CurFunc != nil {
		return nil, p.errorf(diagnostics.ErrP006,
			"attempted to define function inside of function '%s'", p.table.CurFunc.Name)
	}

	p.nextToken()
	if err := p.expect(token.IDENT, diagnostics.ErrP001, "function name must be an identifier"); err != nil {
		return nil, err
	}

	proc := &ast.ProcDecl{Token: procTok}
	proc.Decl = p.table.DeclareFunction(p.curToken.Lexeme, p.curToken)
	p.table.CurFunc = proc.Decl
	defer func() { p.table.CurFunc = nil }()

	p.nextToken()
	if err := p.expect(token.LPAREN, diagnostics.ErrP001, "expected '(' after function name"); err != nil {
		return nil, err
	}
	p.nextToken()

	// Argument offsets depend on the final count, so collect names
	// first and register them once the list is closed.
	var argNames []string
	var argToks []token.Token
	for p.curToken.Type != token.RPAREN {
		if err := p.expect(token.IDENT, diagnostics.ErrP005, "expected identifier in function parameter list"); err != nil {
			return nil, err
		}
		if len(argNames) >= config.MaxArgs {
			return nil, p.errorf(diagnostics.ErrR002,
				"function '%s' takes too many arguments", proc.Decl.Name)
		}

		argNames = append(argNames, p.curToken.Lexeme)
		argToks = append(argToks, p.curToken)
		p.nextToken()

		if p.curToken.Type != token.RPAREN && p.curToken.Type != token.COMMA {
			return nil, p.errorf(diagnostics.ErrP005,
				"expected ')' or ',' after parameter name in function parameter list")
		}
		if p.curToken.Type == token.COMMA {
			p.nextToken()
		}
	}

	for i, name := range argNames {
		if _, err := p.table.DeclareArgument(name, len(argNames), argToks[i]); err != nil {
			return nil, err
		}
	}

	p.nextToken()

	p.table.OpenScope()
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.table.CloseScope()

	proc.Body = body
	return proc, nil
}

func (p *Parser) parseIf() (ast.Expr, *diagnostics.Error) {
	ifTok := p.curToken
	p.nextToken()

	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	expr := &ast.IfExpr{Token: ifTok, Cond: cond, Body: body}

	if p.curToken.Type == token.ELSE {
		p.nextToken()
		expr.Alt, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}

	return expr, nil
}

func (p *Parser) parseWhile() (ast.Expr, *diagnostics.Error) {
	whileTok := p.curToken
	p.nextToken()

	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	p.table.OpenScope()
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.table.CloseScope()

	return &ast.WhileExpr{Token: whileTok, Cond: cond, Body: body}, nil
}

func (p *Parser) parseFor() (ast.Expr, *diagnostics.Error) {
	forTok := p.curToken
	p.nextToken()

	// Locals declared in the head are scoped to the whole loop.
	p.table.OpenScope()
	defer p.table.CloseScope()

	init, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.SEMICOLON, diagnostics.ErrP004, "expected ';' after for initializer"); err != nil {
		return nil, err
	}
	p.nextToken()

	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.SEMICOLON, diagnostics.ErrP004, "expected ';' after for condition"); err != nil {
		return nil, err
	}
	p.nextToken()

	step, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	return &ast.ForExpr{Token: forTok, Init: init, Cond: cond, Step: step, Body: body}, nil
}

func (p *Parser) parseReturn() (ast.Expr, *diagnostics.Error) {
	retTok := p.curToken

	if p.table.CurFunc == nil {
		return nil, p.errorf(diagnostics.ErrP006, "return is only allowed inside function bodies")
	}

	p.nextToken()
	if p.curToken.Type == token.SEMICOLON {
		p.nextToken()
		return &ast.ReturnExpr{Token: retTok}, nil
	}

	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.ReturnExpr{Token: retTok, Value: value}, nil
}
