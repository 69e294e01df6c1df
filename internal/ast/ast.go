// Package ast defines the expression tree produced by the parser.
//
// Tiny is expression-oriented at the syntax level: control flow,
// blocks, and function definitions are all Expr nodes, and the
// compiler decides whether a node appears in value or statement
// position.
package ast

import (
	"github.com/hiperiondev/tiny/internal/symbols"
	"github.com/hiperiondev/tiny/internal/token"
)

// Expr is the interface implemented by every node.
type Expr interface {
	GetToken() token.Token
	exprNode()
}

// Ident is a reference to a variable or constant. Sym is resolved
// during parsing when the name is already declared; it stays nil for
// forward references and is checked again at compile time.
type Ident struct {
	Token token.Token
	Name  string
	Sym   *symbols.Symbol
}

// CallExpr is a call to a user or foreign function by name. The callee
// symbol is resolved at compile time so forward references work.
type CallExpr struct {
	Token  token.Token
	Callee string
	Args   []Expr
}

type NullLit struct {
	Token token.Token
}

type BoolLit struct {
	Token token.Token
	Value bool
}

type NumberLit struct {
	Token token.Token
	Value float64
}

type StringLit struct {
	Token token.Token
	Value string
}

// BinaryExpr covers arithmetic, comparison, logical, declaration, and
// assignment operators; Op is the operator token type.
type BinaryExpr struct {
	Token token.Token
	Op    token.TokenType
	Lhs   Expr
	Rhs   Expr
}

type ParenExpr struct {
	Token token.Token
	Inner Expr
}

// BlockExpr is a `{ ... }` sequence of statements.
type BlockExpr struct {
	Token token.Token
	Exprs []Expr
}

// ProcDecl is a `func name(args) body` definition. The declaration
// symbol carries the argument and local lists accumulated while the
// body was parsed.
type ProcDecl struct {
	Token token.Token
	Decl  *symbols.Symbol
	Body  Expr
}

type IfExpr struct {
	Token token.Token
	Cond  Expr
	Body  Expr
	Alt   Expr // nil when there is no else branch
}

type WhileExpr struct {
	Token token.Token
	Cond  Expr
	Body  Expr
}

type ForExpr struct {
	Token token.Token
	Init  Expr
	Cond  Expr
	Step  Expr
	Body  Expr
}

// ReturnExpr is a return statement; Value is nil for a bare `return;`.
type ReturnExpr struct {
	Token token.Token
	Value Expr
}

type UnaryExpr struct {
	Token   token.Token
	Op      token.TokenType
	Operand Expr
}

func (e *Ident) GetToken() token.Token      { return e.Token }
func (e *CallExpr) GetToken() token.Token   { return e.Token }
func (e *NullLit) GetToken() token.Token    { return e.Token }
func (e *BoolLit) GetToken() token.Token    { return e.Token }
func (e *NumberLit) GetToken() token.Token  { return e.Token }
func (e *StringLit) GetToken() token.Token  { return e.Token }
func (e *BinaryExpr) GetToken() token.Token { return e.Token }
func (e *ParenExpr) GetToken() token.Token  { return e.Token }
func (e *BlockExpr) GetToken() token.Token  { return e.Token }
func (e *ProcDecl) GetToken() token.Token   { return e.Token }
func (e *IfExpr) GetToken() token.Token     { return e.Token }
func (e *WhileExpr) GetToken() token.Token  { return e.Token }
func (e *ForExpr) GetToken() token.Token    { return e.Token }
func (e *ReturnExpr) GetToken() token.Token { return e.Token }
func (e *UnaryExpr) GetToken() token.Token  { return e.Token }

func (*Ident) exprNode()      {}
func (*CallExpr) exprNode()   {}
func (*NullLit) exprNode()    {}
func (*BoolLit) exprNode()    {}
func (*NumberLit) exprNode()  {}
func (*StringLit) exprNode()  {}
func (*BinaryExpr) exprNode() {}
func (*ParenExpr) exprNode()  {}
func (*BlockExpr) exprNode()  {}
func (*ProcDecl) exprNode()   {}
func (*IfExpr) exprNode()     {}
func (*WhileExpr) exprNode()  {}
func (*ForExpr) exprNode()    {}
func (*ReturnExpr) exprNode() {}
func (*UnaryExpr) exprNode()  {}
