// Copyright The glowy Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ast defines the abstract syntax tree produced by the parser:
// top-level declarations, statements and expressions for the supported Go
// subset. Every node carries a source Span; declarations,
// statements and call expressions may additionally carry a glowy
// Annotation.
package ast

import "github.com/ist199211-ist199311/glowy-langsec/internal/token"

// Node is implemented by every AST node.
type Node interface {
	Span() token.Span
}

// ChannelID identifies a `make(chan T)` allocation site. It is assigned by
// the parser, once, at parse time, so that all
// local aliases of the same channel share the same id regardless of which
// function or goroutine observes it.
type ChannelID int

// File is the root of a parsed source file: one package clause, its
// imports, and its top-level declarations.
type File struct {
	Name    string // origin filename
	Package string
	Imports []string
	Decls   []Decl

	// NumParseErrors is the number of lexer and parser errors produced while
	// building this file.
	NumParseErrors int
}

// Decl is a top-level const, var or func declaration.
type Decl interface {
	Node
	declNode()
}

// BindingSpec is a single `name = expr` pair within a const/var declaration.
type BindingSpec struct {
	Name  string
	Value Expr // nil for a bare `var x` with no initializer
	NameSp token.Span
}

// GenDecl is a top-level `const (...)`/`var (...)` declaration. Mutable
// distinguishes var (true) from const (false); only mutable symbols may be
// the target of an assignment.
type GenDecl struct {
	Mutable bool
	Specs   []BindingSpec
	Ann     *token.Annotation
	Sp      token.Span
}

func (d *GenDecl) Span() token.Span { return d.Sp }
func (*GenDecl) declNode()          {}

// FuncDecl is a top-level function declaration. Glowy supports only
// single-return-type, non-method, non-generic functions.
type FuncDecl struct {
	Name   string
	Params []string
	Body   []Stmt
	Ann    *token.Annotation
	Sp     token.Span
}

func (d *FuncDecl) Span() token.Span { return d.Sp }
func (*FuncDecl) declNode()          {}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// ExprStmt is a bare expression used as a statement, almost always a call.
type ExprStmt struct {
	X  Expr
	Sp token.Span
}

func (s *ExprStmt) Span() token.Span { return s.Sp }
func (*ExprStmt) stmtNode()          {}

// SendStmt is `channel <- value`.
type SendStmt struct {
	Chan  Expr
	Value Expr
	Sp    token.Span
}

func (s *SendStmt) Span() token.Span { return s.Sp }
func (*SendStmt) stmtNode()          {}

// IncDecStmt is `x++` or `x--`.
type IncDecStmt struct {
	X   Expr
	Op  token.Kind // Inc or Dec
	Sp  token.Span
}

func (s *IncDecStmt) Span() token.Span { return s.Sp }
func (*IncDecStmt) stmtNode()          {}

// AssignStmt is `lhs... op rhs...` for Op in {=, +=, -=, *=, /=}.
type AssignStmt struct {
	Lhs []Expr
	Rhs []Expr
	Op  token.Kind
	Ann *token.Annotation
	Sp  token.Span
}

func (s *AssignStmt) Span() token.Span { return s.Sp }
func (*AssignStmt) stmtNode()          {}

// ShortVarDecl is `ids... := exprs...`.
type ShortVarDecl struct {
	Names  []string
	NameSp []token.Span
	Values []Expr
	Ann    *token.Annotation
	Sp     token.Span
}

func (s *ShortVarDecl) Span() token.Span { return s.Sp }
func (*ShortVarDecl) stmtNode()          {}

// IfStmt is `if cond { then } else ...`. Else is either another *IfStmt
// (else-if chain) or a plain block, never both.
type IfStmt struct {
	Cond      Expr
	Then      []Stmt
	ElseIf    *IfStmt
	ElseBlock []Stmt // non-nil only when ElseIf is nil and an else block exists
	Sp        token.Span
}

func (s *IfStmt) Span() token.Span { return s.Sp }
func (*IfStmt) stmtNode()          {}

// ForStmt is Go's single-condition for loop: `for cond { body }`.
type ForStmt struct {
	Cond Expr // nil means an unconditional `for { ... }`
	Body []Stmt
	Sp   token.Span
}

func (s *ForStmt) Span() token.Span { return s.Sp }
func (*ForStmt) stmtNode()          {}

// BlockStmt is a standalone `{ ... }` nested block.
type BlockStmt struct {
	List []Stmt
	Sp   token.Span
}

func (s *BlockStmt) Span() token.Span { return s.Sp }
func (*BlockStmt) stmtNode()          {}

// ReturnStmt is `return expr, ...`.
type ReturnStmt struct {
	Results []Expr
	Sp      token.Span
}

func (s *ReturnStmt) Span() token.Span { return s.Sp }
func (*ReturnStmt) stmtNode()          {}

// GoStmt is `go call(...)`.
type GoStmt struct {
	Call *CallExpr
	Sp   token.Span
}

func (s *GoStmt) Span() token.Span { return s.Sp }
func (*GoStmt) stmtNode()          {}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Ident is a (possibly package-qualified) operand name.
type Ident struct {
	Package string // empty when unqualified
	Name    string
	Sp      token.Span
}

func (e *Ident) Span() token.Span { return e.Sp }
func (*Ident) exprNode()          {}

// BasicLit is an integer, float, string or rune literal. Literals always
// carry label ⊥.
type BasicLit struct {
	Kind  token.Kind
	Value string
	Sp    token.Span
}

func (e *BasicLit) Span() token.Span { return e.Sp }
func (*BasicLit) exprNode()          {}

// BinaryExpr is `x op y` for the supported binary operators.
type BinaryExpr struct {
	Op   token.Kind
	X, Y Expr
	Sp   token.Span
}

func (e *BinaryExpr) Span() token.Span { return e.Sp }
func (*BinaryExpr) exprNode()          {}

// UnaryExpr is a prefix operator: `!x`, `-x`, or a channel receive `<-x`.
type UnaryExpr struct {
	Op token.Kind
	X  Expr
	Sp token.Span
}

func (e *UnaryExpr) Span() token.Span { return e.Sp }
func (*UnaryExpr) exprNode()          {}

// IsReceive reports whether this unary expression is a channel receive.
func (e *UnaryExpr) IsReceive() bool { return e.Op == token.Arrow }

// CallExpr is `fun(args...)`, optionally annotated as a sink.
type CallExpr struct {
	Fun  Expr
	Args []Expr
	Ann  *token.Annotation
	Sp   token.Span
}

func (e *CallExpr) Span() token.Span { return e.Sp }
func (*CallExpr) exprNode()          {}

// IndexExpr is `x[index]`.
type IndexExpr struct {
	X, Index Expr
	Sp       token.Span
}

func (e *IndexExpr) Span() token.Span { return e.Sp }
func (*IndexExpr) exprNode()          {}

// MakeChanExpr is `make(chan T)`. ID is the stable channel allocation-site
// identifier assigned at parse time.
type MakeChanExpr struct {
	ElemType string
	ID       ChannelID
	Sp       token.Span
}

func (e *MakeChanExpr) Span() token.Span { return e.Sp }
func (*MakeChanExpr) exprNode()          {}
