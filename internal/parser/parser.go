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

// Package parser is a recursive-descent parser over a peekable token
// stream, producing the AST for the supported Go subset. It
// recovers from errors by skipping to the next semicolon or closing brace
// and keeps parsing, so a single malformed construct never hides the rest
// of the file's diagnostics.
package parser

import (
	"fmt"

	"github.com/ist199211-ist199311/glowy-langsec/internal/ast"
	"github.com/ist199211-ist199311/glowy-langsec/internal/lexer"
	"github.com/ist199211-ist199311/glowy-langsec/internal/token"
)

// ErrorKind identifies the category of a parse failure.
type ErrorKind int

const (
	// Expected is reported when a specific token kind was required but a
	// different one (or EOF) was found.
	Expected ErrorKind = iota
	// Unsupported is reported when a construct outside the supported Go
	// subset is encountered.
	Unsupported
)

// Error is a parser diagnostic.
type Error struct {
	Kind  ErrorKind
	Msg   string
	Span  token.Span
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Span.Start, e.Msg) }

// Warning is a non-fatal parser note, currently only W001 dropped
// annotations.
type Warning struct {
	Msg  string
	Span token.Span
}

// Parser consumes a peekable token stream and builds an AST.
type Parser struct {
	file    string
	stream  *lexer.Stream
	errs    []*Error
	warns   []*Warning
	chanSeq ast.ChannelID
}

// New creates a Parser over src, named file for diagnostics.
func New(file, src string) *Parser {
	lx := lexer.New(file, src)
	return &Parser{file: file, stream: lexer.NewStream(lx)}
}

// Errors returns the parser's own diagnostics. Lexer diagnostics are not
// included; LexErrors returns those.
func (p *Parser) Errors() []*Error {
	return p.errs
}

// Warnings returns dropped-annotation and similar warnings.
func (p *Parser) Warnings() []*Warning {
	return p.warns
}

// Parse parses a full source file.
func (p *Parser) Parse() *ast.File {
	file := &ast.File{Name: p.file}

	pkg := p.parsePackageClause()
	file.Package = pkg
	p.expectSemicolon()

	for p.peek().Kind == token.Import {
		p.next()
		if p.peek().Kind == token.String {
			file.Imports = append(file.Imports, p.next().Literal)
		} else {
			p.errorf(Expected, p.peek().Span, "expected import path string")
			p.recover()
		}
		p.expectSemicolon()
	}

	for p.peek().Kind != token.EOF {
		ann := p.consumeLeadingAnnotation()
		if p.peek().Kind == token.EOF {
			p.dropPendingAnnotation(ann)
			break
		}
		decl := p.parseTopLevelDecl(ann)
		if decl != nil {
			file.Decls = append(file.Decls, decl)
		}
		p.expectSemicolon()
	}

	file.NumParseErrors = len(p.errs) + len(p.lexerErrors())
	return file
}

func (p *Parser) lexerErrors() []*lexer.Error {
	return p.stream.Errors()
}

// LexErrors exposes the lexer diagnostics collected while parsing.
func (p *Parser) LexErrors() []*lexer.Error {
	return p.stream.Errors()
}

func (p *Parser) peek() token.Token  { return p.stream.Peek() }
func (p *Parser) next() token.Token  { return p.stream.Next() }

func (p *Parser) errorf(kind ErrorKind, span token.Span, format string, args ...any) {
	p.errs = append(p.errs, &Error{Kind: kind, Span: span, Msg: fmt.Sprintf(format, args...)})
}

func (p *Parser) warnf(span token.Span, format string, args ...any) {
	p.warns = append(p.warns, &Warning{Span: span, Msg: fmt.Sprintf(format, args...)})
}

// expect consumes the next token if it has the given kind, else records an
// Expected error and returns the zero token.
func (p *Parser) expect(kind token.Kind, context string) (token.Token, bool) {
	t := p.peek()
	if t.Kind == kind {
		return p.next(), true
	}
	p.errorf(Expected, t.Span, "expected %s%s, found %s", kind, context, t.Kind)
	return token.Token{}, false
}

func (p *Parser) expectSemicolon() {
	if p.peek().Kind == token.Semicolon {
		p.next()
		return
	}
	if p.peek().Kind == token.EOF || p.peek().Kind == token.RBrace {
		return
	}
	p.errorf(Expected, p.peek().Span, "expected %s, found %s", token.Semicolon, p.peek().Kind)
	p.recover()
}

// recover skips tokens until a semicolon, closing brace, or EOF.
func (p *Parser) recover() {
	for {
		t := p.peek()
		if t.Kind == token.Semicolon {
			p.next()
			return
		}
		if t.Kind == token.RBrace || t.Kind == token.EOF {
			return
		}
		p.next()
	}
}

// consumeLeadingAnnotation consumes an Annotation token if the stream is
// positioned at one, returning it for attachment to whatever node follows.
func (p *Parser) consumeLeadingAnnotation() *token.Annotation {
	if p.peek().Kind == token.AnnotationTok {
		t := p.next()
		return t.Ann
	}
	return nil
}

// dropPendingAnnotation records W001 when an annotation has nothing left to
// bind to before the next semicolon.
func (p *Parser) dropPendingAnnotation(ann *token.Annotation) {
	if ann != nil {
		p.warnf(ann.Span, "dropped annotation: no declaration, statement or call follows it")
	}
}

func (p *Parser) parsePackageClause() string {
	if _, ok := p.expect(token.Package, " (package clause)"); !ok {
		p.recover()
		return ""
	}
	name, ok := p.expect(token.Ident, " (package name)")
	if !ok {
		return ""
	}
	return name.Literal
}

func (p *Parser) parseTopLevelDecl(ann *token.Annotation) ast.Decl {
	switch p.peek().Kind {
	case token.Const:
		return p.parseGenDecl(false, ann)
	case token.Var:
		return p.parseGenDecl(true, ann)
	case token.Func:
		return p.parseFuncDecl(ann)
	default:
		t := p.peek()
		p.errorf(Unsupported, t.Span, "expected a top-level const, var or func declaration, found %s", t.Kind)
		p.dropPendingAnnotation(ann)
		p.recover()
		return nil
	}
}

func (p *Parser) parseGenDecl(mutable bool, ann *token.Annotation) *ast.GenDecl {
	start := p.peek().Span
	p.next() // const | var

	decl := &ast.GenDecl{Mutable: mutable, Ann: ann}

	if p.peek().Kind == token.LParen {
		p.next()
		for p.peek().Kind != token.RParen && p.peek().Kind != token.EOF {
			decl.Specs = append(decl.Specs, p.parseBindingSpec())
			p.expectSemicolon()
		}
		p.expect(token.RParen, " (end of grouped declaration)")
	} else {
		decl.Specs = append(decl.Specs, p.parseBindingSpec())
	}

	decl.Sp = token.Merge(start, p.lastSpan())
	return decl
}

func (p *Parser) parseBindingSpec() ast.BindingSpec {
	name, _ := p.expect(token.Ident, " (declared name)")
	spec := ast.BindingSpec{Name: name.Literal, NameSp: name.Span}
	if p.peek().Kind == token.Assign {
		p.next()
		spec.Value = p.parseExpr()
	}
	return spec
}

func (p *Parser) parseFuncDecl(ann *token.Annotation) *ast.FuncDecl {
	start := p.peek().Span
	p.next() // func
	name, _ := p.expect(token.Ident, " (function name)")

	decl := &ast.FuncDecl{Name: name.Literal, Ann: ann}

	p.expect(token.LParen, " (parameter list)")
	for p.peek().Kind != token.RParen && p.peek().Kind != token.EOF {
		param, _ := p.expect(token.Ident, " (parameter name)")
		decl.Params = append(decl.Params, param.Literal)
		// An optional type name follows a parameter; glowy does not model
		// types, so it is consumed and discarded.
		if p.peek().Kind == token.Ident {
			p.next()
		}
		if p.peek().Kind == token.Comma {
			p.next()
		} else {
			break
		}
	}
	p.expect(token.RParen, " (end of parameter list)")

	// An optional return type name is likewise consumed and discarded.
	if p.peek().Kind == token.Ident {
		p.next()
	}

	decl.Body = p.parseBlock()
	decl.Sp = token.Merge(start, p.lastSpan())
	return decl
}

func (p *Parser) lastSpan() token.Span {
	return p.peek().Span
}

// parseBlock parses `{ stmt... }`.
func (p *Parser) parseBlock() []ast.Stmt {
	p.expect(token.LBrace, " (start of block)")
	var stmts []ast.Stmt
	for p.peek().Kind != token.RBrace && p.peek().Kind != token.EOF {
		ann := p.consumeLeadingAnnotation()
		if p.peek().Kind == token.RBrace || p.peek().Kind == token.EOF {
			p.dropPendingAnnotation(ann)
			break
		}
		if p.peek().Kind == token.Semicolon {
			p.dropPendingAnnotation(ann)
			p.next()
			continue
		}
		stmt := p.parseStatement(ann)
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
		p.expectSemicolon()
	}
	p.expect(token.RBrace, " (end of block)")
	return stmts
}

func (p *Parser) parseStatement(ann *token.Annotation) ast.Stmt {
	switch p.peek().Kind {
	case token.If:
		p.dropPendingAnnotation(ann)
		return p.parseIf()
	case token.For:
		p.dropPendingAnnotation(ann)
		return p.parseFor()
	case token.Return:
		p.dropPendingAnnotation(ann)
		return p.parseReturn()
	case token.Go:
		p.dropPendingAnnotation(ann)
		return p.parseGo()
	case token.LBrace:
		p.dropPendingAnnotation(ann)
		start := p.peek().Span
		list := p.parseBlock()
		return &ast.BlockStmt{List: list, Sp: start}
	default:
		return p.parseSimpleStmt(ann)
	}
}

func (p *Parser) parseIf() ast.Stmt {
	start := p.peek().Span
	p.next() // if
	cond := p.parseExpr()
	then := p.parseBlock()
	ifStmt := &ast.IfStmt{Cond: cond, Then: then}

	if p.peek().Kind == token.Else {
		p.next()
		if p.peek().Kind == token.If {
			ifStmt.ElseIf = p.parseIf().(*ast.IfStmt)
		} else {
			ifStmt.ElseBlock = p.parseBlock()
			if ifStmt.ElseBlock == nil {
				// keep an empty `else {}` distinguishable from no else clause
				ifStmt.ElseBlock = []ast.Stmt{}
			}
		}
	}
	ifStmt.Sp = token.Merge(start, p.lastSpan())
	return ifStmt
}

func (p *Parser) parseFor() ast.Stmt {
	start := p.peek().Span
	p.next() // for
	var cond ast.Expr
	if p.peek().Kind != token.LBrace {
		cond = p.parseExpr()
	}
	body := p.parseBlock()
	return &ast.ForStmt{Cond: cond, Body: body, Sp: token.Merge(start, p.lastSpan())}
}

func (p *Parser) parseReturn() ast.Stmt {
	start := p.peek().Span
	p.next() // return
	var results []ast.Expr
	if p.peek().Kind != token.Semicolon && p.peek().Kind != token.RBrace && p.peek().Kind != token.EOF {
		results = p.parseExprList()
	}
	return &ast.ReturnStmt{Results: results, Sp: token.Merge(start, p.lastSpan())}
}

func (p *Parser) parseGo() ast.Stmt {
	start := p.peek().Span
	p.next() // go
	expr := p.parseExpr()
	call, ok := expr.(*ast.CallExpr)
	if !ok {
		p.errorf(Expected, expr.Span(), "expected a function call after go, found another expression")
		return &ast.GoStmt{Call: nil, Sp: token.Merge(start, expr.Span())}
	}
	return &ast.GoStmt{Call: call, Sp: token.Merge(start, call.Span())}
}

func (p *Parser) parseSimpleStmt(ann *token.Annotation) ast.Stmt {
	start := p.peek().Span
	lhs := p.parseExprList()

	switch p.peek().Kind {
	case token.Arrow:
		p.next()
		value := p.parseExpr()
		if len(lhs) != 1 {
			p.errorf(Expected, start, "expected a single channel expression before <-")
		}
		var ch ast.Expr
		if len(lhs) > 0 {
			ch = lhs[0]
		}
		p.dropPendingAnnotation(ann) // send sinks are not modeled as a distinct node kind
		return &ast.SendStmt{Chan: ch, Value: value, Sp: token.Merge(start, value.Span())}

	case token.Inc, token.Dec:
		op := p.next().Kind
		if len(lhs) != 1 {
			p.errorf(Expected, start, "expected a single operand before %s", op)
		}
		var x ast.Expr
		if len(lhs) > 0 {
			x = lhs[0]
		}
		p.dropPendingAnnotation(ann)
		return &ast.IncDecStmt{X: x, Op: op, Sp: token.Merge(start, p.lastSpan())}

	case token.Define:
		p.next()
		rhs := p.parseExprList()
		names := make([]string, len(lhs))
		spans := make([]token.Span, len(lhs))
		for i, e := range lhs {
			if id, ok := e.(*ast.Ident); ok {
				names[i] = id.Name
				spans[i] = id.Sp
			} else {
				p.errorf(Expected, e.Span(), "expected an identifier on the left of :=")
			}
		}
		decl := &ast.ShortVarDecl{Names: names, NameSp: spans, Values: rhs, Ann: ann, Sp: token.Merge(start, p.lastSpan())}
		return decl

	case token.Assign, token.PlusEq, token.MinusEq, token.StarEq, token.SlashEq:
		op := p.next().Kind
		rhs := p.parseExprList()
		return &ast.AssignStmt{Lhs: lhs, Rhs: rhs, Op: op, Ann: ann, Sp: token.Merge(start, p.lastSpan())}

	default:
		if len(lhs) != 1 {
			p.errorf(Expected, start, "expected a single expression statement")
		}
		var x ast.Expr
		if len(lhs) > 0 {
			x = lhs[0]
		}
		if x != nil {
			if call, ok := x.(*ast.CallExpr); ok && ann != nil {
				call.Ann = mergeAnnotation(call.Ann, ann)
			} else {
				p.dropPendingAnnotation(ann)
			}
		} else {
			p.dropPendingAnnotation(ann)
		}
		return &ast.ExprStmt{X: x, Sp: start}
	}
}

func mergeAnnotation(existing, incoming *token.Annotation) *token.Annotation {
	if existing == nil {
		return incoming
	}
	return existing
}

func (p *Parser) parseExprList() []ast.Expr {
	exprs := []ast.Expr{p.parseExpr()}
	for p.peek().Kind == token.Comma {
		p.next()
		exprs = append(exprs, p.parseExpr())
	}
	return exprs
}

// Expression grammar, precedence lowest to highest:
// || < && < comparison < +/- < */%/ < unary < primary.

func (p *Parser) parseExpr() ast.Expr {
	return p.parseOrExpr()
}

func (p *Parser) parseOrExpr() ast.Expr {
	x := p.parseAndExpr()
	for p.peek().Kind == token.OrOr {
		op := p.next()
		y := p.parseAndExpr()
		x = &ast.BinaryExpr{Op: op.Kind, X: x, Y: y, Sp: token.Merge(x.Span(), y.Span())}
	}
	return x
}

func (p *Parser) parseAndExpr() ast.Expr {
	x := p.parseCmpExpr()
	for p.peek().Kind == token.AndAnd {
		op := p.next()
		y := p.parseCmpExpr()
		x = &ast.BinaryExpr{Op: op.Kind, X: x, Y: y, Sp: token.Merge(x.Span(), y.Span())}
	}
	return x
}

var cmpOps = map[token.Kind]bool{
	token.Eq: true, token.Neq: true, token.Lt: true, token.Leq: true, token.Gt: true, token.Geq: true,
}

func (p *Parser) parseCmpExpr() ast.Expr {
	x := p.parseAddExpr()
	for cmpOps[p.peek().Kind] {
		op := p.next()
		y := p.parseAddExpr()
		x = &ast.BinaryExpr{Op: op.Kind, X: x, Y: y, Sp: token.Merge(x.Span(), y.Span())}
	}
	return x
}

func (p *Parser) parseAddExpr() ast.Expr {
	x := p.parseMulExpr()
	for p.peek().Kind == token.Plus || p.peek().Kind == token.Minus {
		op := p.next()
		y := p.parseMulExpr()
		x = &ast.BinaryExpr{Op: op.Kind, X: x, Y: y, Sp: token.Merge(x.Span(), y.Span())}
	}
	return x
}

func (p *Parser) parseMulExpr() ast.Expr {
	x := p.parseUnaryExpr()
	for p.peek().Kind == token.Star || p.peek().Kind == token.Slash || p.peek().Kind == token.Percent {
		op := p.next()
		y := p.parseUnaryExpr()
		x = &ast.BinaryExpr{Op: op.Kind, X: x, Y: y, Sp: token.Merge(x.Span(), y.Span())}
	}
	return x
}

func (p *Parser) parseUnaryExpr() ast.Expr {
	switch p.peek().Kind {
	case token.Not, token.Minus, token.Arrow:
		op := p.next()
		x := p.parseUnaryExpr()
		return &ast.UnaryExpr{Op: op.Kind, X: x, Sp: token.Merge(op.Span, x.Span())}
	default:
		return p.parsePrimary()
	}
}

// parsePrimary parses an operand followed by any chain of call and index
// postfix operators: `f(a)(b)[i]`.
func (p *Parser) parsePrimary() ast.Expr {
	x := p.parseOperand()
	for {
		switch p.peek().Kind {
		case token.LParen:
			p.next()
			var args []ast.Expr
			for p.peek().Kind != token.RParen && p.peek().Kind != token.EOF {
				args = append(args, p.parseExpr())
				if p.peek().Kind == token.Comma {
					p.next()
				} else {
					break
				}
			}
			end, _ := p.expect(token.RParen, " (end of call arguments)")
			x = &ast.CallExpr{Fun: x, Args: args, Sp: token.Merge(x.Span(), end.Span)}
		case token.LBracket:
			p.next()
			idx := p.parseExpr()
			end, _ := p.expect(token.RBracket, " (end of index expression)")
			x = &ast.IndexExpr{X: x, Index: idx, Sp: token.Merge(x.Span(), end.Span)}
		default:
			return x
		}
	}
}

func (p *Parser) parseOperand() ast.Expr {
	t := p.peek()
	switch t.Kind {
	case token.Ident:
		p.next()
		id := &ast.Ident{Name: t.Literal, Sp: t.Span}
		if p.peek().Kind == token.Period {
			p.next()
			sel, _ := p.expect(token.Ident, " (selector)")
			id = &ast.Ident{Package: t.Literal, Name: sel.Literal, Sp: token.Merge(t.Span, sel.Span)}
		}
		return id

	case token.Int, token.Float, token.String, token.Rune:
		p.next()
		return &ast.BasicLit{Kind: t.Kind, Value: t.Literal, Sp: t.Span}

	case token.True, token.False:
		p.next()
		return &ast.BasicLit{Kind: t.Kind, Value: t.Literal, Sp: t.Span}

	case token.LParen:
		p.next()
		x := p.parseExpr()
		p.expect(token.RParen, " (closing parenthesis)")
		return x

	case token.Make:
		return p.parseMakeChan()

	default:
		p.errorf(Expected, t.Span, "expected an operand, found %s", t.Kind)
		p.next()
		return &ast.Ident{Name: "_", Sp: t.Span}
	}
}

// parseMakeChan parses `make(chan T)`, assigning a fresh ChannelID to the
// allocation site.
func (p *Parser) parseMakeChan() ast.Expr {
	start := p.peek().Span
	p.next() // make
	p.expect(token.LParen, " (make arguments)")
	p.expect(token.Chan, " (channel type)")
	elem := ""
	if p.peek().Kind == token.Ident {
		elem = p.next().Literal
	}
	end, _ := p.expect(token.RParen, " (end of make call)")

	p.chanSeq++
	return &ast.MakeChanExpr{ElemType: elem, ID: p.chanSeq, Sp: token.Merge(start, end.Span)}
}
