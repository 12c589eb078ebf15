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

package parser

import (
	"testing"

	"github.com/ist199211-ist199311/glowy-langsec/internal/ast"
)

func TestParsePackageAndImport(t *testing.T) {
	p := New("test.gly", "package main\n\nimport \"fmt\"\n\nfunc main() {}\n")
	f := p.Parse()
	if f.Package != "main" {
		t.Errorf("Package = %q, want %q", f.Package, "main")
	}
	if len(f.Imports) != 1 || f.Imports[0] != "fmt" {
		t.Errorf("Imports = %v, want [fmt]", f.Imports)
	}
	if len(p.Errors()) != 0 {
		t.Errorf("Errors() = %v, want none", p.Errors())
	}
}

func TestParseGenDeclWithAnnotation(t *testing.T) {
	src := `package main

// glowy::label::{secret}
var password = 0
`
	f := New("test.gly", src).Parse()
	if len(f.Decls) != 1 {
		t.Fatalf("Decls = %v, want 1", f.Decls)
	}
	decl, ok := f.Decls[0].(*ast.GenDecl)
	if !ok {
		t.Fatalf("Decls[0] = %T, want *ast.GenDecl", f.Decls[0])
	}
	if decl.Ann == nil || decl.Ann.Scope != "label" {
		t.Fatalf("Ann = %+v, want scope %q", decl.Ann, "label")
	}
	if len(decl.Specs) != 1 || decl.Specs[0].Name != "password" {
		t.Fatalf("Specs = %+v, want one spec named password", decl.Specs)
	}
}

func TestParseGroupedGenDecl(t *testing.T) {
	src := "package main\n\nconst (\n  a = 1\n  b = 2\n)\n"
	f := New("test.gly", src).Parse()
	decl := f.Decls[0].(*ast.GenDecl)
	if decl.Mutable {
		t.Error("const decl should have Mutable == false")
	}
	if len(decl.Specs) != 2 {
		t.Fatalf("Specs = %v, want 2", decl.Specs)
	}
}

func TestParseFuncDeclWithParams(t *testing.T) {
	src := "package main\n\nfunc add(a int, b int) int {\n  return a + b\n}\n"
	f := New("test.gly", src).Parse()
	decl := f.Decls[0].(*ast.FuncDecl)
	if decl.Name != "add" {
		t.Errorf("Name = %q, want %q", decl.Name, "add")
	}
	if len(decl.Params) != 2 || decl.Params[0] != "a" || decl.Params[1] != "b" {
		t.Errorf("Params = %v, want [a b]", decl.Params)
	}
	if len(decl.Body) != 1 {
		t.Fatalf("Body = %v, want one statement", decl.Body)
	}
	ret, ok := decl.Body[0].(*ast.ReturnStmt)
	if !ok {
		t.Fatalf("Body[0] = %T, want *ast.ReturnStmt", decl.Body[0])
	}
	if len(ret.Results) != 1 {
		t.Fatalf("Results = %v, want 1", ret.Results)
	}
	bin, ok := ret.Results[0].(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("Results[0] = %T, want *ast.BinaryExpr", ret.Results[0])
	}
	if _, ok := bin.X.(*ast.Ident); !ok {
		t.Errorf("bin.X = %T, want *ast.Ident", bin.X)
	}
}

func TestParseIfElse(t *testing.T) {
	src := "package main\n\nfunc f() {\n  if x == 0 {\n    y = 1\n  } else {\n    y = 2\n  }\n}\n"
	f := New("test.gly", src).Parse()
	decl := f.Decls[0].(*ast.FuncDecl)
	ifStmt, ok := decl.Body[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("Body[0] = %T, want *ast.IfStmt", decl.Body[0])
	}
	if len(ifStmt.Then) != 1 || len(ifStmt.ElseBlock) != 1 {
		t.Errorf("Then/ElseBlock = %v/%v, want one statement each", ifStmt.Then, ifStmt.ElseBlock)
	}
	if ifStmt.ElseIf != nil {
		t.Error("plain else should not populate ElseIf")
	}
}

func TestParseElseIfChain(t *testing.T) {
	src := "package main\n\nfunc f() {\n  if a == 0 {\n  } else if b == 0 {\n  } else {\n  }\n}\n"
	f := New("test.gly", src).Parse()
	decl := f.Decls[0].(*ast.FuncDecl)
	ifStmt := decl.Body[0].(*ast.IfStmt)
	if ifStmt.ElseIf == nil {
		t.Fatal("expected an else-if chain")
	}
	if ifStmt.ElseIf.ElseBlock == nil {
		t.Error("expected the chain's final else block to be parsed")
	}
}

func TestParseForLoop(t *testing.T) {
	src := "package main\n\nfunc f() {\n  for x < 10 {\n    x++\n  }\n}\n"
	f := New("test.gly", src).Parse()
	decl := f.Decls[0].(*ast.FuncDecl)
	forStmt, ok := decl.Body[0].(*ast.ForStmt)
	if !ok {
		t.Fatalf("Body[0] = %T, want *ast.ForStmt", decl.Body[0])
	}
	if forStmt.Cond == nil {
		t.Error("expected a loop condition")
	}
	if len(forStmt.Body) != 1 {
		t.Fatalf("Body = %v, want one statement", forStmt.Body)
	}
	if _, ok := forStmt.Body[0].(*ast.IncDecStmt); !ok {
		t.Errorf("Body[0] = %T, want *ast.IncDecStmt", forStmt.Body[0])
	}
}

func TestParseGoAndChannels(t *testing.T) {
	src := "package main\n\nfunc f() {\n  ch := make(chan int)\n  go worker(ch)\n  v := <-ch\n  ch <- v\n}\n"
	p := New("test.gly", src)
	f := p.Parse()
	if len(p.Errors()) != 0 {
		t.Fatalf("unexpected parse errors: %v", p.Errors())
	}
	decl := f.Decls[0].(*ast.FuncDecl)

	shortDecl, ok := decl.Body[0].(*ast.ShortVarDecl)
	if !ok {
		t.Fatalf("Body[0] = %T, want *ast.ShortVarDecl", decl.Body[0])
	}
	makeExpr, ok := shortDecl.Values[0].(*ast.MakeChanExpr)
	if !ok {
		t.Fatalf("Values[0] = %T, want *ast.MakeChanExpr", shortDecl.Values[0])
	}
	if makeExpr.ElemType != "int" {
		t.Errorf("ElemType = %q, want %q", makeExpr.ElemType, "int")
	}

	goStmt, ok := decl.Body[1].(*ast.GoStmt)
	if !ok {
		t.Fatalf("Body[1] = %T, want *ast.GoStmt", decl.Body[1])
	}
	if goStmt.Call == nil || goStmt.Call.Fun.(*ast.Ident).Name != "worker" {
		t.Errorf("Call = %+v, want a call to worker", goStmt.Call)
	}

	recvDecl := decl.Body[2].(*ast.ShortVarDecl)
	unary, ok := recvDecl.Values[0].(*ast.UnaryExpr)
	if !ok || !unary.IsReceive() {
		t.Fatalf("Values[0] = %+v, want a channel receive", recvDecl.Values[0])
	}

	sendStmt, ok := decl.Body[3].(*ast.SendStmt)
	if !ok {
		t.Fatalf("Body[3] = %T, want *ast.SendStmt", decl.Body[3])
	}
	if sendStmt.Chan.(*ast.Ident).Name != "ch" {
		t.Errorf("Chan = %+v, want ch", sendStmt.Chan)
	}
}

func TestParseSinkAnnotationAttachesToCall(t *testing.T) {
	src := "package main\n\nfunc f() {\n  // glowy::sink::{public}\n  publish(x)\n}\n"
	f := New("test.gly", src).Parse()
	decl := f.Decls[0].(*ast.FuncDecl)
	exprStmt := decl.Body[0].(*ast.ExprStmt)
	call, ok := exprStmt.X.(*ast.CallExpr)
	if !ok {
		t.Fatalf("X = %T, want *ast.CallExpr", exprStmt.X)
	}
	if call.Ann == nil || call.Ann.Scope != "sink" {
		t.Fatalf("Ann = %+v, want scope %q", call.Ann, "sink")
	}
}

func TestDroppedAnnotationWarnsWhenNothingFollows(t *testing.T) {
	src := "package main\n\n// glowy::label::{secret}\n"
	p := New("test.gly", src)
	p.Parse()
	if len(p.Warnings()) != 1 {
		t.Fatalf("Warnings() = %v, want exactly one W001", p.Warnings())
	}
}

func TestParseErrorRecoverySkipsToNextStatement(t *testing.T) {
	src := "package main\n\nfunc f() {\n  )))\n  x = 1\n}\n"
	p := New("test.gly", src)
	f := p.Parse()
	if len(p.Errors()) == 0 {
		t.Fatal("expected at least one recoverable parse error")
	}
	decl := f.Decls[0].(*ast.FuncDecl)
	found := false
	for _, s := range decl.Body {
		if assign, ok := s.(*ast.AssignStmt); ok && len(assign.Lhs) == 1 {
			found = true
		}
	}
	if !found {
		t.Error("expected parsing to recover and still capture the trailing assignment")
	}
}

func TestOperatorPrecedence(t *testing.T) {
	src := "package main\n\nfunc f() {\n  y = a || b && c == d + e * f\n}\n"
	f := New("test.gly", src).Parse()
	decl := f.Decls[0].(*ast.FuncDecl)
	assign := decl.Body[0].(*ast.AssignStmt)
	top, ok := assign.Rhs[0].(*ast.BinaryExpr)
	if !ok || top.Op.String() != "||" {
		t.Fatalf("top operator = %+v, want ||", assign.Rhs[0])
	}
}

func TestChannelIDsAreStableAcrossAliases(t *testing.T) {
	src := "package main\n\nfunc f() {\n  a := make(chan int)\n  b := make(chan int)\n}\n"
	f := New("test.gly", src).Parse()
	decl := f.Decls[0].(*ast.FuncDecl)
	first := decl.Body[0].(*ast.ShortVarDecl).Values[0].(*ast.MakeChanExpr).ID
	second := decl.Body[1].(*ast.ShortVarDecl).Values[0].(*ast.MakeChanExpr).ID
	if first == second {
		t.Errorf("two distinct make(chan) sites got the same ChannelID %d", first)
	}
}
