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

// Package token defines the lexical tokens, source positions and spans
// shared by glowy's lexer, parser and diagnostics.
package token

import "fmt"

// Kind identifies the lexical category of a Token.
type Kind int

// Token kinds recognized by the lexer, covering the supported Go subset
// plus glowy's own annotation comments.
const (
	Illegal Kind = iota
	EOF

	Ident
	Int
	Float
	String
	Rune

	// keywords
	Package
	Import
	Func
	Var
	Const
	If
	Else
	For
	Return
	Go
	Chan
	Make
	Struct
	True
	False

	// punctuation
	LBrace
	RBrace
	LParen
	RParen
	LBracket
	RBracket
	Comma
	Semicolon
	Colon
	Period

	// operators
	Plus
	Minus
	Star
	Slash
	Percent
	Assign
	Define // :=
	Eq     // ==
	Neq    // !=
	Lt
	Leq
	Gt
	Geq
	AndAnd
	OrOr
	Not
	Arrow // <-
	PlusEq
	MinusEq
	StarEq
	SlashEq
	Inc // ++
	Dec // --

	AnnotationTok
)

var names = map[Kind]string{
	Illegal: "illegal", EOF: "eof",
	Ident: "identifier", Int: "int", Float: "float", String: "string", Rune: "rune",
	Package: "package", Import: "import", Func: "func", Var: "var", Const: "const",
	If: "if", Else: "else", For: "for", Return: "return", Go: "go", Chan: "chan",
	Make: "make", Struct: "struct", True: "true", False: "false",
	LBrace: "{", RBrace: "}", LParen: "(", RParen: ")", LBracket: "[", RBracket: "]",
	Comma: ",", Semicolon: ";", Colon: ":", Period: ".",
	Plus: "+", Minus: "-", Star: "*", Slash: "/", Percent: "%",
	Assign: "=", Define: ":=", Eq: "==", Neq: "!=", Lt: "<", Leq: "<=", Gt: ">", Geq: ">=",
	AndAnd: "&&", OrOr: "||", Not: "!", Arrow: "<-",
	PlusEq: "+=", MinusEq: "-=", StarEq: "*=", SlashEq: "/=", Inc: "++", Dec: "--",
	AnnotationTok: "annotation",
}

func (k Kind) String() string {
	if n, ok := names[k]; ok {
		return n
	}
	return "unknown"
}

// keywords maps identifier spellings to their keyword Kind.
var keywords = map[string]Kind{
	"package": Package, "import": Import, "func": Func, "var": Var, "const": Const,
	"if": If, "else": Else, "for": For, "return": Return, "go": Go, "chan": Chan,
	"make": Make, "struct": Struct, "true": True, "false": False,
}

// LookupIdent returns Package/Func/... for a keyword spelling, or Ident otherwise.
func LookupIdent(lit string) Kind {
	if k, ok := keywords[lit]; ok {
		return k
	}
	return Ident
}

// Position is a 1-indexed line/column location plus a 0-indexed byte offset
// into a single source file.
type Position struct {
	File   string
	Offset int
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Span is a half-open [Start, End) byte range within exactly one file,
// carried by every AST node.
type Span struct {
	Start Position
	End   Position
}

// Merge returns the smallest span covering both a and b. Both must be in the
// same file.
func Merge(a, b Span) Span {
	start, end := a.Start, a.End
	if b.Start.Offset < start.Offset {
		start = b.Start
	}
	if b.End.Offset > end.Offset {
		end = b.End
	}
	return Span{Start: start, End: end}
}

// Annotation holds the parsed content of a `// glowy::scope::{tags}` comment.
type Annotation struct {
	Scope string
	Tags  []string
	Span  Span
}

// Token is a single lexical unit: its kind, literal text, source span, and
// — for Kind == Annotation — the parsed annotation payload.
type Token struct {
	Kind    Kind
	Literal string
	Span    Span

	// Ann is populated only when Kind == AnnotationTok.
	Ann *Annotation
}
