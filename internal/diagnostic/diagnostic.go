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

// Package diagnostic defines glowy's diagnostic codes and the label
// provenance tree ("backtrace") that explains, bottom-up, how a tainted
// value's label came to be what it is.
package diagnostic

import (
	"fmt"
	"sort"

	"github.com/ist199211-ist199311/glowy-langsec/internal/label"
	"github.com/ist199211-ist199311/glowy-langsec/internal/token"
)

// Code identifies a diagnostic kind.
type Code string

const (
	EParseError        Code = "E001"
	EInsecureFlow      Code = "E002"
	EInsecureImplicit  Code = "E003"
	EUnsupported       Code = "E004"
	WDroppedAnnotation Code = "W001"
)

func (c Code) IsError() bool { return c != WDroppedAnnotation }

// BacktraceKind identifies why a particular node in a Backtrace exists.
type BacktraceKind int

const (
	ExplicitAnnotation BacktraceKind = iota
	Assignment
	Expression
	Branch
	Return
	FunctionArgument
	FunctionArgumentMutation
	FunctionCall
	Send
	Receive
)

// Backtrace is one node in the provenance tree of a label: the claim "this
// span has label L, because of these children". The root of the tree is the
// point where the label is observed (e.g. a sink call or a channel receive);
// its descendants lead back to the origins, such as an explicitly annotated
// declaration at a leaf. Children are arranged depth-first in the order
// flattened for display.
type Backtrace struct {
	Kind     BacktraceKind
	Span     token.Span
	Symbol   string // optional: the name of the symbol this node concerns
	Label    label.Label
	Children []*Backtrace
}

// New builds a backtrace node whose label is exactly lbl, with the given
// children appended as provenance for lbl's origin.
func New(kind BacktraceKind, span token.Span, symbol string, lbl label.Label, children ...*Backtrace) *Backtrace {
	return &Backtrace{Kind: kind, Span: span, Symbol: symbol, Label: lbl, Children: children}
}

// FromChildren builds a backtrace node whose label is the union of its
// (possibly nil) children's labels, skipping any nil entries. It returns nil
// when every child is nil, mirroring the upstream "label is bottom, nothing
// to explain" shortcut.
func FromChildren(kind BacktraceKind, span token.Span, symbol string, children ...*Backtrace) *Backtrace {
	var present []*Backtrace
	lbl := label.Bottom()
	for _, c := range children {
		if c == nil {
			continue
		}
		present = append(present, c)
		lbl = label.Union(lbl, c.Label)
	}
	if len(present) == 0 {
		return nil
	}
	return &Backtrace{Kind: kind, Span: span, Symbol: symbol, Label: lbl, Children: present}
}

// ContainsBranch reports whether any node in the tree rooted at b was
// introduced by a branch merge. The analyzer uses this to distinguish E002
// (direct flow) from E003 (flow that passed through a conditional).
func (b *Backtrace) ContainsBranch() bool {
	if b == nil {
		return false
	}
	if b.Kind == Branch {
		return true
	}
	for _, c := range b.Children {
		if c.ContainsBranch() {
			return true
		}
	}
	return false
}

// ProvenanceEntry is one human-readable step in a flattened backtrace,
// ready for rendering alongside its source span.
type ProvenanceEntry struct {
	Span    token.Span
	Message string
}

func symbolOr(b *Backtrace, fallback string) string {
	if b.Symbol != "" {
		return fmt.Sprintf("symbol `%s`", b.Symbol)
	}
	return fallback
}

// Flatten walks the backtrace depth-first, producing one ProvenanceEntry per
// node with a message appropriate to its BacktraceKind.
func (b *Backtrace) Flatten() []ProvenanceEntry {
	if b == nil {
		return nil
	}
	var msg string
	switch b.Kind {
	case ExplicitAnnotation:
		msg = fmt.Sprintf("%s has been explicitly annotated with label %s", symbolOr(b, "symbol"), b.Label)
	case Assignment:
		msg = fmt.Sprintf("%s has been assigned a value that has label %s", symbolOr(b, "symbol"), b.Label)
	case Expression:
		msg = fmt.Sprintf("%s has label %s", symbolOr(b, "expression"), b.Label)
	case Branch:
		msg = fmt.Sprintf("execution branch has label %s", b.Label)
	case Return:
		msg = fmt.Sprintf("function returns with label %s", b.Label)
	case FunctionArgument:
		msg = fmt.Sprintf("%s in function call has label %s", symbolOr(b, "argument"), b.Label)
	case FunctionArgumentMutation:
		msg = fmt.Sprintf("%s in function call has had its label mutated to %s", symbolOr(b, "argument"), b.Label)
	case FunctionCall:
		msg = fmt.Sprintf("function call has return value with label %s", b.Label)
	case Send:
		msg = fmt.Sprintf("aggregate of information sent into channel has label %s", b.Label)
	case Receive:
		msg = fmt.Sprintf("information received from channel has label %s", b.Label)
	}

	entries := []ProvenanceEntry{{Span: b.Span, Message: msg}}
	for _, c := range b.Children {
		entries = append(entries, c.Flatten()...)
	}
	return entries
}

// Diagnostic is a single user-facing finding, carrying enough context to
// render a bottom-up explanation of how the offending label was derived.
type Diagnostic struct {
	Code        Code
	Message     string
	PrimarySpan token.Span
	Provenance  []ProvenanceEntry

	ExprLabel label.Label
	SinkLabel label.Label // zero value (Bottom) unless Code == EInsecureFlow/EInsecureImplicit
}

// NewInsecureFlow builds an E002/E003 diagnostic for a sink violation: code
// is E003 when the provenance passed through a branch merge, E002 otherwise
// (see DESIGN.md for why this split was chosen).
func NewInsecureFlow(context string, sinkSpan token.Span, exprLabel, sinkLabel label.Label, provenance *Backtrace) *Diagnostic {
	code := EInsecureFlow
	if provenance.ContainsBranch() {
		code = EInsecureImplicit
	}
	return &Diagnostic{
		Code:        code,
		Message:     fmt.Sprintf("insecure flow to %s: label %s is not contained in declared sink label %s", context, exprLabel, sinkLabel),
		PrimarySpan: sinkSpan,
		Provenance:  provenance.Flatten(),
		ExprLabel:   exprLabel,
		SinkLabel:   sinkLabel,
	}
}

// NewUnsupported builds an E004 diagnostic for a construct outside the
// supported subset.
func NewUnsupported(span token.Span, construct string) *Diagnostic {
	return &Diagnostic{
		Code:        EUnsupported,
		Message:     fmt.Sprintf("unsupported construct: %s", construct),
		PrimarySpan: span,
	}
}

// NewParseError wraps a lex/parse failure as an E001 diagnostic.
func NewParseError(span token.Span, msg string) *Diagnostic {
	return &Diagnostic{Code: EParseError, Message: msg, PrimarySpan: span}
}

// NewDroppedAnnotation builds a W001 diagnostic.
func NewDroppedAnnotation(span token.Span, msg string) *Diagnostic {
	return &Diagnostic{Code: WDroppedAnnotation, Message: msg, PrimarySpan: span}
}

// Sort orders diagnostics by source span, then by code, to satisfy the
// "diagnostic determinism" testable property.
func Sort(diags []*Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i].PrimarySpan.Start, diags[j].PrimarySpan.Start
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Offset != b.Offset {
			return a.Offset < b.Offset
		}
		return diags[i].Code < diags[j].Code
	})
}
