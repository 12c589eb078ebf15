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

// Package symboltable implements the scope stack the analyzer visits
// declarations and statements against: a stack of scopes mapping names to
// their current label and metadata, with the snapshot/diff primitives
// needed for branch-merge semantics.
package symboltable

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/ist199211-ist199311/glowy-langsec/internal/ast"
	"github.com/ist199211-ist199311/glowy-langsec/internal/diagnostic"
	"github.com/ist199211-ist199311/glowy-langsec/internal/label"
	"github.com/ist199211-ist199311/glowy-langsec/internal/token"
)

// Kind classifies what a Symbol denotes.
type Kind int

const (
	VarKind Kind = iota
	ConstKind
	FuncKind
	ParamKind
)

// ChannelSet is a set of channel allocation-site ids a symbol may alias.
type ChannelSet map[ast.ChannelID]struct{}

// Union mutates dst to include every id in src, reporting whether dst grew.
func (dst ChannelSet) Union(src ChannelSet) bool {
	grew := false
	for id := range src {
		if _, ok := dst[id]; !ok {
			dst[id] = struct{}{}
			grew = true
		}
	}
	return grew
}

// Summary is a function symbol's parameterized behavior: its return label
// expressed over synthetic tags ⟨1⟩…⟨k⟩, and, per parameter, the set of
// channel ids observed aliasing it across every call site seen so far.
type Summary struct {
	NumParams  int
	ReturnLabel      label.Label
	ReturnBacktrace  *diagnostic.Backtrace
	ParamAliases     []ChannelSet // ParamAliases[i] for the (i+1)-th parameter
	HasChannelEffect bool         // f, or something it calls, sends on some channel
}

// NewSummary allocates an empty summary for a function with numParams
// parameters, floor return label ⊥.
func NewSummary(numParams int) *Summary {
	aliases := make([]ChannelSet, numParams)
	for i := range aliases {
		aliases[i] = ChannelSet{}
	}
	return &Summary{NumParams: numParams, ReturnLabel: label.Bottom(), ParamAliases: aliases}
}

// MergeReturn folds a new return-expression label/backtrace into the
// summary, unioning with whatever was recorded from a prior iteration.
func (s *Summary) MergeReturn(l label.Label, bt *diagnostic.Backtrace) bool {
	merged := label.Union(s.ReturnLabel, l)
	grew := !label.Equal(merged, s.ReturnLabel)
	s.ReturnLabel = merged
	if grew || s.ReturnBacktrace == nil {
		s.ReturnBacktrace = diagnostic.FromChildren(diagnostic.Return, spanOrZero(bt), "", s.ReturnBacktrace, bt)
	}
	return grew
}

// spanOrZero lets a possibly-nil *diagnostic.Backtrace be used positionally
// without a nil check at every call site.
func spanOrZero(b *diagnostic.Backtrace) token.Span {
	if b == nil {
		return token.Span{}
	}
	return b.Span
}

// Symbol is one entry in a scope: a declared name's current label plus the
// metadata the analyzer needs to explain and re-derive it.
type Symbol struct {
	Name     string
	Kind     Kind
	Mutable  bool
	DeclSpan token.Span

	Label     label.Label
	Backtrace *diagnostic.Backtrace

	// Aliases is populated for symbols that may denote a channel value
	//; Summary is populated only for Kind == FuncKind.
	Aliases ChannelSet
	Summary *Summary
}

// scope is a flat map of names visible at one lexical level.
type scope map[string]*Symbol

// Table is a stack of scopes, optionally chained to a Parent table so that
// a function-local table can resolve global names and sibling functions
// without copying them in.
type Table struct {
	Parent *Table
	scopes []scope
}

// New creates a Table with a single empty scope, optionally chained to
// parent (pass nil for the global table).
func New(parent *Table) *Table {
	return &Table{Parent: parent, scopes: []scope{{}}}
}

// PushScope opens a new nested scope, e.g. entering an if/for body.
func (t *Table) PushScope() { t.scopes = append(t.scopes, scope{}) }

// PopScope discards the innermost scope and everything declared in it.
func (t *Table) PopScope() {
	t.scopes = t.scopes[:len(t.scopes)-1]
}

// Declare inserts sym into the current (innermost) scope. Re-declaration of
// the same name in that scope keeps the existing Symbol object but replaces
// its metadata and unions in the new label rather than overwriting it.
func (t *Table) Declare(sym *Symbol) *Symbol {
	top := t.scopes[len(t.scopes)-1]
	if existing, ok := top[sym.Name]; ok {
		existing.Kind = sym.Kind
		existing.Mutable = sym.Mutable
		existing.DeclSpan = sym.DeclSpan
		merged := label.Union(existing.Label, sym.Label)
		existing.Backtrace = diagnostic.FromChildren(diagnostic.Assignment, sym.DeclSpan, sym.Name, existing.Backtrace, sym.Backtrace)
		existing.Label = merged
		if sym.Aliases != nil {
			if existing.Aliases == nil {
				existing.Aliases = ChannelSet{}
			}
			existing.Aliases.Union(sym.Aliases)
		}
		return existing
	}
	top[sym.Name] = sym
	return sym
}

// Lookup searches innermost-to-outermost scopes of t, then falls through to
// t.Parent, returning the resolved Symbol or false.
func (t *Table) Lookup(name string) (*Symbol, bool) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if sym, ok := t.scopes[i][name]; ok {
			return sym, true
		}
	}
	if t.Parent != nil {
		return t.Parent.Lookup(name)
	}
	return nil, false
}

// IsLocal reports whether name is declared in one of t's own scopes,
// without consulting Parent (used to decide reverse-dependency edges: a
// reference to a genuinely global name creates one, a reference to a local
// does not).
func (t *Table) IsLocal(name string) bool {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if _, ok := t.scopes[i][name]; ok {
			return true
		}
	}
	return false
}

// Assign updates name's label: a simple
// assignment (plain `=`, not compound/increment) outside any branch context
// replaces the label; otherwise (compound, increment, or inside a branch
// arm) it is unioned in. Reports whether name was found.
func (t *Table) Assign(name string, newLabel label.Label, bt *diagnostic.Backtrace, simple bool) bool {
	sym, ok := t.Lookup(name)
	if !ok {
		return false
	}
	if simple {
		sym.Label = newLabel
		sym.Backtrace = bt
	} else {
		sym.Label = label.Union(sym.Label, newLabel)
		sym.Backtrace = diagnostic.FromChildren(diagnostic.Assignment, spanOrZero(bt), name, sym.Backtrace, bt)
	}
	return true
}

// Snapshot captures the current label of every symbol visible from t (own
// scopes plus Parent chain), keyed by name, for branch-merge diffing
//. Shadowing in an inner scope wins, matching Lookup.
func (t *Table) Snapshot() map[string]label.Label {
	snap := map[string]label.Label{}
	for chain := t; chain != nil; chain = chain.Parent {
		for _, sc := range chain.scopes {
			for name, sym := range sc {
				if _, already := snap[name]; !already {
					snap[name] = sym.Label
				}
			}
		}
	}
	return snap
}

// RestoreLabels resets the label of every symbol named in snap back to its
// snapshotted value, without touching symbols declared after the snapshot
// was taken (they simply fall out of scope on the next PopScope).
func (t *Table) RestoreLabels(snap map[string]label.Label) {
	for name, l := range snap {
		if sym, ok := t.Lookup(name); ok {
			sym.Label = l
		}
	}
}

// MergeBranches computes, for every name known before a branch, the post-if
// label snapshot(x) ∪ afterThen(x) ∪ afterElse(x) and applies it. Names absent from a later snapshot are treated as
// unchanged in that arm.
func MergeBranches(t *Table, before, afterThen, afterElse map[string]label.Label) {
	for name, floor := range before {
		merged := floor
		if l, ok := afterThen[name]; ok {
			merged = label.Union(merged, l)
		}
		if l, ok := afterElse[name]; ok {
			merged = label.Union(merged, l)
		}
		if sym, ok := t.Lookup(name); ok {
			sym.Label = merged
		}
	}
}

// GlobalNames returns the names declared directly in t's own top scope,
// sorted for deterministic iteration.
func GlobalNames(t *Table) []string {
	names := maps.Keys(t.scopes[0])
	slices.Sort(names)
	return names
}
