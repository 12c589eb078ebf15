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

// Package analyzer implements glowy's information-flow analyzer core: an iterative fixed-point traversal of global declarations that
// propagates security labels across explicit data dependencies, implicit
// control-flow dependencies, function calls (via per-call synthetic
// parameter substitution) and channel communication, followed by a final
// diagnostic pass that checks every sink against the stabilized labels.
package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ist199211-ist199311/glowy-langsec/internal/ast"
	"github.com/ist199211-ist199311/glowy-langsec/internal/depgraph"
	"github.com/ist199211-ist199311/glowy-langsec/internal/diagnostic"
	"github.com/ist199211-ist199311/glowy-langsec/internal/glowyconfig"
	"github.com/ist199211-ist199311/glowy-langsec/internal/label"
	"github.com/ist199211-ist199311/glowy-langsec/internal/symboltable"
	"github.com/ist199211-ist199311/glowy-langsec/internal/token"
)

// maxRounds bounds the outer chaotic-iteration loop described below. The
// lattice is finite so the true fixed point is always
// reached well under this; it exists only to turn a would-be infinite loop
// on a hypothetical analyzer bug into a reported AnalysisTimeout rather than
// a hang.
const maxRounds = 10000

// AnalysisTimeout is returned by Run if the fixed-point computation does not
// converge within maxRounds rounds.
type AnalysisTimeout struct{ Rounds int }

func (e *AnalysisTimeout) Error() string {
	return fmt.Sprintf("analysis did not converge after %d rounds", e.Rounds)
}

// Analyzer runs the fixed-point information-flow algorithm over a unified
// AST built from one or more parsed files.
type Analyzer struct {
	global *symboltable.Table
	deps   *depgraph.Graph
	log    *glowyconfig.LogGroup

	funcs   map[string]*ast.FuncDecl
	genDecl map[string]*declRef // name -> owning GenDecl + spec index

	channels   map[ast.ChannelID]label.Label
	channelBTs map[ast.ChannelID]*diagnostic.Backtrace

	currentGlobal string

	diags []*diagnostic.Diagnostic
}

type declRef struct {
	decl *ast.GenDecl
	spec *ast.BindingSpec
}

// New creates an Analyzer over files, which are treated as one joint program.
func New(files []*ast.File, log *glowyconfig.LogGroup) *Analyzer {
	if log == nil {
		log = glowyconfig.NewLogGroup(nil)
	}
	a := &Analyzer{
		global:     symboltable.New(nil),
		deps:       depgraph.New(),
		log:        log,
		funcs:      map[string]*ast.FuncDecl{},
		genDecl:    map[string]*declRef{},
		channels:   map[ast.ChannelID]label.Label{},
		channelBTs: map[ast.ChannelID]*diagnostic.Backtrace{},
	}
	a.declarePrePass(files)
	return a
}

// declarePrePass declares every top-level symbol with label
// `annotation_label ∪ ⊥` before any visit runs, ignoring errors since
// dependencies' labels are not yet known.
func (a *Analyzer) declarePrePass(files []*ast.File) {
	for _, f := range files {
		for _, decl := range f.Decls {
			switch d := decl.(type) {
			case *ast.GenDecl:
				for i := range d.Specs {
					spec := &d.Specs[i]
					lbl := label.Bottom()
					if d.Ann != nil && d.Ann.Scope == "label" {
						lbl = label.FromParts(tagsOf(d.Ann)...)
					}
					sym := &symboltable.Symbol{
						Name: spec.Name, Kind: kindFor(d.Mutable), Mutable: d.Mutable,
						DeclSpan: spec.NameSp, Label: lbl,
					}
					a.global.Declare(sym)
					a.deps.AddSymbol(spec.Name)
					a.genDecl[spec.Name] = &declRef{decl: d, spec: spec}
				}
			case *ast.FuncDecl:
				sym := &symboltable.Symbol{
					Name: d.Name, Kind: symboltable.FuncKind, DeclSpan: d.Sp,
					Label: label.Bottom(), Summary: symboltable.NewSummary(len(d.Params)),
				}
				a.global.Declare(sym)
				a.deps.AddSymbol(d.Name)
				a.funcs[d.Name] = d
			}
		}
	}
}

func kindFor(mutable bool) symboltable.Kind {
	if mutable {
		return symboltable.VarKind
	}
	return symboltable.ConstKind
}

func tagsOf(ann *token.Annotation) []label.Tag {
	tags := make([]label.Tag, len(ann.Tags))
	for i, t := range ann.Tags {
		tags[i] = label.Tag(t)
	}
	return tags
}

// Run executes the fixed-point computation and final diagnostic pass,
// returning every Diagnostic in deterministic, span-ordered order.
func (a *Analyzer) Run() ([]*diagnostic.Diagnostic, error) {
	names := a.deps.Names()
	sort.Strings(names)

	round := 0
	for {
		round++
		if round > maxRounds {
			return nil, &AnalysisTimeout{Rounds: maxRounds}
		}
		before := a.fingerprint()
		a.runWorklistOnce(names, false)
		after := a.fingerprint()
		if after == before {
			a.log.Infof("fixed point reached after %d round(s)", round)
			break
		}
	}

	a.runWorklistOnce(names, true)
	diagnostic.Sort(a.diags)
	return a.diags, nil
}

// runWorklistOnce drives a worklist to completion: visiting every global
// symbol at least once, re-enqueuing dependents whenever a visit grows a
// symbol's label or function summary. Symbols that belong to the same
// mutually recursive group (see StronglyConnectedGroups) are always visited
// together and driven to a local fixed point before the group's external
// dependents are re-enqueued, since one member's label can depend on
// another's not-yet-settled one.
func (a *Analyzer) runWorklistOnce(seed []string, diagnosticsEnabled bool) {
	order := a.deps.SeedOrder()
	if len(order) == 0 {
		order = seed
	}

	groupOf := map[string][]string{}
	for _, group := range a.deps.StronglyConnectedGroups() {
		for _, name := range group {
			groupOf[name] = group
		}
	}

	wl := depgraph.NewWorklist(order)
	for {
		name, ok := wl.Pop()
		if !ok {
			break
		}
		if wl.State(name) == depgraph.Stable {
			continue
		}
		group := groupOf[name]
		if group == nil {
			group = []string{name}
		}
		members := make(map[string]bool, len(group))
		for _, m := range group {
			members[m] = true
		}

		a.log.Debugf("visiting %s", strings.Join(group, ", "))
		grew := a.visitGroupToFixedPoint(group, diagnosticsEnabled)
		if grew {
			seen := map[string]bool{}
			for _, member := range group {
				for _, dep := range a.deps.Dependents(member) {
					if members[dep] || seen[dep] {
						continue
					}
					seen[dep] = true
					wl.Enqueue(dep)
				}
			}
		} else {
			for _, member := range group {
				wl.MarkStable(member)
			}
		}
	}
}

// visitGroupToFixedPoint visits every member of group repeatedly until none
// of them grows, the same repeated-pass pattern visitFor uses for loop
// bodies: a mutual-recursion group must settle as a unit, since visiting one
// member once can still depend on another member's label before it has
// stabilized.
func (a *Analyzer) visitGroupToFixedPoint(group []string, diagnosticsEnabled bool) bool {
	grew := false
	for round := 0; round < maxRounds; round++ {
		changed := false
		for _, name := range group {
			if a.visitGlobal(name, diagnosticsEnabled) {
				changed = true
			}
		}
		if !changed {
			break
		}
		grew = true
	}
	return grew
}

// fingerprint renders the analyzer's full mutable state (global labels,
// function summaries, channel labels) to a string, used by Run to detect
// that a round changed nothing.
func (a *Analyzer) fingerprint() string {
	var sb strings.Builder
	for _, name := range a.deps.Names() {
		sym, ok := a.global.Lookup(name)
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "%s=%s;", name, sym.Label)
		if sym.Summary != nil {
			fmt.Fprintf(&sb, "ret=%s,eff=%v;", sym.Summary.ReturnLabel, sym.Summary.HasChannelEffect)
			for i, cs := range sym.Summary.ParamAliases {
				fmt.Fprintf(&sb, "p%d=%v;", i, sortedIDs(cs))
			}
		}
	}
	for _, id := range sortedChanIDs(a.channels) {
		fmt.Fprintf(&sb, "ch%d=%s;", id, a.channels[id])
	}
	return sb.String()
}

func sortedIDs(cs symboltable.ChannelSet) []int {
	ids := make([]int, 0, len(cs))
	for id := range cs {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	return ids
}

func sortedChanIDs(m map[ast.ChannelID]label.Label) []ast.ChannelID {
	ids := make([]ast.ChannelID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// visitGlobal visits one global symbol's declaration node and reports
// whether its label or summary grew as a result.
func (a *Analyzer) visitGlobal(name string, diagnosticsEnabled bool) bool {
	a.currentGlobal = name

	if d, ok := a.genDecl[name]; ok {
		return a.visitGenDeclSpec(d, diagnosticsEnabled)
	}
	if f, ok := a.funcs[name]; ok {
		return a.visitFuncDecl(f, diagnosticsEnabled)
	}
	return false
}

func (a *Analyzer) visitGenDeclSpec(d *declRef, diagnosticsEnabled bool) bool {
	sym, _ := a.global.Lookup(d.spec.Name)
	old := sym.Label

	ctx := &Context{a: a, scope: a.global, pc: label.Bottom(), diagnosticsEnabled: diagnosticsEnabled}

	var res Result
	if d.spec.Value != nil {
		res = ctx.visitExpr(d.spec.Value)
	} else {
		res = Result{Label: label.Bottom()}
	}

	newLabel := res.Label
	var bt *diagnostic.Backtrace
	if d.decl.Ann != nil {
		annLabel := label.FromParts(tagsOf(d.decl.Ann)...)
		annBT := diagnostic.New(diagnostic.ExplicitAnnotation, d.decl.Sp, d.spec.Name, annLabel)
		switch d.decl.Ann.Scope {
		case "declassify":
			newLabel = annLabel
			bt = annBT
		default: // "label" (source) or any unknown/forward-compatible scope
			newLabel = label.Union(newLabel, annLabel)
			bt = diagnostic.FromChildren(diagnostic.Assignment, d.decl.Sp, d.spec.Name, annBT, res.BT)
		}
	} else {
		bt = res.BT
	}

	merged := label.Union(old, newLabel)
	grew := !label.Equal(merged, old)
	sym.Label = newLabel
	sym.Backtrace = bt
	if res.Chans != nil {
		if sym.Aliases == nil {
			sym.Aliases = symboltable.ChannelSet{}
		}
		if sym.Aliases.Union(res.Chans) {
			grew = true
		}
	}
	return grew
}

func (a *Analyzer) visitFuncDecl(f *ast.FuncDecl, diagnosticsEnabled bool) bool {
	sym, _ := a.global.Lookup(f.Name)
	summary := sym.Summary

	local := symboltable.New(a.global)
	for i, pname := range f.Params {
		local.Declare(&symboltable.Symbol{
			Name: pname, Kind: symboltable.ParamKind, Mutable: true,
			DeclSpan: f.Sp, Label: label.Singleton(label.SyntheticTag(i + 1)),
			Aliases: copyChannelSet(summary.ParamAliases[i]),
		})
	}

	ctx := &Context{a: a, scope: local, pc: label.Bottom(), diagnosticsEnabled: diagnosticsEnabled}
	ctx.visitStmts(f.Body)

	grew := false
	for i, pname := range f.Params {
		psym, _ := local.Lookup(pname)
		if summary.ParamAliases[i].Union(psym.Aliases) {
			grew = true
		}
	}
	if !summary.HasChannelEffect && ctx.sawChannelEffect {
		summary.HasChannelEffect = true
		grew = true
	}

	for _, rv := range ctx.returns {
		if summary.MergeReturn(rv.Label, rv.BT) {
			grew = true
		}
	}

	sym.Label = summary.ReturnLabel
	return grew
}

func copyChannelSet(cs symboltable.ChannelSet) symboltable.ChannelSet {
	out := make(symboltable.ChannelSet, len(cs))
	for id := range cs {
		out[id] = struct{}{}
	}
	return out
}

// Diagnostics returns every diagnostic collected during the final pass.
func (a *Analyzer) Diagnostics() []*diagnostic.Diagnostic { return a.diags }

func (a *Analyzer) report(d *diagnostic.Diagnostic) { a.diags = append(a.diags, d) }
