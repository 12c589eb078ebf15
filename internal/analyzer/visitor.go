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

package analyzer

import (
	"fmt"

	"github.com/ist199211-ist199311/glowy-langsec/internal/ast"
	"github.com/ist199211-ist199311/glowy-langsec/internal/diagnostic"
	"github.com/ist199211-ist199311/glowy-langsec/internal/label"
	"github.com/ist199211-ist199311/glowy-langsec/internal/symboltable"
	"github.com/ist199211-ist199311/glowy-langsec/internal/token"
)

// Result is the outcome of visiting one expression: its label, the
// provenance explaining that label, and — for an expression that denotes a
// channel value — the set of channel allocation sites it may refer to.
type Result struct {
	Label label.Label
	BT    *diagnostic.Backtrace
	Chans symboltable.ChannelSet
}

// Context carries the mutable state threaded through one visit of a global
// declaration: the active scope, the branch label ℓ_pc, and — for a
// function body — the return results and whether any channel send was
// observed this visit.
type Context struct {
	a     *Analyzer
	scope *symboltable.Table
	pc    label.Label

	diagnosticsEnabled bool

	returns          []Result
	sawChannelEffect bool
}

// withPC returns a sub-context for one branch/loop arm: same scope, a new
// ℓ_pc, and its own empty returns/sawChannelEffect accumulators so the
// caller can merge them in explicitly exactly once (avoiding the
// double-counting that would result from copying the parent's slices).
func (c *Context) withPC(pc label.Label) *Context {
	nc := *c
	nc.pc = pc
	nc.returns = nil
	nc.sawChannelEffect = false
	return &nc
}

// recordRefIfGlobal records the reverse dependency edge used to re-enqueue
// dependents when name denotes a true top-level symbol rather than a
// parameter or local.
func (c *Context) recordRefIfGlobal(name string) {
	if name == c.a.currentGlobal {
		return
	}
	if c.a.global.IsLocal(name) {
		c.a.deps.AddDependency(c.a.currentGlobal, name)
	}
}

// ---- Statements ----

func (c *Context) visitStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		c.visitStmt(s)
	}
}

func (c *Context) visitStmt(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.ExprStmt:
		if st.X != nil {
			c.visitExpr(st.X)
		}
	case *ast.SendStmt:
		c.visitSend(st)
	case *ast.IncDecStmt:
		c.visitIncDec(st)
	case *ast.AssignStmt:
		c.visitAssign(st)
	case *ast.ShortVarDecl:
		c.visitShortVarDecl(st)
	case *ast.IfStmt:
		c.visitIf(st)
	case *ast.ForStmt:
		c.visitFor(st)
	case *ast.BlockStmt:
		c.scope.PushScope()
		c.visitStmts(st.List)
		c.scope.PopScope()
	case *ast.ReturnStmt:
		c.visitReturn(st)
	case *ast.GoStmt:
		c.visitGo(st)
	default:
		c.reportUnsupported(s.Span(), fmt.Sprintf("statement %T", s))
	}
}

func (c *Context) visitSend(s *ast.SendStmt) {
	chanRes := c.visitExpr(s.Chan)
	valRes := c.visitExpr(s.Value)
	sendLabel := label.Union(label.Union(valRes.Label, c.pc), label.Bottom())
	bt := diagnostic.FromChildren(diagnostic.Send, s.Sp, "", valRes.BT)

	if len(chanRes.Chans) == 0 {
		c.a.log.Warnf("%s: send on channel expression with unknown allocation site", s.Sp.Start)
		return
	}
	for id := range chanRes.Chans {
		old := c.a.channels[id]
		merged := label.Union(old, sendLabel)
		if !label.Equal(merged, old) {
			c.a.channels[id] = merged
			c.a.channelBTs[id] = diagnostic.FromChildren(diagnostic.Send, s.Sp, "", c.a.channelBTs[id], bt)
		}
	}
	c.sawChannelEffect = true
}

func (c *Context) visitIncDec(s *ast.IncDecStmt) {
	id, ok := s.X.(*ast.Ident)
	if !ok {
		c.reportUnsupported(s.Sp, "increment/decrement of non-identifier")
		return
	}
	xRes := c.visitExpr(id)
	bt := diagnostic.FromChildren(diagnostic.Expression, s.Sp, id.Name, xRes.BT)
	newLabel := label.Union(xRes.Label, c.pc)
	c.scope.Assign(id.Name, newLabel, bt, false)
	c.recordRefIfGlobal(id.Name)
}

func (c *Context) visitAssign(s *ast.AssignStmt) {
	n := len(s.Lhs)
	rhsResults := make([]Result, 0, len(s.Rhs))
	for _, r := range s.Rhs {
		rhsResults = append(rhsResults, c.visitExpr(r))
	}
	simple := s.Op == token.Assign
	for i := 0; i < n; i++ {
		id, ok := s.Lhs[i].(*ast.Ident)
		if !ok {
			c.reportUnsupported(s.Lhs[i].Span(), "assignment to non-identifier")
			continue
		}
		var rres Result
		if i < len(rhsResults) {
			rres = rhsResults[i]
		} else if len(rhsResults) == 1 {
			rres = rhsResults[0]
		}
		newLabel := label.Union(rres.Label, c.pc)
		bt := diagnostic.FromChildren(diagnostic.Assignment, s.Sp, id.Name, rres.BT)

		if s.Ann != nil {
			annLabel := label.FromParts(tagsOf(s.Ann)...)
			annBT := diagnostic.New(diagnostic.ExplicitAnnotation, s.Sp, id.Name, annLabel)
			if s.Ann.Scope == "declassify" {
				newLabel = annLabel
				bt = annBT
			} else {
				newLabel = label.Union(newLabel, annLabel)
				bt = diagnostic.FromChildren(diagnostic.Assignment, s.Sp, id.Name, annBT, rres.BT)
			}
		}

		effectiveSimple := simple && !c.inBranch()
		c.scope.Assign(id.Name, newLabel, bt, effectiveSimple)
		c.recordRefIfGlobal(id.Name)
		if rres.Chans != nil {
			if sym, ok := c.scope.Lookup(id.Name); ok {
				if sym.Aliases == nil {
					sym.Aliases = symboltable.ChannelSet{}
				}
				sym.Aliases.Union(rres.Chans)
			}
		}
	}
}

// inBranch reports whether ℓ_pc is non-⊥, used by the Assign rule. An arm of
// an if/for whose condition has label ⊥ does not count as a branch here; a
// simple assignment in such an arm still replaces the label, and visitIf /
// visitFor then merge the arm's result with the pre-branch snapshot.
func (c *Context) inBranch() bool { return !c.pc.IsBottom() }

func (c *Context) visitShortVarDecl(s *ast.ShortVarDecl) {
	for i, name := range s.Names {
		var vres Result
		if i < len(s.Values) {
			vres = c.visitExpr(s.Values[i])
		} else if len(s.Values) == 1 {
			vres = c.visitExpr(s.Values[0])
		}
		newLabel := label.Union(vres.Label, c.pc)
		bt := diagnostic.FromChildren(diagnostic.Assignment, s.Sp, name, vres.BT)

		if s.Ann != nil {
			annLabel := label.FromParts(tagsOf(s.Ann)...)
			annBT := diagnostic.New(diagnostic.ExplicitAnnotation, s.Sp, name, annLabel)
			if s.Ann.Scope == "declassify" {
				newLabel = annLabel
				bt = annBT
			} else {
				newLabel = label.Union(newLabel, annLabel)
				bt = diagnostic.FromChildren(diagnostic.Assignment, s.Sp, name, annBT, vres.BT)
			}
		}

		sym := &symboltable.Symbol{
			Name: name, Kind: symboltable.VarKind, Mutable: true,
			DeclSpan: s.NameSp[i], Label: newLabel, Backtrace: bt, Aliases: vres.Chans,
		}
		c.scope.Declare(sym)
	}
}

func (c *Context) visitIf(s *ast.IfStmt) {
	condRes := c.visitExpr(s.Cond)
	condBT := diagnostic.New(diagnostic.Branch, s.Sp, "", condRes.Label, condRes.BT)
	newPC := label.Union(c.pc, condRes.Label)

	before := c.scope.Snapshot()

	c.scope.PushScope()
	thenCtx := c.withPC(newPC)
	thenCtx.scope = c.scope
	thenCtx.visitStmts(s.Then)
	afterThen := c.scope.Snapshot()
	c.scope.RestoreLabels(before)
	c.scope.PopScope()

	afterElse := before
	var elseCtx *Context
	if s.ElseIf != nil {
		c.scope.PushScope()
		elseCtx = c.withPC(newPC)
		elseCtx.scope = c.scope
		elseCtx.visitStmt(s.ElseIf)
		afterElse = c.scope.Snapshot()
		c.scope.RestoreLabels(before)
		c.scope.PopScope()
	} else if s.ElseBlock != nil {
		c.scope.PushScope()
		elseCtx = c.withPC(newPC)
		elseCtx.scope = c.scope
		elseCtx.visitStmts(s.ElseBlock)
		afterElse = c.scope.Snapshot()
		c.scope.RestoreLabels(before)
		c.scope.PopScope()
	}

	symboltable.MergeBranches(c.scope, before, afterThen, afterElse)

	// Attach a Branch provenance node to every symbol whose label actually
	// grew because of this merge, so downstream sinks are classified E003
	// (implicit flow) rather than E002 (direct flow).
	for name, floor := range before {
		sym, ok := c.scope.Lookup(name)
		if !ok {
			continue
		}
		if !label.Equal(sym.Label, floor) {
			sym.Backtrace = diagnostic.FromChildren(diagnostic.Branch, s.Sp, name, condBT, sym.Backtrace)
		}
	}

	// sawChannelEffect / returns propagate regardless of which arm ran,
	// since the analyzer models every possible interleaving.
	if thenCtx.sawChannelEffect {
		c.sawChannelEffect = true
	}
	c.returns = append(c.returns, thenCtx.returns...)
	if elseCtx != nil {
		if elseCtx.sawChannelEffect {
			c.sawChannelEffect = true
		}
		c.returns = append(c.returns, elseCtx.returns...)
	}
}

func (c *Context) visitFor(s *ast.ForStmt) {
	// Repeated if: iterate the body's effect on the
	// scope to a local fixed point. Bounded because labels only grow and the
	// lattice is finite (same argument as the outer worklist).
	for iter := 0; iter < maxRounds; iter++ {
		before := c.scope.Snapshot()

		condLabel := label.Bottom()
		var condBT *diagnostic.Backtrace
		if s.Cond != nil {
			condRes := c.visitExpr(s.Cond)
			condLabel = condRes.Label
			condBT = condRes.BT
		}
		newPC := label.Union(c.pc, condLabel)

		c.scope.PushScope()
		bodyCtx := c.withPC(newPC)
		bodyCtx.scope = c.scope
		bodyCtx.visitStmts(s.Body)
		after := c.scope.Snapshot()
		c.scope.PopScope()

		symboltable.MergeBranches(c.scope, before, after, before)
		for name := range before {
			sym, ok := c.scope.Lookup(name)
			if ok && condBT != nil && !label.Equal(sym.Label, before[name]) {
				sym.Backtrace = diagnostic.FromChildren(diagnostic.Branch, s.Sp, name, condBT, sym.Backtrace)
			}
		}
		if bodyCtx.sawChannelEffect {
			c.sawChannelEffect = true
		}
		c.returns = append(c.returns, bodyCtx.returns...)

		afterFP := c.scope.Snapshot()
		stable := true
		for name, l := range afterFP {
			if !label.Equal(l, before[name]) {
				stable = false
				break
			}
		}
		if stable {
			break
		}
	}
}

func (c *Context) visitReturn(s *ast.ReturnStmt) {
	var results []Result
	for _, e := range s.Results {
		results = append(results, c.visitExpr(e))
	}
	merged := label.Bottom()
	var children []*diagnostic.Backtrace
	for _, r := range results {
		merged = label.Union(merged, r.Label)
		children = append(children, r.BT)
	}
	merged = label.Union(merged, c.pc)
	bt := diagnostic.FromChildren(diagnostic.Return, s.Sp, "", children...)
	c.returns = append(c.returns, Result{Label: merged, BT: bt})
}

func (c *Context) visitGo(s *ast.GoStmt) {
	if s.Call == nil {
		return
	}
	// The call is evaluated for its side effects on channels; its return
	// value is discarded. No assumption is made
	// about execution order relative to the rest of the program.
	res := c.visitExpr(s.Call)
	if res.Chans != nil {
		c.sawChannelEffect = true
	}
}

// ---- Expressions ----

func (c *Context) visitExpr(e ast.Expr) Result {
	switch x := e.(type) {
	case *ast.Ident:
		return c.visitIdent(x)
	case *ast.BasicLit:
		return Result{Label: label.Bottom()}
	case *ast.BinaryExpr:
		xr := c.visitExpr(x.X)
		yr := c.visitExpr(x.Y)
		return Result{
			Label: label.Union(xr.Label, yr.Label),
			BT:    diagnostic.FromChildren(diagnostic.Expression, x.Sp, "", xr.BT, yr.BT),
		}
	case *ast.UnaryExpr:
		if x.IsReceive() {
			return c.visitReceive(x)
		}
		xr := c.visitExpr(x.X)
		return Result{Label: xr.Label, BT: xr.BT}
	case *ast.CallExpr:
		return c.visitCall(x)
	case *ast.IndexExpr:
		xr := c.visitExpr(x.X)
		ir := c.visitExpr(x.Index)
		return Result{
			Label: label.Union(xr.Label, ir.Label),
			BT:    diagnostic.FromChildren(diagnostic.Expression, x.Sp, "", xr.BT, ir.BT),
		}
	case *ast.MakeChanExpr:
		if _, ok := c.a.channels[x.ID]; !ok {
			c.a.channels[x.ID] = label.Bottom()
		}
		return Result{Label: label.Bottom(), Chans: symboltable.ChannelSet{x.ID: {}}}
	default:
		c.reportUnsupported(e.Span(), fmt.Sprintf("expression %T", e))
		return Result{Label: label.Top()}
	}
}

func (c *Context) visitIdent(id *ast.Ident) Result {
	sym, ok := c.scope.Lookup(id.Name)
	if !ok {
		if c.diagnosticsEnabled {
			c.a.report(&diagnostic.Diagnostic{
				Code: diagnostic.EUnsupported, Message: fmt.Sprintf("reference to undeclared name %q", id.Name),
				PrimarySpan: id.Sp,
			})
		}
		return Result{Label: label.Top()}
	}
	c.recordRefIfGlobal(id.Name)
	bt := sym.Backtrace
	if bt == nil {
		bt = diagnostic.New(diagnostic.Expression, id.Sp, id.Name, sym.Label)
	}
	return Result{Label: sym.Label, BT: bt, Chans: sym.Aliases}
}

func (c *Context) visitReceive(x *ast.UnaryExpr) Result {
	chanRes := c.visitExpr(x.X)
	if len(chanRes.Chans) == 0 {
		return Result{Label: label.Top()}
	}
	merged := label.Bottom()
	var children []*diagnostic.Backtrace
	for id := range chanRes.Chans {
		merged = label.Union(merged, c.a.channels[id])
		children = append(children, c.a.channelBTs[id])
	}
	bt := diagnostic.New(diagnostic.Receive, x.Sp, "", merged, children...)
	return Result{Label: merged, BT: bt}
}

// identName extracts the callee name from a call's Fun expression, ignoring
// any package qualifier: glowy does not model the package system, so `fmt.Println` and `Println` resolve identically — both
// fail to find a user-declared summary and fall back to the conservative
// union-of-arguments rule below.
func identName(e ast.Expr) (string, bool) {
	id, ok := e.(*ast.Ident)
	if !ok {
		return "", false
	}
	return id.Name, true
}

func (c *Context) visitCall(call *ast.CallExpr) Result {
	name, isIdent := identName(call.Fun)

	argResults := make([]Result, len(call.Args))
	argLabels := make([]label.Label, len(call.Args))
	var argBTs []*diagnostic.Backtrace
	anySideEffecting := false
	for i, argExpr := range call.Args {
		argResults[i] = c.visitExpr(argExpr)
		argLabels[i] = argResults[i].Label
		argBTs = append(argBTs, diagnostic.FromChildren(diagnostic.FunctionArgument, argExpr.Span(), "", argResults[i].BT))
		if _, isCall := argExpr.(*ast.CallExpr); isCall {
			anySideEffecting = true
		}
	}

	if c.diagnosticsEnabled && call.Ann != nil && call.Ann.Scope == "sink" {
		c.checkSink(call, argResults)
	}

	if !isIdent {
		return Result{Label: label.UnionAll(argLabels...), BT: diagnostic.FromChildren(diagnostic.FunctionCall, call.Sp, "", argBTs...)}
	}

	fsym, ok := c.a.global.Lookup(name)
	if !ok || fsym.Summary == nil {
		// Unresolved / external function (e.g. a sink marker like Println,
		// or a forward reference not yet declared this round): conservative
		// pass-through of argument labels.
		return Result{Label: label.UnionAll(argLabels...), BT: diagnostic.FromChildren(diagnostic.FunctionCall, call.Sp, "", argBTs...)}
	}

	c.recordRefIfGlobal(name)

	for i := range argResults {
		if i >= len(fsym.Summary.ParamAliases) {
			break
		}
		if len(argResults[i].Chans) > 0 {
			fsym.Summary.ParamAliases[i].Union(argResults[i].Chans)
		}
	}

	returnLabel := label.Substitute(fsym.Summary.ReturnLabel, argLabels)
	if fsym.Summary.HasChannelEffect || anySideEffecting {
		returnLabel = label.Union(returnLabel, label.UnionAll(argLabels...))
	}

	bt := diagnostic.FromChildren(diagnostic.FunctionCall, call.Sp, name, append(argBTs, fsym.Summary.ReturnBacktrace)...)
	return Result{Label: returnLabel, BT: bt}
}

// checkSink implements the sink-annotation check, run only during the final
// diagnostic pass once every label is stable.
func (c *Context) checkSink(call *ast.CallExpr, argResults []Result) {
	sinkLabel := label.FromParts(tagsOf(call.Ann)...)
	exprLabel := label.Union(label.Bottom(), c.pc)
	var children []*diagnostic.Backtrace
	for _, r := range argResults {
		exprLabel = label.Union(exprLabel, r.Label)
		children = append(children, r.BT)
	}
	if label.Subset(exprLabel, sinkLabel) {
		return
	}
	provenance := diagnostic.FromChildren(diagnostic.Expression, call.Sp, "", children...)
	c.a.report(diagnostic.NewInsecureFlow(fmt.Sprintf("call to %s", calleeName(call)), call.Sp, exprLabel, sinkLabel, provenance))
}

func calleeName(call *ast.CallExpr) string {
	if name, ok := identName(call.Fun); ok {
		return name
	}
	return "<expr>"
}

func (c *Context) reportUnsupported(span token.Span, construct string) {
	if c.diagnosticsEnabled {
		c.a.report(diagnostic.NewUnsupported(span, construct))
	}
}
