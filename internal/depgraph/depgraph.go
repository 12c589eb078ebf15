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

// Package depgraph tracks reverse dependencies between global symbols so
// the analyzer's fixed-point worklist knows who to re-enqueue when a
// symbol's label grows. It also exposes the dependency graph to two general-purpose
// graph libraries: strongly-connected-component detection (mutually
// recursive symbol groups, which settle together rather than converging one
// at a time) and a topological seeding order for the worklist, which is a
// performance tuning rather than a correctness requirement since the
// fixed-point result does not depend on visitation order.
package depgraph

import (
	"sort"

	yourbasicgraph "github.com/yourbasic/graph"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Graph is the reverse-dependency graph over global symbol names: an edge
// dependent -> dependency records "dependent's label was computed using
// dependency's current label".
type Graph struct {
	ids   map[string]int64
	names []string

	// deps[d] holds the ids that d depends on (forward edges).
	deps map[int64]map[int64]bool
	// rdeps[d] holds the ids that depend on d (reverse edges, used to
	// answer "who must be re-enqueued when d's label grows").
	rdeps map[int64]map[int64]bool
}

// New creates an empty dependency graph.
func New() *Graph {
	return &Graph{
		ids:   map[string]int64{},
		deps:  map[int64]map[int64]bool{},
		rdeps: map[int64]map[int64]bool{},
	}
}

// AddSymbol registers name if not already present and returns its id.
func (g *Graph) AddSymbol(name string) int64 {
	if id, ok := g.ids[name]; ok {
		return id
	}
	id := int64(len(g.names))
	g.ids[name] = id
	g.names = append(g.names, name)
	g.deps[id] = map[int64]bool{}
	g.rdeps[id] = map[int64]bool{}
	return id
}

// AddDependency records that dependent's label computation reads
// dependency's current label.
func (g *Graph) AddDependency(dependent, dependency string) {
	if dependent == dependency {
		return
	}
	d := g.AddSymbol(dependent)
	e := g.AddSymbol(dependency)
	g.deps[d][e] = true
	g.rdeps[e][d] = true
}

// Dependents returns, sorted, every symbol that directly depends on name —
// the set to re-enqueue when name's label grows.
func (g *Graph) Dependents(name string) []string {
	id, ok := g.ids[name]
	if !ok {
		return nil
	}
	var out []string
	for dep := range g.rdeps[id] {
		out = append(out, g.names[dep])
	}
	sort.Strings(out)
	return out
}

// Names returns every registered symbol name in registration order.
func (g *Graph) Names() []string {
	return append([]string(nil), g.names...)
}

// Order implements github.com/yourbasic/graph's Iterator interface.
func (g *Graph) Order() int { return len(g.names) }

// Visit implements github.com/yourbasic/graph's Iterator interface,
// traversing the forward dependency edges of node v.
func (g *Graph) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	for w := range g.deps[int64(v)] {
		if do(int(w), 1) {
			return true
		}
	}
	return false
}

// StronglyConnectedGroups returns the symbol names grouped into their
// strongly connected components (mutual recursion groups), using Tarjan's
// algorithm via github.com/yourbasic/graph. Singleton components (a symbol
// depending on nothing in its own cycle) are omitted.
func (g *Graph) StronglyConnectedGroups() [][]string {
	components := yourbasicgraph.StrongComponents(g)
	var groups [][]string
	for _, comp := range components {
		if len(comp) < 2 {
			continue
		}
		names := make([]string, len(comp))
		for i, id := range comp {
			names[i] = g.names[id]
		}
		sort.Strings(names)
		groups = append(groups, names)
	}
	return groups
}

// SeedOrder returns a topological seeding order for the worklist: symbols
// with no unresolved dependencies first. When the graph has cycles (mutual
// recursion) topo.Sort cannot produce a full order; SeedOrder falls back to
// plain registration order in that case, since the fixed-point algorithm is
// correct regardless of visitation order.
func (g *Graph) SeedOrder() []string {
	gonumGraph := simple.NewDirectedGraph()
	for id := range g.names {
		gonumGraph.AddNode(simple.Node(int64(id)))
	}
	for from, tos := range g.deps {
		for to := range tos {
			// A dependency edge from->to means "from reads to's label", so
			// to must be ready before from: seed order edge is to -> from.
			if !gonumGraph.HasEdgeFromTo(to, from) {
				gonumGraph.SetEdge(gonumGraph.NewEdge(gonumGraph.Node(to), gonumGraph.Node(from)))
			}
		}
	}

	sorted, err := topo.Sort(gonumGraph)
	if err != nil {
		return g.Names()
	}
	order := make([]string, 0, len(sorted))
	for _, n := range sorted {
		order = append(order, g.names[int(n.ID())])
	}
	return order
}

var _ graph.Directed = (*simple.DirectedGraph)(nil)
