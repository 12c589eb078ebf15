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

// Package label implements the security lattice (L, ⊆, ∪, ∩, ⊤, ⊥) that the
// analyzer propagates over: a Label is a finite set of Tags, where a Tag is
// either a user-provided identifier or a synthetic marker ⟨i⟩ standing for
// the i-th positional parameter of a function summary.
package label

import (
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Tag is a single sensitivity marker: either a plain identifier ("lbl1") or
// a synthetic parameter placeholder produced by SyntheticTag.
type Tag string

// SyntheticTag returns the tag representing a function's i-th positional
// parameter (1-indexed), e.g. SyntheticTag(1) == "⟨1⟩".
func SyntheticTag(i int) Tag {
	return Tag(fmt.Sprintf("⟨%d⟩", i))
}

// SyntheticIndex reports the 1-indexed parameter number if tag is a
// synthetic marker produced by SyntheticTag.
func SyntheticIndex(tag Tag) (int, bool) {
	s := string(tag)
	if !strings.HasPrefix(s, "⟨") || !strings.HasSuffix(s, "⟩") {
		return 0, false
	}
	var i int
	if _, err := fmt.Sscanf(s, "⟨%d⟩", &i); err != nil {
		return 0, false
	}
	return i, true
}

// kind distinguishes the three shapes a Label can take.
type kind int

const (
	kindBottom kind = iota
	kindParts
	kindTop
)

// Label is an element of the bounded lattice L. The zero value is ⊥.
//
// Invariant: a Label of kind kindParts never holds an empty set; an empty
// set of tags is always represented as Bottom.
type Label struct {
	k     kind
	parts map[Tag]struct{}
}

// Bottom is ⊥, the empty label: the least element, carried by every literal.
func Bottom() Label { return Label{k: kindBottom} }

// Top is ⊤, the greatest element: used conservatively for unknown symbols
// and unsupported constructs.
func Top() Label { return Label{k: kindTop} }

// FromParts builds a Label from a set of tags, collapsing an empty set to
// Bottom (mirroring the originating Rust Label::from_parts).
func FromParts(tags ...Tag) Label {
	if len(tags) == 0 {
		return Bottom()
	}
	parts := make(map[Tag]struct{}, len(tags))
	for _, t := range tags {
		parts[t] = struct{}{}
	}
	return Label{k: kindParts, parts: parts}
}

// Singleton is shorthand for FromParts(tag).
func Singleton(tag Tag) Label { return FromParts(tag) }

// IsBottom reports whether l is ⊥.
func (l Label) IsBottom() bool { return l.k == kindBottom }

// IsTop reports whether l is ⊤.
func (l Label) IsTop() bool { return l.k == kindTop }

// Tags returns l's tags in sorted order. It returns nil for ⊥ and ⊤, which
// do not hold an enumerable tag set.
func (l Label) Tags() []Tag {
	if l.k != kindParts {
		return nil
	}
	tags := maps.Keys(l.parts)
	slices.Sort(tags)
	return tags
}

// Union computes a ∪ b.
func Union(a, b Label) Label {
	if a.k == kindTop || b.k == kindTop {
		return Top()
	}
	if a.k == kindBottom {
		return b
	}
	if b.k == kindBottom {
		return a
	}
	merged := make(map[Tag]struct{}, len(a.parts)+len(b.parts))
	maps.Copy(merged, a.parts)
	maps.Copy(merged, b.parts)
	return Label{k: kindParts, parts: merged}
}

// UnionAll folds Union over ls, returning ⊥ for an empty slice.
func UnionAll(ls ...Label) Label {
	result := Bottom()
	for _, l := range ls {
		result = Union(result, l)
	}
	return result
}

// Intersect computes a ∩ b.
func Intersect(a, b Label) Label {
	switch {
	case a.k == kindBottom || b.k == kindBottom:
		return Bottom()
	case a.k == kindTop:
		return b
	case b.k == kindTop:
		return a
	}
	merged := map[Tag]struct{}{}
	for t := range a.parts {
		if _, ok := b.parts[t]; ok {
			merged[t] = struct{}{}
		}
	}
	if len(merged) == 0 {
		return Bottom()
	}
	return Label{k: kindParts, parts: merged}
}

// Subset reports whether a ⊆ b, i.e. a is at most as secret as b.
func Subset(a, b Label) bool {
	if b.k == kindTop {
		return true
	}
	if a.k == kindTop {
		return b.k == kindTop
	}
	if a.k == kindBottom {
		return true
	}
	if b.k == kindBottom {
		return false
	}
	for t := range a.parts {
		if _, ok := b.parts[t]; !ok {
			return false
		}
	}
	return true
}

// Equal reports whether a and b denote the same lattice element.
func Equal(a, b Label) bool {
	return Subset(a, b) && Subset(b, a)
}

// Substitute specializes a function-summary label for a concrete call site:
// every synthetic tag ⟨i⟩ in l is replaced by args[i-1]. Out-of-range indices are dropped,
// which can only happen on malformed summaries.
func Substitute(l Label, args []Label) Label {
	switch l.k {
	case kindBottom, kindTop:
		return l
	}
	result := Bottom()
	for t := range l.parts {
		if i, ok := SyntheticIndex(t); ok {
			if i >= 1 && i <= len(args) {
				result = Union(result, args[i-1])
			}
			continue
		}
		result = Union(result, FromParts(t))
	}
	return result
}

// HasSynthetic reports whether l mentions any synthetic parameter tag,
// i.e. whether it still needs Substitute applied before use outside the
// function it summarizes.
func HasSynthetic(l Label) bool {
	if l.k != kindParts {
		return false
	}
	for t := range l.parts {
		if _, ok := SyntheticIndex(t); ok {
			return true
		}
	}
	return false
}

// String renders l the way diagnostics display labels: "<top>", "{}", or
// "{a, b, c}" with tags in sorted order.
func (l Label) String() string {
	switch l.k {
	case kindTop:
		return "<top>"
	case kindBottom:
		return "{}"
	default:
		tags := l.Tags()
		strs := make([]string, len(tags))
		for i, t := range tags {
			strs[i] = string(t)
		}
		return "{" + strings.Join(strs, ", ") + "}"
	}
}
