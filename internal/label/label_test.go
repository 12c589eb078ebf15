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

package label

import "testing"

func TestFromPartsCollapsesEmpty(t *testing.T) {
	if got := FromParts(); !Equal(got, Bottom()) {
		t.Errorf("FromParts() = %v, want Bottom", got)
	}
	got := FromParts("lbl1", "lbl2")
	want := FromParts("lbl2", "lbl1")
	if !Equal(got, want) {
		t.Errorf("FromParts order should not matter: %v != %v", got, want)
	}
}

func TestUnion(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Label
		wantTags []Tag
		wantTop  bool
	}{
		{"top absorbs top", Top(), Top(), nil, true},
		{"top absorbs parts", Top(), FromParts("lbl1"), nil, true},
		{"top absorbs bottom", Top(), Bottom(), nil, true},
		{"bottom identity", FromParts("lbl1", "lbl3"), Bottom(), []Tag{"lbl1", "lbl3"}, false},
		{"bottom idempotent", Bottom(), Bottom(), nil, false},
		{
			"parts merge",
			FromParts("lbl1", "lbl3"), FromParts("lbl2", "lbl3"),
			[]Tag{"lbl1", "lbl2", "lbl3"}, false,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for _, got := range []Label{Union(tc.a, tc.b), Union(tc.b, tc.a)} {
				if got.IsTop() != tc.wantTop {
					t.Fatalf("Union(...).IsTop() = %v, want %v", got.IsTop(), tc.wantTop)
				}
				if !tc.wantTop && !Equal(got, FromParts(tc.wantTags...)) {
					t.Fatalf("Union(...) = %v, want %v", got, FromParts(tc.wantTags...))
				}
			}
		})
	}
}

func TestSubset(t *testing.T) {
	tests := []struct {
		name   string
		a, b   Label
		subset bool
	}{
		{"bottom-bottom", Bottom(), Bottom(), true},
		{"top-top", Top(), Top(), true},
		{"bottom-top", Bottom(), Top(), true},
		{"top-bottom", Top(), Bottom(), false},
		{"parts-top", FromParts("lbl1"), Top(), true},
		{"top-parts", Top(), FromParts("lbl1"), false},
		{"bottom-parts", Bottom(), FromParts("lbl1"), true},
		{"parts-bottom", FromParts("lbl1"), Bottom(), false},
		{"disjoint", FromParts("lbl1"), FromParts("lbl2"), false},
		{"superset", FromParts("lbl1", "lbl2"), FromParts("lbl2"), false},
		{"subset", FromParts("lbl2"), FromParts("lbl1", "lbl2"), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Subset(tc.a, tc.b); got != tc.subset {
				t.Errorf("Subset(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.subset)
			}
		})
	}
}

// Lattice laws: union commutative, associative, idempotent, ⊥ is the
// identity for union, ℓ ⊆ ℓ ∪ ℓ′, and intersect commutative.
func TestLatticeLaws(t *testing.T) {
	a := FromParts("lbl1", "lbl2")
	b := FromParts("lbl2", "lbl3")
	c := FromParts("lbl3", "lbl4")

	if !Equal(Union(a, b), Union(b, a)) {
		t.Error("union not commutative")
	}
	if !Equal(Union(Union(a, b), c), Union(a, Union(b, c))) {
		t.Error("union not associative")
	}
	if !Equal(Union(a, a), a) {
		t.Error("union not idempotent")
	}
	if !Equal(Union(a, Bottom()), a) {
		t.Error("bottom is not the union identity")
	}
	if !Subset(a, Union(a, b)) {
		t.Error("a should be <= a ∪ b")
	}
	if !Equal(Intersect(a, b), Intersect(b, a)) {
		t.Error("intersect not commutative")
	}
}

func TestSyntheticTagRoundTrip(t *testing.T) {
	for i := 1; i <= 3; i++ {
		tag := SyntheticTag(i)
		got, ok := SyntheticIndex(tag)
		if !ok || got != i {
			t.Errorf("SyntheticIndex(SyntheticTag(%d)) = (%d, %v), want (%d, true)", i, got, ok, i)
		}
	}
	if _, ok := SyntheticIndex("lbl1"); ok {
		t.Error("plain tag misidentified as synthetic")
	}
}

// TestSubstitute covers foo(a) returning a label built from synthetic ⟨1⟩
// unioned with concrete tags; substituting the caller's argument label must
// produce their union.
func TestSubstitute(t *testing.T) {
	summary := Union(Singleton(SyntheticTag(1)), FromParts("lbl1", "lbl2", "lbl3"))
	got := Substitute(summary, []Label{FromParts("lbl4")})
	want := FromParts("lbl1", "lbl2", "lbl3", "lbl4")
	if !Equal(got, want) {
		t.Errorf("Substitute(...) = %v, want %v", got, want)
	}
	if HasSynthetic(got) {
		t.Error("substituted label should no longer mention synthetic tags")
	}
}

func TestString(t *testing.T) {
	if got := Bottom().String(); got != "{}" {
		t.Errorf("Bottom().String() = %q, want %q", got, "{}")
	}
	if got := Top().String(); got != "<top>" {
		t.Errorf("Top().String() = %q, want %q", got, "<top>")
	}
	if got := FromParts("lbl2", "lbl1").String(); got != "{lbl1, lbl2}" {
		t.Errorf("FromParts(...).String() = %q, want sorted %q", got, "{lbl1, lbl2}")
	}
}
