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
	"embed"
	"testing"

	"github.com/ist199211-ist199311/glowy-langsec/internal/ast"
	"github.com/ist199211-ist199311/glowy-langsec/internal/diagnostic"
	"github.com/ist199211-ist199311/glowy-langsec/internal/parser"
)

//go:embed testdata
var testfsys embed.FS

func mustParse(t *testing.T, src string) *ast.File {
	t.Helper()
	p := parser.New("test.gly", src)
	f := p.Parse()
	for _, e := range p.LexErrors() {
		t.Fatalf("unexpected lex error: %s", e.Msg)
	}
	for _, e := range p.Errors() {
		t.Fatalf("unexpected parse error: %s", e.Error())
	}
	return f
}

func runAnalyzer(t *testing.T, src string) []*diagnostic.Diagnostic {
	t.Helper()
	f := mustParse(t, src)
	a := New([]*ast.File{f}, nil)
	diags, err := a.Run()
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	return diags
}

func codesOf(diags []*diagnostic.Diagnostic) []diagnostic.Code {
	out := make([]diagnostic.Code, len(diags))
	for i, d := range diags {
		out[i] = d.Code
	}
	return out
}

func hasCode(diags []*diagnostic.Diagnostic, code diagnostic.Code) bool {
	for _, d := range diags {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestDirectLeakReportsE002(t *testing.T) {
	src := `package main

// glowy::label::{secret}
var password = 0

func main() {
	// glowy::sink::{public}
	publish(password)
}
`
	diags := runAnalyzer(t, src)
	if !hasCode(diags, diagnostic.EInsecureFlow) {
		t.Fatalf("expected E002, got %v", codesOf(diags))
	}
	for _, d := range diags {
		if d.Code == diagnostic.EInsecureFlow && len(d.Provenance) == 0 {
			t.Error("E002 diagnostic should carry a non-empty provenance trail")
		}
	}
}

func TestTieredSinksOnlyFlagTheStricterOne(t *testing.T) {
	src := `package main

// glowy::label::{secret}
var password = 0

func main() {
	// glowy::sink::{secret}
	logInternal(password)
	// glowy::sink::{public}
	publish(password)
}
`
	diags := runAnalyzer(t, src)
	var insecure []*diagnostic.Diagnostic
	for _, d := range diags {
		if d.Code == diagnostic.EInsecureFlow || d.Code == diagnostic.EInsecureImplicit {
			insecure = append(insecure, d)
		}
	}
	if len(insecure) != 1 {
		t.Fatalf("expected exactly one insecure-flow finding, got %d: %v", len(insecure), codesOf(diags))
	}
	if insecure[0].PrimarySpan.Start.Line != 10 {
		t.Errorf("expected the finding to point at the publish() call on line 10, got line %d", insecure[0].PrimarySpan.Start.Line)
	}
}

func TestFlowThroughHelperFunctionReportsE002(t *testing.T) {
	src := `package main

// glowy::label::{secret}
var password = 0

func identity(x) {
	return x
}

func main() {
	leak := identity(password)
	// glowy::sink::{public}
	publish(leak)
}
`
	diags := runAnalyzer(t, src)
	if !hasCode(diags, diagnostic.EInsecureFlow) {
		t.Fatalf("expected E002 for a flow that passes straight through a helper function, got %v", codesOf(diags))
	}
	for _, d := range diags {
		if d.Code == diagnostic.EInsecureFlow {
			found := false
			for _, p := range d.Provenance {
				if p.Message != "" {
					found = true
				}
			}
			if !found {
				t.Error("expected a populated bottom-up provenance explanation")
			}
		}
	}
}

func TestSyntheticParameterSubstitutionAcrossCall(t *testing.T) {
	src := `package main

func identity(x) {
	return x
}

func main() {
	// glowy::label::{secret}
	a := 1
	b := identity(a)
	// glowy::sink::{public}
	publish(b)
}
`
	diags := runAnalyzer(t, src)
	if !hasCode(diags, diagnostic.EInsecureFlow) {
		t.Fatalf("expected the synthetic ⟨1⟩ return label to resolve to {secret} after substitution, got %v", codesOf(diags))
	}
}

func TestSafeCallDoesNotLeak(t *testing.T) {
	src := `package main

func identity(x) {
	return x
}

func main() {
	a := 1
	b := identity(a)
	// glowy::sink::{public}
	publish(b)
}
`
	diags := runAnalyzer(t, src)
	if hasCode(diags, diagnostic.EInsecureFlow) || hasCode(diags, diagnostic.EInsecureImplicit) {
		t.Fatalf("expected no insecure-flow finding for an all-⊥ program, got %v", codesOf(diags))
	}
}

func TestChannelCommunicationAcrossGoroutines(t *testing.T) {
	src := `package main

// glowy::label::{secret}
var password = 0

func worker(ch) {
	ch <- password
}

func main() {
	ch := make(chan int)
	go worker(ch)
	received := <-ch
	// glowy::sink::{public}
	publish(received)
}
`
	diags := runAnalyzer(t, src)
	if !hasCode(diags, diagnostic.EInsecureFlow) && !hasCode(diags, diagnostic.EInsecureImplicit) {
		t.Fatalf("expected the value received from the channel to carry the sent label, got %v", codesOf(diags))
	}
	for _, d := range diags {
		if (d.Code == diagnostic.EInsecureFlow || d.Code == diagnostic.EInsecureImplicit) && len(d.Provenance) == 0 {
			t.Error("channel-carried leak should explain its provenance back through the sending goroutine, not just cite the receive")
		}
	}
}

func TestBranchMergeReportsImplicitFlow(t *testing.T) {
	src := `package main

// glowy::label::{secret}
var password = 0

func main() {
	leak := 0
	if password == 0 {
		leak = 1
	} else {
		leak = 2
	}
	// glowy::sink::{public}
	publish(leak)
}
`
	diags := runAnalyzer(t, src)
	if !hasCode(diags, diagnostic.EInsecureImplicit) {
		t.Fatalf("expected E003 for a value assigned only inside a branch on a secret condition, got %v", codesOf(diags))
	}
	if hasCode(diags, diagnostic.EInsecureFlow) {
		t.Errorf("a purely implicit flow should be reported as E003, not also as E002: %v", codesOf(diags))
	}
}

func TestDeclassifyDropsTheLabel(t *testing.T) {
	src := `package main

// glowy::label::{secret}
var password = 0

func main() {
	// glowy::declassify::{public}
	scrubbed := password
	// glowy::sink::{public}
	publish(scrubbed)
}
`
	diags := runAnalyzer(t, src)
	if hasCode(diags, diagnostic.EInsecureFlow) || hasCode(diags, diagnostic.EInsecureImplicit) {
		t.Fatalf("declassify should replace the label outright, got %v", codesOf(diags))
	}
}

func TestDiagnosticsAreSortedBySpan(t *testing.T) {
	src := `package main

// glowy::label::{secret}
var a = 1
// glowy::label::{secret}
var b = 2

func main() {
	// glowy::sink::{public}
	publish(b)
	// glowy::sink::{public}
	publish(a)
}
`
	diags := runAnalyzer(t, src)
	for i := 1; i < len(diags); i++ {
		prev, cur := diags[i-1].PrimarySpan.Start, diags[i].PrimarySpan.Start
		if cur.Offset < prev.Offset {
			t.Fatalf("diagnostics not sorted by span: %+v before %+v", prev, cur)
		}
	}
}

// TestMutualRecursionConvergesAsAGroup exercises the worklist's strongly-
// connected-component batching: f and g call each other, so they land in
// the same group and must be driven to a local fixed point together rather
// than one at a time.
func TestMutualRecursionConvergesAsAGroup(t *testing.T) {
	src := `package main

// glowy::label::{secret}
var password = 0

func f(x) {
	g(x)
	return password
}

func g(x) {
	f(x)
	return x
}

func main() {
	a := 1
	leak := f(a)
	// glowy::sink::{public}
	publish(leak)
}
`
	diags := runAnalyzer(t, src)
	if !hasCode(diags, diagnostic.EInsecureFlow) {
		t.Fatalf("expected f's return through the mutually recursive pair to carry password's label, got %v", codesOf(diags))
	}
}

// TestMultiFileProgramSharesGlobalSymbols mirrors the CLI's joint-analysis
// mode: a global declared in one file and consumed by a sink in another must
// still be tracked as the same symbol.
func TestMultiFileProgramSharesGlobalSymbols(t *testing.T) {
	names := []string{"secrets.gly", "main.gly"}
	var files []*ast.File
	for _, name := range names {
		data, err := testfsys.ReadFile("testdata/multifile/" + name)
		if err != nil {
			t.Fatalf("ReadFile(%s): %v", name, err)
		}
		files = append(files, mustParse(t, string(data)))
	}

	a := New(files, nil)
	diags, err := a.Run()
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !hasCode(diags, diagnostic.EInsecureFlow) {
		t.Fatalf("expected E002 for the cross-file reference to password, got %v", codesOf(diags))
	}
}
