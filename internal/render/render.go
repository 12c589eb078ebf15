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

// Package render prints diagnostics to a terminal: code and message first,
// then the primary position, then the provenance indented underneath,
// reusing the shared color helpers for an optional ANSI-colored code tier.
package render

import (
	"fmt"
	"io"

	"github.com/ist199211-ist199311/glowy-langsec/internal/diagnostic"
)

// Renderer writes diagnostics to an io.Writer, one after another, in the
// order they are given (callers pass diagnostic.Sort's output to get a
// deterministic ordering across runs).
type Renderer struct {
	w     io.Writer
	color bool
}

// New creates a Renderer. color forces ANSI escapes on or off; pass nil to
// auto-detect via term.IsTerminal.
func New(w io.Writer, color *bool) *Renderer {
	r := &Renderer{w: w}
	if color != nil {
		r.color = *color
	} else {
		r.color = isTerminalWriter(w)
	}
	return r
}

func codeLabel(c diagnostic.Code) string {
	switch c {
	case diagnostic.EParseError:
		return "error[E001]"
	case diagnostic.EInsecureFlow:
		return "error[E002]"
	case diagnostic.EInsecureImplicit:
		return "error[E003]"
	case diagnostic.EUnsupported:
		return "error[E004]"
	case diagnostic.WDroppedAnnotation:
		return "warning[W001]"
	default:
		return string(c)
	}
}

func (r *Renderer) paint(s string, colorFn func(...interface{}) string) string {
	if !r.color {
		return s
	}
	return colorFn(s)
}

// One renders a single diagnostic: its code and message on the first line,
// its primary position on the second, then for each flattened provenance
// entry an indented position line followed by its message, bottom cause last.
func (r *Renderer) One(d *diagnostic.Diagnostic) {
	head := fmt.Sprintf("%s: %s", codeLabel(d.Code), d.Message)
	head = r.paint(head, headColor(d.Code))
	fmt.Fprintf(r.w, "%s\n  --> %s\n", head, d.PrimarySpan.Start)
	for _, entry := range d.Provenance {
		fmt.Fprintf(r.w, "      %s\n        %s\n", entry.Span.Start, entry.Message)
	}
	fmt.Fprintln(r.w)
}

// All renders every diagnostic in order and returns a short summary line
// count of errors vs. warnings, for the CLI's exit-code decision.
func (r *Renderer) All(diags []*diagnostic.Diagnostic) (errs, warns int) {
	for _, d := range diags {
		r.One(d)
		if d.Code.IsError() {
			errs++
		} else {
			warns++
		}
	}
	return errs, warns
}

// Summary prints a final one-line count: "no insecure flows found",
// "N warning(s)", or "N error(s), M warning(s)".
func (r *Renderer) Summary(errs, warns int) {
	switch {
	case errs == 0 && warns == 0:
		fmt.Fprintln(r.w, r.paint("no insecure flows found", okColor))
	case errs == 0:
		fmt.Fprintf(r.w, "%s\n", r.paint(fmt.Sprintf("%d warning(s)", warns), warnColor))
	default:
		fmt.Fprintf(r.w, "%s\n", r.paint(fmt.Sprintf("%d error(s), %d warning(s)", errs, warns), errColor))
	}
}
