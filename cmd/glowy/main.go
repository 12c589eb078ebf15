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

// glowy analyzes one or more source files for insecure information flows.
//
// Usage:
//
//	glowy [-policy file.yaml] [-v N] file.gly [file2.gly ...]
//	glowy [-policy file.yaml]              (reads a program from stdin)
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ist199211-ist199311/glowy-langsec/internal/analyzer"
	"github.com/ist199211-ist199311/glowy-langsec/internal/ast"
	"github.com/ist199211-ist199311/glowy-langsec/internal/diagnostic"
	"github.com/ist199211-ist199311/glowy-langsec/internal/glowyconfig"
	"github.com/ist199211-ist199311/glowy-langsec/internal/parser"
	"github.com/ist199211-ist199311/glowy-langsec/internal/render"
)

const usage = `glowy analyzes Go-subset source files for insecure information flows.

Usage:
    glowy [options] <file.gly>...
    glowy [options]                (read a single program from stdin)

Options:
`

var (
	policyPath = flag.String("policy", "", "path to a YAML policy file declaring the tag universe and defaults")
	verbose    = flag.Int("v", 0, "verbosity: 0=policy file's log-level (info by default), 1=info, 2=debug, 3=trace")
	noColor    = flag.Bool("no-color", false, "disable ANSI color in diagnostic output")
)

// Exit codes: 0 clean, 1 insecure flows
// found, 2 parse/lex errors only, 3 usage/I-O errors.
const (
	exitClean     = 0
	exitInsecure  = 1
	exitParseOnly = 2
	exitUsage     = 3
)

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := glowyconfig.Default()
	if *policyPath != "" {
		loaded, err := glowyconfig.Load(*policyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "glowy: could not load policy %s: %v\n", *policyPath, err)
			os.Exit(exitUsage)
		}
		cfg = loaded
	}

	log := glowyconfig.NewLogGroup(cfg)
	log.SetAllOutput(os.Stderr)
	if *verbose > 0 {
		log.SetLevel(glowyconfig.LogLevel(int(glowyconfig.WarnLevel) + *verbose))
	}

	sources, err := readSources(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "glowy: %v\n", err)
		os.Exit(exitUsage)
	}

	var color *bool
	if *noColor {
		f := false
		color = &f
	}
	r := render.New(os.Stdout, color)

	files, parseDiags, ok := parseAll(sources)
	if !ok {
		errs, warns := r.All(parseDiags)
		r.Summary(errs, warns)
		os.Exit(exitParseOnly)
	}

	a := analyzer.New(files, log)
	diags, err := a.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "glowy: %v\n", err)
		os.Exit(exitUsage)
	}

	all := append(parseDiags, diags...)
	diagnostic.Sort(all)
	errs, warns := r.All(all)
	r.Summary(errs, warns)

	if errs > 0 {
		os.Exit(exitInsecure)
	}
	os.Exit(exitClean)
}

type source struct {
	name string
	text string
}

// readSources loads every named file, or a single program from standard
// input when called with no file arguments at all.
func readSources(args []string) ([]source, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return []source{{name: "<stdin>", text: string(data)}}, nil
	}
	out := make([]source, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		out = append(out, source{name: path, text: string(data)})
	}
	return out, nil
}

// parseAll parses every source independently, joining them into the single
// program the analyzer expects. ok is false when any file produced a fatal parse error, in
// which case diags holds only parse/lex diagnostics and the caller must not
// run the analyzer.
func parseAll(sources []source) (files []*ast.File, diags []*diagnostic.Diagnostic, ok bool) {
	ok = true
	for _, s := range sources {
		p := parser.New(s.name, s.text)
		f := p.Parse()

		for _, lerr := range p.LexErrors() {
			diags = append(diags, diagnostic.NewParseError(lerr.Span, lerr.Msg))
			ok = false
		}
		for _, perr := range p.Errors() {
			diags = append(diags, diagnostic.NewParseError(perr.Span, perr.Msg))
			ok = false
		}
		for _, w := range p.Warnings() {
			diags = append(diags, diagnostic.NewDroppedAnnotation(w.Span, w.Msg))
		}
		files = append(files, f)
	}
	diagnostic.Sort(diags)
	return files, diags, ok
}
