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

package render

import (
	"io"
	"os"

	"golang.org/x/term"

	"github.com/ist199211-ist199311/glowy-langsec/internal/diagnostic"
	"github.com/ist199211-ist199311/glowy-langsec/internal/formatutil"
)

var (
	errColor  = formatutil.Red
	warnColor = formatutil.Yellow
	okColor   = formatutil.Green
)

// headColor picks the color for a diagnostic's headline, red for every
// error code and yellow for the lone warning code.
func headColor(c diagnostic.Code) func(...interface{}) string {
	if c.IsError() {
		return errColor
	}
	return warnColor
}

// isTerminalWriter mirrors formatutil.Color's own term.IsTerminal check but
// against w's actual fd when available, instead of always fd 1, so piping
// stdout to a file while still writing diagnostics to a terminal stderr (or
// vice versa) is detected correctly.
func isTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
