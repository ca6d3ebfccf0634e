// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package compiler

import (
	"fmt"
	"slices"
	"unicode"

	"github.com/consensys/go-macro/pkg/macro/compiler/ast"
	"github.com/consensys/go-macro/pkg/macro/compiler/parser"
	"github.com/consensys/go-macro/pkg/util/source"
	log "github.com/sirupsen/logrus"
)

// edit replaces a span of the original text.
type edit struct {
	span source.Span
	text string
}

// Splice rewrites the compilation unit of a graph in place, such that every
// resolved call site is replaced by its literal, and every compile-time only
// import is removed.  Text outside of these spans is preserved exactly.  Call
// sites which are not resolved are left untouched.  Splicing a unit which has
// no macro imports (or which was already spliced) leaves it unchanged.
func Splice(graph *Graph) []source.SyntaxError {
	var (
		unit     = graph.Unit
		contents = unit.SourceFile().Contents()
		edits    []edit
	)
	//
	if graph.spliced || len(graph.Imports) == 0 {
		return nil
	}
	//
	for _, site := range graph.CallSites {
		if site.State != RESOLVED {
			continue
		}
		//
		edits = append(edits, edit{site.Span, spliceText(unit, site)})
	}
	//
	for _, stmt := range unit.Statements() {
		if stmt.Import != nil && slices.Contains(graph.Imports, stmt.Import) {
			edits = append(edits, edit{removalSpan(contents, stmt.Span), ""})
		}
	}
	slices.SortFunc(edits, func(l, r edit) int { return l.span.Start() - r.span.Start() })
	// Apply edits back to front, so earlier spans remain valid
	text := slices.Clone(contents)
	//
	for i := len(edits) - 1; i >= 0; i-- {
		e := edits[i]
		text = slices.Replace(text, e.span.Start(), e.span.End(), []rune(e.text)...)
	}
	//
	log.Debug(fmt.Sprintf("%s: spliced %d edit(s)", unit.Filename(), len(edits)))
	//
	spliced, errs := parser.ParseUnit(source.NewSourceFileFromRunes(unit.Filename(), text))
	if len(errs) > 0 {
		return errs
	}
	//
	graph.original = unit.SourceFile()
	graph.edits = edits
	graph.spliced = true
	unit.Replace(spliced)
	//
	return nil
}

// Determine the replacement text for a call site.  Numeric literals are
// parenthesised when immediately followed by a member access, since "5.x" is
// not well formed.
func spliceText(unit *ast.CompilationUnit, site *CallSite) string {
	var (
		tokens = unit.Tokens()
		next   = site.Last + 1
	)
	//
	if next < len(tokens) && tokens[next].Kind == parser.DOT && len(site.Literal) > 0 &&
		unicode.IsDigit(rune(site.Literal[0])) {
		return "(" + site.Literal + ")"
	}
	//
	return site.Literal
}

// Determine the span removed along with an import statement, which includes
// trailing whitespace up to and including the end of the line.
func removalSpan(contents []rune, span source.Span) source.Span {
	var end = span.End()
	//
	for end < len(contents) && (contents[end] == ' ' || contents[end] == '\t') {
		end++
	}
	//
	if end < len(contents) && contents[end] == '\r' {
		end++
	}
	//
	if end < len(contents) && contents[end] == '\n' {
		end++
	}
	//
	return source.NewSpan(span.Start(), end)
}
