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
package ast

import (
	"github.com/consensys/go-macro/pkg/util/source"
	"github.com/consensys/go-macro/pkg/util/source/lex"
)

// MACRO_ATTRIBUTE_KEY is the import attribute key which, together with
// MACRO_ATTRIBUTE_VALUE, marks an import as compile-time only.
const MACRO_ATTRIBUTE_KEY = "type"

// MACRO_ATTRIBUTE_VALUE is the value of the import attribute marking an import
// as compile-time only.
const MACRO_ATTRIBUTE_VALUE = "macro"

// CompilationUnit represents one source module being built.  Only the import
// table and the top-level statement boundaries are parsed structurally; all
// other text is preserved exactly as written.  A unit is owned by the build
// pass which rewrites it in place as call sites are spliced.
type CompilationUnit struct {
	// Source file holding the current text of this unit.
	srcfile *source.File
	// Significant tokens of the current text (whitespace and comments removed).
	tokens []lex.Token
	// Top-level statements, in order of appearance.
	statements []Statement
	// Import declarations, in order of appearance.
	imports []*ImportDecl
}

// NewCompilationUnit constructs a new compilation unit from its constituent
// parts.
func NewCompilationUnit(srcfile *source.File, tokens []lex.Token, statements []Statement,
	imports []*ImportDecl) *CompilationUnit {
	return &CompilationUnit{srcfile, tokens, statements, imports}
}

// SourceFile returns the source file holding the current text of this unit.
func (p *CompilationUnit) SourceFile() *source.File {
	return p.srcfile
}

// Filename returns the name of the file from which this unit was read.
func (p *CompilationUnit) Filename() string {
	return p.srcfile.Filename()
}

// Tokens returns the significant tokens of this unit.
func (p *CompilationUnit) Tokens() []lex.Token {
	return p.tokens
}

// Statements returns the top-level statements of this unit.
func (p *CompilationUnit) Statements() []Statement {
	return p.statements
}

// Imports returns the import table of this unit.
func (p *CompilationUnit) Imports() []*ImportDecl {
	return p.imports
}

// Text returns the text of a given span within this unit.
func (p *CompilationUnit) Text(span source.Span) string {
	return p.srcfile.Text(span)
}

// Token returns the text of the given token.
func (p *CompilationUnit) Token(index int) string {
	return p.srcfile.Text(p.tokens[index].Span)
}

// Emit returns the current text of this unit, ready to be written out.
func (p *CompilationUnit) Emit() []byte {
	return p.srcfile.Bytes()
}

// Replace updates this unit in place so that it reflects a rewritten unit.
func (p *CompilationUnit) Replace(other *CompilationUnit) {
	*p = *other
}

// EnclosingStatement returns the index of the top-level statement enclosing a
// given span, or -1 if there is none.
func (p *CompilationUnit) EnclosingStatement(span source.Span) int {
	for i, stmt := range p.statements {
		if stmt.Span.Contains(span) {
			return i
		}
	}
	//
	return -1
}

// Statement represents a top-level statement of a compilation unit.
type Statement struct {
	// Span of this statement (including any terminating semicolon).
	Span source.Span
	// Index of the first token of this statement.
	First int
	// Index one past the last token of this statement.
	Last int
	// Import declaration, when this statement is an import.
	Import *ImportDecl
}

// ImportSpecifier represents a single named import "x" or "x as y".
type ImportSpecifier struct {
	// Name exported by the target module.
	Imported string
	// Name under which it is bound locally.
	Local string
	// Location of this specifier.
	Span source.Span
}

// Attribute represents an import attribute "key: value".
type Attribute struct {
	Key   string
	Value string
	Span  source.Span
}

// ImportDecl represents an import declaration, such as:
//
//	import { getMacroString } from "../macros/myMacro" with { type: "macro" };
type ImportDecl struct {
	// Module specifier as written (without quotes).
	Specifier string
	// Location of the module specifier.
	SpecifierSpan source.Span
	// Default binding (if any).
	Default string
	// Namespace binding, as in "* as ns" (if any).
	Namespace string
	// Named bindings.
	Named []ImportSpecifier
	// Import attributes (or legacy assertions).
	Attributes []Attribute
	// Whether this is an "import type" declaration.
	TypeOnly bool
	// Whether this is a re-export (e.g. "export { a } from ...") rather than
	// an import.
	Reexport bool
	// IsCompileTimeOnly holds when this declaration carries the macro
	// attribute, marking the imported module as evaluated at build time.
	IsCompileTimeOnly bool
	// Location of the entire declaration.
	Span source.Span
}

// Locals returns every local name bound by this import declaration.
func (p *ImportDecl) Locals() []string {
	var names []string
	//
	if p.Default != "" {
		names = append(names, p.Default)
	}
	//
	if p.Namespace != "" {
		names = append(names, p.Namespace)
	}
	//
	for _, s := range p.Named {
		names = append(names, s.Local)
	}
	//
	return names
}

// Attribute returns the value of a given import attribute, and whether it is
// present.
func (p *ImportDecl) Attribute(key string) (string, bool) {
	for _, attr := range p.Attributes {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	//
	return "", false
}
