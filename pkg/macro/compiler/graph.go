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

	"github.com/consensys/go-macro/pkg/macro/compiler/ast"
	"github.com/consensys/go-macro/pkg/macro/compiler/parser"
	"github.com/consensys/go-macro/pkg/macro/vm"
	"github.com/consensys/go-macro/pkg/util/source"
	"github.com/consensys/go-macro/pkg/util/source/lex"
	log "github.com/sirupsen/logrus"
)

// State of a macro binding (or call site) as it progresses through
// evaluation.  Resolved and Failed are terminal.
type State uint8

const (
	// DISCOVERED indicates a binding has been found, but not yet evaluated.
	DISCOVERED State = iota
	// EVALUATING indicates evaluation of at least one call site has begun.
	EVALUATING
	// RESOLVED indicates every call site evaluated successfully.
	RESOLVED
	// FAILED indicates at least one call site could not be evaluated.
	FAILED
)

func (s State) String() string {
	switch s {
	case DISCOVERED:
		return "discovered"
	case EVALUATING:
		return "evaluating"
	case RESOLVED:
		return "resolved"
	default:
		return "failed"
	}
}

// MacroBinding identifies a local name bound by a compile-time only import.
type MacroBinding struct {
	// Import declaration introducing this binding
	Import *ast.ImportDecl
	// Name by which the binding is known within the unit
	Local string
	// Export of the macro module to which the binding refers.  This is empty
	// for namespace bindings, whose call sites name the export.
	Export string
	// Namespace indicates a binding of the form "* as ns".
	Namespace bool
	// Resolved path of the macro module, or the error arising from resolving
	// it.
	Module     string
	resolution error
	// Call sites referring to this binding
	CallSites []*CallSite
	State     State
}

// CallSite is a single invocation of a macro within a compilation unit.
type CallSite struct {
	Binding *MacroBinding
	// Export being invoked
	Export string
	// Arguments of the call (each of which is a literal)
	Arguments []ast.Expr
	// Tokens (inclusive) and span of the call expression
	First int
	Last  int
	Span  source.Span
	// Index of the enclosing top-level statement
	Statement int
	// Outcome of evaluation
	State   State
	Literal string
}

// Graph is a compilation unit annotated with its macro bindings and the call
// sites which refer to them.
type Graph struct {
	Unit *ast.CompilationUnit
	// Compile-time only imports (to be removed once expanded)
	Imports []*ast.ImportDecl
	// Resolved paths of the macro modules named by those imports, including
	// imports which bind nothing.
	Modules   []string
	Bindings  []*MacroBinding
	CallSites []*CallSite
	// Set once the unit has been spliced, along with the text it was spliced
	// from and the edits applied (in order of position).
	spliced  bool
	original *source.File
	edits    []edit
}

// Binding returns the macro binding with a given local name (or nil).
func (p *Graph) Binding(local string) *MacroBinding {
	for _, b := range p.Bindings {
		if b.Local == local {
			return b
		}
	}
	//
	return nil
}

// Locate maps a span of the unit's current text back to the text from which
// the graph was built.  Spans within spliced text map to the call site they
// replaced.
func (p *Graph) Locate(span source.Span) (*source.File, source.Span) {
	if !p.spliced {
		return p.Unit.SourceFile(), span
	}
	//
	start, end := p.originalOffset(span.Start()), p.originalOffset(span.End())
	//
	return p.original, source.NewSpan(start, max(start, end))
}

func (p *Graph) originalOffset(offset int) int {
	var delta int
	//
	for _, e := range p.edits {
		start := e.span.Start() + delta
		//
		if offset < start {
			break
		} else if offset < start+len([]rune(e.text)) {
			return e.span.Start()
		}
		//
		delta += len([]rune(e.text)) - e.span.Length()
	}
	//
	return offset - delta
}

// BuildGraph classifies the imports of a compilation unit, and locates the
// call sites of any macro bindings they introduce.  An import is a macro import
// exactly when it carries the attribute type: "macro".  Call sites have the
// form "f(args)" for default or named bindings, and "ns.f(args)" for namespace
// bindings, where each argument must be a literal.  Any other reference to a
// macro binding is left in place, and subsequently rejected by Validate.
func BuildGraph(unit *ast.CompilationUnit, loader vm.Loader) (*Graph, []*Failure) {
	var (
		graph    = &Graph{Unit: unit}
		locals   = make(map[string]*MacroBinding)
		failures []*Failure
	)
	//
	for _, imp := range unit.Imports() {
		// Re-exports cannot be expanded, and are left for validation
		if !imp.IsCompileTimeOnly || imp.Reexport {
			continue
		}
		//
		graph.Imports = append(graph.Imports, imp)
		//
		module, err := loader.Resolve(unit.Filename(), imp.Specifier)
		if err == nil {
			graph.Modules = append(graph.Modules, module)
		}
		//
		bind := func(local string, export string, namespace bool) {
			binding := &MacroBinding{Import: imp, Local: local, Export: export, Namespace: namespace,
				Module: module, resolution: err}
			graph.Bindings = append(graph.Bindings, binding)
			locals[local] = binding
			//
			log.Debug(fmt.Sprintf("%s: discovered macro binding %s from \"%s\"", unit.Filename(), local,
				imp.Specifier))
		}
		//
		if imp.Default != "" {
			bind(imp.Default, ast.DEFAULT_EXPORT, false)
		}
		//
		if imp.Namespace != "" {
			bind(imp.Namespace, "", true)
		}
		//
		for _, spec := range imp.Named {
			bind(spec.Local, spec.Imported, false)
		}
	}
	// Locate call sites
	for index, stmt := range unit.Statements() {
		if stmt.Import != nil {
			continue
		}
		//
		for i := stmt.First; i < stmt.Last; i++ {
			binding := referenceAt(unit, locals, i)
			if binding == nil {
				continue
			}
			//
			site, errs := graph.callSiteAt(binding, i, index)
			failures = append(failures, errs...)
			// Skip over the call (including its arguments)
			if site != nil {
				i = site.Last
			}
		}
	}
	//
	return graph, failures
}

// Determine whether the given token is a reference to a macro binding, as
// opposed to (for example) a property name.
func referenceAt(unit *ast.CompilationUnit, locals map[string]*MacroBinding, index int) *MacroBinding {
	var tokens = unit.Tokens()
	//
	if tokens[index].Kind != parser.IDENTIFIER {
		return nil
	} else if binding, ok := locals[unit.Token(index)]; ok && !isPropertyName(tokens, index) {
		return binding
	}
	//
	return nil
}

// Check whether an identifier is a property name, either in a member access
// (e.g. "x.f") or as a key in an object literal (e.g. "{ f: 1 }").
func isPropertyName(tokens []lex.Token, index int) bool {
	if index == 0 {
		return false
	}
	//
	switch tokens[index-1].Kind {
	case parser.DOT, parser.QUESTION_DOT:
		return true
	case parser.LCURLY, parser.COMMA:
		return index+1 < len(tokens) && tokens[index+1].Kind == parser.COLON
	}
	//
	return false
}

// Construct the call site (if any) beginning with a reference to a given
// binding.  References which do not have the shape of a call site yield nil.
func (p *Graph) callSiteAt(binding *MacroBinding, index int, stmt int) (*CallSite, []*Failure) {
	var (
		unit   = p.Unit
		tokens = unit.Tokens()
		export = binding.Export
		open   = index + 1
	)
	//
	if binding.Namespace {
		if index+3 >= len(tokens) || tokens[index+1].Kind != parser.DOT || tokens[index+2].Kind != parser.IDENTIFIER {
			return nil, nil
		}
		//
		export, open = unit.Token(index+2), index+3
	}
	//
	if open >= len(tokens) || tokens[open].Kind != parser.LBRACE {
		return nil, nil
	} else if index > 0 && tokens[index-1].Kind == parser.IDENTIFIER && unit.Token(index-1) == "new" {
		return nil, nil
	}
	//
	args, last, errs := parser.ParseCallArguments(unit, open)
	if len(errs) > 0 {
		return nil, parseFailures(errs)
	}
	//
	site := &CallSite{
		Binding:   binding,
		Export:    export,
		Arguments: args,
		First:     index,
		Last:      last,
		Span:      source.NewSpan(tokens[index].Span.Start(), tokens[last].Span.End()),
		Statement: stmt,
	}
	//
	binding.CallSites = append(binding.CallSites, site)
	p.CallSites = append(p.CallSites, site)
	// Arguments must be literals
	var failures []*Failure
	//
	for i, arg := range args {
		if expr := ast.FirstNonLiteral(arg); expr != nil {
			failures = append(failures, &Failure{
				Kind:    NonDeterministicMacroError,
				Module:  binding.Import.Specifier,
				Export:  export,
				File:    unit.SourceFile(),
				Span:    expr.Span(),
				Message: p.nonLiteralMessage(i, expr),
			})
			//
			site.State = FAILED
			binding.State = FAILED
		}
	}
	//
	return site, failures
}

func (p *Graph) nonLiteralMessage(index int, expr ast.Expr) string {
	var text = p.Unit.Text(expr.Span())
	// Nested macro calls are reported specifically
	if call, ok := expr.(*ast.Call); ok {
		if p.isMacroCallee(call.Callee) {
			return fmt.Sprintf("argument %d (%s) is itself a macro call, which is not supported", index+1, text)
		}
	}
	//
	return fmt.Sprintf("argument %d (%s) is not a literal, hence cannot be evaluated at compile time", index+1, text)
}

func (p *Graph) isMacroCallee(callee ast.Expr) bool {
	switch e := callee.(type) {
	case *ast.Identifier:
		return p.Binding(e.Name) != nil
	case *ast.Member:
		return p.isMacroCallee(e.Object)
	}
	//
	return false
}
