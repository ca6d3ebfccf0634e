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
)

// Validate checks that a compilation unit holds no reference to macro-only
// code, as identified by the graph constructed for it before splicing.  Leaks
// are reported at their location in the unit as it was before splicing.  The
// following are reported as leaks: any surviving compile-time only import or
// re-export; any other import (static or dynamic) of a macro module; and, any
// surviving reference to a macro binding.
func Validate(unit *ast.CompilationUnit, graph *Graph, loader vm.Loader) []*Failure {
	var (
		failures []*Failure
		modules  = make(map[string]bool)
		locals   = make(map[string]*MacroBinding)
	)
	//
	for _, module := range graph.Modules {
		modules[module] = true
	}
	//
	for _, b := range graph.Bindings {
		locals[b.Local] = b
	}
	//
	leak := func(module string, export string, span source.Span, format string, args ...any) {
		file, span := graph.Locate(span)
		//
		failures = append(failures, &Failure{
			Kind:    RuntimeLeakError,
			Module:  module,
			Export:  export,
			File:    file,
			Span:    span,
			Message: fmt.Sprintf(format, args...),
		})
	}
	// Import table
	for _, imp := range unit.Imports() {
		switch {
		case imp.IsCompileTimeOnly && imp.Reexport:
			leak(imp.Specifier, "", imp.Span, "macro module cannot be re-exported")
		case imp.IsCompileTimeOnly:
			leak(imp.Specifier, "", imp.Span, "compile-time import survives in output")
		case isMacroModule(unit, loader, modules, imp.Specifier):
			leak(imp.Specifier, "", imp.SpecifierSpan, "macro module is imported at runtime")
		}
	}
	// Statement bodies
	for _, stmt := range unit.Statements() {
		if stmt.Import != nil {
			continue
		}
		//
		for i := stmt.First; i < stmt.Last; i++ {
			if specifier, span, ok := dynamicImportAt(unit, i); ok {
				if isMacroModule(unit, loader, modules, specifier) {
					leak(specifier, "", span, "macro module is imported dynamically")
				}
			} else if binding := referenceAt(unit, locals, i); binding != nil {
				leak(binding.Import.Specifier, binding.Export, unit.Tokens()[i].Span, "reference to macro %s survives in output",
					binding.Local)
			}
		}
	}
	//
	return failures
}

// Check whether a specifier refers to a macro module.  Specifiers which cannot
// be resolved (e.g. packages) are not macro modules.
func isMacroModule(unit *ast.CompilationUnit, loader vm.Loader, modules map[string]bool, specifier string) bool {
	path, err := loader.Resolve(unit.Filename(), specifier)
	//
	return err == nil && modules[path]
}

// Check for a dynamic import of the form "import("...")", returning its
// specifier and location.
func dynamicImportAt(unit *ast.CompilationUnit, index int) (string, source.Span, bool) {
	var tokens = unit.Tokens()
	//
	if index+2 >= len(tokens) || tokens[index].Kind != parser.IDENTIFIER || unit.Token(index) != "import" {
		return "", source.Span{}, false
	} else if tokens[index+1].Kind != parser.LBRACE || tokens[index+2].Kind != parser.STRING {
		return "", source.Span{}, false
	}
	//
	specifier, err := parser.DecodeString(unit.Token(index + 2))
	if err != nil {
		return "", source.Span{}, false
	}
	//
	return specifier, source.NewSpan(tokens[index].Span.Start(), tokens[index+2].Span.End()), true
}
