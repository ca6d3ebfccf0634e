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
	"strings"

	"github.com/consensys/go-macro/pkg/util/source"
)

// Kind classifies a build failure.
type Kind string

const (
	// ParseError indicates malformed source or import syntax (unit-level).
	ParseError Kind = "ParseError"
	// NonDeterministicMacroError indicates a macro call site whose arguments
	// are not literals (binding-level).
	NonDeterministicMacroError Kind = "NonDeterministicMacroError"
	// MacroExecutionError indicates a macro export which threw, failed to
	// terminate, or could not be invoked (binding-level).
	MacroExecutionError Kind = "MacroExecutionError"
	// SerializationError indicates a macro result which is not representable
	// as a literal (binding-level).
	SerializationError Kind = "SerializationError"
	// RuntimeLeakError indicates a reference to macro-only code surviving into
	// emitted output (unit-level).
	RuntimeLeakError Kind = "RuntimeLeakError"
)

// Sentinels for matching failures by kind with errors.Is.
var (
	ErrParse            = &Failure{Kind: ParseError}
	ErrNonDeterministic = &Failure{Kind: NonDeterministicMacroError}
	ErrMacroExecution   = &Failure{Kind: MacroExecutionError}
	ErrSerialization    = &Failure{Kind: SerializationError}
	ErrRuntimeLeak      = &Failure{Kind: RuntimeLeakError}
)

// Failure describes why a compilation unit could not be built.  Failures
// identify the macro module and export involved (where applicable) together
// with the location in the unit at which the failure arose.
type Failure struct {
	Kind Kind
	// Macro module (as written in the import) and export involved.
	Module string
	Export string
	// Location within the compilation unit (if known).
	File *source.File
	Span source.Span
	// Human readable description.
	Message string
	// Underlying failure (e.g. an exception thrown by the macro).
	Cause error
}

func (e *Failure) Error() string {
	var builder strings.Builder
	//
	if e.File != nil {
		line, col := e.File.Position(e.Span.Start())
		fmt.Fprintf(&builder, "%s:%d:%d: ", e.File.Filename(), line, col)
	}
	//
	builder.WriteString(string(e.Kind))
	builder.WriteString(": ")
	builder.WriteString(e.Message)
	//
	if e.Module != "" && e.Export != "" {
		fmt.Fprintf(&builder, " (macro \"%s\" from \"%s\")", e.Export, e.Module)
	} else if e.Module != "" {
		fmt.Fprintf(&builder, " (macro module \"%s\")", e.Module)
	}
	//
	if e.Cause != nil {
		builder.WriteString(": ")
		builder.WriteString(e.Cause.Error())
	}
	//
	return builder.String()
}

// Unwrap returns the underlying failure.
func (e *Failure) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a failure of the same kind.
func (e *Failure) Is(target error) bool {
	if t, ok := target.(*Failure); ok {
		return e.Kind == t.Kind
	}
	//
	return false
}

// SyntaxError converts this failure into a syntax error for reporting
// alongside the offending source (or nil if it has no location).
func (e *Failure) SyntaxError() *source.SyntaxError {
	if e.File == nil {
		return nil
	}
	//
	msg := strings.TrimPrefix(e.Error(), e.location())
	//
	return e.File.SyntaxError(e.Span, msg)
}

func (e *Failure) location() string {
	line, col := e.File.Position(e.Span.Start())
	return fmt.Sprintf("%s:%d:%d: ", e.File.Filename(), line, col)
}

// Convert syntax errors into parse failures.
func parseFailures(errs []source.SyntaxError) []*Failure {
	var failures = make([]*Failure, len(errs))
	//
	for i, err := range errs {
		failures[i] = &Failure{Kind: ParseError, File: err.SourceFile(), Span: err.Span(), Message: err.Message()}
	}
	//
	return failures
}
