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
package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/consensys/go-macro/pkg/macro/compiler"
	"github.com/consensys/go-macro/pkg/util/source"
	"github.com/consensys/go-macro/pkg/util/termio"
	"github.com/spf13/cobra"
)

// Exit codes
const (
	// EXIT_FAILURE indicates that one or more units could not be built.
	EXIT_FAILURE = 4
	// EXIT_INVALID indicates invalid arguments or unreadable inputs.
	EXIT_INVALID = 2
	// EXIT_CANCELLED indicates the build was interrupted.
	EXIT_CANCELLED = 1
)

// GetFlag gets an expected flag, or exits if an error arises.
func GetFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(EXIT_INVALID)
	}

	return r
}

// GetString gets an expected string, or exits if an error arises.
func GetString(cmd *cobra.Command, flag string) string {
	r, err := cmd.Flags().GetString(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(EXIT_INVALID)
	}

	return r
}

// GetInt gets an expected int, or exits if an error arises.
func GetInt(cmd *cobra.Command, flag string) int {
	r, err := cmd.Flags().GetInt(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(EXIT_INVALID)
	}

	return r
}

// GetUint32 gets an expected uint32, or exits if an error arises.
func GetUint32(cmd *cobra.Command, flag string) uint32 {
	r, err := cmd.Flags().GetUint32(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(EXIT_INVALID)
	}

	return r
}

// GetDuration gets an expected duration, or exits if an error arises.
func GetDuration(cmd *cobra.Command, flag string) time.Duration {
	r, err := cmd.Flags().GetDuration(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(EXIT_INVALID)
	}

	return r
}

// Styles used when reporting failures
var (
	kindStyle      = termio.NewAnsiEscape().Bold().FgColour(termio.TERM_RED)
	locationStyle  = termio.NewAnsiEscape().Bold()
	highlightStyle = termio.NewAnsiEscape().Bold().FgColour(termio.TERM_MAGENTA)
)

// Print a build failure, highlighting the offending source (if known).
func printFailure(painter termio.Painter, failure *compiler.Failure) {
	err := failure.SyntaxError()
	//
	if err == nil {
		fmt.Fprintln(os.Stderr, painter.Paint(kindStyle, string(failure.Kind))+strings.TrimPrefix(failure.Error(),
			string(failure.Kind)))
		//
		return
	}
	//
	printSyntaxError(painter, err, string(failure.Kind))
}

// Print a syntax error with appropriate highlighting.
func printSyntaxError(painter termio.Painter, err *source.SyntaxError, kind string) {
	span := err.Span()
	line := err.FirstEnclosingLine()
	lineOffset := span.Start() - line.Start()
	// Calculate length (ensures don't overflow line)
	length := max(1, min(line.Length()-lineOffset, span.Length()))
	msg := strings.TrimPrefix(err.Message(), kind)
	// Print error + line number
	location := fmt.Sprintf("%s:%d:%d:", err.SourceFile().Filename(), line.Number(), 1+lineOffset)
	fmt.Fprintf(os.Stderr, "%s %s%s\n", painter.Paint(locationStyle, location), painter.Paint(kindStyle, kind), msg)
	// Print line
	fmt.Fprintln(os.Stderr, line.String())
	// Print indent, preserving tabs
	fmt.Fprint(os.Stderr, indentOf(line.String(), lineOffset))
	// Print highlight
	fmt.Fprintln(os.Stderr, painter.Paint(highlightStyle, strings.Repeat("^", length)))
}

// Construct the whitespace which lines up with a given offset into a line.
func indentOf(line string, offset int) string {
	var builder strings.Builder
	//
	for i, c := range []rune(line) {
		if i >= offset {
			break
		} else if c == '\t' {
			builder.WriteRune('\t')
		} else {
			builder.WriteRune(' ')
		}
	}
	//
	return builder.String()
}
