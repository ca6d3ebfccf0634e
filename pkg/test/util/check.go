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
package util

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/consensys/go-macro/pkg/macro/compiler"
	"github.com/consensys/go-macro/pkg/macro/vm"
	"github.com/consensys/go-macro/pkg/util"
	"github.com/consensys/go-macro/pkg/util/source"
	log "github.com/sirupsen/logrus"
)

// TestDir determines the (relative) location of the test directory.  That is
// where the compilation units, their macros and the expected outputs are found.
const TestDir = "../../testdata/macro"

// EXPECTED_EXTENSION is appended to the name of a unit to give the name of the
// file holding its expected output.
const EXPECTED_EXTENSION = ".expected"

// TIMEOUT bounds the evaluation of macros used in tests.
const TIMEOUT = 2 * time.Second

// CheckValid checks that every unit of a given test directory builds, and
// produces its expected output.  Every source file of the directory is built
// together (such that they share evaluation results), and must either have an
// accompanying expected output file or be a macro module imported by another
// unit.  Macro modules are never emitted, hence have no expected output.
func CheckValid(t *testing.T, test string) {
	var (
		dir      = filepath.Join(TestDir, test)
		units    = findUnits(t, dir)
		macroc   = testCompiler()
		srcfiles = make([]*source.File, len(units))
	)
	// Enable testing in parallel
	t.Parallel()
	//
	if len(units) == 0 {
		t.Fatalf("missing any units for %s", test)
	}
	//
	for i, unit := range units {
		srcfiles[i] = readSourceFile(t, unit)
	}
	//
	outputs, err := macroc.Build(context.Background(), srcfiles...)
	if err != nil {
		t.Fatal(err)
	}
	//
	for _, output := range outputs {
		expected, ok := readExpected(t, output.Filename)
		//
		switch {
		case output.MacroModule && ok:
			t.Errorf("%s: macro module has an expected output", output.Filename)
			continue
		case output.MacroModule:
			log.Debug(fmt.Sprintf("%s: skipping macro module", output.Filename))
			continue
		case !ok:
			t.Errorf("%s: missing expected output", output.Filename)
			continue
		}
		//
		for _, f := range output.Failures {
			t.Errorf("unexpected failure %s", f.Error())
		}
		//
		if output.Failed() {
			continue
		}
		//
		if actual := string(output.Bytes); actual != string(expected.Bytes()) {
			t.Errorf("%s: unexpected output\n--- actual ---\n%s\n--- expected ---\n%s", output.Filename, actual,
				string(expected.Bytes()))
		}
	}
	//
	log.Debug(fmt.Sprintf("%s: %s", test, macroc.Stats().String()))
}

// CheckInvalid checks that a given unit fails to build, producing exactly the
// failures described at the beginning of the unit.
func CheckInvalid(t *testing.T, test string) {
	var filename = filepath.Join(TestDir, test+".ts")
	// Enable testing in parallel
	t.Parallel()
	//
	srcfile := readSourceFile(t, filename)
	// Build the unit to produce failures
	bytes, failures, err := testCompiler().BuildUnit(context.Background(), srcfile)
	if err != nil {
		t.Fatal(err)
	} else if bytes != nil {
		t.Fatalf("%s should not have built", filename)
	}
	// Extract expected failures for comparison
	expected, errs := ExtractAttributes(srcfile, extractExpectedFailure)
	if len(errs) > 0 {
		// Report any errors encountered parsing the attributes themselves.
		t.Fatal(errors.Join(errs...))
	}
	//
	checkExpectedFailures(t, srcfile, toSyntaxErrors(failures), expected)
}

func checkExpectedFailures(t *testing.T, srcfile *source.File, actual, expected []source.SyntaxError) {
	var (
		failed bool
		msg    = fmt.Sprintf("Error %s\n", srcfile.Filename())
	)
	//
	for i := 0; i < max(len(actual), len(expected)); i++ {
		if i < len(actual) && i < len(expected) {
			if expected[i].Message() == actual[i].Message() && expected[i].Span() == actual[i].Span() {
				continue
			}
		}
		// Indicate error arose
		failed = true
		//
		if i < len(actual) {
			msg = fmt.Sprintf("%s unexpected error %s\n", msg, errorToString(actual[i]))
		}
		//
		if i < len(expected) {
			msg = fmt.Sprintf("%s   expected error %s\n", msg, errorToString(expected[i]))
		}
	}
	//
	if failed {
		t.Fatal(msg)
	}
}

// Convert failures into syntax errors identified by their kind.
func toSyntaxErrors(failures []*compiler.Failure) []source.SyntaxError {
	var errs = make([]source.SyntaxError, len(failures))
	//
	for i, f := range failures {
		if f.File != nil {
			errs[i] = *f.File.SyntaxError(f.Span, string(f.Kind))
		}
	}
	//
	return errs
}

// Find all units in a given directory, in the same way as the build command.
func findUnits(t *testing.T, dir string) []string {
	units, err := util.ExpandSourceFiles([]string{dir}, compiler.UnitExtensions...)
	if err != nil {
		t.Fatal(err)
	}
	//
	slices.Sort(units)
	//
	return units
}

// Read the expected output of a given unit, if it exists.
func readExpected(t *testing.T, filename string) (*source.File, bool) {
	filename += EXPECTED_EXTENSION
	//
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return nil, false
	}
	//
	return readSourceFile(t, filename), true
}

func testCompiler() *compiler.Compiler {
	return compiler.NewCompiler(compiler.Config{Loader: vm.FileLoader{}, Timeout: TIMEOUT,
		Console: discardConsole{}})
}

// Console which discards macro output.
type discardConsole struct{}

func (discardConsole) Print(level string, module string, message string) {}

func readSourceFile(t *testing.T, filename string) *source.File {
	bytes, err := os.ReadFile(filename)
	// Check test file read ok
	if err != nil {
		t.Fatal(err)
	}
	// Package up as source file
	return source.NewSourceFile(filename, bytes)
}

// Convert a span into a useful human readable string.
func errorToString(err source.SyntaxError) string {
	if err.SourceFile() == nil {
		return "(no location) " + err.Message()
	}
	//
	span := err.Span()
	line := err.FirstEnclosingLine()
	lineOffset := span.Start() - line.Start()
	// Calculate length (ensures don't overflow line)
	length := min(line.Length()-lineOffset, span.Length())
	// Print error + line number
	return fmt.Sprintf("%s:%d:%d-%d %s", err.SourceFile().Filename(), line.Number(), 1+lineOffset,
		1+lineOffset+length, err.Message())
}
