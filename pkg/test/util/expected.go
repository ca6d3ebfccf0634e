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
	"fmt"
	"strconv"
	"strings"

	"github.com/consensys/go-macro/pkg/util/source"
)

// ERROR_PREFIX marks a comment line, at the beginning of a test unit, which
// describes a failure the unit is expected to produce, e.g.
// "//error:3:37-42:NonDeterministicMacroError".
const ERROR_PREFIX = "//error"

// Attribute provides a generic mechanism for extract attributes from the
// beginning of a file.  Parse a given line (assuming it has matched) producing
// an item or an error.
type Attribute[T any] func(int, []source.Line, *source.File) (bool, T, error)

// ExtractAttributes extracts any matching attributes at the beginning of a
// source file.  Scanning stops at the first line which matches no attribute.
func ExtractAttributes[T any](srcfile *source.File, attributes ...Attribute[T]) ([]T, []error) {
	var (
		lines   = srcfile.Lines()
		items   []T
		errors  []error
		matched = true
	)
	//
	for i := 0; i < len(lines) && matched; i++ {
		matched = false
		//
		for _, attribute := range attributes {
			var (
				item T
				err  error
			)
			//
			if matched, item, err = attribute(i, lines, srcfile); err != nil {
				errors = append(errors, err)
			} else if matched {
				items = append(items, item)
				break
			}
		}
	}
	//
	return items, errors
}

// Extract the expected failure from a given line in the source file.  The
// message of the resulting syntax error is the kind of failure expected.
func extractExpectedFailure(lineno int, lines []source.Line, srcfile *source.File) (bool, source.SyntaxError,
	error) {
	var contents = lines[lineno].String()
	//
	if !strings.HasPrefix(contents, ERROR_PREFIX) {
		return false, source.SyntaxError{}, nil
	}
	//
	line, start, end, kind, err := parseExpectedErrorLine(strings.TrimRight(contents, "\r"))
	if err != nil {
		return true, source.SyntaxError{}, err
	}
	//
	span, err := determineFileSpan(line, start, end, lines)
	//
	return true, *srcfile.SyntaxError(span, kind), err
}

func parseExpectedErrorLine(contents string) (line, start, end int, kind string, err error) {
	var splits = strings.Split(contents, ":")
	//
	if len(splits) != 4 {
		return 0, 0, 0, "", fmt.Errorf("malformed expected error \"%s\", should be e.g. \"%s:X:Y-Z:Kind\"",
			contents, ERROR_PREFIX)
	}
	// Parse line number
	if line, err = strconv.Atoi(splits[1]); err != nil {
		return 0, 0, 0, "", fmt.Errorf("invalid line \"%s\" (%s)", splits[1], err.Error())
	} else if line == 0 {
		return 0, 0, 0, "", fmt.Errorf("invalid line \"%s\" (lines numbered from 1)", splits[1])
	}
	// Parse span
	if start, end, err = parseExpectedErrorSpan(splits[2]); err != nil {
		return 0, 0, 0, "", err
	}
	//
	return line, start, end, strings.TrimSpace(splits[3]), nil
}

func parseExpectedErrorSpan(spanStr string) (start, end int, err error) {
	var spanSplits = strings.Split(spanStr, "-")
	//
	if len(spanSplits) != 2 {
		return 0, 0, fmt.Errorf("invalid span \"%s\" (malformed, should be X-Y)", spanStr)
	}
	// Parse span start as integer
	if start, err = strconv.Atoi(spanSplits[0]); err != nil {
		return 0, 0, fmt.Errorf("invalid span \"%s\" (%s)", spanStr, err.Error())
	} else if start == 0 {
		return 0, 0, fmt.Errorf("invalid span \"%s\" (columns numbered from 1)", spanStr)
	}
	// Parse span end as integer
	if end, err = strconv.Atoi(spanSplits[1]); err != nil {
		return 0, 0, fmt.Errorf("invalid span \"%s\" (%s)", spanStr, err.Error())
	} else if end < start {
		return 0, 0, fmt.Errorf("invalid span \"%s\" (ends before it starts)", spanStr)
	}
	//
	return start, end, nil
}

// Determine the span that the the given line and columns correspond to.  We
// need the line offsets so that the computed span includes the starting offset
// of the relevant line.
func determineFileSpan(lineno, start, end int, lines []source.Line) (source.Span, error) {
	if lineno > len(lines) {
		return source.Span{}, fmt.Errorf("invalid span \"%d:%d-%d\" (non-existent line)", lineno, start, end)
	}
	//
	line := lines[lineno-1]
	// Subtract one from each since column numbering starts from 1.
	start--
	end--
	//
	if start >= line.Length() || end > line.Length() {
		return source.Span{}, fmt.Errorf("invalid span \"%d:%d-%d\" (overflows to following line)", lineno, start, end)
	}
	//
	return source.NewSpan(start+line.Start(), end+line.Start()), nil
}
