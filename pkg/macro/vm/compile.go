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
package vm

import (
	"fmt"
	"path"
	"unicode/utf8"

	"github.com/consensys/go-macro/pkg/util/source"
	"github.com/dop251/goja"
	"github.com/evanw/esbuild/pkg/api"
	log "github.com/sirupsen/logrus"
)

// Parameters through which a module's code receives its CommonJS environment.
const (
	modulePrologue = "(function (exports, require, module, console) {"
	moduleEpilogue = "\n})"
)

// Compile a macro module into a program which, when run, yields a function
// initialising the module.  Type annotations are erased and ES module syntax
// is lowered to CommonJS beforehand.
func compileModule(srcfile *source.File) (*goja.Program, error) {
	var filename = srcfile.Filename()
	//
	result := api.Transform(string(srcfile.Bytes()), api.TransformOptions{
		Loader:     loaderOf(filename),
		Format:     api.FormatCommonJS,
		Target:     api.ES2020,
		Sourcefile: filename,
		LogLevel:   api.LogLevelSilent,
	})
	//
	if len(result.Errors) > 0 {
		return nil, &ModuleError{Path: filename, Errors: syntaxErrors(srcfile, result.Errors)}
	}
	//
	for _, warning := range result.Warnings {
		log.Debug(fmt.Sprintf("%s: %s", filename, warning.Text))
	}
	//
	program, err := goja.Compile(filename, modulePrologue+string(result.Code)+moduleEpilogue, true)
	if err != nil {
		return nil, &ModuleError{Path: filename, Cause: err}
	}
	//
	return program, nil
}

// Determine how a module is to be transformed, based on its extension.
func loaderOf(filename string) api.Loader {
	switch path.Ext(filename) {
	case ".ts", ".mts", ".cts":
		return api.LoaderTS
	case ".tsx":
		return api.LoaderTSX
	case ".jsx":
		return api.LoaderJSX
	}
	//
	return api.LoaderJS
}

// Convert the errors reported for a module into syntax errors.  Reported
// columns are byte offsets into the line, whereas spans count runes.
func syntaxErrors(srcfile *source.File, messages []api.Message) []source.SyntaxError {
	var (
		errs  = make([]source.SyntaxError, len(messages))
		lines = srcfile.Lines()
	)
	//
	for i, msg := range messages {
		span := source.NewSpan(0, 0)
		//
		if loc := msg.Location; loc != nil && loc.Line >= 1 && loc.Line <= len(lines) {
			var (
				text  = loc.LineText
				col   = min(max(loc.Column, 0), len(text))
				end   = min(col+max(loc.Length, 0), len(text))
				start = lines[loc.Line-1].Start() + utf8.RuneCountInString(text[:col])
			)
			//
			span = source.NewSpan(start, start+utf8.RuneCountInString(text[col:end]))
		}
		//
		errs[i] = *srcfile.SyntaxError(span, msg.Text)
	}
	//
	return errs
}
