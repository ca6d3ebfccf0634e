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
package parser

import (
	"math"
	"testing"

	"github.com/consensys/go-macro/pkg/macro/compiler/ast"
	"github.com/consensys/go-macro/pkg/util/assert"
	"github.com/consensys/go-macro/pkg/util/source"
)

// ============================================================================
// Lexer
// ============================================================================

func TestLex_00(t *testing.T) {
	checkLex(t, "", END_OF)
}

func TestLex_01(t *testing.T) {
	checkLex(t, "a / b / c", IDENTIFIER, DIV, IDENTIFIER, DIV, IDENTIFIER, END_OF)
}

func TestLex_02(t *testing.T) {
	checkLex(t, "x = /ab+c/g.test(y)", IDENTIFIER, EQUALS, REGEX, DOT, IDENTIFIER, LBRACE, IDENTIFIER, RBRACE, END_OF)
}

func TestLex_03(t *testing.T) {
	checkLex(t, "return /x/", IDENTIFIER, REGEX, END_OF)
}

func TestLex_04(t *testing.T) {
	checkLex(t, "`a${b}c`", BACKTICK, TEMPLATE_TEXT, DOLLAR_LCURLY, IDENTIFIER, RCURLY, TEMPLATE_TEXT, BACKTICK, END_OF)
}

func TestLex_05(t *testing.T) {
	checkLex(t, "`${ {a: `x`} }`", BACKTICK, DOLLAR_LCURLY, LCURLY, IDENTIFIER, COLON, BACKTICK, TEMPLATE_TEXT,
		BACKTICK, RCURLY, RCURLY, BACKTICK, END_OF)
}

func TestLex_06(t *testing.T) {
	checkLex(t, "a // comment\n/* block */ b", IDENTIFIER, IDENTIFIER, END_OF)
}

func TestLex_07(t *testing.T) {
	checkLex(t, "0x1F 1_000 .5 1e3 'it\\'s' \"q\"", NUMBER, NUMBER, NUMBER, NUMBER, STRING, STRING, END_OF)
}

func TestLex_08(t *testing.T) {
	checkLex(t, "a >>= b ?? c?.d === e", IDENTIFIER, GREATER_THAN, GREATER_THAN_EQUALS, IDENTIFIER,
		QUESTION_QUESTION, IDENTIFIER, QUESTION_DOT, IDENTIFIER, EQUALS_EQUALS_EQUALS, IDENTIFIER, END_OF)
}

func TestLex_Invalid_00(t *testing.T) {
	checkLexError(t, "x = \"abc")
}

func TestLex_Invalid_01(t *testing.T) {
	checkLexError(t, "/* never closed")
}

func TestLex_Invalid_02(t *testing.T) {
	checkLexError(t, "`abc")
}

func TestLex_Invalid_03(t *testing.T) {
	checkLexError(t, "a /*")
}

func TestLex_Invalid_04(t *testing.T) {
	checkLexError(t, "x = '")
}

func TestLex_09(t *testing.T) {
	checkLex(t, "$a _1 b\u200cc 9x", IDENTIFIER, IDENTIFIER, IDENTIFIER, NUMBER, IDENTIFIER, END_OF)
}

// ============================================================================
// Compilation units
// ============================================================================

func TestParseUnit_00(t *testing.T) {
	unit := checkUnit(t, `import { myMacro } from "./myMacro.ts" with { type: "macro" };
import fs from "fs";
const x = myMacro();
console.log(x);
`)
	//
	assert.Equal(t, 4, len(unit.Statements()))
	assert.Equal(t, 2, len(unit.Imports()))
	//
	decl := unit.Imports()[0]
	assert.True(t, decl.IsCompileTimeOnly)
	assert.Equal(t, "./myMacro.ts", decl.Specifier)
	assert.Equal(t, []string{"myMacro"}, decl.Locals())
	assert.True(t, unit.Statements()[0].Import == decl)
	//
	decl = unit.Imports()[1]
	assert.False(t, decl.IsCompileTimeOnly)
	assert.Equal(t, "fs", decl.Default)
	//
	assert.Equal(t, "const x = myMacro();", unit.Text(unit.Statements()[2].Span))
}

func TestParseUnit_01(t *testing.T) {
	unit := checkUnit(t, "let a = 1\nlet b = a\n  + 2\nb")
	//
	assert.Equal(t, 3, len(unit.Statements()))
	assert.Equal(t, "let b = a\n  + 2", unit.Text(unit.Statements()[1].Span))
}

func TestParseUnit_02(t *testing.T) {
	unit := checkUnit(t, "function f() {\n  return 1\n}\nif (f()) {\n} else {\n}\nf()")
	//
	assert.Equal(t, 3, len(unit.Statements()))
}

func TestParseUnit_03(t *testing.T) {
	unit := checkUnit(t, `import def, * as ns from "m" with { type: "macro" }
import type { T } from "t"
import "side-effect"
import x from "./x" assert { type: "macro" }
import { default as y, "a-b" as z } from "./y"
`)
	//
	imports := unit.Imports()
	assert.Equal(t, 5, len(imports))
	assert.Equal(t, "def", imports[0].Default)
	assert.Equal(t, "ns", imports[0].Namespace)
	assert.True(t, imports[0].IsCompileTimeOnly)
	assert.True(t, imports[1].TypeOnly)
	assert.Equal(t, 0, len(imports[2].Locals()))
	assert.True(t, imports[3].IsCompileTimeOnly)
	assert.Equal(t, []string{"y", "z"}, imports[4].Locals())
	assert.Equal(t, "a-b", imports[4].Named[1].Imported)
}

func TestParseUnit_04(t *testing.T) {
	unit := checkUnit(t, `export { m } from "./m" with { type: "macro" };
export const z = import("./lazy");
`)
	//
	assert.Equal(t, 2, len(unit.Statements()))
	assert.Equal(t, 1, len(unit.Imports()))
	assert.True(t, unit.Imports()[0].Reexport)
	assert.True(t, unit.Imports()[0].IsCompileTimeOnly)
}

func TestParseUnit_Invalid_00(t *testing.T) {
	checkUnitError(t, `import { a from "m";`)
}

func TestParseUnit_Invalid_01(t *testing.T) {
	checkUnitError(t, `import a from m;`)
}

func TestParseUnit_Invalid_02(t *testing.T) {
	checkUnitError(t, `import a from "m" with { type: macro };`)
}

func TestParseCallArguments_00(t *testing.T) {
	unit := checkUnit(t, "foo(1, 'a', [true, null], {k: -2}, ...rest)")
	//
	args, end, errs := ParseCallArguments(unit, 1)
	assert.Equal(t, 0, len(errs))
	assert.Equal(t, 5, len(args))
	assert.Equal(t, RBRACE, unit.Tokens()[end].Kind)
	assert.True(t, ast.IsLiteral(args[3]))
	assert.False(t, ast.IsLiteral(args[4]))
}

// ============================================================================
// Function literals
// ============================================================================

func TestParseFunction_00(t *testing.T) {
	fn := checkFunction(t, "function greet<T>(name: string = `${x}`): string { return `hi ${name}`; }")
	//
	assert.Equal(t, "greet", fn.Name)
	assert.False(t, fn.Arrow)
	assert.False(t, fn.Async)
}

func TestParseFunction_01(t *testing.T) {
	fn := checkFunction(t, "async (a: number, b: number): Promise<number> => { if (a) { return b } return a }")
	//
	assert.True(t, fn.Arrow)
	assert.True(t, fn.Async)
}

func TestParseFunction_02(t *testing.T) {
	fn := checkFunction(t, "x => ({ x, [x]: x?.y ?? 1 })")
	//
	assert.True(t, fn.Arrow)
	assert.Equal(t, "", fn.Name)
}

func TestParseFunction_03(t *testing.T) {
	unit := checkUnit(t, "foo({ m(a) { return a }, n: () => 1 })")
	//
	args, _, errs := ParseCallArguments(unit, 1)
	assert.Equal(t, 0, len(errs))
	//
	obj := args[0].(*ast.ObjectLit)
	assert.Equal(t, "m", obj.Properties[0].Value.(*ast.FunctionLit).Name)
	assert.True(t, obj.Properties[1].Value.(*ast.FunctionLit).Arrow)
	assert.False(t, ast.IsLiteral(obj))
}

func TestParseFunction_Invalid_00(t *testing.T) {
	checkExprError(t, "function* gen() {}")
}

func TestParseFunction_Invalid_01(t *testing.T) {
	checkExprError(t, "function f() { if (x) {")
}

func TestParseFunction_Invalid_02(t *testing.T) {
	checkExprError(t, "function f(a, b { }")
}

// ============================================================================
// Literals
// ============================================================================

func TestDecodeString_00(t *testing.T) {
	checkDecode(t, `"a\nb"`, "a\nb")
	checkDecode(t, `'\x41B\u{43}'`, "ABC")
	checkDecode(t, "\"\U0001F600\"", "\U0001F600")
	checkDecode(t, `"\u{1F600}"`, "\U0001F600")
	checkDecode(t, `"\"quoted\" \\ \0"`, "\"quoted\" \\ \x00")
	checkDecode(t, "'line\\\ncontinued'", "linecontinued")
}

func TestDecodeString_01(t *testing.T) {
	// Escaped surrogate pairs combine, whilst unpaired surrogates are kept
	checkDecode(t, `"\uD83D\uDE00"`, "\U0001F600")
	checkDecode(t, `"\uD83D"`, "\xed\xa0\xbd")
	checkDecode(t, `"\uDE00\uD83D"`, "\xed\xb8\x80\xed\xa0\xbd")
	checkDecode(t, `"a\u{D83D}b"`, "a\xed\xa0\xbdb")
}

func TestDecodeString_Invalid(t *testing.T) {
	for _, raw := range []string{`"\x4"`, `"\u{110000}"`, `"\07"`, `"abc'`} {
		_, err := DecodeString(raw)
		assert.True(t, err != nil, "expected error for %s", raw)
	}
}

func TestParseNumber_00(t *testing.T) {
	checkNumber(t, "0x1F", 31)
	checkNumber(t, "1_000", 1000)
	checkNumber(t, ".5", 0.5)
	checkNumber(t, "1e3", 1000)
	checkNumber(t, "0b101", 5)
	checkNumber(t, "0o17", 15)
	checkNumber(t, "1.5e-3", 0.0015)
	checkNumber(t, "1e400", math.Inf(1))
}

func TestParseNumber_Invalid(t *testing.T) {
	for _, raw := range []string{"10n", "012", "0x"} {
		_, err := ParseNumber(raw)
		assert.True(t, err != nil, "expected error for %s", raw)
	}
}

func TestFormatNumber_00(t *testing.T) {
	assert.Equal(t, "1", FormatNumber(1))
	assert.Equal(t, "-1.5", FormatNumber(-1.5))
	assert.Equal(t, "100", FormatNumber(100))
	assert.Equal(t, "1e+21", FormatNumber(1e21))
	assert.Equal(t, "123456789012345680000", FormatNumber(123456789012345680000))
	assert.Equal(t, "0.000001", FormatNumber(0.000001))
	assert.Equal(t, "1e-7", FormatNumber(1e-7))
	// Constant expressions are evaluated exactly, so sum at run time
	x := 0.1
	x += 0.2
	assert.Equal(t, "0.30000000000000004", FormatNumber(x))
	assert.Equal(t, "0", FormatNumber(math.Copysign(0, -1)))
	assert.Equal(t, "NaN", FormatNumber(math.NaN()))
	assert.Equal(t, "-Infinity", FormatNumber(math.Inf(-1)))
}

// ============================================================================
// Helpers
// ============================================================================

func newSource(text string) *source.File {
	return source.NewSourceFile("test.ts", []byte(text))
}

func checkLex(t *testing.T, input string, expected ...uint) {
	tokens, errs := Lex(newSource(input))
	//
	if len(errs) > 0 {
		t.Fatalf("unexpected error: %s", errs[0].Error())
	}
	//
	kinds := make([]uint, len(tokens))
	for i, token := range tokens {
		kinds[i] = token.Kind
	}
	//
	assert.Equal(t, expected, kinds)
}

func checkLexError(t *testing.T, input string) {
	if _, errs := Lex(newSource(input)); len(errs) == 0 {
		t.Fatalf("expected lexing of %q to fail", input)
	}
}

func checkUnit(t *testing.T, input string) *ast.CompilationUnit {
	unit, errs := ParseUnit(newSource(input))
	//
	if len(errs) > 0 {
		t.Fatalf("unexpected error: %s", errs[0].Error())
	}
	//
	return unit
}

func checkUnitError(t *testing.T, input string) {
	if _, errs := ParseUnit(newSource(input)); len(errs) == 0 {
		t.Fatalf("expected parsing of %q to fail", input)
	}
}

func checkFunction(t *testing.T, input string) *ast.FunctionLit {
	srcfile := newSource(input)
	tokens, errs := Lex(srcfile)
	//
	if len(errs) == 0 {
		var expr ast.Expr
		//
		if expr, _, errs = ParseExpression(srcfile, tokens, 0); len(errs) == 0 {
			fn, ok := expr.(*ast.FunctionLit)
			assert.True(t, ok, "expected function literal, got %T", expr)
			//
			return fn
		}
	}
	//
	t.Fatalf("unexpected error: %s", errs[0].Error())
	//
	return nil
}

func checkExprError(t *testing.T, input string) {
	srcfile := newSource(input)
	tokens, errs := Lex(srcfile)
	//
	if len(errs) == 0 {
		_, _, errs = ParseExpression(srcfile, tokens, 0)
	}
	//
	if len(errs) == 0 {
		t.Fatalf("expected parsing of %q to fail", input)
	}
}

func checkDecode(t *testing.T, raw string, expected string) {
	actual, err := DecodeString(raw)
	assert.NoError(t, err)
	assert.Equal(t, expected, actual)
}

func checkNumber(t *testing.T, raw string, expected float64) {
	actual, err := ParseNumber(raw)
	assert.NoError(t, err)
	assert.Equal(t, expected, actual)
}
