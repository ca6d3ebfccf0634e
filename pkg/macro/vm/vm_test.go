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
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/consensys/go-macro/pkg/util/assert"
)

// ============================================================================
// Script Macros
// ============================================================================

func TestEval_00(t *testing.T) {
	checkEval(t, "export function run() { return 1 + 2 * 3 }", "7")
}

func TestEval_01(t *testing.T) {
	checkEval(t, "export function run() { return 0.1 + 0.2 }", "0.30000000000000004")
}

func TestEval_02(t *testing.T) {
	checkEval(t, "export const run = (a: number, b: number): number => a ** b;", "1024", 2.0, 10.0)
}

func TestEval_03(t *testing.T) {
	checkEval(t, "export function run(name) { return `hello ${name.toUpperCase()}!` }", `"hello BOB!"`, "bob")
}

func TestEval_04(t *testing.T) {
	checkEval(t, `
function fib(n: number): number {
  return n < 2 ? n : fib(n - 1) + fib(n - 2);
}
export function run() { return fib(15); }`, "610")
}

func TestEval_05(t *testing.T) {
	checkEval(t, `
export function run() {
  const xs = [5, 3, 8, 1];
  return xs.map(x => x * 2).filter(x => x > 4).sort((a, b) => a - b);
}`, "[6, 10, 16]")
}

func TestEval_06(t *testing.T) {
	checkEval(t, `
export function run() {
  const base = { a: 1, b: 2 };
  const obj = { ...base, c: [true, null], ["d" + 1]: "x" };
  return JSON.stringify(obj);
}`, `"{\"a\":1,\"b\":2,\"c\":[true,null],\"d1\":\"x\"}"`)
}

func TestEval_07(t *testing.T) {
	checkEval(t, `
export function run() {
  let total = 0;
  for (const x of [1, 2, 3, 4, 5, 6]) {
    if (x % 2 == 0) continue;
    if (x > 4) break;
    total += x;
  }
  let i = 0;
  while (true) { if (++i >= 10) break; }
  for (let j = 0; j < 5; j++) { total += j; }
  return total + i;
}`, "24")
}

func TestEval_08(t *testing.T) {
	checkEval(t, `
export function run() {
  const log = [];
  try {
    log.push("try");
    throw new TypeError("bad");
  } catch (e) {
    log.push(e.message, e instanceof TypeError, e instanceof Error);
  } finally {
    log.push("finally");
  }
  return log;
}`, `["try", "bad", true, true, "finally"]`)
}

func TestEval_09(t *testing.T) {
	checkEval(t, `
function counter() {
  let n = 0;
  return { next: () => ++n, get: function () { return n; } };
}
export function run() {
  const c = counter();
  c.next(); c.next();
  return c.get();
}`, "2")
}

func TestEval_10(t *testing.T) {
	checkEval(t, `
export function run() {
  return [typeof undefined, typeof null, typeof 1, typeof "", typeof run, typeof missing];
}`, `["undefined", "object", "number", "string", "function", "undefined"]`)
}

func TestEval_11(t *testing.T) {
	checkEval(t, `
export function run() {
  const s = "a,b,,c";
  return [s.split(","), s.replace(/,+/g, ";"), "abc".padStart(5, "*"), "x".repeat(3), "hello".slice(-3)];
}`, `[["a", "b", "", "c"], "a;b;c", "**abc", "xxx", "llo"]`)
}

func TestEval_12(t *testing.T) {
	checkEval(t, `
export function run() {
  return [(255).toString(16), (3.14159).toFixed(2), parseInt("42px"), parseFloat("1.5e3x"), Number("0x10"),
          Math.max(1, 7, 3), Math.round(-2.5), 7 >>> 1, -7 >> 1, 1 / 0];
}`, `["ff", "3.14", 42, 1500, 16, 7, -2, 3, -4, Infinity]`)
}

func TestEval_13(t *testing.T) {
	checkEval(t, `
export function run() {
  const o = JSON.parse('{"z": 1, "a": [1, 2, {"b": null}]}');
  return Object.keys(o).concat(Object.keys(o.a[2]));
}`, `["z", "a", "b"]`)
}

func TestEval_14(t *testing.T) {
	checkEval(t, `
export function run(...xs: number[]) {
  return xs.reduce((acc, x) => acc + x, 0);
}`, "6", 1.0, 2.0, 3.0)
}

func TestEval_15(t *testing.T) {
	checkEval(t, `
interface Options { scale?: number }
type Pair = [number, number];
export function run(opts: Options = { scale: 2 }): Pair {
  const s = opts.scale ?? 1;
  return [s, (s as number) * 3] as Pair;
}`, "[2, 6]")
}

func TestEval_16(t *testing.T) {
	checkEval(t, `
export function run() {
  var x = 1;
  { var x = 2; }
  let a = null, b = 0;
  a ??= "set"; b ||= 5;
  return [x, a, b, "abc"[1], "abc".length, [1, 2, 3].includes(2)];
}`, `[2, "set", 5, "b", 3, true]`)
}

func TestEval_17(t *testing.T) {
	// Module level state is initialised once per realm
	loader := MemoryLoader{
		"state.ts": []byte(`export const calls = []; export function record(x) { calls.push(x); return calls.length; }`),
		"macro.ts": []byte(`import { record } from "./state"; import * as s from "./state";
record("a");
export function run() { return [record("b"), s.calls]; }`),
	}
	//
	checkModule(t, loader, "macro.ts", "run", `[2, ["a", "b"]]`)
}

func TestEval_18(t *testing.T) {
	// Regular expressions follow script semantics
	checkEval(t, `
export function run() {
  return ["a\u00a0b".replace(/\s/g, "-"), /^.$/.test("\r"), /\s$/.test("x\u2028"), /^\w+$/.test("caf\u00e9")];
}`, `["a-b", false, true, false]`)
}

func TestEval_19(t *testing.T) {
	// Strings are sequences of code units
	checkEval(t, `
export function run() {
  return ["\uD83D" + "\uDE00", "\uD83D", "\uD83D\uDE00".length, "\uD83D\uDE00".charCodeAt(1)];
}`, "[\"\U0001F600\", \"\\ud83d\", 2, 56832]")
}

func TestEval_20(t *testing.T) {
	// Unpaired surrogates survive the round trip through arguments
	checkEval(t, "export function run(s: string) { return [s.length, s.charCodeAt(0), s + \"\\uDE00\"]; }",
		"[1, 55357, \"\U0001F600\"]", "\xed\xa0\xbd")
}

func TestEval_21(t *testing.T) {
	// Sources of nondeterminism are unavailable
	checkEval(t, "export function run() { return [typeof Date, typeof Math.random, typeof Math.floor]; }",
		`["undefined", "undefined", "function"]`)
}

func TestEval_22(t *testing.T) {
	checkEval(t, `
enum Colour { Red = 1, Green }
export function run() { return [Colour.Green, Colour[1], -0, 2 ** 53, [, 1].length]; }`, `[2, "Red", 0, 9007199254740992, 2]`)
}

func TestEval_23(t *testing.T) {
	// Arguments become mutable script values
	checkEval(t, "export function run(o) { o.a.push(2); return o; }", "{ a: [1, 2] }", objectOf("a", NewArray(1.0)))
}

// ============================================================================
// Results
// ============================================================================

func TestResult_00(t *testing.T) {
	result := checkResult(t, "export function run() { return -0; }")
	//
	assert.True(t, math.Signbit(result.(float64)))
}

func TestResult_01(t *testing.T) {
	result := checkResult(t, "class Point { constructor(public x: number) {} } export function run() { return new Point(1); }")
	obj := result.(*Object)
	//
	assert.Equal(t, "Point", obj.Class)
	assert.False(t, obj.IsPlain())
	assert.Equal(t, []string{"x"}, obj.Keys())
}

func TestResult_02(t *testing.T) {
	result := checkResult(t, "export function run() { return [new RangeError(\"r\"), Object.create(null)]; }")
	arr := result.(*Array)
	err := arr.Elements[0].(*Object)
	//
	assert.True(t, err.IsError())
	assert.Equal(t, []string{"RangeError", "Error"}, err.Lineage)
	assert.Equal(t, "RangeError: r", Describe(err))
	assert.True(t, arr.Elements[1].(*Object).IsPlain())
}

func TestResult_03(t *testing.T) {
	result := checkResult(t, "export function run() { const o: any = { k: 1 }; o.self = o; return o; }")
	obj := result.(*Object)
	self, _ := obj.Get("self")
	//
	assert.True(t, self == Value(obj))
}

func TestResult_04(t *testing.T) {
	result := checkResult(t, "export function run() { return [function named() {}, Symbol(\"s\"), 10n, Promise.resolve(1)]; }")
	arr := result.(*Array)
	//
	assert.Equal(t, "named", arr.Elements[0].(*Function).Name)
	assert.Equal(t, "symbol", TypeOf(arr.Elements[1]))
	assert.Equal(t, "bigint", TypeOf(arr.Elements[2]))
	assert.Equal(t, "10n", Describe(arr.Elements[2]))
	//
	_, ok := arr.Elements[3].(*Promise)
	assert.True(t, ok)
}

// ============================================================================
// Modules
// ============================================================================

func TestImport_00(t *testing.T) {
	loader := MemoryLoader{
		"lib/util.ts": []byte(`export function double(x: number) { return x * 2; }
export const NAME = "util";
export default function triple(x) { return x * 3; }`),
		"macro.ts": []byte(`import triple, { double, NAME as name } from "./lib/util";
import * as util from "./lib/util.js";
export function run() { return [double(2), triple(2), util.double(5), name, util.NAME]; }`),
	}
	//
	checkModule(t, loader, "macro.ts", "run", `[4, 6, 10, "util", "util"]`)
}

func TestImport_01(t *testing.T) {
	loader := MemoryLoader{
		"a.ts":     []byte(`export { helper as h } from "./b";`),
		"b.ts":     []byte(`export function helper() { return "b"; }`),
		"macro.ts": []byte(`import { h } from "./a"; export function run() { return h(); }`),
	}
	//
	checkModule(t, loader, "macro.ts", "run", `"b"`)
}

func TestImport_Invalid_00(t *testing.T) {
	loader := MemoryLoader{"macro.ts": []byte(`import { x } from "./missing"; export function run() { return x; }`)}
	//
	_, err := Evaluate(context.Background(), loader, "macro.ts", "run", nil, testConfig())
	assert.ErrorIs(t, err, ErrModuleNotFound)
}

func TestImport_Invalid_01(t *testing.T) {
	loader := MemoryLoader{
		"gen.wasm": testWasmModule(),
		"macro.ts": []byte(`import { answer } from "./gen.wasm"; export function run() { return answer(); }`),
	}
	//
	_, err := Evaluate(context.Background(), loader, "macro.ts", "run", nil, testConfig())
	//
	var moduleErr *ModuleError
	//
	assert.True(t, errors.As(err, &moduleErr))
	assert.Contains(t, err.Error(), "wasm modules cannot be imported")
}

func TestImport_Invalid_02(t *testing.T) {
	loader := MemoryLoader{"macro.ts": []byte(`export function run( {`)}
	//
	_, err := Evaluate(context.Background(), loader, "macro.ts", "run", nil, testConfig())
	//
	var moduleErr *ModuleError
	//
	assert.True(t, errors.As(err, &moduleErr))
	assert.True(t, len(moduleErr.Errors) > 0)
	// Syntax errors are located within the module
	assert.Equal(t, "macro.ts", moduleErr.Errors[0].SourceFile().Filename())
	assert.True(t, moduleErr.Errors[0].Span().Start() > 0)
}

func TestResolve_00(t *testing.T) {
	loader := MemoryLoader{"src/lib/index.ts": nil, "src/m.wasm": nil, "src/x.ts": nil}
	//
	checkResolve(t, loader, "src/a.ts", "./lib", "src/lib/index.ts")
	checkResolve(t, loader, "src/a.ts", "./m", "src/m.wasm")
	checkResolve(t, loader, "src/lib/index.ts", "../x.js", "src/x.ts")
	//
	_, err := loader.Resolve("src/a.ts", "lodash")
	assert.ErrorIs(t, err, ErrModuleNotFound)
}

// ============================================================================
// Failures
// ============================================================================

func TestEval_Invalid_00(t *testing.T) {
	err := checkEvalError(t, `export function run() { throw new Error("boom"); }`)
	//
	var thrown *Throw
	//
	assert.True(t, errors.As(err, &thrown))
	assert.Equal(t, "uncaught Error: boom", err.Error())
	assert.True(t, thrown.Value.(*Object).IsError())
}

func TestEval_Invalid_01(t *testing.T) {
	var (
		loader      = MemoryLoader{"macro.ts": []byte(`export function run() { while (true) {} }`)}
		ctx, cancel = context.WithTimeout(context.Background(), 50*time.Millisecond)
	)
	//
	defer cancel()
	//
	_, err := Evaluate(ctx, loader, "macro.ts", "run", nil, testConfig())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEval_Invalid_02(t *testing.T) {
	err := checkEvalError(t, `export function run() { throw "plain"; }`)
	assert.Equal(t, "uncaught plain", err.Error())
}

func TestEval_Invalid_03(t *testing.T) {
	err := checkEvalError(t, `export async function run() { return 1; }`)
	assert.ErrorIs(t, err, ErrAsyncResult)
}

func TestEval_Invalid_04(t *testing.T) {
	err := checkEvalError(t, `export function other() { return 1; }`)
	assert.ErrorIs(t, err, ErrNoSuchExport)
}

func TestEval_Invalid_05(t *testing.T) {
	err := checkEvalError(t, `function f() { return f(); } export function run() { return f(); }`)
	assert.Contains(t, err.Error(), "RangeError: Maximum call stack size exceeded")
}

func TestEval_Invalid_06(t *testing.T) {
	err := checkEvalError(t, `export function run(o?: any) { return o.x; }`)
	assert.Contains(t, err.Error(), "TypeError: Cannot read property 'x' of undefined")
}

func TestEval_Invalid_07(t *testing.T) {
	err := checkEvalError(t, `export function run() { const o = {}; o.self = o; return JSON.stringify(o); }`)
	assert.Contains(t, err.Error(), "Converting circular structure to JSON")
}

func TestEval_Cancel_00(t *testing.T) {
	var (
		loader      = MemoryLoader{"macro.ts": []byte(`export function run() { for (;;) {} }`)}
		ctx, cancel = context.WithCancel(context.Background())
	)
	//
	cancel()
	//
	_, err := Evaluate(ctx, loader, "macro.ts", "run", nil, Config{Console: &recordingConsole{}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEval_Invalid_08(t *testing.T) {
	err := checkEvalError(t, `export const run = 1;`)
	assert.Contains(t, err.Error(), "is not a function")
}

func TestEval_Invalid_09(t *testing.T) {
	// Exceptions raised whilst reading results are reported
	err := checkEvalError(t, `export function run() { return { get x() { throw new Error("getter"); } }; }`)
	assert.Equal(t, "uncaught Error: getter", err.Error())
}

func TestConsole_00(t *testing.T) {
	var (
		console = &recordingConsole{}
		loader  = MemoryLoader{"gen.ts": []byte(`export function run() { console.log("x =", 1, [2]); console.warn({a: "b"}); }`)}
	)
	//
	_, err := Evaluate(context.Background(), loader, "gen.ts", "run", nil, Config{Console: console})
	//
	assert.NoError(t, err)
	assert.Equal(t, []string{"log gen: x = 1 [2]", `warn gen: { a: "b" }`}, console.lines)
}

// ============================================================================
// Literals
// ============================================================================

func TestQuote_00(t *testing.T) {
	assert.Equal(t, `"a\"b\\c\n\u2028"`, Quote("a\"b\\c\n\u2028"))
}

func TestQuote_01(t *testing.T) {
	// Unpaired surrogates are escaped rather than replaced
	assert.Equal(t, `"x\ud83dy"`, Quote("x\xed\xa0\xbdy"))
	assert.Equal(t, "\"\U0001F600\"", Quote("\U0001F600"))
}

func TestEqual_00(t *testing.T) {
	assert.True(t, Equal(math.NaN(), math.NaN()))
	assert.False(t, Equal(0.0, math.Copysign(0, -1)))
	assert.False(t, Equal("1", 1.0))
	assert.True(t, Equal(NewArray("a", Null), NewArray("a", Null)))
	assert.False(t, Equal(objectOf("a", 1.0, "b", 2.0), objectOf("b", 2.0, "a", 1.0)))
	assert.False(t, Equal("\xed\xa0\xbd", "\ufffd"))
}

// ============================================================================
// Wasm Macros
// ============================================================================

func TestWasm_00(t *testing.T) {
	result, err := evalWasm(t, "answer")
	//
	assert.NoError(t, err)
	assert.Equal(t, 42.0, result)
}

func TestWasm_01(t *testing.T) {
	result, err := evalWasm(t, "add", 40.0, 2.0)
	//
	assert.NoError(t, err)
	assert.Equal(t, 42.0, result)
}

func TestWasm_Invalid_00(t *testing.T) {
	_, err := evalWasm(t, "trap")
	//
	var trap *WasmTrap
	//
	assert.True(t, errors.As(err, &trap))
}

func TestWasm_Invalid_01(t *testing.T) {
	_, err := evalWasm(t, "add", "x", 2.0)
	assert.Contains(t, err.Error(), "accept only numbers")
}

func TestWasm_Invalid_02(t *testing.T) {
	_, err := evalWasm(t, "missing")
	assert.ErrorIs(t, err, ErrNoSuchExport)
}

// ============================================================================
// Helpers
// ============================================================================

type recordingConsole struct {
	lines []string
}

func (p *recordingConsole) Print(level string, module string, message string) {
	p.lines = append(p.lines, level+" "+module+": "+message)
}

func testConfig() Config {
	return Config{Console: &recordingConsole{}}
}

func objectOf(pairs ...Value) *Object {
	obj := NewObject()
	//
	for i := 0; i < len(pairs); i += 2 {
		obj.Set(pairs[i].(string), pairs[i+1])
	}
	//
	return obj
}

// Render a value for comparison, quoting strings.
func render(v Value) string {
	return describe(v, 1)
}

func checkEval(t *testing.T, src string, expected string, args ...Value) {
	checkModule(t, MemoryLoader{"macro.ts": []byte(src)}, "macro.ts", "run", expected, args...)
}

func checkModule(t *testing.T, loader Loader, filename string, export string, expected string, args ...Value) {
	result, err := Evaluate(context.Background(), loader, filename, export, args, testConfig())
	//
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	} else if expected != "" {
		assert.Equal(t, expected, render(result))
	}
}

func checkEvalError(t *testing.T, src string) error {
	loader := MemoryLoader{"macro.ts": []byte(src)}
	//
	_, err := Evaluate(context.Background(), loader, "macro.ts", "run", nil, testConfig())
	if err == nil {
		t.Fatalf("expected error evaluating %s", strings.TrimSpace(src))
	}
	//
	return err
}

func checkResult(t *testing.T, src string) Value {
	loader := MemoryLoader{"macro.ts": []byte(src)}
	//
	result, err := Evaluate(context.Background(), loader, "macro.ts", "run", nil, testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}
	//
	return result
}

func checkResolve(t *testing.T, loader Loader, importer string, specifier string, expected string) {
	actual, err := loader.Resolve(importer, specifier)
	//
	assert.NoError(t, err)
	assert.Equal(t, expected, actual)
}

// Assemble a wasm section from its (short) contents.
func section(id byte, contents ...byte) []byte {
	return append([]byte{id, byte(len(contents))}, contents...)
}

// A module exporting "answer" (returning 42), "add" (of two i32s) and "trap"
// (which executes unreachable).
func testWasmModule() []byte {
	var bytes = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	// Types: () -> i32 and (i32, i32) -> i32
	bytes = append(bytes, section(0x01, 0x02, 0x60, 0x00, 0x01, 0x7f, 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f)...)
	// Functions
	bytes = append(bytes, section(0x03, 0x03, 0x00, 0x01, 0x00)...)
	// Exports
	bytes = append(bytes, section(0x07, 0x03,
		0x06, 'a', 'n', 's', 'w', 'e', 'r', 0x00, 0x00,
		0x03, 'a', 'd', 'd', 0x00, 0x01,
		0x04, 't', 'r', 'a', 'p', 0x00, 0x02)...)
	// Code
	bytes = append(bytes, section(0x0a, 0x03,
		0x04, 0x00, 0x41, 0x2a, 0x0b,
		0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b,
		0x03, 0x00, 0x00, 0x0b)...)
	//
	return bytes
}

func evalWasm(t *testing.T, export string, args ...Value) (Value, error) {
	loader := MemoryLoader{"gen.wasm": testWasmModule()}
	//
	return Evaluate(context.Background(), loader, "gen.wasm", export, args, testConfig())
}
