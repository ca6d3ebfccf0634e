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
	"math"
	"testing"

	"github.com/consensys/go-macro/pkg/macro/vm"
	"github.com/consensys/go-macro/pkg/util/assert"
)

func TestSerialize_00(t *testing.T) {
	checkSerialize(t, "String Baked In By Macro", `"String Baked In By Macro"`)
}

func TestSerialize_01(t *testing.T) {
	checkSerialize(t, "say \"hi\"\n\tbye\\", `"say \"hi\"\n\tbye\\"`)
}

func TestSerialize_02(t *testing.T) {
	// Constant expressions are evaluated exactly, so sum at run time
	sum := 0.1
	sum += 0.2
	//
	checkSerialize(t, 1.5, "1.5")
	checkSerialize(t, sum, "0.30000000000000004")
	checkSerialize(t, -2.0, "(-2)")
	checkSerialize(t, math.Copysign(0, -1), "(-0)")
	checkSerialize(t, math.NaN(), "NaN")
	checkSerialize(t, math.Inf(-1), "(-Infinity)")
}

func TestSerialize_03(t *testing.T) {
	checkSerialize(t, true, "true")
	checkSerialize(t, vm.Null, "null")
	checkSerialize(t, vm.Undefined, "undefined")
}

func TestSerialize_04(t *testing.T) {
	checkSerialize(t, vm.NewArray(1.0, "a", false, vm.Null), `[1, "a", false, null]`)
	checkSerialize(t, vm.NewArray(), `[]`)
}

func TestSerialize_05(t *testing.T) {
	obj := vm.NewObject()
	obj.Set("a", 1.0)
	obj.Set("b-c", vm.NewArray())
	obj.Set("nested", vm.NewObject())
	//
	checkSerialize(t, obj, `({ a: 1, "b-c": [], nested: {} })`)
}

func TestSerialize_06(t *testing.T) {
	inner := vm.NewObject()
	inner.Set("x", "\u00e9")
	//
	checkSerialize(t, vm.NewArray(inner, -1.0), "[{ x: \"\u00e9\" }, (-1)]")
}

func TestSerialize_07(t *testing.T) {
	// Unpaired surrogates are escaped exactly
	checkSerialize(t, "\xed\xa0\xbd", `"\ud83d"`)
	checkSerialize(t, "a\xed\xb8\x80\U0001F600", "\"a\\ude00\U0001F600\"")
}

func TestSerialize_Invalid_00(t *testing.T) {
	checkSerializeError(t, &vm.Function{}, "result is a function")
}

func TestSerialize_Invalid_01(t *testing.T) {
	arr := vm.NewArray(1.0)
	arr.Elements = append(arr.Elements, arr)
	//
	checkSerializeError(t, arr, "result[1] is cyclic")
}

func TestSerialize_Invalid_02(t *testing.T) {
	obj := vm.NewObject()
	obj.Set("err", vm.NewError("TypeError", "oops"))
	//
	checkSerializeError(t, obj, "result.err is an instance of TypeError")
}

func TestSerialize_Invalid_03(t *testing.T) {
	checkSerializeError(t, vm.NewArray(&vm.Promise{}), "result[0] is a promise")
}

func TestSerialize_Invalid_05(t *testing.T) {
	checkSerializeError(t, &vm.Opaque{Type: "bigint", Text: "1n"}, "result is a bigint")
}

func TestSerialize_Invalid_04(t *testing.T) {
	obj := vm.NewObject()
	obj.Set("__proto__", 1.0)
	//
	checkSerializeError(t, obj, "cannot be represented")
}

func TestRoundTrip_00(t *testing.T) {
	strings := []string{"", "plain", "\x00\x1f\x7f", "caf\u00e9", "\U0001F600", "\ufeff\u00a0\u2028", "${x}`", "'\"",
		"\xed\xa0\xbd", "\xed\xb8\x80\xed\xa0\xbd"}
	//
	for _, s := range strings {
		checkRoundTrip(t, s)
	}
}

func TestRoundTrip_01(t *testing.T) {
	numbers := []float64{0, 1, -1, 1e21, 1e-7, 123456789.125, math.MaxFloat64, math.SmallestNonzeroFloat64,
		9007199254740993, -0.5, math.Inf(1)}
	//
	for _, n := range numbers {
		checkRoundTrip(t, n)
	}
}

func TestRoundTrip_02(t *testing.T) {
	obj := vm.NewObject()
	obj.Set("z", 1.0)
	obj.Set("a", vm.NewArray("x", vm.NewArray(true, vm.Null)))
	obj.Set("with space", vm.Undefined)
	//
	checkRoundTrip(t, obj)
}

func TestDeserialize_Invalid_00(t *testing.T) {
	for _, text := range []string{"", "1 2", "f()", "{ a: b }", "`${x}`", "\"unterminated"} {
		_, err := Deserialize(text)
		assert.True(t, err != nil, text)
	}
}

// ============================================================================
// Helpers
// ============================================================================

func checkSerialize(t *testing.T, value vm.Value, expected string) {
	t.Helper()
	//
	text, err := serializeExactly(value)
	assert.NoError(t, err)
	assert.Equal(t, expected, text)
}

func checkSerializeError(t *testing.T, value vm.Value, expected string) {
	t.Helper()
	//
	_, err := Serialize(value)
	if err == nil {
		t.Fatalf("expected serialization of %s to fail", vm.Describe(value))
	}
	//
	assert.Contains(t, err.Error(), expected)
}

func checkRoundTrip(t *testing.T, value vm.Value) {
	t.Helper()
	//
	text, err := Serialize(value)
	assert.NoError(t, err)
	//
	decoded, err := Deserialize(text)
	assert.NoError(t, err)
	assert.True(t, vm.Equal(value, decoded), text)
}
