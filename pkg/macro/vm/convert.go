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
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/consensys/go-macro/pkg/util/wtf8"
	"github.com/dop251/goja"
)

// Arrays longer than this are not converted element by element.
const maxArrayLength = 1 << 24

// Convert a script value into a value.  Aggregates are converted recursively,
// where an aggregate reachable along several paths (including cycles) is
// converted once.  Reading properties may execute getters, which can raise
// exceptions.
func (r *Realm) fromScript(v goja.Value) Value {
	return r.convert(v, make(map[*goja.Object]Value))
}

func (r *Realm) convert(v goja.Value, seen map[*goja.Object]Value) Value {
	switch v := v.(type) {
	case nil:
		return Undefined
	case *goja.Object:
		return r.convertObject(v, seen)
	case *goja.Symbol:
		return &Opaque{Type: "symbol", Text: "Symbol(" + v.String() + ")"}
	case goja.String:
		return convertString(v)
	}
	//
	if goja.IsUndefined(v) {
		return Undefined
	} else if goja.IsNull(v) {
		return Null
	}
	//
	switch x := v.Export().(type) {
	case bool:
		return x
	case int64:
		return float64(x)
	case float64:
		return x
	case *big.Int:
		return &Opaque{Type: "bigint", Text: x.String() + "n"}
	}
	//
	return &Opaque{Type: "object", Text: v.String()}
}

// Strings are held as UTF-16 code units by the runtime, whose conversion to
// Go strings replaces unpaired surrogates.  Such strings are therefore
// rebuilt from their code units.
func convertString(s goja.String) string {
	if text := s.String(); !strings.ContainsRune(text, utf8.RuneError) {
		return text
	}
	//
	units := make([]uint16, s.Length())
	for i := range units {
		units[i] = s.CharAt(i)
	}
	//
	return wtf8.FromUnits(units)
}

func (r *Realm) convertObject(obj *goja.Object, seen map[*goja.Object]Value) Value {
	if value, ok := seen[obj]; ok {
		return value
	} else if _, ok := goja.AssertFunction(obj); ok {
		return &Function{Name: stringProperty(obj, "name")}
	}
	//
	switch obj.ClassName() {
	case "Promise":
		return &Promise{}
	case "Array":
		length := obj.Get("length").ToInteger()
		if length > maxArrayLength {
			return &Opaque{Type: "object", Text: fmt.Sprintf("[Array(%d)]", length)}
		}
		//
		arr := &Array{Elements: make([]Value, length)}
		seen[obj] = arr
		//
		for i := range arr.Elements {
			arr.Elements[i] = r.convert(obj.Get(strconv.Itoa(i)), seen)
		}
		//
		return arr
	}
	//
	result := NewObject()
	seen[obj] = result
	result.Class, result.Lineage = r.classOf(obj)
	//
	for _, key := range obj.Keys() {
		result.Set(key, r.convert(obj.Get(key), seen))
	}
	// The name and message of errors are not own enumerable properties
	if result.IsError() {
		for _, key := range []string{"name", "message"} {
			if _, ok := result.Get(key); !ok {
				result.Set(key, r.convert(obj.Get(key), seen))
			}
		}
	}
	//
	return result
}

// Determine the class of an object, along with the names of the constructors
// along its prototype chain.  Objects whose prototype is Object.prototype (or
// which have none) are plain.
func (r *Realm) classOf(obj *goja.Object) (string, []string) {
	var lineage []string
	//
	for proto := obj.Prototype(); proto != nil && !proto.SameAs(r.objectProto); proto = proto.Prototype() {
		name := "anonymous"
		//
		if ctor, ok := proto.Get("constructor").(*goja.Object); ok && stringProperty(ctor, "name") != "" {
			name = stringProperty(ctor, "name")
		}
		//
		lineage = append(lineage, name)
	}
	//
	if len(lineage) == 0 {
		return "Object", nil
	}
	//
	return lineage[0], lineage
}

func stringProperty(obj *goja.Object, key string) string {
	if v := obj.Get(key); v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
		return v.String()
	}
	//
	return ""
}

// Convert a value into a script value.  Aggregates are converted afresh, such
// that macros cannot observe each other's arguments.
func (r *Realm) toScript(v Value) goja.Value {
	switch v := v.(type) {
	case NullType:
		return goja.Null()
	case bool:
		return r.rt.ToValue(v)
	case float64:
		return r.rt.ToValue(v)
	case string:
		if wtf8.IsWellFormed(v) {
			return r.rt.ToValue(v)
		}
		//
		return goja.StringFromUTF16(wtf8.Units(v))
	case *Array:
		items := make([]any, len(v.Elements))
		for i, e := range v.Elements {
			items[i] = r.toScript(e)
		}
		//
		return r.rt.NewArray(items...)
	case *Object:
		obj := r.rt.NewObject()
		//
		for _, key := range v.Keys() {
			value, _ := v.Get(key)
			_ = obj.DefineDataProperty(key, r.toScript(value), goja.FLAG_TRUE, goja.FLAG_TRUE, goja.FLAG_TRUE)
		}
		//
		return obj
	}
	//
	return goja.Undefined()
}
