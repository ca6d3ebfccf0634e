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
	"slices"
	"strings"

	"github.com/consensys/go-macro/pkg/macro/compiler/parser"
	"github.com/consensys/go-macro/pkg/util/wtf8"
)

// Value is any value produced by (or passed to) a macro.  This is one of
// Undefined, Null, bool, float64, string, *Array, *Object, *Function,
// *Promise or *Opaque.  Strings are WTF-8 encoded, such that unpaired
// surrogates are represented exactly.
type Value any

// UndefinedType is the type of the undefined value.
type UndefinedType struct{}

// NullType is the type of the null value.
type NullType struct{}

// Undefined represents the absence of a value.
var Undefined Value = UndefinedType{}

// Null represents the deliberate absence of a value.
var Null Value = NullType{}

// Array is an ordered sequence of values.
type Array struct {
	Elements []Value
}

// NewArray constructs a new array holding the given elements.
func NewArray(elements ...Value) *Array {
	return &Array{Elements: elements}
}

// Object is a mapping from keys to values, which maintains the order of its
// keys.  Objects constructed by anything other than an object literal carry
// the name of their constructor, and are not considered plain.
type Object struct {
	keys   []string
	values map[string]Value
	// Class is "Object" for plain objects, otherwise the name of the
	// constructor which created this object (e.g. "Error" or "Map").
	Class string
	// Constructors along the prototype chain (e.g. TypeError then Error).
	Lineage []string
}

// NewObject constructs a new (initially empty) plain object.
func NewObject() *Object {
	return &Object{values: make(map[string]Value), Class: "Object"}
}

// IsPlain determines whether this is an ordinary object literal, rather than
// an instance of some constructor.
func (p *Object) IsPlain() bool {
	return p.Class == "Object"
}

// IsError determines whether this object is an instance of Error.
func (p *Object) IsError() bool {
	return slices.Contains(p.Lineage, "Error")
}

// Keys returns the keys of this object in order.
func (p *Object) Keys() []string {
	return p.keys
}

// Get returns the value associated with a given key.
func (p *Object) Get(key string) (Value, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Set associates a value with a given key, appending the key if it is new.
func (p *Object) Set(key string, value Value) {
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	//
	p.values[key] = value
}

// NewError constructs an error object of a given class (e.g. "TypeError").
func NewError(class string, message string) *Object {
	obj := NewObject()
	obj.Class = class
	obj.Lineage = []string{class}
	//
	if class != "Error" {
		obj.Lineage = append(obj.Lineage, "Error")
	}
	//
	obj.Set("name", class)
	obj.Set("message", message)
	//
	return obj
}

// Function is a function returned by a macro.  Functions cannot leave the
// realm in which they were created, hence only their name is retained.
type Function struct {
	Name string
}

// Promise is a promise returned by a macro.
type Promise struct{}

// Opaque is a primitive which has no literal form, such as a symbol or a
// bigint.
type Opaque struct {
	// Type as reported by typeof.
	Type string
	// Text describing the value.
	Text string
}

// Throw is an exception raised by a macro, and not caught.
type Throw struct {
	Value Value
	// Stack trace at the point the exception was raised (if known).
	Trace string
}

func (p *Throw) Error() string {
	return "uncaught " + Describe(p.Value)
}

// ============================================================================
// Rendering
// ============================================================================

// TypeOf returns the result of applying "typeof" to a value.
func TypeOf(v Value) string {
	switch v := v.(type) {
	case UndefinedType:
		return "undefined"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case *Function:
		return "function"
	case *Opaque:
		return v.Type
	default:
		return "object"
	}
}

// Describe returns a human readable rendering of a value, as used for
// console output and error messages.
func Describe(v Value) string {
	return describe(v, 0)
}

func describe(v Value, depth int) string {
	switch v := v.(type) {
	case UndefinedType:
		return "undefined"
	case NullType:
		return "null"
	case bool:
		return fmt.Sprintf("%t", v)
	case float64:
		return parser.FormatNumber(v)
	case string:
		if depth == 0 {
			return strings.ToValidUTF8(v, "\ufffd")
		}
		//
		return Quote(v)
	case *Array:
		if depth > 2 {
			return "[Array]"
		}
		//
		parts := make([]string, len(v.Elements))
		for i, e := range v.Elements {
			parts[i] = describe(e, depth+1)
		}
		//
		return "[" + strings.Join(parts, ", ") + "]"
	case *Object:
		if v.IsError() {
			return errorString(v)
		} else if depth > 2 {
			return "[Object]"
		}
		//
		parts := make([]string, len(v.keys))
		for i, k := range v.keys {
			parts[i] = k + ": " + describe(v.values[k], depth+1)
		}
		//
		prefix := ""
		if !v.IsPlain() {
			prefix = v.Class + " "
		}
		//
		if len(parts) == 0 {
			return prefix + "{}"
		}
		//
		return prefix + "{ " + strings.Join(parts, ", ") + " }"
	case *Function:
		if v.Name == "" {
			return "[Function (anonymous)]"
		}
		//
		return "[Function: " + v.Name + "]"
	case *Promise:
		return "Promise { <pending> }"
	case *Opaque:
		return v.Text
	default:
		return fmt.Sprintf("%v", v)
	}
}

func errorString(obj *Object) string {
	var (
		name, _    = obj.Get("name")
		message, _ = obj.Get("message")
		n, _       = name.(string)
		m, _       = message.(string)
	)
	//
	switch {
	case m == "":
		return n
	case n == "":
		return m
	}
	//
	return n + ": " + m
}

// Quote renders a string as a double quoted string literal, escaping every
// character which cannot appear verbatim.  Decoding the result yields the
// original string, including any unpaired surrogates.
func Quote(s string) string {
	var builder strings.Builder
	//
	builder.WriteByte('"')
	//
	for _, c := range wtf8.Decode(s) {
		switch c {
		case '"':
			builder.WriteString("\\\"")
		case '\\':
			builder.WriteString("\\\\")
		case '\n':
			builder.WriteString("\\n")
		case '\r':
			builder.WriteString("\\r")
		case '\t':
			builder.WriteString("\\t")
		case '\b':
			builder.WriteString("\\b")
		case '\f':
			builder.WriteString("\\f")
		case '\v':
			builder.WriteString("\\v")
		case '\u2028', '\u2029', '\ufeff':
			fmt.Fprintf(&builder, "\\u%04x", c)
		default:
			switch {
			case wtf8.IsSurrogate(c):
				fmt.Fprintf(&builder, "\\u%04x", c)
			case c < 0x20 || c == 0x7f:
				fmt.Fprintf(&builder, "\\x%02x", c)
			default:
				builder.WriteRune(c)
			}
		}
	}
	//
	builder.WriteByte('"')
	//
	return builder.String()
}
