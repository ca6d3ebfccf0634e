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
	"math"

	"github.com/consensys/go-macro/pkg/macro/compiler/ast"
)

// LiteralValue converts a literal expression (as determined by ast.IsLiteral)
// into the value it denotes.  Each conversion yields fresh aggregates, hence
// macros cannot observe each other's arguments.
func LiteralValue(e ast.Expr) (Value, error) {
	switch e := e.(type) {
	case *ast.StringLit:
		return e.Value, nil
	case *ast.NumberLit:
		return e.Value, nil
	case *ast.BoolLit:
		return e.Value, nil
	case *ast.NullLit:
		return Null, nil
	case *ast.TemplateLit:
		if len(e.Exprs) == 0 {
			return e.Quasis[0], nil
		}
	case *ast.Identifier:
		switch e.Name {
		case "undefined":
			return Undefined, nil
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		}
	case *ast.Unary:
		if e.Operator == "-" || e.Operator == "+" {
			v, err := LiteralValue(e.Operand)
			//
			if n, ok := v.(float64); ok && err == nil && e.Operator == "-" {
				return -n, nil
			} else if ok && err == nil {
				return n, nil
			}
		}
	case *ast.ArrayLit:
		elements := make([]Value, len(e.Elements))
		//
		for i, elem := range e.Elements {
			v, err := LiteralValue(elem)
			if err != nil {
				return nil, err
			}
			//
			elements[i] = v
		}
		//
		return NewArray(elements...), nil
	case *ast.ObjectLit:
		obj := NewObject()
		//
		for _, prop := range e.Properties {
			if prop.Spread || prop.Computed != nil {
				return nil, fmt.Errorf("object property is not a literal")
			}
			//
			v, err := LiteralValue(prop.Value)
			if err != nil {
				return nil, err
			}
			//
			obj.Set(prop.Key, v)
		}
		//
		return obj, nil
	}
	//
	return nil, fmt.Errorf("expression is not a literal")
}

// Equal determines whether two values are structurally identical, as required
// for a literal to faithfully reproduce a value.  Unlike the equality
// operators, NaN equals itself whilst positive and negative zero differ.
// Aggregates are compared by content, and object keys must agree in order.
func Equal(lhs Value, rhs Value) bool {
	switch l := lhs.(type) {
	case float64:
		r, ok := rhs.(float64)
		//
		if !ok {
			return false
		} else if math.IsNaN(l) || math.IsNaN(r) {
			return math.IsNaN(l) && math.IsNaN(r)
		}
		//
		return l == r && math.Signbit(l) == math.Signbit(r)
	case *Array:
		r, ok := rhs.(*Array)
		if !ok || len(l.Elements) != len(r.Elements) {
			return false
		}
		//
		for i := range l.Elements {
			if !Equal(l.Elements[i], r.Elements[i]) {
				return false
			}
		}
		//
		return true
	case *Object:
		r, ok := rhs.(*Object)
		if !ok || l.Class != r.Class || len(l.keys) != len(r.keys) {
			return false
		}
		//
		for i, k := range l.keys {
			if r.keys[i] != k || !Equal(l.values[k], r.values[k]) {
				return false
			}
		}
		//
		return true
	}
	// Remaining values are primitives or compared by identity
	return lhs == rhs
}
