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
package ast

import (
	"github.com/consensys/go-macro/pkg/util/source"
)

// DEFAULT_EXPORT is the name under which a module's default export is known.
const DEFAULT_EXPORT = "default"

// At constructs the location of a node from its span.
func At(span source.Span) Located {
	return Located{span}
}

// IsLiteral determines whether an expression is statically reducible to a
// literal, without reference to any variable.  Only literal expressions can be
// passed as arguments to a macro since they are evaluated before linking.
func IsLiteral(e Expr) bool {
	switch e := e.(type) {
	case *StringLit, *NumberLit, *BoolLit, *NullLit:
		return true
	case *Identifier:
		return e.Name == "undefined" || e.Name == "NaN" || e.Name == "Infinity"
	case *TemplateLit:
		return len(e.Exprs) == 0
	case *Unary:
		// Signed numeric literals
		if e.Operator == "-" || e.Operator == "+" {
			return IsLiteral(e.Operand) && isNumeric(e.Operand)
		}
		//
		return false
	case *ArrayLit:
		for _, elem := range e.Elements {
			if !IsLiteral(elem) {
				return false
			}
		}
		//
		return true
	case *ObjectLit:
		for _, prop := range e.Properties {
			if prop.Spread || prop.Computed != nil || !IsLiteral(prop.Value) {
				return false
			}
		}
		//
		return true
	default:
		return false
	}
}

// FirstNonLiteral returns the first subexpression of a given expression
// preventing it from being a literal, or nil if it is a literal.
func FirstNonLiteral(e Expr) Expr {
	switch e := e.(type) {
	case *ArrayLit:
		for _, elem := range e.Elements {
			if n := FirstNonLiteral(elem); n != nil {
				return n
			}
		}
	case *ObjectLit:
		for _, prop := range e.Properties {
			if prop.Spread || prop.Computed != nil {
				return e
			} else if n := FirstNonLiteral(prop.Value); n != nil {
				return n
			}
		}
	case *TemplateLit:
		if len(e.Exprs) > 0 {
			return e.Exprs[0]
		}
	default:
		if !IsLiteral(e) {
			return e
		}
	}
	//
	return nil
}

func isNumeric(e Expr) bool {
	switch e := e.(type) {
	case *NumberLit:
		return true
	case *Identifier:
		return e.Name == "NaN" || e.Name == "Infinity"
	case *Unary:
		return (e.Operator == "-" || e.Operator == "+") && isNumeric(e.Operand)
	default:
		return false
	}
}
