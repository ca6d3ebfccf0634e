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

// Node is implemented by every element of the script syntax tree.
type Node interface {
	// Span returns the location of this node within its source file.
	Span() source.Span
}

// Expr represents an arbitrary expression.
type Expr interface {
	Node
	expr()
}

// Located is embedded into syntax tree nodes to record their location.
type Located struct {
	Location source.Span
}

// Span returns the location of this node.
func (p *Located) Span() source.Span {
	return p.Location
}

// StringLit represents a string literal, such as "hello".
type StringLit struct {
	Located
	Value string
}

// NumberLit represents a numeric literal, such as 1.5 or 0xff.
type NumberLit struct {
	Located
	Value float64
}

// BoolLit represents either true or false.
type BoolLit struct {
	Located
	Value bool
}

// NullLit represents null.
type NullLit struct {
	Located
}

// RegexLit represents a regular expression literal, such as /ab+c/g.
type RegexLit struct {
	Located
	Pattern string
	Flags   string
}

// TemplateLit represents a template literal.  There is always exactly one
// more quasi (literal text chunk) than there are embedded expressions.
type TemplateLit struct {
	Located
	Quasis []string
	Exprs  []Expr
}

// Identifier represents a reference to a variable.
type Identifier struct {
	Located
	Name string
}

// Spread represents "...expr" within an array literal, object literal or
// argument list.
type Spread struct {
	Located
	Argument Expr
}

// ArrayLit represents an array literal, such as [1, 2, ...xs].
type ArrayLit struct {
	Located
	Elements []Expr
}

// Property represents one entry of an object literal.  Exactly one of Key or
// Computed is used, unless this is a spread entry.
type Property struct {
	Key      string
	Computed Expr
	Value    Expr
	Spread   bool
}

// ObjectLit represents an object literal, such as {a: 1, "b": 2}.
type ObjectLit struct {
	Located
	Properties []Property
}

// Member represents a property access, either "o.name" or "o[index]".
type Member struct {
	Located
	Object   Expr
	Property string
	Computed Expr
	Optional bool
}

// Call represents a function call.
type Call struct {
	Located
	Callee    Expr
	Arguments []Expr
	Optional  bool
}

// New represents a constructor invocation, such as new Error("x").
type New struct {
	Located
	Callee    Expr
	Arguments []Expr
}

// Unary represents a prefix operator, such as !x, -x or typeof x.
type Unary struct {
	Located
	Operator string
	Operand  Expr
}

// Update represents an increment or decrement, such as i++ or --i.
type Update struct {
	Located
	Operator string
	Prefix   bool
	Target   Expr
}

// Binary represents a binary operator, including the short circuiting logical
// operators.
type Binary struct {
	Located
	Operator string
	Left     Expr
	Right    Expr
}

// Conditional represents "test ? then : else".
type Conditional struct {
	Located
	Test Expr
	Then Expr
	Else Expr
}

// Assign represents an assignment, such as "x = 1" or "x += 1".
type Assign struct {
	Located
	Operator string
	Target   Expr
	Value    Expr
}

// FunctionLit represents a function expression, arrow function or method.
// Only its name and kind are recorded, since functions are never evaluated at
// compile time.
type FunctionLit struct {
	Located
	Name  string
	Arrow bool
	Async bool
}

func (*StringLit) expr()   {}
func (*NumberLit) expr()   {}
func (*BoolLit) expr()     {}
func (*NullLit) expr()     {}
func (*RegexLit) expr()    {}
func (*TemplateLit) expr() {}
func (*Identifier) expr()  {}
func (*Spread) expr()      {}
func (*ArrayLit) expr()    {}
func (*ObjectLit) expr()   {}
func (*Member) expr()      {}
func (*Call) expr()        {}
func (*New) expr()         {}
func (*Unary) expr()       {}
func (*Update) expr()      {}
func (*Binary) expr()      {}
func (*Conditional) expr() {}
func (*Assign) expr()      {}
func (*FunctionLit) expr() {}
