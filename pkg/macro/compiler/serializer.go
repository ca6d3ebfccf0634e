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
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/consensys/go-macro/pkg/macro/compiler/parser"
	"github.com/consensys/go-macro/pkg/macro/vm"
	"github.com/consensys/go-macro/pkg/util/source"
)

// Property names which can be written without quotes.
var identifierKey = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Serialize converts a value into the text of a literal expression which
// reproduces it exactly.  Only primitive values, and plain arrays and objects
// composed of them, can be serialized.  The resulting text can be substituted
// for any expression (e.g. negative numbers and objects are parenthesised).
func Serialize(value vm.Value) (string, error) {
	var serializer = serializer{}
	//
	text, err := serializer.serialize(value, "result")
	if err != nil {
		return "", err
	}
	//
	switch value.(type) {
	case *vm.Object:
		return "(" + text + ")", nil
	}
	//
	return text, nil
}

type serializer struct {
	// Aggregates currently being serialized (for cycle detection)
	stack []vm.Value
}

func (p *serializer) serialize(value vm.Value, path string) (string, error) {
	switch v := value.(type) {
	case vm.UndefinedType:
		return "undefined", nil
	case vm.NullType:
		return "null", nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return serializeNumber(v), nil
	case string:
		return vm.Quote(v), nil
	case *vm.Array:
		return p.serializeArray(v, path)
	case *vm.Object:
		if !v.IsPlain() {
			return "", fmt.Errorf("%s is an instance of %s, which cannot be serialized", path, v.Class)
		}
		//
		return p.serializeObject(v, path)
	case *vm.Function:
		return "", fmt.Errorf("%s is a function, which cannot be serialized", path)
	case *vm.Promise:
		return "", fmt.Errorf("%s is a promise, which cannot be serialized", path)
	case *vm.Opaque:
		return "", fmt.Errorf("%s is a %s, which cannot be serialized", path, v.Type)
	}
	//
	return "", fmt.Errorf("%s is %s, which cannot be serialized", path, vm.Describe(value))
}

func serializeNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "(-Infinity)"
	case n == 0 && math.Signbit(n):
		return "(-0)"
	case n < 0:
		return "(" + parser.FormatNumber(n) + ")"
	}
	//
	return parser.FormatNumber(n)
}

func (p *serializer) enter(value vm.Value, path string) error {
	for _, v := range p.stack {
		if v == value {
			return fmt.Errorf("%s is cyclic, hence cannot be serialized", path)
		}
	}
	//
	p.stack = append(p.stack, value)
	//
	return nil
}

func (p *serializer) leave() {
	p.stack = p.stack[:len(p.stack)-1]
}

func (p *serializer) serializeArray(arr *vm.Array, path string) (string, error) {
	if err := p.enter(arr, path); err != nil {
		return "", err
	}
	//
	defer p.leave()
	//
	elements := make([]string, len(arr.Elements))
	//
	for i, e := range arr.Elements {
		text, err := p.serialize(e, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return "", err
		}
		//
		elements[i] = text
	}
	//
	return "[" + strings.Join(elements, ", ") + "]", nil
}

func (p *serializer) serializeObject(obj *vm.Object, path string) (string, error) {
	if err := p.enter(obj, path); err != nil {
		return "", err
	}
	//
	defer p.leave()
	//
	var properties = make([]string, len(obj.Keys()))
	//
	for i, key := range obj.Keys() {
		var (
			value, _ = obj.Get(key)
			name     = key
			subpath  = path + "." + key
		)
		//
		if key == "__proto__" {
			return "", fmt.Errorf("%s cannot be represented by an object literal", subpath)
		} else if !identifierKey.MatchString(key) {
			name = vm.Quote(key)
			subpath = fmt.Sprintf("%s[%s]", path, name)
		}
		//
		text, err := p.serialize(value, subpath)
		if err != nil {
			return "", err
		}
		//
		properties[i] = name + ": " + text
	}
	//
	if len(properties) == 0 {
		return "{}", nil
	}
	//
	return "{ " + strings.Join(properties, ", ") + " }", nil
}

// Deserialize parses the text of a literal expression, and returns the value
// it denotes.
func Deserialize(text string) (vm.Value, error) {
	var srcfile = source.NewSourceFile("<literal>", []byte(text))
	//
	tokens, errs := parser.Lex(srcfile)
	if len(errs) > 0 {
		return nil, &errs[0]
	}
	//
	expr, index, errs := parser.ParseExpression(srcfile, tokens, 0)
	if len(errs) > 0 {
		return nil, &errs[0]
	} else if index != len(tokens)-1 {
		return nil, errors.New("unexpected text after literal")
	}
	//
	return vm.LiteralValue(expr)
}

// Serialize a value, and confirm that the literal produced faithfully
// reproduces it.
func serializeExactly(value vm.Value) (string, error) {
	text, err := Serialize(value)
	if err != nil {
		return "", err
	}
	//
	decoded, err := Deserialize(text)
	if err != nil {
		return "", fmt.Errorf("serialized literal %s is malformed: %w", text, err)
	} else if !vm.Equal(value, decoded) {
		return "", fmt.Errorf("serialized literal %s does not reproduce %s", text, vm.Describe(value))
	}
	//
	return text, nil
}
