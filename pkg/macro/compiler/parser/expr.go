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
	"fmt"
	"slices"

	"github.com/consensys/go-macro/pkg/macro/compiler/ast"
	"github.com/consensys/go-macro/pkg/util/source"
	"github.com/consensys/go-macro/pkg/util/source/lex"
)

// Binary operator precedence (higher binds tighter).
var precedence = map[uint]int{
	QUESTION_QUESTION:    1,
	OR_OR:                2,
	AND_AND:              3,
	OR:                   4,
	XOR:                  5,
	AND:                  6,
	EQUALS_EQUALS:        7,
	NOT_EQUALS:           7,
	EQUALS_EQUALS_EQUALS: 7,
	NOT_EQUALS_EQUALS:    7,
	LESS_THAN:            8,
	LESS_THAN_EQUALS:     8,
	GREATER_THAN:         8,
	GREATER_THAN_EQUALS:  8,
	SHIFT_LEFT:           9,
	ADD:                  10,
	SUB:                  10,
	MUL:                  11,
	DIV:                  11,
	REM:                  11,
	EXP:                  12,
}

// Precedence of keyword operators.
var keywordPrecedence = map[string]int{
	"instanceof": 8,
	"in":         8,
}

const shiftPrecedence = 9

// Assignment operators, mapped to their underlying binary operator (if any).
var assignments = map[uint]string{
	EQUALS:                   "",
	ADD_EQUALS:               "+",
	SUB_EQUALS:               "-",
	MUL_EQUALS:               "*",
	DIV_EQUALS:               "/",
	REM_EQUALS:               "%",
	EXP_EQUALS:               "**",
	AND_AND_EQUALS:           "&&",
	OR_OR_EQUALS:             "||",
	QUESTION_QUESTION_EQUALS: "??",
	AND_EQUALS:               "&",
	OR_EQUALS:                "|",
	XOR_EQUALS:               "^",
}

// ParseExpression parses a single expression from the given tokens, starting
// at a given index.  This returns the expression and the index of the first
// token after it.
func ParseExpression(srcfile *source.File, tokens []lex.Token, index int) (ast.Expr, int, []source.SyntaxError) {
	p := NewParser(srcfile, tokens)
	p.index = index
	expr, errs := p.parseAssignment()
	//
	return expr, p.index, errs
}

func (p *Parser) parseExpression() (ast.Expr, []source.SyntaxError) {
	expr, errs := p.parseAssignment()
	//
	if len(errs) == 0 && p.follows(COMMA) {
		return nil, p.syntaxErrors(p.lookahead(), "comma expressions are not supported")
	}
	//
	return expr, errs
}

func (p *Parser) parseAssignment() (ast.Expr, []source.SyntaxError) {
	var (
		start = p.index
		lhs   ast.Expr
		errs  []source.SyntaxError
	)
	//
	if p.isArrowFunction() {
		return p.parseArrowFunction()
	} else if lhs, errs = p.parseConditional(); len(errs) > 0 {
		return nil, errs
	}
	//
	operator, ok := assignments[p.lookahead().Kind]
	//
	if !ok {
		return lhs, nil
	}
	//
	switch lhs.(type) {
	case *ast.Identifier, *ast.Member:
	default:
		return nil, p.syntaxErrors(p.lookahead(), "invalid assignment target")
	}
	//
	p.index++
	//
	rhs, errs := p.parseAssignment()
	if len(errs) > 0 {
		return nil, errs
	}
	//
	return &ast.Assign{Located: ast.At(p.spanOf(start, p.index-1)), Operator: operator, Target: lhs, Value: rhs}, nil
}

func (p *Parser) parseConditional() (ast.Expr, []source.SyntaxError) {
	var start = p.index
	//
	test, errs := p.parseBinary(1)
	if len(errs) > 0 || !p.match(QUESTION) {
		return test, errs
	}
	//
	then, errs := p.parseAssignment()
	if len(errs) > 0 {
		return nil, errs
	} else if _, errs = p.expect(COLON); len(errs) > 0 {
		return nil, errs
	}
	//
	otherwise, errs := p.parseAssignment()
	if len(errs) > 0 {
		return nil, errs
	}
	//
	return &ast.Conditional{Located: ast.At(p.spanOf(start, p.index-1)), Test: test, Then: then, Else: otherwise}, nil
}

// Parse a binary expression using precedence climbing, where only operators
// at or above the given precedence are consumed.
func (p *Parser) parseBinary(minimum int) (ast.Expr, []source.SyntaxError) {
	var start = p.index
	//
	lhs, errs := p.parseUnary()
	if len(errs) > 0 {
		return nil, errs
	}
	//
	for {
		// Type assertions bind tighter than any binary operator
		if (p.keyword("as") || p.keyword("satisfies")) && !p.newlineBefore(p.index) {
			p.index++
			//
			if p.matchKeyword("const") {
				continue
			} else if errs = p.skipType(); len(errs) > 0 {
				return nil, errs
			}
			//
			continue
		}
		//
		operator, prec, width := p.binaryOperator()
		//
		if prec < minimum {
			return lhs, nil
		}
		//
		p.index += width
		// Exponentiation is right associative
		next := prec + 1
		if operator == "**" {
			next = prec
		}
		//
		rhs, errs := p.parseBinary(next)
		if len(errs) > 0 {
			return nil, errs
		}
		//
		lhs = &ast.Binary{Located: ast.At(p.spanOf(start, p.index-1)), Operator: operator, Left: lhs, Right: rhs}
	}
}

// Determine the binary operator (if any) which is next, along with its
// precedence and the number of tokens it occupies.  A precedence of zero
// indicates no binary operator.
func (p *Parser) binaryOperator() (string, int, int) {
	var lookahead = p.lookahead()
	//
	switch {
	case lookahead.Kind == GREATER_THAN && p.peek(1).Kind == GREATER_THAN && p.adjacent(p.index+1):
		// Shift right operators are split by the lexer
		if p.peek(2).Kind == GREATER_THAN && p.adjacent(p.index+2) {
			return ">>>", shiftPrecedence, 3
		}
		//
		return ">>", shiftPrecedence, 2
	case lookahead.Kind == IDENTIFIER:
		word := p.string(lookahead)
		return word, keywordPrecedence[word], 1
	}
	//
	if prec, ok := precedence[lookahead.Kind]; ok {
		return p.string(lookahead), prec, 1
	}
	//
	return "", 0, 0
}

func (p *Parser) parseUnary() (ast.Expr, []source.SyntaxError) {
	var (
		start     = p.index
		lookahead = p.lookahead()
		operator  string
	)
	//
	switch {
	case p.follows(NOT, SUB, ADD, TILDE):
		operator = p.string(lookahead)
	case p.keyword("typeof"), p.keyword("void"), p.keyword("delete"), p.keyword("await"):
		operator = p.string(lookahead)
	case p.follows(ADD_ADD, SUB_SUB):
		p.index++
		//
		target, errs := p.parseUnary()
		if len(errs) > 0 {
			return nil, errs
		}
		//
		return &ast.Update{Located: ast.At(p.spanOf(start, p.index-1)), Operator: p.string(lookahead),
			Prefix: true, Target: target}, nil
	default:
		return p.parsePostfix()
	}
	//
	p.index++
	//
	operand, errs := p.parseUnary()
	if len(errs) > 0 {
		return nil, errs
	}
	//
	return &ast.Unary{Located: ast.At(p.spanOf(start, p.index-1)), Operator: operator, Operand: operand}, nil
}

func (p *Parser) parsePostfix() (ast.Expr, []source.SyntaxError) {
	var start = p.index
	//
	expr, errs := p.parseCallOrMember(true)
	if len(errs) > 0 {
		return nil, errs
	}
	//
	if p.follows(ADD_ADD, SUB_SUB) && !p.newlineBefore(p.index) {
		operator := p.string(p.lookahead())
		p.index++
		//
		return &ast.Update{Located: ast.At(p.spanOf(start, p.index-1)), Operator: operator, Target: expr}, nil
	}
	//
	return expr, nil
}

// Parse a primary expression followed by any number of member accesses and
// (optionally) calls.
func (p *Parser) parseCallOrMember(calls bool) (ast.Expr, []source.SyntaxError) {
	var (
		start = p.index
		expr  ast.Expr
		errs  []source.SyntaxError
	)
	//
	if p.keyword("new") {
		expr, errs = p.parseNew()
	} else {
		expr, errs = p.parsePrimary()
	}
	//
	for len(errs) == 0 {
		lookahead := p.lookahead()
		//
		switch {
		case lookahead.Kind == DOT:
			p.index++
			//
			name, errs := p.expect(IDENTIFIER)
			if len(errs) > 0 {
				return nil, p.syntaxErrors(name, "expected property name")
			}
			//
			expr = &ast.Member{Located: ast.At(p.spanOf(start, p.index-1)), Object: expr, Property: p.string(name)}
		case lookahead.Kind == QUESTION_DOT:
			p.index++
			//
			if expr, errs = p.parseOptionalLink(start, expr, calls); len(errs) > 0 {
				return nil, errs
			}
		case lookahead.Kind == LSQUARE:
			p.index++
			//
			index, errs := p.parseExpression()
			if len(errs) > 0 {
				return nil, errs
			} else if _, errs = p.expect(RSQUARE); len(errs) > 0 {
				return nil, errs
			}
			//
			expr = &ast.Member{Located: ast.At(p.spanOf(start, p.index-1)), Object: expr, Computed: index}
		case lookahead.Kind == NOT && !p.newlineBefore(p.index):
			// Non-null assertion
			p.index++
		case calls && lookahead.Kind == LBRACE:
			args, errs := p.parseArguments()
			if len(errs) > 0 {
				return nil, errs
			}
			//
			expr = &ast.Call{Located: ast.At(p.spanOf(start, p.index-1)), Callee: expr, Arguments: args}
		case calls && lookahead.Kind == LESS_THAN && p.isTypeArguments():
			p.skipBalanced(LESS_THAN, GREATER_THAN)
		case lookahead.Kind == BACKTICK:
			return nil, p.syntaxErrors(lookahead, "tagged templates are not supported")
		default:
			return expr, nil
		}
	}
	//
	return nil, errs
}

// Parse the remainder of an optional chain link "?.x", "?.[x]" or "?.(...)".
func (p *Parser) parseOptionalLink(start int, object ast.Expr, calls bool) (ast.Expr, []source.SyntaxError) {
	switch {
	case p.follows(LBRACE) && calls:
		args, errs := p.parseArguments()
		if len(errs) > 0 {
			return nil, errs
		}
		//
		return &ast.Call{Located: ast.At(p.spanOf(start, p.index-1)), Callee: object, Arguments: args,
			Optional: true}, nil
	case p.match(LSQUARE):
		index, errs := p.parseExpression()
		if len(errs) > 0 {
			return nil, errs
		} else if _, errs = p.expect(RSQUARE); len(errs) > 0 {
			return nil, errs
		}
		//
		return &ast.Member{Located: ast.At(p.spanOf(start, p.index-1)), Object: object, Computed: index,
			Optional: true}, nil
	default:
		name, errs := p.expect(IDENTIFIER)
		if len(errs) > 0 {
			return nil, p.syntaxErrors(name, "expected property name")
		}
		//
		return &ast.Member{Located: ast.At(p.spanOf(start, p.index-1)), Object: object, Property: p.string(name),
			Optional: true}, nil
	}
}

// Check whether a "<" starts type arguments of a call, as in "f<T>(x)".
func (p *Parser) isTypeArguments() bool {
	var index = p.index
	// Speculatively skip
	ok := p.skipBalanced(LESS_THAN, GREATER_THAN) && p.follows(LBRACE)
	p.index = index
	//
	return ok
}

func (p *Parser) parseNew() (ast.Expr, []source.SyntaxError) {
	var (
		start = p.index
		args  []ast.Expr
	)
	// Skip "new"
	p.index++
	// Callee excludes calls, since the arguments belong to "new".
	callee, errs := p.parseCallOrMember(false)
	if len(errs) > 0 {
		return nil, errs
	}
	//
	if p.follows(LESS_THAN) && p.isTypeArguments() {
		p.skipBalanced(LESS_THAN, GREATER_THAN)
	}
	//
	if p.follows(LBRACE) {
		if args, errs = p.parseArguments(); len(errs) > 0 {
			return nil, errs
		}
	}
	//
	return &ast.New{Located: ast.At(p.spanOf(start, p.index-1)), Callee: callee, Arguments: args}, nil
}

// Parse a parenthesised argument list.
func (p *Parser) parseArguments() ([]ast.Expr, []source.SyntaxError) {
	var args []ast.Expr
	//
	if _, errs := p.expect(LBRACE); len(errs) > 0 {
		return nil, errs
	}
	//
	for !p.follows(RBRACE) {
		arg, errs := p.parseElement()
		if len(errs) > 0 {
			return nil, errs
		}
		//
		args = append(args, arg)
		//
		if !p.match(COMMA) {
			break
		}
	}
	//
	if _, errs := p.expect(RBRACE); len(errs) > 0 {
		return nil, errs
	}
	//
	return args, nil
}

// Parse an argument or array element, which may be a spread.
func (p *Parser) parseElement() (ast.Expr, []source.SyntaxError) {
	var start = p.index
	//
	if p.match(ELLIPSIS) {
		arg, errs := p.parseAssignment()
		if len(errs) > 0 {
			return nil, errs
		}
		//
		return &ast.Spread{Located: ast.At(p.spanOf(start, p.index-1)), Argument: arg}, nil
	}
	//
	return p.parseAssignment()
}

func (p *Parser) parsePrimary() (ast.Expr, []source.SyntaxError) {
	var (
		lookahead = p.lookahead()
		span      = lookahead.Span
	)
	//
	switch lookahead.Kind {
	case NUMBER:
		p.index++
		//
		value, err := ParseNumber(p.string(lookahead))
		if err != nil {
			return nil, p.syntaxErrors(lookahead, err.Error())
		}
		//
		return &ast.NumberLit{Located: ast.At(span), Value: value}, nil
	case STRING:
		p.index++
		//
		value, err := DecodeString(p.string(lookahead))
		if err != nil {
			return nil, p.syntaxErrors(lookahead, err.Error())
		}
		//
		return &ast.StringLit{Located: ast.At(span), Value: value}, nil
	case REGEX:
		p.index++
		//
		pattern, flags := SplitRegex(p.string(lookahead))
		//
		return &ast.RegexLit{Located: ast.At(span), Pattern: pattern, Flags: flags}, nil
	case BACKTICK:
		return p.parseTemplate()
	case LSQUARE:
		return p.parseArray()
	case LCURLY:
		return p.parseObject()
	case LBRACE:
		p.index++
		//
		expr, errs := p.parseExpression()
		if len(errs) > 0 {
			return nil, errs
		} else if _, errs = p.expect(RBRACE); len(errs) > 0 {
			return nil, errs
		}
		//
		return expr, nil
	case IDENTIFIER:
		return p.parseIdentifierExpr()
	}
	//
	return nil, p.syntaxErrors(lookahead, "expected expression")
}

func (p *Parser) parseIdentifierExpr() (ast.Expr, []source.SyntaxError) {
	var (
		lookahead = p.lookahead()
		span      = lookahead.Span
		word      = p.string(lookahead)
	)
	//
	switch word {
	case "true", "false":
		p.index++
		return &ast.BoolLit{Located: ast.At(span), Value: word == "true"}, nil
	case "null":
		p.index++
		return &ast.NullLit{Located: ast.At(span)}, nil
	case "this":
		p.index++
		return &ast.Identifier{Located: ast.At(span), Name: word}, nil
	case "function":
		return p.parseFunctionExpr()
	case "async":
		if p.keywordAt(1, "function") && !p.newlineBefore(p.index+1) {
			return p.parseFunctionExpr()
		}
	case "class", "super", "import", "yield":
		return nil, p.syntaxErrors(lookahead, fmt.Sprintf("unsupported expression \"%s\"", word))
	}
	//
	name, errs := p.parseIdentifier()
	if len(errs) > 0 {
		return nil, errs
	}
	//
	return &ast.Identifier{Located: ast.At(span), Name: name}, nil
}

// Function literals are opaque, since their parameters and bodies play no part
// in compile-time evaluation.
func (p *Parser) parseFunctionExpr() (ast.Expr, []source.SyntaxError) {
	var (
		start = p.index
		fn    = &ast.FunctionLit{}
		errs  []source.SyntaxError
	)
	//
	fn.Async = p.matchKeyword("async")
	//
	if errs = p.expectKeyword("function"); len(errs) > 0 {
		return nil, errs
	} else if p.follows(MUL) {
		return nil, p.syntaxErrors(p.lookahead(), "generator functions are not supported")
	} else if p.follows(IDENTIFIER) {
		if fn.Name, errs = p.parseIdentifier(); len(errs) > 0 {
			return nil, errs
		}
	}
	//
	if errs = p.skipFunctionRest(); len(errs) > 0 {
		return nil, errs
	}
	//
	fn.Located = ast.At(p.spanOf(start, p.index-1))
	//
	return fn, nil
}

func (p *Parser) parseTemplate() (ast.Expr, []source.SyntaxError) {
	var (
		start  = p.index
		quasis = []string{""}
		exprs  []ast.Expr
	)
	// Skip opening backtick
	p.index++
	//
	for {
		lookahead := p.lookahead()
		//
		switch lookahead.Kind {
		case TEMPLATE_TEXT:
			p.index++
			//
			text, err := DecodeTemplate(p.string(lookahead))
			if err != nil {
				return nil, p.syntaxErrors(lookahead, err.Error())
			}
			//
			quasis[len(quasis)-1] += text
		case DOLLAR_LCURLY:
			p.index++
			//
			expr, errs := p.parseExpression()
			if len(errs) > 0 {
				return nil, errs
			} else if _, errs = p.expect(RCURLY); len(errs) > 0 {
				return nil, errs
			}
			//
			exprs = append(exprs, expr)
			quasis = append(quasis, "")
		case BACKTICK:
			p.index++
			//
			return &ast.TemplateLit{Located: ast.At(p.spanOf(start, p.index-1)), Quasis: quasis, Exprs: exprs}, nil
		default:
			return nil, p.syntaxErrors(lookahead, "unterminated template literal")
		}
	}
}

func (p *Parser) parseArray() (ast.Expr, []source.SyntaxError) {
	var (
		start    = p.index
		elements []ast.Expr
	)
	// Skip "["
	p.index++
	//
	for !p.follows(RSQUARE) {
		if p.follows(COMMA) {
			return nil, p.syntaxErrors(p.lookahead(), "array holes are not supported")
		}
		//
		element, errs := p.parseElement()
		if len(errs) > 0 {
			return nil, errs
		}
		//
		elements = append(elements, element)
		//
		if !p.match(COMMA) {
			break
		}
	}
	//
	if _, errs := p.expect(RSQUARE); len(errs) > 0 {
		return nil, errs
	}
	//
	return &ast.ArrayLit{Located: ast.At(p.spanOf(start, p.index-1)), Elements: elements}, nil
}

func (p *Parser) parseObject() (ast.Expr, []source.SyntaxError) {
	var (
		start      = p.index
		properties []ast.Property
	)
	// Skip "{"
	p.index++
	//
	for !p.follows(RCURLY) {
		property, errs := p.parseProperty()
		if len(errs) > 0 {
			return nil, errs
		}
		//
		properties = append(properties, property)
		//
		if !p.match(COMMA) {
			break
		}
	}
	//
	if _, errs := p.expect(RCURLY); len(errs) > 0 {
		return nil, errs
	}
	//
	return &ast.ObjectLit{Located: ast.At(p.spanOf(start, p.index-1)), Properties: properties}, nil
}

func (p *Parser) parseProperty() (ast.Property, []source.SyntaxError) {
	var (
		property  ast.Property
		lookahead = p.lookahead()
		errs      []source.SyntaxError
	)
	//
	switch lookahead.Kind {
	case ELLIPSIS:
		p.index++
		property.Spread = true
		property.Value, errs = p.parseAssignment()
		//
		return property, errs
	case LSQUARE:
		p.index++
		//
		if property.Computed, errs = p.parseAssignment(); len(errs) > 0 {
			return property, errs
		} else if _, errs = p.expect(RSQUARE); len(errs) > 0 {
			return property, errs
		}
	case STRING:
		p.index++
		//
		key, err := DecodeString(p.string(lookahead))
		if err != nil {
			return property, p.syntaxErrors(lookahead, err.Error())
		}
		//
		property.Key = key
	case NUMBER:
		p.index++
		//
		key, err := ParseNumber(p.string(lookahead))
		if err != nil {
			return property, p.syntaxErrors(lookahead, err.Error())
		}
		//
		property.Key = FormatNumber(key)
	case IDENTIFIER:
		if (p.keyword("get") || p.keyword("set") || p.keyword("async")) && p.peek(1).Kind != COLON &&
			p.peek(1).Kind != LBRACE && p.peek(1).Kind != COMMA && p.peek(1).Kind != RCURLY {
			return property, p.syntaxErrors(lookahead, "accessor and async methods are not supported")
		}
		//
		p.index++
		property.Key = p.string(lookahead)
		// Shorthand property
		if p.follows(COMMA, RCURLY) {
			if slices.Contains(reservedWords, property.Key) {
				return property, p.syntaxErrors(lookahead, fmt.Sprintf("unexpected keyword \"%s\"", property.Key))
			}
			//
			property.Value = &ast.Identifier{Located: ast.At(lookahead.Span), Name: property.Key}
			//
			return property, nil
		}
	default:
		return property, p.syntaxErrors(lookahead, "expected property")
	}
	// Method shorthand
	if p.follows(LBRACE, LESS_THAN) {
		var start = p.index
		//
		fn, errs := p.parseMethod(property.Key)
		if len(errs) > 0 {
			return property, errs
		}
		//
		fn.Located = ast.At(p.spanOf(start, p.index-1))
		property.Value = fn
		//
		return property, nil
	}
	//
	if _, errs = p.expect(COLON); len(errs) > 0 {
		return property, errs
	}
	//
	property.Value, errs = p.parseAssignment()
	//
	return property, errs
}

// Parse the remainder of a method definition "name(params) { body }".
func (p *Parser) parseMethod(name string) (*ast.FunctionLit, []source.SyntaxError) {
	if errs := p.skipFunctionRest(); len(errs) > 0 {
		return nil, errs
	}
	//
	return &ast.FunctionLit{Name: name}, nil
}

// Skip the signature and body of a function, starting from its type
// parameters or parameters.
func (p *Parser) skipFunctionRest() []source.SyntaxError {
	if errs := p.skipParams(); len(errs) > 0 {
		return errs
	} else if !p.follows(LCURLY) {
		return p.syntaxErrors(p.lookahead(), "expected function body")
	}
	//
	return p.skipBody()
}

// Skip any type parameters, a parenthesised parameter list and any return
// type annotation.
func (p *Parser) skipParams() []source.SyntaxError {
	lookahead := p.lookahead()
	//
	if p.follows(LESS_THAN) && !p.skipBalanced(LESS_THAN, GREATER_THAN) {
		return p.syntaxErrors(lookahead, "unterminated type parameters")
	} else if !p.follows(LBRACE) {
		return p.syntaxErrors(p.lookahead(), "expected parameters")
	} else if !p.skipBalanced(LBRACE, RBRACE) {
		return p.syntaxErrors(lookahead, "unterminated parameters")
	} else if p.match(COLON) {
		return p.skipType()
	}
	//
	return nil
}

// Skip a braced function body.  Template substitutions open with "${" but
// close with an ordinary "}".
func (p *Parser) skipBody() []source.SyntaxError {
	var (
		lookahead = p.lookahead()
		depth     = 0
	)
	//
	for {
		switch p.lookahead().Kind {
		case END_OF:
			return p.syntaxErrors(lookahead, "unterminated function body")
		case LCURLY, DOLLAR_LCURLY:
			depth++
		case RCURLY:
			depth--
		}
		//
		p.index++
		//
		if depth == 0 {
			return nil
		}
	}
}

// ============================================================================
// Arrow functions
// ============================================================================

// Check whether an arrow function starts at the current position.
func (p *Parser) isArrowFunction() bool {
	var (
		index = p.index
		ok    bool
	)
	//
	if p.keyword("async") && !p.newlineBefore(p.index+1) && p.peek(1).Kind != RIGHTARROW {
		p.index++
	}
	//
	switch {
	case p.follows(IDENTIFIER):
		ok = p.peek(1).Kind == RIGHTARROW && !p.newlineBefore(p.index+1)
	case p.follows(LBRACE), p.follows(LESS_THAN):
		if p.follows(LESS_THAN) && !p.skipBalanced(LESS_THAN, GREATER_THAN) {
			break
		} else if !p.follows(LBRACE) || !p.skipBalanced(LBRACE, RBRACE) {
			break
		}
		// Return type annotation
		if p.match(COLON) && len(p.skipType()) > 0 {
			break
		}
		//
		ok = p.follows(RIGHTARROW) && !p.newlineBefore(p.index)
	}
	//
	p.index = index
	//
	return ok
}

func (p *Parser) parseArrowFunction() (ast.Expr, []source.SyntaxError) {
	var (
		start = p.index
		fn    = &ast.FunctionLit{Arrow: true}
		errs  []source.SyntaxError
	)
	//
	if p.keyword("async") && p.peek(1).Kind != RIGHTARROW {
		p.index++
		fn.Async = true
	}
	//
	if p.follows(IDENTIFIER) {
		if _, errs = p.parseIdentifier(); len(errs) > 0 {
			return nil, errs
		}
	} else if errs = p.skipParams(); len(errs) > 0 {
		return nil, errs
	}
	//
	if _, errs = p.expect(RIGHTARROW); len(errs) > 0 {
		return nil, errs
	}
	//
	if p.follows(LCURLY) {
		if errs = p.skipBody(); len(errs) > 0 {
			return nil, errs
		}
	} else if _, errs = p.parseAssignment(); len(errs) > 0 {
		return nil, errs
	}
	//
	fn.Located = ast.At(p.spanOf(start, p.index-1))
	//
	return fn, nil
}
