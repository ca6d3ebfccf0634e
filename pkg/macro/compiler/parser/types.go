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
	"github.com/consensys/go-macro/pkg/util/source"
)

// Skip a type annotation, such as appears after ":" in declarations or after
// "as" in expressions.  Types have no runtime meaning and are simply
// discarded.
func (p *Parser) skipType() []source.SyntaxError {
	// Leading union or intersection operator
	if p.follows(OR, AND) {
		p.index++
	}
	//
	for {
		if errs := p.skipTypeOperand(); len(errs) > 0 {
			return errs
		}
		// Conditional types
		if p.keyword("extends") {
			p.index++
			//
			if errs := p.skipType(); len(errs) > 0 {
				return errs
			} else if _, errs := p.expect(QUESTION); len(errs) > 0 {
				return errs
			} else if errs := p.skipType(); len(errs) > 0 {
				return errs
			} else if _, errs := p.expect(COLON); len(errs) > 0 {
				return errs
			}
			//
			return p.skipType()
		}
		//
		if !p.match(OR) && !p.match(AND) {
			return nil
		}
	}
}

func (p *Parser) skipTypeOperand() []source.SyntaxError {
	lookahead := p.lookahead()
	//
	switch {
	case p.keyword("keyof"), p.keyword("typeof"), p.keyword("readonly"), p.keyword("unique"),
		p.keyword("infer"), p.keyword("asserts"):
		p.index++
		return p.skipTypeOperand()
	case p.keyword("new"):
		p.index++
		return p.skipFunctionType()
	case lookahead.Kind == LBRACE, lookahead.Kind == LESS_THAN:
		return p.skipFunctionType()
	case lookahead.Kind == LCURLY:
		if !p.skipBalanced(LCURLY, RCURLY) {
			return p.syntaxErrors(lookahead, "unterminated object type")
		}
	case lookahead.Kind == LSQUARE:
		if !p.skipBalanced(LSQUARE, RSQUARE) {
			return p.syntaxErrors(lookahead, "unterminated tuple type")
		}
	case lookahead.Kind == STRING, lookahead.Kind == NUMBER:
		p.index++
	case lookahead.Kind == SUB && p.peek(1).Kind == NUMBER:
		p.index += 2
	case lookahead.Kind == BACKTICK:
		if errs := p.skipTemplate(); len(errs) > 0 {
			return errs
		}
	case lookahead.Kind == IDENTIFIER:
		p.index++
		// Qualified names
		for p.follows(DOT) && p.peek(1).Kind == IDENTIFIER {
			p.index += 2
		}
		// Type arguments
		if p.follows(LESS_THAN) && !p.skipBalanced(LESS_THAN, GREATER_THAN) {
			return p.syntaxErrors(lookahead, "unterminated type arguments")
		}
		// Type predicates (e.g. "x is string")
		if p.keyword("is") {
			p.index++
			return p.skipType()
		}
	default:
		return p.syntaxErrors(lookahead, "expected type")
	}
	// Array and indexed access types
	for p.follows(LSQUARE) && !p.newlineBefore(p.index) {
		if !p.skipBalanced(LSQUARE, RSQUARE) {
			return p.syntaxErrors(lookahead, "unterminated array type")
		}
	}
	//
	return nil
}

// Skip either a parenthesised type or a function type "(...) => T", including
// any leading type parameters.
func (p *Parser) skipFunctionType() []source.SyntaxError {
	lookahead := p.lookahead()
	//
	if p.follows(LESS_THAN) && !p.skipBalanced(LESS_THAN, GREATER_THAN) {
		return p.syntaxErrors(lookahead, "unterminated type parameters")
	} else if !p.follows(LBRACE) || !p.skipBalanced(LBRACE, RBRACE) {
		return p.syntaxErrors(lookahead, "expected type")
	} else if p.match(RIGHTARROW) {
		return p.skipType()
	}
	//
	return nil
}

func (p *Parser) skipTemplate() []source.SyntaxError {
	var (
		start = p.lookahead()
		depth = 0
	)
	// Skip opening backtick
	p.index++
	//
	for {
		switch p.lookahead().Kind {
		case END_OF:
			return p.syntaxErrors(start, "unterminated template")
		case DOLLAR_LCURLY, LCURLY:
			depth++
		case RCURLY:
			depth--
		case BACKTICK:
			if depth == 0 {
				p.index++
				return nil
			}
			// Nested template
			if errs := p.skipTemplate(); len(errs) > 0 {
				return errs
			}
			//
			continue
		}
		//
		p.index++
	}
}
