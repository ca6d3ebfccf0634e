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
package lex

import (
	"slices"

	"github.com/consensys/go-macro/pkg/util/source"
)

// Token associates a piece of information with a given range of characters in
// the string being scanned.
type Token struct {
	Kind uint
	Span source.Span
}

// Guard determines whether a rule may fire, given the last significant token
// produced so far (if any) and the input being lexed.
type Guard[T any] func(last *Token, items []T) bool

// LexRule is simply a rule for associating groups of characters with a given
// tag.  A rule may additionally switch the lexer into another mode (push), or
// return to the enclosing mode (pop).
//
// nolint
type LexRule[T any] struct {
	scanner Scanner[T]
	tag     uint
	guard   Guard[T]
	push    int
	pop     bool
}

// Rule constructs a new lexing rule which maps matching characters to a given
// tag.
func Rule[T any](scanner Scanner[T], tag uint) LexRule[T] {
	return LexRule[T]{scanner, tag, nil, -1, false}
}

// Push returns a copy of this rule which enters a given mode after matching.
func (r LexRule[T]) Push(mode uint) LexRule[T] {
	r.push = int(mode)
	return r
}

// Pop returns a copy of this rule which returns to the enclosing mode after
// matching.  Popping the outermost mode has no effect.
func (r LexRule[T]) Pop() LexRule[T] {
	r.pop = true
	return r
}

// When returns a copy of this rule which only fires when the given guard holds.
func (r LexRule[T]) When(guard Guard[T]) LexRule[T] {
	r.guard = guard
	return r
}

// Lexer provides a top-level construct for tokenising a given input string.
// Rules are organised into modes, where the lexer maintains a stack of modes
// and only rules for the topmost mode are considered.  This allows, for
// example, the body of a template literal to be lexed differently from the
// expressions embedded within it.
type Lexer[T any] struct {
	items  []T
	index  int
	modes  [][]LexRule[T]
	stack  []uint
	trivia []uint
	last   *Token
	buffer []Token
}

// NewLexer constructs a new lexer with a given set of lexing rules.
func NewLexer[T any](input []T, rules ...LexRule[T]) *Lexer[T] {
	return NewModalLexer(input, rules)
}

// NewModalLexer constructs a new lexer over a number of modes.  The lexer
// starts in mode 0.
func NewModalLexer[T any](input []T, modes ...[]LexRule[T]) *Lexer[T] {
	return &Lexer[T]{
		items: input,
		modes: modes,
		stack: []uint{0},
	}
}

// Ignore identifies token kinds which are not considered significant when
// evaluating rule guards (e.g. whitespace and comments).
func (p *Lexer[T]) Ignore(kinds ...uint) *Lexer[T] {
	p.trivia = append(p.trivia, kinds...)
	return p
}

// Index returns the current index within the items array.
func (p *Lexer[T]) Index() uint {
	return uint(p.index)
}

// Mode returns the current lexing mode.
func (p *Lexer[T]) Mode() uint {
	return p.stack[len(p.stack)-1]
}

// Remaining determines how many characters from the original sequence were
// left.
func (p *Lexer[T]) Remaining() uint {
	return uint(max(0, len(p.items)-p.index))
}

// HasNext checks whether or not there are any items remaining to visit.
func (p *Lexer[T]) HasNext() bool {
	p.scan()
	return len(p.buffer) > 0
}

// Next returns the next item and advances the lexer.
func (p *Lexer[T]) Next() Token {
	next := p.buffer[0]
	p.buffer = p.buffer[1:]
	//
	if p.index == len(p.items) {
		// EOF condition
		p.index++
	} else {
		p.index = next.Span.End()
	}
	//
	if !slices.Contains(p.trivia, next.Kind) {
		p.last = &next
	}
	//
	return next
}

// Collect is a convenience function which parses all remaining tokens in one
// go, producing an array of tokens.
func (p *Lexer[T]) Collect() []Token {
	var tokens []Token
	// Keep scanning
	for p.HasNext() {
		tokens = append(tokens, p.Next())
	}
	//
	return tokens
}

// internal scan functions.
func (p *Lexer[T]) scan() {
	if len(p.buffer) == 0 && p.index <= len(p.items) {
		var (
			rules = p.modes[p.Mode()]
			items = p.items[min(p.index, len(p.items)):]
		)
		// Look for item
		for _, r := range rules {
			if r.guard != nil && !r.guard(p.last, p.items) {
				continue
			} else if n := r.scanner(items); n > 0 {
				end := min(len(p.items), p.index+int(n))
				span := source.NewSpan(min(p.index, len(p.items)), end)
				// Insert into buffer
				p.buffer = append(p.buffer, Token{r.tag, span})
				// Apply mode change (if any)
				p.apply(r)
				// Done
				return
			}
		}
	}
}

func (p *Lexer[T]) apply(rule LexRule[T]) {
	if rule.pop && len(p.stack) > 1 {
		p.stack = p.stack[:len(p.stack)-1]
	}
	//
	if rule.push >= 0 {
		p.stack = append(p.stack, uint(rule.push))
	}
}
