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
	"strings"

	"github.com/consensys/go-macro/pkg/util/source"
	"github.com/consensys/go-macro/pkg/util/source/lex"
)

// Words which cannot be used as identifiers in expressions.
var reservedWords = []string{"break", "case", "catch", "class", "const", "continue", "debugger", "default",
	"delete", "do", "else", "enum", "export", "extends", "finally", "for", "function", "if", "import",
	"in", "instanceof", "let", "new", "return", "super", "switch", "throw", "try", "typeof", "var",
	"void", "while", "with", "yield"}

// Parser is a recursive descent parser over a sequence of tokens.
type Parser struct {
	srcfile *source.File
	tokens  []lex.Token
	// Position within the tokens
	index int
}

// NewParser constructs a new parser for a given source file and its tokens.
// The tokens are expected to be terminated by END_OF.
func NewParser(srcfile *source.File, tokens []lex.Token) *Parser {
	return &Parser{srcfile, tokens, 0}
}

// Consume a statement terminator, which may be implied by a newline, a
// closing brace or the end of the file.
func (p *Parser) consumeSemicolon() []source.SyntaxError {
	if p.match(SEMICOLON) || p.follows(RCURLY, END_OF) || p.newlineBefore(p.index) {
		return nil
	}
	//
	return p.syntaxErrors(p.lookahead(), "expected ';'")
}

// ============================================================================
// Helpers
// ============================================================================

func (p *Parser) parseIdentifier() (string, []source.SyntaxError) {
	token, errs := p.expect(IDENTIFIER)
	//
	if len(errs) > 0 {
		return "", p.syntaxErrors(token, "expected identifier")
	}
	//
	name := p.string(token)
	//
	if slices.Contains(reservedWords, name) {
		return "", p.syntaxErrors(token, fmt.Sprintf("unexpected keyword \"%s\"", name))
	}
	//
	return name, nil
}

// Get the text representing the given token as a string.
func (p *Parser) string(token lex.Token) string {
	start, end := token.Span.Start(), token.Span.End()
	return string(p.srcfile.Contents()[start:end])
}

// Lookahead returns the next token.  This must exist because END_OF is always
// appended at the end of the token stream.
func (p *Parser) lookahead() lex.Token {
	return p.peek(0)
}

// Peek returns the token n positions ahead, or the final END_OF token.
func (p *Parser) peek(n int) lex.Token {
	return p.tokens[min(p.index+n, len(p.tokens)-1)]
}

// Expect returns an error if the next token is not what was expected.
func (p *Parser) expect(kind uint) (lex.Token, []source.SyntaxError) {
	lookahead := p.lookahead()
	//
	if lookahead.Kind != kind {
		errs := p.syntaxErrors(lookahead, "unexpected token")
		return lookahead, errs
	}
	//
	p.index++
	//
	return lookahead, nil
}

// Match attempts to match the given token.
func (p *Parser) match(kind uint) bool {
	if p.lookahead().Kind == kind {
		p.index++
		return true
	}
	//
	return false
}

// Follows checks whether one of the given token kinds is next.
func (p *Parser) follows(options ...uint) bool {
	return slices.Contains(options, p.lookahead().Kind)
}

// Keyword checks whether the next token is an identifier with the given text.
func (p *Parser) keyword(word string) bool {
	return p.keywordAt(0, word)
}

func (p *Parser) keywordAt(n int, word string) bool {
	token := p.peek(n)
	return token.Kind == IDENTIFIER && p.string(token) == word
}

func (p *Parser) matchKeyword(word string) bool {
	if p.keyword(word) {
		p.index++
		return true
	}
	//
	return false
}

func (p *Parser) expectKeyword(word string) []source.SyntaxError {
	if !p.matchKeyword(word) {
		return p.syntaxErrors(p.lookahead(), fmt.Sprintf("expected \"%s\"", word))
	}
	//
	return nil
}

// Check whether a line break occurs between the given token and its
// predecessor.
func (p *Parser) newlineBefore(index int) bool {
	if index <= 0 || index >= len(p.tokens) {
		return false
	}
	//
	var (
		start = p.tokens[index-1].Span.End()
		end   = p.tokens[index].Span.Start()
	)
	//
	return strings.ContainsAny(string(p.srcfile.Contents()[start:end]), "\n\r\u2028\u2029")
}

// Check whether two tokens are immediately adjacent (e.g. ">" ">").
func (p *Parser) adjacent(index int) bool {
	return index > 0 && p.tokens[index-1].Span.End() == p.tokens[index].Span.Start()
}

// Skip over a balanced region starting at the open token (which must be
// next), returning false if the region was not closed.
func (p *Parser) skipBalanced(open, close uint) bool {
	depth := 0
	//
	for {
		switch p.lookahead().Kind {
		case END_OF:
			return false
		case open:
			depth++
		case close:
			depth--
		}
		//
		p.index++
		//
		if depth == 0 {
			return true
		}
	}
}

func (p *Parser) spanOf(firstToken, lastToken int) source.Span {
	lastToken = max(firstToken, lastToken)
	//
	start := p.tokens[firstToken].Span.Start()
	end := p.tokens[lastToken].Span.End()
	//
	return source.NewSpan(start, end)
}

func (p *Parser) syntaxErrors(token lex.Token, msg string) []source.SyntaxError {
	return []source.SyntaxError{*p.srcfile.SyntaxError(token.Span, msg)}
}
