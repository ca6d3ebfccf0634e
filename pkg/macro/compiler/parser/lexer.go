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
	"slices"
	"unicode"

	"github.com/consensys/go-macro/pkg/util/source"
	"github.com/consensys/go-macro/pkg/util/source/lex"
)

// END_OF signals "end of file"
const END_OF uint = 0

// WHITESPACE signals whitespace (including newlines)
const WHITESPACE uint = 1

// COMMENT signals either "// ..." or "/* ... */"
const COMMENT uint = 2

// UNTERMINATED signals a string or comment which is missing its terminator
const UNTERMINATED uint = 3

// IDENTIFIER signals an identifier or keyword
const IDENTIFIER uint = 4

// NUMBER signals a numeric literal
const NUMBER uint = 5

// STRING signals a single or double quoted string
const STRING uint = 6

// REGEX signals a regular expression literal
const REGEX uint = 7

// BACKTICK signals the start or end of a template literal
const BACKTICK uint = 8

// TEMPLATE_TEXT signals literal text within a template literal
const TEMPLATE_TEXT uint = 9

// DOLLAR_LCURLY signals "${" within a template literal
const DOLLAR_LCURLY uint = 10

// LBRACE signals "("
const LBRACE uint = 20

// RBRACE signals ")"
const RBRACE uint = 21

// LCURLY signals "{"
const LCURLY uint = 22

// RCURLY signals "}"
const RCURLY uint = 23

// LSQUARE signals "["
const LSQUARE uint = 24

// RSQUARE signals "]"
const RSQUARE uint = 25

// SEMICOLON signals ";"
const SEMICOLON uint = 26

// COMMA signals ","
const COMMA uint = 27

// DOT signals "."
const DOT uint = 28

// ELLIPSIS signals "..."
const ELLIPSIS uint = 29

// QUESTION_DOT signals "?."
const QUESTION_DOT uint = 30

// QUESTION signals "?"
const QUESTION uint = 31

// QUESTION_QUESTION signals "??"
const QUESTION_QUESTION uint = 32

// COLON signals ":"
const COLON uint = 33

// RIGHTARROW signals "=>"
const RIGHTARROW uint = 34

// AT signals "@"
const AT uint = 35

// HASH signals "#"
const HASH uint = 36

// EQUALS signals "="
const EQUALS uint = 40

// EQUALS_EQUALS signals "=="
const EQUALS_EQUALS uint = 41

// EQUALS_EQUALS_EQUALS signals "==="
const EQUALS_EQUALS_EQUALS uint = 42

// NOT_EQUALS signals "!="
const NOT_EQUALS uint = 43

// NOT_EQUALS_EQUALS signals "!=="
const NOT_EQUALS_EQUALS uint = 44

// LESS_THAN signals "<"
const LESS_THAN uint = 45

// LESS_THAN_EQUALS signals "<="
const LESS_THAN_EQUALS uint = 46

// GREATER_THAN signals ">".  Note that ">>" is lexed as two tokens so that
// nested type arguments can be skipped.
const GREATER_THAN uint = 47

// GREATER_THAN_EQUALS signals ">="
const GREATER_THAN_EQUALS uint = 48

// SHIFT_LEFT signals "<<"
const SHIFT_LEFT uint = 49

// ADD signals "+"
const ADD uint = 50

// SUB signals "-"
const SUB uint = 51

// MUL signals "*"
const MUL uint = 52

// DIV signals "/"
const DIV uint = 53

// REM signals "%"
const REM uint = 54

// EXP signals "**"
const EXP uint = 55

// ADD_ADD signals "++"
const ADD_ADD uint = 56

// SUB_SUB signals "--"
const SUB_SUB uint = 57

// NOT signals "!"
const NOT uint = 58

// TILDE signals "~"
const TILDE uint = 59

// AND signals "&"
const AND uint = 60

// OR signals "|"
const OR uint = 61

// XOR signals "^"
const XOR uint = 62

// AND_AND signals "&&"
const AND_AND uint = 63

// OR_OR signals "||"
const OR_OR uint = 64

// ADD_EQUALS signals "+="
const ADD_EQUALS uint = 70

// SUB_EQUALS signals "-="
const SUB_EQUALS uint = 71

// MUL_EQUALS signals "*="
const MUL_EQUALS uint = 72

// DIV_EQUALS signals "/="
const DIV_EQUALS uint = 73

// REM_EQUALS signals "%="
const REM_EQUALS uint = 74

// EXP_EQUALS signals "**="
const EXP_EQUALS uint = 75

// AND_AND_EQUALS signals "&&="
const AND_AND_EQUALS uint = 76

// OR_OR_EQUALS signals "||="
const OR_OR_EQUALS uint = 77

// QUESTION_QUESTION_EQUALS signals "??="
const QUESTION_QUESTION_EQUALS uint = 78

// AND_EQUALS signals "&="
const AND_EQUALS uint = 79

// OR_EQUALS signals "|="
const OR_EQUALS uint = 80

// XOR_EQUALS signals "^="
const XOR_EQUALS uint = 81

// Lexing modes
const (
	codeMode     uint = 0
	templateMode uint = 1
)

// Keywords after which a "/" starts a regular expression rather than a
// division.
var regexKeywords = []string{"return", "typeof", "instanceof", "in", "of", "new", "delete", "void",
	"throw", "case", "do", "else", "yield", "await"}

// Token kinds after which a "/" is a division operator.
var divisionContexts = []uint{IDENTIFIER, NUMBER, STRING, REGEX, BACKTICK, RBRACE, RSQUARE, RCURLY,
	ADD_ADD, SUB_SUB}

var whitespace lex.Scanner[rune] = func(items []rune) uint {
	n := uint(0)
	//
	for n < uint(len(items)) && (unicode.IsSpace(items[n]) || items[n] == '\ufeff') {
		n++
	}
	//
	return n
}

var lineComment = lex.Bracketed(lex.Unit('/', '/'), lex.Until('\n'), lex.Or(lex.Unit('\n'), lex.Eof[rune]()))

var blockComment = lex.Bracketed(lex.Unit('/', '*'), lex.UntilSequence('*', '/'), lex.Unit('*', '/'))

var comment = lex.Or(lineComment, blockComment)

// Comments and strings left open at the end of input are unterminated
var unterminatedComment = lex.SequenceNullableLast(lex.Unit('/', '*'), lex.UntilSequence('*', '/'))

var identifierStart lex.Scanner[rune] = func(items []rune) uint {
	if len(items) > 0 && (items[0] == '_' || items[0] == '$' || unicode.IsLetter(items[0])) {
		return 1
	}
	//
	return 0
}

var identifierPart lex.Scanner[rune] = func(items []rune) uint {
	if len(items) > 0 && (unicode.IsDigit(items[0]) || items[0] == '\u200c' || items[0] == '\u200d') {
		return 1
	}
	//
	return identifierStart(items)
}

var identifier = lex.And(identifierStart, lex.Many(identifierPart))

var number lex.Scanner[rune] = func(items []rune) uint {
	var n int
	//
	switch {
	case len(items) >= 2 && items[0] == '0' && slices.Contains([]rune("xXbBoO"), items[1]):
		n = 2 + digits(items[2:], isHexDigit)
		if n == 2 {
			return 0
		}
	case len(items) > 0 && isDecimalDigit(items[0]):
		n = digits(items, isDecimalDigit)
		// fraction
		if n < len(items) && items[n] == '.' {
			n += 1 + digits(items[n+1:], isDecimalDigit)
		}
		//
		n += exponent(items[n:])
	case len(items) > 1 && items[0] == '.' && isDecimalDigit(items[1]):
		n = 1 + digits(items[1:], isDecimalDigit)
		n += exponent(items[n:])
	default:
		return 0
	}
	// BigInt suffix
	if n < len(items) && items[n] == 'n' {
		n++
	}
	//
	return uint(n)
}

func exponent(items []rune) int {
	if len(items) > 1 && (items[0] == 'e' || items[0] == 'E') {
		n := 1
		if items[n] == '+' || items[n] == '-' {
			n++
		}
		//
		if m := digits(items[n:], isDecimalDigit); m > 0 {
			return n + m
		}
	}
	//
	return 0
}

func digits(items []rune, accept func(rune) bool) int {
	n := 0
	for n < len(items) && (accept(items[n]) || (n > 0 && items[n] == '_')) {
		n++
	}
	//
	return n
}

func isDecimalDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c rune) bool {
	return isDecimalDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// Scanner for a quoted string, which fails if the string is not terminated on
// the same line.
func quoted(quote rune) lex.Scanner[rune] {
	return func(items []rune) uint {
		if len(items) == 0 || items[0] != quote {
			return 0
		}
		//
		for i := 1; i < len(items); i++ {
			switch items[i] {
			case '\\':
				i++
			case quote:
				return uint(i + 1)
			case '\n':
				return 0
			}
		}
		//
		return 0
	}
}

var strung = lex.Or(quoted('"'), quoted('\''))

var unterminatedString = lex.SequenceNullableLast(lex.Or(lex.Unit('"'), lex.Unit('\'')), lex.Until('\n'))

var regex lex.Scanner[rune] = func(items []rune) uint {
	if len(items) < 2 || items[0] != '/' || items[1] == '/' || items[1] == '*' {
		return 0
	}
	//
	var class bool
	//
	for i := 1; i < len(items); i++ {
		switch c := items[i]; {
		case c == '\\':
			i++
		case c == '\n':
			return 0
		case c == '[':
			class = true
		case c == ']':
			class = false
		case c == '/' && !class:
			// flags
			j := i + 1
			for j < len(items) && unicode.IsLetter(items[j]) {
				j++
			}
			//
			return uint(j)
		}
	}
	//
	return 0
}

var templateText lex.Scanner[rune] = func(items []rune) uint {
	for i := 0; i < len(items); i++ {
		switch {
		case items[i] == '\\':
			i++
		case items[i] == '`':
			return uint(i)
		case items[i] == '$' && i+1 < len(items) && items[i+1] == '{':
			return uint(i)
		}
	}
	// Unterminated, but let the lexer report this.
	return uint(len(items))
}

// Guard admitting a regular expression literal only where a division operator
// would be meaningless.
func regexAllowed(last *lex.Token, items []rune) bool {
	if last == nil {
		return true
	} else if last.Kind == IDENTIFIER {
		word := string(items[last.Span.Start():last.Span.End()])
		return slices.Contains(regexKeywords, word)
	}
	//
	return !slices.Contains(divisionContexts, last.Kind)
}

func punctuation(text string, tag uint) lex.LexRule[rune] {
	return lex.Rule(lex.Unit([]rune(text)...), tag)
}

// Rules for code, ordered such that longer punctuators are matched first.
var codeRules = []lex.LexRule[rune]{
	lex.Rule(whitespace, WHITESPACE),
	lex.Rule(comment, COMMENT),
	lex.Rule(unterminatedComment, UNTERMINATED),
	lex.Rule(strung, STRING),
	lex.Rule(unterminatedString, UNTERMINATED),
	lex.Rule(lex.Unit('`'), BACKTICK).Push(templateMode),
	lex.Rule(regex, REGEX).When(regexAllowed),
	lex.Rule(number, NUMBER),
	lex.Rule(identifier, IDENTIFIER),
	punctuation("{", LCURLY).Push(codeMode),
	punctuation("}", RCURLY).Pop(),
	punctuation("...", ELLIPSIS),
	punctuation("===", EQUALS_EQUALS_EQUALS),
	punctuation("!==", NOT_EQUALS_EQUALS),
	punctuation("**=", EXP_EQUALS),
	punctuation("&&=", AND_AND_EQUALS),
	punctuation("||=", OR_OR_EQUALS),
	punctuation("??=", QUESTION_QUESTION_EQUALS),
	punctuation("=>", RIGHTARROW),
	punctuation("==", EQUALS_EQUALS),
	punctuation("!=", NOT_EQUALS),
	punctuation("<=", LESS_THAN_EQUALS),
	punctuation(">=", GREATER_THAN_EQUALS),
	punctuation("<<", SHIFT_LEFT),
	punctuation("&&", AND_AND),
	punctuation("||", OR_OR),
	punctuation("??", QUESTION_QUESTION),
	punctuation("?.", QUESTION_DOT),
	punctuation("++", ADD_ADD),
	punctuation("--", SUB_SUB),
	punctuation("**", EXP),
	punctuation("+=", ADD_EQUALS),
	punctuation("-=", SUB_EQUALS),
	punctuation("*=", MUL_EQUALS),
	punctuation("/=", DIV_EQUALS),
	punctuation("%=", REM_EQUALS),
	punctuation("&=", AND_EQUALS),
	punctuation("|=", OR_EQUALS),
	punctuation("^=", XOR_EQUALS),
	punctuation("(", LBRACE),
	punctuation(")", RBRACE),
	punctuation("[", LSQUARE),
	punctuation("]", RSQUARE),
	punctuation(";", SEMICOLON),
	punctuation(",", COMMA),
	punctuation(".", DOT),
	punctuation("?", QUESTION),
	punctuation(":", COLON),
	punctuation("@", AT),
	punctuation("#", HASH),
	punctuation("=", EQUALS),
	punctuation("<", LESS_THAN),
	punctuation(">", GREATER_THAN),
	punctuation("+", ADD),
	punctuation("-", SUB),
	punctuation("*", MUL),
	punctuation("/", DIV),
	punctuation("%", REM),
	punctuation("!", NOT),
	punctuation("~", TILDE),
	punctuation("&", AND),
	punctuation("|", OR),
	punctuation("^", XOR),
	lex.Rule(lex.Eof[rune](), END_OF),
}

// Rules for the literal text of a template.
var templateRules = []lex.LexRule[rune]{
	lex.Rule(lex.Unit('`'), BACKTICK).Pop(),
	lex.Rule(lex.Unit('$', '{'), DOLLAR_LCURLY).Push(codeMode),
	lex.Rule(templateText, TEMPLATE_TEXT),
}

// Lex a given source file into a sequence of zero or more significant tokens
// (i.e. excluding whitespace and comments), terminated by END_OF.
func Lex(srcfile *source.File) ([]lex.Token, []source.SyntaxError) {
	var (
		lexer = lex.NewModalLexer(srcfile.Contents(), codeRules, templateRules).Ignore(WHITESPACE, COMMENT)
		// Lex as many tokens as possible
		tokens = lexer.Collect()
	)
	// Check whether anything was left (if so this is an error)
	if lexer.Remaining() != 0 || len(tokens) == 0 || tokens[len(tokens)-1].Kind != END_OF {
		var (
			start = min(int(lexer.Index()), len(srcfile.Contents()))
			end   = start + int(lexer.Remaining())
			msg   = "unknown text encountered"
		)
		//
		if lexer.Mode() == templateMode {
			msg = "unterminated template literal"
		}
		//
		err := srcfile.SyntaxError(source.NewSpan(start, max(start, end)), msg)
		//
		return nil, []source.SyntaxError{*err}
	}
	// Check for unterminated strings or comments
	for _, t := range tokens {
		if t.Kind == UNTERMINATED {
			err := srcfile.SyntaxError(t.Span, "unterminated string or comment")
			return nil, []source.SyntaxError{*err}
		}
	}
	// Remove any whitespace or comments
	tokens = slices.DeleteFunc(tokens, func(t lex.Token) bool { return t.Kind == WHITESPACE || t.Kind == COMMENT })
	// Done
	return tokens, nil
}
