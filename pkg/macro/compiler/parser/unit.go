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

	"github.com/consensys/go-macro/pkg/macro/compiler/ast"
	"github.com/consensys/go-macro/pkg/util/source"
)

// Token kinds which cannot end a statement, since they expect an operand to
// follow.
var continuations = []uint{LBRACE, LSQUARE, LCURLY, DOLLAR_LCURLY, COMMA, DOT, ELLIPSIS, QUESTION_DOT,
	QUESTION, QUESTION_QUESTION, COLON, RIGHTARROW, EQUALS, EQUALS_EQUALS, EQUALS_EQUALS_EQUALS, NOT_EQUALS,
	NOT_EQUALS_EQUALS, LESS_THAN, LESS_THAN_EQUALS, GREATER_THAN, GREATER_THAN_EQUALS, SHIFT_LEFT, ADD,
	SUB, MUL, DIV, REM, EXP, NOT, TILDE, AND, OR, XOR, AND_AND, OR_OR, ADD_EQUALS, SUB_EQUALS, MUL_EQUALS,
	DIV_EQUALS, REM_EQUALS, EXP_EQUALS, AND_AND_EQUALS, OR_OR_EQUALS, QUESTION_QUESTION_EQUALS, AND_EQUALS,
	OR_EQUALS, XOR_EQUALS}

// Token kinds which, when starting a line, continue the previous statement.
var continuedBy = []uint{LBRACE, LSQUARE, BACKTICK, COMMA, DOT, QUESTION_DOT, QUESTION, QUESTION_QUESTION,
	COLON, RIGHTARROW, EQUALS, EQUALS_EQUALS, EQUALS_EQUALS_EQUALS, NOT_EQUALS, NOT_EQUALS_EQUALS, LESS_THAN,
	LESS_THAN_EQUALS, GREATER_THAN, GREATER_THAN_EQUALS, SHIFT_LEFT, ADD, SUB, MUL, DIV, REM, EXP, AND, OR,
	XOR, AND_AND, OR_OR, ADD_EQUALS, SUB_EQUALS, MUL_EQUALS, DIV_EQUALS, REM_EQUALS, EXP_EQUALS,
	AND_AND_EQUALS, OR_OR_EQUALS, QUESTION_QUESTION_EQUALS, AND_EQUALS, OR_EQUALS, XOR_EQUALS}

// Keywords which start statements terminated by a closing brace.
var blockKeywords = []string{"function", "class", "if", "for", "while", "do", "try", "switch", "interface",
	"enum", "namespace", "module"}

// Keywords which may precede a block statement.
var modifierKeywords = []string{"export", "default", "declare", "async", "abstract"}

// Keywords which continue a block statement after its closing brace.
var continuationKeywords = []string{"else", "catch", "finally", "while"}

// ParseUnit parses a given source file as a compilation unit.  Import (and
// re-export) declarations are parsed in full, whilst all other top-level
// statements are only delimited.  The text of the unit is not interpreted
// further, except for locating and parsing macro call sites on demand (see
// ParseCallArguments).
func ParseUnit(srcfile *source.File) (*ast.CompilationUnit, []source.SyntaxError) {
	var (
		statements []ast.Statement
		imports    []*ast.ImportDecl
	)
	//
	tokens, errs := Lex(srcfile)
	if len(errs) > 0 {
		return nil, errs
	}
	//
	p := NewParser(srcfile, tokens)
	//
	for p.lookahead().Kind != END_OF {
		var (
			start = p.index
			decl  *ast.ImportDecl
		)
		//
		switch {
		case p.isImportDeclaration():
			decl, errs = p.parseImportDeclaration()
		case p.isReexport():
			decl, errs = p.parseReexport()
		default:
			p.skipStatement()
		}
		//
		if len(errs) > 0 {
			return nil, errs
		} else if decl != nil {
			imports = append(imports, decl)
		}
		//
		statements = append(statements, ast.Statement{
			Span:   p.spanOf(start, p.index-1),
			First:  start,
			Last:   p.index,
			Import: decl,
		})
	}
	//
	return ast.NewCompilationUnit(srcfile, tokens, statements, imports), nil
}

// ParseCallArguments parses the parenthesised argument list of a call whose
// opening parenthesis is the given token of a compilation unit.  This returns
// the arguments and the index of the closing parenthesis.
func ParseCallArguments(unit *ast.CompilationUnit, index int) ([]ast.Expr, int, []source.SyntaxError) {
	p := NewParser(unit.SourceFile(), unit.Tokens())
	p.index = index
	//
	args, errs := p.parseArguments()
	//
	return args, p.index - 1, errs
}

// ============================================================================
// Import declarations
// ============================================================================

// Check whether an import declaration is next, as opposed to a dynamic import
// "import(...)", "import.meta" or "import x = require(...)".
func (p *Parser) isImportDeclaration() bool {
	if !p.keyword("import") {
		return false
	}
	//
	switch p.peek(1).Kind {
	case LBRACE, DOT:
		return false
	case IDENTIFIER:
		return p.peek(2).Kind != EQUALS
	}
	//
	return true
}

func (p *Parser) parseImportDeclaration() (*ast.ImportDecl, []source.SyntaxError) {
	var (
		start = p.index
		decl  = &ast.ImportDecl{}
		errs  []source.SyntaxError
	)
	// Skip "import"
	p.index++
	// Type-only imports (but not a default import named "type")
	if p.keyword("type") && !p.keywordAt(1, "from") && p.peek(1).Kind != COMMA {
		p.index++
		decl.TypeOnly = true
	}
	// Side-effect only imports have no bindings
	if !p.follows(STRING) {
		if errs = p.parseImportClause(decl); len(errs) > 0 {
			return nil, errs
		} else if errs = p.expectKeyword("from"); len(errs) > 0 {
			return nil, errs
		}
	}
	//
	if errs = p.parseImportSource(decl); len(errs) > 0 {
		return nil, errs
	}
	//
	decl.Span = p.spanOf(start, p.index-1)
	//
	return decl, nil
}

// Parse the bindings of an import declaration (i.e. everything between
// "import" and "from").
func (p *Parser) parseImportClause(decl *ast.ImportDecl) []source.SyntaxError {
	var errs []source.SyntaxError
	// Default binding
	if p.follows(IDENTIFIER) {
		if decl.Default, errs = p.parseIdentifier(); len(errs) > 0 {
			return errs
		} else if !p.match(COMMA) {
			return nil
		}
	}
	//
	switch {
	case p.match(MUL):
		if errs = p.expectKeyword("as"); len(errs) > 0 {
			return errs
		}
		//
		decl.Namespace, errs = p.parseIdentifier()
	case p.follows(LCURLY):
		decl.Named, errs = p.parseSpecifierList()
	default:
		errs = p.syntaxErrors(p.lookahead(), "expected import bindings")
	}
	//
	return errs
}

// Parse a braced list of specifiers "{ a, b as c, "d-e" as f }".
func (p *Parser) parseSpecifierList() ([]ast.ImportSpecifier, []source.SyntaxError) {
	var specifiers []ast.ImportSpecifier
	//
	if _, errs := p.expect(LCURLY); len(errs) > 0 {
		return nil, errs
	}
	//
	for !p.follows(RCURLY) {
		var (
			start     = p.index
			specifier ast.ImportSpecifier
			errs      []source.SyntaxError
		)
		// Inline type modifier
		if p.keyword("type") && p.peek(1).Kind != COMMA && p.peek(1).Kind != RCURLY && !p.keywordAt(1, "as") {
			p.index++
		}
		//
		if specifier.Imported, errs = p.parseModuleExportName(); len(errs) > 0 {
			return nil, errs
		}
		//
		specifier.Local = specifier.Imported
		//
		if p.matchKeyword("as") {
			if specifier.Local, errs = p.parseModuleExportName(); len(errs) > 0 {
				return nil, errs
			}
		}
		//
		specifier.Span = p.spanOf(start, p.index-1)
		specifiers = append(specifiers, specifier)
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
	return specifiers, nil
}

// Parse either an identifier (which may be a keyword, as in "default") or a
// string naming an export.
func (p *Parser) parseModuleExportName() (string, []source.SyntaxError) {
	lookahead := p.lookahead()
	//
	switch lookahead.Kind {
	case IDENTIFIER:
		p.index++
		return p.string(lookahead), nil
	case STRING:
		p.index++
		//
		name, err := DecodeString(p.string(lookahead))
		if err != nil {
			return "", p.syntaxErrors(lookahead, err.Error())
		}
		//
		return name, nil
	}
	//
	return "", p.syntaxErrors(lookahead, "expected identifier")
}

// Parse the module specifier of an import or re-export, along with any
// attributes and the terminating semicolon.
func (p *Parser) parseImportSource(decl *ast.ImportDecl) []source.SyntaxError {
	token, errs := p.expect(STRING)
	//
	if len(errs) > 0 {
		return p.syntaxErrors(token, "expected module specifier")
	}
	//
	specifier, err := DecodeString(p.string(token))
	if err != nil {
		return p.syntaxErrors(token, err.Error())
	}
	//
	decl.Specifier = specifier
	decl.SpecifierSpan = token.Span
	// Attributes (or legacy assertions)
	if p.keyword("with") || (p.keyword("assert") && !p.newlineBefore(p.index)) {
		p.index++
		//
		if decl.Attributes, errs = p.parseAttributes(); len(errs) > 0 {
			return errs
		}
	}
	//
	value, ok := decl.Attribute(ast.MACRO_ATTRIBUTE_KEY)
	decl.IsCompileTimeOnly = ok && value == ast.MACRO_ATTRIBUTE_VALUE
	//
	return p.consumeSemicolon()
}

func (p *Parser) parseAttributes() ([]ast.Attribute, []source.SyntaxError) {
	var attributes []ast.Attribute
	//
	if _, errs := p.expect(LCURLY); len(errs) > 0 {
		return nil, errs
	}
	//
	for !p.follows(RCURLY) {
		var (
			start = p.index
			attr  ast.Attribute
			errs  []source.SyntaxError
		)
		//
		if attr.Key, errs = p.parseModuleExportName(); len(errs) > 0 {
			return nil, errs
		} else if _, errs = p.expect(COLON); len(errs) > 0 {
			return nil, errs
		}
		//
		token, errs := p.expect(STRING)
		if len(errs) > 0 {
			return nil, p.syntaxErrors(token, "attribute value must be a string")
		}
		//
		value, err := DecodeString(p.string(token))
		if err != nil {
			return nil, p.syntaxErrors(token, err.Error())
		} else if _, ok := findAttribute(attributes, attr.Key); ok {
			return nil, p.syntaxErrors(token, "duplicate import attribute \""+attr.Key+"\"")
		}
		//
		attr.Value = value
		attr.Span = p.spanOf(start, p.index-1)
		attributes = append(attributes, attr)
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
	return attributes, nil
}

func findAttribute(attributes []ast.Attribute, key string) (ast.Attribute, bool) {
	for _, attr := range attributes {
		if attr.Key == key {
			return attr, true
		}
	}
	//
	return ast.Attribute{}, false
}

// Check whether a re-export "export ... from" is next.
func (p *Parser) isReexport() bool {
	if !p.keyword("export") {
		return false
	}
	//
	var (
		index = p.index
		ok    bool
	)
	//
	p.index++
	p.matchKeyword("type")
	//
	switch {
	case p.match(MUL):
		ok = true
	case p.follows(LCURLY):
		ok = p.skipBalanced(LCURLY, RCURLY) && p.keyword("from")
	}
	//
	p.index = index
	//
	return ok
}

func (p *Parser) parseReexport() (*ast.ImportDecl, []source.SyntaxError) {
	var (
		start = p.index
		decl  = &ast.ImportDecl{Reexport: true}
		errs  []source.SyntaxError
	)
	// Skip "export"
	p.index++
	decl.TypeOnly = p.matchKeyword("type")
	//
	if p.match(MUL) {
		if p.matchKeyword("as") {
			if decl.Namespace, errs = p.parseModuleExportName(); len(errs) > 0 {
				return nil, errs
			}
		}
	} else if decl.Named, errs = p.parseSpecifierList(); len(errs) > 0 {
		return nil, errs
	}
	//
	if errs = p.expectKeyword("from"); len(errs) > 0 {
		return nil, errs
	} else if errs = p.parseImportSource(decl); len(errs) > 0 {
		return nil, errs
	}
	//
	decl.Span = p.spanOf(start, p.index-1)
	//
	return decl, nil
}

// ============================================================================
// Statement delimiting
// ============================================================================

// Skip over a top-level statement without interpreting it.  A statement ends
// at a semicolon, at the closing brace of a block statement, or at a line
// break where automatic semicolon insertion applies.
func (p *Parser) skipStatement() {
	var (
		start = p.index
		block = p.isBlockStatement()
		depth = 0
	)
	//
	for {
		var token = p.lookahead()
		//
		if token.Kind == END_OF {
			return
		} else if depth == 0 && p.index > start && p.newlineBefore(p.index) &&
			!slices.Contains(continuations, p.tokens[p.index-1].Kind) &&
			!slices.Contains(continuedBy, token.Kind) && !p.continuesBlock() {
			return
		}
		//
		p.index++
		//
		switch token.Kind {
		case LBRACE, LSQUARE, LCURLY, DOLLAR_LCURLY:
			depth++
		case RBRACE, RSQUARE:
			depth = max(0, depth-1)
		case RCURLY:
			depth = max(0, depth-1)
			//
			if depth == 0 && block && !p.continuesBlock() {
				return
			}
		case SEMICOLON:
			if depth == 0 {
				return
			}
		}
	}
}

// Check whether the next token continues a block statement (e.g. "else").
func (p *Parser) continuesBlock() bool {
	for _, word := range continuationKeywords {
		if p.keyword(word) {
			return true
		}
	}
	//
	return false
}

// Check whether the statement starting here is terminated by a block, such as
// a function or class declaration.
func (p *Parser) isBlockStatement() bool {
	var index = 0
	//
	for p.peek(index).Kind == IDENTIFIER && slices.Contains(modifierKeywords, p.string(p.peek(index))) {
		index++
	}
	//
	token := p.peek(index)
	//
	switch token.Kind {
	case LCURLY:
		return index == 0
	case IDENTIFIER:
		return slices.Contains(blockKeywords, p.string(token))
	}
	//
	return false
}
