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
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/consensys/go-macro/pkg/util/wtf8"
)

// DecodeString decodes the text of a quoted string literal (including its
// quotes) into the string value it denotes.
func DecodeString(raw string) (string, error) {
	if len(raw) < 2 || raw[0] != raw[len(raw)-1] || (raw[0] != '"' && raw[0] != '\'') {
		return "", errors.New("malformed string literal")
	}
	//
	return decodeEscapes([]rune(raw[1 : len(raw)-1]))
}

// DecodeTemplate decodes the literal text of a template into the (cooked)
// string value it denotes.  Line terminators are normalised to "\n".
func DecodeTemplate(raw string) (string, error) {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	//
	return decodeEscapes([]rune(raw))
}

// Decode escape sequences into UTF-16 code units, such that unpaired
// surrogates written as escapes are retained exactly.
func decodeEscapes(chars []rune) (string, error) {
	var units []uint16
	//
	for i := 0; i < len(chars); i++ {
		if chars[i] != '\\' {
			units = utf16.AppendRune(units, chars[i])
			continue
		} else if i+1 >= len(chars) {
			return "", errors.New("malformed escape sequence")
		}
		//
		i++
		//
		switch c := chars[i]; c {
		case 'n':
			units = append(units, '\n')
		case 't':
			units = append(units, '\t')
		case 'r':
			units = append(units, '\r')
		case 'b':
			units = append(units, '\b')
		case 'f':
			units = append(units, '\f')
		case 'v':
			units = append(units, '\v')
		case '0':
			if i+1 < len(chars) && isDecimalDigit(chars[i+1]) {
				return "", errors.New("octal escape sequences are not permitted")
			}
			//
			units = append(units, 0)
		case 'x':
			code, err := hexValue(chars, i+1, 2)
			if err != nil {
				return "", err
			}
			//
			units = append(units, uint16(code))
			i += 2
		case 'u':
			code, width, err := unicodeEscape(chars, i+1)
			if err != nil {
				return "", err
			}
			//
			i += width
			// Surrogates are kept as code units, and combined (where paired)
			// below.
			if wtf8.IsSurrogate(rune(code)) {
				units = append(units, uint16(code))
			} else {
				units = utf16.AppendRune(units, rune(code))
			}
		case '\r':
			// Line continuation
			if i+1 < len(chars) && chars[i+1] == '\n' {
				i++
			}
		case '\n', '\u2028', '\u2029':
			// Line continuation
		default:
			if c >= '1' && c <= '9' {
				return "", errors.New("octal escape sequences are not permitted")
			}
			//
			units = utf16.AppendRune(units, c)
		}
	}
	//
	return wtf8.FromUnits(units), nil
}

// Decode the body of a "\u" escape (starting after the "u"), returning the
// code point and the number of characters consumed.
func unicodeEscape(chars []rune, start int) (uint64, int, error) {
	if start < len(chars) && chars[start] == '{' {
		end := start + 1
		for end < len(chars) && chars[end] != '}' {
			end++
		}
		//
		if end >= len(chars) || end == start+1 {
			return 0, 0, errors.New("malformed unicode escape sequence")
		}
		//
		code, err := hexValue(chars, start+1, end-start-1)
		if err != nil || code > maxCodePoint {
			return 0, 0, errors.New("malformed unicode escape sequence")
		}
		//
		return code, end - start + 1, nil
	}
	//
	code, err := hexValue(chars, start, 4)
	//
	return code, 4, err
}

const maxCodePoint = 0x10FFFF

func hexValue(chars []rune, start int, width int) (uint64, error) {
	if start+width > len(chars) {
		return 0, errors.New("malformed escape sequence")
	}
	//
	code, err := strconv.ParseUint(string(chars[start:start+width]), 16, 32)
	if err != nil {
		return 0, errors.New("malformed escape sequence")
	}
	//
	return code, nil
}

// ParseNumber parses the text of a numeric literal.
func ParseNumber(text string) (float64, error) {
	text = strings.ReplaceAll(text, "_", "")
	//
	if strings.HasSuffix(text, "n") {
		return 0, errors.New("bigint literals are not supported")
	} else if len(text) > 2 && text[0] == '0' {
		var base int
		//
		switch text[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		default:
			if isDecimalDigit(rune(text[1])) {
				return 0, errors.New("legacy octal literals are not permitted")
			}
		}
		//
		if base != 0 {
			var number big.Int
			//
			if _, ok := number.SetString(text[2:], base); !ok {
				return 0, errors.New("malformed numeric literal")
			}
			//
			value, _ := new(big.Float).SetInt(&number).Float64()
			//
			return value, nil
		}
	}
	//
	value, err := strconv.ParseFloat(text, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, errors.New("malformed numeric literal")
	}
	//
	return value, nil
}

// FormatNumber formats a number as its shortest round-tripping decimal
// representation, using the same notation as the Number to String conversion
// of the script language (e.g. 1e21, 0.000001, 1e-7, NaN, -Infinity).
func FormatNumber(value float64) string {
	switch {
	case math.IsNaN(value):
		return "NaN"
	case math.IsInf(value, 1):
		return "Infinity"
	case math.IsInf(value, -1):
		return "-Infinity"
	case value == 0:
		return "0"
	case value < 0:
		return "-" + FormatNumber(-value)
	}
	// Determine shortest digits and exponent
	var (
		sci       = strconv.FormatFloat(value, 'e', -1, 64)
		mantissa  = sci[:strings.IndexByte(sci, 'e')]
		digits    = strings.Replace(mantissa, ".", "", 1)
		k         = len(digits)
		exp, _    = strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
		n         = exp + 1
		formatted string
	)
	//
	switch {
	case k <= n && n <= 21:
		formatted = digits + strings.Repeat("0", n-k)
	case 0 < n && n <= 21:
		formatted = digits[:n] + "." + digits[n:]
	case -6 < n && n <= 0:
		formatted = "0." + strings.Repeat("0", -n) + digits
	default:
		sign := "+"
		if n-1 < 0 {
			sign = "-"
		}
		//
		formatted = digits[:1]
		if k > 1 {
			formatted += "." + digits[1:]
		}
		//
		formatted = fmt.Sprintf("%se%s%d", formatted, sign, abs(n-1))
	}
	//
	return formatted
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	//
	return n
}

// SplitRegex splits the text of a regular expression literal into its pattern
// and flags.
func SplitRegex(raw string) (string, string) {
	end := strings.LastIndexByte(raw, '/')
	//
	if end <= 0 {
		return raw, ""
	}
	//
	return raw[1:end], raw[end+1:]
}
