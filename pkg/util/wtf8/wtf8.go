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
package wtf8

import (
	"unicode/utf16"
	"unicode/utf8"
)

// Strings are WTF-8 encoded, which extends UTF-8 by permitting unpaired
// surrogate code points (encoded in three bytes like any other code point of
// the basic multilingual plane).  This allows every sequence of UTF-16 code
// units to be held in a Go string exactly.  Paired surrogates are always
// combined, hence a well formed sequence of code units yields plain UTF-8.

const (
	surrogateMin = 0xD800
	surrogateMax = 0xDFFF
)

// IsSurrogate determines whether a code point lies in the surrogate range.
func IsSurrogate(r rune) bool {
	return r >= surrogateMin && r <= surrogateMax
}

// IsWellFormed determines whether a string holds no unpaired surrogates (and
// is therefore valid UTF-8).
func IsWellFormed(s string) bool {
	return utf8.ValidString(s)
}

// AppendRune appends the encoding of a code point, which may be an unpaired
// surrogate.
func AppendRune(buf []byte, r rune) []byte {
	if IsSurrogate(r) {
		return append(buf, byte(0xE0|r>>12), byte(0x80|(r>>6)&0x3F), byte(0x80|r&0x3F))
	}
	//
	return utf8.AppendRune(buf, r)
}

// FromUnits constructs a string from a sequence of UTF-16 code units, keeping
// any unpaired surrogates.
func FromUnits(units []uint16) string {
	var buf = make([]byte, 0, len(units))
	//
	for i := 0; i < len(units); i++ {
		r := rune(units[i])
		//
		if utf16.IsSurrogate(r) && i+1 < len(units) {
			if c := utf16.DecodeRune(r, rune(units[i+1])); c != utf8.RuneError {
				r = c
				i++
			}
		}
		//
		buf = AppendRune(buf, r)
	}
	//
	return string(buf)
}

// Decode returns the code points of a string.  Unpaired surrogates are
// returned as themselves, whilst any other malformed byte becomes
// utf8.RuneError.
func Decode(s string) []rune {
	var runes = make([]rune, 0, len(s))
	//
	for i := 0; i < len(s); {
		r, width := decodeRune(s[i:])
		runes = append(runes, r)
		i += width
	}
	//
	return runes
}

// Units returns the UTF-16 code units of a string.
func Units(s string) []uint16 {
	var units = make([]uint16, 0, len(s))
	//
	for _, r := range Decode(s) {
		if IsSurrogate(r) {
			units = append(units, uint16(r))
		} else {
			units = utf16.AppendRune(units, r)
		}
	}
	//
	return units
}

func decodeRune(s string) (rune, int) {
	r, width := utf8.DecodeRuneInString(s)
	// utf8 rejects the encoding of surrogates
	if r == utf8.RuneError && width == 1 && len(s) >= 3 && s[0] == 0xED && s[1] >= 0xA0 && s[1] <= 0xBF &&
		s[2] >= 0x80 && s[2] <= 0xBF {
		return 0xD000 | rune(s[1]&0x3F)<<6 | rune(s[2]&0x3F), 3
	}
	//
	return r, width
}
