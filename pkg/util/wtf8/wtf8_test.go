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
	"testing"

	"github.com/consensys/go-macro/pkg/util/assert"
)

func TestFromUnits_00(t *testing.T) {
	// Paired surrogates combine
	assert.Equal(t, "\U0001F600", FromUnits([]uint16{0xD83D, 0xDE00}))
	assert.True(t, IsWellFormed(FromUnits([]uint16{'a', 0xD83D, 0xDE00, 'b'})))
}

func TestFromUnits_01(t *testing.T) {
	high := FromUnits([]uint16{0xD83D})
	low := FromUnits([]uint16{0xDE00})
	//
	assert.Equal(t, "\xed\xa0\xbd", high)
	assert.Equal(t, "\xed\xb8\x80", low)
	assert.False(t, IsWellFormed(high))
	assert.False(t, high == FromUnits([]uint16{0xFFFD}))
}

func TestFromUnits_02(t *testing.T) {
	// Reversed pairs do not combine
	s := FromUnits([]uint16{0xDE00, 0xD83D})
	//
	assert.Equal(t, []rune{0xDE00, 0xD83D}, Decode(s))
}

func TestUnits_00(t *testing.T) {
	for _, units := range [][]uint16{
		{},
		{'a', 'b'},
		{0xD83D},
		{'x', 0xDE00, 'y'},
		{0xD83D, 0xDE00, 0xD83D},
		{0x00E9, 0x2028, 0xFFFD},
	} {
		assert.Equal(t, units, Units(FromUnits(units)))
	}
}

func TestDecode_00(t *testing.T) {
	assert.Equal(t, []rune{'a', 0x00E9, 0x1F600}, Decode("a\u00e9\U0001F600"))
	assert.Equal(t, []rune{0xD83D, 'a'}, Decode("\xed\xa0\xbda"))
	assert.Equal(t, []rune{0xFFFD, 'a'}, Decode("\xffa"))
}

func TestAppendRune_00(t *testing.T) {
	assert.Equal(t, "\xed\xa0\xbd", string(AppendRune(nil, 0xD83D)))
	assert.Equal(t, "\U0001F600", string(AppendRune(nil, 0x1F600)))
}
