package source

import (
	"testing"

	"github.com/consensys/go-macro/pkg/util/assert"
)

func TestSpan_00(t *testing.T) {
	span := NewSpan(2, 5)
	assert.Equal(t, 3, span.Length())
	assert.True(t, span.Contains(NewSpan(3, 5)))
	assert.False(t, span.Contains(NewSpan(1, 3)))
}

func TestSpan_01(t *testing.T) {
	assert.True(t, NewSpan(0, 3).Overlaps(NewSpan(2, 4)))
	assert.False(t, NewSpan(0, 2).Overlaps(NewSpan(2, 4)))
	assert.Equal(t, NewSpan(0, 4), NewSpan(0, 2).Join(NewSpan(3, 4)))
}

func TestSourceFile_00(t *testing.T) {
	srcfile := NewSourceFile("test.ts", []byte("let x = 1;\nlet y = x;\n"))
	lines := srcfile.Lines()
	//
	assert.Equal(t, 3, len(lines))
	assert.Equal(t, "let y = x;", lines[1].String())
	assert.Equal(t, 2, lines[1].Number())
}

func TestSourceFile_01(t *testing.T) {
	srcfile := NewSourceFile("test.ts", []byte("abc\ndef"))
	line, col := srcfile.Position(5)
	//
	assert.Equal(t, 2, line)
	assert.Equal(t, 2, col)
	assert.Equal(t, "ef", srcfile.Text(NewSpan(5, 7)))
}

func TestSyntaxError_00(t *testing.T) {
	srcfile := NewSourceFile("unit.ts", []byte("import x from;\n"))
	err := srcfile.SyntaxError(NewSpan(13, 14), "expected module specifier")
	//
	assert.Equal(t, "unit.ts:1:14: expected module specifier", err.Error())
	line := err.FirstEnclosingLine()
	assert.Equal(t, "import x from;", line.String())
}
