package termio

import (
	"fmt"
	"strings"
)

// TERM_RED represents red
const TERM_RED = uint(1)

// TERM_GREEN represents green
const TERM_GREEN = uint(2)

// TERM_YELLOW represents yellow
const TERM_YELLOW = uint(3)

// TERM_BLUE represents blue
const TERM_BLUE = uint(4)

// TERM_MAGENTA represents magenta
const TERM_MAGENTA = uint(5)

// TERM_CYAN represents cyan
const TERM_CYAN = uint(6)

// AnsiEscape represents an ANSI escape code used for formatting text in a terminal.
type AnsiEscape struct {
	codes []string
}

// NewAnsiEscape construct an empty escape
func NewAnsiEscape() AnsiEscape {
	return AnsiEscape{}
}

// Bold adds emboldening to this escape.
func (p AnsiEscape) Bold() AnsiEscape {
	return p.with("1")
}

// Underline adds underlining to this escape.
func (p AnsiEscape) Underline() AnsiEscape {
	return p.with("4")
}

// FgColour sets the foreground colour
func (p AnsiEscape) FgColour(col uint) AnsiEscape {
	return p.with(fmt.Sprintf("%d", col+30))
}

func (p AnsiEscape) with(code string) AnsiEscape {
	codes := make([]string, len(p.codes), len(p.codes)+1)
	copy(codes, p.codes)
	//
	return AnsiEscape{append(codes, code)}
}

// Build constructs the final escape
func (p AnsiEscape) Build() string {
	return "\033[" + strings.Join(p.codes, ";") + "m"
}

// Reset is the escape which restores default formatting.
func Reset() string {
	return "\033[0m"
}

// Painter applies escapes to text, provided colouring is enabled.
type Painter struct {
	enabled bool
}

// NewPainter constructs a painter which colours text only when enabled.
func NewPainter(enabled bool) Painter {
	return Painter{enabled}
}

// Paint wraps text in the given escape (when enabled).
func (p Painter) Paint(escape AnsiEscape, text string) string {
	if !p.enabled || text == "" {
		return text
	}
	//
	return escape.Build() + text + Reset()
}
