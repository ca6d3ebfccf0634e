package termio

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// COLOUR_AUTO enables colour only when writing to a terminal.
const COLOUR_AUTO = "auto"

// COLOUR_ALWAYS enables colour unconditionally.
const COLOUR_ALWAYS = "always"

// COLOUR_NEVER disables colour.
const COLOUR_NEVER = "never"

// IsTerminal determines whether a given file is attached to a terminal.
func IsTerminal(file *os.File) bool {
	return term.IsTerminal(int(file.Fd()))
}

// ColourEnabled determines whether output written to a given file should be
// coloured under a given mode.  In automatic mode, colour is disabled by the
// NO_COLOR environment variable.
func ColourEnabled(mode string, file *os.File) (bool, error) {
	switch mode {
	case COLOUR_ALWAYS:
		return true, nil
	case COLOUR_NEVER:
		return false, nil
	case COLOUR_AUTO, "":
		_, nocolour := os.LookupEnv("NO_COLOR")
		return !nocolour && IsTerminal(file), nil
	}
	//
	return false, fmt.Errorf("unknown colour mode \"%s\" (expected auto, always or never)", mode)
}
