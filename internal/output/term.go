package output

import (
	"os"
	"strconv"

	"golang.org/x/term"
)

const defaultWidth = 80

// IsTerminal reports whether stdin is an interactive terminal. Commands
// that prompt for confirmation or secrets use this to refuse when piped.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// TerminalWidth returns the current terminal width or a fallback when unavailable.
func TerminalWidth(fallback int) int {
	if fallback <= 0 {
		fallback = defaultWidth
	}

	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}

	if cols := os.Getenv("COLUMNS"); cols != "" {
		if parsed, err := strconv.Atoi(cols); err == nil && parsed > 0 {
			return parsed
		}
	}

	return fallback
}

// Truncate shortens s to max runes, ending in "…" when it was cut.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(runes[:max-1]) + "…"
}
