package cli

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/loomwork/village/internal/lock"
)

// ANSI escape codes for terminal colors.
const (
	ansiGreen       = "\033[32m"
	ansiCyan        = "\033[36m"
	ansiYellow      = "\033[33m"
	ansiRed         = "\033[31m"
	ansiDim         = "\033[2m"
	ansiBoldMagenta = "\033[1;35m"
	ansiReset       = "\033[0m"
)

var titleCaser = cases.Title(language.English)

// stateDisplay returns the symbol and color for a worker's lock state and
// pane status.
func stateDisplay(status lock.Status, state lock.State) (symbol, color string) {
	if status == lock.Stale {
		return "✗", ansiRed
	}
	switch state {
	case lock.StateInProgress:
		return "⟳", ansiYellow
	case lock.StatePaused:
		return "⏸", ansiDim
	case lock.StateCompleted:
		return "✓", ansiGreen
	case lock.StateFailed:
		return "✗", ansiRed
	case lock.StateQueued:
		return "◯", ansiYellow
	default:
		return "●", ansiCyan
	}
}

// displayLabel renders a lock state for human-readable text output, e.g.
// "in_progress" -> "In Progress".
func displayLabel(state lock.State) string {
	if state == "" {
		return titleCaser.String("active")
	}
	return titleCaser.String(stringsReplaceUnderscore(string(state)))
}

func stringsReplaceUnderscore(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '_' {
			out[i] = ' '
		} else {
			out[i] = s[i]
		}
	}
	return string(out)
}
