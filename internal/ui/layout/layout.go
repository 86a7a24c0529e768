// Package layout composes the header and command-hint bars around CLI output.
package layout

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/satprep/satprep/internal/ui/theme"
)

// DefaultWidth is used when the terminal width is unknown.
const DefaultWidth = 72

// Hint is one command shown in the hint bar.
type Hint struct {
	Key         string
	Description string
}

// SessionHints are the commands accepted during a practice session.
var SessionHints = []Hint{
	{"a-d", "answer"},
	{"submit", "lock in"},
	{"next", "next"},
	{"goto N", "jump"},
	{"flag", "flag"},
	{"quit", "finish"},
	{"exit", "save & leave"},
}

// RenderHeader renders the title bar with the learner's XP and streak.
func RenderHeader(title string, xp, streak int, width int) string {
	left := theme.Title.Render("SAT Prep")
	center := theme.Body.Render(title)
	right := theme.Warning.Render(fmt.Sprintf("%d XP", xp)) + "   " +
		theme.Warning.Render(fmt.Sprintf("%d day streak", streak))

	leftLen := lipgloss.Width(left)
	centerLen := lipgloss.Width(center)
	rightLen := lipgloss.Width(right)

	innerWidth := max(width-4, 0) // account for border padding
	leftGap := max((innerWidth-centerLen)/2-leftLen, 1)
	rightGap := max(innerWidth-leftLen-leftGap-centerLen-rightLen, 1)

	content := left + strings.Repeat(" ", leftGap) + center + strings.Repeat(" ", rightGap) + right

	return theme.Card.Width(width).Render(content)
}

// RenderHints renders a single line of command hints.
func RenderHints(hints []Hint) string {
	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		parts = append(parts, theme.Body.Bold(true).Render(h.Key)+" "+theme.Subtitle.Render(h.Description))
	}
	return "  " + strings.Join(parts, "   ")
}
