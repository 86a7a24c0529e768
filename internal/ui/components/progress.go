package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/satprep/satprep/internal/ui/theme"
)

// AccuracyBar draws "label  ████░░░░  62%" in exactly width cells. The fill
// is colored by accuracy band so weak topics stand out in a list.
func AccuracyBar(label string, acc float64, width int) string {
	acc = min(max(acc, 0), 1)

	head := ""
	if label != "" {
		head = theme.Label.Width(max(lipgloss.Width(label), 14)).Render(label) + " "
	}
	tail := theme.Subtitle.Render(fmt.Sprintf(" %3d%%", int(acc*100+0.5)))

	n := max(width-lipgloss.Width(head)-lipgloss.Width(tail), 4)
	filled := int(float64(n)*acc + 0.5)
	return head +
		theme.Band(acc).Render(strings.Repeat("█", filled)) +
		theme.ProgressEmpty.Render(strings.Repeat("░", n-filled)) +
		tail
}
