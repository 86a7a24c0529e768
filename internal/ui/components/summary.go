package components

import (
	"fmt"
	"strings"

	"github.com/satprep/satprep/internal/session"
	"github.com/satprep/satprep/internal/ui/theme"
)

// SummaryCard renders the end-of-session totals and topic breakdown.
func SummaryCard(s session.Summary, width int) string {
	var b strings.Builder

	title := "Session complete"
	if !s.Completed {
		title = "Session in progress"
	}
	b.WriteString(theme.Title.Render(title) + "\n\n")

	row := func(label, value string) {
		b.WriteString(theme.Label.Render(label) + theme.Body.Render(value) + "\n")
	}
	row("Time", Clock(s.Duration))
	row("Answered", fmt.Sprintf("%d/%d", s.Answered, s.Total))
	row("Correct", fmt.Sprintf("%d", s.Correct))
	row("Skipped", fmt.Sprintf("%d", s.Skipped))
	row("Flagged", fmt.Sprintf("%d", s.Flagged))
	row("Points", fmt.Sprintf("%d", s.Points))
	row("XP", fmt.Sprintf("%d (%+d)", s.XP, s.XPEarned))
	b.WriteString(AccuracyBar("Accuracy", s.Accuracy, width) + "\n")

	if len(s.Topics) > 0 {
		b.WriteString("\n" + theme.Subtitle.Render("By topic") + "\n")
		for _, t := range s.Topics {
			b.WriteString(theme.Label.Render(t.Topic) + theme.Body.Render(fmt.Sprintf("%d/%d", t.Correct, t.Attempted)) + "\n")
		}
	}

	return theme.Card.Render(strings.TrimRight(b.String(), "\n"))
}
