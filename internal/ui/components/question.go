package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/satprep/satprep/internal/question"
	"github.com/satprep/satprep/internal/session"
	"github.com/satprep/satprep/internal/ui/theme"
)

// QuestionCard renders the question on screen. When reveal is set and the
// attempt is resolved, the correct option and the learner's miss are marked.
func QuestionCard(v session.View, reveal bool, width int) string {
	var b strings.Builder

	header := fmt.Sprintf("Question %d/%d", v.Index+1, v.Total)
	tags := []string{string(v.Question.Subject)}
	if t := v.Question.PrimaryTopic(); t != "" {
		tags = append(tags, t)
	}
	b.WriteString(theme.Title.Render(header) + "  " + theme.Subtitle.Render(strings.Join(tags, " · ")))
	b.WriteString("  " + theme.Difficulty(string(v.Question.Difficulty)).Render(string(v.Question.Difficulty)))
	if v.Attempt.Flagged {
		b.WriteString("  " + theme.Flagged.Render("[flagged]"))
	}
	if v.Timed {
		b.WriteString("  " + theme.Warning.Render(Clock(v.Remaining)+" left"))
	}
	b.WriteString("\n\n")

	b.WriteString(theme.Body.Bold(true).Width(width).Render(v.Question.Prompt))
	b.WriteString("\n\n")

	resolved := reveal && (v.Attempt.Submitted || v.Phase == session.PhaseCompleted)
	for i, opt := range v.Question.Options {
		chosen := v.Attempt.Selected != nil && *v.Attempt.Selected == i
		prefix := "  "
		if chosen {
			prefix = "▸ "
		}
		line := fmt.Sprintf("%s%s)  %s", prefix, question.OptionLabel(i), opt)

		switch {
		case resolved && i == v.Question.Correct:
			b.WriteString(theme.Correct.Render(line))
		case resolved && chosen:
			b.WriteString(theme.Incorrect.Render(line))
		case resolved:
			b.WriteString(theme.Subtitle.Render(line))
		case chosen:
			b.WriteString(theme.Selected.Render(line))
		default:
			b.WriteString(theme.Unselected.Render(line))
		}
		b.WriteString("\n")
	}

	if resolved && v.Attempt.Correct != nil {
		b.WriteString("\n")
		if *v.Attempt.Correct {
			b.WriteString(theme.Correct.Render(fmt.Sprintf("Correct! +%d points, %+d XP", v.Attempt.Points, v.Attempt.XP)))
		} else {
			b.WriteString(theme.Incorrect.Render(fmt.Sprintf("Incorrect. Answer: %s  (%+d XP)",
				question.OptionLabel(v.Question.Correct), v.Attempt.XP)))
		}
		if v.Question.Explanation != "" {
			b.WriteString("\n" + theme.Hint.Width(width).Render(v.Question.Explanation))
		}
		b.WriteString("\n")
	}

	return theme.Card.Render(strings.TrimRight(b.String(), "\n"))
}

// Clock formats a duration as mm:ss, or h:mm:ss past an hour.
func Clock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d.Round(time.Second) / time.Second)
	if secs >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", secs/3600, secs/60%60, secs%60)
	}
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
