package question

import (
	"errors"
	"fmt"
	"strings"
)

// Difficulty is the difficulty tag attached to a question.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// ParseDifficulty normalizes a difficulty string. Unknown values are returned
// as-is so scoring can apply its fallback.
func ParseDifficulty(s string) Difficulty {
	return Difficulty(strings.ToLower(strings.TrimSpace(s)))
}

// Known reports whether d is one of the three recognized tags.
func (d Difficulty) Known() bool {
	switch d {
	case Easy, Medium, Hard:
		return true
	}
	return false
}

// Subject is the SAT section a question belongs to.
type Subject string

const (
	SubjectMath    Subject = "math"
	SubjectReading Subject = "reading"
	SubjectWriting Subject = "writing"
)

// Question is a single multiple-choice item. Questions are immutable once
// loaded; sessions only ever hold them by value.
type Question struct {
	ID         string     `json:"id"`
	Prompt     string     `json:"prompt"`
	Options    []string   `json:"options"`
	Correct    int        `json:"correct"`
	Difficulty Difficulty `json:"difficulty"`
	Subject    Subject    `json:"subject"`
	Topics     []string   `json:"topics"`
	// Explanation is shown after the answer is revealed. Optional.
	Explanation string `json:"explanation,omitempty"`
}

var (
	ErrMissingID      = errors.New("question id is required")
	ErrMissingPrompt  = errors.New("question prompt is required")
	ErrTooFewOptions  = errors.New("question needs at least two options")
	ErrCorrectIndex   = errors.New("correct option index out of range")
	ErrDuplicateTopic = errors.New("duplicate topic tag")
)

// Validate checks the structural invariants of a question.
func (q Question) Validate() error {
	if strings.TrimSpace(q.ID) == "" {
		return ErrMissingID
	}
	if strings.TrimSpace(q.Prompt) == "" {
		return fmt.Errorf("%s: %w", q.ID, ErrMissingPrompt)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("%s: %w", q.ID, ErrTooFewOptions)
	}
	if q.Correct < 0 || q.Correct >= len(q.Options) {
		return fmt.Errorf("%s: %w (%d of %d)", q.ID, ErrCorrectIndex, q.Correct, len(q.Options))
	}
	seen := make(map[string]bool, len(q.Topics))
	for _, t := range q.Topics {
		if seen[t] {
			return fmt.Errorf("%s: %w %q", q.ID, ErrDuplicateTopic, t)
		}
		seen[t] = true
	}
	return nil
}

// IsCorrect reports whether option is the correct choice.
func (q Question) IsCorrect(option int) bool {
	return option == q.Correct
}

// PrimaryTopic returns the first topic tag, falling back to the subject.
func (q Question) PrimaryTopic() string {
	if len(q.Topics) > 0 {
		return q.Topics[0]
	}
	return string(q.Subject)
}

// OptionLabel returns the letter label ("A", "B", ...) for an option index.
func OptionLabel(i int) string {
	if i < 0 || i >= 26 {
		return "?"
	}
	return string(rune('A' + i))
}

// ParseOptionLabel converts a letter label back to an option index.
// Returns -1 for anything that is not a single letter.
func ParseOptionLabel(s string) int {
	s = strings.TrimSpace(strings.ToUpper(s))
	if len(s) != 1 || s[0] < 'A' || s[0] > 'Z' {
		return -1
	}
	return int(s[0] - 'A')
}
