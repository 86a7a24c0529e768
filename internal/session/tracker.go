package session

import (
	"fmt"
	"time"

	"github.com/satprep/satprep/internal/question"
)

// Result is the tri-state correctness of an attempt.
type Result int

const (
	ResultUnknown Result = iota // Not answered yet
	ResultCorrect
	ResultIncorrect
)

func (r Result) String() string {
	switch r {
	case ResultCorrect:
		return "correct"
	case ResultIncorrect:
		return "incorrect"
	}
	return "unknown"
}

// Tracker holds per-question selection and flag state for a session.
// It is not safe for concurrent use; the Engine serializes access.
type Tracker struct {
	sess      *Session
	questions []question.Question
	now       func() time.Time
}

// NewTracker binds a tracker to a session and its questions. The questions
// must be in the same order as sess.Attempts.
func NewTracker(sess *Session, questions []question.Question, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{sess: sess, questions: questions, now: now}
}

// Select records or overwrites the selection for question i.
func (t *Tracker) Select(i, option int) error {
	a, q, err := t.attempt(i)
	if err != nil {
		return err
	}
	if t.sess.Completed {
		return ErrSessionClosed
	}
	if option < 0 || option >= len(q.Options) {
		return fmt.Errorf("option %d for question %d: %w", option, i, ErrOutOfRange)
	}
	if a.Submitted && t.sess.Feedback == FeedbackImmediate {
		return fmt.Errorf("question %d: %w", i, ErrLocked)
	}

	sel := option
	correct := q.IsCorrect(option)
	a.Selected = &sel
	a.Correct = &correct
	t.touch()
	return nil
}

// ToggleFlag flips the review flag of question i and returns the new value.
func (t *Tracker) ToggleFlag(i int) (bool, error) {
	a, _, err := t.attempt(i)
	if err != nil {
		return false, err
	}
	if t.sess.Completed {
		return a.Flagged, ErrSessionClosed
	}
	a.Flagged = !a.Flagged
	t.touch()
	return a.Flagged, nil
}

// IsCorrect compares the stored selection with the correct option.
func (t *Tracker) IsCorrect(i int) (Result, error) {
	a, q, err := t.attempt(i)
	if err != nil {
		return ResultUnknown, err
	}
	if a.Selected == nil {
		return ResultUnknown, nil
	}
	if q.IsCorrect(*a.Selected) {
		return ResultCorrect, nil
	}
	return ResultIncorrect, nil
}

// Lock marks question i as submitted. It returns false if it already was.
func (t *Tracker) Lock(i int) (bool, error) {
	a, _, err := t.attempt(i)
	if err != nil {
		return false, err
	}
	if t.sess.Completed {
		return false, ErrSessionClosed
	}
	if a.Submitted {
		return false, nil
	}
	if a.Selected == nil {
		return false, fmt.Errorf("question %d: %w", i, ErrUnanswered)
	}
	a.Submitted = true
	t.touch()
	return true, nil
}

// Question returns question i.
func (t *Tracker) Question(i int) (question.Question, error) {
	if i < 0 || i >= len(t.questions) {
		return question.Question{}, fmt.Errorf("question %d: %w", i, ErrOutOfRange)
	}
	return t.questions[i], nil
}

// Pending reports whether question i still needs work: unanswered, or in
// immediate mode answered but not submitted.
func (t *Tracker) Pending(i int) bool {
	a := &t.sess.Attempts[i]
	if !a.Answered() {
		return true
	}
	return t.sess.Feedback == FeedbackImmediate && !a.Submitted
}

func (t *Tracker) attempt(i int) (*Attempt, question.Question, error) {
	if i < 0 || i >= len(t.sess.Attempts) || i >= len(t.questions) {
		return nil, question.Question{}, fmt.Errorf("question %d: %w", i, ErrOutOfRange)
	}
	return &t.sess.Attempts[i], t.questions[i], nil
}

func (t *Tracker) touch() {
	t.sess.LastModified = t.now()
}
