package session

import (
	"time"

	"github.com/satprep/satprep/internal/question"
	"github.com/satprep/satprep/internal/scoring"
)

// Phase is the lifecycle position of the engine's session.
type Phase int

const (
	PhaseNotStarted         Phase = iota // No active session
	PhaseInProgress                      // Serving questions
	PhaseAwaitingSubmission              // Immediate mode: current answer selected, not yet submitted
	PhaseCompleted                       // Ended; immutable
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not-started"
	case PhaseInProgress:
		return "in-progress"
	case PhaseAwaitingSubmission:
		return "awaiting-submission"
	case PhaseCompleted:
		return "completed"
	}
	return "unknown"
}

// FeedbackMode controls when answers are locked and scored.
type FeedbackMode string

const (
	// FeedbackImmediate locks and scores each question on an explicit submit.
	FeedbackImmediate FeedbackMode = "immediate"
	// FeedbackDeferred keeps answers editable until the session completes.
	FeedbackDeferred FeedbackMode = "deferred"
)

// Mode is the kind of practice run.
type Mode string

const (
	ModePractice Mode = "practice"
	ModeMarathon Mode = "marathon"
	ModeMock     Mode = "mock"
)

// Attempt records one question's resolution within a session.
type Attempt struct {
	QuestionID string              `json:"question_id"`
	Difficulty question.Difficulty `json:"difficulty"`
	Topics     []string            `json:"topics,omitempty"`

	// Selected is nil until the learner picks an option.
	Selected *int `json:"selected,omitempty"`

	// Correct is derived from Selected; nil while unanswered.
	Correct *bool `json:"correct,omitempty"`

	// TimeSpent is whole seconds the question was on screen.
	TimeSpent int  `json:"time_spent"`
	Flagged   bool `json:"flagged"`
	Submitted bool `json:"submitted"`

	Points int `json:"points"`
	XP     int `json:"xp"`
}

// Answered reports whether an option has been selected.
func (a Attempt) Answered() bool {
	return a.Selected != nil
}

// Session is one run through an ordered question set.
type Session struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	Mode       Mode                `json:"mode"`
	Subject    question.Subject    `json:"subject"`
	Difficulty question.Difficulty `json:"difficulty,omitempty"`
	Feedback   FeedbackMode        `json:"feedback"`

	// TimeGoal is the optional time limit in seconds; zero means untimed.
	TimeGoal int `json:"time_goal,omitempty"`

	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	LastModified time.Time  `json:"last_modified"`

	// Current is the index of the question on screen.
	Current  int       `json:"current"`
	Attempts []Attempt `json:"attempts"`

	Tally     scoring.Tally `json:"tally"`
	Completed bool          `json:"completed"`

	// Format is the serialization format version of the resumable slot.
	Format string `json:"format,omitempty"`
}

// Resumable reports whether the session may be restored: it has a start
// marker and no end marker.
func (s *Session) Resumable() bool {
	return s != nil && !s.StartTime.IsZero() && s.EndTime == nil && !s.Completed
}

// Elapsed returns the wall-clock time since start, or the full run length for
// an ended session. Never negative.
func (s *Session) Elapsed(now time.Time) time.Duration {
	end := now
	if s.EndTime != nil {
		end = *s.EndTime
	}
	d := end.Sub(s.StartTime)
	if d < 0 {
		return 0
	}
	return d
}

// Remaining returns the time left against the goal. ok is false for
// untimed sessions.
func (s *Session) Remaining(now time.Time) (d time.Duration, ok bool) {
	if s.TimeGoal <= 0 {
		return 0, false
	}
	d = time.Duration(s.TimeGoal)*time.Second - s.Elapsed(now)
	if d < 0 {
		d = 0
	}
	return d, true
}

// QuestionIDs returns the ordered question ids of the session.
func (s *Session) QuestionIDs() []string {
	ids := make([]string, len(s.Attempts))
	for i, a := range s.Attempts {
		ids[i] = a.QuestionID
	}
	return ids
}

// Clone returns a deep copy safe to hand to other goroutines.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.EndTime != nil {
		end := *s.EndTime
		c.EndTime = &end
	}
	c.Attempts = make([]Attempt, len(s.Attempts))
	for i, a := range s.Attempts {
		ac := a
		if a.Selected != nil {
			v := *a.Selected
			ac.Selected = &v
		}
		if a.Correct != nil {
			v := *a.Correct
			ac.Correct = &v
		}
		if a.Topics != nil {
			ac.Topics = append([]string(nil), a.Topics...)
		}
		c.Attempts[i] = ac
	}
	return &c
}

// Config is the configuration for beginning a session.
type Config struct {
	UserID     string
	Mode       Mode
	Subject    question.Subject
	Difficulty question.Difficulty
	Feedback   FeedbackMode

	// TimeGoal of zero runs an untimed, count-up session.
	TimeGoal time.Duration

	// StartXP is the learner's XP total before this session.
	StartXP int
}
