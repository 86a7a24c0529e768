package session

import (
	"errors"
	"testing"
	"time"

	"github.com/satprep/satprep/internal/question"
)

func newTestTracker(feedback FeedbackMode) (*Tracker, *Session) {
	qs := testQuestions(question.Easy, 2)
	sess := &Session{
		Feedback: feedback,
		Attempts: []Attempt{{QuestionID: qs[0].ID}, {QuestionID: qs[1].ID}},
	}
	tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	return NewTracker(sess, qs, now), sess
}

func TestTracker_IsCorrect(t *testing.T) {
	tr, _ := newTestTracker(FeedbackImmediate)

	tests := []struct {
		name   string
		option int
		want   Result
	}{
		{"unanswered", -1, ResultUnknown},
		{"wrong", 2, ResultIncorrect},
		{"right", 0, ResultCorrect},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.option >= 0 {
				if err := tr.Select(0, tt.option); err != nil {
					t.Fatalf("Select() error: %v", err)
				}
			}
			got, err := tr.IsCorrect(0)
			if err != nil {
				t.Fatalf("IsCorrect() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("IsCorrect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTracker_MutationsTouchLastModified(t *testing.T) {
	tr, sess := newTestTracker(FeedbackDeferred)

	if err := tr.Select(1, 1); err != nil {
		t.Fatal(err)
	}
	first := sess.LastModified
	if first.IsZero() {
		t.Fatal("Select did not update LastModified")
	}
	if _, err := tr.ToggleFlag(0); err != nil {
		t.Fatal(err)
	}
	if !sess.LastModified.After(first) {
		t.Error("ToggleFlag did not advance LastModified")
	}
}

func TestTracker_LockedInImmediateMode(t *testing.T) {
	tr, _ := newTestTracker(FeedbackImmediate)

	if _, err := tr.Lock(0); !errors.Is(err, ErrUnanswered) {
		t.Errorf("Lock(unanswered) = %v, want ErrUnanswered", err)
	}
	if err := tr.Select(0, 1); err != nil {
		t.Fatal(err)
	}
	locked, err := tr.Lock(0)
	if err != nil || !locked {
		t.Fatalf("Lock() = %v, %v; want true, nil", locked, err)
	}
	if locked, _ := tr.Lock(0); locked {
		t.Error("second Lock should report no change")
	}
	if err := tr.Select(0, 2); !errors.Is(err, ErrLocked) {
		t.Errorf("Select after lock = %v, want ErrLocked", err)
	}

	// Flags stay mutable on a submitted question.
	if _, err := tr.ToggleFlag(0); err != nil {
		t.Errorf("ToggleFlag after lock = %v", err)
	}
}

func TestTracker_ClosedSession(t *testing.T) {
	tr, sess := newTestTracker(FeedbackDeferred)
	sess.Completed = true

	if err := tr.Select(0, 0); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Select() = %v, want ErrSessionClosed", err)
	}
	if _, err := tr.ToggleFlag(0); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("ToggleFlag() = %v, want ErrSessionClosed", err)
	}
}

func TestTracker_OutOfRange(t *testing.T) {
	tr, _ := newTestTracker(FeedbackImmediate)

	if err := tr.Select(2, 0); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Select(2) = %v, want ErrOutOfRange", err)
	}
	if _, err := tr.IsCorrect(-1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("IsCorrect(-1) = %v, want ErrOutOfRange", err)
	}
	if _, err := tr.Question(9); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Question(9) = %v, want ErrOutOfRange", err)
	}
}
