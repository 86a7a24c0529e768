package session

import "errors"

var (
	// ErrLocked rejects a mutation forbidden by the feedback mode or the
	// question's submission state.
	ErrLocked = errors.New("answer is locked")

	// ErrOutOfRange rejects a question or option index outside the set.
	ErrOutOfRange = errors.New("index out of range")

	// ErrSessionClosed rejects any mutation of a completed session.
	ErrSessionClosed = errors.New("session is closed")

	// ErrNotStarted rejects operations that need an active session.
	ErrNotStarted = errors.New("no active session")

	// ErrAlreadyStarted rejects Begin while a session is active.
	ErrAlreadyStarted = errors.New("session already in progress")

	// ErrUnanswered rejects submitting a question with no selection.
	ErrUnanswered = errors.New("question has no selected answer")

	// ErrNoQuestions rejects beginning a session with an empty question set.
	ErrNoQuestions = errors.New("no questions to practice")

	// ErrDuplicateQuestion rejects a question set that repeats an id.
	ErrDuplicateQuestion = errors.New("duplicate question id")

	// ErrQuestionMismatch rejects resuming with questions that differ from
	// the stored session's question ids.
	ErrQuestionMismatch = errors.New("questions do not match session")

	// ErrPersistence wraps a failed write of the finished session to history.
	ErrPersistence = errors.New("persist session")
)
