package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satprep/satprep/internal/question"
	"github.com/satprep/satprep/internal/scoring"
	"github.com/satprep/satprep/internal/timer"
)

// SlotStore holds the single resumable session snapshot.
type SlotStore interface {
	Save(s *Session) error
	Clear() error
}

// HistoryWriter durably stores finished sessions keyed by user and session id.
type HistoryWriter interface {
	SaveSession(ctx context.Context, s *Session) error
}

// Aggregator receives finished sessions for points/leaderboard totals.
// Failures are logged and never block completion.
type Aggregator interface {
	RecordSession(ctx context.Context, s *Session) error
}

// ActivityRecorder notes that the user practiced on a given day.
type ActivityRecorder interface {
	RecordActivity(ctx context.Context, userID string, day time.Time) error
}

// Options holds the collaborators of an Engine. Only History is required for
// finished sessions to be kept; every other field may be nil.
type Options struct {
	Slot     SlotStore
	History  HistoryWriter
	Board    Aggregator
	Activity ActivityRecorder
	Logger   *zap.Logger

	// TickInterval overrides the one-second timer tick. Used by tests.
	TickInterval time.Duration

	// OnTick receives the timer value after each tick.
	OnTick func(value int)

	// OnExpire is called after the time goal ran out and the session was
	// completed. err is the result of the history write.
	OnExpire func(err error)

	Now func() time.Time
}

// Engine drives one session at a time through its lifecycle:
// Begin, Answer/Submit/ToggleFlag/Goto, NextOrComplete or Abandon.
// All methods are safe for concurrent use; timer ticks arrive on their own
// goroutine and are serialized with user actions.
type Engine struct {
	mu   sync.Mutex
	opts Options
	log  *zap.Logger
	now  func() time.Time

	sess    *Session
	tracker *Tracker
	clock   *timer.Timer

	// pending is a completed session whose history write failed.
	pending *Session
}

// NewEngine creates an idle engine.
func NewEngine(opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{opts: opts, log: log, now: now}
}

// Begin starts a new session over questions, in the given order.
func (e *Engine) Begin(cfg Config, questions []question.Question) (*Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess != nil && !e.sess.Completed {
		return nil, ErrAlreadyStarted
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	seen := make(map[string]bool, len(questions))
	for _, q := range questions {
		if seen[q.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateQuestion, q.ID)
		}
		seen[q.ID] = true
	}

	feedback := cfg.Feedback
	if feedback == "" {
		feedback = FeedbackImmediate
	}
	mode := cfg.Mode
	if mode == "" {
		mode = ModePractice
	}

	now := e.now()
	sess := &Session{
		ID:           uuid.New().String(),
		UserID:       cfg.UserID,
		Mode:         mode,
		Subject:      cfg.Subject,
		Difficulty:   cfg.Difficulty,
		Feedback:     feedback,
		TimeGoal:     int(cfg.TimeGoal / time.Second),
		StartTime:    now,
		LastModified: now,
		Attempts:     make([]Attempt, len(questions)),
		Tally:        scoring.NewTally(cfg.StartXP),
	}
	for i, q := range questions {
		sess.Attempts[i] = Attempt{
			QuestionID: q.ID,
			Difficulty: q.Difficulty,
			Topics:     append([]string(nil), q.Topics...),
		}
	}

	e.install(sess, questions)
	e.saveSlot()

	e.log.Info("session started",
		zap.String("session_id", sess.ID),
		zap.String("mode", string(sess.Mode)),
		zap.String("feedback", string(sess.Feedback)),
		zap.Int("questions", len(questions)),
		zap.Int("time_goal", sess.TimeGoal),
	)
	return sess.Clone(), nil
}

// Resume restores a session loaded from the resumable slot. questions must
// match the session's question ids in order. A timed session whose goal has
// already passed is completed immediately.
func (e *Engine) Resume(ctx context.Context, sess *Session, questions []question.Question) error {
	if !sess.Resumable() {
		return fmt.Errorf("resume: %w", ErrSessionClosed)
	}
	ids := sess.QuestionIDs()
	if len(ids) != len(questions) {
		return fmt.Errorf("resume: %d questions for %d attempts: %w", len(questions), len(ids), ErrQuestionMismatch)
	}
	for i, q := range questions {
		if q.ID != ids[i] {
			return fmt.Errorf("resume: question %d is %q, want %q: %w", i, q.ID, ids[i], ErrQuestionMismatch)
		}
	}

	e.mu.Lock()
	if e.sess != nil && !e.sess.Completed {
		e.mu.Unlock()
		return ErrAlreadyStarted
	}
	sess = sess.Clone()
	if sess.Current < 0 || sess.Current >= len(sess.Attempts) {
		sess.Current = 0
	}
	e.install(sess, questions)
	expired := false
	if left, ok := sess.Remaining(e.now()); ok && left <= 0 {
		expired = true
	}
	e.mu.Unlock()

	e.log.Info("session resumed", zap.String("session_id", sess.ID), zap.Bool("expired", expired))
	if expired {
		return e.complete(ctx, sess)
	}
	return nil
}

// install makes sess the active session and starts its timer. Must be
// called with e.mu held.
func (e *Engine) install(sess *Session, questions []question.Question) {
	if e.clock != nil {
		e.clock.Stop()
	}
	e.sess = sess
	e.tracker = NewTracker(sess, questions, e.now)

	cfg := timer.Config{
		Direction: timer.CountUp,
		AutoStart: true,
		Interval:  e.opts.TickInterval,
		OnTick:    e.onTick(sess),
	}
	elapsed := int(sess.Elapsed(e.now()) / time.Second)
	if left, ok := sess.Remaining(e.now()); ok {
		cfg.Direction = timer.CountDown
		cfg.Initial = int((left + time.Second - 1) / time.Second)
		cfg.OnExpire = e.onExpire(sess)
	} else {
		cfg.Initial = elapsed
	}
	e.clock = timer.New(cfg)
}

// Answer records option as the selection for question i.
func (e *Engine) Answer(i, option int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireActive(); err != nil {
		return err
	}
	if err := e.tracker.Select(i, option); err != nil {
		return err
	}
	e.saveSlot()
	return nil
}

// ToggleFlag flips the review flag of question i.
func (e *Engine) ToggleFlag(i int) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireActive(); err != nil {
		return false, err
	}
	flagged, err := e.tracker.ToggleFlag(i)
	if err != nil {
		return flagged, err
	}
	e.saveSlot()
	return flagged, nil
}

// Submit locks and scores question i. It is only available in immediate
// feedback mode; submitting an already submitted question returns its
// points unchanged.
func (e *Engine) Submit(i int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireActive(); err != nil {
		return 0, err
	}
	if e.sess.Feedback != FeedbackImmediate {
		return 0, fmt.Errorf("submit in %s mode: %w", e.sess.Feedback, ErrLocked)
	}
	locked, err := e.tracker.Lock(i)
	if err != nil {
		return 0, err
	}
	a := &e.sess.Attempts[i]
	if !locked {
		return a.Points, nil
	}
	e.score(a)
	e.saveSlot()
	return a.Points, nil
}

// IsCorrect reports the correctness of question i's selection.
func (e *Engine) IsCorrect(i int) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess == nil {
		return ResultUnknown, ErrNotStarted
	}
	return e.tracker.IsCorrect(i)
}

// Goto moves the pointer to question i.
func (e *Engine) Goto(i int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireActive(); err != nil {
		return err
	}
	if i < 0 || i >= len(e.sess.Attempts) {
		return fmt.Errorf("question %d: %w", i, ErrOutOfRange)
	}
	e.sess.Current = i
	e.sess.LastModified = e.now()
	e.saveSlot()
	return nil
}

// NextOrComplete advances to the next question that is still unanswered or
// unsubmitted, searching forward from the current one and wrapping around
// to skipped questions. When no question other than the current one is
// pending the session is completed and persisted; completed reports which happened. A non-nil
// error with completed set means the history write failed and may be
// retried with RetryPersist.
func (e *Engine) NextOrComplete(ctx context.Context) (completed bool, err error) {
	e.mu.Lock()
	if err := e.requireActive(); err != nil {
		e.mu.Unlock()
		return false, err
	}
	n := len(e.sess.Attempts)
	for k := 1; k < n; k++ {
		if j := (e.sess.Current + k) % n; e.tracker.Pending(j) {
			e.sess.Current = j
			e.sess.LastModified = e.now()
			e.saveSlot()
			e.mu.Unlock()
			return false, nil
		}
	}
	sess := e.sess
	e.mu.Unlock()

	return true, e.complete(ctx, sess)
}

// Complete ends the session now regardless of remaining questions.
func (e *Engine) Complete(ctx context.Context) error {
	e.mu.Lock()
	if err := e.requireActive(); err != nil {
		e.mu.Unlock()
		return err
	}
	sess := e.sess
	e.mu.Unlock()
	return e.complete(ctx, sess)
}

// Abandon discards the active session and clears the resumable slot without
// writing history.
func (e *Engine) Abandon() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess == nil {
		return nil
	}
	id := e.sess.ID
	e.stopClock()
	e.sess = nil
	e.tracker = nil

	e.log.Info("session abandoned", zap.String("session_id", id))
	if e.opts.Slot == nil {
		return nil
	}
	if err := e.opts.Slot.Clear(); err != nil {
		return fmt.Errorf("clear resumable slot: %w", err)
	}
	return nil
}

// RetryPersist re-attempts the history write of the last completed session.
// It returns nil when nothing is pending.
func (e *Engine) RetryPersist(ctx context.Context) error {
	e.mu.Lock()
	snap := e.pending
	e.mu.Unlock()

	if snap == nil {
		return nil
	}
	return e.persist(ctx, snap)
}

// PendingPersist reports whether a finished session still awaits its
// history write.
func (e *Engine) PendingPersist() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending != nil
}

// Suspend saves the active session, including time spent on the current
// question, to the resumable slot and stops the timer.
func (e *Engine) Suspend() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.saveSlot()
	e.stopClock()
}

// Close stops the timer without writing the slot, so a slot rewritten by
// another process is left as it is.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopClock()
}

// Phase returns the lifecycle position of the active session.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase()
}

func (e *Engine) phase() Phase {
	switch {
	case e.sess == nil:
		return PhaseNotStarted
	case e.sess.Completed:
		return PhaseCompleted
	}
	a := e.sess.Attempts[e.sess.Current]
	if e.sess.Feedback == FeedbackImmediate && a.Answered() && !a.Submitted {
		return PhaseAwaitingSubmission
	}
	return PhaseInProgress
}

// Session returns a copy of the active session, or nil.
func (e *Engine) Session() *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess.Clone()
}

// View is a snapshot of the question on screen.
type View struct {
	Index     int
	Total     int
	Question  question.Question
	Attempt   Attempt
	Phase     Phase
	Remaining time.Duration
	Timed     bool
}

// Current returns a snapshot of the question on screen.
func (e *Engine) Current() (View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess == nil {
		return View{}, ErrNotStarted
	}
	i := e.sess.Current
	q, err := e.tracker.Question(i)
	if err != nil {
		return View{}, err
	}
	c := e.sess.Clone()
	v := View{
		Index:    i,
		Total:    len(e.sess.Attempts),
		Question: q,
		Attempt:  c.Attempts[i],
		Phase:    e.phase(),
	}
	v.Remaining, v.Timed = e.sess.Remaining(e.now())
	return v, nil
}

// Summary summarizes the active or last completed session.
func (e *Engine) Summary() (Summary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess == nil {
		return Summary{}, ErrNotStarted
	}
	return Summarize(e.sess, e.now()), nil
}

func (e *Engine) requireActive() error {
	if e.sess == nil {
		return ErrNotStarted
	}
	if e.sess.Completed {
		return ErrSessionClosed
	}
	return nil
}

// score applies the scoring tables to a locked attempt. Must be called with
// e.mu held.
func (e *Engine) score(a *Attempt) {
	correct := a.Correct != nil && *a.Correct
	a.Points, a.XP = e.sess.Tally.Record(a.Difficulty, correct)
}

// complete freezes sess, clears the slot and writes history. It is a no-op
// if sess is no longer the active session or is already completed.
func (e *Engine) complete(ctx context.Context, sess *Session) error {
	e.mu.Lock()
	if e.sess != sess || sess.Completed {
		e.mu.Unlock()
		return nil
	}
	e.stopClock()
	for i := range sess.Attempts {
		a := &sess.Attempts[i]
		if a.Submitted || !a.Answered() {
			continue
		}
		a.Submitted = true
		e.score(a)
	}
	end := e.now()
	sess.EndTime = &end
	sess.LastModified = end
	sess.Completed = true
	snap := sess.Clone()
	e.pending = snap
	e.mu.Unlock()

	if e.opts.Slot != nil {
		if err := e.opts.Slot.Clear(); err != nil {
			e.log.Warn("clear resumable slot", zap.String("session_id", snap.ID), zap.Error(err))
		}
	}

	e.log.Info("session completed",
		zap.String("session_id", snap.ID),
		zap.Int("points", snap.Tally.Points),
		zap.Int("xp", snap.Tally.XP),
	)
	return e.persist(ctx, snap)
}

// persist writes snap to history, then feeds the best-effort aggregators.
func (e *Engine) persist(ctx context.Context, snap *Session) error {
	if e.opts.History != nil {
		if err := e.opts.History.SaveSession(ctx, snap); err != nil {
			e.log.Error("save finished session", zap.String("session_id", snap.ID), zap.Error(err))
			return fmt.Errorf("%w %s: %w", ErrPersistence, snap.ID, err)
		}
	}

	e.mu.Lock()
	if e.pending == snap {
		e.pending = nil
	}
	e.mu.Unlock()

	if e.opts.Board != nil {
		if err := e.opts.Board.RecordSession(ctx, snap); err != nil {
			e.log.Warn("leaderboard sync failed", zap.String("session_id", snap.ID), zap.Error(err))
		}
	}
	if e.opts.Activity != nil {
		day := snap.StartTime
		if snap.EndTime != nil {
			day = *snap.EndTime
		}
		if err := e.opts.Activity.RecordActivity(ctx, snap.UserID, day); err != nil {
			e.log.Warn("record activity", zap.String("session_id", snap.ID), zap.Error(err))
		}
	}
	return nil
}

// saveSlot snapshots the active session into the resumable slot. Failures
// are logged; the in-memory session stays authoritative. Must be called with
// e.mu held.
func (e *Engine) saveSlot() {
	if e.opts.Slot == nil || e.sess == nil || e.sess.Completed {
		return
	}
	if err := e.opts.Slot.Save(e.sess.Clone()); err != nil {
		e.log.Warn("save resumable slot", zap.String("session_id", e.sess.ID), zap.Error(err))
	}
}

// stopClock must be called with e.mu held.
func (e *Engine) stopClock() {
	if e.clock != nil {
		e.clock.Stop()
		e.clock = nil
	}
}

func (e *Engine) onTick(sess *Session) func(int) {
	return func(value int) {
		e.mu.Lock()
		if e.sess != sess || sess.Completed {
			e.mu.Unlock()
			return
		}
		sess.Attempts[sess.Current].TimeSpent++
		cb := e.opts.OnTick
		e.mu.Unlock()

		if cb != nil {
			cb(value)
		}
	}
}

func (e *Engine) onExpire(sess *Session) func() {
	return func() {
		e.mu.Lock()
		active := e.sess == sess && !sess.Completed
		e.mu.Unlock()
		if !active {
			return
		}

		e.log.Info("time goal reached", zap.String("session_id", sess.ID))
		err := e.complete(context.Background(), sess)
		if cb := e.opts.OnExpire; cb != nil {
			cb(err)
		}
	}
}
