package store

import (
	"context"
	"errors"
	"time"

	"github.com/satprep/satprep/internal/session"
	"github.com/satprep/satprep/internal/streak"
	"github.com/satprep/satprep/internal/weakness"
)

// ErrNotFinished rejects saving a session that has not completed.
var ErrNotFinished = errors.New("session is not finished")

// QueryOpts configures history queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To
}

// SessionRecord is the stored summary of one finished session.
type SessionRecord struct {
	ID         string        `json:"id"`
	Sequence   int64         `json:"sequence"`
	UserID     string        `json:"user_id"`
	Mode       string        `json:"mode"`
	Subject    string        `json:"subject"`
	Difficulty string        `json:"difficulty,omitempty"`
	Feedback   string        `json:"feedback"`
	TimeGoal   int           `json:"time_goal,omitempty"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time"`
	Duration   time.Duration `json:"duration"`
	Total      int           `json:"total"`
	Answered   int           `json:"answered"`
	Correct    int           `json:"correct"`
	Flagged    int           `json:"flagged"`
	Points     int           `json:"points"`
	XPEarned   int           `json:"xp_earned"`
	XPTotal    int           `json:"xp_total"`
}

// Accuracy is correct over answered, zero when nothing was answered.
func (r SessionRecord) Accuracy() float64 {
	if r.Answered == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Answered)
}

// UserStats are a user's running totals across finished sessions.
type UserStats struct {
	UserID    string    `json:"user_id"`
	Sessions  int       `json:"sessions"`
	Points    int       `json:"points"`
	XP        int       `json:"xp"`
	Answered  int       `json:"answered"`
	Correct   int       `json:"correct"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// HistoryRepo stores finished sessions and answers history queries.
type HistoryRepo interface {
	// SaveSession stores a completed session, its attempts and the user's
	// totals in one transaction. Saving the same session twice is a no-op.
	SaveSession(ctx context.Context, s *session.Session) error

	// RecentSessions returns the user's sessions, newest first.
	RecentSessions(ctx context.Context, userID string, opts QueryOpts) ([]SessionRecord, error)

	// AttemptRecords returns the user's answered attempts, oldest first.
	// Rows that fail validation are skipped.
	AttemptRecords(ctx context.Context, userID string, opts QueryOpts) ([]weakness.AttemptRecord, error)

	// Stats returns the user's totals; zero values when none exist.
	Stats(ctx context.Context, userID string) (UserStats, error)
}

// StreakRepo persists streak records. It satisfies streak.Repo.
type StreakRepo interface {
	Streak(ctx context.Context, userID string) (streak.Record, error)
	SaveStreak(ctx context.Context, userID string, r streak.Record) error
}

// AnalysisEventData captures a single AI analysis request.
type AnalysisEventData struct {
	UserID       string
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
}

// AnalysisEvent is a stored AnalysisEventData.
type AnalysisEvent struct {
	Sequence  int64
	Timestamp time.Time
	AnalysisEventData
}

// EventRepo provides append access to analysis events.
type EventRepo interface {
	// AppendAnalysis records an AI analysis request event.
	AppendAnalysis(ctx context.Context, data AnalysisEventData) error

	// AnalysisEvents returns events in sequence order.
	AnalysisEvents(ctx context.Context, opts QueryOpts) ([]AnalysisEvent, error)
}
