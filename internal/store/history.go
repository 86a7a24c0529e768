package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/satprep/satprep/internal/session"
	"github.com/satprep/satprep/internal/weakness"
)

// historyRepo implements HistoryRepo with the SQL builders and the global
// sequence counter.
type historyRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

func (r *historyRepo) SaveSession(ctx context.Context, s *session.Session) (err error) {
	if !s.Completed || s.EndTime == nil {
		return fmt.Errorf("save session %s: %w", s.ID, ErrNotFinished)
	}

	exists, err := r.exists(ctx, s.ID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	// Taken before the transaction; the counter uses its own statement.
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	sum := session.Summarize(s, *s.EndTime)
	end := *s.EndTime

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	query, args := builder().Insert(tableSessions).
		Columns("id", "sequence", "user_id", "mode", "subject", "difficulty", "feedback",
			"time_goal", "start_time", "end_time", "duration_secs", "total", "answered",
			"correct", "flagged", "points", "xp_earned", "xp_total").
		Values(s.ID, seqNum, s.UserID, string(s.Mode), string(s.Subject), string(s.Difficulty),
			string(s.Feedback), s.TimeGoal, toMillis(s.StartTime), toMillis(end),
			int64(sum.Duration/time.Second), sum.Total, sum.Answered, sum.Correct, sum.Flagged,
			sum.Points, sum.XPEarned, sum.XP).
		Query()
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	ins := builder().Insert(tableAttempts).
		Columns("session_id", "position", "user_id", "question_id", "difficulty", "topics",
			"selected", "correct", "time_spent", "flagged", "points", "xp", "answered_at")
	for i, a := range s.Attempts {
		topics := a.Topics
		if len(topics) == 0 && s.Subject != "" {
			topics = []string{string(s.Subject)}
		}
		topicsJSON, jerr := json.Marshal(topics)
		if jerr != nil {
			return fmt.Errorf("encode topics: %w", jerr)
		}
		var selected, correct any
		if a.Selected != nil {
			selected = *a.Selected
		}
		if a.Correct != nil {
			correct = boolInt(*a.Correct)
		}
		ins.Values(s.ID, i, s.UserID, a.QuestionID, string(a.Difficulty), string(topicsJSON),
			selected, correct, a.TimeSpent, boolInt(a.Flagged), a.Points, a.XP, toMillis(end))
	}
	query, args = ins.Query()
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert attempts: %w", err)
	}

	query, args = builder().Insert(tableUserStats).
		Columns("user_id", "sessions", "points", "xp", "answered", "correct", "updated_at").
		Values(s.UserID, 1, sum.Points, sum.XP, sum.Answered, sum.Correct, toMillis(end)).
		OnConflict(
			entsql.ConflictColumns("user_id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.Add("sessions", 1)
				u.Add("points", sum.Points)
				u.Set("xp", sum.XP)
				u.Add("answered", sum.Answered)
				u.Add("correct", sum.Correct)
				u.Set("updated_at", toMillis(end))
			}),
		).
		Query()
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update user stats: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}
	return nil
}

func (r *historyRepo) exists(ctx context.Context, id string) (bool, error) {
	query, args := builder().Select("id").
		From(entsql.Table(tableSessions)).
		Where(entsql.EQ("id", id)).
		Limit(1).
		Query()
	var got string
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query session %s: %w", id, err)
	}
	return true, nil
}

func (r *historyRepo) RecentSessions(ctx context.Context, userID string, opts QueryOpts) ([]SessionRecord, error) {
	preds := []*entsql.Predicate{entsql.EQ("user_id", userID)}
	preds = append(preds, seqPreds(opts)...)
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE("start_time", toMillis(opts.From)))
	}
	if !opts.To.IsZero() {
		preds = append(preds, entsql.LTE("start_time", toMillis(opts.To)))
	}

	sel := builder().Select("id", "sequence", "user_id", "mode", "subject", "difficulty",
		"feedback", "time_goal", "start_time", "end_time", "duration_secs", "total",
		"answered", "correct", "flagged", "points", "xp_earned", "xp_total").
		From(entsql.Table(tableSessions)).
		Where(entsql.And(preds...)).
		OrderBy(entsql.Desc("sequence"))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
	query, args := sel.Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var (
			rec        SessionRecord
			start, end int64
			dur        int64
		)
		if err := rows.Scan(&rec.ID, &rec.Sequence, &rec.UserID, &rec.Mode, &rec.Subject,
			&rec.Difficulty, &rec.Feedback, &rec.TimeGoal, &start, &end, &dur, &rec.Total,
			&rec.Answered, &rec.Correct, &rec.Flagged, &rec.Points, &rec.XPEarned, &rec.XPTotal); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		rec.StartTime = fromMillis(start)
		rec.EndTime = fromMillis(end)
		rec.Duration = time.Duration(dur) * time.Second
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

func (r *historyRepo) AttemptRecords(ctx context.Context, userID string, opts QueryOpts) ([]weakness.AttemptRecord, error) {
	preds := []*entsql.Predicate{
		entsql.EQ("user_id", userID),
		entsql.NotNull("selected"),
	}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE("answered_at", toMillis(opts.From)))
	}
	if !opts.To.IsZero() {
		preds = append(preds, entsql.LTE("answered_at", toMillis(opts.To)))
	}

	sel := builder().Select("session_id", "question_id", "topics", "correct", "answered_at", "time_spent").
		From(entsql.Table(tableAttempts)).
		Where(entsql.And(preds...)).
		OrderBy(entsql.Asc("answered_at"), entsql.Asc("position"))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
	query, args := sel.Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []weakness.AttemptRecord
	for rows.Next() {
		var (
			sessionID, questionID, topicsJSON string
			correct                           sql.NullInt64
			answeredAt                        int64
			timeSpent                         int
		)
		if err := rows.Scan(&sessionID, &questionID, &topicsJSON, &correct, &answeredAt, &timeSpent); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		var topics []string
		if err := json.Unmarshal([]byte(topicsJSON), &topics); err != nil {
			continue
		}
		rec, err := weakness.NewAttemptRecord(sessionID, questionID, topics,
			correct.Valid && correct.Int64 == 1, fromMillis(answeredAt), timeSpent)
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return out, nil
}

func (r *historyRepo) Stats(ctx context.Context, userID string) (UserStats, error) {
	query, args := builder().Select("sessions", "points", "xp", "answered", "correct", "updated_at").
		From(entsql.Table(tableUserStats)).
		Where(entsql.EQ("user_id", userID)).
		Query()

	st := UserStats{UserID: userID}
	var updated int64
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&st.Sessions, &st.Points, &st.XP, &st.Answered, &st.Correct, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("query user stats: %w", err)
	}
	st.UpdatedAt = fromMillis(updated)
	return st, nil
}

func seqPreds(opts QueryOpts) []*entsql.Predicate {
	var preds []*entsql.Predicate
	if opts.After > 0 {
		preds = append(preds, entsql.GT("sequence", opts.After))
	}
	if opts.Before > 0 {
		preds = append(preds, entsql.LT("sequence", opts.Before))
	}
	return preds
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// AllStats returns every user's totals, highest points first.
func (s *Store) AllStats(ctx context.Context) ([]UserStats, error) {
	query, args := builder().Select("user_id", "sessions", "points", "xp", "answered", "correct", "updated_at").
		From(entsql.Table(tableUserStats)).
		OrderBy(entsql.Desc("points"), "user_id").
		Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query all user stats: %w", err)
	}
	defer rows.Close()

	var out []UserStats
	for rows.Next() {
		var st UserStats
		var updated int64
		if err := rows.Scan(&st.UserID, &st.Sessions, &st.Points, &st.XP, &st.Answered, &st.Correct, &updated); err != nil {
			return nil, fmt.Errorf("scan user stats: %w", err)
		}
		st.UpdatedAt = fromMillis(updated)
		out = append(out, st)
	}
	return out, rows.Err()
}
