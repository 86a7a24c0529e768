package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/satprep/satprep/internal/question"
	"github.com/satprep/satprep/internal/scoring"
	"github.com/satprep/satprep/internal/session"
	"github.com/satprep/satprep/internal/streak"
	"github.com/satprep/satprep/internal/weakness"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := Open("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases,
		// so we skip journal_mode here. It is tested with file-based DBs.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestOpenFileUsesWAL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "satprep.db")
	s, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer s.Close()

	var mode string
	if err := s.DB().QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatal(err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestAutoMigrationCreatesTables(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	for _, table := range []string{"sessions", "attempts", "user_stats", "streaks", "analysis_events", "global_sequence"} {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}
}

func TestSequenceCounter(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()
	ctx := context.Background()

	sc, err := newSequenceCounter(db)
	if err != nil {
		t.Fatalf("new sequence counter: %v", err)
	}

	var seqs []int64
	for i := 0; i < 5; i++ {
		seq, err := sc.Next(ctx)
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		seqs = append(seqs, seq)
	}

	// Should be monotonically increasing starting from 1.
	for i, seq := range seqs {
		expected := int64(i + 1)
		if seq != expected {
			t.Errorf("seq[%d] = %d, want %d", i, seq, expected)
		}
	}
}

func intp(v int) *int    { return &v }
func boolp(v bool) *bool { return &v }

func finishedSession(id string, start time.Time, points, xp int) *session.Session {
	end := start.Add(5 * time.Minute)
	return &session.Session{
		ID:         id,
		UserID:     "u1",
		Mode:       session.ModePractice,
		Subject:    question.SubjectMath,
		Feedback:   session.FeedbackImmediate,
		StartTime:  start,
		EndTime:    &end,
		Completed:  true,
		Attempts: []session.Attempt{
			{QuestionID: "q1", Difficulty: question.Medium, Topics: []string{"algebra"}, Selected: intp(1), Correct: boolp(true), Submitted: true, Points: 6, XP: 25, TimeSpent: 30},
			{QuestionID: "q2", Difficulty: question.Medium, Topics: []string{"algebra", "ratios"}, Selected: intp(0), Correct: boolp(false), Submitted: true, XP: -15, TimeSpent: 40, Flagged: true},
			{QuestionID: "q3", Difficulty: question.Easy},
		},
		Tally: scoring.Tally{Points: points, XP: xp},
	}
}

func TestSaveSessionAndQueries(t *testing.T) {
	s := openTestStore(t)
	repo := s.HistoryRepo()
	ctx := context.Background()

	start := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	if err := repo.SaveSession(ctx, finishedSession("s1", start, 6, 10)); err != nil {
		t.Fatalf("save s1: %v", err)
	}
	if err := repo.SaveSession(ctx, finishedSession("s2", start.Add(time.Hour), 6, 20)); err != nil {
		t.Fatalf("save s2: %v", err)
	}
	// Saving again is a no-op.
	if err := repo.SaveSession(ctx, finishedSession("s1", start, 6, 10)); err != nil {
		t.Fatalf("resave s1: %v", err)
	}

	recs, err := repo.RecentSessions(ctx, "u1", QueryOpts{})
	if err != nil {
		t.Fatalf("recent sessions: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len(recent) = %d, want 2", len(recs))
	}
	if recs[0].ID != "s2" {
		t.Errorf("recent[0] = %s, want s2 (newest first)", recs[0].ID)
	}
	r := recs[1]
	if r.Total != 3 || r.Answered != 2 || r.Correct != 1 || r.Flagged != 1 {
		t.Errorf("s1 totals = %+v", r)
	}
	if !r.StartTime.Equal(start) || r.Duration != 5*time.Minute {
		t.Errorf("s1 times = %v, %v", r.StartTime, r.Duration)
	}
	if r.Accuracy() != 0.5 {
		t.Errorf("Accuracy() = %v, want 0.5", r.Accuracy())
	}

	limited, err := repo.RecentSessions(ctx, "u1", QueryOpts{Limit: 1})
	if err != nil || len(limited) != 1 {
		t.Errorf("limited = %d, %v; want 1", len(limited), err)
	}

	stats, err := repo.Stats(ctx, "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Sessions != 2 || stats.Points != 12 || stats.XP != 20 || stats.Answered != 4 || stats.Correct != 2 {
		t.Errorf("stats = %+v", stats)
	}

	attempts, err := repo.AttemptRecords(ctx, "u1", QueryOpts{})
	if err != nil {
		t.Fatalf("attempt records: %v", err)
	}
	if len(attempts) != 4 {
		t.Fatalf("len(attempts) = %d, want 4 (unanswered excluded)", len(attempts))
	}
	prof := weakness.Build(attempts).Topics()
	if len(prof) != 2 || prof[0].Topic != "algebra" || prof[0].Total != 4 || prof[0].Correct != 2 {
		t.Errorf("profile = %+v", prof)
	}
}

func TestSaveSessionRejectsUnfinished(t *testing.T) {
	s := openTestStore(t)
	sess := finishedSession("s1", time.Now(), 0, 0)
	sess.Completed = false
	sess.EndTime = nil

	err := s.HistoryRepo().SaveSession(context.Background(), sess)
	if !errors.Is(err, ErrNotFinished) {
		t.Errorf("SaveSession() = %v, want ErrNotFinished", err)
	}
}

func TestStatsEmpty(t *testing.T) {
	s := openTestStore(t)
	st, err := s.HistoryRepo().Stats(context.Background(), "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if st.Sessions != 0 || st.XP != 0 {
		t.Errorf("stats = %+v, want zero", st)
	}
}

func TestAllStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	start := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)

	low := finishedSession("a1", start, 3, 10)
	low.UserID = "ana"
	high := finishedSession("b1", start, 9, 50)
	high.UserID = "ben"
	for _, sess := range []*session.Session{low, high} {
		if err := s.HistoryRepo().SaveSession(ctx, sess); err != nil {
			t.Fatalf("save %s: %v", sess.ID, err)
		}
	}

	all, err := s.AllStats(ctx)
	if err != nil {
		t.Fatalf("AllStats: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len(AllStats) = %d, want 2", len(all))
	}
	if all[0].UserID != "ben" || all[0].Points != 9 || all[0].XP != 50 {
		t.Errorf("AllStats[0] = %+v, want ben first", all[0])
	}
	if all[1].UserID != "ana" || all[1].Sessions != 1 {
		t.Errorf("AllStats[1] = %+v", all[1])
	}
}

func TestStreakRepo(t *testing.T) {
	s := openTestStore(t)
	repo := s.StreakRepo()
	ctx := context.Background()

	rec, err := repo.Streak(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if rec != (streak.Record{}) {
		t.Errorf("empty streak = %+v", rec)
	}

	want := streak.Record{Current: 3, Longest: 7, LastActive: "2026-04-02"}
	if err := repo.SaveStreak(ctx, "u1", want); err != nil {
		t.Fatal(err)
	}
	want.Current = 4
	if err := repo.SaveStreak(ctx, "u1", want); err != nil {
		t.Fatal(err)
	}
	got, err := repo.Streak(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("Streak() = %+v, want %+v", got, want)
	}
}

func TestAnalysisEvents(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	for _, ok := range []bool{true, false} {
		err := repo.AppendAnalysis(ctx, AnalysisEventData{
			UserID: "u1", Provider: "mock", Model: "m", Purpose: "study-plan",
			InputTokens: 10, OutputTokens: 5, Success: ok,
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	evs, err := repo.AnalysisEvents(ctx, QueryOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 2 {
		t.Fatalf("len = %d, want 2", len(evs))
	}
	if !evs[0].Success || evs[1].Success {
		t.Errorf("success flags = %v, %v", evs[0].Success, evs[1].Success)
	}
	if evs[1].Sequence <= evs[0].Sequence {
		t.Error("sequence must increase")
	}

	after, err := repo.AnalysisEvents(ctx, QueryOpts{After: evs[0].Sequence})
	if err != nil || len(after) != 1 {
		t.Errorf("after = %d, %v; want 1", len(after), err)
	}
}
