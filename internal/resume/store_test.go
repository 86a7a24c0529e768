package resume

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satprep/satprep/internal/kv"
	"github.com/satprep/satprep/internal/question"
	"github.com/satprep/satprep/internal/scoring"
	"github.com/satprep/satprep/internal/session"
)

const slotKey = "current-session"

func newTestStore(t *testing.T) (*Store, *kv.Store) {
	t.Helper()
	kvs, err := kv.Open(t.TempDir(), nil)
	require.NoError(t, err)
	return NewStore(kvs, slotKey, nil), kvs
}

func testSession() *session.Session {
	sel := 2
	correct := true
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	return &session.Session{
		ID:           "9b1d6c1e-3f3a-4a57-9c56-1c0f4f1b8a10",
		UserID:       "u1",
		Mode:         session.ModeMarathon,
		Subject:      question.SubjectMath,
		Difficulty:   question.Hard,
		Feedback:     session.FeedbackImmediate,
		TimeGoal:     600,
		StartTime:    start,
		LastModified: start.Add(time.Minute),
		Current:      1,
		Attempts: []session.Attempt{
			{QuestionID: "m-1", Difficulty: question.Hard, Topics: []string{"algebra"}, Selected: &sel, Correct: &correct, Submitted: true, Points: 9, XP: 50, TimeSpent: 42},
			{QuestionID: "m-2", Difficulty: question.Hard, Flagged: true},
		},
		Tally: scoring.Tally{Points: 9, XP: 50},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	want := testSession()

	require.NoError(t, s.Save(want))
	got, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, FormatVersion, got.Format)
	got.Format = ""
	assert.Equal(t, want, got)
}

func TestLoadEmptySlot(t *testing.T) {
	s, _ := newTestStore(t)
	got, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLoadMalformedIsAbsent(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid json", `{"id": "x", "attempts": [`},
		{"wrong type", `[1,2,3]`},
		{"no attempts", `{"id":"x","start_time":"2026-01-01T00:00:00Z","attempts":[]}`},
		{"future major", `{"id":"x","format":"v2.0.0","start_time":"2026-01-01T00:00:00Z","attempts":[{"question_id":"q"}]}`},
		{"bad version", `{"id":"x","format":"one","start_time":"2026-01-01T00:00:00Z","attempts":[{"question_id":"q"}]}`},
		{"duplicate ids", `{"id":"x","start_time":"2026-01-01T00:00:00Z","attempts":[{"question_id":"q"},{"question_id":"q"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, kvs := newTestStore(t)
			require.NoError(t, kvs.Set(slotKey, []byte(tt.data)))

			got, err := s.Load()
			require.NoError(t, err)
			assert.Nil(t, got)

			_, err = kvs.Get(slotKey)
			assert.ErrorIs(t, err, kv.ErrNotFound, "malformed slot should be cleared")
		})
	}
}

func TestDecodeWrapsMalformed(t *testing.T) {
	_, err := Decode([]byte("nope"))
	assert.True(t, errors.Is(err, ErrMalformedState))
}

func TestEndedSessionNotResumable(t *testing.T) {
	s, kvs := newTestStore(t)

	sess := testSession()
	end := sess.StartTime.Add(10 * time.Minute)
	sess.EndTime = &end
	assert.ErrorIs(t, s.Save(sess), ErrNotResumable)

	// A slot written elsewhere with end_time set is still rejected.
	data := `{"id":"x","start_time":"2026-01-01T00:00:00Z","end_time":"2026-01-01T00:10:00Z","attempts":[{"question_id":"q"}]}`
	require.NoError(t, kvs.Set(slotKey, []byte(data)))
	got, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClear(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Save(testSession()))
	require.NoError(t, s.Clear())
	got, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, got)
}

type changes struct {
	mu   sync.Mutex
	seen []*session.Session
}

func (c *changes) record(s *session.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, s)
}

func (c *changes) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

func (c *changes) last() *session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seen[len(c.seen)-1]
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWatcherReportsExternalChanges(t *testing.T) {
	s, kvs := newTestStore(t)
	require.NoError(t, s.Save(testSession()))

	var c changes
	w := s.Watch(context.Background(), 20*time.Millisecond, c.record)
	defer w.Stop()

	// The baseline is not reported.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, c.len())

	// Another process updates the slot.
	other := NewStore(kvs, slotKey, nil)
	sess := testSession()
	sess.LastModified = sess.LastModified.Add(time.Minute)
	require.NoError(t, other.Save(sess))
	waitFor(t, func() bool { return c.len() >= 1 })
	assert.Equal(t, sess.LastModified, c.last().LastModified)

	// Another process finishes the session.
	require.NoError(t, other.Clear())
	waitFor(t, func() bool { return c.len() >= 2 && c.last() == nil })
}

func TestWatcherReconcileIsIdempotent(t *testing.T) {
	s, _ := newTestStore(t)

	var c changes
	w := s.Watch(context.Background(), time.Hour, c.record)
	defer w.Stop()

	require.NoError(t, s.Save(testSession()))
	w.Reconcile()
	w.Reconcile()
	w.Reconcile()

	// The fs notification may also have fired, but only one change exists.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, c.len())
}

func TestWatcherStopEndsCallbacks(t *testing.T) {
	s, _ := newTestStore(t)

	var c changes
	w := s.Watch(context.Background(), 10*time.Millisecond, c.record)
	w.Stop()

	require.NoError(t, s.Save(testSession()))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, c.len())
}
