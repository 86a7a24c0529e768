package leaderboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satprep/satprep/internal/config"
	"github.com/satprep/satprep/internal/scoring"
	"github.com/satprep/satprep/internal/session"
)

func newTestBoard(t *testing.T) (*Leaderboard, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, ""), mr
}

func finished(id, user string, points, xp int) *session.Session {
	return &session.Session{ID: id, UserID: user, Completed: true, Tally: scoring.Tally{Points: points, XP: xp}}
}

func TestRecordSessionAndTop(t *testing.T) {
	lb, _ := newTestBoard(t)
	ctx := context.Background()

	require.NoError(t, lb.RecordSession(ctx, finished("s1", "alice", 12, 60)))
	require.NoError(t, lb.RecordSession(ctx, finished("s2", "bob", 18, 40)))
	require.NoError(t, lb.RecordSession(ctx, finished("s3", "alice", 9, 95)))
	// Replays of the same session are ignored.
	require.NoError(t, lb.RecordSession(ctx, finished("s3", "alice", 9, 95)))

	top, err := lb.Top(ctx, BoardPoints, 10)
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{UserID: "alice", Score: 21, Rank: 1},
		{UserID: "bob", Score: 18, Rank: 2},
	}, top)

	xp, err := lb.Top(ctx, BoardXP, 1)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{UserID: "alice", Score: 95, Rank: 1}}, xp)
}

func TestRank(t *testing.T) {
	lb, _ := newTestBoard(t)
	ctx := context.Background()

	require.NoError(t, lb.RecordSession(ctx, finished("s1", "alice", 3, 10)))
	require.NoError(t, lb.RecordSession(ctx, finished("s2", "bob", 6, 25)))

	e, found, err := lb.Rank(ctx, BoardPoints, "alice")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, Entry{UserID: "alice", Score: 3, Rank: 2}, e)

	_, found, err = lb.Rank(ctx, BoardPoints, "carol")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRecordSessionFailsWhenRedisDown(t *testing.T) {
	lb, mr := newTestBoard(t)
	mr.Close()

	err := lb.RecordSession(context.Background(), finished("s1", "alice", 3, 10))
	assert.Error(t, err)
}

func TestRecordSessionRetriesAfterFailedWrite(t *testing.T) {
	lb, mr := newTestBoard(t)
	ctx := context.Background()

	// A string under the points key makes ZINCRBY fail with WRONGTYPE.
	require.NoError(t, mr.Set(lb.key(BoardPoints), "corrupt"))
	require.Error(t, lb.RecordSession(ctx, finished("s1", "alice", 9, 50)))
	assert.False(t, mr.Exists(lb.prefix+":recorded:s1"), "failed write leaves the session unrecorded")

	mr.Del(lb.key(BoardPoints))
	require.NoError(t, lb.RecordSession(ctx, finished("s1", "alice", 9, 50)))

	top, err := lb.Top(ctx, BoardPoints, 10)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{UserID: "alice", Score: 9, Rank: 1}}, top)

	xp, err := lb.Top(ctx, BoardXP, 10)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{UserID: "alice", Score: 50, Rank: 1}}, xp)

	require.NoError(t, lb.RecordSession(ctx, finished("s1", "alice", 9, 50)))
	e, _, err := lb.Rank(ctx, BoardPoints, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(9), e.Score, "counted once after the retry")
}

func TestParseBoard(t *testing.T) {
	b, err := ParseBoard("xp")
	require.NoError(t, err)
	assert.Equal(t, BoardXP, b)

	_, err = ParseBoard("gems")
	assert.True(t, errors.Is(err, ErrUnknownBoard))
}

func TestDial(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := Dial(context.Background(), config.Redis{Addr: mr.Addr()})
	require.NoError(t, err)
	client.Close()
}

func TestSyncOverwritesDrift(t *testing.T) {
	lb, _ := newTestBoard(t)
	ctx := context.Background()

	// alice's second session never reached redis.
	require.NoError(t, lb.RecordSession(ctx, finished("s1", "alice", 6, 25)))
	require.NoError(t, lb.Sync(ctx, []Total{{UserID: "alice", Points: 15, XP: 40}, {UserID: "bob", Points: 9, XP: 50}}))

	top, err := lb.Top(ctx, BoardPoints, 10)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{UserID: "alice", Score: 15, Rank: 1}, {UserID: "bob", Score: 9, Rank: 2}}, top)

	e, found, err := lb.Rank(ctx, BoardXP, "bob")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, Entry{UserID: "bob", Score: 50, Rank: 1}, e)

	require.NoError(t, lb.Sync(ctx, nil))
}

func TestRunResync(t *testing.T) {
	lb, _ := newTestBoard(t)
	ctx, cancel := context.WithCancel(context.Background())

	calls := make(chan struct{}, 8)
	totals := func(context.Context) ([]Total, error) {
		calls <- struct{}{}
		return []Total{{UserID: "carol", Points: 21, XP: 70}}, nil
	}

	done := make(chan error, 1)
	go func() { done <- lb.RunResync(ctx, "@every 1h", totals, nil) }()

	<-calls // the immediate run
	require.Eventually(t, func() bool {
		e, found, err := lb.Rank(context.Background(), BoardPoints, "carol")
		return err == nil && found && e.Score == 21
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestRunResyncBadSchedule(t *testing.T) {
	lb, _ := newTestBoard(t)
	err := lb.RunResync(context.Background(), "every hour", func(context.Context) ([]Total, error) { return nil, nil }, nil)
	assert.Error(t, err)
}
