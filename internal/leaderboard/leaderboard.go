package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/satprep/satprep/internal/config"
	"github.com/satprep/satprep/internal/session"
)

// Board names a ranking.
type Board string

const (
	// BoardPoints ranks users by points accumulated over all sessions.
	BoardPoints Board = "points"
	// BoardXP ranks users by their current XP total.
	BoardXP Board = "xp"
)

// DefaultPrefix namespaces every leaderboard key.
const DefaultPrefix = "satprep:leaderboard"

// recordedTTL bounds how long a session id is remembered for de-duplication.
const recordedTTL = 30 * 24 * time.Hour

var ErrUnknownBoard = errors.New("unknown leaderboard")

// ParseBoard validates a board name.
func ParseBoard(s string) (Board, error) {
	switch b := Board(s); b {
	case BoardPoints, BoardXP:
		return b, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBoard, s)
}

// Entry is one ranked user.
type Entry struct {
	UserID string `json:"user_id"`
	Score  int64  `json:"score"`
	Rank   int64  `json:"rank"` // 1-indexed
}

// Leaderboard keeps redis sorted sets of user scores.
type Leaderboard struct {
	client *redis.Client
	prefix string
}

// New returns a Leaderboard over client. An empty prefix uses DefaultPrefix.
func New(client *redis.Client, prefix string) *Leaderboard {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Leaderboard{client: client, prefix: prefix}
}

// Dial connects to redis and checks the connection.
func Dial(ctx context.Context, cfg config.Redis) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}

func (l *Leaderboard) key(b Board) string {
	return l.prefix + ":" + string(b)
}

// recordScript adds one session to both boards unless its marker exists.
// The marker is set last so a failed board write leaves the session
// unrecorded and a retry counts it. ZADD on the XP board is idempotent and
// runs before the ZINCRBY, so a partial run never double-counts points.
//
// KEYS: marker, points board, XP board. ARGV: points, xp, user, ttl seconds.
var recordScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return 0
end
redis.call("ZADD", KEYS[3], ARGV[2], ARGV[3])
redis.call("ZINCRBY", KEYS[2], ARGV[1], ARGV[3])
redis.call("SET", KEYS[1], "1", "EX", ARGV[4])
return 1
`)

// RecordSession adds a finished session's points to the points board and
// sets the user's XP total, atomically. A session is counted once.
func (l *Leaderboard) RecordSession(ctx context.Context, s *session.Session) error {
	if s.UserID == "" {
		return errors.New("record session: missing user id")
	}

	keys := []string{l.prefix + ":recorded:" + s.ID, l.key(BoardPoints), l.key(BoardXP)}
	err := recordScript.Run(ctx, l.client, keys,
		s.Tally.Points, s.Tally.XP, s.UserID, int64(recordedTTL/time.Second)).Err()
	if err != nil {
		return fmt.Errorf("record session %s: %w", s.ID, err)
	}
	return nil
}

// Top returns the n highest-scoring users of board.
func (l *Leaderboard) Top(ctx context.Context, b Board, n int64) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	// ZREVRANGE returns highest to lowest (descending order)
	results, err := l.client.ZRevRangeWithScores(ctx, l.key(b), 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("top %s: %w", b, err)
	}

	entries := make([]Entry, len(results))
	for i, z := range results {
		member, _ := z.Member.(string)
		entries[i] = Entry{
			UserID: member,
			Score:  int64(z.Score),
			Rank:   int64(i) + 1,
		}
	}
	return entries, nil
}

// Rank returns a user's position on board. found is false when the user
// has no score.
func (l *Leaderboard) Rank(ctx context.Context, b Board, userID string) (e Entry, found bool, err error) {
	// ZREVRANK returns 0-based rank (highest score = rank 0)
	rank, err := l.client.ZRevRank(ctx, l.key(b), userID).Result()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("rank %s: %w", b, err)
	}
	score, err := l.client.ZScore(ctx, l.key(b), userID).Result()
	if err != nil {
		return Entry{}, false, fmt.Errorf("score %s: %w", b, err)
	}
	return Entry{UserID: userID, Score: int64(score), Rank: rank + 1}, true, nil
}
