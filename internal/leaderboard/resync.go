package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Total is a user's authoritative score from the history store.
type Total struct {
	UserID string
	Points int
	XP     int
}

// TotalsFunc lists every user's totals.
type TotalsFunc func(ctx context.Context) ([]Total, error)

// Sync overwrites both boards with totals. Session recording is
// best-effort, so the boards drift whenever redis was unreachable at
// completion; Sync brings them back in line with history.
func (l *Leaderboard) Sync(ctx context.Context, totals []Total) error {
	if len(totals) == 0 {
		return nil
	}
	points := make([]redis.Z, 0, len(totals))
	xp := make([]redis.Z, 0, len(totals))
	for _, t := range totals {
		points = append(points, redis.Z{Score: float64(t.Points), Member: t.UserID})
		xp = append(xp, redis.Z{Score: float64(t.XP), Member: t.UserID})
	}

	pipe := l.client.TxPipeline()
	pipe.ZAdd(ctx, l.key(BoardPoints), points...)
	pipe.ZAdd(ctx, l.key(BoardXP), xp...)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("sync leaderboard: %w", err)
	}
	return nil
}

// RunResync syncs the boards from totals once, then on every tick of schedule
// (five-field cron or a descriptor such as "@every 30m") until ctx is done.
// Failed runs are logged and retried at the next tick.
func (l *Leaderboard) RunResync(ctx context.Context, schedule string, totals TotalsFunc, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	run := func() {
		start := time.Now()
		list, err := totals(ctx)
		if err == nil {
			err = l.Sync(ctx, list)
		}
		if err != nil {
			log.Warn("leaderboard resync failed", zap.Error(err))
			return
		}
		log.Info("leaderboard resynced", zap.Int("users", len(list)), zap.Duration("took", time.Since(start)))
	}

	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(schedule, run); err != nil {
		return fmt.Errorf("leaderboard resync schedule %q: %w", schedule, err)
	}
	run()
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
