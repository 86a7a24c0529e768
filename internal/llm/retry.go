package llm

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// retrier re-sends requests that failed for transient reasons, backing off
// exponentially between attempts.
type retrier struct {
	next Provider
	cfg  RetryConfig
	log  *zap.Logger
}

// WithRetry wraps p so transient failures are retried per cfg. Context
// cancellation and truncated output are returned at once.
func WithRetry(p Provider, cfg RetryConfig, log *zap.Logger) Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &retrier{next: p, cfg: cfg, log: log}
}

func (r *retrier) Generate(ctx context.Context, req Request) (*Response, error) {
	attempts := max(r.cfg.MaxAttempts, 1)
	secondChance := false

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := r.next.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}

		switch classify(err) {
		case noRetry:
			return nil, err
		case retryOnce:
			if secondChance {
				return nil, err
			}
			secondChance = true
		}
		if attempt >= attempts {
			return nil, err
		}

		wait := r.cfg.delay(attempt, err)
		r.log.Debug("llm request failed, retrying",
			zap.String("purpose", PurposeFrom(ctx)),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *retrier) ModelID() string { return r.next.ModelID() }

// delay is the pause after the given failed attempt, counted from 1. A rate
// limit that names its own wait is honored as is. Otherwise the wait grows
// by Multiplier per attempt up to MaxWait and is drawn from its upper half.
func (c RetryConfig) delay(attempt int, err error) time.Duration {
	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}

	m := c.Multiplier
	if m < 1 {
		m = 2
	}
	d := c.InitialWait
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * m)
		if c.MaxWait > 0 && d >= c.MaxWait {
			break
		}
	}
	if c.MaxWait > 0 && d > c.MaxWait {
		d = c.MaxWait
	}
	if d <= 0 {
		return 0
	}
	return d/2 + rand.N(d/2+1)
}
