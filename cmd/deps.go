package cmd

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/satprep/satprep/internal/kv"
	"github.com/satprep/satprep/internal/leaderboard"
	"github.com/satprep/satprep/internal/questionbank"
	"github.com/satprep/satprep/internal/resume"
	"github.com/satprep/satprep/internal/store"
	"github.com/satprep/satprep/internal/streak"
)

// deps bundles the collaborators opened for one command.
type deps struct {
	store    *store.Store
	kv       *kv.Store
	slot     *resume.Store
	activity *streak.Activity

	redis *redis.Client
	board *leaderboard.Leaderboard
}

// openDeps opens the history database and the local key-value slots.
func openDeps() (*deps, error) {
	st, err := store.OpenFile(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	kvs, err := kv.Open(cfg.DataDir, log)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("open data dir: %w", err)
	}
	return &deps{
		store:    st,
		kv:       kvs,
		slot:     resume.NewStore(kvs, cfg.Session.SlotKey, log),
		activity: streak.NewActivity(kvs, cfg.Session.ActivityKey, st.StreakRepo(), log),
	}, nil
}

// connectBoard dials redis when the leaderboard is enabled. The leaderboard
// is best-effort: a failed dial is logged and it stays off.
func (d *deps) connectBoard(ctx context.Context) {
	if !cfg.Redis.Enabled {
		return
	}
	client, err := leaderboard.Dial(ctx, cfg.Redis)
	if err != nil {
		log.Warn("leaderboard unavailable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		return
	}
	d.redis = client
	d.board = leaderboard.New(client, "")
}

func (d *deps) Close() {
	if d.redis != nil {
		d.redis.Close()
	}
	d.store.Close()
}

// openBank loads the configured question bank, or the embedded one.
func openBank() (*questionbank.Bank, error) {
	if cfg.Questions.Path == "" {
		return questionbank.Default()
	}
	b, err := questionbank.Open(cfg.Questions.Path)
	if err != nil {
		return nil, fmt.Errorf("load question bank: %w", err)
	}
	return b, nil
}
