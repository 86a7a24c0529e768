package streak

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/satprep/satprep/internal/kv"
)

// MaxActivityDates bounds the local activity slot.
const MaxActivityDates = 30

// Repo persists the authoritative streak record per user.
type Repo interface {
	Streak(ctx context.Context, userID string) (Record, error)
	SaveStreak(ctx context.Context, userID string, r Record) error
}

// Activity keeps the last MaxActivityDates distinct practice days in a kv
// slot for display, and updates the streak record through Repo.
type Activity struct {
	kv   *kv.Store
	key  string
	repo Repo
	log  *zap.Logger
}

// NewActivity returns an Activity over the kv slot key. repo may be nil.
func NewActivity(kvs *kv.Store, key string, repo Repo, log *zap.Logger) *Activity {
	if log == nil {
		log = zap.NewNop()
	}
	return &Activity{kv: kvs, key: key, repo: repo, log: log}
}

// RecordActivity notes practice on the day of t.
func (a *Activity) RecordActivity(ctx context.Context, userID string, t time.Time) error {
	dates, err := a.Dates()
	if err != nil {
		return err
	}
	day := Day(t).Format(DateLayout)
	if !slices.Contains(dates, day) {
		dates = append(dates, day)
		slices.Sort(dates)
		if len(dates) > MaxActivityDates {
			dates = dates[len(dates)-MaxActivityDates:]
		}
		data, err := json.Marshal(dates)
		if err != nil {
			return fmt.Errorf("encode activity dates: %w", err)
		}
		if err := a.kv.Set(a.key, data); err != nil {
			return err
		}
	}

	if a.repo == nil {
		return nil
	}
	rec, err := a.repo.Streak(ctx, userID)
	if err != nil {
		return fmt.Errorf("load streak: %w", err)
	}
	if !rec.Touch(t) {
		return nil
	}
	if err := a.repo.SaveStreak(ctx, userID, rec); err != nil {
		return fmt.Errorf("save streak: %w", err)
	}
	a.log.Debug("streak updated", zap.String("user_id", userID), zap.Int("current", rec.Current))
	return nil
}

// Dates returns the recorded activity dates, oldest first. A malformed slot
// reads as empty.
func (a *Activity) Dates() ([]string, error) {
	data, err := a.kv.Get(a.key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var dates []string
	if err := json.Unmarshal(data, &dates); err != nil {
		a.log.Warn("discarding malformed activity slot", zap.Error(err))
		return nil, nil
	}
	return dates, nil
}
