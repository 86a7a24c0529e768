package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/satprep/satprep/internal/streak"
)

type streakRepo struct {
	db *sql.DB
}

func (r *streakRepo) Streak(ctx context.Context, userID string) (streak.Record, error) {
	query, args := builder().Select("current_streak", "longest_streak", "last_active").
		From(entsql.Table(tableStreaks)).
		Where(entsql.EQ("user_id", userID)).
		Query()

	var rec streak.Record
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&rec.Current, &rec.Longest, &rec.LastActive)
	if errors.Is(err, sql.ErrNoRows) {
		return streak.Record{}, nil
	}
	if err != nil {
		return streak.Record{}, fmt.Errorf("query streak: %w", err)
	}
	return rec, nil
}

func (r *streakRepo) SaveStreak(ctx context.Context, userID string, rec streak.Record) error {
	query, args := builder().Insert(tableStreaks).
		Columns("user_id", "current_streak", "longest_streak", "last_active").
		Values(userID, rec.Current, rec.Longest, rec.LastActive).
		OnConflict(
			entsql.ConflictColumns("user_id"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save streak: %w", err)
	}
	return nil
}
