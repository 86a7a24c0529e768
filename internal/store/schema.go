package store

import (
	"context"
	"database/sql"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// Table names.
const (
	tableSessions       = "sessions"
	tableAttempts       = "attempts"
	tableUserStats      = "user_stats"
	tableStreaks        = "streaks"
	tableAnalysisEvents = "analysis_events"
)

// builder renders DML for the SQLite dialect.
func builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.SQLite)
}

// schema is the history DDL. Timestamps are unix milliseconds. The ent
// builders cover queries only, so tables are plain SQL like the sequence
// table.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT NOT NULL PRIMARY KEY,
		sequence INTEGER NOT NULL,
		user_id TEXT NOT NULL,
		mode TEXT NOT NULL,
		subject TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		feedback TEXT NOT NULL,
		time_goal INTEGER NOT NULL,
		start_time INTEGER NOT NULL,
		end_time INTEGER NOT NULL,
		duration_secs INTEGER NOT NULL,
		total INTEGER NOT NULL,
		answered INTEGER NOT NULL,
		correct INTEGER NOT NULL,
		flagged INTEGER NOT NULL,
		points INTEGER NOT NULL,
		xp_earned INTEGER NOT NULL,
		xp_total INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS attempts (
		session_id TEXT NOT NULL REFERENCES sessions (id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		user_id TEXT NOT NULL,
		question_id TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		topics TEXT NOT NULL,
		selected INTEGER,
		correct INTEGER,
		time_spent INTEGER NOT NULL,
		flagged INTEGER NOT NULL,
		points INTEGER NOT NULL,
		xp INTEGER NOT NULL,
		answered_at INTEGER NOT NULL,
		PRIMARY KEY (session_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS user_stats (
		user_id TEXT NOT NULL PRIMARY KEY,
		sessions INTEGER NOT NULL DEFAULT 0,
		points INTEGER NOT NULL DEFAULT 0,
		xp INTEGER NOT NULL DEFAULT 0,
		answered INTEGER NOT NULL DEFAULT 0,
		correct INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS streaks (
		user_id TEXT NOT NULL PRIMARY KEY,
		current_streak INTEGER NOT NULL,
		longest_streak INTEGER NOT NULL,
		last_active TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS analysis_events (
		sequence INTEGER NOT NULL PRIMARY KEY,
		timestamp INTEGER NOT NULL,
		user_id TEXT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		purpose TEXT NOT NULL,
		input_tokens INTEGER NOT NULL,
		output_tokens INTEGER NOT NULL,
		latency_ms INTEGER NOT NULL,
		success INTEGER NOT NULL,
		error_message TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS sessions_user_start ON sessions (user_id, start_time)`,
	`CREATE INDEX IF NOT EXISTS attempts_user_answered ON attempts (user_id, answered_at)`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
