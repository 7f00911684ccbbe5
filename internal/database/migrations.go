package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// Timestamps are stored as UTC text with millisecond precision so that
// "newest first" listings stay stable for rows written in the same second.
const nowMillis = `(strftime('%Y-%m-%d %H:%M:%f', 'now'))`

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS selected (
    id TEXT PRIMARY KEY,
    user TEXT NOT NULL,
    headline TEXT NOT NULL,
    source_table TEXT NOT NULL,
    source_id TEXT,
    brand TEXT,
    region TEXT NOT NULL DEFAULT 'US',
    ai_headline TEXT,
    selected_at TEXT NOT NULL DEFAULT ` + nowMillis + `
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_selected_source
    ON selected(source_table, source_id, user);
CREATE INDEX IF NOT EXISTS idx_selected_user ON selected(user, selected_at);

CREATE TABLE IF NOT EXISTS top_weekly_headlines (
    source_id TEXT NOT NULL,
    week INTEGER NOT NULL,
    year INTEGER NOT NULL,
    headline TEXT NOT NULL,
    frequency INTEGER NOT NULL DEFAULT 0,
    ai_headline TEXT,
    id TEXT,
    PRIMARY KEY (source_id, week, year)
);

CREATE TABLE IF NOT EXISTS user_top_headlines (
    source_id TEXT NOT NULL,
    week INTEGER NOT NULL,
    year INTEGER NOT NULL,
    user TEXT NOT NULL,
    id TEXT NOT NULL,
    headline TEXT NOT NULL,
    frequency INTEGER NOT NULL DEFAULT 0,
    ai_headline TEXT,
    updated_at TEXT NOT NULL DEFAULT ` + nowMillis + `,
    PRIMARY KEY (source_id, week, year, user)
);

CREATE TABLE IF NOT EXISTS generated_headlines (
    id TEXT PRIMARY KEY,
    headline TEXT NOT NULL,
    ai_headline TEXT NOT NULL,
    region TEXT NOT NULL DEFAULT 'US',
    generated_at TEXT NOT NULL DEFAULT ` + nowMillis + `
);

CREATE TABLE IF NOT EXISTS favorites (
    id TEXT NOT NULL,
    user TEXT NOT NULL,
    source_table TEXT NOT NULL,
    ai_headline TEXT NOT NULL,
    headline TEXT NOT NULL,
    favorited_at TEXT NOT NULL DEFAULT ` + nowMillis + `,
    PRIMARY KEY (id, user)
);

CREATE INDEX IF NOT EXISTS idx_top_weekly_period ON top_weekly_headlines(year, week);
CREATE INDEX IF NOT EXISTS idx_user_top_period ON user_top_headlines(year, week, user);
CREATE INDEX IF NOT EXISTS idx_generated_at ON generated_headlines(generated_at);
CREATE INDEX IF NOT EXISTS idx_favorites_user ON favorites(user, favorited_at);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
