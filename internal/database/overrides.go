package database

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// InsertWeeklyHeadline writes a row of the shared weekly aggregate, replacing
// any row with the same (source_id, week, year).
func (db *DB) InsertWeeklyHeadline(h WeeklyHeadline) error {
	if strings.TrimSpace(h.SourceID) == "" || strings.TrimSpace(h.Headline) == "" {
		return fmt.Errorf("%w: source id and headline are required", ErrValidation)
	}
	_, err := db.conn.Exec(
		`INSERT OR REPLACE INTO top_weekly_headlines (source_id, week, year, headline, frequency, ai_headline, id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		h.SourceID, h.Week, h.Year, h.Headline, h.Frequency, h.AIHeadline, h.ID,
	)
	return err
}

// ListWeeklyHeadlines returns the shared aggregate for a week, most frequent first.
func (db *DB) ListWeeklyHeadlines(week, year int) ([]WeeklyHeadline, error) {
	rows, err := db.conn.Query(
		`SELECT source_id, headline, week, year, frequency, ai_headline, id
		FROM top_weekly_headlines WHERE week = ? AND year = ?
		ORDER BY frequency DESC, source_id`, week, year,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []WeeklyHeadline{}
	for rows.Next() {
		var h WeeklyHeadline
		if err := rows.Scan(&h.SourceID, &h.Headline, &h.Week, &h.Year, &h.Frequency, &h.AIHeadline, &h.ID); err != nil {
			return nil, err
		}
		items = append(items, h)
	}
	return items, rows.Err()
}

// GetWeeklyHeadline returns one aggregate row, or nil.
func (db *DB) GetWeeklyHeadline(sourceID string, week, year int) (*WeeklyHeadline, error) {
	var h WeeklyHeadline
	err := db.conn.QueryRow(
		`SELECT source_id, headline, week, year, frequency, ai_headline, id
		FROM top_weekly_headlines WHERE source_id = ? AND week = ? AND year = ?`,
		sourceID, week, year,
	).Scan(&h.SourceID, &h.Headline, &h.Week, &h.Year, &h.Frequency, &h.AIHeadline, &h.ID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// ListWeeks returns the weeks present in the aggregate, newest first.
func (db *DB) ListWeeks() ([]WeekKey, error) {
	rows, err := db.conn.Query(
		`SELECT DISTINCT week, year FROM top_weekly_headlines ORDER BY year DESC, week DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	weeks := []WeekKey{}
	for rows.Next() {
		var k WeekKey
		if err := rows.Scan(&k.Week, &k.Year); err != nil {
			return nil, err
		}
		weeks = append(weeks, k)
	}
	return weeks, rows.Err()
}

// UpsertOverride inserts or replaces the user's override for (source_id, week, year).
// Last write wins.
func (db *DB) UpsertOverride(rc RequestContext, o Override) (*Override, error) {
	if err := requireUser(rc); err != nil {
		return nil, err
	}
	if strings.TrimSpace(o.SourceID) == "" {
		return nil, fmt.Errorf("%w: source id is required", ErrValidation)
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.User = rc.User
	if err := upsertOverride(db.conn, o); err != nil {
		return nil, err
	}
	return &o, nil
}

// SaveOverrideResult upserts the user's override and appends the generation
// log entry in one transaction. The override and the log entry share an id.
func (db *DB) SaveOverrideResult(rc RequestContext, o Override) (*Override, error) {
	if err := requireUser(rc); err != nil {
		return nil, err
	}
	if strings.TrimSpace(o.SourceID) == "" || o.AIHeadline == nil || *o.AIHeadline == "" {
		return nil, fmt.Errorf("%w: source id and ai headline are required", ErrValidation)
	}
	o.ID = uuid.NewString()
	o.User = rc.User

	err := db.withTx(func(tx *sql.Tx) error {
		if err := upsertOverride(tx, o); err != nil {
			return fmt.Errorf("upserting override: %w", err)
		}
		if _, err := insertGenerated(tx, o.ID, o.Headline, *o.AIHeadline, regionOf(rc)); err != nil {
			return fmt.Errorf("appending generation log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func upsertOverride(ex execer, o Override) error {
	_, err := ex.Exec(
		`INSERT INTO user_top_headlines (source_id, week, year, user, id, headline, frequency, ai_headline)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id, week, year, user) DO UPDATE SET
			id = excluded.id,
			headline = excluded.headline,
			frequency = excluded.frequency,
			ai_headline = excluded.ai_headline,
			updated_at = `+nowMillis,
		o.SourceID, o.Week, o.Year, o.User, o.ID, o.Headline, o.Frequency, o.AIHeadline,
	)
	return err
}

// ListOverrides returns the user's overrides for a week.
func (db *DB) ListOverrides(rc RequestContext, week, year int) ([]Override, error) {
	rows, err := db.conn.Query(
		`SELECT id, source_id, week, year, user, headline, frequency, ai_headline
		FROM user_top_headlines WHERE week = ? AND year = ? AND user = ?`,
		week, year, rc.User,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	overrides := []Override{}
	for rows.Next() {
		var o Override
		if err := rows.Scan(&o.ID, &o.SourceID, &o.Week, &o.Year, &o.User, &o.Headline, &o.Frequency, &o.AIHeadline); err != nil {
			return nil, err
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

// MergeOverrides layers overrides over the aggregate. Rows whose source_id has
// an override with an AI headline take the override's ai_headline and id; all
// other rows keep their own. The input slice is not modified.
func MergeOverrides(aggregate []WeeklyHeadline, overrides []Override) []WeeklyHeadline {
	byID := make(map[string]Override, len(overrides))
	for _, o := range overrides {
		if o.AIHeadline != nil {
			byID[o.SourceID] = o
		}
	}

	merged := make([]WeeklyHeadline, len(aggregate))
	for i, row := range aggregate {
		if o, ok := byID[row.SourceID]; ok {
			ai, id := *o.AIHeadline, o.ID
			row.AIHeadline = &ai
			row.ID = &id
		}
		merged[i] = row
	}
	return merged
}

// TopHeadlinesForUser returns the week's aggregate as seen by the user.
func (db *DB) TopHeadlinesForUser(rc RequestContext, week, year int) (*TopHeadlines, error) {
	if err := requireUser(rc); err != nil {
		return nil, err
	}
	aggregate, err := db.ListWeeklyHeadlines(week, year)
	if err != nil {
		return nil, fmt.Errorf("listing weekly headlines: %w", err)
	}
	overrides, err := db.ListOverrides(rc, week, year)
	if err != nil {
		return nil, fmt.Errorf("listing overrides: %w", err)
	}
	return &TopHeadlines{
		Items:        MergeOverrides(aggregate, overrides),
		NumOverrides: len(overrides),
	}, nil
}
