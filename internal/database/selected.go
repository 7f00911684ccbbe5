package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrValidation is returned for missing or malformed input, before any write.
var ErrValidation = errors.New("validation error")

const selectedColumns = `id, user, headline, source_table, source_id, brand, region, ai_headline, selected_at`

func requireUser(rc RequestContext) error {
	if strings.TrimSpace(rc.User) == "" {
		return fmt.Errorf("%w: user is not authenticated", ErrValidation)
	}
	return nil
}

func regionOf(rc RequestContext) string {
	if rc.Region == "" {
		return "US"
	}
	return rc.Region
}

// AddSelection records a headline in the user's selection with no AI headline yet.
// Selecting the same source row twice returns the existing selection.
func (db *DB) AddSelection(rc RequestContext, s NewSelection) (*SelectedHeadline, error) {
	if err := requireUser(rc); err != nil {
		return nil, err
	}
	headline := strings.TrimSpace(s.Headline)
	if headline == "" {
		return nil, fmt.Errorf("%w: headline is empty", ErrValidation)
	}
	if strings.TrimSpace(s.SourceTable) == "" {
		return nil, fmt.Errorf("%w: source table is empty", ErrValidation)
	}

	id := uuid.NewString()
	result, err := db.conn.Exec(
		`INSERT INTO selected (id, user, headline, source_table, source_id, brand, region)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_table, source_id, user) DO NOTHING`,
		id, rc.User, headline, s.SourceTable, s.SourceID, s.Brand, regionOf(rc),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting selection: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 && s.SourceID != nil {
		return db.getSelectionBySource(rc, s.SourceTable, *s.SourceID)
	}
	return db.GetSelection(rc, id)
}

// GetSelection returns a single selection owned by the user, or nil.
func (db *DB) GetSelection(rc RequestContext, id string) (*SelectedHeadline, error) {
	row := db.conn.QueryRow(
		`SELECT `+selectedColumns+` FROM selected WHERE id = ? AND user = ?`, id, rc.User,
	)
	return scanSelectionRow(row)
}

func (db *DB) getSelectionBySource(rc RequestContext, sourceTable, sourceID string) (*SelectedHeadline, error) {
	row := db.conn.QueryRow(
		`SELECT `+selectedColumns+` FROM selected WHERE source_table = ? AND source_id = ? AND user = ?`,
		sourceTable, sourceID, rc.User,
	)
	return scanSelectionRow(row)
}

// RemoveSelection deletes one of the user's selections. Unknown ids are not an error.
func (db *DB) RemoveSelection(rc RequestContext, id string) error {
	if err := requireUser(rc); err != nil {
		return err
	}
	_, err := db.conn.Exec(`DELETE FROM selected WHERE id = ? AND user = ?`, id, rc.User)
	return err
}

// RemoveSelectionBySource deletes the selection made from a given source row.
func (db *DB) RemoveSelectionBySource(rc RequestContext, sourceTable, sourceID string) error {
	if err := requireUser(rc); err != nil {
		return err
	}
	_, err := db.conn.Exec(
		`DELETE FROM selected WHERE source_table = ? AND source_id = ? AND user = ?`,
		sourceTable, sourceID, rc.User,
	)
	return err
}

// ClearSelections deletes every selection owned by the user.
func (db *DB) ClearSelections(rc RequestContext) error {
	if err := requireUser(rc); err != nil {
		return err
	}
	_, err := db.conn.Exec(`DELETE FROM selected WHERE user = ?`, rc.User)
	return err
}

// ListSelections returns the user's selections, newest first.
func (db *DB) ListSelections(rc RequestContext) ([]SelectedHeadline, error) {
	if err := requireUser(rc); err != nil {
		return nil, err
	}
	rows, err := db.conn.Query(
		`SELECT `+selectedColumns+` FROM selected WHERE user = ?
		ORDER BY selected_at DESC, rowid DESC`, rc.User,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []SelectedHeadline{}
	for rows.Next() {
		var s SelectedHeadline
		if err := rows.Scan(&s.ID, &s.User, &s.Headline, &s.SourceTable, &s.SourceID,
			&s.Brand, &s.Region, &s.AIHeadline, &s.SelectedAt); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// SelectedSourceIDs returns the set of source ids the user selected from a source table.
func (db *DB) SelectedSourceIDs(rc RequestContext, sourceTable string) (map[string]bool, error) {
	rows, err := db.conn.Query(
		`SELECT source_id FROM selected WHERE user = ? AND source_table = ? AND source_id IS NOT NULL`,
		rc.User, sourceTable,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	m := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		m[id] = true
	}
	return m, rows.Err()
}

// SaveSelectionResult stores a regenerated headline on the user's selection
// and appends it to the generation log in one transaction. The selection is
// keyed by (source_table, source_id, user); a missing row is inserted.
func (db *DB) SaveSelectionResult(rc RequestContext, r SelectionResult) (*GeneratedHeadline, error) {
	if err := requireUser(rc); err != nil {
		return nil, err
	}
	if strings.TrimSpace(r.Headline) == "" || r.AIHeadline == "" {
		return nil, fmt.Errorf("%w: headline and ai headline are required", ErrValidation)
	}

	var entry *GeneratedHeadline
	err := db.withTx(func(tx *sql.Tx) error {
		if err := upsertSelectionResult(tx, rc, r); err != nil {
			return fmt.Errorf("upserting selection: %w", err)
		}
		var err error
		entry, err = insertGenerated(tx, uuid.NewString(), r.Headline, r.AIHeadline, regionOf(rc))
		if err != nil {
			return fmt.Errorf("appending generation log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func upsertSelectionResult(tx *sql.Tx, rc RequestContext, r SelectionResult) error {
	if r.SourceID != nil {
		_, err := tx.Exec(
			`INSERT INTO selected (id, user, headline, source_table, source_id, brand, region, ai_headline)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(source_table, source_id, user) DO UPDATE SET
				headline = excluded.headline,
				brand = excluded.brand,
				ai_headline = excluded.ai_headline`,
			uuid.NewString(), rc.User, r.Headline, r.SourceTable, r.SourceID, r.Brand, regionOf(rc), r.AIHeadline,
		)
		return err
	}

	// Rows without a stable source id are matched on their original text.
	result, err := tx.Exec(
		`UPDATE selected SET ai_headline = ?, brand = ?
		WHERE user = ? AND source_table = ? AND source_id IS NULL AND headline = ?`,
		r.AIHeadline, r.Brand, rc.User, r.SourceTable, r.Headline,
	)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n > 0 {
		return nil
	}
	_, err = tx.Exec(
		`INSERT INTO selected (id, user, headline, source_table, source_id, brand, region, ai_headline)
		VALUES (?, ?, ?, ?, NULL, ?, ?, ?)`,
		uuid.NewString(), rc.User, r.Headline, r.SourceTable, r.Brand, regionOf(rc), r.AIHeadline,
	)
	return err
}

func scanSelectionRow(row *sql.Row) (*SelectedHeadline, error) {
	var s SelectedHeadline
	if err := row.Scan(&s.ID, &s.User, &s.Headline, &s.SourceTable, &s.SourceID,
		&s.Brand, &s.Region, &s.AIHeadline, &s.SelectedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}
