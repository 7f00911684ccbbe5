package database

import (
	"database/sql"
	"fmt"
	"strings"
)

// IsFavorite reports whether the user starred the row with the given id.
func (db *DB) IsFavorite(rc RequestContext, id string) (bool, error) {
	return isFavorite(db.conn, rc, id)
}

func isFavorite(ex execer, rc RequestContext, id string) (bool, error) {
	var n int
	if err := ex.QueryRow(
		`SELECT COUNT(*) FROM favorites WHERE id = ? AND user = ?`, id, rc.User,
	).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// ToggleFavorite deletes the user's favorite for id if present, otherwise
// inserts it with the snapshot. Returns the new state.
func (db *DB) ToggleFavorite(rc RequestContext, id, sourceTable string, snap Snapshot) (bool, error) {
	if err := requireUser(rc); err != nil {
		return false, err
	}
	if strings.TrimSpace(id) == "" {
		return false, fmt.Errorf("%w: favorite id is empty", ErrValidation)
	}

	var state bool
	err := db.withTx(func(tx *sql.Tx) error {
		exists, err := isFavorite(tx, rc, id)
		if err != nil {
			return err
		}
		if exists {
			_, err = tx.Exec(`DELETE FROM favorites WHERE id = ? AND user = ?`, id, rc.User)
			state = false
			return err
		}
		_, err = tx.Exec(
			`INSERT INTO favorites (id, user, source_table, ai_headline, headline) VALUES (?, ?, ?, ?, ?)`,
			id, rc.User, sourceTable, snap.AIHeadline, snap.Headline,
		)
		state = true
		return err
	})
	if err != nil {
		return false, fmt.Errorf("toggling favorite: %w", err)
	}
	return state, nil
}

// ListFavorites returns the user's favorites, newest first.
func (db *DB) ListFavorites(rc RequestContext) ([]Favorite, error) {
	rows, err := db.conn.Query(
		`SELECT id, user, source_table, ai_headline, headline, favorited_at
		FROM favorites WHERE user = ? ORDER BY favorited_at DESC, rowid DESC`, rc.User,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Favorite{}
	for rows.Next() {
		var f Favorite
		if err := rows.Scan(&f.ID, &f.User, &f.SourceTable, &f.AIHeadline, &f.Headline, &f.FavoritedAt); err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}

// GetFavoriteStats counts the user's favorites, distinct originals and distinct sources.
func (db *DB) GetFavoriteStats(rc RequestContext) (*FavoriteStats, error) {
	var s FavoriteStats
	err := db.conn.QueryRow(
		`SELECT COUNT(*), COUNT(DISTINCT headline), COUNT(DISTINCT source_table)
		FROM favorites WHERE user = ?`, rc.User,
	).Scan(&s.Total, &s.UniqueOriginals, &s.Sources)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
