package database

import (
	"database/sql"
	"math"
)

func insertGenerated(tx *sql.Tx, id, headline, aiHeadline, region string) (*GeneratedHeadline, error) {
	_, err := tx.Exec(
		`INSERT INTO generated_headlines (id, headline, ai_headline, region) VALUES (?, ?, ?, ?)`,
		id, headline, aiHeadline, region,
	)
	if err != nil {
		return nil, err
	}
	g := GeneratedHeadline{ID: id, Headline: headline, AIHeadline: aiHeadline, Region: region}
	if err := tx.QueryRow(
		`SELECT generated_at FROM generated_headlines WHERE id = ?`, id,
	).Scan(&g.GeneratedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

// ListGenerated returns the generation log, newest first. A limit <= 0 returns everything.
func (db *DB) ListGenerated(limit int) ([]GeneratedHeadline, error) {
	query := `SELECT id, headline, ai_headline, region, generated_at
		FROM generated_headlines ORDER BY generated_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []GeneratedHeadline{}
	for rows.Next() {
		var g GeneratedHeadline
		if err := rows.Scan(&g.ID, &g.Headline, &g.AIHeadline, &g.Region, &g.GeneratedAt); err != nil {
			return nil, err
		}
		items = append(items, g)
	}
	return items, rows.Err()
}

// GetGeneratedStats returns the log size and the rounded mean AI headline length.
func (db *DB) GetGeneratedStats() (*GeneratedStats, error) {
	var total int
	var avg sql.NullFloat64
	err := db.conn.QueryRow(
		`SELECT COUNT(*), AVG(LENGTH(ai_headline)) FROM generated_headlines`,
	).Scan(&total, &avg)
	if err != nil {
		return nil, err
	}
	s := &GeneratedStats{Total: total}
	if avg.Valid {
		s.AverageLength = int(math.Round(avg.Float64))
	}
	return s, nil
}
