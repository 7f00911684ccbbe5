package database

// GetStats returns counts for the status page of one user.
func (db *DB) GetStats(rc RequestContext) (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		query string
		args  []any
		dest  *int
	}{
		{"SELECT COUNT(*) FROM selected WHERE user = ?", []any{rc.User}, &s.Selected},
		{"SELECT COUNT(*) FROM selected WHERE user = ? AND ai_headline IS NOT NULL", []any{rc.User}, &s.SelectedGenerated},
		{"SELECT COUNT(*) FROM favorites WHERE user = ?", []any{rc.User}, &s.Favorites},
		{"SELECT COUNT(*) FROM user_top_headlines WHERE user = ?", []any{rc.User}, &s.Overrides},
		{"SELECT COUNT(*) FROM generated_headlines", nil, &s.TotalGenerated},
		{"SELECT COUNT(*) FROM (SELECT DISTINCT week, year FROM top_weekly_headlines)", nil, &s.WeeksAvailable},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.query, q.args...).Scan(q.dest); err != nil {
			return nil, err
		}
	}
	return s, nil
}
