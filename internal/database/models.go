package database

// RequestContext identifies who an operation runs on behalf of.
// It is passed by value to every store and service call.
type RequestContext struct {
	User   string
	Region string
}

// SelectedHeadline is a headline a user picked for regeneration.
type SelectedHeadline struct {
	ID          string  `json:"id"`
	User        string  `json:"user"`
	Headline    string  `json:"headline"`
	SourceTable string  `json:"source_table"`
	SourceID    *string `json:"source_id"`
	Brand       *string `json:"brand"`
	Region      string  `json:"region"`
	AIHeadline  *string `json:"ai_headline"`
	SelectedAt  string  `json:"selected_at"`
}

// NewSelection holds the caller-supplied fields of a selection.
type NewSelection struct {
	Headline    string
	SourceTable string
	SourceID    *string
	Brand       *string
}

// SelectionResult is a regenerated headline destined for the selection table.
type SelectionResult struct {
	Headline    string
	SourceTable string
	SourceID    *string
	Brand       *string
	AIHeadline  string
}

// WeeklyHeadline is one row of the shared weekly aggregate.
type WeeklyHeadline struct {
	SourceID   string  `json:"source_id"`
	Headline   string  `json:"headline"`
	Week       int     `json:"week"`
	Year       int     `json:"year"`
	Frequency  int     `json:"frequency"`
	AIHeadline *string `json:"ai_headline"`
	ID         *string `json:"id"`
}

// Override shadows a weekly aggregate row for a single user.
type Override struct {
	ID         string  `json:"id"`
	SourceID   string  `json:"source_id"`
	Week       int     `json:"week"`
	Year       int     `json:"year"`
	User       string  `json:"user"`
	Headline   string  `json:"headline"`
	Frequency  int     `json:"frequency"`
	AIHeadline *string `json:"ai_headline"`
}

// TopHeadlines is the per-user view of a week's aggregate.
type TopHeadlines struct {
	Items        []WeeklyHeadline `json:"items"`
	NumOverrides int              `json:"num_overrides"`
}

// WeekKey identifies an ISO week.
type WeekKey struct {
	Week int `json:"week"`
	Year int `json:"year"`
}

// GeneratedHeadline is an entry of the append-only generation log.
type GeneratedHeadline struct {
	ID          string `json:"id"`
	Headline    string `json:"headline"`
	AIHeadline  string `json:"ai_headline"`
	Region      string `json:"region"`
	GeneratedAt string `json:"generated_at"`
}

// GeneratedStats summarizes the generation log.
type GeneratedStats struct {
	Total         int `json:"total"`
	AverageLength int `json:"average_length"`
}

// Snapshot is the denormalized headline pair stored with a favorite.
type Snapshot struct {
	AIHeadline string `json:"ai_headline"`
	Headline   string `json:"headline"`
}

// Favorite is a user's starred headline pair.
type Favorite struct {
	ID          string `json:"id"`
	User        string `json:"user"`
	SourceTable string `json:"source_table"`
	AIHeadline  string `json:"ai_headline"`
	Headline    string `json:"headline"`
	FavoritedAt string `json:"favorited_at"`
}

// FavoriteStats summarizes a user's favorites.
type FavoriteStats struct {
	Total           int `json:"total"`
	UniqueOriginals int `json:"unique_originals"`
	Sources         int `json:"sources"`
}

// Stats contains aggregate database statistics for one user.
type Stats struct {
	Selected          int `json:"selected"`
	SelectedGenerated int `json:"selected_generated"`
	Favorites         int `json:"favorites"`
	Overrides         int `json:"overrides"`
	TotalGenerated    int `json:"total_generated"`
	WeeksAvailable    int `json:"weeks_available"`
}
