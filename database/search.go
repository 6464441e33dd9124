package database

import (
	"context"
	"fmt"
	"strings"
)

// DefaultSearchLimit caps search results when no limit is given.
const DefaultSearchLimit = 15

// SearchFilters contains search parameters
type SearchFilters struct {
	Genre          string
	Artist         string
	Playlist       string
	Crate          string
	MinRating      int
	IncludeDeleted bool
	Limit          int
}

// TrackSummary is a search hit.
type TrackSummary struct {
	ID       int64   `json:"id"`
	Artist   string  `json:"artist"`
	Title    string  `json:"title"`
	Album    string  `json:"album"`
	Genre    string  `json:"genre"`
	BPM      float64 `json:"bpm"`
	Key      string  `json:"key"`
	Rating   int     `json:"rating"`
	Location string  `json:"location"`
}

// SearchQueryBuilder builds the LIKE query behind SearchTracks.
type SearchQueryBuilder struct {
	query   string
	filters *SearchFilters
}

// NewSearchQueryBuilder creates a new query builder
func NewSearchQueryBuilder(query string, filters *SearchFilters) *SearchQueryBuilder {
	if filters == nil {
		filters = &SearchFilters{}
	}
	if filters.Limit <= 0 {
		filters.Limit = DefaultSearchLimit
	}
	return &SearchQueryBuilder{query: strings.TrimSpace(query), filters: filters}
}

// Build constructs the SQL query and arguments
func (sqb *SearchQueryBuilder) Build() (string, []any) {
	var conditions []string
	var args []any
	orderBy := "l.artist ASC, l.title ASC, l.id ASC"

	if sqb.query != "" {
		pattern := "%" + escapeLike(sqb.query) + "%"
		conditions = append(conditions,
			`(l.title LIKE ? ESCAPE '\' OR l.artist LIKE ? ESCAPE '\' OR l.album LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)

		// Exact title and artist hits first.
		orderBy = `(CASE WHEN LOWER(l.title) = LOWER(?) THEN 20 ELSE 0 END +
			CASE WHEN LOWER(l.artist) = LOWER(?) THEN 10 ELSE 0 END) DESC, ` + orderBy
	}

	if !sqb.filters.IncludeDeleted {
		conditions = append(conditions, "COALESCE(l.mixxx_deleted, 0) = 0")
	}
	if sqb.filters.Genre != "" {
		conditions = append(conditions, "l.genre = ?")
		args = append(args, sqb.filters.Genre)
	}
	if sqb.filters.Artist != "" {
		conditions = append(conditions, "l.artist = ?")
		args = append(args, sqb.filters.Artist)
	}
	if sqb.filters.Playlist != "" {
		conditions = append(conditions, `
			EXISTS (
				SELECT 1 FROM PlaylistTracks pt
				JOIN Playlists p ON p.id = pt.playlist_id
				WHERE pt.track_id = l.id AND p.name = ?
			)`)
		args = append(args, sqb.filters.Playlist)
	}
	if sqb.filters.Crate != "" {
		conditions = append(conditions, `
			EXISTS (
				SELECT 1 FROM crate_tracks ct
				JOIN crates c ON c.id = ct.crate_id
				WHERE ct.track_id = l.id AND c.name = ?
			)`)
		args = append(args, sqb.filters.Crate)
	}
	if sqb.filters.MinRating > 0 {
		conditions = append(conditions, "l.rating >= ?")
		args = append(args, sqb.filters.MinRating)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT
			l.id, COALESCE(l.artist, ''), COALESCE(l.title, ''), COALESCE(l.album, ''),
			COALESCE(l.genre, ''), COALESCE(l.bpm, 0), COALESCE(l."key", ''),
			COALESCE(l.rating, 0), COALESCE(tl.location, '')
		FROM library l
		LEFT JOIN track_locations tl ON tl.id = l.location
		%s
		ORDER BY %s
		LIMIT ?
	`, whereClause, orderBy)

	// Score placeholders come after the WHERE arguments in the statement text.
	if sqb.query != "" {
		args = append(args, sqb.query, sqb.query)
	}
	args = append(args, sqb.filters.Limit)

	return query, args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// SearchTracks finds tracks whose title, artist or album contains query.
func (dm *DatabaseManager) SearchTracks(ctx context.Context, query string, filters *SearchFilters) ([]TrackSummary, error) {
	sqlQuery, args := NewSearchQueryBuilder(query, filters).Build()

	rows, err := dm.DB.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search tracks: %w", err)
	}
	defer rows.Close()

	var tracks []TrackSummary
	for rows.Next() {
		var t TrackSummary
		err := rows.Scan(&t.ID, &t.Artist, &t.Title, &t.Album, &t.Genre, &t.BPM, &t.Key, &t.Rating, &t.Location)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}
