package database

import (
	"context"
	"fmt"
)

// ValidationIssue is one integrity problem found in the library.
type ValidationIssue struct {
	Check   string `json:"check"`
	Entity  string `json:"entity"`
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

// ValidationReport collects the problems an export would trip over.
type ValidationReport struct {
	Issues []ValidationIssue `json:"issues"`
}

// OK reports whether no issues were found.
func (r *ValidationReport) OK() bool {
	return len(r.Issues) == 0
}

type validationCheck struct {
	name    string
	entity  string
	message string
	query   string
}

var validationChecks = []validationCheck{
	{
		name:    "missing_location",
		entity:  "track",
		message: "track has no resolvable file location",
		query: `
			SELECT l.id FROM library l
			LEFT JOIN track_locations tl ON tl.id = l.location
			WHERE tl.id IS NULL OR tl.location IS NULL OR tl.location = ''
			ORDER BY l.id`,
	},
	{
		name:    "identifier_overflow",
		entity:  "track",
		message: "track id does not fit in 32 bits",
		query:   `SELECT id FROM library WHERE id < 0 OR id > 4294967295 ORDER BY id`,
	},
	{
		name:    "dangling_playlist_member",
		entity:  "playlist",
		message: "playlist references a track that does not exist",
		query: `
			SELECT DISTINCT pt.playlist_id FROM PlaylistTracks pt
			LEFT JOIN library l ON l.id = pt.track_id
			WHERE l.id IS NULL
			ORDER BY pt.playlist_id`,
	},
	{
		name:    "dangling_crate_member",
		entity:  "crate",
		message: "crate references a track that does not exist",
		query: `
			SELECT DISTINCT ct.crate_id FROM crate_tracks ct
			LEFT JOIN library l ON l.id = ct.track_id
			WHERE l.id IS NULL
			ORDER BY ct.crate_id`,
	},
	{
		name:    "empty_playlist_name",
		entity:  "playlist",
		message: "playlist has no name",
		query:   `SELECT id FROM Playlists WHERE name IS NULL OR name = '' ORDER BY id`,
	},
}

// Validate runs the integrity checks that can be answered in SQL. File type support is
// checked by the caller using FileTypes.
func (dm *DatabaseManager) Validate(ctx context.Context) (*ValidationReport, error) {
	report := &ValidationReport{}

	for _, check := range validationChecks {
		ids, err := dm.queryIDs(ctx, check.query)
		if err != nil {
			return nil, fmt.Errorf("validation check %s: %w", check.name, err)
		}
		for _, id := range ids {
			report.Issues = append(report.Issues, ValidationIssue{
				Check:   check.name,
				Entity:  check.entity,
				ID:      id,
				Message: check.message,
			})
		}
	}

	dm.logger.Debug("Validated database")
	return report, nil
}

// FileTypes returns the number of tracks per stored file type. Deleted tracks are counted
// because they are exported too.
func (dm *DatabaseManager) FileTypes(ctx context.Context) (map[string]int64, error) {
	rows, err := dm.DB.QueryContext(ctx, `
		SELECT LOWER(COALESCE(filetype, '')), COUNT(*)
		FROM library
		GROUP BY 1
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query file types: %w", err)
	}
	defer rows.Close()

	types := make(map[string]int64)
	for rows.Next() {
		var kind string
		var count int64
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("failed to scan file type: %w", err)
		}
		types[kind] = count
	}
	return types, rows.Err()
}
