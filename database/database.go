// Package database reads a Mixxx library database through modernc.org/sqlite.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"djconv/mixxx/schema"
)

// DefaultDBPath is where Mixxx keeps its library on Linux.
const DefaultDBPath = "~/.mixxx/mixxxdb.sqlite"

// DatabaseManager handles all reads from a Mixxx database. The connection is read-only.
type DatabaseManager struct {
	DB     *sql.DB
	Path   string
	logger *zap.Logger
}

// DatabaseStats contains database statistics
type DatabaseStats struct {
	SchemaVersion  int     `json:"schema_version"`
	TrackCount     int64   `json:"track_count"`
	DeletedCount   int64   `json:"deleted_count"`
	LocationCount  int64   `json:"location_count"`
	CueCount       int64   `json:"cue_count"`
	PlaylistCount  int64   `json:"playlist_count"`
	CrateCount     int64   `json:"crate_count"`
	DatabaseSize   int64   `json:"database_size"`
	AverageBPM     float64 `json:"average_bpm"`
	TotalDurationS float64 `json:"total_duration_s"`
}

// ExpandPath resolves a leading "~/" against the home directory.
func ExpandPath(p string) (string, error) {
	if !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, p[2:]), nil
}

// NewDatabaseManager opens the Mixxx database at dbPath without write access.
// maxConns caps the connection pool; values below 1 mean one connection.
func NewDatabaseManager(dbPath string, maxConns int, logger *zap.Logger) (*DatabaseManager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dbPath, err := ExpandPath(dbPath)
	if err != nil {
		return nil, err
	}

	if dbPath, err = filepath.Abs(dbPath); err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dbPath, err)
	}
	// A missing file would only surface at the first query.
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}

	db, err := sql.Open("sqlite", readOnlyDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if maxConns < 1 {
		maxConns = 1
	}
	db.SetMaxOpenConns(maxConns)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Debug("Opened Mixxx database", zap.String("path", dbPath), zap.Int("max_conns", maxConns))
	return &DatabaseManager{DB: db, Path: dbPath, logger: logger}, nil
}

func readOnlyDSN(path string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path), RawQuery: "mode=ro"}
	return u.String()
}

// Close closes the database connection
func (dm *DatabaseManager) Close() error {
	return dm.DB.Close()
}

// Tracks returns every row of the library table ordered by id.
func (dm *DatabaseManager) Tracks(ctx context.Context) ([]schema.Track, error) {
	rows, err := dm.DB.QueryContext(ctx, `
		SELECT
			id, artist, composer, title, album, year, genre, tracknumber,
			location, comment, url,
			COALESCE(duration, 0), COALESCE(bitrate, 0), COALESCE(samplerate, 0), COALESCE(bpm, 0),
			COALESCE(datetime_added, ''), mixxx_deleted, played, COALESCE(filetype, ''),
			COALESCE(replaygain, 0), COALESCE(replaygain_peak, 0),
			COALESCE(timesplayed, 0), COALESCE(rating, 0), COALESCE("key", ''),
			beats, beats_version, last_played_at, source_synchronized_ms
		FROM library
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []schema.Track
	for rows.Next() {
		var t schema.Track
		err := rows.Scan(
			&t.ID, &t.Artist, &t.Composer, &t.Title, &t.Album, &t.Year, &t.Genre, &t.TrackNumber,
			&t.Location, &t.Comment, &t.URL,
			&t.Duration, &t.Bitrate, &t.SampleRate, &t.BPM,
			&t.DateTimeAdded, &t.MixxxDeleted, &t.Played, &t.FileType,
			&t.ReplayGain, &t.ReplayGainPeak,
			&t.TimesPlayed, &t.Rating, &t.Key,
			&t.Beats, &t.BeatsVersion, &t.LastPlayedAt, &t.SourceSynchronizedMS,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// TrackLocation returns the track_locations row with the given id, or nil when it is absent.
func (dm *DatabaseManager) TrackLocation(ctx context.Context, id int64) (*schema.TrackLocation, error) {
	loc := &schema.TrackLocation{}
	err := dm.DB.QueryRowContext(ctx, `
		SELECT id, location, filename, directory
		FROM track_locations
		WHERE id = ?
	`, id).Scan(&loc.ID, &loc.Location, &loc.Filename, &loc.Directory)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get location %d: %w", id, err)
	}
	return loc, nil
}

// TrackCues returns the cues of a track ordered by position.
func (dm *DatabaseManager) TrackCues(ctx context.Context, trackID int64) ([]schema.Cue, error) {
	rows, err := dm.DB.QueryContext(ctx, `
		SELECT
			id, track_id, COALESCE(type, 0), COALESCE(position, -1), COALESCE(length, 0),
			COALESCE(hotcue, -1), COALESCE(label, ''), COALESCE(color, 0)
		FROM cues
		WHERE track_id = ?
		ORDER BY position, id
	`, trackID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cues for track %d: %w", trackID, err)
	}
	defer rows.Close()

	var cues []schema.Cue
	for rows.Next() {
		var c schema.Cue
		if err := rows.Scan(&c.ID, &c.TrackID, &c.Type, &c.Position, &c.Length, &c.Hotcue, &c.Label, &c.Color); err != nil {
			return nil, fmt.Errorf("failed to scan cue: %w", err)
		}
		cues = append(cues, c)
	}
	return cues, rows.Err()
}

// Playlists returns every row of the Playlists table ordered by id.
func (dm *DatabaseManager) Playlists(ctx context.Context) ([]schema.Playlist, error) {
	rows, err := dm.DB.QueryContext(ctx, `
		SELECT id, name, position, COALESCE(hidden, 0), date_created, date_modified
		FROM Playlists
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []schema.Playlist
	for rows.Next() {
		var p schema.Playlist
		if err := rows.Scan(&p.ID, &p.Name, &p.Position, &p.Hidden, &p.DateCreated, &p.DateModified); err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		playlists = append(playlists, p)
	}
	return playlists, rows.Err()
}

// PlaylistTracks returns the member track ids of a playlist by ascending position.
func (dm *DatabaseManager) PlaylistTracks(ctx context.Context, playlistID int64) ([]int64, error) {
	return dm.queryIDs(ctx, `
		SELECT track_id
		FROM PlaylistTracks
		WHERE playlist_id = ? AND track_id IS NOT NULL
		ORDER BY position ASC
	`, playlistID)
}

// Crates returns every row of the crates table ordered by id.
func (dm *DatabaseManager) Crates(ctx context.Context) ([]schema.Crate, error) {
	rows, err := dm.DB.QueryContext(ctx, `
		SELECT id, COALESCE(name, ''), count, show
		FROM crates
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query crates: %w", err)
	}
	defer rows.Close()

	var crates []schema.Crate
	for rows.Next() {
		var c schema.Crate
		if err := rows.Scan(&c.ID, &c.Name, &c.Count, &c.Show); err != nil {
			return nil, fmt.Errorf("failed to scan crate: %w", err)
		}
		crates = append(crates, c)
	}
	return crates, rows.Err()
}

// CrateTracks returns the member track ids of a crate in storage order.
func (dm *DatabaseManager) CrateTracks(ctx context.Context, crateID int64) ([]int64, error) {
	return dm.queryIDs(ctx, `
		SELECT track_id
		FROM crate_tracks
		WHERE crate_id = ?
		ORDER BY rowid
	`, crateID)
}

func (dm *DatabaseManager) queryIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := dm.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query track ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan track id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetStats returns database statistics
func (dm *DatabaseManager) GetStats(ctx context.Context) (*DatabaseStats, error) {
	stats := &DatabaseStats{}

	queries := []struct {
		query  string
		target *int64
	}{
		{"SELECT COUNT(*) FROM library WHERE COALESCE(mixxx_deleted, 0) = 0", &stats.TrackCount},
		{"SELECT COUNT(*) FROM library WHERE COALESCE(mixxx_deleted, 0) > 0", &stats.DeletedCount},
		{"SELECT COUNT(*) FROM track_locations", &stats.LocationCount},
		{"SELECT COUNT(*) FROM cues", &stats.CueCount},
		{"SELECT COUNT(*) FROM Playlists", &stats.PlaylistCount},
		{"SELECT COUNT(*) FROM crates", &stats.CrateCount},
	}
	for _, q := range queries {
		if err := dm.DB.QueryRowContext(ctx, q.query).Scan(q.target); err != nil {
			return nil, fmt.Errorf("failed to get count: %w", err)
		}
	}

	err := dm.DB.QueryRowContext(ctx, `
		SELECT COALESCE(AVG(NULLIF(bpm, 0)), 0), COALESCE(SUM(duration), 0)
		FROM library
		WHERE COALESCE(mixxx_deleted, 0) = 0
	`).Scan(&stats.AverageBPM, &stats.TotalDurationS)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate tracks: %w", err)
	}

	if version, err := GetSchemaVersion(ctx, dm.DB); err != nil {
		dm.logger.Warn("Failed to read schema version", zap.Error(err))
	} else {
		stats.SchemaVersion = version
	}

	var pageCount, pageSize int64
	if err := dm.DB.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		dm.logger.Warn("Failed to get page count", zap.Error(err))
	}
	if err := dm.DB.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		dm.logger.Warn("Failed to get page size", zap.Error(err))
	}
	stats.DatabaseSize = pageCount * pageSize

	return stats, nil
}
