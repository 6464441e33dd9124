package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"go.uber.org/zap"
)

// SchemaVersion is the Mixxx schema revision the reader is written against.
const SchemaVersion = 39

// schemaVersionKey is the settings row in which Mixxx records its schema revision.
const schemaVersionKey = "mixxx.schema.version"

// Migration is one step of the Mixxx library schema.
type Migration struct {
	Version     int
	Description string
	Up          string
}

// Schema lists the subset of Mixxx migrations whose tables and columns are read during an
// export. Applying it to an empty file yields a database the reader accepts.
var Schema = []Migration{
	{
		Version:     1,
		Description: "Library, locations, playlists and crates",
		Up: `
		CREATE TABLE IF NOT EXISTS settings (
			name TEXT UNIQUE NOT NULL,
			value TEXT,
			locked INTEGER DEFAULT 0,
			hidden INTEGER DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS track_locations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			location VARCHAR(512) UNIQUE,
			filename VARCHAR(512),
			directory VARCHAR(512),
			filesize INTEGER,
			fs_deleted INTEGER,
			needs_verification INTEGER
		);

		CREATE TABLE IF NOT EXISTS library (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			artist VARCHAR(64),
			title VARCHAR(64),
			album VARCHAR(64),
			year VARCHAR(16),
			genre VARCHAR(64),
			tracknumber VARCHAR(3),
			location INTEGER REFERENCES track_locations(location),
			comment VARCHAR(256),
			url VARCHAR(256),
			duration FLOAT,
			bitrate INTEGER,
			samplerate INTEGER,
			cuepoint INTEGER,
			bpm FLOAT,
			wavesummaryhex BLOB,
			channels INTEGER,
			datetime_added DEFAULT CURRENT_TIMESTAMP,
			mixxx_deleted INTEGER,
			played INTEGER,
			header_parsed INTEGER DEFAULT 0,
			filetype VARCHAR(8) DEFAULT '?',
			replaygain FLOAT DEFAULT 0,
			timesplayed INTEGER DEFAULT 0,
			rating INTEGER DEFAULT 0,
			key VARCHAR(8) DEFAULT '',
			beats BLOB,
			beats_version TEXT,
			composer VARCHAR(64) DEFAULT '',
			grouping TEXT DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS cues (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			track_id INTEGER NOT NULL REFERENCES library(id),
			type INTEGER DEFAULT 0 NOT NULL,
			position INTEGER DEFAULT -1 NOT NULL,
			length INTEGER DEFAULT 0 NOT NULL,
			hotcue INTEGER DEFAULT -1 NOT NULL,
			label TEXT DEFAULT '' NOT NULL,
			color INTEGER DEFAULT 4294901760 NOT NULL
		);

		CREATE TABLE IF NOT EXISTS Playlists (
			id INTEGER PRIMARY KEY,
			name VARCHAR(48),
			position INTEGER,
			hidden INTEGER DEFAULT 0 NOT NULL,
			date_created DATETIME,
			date_modified DATETIME,
			locked INTEGER DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS PlaylistTracks (
			id INTEGER PRIMARY KEY,
			playlist_id INTEGER REFERENCES Playlists(id),
			track_id INTEGER REFERENCES library(id),
			position INTEGER,
			pl_datetime_added DATETIME
		);

		CREATE TABLE IF NOT EXISTS crates (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name VARCHAR(48) UNIQUE NOT NULL,
			count INTEGER DEFAULT 0,
			show INTEGER DEFAULT 1,
			locked INTEGER DEFAULT 0,
			autodj_source INTEGER DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS crate_tracks (
			crate_id INTEGER NOT NULL REFERENCES crates(id),
			track_id INTEGER NOT NULL REFERENCES library(id),
			UNIQUE (crate_id, track_id)
		);
		`,
	},
	{
		Version:     28,
		Description: "ReplayGain peak",
		Up:          `ALTER TABLE library ADD COLUMN replaygain_peak REAL DEFAULT -1.0;`,
	},
	{
		Version:     39,
		Description: "Play history and metadata synchronization",
		Up: `
		ALTER TABLE library ADD COLUMN last_played_at DATETIME DEFAULT NULL;
		ALTER TABLE library ADD COLUMN source_synchronized_ms INTEGER DEFAULT NULL;
		`,
	},
}

// InitSchema applies every pending migration to a writable database. The exporter never
// calls it on a real library; it prepares fixtures and scratch copies.
func InitSchema(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	currentVersion, err := GetSchemaVersion(ctx, db)
	if err != nil {
		// settings does not exist yet
		currentVersion = 0
	}

	for _, migration := range Schema {
		if migration.Version <= currentVersion {
			continue
		}
		logger.Info("Applying migration", zap.Int("version", migration.Version), zap.String("description", migration.Description))

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		if _, err := tx.ExecContext(ctx, migration.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO settings (name, value) VALUES (?, ?)`,
			schemaVersionKey, strconv.Itoa(migration.Version)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// GetSchemaVersion returns the schema revision Mixxx recorded in the settings table.
func GetSchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM settings WHERE name = ?`, schemaVersionKey).Scan(&value)
	if err != nil {
		return 0, err
	}
	version, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid schema version %q: %w", value, err)
	}
	return version, nil
}
