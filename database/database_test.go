package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// createFixture builds a small Mixxx library on disk and returns its path.
func createFixture(t *testing.T) string {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "mixxxdb.sqlite")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open fixture database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := InitSchema(ctx, db, nil); err != nil {
		t.Fatalf("Failed to initialize schema: %v", err)
	}

	statements := []string{
		`INSERT INTO track_locations (id, location, filename, directory) VALUES
			(10, '/music/House/one.mp3', 'one.mp3', '/music/House'),
			(20, '/music/Techno/two tracks.flac', NULL, NULL),
			(30, NULL, NULL, NULL)`,
		`INSERT INTO library (id, artist, title, album, genre, location, duration, bitrate,
			samplerate, bpm, datetime_added, filetype, rating, "key", beats, beats_version,
			mixxx_deleted, played, timesplayed) VALUES
			(1, 'Artist A', 'Opening', 'First', 'House', 10, 300.5, 320, 44100, 124.0,
				'2023-04-01 10:20:30', 'mp3', 4, '8A', NULL, NULL, 0, 1, 3),
			(2, 'Artist B', NULL, NULL, 'Techno', 20, 420.0, 1411, 44100, 0,
				'2023-05-01 00:00:00', 'flac', 0, '', x'0a03', 'BeatGrid-2.0', 1, 0, 0)`,
		`INSERT INTO cues (track_id, type, position, hotcue, label) VALUES
			(1, 1, 441000, 2, 'Drop'),
			(1, 2, 176400, -1, '')`,
		`INSERT INTO Playlists (id, name, position, hidden, date_created) VALUES
			(1, 'Warmup', 1, 0, '2023-01-02 03:04:05'),
			(2, 'Auto DJ', 2, 1, NULL)`,
		`INSERT INTO PlaylistTracks (playlist_id, track_id, position) VALUES
			(1, 2, 2), (1, 1, 1), (1, 99, 3)`,
		`INSERT INTO crates (id, name, count, show) VALUES (1, 'Peak', 1, 1), (2, 'Archive', 0, 0)`,
		`INSERT INTO crate_tracks (crate_id, track_id) VALUES (1, 2), (1, 1), (2, 77)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("Failed to seed fixture: %v\n%s", err, stmt)
		}
	}
	return dbPath
}

func openFixture(t *testing.T) *DatabaseManager {
	t.Helper()
	dm, err := NewDatabaseManager(createFixture(t), 2, nil)
	if err != nil {
		t.Fatalf("Failed to create database manager: %v", err)
	}
	t.Cleanup(func() { dm.Close() })
	return dm
}

func TestNewDatabaseManagerMissingFile(t *testing.T) {
	_, err := NewDatabaseManager(filepath.Join(t.TempDir(), "missing.sqlite"), 1, nil)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Expected not-exist error, got %v", err)
	}
}

func TestDatabaseIsReadOnly(t *testing.T) {
	dm := openFixture(t)

	_, err := dm.DB.Exec(`DELETE FROM library`)
	if err == nil {
		t.Fatal("Expected write to a read-only database to fail")
	}
}

func TestSchemaIdempotency(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		db, err := sql.Open("sqlite", dbPath)
		if err != nil {
			t.Fatalf("Failed to open database: %v", err)
		}
		if err := InitSchema(ctx, db, nil); err != nil {
			t.Fatalf("Failed to initialize schema on iteration %d: %v", i, err)
		}
		version, err := GetSchemaVersion(ctx, db)
		if err != nil {
			t.Fatalf("Failed to get schema version: %v", err)
		}
		if version != SchemaVersion {
			t.Errorf("Expected schema version %d, got %d", SchemaVersion, version)
		}
		db.Close()
	}
}

func TestTracks(t *testing.T) {
	dm := openFixture(t)
	ctx := context.Background()

	tracks, err := dm.Tracks(ctx)
	if err != nil {
		t.Fatalf("Tracks failed: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("Expected 2 tracks, got %d", len(tracks))
	}

	first := tracks[0]
	if first.ID != 1 || first.Title == nil || *first.Title != "Opening" {
		t.Errorf("Unexpected first track %+v", first)
	}
	if first.Location == nil || *first.Location != 10 {
		t.Errorf("Location reference = %v, want 10", first.Location)
	}
	if first.Key != "8A" || first.BPM != 124 || first.SampleRate != 44100 {
		t.Errorf("Technical columns not read: %+v", first)
	}
	if first.Beats != nil {
		t.Errorf("NULL beats should scan as nil, got %v", first.Beats)
	}
	if first.DateTimeAdded == "" {
		t.Errorf("datetime_added not read")
	}

	second := tracks[1]
	if second.Title != nil {
		t.Errorf("NULL title should scan as nil")
	}
	if len(second.Beats) != 2 || second.BeatsVersion == nil || *second.BeatsVersion != "BeatGrid-2.0" {
		t.Errorf("Beats not read: %v %v", second.Beats, second.BeatsVersion)
	}
	if second.MixxxDeleted == nil || *second.MixxxDeleted != 1 {
		t.Errorf("mixxx_deleted = %v, want 1", second.MixxxDeleted)
	}
}

func TestTrackLocation(t *testing.T) {
	dm := openFixture(t)
	ctx := context.Background()

	loc, err := dm.TrackLocation(ctx, 10)
	if err != nil {
		t.Fatalf("TrackLocation failed: %v", err)
	}
	if loc == nil || *loc.Location != "/music/House/one.mp3" || *loc.Filename != "one.mp3" {
		t.Errorf("Unexpected location %+v", loc)
	}

	loc, err = dm.TrackLocation(ctx, 20)
	if err != nil {
		t.Fatalf("TrackLocation failed: %v", err)
	}
	if loc.Filename != nil || loc.Directory != nil {
		t.Errorf("NULL filename and directory should scan as nil")
	}

	loc, err = dm.TrackLocation(ctx, 404)
	if err != nil || loc != nil {
		t.Errorf("Missing location should be nil, nil; got %v, %v", loc, err)
	}
}

func TestTrackCues(t *testing.T) {
	dm := openFixture(t)

	cues, err := dm.TrackCues(context.Background(), 1)
	if err != nil {
		t.Fatalf("TrackCues failed: %v", err)
	}
	if len(cues) != 2 {
		t.Fatalf("Expected 2 cues, got %d", len(cues))
	}
	if cues[0].Position != 176400 || cues[0].Hotcue != -1 {
		t.Errorf("Cues not ordered by position: %+v", cues)
	}
	if cues[1].Label != "Drop" || cues[1].Hotcue != 2 {
		t.Errorf("Unexpected cue %+v", cues[1])
	}
}

func TestPlaylistsAndMembers(t *testing.T) {
	dm := openFixture(t)
	ctx := context.Background()

	playlists, err := dm.Playlists(ctx)
	if err != nil {
		t.Fatalf("Playlists failed: %v", err)
	}
	if len(playlists) != 2 {
		t.Fatalf("Expected 2 playlists, got %d", len(playlists))
	}
	if *playlists[0].Name != "Warmup" || playlists[0].Hidden != 0 || playlists[0].DateCreated == nil {
		t.Errorf("Unexpected playlist %+v", playlists[0])
	}
	if playlists[1].Hidden != 1 || playlists[1].DateCreated != nil {
		t.Errorf("Unexpected playlist %+v", playlists[1])
	}

	members, err := dm.PlaylistTracks(ctx, 1)
	if err != nil {
		t.Fatalf("PlaylistTracks failed: %v", err)
	}
	want := []int64{1, 2, 99}
	if len(members) != len(want) {
		t.Fatalf("Members = %v, want %v", members, want)
	}
	for i := range want {
		if members[i] != want[i] {
			t.Errorf("Members = %v, want %v", members, want)
			break
		}
	}
}

func TestCratesAndMembers(t *testing.T) {
	dm := openFixture(t)
	ctx := context.Background()

	crates, err := dm.Crates(ctx)
	if err != nil {
		t.Fatalf("Crates failed: %v", err)
	}
	if len(crates) != 2 || crates[0].Name != "Peak" || *crates[1].Show != 0 {
		t.Errorf("Unexpected crates %+v", crates)
	}

	members, err := dm.CrateTracks(ctx, 1)
	if err != nil {
		t.Fatalf("CrateTracks failed: %v", err)
	}
	if len(members) != 2 || members[0] != 2 || members[1] != 1 {
		t.Errorf("Crate members should keep storage order, got %v", members)
	}
}

func TestGetStats(t *testing.T) {
	dm := openFixture(t)

	stats, err := dm.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.TrackCount != 1 || stats.DeletedCount != 1 {
		t.Errorf("Track counts = %d live / %d deleted", stats.TrackCount, stats.DeletedCount)
	}
	if stats.LocationCount != 3 || stats.CueCount != 2 {
		t.Errorf("Unexpected counts %+v", stats)
	}
	if stats.PlaylistCount != 2 || stats.CrateCount != 2 {
		t.Errorf("Unexpected counts %+v", stats)
	}
	if stats.SchemaVersion != SchemaVersion {
		t.Errorf("SchemaVersion = %d, want %d", stats.SchemaVersion, SchemaVersion)
	}
	if stats.DatabaseSize <= 0 {
		t.Errorf("Expected positive database size")
	}
	if stats.AverageBPM != 124 {
		t.Errorf("AverageBPM = %v, want 124", stats.AverageBPM)
	}
}

func TestValidate(t *testing.T) {
	dm := openFixture(t)
	ctx := context.Background()

	report, err := dm.Validate(ctx)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if report.OK() {
		t.Fatal("Expected issues in fixture")
	}

	found := make(map[string]int64)
	for _, issue := range report.Issues {
		found[issue.Check] = issue.ID
	}
	if id, ok := found["dangling_playlist_member"]; !ok || id != 1 {
		t.Errorf("Dangling playlist member not reported: %+v", report.Issues)
	}
	if id, ok := found["dangling_crate_member"]; !ok || id != 2 {
		t.Errorf("Dangling crate member not reported: %+v", report.Issues)
	}
	if _, ok := found["missing_location"]; ok {
		t.Errorf("Fixture tracks all have locations: %+v", report.Issues)
	}

	types, err := dm.FileTypes(ctx)
	if err != nil {
		t.Fatalf("FileTypes failed: %v", err)
	}
	if types["mp3"] != 1 || types["flac"] != 1 {
		t.Errorf("FileTypes = %v, want one mp3 and one flac", types)
	}
}
