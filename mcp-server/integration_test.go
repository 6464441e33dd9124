package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"djconv/config"
	"djconv/database"
)

// TestMain sets up the test database
func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "djconv-mcp-test")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create temp dir: %v\n", err)
		os.Exit(1)
	}

	testDBPath := filepath.Join(dir, "mixxxdb.sqlite")
	if err := populateTestData(testDBPath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to populate test data: %v\n", err)
		os.Exit(1)
	}

	logger = zap.NewNop()
	cfg = config.Default()
	cfg.MixxxDB = testDBPath
	cfg.TargetDirectory = filepath.Join(dir, "export")
	dm, err = database.NewDatabaseManager(testDBPath, 2, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open test database: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	dm.Close()
	os.RemoveAll(dir)
	os.Exit(code)
}

func populateTestData(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	if err := database.InitSchema(ctx, db, nil); err != nil {
		return err
	}

	statements := []string{
		`INSERT INTO track_locations (id, location, filename, directory) VALUES
			(1, '/music/Jazz/Blue in Green.mp3', 'Blue in Green.mp3', '/music/Jazz'),
			(2, '/music/Jazz/So What.mp3', 'So What.mp3', '/music/Jazz'),
			(3, '/music/House/Midnight City.flac', 'Midnight City.flac', '/music/House'),
			(4, '/music/House/Strings of Life.wav', 'Strings of Life.wav', '/music/House')`,
		`INSERT INTO library (id, artist, title, album, genre, location, duration, samplerate, bpm,
			datetime_added, filetype, rating, "key", mixxx_deleted) VALUES
			(1, 'Miles Davis', 'Blue in Green', 'Kind of Blue', 'Jazz', 1, 337, 44100, 62, '2023-01-01 00:00:00', 'mp3', 5, '4A', 0),
			(2, 'Miles Davis', 'So What', 'Kind of Blue', 'Jazz', 2, 562, 44100, 136, '2023-01-01 00:00:00', 'mp3', 4, '8A', 0),
			(3, 'M83', 'Midnight City', 'Hurry Up', 'Electronic', 3, 243, 48000, 105, '2023-02-01 00:00:00', 'flac', 3, '', 0),
			(4, 'Rhythim Is Rhythim', 'Strings of Life', 'Innovator', 'Electronic', 4, 390, 44100, 124, '2023-03-01 00:00:00', 'wav', 5, '9A', 1)`,
		`INSERT INTO cues (track_id, type, position, hotcue, label) VALUES
			(2, 1, 88200, 0, 'Theme'), (2, 2, 0, -1, '')`,
		`INSERT INTO Playlists (id, name, position, hidden) VALUES (1, 'Late Night', 1, 0)`,
		`INSERT INTO PlaylistTracks (playlist_id, track_id, position) VALUES (1, 2, 1), (1, 3, 2)`,
		`INSERT INTO crates (id, name, count, show) VALUES (1, 'Classics', 2, 1)`,
		`INSERT INTO crate_tracks (crate_id, track_id) VALUES (1, 1), (1, 4)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w\n%s", err, stmt)
		}
	}
	return nil
}

// Helper function to create CallToolRequest with arguments
func createRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

// Helper function to extract text from CallToolResult
func extractTextFromResult(result *mcp.CallToolResult) (string, error) {
	if len(result.Content) == 0 {
		return "", fmt.Errorf("no content in result")
	}
	if textContent, ok := result.Content[0].(mcp.TextContent); ok {
		return textContent.Text, nil
	}
	return "", fmt.Errorf("could not extract text from content")
}

func TestSearchHandler(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		params map[string]any
		want   []int64
	}{
		{"Search for artist", map[string]any{"query": "Miles"}, []int64{1, 2}},
		{"Search for album", map[string]any{"query": "Kind of"}, []int64{1, 2}},
		{"Exact title first", map[string]any{"query": "So What"}, []int64{2}},
		{"Genre filter", map[string]any{"query": "i", "genre": "Electronic"}, []int64{3}},
		{"Deleted tracks included", map[string]any{"query": "i", "genre": "Electronic", "include_deleted": true}, []int64{3, 4}},
		{"Playlist filter", map[string]any{"query": "i", "playlist": "Late Night"}, []int64{3, 2}},
		{"Crate filter", map[string]any{"query": "e", "crate": "Classics"}, []int64{1}},
		{"Rating filter", map[string]any{"query": "Miles", "min_rating": 5.0}, []int64{1}},
		{"Limit", map[string]any{"query": "Miles", "limit": 1.0}, []int64{1}},
		{"Blank query lists by artist", map[string]any{"query": "   "}, []int64{3, 1, 2}},
		{"Blank query with genre filter", map[string]any{"query": " ", "genre": "Jazz"}, []int64{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := searchHandler(ctx, createRequest(tt.params))
			if err != nil {
				t.Fatalf("searchHandler returned error: %v", err)
			}
			if result.IsError {
				t.Fatalf("Got unexpected error result: %+v", result.Content)
			}

			text, err := extractTextFromResult(result)
			if err != nil {
				t.Fatalf("Failed to extract text: %v", err)
			}

			var tracks []database.TrackSummary
			if err := json.Unmarshal([]byte(text), &tracks); err != nil {
				t.Fatalf("Failed to parse tracks: %v\n%s", err, text)
			}
			var got []int64
			for _, track := range tracks {
				got = append(got, track.ID)
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("Got tracks %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSearchHandlerNoResults(t *testing.T) {
	result, err := searchHandler(context.Background(), createRequest(map[string]any{"query": "NonexistentTrack"}))
	if err != nil {
		t.Fatalf("searchHandler returned error: %v", err)
	}
	text, err := extractTextFromResult(result)
	if err != nil {
		t.Fatalf("Failed to extract text: %v", err)
	}
	if !strings.Contains(text, "No tracks found") {
		t.Errorf("Unexpected response: %s", text)
	}
}

func TestSearchHandlerMissingQuery(t *testing.T) {
	result, err := searchHandler(context.Background(), createRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("searchHandler returned error: %v", err)
	}
	if !result.IsError {
		t.Error("Expected error result for missing query")
	}
}

func TestStatsHandler(t *testing.T) {
	result, err := statsHandler(context.Background(), createRequest(nil))
	if err != nil {
		t.Fatalf("statsHandler returned error: %v", err)
	}
	text, err := extractTextFromResult(result)
	if err != nil {
		t.Fatalf("Failed to extract text: %v", err)
	}

	var stats database.DatabaseStats
	if err := json.Unmarshal([]byte(text), &stats); err != nil {
		t.Fatalf("Failed to parse stats: %v", err)
	}
	if stats.TrackCount != 3 || stats.DeletedCount != 1 || stats.CueCount != 2 ||
		stats.PlaylistCount != 1 || stats.CrateCount != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestStatsResource(t *testing.T) {
	request := mcp.ReadResourceRequest{}
	request.Params.URI = "djconv://library/stats"

	contents, err := statsResourceHandler(context.Background(), request)
	if err != nil {
		t.Fatalf("statsResourceHandler returned error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("Expected one content item, got %d", len(contents))
	}
	text, ok := contents[0].(*mcp.TextResourceContents)
	if !ok {
		t.Fatalf("Unexpected content type %T", contents[0])
	}
	if text.URI != request.Params.URI || text.MIMEType != "application/json" {
		t.Errorf("Unexpected resource metadata: %+v", text)
	}
	if !strings.Contains(text.Text, `"track_count": 3`) {
		t.Errorf("Unexpected resource body: %s", text.Text)
	}
}

func TestExportHandler(t *testing.T) {
	tests := []struct {
		format string
		file   string
	}{
		{"xml", "rekordbox.xml"},
		{"json", "mixxx_library.json"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			target := t.TempDir()
			result, err := exportHandler(context.Background(), createRequest(map[string]any{
				"format":           tt.format,
				"target_directory": target,
			}))
			if err != nil {
				t.Fatalf("exportHandler returned error: %v", err)
			}
			text, err := extractTextFromResult(result)
			if err != nil {
				t.Fatalf("Failed to extract text: %v", err)
			}
			if result.IsError {
				t.Fatalf("Export failed: %s", text)
			}

			var summary struct {
				Path   string `json:"path"`
				Tracks int    `json:"tracks"`
			}
			if err := json.Unmarshal([]byte(text), &summary); err != nil {
				t.Fatalf("Failed to parse export result: %v", err)
			}
			if summary.Path != filepath.Join(target, tt.file) || summary.Tracks != 4 {
				t.Errorf("Unexpected export result: %+v", summary)
			}
			if _, err := os.Stat(summary.Path); err != nil {
				t.Errorf("Export file missing: %v", err)
			}
		})
	}
}

func TestExportHandlerRejectsUnknownFormat(t *testing.T) {
	result, err := exportHandler(context.Background(), createRequest(map[string]any{
		"format":           "m3u",
		"target_directory": t.TempDir(),
	}))
	if err != nil {
		t.Fatalf("exportHandler returned error: %v", err)
	}
	if !result.IsError {
		t.Error("Expected error result for unknown format")
	}
}
