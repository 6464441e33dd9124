// Package schema mirrors the rows of the Mixxx SQLite tables read during an export.
// Nullable columns are pointers; nothing here carries behavior.
package schema

// Track is a row of the `library` table.
type Track struct {
	ID                   int64
	Artist               *string
	Composer             *string
	Title                *string
	Album                *string
	Year                 *string
	Genre                *string
	TrackNumber          *string
	Location             *int64 // track_locations.id
	Comment              *string
	URL                  *string
	Duration             float64
	Bitrate              int64
	SampleRate           int64
	BPM                  float64
	DateTimeAdded        string
	MixxxDeleted         *int64
	Played               *int64
	FileType             string
	ReplayGain           float64
	ReplayGainPeak       float64
	TimesPlayed          int64
	Rating               int64
	Key                  string
	Beats                []byte
	BeatsVersion         *string
	LastPlayedAt         *string
	SourceSynchronizedMS *int64
}

// TrackLocation is a row of the `track_locations` table.
type TrackLocation struct {
	ID        int64
	Location  *string
	Filename  *string
	Directory *string
}

// Cue is a row of the `cues` table.
type Cue struct {
	ID       int64
	TrackID  int64
	Type     int64
	Position int64
	Length   int64
	Hotcue   int64
	Label    string
	Color    int64
}

// Playlist is a row of the `Playlists` table.
type Playlist struct {
	ID           int64
	Name         *string
	Position     *int64
	Hidden       int64
	DateCreated  *string
	DateModified *string
}

// Crate is a row of the `crates` table.
type Crate struct {
	ID    int64
	Name  string
	Count *int64
	Show  *int64
}
