// Package mixxx turns the rows of a Mixxx database into a clean, vendor-neutral library.
package mixxx

import (
	"sort"
	"time"
)

// TrackID identifies a track; rekordbox stores track ids and playlist keys as 32-bit values.
type TrackID = uint32

// Library is the full representation of a Mixxx library.
type Library struct {
	Tracks    map[TrackID]*Track `json:"tracks"`
	Playlists []Playlist         `json:"playlists"`
	Crates    []Crate            `json:"crates"`
}

// TrackIDs returns all track ids in ascending order, the canonical iteration order.
func (l *Library) TrackIDs() []TrackID {
	ids := make([]TrackID, 0, len(l.Tracks))
	for id := range l.Tracks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Track returns the track with the given id, or nil.
func (l *Library) Track(id TrackID) *Track {
	return l.Tracks[id]
}

type Track struct {
	ID            TrackID            `json:"id"`
	Artist        string             `json:"artist"`
	Composer      string             `json:"composer"`
	Title         string             `json:"title"`
	Album         *string            `json:"album,omitempty"`
	Year          string             `json:"year"`
	Genre         *string            `json:"genre,omitempty"`
	TrackNumber   *string            `json:"tracknumber,omitempty"`
	FileType      string             `json:"filetype"`
	Comment       *string            `json:"comment,omitempty"`
	URL           *string            `json:"url,omitempty"`
	Location      TrackLocation      `json:"location"`
	TechnicalInfo TrackTechnicalInfo `json:"technical_info"`
	Metadata      TrackMetadata      `json:"metadata"`
	Cues          []Cue              `json:"cues"`
}

type TrackLocation struct {
	Location  string `json:"location"`
	Filename  string `json:"filename"`
	Directory string `json:"directory"`
}

type TrackTechnicalInfo struct {
	Duration             float64  `json:"duration"`
	Bitrate              int64    `json:"bitrate"`
	SampleRate           int64    `json:"samplerate"`
	BPM                  float64  `json:"bpm"`
	Beats                []byte   `json:"beats,omitempty"`
	BeatsVersion         *string  `json:"beats_version,omitempty"`
	Key                  string   `json:"key"`
	ReplayGain           float64  `json:"replaygain"`
	ReplayGainPeak       float64  `json:"replaygain_peak"`
	SourceSynchronizedMS *int64   `json:"source_synchronized_ms,omitempty"`
	StartOfBeatGrid      *float64 `json:"start_of_beatgrid,omitempty"` // seconds
}

type TrackMetadata struct {
	Rating       int64      `json:"rating"` // 0-5
	Played       bool       `json:"played"`
	TimesPlayed  int64      `json:"timesplayed"`
	Deleted      bool       `json:"deleted"`
	DateAdded    time.Time  `json:"datetime_added"`
	LastPlayedAt *time.Time `json:"last_played_at,omitempty"`
}

// Cue types as stored in the cues table.
const (
	CueTypeInvalid int64 = 0
	CueTypeHotCue  int64 = 1
	CueTypeMainCue int64 = 2
	CueTypeBeat    int64 = 3
	CueTypeLoop    int64 = 4
	CueTypeJump    int64 = 5
	CueTypeIntro   int64 = 6
	CueTypeOutro   int64 = 7
	CueTypeAudible int64 = 8
)

// HotcueUnassigned marks a cue that is not bound to a hotcue slot.
const HotcueUnassigned int64 = -1

type Cue struct {
	ID       int64  `json:"id"`
	TrackID  int64  `json:"track_id"`
	Type     int64  `json:"type"`
	Position int64  `json:"position"` // frames
	Length   int64  `json:"length"`
	Hotcue   int64  `json:"hotcue"`
	Label    string `json:"label"`
	Color    int64  `json:"color"`
}

type Playlist struct {
	ID           uint32     `json:"id"`
	Name         string     `json:"name"`
	Position     int64      `json:"position"`
	Hidden       bool       `json:"hidden"`
	DateCreated  *time.Time `json:"date_created,omitempty"`
	DateModified *time.Time `json:"date_modified,omitempty"`
	TrackIDs     []TrackID  `json:"track_ids"`
}

type Crate struct {
	ID       uint32    `json:"id"`
	Name     string    `json:"name"`
	Count    int64     `json:"count"`
	Hidden   bool      `json:"hidden"`
	TrackIDs []TrackID `json:"track_ids"`
}
