// Package rekordbox projects a Mixxx library onto the rekordbox DJ_PLAYLISTS XML schema.
package rekordbox

import "encoding/xml"

// Fixed header values rekordbox expects in an importable library.
const (
	SchemaVersion  = "1.0.0"
	ProductName    = "rekordbox"
	ProductVersion = "6.7.2"
	ProductCompany = "AlphaTheta"
)

// Node types in the PLAYLISTS tree.
const (
	NodeTypeFolder   = 0
	NodeTypePlaylist = 1
)

// KeyTypeTrackID makes playlist TRACK keys refer to COLLECTION TrackIDs.
const KeyTypeTrackID = 0

// Library is the DJ_PLAYLISTS document.
type Library struct {
	XMLName    xml.Name   `xml:"DJ_PLAYLISTS"`
	Version    string     `xml:"Version,attr"`
	Product    Product    `xml:"PRODUCT"`
	Collection Collection `xml:"COLLECTION"`
	Playlists  Playlists  `xml:"PLAYLISTS"`
}

type Product struct {
	Name    string `xml:"Name,attr"`
	Version string `xml:"Version,attr"`
	Company string `xml:"Company,attr"`
}

type Collection struct {
	Entries int     `xml:"Entries,attr"`
	Tracks  []Track `xml:"TRACK"`
}

// Track is a COLLECTION entry. Numeric text fields are preformatted so the document
// carries exactly the precision rekordbox writes itself.
type Track struct {
	TrackID     uint32 `xml:"TrackID,attr"`
	Name        string `xml:"Name,attr"`
	Artist      string `xml:"Artist,attr"`
	Composer    string `xml:"Composer,attr"`
	Album       string `xml:"Album,attr"`
	Grouping    string `xml:"Grouping,attr"`
	Genre       string `xml:"Genre,attr"`
	Kind        string `xml:"Kind,attr"`
	Size        string `xml:"Size,attr"`
	TotalTime   int64  `xml:"TotalTime,attr"`
	DiscNumber  int    `xml:"DiscNumber,attr"`
	TrackNumber string `xml:"TrackNumber,attr"`
	Year        string `xml:"Year,attr"`
	AverageBpm  string `xml:"AverageBpm,attr"`
	DateAdded   string `xml:"DateAdded,attr"`
	BitRate     int64  `xml:"BitRate,attr"`
	SampleRate  int64  `xml:"SampleRate,attr"`
	Comments    string `xml:"Comments,attr"`
	PlayCount   int64  `xml:"PlayCount,attr"`
	Rating      int    `xml:"Rating,attr"`
	Location    string `xml:"Location,attr"`
	Remixer     string `xml:"Remixer,attr"`
	Tonality    string `xml:"Tonality,attr"`
	Label       string `xml:"Label,attr"`
	Mix         string `xml:"Mix,attr"`

	Tempo         Tempo          `xml:"TEMPO"`
	PositionMarks []PositionMark `xml:"POSITION_MARK"`
}

// Tempo anchors the beat grid: Inizio is the first downbeat in seconds.
type Tempo struct {
	Inizio  string `xml:"Inizio,attr"`
	Bpm     string `xml:"Bpm,attr"`
	Metro   string `xml:"Metro,attr"`
	Battito string `xml:"Battito,attr"`
}

// PositionMark is a memory or hot cue. Num is the hot cue slot.
type PositionMark struct {
	Name  string `xml:"Name,attr"`
	Type  int    `xml:"Type,attr"`
	Start string `xml:"Start,attr"`
	Num   int64  `xml:"Num,attr"`
	Red   int    `xml:"Red,attr"`
	Green int    `xml:"Green,attr"`
	Blue  int    `xml:"Blue,attr"`
}

type Playlists struct {
	Root FolderNode `xml:"NODE"`
}

type FolderNode struct {
	Type      int            `xml:"Type,attr"`
	Name      string         `xml:"Name,attr"`
	Count     int            `xml:"Count,attr"`
	Playlists []PlaylistNode `xml:"NODE"`
}

type PlaylistNode struct {
	Type    int             `xml:"Type,attr"`
	Name    string          `xml:"Name,attr"`
	KeyType int             `xml:"KeyType,attr"`
	Entries int             `xml:"Entries,attr"`
	Tracks  []PlaylistTrack `xml:"TRACK"`
}

type PlaylistTrack struct {
	Key uint32 `xml:"Key,attr"`
}
