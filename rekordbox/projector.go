package rekordbox

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"djconv/liberr"
	"djconv/mixxx"
	"djconv/mixxx/beats"
)

// AllPlaylistName is the playlist that makes every track reachable after an import.
const AllPlaylistName = "all"

// Cue colour written for every exported position mark.
const (
	cueRed   = 40
	cueGreen = 226
	cueBlue  = 20
)

// Options controls the projection.
type Options struct {
	Paths PathTranslator
	// PositionSampleRate divides cue frame positions; zero uses each track's sample rate.
	PositionSampleRate int64
	Logger             *zap.Logger
}

// Summary counts what the projection produced and what it left out.
type Summary struct {
	Tracks             int  `json:"tracks"`
	Cues               int  `json:"cues"`
	Playlists          int  `json:"playlists"`
	HiddenPlaylists    int  `json:"hidden_playlists"`
	SkippedCues        int  `json:"skipped_cues"`
	DanglingReferences int  `json:"dangling_references"`
	SynthesizedAll     bool `json:"synthesized_all"`
}

// Project maps lib onto a rekordbox library. The first track that cannot be represented
// aborts the projection; references to unknown tracks are dropped and counted.
func Project(lib *mixxx.Library, opts Options) (*Library, Summary, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	var summary Summary

	ids := lib.TrackIDs()
	tracks := make([]Track, 0, len(ids))
	for _, id := range ids {
		track, err := projectTrack(lib.Track(id), opts, &summary)
		if err != nil {
			return nil, summary, liberr.Annotate(err, "project track", "track", int64(id), "")
		}
		tracks = append(tracks, track)
	}
	summary.Tracks = len(tracks)

	var nodes []PlaylistNode
	hasAll := false
	for _, playlist := range lib.Playlists {
		if playlist.Hidden {
			summary.HiddenPlaylists++
			continue
		}
		if playlist.Name == AllPlaylistName {
			hasAll = true
		}
		nodes = append(nodes, playlistNode(lib, "playlist", playlist.ID, playlist.Name, playlist.TrackIDs, opts, &summary))
	}

	if !hasAll {
		nodes = append(nodes, newPlaylistNode(AllPlaylistName, ids))
		summary.SynthesizedAll = true
	}

	// rekordbox has no crates; they become ordinary playlists.
	for _, crate := range lib.Crates {
		if crate.Hidden {
			summary.HiddenPlaylists++
			continue
		}
		nodes = append(nodes, playlistNode(lib, "crate", crate.ID, crate.Name, crate.TrackIDs, opts, &summary))
	}
	summary.Playlists = len(nodes)

	return &Library{
		Version: SchemaVersion,
		Product: Product{
			Name:    ProductName,
			Version: ProductVersion,
			Company: ProductCompany,
		},
		Collection: Collection{
			Entries: len(tracks),
			Tracks:  tracks,
		},
		Playlists: Playlists{
			Root: FolderNode{
				Type:      NodeTypeFolder,
				Name:      "ROOT",
				Count:     len(nodes),
				Playlists: nodes,
			},
		},
	}, summary, nil
}

func playlistNode(lib *mixxx.Library, entity string, id uint32, name string, members []mixxx.TrackID, opts Options, summary *Summary) PlaylistNode {
	kept := make([]mixxx.TrackID, 0, len(members))
	for _, member := range members {
		if lib.Track(member) == nil {
			opts.Logger.Warn("Skipping reference to unknown track",
				zap.String("entity", entity),
				zap.Uint32("id", id),
				zap.String("name", name),
				zap.Uint32("track_id", member))
			summary.DanglingReferences++
			continue
		}
		kept = append(kept, member)
	}
	return newPlaylistNode(name, kept)
}

func newPlaylistNode(name string, ids []mixxx.TrackID) PlaylistNode {
	tracks := make([]PlaylistTrack, len(ids))
	for i, id := range ids {
		tracks[i] = PlaylistTrack{Key: id}
	}
	return PlaylistNode{
		Type:    NodeTypePlaylist,
		Name:    name,
		KeyType: KeyTypeTrackID,
		Entries: len(tracks),
		Tracks:  tracks,
	}
}

func projectTrack(t *mixxx.Track, opts Options, summary *Summary) (Track, error) {
	kind, err := TrackKind(t.FileType)
	if err != nil {
		return Track{}, liberr.Annotate(err, "project track", "track", int64(t.ID), "filetype")
	}
	location, err := opts.Paths.Location(t.Location.Location)
	if err != nil {
		return Track{}, liberr.Annotate(err, "project track", "track", int64(t.ID), "location")
	}

	inizio := 0.0
	if offset := t.TechnicalInfo.StartOfBeatGrid; offset != nil {
		inizio = *offset
	}

	return Track{
		TrackID:     t.ID,
		Name:        t.Title,
		Artist:      t.Artist,
		Composer:    t.Composer,
		Album:       deref(t.Album),
		Genre:       deref(t.Genre),
		Kind:        kind,
		Size:        "0",
		TotalTime:   int64(t.TechnicalInfo.Duration),
		DiscNumber:  1,
		TrackNumber: deref(t.TrackNumber),
		Year:        formatYear(t.Year),
		AverageBpm:  formatBpm(t.TechnicalInfo.BPM),
		DateAdded:   t.Metadata.DateAdded.Format("2006-01-02"),
		BitRate:     t.TechnicalInfo.Bitrate,
		SampleRate:  t.TechnicalInfo.SampleRate,
		Comments:    deref(t.Comment),
		PlayCount:   t.Metadata.TimesPlayed,
		Rating:      TranslateRating(t.Metadata.Rating),
		Location:    location,
		Tonality:    TranslateKey(t.TechnicalInfo.Key),
		Tempo: Tempo{
			Inizio:  formatSeconds(inizio),
			Bpm:     formatBpm(t.TechnicalInfo.BPM),
			Metro:   "4/4",
			Battito: "1",
		},
		PositionMarks: positionMarks(t, opts, summary),
	}, nil
}

func positionMarks(t *mixxx.Track, opts Options, summary *Summary) []PositionMark {
	divisor := mixxx.Options{PositionSampleRate: opts.PositionSampleRate}.PositionDivisor(t.TechnicalInfo.SampleRate)

	var marks []PositionMark
	for _, cue := range t.Cues {
		// Boundary markers (main cue, intro, outro, audible) never carry over.
		if cue.Type != mixxx.CueTypeHotCue || cue.Hotcue < 0 {
			summary.SkippedCues++
			continue
		}
		if divisor <= 0 {
			opts.Logger.Warn("Dropping cue of track without sample rate",
				zap.Uint32("track_id", t.ID), zap.Int64("cue_id", cue.ID))
			summary.SkippedCues++
			continue
		}
		marks = append(marks, PositionMark{
			Name:  cue.Label,
			Type:  0,
			Start: formatSeconds(beats.FramesToSeconds(float64(cue.Position), divisor)),
			Num:   cue.Hotcue,
			Red:   cueRed,
			Green: cueGreen,
			Blue:  cueBlue,
		})
	}
	summary.Cues += len(marks)
	return marks
}

// formatYear keeps years that fit an unsigned 16-bit value and drops anything else.
func formatYear(year string) string {
	y, err := strconv.ParseUint(strings.TrimSpace(year), 10, 16)
	if err != nil {
		return ""
	}
	return strconv.FormatUint(y, 10)
}

func formatBpm(bpm float64) string {
	return fmt.Sprintf("%.2f", bpm)
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
