package mixxx

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path"
	"sort"
	"time"

	"go.uber.org/zap"

	"djconv/liberr"
	"djconv/mixxx/beats"
	"djconv/mixxx/schema"
)

// DefaultWorkers bounds concurrent storage lookups.
const DefaultWorkers = 4

// Options controls how a library is read.
type Options struct {
	// Workers is the maximum number of concurrent storage lookups.
	Workers int
	// PositionSampleRate divides frame positions into seconds. Zero uses each track's
	// own sample rate.
	PositionSampleRate int64
	Logger             *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// PositionDivisor returns the divisor used to turn frame positions of a track with the
// given sample rate into seconds.
func (o Options) PositionDivisor(trackSampleRate int64) float64 {
	if o.PositionSampleRate > 0 {
		return float64(o.PositionSampleRate)
	}
	return float64(trackSampleRate)
}

// ReadLibrary reads the complete library from reader. It fails on the first broken
// track, playlist or crate; a partial library is never returned.
func ReadLibrary(ctx context.Context, reader StorageReader, opts Options) (*Library, error) {
	opts = opts.withDefaults()

	tracks, err := readTracks(ctx, reader, opts)
	if err != nil {
		return nil, err
	}
	playlists, err := readPlaylists(ctx, reader, opts)
	if err != nil {
		return nil, err
	}
	crates, err := readCrates(ctx, reader, opts)
	if err != nil {
		return nil, err
	}

	opts.Logger.Info("Read library",
		zap.Int("tracks", len(tracks)),
		zap.Int("playlists", len(playlists)),
		zap.Int("crates", len(crates)))

	return &Library{
		Tracks:    tracks,
		Playlists: playlists,
		Crates:    crates,
	}, nil
}

func readTracks(ctx context.Context, reader StorageReader, opts Options) (map[TrackID]*Track, error) {
	rows, err := reader.Tracks(ctx)
	if err != nil {
		return nil, liberr.New(liberr.KindStorage, "read tracks", err)
	}

	built := make([]*Track, len(rows))
	err = forEach(ctx, opts.Workers, len(rows), func(ctx context.Context, i int) error {
		track, err := readTrack(ctx, reader, &rows[i], opts)
		if err != nil {
			return liberr.Annotate(err, "read track", "track", rows[i].ID, "")
		}
		built[i] = track
		return nil
	})
	if err != nil {
		return nil, err
	}

	tracks := make(map[TrackID]*Track, len(built))
	for _, track := range built {
		if _, dup := tracks[track.ID]; dup {
			return nil, liberr.New(liberr.KindStorage, "read tracks", errors.New("duplicate id")).
				For("track", int64(track.ID), "id")
		}
		tracks[track.ID] = track
	}
	return tracks, nil
}

func readTrack(ctx context.Context, reader StorageReader, row *schema.Track, opts Options) (*Track, error) {
	id, err := toID(row.ID)
	if err != nil {
		return nil, err.For("track", row.ID, "id")
	}

	if row.Location == nil {
		return nil, liberr.New(liberr.KindMissingLocation, "read track", errors.New("no location reference")).
			For("track", row.ID, "location")
	}
	locRow, err2 := reader.TrackLocation(ctx, *row.Location)
	if err2 != nil {
		return nil, liberr.Annotate(err2, "read track location", "track", row.ID, "location")
	}
	location, err := buildLocation(locRow, *row.Location)
	if err != nil {
		return nil, err.For("track", row.ID, "location")
	}

	cueRows, err2 := reader.TrackCues(ctx, row.ID)
	if err2 != nil {
		return nil, liberr.Annotate(err2, "read track cues", "track", row.ID, "cues")
	}

	dateAdded, perr := ParseDateTime(row.DateTimeAdded)
	if perr != nil {
		return nil, liberr.New(liberr.KindDatetimeParse, "read track", perr).For("track", row.ID, "datetime_added")
	}
	var lastPlayed *time.Time
	if row.LastPlayedAt != nil && *row.LastPlayedAt != "" {
		t, perr := ParseDateTime(*row.LastPlayedAt)
		if perr != nil {
			return nil, liberr.New(liberr.KindDatetimeParse, "read track", perr).For("track", row.ID, "last_played_at")
		}
		lastPlayed = &t
	}

	track := &Track{
		ID:          id,
		Artist:      deref(row.Artist),
		Composer:    deref(row.Composer),
		Title:       deref(row.Title),
		Album:       row.Album,
		Year:        deref(row.Year),
		Genre:       row.Genre,
		TrackNumber: row.TrackNumber,
		FileType:    row.FileType,
		Comment:     row.Comment,
		URL:         row.URL,
		Location:    location,
		TechnicalInfo: TrackTechnicalInfo{
			Duration:             row.Duration,
			Bitrate:              row.Bitrate,
			SampleRate:           row.SampleRate,
			BPM:                  row.BPM,
			Beats:                row.Beats,
			BeatsVersion:         row.BeatsVersion,
			Key:                  row.Key,
			ReplayGain:           row.ReplayGain,
			ReplayGainPeak:       row.ReplayGainPeak,
			SourceSynchronizedMS: row.SourceSynchronizedMS,
		},
		Metadata: TrackMetadata{
			Rating:       clampRating(row.Rating),
			Played:       positive(row.Played),
			TimesPlayed:  row.TimesPlayed,
			Deleted:      positive(row.MixxxDeleted),
			DateAdded:    dateAdded,
			LastPlayedAt: lastPlayed,
		},
		Cues: make([]Cue, 0, len(cueRows)),
	}
	if track.Title == "" {
		track.Title = location.Filename
	}

	for _, c := range cueRows {
		track.Cues = append(track.Cues, Cue(c))
	}
	sort.SliceStable(track.Cues, func(i, j int) bool { return track.Cues[i].Position < track.Cues[j].Position })

	offset, err2 := beats.StartOffset(row.Beats, deref(row.BeatsVersion),
		opts.PositionDivisor(row.SampleRate), row.BPM)
	switch {
	case errors.Is(err2, liberr.ErrInvalidBpm), errors.Is(err2, liberr.ErrInvalidSampleRate):
		opts.Logger.Warn("Dropping beat grid offset",
			zap.Int64("track_id", row.ID), zap.String("title", track.Title), zap.Error(err2))
	case err2 != nil:
		return nil, liberr.Annotate(err2, "read track", "track", row.ID, "beats")
	default:
		track.TechnicalInfo.StartOfBeatGrid = offset
	}

	return track, nil
}

func buildLocation(row *schema.TrackLocation, id int64) (TrackLocation, *liberr.Error) {
	if row == nil {
		return TrackLocation{}, liberr.New(liberr.KindMissingLocation, "read track location",
			fmt.Errorf("track_locations row %d not found", id))
	}
	if row.Location == nil || *row.Location == "" {
		return TrackLocation{}, liberr.New(liberr.KindMissingLocation, "read track location",
			fmt.Errorf("track_locations row %d has no path", id))
	}

	loc := TrackLocation{
		Location:  *row.Location,
		Filename:  deref(row.Filename),
		Directory: deref(row.Directory),
	}
	if loc.Filename == "" {
		loc.Filename = path.Base(loc.Location)
	}
	if loc.Directory == "" {
		loc.Directory = path.Dir(loc.Location)
	}
	return loc, nil
}

func readPlaylists(ctx context.Context, reader StorageReader, opts Options) ([]Playlist, error) {
	rows, err := reader.Playlists(ctx)
	if err != nil {
		return nil, liberr.New(liberr.KindStorage, "read playlists", err)
	}

	playlists := make([]Playlist, len(rows))
	err = forEach(ctx, opts.Workers, len(rows), func(ctx context.Context, i int) error {
		row := &rows[i]
		playlist, err := buildPlaylist(row)
		if err != nil {
			return err.For("playlist", row.ID, "")
		}

		members, merr := reader.PlaylistTracks(ctx, row.ID)
		if merr != nil {
			return liberr.Annotate(merr, "read playlist tracks", "playlist", row.ID, "tracks")
		}
		if playlist.TrackIDs, err = toIDs(members); err != nil {
			return err.For("playlist", row.ID, "tracks")
		}

		playlists[i] = playlist
		return nil
	})
	if err != nil {
		return nil, err
	}
	return playlists, nil
}

func buildPlaylist(row *schema.Playlist) (Playlist, *liberr.Error) {
	id, err := toID(row.ID)
	if err != nil {
		err.Field = "id"
		return Playlist{}, err
	}

	playlist := Playlist{
		ID:     id,
		Name:   deref(row.Name),
		Hidden: row.Hidden != 0,
	}
	if row.Position != nil {
		playlist.Position = *row.Position
	}

	if playlist.DateCreated, err = parseOptionalDateTime(row.DateCreated, "date_created"); err != nil {
		return Playlist{}, err
	}
	if playlist.DateModified, err = parseOptionalDateTime(row.DateModified, "date_modified"); err != nil {
		return Playlist{}, err
	}
	return playlist, nil
}

func readCrates(ctx context.Context, reader StorageReader, opts Options) ([]Crate, error) {
	rows, err := reader.Crates(ctx)
	if err != nil {
		return nil, liberr.New(liberr.KindStorage, "read crates", err)
	}

	crates := make([]Crate, len(rows))
	err = forEach(ctx, opts.Workers, len(rows), func(ctx context.Context, i int) error {
		row := &rows[i]
		id, err := toID(row.ID)
		if err != nil {
			return err.For("crate", row.ID, "id")
		}

		members, merr := reader.CrateTracks(ctx, row.ID)
		if merr != nil {
			return liberr.Annotate(merr, "read crate tracks", "crate", row.ID, "tracks")
		}
		trackIDs, err := toIDs(members)
		if err != nil {
			return err.For("crate", row.ID, "tracks")
		}

		count := int64(len(trackIDs))
		if row.Count != nil {
			count = *row.Count
		}
		crates[i] = Crate{
			ID:       id,
			Name:     row.Name,
			Count:    count,
			Hidden:   !positive(row.Show),
			TrackIDs: trackIDs,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return crates, nil
}

func parseOptionalDateTime(value *string, field string) (*time.Time, *liberr.Error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := ParseDateTime(*value)
	if err != nil {
		e := liberr.New(liberr.KindDatetimeParse, "read playlist", err)
		e.Field = field
		return nil, e
	}
	return &t, nil
}

func toID(id int64) (uint32, *liberr.Error) {
	if id < 0 || id > math.MaxUint32 {
		return 0, liberr.New(liberr.KindIdentifierOverflow, "convert id",
			fmt.Errorf("%d does not fit in 32 bits", id))
	}
	return uint32(id), nil
}

func toIDs(ids []int64) ([]TrackID, *liberr.Error) {
	out := make([]TrackID, 0, len(ids))
	for _, id := range ids {
		v, err := toID(id)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func clampRating(rating int64) int64 {
	return min(max(rating, 0), 5)
}

func positive(v *int64) bool {
	return v != nil && *v > 0
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
