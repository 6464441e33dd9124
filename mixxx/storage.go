package mixxx

import (
	"context"

	"djconv/mixxx/schema"
)

// StorageReader is read access to a Mixxx library snapshot.
//
// TrackLocation returns nil, nil when no row exists. Member lists are returned in the order
// the library defines for them: stored position for playlists, storage order for crates.
type StorageReader interface {
	Tracks(ctx context.Context) ([]schema.Track, error)
	TrackLocation(ctx context.Context, id int64) (*schema.TrackLocation, error)
	TrackCues(ctx context.Context, trackID int64) ([]schema.Cue, error)
	Playlists(ctx context.Context) ([]schema.Playlist, error)
	PlaylistTracks(ctx context.Context, playlistID int64) ([]int64, error)
	Crates(ctx context.Context) ([]schema.Crate, error)
	CrateTracks(ctx context.Context, crateID int64) ([]int64, error)
}
