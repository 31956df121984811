// package services wraps the HTTP APIs the recall pipeline talks to
//
// Spotify (the listener's account) and the TiVo music metadata catalog.
package services

import (
	"context"
	"math/rand/v2"

	"github.com/desertthunder/discover/internal/models"
	"github.com/zmb3/spotify/v2"
)

// Result is the envelope returned by every account and catalog operation.
//
// A failed operation carries Err and a human-readable Message; Data holds whatever was
// gathered before the failure, which is the zero value for single-request operations.
type Result[T any] struct {
	Data    T
	Message string
	Err     error
}

// Ok wraps a successful payload.
func Ok[T any](data T, message string) Result[T] {
	return Result[T]{Data: data, Message: message}
}

// Fail wraps err with a message and no payload.
func Fail[T any](err error, message string) Result[T] {
	return Result[T]{Message: message, Err: err}
}

// Partial wraps a payload that is usable even though err occurred.
func Partial[T any](data T, err error, message string) Result[T] {
	return Result[T]{Data: data, Message: message, Err: err}
}

// Success reports whether the operation completed without error.
func (r Result[T]) Success() bool {
	return r.Err == nil
}

// Unwrap returns the payload and error as a conventional pair.
func (r Result[T]) Unwrap() (T, error) {
	return r.Data, r.Err
}

// StepFunc receives progress for per-element work: done of total elements finished.
type StepFunc func(done, total int)

// Library is the read side of the listener's account used to recall artists and resolve titles.
type Library interface {
	RecentlyPlayed(ctx context.Context, limit int) Result[[]spotify.RecentlyPlayedItem]
	TopTracks(ctx context.Context, timeRange TimeRange, limit int) Result[[]spotify.FullTrack]
	TopArtists(ctx context.Context, timeRange TimeRange, limit int) Result[[]spotify.FullArtist]
	FollowedArtists(ctx context.Context, limit int, after string) Result[[]spotify.FullArtist]
	UserPlaylists(ctx context.Context, limit, offset int) Result[[]spotify.SimplePlaylist]
	PlaylistTracks(ctx context.Context, playlistID string, limit, offset int) Result[[]spotify.FullTrack]
	SavedAlbums(ctx context.Context, limit, offset int) Result[[]spotify.SavedAlbum]
	SavedTracks(ctx context.Context, limit, offset int) Result[[]spotify.SavedTrack]
	SearchTracks(ctx context.Context, query string, limit int) Result[[]spotify.FullTrack]
}

// Account adds the playlist writes needed to save recall results.
type Account interface {
	Library
	UserProfile(ctx context.Context) Result[*spotify.PrivateUser]
	CreatePlaylist(ctx context.Context, name, description string, public bool) Result[*spotify.FullPlaylist]
	AddTracksToPlaylist(ctx context.Context, playlistID string, trackIDs []string) Result[string]
}

// Catalog is the secondary metadata catalog used to expand artists into candidate tracks.
type Catalog interface {
	ArtistIDs(ctx context.Context, names []string, onStep StepFunc) Result[[]string]
	AlbumIDs(ctx context.Context, artistIDs []string, onStep StepFunc) Result[*models.AlbumMap]
	Tracks(ctx context.Context, albumIDs []string, rng *rand.Rand, onStep StepFunc) Result[[]models.CandidateTrack]
}
