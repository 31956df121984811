package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/discover/internal/models"
	"github.com/desertthunder/discover/internal/services"
	"github.com/zmb3/spotify/v2"
)

// fixedPageSize is the page size the playlist, saved-album and saved-track sources always request.
const fixedPageSize = 3

// followedLimit is the single page of followed artists read per run.
const followedLimit = 3

// ArtistLimits holds the pagination limits for artist recall.
//
// Playlist, Album and SavedTracks are carried for configuration parity; those sources always
// request [fixedPageSize] items.
type ArtistLimits struct {
	Top         int
	Recent      int
	Playlist    int
	Album       int
	SavedTracks int
}

// DefaultArtistLimits returns 5 for every limit.
func DefaultArtistLimits() ArtistLimits {
	return ArtistLimits{Top: 5, Recent: 5, Playlist: 5, Album: 5, SavedTracks: 5}
}

func (l ArtistLimits) withDefaults() ArtistLimits {
	d := DefaultArtistLimits()
	for _, pair := range []struct{ v, def *int }{
		{&l.Top, &d.Top}, {&l.Recent, &d.Recent}, {&l.Playlist, &d.Playlist},
		{&l.Album, &d.Album}, {&l.SavedTracks, &d.SavedTracks},
	} {
		if *pair.v <= 0 {
			*pair.v = *pair.def
		}
	}
	return l
}

// artistSource extracts (id, name) pairs from one part of the listener's library.
type artistSource struct {
	name  string
	fetch func(context.Context, services.Library, ArtistLimits) ([]models.Artist, error)
}

// artistSources lists the recall sources in the order their artists are collected.
var artistSources = []artistSource{
	{"recently played", recentArtists},
	{"top tracks", topTrackArtists},
	{"top artists", topArtists},
	{"followed artists", followedArtists},
	{"playlists", playlistArtists},
	{"saved albums", savedAlbumArtists},
	{"saved tracks", savedTrackArtists},
}

func simpleArtists(out []models.Artist, artists []spotify.SimpleArtist) []models.Artist {
	for _, a := range artists {
		out = append(out, models.Artist{ID: string(a.ID), Name: a.Name})
	}
	return out
}

func fullArtists(artists []spotify.FullArtist) []models.Artist {
	out := make([]models.Artist, 0, len(artists))
	for _, a := range artists {
		out = append(out, models.Artist{ID: string(a.ID), Name: a.Name})
	}
	return out
}

func recentArtists(ctx context.Context, lib services.Library, l ArtistLimits) ([]models.Artist, error) {
	items, err := lib.RecentlyPlayed(ctx, l.Recent).Unwrap()
	if err != nil {
		return nil, err
	}
	var out []models.Artist
	for _, item := range items {
		out = simpleArtists(out, item.Track.Artists)
	}
	return out, nil
}

func topTrackArtists(ctx context.Context, lib services.Library, l ArtistLimits) ([]models.Artist, error) {
	tracks, err := lib.TopTracks(ctx, services.LongTerm, l.Top).Unwrap()
	if err != nil {
		return nil, err
	}
	var out []models.Artist
	for _, t := range tracks {
		out = simpleArtists(out, t.Artists)
	}
	return out, nil
}

func topArtists(ctx context.Context, lib services.Library, l ArtistLimits) ([]models.Artist, error) {
	artists, err := lib.TopArtists(ctx, services.LongTerm, l.Top).Unwrap()
	if err != nil {
		return nil, err
	}
	return fullArtists(artists), nil
}

func followedArtists(ctx context.Context, lib services.Library, _ ArtistLimits) ([]models.Artist, error) {
	artists, err := lib.FollowedArtists(ctx, followedLimit, "").Unwrap()
	if err != nil {
		return nil, err
	}
	return fullArtists(artists), nil
}

// playlistArtists reads the first tracks of the first playlists. A playlist whose tracks cannot be
// read contributes nothing.
func playlistArtists(ctx context.Context, lib services.Library, _ ArtistLimits) ([]models.Artist, error) {
	playlists, err := lib.UserPlaylists(ctx, fixedPageSize, 0).Unwrap()
	if err != nil {
		return nil, err
	}

	var out []models.Artist
	for _, p := range playlists {
		tracks, err := lib.PlaylistTracks(ctx, string(p.ID), fixedPageSize, 0).Unwrap()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		for _, t := range tracks {
			out = simpleArtists(out, t.Artists)
		}
	}
	return out, nil
}

func savedAlbumArtists(ctx context.Context, lib services.Library, _ ArtistLimits) ([]models.Artist, error) {
	albums, err := lib.SavedAlbums(ctx, fixedPageSize, 0).Unwrap()
	if err != nil {
		return nil, err
	}
	var out []models.Artist
	for _, a := range albums {
		out = simpleArtists(out, a.Artists)
	}
	return out, nil
}

func savedTrackArtists(ctx context.Context, lib services.Library, _ ArtistLimits) ([]models.Artist, error) {
	tracks, err := lib.SavedTracks(ctx, fixedPageSize, 0).Unwrap()
	if err != nil {
		return nil, err
	}
	var out []models.Artist
	for _, t := range tracks {
		out = simpleArtists(out, t.Artists)
	}
	return out, nil
}

// RecallArtists collects artists from every library source in a fixed order and removes
// duplicates by ID, keeping the first occurrence and its name.
//
// A failed source contributes nothing. The only failure is context cancellation.
func (e *RecallEngine) RecallArtists(ctx context.Context, limits ArtistLimits, progress chan<- ProgressUpdate) services.Result[[]models.Artist] {
	limits = limits.withDefaults()

	artists := []models.Artist{}
	seen := make(map[string]bool)
	for i, src := range artistSources {
		found, err := src.fetch(ctx, e.account, limits)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return services.Fail[[]models.Artist](ctxErr, "Failed to recall artists")
		}
		if err != nil {
			e.logger.Warn("artist source failed, skipping", "source", src.name, "err", err)
			found = nil
		}

		for _, a := range found {
			if a.ID == "" || seen[a.ID] {
				continue
			}
			seen[a.ID] = true
			artists = append(artists, a)
		}
		e.logger.Debug("artist source", "source", src.name, "pairs", len(found), "unique", len(artists))
		sendProgress(progress, sourceUpdate(i+1, len(artistSources), src.name, len(found)))
	}

	msg := fmt.Sprintf("Successfully recalled artists, total: %d artists", len(artists))
	e.logger.Info("recalled artists", "total", len(artists))
	return services.Ok(artists, msg)
}

// RecallArtistsRun is [RecallEngine.RecallArtists] with the engine's limits, recorded as a run.
func (e *RecallEngine) RecallArtistsRun(ctx context.Context, progress chan<- ProgressUpdate) services.Result[[]models.Artist] {
	res := e.RecallArtists(ctx, e.limits, progress)
	if !res.Success() || e.recorder == nil {
		return res
	}

	run := models.NewRecallRun(models.RunArtists, res.Message)
	run.SetArtistCount(len(res.Data))
	if err := e.recorder.RecordRun(ctx, run, res.Data, nil); err != nil {
		e.logger.Warn("failed to record run", "kind", models.RunArtists, "err", err)
	}
	return res
}
