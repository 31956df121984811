package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/discover/internal/services"
	"github.com/desertthunder/discover/internal/shared"
	"github.com/zmb3/spotify/v2"
)

// addChunkSize is the maximum number of track IDs Spotify accepts per add request.
const addChunkSize = 100

// playlistSearchLimit bounds how many playlists [RecallEngine.FindPlaylist] scans.
const playlistSearchLimit = 50

// FillRequest describes a playlist to create and optionally fill.
//
// TrackIDs, when set, are added as given and RandomFill is ignored.
type FillRequest struct {
	Name        string
	Description string
	Public      bool
	RandomFill  bool
	NumTracks   int
	TrackIDs    []string
	RunID       string // recorded run the tracks came from, linked to the playlist
}

// PlaylistLinker records which playlist a run was saved to (repositories.RecallRunRepository).
type PlaylistLinker interface {
	SetPlaylist(ctx context.Context, runID, playlistID string) error
}

// FillResult is the created playlist and the tracks added to it.
type FillResult struct {
	Playlist *spotify.FullPlaylist `json:"playlist"`
	Tracks   []spotify.FullTrack   `json:"tracks"`
	Snapshot string                `json:"snapshot_id,omitempty"`
	RunID    string                `json:"run_id,omitempty"`
}

// FillPlaylist creates a playlist for the current user and, when requested, fills it with a
// random recall.
func (e *RecallEngine) FillPlaylist(ctx context.Context, req FillRequest, progress chan<- ProgressUpdate) services.Result[*FillResult] {
	if strings.TrimSpace(req.Name) == "" {
		return services.Fail[*FillResult](fmt.Errorf("%w: playlist name", shared.ErrMissingArgument), "Failed to create playlist")
	}

	pl, err := e.account.CreatePlaylist(ctx, req.Name, req.Description, req.Public).Unwrap()
	if err != nil {
		return services.Fail[*FillResult](err, "Failed to create playlist")
	}
	sendProgress(progress, createPlaylistUpdate(pl))
	e.logger.Info("created playlist", "name", pl.Name, "id", pl.ID)

	result := &FillResult{Playlist: pl, Tracks: []spotify.FullTrack{}, RunID: req.RunID}
	if len(req.TrackIDs) > 0 {
		snapshot, err := e.addInChunks(ctx, string(pl.ID), req.TrackIDs, progress)
		if err != nil {
			return services.Partial(result, err, "Created playlist but failed to add tracks")
		}
		result.Snapshot = snapshot
		e.linkPlaylist(ctx, result)

		msg := fmt.Sprintf("Successfully created playlist %s with %d tracks", pl.Name, len(req.TrackIDs))
		sendProgress(progress, completeUpdate(msg, result))
		return services.Ok(result, msg)
	}
	if !req.RandomFill {
		msg := fmt.Sprintf("Successfully created playlist %s", pl.Name)
		sendProgress(progress, completeUpdate(msg, result))
		return services.Ok(result, msg)
	}

	fill := e.RandomFill(ctx, req.NumTracks, progress)
	if !fill.Success() {
		return services.Partial(result, fill.Err, "Created playlist but failed to fill it")
	}
	result.RunID = fill.Data.RunID

	snapshot, err := e.addInChunks(ctx, string(pl.ID), fill.Data.TrackIDs, progress)
	if err != nil {
		return services.Partial(result, err, "Created playlist but failed to add tracks")
	}
	result.Tracks = fill.Data.Tracks
	result.Snapshot = snapshot
	e.linkPlaylist(ctx, result)

	msg := fmt.Sprintf("Successfully created playlist %s with %d tracks", pl.Name, len(result.Tracks))
	sendProgress(progress, completeUpdate(msg, result))
	return services.Ok(result, msg)
}

// linkPlaylist stores the playlist on the run when the recorder can link them.
func (e *RecallEngine) linkPlaylist(ctx context.Context, result *FillResult) {
	linker, ok := e.recorder.(PlaylistLinker)
	if !ok || result.RunID == "" {
		return
	}
	if err := linker.SetPlaylist(ctx, result.RunID, string(result.Playlist.ID)); err != nil {
		e.logger.Warn("failed to link run to playlist", "run", result.RunID, "err", err)
	}
}

// addInChunks adds ids to a playlist in request-sized chunks and returns the last snapshot.
func (e *RecallEngine) addInChunks(ctx context.Context, playlistID string, ids []string, progress chan<- ProgressUpdate) (string, error) {
	var snapshot string
	for start := 0; start < len(ids); start += addChunkSize {
		end := min(start+addChunkSize, len(ids))
		res := e.account.AddTracksToPlaylist(ctx, playlistID, ids[start:end])
		if !res.Success() {
			return snapshot, res.Err
		}
		snapshot = res.Data
		sendProgress(progress, addTracksUpdate(end, len(ids)))
	}
	return snapshot, nil
}

// FindPlaylist returns the first of the user's playlists whose name matches, ignoring case.
func (e *RecallEngine) FindPlaylist(ctx context.Context, name string) (*spotify.SimplePlaylist, error) {
	playlists, err := e.account.UserPlaylists(ctx, playlistSearchLimit, 0).Unwrap()
	if err != nil {
		return nil, err
	}
	for _, p := range playlists {
		if strings.EqualFold(p.Name, name) {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, name)
}

// TrackQuery builds a search query scoped to an artist when one is given.
func TrackQuery(title, artist string) string {
	if artist == "" {
		return title
	}
	return fmt.Sprintf("%s artist:%s", title, artist)
}

// FindTrack returns the first search hit for title, scoped to artist when given.
func (e *RecallEngine) FindTrack(ctx context.Context, title, artist string) (*spotify.FullTrack, error) {
	found, err := e.account.SearchTracks(ctx, TrackQuery(title, artist), 1).Unwrap()
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, title)
	}
	return &found[0], nil
}

// AddTracksByName searches each title, optionally scoped to the artist at the same index, and
// adds the first hits to the named playlist. Any title without a hit fails the whole call
// before anything is added.
func (e *RecallEngine) AddTracksByName(ctx context.Context, playlistName string, titles, artists []string) services.Result[[]spotify.FullTrack] {
	if len(titles) == 0 {
		return services.Fail[[]spotify.FullTrack](fmt.Errorf("%w: track titles", shared.ErrMissingArgument), "Failed to add tracks")
	}

	pl, err := e.FindPlaylist(ctx, playlistName)
	if err != nil {
		return services.Fail[[]spotify.FullTrack](err, "Failed to add tracks")
	}

	tracks := make([]spotify.FullTrack, 0, len(titles))
	ids := make([]string, 0, len(titles))
	for i, title := range titles {
		var artist string
		if i < len(artists) {
			artist = artists[i]
		}

		hit, err := e.FindTrack(ctx, title, artist)
		if err != nil {
			return services.Fail[[]spotify.FullTrack](err, "Failed to add tracks")
		}
		tracks = append(tracks, *hit)
		ids = append(ids, string(hit.ID))
	}

	if _, err := e.addInChunks(ctx, string(pl.ID), ids, nil); err != nil {
		return services.Fail[[]spotify.FullTrack](err, "Failed to add tracks")
	}

	msg := fmt.Sprintf("Successfully added %d tracks to %s", len(tracks), pl.Name)
	e.logger.Info("added tracks by name", "playlist", pl.Name, "tracks", len(tracks))
	return services.Ok(tracks, msg)
}
