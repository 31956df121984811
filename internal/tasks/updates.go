package tasks

import (
	"fmt"

	"github.com/zmb3/spotify/v2"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	RecallArtists Phase = iota
	ResolveArtists
	FetchAlbums
	ExpandTracks
	SearchTracks
	CreatePlaylist
	AddTracks
	Complete
)

func (p Phase) String() string {
	switch p {
	case RecallArtists:
		return "recall_artists"
	case ResolveArtists:
		return "resolve_artists"
	case FetchAlbums:
		return "fetch_albums"
	case ExpandTracks:
		return "expand_tracks"
	case SearchTracks:
		return "search_tracks"
	case CreatePlaylist:
		return "create_playlist"
	case AddTracks:
		return "add_tracks"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

func sourceUpdate(step, total int, source string, found int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RecallArtists,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s: %d artists", step, total, source, found),
	}
}

func catalogUpdate(phase Phase, step, total int) ProgressUpdate {
	var what string
	switch phase {
	case ResolveArtists:
		what = "Looking up artists in the catalog"
	case FetchAlbums:
		what = "Fetching discographies"
	default:
		what = "Expanding albums into tracks"
	}
	return ProgressUpdate{
		Phase:   phase,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("%s (%d/%d)...", what, step, total),
	}
}

func searchUpdate(step, total int, title string, hit *spotify.FullTrack) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] %s: no match", step, total, title)
	if hit != nil {
		msg = fmt.Sprintf("[%d/%d] %s → %s", step, total, title, hit.Name)
	}
	return ProgressUpdate{
		Phase:   SearchTracks,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    hit,
	}
}

func createPlaylistUpdate(pl *spotify.FullPlaylist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s)", pl.Name, pl.ID),
		Data:    pl,
	}
}

func addTracksUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Added %d of %d tracks", step, total),
	}
}

func completeUpdate(message string, data any) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    1,
		Total:   1,
		Message: message,
		Data:    data,
	}
}
