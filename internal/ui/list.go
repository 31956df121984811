package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/discover/internal/models"
	"github.com/zmb3/spotify/v2"
)

var (
	_ list.Item = actionItem{}
	_ list.Item = artistItem{}
	_ list.Item = trackItem{}
	_ list.Item = runItem{}
)

// action is a menu entry.
type action int

const (
	actionRecallTracks action = iota
	actionRandomFill
	actionRecallArtists
	actionHistory
)

// actionItem wraps an [action] to implement [list.Item].
type actionItem struct {
	action action
	title  string
	desc   string
}

func (i actionItem) FilterValue() string { return i.title }
func (i actionItem) Title() string       { return i.title }
func (i actionItem) Description() string { return i.desc }

// artistItem wraps [models.Artist] to implement [list.Item].
type artistItem struct {
	artist models.Artist
}

func (i artistItem) FilterValue() string { return i.artist.Name }
func (i artistItem) Title() string       { return i.artist.Name }
func (i artistItem) Description() string { return i.artist.ID }

// trackItem wraps [spotify.FullTrack] to implement [list.Item].
type trackItem struct {
	track spotify.FullTrack
}

func (i trackItem) FilterValue() string { return i.track.Name }
func (i trackItem) Title() string       { return i.track.Name }
func (i trackItem) Description() string {
	names := make([]string, len(i.track.Artists))
	for j, a := range i.track.Artists {
		names[j] = a.Name
	}

	desc := strings.Join(names, ", ")
	if i.track.Album.Name != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.Album.Name)
	}
	return desc
}

// runItem wraps [models.RecallRun] to implement [list.Item].
type runItem struct {
	run *models.RecallRun
}

func (i runItem) FilterValue() string { return string(i.run.Kind()) }
func (i runItem) Title() string {
	return fmt.Sprintf("#%d %s", i.run.Sequence(), i.run.Kind())
}
func (i runItem) Description() string {
	desc := fmt.Sprintf("%s • %d artists • %d tracks", i.run.CreatedAt().Format("2006-01-02 15:04"), i.run.ArtistCount(), i.run.TrackCount())
	if i.run.PlaylistID() != "" {
		desc = fmt.Sprintf("%s • saved", desc)
	}
	return desc
}

func menuItems() []list.Item {
	return []list.Item{
		actionItem{actionRecallTracks, "Recall tracks", "Resolve your top artists through the catalog and search each track"},
		actionItem{actionRandomFill, "Random fill", "Sample catalog tracks from every recalled artist"},
		actionItem{actionRecallArtists, "Recall artists", "Gather artists from seven library sources"},
		actionItem{actionHistory, "History", "Browse previous recall runs"},
	}
}

func trackItems(tracks []spotify.FullTrack) []list.Item {
	items := make([]list.Item, len(tracks))
	for i, t := range tracks {
		items[i] = trackItem{track: t}
	}
	return items
}

func artistItems(artists []models.Artist) []list.Item {
	items := make([]list.Item, len(artists))
	for i, a := range artists {
		items[i] = artistItem{artist: a}
	}
	return items
}

func runItems(runs []*models.RecallRun) []list.Item {
	items := make([]list.Item, len(runs))
	for i, r := range runs {
		items[i] = runItem{run: r}
	}
	return items
}
