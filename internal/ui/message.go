package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/discover/internal/models"
	"github.com/desertthunder/discover/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgressUpdate MsgKind = iota
	MsgArtistsRecalled
	MsgTracksRecalled
	MsgPlaylistSaved
	MsgHistoryFetched
)

type artistsData struct {
	artists []models.Artist
	message string
	err     error
}

type tracksData struct {
	kind   models.RunKind
	result *tasks.RecallResult
	err    error
}

type savedData struct {
	result *tasks.FillResult
	err    error
}

type historyData struct {
	runs []*models.RecallRun
	err  error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// artistsRecalledMsg is the constructor for [MsgArtistsRecalled]
func artistsRecalledMsg(artists []models.Artist, message string, err error) Msg {
	return Msg{kind: MsgArtistsRecalled, data: artistsData{artists, message, err}}
}

// tracksRecalledMsg is the constructor for [MsgTracksRecalled]
func tracksRecalledMsg(kind models.RunKind, result *tasks.RecallResult, err error) Msg {
	return Msg{kind: MsgTracksRecalled, data: tracksData{kind, result, err}}
}

// playlistSavedMsg is the constructor for [MsgPlaylistSaved]
func playlistSavedMsg(result *tasks.FillResult, err error) Msg {
	return Msg{kind: MsgPlaylistSaved, data: savedData{result, err}}
}

// historyFetchedMsg is the constructor for [MsgHistoryFetched]
func historyFetchedMsg(runs []*models.RecallRun, err error) Msg {
	return Msg{kind: MsgHistoryFetched, data: historyData{runs, err}}
}
