package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/discover/internal/models"
	"github.com/desertthunder/discover/internal/tasks"
	"github.com/zmb3/spotify/v2"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	MenuView ViewState = iota
	RunningView
	ResultView
	ConfirmView
	SavedView
	HistoryView
)

const historyLimit = 50

// size used until the first tea.WindowSizeMsg arrives
const (
	defaultWidth  = 80
	defaultHeight = 24
)

// RunLister reads recorded runs, newest first.
type RunLister interface {
	List(ctx context.Context, criteria map[string]any) ([]*models.RecallRun, error)
}

// Options holds values the TUI passes on to the engine.
type Options struct {
	FillSize     int    // tracks requested by random fill
	PlaylistName string // default name for saved playlists
	Public       bool
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	view    ViewState
	engine  *tasks.RecallEngine
	history RunLister
	opts    Options
	width   int
	height  int

	menu     list.Model
	results  list.Model
	runs     list.Model
	spinner  spinner.Model
	bar      progress.Model
	progress tasks.ProgressUpdate

	progressChan chan tasks.ProgressUpdate
	doneChan     chan Msg

	kind    models.RunKind
	recall  *tasks.RecallResult
	artists []models.Artist
	saved   *tasks.FillResult
	status  string
	err     error

	help help.Model
	keys keyMap
}

// NewModel creates a new TUI model. history may be nil; opening History then reports an error.
func NewModel(ctx context.Context, engine *tasks.RecallEngine, history RunLister, opts Options) *Model {
	if opts.FillSize <= 0 {
		opts.FillSize = 50
	}
	if opts.PlaylistName == "" {
		opts.PlaylistName = "Discover Recall"
	}

	menu := list.New(menuItems(), list.NewDefaultDelegate(), defaultWidth-4, defaultHeight-8)
	menu.Title = "Discover"

	return &Model{
		ctx:     ctx,
		view:    MenuView,
		engine:  engine,
		history: history,
		opts:    opts,
		width:   defaultWidth,
		height:  defaultHeight,
		menu:    menu,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		bar:     progress.New(progress.WithDefaultGradient()),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init starts on the menu; there is nothing to fetch up front.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.menu.SetSize(msg.Width-4, msg.Height-8)
		// lists built by newList always carry a title
		if m.results.Title != "" {
			m.results.SetSize(msg.Width-4, msg.Height-8)
		}
		if m.runs.Title != "" {
			m.runs.SetSize(msg.Width-4, msg.Height-8)
		}
		m.bar.Width = max(msg.Width-8, 10)
		return m, nil

	case spinner.TickMsg:
		if m.view != RunningView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.view {
		case MenuView:
			return m.handleMenuKeys(msg)
		case RunningView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case SavedView:
			return m.handleSavedKeys(msg)
		case HistoryView:
			return m.handleHistoryKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, waitForProgress(m.progressChan, m.doneChan)

	case MsgArtistsRecalled:
		data := msg.data.(artistsData)
		m.finishJob()
		m.artists, m.recall, m.kind = data.artists, nil, models.RunArtists
		m.status, m.err = data.message, data.err
		m.results = m.newList(artistItems(data.artists), fmt.Sprintf("%d recalled artists", len(data.artists)))
		m.view = ResultView
		return m, nil

	case MsgTracksRecalled:
		data := msg.data.(tracksData)
		m.finishJob()
		m.recall, m.artists, m.kind = data.result, nil, data.kind
		m.err = data.err

		var tracks []spotify.FullTrack
		if data.result != nil {
			tracks = data.result.Tracks
			m.status = data.result.Message
		}
		m.results = m.newList(trackItems(tracks), fmt.Sprintf("%d recalled tracks", len(tracks)))
		m.view = ResultView
		return m, nil

	case MsgPlaylistSaved:
		data := msg.data.(savedData)
		m.finishJob()
		m.saved, m.err = data.result, data.err
		m.view = SavedView
		return m, nil

	case MsgHistoryFetched:
		data := msg.data.(historyData)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.runs = m.newList(runItems(data.runs), "Recall history")
		m.view = HistoryView
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view == MenuView {
		return styles.failure.Render(fmt.Sprintf("Error: %v\n\nPress r to dismiss, q to quit", m.err))
	}

	switch m.view {
	case MenuView:
		return m.renderMenu()
	case RunningView:
		return m.renderRunning()
	case ResultView:
		return m.renderResult()
	case ConfirmView:
		return m.renderConfirm()
	case SavedView:
		return m.renderSaved()
	case HistoryView:
		return m.renderHistory()
	default:
		return ""
	}
}

func (m *Model) handleMenuKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart) && m.err != nil:
		m.err = nil
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.menu.SelectedItem().(actionItem); ok {
			return m, m.choose(item.action)
		}
	}

	var cmd tea.Cmd
	m.menu, cmd = m.menu.Update(msg)
	return m, cmd
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart), key.Matches(msg, m.keys.back):
		m.reset()
		return m, nil
	case key.Matches(msg, m.keys.save):
		if m.savable() {
			m.view = ConfirmView
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.results, cmd = m.results.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit), key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back):
		m.view = ResultView
		return m, nil
	case key.Matches(msg, m.keys.yes):
		return m, tea.Batch(m.spinner.Tick, m.savePlaylist())
	}
	return m, nil
}

func (m *Model) handleSavedKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.reset()
	case key.Matches(msg, m.keys.back):
		m.err = nil
		m.view = ResultView
	}
	return m, nil
}

func (m *Model) handleHistoryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.restart):
		m.reset()
		return m, nil
	}

	var cmd tea.Cmd
	m.runs, cmd = m.runs.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case MenuView:
		m.menu, cmd = m.menu.Update(msg)
	case ResultView:
		m.results, cmd = m.results.Update(msg)
	case HistoryView:
		m.runs, cmd = m.runs.Update(msg)
	}
	return m, cmd
}

func (m *Model) newList(items []list.Item, title string) list.Model {
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetSize(m.width-4, m.height-8)
	return l
}

func (m *Model) reset() {
	m.view = MenuView
	m.recall = nil
	m.artists = nil
	m.saved = nil
	m.status = ""
	m.err = nil
	m.progress = tasks.ProgressUpdate{}
}

// choose starts the job behind a menu action.
func (m *Model) choose(a action) tea.Cmd {
	switch a {
	case actionRecallTracks:
		return tea.Batch(m.spinner.Tick, m.startJob(func(progress chan<- tasks.ProgressUpdate) Msg {
			res := m.engine.RecallAllTracks(m.ctx, progress)
			return tracksRecalledMsg(models.RunTracks, res.Data, res.Err)
		}))
	case actionRandomFill:
		n := m.opts.FillSize
		return tea.Batch(m.spinner.Tick, m.startJob(func(progress chan<- tasks.ProgressUpdate) Msg {
			res := m.engine.RandomFill(m.ctx, n, progress)
			return tracksRecalledMsg(models.RunFill, res.Data, res.Err)
		}))
	case actionRecallArtists:
		return tea.Batch(m.spinner.Tick, m.startJob(func(progress chan<- tasks.ProgressUpdate) Msg {
			res := m.engine.RecallArtistsRun(m.ctx, progress)
			return artistsRecalledMsg(res.Data, res.Message, res.Err)
		}))
	case actionHistory:
		return m.fetchHistory()
	}
	return nil
}

// startJob runs job on a goroutine and returns the command that relays its progress.
func (m *Model) startJob(job func(chan<- tasks.ProgressUpdate) Msg) tea.Cmd {
	progressChan := make(chan tasks.ProgressUpdate, 50)
	doneChan := make(chan Msg, 1)
	m.progressChan, m.doneChan = progressChan, doneChan
	m.progress = tasks.ProgressUpdate{}
	m.err = nil
	m.view = RunningView

	go func() {
		doneChan <- job(progressChan)
		close(progressChan)
	}()

	return waitForProgress(progressChan, doneChan)
}

func (m *Model) finishJob() {
	m.progressChan = nil
	m.doneChan = nil
}

// waitForProgress reads one update, or the final message once the job closes its channel.
func waitForProgress(progress <-chan tasks.ProgressUpdate, done <-chan Msg) tea.Cmd {
	return func() tea.Msg {
		if progress == nil {
			return nil
		}
		update, ok := <-progress
		if !ok {
			return <-done
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) savable() bool {
	return m.recall != nil && len(m.recall.Tracks) > 0
}

func trackIDs(tracks []spotify.FullTrack) []string {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = string(t.ID)
	}
	return ids
}

func (m *Model) savePlaylist() tea.Cmd {
	req := tasks.FillRequest{
		Name:        m.opts.PlaylistName,
		Description: fmt.Sprintf("Recalled %s", time.Now().Format("2006-01-02")),
		Public:      m.opts.Public,
		TrackIDs:    trackIDs(m.recall.Tracks),
		RunID:       m.recall.RunID,
	}
	return m.startJob(func(progress chan<- tasks.ProgressUpdate) Msg {
		res := m.engine.FillPlaylist(m.ctx, req, progress)
		return playlistSavedMsg(res.Data, res.Err)
	})
}

func (m *Model) fetchHistory() tea.Cmd {
	history := m.history
	return func() tea.Msg {
		if history == nil {
			return historyFetchedMsg(nil, fmt.Errorf("run history is not available"))
		}
		runs, err := history.List(m.ctx, map[string]any{"limit": historyLimit})
		return historyFetchedMsg(runs, err)
	}
}

func (m *Model) renderMenu() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", m.menu.View(), helpView)
}

func (m *Model) renderRunning() string {
	title := styles.heading.Render("Recalling")

	var phase string
	switch m.progress.Phase {
	case tasks.RecallArtists:
		phase = "Gathering artists from your library..."
	case tasks.ResolveArtists, tasks.FetchAlbums, tasks.ExpandTracks:
		phase = "Walking the catalog..."
	case tasks.SearchTracks:
		phase = fmt.Sprintf("Searching tracks (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.CreatePlaylist:
		phase = "Creating playlist..."
	case tasks.AddTracks:
		phase = "Adding tracks..."
	default:
		phase = "Starting..."
	}

	var percent float64
	if m.progress.Total > 0 {
		percent = float64(m.progress.Step) / float64(m.progress.Total)
	}

	return fmt.Sprintf("%s\n\n%s %s\n%s\n\n%s", title, m.spinner.View(), phase, m.bar.ViewAs(percent), styles.hint.Render(m.progress.Message))
}

func (m *Model) renderResult() string {
	var warning string
	if m.err != nil {
		warning = styles.partial.Render(fmt.Sprintf("Completed with errors: %v", m.err)) + "\n\n"
	}

	keys := []key.Binding{m.keys.restart, m.keys.quit}
	if m.savable() {
		keys = append([]key.Binding{m.keys.save}, keys...)
	}

	return fmt.Sprintf("%s%s\n%s\n\n%s", warning, m.results.View(), styles.hint.Render(m.status), m.help.ShortHelpView(keys))
}

func (m *Model) renderConfirm() string {
	title := styles.heading.Render(fmt.Sprintf("Save %d tracks as '%s'?", len(m.recall.Tracks), m.opts.PlaylistName))
	visibility := "private"
	if m.opts.Public {
		visibility = "public"
	}
	info := fmt.Sprintf("\nKind: %s\nVisibility: %s\n", m.kind, visibility)

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderSaved() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.restart, m.keys.quit})

	if m.saved == nil {
		return styles.failure.Render(fmt.Sprintf("Save failed: %v", m.err)) + "\n\n" + helpView
	}

	title := styles.saved.Render("✓ Playlist saved!")
	info := fmt.Sprintf("\nName: %s\nID: %s\nTracks: %d", m.saved.Playlist.Name, m.saved.Playlist.ID, len(m.recall.Tracks))

	var failed string
	if m.err != nil {
		failed = "\n\n" + styles.partial.Render(fmt.Sprintf("Some tracks were not added: %v", m.err))
	}
	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, failed, helpView)
}

func (m *Model) renderHistory() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", m.runs.View(), helpView)
}
