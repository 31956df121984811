package ui

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/discover/internal/models"
	"github.com/desertthunder/discover/internal/tasks"
	th "github.com/desertthunder/discover/internal/testing"
	"github.com/zmb3/spotify/v2"
)

type fakeHistory struct {
	runs []*models.RecallRun
	err  error
}

func (f *fakeHistory) List(ctx context.Context, criteria map[string]any) ([]*models.RecallRun, error) {
	return f.runs, f.err
}

func newTestModel(t *testing.T, history RunLister) (*Model, *th.MockAccount) {
	t.Helper()
	alpha := th.Artist("a1", "Alpha")
	acct := &th.MockAccount{
		TopArtistList: []spotify.FullArtist{th.FullArtist("a1", "Alpha")},
		Search: map[string][]spotify.FullTrack{
			"Song 0": {th.Track("t0", "Song 0", alpha)},
			"Song 1": {th.Track("t1", "Song 1", alpha)},
		},
	}
	catalog := &th.MockCatalog{
		Artists:    map[string]string{"Alpha": "MN1"},
		Discs:      map[string][]string{"MN1": {"AL1"}},
		AlbumItems: map[string][]models.CandidateTrack{"AL1": th.Candidates("Song", 2)},
	}
	engine := tasks.NewRecallEngine(acct, catalog, tasks.WithSeed(7))
	return NewModel(context.Background(), engine, history, Options{FillSize: 1, PlaylistName: "Test Mix"}), acct
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drain runs cmd and feeds its messages back into m until the job finishes.
// Spinner ticks are dropped so the loop never sleeps.
func drain(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for i := 0; len(queue) > 0; i++ {
		if i > 1000 {
			t.Fatal("job did not finish")
		}
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}

		switch msg := next().(type) {
		case nil, spinner.TickMsg:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			_, c := m.Update(msg)
			queue = append(queue, c)
		}
	}
}

func TestModel(t *testing.T) {
	t.Run("recall tracks from the menu", func(t *testing.T) {
		m, _ := newTestModel(t, nil)
		_, cmd := m.Update(keyPress("enter"))
		if m.view != RunningView {
			t.Fatalf("expected running view, got %v", m.view)
		}

		drain(t, m, cmd)
		if m.view != ResultView {
			t.Fatalf("expected result view, got %v", m.view)
		}
		if m.kind != models.RunTracks || m.recall == nil {
			t.Fatalf("unexpected result state kind=%s recall=%v", m.kind, m.recall)
		}
		if got := len(m.results.Items()); got != 2 {
			t.Errorf("expected 2 track items, got %d", got)
		}
		if m.progressChan != nil || m.doneChan != nil {
			t.Error("channels should be cleared once the job finishes")
		}
		if !strings.Contains(m.View(), "Successfully recalled 2 tracks") {
			t.Errorf("status missing from view:\n%s", m.View())
		}
	})

	t.Run("save as playlist", func(t *testing.T) {
		m, acct := newTestModel(t, nil)
		drain(t, m, m.choose(actionRecallTracks))

		m.Update(keyPress("s"))
		if m.view != ConfirmView {
			t.Fatalf("expected confirm view, got %v", m.view)
		}
		if !strings.Contains(m.View(), "Test Mix") {
			t.Errorf("confirm view should name the playlist:\n%s", m.View())
		}

		_, cmd := m.Update(keyPress("y"))
		drain(t, m, cmd)
		if m.view != SavedView {
			t.Fatalf("expected saved view, got %v", m.view)
		}
		if m.saved == nil || m.saved.Playlist.Name != "Test Mix" {
			t.Fatalf("unexpected saved result %+v", m.saved)
		}
		if len(acct.Added) != 1 || len(acct.Added[0]) != 2 {
			t.Errorf("expected one add of 2 tracks, got %v", acct.Added)
		}
		if acct.CallCount("SearchTracks") != 2 {
			t.Errorf("saving should not search again, got %d searches", acct.CallCount("SearchTracks"))
		}
	})

	t.Run("declining the save returns to results", func(t *testing.T) {
		m, acct := newTestModel(t, nil)
		drain(t, m, m.choose(actionRecallTracks))

		m.Update(keyPress("s"))
		m.Update(keyPress("n"))
		if m.view != ResultView {
			t.Errorf("expected result view, got %v", m.view)
		}
		if acct.CallCount("CreatePlaylist") != 0 {
			t.Error("no playlist should be created")
		}
	})

	t.Run("random fill uses fill size", func(t *testing.T) {
		m, acct := newTestModel(t, nil)
		drain(t, m, m.choose(actionRandomFill))

		if m.kind != models.RunFill {
			t.Errorf("expected fill kind, got %s", m.kind)
		}
		if len(m.recall.Tracks) != 1 || acct.CallCount("SearchTracks") != 1 {
			t.Errorf("expected one sampled track, got %d tracks and %d searches", len(m.recall.Tracks), acct.CallCount("SearchTracks"))
		}
	})

	t.Run("recall artists cannot be saved", func(t *testing.T) {
		m, _ := newTestModel(t, nil)
		drain(t, m, m.choose(actionRecallArtists))

		if m.kind != models.RunArtists || len(m.artists) != 1 {
			t.Fatalf("unexpected artists %v", m.artists)
		}
		m.Update(keyPress("s"))
		if m.view != ResultView {
			t.Errorf("artist results should not offer saving, got view %v", m.view)
		}
	})

	t.Run("restart returns to menu", func(t *testing.T) {
		m, _ := newTestModel(t, nil)
		drain(t, m, m.choose(actionRecallTracks))

		m.Update(keyPress("r"))
		if m.view != MenuView || m.recall != nil {
			t.Errorf("expected clean menu, got view %v recall %v", m.view, m.recall)
		}
	})

	t.Run("history without a store", func(t *testing.T) {
		m, _ := newTestModel(t, nil)
		drain(t, m, m.choose(actionHistory))

		if m.view != MenuView || m.err == nil {
			t.Fatalf("expected error on menu, got view %v err %v", m.view, m.err)
		}
		if !strings.Contains(m.View(), "Error") {
			t.Errorf("error not rendered:\n%s", m.View())
		}

		m.Update(keyPress("r"))
		if m.err != nil {
			t.Error("r should dismiss the error")
		}
	})

	t.Run("history lists runs", func(t *testing.T) {
		run := models.NewRecallRun(models.RunFill, "filled")
		run.SetSequence(3)
		run.SetPlaylistID("pl")
		m, _ := newTestModel(t, &fakeHistory{runs: []*models.RecallRun{run}})
		drain(t, m, m.choose(actionHistory))

		if m.view != HistoryView {
			t.Fatalf("expected history view, got %v", m.view)
		}
		items := m.runs.Items()
		if len(items) != 1 {
			t.Fatalf("expected 1 run, got %d", len(items))
		}
		item := items[0].(runItem)
		if item.Title() != "#3 fill" || !strings.HasSuffix(item.Description(), "saved") {
			t.Errorf("unexpected run item %q / %q", item.Title(), item.Description())
		}

		m.Update(keyPress("esc"))
		if m.view != MenuView {
			t.Errorf("esc should return to menu, got %v", m.view)
		}
	})

	t.Run("history error", func(t *testing.T) {
		m, _ := newTestModel(t, &fakeHistory{err: errors.New("db closed")})
		drain(t, m, m.choose(actionHistory))
		if m.err == nil || m.view != MenuView {
			t.Errorf("expected error on menu, got view %v err %v", m.view, m.err)
		}
	})

	t.Run("running view shows search progress", func(t *testing.T) {
		m, _ := newTestModel(t, nil)
		m.view = RunningView
		m.progress = tasks.ProgressUpdate{Phase: tasks.SearchTracks, Step: 2, Total: 4, Message: "[2/4] Song 1"}

		view := m.View()
		for _, want := range []string{"Searching tracks (2/4)", "[2/4] Song 1"} {
			if !strings.Contains(view, want) {
				t.Errorf("view missing %q:\n%s", want, view)
			}
		}
	})

	t.Run("window size before results", func(t *testing.T) {
		m, _ := newTestModel(t, nil)
		m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
		if m.width != 80 || m.bar.Width != 72 {
			t.Errorf("unexpected sizes width=%d bar=%d", m.width, m.bar.Width)
		}
	})
}

func TestItems(t *testing.T) {
	tr := th.Track("t1", "Blue in Green", th.Artist("a1", "Miles Davis"), th.Artist("a2", "Bill Evans"))
	tr.Album.Name = "Kind of Blue"

	item := trackItem{track: tr}
	if item.Description() != "Miles Davis, Bill Evans • Kind of Blue" {
		t.Errorf("unexpected description %q", item.Description())
	}

	ids := trackIDs([]spotify.FullTrack{tr, th.Track("t2", "So What")})
	if !slices.Equal(ids, []string{"t1", "t2"}) {
		t.Errorf("unexpected ids %v", ids)
	}

	if len(menuItems()) != 4 {
		t.Error("expected four menu actions")
	}
}
