package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/discover/internal/models"
	"github.com/desertthunder/discover/internal/services"
	"github.com/desertthunder/discover/internal/shared"
	"github.com/desertthunder/discover/internal/tasks"
	th "github.com/desertthunder/discover/internal/testing"
	"github.com/urfave/cli/v3"
	"github.com/zmb3/spotify/v2"
)

type testRunner struct {
	*Runner
	out     *bytes.Buffer
	account *th.MockAccount
	catalog *th.MockCatalog
}

// newTestRunner wires a runner to mocks and an in-memory history database.
func newTestRunner(t *testing.T) *testRunner {
	t.Helper()

	alpha := th.Artist("a1", "Alpha")
	playlist := spotify.SimplePlaylist{Name: "Weekly"}
	playlist.ID = "pl-weekly"
	playlist.URI = "spotify:playlist:pl-weekly"
	playlist.Tracks.Total = 3

	account := &th.MockAccount{
		TopArtistList: []spotify.FullArtist{th.FullArtist("a1", "Alpha")},
		Playlists:     []spotify.SimplePlaylist{playlist},
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

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	out := &bytes.Buffer{}
	r := NewRunner(RunnerOpts{
		Account: account,
		Catalog: catalog,
		DB:      db,
		Logger:  shared.NewLogger(io.Discard),
		Output:  out,
	})
	t.Cleanup(func() { r.Close() })

	return &testRunner{Runner: r, out: out, account: account, catalog: catalog}
}

// run executes a command tree built by fn with args, resetting the captured output first.
func (tr *testRunner) run(fn func(*Runner) *cli.Command, args ...string) error {
	tr.out.Reset()
	cmd := fn(tr.Runner)
	return cmd.Run(context.Background(), append([]string{cmd.Name}, args...))
}

// withPlayer gives the runner a Spotify service backed by a test server. Each playback
// request body is decoded into the returned slice.
func (tr *testRunner) withPlayer(t *testing.T, queue string) *[]map[string]any {
	t.Helper()

	var plays []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/me/player/play":
			body := map[string]any{}
			json.NewDecoder(r.Body).Decode(&body)
			plays = append(plays, body)
			w.WriteHeader(http.StatusNoContent)
		case "/me/player/queue":
			if r.Method == http.MethodPost {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, queue)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	svc, err := services.NewSpotifyService(map[string]string{"client_id": "id", "client_secret": "secret"}, services.WithAPIBaseURL(server.URL+"/"))
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	if err := svc.Authenticate(context.Background(), map[string]string{"access_token": "token"}); err != nil {
		t.Fatalf("failed to authenticate: %v", err)
	}
	tr.spotify = svc
	return &plays
}

func TestSpotifyCommands(t *testing.T) {
	t.Run("search scoped to an artist", func(t *testing.T) {
		tr := newTestRunner(t)
		tr.account.Search["Song 0 artist:Alpha"] = []spotify.FullTrack{th.Track("t0", "Song 0", th.Artist("a1", "Alpha"))}

		if err := tr.run(spotifyCommand, "search", "--artist", "Alpha", "Song 0"); err != nil {
			t.Fatalf("spotify search: %v", err)
		}
		if tr.account.Searches[0] != "Song 0 artist:Alpha" {
			t.Errorf("unexpected query %q", tr.account.Searches[0])
		}
		if !strings.Contains(tr.out.String(), "1. Alpha - Song 0") {
			t.Errorf("unexpected output:\n%s", tr.out.String())
		}
	})

	t.Run("play a uri as given", func(t *testing.T) {
		tr := newTestRunner(t)
		plays := tr.withPlayer(t, "")

		if err := tr.run(spotifyCommand, "play", "spotify:album:xyz"); err != nil {
			t.Fatalf("spotify play: %v", err)
		}
		if len(*plays) != 1 || (*plays)[0]["context_uri"] != "spotify:album:xyz" {
			t.Errorf("unexpected play requests %v", *plays)
		}
		if tr.account.CallCount("SearchTracks") != 0 {
			t.Error("a uri should not be searched")
		}
	})

	t.Run("play a track by name", func(t *testing.T) {
		tr := newTestRunner(t)
		plays := tr.withPlayer(t, "")

		if err := tr.run(spotifyCommand, "play", "Song 1"); err != nil {
			t.Fatalf("spotify play: %v", err)
		}
		if tr.account.Limits["SearchTracks"] != 1 {
			t.Errorf("expected a limit 1 search, got %d", tr.account.Limits["SearchTracks"])
		}
		uris, _ := (*plays)[0]["uris"].([]any)
		if len(uris) != 1 || uris[0] != "spotify:track:t1" {
			t.Errorf("unexpected play requests %v", *plays)
		}
	})

	t.Run("play a playlist by name", func(t *testing.T) {
		tr := newTestRunner(t)
		plays := tr.withPlayer(t, "")

		if err := tr.run(spotifyCommand, "play", "--playlist", "weekly"); err != nil {
			t.Fatalf("spotify play: %v", err)
		}
		if len(*plays) != 1 || (*plays)[0]["context_uri"] != "spotify:playlist:pl-weekly" {
			t.Errorf("unexpected play requests %v", *plays)
		}
	})

	t.Run("play an unknown track", func(t *testing.T) {
		tr := newTestRunner(t)
		plays := tr.withPlayer(t, "")

		err := tr.run(spotifyCommand, "play", "Nothing Like It")
		if !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
		if len(*plays) != 0 {
			t.Errorf("nothing should play, got %v", *plays)
		}
	})

	t.Run("queue list", func(t *testing.T) {
		tr := newTestRunner(t)
		tr.withPlayer(t, `{"currently_playing":{"id":"t0","name":"Song 0","artists":[{"name":"Alpha"}]},"queue":[{"id":"t1","name":"Song 1","artists":[{"name":"Alpha"}]}]}`)

		if err := tr.run(spotifyCommand, "queue", "list"); err != nil {
			t.Fatalf("spotify queue list: %v", err)
		}
		for _, want := range []string{"Now playing: Alpha - Song 0", "1. Alpha - Song 1"} {
			if !strings.Contains(tr.out.String(), want) {
				t.Errorf("output missing %q:\n%s", want, tr.out.String())
			}
		}
	})

	t.Run("queue add", func(t *testing.T) {
		tr := newTestRunner(t)
		tr.withPlayer(t, "")

		if err := tr.run(spotifyCommand, "queue", "add", "spotify:track:t1"); err != nil {
			t.Fatalf("spotify queue add: %v", err)
		}
		if !strings.Contains(tr.out.String(), "queued track") {
			t.Errorf("unexpected output:\n%s", tr.out.String())
		}
	})

	t.Run("player commands need a spotify session", func(t *testing.T) {
		tr := newTestRunner(t)
		if err := tr.run(spotifyCommand, "queue", "list"); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestRecallCommands(t *testing.T) {
	t.Run("tracks as json", func(t *testing.T) {
		tr := newTestRunner(t)
		if err := tr.run(recallCommand, "tracks", "--format", "json", "--seed", "7"); err != nil {
			t.Fatalf("recall tracks: %v", err)
		}

		for _, want := range []string{`"kind": "tracks"`, `"title": "Song 0"`, `"title": "Song 1"`} {
			if !strings.Contains(tr.out.String(), want) {
				t.Errorf("output missing %s:\n%s", want, tr.out.String())
			}
		}
		if tr.account.CallCount("SearchTracks") != 2 {
			t.Errorf("expected 2 searches, got %d", tr.account.CallCount("SearchTracks"))
		}
	})

	t.Run("fill samples the requested count", func(t *testing.T) {
		tr := newTestRunner(t)
		if err := tr.run(recallCommand, "fill", "--tracks", "1", "--seed", "7"); err != nil {
			t.Fatalf("recall fill: %v", err)
		}

		if !strings.Contains(tr.out.String(), "Tracks: 1") {
			t.Errorf("expected one track in text output:\n%s", tr.out.String())
		}
	})

	t.Run("artists", func(t *testing.T) {
		tr := newTestRunner(t)
		if err := tr.run(recallCommand, "artists", "--format", "json"); err != nil {
			t.Fatalf("recall artists: %v", err)
		}

		if !strings.Contains(tr.out.String(), `"name": "Alpha"`) {
			t.Errorf("expected Alpha in output:\n%s", tr.out.String())
		}
		if tr.catalog.ArtistCalls != nil {
			t.Error("artist recall should not touch the catalog")
		}
	})

	t.Run("writes files into output directory", func(t *testing.T) {
		tr := newTestRunner(t)
		dir := filepath.Join(t.TempDir(), "out")
		if err := tr.run(recallCommand, "tracks", "--format", "json", "--output", dir); err != nil {
			t.Fatalf("recall tracks: %v", err)
		}

		if !strings.Contains(tr.out.String(), dir) {
			t.Errorf("expected written file paths in output:\n%s", tr.out.String())
		}
		th.AssertDirExists(t, dir)
	})

	t.Run("invalid format", func(t *testing.T) {
		tr := newTestRunner(t)
		err := tr.run(recallCommand, "tracks", "--format", "yaml")
		if !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("without an account", func(t *testing.T) {
		r := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Output: &bytes.Buffer{}})
		err := recallCommand(r).Run(context.Background(), []string{"recall", "tracks"})
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestHistoryCommands(t *testing.T) {
	tr := newTestRunner(t)

	if err := tr.run(recallCommand, "tracks", "--save", "--seed", "7"); err != nil {
		t.Fatalf("recall tracks: %v", err)
	}

	t.Run("list", func(t *testing.T) {
		if err := tr.run(historyCommand, "list"); err != nil {
			t.Fatalf("history list: %v", err)
		}
		for _, want := range []string{"#1", "tracks", "2 tracks"} {
			if !strings.Contains(tr.out.String(), want) {
				t.Errorf("list missing %q:\n%s", want, tr.out.String())
			}
		}
	})

	t.Run("list rejects unknown kind", func(t *testing.T) {
		err := tr.run(historyCommand, "list", "--kind", "albums")
		if !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("show", func(t *testing.T) {
		if err := tr.run(historyCommand, "show", "#1"); err != nil {
			t.Fatalf("history show: %v", err)
		}
		if !strings.Contains(tr.out.String(), "Alpha - Song") {
			t.Errorf("expected saved tracks:\n%s", tr.out.String())
		}
	})

	t.Run("export", func(t *testing.T) {
		dir := t.TempDir()
		if err := tr.run(historyCommand, "export", "--format", "csv", "--output", dir); err != nil {
			t.Fatalf("history export: %v", err)
		}
		if !strings.Contains(tr.out.String(), "1 exported, 0 failed") {
			t.Errorf("unexpected export summary:\n%s", tr.out.String())
		}
		th.AssertFileExists(t, filepath.Join(dir, "export_manifest.json"))
	})

	t.Run("export unknown run", func(t *testing.T) {
		err := tr.run(historyCommand, "export", "--output", t.TempDir(), "#9")
		if !errors.Is(err, shared.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("delete then purge", func(t *testing.T) {
		if err := tr.run(historyCommand, "delete", "1"); err != nil {
			t.Fatalf("history delete: %v", err)
		}
		if err := tr.run(historyCommand, "list"); err != nil {
			t.Fatalf("history list: %v", err)
		}
		if !strings.Contains(tr.out.String(), "No runs recorded") {
			t.Errorf("deleted run should be hidden:\n%s", tr.out.String())
		}

		if err := tr.run(historyCommand, "purge"); err != nil {
			t.Fatalf("history purge: %v", err)
		}
		if !strings.Contains(tr.out.String(), "Purged 1") {
			t.Errorf("unexpected purge output %q", tr.out.String())
		}
	})
}

func TestPlaylistCommands(t *testing.T) {
	t.Run("create with random fill links the saved run", func(t *testing.T) {
		tr := newTestRunner(t)
		if err := tr.run(playlistCommand, "create", "--random-fill", "--tracks", "2", "--save", "--seed", "7", "Mix"); err != nil {
			t.Fatalf("playlist create: %v", err)
		}

		if len(tr.account.Added) != 1 || len(tr.account.Added[0]) != 2 {
			t.Errorf("expected one add of 2 tracks, got %v", tr.account.Added)
		}
		if !strings.Contains(tr.out.String(), "Mix") || !strings.Contains(tr.out.String(), "Tracks (2)") {
			t.Errorf("unexpected output:\n%s", tr.out.String())
		}

		repo, err := tr.store()
		if err != nil {
			t.Fatalf("store: %v", err)
		}
		run, err := repo.Resolve(context.Background(), "#1")
		if err != nil {
			t.Fatalf("expected a recorded run: %v", err)
		}
		if run.PlaylistID() != "created" {
			t.Errorf("expected run linked to playlist, got %q", run.PlaylistID())
		}
	})

	t.Run("create empty", func(t *testing.T) {
		tr := newTestRunner(t)
		if err := tr.run(playlistCommand, "create", "Empty"); err != nil {
			t.Fatalf("playlist create: %v", err)
		}
		if tr.account.CallCount("AddTracksToPlaylist") != 0 {
			t.Error("no tracks should be added without --random-fill")
		}
	})

	t.Run("add by name", func(t *testing.T) {
		tr := newTestRunner(t)
		if err := tr.run(playlistCommand, "add", "--name", "weekly", "--track", "Song 1"); err != nil {
			t.Fatalf("playlist add: %v", err)
		}
		if len(tr.account.Added) != 1 || tr.account.Added[0][0] != "t1" {
			t.Errorf("unexpected adds %v", tr.account.Added)
		}
	})

	t.Run("tracks by name", func(t *testing.T) {
		tr := newTestRunner(t)
		tr.account.PlaylistItems = map[string][]spotify.FullTrack{
			"pl-weekly": {th.Track("t0", "Song 0", th.Artist("a1", "Alpha")), th.Track("t1", "Song 1")},
		}

		if err := tr.run(playlistCommand, "tracks", "--limit", "2", "--offset", "1", "WEEKLY"); err != nil {
			t.Fatalf("playlist tracks: %v", err)
		}
		if tr.account.Limits["PlaylistTracks"] != 2 {
			t.Errorf("expected limit 2, got %d", tr.account.Limits["PlaylistTracks"])
		}
		for _, want := range []string{"Weekly (3 tracks)", "1. Alpha - Song 0", "2.  - Song 1"} {
			if !strings.Contains(tr.out.String(), want) {
				t.Errorf("output missing %q:\n%s", want, tr.out.String())
			}
		}
	})

	t.Run("tracks of an unknown playlist", func(t *testing.T) {
		tr := newTestRunner(t)
		if err := tr.run(playlistCommand, "tracks", "Nope"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("add rejects extra artists", func(t *testing.T) {
		tr := newTestRunner(t)
		err := tr.run(playlistCommand, "add", "--name", "Weekly", "--track", "Song 1", "--artist", "A", "--artist", "B")
		if !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})
}

func TestSchedule(t *testing.T) {
	t.Run("scheduledName", func(t *testing.T) {
		got := scheduledName("Discover Fill", time.Date(2025, 3, 7, 9, 0, 0, 0, time.UTC))
		if got != "Discover Fill 2025-03-07" {
			t.Errorf("unexpected name %q", got)
		}
	})

	t.Run("fillJob creates a dated playlist", func(t *testing.T) {
		tr := newTestRunner(t)
		engine := tasks.NewRecallEngine(tr.account, tr.catalog, tasks.WithSeed(7))

		job := tr.fillJob(context.Background(), engine, tasks.FillRequest{Name: "Mix", RandomFill: true, NumTracks: 1})
		job()
		job()

		if tr.account.CallCount("CreatePlaylist") != 2 {
			t.Errorf("expected a playlist per firing, got %d", tr.account.CallCount("CreatePlaylist"))
		}
		if !strings.HasPrefix(tr.account.Created.Name, "Mix ") {
			t.Errorf("expected dated name, got %q", tr.account.Created.Name)
		}
	})

	t.Run("invalid cron spec", func(t *testing.T) {
		tr := newTestRunner(t)
		err := tr.run(scheduleCommand, "--cron", "every tuesday")
		if !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})
}

func TestCatalogCommands(t *testing.T) {
	tr := newTestRunner(t)

	if err := tr.run(catalogCommand, "artists", "--json", "Alpha", "Nobody"); err != nil {
		t.Fatalf("catalog artists: %v", err)
	}
	if !strings.Contains(tr.out.String(), "MN1") {
		t.Errorf("expected catalog id in output:\n%s", tr.out.String())
	}

	if err := tr.run(catalogCommand, "albums"); !errors.Is(err, shared.ErrMissingArgument) {
		t.Errorf("expected ErrMissingArgument, got %v", err)
	}
}

func TestSetupCommands(t *testing.T) {
	tr := newTestRunner(t)

	if err := tr.run(setupCommand, "database"); err != nil {
		t.Fatalf("setup database: %v", err)
	}
	if strings.Count(tr.out.String(), "✓") != 2 {
		t.Errorf("expected two applied migrations:\n%s", tr.out.String())
	}

	if err := tr.run(setupCommand, "rollback"); err != nil {
		t.Fatalf("setup rollback: %v", err)
	}
	statuses, err := shared.Migrations(tr.db)
	if err != nil {
		t.Fatalf("Migrations() error = %v", err)
	}
	if statuses[len(statuses)-1].Applied {
		t.Error("latest migration should be rolled back")
	}

	t.Run("config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		r := NewRunner(RunnerOpts{ConfigPath: path, Logger: shared.NewLogger(io.Discard), Output: &bytes.Buffer{}})
		if err := setupCommand(r).Run(context.Background(), []string{"setup", "config"}); err != nil {
			t.Fatalf("setup config: %v", err)
		}
		if _, err := shared.LoadConfig(path); err != nil {
			t.Errorf("written config should load: %v", err)
		}
	})
}
