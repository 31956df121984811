// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/discover/internal/models"
	"github.com/desertthunder/discover/internal/services"
	"github.com/desertthunder/discover/internal/shared"
	"github.com/zmb3/spotify/v2"
)

// Artist builds a [spotify.SimpleArtist].
func Artist(id, name string) spotify.SimpleArtist {
	return spotify.SimpleArtist{ID: spotify.ID(id), Name: name}
}

// FullArtist builds a [spotify.FullArtist].
func FullArtist(id, name string) spotify.FullArtist {
	return spotify.FullArtist{SimpleArtist: Artist(id, name)}
}

// Track builds a [spotify.FullTrack] credited to artists.
func Track(id, name string, artists ...spotify.SimpleArtist) spotify.FullTrack {
	t := spotify.FullTrack{}
	t.ID = spotify.ID(id)
	t.Name = name
	t.URI = spotify.URI("spotify:track:" + id)
	t.Artists = artists
	return t
}

// MockAccount is a test double for [services.Account].
//
// Each source returns its configured data, or Fail when the matching error is set.
// Calls are recorded in order.
type MockAccount struct {
	mu sync.Mutex

	Recent        []spotify.RecentlyPlayedItem
	RecentErr     error
	Top           []spotify.FullTrack
	TopErr        error
	TopArtistList []spotify.FullArtist
	TopArtistsErr error
	Followed      []spotify.FullArtist
	FollowedErr   error
	Playlists     []spotify.SimplePlaylist
	PlaylistsErr  error
	PlaylistItems map[string][]spotify.FullTrack
	Albums        []spotify.SavedAlbum
	AlbumsErr     error
	Saved         []spotify.SavedTrack
	SavedErr      error

	// Search maps a query to its hits; SearchErr fails individual queries.
	Search    map[string][]spotify.FullTrack
	SearchErr map[string]error

	Profile    *spotify.PrivateUser
	ProfileErr error
	Created    *spotify.FullPlaylist
	CreateErr  error
	AddErr     error

	Calls    []string
	Limits   map[string]int
	Searches []string
	Added    [][]string
}

func (m *MockAccount) record(call string, limit int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
	if m.Limits == nil {
		m.Limits = make(map[string]int)
	}
	m.Limits[call] = limit
}

func result[T any](data T, err error, what string) services.Result[T] {
	if err != nil {
		return services.Fail[T](err, "Failed to get "+what)
	}
	return services.Ok(data, "Successfully retrieved "+what)
}

func (m *MockAccount) RecentlyPlayed(ctx context.Context, limit int) services.Result[[]spotify.RecentlyPlayedItem] {
	m.record("RecentlyPlayed", limit)
	return result(m.Recent, m.RecentErr, "recently played")
}

func (m *MockAccount) TopTracks(ctx context.Context, r services.TimeRange, limit int) services.Result[[]spotify.FullTrack] {
	m.record("TopTracks", limit)
	return result(m.Top, m.TopErr, "top tracks")
}

func (m *MockAccount) TopArtists(ctx context.Context, r services.TimeRange, limit int) services.Result[[]spotify.FullArtist] {
	m.record("TopArtists", limit)
	return result(m.TopArtistList, m.TopArtistsErr, "top artists")
}

func (m *MockAccount) FollowedArtists(ctx context.Context, limit int, after string) services.Result[[]spotify.FullArtist] {
	m.record("FollowedArtists", limit)
	return result(m.Followed, m.FollowedErr, "followed artists")
}

func (m *MockAccount) UserPlaylists(ctx context.Context, limit, offset int) services.Result[[]spotify.SimplePlaylist] {
	m.record("UserPlaylists", limit)
	return result(m.Playlists, m.PlaylistsErr, "playlists")
}

func (m *MockAccount) PlaylistTracks(ctx context.Context, playlistID string, limit, offset int) services.Result[[]spotify.FullTrack] {
	m.record("PlaylistTracks", limit)
	tracks, ok := m.PlaylistItems[playlistID]
	if !ok {
		return result[[]spotify.FullTrack](nil, errors.New("playlist not found"), "playlist tracks")
	}
	return result(tracks, nil, "playlist tracks")
}

func (m *MockAccount) SavedAlbums(ctx context.Context, limit, offset int) services.Result[[]spotify.SavedAlbum] {
	m.record("SavedAlbums", limit)
	return result(m.Albums, m.AlbumsErr, "saved albums")
}

func (m *MockAccount) SavedTracks(ctx context.Context, limit, offset int) services.Result[[]spotify.SavedTrack] {
	m.record("SavedTracks", limit)
	return result(m.Saved, m.SavedErr, "saved tracks")
}

func (m *MockAccount) SearchTracks(ctx context.Context, query string, limit int) services.Result[[]spotify.FullTrack] {
	m.record("SearchTracks", limit)
	m.mu.Lock()
	m.Searches = append(m.Searches, query)
	m.mu.Unlock()

	if err := m.SearchErr[query]; err != nil {
		return result[[]spotify.FullTrack](nil, err, "tracks")
	}
	hits := m.Search[query]
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return result(hits, nil, "tracks")
}

func (m *MockAccount) UserProfile(ctx context.Context) services.Result[*spotify.PrivateUser] {
	m.record("UserProfile", 0)
	if m.Profile == nil && m.ProfileErr == nil {
		m.Profile = &spotify.PrivateUser{User: spotify.User{ID: "listener"}}
	}
	return result(m.Profile, m.ProfileErr, "user profile")
}

func (m *MockAccount) CreatePlaylist(ctx context.Context, name, description string, public bool) services.Result[*spotify.FullPlaylist] {
	m.record("CreatePlaylist", 0)
	if m.Created == nil && m.CreateErr == nil {
		pl := &spotify.FullPlaylist{}
		pl.ID = "created"
		pl.Name = name
		pl.Description = description
		m.Created = pl
	}
	return result(m.Created, m.CreateErr, "created playlist")
}

func (m *MockAccount) AddTracksToPlaylist(ctx context.Context, playlistID string, trackIDs []string) services.Result[string] {
	m.record("AddTracksToPlaylist", len(trackIDs))
	if m.AddErr != nil {
		return result("", m.AddErr, "added tracks")
	}
	m.mu.Lock()
	m.Added = append(m.Added, append([]string(nil), trackIDs...))
	n := len(m.Added)
	m.mu.Unlock()
	return result(fmt.Sprintf("snapshot-%d", n), nil, "added tracks")
}

// CallCount returns how many times call was made.
func (m *MockAccount) CallCount(call string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c == call {
			n++
		}
	}
	return n
}

// MockCatalog is a test double for [services.Catalog] backed by maps.
//
// Lookups for unknown keys contribute nothing. A set error is returned as Partial alongside
// whatever the maps produced.
type MockCatalog struct {
	mu sync.Mutex

	Artists    map[string]string                  // name -> catalog artist id
	Discs      map[string][]string                // artist id -> album ids
	AlbumItems map[string][]models.CandidateTrack // album id -> tracks
	ArtistErr  error
	AlbumErr   error
	TrackErr   error

	ArtistCalls [][]string
	AlbumCalls  [][]string
	TrackCalls  [][]string
}

func partial[T any](data T, err error, what string) services.Result[T] {
	if err != nil {
		return services.Partial(data, err, "Failed to get some "+what)
	}
	return services.Ok(data, "Successfully retrieved "+what)
}

func (c *MockCatalog) ArtistIDs(ctx context.Context, names []string, onStep services.StepFunc) services.Result[[]string] {
	c.mu.Lock()
	c.ArtistCalls = append(c.ArtistCalls, append([]string(nil), names...))
	c.mu.Unlock()

	ids := []string{}
	for i, n := range names {
		if id, ok := c.Artists[n]; ok {
			ids = append(ids, id)
		}
		if onStep != nil {
			onStep(i+1, len(names))
		}
	}
	return partial(ids, c.ArtistErr, "catalog artists")
}

func (c *MockCatalog) AlbumIDs(ctx context.Context, artistIDs []string, onStep services.StepFunc) services.Result[*models.AlbumMap] {
	c.mu.Lock()
	c.AlbumCalls = append(c.AlbumCalls, append([]string(nil), artistIDs...))
	c.mu.Unlock()

	albums := models.NewAlbumMap()
	for _, id := range artistIDs {
		albums.Set(id, c.Discs[id])
	}
	return partial(albums, c.AlbumErr, "catalog albums")
}

func (c *MockCatalog) Tracks(ctx context.Context, albumIDs []string, rng *rand.Rand, onStep services.StepFunc) services.Result[[]models.CandidateTrack] {
	c.mu.Lock()
	c.TrackCalls = append(c.TrackCalls, append([]string(nil), albumIDs...))
	c.mu.Unlock()

	tracks := []models.CandidateTrack{}
	for _, id := range albumIDs {
		v := c.AlbumItems[id]
		if len(v) > models.MaxTracksPerAlbum {
			v = shared.Sample(rng, v, models.MaxTracksPerAlbum)
		}
		tracks = append(tracks, v...)
	}
	return partial(tracks, c.TrackErr, "catalog tracks")
}

// Candidates builds n catalog tracks titled "<prefix> <i>".
func Candidates(prefix string, n int) []models.CandidateTrack {
	out := make([]models.CandidateTrack, n)
	for i := range out {
		out[i] = models.CandidateTrack{ID: fmt.Sprintf("%s-%d", prefix, i), Title: fmt.Sprintf("%s %d", prefix, i)}
	}
	return out
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
