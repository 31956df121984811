// Spotify account facade built on [spotify.Client]
//
// Every method issues exactly one Web API request and reports through [Result].
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/discover/internal/shared"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"

	// MaxTrackBatch is the most IDs the several-tracks endpoint accepts.
	MaxTrackBatch = 50
)

// Scopes requested during authorization.
var Scopes = []string{
	"user-read-email",
	"user-read-private",
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
	"playlist-read-private",
	"playlist-read-collaborative",
	"playlist-modify-private",
	"playlist-modify-public",
	"user-read-recently-played",
	"user-top-read",
	"user-follow-read",
	"user-follow-modify",
	"user-library-read",
	"streaming",
	"app-remote-control",
}

// TimeRange selects the window for top tracks and artists.
type TimeRange int

const (
	ShortTerm TimeRange = iota
	MediumTerm
	LongTerm
)

// String returns the API value.
func (r TimeRange) String() string {
	switch r {
	case ShortTerm:
		return "short_term"
	case MediumTerm:
		return "medium_term"
	default:
		return "long_term"
	}
}

func (r TimeRange) apiRange() spotify.Range {
	switch r {
	case ShortTerm:
		return spotify.ShortTermRange
	case MediumTerm:
		return spotify.MediumTermRange
	default:
		return spotify.LongTermRange
	}
}

// ParseTimeRange parses short_term, medium_term or long_term.
func ParseTimeRange(s string) (TimeRange, error) {
	switch s {
	case "short_term", "short":
		return ShortTerm, nil
	case "medium_term", "medium":
		return MediumTerm, nil
	case "long_term", "long", "":
		return LongTerm, nil
	}
	return LongTerm, fmt.Errorf("%w: time range %q", shared.ErrInvalidArgument, s)
}

// RepeatMode is the player's repeat state.
type RepeatMode string

const (
	RepeatOff     RepeatMode = "off"
	RepeatTrack   RepeatMode = "track"
	RepeatContext RepeatMode = "context"
)

// ParseRepeatMode validates s as a [RepeatMode].
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch m := RepeatMode(s); m {
	case RepeatOff, RepeatTrack, RepeatContext:
		return m, nil
	}
	return "", fmt.Errorf("%w: repeat mode %q", shared.ErrInvalidArgument, s)
}

// SpotifyService is the account facade over the Spotify Web API.
// Uses [oauth2] for authentication and [spotify.Client] for requests.
type SpotifyService struct {
	config         *oauth2.Config
	token          *oauth2.Token
	client         *spotify.Client
	baseURL        string
	onTokenRefresh func(*oauth2.Token)
}

// SpotifyOption configures a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithAPIBaseURL points the client at a different API root, including the trailing slash.
func WithAPIBaseURL(url string) SpotifyOption {
	return func(s *SpotifyService) { s.baseURL = url }
}

// WithTokenURL overrides the token endpoint used for code exchange and refresh.
func WithTokenURL(url string) SpotifyOption {
	return func(s *SpotifyService) { s.config.Endpoint.TokenURL = url }
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string, opts ...SpotifyOption) (*SpotifyService, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = "http://127.0.0.1:3000/callback"
	}

	s := &SpotifyService{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyAuthURL,
				TokenURL: spotifyTokenURL,
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Name returns the service name.
func (s *SpotifyService) Name() string {
	return "Spotify"
}

// Authenticate accepts either an "access_token" (with optional "refresh_token") or an "auth_code" to exchange.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken := credentials["access_token"]; accessToken != "" {
		s.setToken(ctx, &oauth2.Token{
			AccessToken:  accessToken,
			RefreshToken: credentials["refresh_token"],
			TokenType:    "Bearer",
		})
		return nil
	}

	if authCode := credentials["auth_code"]; authCode != "" {
		token, err := s.config.Exchange(ctx, authCode)
		if err != nil {
			return fmt.Errorf("%w: failed to exchange auth code: %w", shared.ErrAuthFailed, err)
		}
		s.setToken(ctx, token)
		if s.onTokenRefresh != nil {
			s.onTokenRefresh(token)
		}
		return nil
	}

	return fmt.Errorf("%w: missing access_token or auth_code", shared.ErrMissingCredentials)
}

// AuthenticateWithToken resumes a session from a previously saved token.
func (s *SpotifyService) AuthenticateWithToken(ctx context.Context, token *oauth2.Token) error {
	if token == nil || (token.AccessToken == "" && token.RefreshToken == "") {
		return shared.ErrMissingCredentials
	}
	s.setToken(ctx, token)
	return nil
}

func (s *SpotifyService) setToken(ctx context.Context, token *oauth2.Token) {
	s.token = token
	source := &refreshableTokenSource{
		source:   s.config.TokenSource(context.WithoutCancel(ctx), token),
		callback: s.onTokenRefresh,
	}
	httpClient := oauth2.NewClient(context.WithoutCancel(ctx), source)

	var opts []spotify.ClientOption
	if s.baseURL != "" {
		opts = append(opts, spotify.WithBaseURL(s.baseURL))
	}
	s.client = spotify.New(httpClient, opts...)
}

// IsAuthenticated reports whether a token has been set.
func (s *SpotifyService) IsAuthenticated() bool {
	return s.client != nil
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token without authenticating the service.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return s.config.Exchange(ctx, code)
}

// SetTokenRefreshCallback registers fn to receive every new token so it can be persisted.
// Takes effect for sessions started after the call.
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.onTokenRefresh = fn
}

// refreshableTokenSource notifies callback whenever the wrapped source yields a different token.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)
	last     string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	if r.callback != nil && token.AccessToken != r.last {
		r.last = token.AccessToken
		func() {
			defer func() { _ = recover() }()
			r.callback(token)
		}()
	}
	return token, nil
}

// classify maps library errors onto the shared sentinels.
func classify(err error) error {
	status := 0
	var apiErr spotify.Error
	var apiErrPtr *spotify.Error
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.Status
	case errors.As(err, &apiErrPtr):
		status = apiErrPtr.Status
	}
	if status != 0 {
		switch status {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %w", shared.ErrTokenExpired, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
		case http.StatusServiceUnavailable, http.StatusBadGateway:
			return fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, err)
		}
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%w: %w", shared.ErrTokenExpired, err)
	}
	return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
}

// do runs call against the client, converting the outcome into a [Result].
func do[T any](s *SpotifyService, what string, call func(c *spotify.Client) (T, error), describe func(T) string) Result[T] {
	if s.client == nil {
		return Fail[T](shared.ErrNotAuthenticated, "Failed to "+what+": not authenticated")
	}

	data, err := call(s.client)
	if err != nil {
		return Fail[T](classify(err), "Failed to "+what)
	}

	msg := "Successfully " + pastTense(what)
	if describe != nil {
		msg += ", " + describe(data)
	}
	return Ok(data, msg)
}

var pastTenses = []struct{ verb, past string }{
	{"get ", "retrieved "},
	{"search ", "searched "},
	{"create ", "created "},
	{"add ", "added "},
	{"skip ", "skipped "},
	{"pause ", "paused "},
	{"resume ", "resumed "},
	{"transfer ", "transferred "},
	{"start ", "started "},
	{"queue ", "queued "},
}

func pastTense(what string) string {
	for _, p := range pastTenses {
		if rest, ok := strings.CutPrefix(what, p.verb); ok {
			return p.past + rest
		}
	}
	return what
}

func total[T any](noun string) func([]T) string {
	return func(items []T) string { return fmt.Sprintf("total: %d %s", len(items), noun) }
}

// UserProfile retrieves the current user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) Result[*spotify.PrivateUser] {
	return do(s, "get user profile", func(c *spotify.Client) (*spotify.PrivateUser, error) {
		return c.CurrentUser(ctx)
	}, nil)
}

// CurrentPlayback returns the player state, or a nil payload when nothing is playing.
func (s *SpotifyService) CurrentPlayback(ctx context.Context) Result[*spotify.PlayerState] {
	res := do(s, "get current playback", func(c *spotify.Client) (*spotify.PlayerState, error) {
		return c.PlayerState(ctx)
	}, nil)
	if res.Success() && (res.Data == nil || res.Data.Item == nil) {
		return Ok[*spotify.PlayerState](nil, "No track currently playing")
	}
	return res
}

// PlayTrack starts playback of a single track URI.
func (s *SpotifyService) PlayTrack(ctx context.Context, uri string) Result[string] {
	return do(s, "start playback", func(c *spotify.Client) (string, error) {
		return uri, c.PlayOpt(ctx, &spotify.PlayOptions{URIs: []spotify.URI{spotify.URI(uri)}})
	}, func(u string) string { return "playing " + u })
}

// PlayPlaylist starts playback of a context URI such as a playlist.
func (s *SpotifyService) PlayPlaylist(ctx context.Context, uri string) Result[string] {
	return do(s, "start playback", func(c *spotify.Client) (string, error) {
		contextURI := spotify.URI(uri)
		return uri, c.PlayOpt(ctx, &spotify.PlayOptions{PlaybackContext: &contextURI})
	}, func(u string) string { return "playing " + u })
}

// Pause pauses playback.
func (s *SpotifyService) Pause(ctx context.Context) Result[struct{}] {
	return do(s, "pause playback", func(c *spotify.Client) (struct{}, error) {
		return struct{}{}, c.Pause(ctx)
	}, nil)
}

// Resume resumes playback.
func (s *SpotifyService) Resume(ctx context.Context) Result[struct{}] {
	return do(s, "resume playback", func(c *spotify.Client) (struct{}, error) {
		return struct{}{}, c.Play(ctx)
	}, nil)
}

// Next skips to the next track.
func (s *SpotifyService) Next(ctx context.Context) Result[struct{}] {
	return do(s, "skip to next track", func(c *spotify.Client) (struct{}, error) {
		return struct{}{}, c.Next(ctx)
	}, nil)
}

// Previous skips to the previous track.
func (s *SpotifyService) Previous(ctx context.Context) Result[struct{}] {
	return do(s, "skip to previous track", func(c *spotify.Client) (struct{}, error) {
		return struct{}{}, c.Previous(ctx)
	}, nil)
}

// Queue adds a track to the playback queue.
func (s *SpotifyService) Queue(ctx context.Context, trackID string) Result[string] {
	return do(s, "queue track", func(c *spotify.Client) (string, error) {
		return trackID, c.QueueSong(ctx, spotify.ID(trackID))
	}, nil)
}

// GetQueue returns the currently playing item and the tracks queued after it.
func (s *SpotifyService) GetQueue(ctx context.Context) Result[*spotify.Queue] {
	return do(s, "get queue", func(c *spotify.Client) (*spotify.Queue, error) {
		return c.GetQueue(ctx)
	}, func(q *spotify.Queue) string { return fmt.Sprintf("total: %d queued tracks", len(q.Items)) })
}

// Devices lists the user's available playback devices.
func (s *SpotifyService) Devices(ctx context.Context) Result[[]spotify.PlayerDevice] {
	return do(s, "get devices", func(c *spotify.Client) ([]spotify.PlayerDevice, error) {
		return c.PlayerDevices(ctx)
	}, total[spotify.PlayerDevice]("devices"))
}

// TransferPlayback moves playback to deviceID, starting it when play is true.
func (s *SpotifyService) TransferPlayback(ctx context.Context, deviceID string, play bool) Result[string] {
	if deviceID == "" {
		return Fail[string](shared.ErrMissingArgument, "Failed to transfer playback: device id is required")
	}
	return do(s, "transfer playback", func(c *spotify.Client) (string, error) {
		return deviceID, c.TransferPlayback(ctx, spotify.ID(deviceID), play)
	}, nil)
}

// SetVolume sets the volume, 0 to 100.
func (s *SpotifyService) SetVolume(ctx context.Context, percent int) Result[int] {
	if percent < 0 || percent > 100 {
		return Fail[int](fmt.Errorf("%w: volume %d", shared.ErrInvalidArgument, percent), "Failed to set volume: must be between 0 and 100")
	}
	return do(s, "set volume", func(c *spotify.Client) (int, error) {
		return percent, c.Volume(ctx, percent)
	}, func(p int) string { return fmt.Sprintf("volume: %d%%", p) })
}

// SetShuffle toggles shuffle.
func (s *SpotifyService) SetShuffle(ctx context.Context, on bool) Result[bool] {
	return do(s, "set shuffle", func(c *spotify.Client) (bool, error) {
		return on, c.Shuffle(ctx, on)
	}, nil)
}

// SetRepeat sets the repeat mode.
func (s *SpotifyService) SetRepeat(ctx context.Context, mode RepeatMode) Result[RepeatMode] {
	if _, err := ParseRepeatMode(string(mode)); err != nil {
		return Fail[RepeatMode](err, "Failed to set repeat mode")
	}
	return do(s, "set repeat mode", func(c *spotify.Client) (RepeatMode, error) {
		return mode, c.Repeat(ctx, string(mode))
	}, nil)
}

// RecentlyPlayed returns up to limit recently played items.
func (s *SpotifyService) RecentlyPlayed(ctx context.Context, limit int) Result[[]spotify.RecentlyPlayedItem] {
	return do(s, "get recently played tracks", func(c *spotify.Client) ([]spotify.RecentlyPlayedItem, error) {
		opt := &spotify.RecentlyPlayedOptions{Limit: spotify.Numeric(limit)}
		return c.PlayerRecentlyPlayedOpt(ctx, opt)
	}, total[spotify.RecentlyPlayedItem]("tracks"))
}

// TopTracks returns the user's top tracks over timeRange.
func (s *SpotifyService) TopTracks(ctx context.Context, timeRange TimeRange, limit int) Result[[]spotify.FullTrack] {
	return do(s, "get top tracks", func(c *spotify.Client) ([]spotify.FullTrack, error) {
		page, err := c.CurrentUsersTopTracks(ctx, spotify.Timerange(timeRange.apiRange()), spotify.Limit(limit))
		if err != nil {
			return nil, err
		}
		return page.Tracks, nil
	}, total[spotify.FullTrack]("tracks"))
}

// TopArtists returns the user's top artists over timeRange.
func (s *SpotifyService) TopArtists(ctx context.Context, timeRange TimeRange, limit int) Result[[]spotify.FullArtist] {
	return do(s, "get top artists", func(c *spotify.Client) ([]spotify.FullArtist, error) {
		page, err := c.CurrentUsersTopArtists(ctx, spotify.Timerange(timeRange.apiRange()), spotify.Limit(limit))
		if err != nil {
			return nil, err
		}
		return page.Artists, nil
	}, total[spotify.FullArtist]("artists"))
}

// FollowedArtists returns one page of followed artists, starting after the given cursor.
func (s *SpotifyService) FollowedArtists(ctx context.Context, limit int, after string) Result[[]spotify.FullArtist] {
	return do(s, "get followed artists", func(c *spotify.Client) ([]spotify.FullArtist, error) {
		opts := []spotify.RequestOption{spotify.Limit(limit)}
		if after != "" {
			opts = append(opts, spotify.After(after))
		}
		page, err := c.CurrentUsersFollowedArtists(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return page.Artists, nil
	}, total[spotify.FullArtist]("artists"))
}

// SavedAlbums returns a page of the user's saved albums.
func (s *SpotifyService) SavedAlbums(ctx context.Context, limit, offset int) Result[[]spotify.SavedAlbum] {
	return do(s, "get saved albums", func(c *spotify.Client) ([]spotify.SavedAlbum, error) {
		page, err := c.CurrentUsersAlbums(ctx, spotify.Limit(limit), spotify.Offset(offset))
		if err != nil {
			return nil, err
		}
		return page.Albums, nil
	}, total[spotify.SavedAlbum]("albums"))
}

// SavedTracks returns a page of the user's saved tracks.
func (s *SpotifyService) SavedTracks(ctx context.Context, limit, offset int) Result[[]spotify.SavedTrack] {
	return do(s, "get saved tracks", func(c *spotify.Client) ([]spotify.SavedTrack, error) {
		page, err := c.CurrentUsersTracks(ctx, spotify.Limit(limit), spotify.Offset(offset))
		if err != nil {
			return nil, err
		}
		return page.Tracks, nil
	}, total[spotify.SavedTrack]("tracks"))
}

// UserPlaylists returns a page of the user's playlists.
func (s *SpotifyService) UserPlaylists(ctx context.Context, limit, offset int) Result[[]spotify.SimplePlaylist] {
	return do(s, "get playlists", func(c *spotify.Client) ([]spotify.SimplePlaylist, error) {
		page, err := c.CurrentUsersPlaylists(ctx, spotify.Limit(limit), spotify.Offset(offset))
		if err != nil {
			return nil, err
		}
		return page.Playlists, nil
	}, total[spotify.SimplePlaylist]("playlists"))
}

// PlaylistTracks returns a page of a playlist's tracks. Episodes and local files without a track are skipped.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string, limit, offset int) Result[[]spotify.FullTrack] {
	return do(s, "get playlist tracks", func(c *spotify.Client) ([]spotify.FullTrack, error) {
		page, err := c.GetPlaylistItems(ctx, spotify.ID(playlistID), spotify.Limit(limit), spotify.Offset(offset))
		if err != nil {
			return nil, err
		}
		tracks := make([]spotify.FullTrack, 0, len(page.Items))
		for _, item := range page.Items {
			if item.Track.Track != nil {
				tracks = append(tracks, *item.Track.Track)
			}
		}
		return tracks, nil
	}, total[spotify.FullTrack]("tracks"))
}

// CreatePlaylist creates a playlist owned by the current user.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, name, description string, public bool) Result[*spotify.FullPlaylist] {
	if name == "" {
		return Fail[*spotify.FullPlaylist](shared.ErrMissingArgument, "Failed to create playlist: name is required")
	}
	return do(s, "create playlist", func(c *spotify.Client) (*spotify.FullPlaylist, error) {
		user, err := c.CurrentUser(ctx)
		if err != nil {
			return nil, err
		}
		return c.CreatePlaylistForUser(ctx, user.ID, name, description, public, false)
	}, func(p *spotify.FullPlaylist) string { return "name: " + p.Name })
}

// AddTracksToPlaylist appends up to 100 tracks and returns the new snapshot ID.
func (s *SpotifyService) AddTracksToPlaylist(ctx context.Context, playlistID string, trackIDs []string) Result[string] {
	if len(trackIDs) == 0 {
		return Fail[string](fmt.Errorf("%w: no track IDs provided", shared.ErrMissingArgument), "Failed to add tracks to playlist")
	}
	return do(s, "add tracks to playlist", func(c *spotify.Client) (string, error) {
		return c.AddTracksToPlaylist(ctx, spotify.ID(playlistID), toIDs(trackIDs)...)
	}, func(string) string { return fmt.Sprintf("total: %d tracks", len(trackIDs)) })
}

// SearchTracks searches the catalog for tracks matching query.
func (s *SpotifyService) SearchTracks(ctx context.Context, query string, limit int) Result[[]spotify.FullTrack] {
	return do(s, "search tracks", func(c *spotify.Client) ([]spotify.FullTrack, error) {
		res, err := c.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit))
		if err != nil {
			return nil, err
		}
		if res.Tracks == nil {
			return []spotify.FullTrack{}, nil
		}
		return res.Tracks.Tracks, nil
	}, total[spotify.FullTrack]("tracks"))
}

// Tracks looks up at most [MaxTrackBatch] tracks by ID.
func (s *SpotifyService) Tracks(ctx context.Context, trackIDs []string) Result[[]*spotify.FullTrack] {
	if len(trackIDs) == 0 {
		return Fail[[]*spotify.FullTrack](fmt.Errorf("%w: no track IDs provided", shared.ErrMissingArgument), "Failed to get tracks")
	}
	if len(trackIDs) > MaxTrackBatch {
		return Fail[[]*spotify.FullTrack](
			fmt.Errorf("%w: maximum %d track IDs allowed, got %d", shared.ErrInvalidArgument, MaxTrackBatch, len(trackIDs)),
			"Failed to get tracks",
		)
	}
	return do(s, "get tracks", func(c *spotify.Client) ([]*spotify.FullTrack, error) {
		return c.GetTracks(ctx, toIDs(trackIDs))
	}, total[*spotify.FullTrack]("tracks"))
}

// AlbumTracks returns a page of an album's tracks.
func (s *SpotifyService) AlbumTracks(ctx context.Context, albumID string, limit, offset int) Result[[]spotify.SimpleTrack] {
	return do(s, "get album tracks", func(c *spotify.Client) ([]spotify.SimpleTrack, error) {
		page, err := c.GetAlbumTracks(ctx, spotify.ID(albumID), spotify.Limit(limit), spotify.Offset(offset))
		if err != nil {
			return nil, err
		}
		return page.Tracks, nil
	}, total[spotify.SimpleTrack]("tracks"))
}

func toIDs(ids []string) []spotify.ID {
	out := make([]spotify.ID, len(ids))
	for i, id := range ids {
		out[i] = spotify.ID(id)
	}
	return out
}
