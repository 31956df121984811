package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/discover/internal/server"
	"github.com/desertthunder/discover/internal/services"
	"github.com/desertthunder/discover/internal/shared"
	"github.com/desertthunder/discover/internal/tasks"
	"github.com/urfave/cli/v3"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

const authTimeout = 2 * time.Minute

// SpotifyAuth performs OAuth2 authentication flow for Spotify.
//
// Starts a local HTTP server, opens browser for user authorization, and exchanges auth code for tokens.
func (r *Runner) SpotifyAuth(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in config.toml or the environment", shared.ErrMissingCredentials)
	}

	svc := r.spotify
	if svc == nil {
		var err error
		if svc, err = services.NewSpotifyService(creds.Map()); err != nil {
			return fmt.Errorf("failed to create Spotify service: %w", err)
		}
	}

	token, err := r.doOAuth(ctx, svc)
	if err != nil {
		return err
	}

	if err := r.saveTokens(token); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	if r.configPath != "" {
		r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	}
	r.writePlain("You can now use: discover recall tracks\n")
	return nil
}

// callbackPath is the path component of the redirect URI, defaulting to /callback.
func callbackPath(redirectURI string) string {
	u, err := url.Parse(redirectURI)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "/callback"
	}
	return u.Path
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, svc *services.SpotifyService) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	handler := server.NewOAuthHandler(svc, state, callbackPath(r.config.Credentials.Spotify.RedirectURI))
	router := server.NewCallbackRouter(handler, r.logger)

	srv, err := server.Listen(r.config.Server.Addr(), router, r.logger)
	if err != nil {
		return nil, err
	}

	serveCtx, stop := context.WithCancel(ctx)
	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server at %v", srv.Addr())
		serverErrors <- srv.Serve(serveCtx)
	}()
	defer func() {
		stop()
		<-serverErrors
	}()

	authURL := svc.GetAuthURL(state)
	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(authTimeout)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-handler.Result():
	case err := <-serverErrors:
		serverErrors <- err
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}
	return result.Token, nil
}

func artistNames(artists []spotify.SimpleArtist) string {
	names := make([]string, len(artists))
	for i, a := range artists {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}

func (r *Runner) printTracks(tracks []spotify.FullTrack) {
	for i, t := range tracks {
		r.writePlain("%d. %s - %s\n", i+1, artistNames(t.Artists), t.Name)
		if t.Album.Name != "" {
			r.writePlain("   Album: %s\n", t.Album.Name)
		}
		r.writePlain("   ID: %s\n", t.ID)
	}
}

// SpotifyProfile prints the current user's profile.
func (r *Runner) SpotifyProfile(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAccount(); err != nil {
		return err
	}
	return emit(r, r.account.UserProfile(ctx), cmd.Bool("json"), cmd.Bool("pretty"), func(u *spotify.PrivateUser) {
		r.writePlain("Name: %s\n", u.DisplayName)
		r.writePlain("ID: %s\n", u.ID)
		if u.Email != "" {
			r.writePlain("Email: %s\n", u.Email)
		}
		if u.Country != "" {
			r.writePlain("Country: %s\n", u.Country)
		}
		if u.Product != "" {
			r.writePlain("Product: %s\n", u.Product)
		}
		r.writePlain("Followers: %d\n", u.Followers.Count)
	})
}

// SpotifyPlayback prints the current playback state.
func (r *Runner) SpotifyPlayback(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSpotify(); err != nil {
		return err
	}
	return emit(r, r.spotify.CurrentPlayback(ctx), cmd.Bool("json"), cmd.Bool("pretty"), func(state *spotify.PlayerState) {
		if state == nil || state.Item == nil {
			r.writePlain("Nothing is playing\n")
			return
		}
		status := "Paused"
		if state.Playing {
			status = "Playing"
		}
		r.writePlain("%s: %s - %s\n", status, artistNames(state.Item.Artists), state.Item.Name)
		r.writePlain("Device: %s (volume %d%%)\n", state.Device.Name, state.Device.Volume)
		r.writePlain("Shuffle: %t, Repeat: %s\n", state.ShuffleState, state.RepeatState)
	})
}

// SpotifyRecent lists recently played tracks.
func (r *Runner) SpotifyRecent(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAccount(); err != nil {
		return err
	}
	return emit(r, r.account.RecentlyPlayed(ctx, cmd.Int("limit")), cmd.Bool("json"), cmd.Bool("pretty"), func(items []spotify.RecentlyPlayedItem) {
		for i, item := range items {
			r.writePlain("%d. %s - %s (%s)\n", i+1, artistNames(item.Track.Artists), item.Track.Name, item.PlayedAt.Format(time.DateTime))
		}
	})
}

// SpotifyTop lists top tracks or artists.
func (r *Runner) SpotifyTop(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAccount(); err != nil {
		return err
	}

	timeRange, err := services.ParseTimeRange(cmd.String("range"))
	if err != nil {
		return err
	}
	limit := cmd.Int("limit")

	switch cmd.String("type") {
	case "tracks":
		return emit(r, r.account.TopTracks(ctx, timeRange, limit), cmd.Bool("json"), cmd.Bool("pretty"), r.printTracks)
	case "artists":
		return emit(r, r.account.TopArtists(ctx, timeRange, limit), cmd.Bool("json"), cmd.Bool("pretty"), func(artists []spotify.FullArtist) {
			for i, a := range artists {
				r.writePlain("%d. %s\n", i+1, a.Name)
				if len(a.Genres) > 0 {
					r.writePlain("   Genres: %s\n", strings.Join(a.Genres, ", "))
				}
				r.writePlain("   ID: %s\n", a.ID)
			}
		})
	default:
		return fmt.Errorf("%w: --type must be tracks or artists", shared.ErrInvalidFlag)
	}
}

// SpotifyPlaylists lists the user's playlists.
func (r *Runner) SpotifyPlaylists(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAccount(); err != nil {
		return err
	}

	r.logger.Infof("listing spotify playlists with limit %v", cmd.Int("limit"))

	res := r.account.UserPlaylists(ctx, cmd.Int("limit"), cmd.Int("offset"))
	return emit(r, res, cmd.Bool("json"), cmd.Bool("pretty"), func(playlists []spotify.SimplePlaylist) {
		r.writePlain("Found %d playlists:\n\n", len(playlists))
		for i, p := range playlists {
			r.writePlain("%d. %s\n", i+1, p.Name)
			if p.Description != "" {
				r.writePlain("   Description: %s\n", p.Description)
			}
			r.writePlain("   ID: %s\n", p.ID)
			r.writePlain("   Tracks: %d\n", p.Tracks.Total)
			if p.IsPublic {
				r.writePlain("   Visibility: Public\n")
			} else {
				r.writePlain("   Visibility: Private\n")
			}
			r.writePlain("\n")
		}
	})
}

// SpotifySearch searches tracks, scoped to --artist when given.
func (r *Runner) SpotifySearch(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}
	if err := r.requireAccount(); err != nil {
		return err
	}
	query = tasks.TrackQuery(query, cmd.String("artist"))
	return emit(r, r.account.SearchTracks(ctx, query, cmd.Int("limit")), cmd.Bool("json"), cmd.Bool("pretty"), r.printTracks)
}

// SpotifyPlay plays a spotify: URI as given. Anything else is a track name searched with limit
// one, or with --playlist the name of one of the user's playlists.
func (r *Runner) SpotifyPlay(ctx context.Context, cmd *cli.Command) error {
	target := cmd.StringArg("target")
	if target == "" {
		return fmt.Errorf("%w: track, playlist or uri", shared.ErrMissingArgument)
	}
	if err := r.requireSpotify(); err != nil {
		return err
	}

	uri, err := r.resolvePlayURI(ctx, cmd, target)
	if err != nil {
		return err
	}

	if strings.HasPrefix(uri, "spotify:track:") {
		res := r.spotify.PlayTrack(ctx, uri)
		return r.confirm(res.Message, res.Err)
	}
	res := r.spotify.PlayPlaylist(ctx, uri)
	return r.confirm(res.Message, res.Err)
}

func (r *Runner) resolvePlayURI(ctx context.Context, cmd *cli.Command, target string) (string, error) {
	if strings.HasPrefix(target, "spotify:") {
		return target, nil
	}

	engine, err := r.engine(cmd)
	if err != nil {
		return "", err
	}
	if cmd.Bool("playlist") {
		pl, err := engine.FindPlaylist(ctx, target)
		if err != nil {
			return "", err
		}
		r.logger.Info("resolved playlist", "name", pl.Name, "uri", pl.URI)
		return string(pl.URI), nil
	}

	hit, err := engine.FindTrack(ctx, target, cmd.String("artist"))
	if err != nil {
		return "", err
	}
	r.logger.Info("resolved track", "name", hit.Name, "uri", hit.URI)
	return string(hit.URI), nil
}

func (r *Runner) confirm(message string, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", message, err)
	}
	return r.writePlain("✓ %s\n", message)
}

// SpotifyPause pauses playback.
func (r *Runner) SpotifyPause(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSpotify(); err != nil {
		return err
	}
	res := r.spotify.Pause(ctx)
	return r.confirm(res.Message, res.Err)
}

// SpotifyResume resumes playback.
func (r *Runner) SpotifyResume(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSpotify(); err != nil {
		return err
	}
	res := r.spotify.Resume(ctx)
	return r.confirm(res.Message, res.Err)
}

// SpotifyNext skips forward.
func (r *Runner) SpotifyNext(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSpotify(); err != nil {
		return err
	}
	res := r.spotify.Next(ctx)
	return r.confirm(res.Message, res.Err)
}

// SpotifyPrevious skips back.
func (r *Runner) SpotifyPrevious(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSpotify(); err != nil {
		return err
	}
	res := r.spotify.Previous(ctx)
	return r.confirm(res.Message, res.Err)
}

// SpotifyDevices lists playback devices.
func (r *Runner) SpotifyDevices(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSpotify(); err != nil {
		return err
	}
	return emit(r, r.spotify.Devices(ctx), cmd.Bool("json"), cmd.Bool("pretty"), func(devices []spotify.PlayerDevice) {
		for i, d := range devices {
			active := ""
			if d.Active {
				active = " (active)"
			}
			r.writePlain("%d. %s [%s]%s\n", i+1, d.Name, d.Type, active)
			r.writePlain("   ID: %s\n", d.ID)
		}
	})
}

// SpotifyTransfer moves playback to a device.
func (r *Runner) SpotifyTransfer(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSpotify(); err != nil {
		return err
	}
	res := r.spotify.TransferPlayback(ctx, cmd.StringArg("device"), cmd.Bool("play"))
	return r.confirm(res.Message, res.Err)
}

// SpotifyVolume sets the volume.
func (r *Runner) SpotifyVolume(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSpotify(); err != nil {
		return err
	}
	res := r.spotify.SetVolume(ctx, cmd.IntArg("percent"))
	return r.confirm(res.Message, res.Err)
}

// SpotifyShuffle turns shuffle on or off.
func (r *Runner) SpotifyShuffle(ctx context.Context, cmd *cli.Command) error {
	var on bool
	switch strings.ToLower(cmd.StringArg("state")) {
	case "on", "true":
		on = true
	case "off", "false":
	default:
		return fmt.Errorf("%w: shuffle state must be on or off", shared.ErrInvalidArgument)
	}

	if err := r.requireSpotify(); err != nil {
		return err
	}
	res := r.spotify.SetShuffle(ctx, on)
	return r.confirm(res.Message, res.Err)
}

// SpotifyRepeat sets the repeat mode.
func (r *Runner) SpotifyRepeat(ctx context.Context, cmd *cli.Command) error {
	mode, err := services.ParseRepeatMode(cmd.StringArg("mode"))
	if err != nil {
		return err
	}
	if err := r.requireSpotify(); err != nil {
		return err
	}
	res := r.spotify.SetRepeat(ctx, mode)
	return r.confirm(res.Message, res.Err)
}

// SpotifyQueue queues a track.
func (r *Runner) SpotifyQueue(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}
	if err := r.requireSpotify(); err != nil {
		return err
	}
	res := r.spotify.Queue(ctx, strings.TrimPrefix(id, "spotify:track:"))
	return r.confirm(res.Message, res.Err)
}

// SpotifyQueueList prints the current track followed by the queue.
func (r *Runner) SpotifyQueueList(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSpotify(); err != nil {
		return err
	}
	return emit(r, r.spotify.GetQueue(ctx), cmd.Bool("json"), cmd.Bool("pretty"), func(q *spotify.Queue) {
		if q.CurrentlyPlaying.ID != "" {
			r.writePlain("Now playing: %s - %s\n\n", artistNames(q.CurrentlyPlaying.Artists), q.CurrentlyPlaying.Name)
		}
		if len(q.Items) == 0 {
			r.writePlain("Queue is empty\n")
			return
		}
		r.printTracks(q.Items)
	})
}
