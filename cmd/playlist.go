package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/discover/internal/services"
	"github.com/desertthunder/discover/internal/shared"
	"github.com/desertthunder/discover/internal/tasks"
	"github.com/urfave/cli/v3"
	"github.com/zmb3/spotify/v2"
)

// PlaylistCreate creates a playlist and, with --random-fill, fills it from a random recall.
func (r *Runner) PlaylistCreate(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}

	engine, err := r.engine(cmd)
	if err != nil {
		return err
	}

	req := tasks.FillRequest{
		Name:        name,
		Description: cmd.String("description"),
		Public:      cmd.Bool("public"),
		RandomFill:  cmd.Bool("random-fill"),
		NumTracks:   r.fillSize(cmd),
	}

	var res services.Result[*tasks.FillResult]
	r.withProgress(func(progress chan<- tasks.ProgressUpdate) {
		res = engine.FillPlaylist(ctx, req, progress)
	})
	if res.Data == nil || res.Data.Playlist == nil {
		return fmt.Errorf("%s: %w", res.Message, res.Err)
	}

	pl := res.Data.Playlist
	r.writePlainHeader(pl.Name)
	r.writePlain("ID: %s\n", pl.ID)
	r.writePlain("URI: %s\n", pl.URI)
	if len(res.Data.Tracks) > 0 {
		r.writePlainln("Tracks (%d):", len(res.Data.Tracks))
		r.printTracks(res.Data.Tracks)
	}
	if res.Data.RunID != "" {
		r.logger.Info("run saved", "id", res.Data.RunID)
	}

	if !res.Success() {
		return fmt.Errorf("%s: %w", res.Message, res.Err)
	}
	r.logger.Info(res.Message)
	return nil
}

// PlaylistAdd searches each --track and adds the matches to the playlist named by --name.
func (r *Runner) PlaylistAdd(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.engine(cmd)
	if err != nil {
		return err
	}

	titles := cmd.StringSlice("track")
	artists := cmd.StringSlice("artist")
	if len(artists) > len(titles) {
		return fmt.Errorf("%w: more --artist values (%d) than --track values (%d)", shared.ErrInvalidFlag, len(artists), len(titles))
	}

	res := engine.AddTracksByName(ctx, cmd.String("name"), titles, artists)
	return emit(r, res, false, false, r.printTracks)
}

// PlaylistTracks lists a page of tracks from the playlist with the given name.
func (r *Runner) PlaylistTracks(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}

	engine, err := r.engine(cmd)
	if err != nil {
		return err
	}
	pl, err := engine.FindPlaylist(ctx, name)
	if err != nil {
		return err
	}

	res := r.account.PlaylistTracks(ctx, string(pl.ID), cmd.Int("limit"), cmd.Int("offset"))
	return emit(r, res, cmd.Bool("json"), cmd.Bool("pretty"), func(tracks []spotify.FullTrack) {
		r.writePlain("%s (%d tracks)\n\n", pl.Name, pl.Tracks.Total)
		r.printTracks(tracks)
	})
}
