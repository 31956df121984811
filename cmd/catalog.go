package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/discover/internal/models"
	"github.com/desertthunder/discover/internal/services"
	"github.com/desertthunder/discover/internal/shared"
	"github.com/urfave/cli/v3"
)

func requireArgs(cmd *cli.Command, what string) ([]string, error) {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: at least one %s", shared.ErrMissingArgument, what)
	}
	return args, nil
}

// CatalogArtists resolves artist names to catalog IDs.
func (r *Runner) CatalogArtists(ctx context.Context, cmd *cli.Command) error {
	names, err := requireArgs(cmd, "artist name")
	if err != nil {
		return err
	}

	res := r.catalog.ArtistIDs(ctx, names, nil)
	return emit(r, res, cmd.Bool("json"), cmd.Bool("pretty"), func(ids []string) {
		for i, id := range ids {
			r.writePlain("%d. %s\n", i+1, id)
		}
	})
}

// CatalogAlbums lists the albums kept for each catalog artist.
func (r *Runner) CatalogAlbums(ctx context.Context, cmd *cli.Command) error {
	ids, err := requireArgs(cmd, "artist id")
	if err != nil {
		return err
	}

	res := r.catalog.AlbumIDs(ctx, ids, nil)
	return emit(r, res, cmd.Bool("json"), cmd.Bool("pretty"), func(albums *models.AlbumMap) {
		for id, albumIDs := range albums.All() {
			r.writePlain("%s: %s\n", id, strings.Join(albumIDs, ", "))
		}
	})
}

// CatalogTracks expands albums into their sampled tracks.
func (r *Runner) CatalogTracks(ctx context.Context, cmd *cli.Command) error {
	ids, err := requireArgs(cmd, "album id")
	if err != nil {
		return err
	}

	seed := r.config.Recall.Seed
	if cmd.IsSet("seed") {
		seed = cmd.Uint64("seed")
	}

	res := r.catalog.Tracks(ctx, ids, shared.NewRand(seed), nil)
	return emit(r, res, cmd.Bool("json"), cmd.Bool("pretty"), func(tracks []models.CandidateTrack) {
		for i, t := range tracks {
			r.writePlain("%d. %s (%s)\n", i+1, t.Title, shared.FormatDuration(time.Duration(t.Duration)*time.Second))
			r.writePlain("   ID: %s\n", t.ID)
		}
	})
}

// CatalogGet performs a raw GET against the catalog and prints the body.
func (r *Runner) CatalogGet(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}

	client, ok := r.catalog.(*services.CatalogService)
	if !ok {
		return fmt.Errorf("%w: raw requests need the HTTP catalog client", shared.ErrServiceUnavailable)
	}

	params := url.Values{}
	for _, kv := range cmd.StringSlice("param") {
		key, value, found := strings.Cut(kv, "=")
		if !found {
			return fmt.Errorf("%w: --param %q must be key=value", shared.ErrInvalidFlag, kv)
		}
		params.Add(key, value)
	}

	r.logger.Info("catalog request", "path", path, "params", params.Encode())

	resp, err := client.Get(ctx, path, params)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrCatalogRequest, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.logger.Warn("catalog returned an error status", "status", resp.StatusCode)
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, cmd.Bool("pretty"))
	}
	return r.writePlain("%s\n", string(resp.Body))
}
