package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/discover/internal/formatter"
	"github.com/desertthunder/discover/internal/models"
	"github.com/desertthunder/discover/internal/services"
	"github.com/desertthunder/discover/internal/shared"
	"github.com/desertthunder/discover/internal/tasks"
	"github.com/urfave/cli/v3"
)

// writeRun renders export to stdout, or into --output as files.
func (r *Runner) writeRun(cmd *cli.Command, export *models.RunExport) error {
	format := cmd.String("format")
	if !formatter.ValidFormat(format) {
		return fmt.Errorf("%w: format %q", shared.ErrInvalidFlag, format)
	}

	dir := cmd.String("output")
	if dir == "" {
		return formatter.Write(r.output, export, format)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	files, err := formatter.WriteExport(export, format, dir, cmd.Bool("cover"))
	if err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	r.writePlain("✓ %s exported\n", export.Name())
	for _, f := range files {
		r.writePlain("  %s\n", f)
	}
	return nil
}

// runRecall executes one recall operation with progress logging and writes its result.
func (r *Runner) runRecall(cmd *cli.Command, kind models.RunKind, fn func(*tasks.RecallEngine, chan<- tasks.ProgressUpdate) services.Result[*tasks.RecallResult]) error {
	engine, err := r.engine(cmd)
	if err != nil {
		return err
	}

	var res services.Result[*tasks.RecallResult]
	r.withProgress(func(progress chan<- tasks.ProgressUpdate) {
		res = fn(engine, progress)
	})
	if !res.Success() {
		return fmt.Errorf("%s: %w", res.Message, res.Err)
	}

	r.logger.Info(res.Message, "searched", res.Data.Searched, "candidates", res.Data.Candidates)
	if res.Data.RunID != "" {
		r.logger.Info("run saved", "id", res.Data.RunID)
	}
	return r.writeRun(cmd, tasks.ExportFromResult(kind, res.Data))
}

// RecallArtists aggregates artists from every library source.
func (r *Runner) RecallArtists(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.engine(cmd)
	if err != nil {
		return err
	}

	var res services.Result[[]models.Artist]
	r.withProgress(func(progress chan<- tasks.ProgressUpdate) {
		res = engine.RecallArtistsRun(ctx, progress)
	})
	if !res.Success() {
		return fmt.Errorf("%s: %w", res.Message, res.Err)
	}

	r.logger.Info(res.Message)
	return r.writeRun(cmd, tasks.ExportFromResult(models.RunArtists, &tasks.RecallResult{
		Artists: res.Data,
		Message: res.Message,
	}))
}

// RecallTracks runs the full recall: first artists through the catalog, deduplicated Spotify matches.
func (r *Runner) RecallTracks(ctx context.Context, cmd *cli.Command) error {
	return r.runRecall(cmd, models.RunTracks, func(e *tasks.RecallEngine, progress chan<- tasks.ProgressUpdate) services.Result[*tasks.RecallResult] {
		return e.RecallAllTracks(ctx, progress)
	})
}

// RecallFill samples catalog tracks across all recalled artists.
func (r *Runner) RecallFill(ctx context.Context, cmd *cli.Command) error {
	n := r.fillSize(cmd)
	return r.runRecall(cmd, models.RunFill, func(e *tasks.RecallEngine, progress chan<- tasks.ProgressUpdate) services.Result[*tasks.RecallResult] {
		return e.RandomFill(ctx, n, progress)
	})
}

// fillSize is --tracks, falling back to recall.fill_tracks.
func (r *Runner) fillSize(cmd *cli.Command) int {
	if n := cmd.Int("tracks"); n > 0 {
		return n
	}
	return r.config.Recall.FillTracks
}
