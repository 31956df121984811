package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/discover/internal/formatter"
	"github.com/desertthunder/discover/internal/models"
	"github.com/desertthunder/discover/internal/shared"
	"github.com/desertthunder/discover/internal/tasks"
	"github.com/urfave/cli/v3"
)

// HistoryList prints recorded runs, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.store()
	if err != nil {
		return err
	}

	kind := models.RunKind(cmd.String("kind"))
	if kind != "" && !kind.Valid() {
		return fmt.Errorf("%w: kind %q", shared.ErrInvalidFlag, kind)
	}

	runs, err := repo.List(ctx, map[string]any{"kind": kind, "limit": cmd.Int("limit")})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		exports := make([]*models.RunExport, len(runs))
		for i, run := range runs {
			exports[i] = models.NewRunExport(run, nil, nil)
		}
		return r.writeJSON(exports, cmd.Bool("pretty"))
	}

	if len(runs) == 0 {
		r.writePlain("No runs recorded. Use --save with a recall command.\n")
		return nil
	}

	r.writePlainHeader(fmt.Sprintf("Recall runs (%d)", len(runs)))
	for _, run := range runs {
		r.writePlain("#%-4d %-8s %s\n", run.Sequence(), run.Kind(), run.CreatedAt().Local().Format("2006-01-02 15:04"))
		r.writePlain("      %d artists, %d tracks from %d candidates\n", run.ArtistCount(), run.TrackCount(), run.CandidateCount())
		if run.PlaylistID() != "" {
			r.writePlain("      Playlist: %s\n", run.PlaylistID())
		}
		r.writePlain("      ID: %s\n", run.ID())
	}
	return nil
}

// HistoryShow writes one run in the chosen format.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.StringArg("run")
	if ref == "" {
		return fmt.Errorf("%w: run ID or #sequence", shared.ErrMissingArgument)
	}

	repo, err := r.store()
	if err != nil {
		return err
	}

	export, err := repo.Export(ctx, ref)
	if err != nil {
		return err
	}
	return r.writeRun(cmd, export)
}

// HistoryDelete soft-deletes one run.
func (r *Runner) HistoryDelete(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.StringArg("run")
	if ref == "" {
		return fmt.Errorf("%w: run ID or #sequence", shared.ErrMissingArgument)
	}

	repo, err := r.store()
	if err != nil {
		return err
	}

	run, err := repo.Resolve(ctx, ref)
	if err != nil {
		return err
	}
	if err := repo.Delete(ctx, run.ID()); err != nil {
		return err
	}

	r.writePlain("✓ Deleted run #%d (%s)\n", run.Sequence(), run.ID())
	return nil
}

// HistoryPurge permanently removes soft-deleted runs.
func (r *Runner) HistoryPurge(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.store()
	if err != nil {
		return err
	}

	n, err := repo.Purge(ctx)
	if err != nil {
		return err
	}

	r.writePlain("✓ Purged %d deleted runs\n", n)
	return nil
}

// HistoryExport writes the given runs, or every recorded run, to files with a manifest.
func (r *Runner) HistoryExport(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.store()
	if err != nil {
		return err
	}

	ids, err := r.exportIDs(ctx, repo, cmd.Args().Slice())
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		r.writePlain("No runs to export.\n")
		return nil
	}

	opts := tasks.BulkExportOpts{
		Format:     cmd.String("format"),
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		WithCover:  cmd.Bool("cover"),
	}

	var result *formatter.BulkExportResult
	r.withProgress(func(progress chan<- tasks.ProgressUpdate) {
		result, err = tasks.BulkExport(ctx, repo, ids, opts, progress)
	})
	if result == nil {
		return err
	}

	r.writePlainHeader("Export complete")
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Runs: %d exported, %d failed\n", result.SuccessfulExports, result.FailedExports)
	for _, entry := range result.Results {
		if entry.Success {
			r.writePlain("  ✓ %s\n", entry.Name)
			continue
		}
		r.writePlain("  ✗ %s: %v\n", entry.Name, entry.Error)
	}
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", result.ManifestPath)
	}
	return err
}

// exportIDs resolves refs to run IDs, or lists every run when refs is empty.
func (r *Runner) exportIDs(ctx context.Context, repo runStore, refs []string) ([]string, error) {
	if len(refs) == 0 {
		runs, err := repo.List(ctx, nil)
		if err != nil {
			return nil, err
		}
		ids := make([]string, len(runs))
		for i, run := range runs {
			ids[i] = run.ID()
		}
		return ids, nil
	}

	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		run, err := repo.Resolve(ctx, ref)
		if err != nil {
			return nil, err
		}
		ids = append(ids, run.ID())
	}
	return ids, nil
}

type runStore interface {
	List(ctx context.Context, criteria map[string]any) ([]*models.RecallRun, error)
	Resolve(ctx context.Context, ref string) (*models.RecallRun, error)
}
