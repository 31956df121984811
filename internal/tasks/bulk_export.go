package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/desertthunder/discover/internal/formatter"
	"github.com/desertthunder/discover/internal/models"
	"github.com/desertthunder/discover/internal/shared"
)

// RunSource loads saved runs for export (repositories.RecallRunRepository).
type RunSource interface {
	Export(ctx context.Context, id string) (*models.RunExport, error)
}

// BulkExportOpts contains configuration for bulk run exports.
type BulkExportOpts struct {
	Format     string // Export format: json, csv, markdown, txt
	OutputDir  string // Base output directory (default: discover_export_{epoch})
	NumWorkers int    // Concurrent workers (default: 5, max: 10)
	WithCover  bool   // Download album covers for markdown exports
}

// BulkExport writes saved runs to files concurrently and finishes with a manifest.
//
// A run that fails to load or write is recorded in the result and does not stop the others.
// Entries keep the order of ids.
func BulkExport(ctx context.Context, src RunSource, ids []string, opts BulkExportOpts, prog chan<- ProgressUpdate) (*formatter.BulkExportResult, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: run history not initialized", shared.ErrServiceUnavailable)
	}
	if opts.Format == "" {
		opts.Format = "json"
	}
	if !formatter.ValidFormat(opts.Format) {
		return nil, fmt.Errorf("%w: format %q", shared.ErrInvalidFlag, opts.Format)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("discover_export_%d", time.Now().Unix())
	}
	opts.NumWorkers = min(max(opts.NumWorkers, 1), 10)

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &formatter.BulkExportResult{TotalRuns: len(ids), OutputDirectory: opts.OutputDir}

	pool := shared.NewPool(opts.NumWorkers, 0)
	entries, _ := shared.RunOrdered(ctx, pool, ids, func(ctx context.Context, id string) (formatter.ExportEntry, error) {
		return exportSingleRun(ctx, src, id, opts), nil
	}, func(done int) {
		sendProgress(prog, ProgressUpdate{
			Phase:   Complete,
			Step:    done,
			Total:   len(ids),
			Message: fmt.Sprintf("Exported %d of %d runs", done, len(ids)),
		})
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, entry := range entries {
		result.Results = append(result.Results, entry)
		if entry.Success {
			result.SuccessfulExports++
		} else {
			result.FailedExports++
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteBulkExportManifest(result, opts.Format, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// exportSingleRun loads and writes one run.
func exportSingleRun(ctx context.Context, src RunSource, id string, opts BulkExportOpts) formatter.ExportEntry {
	entry := formatter.ExportEntry{RunID: id, Name: fmt.Sprintf("Unknown (%s)", id), Files: []string{}}

	export, err := src.Export(ctx, id)
	if err != nil {
		entry.Error = fmt.Errorf("failed to load run: %w", err)
		return entry
	}
	entry.Name = export.Name()

	files, err := formatter.WriteExport(export, opts.Format, opts.OutputDir, opts.WithCover)
	if err != nil {
		entry.Error = fmt.Errorf("%s export failed: %w", opts.Format, err)
		return entry
	}
	entry.Files = files
	entry.Success = true
	return entry
}

// ExportFromResult builds an unsaved export for a track recall result.
func ExportFromResult(kind models.RunKind, result *RecallResult) *models.RunExport {
	run := models.NewRecallRun(kind, result.Message)
	run.SetID(result.RunID)
	run.SetCandidateCount(result.Candidates)
	return models.NewRunExport(run, result.Artists, RunTracks(result.Tracks))
}
