package formatter

import (
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/discover/internal/shared"
)

// ExportEntry is the outcome of exporting one run.
type ExportEntry struct {
	RunID   string
	Name    string
	Success bool
	Files   []string
	Error   error
}

// BulkExportResult summarizes a multi-run export.
type BulkExportResult struct {
	TotalRuns         int
	SuccessfulExports int
	FailedExports     int
	Results           []ExportEntry
	OutputDirectory   string
	ManifestPath      string
}

type manifestEntry struct {
	RunID  string   `json:"run_id"`
	Name   string   `json:"name"`
	Status string   `json:"status"`
	Files  []string `json:"files,omitempty"`
	Error  string   `json:"error,omitempty"`
}

type manifest struct {
	Format            string          `json:"format"`
	ExportedAt        time.Time       `json:"exported_at"`
	OutputDirectory   string          `json:"output_directory,omitempty"`
	TotalRuns         int             `json:"total_runs"`
	SuccessfulExports int             `json:"successful_exports"`
	FailedExports     int             `json:"failed_exports"`
	Runs              []manifestEntry `json:"runs"`
}

// WriteBulkExportManifest writes a JSON summary of result to path.
func WriteBulkExportManifest(result *BulkExportResult, format, path string) error {
	m := manifest{
		Format:            format,
		ExportedAt:        time.Now().UTC(),
		OutputDirectory:   result.OutputDirectory,
		TotalRuns:         result.TotalRuns,
		SuccessfulExports: result.SuccessfulExports,
		FailedExports:     result.FailedExports,
		Runs:              make([]manifestEntry, 0, len(result.Results)),
	}

	for _, r := range result.Results {
		entry := manifestEntry{RunID: r.RunID, Name: r.Name, Status: "success", Files: r.Files}
		if !r.Success {
			entry.Status = "failed"
		}
		if r.Error != nil {
			entry.Error = r.Error.Error()
		}
		m.Runs = append(m.Runs, entry)
	}

	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
