// package formatter writes recall runs to CSV, Markdown, plain text and JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/discover/internal/models"
	"github.com/desertthunder/discover/internal/shared"
)

// Formats lists the supported export formats.
var Formats = []string{"json", "csv", "markdown", "txt"}

// ValidFormat reports whether f is one of [Formats].
func ValidFormat(f string) bool {
	for _, v := range Formats {
		if f == v {
			return true
		}
	}
	return false
}

func duration(ms int) string {
	return shared.FormatDuration(time.Duration(ms) * time.Millisecond)
}

// ExportToCSV converts a run's tracks to CSV with columns: Position, ID, Title, Artists, Album, Duration, URI
func ExportToCSV(export *models.RunExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "ID", "Title", "Artists", "Album", "Duration", "URI"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range export.Tracks {
		record := []string{
			strconv.Itoa(track.Position + 1),
			track.SpotifyID,
			track.Title,
			track.Artists,
			track.Album,
			duration(track.DurationMS),
			track.URI,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToMarkdown converts a run to Markdown with an optional cover image
func ExportToMarkdown(export *models.RunExport, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Recall: %s\n\n", export.Name())

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}
	if export.Message != "" {
		fmt.Fprintf(&buf, "**Summary**: %s\n\n", export.Message)
	}
	if !export.CreatedAt.IsZero() {
		fmt.Fprintf(&buf, "**Date**: %s\n", export.CreatedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(&buf, "**Artists**: %d\n", len(export.Artists))
	fmt.Fprintf(&buf, "**Candidates**: %d\n", export.CandidateCount)
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(export.Tracks))

	if len(export.Tracks) > 0 {
		buf.WriteString("## Tracks\n\n")
		for i, track := range export.Tracks {
			albumPart := ""
			if track.Album != "" {
				albumPart = fmt.Sprintf(" (%s)", track.Album)
			}
			fmt.Fprintf(&buf, "%d. %s - %s%s [%s]\n", i+1, track.Artists, track.Title, albumPart, duration(track.DurationMS))
		}
		buf.WriteString("\n")
	}

	if len(export.Artists) > 0 {
		buf.WriteString("## Artists\n\n")
		for _, a := range export.Artists {
			fmt.Fprintf(&buf, "- %s\n", a.Name)
		}
	}
	return buf.Bytes(), nil
}

// ExportToText converts a run to plain text
func ExportToText(export *models.RunExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Recall: %s\n", export.Name())
	if export.Message != "" {
		fmt.Fprintf(&buf, "Summary: %s\n", export.Message)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(export.Tracks))

	for i, track := range export.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, track.Artists, track.Title)
	}
	return buf.Bytes(), nil
}

// ExportToJSON renders the whole run, indented.
func ExportToJSON(export *models.RunExport) ([]byte, error) {
	return shared.MarshalJSON(export, true)
}

// Render returns export in format f.
func Render(export *models.RunExport, f string) ([]byte, error) {
	switch f {
	case "csv":
		return ExportToCSV(export)
	case "markdown":
		return ExportToMarkdown(export, "")
	case "txt":
		return ExportToText(export)
	case "json", "":
		return ExportToJSON(export)
	}
	return nil, fmt.Errorf("%w: format %q", shared.ErrInvalidFlag, f)
}

// Write renders export in format f to w.
func Write(w io.Writer, export *models.RunExport, f string) error {
	data, err := Render(export, f)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{Timeout: 30 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return imageData, nil
}

// ToMetadataJSON generates a JSON representation of run metadata (without tracks)
func ToMetadataJSON(export *models.RunExport) ([]byte, error) {
	meta := *export
	meta.Tracks = nil
	return shared.MarshalJSON(struct {
		models.RunExport
		Tracks     []models.RunTrack `json:"tracks,omitempty"`
		TrackCount int               `json:"track_count"`
	}{RunExport: meta, TrackCount: len(export.Tracks)}, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport exports a run to CSV with an accompanying metadata JSON file.
//
// Defaults to the run's file stem as the base filename & creates {base}_tracks.csv and {base}_metadata.json
func WriteCSVExport(export *models.RunExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = export.FileStem()
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{TracksFile: tracksFile, MetadataFile: metadataFile}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport exports a run to Markdown in a dedicated directory.
//
// Directory name defaults to the run's file stem.
// The imageURL parameter is optional - if provided, attempts to download the cover image.
// Creates a directory structure: {dir}/README.md and optionally {dir}/cover.jpg
func WriteMarkdownExport(export *models.RunExport, outputDir string, imageURL string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = export.FileStem()
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: outputDir, Files: []string{}}

	var coverImageFilename string
	if imageURL != "" {
		imageData, err := DownloadImage(imageURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to download cover image: %v\n", err)
		} else {
			coverImageFilename = "cover.jpg"
			coverImagePath := filepath.Join(outputDir, coverImageFilename)
			if err := os.WriteFile(coverImagePath, imageData, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to save cover image: %v\n", err)
				coverImageFilename = ""
			} else {
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := ExportToMarkdown(export, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}
	result.Files = append(result.Files, mdFile)
	return result, nil
}

// WriteTextExport exports a run to plain text.
//
// Defaults to {stem}_tracks.txt as the filename.
func WriteTextExport(export *models.RunExport, path string) (string, error) {
	if path == "" {
		path = export.FileStem() + "_tracks.txt"
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}
	return path, nil
}

// WriteJSONExport writes the whole run as indented JSON to path, defaulting to {stem}.json.
func WriteJSONExport(export *models.RunExport, path string) (string, error) {
	if path == "" {
		path = export.FileStem() + ".json"
	}

	data, err := ExportToJSON(export)
	if err != nil {
		return "", fmt.Errorf("JSON marshal failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("JSON write failed: %w", err)
	}
	return path, nil
}

// WriteExport writes export into dir in format f and returns the created files.
// Markdown exports download the run's cover when withCover is set.
func WriteExport(export *models.RunExport, f, dir string, withCover bool) ([]string, error) {
	base := filepath.Join(dir, export.FileStem())

	switch strings.ToLower(f) {
	case "csv":
		res, err := WriteCSVExport(export, base)
		if err != nil {
			return nil, err
		}
		return []string{res.TracksFile, res.MetadataFile}, nil
	case "markdown":
		var cover string
		if withCover {
			cover = export.CoverURL()
		}
		res, err := WriteMarkdownExport(export, base, cover)
		if err != nil {
			return nil, err
		}
		return res.Files, nil
	case "txt":
		path, err := WriteTextExport(export, base+"_tracks.txt")
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	case "json", "":
		path, err := WriteJSONExport(export, base+".json")
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	}
	return nil, fmt.Errorf("%w: format %q", shared.ErrInvalidFlag, f)
}
