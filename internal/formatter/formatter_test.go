package formatter

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/discover/internal/models"
	"github.com/desertthunder/discover/internal/shared"
	th "github.com/desertthunder/discover/internal/testing"
)

func sampleExport() *models.RunExport {
	return &models.RunExport{
		ID:             "run123",
		Sequence:       4,
		Kind:           models.RunTracks,
		Message:        "Successfully recalled 2 tracks from 2 artists",
		CandidateCount: 9,
		CreatedAt:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Artists:        []models.Artist{{ID: "a1", Name: "Artist One"}, {ID: "a2", Name: "Artist Two"}},
		Tracks: []models.RunTrack{
			{Position: 0, SpotifyID: "track1", Title: "Song One", Artists: "Artist One", Album: "Album One", URI: "spotify:track:track1", DurationMS: 180000},
			{Position: 1, SpotifyID: "track2", Title: "Song Two", Artists: "Artist Two, Guest", Album: "Album Two", URI: "spotify:track:track2", DurationMS: 3723000},
		},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleExport())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Position,ID,Title,Artists,Album,Duration,URI") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "1,track1,Song One,Artist One,Album One,3:00,spotify:track:track1") {
			t.Errorf("CSV missing track1 row, got: %s", output)
		}
		if !strings.Contains(output, `"Artist Two, Guest"`) {
			t.Errorf("CSV should quote artist lists, got: %s", output)
		}
		if !strings.Contains(output, "1:02:03") {
			t.Errorf("CSV should render long durations with hours, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(sampleExport(), "cover.jpg")
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"# Recall: tracks #4",
			"![Cover](cover.jpg)",
			"**Summary**: Successfully recalled",
			"**Candidates**: 9",
			"**Tracks**: 2",
			"1. Artist One - Song One (Album One) [3:00]",
			"## Artists",
			"- Artist Two",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q", want)
			}
		}
	})

	t.Run("ExportToMarkdown without cover or tracks", func(t *testing.T) {
		export := &models.RunExport{Kind: models.RunArtists, Artists: []models.Artist{{ID: "a1", Name: "Solo"}}}
		data, _ := ExportToMarkdown(export, "")
		output := string(data)

		if strings.Contains(output, "![Cover]") || strings.Contains(output, "## Tracks") {
			t.Errorf("unexpected sections in %s", output)
		}
		if !strings.Contains(output, "# Recall: artists\n") {
			t.Errorf("unsaved runs should be titled by kind, got %s", output)
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(sampleExport())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Recall: tracks #4") || !strings.Contains(output, "Tracks: 2") {
			t.Errorf("text missing header, got: %s", output)
		}
		if !strings.Contains(output, "2. Artist Two, Guest - Song Two") {
			t.Errorf("text missing track line, got: %s", output)
		}
	})

	t.Run("ToMetadataJSON", func(t *testing.T) {
		data, err := ToMetadataJSON(sampleExport())
		if err != nil {
			t.Fatalf("ToMetadataJSON failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, `"id": "run123"`) || !strings.Contains(output, `"track_count": 2`) {
			t.Errorf("metadata missing fields: %s", output)
		}
		if strings.Contains(output, "Song One") {
			t.Error("metadata should not include tracks")
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(sampleExport())
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{`"run123"`, `"track1"`, `"Song One"`, `"spotify_id"`} {
			if !strings.Contains(output, want) {
				t.Errorf("JSON missing %s", want)
			}
		}
	})
}

func TestRender(t *testing.T) {
	tests := []struct {
		format  string
		want    string
		wantErr bool
	}{
		{"json", `"kind": "tracks"`, false},
		{"", `"kind": "tracks"`, false},
		{"csv", "Position,ID", false},
		{"markdown", "# Recall", false},
		{"txt", "Recall: tracks", false},
		{"yaml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			err := Write(&buf, sampleExport(), tt.format)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidFlag) {
					t.Errorf("expected ErrInvalidFlag, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output missing %q", tt.want)
			}
		})
	}

	t.Run("write failure", func(t *testing.T) {
		if err := Write(&th.FWriter{}, sampleExport(), "txt"); err == nil {
			t.Error("expected writer error")
		}
	})
}

func TestDownloadImage(t *testing.T) {
	t.Run("EmptyURL", func(t *testing.T) {
		if _, err := DownloadImage(""); err == nil {
			t.Error("DownloadImage with empty URL should return error")
		}
	})

	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("jpeg-bytes"))
		}))
		defer server.Close()

		data, err := DownloadImage(server.URL)
		if err != nil || string(data) != "jpeg-bytes" {
			t.Errorf("DownloadImage() = %q, %v", data, err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		if _, err := DownloadImage(server.URL); err == nil {
			t.Error("expected error for 404")
		}
	})
}

func TestWriters(t *testing.T) {
	export := sampleExport()

	t.Run("WriteCSVExport", func(t *testing.T) {
		t.Run("WithDefaultPath", func(t *testing.T) {
			tempDir := t.TempDir()
			originalDir := th.MustGetwd(t)
			th.MustChdir(t, tempDir)
			defer th.MustChdir(t, originalDir)

			result, err := WriteCSVExport(export, "")
			if err != nil {
				t.Fatalf("WriteCSVExport failed: %v", err)
			}

			if result.TracksFile != "tracks_run123_tracks.csv" {
				t.Errorf("unexpected tracks file %q", result.TracksFile)
			}
			if result.MetadataFile != "tracks_run123_metadata.json" {
				t.Errorf("unexpected metadata file %q", result.MetadataFile)
			}
			th.AssertFileExists(t, result.TracksFile)
			th.AssertFileExists(t, result.MetadataFile)
		})

		t.Run("WithCustomPath", func(t *testing.T) {
			base := filepath.Join(t.TempDir(), "custom")
			result, err := WriteCSVExport(export, base)
			if err != nil {
				t.Fatalf("WriteCSVExport failed: %v", err)
			}
			if result.TracksFile != base+"_tracks.csv" {
				t.Errorf("unexpected tracks file %q", result.TracksFile)
			}
		})

		t.Run("UnwritableDirectory", func(t *testing.T) {
			if _, err := WriteCSVExport(export, filepath.Join(t.TempDir(), "missing", "x")); err == nil {
				t.Error("expected error for missing directory")
			}
		})
	})

	t.Run("WriteMarkdownExport", func(t *testing.T) {
		t.Run("WithoutCover", func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "md")
			result, err := WriteMarkdownExport(export, dir, "")
			if err != nil {
				t.Fatalf("WriteMarkdownExport failed: %v", err)
			}
			th.AssertDirExists(t, dir)
			if len(result.Files) != 1 || result.CoverImage != "" {
				t.Errorf("unexpected result %+v", result)
			}
			if content := th.MustReadFile(t, filepath.Join(dir, "README.md")); strings.Contains(content, "![Cover]") {
				t.Error("README should not reference a cover")
			}
		})

		t.Run("WithCover", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("img"))
			}))
			defer server.Close()

			dir := filepath.Join(t.TempDir(), "md")
			result, err := WriteMarkdownExport(export, dir, server.URL)
			if err != nil {
				t.Fatalf("WriteMarkdownExport failed: %v", err)
			}
			if len(result.Files) != 2 || result.CoverImage == "" {
				t.Errorf("unexpected result %+v", result)
			}
			th.AssertFileExists(t, filepath.Join(dir, "cover.jpg"))
			if content := th.MustReadFile(t, filepath.Join(dir, "README.md")); !strings.Contains(content, "![Cover](cover.jpg)") {
				t.Error("README should reference the cover")
			}
		})

		t.Run("CoverDownloadFails", func(t *testing.T) {
			server := httptest.NewServer(http.NotFoundHandler())
			defer server.Close()

			result, err := WriteMarkdownExport(export, filepath.Join(t.TempDir(), "md"), server.URL)
			if err != nil {
				t.Fatalf("cover failures should not fail the export: %v", err)
			}
			if len(result.Files) != 1 {
				t.Errorf("expected README only, got %v", result.Files)
			}
		})
	})

	t.Run("WriteTextExport", func(t *testing.T) {
		tempDir := t.TempDir()
		originalDir := th.MustGetwd(t)
		th.MustChdir(t, tempDir)
		defer th.MustChdir(t, originalDir)

		path, err := WriteTextExport(export, "")
		if err != nil {
			t.Fatalf("WriteTextExport failed: %v", err)
		}
		if path != "tracks_run123_tracks.txt" {
			t.Errorf("unexpected path %q", path)
		}
		th.AssertFileExists(t, path)
	})

	t.Run("WriteExport", func(t *testing.T) {
		tests := []struct {
			format string
			files  []string
		}{
			{"json", []string{"tracks_run123.json"}},
			{"csv", []string{"tracks_run123_tracks.csv", "tracks_run123_metadata.json"}},
			{"markdown", []string{filepath.Join("tracks_run123", "README.md")}},
			{"txt", []string{"tracks_run123_tracks.txt"}},
		}
		for _, tt := range tests {
			t.Run(tt.format, func(t *testing.T) {
				dir := t.TempDir()
				files, err := WriteExport(export, tt.format, dir, false)
				if err != nil {
					t.Fatalf("WriteExport() error = %v", err)
				}
				if len(files) != len(tt.files) {
					t.Fatalf("files = %v, want %v", files, tt.files)
				}
				for i, f := range files {
					if f != filepath.Join(dir, tt.files[i]) {
						t.Errorf("file %d = %s, want %s", i, f, tt.files[i])
					}
					th.AssertFileExists(t, f)
				}
			})
		}

		t.Run("unknown", func(t *testing.T) {
			if _, err := WriteExport(export, "pdf", t.TempDir(), false); !errors.Is(err, shared.ErrInvalidFlag) {
				t.Errorf("expected ErrInvalidFlag, got %v", err)
			}
		})
	})

	t.Run("WriteBulkExportManifest", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "manifest.json")
		result := &BulkExportResult{
			TotalRuns:         2,
			SuccessfulExports: 1,
			FailedExports:     1,
			Results: []ExportEntry{
				{RunID: "run1", Name: "tracks #1", Success: true, Files: []string{"run1.json"}},
				{RunID: "run2", Name: "Unknown (run2)", Error: errors.New("run not found")},
			},
		}

		if err := WriteBulkExportManifest(result, "json", path); err != nil {
			t.Fatalf("WriteBulkExportManifest failed: %v", err)
		}

		content := th.MustReadFile(t, path)
		for _, want := range []string{`"format": "json"`, `"total_runs": 2`, `"status": "success"`, `"status": "failed"`, `"run not found"`} {
			if !strings.Contains(content, want) {
				t.Errorf("manifest missing %s", want)
			}
		}
	})
}

func TestValidFormat(t *testing.T) {
	for _, f := range Formats {
		if !ValidFormat(f) {
			t.Errorf("%s should be valid", f)
		}
	}
	if ValidFormat("xml") {
		t.Error("xml should not be valid")
	}
}
