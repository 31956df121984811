package models

import (
	"fmt"
	"time"
)

// RunKind identifies which pipeline produced a [RecallRun].
type RunKind string

const (
	RunArtists RunKind = "artists" // artist recall only
	RunTracks  RunKind = "tracks"  // full recall with dedup
	RunFill    RunKind = "fill"    // random fill
)

// Valid reports whether k is a known kind.
func (k RunKind) Valid() bool {
	switch k {
	case RunArtists, RunTracks, RunFill:
		return true
	}
	return false
}

// RecallRun is the persisted record of one pipeline run.
type RecallRun struct {
	id             string
	sequence       int
	kind           RunKind
	message        string
	artistCount    int
	candidateCount int
	trackCount     int
	playlistID     string
	createdAt      time.Time
	updatedAt      time.Time
	deletedAt      *time.Time
}

// NewRecallRun creates a run of the given kind timestamped now. The ID is assigned on Create.
func NewRecallRun(kind RunKind, message string) *RecallRun {
	now := time.Now().UTC()
	return &RecallRun{kind: kind, message: message, createdAt: now, updatedAt: now}
}

func (r *RecallRun) ID() string            { return r.id }
func (r *RecallRun) Sequence() int         { return r.sequence }
func (r *RecallRun) Kind() RunKind         { return r.kind }
func (r *RecallRun) Message() string       { return r.message }
func (r *RecallRun) ArtistCount() int      { return r.artistCount }
func (r *RecallRun) CandidateCount() int   { return r.candidateCount }
func (r *RecallRun) TrackCount() int       { return r.trackCount }
func (r *RecallRun) PlaylistID() string    { return r.playlistID }
func (r *RecallRun) CreatedAt() time.Time  { return r.createdAt }
func (r *RecallRun) UpdatedAt() time.Time  { return r.updatedAt }
func (r *RecallRun) DeletedAt() *time.Time { return r.deletedAt }

func (r *RecallRun) SetID(id string)           { r.id = id }
func (r *RecallRun) SetSequence(seq int)       { r.sequence = seq }
func (r *RecallRun) SetArtistCount(n int)      { r.artistCount = n }
func (r *RecallRun) SetCandidateCount(n int)   { r.candidateCount = n }
func (r *RecallRun) SetTrackCount(n int)       { r.trackCount = n }
func (r *RecallRun) SetPlaylistID(id string)   { r.playlistID = id }
func (r *RecallRun) SetUpdatedAt(t time.Time)  { r.updatedAt = t }
func (r *RecallRun) SetDeletedAt(t *time.Time) { r.deletedAt = t }
func (r *RecallRun) SetCreatedAt(t time.Time)  { r.createdAt = t }

// Validate checks required fields.
func (r *RecallRun) Validate() error {
	if r.id == "" {
		return fmt.Errorf("run id is required")
	}
	if !r.kind.Valid() {
		return fmt.Errorf("invalid run kind %q", r.kind)
	}
	if r.artistCount < 0 || r.candidateCount < 0 || r.trackCount < 0 {
		return fmt.Errorf("run counters must not be negative")
	}
	return nil
}

// RunTrack is a resolved Spotify track stored with a run.
type RunTrack struct {
	Position   int    `json:"position"`
	SpotifyID  string `json:"spotify_id"`
	Title      string `json:"title"`
	Artists    string `json:"artists"`
	Album      string `json:"album"`
	URI        string `json:"uri"`
	DurationMS int    `json:"duration_ms"`
	ImageURL   string `json:"image_url,omitempty"` // album cover
}

// RunArtist is a recalled artist stored with a run.
type RunArtist struct {
	Position int `json:"position"`
	Artist
}

// RunExport is a run with its artists and tracks, in the shape written by exporters.
type RunExport struct {
	ID             string     `json:"id"`
	Sequence       int        `json:"sequence"`
	Kind           RunKind    `json:"kind"`
	Message        string     `json:"message"`
	CandidateCount int        `json:"candidate_count"`
	PlaylistID     string     `json:"playlist_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	Artists        []Artist   `json:"artists"`
	Tracks         []RunTrack `json:"tracks"`
}

// NewRunExport flattens run with its artists and tracks.
func NewRunExport(run *RecallRun, artists []Artist, tracks []RunTrack) *RunExport {
	if artists == nil {
		artists = []Artist{}
	}
	if tracks == nil {
		tracks = []RunTrack{}
	}
	return &RunExport{
		ID:             run.ID(),
		Sequence:       run.Sequence(),
		Kind:           run.Kind(),
		Message:        run.Message(),
		CandidateCount: run.CandidateCount(),
		PlaylistID:     run.PlaylistID(),
		CreatedAt:      run.CreatedAt(),
		Artists:        artists,
		Tracks:         tracks,
	}
}

// Name returns a display name: "<kind> #<sequence>", or the kind alone for unsaved runs.
func (e *RunExport) Name() string {
	if e.Sequence == 0 {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s #%d", e.Kind, e.Sequence)
}

// FileStem returns a filesystem-safe base name for the run's export files.
func (e *RunExport) FileStem() string {
	if e.ID == "" {
		return fmt.Sprintf("%s_%d", e.Kind, e.CreatedAt.Unix())
	}
	return fmt.Sprintf("%s_%s", e.Kind, e.ID)
}

// CoverURL returns the first non-empty track cover.
func (e *RunExport) CoverURL() string {
	for _, t := range e.Tracks {
		if t.ImageURL != "" {
			return t.ImageURL
		}
	}
	return ""
}
