package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/discover/internal/models"
	"github.com/desertthunder/discover/internal/shared"
)

const runColumns = `id, sequence, kind, message, artist_count, candidate_count, track_count, playlist_id, created_at, updated_at, deleted_at`

// RecallRunRepository implements models.Repository[*models.RecallRun] for run history.
type RecallRunRepository struct {
	db *sql.DB
}

// NewRecallRunRepository creates a new RecallRunRepository with the given database connection
func NewRecallRunRepository(db *sql.DB) *RecallRunRepository {
	return &RecallRunRepository{db: db}
}

// Create inserts a run with a generated ID and sequence
func (r *RecallRunRepository) Create(ctx context.Context, run *models.RecallRun) error {
	return r.RecordRun(ctx, run, nil, nil)
}

// RecordRun inserts run together with its artists and tracks in one transaction.
func (r *RecallRunRepository) RecordRun(ctx context.Context, run *models.RecallRun, artists []models.Artist, tracks []models.RunTrack) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequence, err := nextSequence(ctx, tx, "recall_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	run.SetID(id)
	run.SetSequence(sequence)

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO recall_runs (id, sequence, kind, message, artist_count, candidate_count, track_count, playlist_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		id,
		sequence,
		string(run.Kind()),
		run.Message(),
		run.ArtistCount(),
		run.CandidateCount(),
		run.TrackCount(),
		run.PlaylistID(),
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for i, a := range artists {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO run_artists (run_id, position, spotify_id, name) VALUES (?, ?, ?, ?)`,
			id, i, a.ID, a.Name,
		)
		if err != nil {
			return fmt.Errorf("failed to insert run artist: %w", err)
		}
	}

	for i, t := range tracks {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_tracks (run_id, position, spotify_id, title, artists, album, uri, duration_ms, image_url)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, i, t.SpotifyID, t.Title, t.Artists, t.Album, t.URI, t.DurationMS, t.ImageURL,
		)
		if err != nil {
			return fmt.Errorf("failed to insert run track: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID, excluding soft-deleted runs
func (r *RecallRunRepository) Get(ctx context.Context, id string) (*models.RecallRun, error) {
	query := `SELECT ` + runColumns + ` FROM recall_runs WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRowContext(ctx, query, id))
}

// GetBySequence retrieves a run by its sequence number
func (r *RecallRunRepository) GetBySequence(ctx context.Context, sequence int) (*models.RecallRun, error) {
	query := `SELECT ` + runColumns + ` FROM recall_runs WHERE sequence = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRowContext(ctx, query, sequence))
}

// Resolve looks a run up by ID, or by sequence when ref is "#N" or a bare number.
func (r *RecallRunRepository) Resolve(ctx context.Context, ref string) (*models.RecallRun, error) {
	if n, err := strconv.Atoi(strings.TrimPrefix(ref, "#")); err == nil {
		return r.GetBySequence(ctx, n)
	}
	return r.Get(ctx, ref)
}

// SetPlaylist links a run to the playlist its tracks were saved to.
func (r *RecallRunRepository) SetPlaylist(ctx context.Context, id, playlistID string) error {
	return r.affectOne(ctx, id, `UPDATE recall_runs SET playlist_id = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		playlistID, time.Now().UTC(), id)
}

// Delete soft-deletes a run by ID
func (r *RecallRunRepository) Delete(ctx context.Context, id string) error {
	return r.affectOne(ctx, id, `UPDATE recall_runs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		time.Now().UTC(), id)
}

// Purge permanently removes soft-deleted runs and their rows, returning how many runs were removed.
func (r *RecallRunRepository) Purge(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM recall_runs WHERE deleted_at IS NOT NULL`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge runs: %w", err)
	}
	return result.RowsAffected()
}

func (r *RecallRunRepository) affectOne(ctx context.Context, id, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}
	return nil
}

// List retrieves runs matching criteria, newest first, excluding soft-deleted runs.
//
// Supported criteria: "kind" (string or [models.RunKind]) and "limit" (int).
func (r *RecallRunRepository) List(ctx context.Context, criteria map[string]any) ([]*models.RecallRun, error) {
	query := `SELECT ` + runColumns + ` FROM recall_runs WHERE deleted_at IS NULL`
	args := []any{}

	switch kind := criteria["kind"].(type) {
	case models.RunKind:
		if kind != "" {
			query += " AND kind = ?"
			args = append(args, string(kind))
		}
	case string:
		if kind != "" {
			query += " AND kind = ?"
			args = append(args, kind)
		}
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []*models.RecallRun{}
	for rows.Next() {
		run, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

// Artists returns the artists recorded for a run, in recall order
func (r *RecallRunRepository) Artists(ctx context.Context, id string) ([]models.Artist, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT spotify_id, name FROM run_artists WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query run artists: %w", err)
	}
	defer rows.Close()

	artists := []models.Artist{}
	for rows.Next() {
		var a models.Artist
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, fmt.Errorf("failed to scan run artist: %w", err)
		}
		artists = append(artists, a)
	}
	return artists, rows.Err()
}

// Tracks returns the tracks recorded for a run, in result order
func (r *RecallRunRepository) Tracks(ctx context.Context, id string) ([]models.RunTrack, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT position, spotify_id, title, artists, album, uri, duration_ms, image_url
		FROM run_tracks WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query run tracks: %w", err)
	}
	defer rows.Close()

	tracks := []models.RunTrack{}
	for rows.Next() {
		var t models.RunTrack
		if err := rows.Scan(&t.Position, &t.SpotifyID, &t.Title, &t.Artists, &t.Album, &t.URI, &t.DurationMS, &t.ImageURL); err != nil {
			return nil, fmt.Errorf("failed to scan run track: %w", err)
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// Export loads a run by ID or sequence with its artists and tracks.
func (r *RecallRunRepository) Export(ctx context.Context, ref string) (*models.RunExport, error) {
	run, err := r.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	artists, err := r.Artists(ctx, run.ID())
	if err != nil {
		return nil, err
	}
	tracks, err := r.Tracks(ctx, run.ID())
	if err != nil {
		return nil, err
	}
	return models.NewRunExport(run, artists, tracks), nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scan reads one row of [runColumns] into a [models.RecallRun]
func (r *RecallRunRepository) scan(row scanner) (*models.RecallRun, error) {
	var (
		id             string
		sequence       int
		kind           string
		message        string
		artistCount    int
		candidateCount int
		trackCount     int
		playlistID     string
		createdAt      time.Time
		updatedAt      time.Time
		deletedAt      sql.NullTime
	)

	err := row.Scan(&id, &sequence, &kind, &message, &artistCount, &candidateCount, &trackCount, &playlistID, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run := models.NewRecallRun(models.RunKind(kind), message)
	run.SetID(id)
	run.SetSequence(sequence)
	run.SetArtistCount(artistCount)
	run.SetCandidateCount(candidateCount)
	run.SetTrackCount(trackCount)
	run.SetPlaylistID(playlistID)
	run.SetCreatedAt(createdAt)
	run.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		run.SetDeletedAt(&deletedAt.Time)
	}
	return run, nil
}

var _ models.Repository[*models.RecallRun] = (*RecallRunRepository)(nil)
