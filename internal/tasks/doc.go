// Package tasks runs the recall-and-resolve pipeline with real-time progress reporting.
//
// # Core Operations
//
// [RecallEngine] exposes the pipeline stages:
//
//  1. [RecallEngine.RecallArtists] : Collect artists from the listener's library
//     - Seven sources in a fixed order (recent plays, top tracks, top artists, followed,
//     playlists, saved albums, saved tracks)
//     - A failed source contributes nothing
//     - Duplicates removed by ID, first occurrence wins
//
//  2. [RecallEngine.RecallAllTracks] : Expand a few artists into a deduplicated track list
//     - Catalog lookups: artist IDs, then two albums each, then up to ten tracks per album
//     - Each candidate title resolved to its first Spotify search hit
//     - Shuffled before and after resolution
//
//  3. [RecallEngine.RandomFill] : Sample a fixed number of candidates from every recalled artist
//     - Exactly min(n, candidates) searches, in sampling order
//     - Returns track IDs and artist names alongside the tracks
//
//  4. [RecallEngine.FillPlaylist] and [RecallEngine.AddTracksByName] : Write results to a playlist
//
// # Progress Reporting
//
// All operations accept an optional channel of [ProgressUpdate]. Sends use select with default,
// so a slow or absent reader never blocks a run.
//
// # Randomness
//
// Each run draws its own generator from the engine's factory ([WithRandSource], [WithSeed]).
// Sampling happens after each concurrent catalog stage completes, so a fixed seed reproduces a run.
//
// # Run History
//
// The optional [RunRecorder] persists finished runs (repositories.RecallRunRepository).
// Recording failures are logged and never fail a run.
package tasks
