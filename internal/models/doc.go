// Package models defines the domain entities for the discover recall pipeline.
//
// The package contains two categories of types:
//
// 1. Pipeline values: transient data passed between recall stages
//   - [Artist] : Spotify artist identity gathered from the listener's account
//   - [AlbumMap] : ordered mapping of catalog artist IDs to at most two catalog album IDs
//   - [CandidateTrack] : a catalog track whose title is searched on Spotify
//
// 2. Persistent entities: database-backed history of recall runs
//   - [RecallRun] : one recall, fill, or artist run with its counters
//   - [RunTrack] : a resolved track belonging to a run, in result order
//   - [RunArtist] : a recalled artist belonging to a run, in recall order
//
// Persistent entities implement [Model]; the [Repository] interface defines the CRUD operations over them.
package models
