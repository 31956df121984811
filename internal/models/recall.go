package models

import (
	"encoding/json"
	"iter"
	"slices"
)

// MaxAlbumsPerArtist caps the albums kept for each catalog artist.
const MaxAlbumsPerArtist = 2

// MaxTracksPerAlbum caps the candidates drawn from a single album.
const MaxTracksPerAlbum = 10

// Artist is a Spotify artist. Identity is the ID; Name is only a lookup key for the catalog.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CandidateTrack is a track record from the secondary catalog.
//
// Only Title is consumed downstream. Credit lists are kept undecoded since their shape varies by record.
type CandidateTrack struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Performers  json.RawMessage `json:"performers,omitempty"`
	Composers   json.RawMessage `json:"composers,omitempty"`
	Duration    int             `json:"duration,omitempty"`
	Disc        int             `json:"disc,omitempty"`
	TrackNumber int             `json:"phyTrackNum,omitempty"`
	IsPick      bool            `json:"isPick,omitempty"`
}

// AlbumMap maps catalog artist IDs to their album IDs, preserving insertion order.
//
// Artists with no albums are never stored.
type AlbumMap struct {
	order  []string
	albums map[string][]string
}

// NewAlbumMap creates an empty [AlbumMap].
func NewAlbumMap() *AlbumMap {
	return &AlbumMap{albums: make(map[string][]string)}
}

// Set records albumIDs for artistID, truncated to [MaxAlbumsPerArtist]. An empty list is ignored.
// Setting an existing artist replaces its albums without changing its position.
func (m *AlbumMap) Set(artistID string, albumIDs []string) {
	if len(albumIDs) == 0 {
		return
	}
	if len(albumIDs) > MaxAlbumsPerArtist {
		albumIDs = albumIDs[:MaxAlbumsPerArtist]
	}
	if _, ok := m.albums[artistID]; !ok {
		m.order = append(m.order, artistID)
	}
	m.albums[artistID] = slices.Clone(albumIDs)
}

// Get returns the albums recorded for artistID.
func (m *AlbumMap) Get(artistID string) ([]string, bool) {
	ids, ok := m.albums[artistID]
	return ids, ok
}

// Len returns the number of artists with albums.
func (m *AlbumMap) Len() int {
	return len(m.order)
}

// ArtistIDs returns the artist keys in insertion order.
func (m *AlbumMap) ArtistIDs() []string {
	return slices.Clone(m.order)
}

// AlbumIDs flattens every album ID in artist order, then album order.
func (m *AlbumMap) AlbumIDs() []string {
	var out []string
	for _, id := range m.order {
		out = append(out, m.albums[id]...)
	}
	return out
}

// All iterates artist IDs and their albums in insertion order.
func (m *AlbumMap) All() iter.Seq2[string, []string] {
	return func(yield func(string, []string) bool) {
		for _, id := range m.order {
			if !yield(id, m.albums[id]) {
				return
			}
		}
	}
}

type albumEntry struct {
	ArtistID string   `json:"artist_id"`
	AlbumIDs []string `json:"album_ids"`
}

// MarshalJSON encodes the map as an ordered list of entries.
func (m *AlbumMap) MarshalJSON() ([]byte, error) {
	entries := make([]albumEntry, 0, len(m.order))
	for id, albums := range m.All() {
		entries = append(entries, albumEntry{ArtistID: id, AlbumIDs: albums})
	}
	return json.Marshal(entries)
}

// UnmarshalJSON decodes the ordered list written by MarshalJSON.
func (m *AlbumMap) UnmarshalJSON(data []byte) error {
	var entries []albumEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	*m = *NewAlbumMap()
	for _, e := range entries {
		m.Set(e.ArtistID, e.AlbumIDs)
	}
	return nil
}

// ArtistNames returns the names of artists in order.
func ArtistNames(artists []Artist) []string {
	names := make([]string, len(artists))
	for i, a := range artists {
		names[i] = a.Name
	}
	return names
}

// Titles returns the titles of tracks in order.
func Titles(tracks []CandidateTrack) []string {
	titles := make([]string, len(tracks))
	for i, t := range tracks {
		titles[i] = t.Title
	}
	return titles
}
