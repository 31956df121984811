package models

import (
	"encoding/json"
	"slices"
	"testing"
)

func TestAlbumMap(t *testing.T) {
	t.Run("caps albums and skips empty lists", func(t *testing.T) {
		m := NewAlbumMap()
		m.Set("a1", []string{"x", "y", "z"})
		m.Set("a2", nil)
		m.Set("a3", []string{"w"})

		if m.Len() != 2 {
			t.Fatalf("expected 2 artists, got %d", m.Len())
		}
		if _, ok := m.Get("a2"); ok {
			t.Error("artist with no albums should be absent")
		}
		if got, _ := m.Get("a1"); !slices.Equal(got, []string{"x", "y"}) {
			t.Errorf("expected first two albums, got %v", got)
		}
		if got := m.AlbumIDs(); !slices.Equal(got, []string{"x", "y", "w"}) {
			t.Errorf("unexpected flattened albums %v", got)
		}
	})

	t.Run("preserves insertion order on replace", func(t *testing.T) {
		m := NewAlbumMap()
		m.Set("b", []string{"1"})
		m.Set("a", []string{"2"})
		m.Set("b", []string{"3"})

		if got := m.ArtistIDs(); !slices.Equal(got, []string{"b", "a"}) {
			t.Errorf("unexpected order %v", got)
		}
		if got, _ := m.Get("b"); !slices.Equal(got, []string{"3"}) {
			t.Errorf("expected replaced albums, got %v", got)
		}
	})

	t.Run("JSON keeps order", func(t *testing.T) {
		m := NewAlbumMap()
		m.Set("z", []string{"1"})
		m.Set("a", []string{"2", "3"})

		data, err := json.Marshal(m)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}

		var decoded AlbumMap
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got := decoded.ArtistIDs(); !slices.Equal(got, []string{"z", "a"}) {
			t.Errorf("unexpected order after decode %v", got)
		}
	})
}

func TestRecallRunValidate(t *testing.T) {
	tc := []struct {
		name    string
		run     func() *RecallRun
		wantErr bool
	}{
		{
			name: "valid",
			run: func() *RecallRun {
				r := NewRecallRun(RunFill, "ok")
				r.SetID("id")
				return r
			},
		},
		{
			name:    "missing id",
			run:     func() *RecallRun { return NewRecallRun(RunTracks, "") },
			wantErr: true,
		},
		{
			name: "bad kind",
			run: func() *RecallRun {
				r := NewRecallRun(RunKind("other"), "")
				r.SetID("id")
				return r
			},
			wantErr: true,
		},
		{
			name: "negative counter",
			run: func() *RecallRun {
				r := NewRecallRun(RunArtists, "")
				r.SetID("id")
				r.SetTrackCount(-1)
				return r
			},
			wantErr: true,
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run().Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
