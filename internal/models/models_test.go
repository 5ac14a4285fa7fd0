package models

import (
	"reflect"
	"testing"
)

func TestParsePlaylistRef(t *testing.T) {
	tt := []struct {
		name   string
		input  string
		wantID string
		wantOK bool
	}{
		{name: "uri", input: "spotify:playlist:37i9dQZF1DXcBWIGoYBM5M", wantID: "37i9dQZF1DXcBWIGoYBM5M", wantOK: true},
		{name: "uri with spaces", input: "  spotify:playlist:abc123 ", wantID: "abc123", wantOK: true},
		{name: "web url", input: "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=xyz", wantID: "37i9dQZF1DXcBWIGoYBM5M", wantOK: true},
		{name: "localized web url", input: "https://open.spotify.com/intl-de/playlist/37i9dQZF1DXcBWIGoYBM5M", wantID: "37i9dQZF1DXcBWIGoYBM5M", wantOK: true},
		{name: "bare id", input: "37i9dQZF1DXcBWIGoYBM5M", wantID: "37i9dQZF1DXcBWIGoYBM5M", wantOK: true},
		{name: "track uri", input: "spotify:track:4uLU6hMCjMI75M1A2tKUQC", wantOK: false},
		{name: "album url", input: "https://open.spotify.com/album/4uLU6hMCjMI75M1A2tKUQC", wantOK: false},
		{name: "other host", input: "https://example.com/playlist/37i9dQZF1DXcBWIGoYBM5M", wantOK: false},
		{name: "empty uri id", input: "spotify:playlist:", wantOK: false},
		{name: "short bare id", input: "abc", wantOK: false},
		{name: "empty", input: "", wantOK: false},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			ref, ok := ParsePlaylistRef(tc.input)
			if ok != tc.wantOK {
				t.Fatalf("ParsePlaylistRef(%q) ok = %v, want %v", tc.input, ok, tc.wantOK)
			}
			if ok && ref.ID != tc.wantID {
				t.Errorf("ParsePlaylistRef(%q) id = %q, want %q", tc.input, ref.ID, tc.wantID)
			}
			if IsPlaylistRef(tc.input) != tc.wantOK {
				t.Errorf("IsPlaylistRef(%q) disagrees with ParsePlaylistRef", tc.input)
			}
		})
	}

	t.Run("URI round trip", func(t *testing.T) {
		ref := PlaylistRef{ID: "abc123"}
		if ref.URI() != "spotify:playlist:abc123" {
			t.Errorf("unexpected uri %s", ref.URI())
		}
		back, ok := ParsePlaylistRef(ref.URI())
		if !ok || back != ref {
			t.Errorf("round trip failed: %+v %v", back, ok)
		}
	})
}

func TestPlaylistItem(t *testing.T) {
	item := PlaylistItem{
		URI:   "spotify:track:t1",
		Name:  "Song",
		Album: "Album",
		Artists: []ArtistRef{
			{Name: "A", URI: "spotify:artist:a1"},
			{Name: "B", URI: ""},
			{Name: "C", URI: "spotify:artist:c1"},
		},
	}

	t.Run("IsTrack", func(t *testing.T) {
		cases := map[string]bool{
			"spotify:track:t1":    true,
			"spotify:track:":      false,
			"spotify:local:a:b:c": false,
			"spotify:episode:e1":  false,
			"":                    false,
		}
		for uri, want := range cases {
			if got := (PlaylistItem{URI: uri}).IsTrack(); got != want {
				t.Errorf("IsTrack(%q) = %v, want %v", uri, got, want)
			}
		}
	})

	t.Run("TrackID", func(t *testing.T) {
		if item.TrackID() != "t1" {
			t.Errorf("expected t1, got %s", item.TrackID())
		}
	})

	t.Run("ArtistNames", func(t *testing.T) {
		if got := item.ArtistNames(); got != "A, B, C" {
			t.Errorf("expected 'A, B, C', got %q", got)
		}
	})

	t.Run("ArtistIDs skips missing uris", func(t *testing.T) {
		if got := item.ArtistIDs(); !reflect.DeepEqual(got, []string{"a1", "c1"}) {
			t.Errorf("unexpected ids %v", got)
		}
	})
}

func TestUnknownFeatures(t *testing.T) {
	f := UnknownFeatures()
	if f.Tempo != nil || f.Energy != nil || f.Key != -1 || f.Mode != -1 {
		t.Errorf("unexpected sentinel %+v", f)
	}
}
