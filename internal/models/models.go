package models

import "strings"

// Unknown is rendered wherever a value could not be resolved.
const Unknown = "N/A"

const (
	trackURIPrefix    = "spotify:track:"
	playlistURIPrefix = "spotify:playlist:"
)

// Playlist is a playlist summary from the user's library.
type Playlist struct {
	ID          string
	Name        string
	Description string
	Owner       string
	TrackCount  int
	Public      bool
}

// Ref returns a [PlaylistRef] for p.
func (p Playlist) Ref() PlaylistRef {
	return PlaylistRef{ID: p.ID}
}

// PlaylistMetadata holds the playlist attributes needed for naming the export.
type PlaylistMetadata struct {
	Name string
}

// ArtistRef is an artist credited on a playlist item.
type ArtistRef struct {
	Name string
	URI  string
}

// ID returns the artist id from a "spotify:artist:{id}" URI, or "" when the URI has no id segment.
func (a ArtistRef) ID() string {
	return uriID(a.URI)
}

// PlaylistItem is a single playlist entry. Non-track entries (local files, episodes) are kept
// as returned and filtered by the caller with [PlaylistItem.IsTrack].
type PlaylistItem struct {
	URI     string
	Name    string
	Album   string
	Artists []ArtistRef
}

// IsTrack reports whether the item URI has the "spotify:track:{id}" shape.
func (i PlaylistItem) IsTrack() bool {
	return strings.HasPrefix(i.URI, trackURIPrefix) && len(i.URI) > len(trackURIPrefix)
}

// TrackID returns the track id segment of the item URI.
func (i PlaylistItem) TrackID() string {
	return uriID(i.URI)
}

// ArtistNames joins the display names of all credited artists.
func (i PlaylistItem) ArtistNames() string {
	names := make([]string, 0, len(i.Artists))
	for _, a := range i.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// ArtistIDs returns the ids of all credited artists that carry one.
func (i PlaylistItem) ArtistIDs() []string {
	ids := make([]string, 0, len(i.Artists))
	for _, a := range i.Artists {
		if id := a.ID(); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// AudioFeatures holds the subset of Spotify audio analysis used for DJ exports.
//
// Key is a pitch class in [0,11] and Mode is 0 (minor) or 1 (major); -1 marks either as unknown.
type AudioFeatures struct {
	Tempo  *float64
	Key    int
	Mode   int
	Energy *float64
}

// UnknownFeatures is the sentinel used when a track has no audio features.
func UnknownFeatures() AudioFeatures {
	return AudioFeatures{Key: -1, Mode: -1}
}

// TrackRecord is one exported row. Created once per playlist item and consumed by the encoder.
type TrackRecord struct {
	Title     string
	Artist    string
	Album     string
	ISRC      string
	SpotifyID string
	Tempo     *float64
	Key       int
	Mode      int
	Energy    *float64
	Genres    []string
}

// uriID returns the third colon-separated segment of a Spotify URI.
func uriID(uri string) string {
	parts := strings.SplitN(uri, ":", 3)
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}
