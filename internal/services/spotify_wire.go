package services

// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
//
// Only the fields the exporter reads are decoded.

type spotifyArtistRef struct {
	Name string `json:"name"`
	URI  string `json:"uri"`
}

type spotifyAlbumRef struct {
	Name string `json:"name"`
}

type spotifyItemTrack struct {
	URI     string             `json:"uri"`
	Name    string             `json:"name"`
	Album   spotifyAlbumRef    `json:"album"`
	Artists []spotifyArtistRef `json:"artists"`
}

// spotifyPlaylistItem is one entry of /playlists/{id}/tracks. Track is null for removed content.
type spotifyPlaylistItem struct {
	Track *spotifyItemTrack `json:"track"`
}

type spotifyPlaylistItems struct {
	Items []spotifyPlaylistItem `json:"items"`
	Next  *string               `json:"next"`
	Total int                   `json:"total"`
}

type spotifyPlaylistName struct {
	Name string `json:"name"`
}

type spotifyOwner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type spotifySimplePlaylist struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Owner       spotifyOwner `json:"owner"`
	Public      bool         `json:"public"`
	Tracks      struct {
		Total int `json:"total"`
	} `json:"tracks"`
}

type spotifyPlaylistPage struct {
	Items []spotifySimplePlaylist `json:"items"`
	Next  *string                 `json:"next"`
}

// spotifyAudioFeatures mirrors an /audio-features entry. Key is -1 when no key was detected.
type spotifyAudioFeatures struct {
	ID     string   `json:"id"`
	Tempo  *float64 `json:"tempo"`
	Key    *int     `json:"key"`
	Mode   *int     `json:"mode"`
	Energy *float64 `json:"energy"`
}

type spotifyAudioFeaturesResponse struct {
	AudioFeatures []*spotifyAudioFeatures `json:"audio_features"`
}

type spotifyTrackISRC struct {
	ID          string `json:"id"`
	ExternalIDs struct {
		ISRC string `json:"isrc"`
	} `json:"external_ids"`
}

type spotifyTracksResponse struct {
	Tracks []*spotifyTrackISRC `json:"tracks"`
}

type spotifyArtistGenres struct {
	ID     string   `json:"id"`
	Genres []string `json:"genres"`
}

type spotifyArtistsResponse struct {
	Artists []*spotifyArtistGenres `json:"artists"`
}
