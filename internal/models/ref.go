package models

import (
	"net/url"
	"regexp"
	"strings"
)

var base62ID = regexp.MustCompile(`^[0-9A-Za-z]{22}$`)

// PlaylistRef identifies a Spotify playlist.
type PlaylistRef struct {
	ID string
}

// URI renders the reference as "spotify:playlist:{id}".
func (r PlaylistRef) URI() string {
	return playlistURIPrefix + r.ID
}

func (r PlaylistRef) String() string {
	return r.URI()
}

// ParsePlaylistRef recognises a playlist reference.
//
// Accepted forms are "spotify:playlist:{id}", "https://open.spotify.com/playlist/{id}" (query and
// locale prefixes such as "/intl-de/" allowed) and a bare 22 character base62 id. Any other input,
// including track and album references, is rejected.
func ParsePlaylistRef(s string) (PlaylistRef, bool) {
	s = strings.TrimSpace(s)

	if id, ok := strings.CutPrefix(s, playlistURIPrefix); ok {
		return refFromID(id)
	}

	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		u, err := url.Parse(s)
		if err != nil || u.Host != "open.spotify.com" {
			return PlaylistRef{}, false
		}

		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(segments) > 0 && strings.HasPrefix(segments[0], "intl-") {
			segments = segments[1:]
		}
		if len(segments) != 2 || segments[0] != "playlist" {
			return PlaylistRef{}, false
		}
		return refFromID(segments[1])
	}

	if base62ID.MatchString(s) {
		return PlaylistRef{ID: s}, true
	}

	return PlaylistRef{}, false
}

// IsPlaylistRef reports whether s is accepted by [ParsePlaylistRef].
func IsPlaylistRef(s string) bool {
	_, ok := ParsePlaylistRef(s)
	return ok
}

func refFromID(id string) (PlaylistRef, bool) {
	if id == "" || strings.ContainsAny(id, ":/?# ") {
		return PlaylistRef{}, false
	}
	return PlaylistRef{ID: id}, true
}
