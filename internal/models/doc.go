// Package models defines the data carried through a DJ CSV export.
//
// Input types describe what the playlist provider returns:
//   - [PlaylistRef] : a parsed playlist reference (URI, open.spotify.com URL or bare id)
//   - [PlaylistItem] : one playlist entry with its album and artist references
//   - [PlaylistMetadata] : the playlist display name
//
// Lookup values describe what the bulk metadata endpoints return, each with an unknown sentinel:
//   - [AudioFeatures] : tempo, pitch class, mode and energy ([UnknownFeatures])
//   - ISRC strings ([Unknown])
//   - genre lists (empty)
//
// [TrackRecord] is the joined row handed to the CSV encoder.
package models
