package formatter

import (
	"regexp"
	"strings"
)

// FilePrefix starts every export file name.
const FilePrefix = "dj-export-"

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9_\- ]`)

// SanitizeName strips every character outside [a-zA-Z0-9_- ] and trims surrounding spaces.
func SanitizeName(name string) string {
	return strings.TrimSpace(unsafeFilenameChars.ReplaceAllString(name, ""))
}

// ExportFilename returns "dj-export-{name}.csv" for the sanitized playlist name.
//
// The playlist id is used when the name is missing or sanitizes to nothing.
func ExportFilename(name, playlistID string) string {
	safe := SanitizeName(name)
	if safe == "" {
		safe = SanitizeName(playlistID)
	}
	return FilePrefix + safe + ".csv"
}
