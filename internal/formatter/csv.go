package formatter

import (
	"math"
	"strconv"
	"strings"

	"github.com/desertthunder/djcsv/internal/models"
)

// LineBreak separates CSV rows.
const LineBreak = "\r\n"

// GenreSeparator joins a track's genres into one field.
const GenreSeparator = "; "

// Header lists the exported columns in order.
var Header = []string{
	"Title",
	"Artist",
	"Album",
	"ISRC",
	"Spotify ID",
	"BPM",
	"Key (Camelot)",
	"Energy",
	"Genres",
}

// EncodeCSV renders records as CSV: a header row followed by one row per record, joined by CRLF.
//
// A field is quoted only when it contains a comma, a double quote or a line break, and empty
// values are written as [models.Unknown].
func EncodeCSV(records []models.TrackRecord) []byte {
	var b strings.Builder

	writeRow(&b, Header)
	for _, r := range records {
		b.WriteString(LineBreak)
		writeRow(&b, []string{
			r.Title,
			r.Artist,
			r.Album,
			r.ISRC,
			r.SpotifyID,
			formatNumber(r.Tempo),
			ToCamelot(r.Key, r.Mode),
			formatNumber(r.Energy),
			strings.Join(r.Genres, GenreSeparator),
		})
	}

	return []byte(b.String())
}

func writeRow(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(EscapeField(f))
	}
}

// EscapeField quotes f when it contains a comma, double quote, CR or LF, doubling inner quotes.
// An empty field becomes [models.Unknown].
func EscapeField(f string) string {
	if f == "" {
		return models.Unknown
	}
	if !strings.ContainsAny(f, ",\"\r\n") {
		return f
	}
	return `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
}

// formatNumber writes v in its shortest decimal form, or [models.Unknown] when nil or NaN.
func formatNumber(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return models.Unknown
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
