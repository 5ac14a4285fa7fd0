package formatter

import (
	"strconv"

	"github.com/desertthunder/djcsv/internal/models"
)

// Camelot wheel offsets: the wheel advances by fifths (7 semitones), with minor keys starting at
// 5A (C minor) and major keys at 8B (C major).
const (
	minorOffset = 4
	majorOffset = 7
)

// ToCamelot converts a pitch class (0 = C ... 11 = B) and mode (0 = minor, 1 = major) to Camelot
// notation such as "8A" or "3B". Negative inputs return [models.Unknown].
func ToCamelot(pitchClass, mode int) string {
	if pitchClass < 0 || mode < 0 {
		return models.Unknown
	}

	offset, letter := majorOffset, "B"
	if mode == 0 {
		offset, letter = minorOffset, "A"
	}

	n := ((7*pitchClass + offset) % 12) + 1
	return strconv.Itoa(n) + letter
}
