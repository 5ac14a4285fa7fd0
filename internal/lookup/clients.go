package lookup

import (
	"github.com/charmbracelet/log"
	"github.com/desertthunder/djcsv/internal/models"
	"github.com/desertthunder/djcsv/internal/services"
	"github.com/desertthunder/djcsv/internal/shared"
	"golang.org/x/time/rate"
)

// NewFeatureLookup resolves audio features by track id.
func NewFeatureLookup(p services.MetadataProvider, size int, limiter *rate.Limiter, logger *log.Logger) *Batcher[models.AudioFeatures] {
	return NewBatcher[models.AudioFeatures]("audio_features", size, p.AudioFeatures, models.UnknownFeatures, limiter, logger)
}

// NewISRCLookup resolves ISRC codes by track id. Unresolved ids map to [models.Unknown].
func NewISRCLookup(p services.MetadataProvider, size int, limiter *rate.Limiter, logger *log.Logger) *Batcher[string] {
	return NewBatcher[string]("isrc", size, p.TrackISRCs, unknownISRC, limiter, logger)
}

func unknownISRC() string {
	return models.Unknown
}

func noGenres() []string {
	return []string{}
}

// Lookups bundles the three lookups used by an export. All of them share one rate limiter.
type Lookups struct {
	Features *Batcher[models.AudioFeatures]
	ISRCs    *Batcher[string]
	Genres   *GenreLookup
}

// New builds the lookups for provider with the per-endpoint batch sizes in cfg.
//
// rps is the request pacing shared by all lookups; zero disables pacing.
func New(p services.MetadataProvider, cache GenreCache, cfg shared.BatchConfig, rps float64, logger *log.Logger) *Lookups {
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}

	return &Lookups{
		Features: NewFeatureLookup(p, cfg.AudioFeatures, limiter, logger),
		ISRCs:    NewISRCLookup(p, cfg.Tracks, limiter, logger),
		Genres:   NewGenreLookup(p, cache, cfg.Artists, limiter, logger),
	}
}
