package lookup

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/djcsv/internal/services"
	"golang.org/x/time/rate"
)

// GenreCache stores artist genre lists between lookups.
//
// GetMany returns only the ids it holds; expired entries count as missing.
type GenreCache interface {
	GetMany(ctx context.Context, artistIDs []string) (map[string][]string, error)
	PutMany(ctx context.Context, genres map[string][]string) error
}

// GenreLookup resolves artist genres, asking the remote side only for artists not in the cache.
type GenreLookup struct {
	batcher *Batcher[[]string]
	cache   GenreCache
	logger  *log.Logger
}

// NewGenreLookup creates a [GenreLookup]. A nil cache disables caching.
func NewGenreLookup(p services.MetadataProvider, cache GenreCache, size int, limiter *rate.Limiter, logger *log.Logger) *GenreLookup {
	b := NewBatcher[[]string]("genres", size, p.ArtistGenres, noGenres, limiter, logger)
	return &GenreLookup{batcher: b, cache: cache, logger: b.logger}
}

// Lookup returns genres for every id in artistIDs. Artists that could not be resolved map to an
// empty list, which is cached like any other answer.
func (g *GenreLookup) Lookup(ctx context.Context, artistIDs []string) map[string][]string {
	unique := Dedupe(artistIDs)
	out := make(map[string][]string, len(unique))

	var cached map[string][]string
	if g.cache != nil && len(unique) > 0 {
		var err error
		if cached, err = g.cache.GetMany(ctx, unique); err != nil {
			g.logger.Warn("genre cache read failed", "error", err)
			cached = nil
		}
	}

	missing := make([]string, 0, len(unique))
	for _, id := range unique {
		if genres, ok := cached[id]; ok {
			out[id] = genres
		} else {
			missing = append(missing, id)
		}
	}

	g.logger.Debug("genre cache", "hits", len(unique)-len(missing), "misses", len(missing))
	if len(missing) == 0 {
		return out
	}

	fetched := g.batcher.Lookup(ctx, missing)
	if g.cache != nil {
		if err := g.cache.PutMany(ctx, fetched); err != nil {
			g.logger.Warn("genre cache write failed", "error", err)
		}
	}

	for id, genres := range fetched {
		out[id] = genres
	}
	return out
}

// Ordered resolves artistIDs and returns the genre lists aligned with the input.
func (g *GenreLookup) Ordered(ctx context.Context, artistIDs []string) [][]string {
	return align(artistIDs, g.Lookup(ctx, artistIDs), noGenres)
}

// Merge concatenates genre lists, dropping duplicates and keeping the first occurrence.
func Merge(lists ...[]string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, list := range lists {
		for _, genre := range list {
			if _, ok := seen[genre]; ok {
				continue
			}
			seen[genre] = struct{}{}
			out = append(out, genre)
		}
	}
	return out
}
