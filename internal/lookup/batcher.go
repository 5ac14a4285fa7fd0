package lookup

import (
	"context"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// FetchFunc resolves one batch of ids. It may omit ids it cannot resolve.
type FetchFunc[V any] func(ctx context.Context, ids []string) (map[string]V, error)

// Batcher splits id lists into fixed-size batches and resolves them with a [FetchFunc].
//
// Every id passed to [Batcher.Lookup] is present in the result. Ids the remote side omitted, ids of
// failed batches and ids never dispatched because ctx was cancelled all map to the unknown value.
type Batcher[V any] struct {
	name    string
	size    int
	fetch   FetchFunc[V]
	unknown func() V
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewBatcher creates a [Batcher]. A nil limiter dispatches batches without pacing and a nil logger
// uses the default logger.
func NewBatcher[V any](name string, size int, fetch FetchFunc[V], unknown func() V, limiter *rate.Limiter, logger *log.Logger) *Batcher[V] {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Batcher[V]{
		name:    name,
		size:    size,
		fetch:   fetch,
		unknown: unknown,
		limiter: limiter,
		logger:  logger.With("lookup", name),
	}
}

// Name returns the lookup name used in log entries.
func (b *Batcher[V]) Name() string {
	return b.name
}

// Size returns the maximum number of ids per request.
func (b *Batcher[V]) Size() int {
	return b.size
}

// Lookup resolves ids batch by batch. Failed batches are logged and skipped; they never fail the call.
func (b *Batcher[V]) Lookup(ctx context.Context, ids []string) map[string]V {
	unique := Dedupe(ids)
	out := make(map[string]V, len(unique))

	batches := Chunk(unique, b.size)
	for i, batch := range batches {
		if err := b.wait(ctx); err != nil {
			b.logger.Warn("lookup interrupted", "batch", i+1, "batches", len(batches), "error", err)
			break
		}

		res, err := b.fetch(ctx, batch)
		if err != nil {
			b.logger.Warn("batch failed", "batch", i+1, "size", len(batch), "error", err)
		} else {
			b.logger.Debug("batch resolved", "batch", i+1, "size", len(batch), "found", len(res))
		}

		for _, id := range batch {
			if v, ok := res[id]; ok {
				out[id] = v
			} else {
				out[id] = b.unknown()
			}
		}
	}

	for _, id := range unique {
		if _, ok := out[id]; !ok {
			out[id] = b.unknown()
		}
	}
	return out
}

// Ordered resolves ids and returns the values aligned with the input, duplicates included.
func (b *Batcher[V]) Ordered(ctx context.Context, ids []string) []V {
	return align(ids, b.Lookup(ctx, ids), b.unknown)
}

func (b *Batcher[V]) wait(ctx context.Context) error {
	if b.limiter == nil {
		return ctx.Err()
	}
	return b.limiter.Wait(ctx)
}

// Dedupe returns ids without duplicates or empty strings, keeping first-seen order.
func Dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Chunk splits ids into consecutive slices of at most size elements.
func Chunk(ids []string, size int) [][]string {
	if size < 1 {
		size = 1
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

func align[V any](ids []string, values map[string]V, unknown func() V) []V {
	out := make([]V, len(ids))
	for i, id := range ids {
		if v, ok := values[id]; ok {
			out[i] = v
		} else {
			out[i] = unknown()
		}
	}
	return out
}
