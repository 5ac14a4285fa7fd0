// Package lookup resolves per-track and per-artist metadata in batches.
//
// A [Batcher] splits an id list into requests no larger than the endpoint limit, sends them one
// after another through a shared [rate.Limiter] and merges the answers. Its result always covers
// every requested id: omissions, failed batches and cancellation are backfilled with the lookup's
// unknown value, so callers can zip results positionally without checking for gaps.
//
// [GenreLookup] adds a [GenreCache] in front of the artist batcher so that artists already seen in
// this process are not requested again.
package lookup
