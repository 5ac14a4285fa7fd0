// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/djcsv/internal/models"
	"github.com/desertthunder/djcsv/internal/shared"
)

// Method names recorded by [MockService].
const (
	MethodAudioFeatures = "AudioFeatures"
	MethodTrackISRCs    = "TrackISRCs"
	MethodArtistGenres  = "ArtistGenres"
)

// MockService is an in-memory test double for services.Service.
//
// Bulk lookups answer from the maps and omit unknown ids, like the real API. Every bulk call is
// recorded so tests can assert on batching.
type MockService struct {
	Items     map[string][]models.PlaylistItem // playlist id → items
	Names     map[string]string                // playlist id → name
	Playlists []models.Playlist
	Features  map[string]models.AudioFeatures
	ISRCs     map[string]string
	Genres    map[string][]string

	ContentsErr  error
	MetadataErr  error
	PlaylistsErr error

	// Fail, when set, is consulted before every bulk call; a non-nil error fails that call.
	Fail func(method string, ids []string) error

	mu    sync.Mutex
	calls map[string][][]string
}

func (m *MockService) Name() string { return "mock" }

func (m *MockService) GetContents(ctx context.Context, ref models.PlaylistRef) ([]models.PlaylistItem, error) {
	if m.ContentsErr != nil {
		return nil, m.ContentsErr
	}
	items, ok := m.Items[ref.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, ref.ID)
	}
	return items, nil
}

func (m *MockService) GetMetadata(ctx context.Context, ref models.PlaylistRef) (*models.PlaylistMetadata, error) {
	if m.MetadataErr != nil {
		return nil, m.MetadataErr
	}
	return &models.PlaylistMetadata{Name: m.Names[ref.ID]}, nil
}

func (m *MockService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	if m.PlaylistsErr != nil {
		return nil, m.PlaylistsErr
	}
	return m.Playlists, nil
}

func (m *MockService) AudioFeatures(ctx context.Context, ids []string) (map[string]models.AudioFeatures, error) {
	if err := m.record(MethodAudioFeatures, ids); err != nil {
		return nil, err
	}
	return pick(m.Features, ids), nil
}

func (m *MockService) TrackISRCs(ctx context.Context, ids []string) (map[string]string, error) {
	if err := m.record(MethodTrackISRCs, ids); err != nil {
		return nil, err
	}
	return pick(m.ISRCs, ids), nil
}

func (m *MockService) ArtistGenres(ctx context.Context, ids []string) (map[string][]string, error) {
	if err := m.record(MethodArtistGenres, ids); err != nil {
		return nil, err
	}
	return pick(m.Genres, ids), nil
}

// Calls returns the id batches passed to method, in call order.
func (m *MockService) Calls(method string) [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.calls[method]...)
}

// Requested returns every id sent to method across all calls.
func (m *MockService) Requested(method string) []string {
	var ids []string
	for _, batch := range m.Calls(method) {
		ids = append(ids, batch...)
	}
	return ids
}

func (m *MockService) record(method string, ids []string) error {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string][][]string)
	}
	m.calls[method] = append(m.calls[method], append([]string(nil), ids...))
	m.mu.Unlock()

	if m.Fail != nil {
		return m.Fail(method, ids)
	}
	return nil
}

func pick[V any](src map[string]V, ids []string) map[string]V {
	out := make(map[string]V, len(ids))
	for _, id := range ids {
		if v, ok := src[id]; ok {
			out[id] = v
		}
	}
	return out
}

// Notice is a message captured by [MockNotifier].
type Notice struct {
	Message string
	IsError bool
}

// MockNotifier records notices.
type MockNotifier struct {
	mu      sync.Mutex
	Notices []Notice
}

func (n *MockNotifier) Notify(msg string, isError bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Notices = append(n.Notices, Notice{Message: msg, IsError: isError})
}

// Messages returns the recorded notice texts.
func (n *MockNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.Notices))
	for i, notice := range n.Notices {
		out[i] = notice.Message
	}
	return out
}

// MockSink keeps delivered files in memory.
type MockSink struct {
	mu    sync.Mutex
	Files map[string][]byte
	Err   error
}

func (s *MockSink) Deliver(content []byte, filename string) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Files == nil {
		s.Files = make(map[string][]byte)
	}
	s.Files[filename] = append([]byte(nil), content...)
	return filename, nil
}

// Count returns the number of delivered files.
func (s *MockSink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Files)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// Track builds a playlist item for a track with the given artist ids.
func Track(id, title string, artistIDs ...string) models.PlaylistItem {
	artists := make([]models.ArtistRef, len(artistIDs))
	for i, a := range artistIDs {
		artists[i] = models.ArtistRef{Name: "Artist " + a, URI: "spotify:artist:" + a}
	}
	return models.PlaylistItem{
		URI:     "spotify:track:" + id,
		Name:    title,
		Album:   "Album " + id,
		Artists: artists,
	}
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
