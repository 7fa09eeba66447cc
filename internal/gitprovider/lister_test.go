package gitprovider

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/joestump/refselect/internal/gitref"
)

// stubLister returns canned refs and counts calls.
type stubLister struct {
	name  string
	refs  []gitref.NamedReference
	err   error
	mu    sync.Mutex
	calls int
	last  RepoRef
}

func (s *stubLister) Name() string { return s.name }

func (s *stubLister) ListRefs(_ context.Context, repo RepoRef) ([]gitref.NamedReference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.last = repo
	if s.err != nil {
		return nil, s.err
	}
	return s.refs, nil
}

type memCacheKey struct{ lister, url string }

// memCache is an in-memory RefCache. Set getErr/putErr to simulate a
// broken store.
type memCache struct {
	mu      sync.Mutex
	entries map[memCacheKey][]gitref.NamedReference
	getErr  error
	putErr  error
	puts    int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[memCacheKey][]gitref.NamedReference)}
}

func (m *memCache) GetRefListing(lister, url string, _ time.Duration) ([]gitref.NamedReference, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	refs, ok := m.entries[memCacheKey{lister, url}]
	return refs, ok, nil
}

func (m *memCache) PutRefListing(lister, url string, refs []gitref.NamedReference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.putErr != nil {
		return m.putErr
	}
	m.entries[memCacheKey{lister, url}] = refs
	return nil
}

var errBoom = errors.New("boom")
