package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kode4food/lru"

	"github.com/kode4food/walkthrough/pkg/api"
)

type (
	// MemoryStore keeps sessions in a bounded in-process LRU cache. The
	// least recently used sessions are dropped once the cache is full
	MemoryStore struct {
		cache *lru.Cache[*memoryEntry]
		ttl   time.Duration
		mu    sync.Mutex
	}

	memoryEntry struct {
		session *api.Session
		expires time.Time
		mu      sync.Mutex
	}
)

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store holding at most size sessions. A ttl of
// zero disables expiry
func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: lru.NewCache[*memoryEntry](size),
		ttl:   ttl,
	}
}

// Create stores a new session
func (m *MemoryStore) Create(_ context.Context, s *api.Session) error {
	if s == nil {
		return ErrNoSession
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, err := m.cache.Get(string(s.ID), func() (*memoryEntry, error) {
		return &memoryEntry{}, nil
	})
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.live() {
		return fmt.Errorf("%w: %s", ErrExists, s.ID)
	}
	entry.session = cloneSession(s)
	entry.expires = m.expiry()
	return nil
}

// Get returns a copy of the stored session
func (m *MemoryStore) Get(
	_ context.Context, id api.SessionID,
) (*api.Session, error) {
	entry, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if !entry.live() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cloneSession(entry.session), nil
}

// Update applies fn to a copy of the session while holding the session's
// lock, storing the copy if fn succeeds
func (m *MemoryStore) Update(
	_ context.Context, id api.SessionID, fn UpdateFunc,
) (*api.Session, error) {
	entry, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if !entry.live() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	next := cloneSession(entry.session)
	if err := fn(next); err != nil {
		return nil, err
	}
	entry.session = next
	entry.expires = m.expiry()
	return cloneSession(next), nil
}

// Delete removes the session. The emptied cache slot is reused by a later
// Create of the same ID, or dropped once it becomes least recently used
func (m *MemoryStore) Delete(_ context.Context, id api.SessionID) error {
	entry, err := m.lookup(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if !entry.live() {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	entry.session = nil
	entry.expires = time.Time{}
	return nil
}

func (m *MemoryStore) lookup(id api.SessionID) (*memoryEntry, error) {
	entry, err := m.cache.Get(string(id), func() (*memoryEntry, error) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (m *MemoryStore) expiry() time.Time {
	if m.ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(m.ttl)
}

func (e *memoryEntry) live() bool {
	if e.session == nil {
		return false
	}
	return e.expires.IsZero() || time.Now().Before(e.expires)
}
