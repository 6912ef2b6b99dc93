// Package record persists finished recordings. The engine hands over
// opaque blobs; encoding, naming, and export live on the consumer side
// of this boundary.
package record

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// ID identifies one stored recording.
type ID string

// Entry describes a stored recording without its payload.
type Entry struct {
	ID        ID
	CreatedAt time.Time
	Size      int
}

// Store is the persistence boundary for recordings. Append takes
// ownership of blob; List reports entries newest first.
type Store interface {
	Append(blob []byte) (ID, error)
	List() ([]Entry, error)
	Get(id ID) ([]byte, error)
	Delete(id ID) error
}

// ErrNotFound reports a lookup for an ID the store does not hold.
var ErrNotFound = fmt.Errorf("record: not found")

// MemoryStore keeps recordings in process memory. It is safe for
// concurrent use and is the reference Store implementation for tests
// and the demo binary.
type MemoryStore struct {
	mu      sync.Mutex
	seq     uint64
	entries map[ID]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	createdAt time.Time
	seq       uint64
	blob      []byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[ID]memoryEntry),
		now:     time.Now,
	}
}

// Append stores blob and returns its new ID.
func (s *MemoryStore) Append(blob []byte) (ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	id := ID(fmt.Sprintf("rec-%06d", s.seq))
	s.entries[id] = memoryEntry{
		createdAt: s.now(),
		seq:       s.seq,
		blob:      blob,
	}
	return id, nil
}

// List returns all entries, newest first.
func (s *MemoryStore) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type keyed struct {
		entry Entry
		seq   uint64
	}
	all := make([]keyed, 0, len(s.entries))
	for id, e := range s.entries {
		all = append(all, keyed{
			entry: Entry{ID: id, CreatedAt: e.createdAt, Size: len(e.blob)},
			seq:   e.seq,
		})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq > all[j].seq })

	entries := make([]Entry, len(all))
	for i, k := range all {
		entries[i] = k.entry
	}
	return entries, nil
}

// Get returns the payload stored under id.
func (s *MemoryStore) Get(id ID) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.blob, nil
}

// Delete removes the recording stored under id.
func (s *MemoryStore) Delete(id ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.entries, id)
	return nil
}
