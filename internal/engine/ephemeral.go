package engine

import (
	"sync"
	"time"
)

// ephemeralStore holds content for dot-prefixed virtual paths. Entries
// live only in memory: they never reach the document or the backing
// file, and document reloads do not touch them. Content is opaque raw
// bytes; no format suffix interpretation applies.
type ephemeralStore struct {
	mu      sync.RWMutex
	entries map[string]*ephemeralEntry
}

type ephemeralEntry struct {
	data    []byte
	created time.Time
}

func newEphemeralStore() *ephemeralStore {
	return &ephemeralStore{entries: make(map[string]*ephemeralEntry)}
}

func (s *ephemeralStore) get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	return e.data, true
}

func (s *ephemeralStore) set(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		e.data = data
		return
	}
	s.entries[key] = &ephemeralEntry{data: data, created: time.Now()}
}

// truncate resizes an entry, creating it when absent. Growing pads
// with zero bytes.
func (s *ephemeralStore) truncate(key string, size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		e = &ephemeralEntry{created: time.Now()}
		s.entries[key] = e
	}
	switch {
	case int64(len(e.data)) > size:
		e.data = e.data[:size]
	case int64(len(e.data)) < size:
		grown := make([]byte, size)
		copy(grown, e.data)
		e.data = grown
	}
}

func (s *ephemeralStore) remove(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		return false
	}
	delete(s.entries, key)
	return true
}

func (s *ephemeralStore) rename(oldKey, newKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[oldKey]
	if !ok {
		return false
	}
	delete(s.entries, oldKey)
	s.entries[newKey] = e
	return true
}

// listUnder returns the names of entries whose parent directory is dir.
func (s *ephemeralStore) listUnder(dir string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var names []string
	for key := range s.entries {
		if parentDir(key) == dir {
			names = append(names, baseName(key))
		}
	}
	return names
}
