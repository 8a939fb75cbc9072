package repository

import (
	"bytes"
	"context"
	"strconv"
	"sync"
	"time"
)

type memEntry struct {
	value     []byte
	list      [][]byte
	isList    bool
	expiresAt time.Time
	hasTTL    bool
}

func (e memEntry) isExpired() bool {
	return e.hasTTL && time.Now().After(e.expiresAt)
}

type memoryStateStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
}

func NewMemoryStateStore() StateStore {
	return &memoryStateStore{
		entries: make(map[string]memEntry),
	}
}

// live returns the entry for key, dropping it first if its TTL elapsed.
// Callers must hold mu.
func (s *memoryStateStore) live(key string) (memEntry, bool) {
	entry, ok := s.entries[key]
	if !ok {
		return memEntry{}, false
	}
	if entry.isExpired() {
		delete(s.entries, key)
		return memEntry{}, false
	}
	return entry, true
}

func withTTL(e memEntry, ttl time.Duration) memEntry {
	if ttl > 0 {
		e.hasTTL = true
		e.expiresAt = time.Now().Add(ttl)
	}
	return e
}

func (s *memoryStateStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = withTTL(memEntry{value: append([]byte(nil), value...)}, ttl)
	return nil
}

func (s *memoryStateStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.live(key)
	if !ok || entry.isList {
		return nil, nil
	}
	return entry.value, nil
}

func (s *memoryStateStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *memoryStateStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.live(key)
	return ok, nil
}

func (s *memoryStateStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.live(key)
	if !ok {
		return nil
	}
	s.entries[key] = withTTL(entry, ttl)
	return nil
}

func (s *memoryStateStore) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(key); ok {
		return false, nil
	}
	s.entries[key] = withTTL(memEntry{value: append([]byte(nil), value...)}, ttl)
	return true, nil
}

func (s *memoryStateStore) CompareAndDelete(_ context.Context, key string, value []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.live(key)
	if !ok || entry.isList || !bytes.Equal(entry.value, value) {
		return false, nil
	}
	delete(s.entries, key)
	return true, nil
}

func (s *memoryStateStore) Incr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.live(key)
	var n int64
	if ok {
		n, _ = strconv.ParseInt(string(entry.value), 10, 64)
	}
	n++
	entry.value = []byte(strconv.FormatInt(n, 10))
	entry.isList = false
	s.entries[key] = entry
	return n, nil
}

func (s *memoryStateStore) ListPush(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, _ := s.live(key)
	entry.isList = true
	entry.list = append(entry.list, append([]byte(nil), value...))
	s.entries[key] = entry
	return nil
}

func (s *memoryStateStore) ListRange(_ context.Context, key string) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.live(key)
	if !ok || !entry.isList {
		return nil, nil
	}
	out := make([][]byte, len(entry.list))
	for i, v := range entry.list {
		out[i] = append([]byte(nil), v...)
	}
	return out, nil
}

func (s *memoryStateStore) ListSet(_ context.Context, key string, index int64, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.live(key)
	if !ok || !entry.isList || index < 0 || index >= int64(len(entry.list)) {
		return ErrIndexOutOfRange
	}
	entry.list[index] = append([]byte(nil), value...)
	s.entries[key] = entry
	return nil
}

func (s *memoryStateStore) ListRemoveAll(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.live(key)
	if !ok || !entry.isList {
		return nil
	}
	kept := entry.list[:0]
	for _, v := range entry.list {
		if !bytes.Equal(v, value) {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		delete(s.entries, key)
		return nil
	}
	entry.list = kept
	s.entries[key] = entry
	return nil
}
