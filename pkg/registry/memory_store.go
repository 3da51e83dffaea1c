package registry

import (
	"bytes"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory implementation of a Store, mainly used for
// testing and one-shot runs.
type MemoryStore struct {
	mut sync.RWMutex
	mem map[string][]byte
}

// NewMemoryStore creates a new MemoryStore object.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mem: make(map[string][]byte),
	}
}

// Get implements the Store interface.
func (s *MemoryStore) Get(key []byte) ([]byte, error) {
	s.mut.RLock()
	defer s.mut.RUnlock()
	if val, ok := s.mem[string(key)]; ok {
		return bytes.Clone(val), nil
	}
	return nil, ErrKeyNotFound
}

// Put implements the Store interface. Never returns an error.
func (s *MemoryStore) Put(key, value []byte) error {
	s.mut.Lock()
	s.mem[string(key)] = bytes.Clone(value)
	s.mut.Unlock()
	return nil
}

// Delete implements the Store interface. Never returns an error.
func (s *MemoryStore) Delete(key []byte) error {
	s.mut.Lock()
	delete(s.mem, string(key))
	s.mut.Unlock()
	return nil
}

// Seek implements the Store interface. f is called without the store lock
// held.
func (s *MemoryStore) Seek(prefix []byte, f func(k, v []byte) bool) error {
	type kv struct {
		k string
		v []byte
	}
	s.mut.RLock()
	var found []kv
	for k, v := range s.mem {
		if strings.HasPrefix(k, string(prefix)) {
			found = append(found, kv{k, v})
		}
	}
	s.mut.RUnlock()
	sort.Slice(found, func(i, j int) bool { return found[i].k < found[j].k })
	for _, p := range found {
		if !f([]byte(p.k), p.v) {
			break
		}
	}
	return nil
}

// Close implements the Store interface. Never returns an error.
func (s *MemoryStore) Close() error {
	s.mut.Lock()
	s.mem = make(map[string][]byte)
	s.mut.Unlock()
	return nil
}
