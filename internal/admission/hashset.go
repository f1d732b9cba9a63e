package admission

import "sync"

// HashSet tracks content hashes of accepted images. Add is atomic so
// two workers racing on the same hash admit exactly one image.
type HashSet struct {
	mu     sync.RWMutex
	hashes map[string]struct{}
}

func NewHashSet() *HashSet {
	return &HashSet{hashes: make(map[string]struct{})}
}

// Contains reports whether the hash has already been recorded.
func (s *HashSet) Contains(hash string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.hashes[hash]
	return ok
}

// Add records a hash and reports whether it was newly added.
// Returns false if the hash was already present.
func (s *HashSet) Add(hash string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hashes[hash]; ok {
		return false
	}
	s.hashes[hash] = struct{}{}
	return true
}

// Remove forgets a hash, used to roll back an acceptance when a later
// pipeline stage fails and the image should be retryable.
func (s *HashSet) Remove(hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hashes, hash)
}

func (s *HashSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.hashes)
}

// Seed loads previously accepted hashes, typically read from the
// database at startup so deduplication carries across batches.
func (s *HashSet) Seed(hashes []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range hashes {
		s.hashes[h] = struct{}{}
	}
}
