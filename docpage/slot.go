package docpage

import "sync"

// Slot holds the memoized content tree of one page instance. The zero value
// is an empty slot ready for use.
//
// A slot moves from empty to cached once and stays cached until Reset.
type Slot struct {
	mu     sync.Mutex
	filled bool
	tree   *ContentTree
}

// Load returns the cached tree and whether the slot is filled.
func (s *Slot) Load() (*ContentTree, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree, s.filled
}

// Empty reports whether nothing has been cached yet.
func (s *Slot) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.filled
}

// GetOrCompute returns the cached tree, calling build to fill the slot when it
// is empty. computed is true only for the call that ran build.
func (s *Slot) GetOrCompute(build func() *ContentTree) (tree *ContentTree, computed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.filled {
		return s.tree, false
	}
	s.tree = build()
	s.filled = true
	return s.tree, true
}

// Reset discards the cached tree. The next render starts a fresh lifetime.
func (s *Slot) Reset() {
	s.mu.Lock()
	s.tree = nil
	s.filled = false
	s.mu.Unlock()
}
