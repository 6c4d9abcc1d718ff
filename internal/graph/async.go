package graph

import "sync"

// AsyncSet accumulates the paths of modules that compilation discovered to
// require asynchronous loading. The engine adds paths while modules
// compile; the manifest pass drains the set exactly once when it starts,
// so the handoff is single-writer/single-reader with no overlap window.
type AsyncSet struct {
	mu    sync.Mutex
	paths map[string]bool
}

// NewAsyncSet returns an empty accumulator.
func NewAsyncSet() *AsyncSet {
	return &AsyncSet{paths: make(map[string]bool)}
}

// Add records a module path as requiring async loading.
func (s *AsyncSet) Add(path string) {
	s.mu.Lock()
	s.paths[path] = true
	s.mu.Unlock()
}

// Drain returns the accumulated paths and resets the set in one step.
func (s *AsyncSet) Drain() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	drained := s.paths
	s.paths = make(map[string]bool)
	return drained
}
