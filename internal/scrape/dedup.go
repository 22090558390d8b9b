package scrape

import "sync"

// DedupSet tracks already-seen listing identifiers. It is caller-owned
// and mutated in place by Parse implementations, which is how duplicate
// suppression carries across pages and categories within one run.
type DedupSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewDedupSet(ids ...string) *DedupSet {
	s := &DedupSet{seen: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.seen[id] = struct{}{}
	}
	return s
}

func (s *DedupSet) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[id]
	return ok
}

// Add returns true if the id is new, false if it was already present.
func (s *DedupSet) Add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	return true
}

func (s *DedupSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
