// internal/accept/seen.go

// Package accept decides which listing entries get an accept submission
// and issues them, one at a time, under a hard per-tick bound.
package accept

// SeenSet records every entry key evaluated during this process
// lifetime. Membership means "already evaluated this run", not
// "successfully accepted". Keys are never removed.
//
// The set lives for one watcher session and is passed explicitly so the
// engine stays testable without a live page.
type SeenSet struct {
	keys map[string]struct{}
}

func NewSeenSet() *SeenSet {
	return &SeenSet{keys: make(map[string]struct{})}
}

func (s *SeenSet) Has(key string) bool {
	_, ok := s.keys[key]
	return ok
}

func (s *SeenSet) Add(key string) {
	if key == "" {
		return
	}
	s.keys[key] = struct{}{}
}

func (s *SeenSet) Len() int {
	return len(s.keys)
}
