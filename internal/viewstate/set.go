package viewstate

import "encoding/json"

// keySet is an insertion-ordered string set.
type keySet struct {
	order []string
	index map[string]struct{}
}

func newKeySet(keys []string) *keySet {
	s := &keySet{index: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		if _, ok := s.index[k]; ok {
			continue
		}
		s.index[k] = struct{}{}
		s.order = append(s.order, k)
	}
	return s
}

func (s *keySet) has(key string) bool {
	_, ok := s.index[key]
	return ok
}

func (s *keySet) toggle(key string) bool {
	if s.has(key) {
		delete(s.index, key)
		for i, k := range s.order {
			if k == key {
				s.order = append(s.order[:i:i], s.order[i+1:]...)
				break
			}
		}
		return false
	}
	s.index[key] = struct{}{}
	s.order = append(s.order, key)
	return true
}

func (s *keySet) members() []string {
	return append([]string{}, s.order...)
}

func (s *keySet) serialize() string {
	keys := s.order
	if keys == nil {
		keys = []string{}
	}
	data, _ := json.Marshal(keys)
	return string(data)
}

func (s *keySet) snapshot() Snapshot {
	snap := make(Snapshot, len(s.index))
	for k := range s.index {
		snap[k] = struct{}{}
	}
	return snap
}

// Snapshot is an immutable copy of a named set. It satisfies filter.KeySet.
type Snapshot map[string]struct{}

func (s Snapshot) Has(key string) bool {
	_, ok := s[key]
	return ok
}

func (s Snapshot) Len() int {
	return len(s)
}

// AsMap returns the snapshot as a bool map.
func (s Snapshot) AsMap() map[string]bool {
	m := make(map[string]bool, len(s))
	for k := range s {
		m[k] = true
	}
	return m
}
