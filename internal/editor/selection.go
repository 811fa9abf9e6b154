package editor

import "sort"

// Selection is a UI selection set keyed by entity ID. It keeps presentation
// state out of the domain records.
type Selection map[string]struct{}

func NewSelection(ids ...string) Selection {
	s := make(Selection, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Selection) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Toggle flips membership and reports the new state.
func (s Selection) Toggle(id string) bool {
	if s.Has(id) {
		delete(s, id)
		return false
	}
	s[id] = struct{}{}
	return true
}

// Only replaces the selection with a single ID (or none for "").
func (s Selection) Only(id string) {
	for k := range s {
		delete(s, k)
	}
	if id != "" {
		s[id] = struct{}{}
	}
}

func (s Selection) Clear() {
	for k := range s {
		delete(s, k)
	}
}

// IDs returns the members sorted.
func (s Selection) IDs() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
