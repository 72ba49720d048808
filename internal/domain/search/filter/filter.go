package filter

import "slices"

// Set maps a payload key to the set of accepted values.
// The backend matches any of the values for a key and requires every key to match.
// Keys and values are not validated client-side.
type Set struct {
	keys   []string
	values map[string][]string
}

// FromMap builds a Set from the wire shape, dropping duplicate values per key.
// Keys are taken in sorted order so that iteration is deterministic.
func FromMap(m map[string][]string) Set {
	var s Set
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		s.Add(k, m[k]...)
	}
	return s
}

// Add appends values to key, skipping values already present.
func (s *Set) Add(key string, values ...string) {
	if s.values == nil {
		s.values = make(map[string][]string)
	}
	cur, ok := s.values[key]
	if !ok {
		s.keys = append(s.keys, key)
	}
	for _, v := range values {
		if !slices.Contains(cur, v) {
			cur = append(cur, v)
		}
	}
	s.values[key] = cur
}

// IsEmpty reports whether the set has no keys.
func (s Set) IsEmpty() bool { return len(s.keys) == 0 }

// Wire returns a fresh copy in wire shape, or nil when empty so the field is omitted.
// A key without values maps to an empty list, never to null.
func (s Set) Wire() map[string][]string {
	if s.IsEmpty() {
		return nil
	}
	out := make(map[string][]string, len(s.keys))
	for _, k := range s.keys {
		v := s.values[k]
		out[k] = append(make([]string, 0, len(v)), v...)
	}
	return out
}
