package telemetry

import "encoding/json"

// StringSet is an order-preserving set of identifiers. Membership only ever
// grows; iteration follows insertion order so snapshots are stable across
// reads. The zero value is ready to use.
type StringSet struct {
	items []string
	seen  map[string]struct{}
}

// Add inserts id into the set. Empty strings and duplicates are ignored.
func (s *StringSet) Add(id string) {
	if id == "" {
		return
	}
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[id]; ok {
		return
	}
	s.seen[id] = struct{}{}
	s.items = append(s.items, id)
}

// Has reports whether id is a member.
func (s *StringSet) Has(id string) bool {
	_, ok := s.seen[id]
	return ok
}

// Len returns the number of members.
func (s *StringSet) Len() int {
	return len(s.items)
}

// Values returns the members in insertion order. The returned slice is a
// copy; never nil, so it serializes as [] rather than null.
func (s *StringSet) Values() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// Clone returns an independent copy of the set.
func (s *StringSet) Clone() StringSet {
	var out StringSet
	for _, id := range s.items {
		out.Add(id)
	}
	return out
}

// MarshalJSON serializes the set as an ordered array.
func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}

// UnmarshalJSON rebuilds the set from an array.
func (s *StringSet) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	s.items = nil
	s.seen = nil
	for _, id := range items {
		s.Add(id)
	}
	return nil
}
