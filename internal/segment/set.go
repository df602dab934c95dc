package segment

// Set is an insertion-ordered set of normalized segments. Ordering makes
// diff output and "first N" truncation reproducible across runs, which a
// plain map-backed set would not give.
type Set struct {
	members map[string]struct{}
	order   []string
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{members: make(map[string]struct{})}
}

// Add inserts v unless it is already present.
func (s *Set) Add(v string) {
	if _, ok := s.members[v]; ok {
		return
	}
	s.members[v] = struct{}{}
	s.order = append(s.order, v)
}

// Contains reports whether v is a member.
func (s *Set) Contains(v string) bool {
	_, ok := s.members[v]
	return ok
}

// Len returns the number of members.
func (s *Set) Len() int {
	return len(s.order)
}

// Values returns the members in insertion order. The slice is a copy.
func (s *Set) Values() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
