package docpage

import "strings"

// Fragment is the ordered list of literal markup segments forming a page
// body. It is never mutated after construction.
type Fragment struct {
	segments []string
}

// NewFragment copies the provided segments into a new Fragment.
func NewFragment(segments ...string) Fragment {
	return Fragment{segments: append([]string(nil), segments...)}
}

// Segments returns a copy of the literal segments.
func (f Fragment) Segments() []string {
	return append([]string(nil), f.segments...)
}

// Len reports the number of segments.
func (f Fragment) Len() int {
	return len(f.segments)
}

func (f Fragment) concat() string {
	size := 0
	for _, seg := range f.segments {
		size += len(seg)
	}
	var sb strings.Builder
	sb.Grow(size)
	for _, seg := range f.segments {
		sb.WriteString(seg)
	}
	return sb.String()
}
