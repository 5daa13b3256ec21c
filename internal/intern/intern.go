// Package intern deduplicates identifier strings while a mappings container
// is being built. One Interner belongs to one build session and is dropped
// with it; it is not safe for concurrent use.
package intern

// Interner maps each distinct string to a single canonical instance.
type Interner struct {
	pool map[string]string
	hits int
}

// New creates an empty Interner.
func New() *Interner {
	return &Interner{pool: make(map[string]string)}
}

// NewSized creates an Interner with room for n distinct strings.
func NewSized(n int) *Interner {
	return &Interner{pool: make(map[string]string, n)}
}

// Intern returns the canonical instance equal to s. The empty string is
// returned as-is and never stored.
func (in *Interner) Intern(s string) string {
	if s == "" {
		return s
	}
	if canon, ok := in.pool[s]; ok {
		in.hits++
		return canon
	}
	in.pool[s] = s
	return s
}

// Len returns the number of distinct strings seen.
func (in *Interner) Len() int { return len(in.pool) }

// Hits returns how many Intern calls were answered from the pool.
func (in *Interner) Hits() int { return in.hits }
