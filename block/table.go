package block

import "sync"

// Table interns block values. Each Intern call takes one reference on the returned state and each
// Release drops one; a state leaves the table when its last reference is released. Table is safe for
// concurrent use.
type Table struct {
	mu      sync.Mutex
	buckets map[uint64][]*State
	size    int
}

func NewTable() *Table {
	return &Table{buckets: make(map[uint64][]*State)}
}

// Intern returns the shared state equal to v, creating it on first use.
func (t *Table) Intern(v Value) *State {
	h := v.Hash()

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, s := range t.buckets[h] {
		if s.Equal(v) {
			s.refs++
			return s
		}
	}
	s := newState(v)
	s.refs = 1
	t.buckets[h] = append(t.buckets[h], s)
	t.size++
	return s
}

// Release drops one reference on s. Releasing a state that is no longer in the table is a no-op.
func (t *Table) Release(s *State) {
	if s == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	bucket := t.buckets[s.hash]
	for i, candidate := range bucket {
		if candidate != s {
			continue
		}
		s.refs--
		if s.refs > 0 {
			return
		}
		bucket = append(bucket[:i], bucket[i+1:]...)
		if len(bucket) == 0 {
			delete(t.buckets, s.hash)
		} else {
			t.buckets[s.hash] = bucket
		}
		t.size--
		return
	}
}

// Refs returns the number of outstanding references on s.
func (t *Table) Refs(s *State) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return s.refs
}

// Len returns the number of distinct states currently interned.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.size
}
