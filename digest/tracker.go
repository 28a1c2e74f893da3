package digest

// Tracker classifies the focused entity as clean or dirty.
//
// The baseline digest (initial hash) is computed lazily from the backup the
// first time it is needed after a Reset, never carried over from an earlier
// comparison. A Tracker is not safe for concurrent use; its owner serialises
// access.
type Tracker[E any] struct {
	hasher  *Hasher[E]
	initial string
	current string
}

// NewTracker creates a tracker using h.
func NewTracker[E any](h *Hasher[E]) *Tracker[E] {
	return &Tracker[E]{hasher: h}
}

// Reset clears both digests. The next Check recomputes the baseline.
func (t *Tracker[E]) Reset() {
	t.initial = ""
	t.current = ""
}

// Initial returns the baseline digest, or "" if not computed yet.
func (t *Tracker[E]) Initial() string { return t.initial }

// Current returns the digest from the last Check.
func (t *Tracker[E]) Current() string { return t.current }

// Check hashes current and compares it with the baseline of backup.
func (t *Tracker[E]) Check(current, backup E) (bool, error) {
	if t.hasher == nil {
		return false, ErrNilHasher
	}
	if t.initial == "" {
		h, err := t.hasher.Hash(backup)
		if err != nil {
			return false, err
		}
		t.initial = h
	}

	h, err := t.hasher.Hash(current)
	if err != nil {
		return false, err
	}
	t.current = h
	return t.current != t.initial, nil
}

// Dirty reports the result of the last Check without rehashing.
func (t *Tracker[E]) Dirty() bool {
	return t.initial != "" && t.current != "" && t.current != t.initial
}
