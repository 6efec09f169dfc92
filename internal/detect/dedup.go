package detect

import "sync"

// DedupWindow is a bounded set of the most recently processed transaction
// ids. The action index returns settling transactions repeatedly until they
// finalize, so overlapping poll windows would otherwise re-emit the same
// opportunity. Capacity is fixed; the oldest id is evicted first. Safe for
// concurrent use.
type DedupWindow struct {
	mu       sync.Mutex
	seen     map[string]struct{}
	ring     []string
	next     int
	capacity int
}

// NewDedupWindow creates a window holding up to capacity ids.
func NewDedupWindow(capacity int) *DedupWindow {
	if capacity <= 0 {
		capacity = 1
	}
	return &DedupWindow{
		seen:     make(map[string]struct{}, capacity),
		ring:     make([]string, capacity),
		capacity: capacity,
	}
}

// Insert records the id and reports whether it was newly added. A false
// return means the id was already in the window and the caller must treat
// the action as a duplicate. Check and insert are one atomic step so two
// occurrences in the same batch cannot both pass.
func (w *DedupWindow) Insert(txID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.seen[txID]; ok {
		return false
	}

	if evicted := w.ring[w.next]; evicted != "" {
		delete(w.seen, evicted)
	}
	w.ring[w.next] = txID
	w.next = (w.next + 1) % w.capacity
	w.seen[txID] = struct{}{}
	return true
}

// Contains reports whether the id is currently in the window.
func (w *DedupWindow) Contains(txID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.seen[txID]
	return ok
}

// Len returns the number of ids currently held.
func (w *DedupWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.seen)
}
