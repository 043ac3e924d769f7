package raster

// History is an unbounded stack of full-surface snapshots. A snapshot is
// pushed before every mutating operation and popped by undo.
type History struct {
	snaps [][]uint8
}

func NewHistory() *History {
	return &History{}
}

// Push records the current contents of s.
func (h *History) Push(s *Surface) {
	h.snaps = append(h.snaps, s.Snapshot())
}

// Undo restores the most recent snapshot onto s. On an empty stack it does
// nothing and reports false.
func (h *History) Undo(s *Surface) bool {
	if len(h.snaps) == 0 {
		return false
	}

	last := h.snaps[len(h.snaps)-1]
	h.snaps[len(h.snaps)-1] = nil
	h.snaps = h.snaps[:len(h.snaps)-1]

	return s.Restore(last)
}

func (h *History) Len() int {
	return len(h.snaps)
}

func (h *History) Reset() {
	clear(h.snaps)
	h.snaps = h.snaps[:0]
}
