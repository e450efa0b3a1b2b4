package pageheap

// spanSet is the per-size-class bookkeeping for one heap: a list of spans
// with free slots ("partial") and a list of spans with none ("full").
// Grounded in mcentral's nonempty/empty span lists, stripped of the
// sweep-generation and locking machinery that exists there only to
// coordinate with concurrent GC.
type spanSet struct {
	sizeclass int
	partial   []*span
	full      []*span
}

func newSpanSet(sizeclass int) *spanSet {
	return &spanSet{sizeclass: sizeclass}
}

// spanWithFreeSlot returns a span from the partial list, or nil if none
// exists.
func (c *spanSet) spanWithFreeSlot() *span {
	if len(c.partial) == 0 {
		return nil
	}
	return c.partial[len(c.partial)-1]
}

// addGrownSpan inserts a freshly grown span (all slots free) into the
// partial list.
func (c *spanSet) addGrownSpan(s *span) {
	c.partial = append(c.partial, s)
}

// noteSlotTaken moves s to the full list if allocating from it emptied it.
func (c *spanSet) noteSlotTaken(s *span) {
	if !s.full() {
		return
	}
	c.removeFrom(&c.partial, s)
	c.full = append(c.full, s)
}

// noteSlotFreed moves s to the partial list if freeing from it made room,
// and reports whether s is now completely empty (a candidate to return to
// the arena).
func (c *spanSet) noteSlotFreed(s *span) (nowEmpty bool) {
	if c.removeFrom(&c.full, s) {
		c.partial = append(c.partial, s)
	}
	return s.empty()
}

// removeEmpty drops s from the partial list entirely (used when an empty
// span is returned to the arena).
func (c *spanSet) removeEmpty(s *span) {
	c.removeFrom(&c.partial, s)
}

func (c *spanSet) removeFrom(list *[]*span, s *span) bool {
	for i, cand := range *list {
		if cand == s {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return true
		}
	}
	return false
}
