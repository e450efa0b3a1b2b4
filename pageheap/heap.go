package pageheap

import (
	"fmt"
	"unsafe"
)

// Heap is defunct's page-based object allocator: a set of fixed-size
// arenas divided into spans per size class (small objects, <= 32KiB) with
// a page-granular fallback for larger objects. It never moves or
// compacts memory and never collects — defunct has no GC (spec.md §1
// Non-goals) — so freeing is strictly caller-driven (used when a vector's
// backing array grows and when a map promotes to, or grows, its hash
// form: the old array's slots are released for reuse).
//
// Grounded in cloudfly-readgo/runtime/malloc.go's size-class-driven
// allocation path and mcentral.go's span bookkeeping, with sweep/GC
// machinery removed (single-threaded, no GC).
type Heap struct {
	arenas []*arena
	spans  [NumSizeClasses]*spanSet
	large  map[uintptr]largeAlloc

	// roots anchors every heapobj header and interned symbol for the
	// heap's lifetime. Such a header is, after construction, reachable
	// only through a NaN-boxed address inside a value.Value — a raw
	// uint64 as far as Go's precise collector is concerned, not a
	// pointer it will trace. Without an explicit root, a header with no
	// other Go-visible reference could be collected out from under a
	// still-running VM. defunct itself never collects (spec.md's design
	// note: objects live until process exit), so pinning every header
	// here for good is the correct behavior, not a stopgap.
	roots []any
}

type largeAlloc struct {
	npages int
	arena  *arena
}

// NewHeap constructs an empty Heap with no arenas allocated yet; the
// first allocation request creates the first arena on demand.
func NewHeap() *Heap {
	ensureSizeClasses()
	h := &Heap{large: make(map[uintptr]largeAlloc)}
	for c := 1; c < NumSizeClasses; c++ {
		h.spans[c] = newSpanSet(c)
	}
	return h
}

// Root pins obj so Go's garbage collector always finds it reachable,
// independent of any NaN-boxed value.Value pointing at it. Every
// heapobj constructor (NewVector, NewMap, NewCodeObject, NewClosure)
// and symboltable.Table.Intern calls this immediately after allocating
// a header.
func (h *Heap) Root(obj any) {
	h.roots = append(h.roots, obj)
}

// Alloc returns a pointer to a zeroed block of at least n bytes. When no
// existing arena has room it adds a fresh 64MiB arena; it panics only if
// a single request is too large for a fresh arena to hold.
func (h *Heap) Alloc(n int) unsafe.Pointer {
	if n <= 0 {
		n = 1
	}
	var p unsafe.Pointer
	if class := SizeToClass(n); class == 0 {
		p = h.allocLarge(n)
	} else {
		p = h.allocSmall(class)
	}
	clear(unsafe.Slice((*byte)(p), n)) // freed slots and pages are reused without being cleared
	return p
}

func (h *Heap) allocSmall(class int) unsafe.Pointer {
	set := h.spans[class]
	s := set.spanWithFreeSlot()
	if s == nil {
		s = h.growSpan(class)
		set.addGrownSpan(s)
	}
	ptr := s.allocSlot()
	set.noteSlotTaken(s)
	return ptr
}

func (h *Heap) growSpan(class int) *span {
	npages := ClassToAllocNPages(class)
	for _, a := range h.arenas {
		if base := a.alloc(npages); base != nil {
			return newSpan(base, npages, class)
		}
	}
	a := newArena()
	h.arenas = append(h.arenas, a)
	base := a.alloc(npages)
	if base == nil {
		panic(fmt.Sprintf("pageheap: fresh %d-page arena could not satisfy a %d-page span", numArenaPages, npages))
	}
	return newSpan(base, npages, class)
}

func (h *Heap) allocLarge(n int) unsafe.Pointer {
	npages := (n + PageSize - 1) / PageSize
	for _, a := range h.arenas {
		if base := a.alloc(npages); base != nil {
			h.large[uintptr(base)] = largeAlloc{npages: npages, arena: a}
			return base
		}
	}
	a := newArena()
	h.arenas = append(h.arenas, a)
	base := a.alloc(npages)
	if base == nil {
		panic(fmt.Sprintf("pageheap: large allocation of %d bytes exceeds arena size", n))
	}
	h.large[uintptr(base)] = largeAlloc{npages: npages, arena: a}
	return base
}

// Free releases the block at ptr, previously returned by Alloc with the
// same size n.
func (h *Heap) Free(ptr unsafe.Pointer, n int) {
	class := SizeToClass(n)
	if class == 0 {
		la, ok := h.large[uintptr(ptr)]
		if !ok {
			panic("pageheap: Free called on an unknown large pointer")
		}
		la.arena.free(ptr, la.npages)
		delete(h.large, uintptr(ptr))
		return
	}
	set := h.spans[class]
	s := h.findSpan(ptr, class)
	s.freeSlot(ptr)
	if set.noteSlotFreed(s) {
		h.returnSpan(set, s)
	}
}

func (h *Heap) findSpan(ptr unsafe.Pointer, class int) *span {
	set := h.spans[class]
	for _, s := range set.partial {
		if s.contains(ptr) {
			return s
		}
	}
	for _, s := range set.full {
		if s.contains(ptr) {
			return s
		}
	}
	panic("pageheap: Free called on a pointer not owned by this heap")
}

// CheckInvariants verifies, for every arena, that the bitmap's live-page
// count equals the total page count of the spans and large allocations
// currently carved out of it. It is exercised by tests, not by the hot
// allocation path — spec.md §8 lists this as a testable property of the
// allocator, not a runtime-enforced check.
func (h *Heap) CheckInvariants() error {
	livePages := make(map[*arena]int)
	for c := 1; c < NumSizeClasses; c++ {
		for _, list := range [][]*span{h.spans[c].partial, h.spans[c].full} {
			for _, s := range list {
				for _, a := range h.arenas {
					if a.contains(unsafe.Pointer(s.base)) { //nolint:govet // s.base is live, verified by contains
						livePages[a] += s.npages
					}
				}
			}
		}
	}
	for _, la := range h.large {
		livePages[la.arena] += la.npages
	}
	for _, a := range h.arenas {
		if a.livePages() != livePages[a] {
			return fmt.Errorf("pageheap: arena bitmap live page count %d does not match span accounting %d", a.livePages(), livePages[a])
		}
	}
	return nil
}

func (h *Heap) returnSpan(set *spanSet, s *span) {
	set.removeEmpty(s)
	for _, a := range h.arenas {
		if a.contains(unsafe.Pointer(s.base)) { //nolint:govet // s.base is a live address inside a, verified by contains
			a.free(unsafe.Pointer(s.base), s.npages) //nolint:govet // same
			return
		}
	}
}
