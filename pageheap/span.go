package pageheap

import "unsafe"

// span is a run of pages belonging to a single size class, carved into
// fixed-size object slots. Occupancy is tracked by a bitmap (one bit per
// slot) rather than the Go runtime's free-list-of-pointers, since
// defunct's objects are never swept concurrently — a plain bitmap scan for
// the next free slot is simpler and just as fast at these sizes.
//
// Grounded in internal/gocore/process.go's readHeap0, which derives
// spanSize/bitmapSize/objectsSize/elemSize from a span's page count and
// size class the same way this type does.
type span struct {
	base      uintptr
	npages    int
	sizeclass int
	elemSize  int
	nslots    int
	occupied  []bitword
	nfree     int
}

func newSpan(base unsafe.Pointer, npages, sizeclass int) *span {
	elemSize := ClassToSize(sizeclass)
	nslots := (npages * PageSize) / elemSize
	return &span{
		base:      uintptr(base),
		npages:    npages,
		sizeclass: sizeclass,
		elemSize:  elemSize,
		nslots:    nslots,
		occupied:  make([]bitword, (nslots+wordBits-1)/wordBits),
		nfree:     nslots,
	}
}

func (s *span) slotOccupied(i int) bool {
	return bitGet(s.occupied, i)
}

func (s *span) setSlot(i int, occupied bool) {
	bitSet(s.occupied, i, occupied)
}

// full reports whether every slot in the span is occupied.
func (s *span) full() bool { return s.nfree == 0 }

// empty reports whether every slot in the span is free.
func (s *span) empty() bool { return s.nfree == s.nslots }

// allocSlot finds and marks the first free slot, returning a pointer to
// it. It must not be called on a full span.
func (s *span) allocSlot() unsafe.Pointer {
	for i := 0; i < s.nslots; i++ {
		if !s.slotOccupied(i) {
			s.setSlot(i, true)
			s.nfree--
			return unsafe.Pointer(s.base + uintptr(i*s.elemSize)) //nolint:govet // addr is inside the span's arena run
		}
	}
	panic("pageheap: allocSlot called on a full span")
}

// freeSlot releases the slot containing ptr.
func (s *span) freeSlot(ptr unsafe.Pointer) {
	addr := uintptr(ptr)
	i := int((addr - s.base) / uintptr(s.elemSize))
	if !s.slotOccupied(i) {
		panic("pageheap: double free detected")
	}
	s.setSlot(i, false)
	s.nfree++
}

func (s *span) contains(ptr unsafe.Pointer) bool {
	addr := uintptr(ptr)
	return addr >= s.base && addr < s.base+uintptr(s.npages*PageSize)
}
