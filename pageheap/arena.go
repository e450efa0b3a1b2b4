package pageheap

import (
	"fmt"
	"unsafe"
)

// ArenaSize is the size of a single backing arena. Real allocations never
// move between arenas or get compacted, so a value is safe to keep a bare
// unsafe.Pointer into for its entire lifetime — mirroring
// internal/gocore's treatment of a live process's heap arenas as a fixed
// set of pinned address ranges.
const ArenaSize = 64 << 20

const numArenaPages = ArenaSize / PageSize

// arena is one fixed, process-lifetime-pinned backing buffer, divided into
// PageSize pages tracked by a 1-bit-per-page free bitmap. Pages are found
// by a first-fit scan for a run of n consecutive free bits, following
// iansmith-mazarin's free-page bitmap/list management adapted from a
// single-page free list to an n-page run scan.
type arena struct {
	buf    []byte
	base   uintptr
	used   []bitword // 1 bit per page; bit set means allocated
	npages int
}

func newArena() *arena {
	buf := make([]byte, ArenaSize)
	return &arena{
		buf:    buf,
		base:   uintptr(unsafe.Pointer(&buf[0])),
		used:   make([]bitword, (numArenaPages+wordBits-1)/wordBits),
		npages: numArenaPages,
	}
}

func (a *arena) setRange(start, n int, value bool) {
	for p := start; p < start+n; p++ {
		bitSet(a.used, p, value)
	}
}

// livePages returns the number of pages currently marked allocated,
// exposed for the allocator invariant check (spec.md §8: an arena's
// bitmap popcount equals the page total of its live spans).
func (a *arena) livePages() int {
	return popCount(a.used)
}

// findRun returns the index of the first run of n consecutive free pages,
// or -1 if the arena has no such run.
func (a *arena) findRun(n int) int {
	run := 0
	start := -1
	for p := 0; p < a.npages; p++ {
		if bitGet(a.used, p) {
			run = 0
			start = -1
			continue
		}
		if start == -1 {
			start = p
		}
		run++
		if run == n {
			return start
		}
	}
	return -1
}

// alloc reserves n consecutive pages and returns a pointer to their start,
// or nil if the arena lacks a large enough free run.
func (a *arena) alloc(n int) unsafe.Pointer {
	start := a.findRun(n)
	if start == -1 {
		return nil
	}
	a.setRange(start, n, true)
	return unsafe.Pointer(a.base + uintptr(start*PageSize)) //nolint:govet // addr is inside the pinned arena buffer
}

// free releases the n pages beginning at the page containing ptr.
func (a *arena) free(ptr unsafe.Pointer, n int) {
	addr := uintptr(ptr)
	if addr < a.base || addr >= a.base+uintptr(a.npages*PageSize) {
		panic(fmt.Sprintf("pageheap: free of pointer %#x outside arena", addr))
	}
	start := int((addr - a.base) / PageSize)
	a.setRange(start, n, false)
}

func (a *arena) contains(ptr unsafe.Pointer) bool {
	addr := uintptr(ptr)
	return addr >= a.base && addr < a.base+uintptr(a.npages*PageSize)
}
