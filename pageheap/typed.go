package pageheap

import (
	"unsafe"

	"github.com/krstoff/defunct/value"
)

// Payload is the set of types this package will back with raw arena
// memory. Only pointer-free types belong here: Go's precise garbage
// collector never scans arena bytes, so a type containing a real Go
// pointer stored this way would be invisible to the collector and
// corrupted the moment that pointer's target moved or was freed.
// value.Value qualifies even though it is a struct rather than a bare
// uint64: its only field is a uint64 and it holds no Go pointer (a
// pointer-valued Value carries the target's address as a NaN-boxed
// bit pattern, not as a type the GC scans), so it is pointer-free in
// the sense this constraint cares about.
type Payload interface {
	~byte | ~uint64 | value.Value
}

// AllocValues reserves n contiguous elements of T from the heap and
// returns them as a slice backed by arena memory, zero-initialized. It
// is the bridge between this package's size-classed byte allocator and
// heapobj's fixed-size collection payloads (vector backing arrays, a
// map's small-form slot array, a closure's environment, a code object's
// constant pool and instruction buffer).
func AllocValues[T Payload](h *Heap, n int) []T {
	if n == 0 {
		n = 1
	}
	var zero T
	elemSize := int(unsafe.Sizeof(zero))
	ptr := h.Alloc(n * elemSize)
	return unsafe.Slice((*T)(ptr), n)
}

// FreeValues releases a slice previously returned by AllocValues. The
// caller must pass the same length it allocated.
func FreeValues[T Payload](h *Heap, s []T) {
	if len(s) == 0 {
		return
	}
	var zero T
	elemSize := int(unsafe.Sizeof(zero))
	h.Free(unsafe.Pointer(&s[0]), len(s)*elemSize)
}
