package pageheap

import (
	"testing"
	"unsafe"
)

func TestSizeToClassRoundTrip(t *testing.T) {
	cases := []int{1, 8, 16, 17, 512, 1024, 1025, 4096, 32768}
	for _, n := range cases {
		c := SizeToClass(n)
		if c == 0 {
			t.Fatalf("SizeToClass(%d) = 0, want a small class (n <= MaxSmallSize)", n)
		}
		size := ClassToSize(c)
		if size < n {
			t.Fatalf("SizeToClass(%d) = class %d of size %d, smaller than requested", n, c, size)
		}
		spanBytes := ClassToAllocNPages(c) * PageSize
		if leftover := spanBytes % size; leftover > spanBytes/8 {
			t.Fatalf("size class %d (size %d) leaves %d of %d span bytes unused, want <= 12.5%%", c, size, leftover, spanBytes)
		}
	}
}

func TestSizeToClassLarge(t *testing.T) {
	if c := SizeToClass(MaxSmallSize + 1); c != 0 {
		t.Fatalf("SizeToClass(MaxSmallSize+1) = %d, want 0 (large allocation)", c)
	}
}

func TestHeapAllocFreeInvariants(t *testing.T) {
	h := NewHeap()
	var ptrs []struct {
		p unsafe.Pointer
		n int
	}
	for _, n := range []int{16, 32, 64, 128, 4096, 40000} {
		p := h.Alloc(n)
		if p == nil {
			t.Fatalf("Alloc(%d) returned nil", n)
		}
		ptrs = append(ptrs, struct {
			p unsafe.Pointer
			n int
		}{p, n})
	}
	if err := h.CheckInvariants(); err != nil {
		t.Fatalf("after allocs: %v", err)
	}
	for _, pn := range ptrs {
		h.Free(pn.p, pn.n)
	}
	if err := h.CheckInvariants(); err != nil {
		t.Fatalf("after frees: %v", err)
	}
}

func TestHeapManySmallAllocsFillSpan(t *testing.T) {
	h := NewHeap()
	const n = 2000
	seen := make(map[unsafe.Pointer]bool)
	for i := 0; i < n; i++ {
		p := h.Alloc(24)
		if seen[p] {
			t.Fatalf("Alloc returned duplicate live pointer on iteration %d", i)
		}
		seen[p] = true
	}
	if err := h.CheckInvariants(); err != nil {
		t.Fatal(err)
	}
}
