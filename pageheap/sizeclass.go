// Package pageheap implements defunct's size-classed page allocator: a
// small, non-moving, non-concurrent arena allocator modeled on the Go
// runtime's small-object allocator (size classes, spans, first-fit page
// search), stripped of concurrency, GC, and sweeping since defunct's VM
// runs single-threaded and never collects.
package pageheap

import "sync"

const (
	// PageSize is the allocation granularity of an Arena.
	PageSize = 8 << 10
	// PageShift is log2(PageSize).
	PageShift = 13
	// MaxSmallSize is the largest size served by a size class; anything
	// larger is a "large" allocation sized directly in whole pages.
	MaxSmallSize = 32 << 10
	// NumSizeClasses is the number of distinct small-object size classes,
	// including the reserved class 0 ("not small").
	NumSizeClasses = 67
)

var (
	classToSize        [NumSizeClasses]int32
	classToAllocNPages  [NumSizeClasses]int32
	sizeToClass8        [1024/8 + 1]int8
	sizeToClass128      [(MaxSmallSize-1024)/128 + 1]int8
	sizeClassesOnce     sync.Once
)

// initSizeClasses computes the class_to_size table and its two lookup
// tables (8-byte granularity up to 1024 bytes, 128-byte granularity from
// 1024 to 32KiB), following the Go runtime's msize.go: choose the
// allocation run length (in whole pages) for each size so that the
// per-run leftover waste is bounded by 1/8 (12.5%), merging consecutive
// sizes that land on the same run shape. Round-up waste is bounded by
// 1/8 only from 128 bytes up; below that classes step by 8 or 16 bytes
// (a 17-byte request is served by the 32-byte class).
func initSizeClasses() {
	classToSize[0] = 0
	sizeclass := 1
	align := 8
	for size := align; size <= MaxSmallSize; size += align {
		if size&(size-1) == 0 {
			switch {
			case size >= 2048:
				align = 256
			case size >= 128:
				align = size / 8
			case size >= 16:
				align = 16
			}
		}

		allocSize := PageSize
		for allocSize%size > allocSize/8 {
			allocSize += PageSize
		}
		npages := allocSize >> PageShift

		if sizeclass > 1 &&
			npages == int(classToAllocNPages[sizeclass-1]) &&
			allocSize/size == allocSize/int(classToSize[sizeclass-1]) {
			classToSize[sizeclass-1] = int32(size)
			continue
		}

		classToAllocNPages[sizeclass] = int32(npages)
		classToSize[sizeclass] = int32(size)
		sizeclass++
	}
	if sizeclass != NumSizeClasses {
		panic("pageheap: size class table generation produced an unexpected class count")
	}

	// Fill the two lookup tables by scanning classToSize forward and
	// stamping every byte size handled by each class.
	nextClass := 0
	for size := 0; size <= MaxSmallSize; {
		for nextClass+1 < NumSizeClasses && int(classToSize[nextClass+1]) <= size {
			nextClass++
		}
		if size <= 1024-8 {
			sizeToClass8[(size+7)>>3] = int8(classFor(size, nextClass))
		} else {
			sizeToClass128[(size-1024+127)>>7] = int8(classFor(size, nextClass))
		}
		size++
	}
}

// classFor finds the smallest class whose size can hold n bytes by a
// linear scan from class 1; hint is not used.
func classFor(n int, hint int) int {
	for c := 1; c < NumSizeClasses; c++ {
		if int(classToSize[c]) >= n {
			return c
		}
	}
	return 0
}

func ensureSizeClasses() {
	sizeClassesOnce.Do(initSizeClasses)
}

// SizeToClass returns the size class (1..NumSizeClasses-1) that serves an
// allocation of n bytes, or 0 if n exceeds MaxSmallSize (a "large"
// allocation, sized directly in whole pages rather than via a class).
func SizeToClass(n int) int {
	ensureSizeClasses()
	if n > MaxSmallSize {
		return 0
	}
	if n > 1024-8 {
		return int(sizeToClass128[(n-1024+127)>>7])
	}
	return int(sizeToClass8[(n+7)>>3])
}

// ClassToSize returns the object size served by size class c.
func ClassToSize(c int) int {
	ensureSizeClasses()
	return int(classToSize[c])
}

// ClassToAllocNPages returns the number of pages a span of size class c
// allocates at a time.
func ClassToAllocNPages(c int) int {
	ensureSizeClasses()
	return int(classToAllocNPages[c])
}

// RoundupSize rounds n up to the size actually allocated, i.e. the size
// of its size class (or n itself, page-rounded, if it's a large
// allocation).
func RoundupSize(n int) int {
	if c := SizeToClass(n); c != 0 {
		return ClassToSize(c)
	}
	return (n + PageSize - 1) &^ (PageSize - 1)
}
