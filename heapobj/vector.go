// Package heapobj implements defunct's heap-resident collection and code
// types: growable vectors, small/hash maps, closures, and code objects.
// Bulk payload storage (element arrays, slot arrays, constant pools) is
// backed by the size-classed pageheap.Heap. The small header structs
// that own them (Vector, Map, Closure, CodeObject) are ordinary Go
// values, but every constructor roots its header on the same
// pageheap.Heap the instant it's built: once wrapped as a value.Value,
// a header is reachable only through a NaN-boxed address Go's precise
// collector does not scan as a pointer, so without that root it would
// be invisible to the collector (see DESIGN.md, "Object storage
// model").
package heapobj

import (
	"fmt"
	"unsafe"

	"github.com/krstoff/defunct/pageheap"
	"github.com/krstoff/defunct/value"
)

// Vector is a growable ordered sequence of values.
type Vector struct {
	heap *pageheap.Heap
	data []value.Value
	len  int
}

const vectorInitialCap = 4

// NewVector allocates an empty Vector from h.
func NewVector(h *pageheap.Heap) *Vector {
	v := &Vector{heap: h, data: pageheap.AllocValues[value.Value](h, vectorInitialCap)}
	h.Root(v)
	return v
}

func (v *Vector) Len() int { return v.len }

// Get returns the element at index i. Out-of-range indexing is fatal,
// per spec.md §4.9/§8.
func (v *Vector) Get(i int) value.Value {
	v.checkIndex(i)
	return v.data[i]
}

// Set overwrites the element at index i. Out-of-range indexing is fatal.
func (v *Vector) Set(i int, val value.Value) {
	v.checkIndex(i)
	v.data[i] = val
}

func (v *Vector) checkIndex(i int) {
	if i < 0 || i >= v.len {
		panic(fmt.Sprintf("heapobj: vector index %d out of range [0, %d)", i, v.len))
	}
}

// Push appends val, growing the backing array if necessary.
func (v *Vector) Push(val value.Value) {
	if v.len == len(v.data) {
		v.grow()
	}
	v.data[v.len] = val
	v.len++
}

// Pop removes and returns the last element. Popping an empty vector is
// fatal, per spec.md §4.9/§8.
func (v *Vector) Pop() value.Value {
	if v.len == 0 {
		panic("heapobj: pop of an empty vector")
	}
	v.len--
	return v.data[v.len]
}

func (v *Vector) grow() {
	newCap := len(v.data) * 2
	if newCap == 0 {
		newCap = vectorInitialCap
	}
	bigger := pageheap.AllocValues[value.Value](v.heap, newCap)
	copy(bigger, v.data[:v.len])
	pageheap.FreeValues(v.heap, v.data)
	v.data = bigger
}

// VectorToValue wraps v as a tagged pointer value.
func VectorToValue(v *Vector) value.Value {
	return value.FromPointer(value.TagVector, unsafe.Pointer(v))
}

// VectorFromValue reverses VectorToValue; it panics if val is not a Vector.
func VectorFromValue(val value.Value) *Vector {
	if val.Tag() != value.TagVector {
		panic(fmt.Sprintf("heapobj: value %v is not a vector", val))
	}
	return (*Vector)(val.Pointer())
}
