// Package globalctx holds the state shared across an entire VM run: the
// symbol table and the heap allocator, exposed to native calls by
// reference (spec.md §3/§5: "the global context owns the symbol table
// and is passed by reference to native calls").
package globalctx

import (
	"github.com/krstoff/defunct/pageheap"
	"github.com/krstoff/defunct/symboltable"
)

// Global is the VM's global context.
type Global struct {
	Symbols *symboltable.Table
	heap    *pageheap.Heap
}

// New constructs an empty Global with a fresh heap and symbol table.
func New() *Global {
	h := pageheap.NewHeap()
	return &Global{
		Symbols: symboltable.New(h),
		heap:    h,
	}
}

// Heap returns the allocator handle shared by every heap object
// constructor (heapobj.NewVector, heapobj.NewMap, heapobj.NewCodeObject).
func (g *Global) Heap() *pageheap.Heap {
	return g.heap
}
