package heapobj

import (
	"fmt"
	"unsafe"

	"github.com/krstoff/defunct/pageheap"
	"github.com/krstoff/defunct/value"
)

// CodeObject is an immutable constant pool plus instruction buffer,
// produced once by the emitter and referenced by closures (spec.md §3).
type CodeObject struct {
	Consts []value.Value
	Code   []byte
	Arity  int // number of declared parameters, for disassembly/debugging
	Name   string
}

// NewCodeObject copies consts/code into arena-backed storage and returns
// an immutable CodeObject. Name is informational only (used by the
// disassembler and trace output).
func NewCodeObject(h *pageheap.Heap, consts []value.Value, code []byte, arity int, name string) *CodeObject {
	cp := pageheap.AllocValues[value.Value](h, len(consts))
	copy(cp, consts)
	buf := pageheap.AllocValues[byte](h, len(code))
	copy(buf, code)
	co := &CodeObject{Consts: cp, Code: buf, Arity: arity, Name: name}
	h.Root(co)
	return co
}

// CodeObjectToValue wraps co as a tagged pointer value (spec.md §3's tag 5,
// "Object", doubles as the code-object pointer kind).
func CodeObjectToValue(co *CodeObject) value.Value {
	return value.FromPointer(value.TagObject, unsafe.Pointer(co))
}

// CodeObjectFromValue reverses CodeObjectToValue.
func CodeObjectFromValue(v value.Value) *CodeObject {
	if v.Tag() != value.TagObject {
		panic(fmt.Sprintf("heapobj: value %v is not a code object", v))
	}
	return (*CodeObject)(v.Pointer())
}

// Closure pairs a captured environment (currently always empty, per
// spec.md §3 — defunct's emitter never captures outer locals) with the
// code object it calls into.
type Closure struct {
	Env  []value.Value
	Code *CodeObject
}

// NewClosure allocates a Closure with an empty captured environment over
// code, rooting it on h so it survives independent of any value.Value
// that later comes to reference it.
func NewClosure(h *pageheap.Heap, code *CodeObject) *Closure {
	c := &Closure{Code: code}
	h.Root(c)
	return c
}

// ClosureToValue wraps c as a tagged pointer value.
func ClosureToValue(c *Closure) value.Value {
	return value.FromPointer(value.TagFunction, unsafe.Pointer(c))
}

// ClosureFromValue reverses ClosureToValue.
func ClosureFromValue(v value.Value) *Closure {
	if v.Tag() != value.TagFunction {
		panic(fmt.Sprintf("heapobj: value %v is not a closure", v))
	}
	return (*Closure)(v.Pointer())
}
