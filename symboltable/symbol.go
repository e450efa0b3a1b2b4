// Package symboltable implements defunct's symbol interning table: each
// distinct name gets exactly one heap-resident Symbol cell, looked up by
// byte content rather than identity.
package symboltable

import (
	"fmt"
	"unsafe"

	"github.com/krstoff/defunct/pageheap"
	"github.com/krstoff/defunct/value"
)

// Symbol is a heap cell: an interned name and a mutable value slot.
// spec.md §3/§4.3: nil and t are pointer sentinels without a backing
// cell, so Symbol itself never represents them.
type Symbol struct {
	Name     string
	Value    value.Value
	hasValue bool
}

// Get returns the symbol's value slot, and whether it has ever been set.
func (s *Symbol) Get() (value.Value, bool) {
	return s.Value, s.hasValue
}

// Set writes the symbol's value slot.
func (s *Symbol) Set(v value.Value) {
	s.Value = v
	s.hasValue = true
}

// Table interns names to their canonical Symbol, grounded in
// _examples/golang-debug/debug/dwarf/symbol.go's name-to-Symbol lookup
// pattern. Symbols are never removed (spec.md §3).
type Table struct {
	heap   *pageheap.Heap
	byName map[string]*Symbol
}

// New returns an empty Table backed by h. Every Symbol it interns is
// rooted on h: a Symbol is otherwise reachable only through a NaN-boxed
// address inside a value.Value once wrapped by ToValue, which Go's
// collector does not trace as a pointer.
func New(h *pageheap.Heap) *Table {
	return &Table{heap: h, byName: make(map[string]*Symbol)}
}

// Intern returns the canonical *Symbol for name, allocating a fresh cell
// on first call. The table owns its own copy of name, so a caller's
// mutable byte buffer may be reused immediately after this call returns.
func (t *Table) Intern(name string) *Symbol {
	if s, ok := t.byName[name]; ok {
		return s
	}
	s := &Symbol{Name: string([]byte(name))}
	t.byName[name] = s
	t.heap.Root(s)
	return s
}

// Lookup returns the Symbol already interned for name, if any, without
// creating one.
func (t *Table) Lookup(name string) (*Symbol, bool) {
	s, ok := t.byName[name]
	return s, ok
}

// ToValue wraps sym as a tagged pointer value.
func ToValue(sym *Symbol) value.Value {
	return value.FromPointer(value.TagSymbol, unsafe.Pointer(sym))
}

// FromValue reverses ToValue; it panics if v is not a Symbol pointer
// (including the nil/t sentinels, which have no backing Symbol).
func FromValue(v value.Value) *Symbol {
	if v.Tag() != value.TagSymbol || v.IsNil() || v.IsT() {
		panic(fmt.Sprintf("symboltable: value %v is not a bound symbol", v))
	}
	return (*Symbol)(v.Pointer())
}

// SetValue writes sym's slot, via the tagged-pointer value, enforcing the
// spec's "assigning to nil or t is a fatal error" invariant (spec.md
// §3/§4.3).
func SetValue(symVal value.Value, v value.Value) {
	if symVal.IsNil() || symVal.IsT() {
		panic("symboltable: cannot assign to the nil or t sentinel")
	}
	FromValue(symVal).Set(v)
}

// Print renders a symbol-tagged value the way spec.md §4.3 requires:
// ":name" for ordinary symbols, ":nil"/":t" for the sentinels.
func Print(v value.Value) string {
	switch {
	case v.IsNil():
		return ":nil"
	case v.IsT():
		return ":t"
	default:
		return ":" + FromValue(v).Name
	}
}
