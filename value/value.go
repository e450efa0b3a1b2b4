// Package value implements defunct's uniform runtime value representation:
// a single 64-bit word that NaN-boxes a double, a 32-bit signed integer, or
// a tagged heap pointer.
//
// Encoding, from the high 16 bits down:
//
//	high16 == 0xFFFF: low 32 bits are a signed int32.
//	high16 == 0x0000: low 3 bits are a Tag, the rest a word-aligned pointer.
//	otherwise:        the word is a float64 whose exponent field has been
//	                  rotated by +1, so that the zero float and the all-zero
//	                  pointer pattern never collide and the NaN payload space
//	                  stays reserved for the other two cases.
package value

import (
	"fmt"
	"math"
	"unsafe"
)

// Tag identifies what kind of heap object a pointer-valued word refers to.
type Tag uint8

const (
	TagSymbol Tag = iota
	TagFunction
	TagCons
	TagVector
	TagMap
	TagObject
	TagError
	TagNativeFn
)

func (t Tag) String() string {
	switch t {
	case TagSymbol:
		return "symbol"
	case TagFunction:
		return "function"
	case TagCons:
		return "cons"
	case TagVector:
		return "vector"
	case TagMap:
		return "map"
	case TagObject:
		return "object"
	case TagError:
		return "error"
	case TagNativeFn:
		return "nativefn"
	default:
		return "unknown"
	}
}

const (
	hightagMask  = 0xFFFF_0000_0000_0000
	lowtagMask   = 0b111
	lowtagBits   = 3
	exponentBump = 1 << 48
)

// Nil and T are the two pointer-sentinel symbols. They do not point at a
// heap-allocated Symbol cell; Nil is the exact zero-bit value and T is the
// symbol pointer with raw address 0x10.
var (
	Nil = Value{bits: uint64(TagSymbol)}
	T   = mustFromPointer(TagSymbol, 0x10)
)

// Value is defunct's single-word runtime value.
type Value struct {
	bits uint64
}

// FromDouble returns the Value representing the float64 f.
func FromDouble(f float64) Value {
	return Value{bits: math.Float64bits(f) + exponentBump}
}

// IsDouble reports whether v holds a float64.
func (v Value) IsDouble() bool {
	h := v.bits & hightagMask
	return h != hightagMask && h != 0
}

// Double returns the float64 held by v, and whether v held one at all.
func (v Value) Double() (float64, bool) {
	if !v.IsDouble() {
		return 0, false
	}
	return math.Float64frombits(v.bits - exponentBump), true
}

// FromInt returns the Value representing the signed 32-bit integer i.
func FromInt(i int32) Value {
	return Value{bits: uint64(uint32(i)) | hightagMask}
}

// IsInt reports whether v holds an int32.
func (v Value) IsInt() bool {
	return v.bits&hightagMask == hightagMask
}

// Int returns the int32 held by v, and whether v held one at all.
func (v Value) Int() (int32, bool) {
	if !v.IsInt() {
		return 0, false
	}
	return int32(uint32(v.bits)), true
}

// IsPointer reports whether v holds a tagged heap pointer (or a pointer
// sentinel such as Nil/T).
func (v Value) IsPointer() bool {
	return v.bits&hightagMask == 0
}

// isWordAligned reports whether addr can carry the 3-bit tag without
// colliding with a real address bit.
func isWordAligned(addr uintptr) bool {
	return addr&lowtagMask == 0
}

// FromPointer returns the Value tagging raw as a heap pointer of kind tag.
// It panics if raw is not 8-byte aligned, per the data model's invariant
// that the tag bits never collide with a real address bit.
func FromPointer(tag Tag, raw unsafe.Pointer) Value {
	addr := uintptr(raw)
	if !isWordAligned(addr) {
		panic(fmt.Sprintf("value: pointer %#x is not word-aligned", addr))
	}
	return Value{bits: uint64(addr) | uint64(tag)}
}

func mustFromPointer(tag Tag, addr uintptr) Value {
	return FromPointer(tag, unsafe.Pointer(addr)) //nolint:govet // constructing a sentinel, not a live pointer
}

// rawPointer splits a pointer-tagged word into its tag and bare address.
func (v Value) rawPointer() (Tag, uintptr) {
	tag := Tag(v.bits & lowtagMask)
	addr := uintptr(v.bits &^ lowtagMask)
	return tag, addr
}

// Tag returns the pointer tag of v. It panics if v is not a pointer.
func (v Value) Tag() Tag {
	if !v.IsPointer() {
		panic("value: Tag called on a non-pointer value")
	}
	tag, _ := v.rawPointer()
	return tag
}

// Pointer returns the bare heap address held by v. It panics if v is not a
// pointer.
func (v Value) Pointer() unsafe.Pointer {
	if !v.IsPointer() {
		panic("value: Pointer called on a non-pointer value")
	}
	_, addr := v.rawPointer()
	return unsafe.Pointer(addr) //nolint:govet // addr came from a live, never-moved arena allocation
}

// IsNil reports whether v is the nil sentinel.
func (v Value) IsNil() bool {
	return v == Nil
}

// IsT reports whether v is the t sentinel.
func (v Value) IsT() bool {
	return v == T
}

// FromBool returns T if b, Nil otherwise — defunct has no distinct boolean
// type, so comparisons and predicates return one of the two symbol
// sentinels.
func FromBool(b bool) Value {
	if b {
		return T
	}
	return Nil
}

// Kind enumerates the closed set of runtime kinds a Value can classify as.
type Kind int

const (
	KindInt Kind = iota
	KindDouble
	KindSymbol
	KindFunction
	KindVector
	KindMap
	KindObject
	KindNativeFn
	KindError
	KindOther
)

// Classify inspects v and returns its Kind together with the bare pointer
// address (zero for non-pointer kinds). Callers reconstruct the concrete Go
// type (e.g. *heapobj.Vector) from the address via the owning package,
// since value cannot import heapobj without a cycle.
func (v Value) Classify() (Kind, unsafe.Pointer) {
	switch {
	case v.IsInt():
		return KindInt, nil
	case v.IsDouble():
		return KindDouble, nil
	default:
		tag, addr := v.rawPointer()
		ptr := unsafe.Pointer(addr) //nolint:govet // addr came from a live, never-moved arena allocation
		switch tag {
		case TagSymbol:
			return KindSymbol, ptr
		case TagFunction:
			return KindFunction, ptr
		case TagVector:
			return KindVector, ptr
		case TagMap:
			return KindMap, ptr
		case TagObject:
			return KindObject, ptr
		case TagNativeFn:
			return KindNativeFn, ptr
		case TagError:
			return KindError, ptr
		default:
			return KindOther, ptr
		}
	}
}

// Bits returns the raw 64-bit word, used for equality and hashing by
// packages that store Values as map keys (heapobj's hash-form Map).
func (v Value) Bits() uint64 { return v.bits }

// FromBits reconstructs a Value from a raw word previously obtained from
// Bits. Used by the assembler's "%bits" raw-constant syntax.
func FromBits(bits uint64) Value { return Value{bits: bits} }

// Equal implements the spec's raw-word equality: two Values are equal iff
// their bit patterns match exactly.
func (v Value) Equal(other Value) bool { return v.bits == other.bits }

// HashWord returns the spec's hash basis: the raw word for ints and
// pointers, the (already-rotated) float bits for doubles. Packages that
// need a well-distributed hash (heapobj's promoted hash-map) feed this
// through a stronger hash function rather than using it directly as a
// bucket index.
func (v Value) HashWord() uint64 { return v.bits }

func (v Value) String() string {
	switch {
	case v.IsInt():
		i, _ := v.Int()
		return fmt.Sprintf("%d", i)
	case v.IsDouble():
		d, _ := v.Double()
		return fmt.Sprintf("%gf", d)
	case v.IsNil():
		return ":nil"
	case v.IsT():
		return ":t"
	default:
		tag, addr := v.rawPointer()
		return fmt.Sprintf("<%s %#x>", tag, addr)
	}
}
