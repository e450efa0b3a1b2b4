package heapobj

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/dchest/siphash"

	"github.com/krstoff/defunct/pageheap"
	"github.com/krstoff/defunct/value"
)

// SmallMapSlots is the fixed capacity of a Map's small (linear-scan)
// form, per spec.md §3.
const SmallMapSlots = 31

// hashSeed0/1 are fixed siphash keys. The map's hash form only needs an
// even, collision-resistant distribution within one process's lifetime
// (maps are never persisted or compared across runs), so a fixed seed is
// sufficient and keeps hashing deterministic for tests.
const (
	hashSeed0 uint64 = 0x6465_6675_6e63_7430
	hashSeed1 uint64 = 0x6D61_705F_6861_7368
)

// Map is defunct's two-representation associative container: a small
// fixed-capacity linear array that promotes, one-way, to an
// open-addressing hash table on its 32nd distinct key (spec.md §3).
type Map struct {
	heap *pageheap.Heap

	// small form: interleaved key/value pairs, length 2*SmallMapSlots.
	// Present (non-nil) exactly when hashKeys is nil.
	small []value.Value
	count int

	// hash form: open-addressing table, present once promoted.
	hashKeys []value.Value
	hashVals []value.Value
	occupied []bool
	hashLen  int
}

// NewMap allocates an empty Map in its small form.
func NewMap(h *pageheap.Heap) *Map {
	small := pageheap.AllocValues[value.Value](h, 2*SmallMapSlots)
	for i := range small {
		small[i] = value.Nil
	}
	m := &Map{heap: h, small: small}
	h.Root(m)
	return m
}

func (m *Map) isHash() bool { return m.hashKeys != nil }

// Len returns the number of distinct keys stored.
func (m *Map) Len() int {
	if m.isHash() {
		return m.hashLen
	}
	return m.count
}

// Get returns the value for key, or value.Nil if absent.
func (m *Map) Get(key value.Value) value.Value {
	if m.isHash() {
		if i, ok := m.hashFind(key); ok {
			return m.hashVals[i]
		}
		return value.Nil
	}
	for i := 0; i < m.count; i++ {
		if m.small[2*i].Equal(key) {
			return m.small[2*i+1]
		}
	}
	return value.Nil
}

// Put inserts or overwrites the mapping key -> val.
func (m *Map) Put(key, val value.Value) {
	if m.isHash() {
		m.hashPut(key, val)
		return
	}
	for i := 0; i < m.count; i++ {
		if m.small[2*i].Equal(key) {
			m.small[2*i+1] = val
			return
		}
	}
	if m.count < SmallMapSlots {
		m.small[2*m.count] = key
		m.small[2*m.count+1] = val
		m.count++
		return
	}
	m.promote()
	m.hashPut(key, val)
}

// Remove deletes key if present and returns the value it held, or
// value.Nil if the key was absent (matching the MapDel opcode's
// "push the removed value" behavior — original_source's
// `Map::remove`/`MapDel` step).
func (m *Map) Remove(key value.Value) value.Value {
	if m.isHash() {
		i, ok := m.hashFind(key)
		if !ok {
			return value.Nil
		}
		removed := m.hashVals[i]
		// Backward-shift deletion: move later entries of the same probe
		// run into the hole so hashFind never stops short of them.
		tableCap := len(m.occupied)
		for j := (i + 1) & (tableCap - 1); m.occupied[j]; j = (j + 1) & (tableCap - 1) {
			home := int(wordHash(m.hashKeys[j])) & (tableCap - 1)
			if (j > i && (home <= i || home > j)) || (j < i && home <= i && home > j) {
				m.hashKeys[i], m.hashVals[i] = m.hashKeys[j], m.hashVals[j]
				i = j
			}
		}
		m.occupied[i] = false
		m.hashKeys[i] = value.Nil
		m.hashVals[i] = value.Nil
		m.hashLen--
		return removed
	}
	for i := 0; i < m.count; i++ {
		if m.small[2*i].Equal(key) {
			removed := m.small[2*i+1]
			last := m.count - 1
			m.small[2*i], m.small[2*last] = m.small[2*last], value.Nil
			m.small[2*i+1], m.small[2*last+1] = m.small[2*last+1], value.Nil
			m.count--
			return removed
		}
	}
	return value.Nil
}

// Clear empties the map, keeping its current representation (the
// promotion to hash form is one-way per spec.md §3, but clearing does
// not un-promote an already-promoted map back to small form).
func (m *Map) Clear() {
	if m.isHash() {
		for i := range m.occupied {
			m.occupied[i] = false
			m.hashKeys[i] = value.Nil
			m.hashVals[i] = value.Nil
		}
		m.hashLen = 0
		return
	}
	for i := 0; i < 2*m.count; i++ {
		m.small[i] = value.Nil
	}
	m.count = 0
}

func wordHash(v value.Value) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v.HashWord())
	return siphash.Hash(hashSeed0, hashSeed1, buf[:])
}

const hashInitialCap = 64 // power of two, comfortably above SmallMapSlots

func (m *Map) promote() {
	keys := pageheap.AllocValues[value.Value](m.heap, hashInitialCap)
	vals := pageheap.AllocValues[value.Value](m.heap, hashInitialCap)
	occ := make([]bool, hashInitialCap)
	m.hashKeys, m.hashVals, m.occupied = keys, vals, occ
	for i := 0; i < m.count; i++ {
		m.hashPut(m.small[2*i], m.small[2*i+1])
	}
	pageheap.FreeValues(m.heap, m.small)
	m.small = nil
	m.count = 0
}

func (m *Map) hashFind(key value.Value) (int, bool) {
	tableCap := len(m.occupied)
	i := int(wordHash(key)) & (tableCap - 1)
	for probes := 0; probes < tableCap; probes++ {
		if !m.occupied[i] {
			return 0, false
		}
		if m.hashKeys[i].Equal(key) {
			return i, true
		}
		i = (i + 1) & (tableCap - 1)
	}
	return 0, false
}

func (m *Map) hashPut(key, val value.Value) {
	if 4*(m.hashLen+1) > 3*len(m.occupied) {
		m.hashGrow()
	}
	tableCap := len(m.occupied)
	i := int(wordHash(key)) & (tableCap - 1)
	for {
		if !m.occupied[i] {
			m.occupied[i] = true
			m.hashKeys[i] = key
			m.hashVals[i] = val
			m.hashLen++
			return
		}
		if m.hashKeys[i].Equal(key) {
			m.hashVals[i] = val
			return
		}
		i = (i + 1) & (tableCap - 1)
	}
}

func (m *Map) hashGrow() {
	oldKeys, oldVals, oldOcc := m.hashKeys, m.hashVals, m.occupied
	newCap := len(oldOcc) * 2
	m.hashKeys = pageheap.AllocValues[value.Value](m.heap, newCap)
	m.hashVals = pageheap.AllocValues[value.Value](m.heap, newCap)
	m.occupied = make([]bool, newCap)
	m.hashLen = 0
	for i, occ := range oldOcc {
		if occ {
			m.hashPut(oldKeys[i], oldVals[i])
		}
	}
	pageheap.FreeValues(m.heap, oldKeys)
	pageheap.FreeValues(m.heap, oldVals)
}

// MapToValue wraps m as a tagged pointer value.
func MapToValue(m *Map) value.Value {
	return value.FromPointer(value.TagMap, unsafe.Pointer(m))
}

// MapFromValue reverses MapToValue; it panics if val is not a Map.
func MapFromValue(val value.Value) *Map {
	if val.Tag() != value.TagMap {
		panic(fmt.Sprintf("heapobj: value %v is not a map", val))
	}
	return (*Map)(val.Pointer())
}
