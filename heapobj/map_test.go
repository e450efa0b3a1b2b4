package heapobj

import (
	"testing"

	"github.com/krstoff/defunct/pageheap"
	"github.com/krstoff/defunct/value"
)

// spec.md §8: "put(k,v); get(k) = v; after put(k,v1); put(k,v2),
// get(k)=v2 and length did not change; remove(k) restores get(k)=nil
// and decreases length by one."
func TestMapPutThenGet(t *testing.T) {
	h := pageheap.NewHeap()
	m := NewMap(h)
	key := value.FromInt(1)
	m.Put(key, value.FromInt(10))
	if got := m.Get(key); got.Equal(value.FromInt(10)) == false {
		t.Errorf("Get = %v, want int 10", got)
	}
}

func TestMapPutTwiceOverwritesWithoutGrowingLength(t *testing.T) {
	h := pageheap.NewHeap()
	m := NewMap(h)
	key := value.FromInt(1)
	m.Put(key, value.FromInt(10))
	before := m.Len()
	m.Put(key, value.FromInt(20))
	if got := m.Get(key); got.Equal(value.FromInt(20)) == false {
		t.Errorf("Get after second Put = %v, want int 20", got)
	}
	if m.Len() != before {
		t.Errorf("Len() = %d, want unchanged %d", m.Len(), before)
	}
}

func TestMapRemoveResetsGetToNilAndDecreasesLength(t *testing.T) {
	h := pageheap.NewHeap()
	m := NewMap(h)
	key := value.FromInt(1)
	m.Put(key, value.FromInt(10))
	before := m.Len()
	m.Remove(key)
	if got := m.Get(key); !got.IsNil() {
		t.Errorf("Get after Remove = %v, want the nil sentinel", got)
	}
	if m.Len() != before-1 {
		t.Errorf("Len() after Remove = %d, want %d", m.Len(), before-1)
	}
}

func TestMapPromotesToHashFormPastSmallCapacity(t *testing.T) {
	h := pageheap.NewHeap()
	m := NewMap(h)
	for i := 0; i < SmallMapSlots+10; i++ {
		m.Put(value.FromInt(int32(i)), value.FromInt(int32(i*10)))
	}
	if m.Len() != SmallMapSlots+10 {
		t.Fatalf("Len() = %d, want %d", m.Len(), SmallMapSlots+10)
	}
	for i := 0; i < SmallMapSlots+10; i++ {
		want := value.FromInt(int32(i * 10))
		if got := m.Get(value.FromInt(int32(i))); !got.Equal(want) {
			t.Errorf("Get(%d) = %v, want %v", i, got, want)
		}
	}
}

func TestMapRemoveAbsentKeyReturnsNilWithoutPanicking(t *testing.T) {
	h := pageheap.NewHeap()
	m := NewMap(h)
	if got := m.Remove(value.FromInt(1)); !got.IsNil() {
		t.Errorf("Remove of an absent key = %v, want the nil sentinel", got)
	}
}

func TestMapClearEmptiesWithoutUnpromoting(t *testing.T) {
	h := pageheap.NewHeap()
	m := NewMap(h)
	for i := 0; i < SmallMapSlots+1; i++ {
		m.Put(value.FromInt(int32(i)), value.FromInt(int32(i)))
	}
	if !m.isHash() {
		t.Fatal("expected the map to have promoted to hash form")
	}
	m.Clear()
	if m.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", m.Len())
	}
	if !m.isHash() {
		t.Error("Clear should not un-promote a hash-form map back to small form")
	}
}

func TestMapGrowsBeyondInitialHashCapacity(t *testing.T) {
	h := pageheap.NewHeap()
	m := NewMap(h)
	n := hashInitialCap * 3
	for i := 0; i < n; i++ {
		m.Put(value.FromInt(int32(i)), value.FromInt(int32(i)))
	}
	if m.Len() != n {
		t.Fatalf("Len() = %d, want %d", m.Len(), n)
	}
	for i := 0; i < n; i++ {
		if got := m.Get(value.FromInt(int32(i))); !got.Equal(value.FromInt(int32(i))) {
			t.Fatalf("Get(%d) = %v, want %d (hashGrow lost an entry)", i, got, i)
		}
	}
}
