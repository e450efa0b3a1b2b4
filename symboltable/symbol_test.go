package symboltable

import (
	"testing"

	"github.com/krstoff/defunct/pageheap"
	"github.com/krstoff/defunct/value"
)

// spec.md §8: "Interning is idempotent: intern(s) == intern(copyOf(s))
// for any two byte-equal inputs."
func TestInternIsIdempotent(t *testing.T) {
	tbl := New(pageheap.NewHeap())
	a := tbl.Intern("foo")
	b := tbl.Intern(string([]byte{'f', 'o', 'o'}))
	if a != b {
		t.Errorf("Intern returned distinct cells for byte-equal names: %p != %p", a, b)
	}
}

func TestInternDistinctNamesGetDistinctCells(t *testing.T) {
	tbl := New(pageheap.NewHeap())
	if tbl.Intern("foo") == tbl.Intern("bar") {
		t.Error("distinct names interned to the same cell")
	}
}

func TestLookupFindsAlreadyInternedName(t *testing.T) {
	tbl := New(pageheap.NewHeap())
	want := tbl.Intern("foo")
	got, ok := tbl.Lookup("foo")
	if !ok || got != want {
		t.Errorf("Lookup(%q) = %p, %v; want %p, true", "foo", got, ok, want)
	}
}

func TestLookupMissesUninternedName(t *testing.T) {
	tbl := New(pageheap.NewHeap())
	if _, ok := tbl.Lookup("never-interned"); ok {
		t.Error("Lookup found a name that was never interned")
	}
}

func TestSetValueOnNilSentinelPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic assigning to the nil sentinel")
		}
	}()
	SetValue(value.Nil, value.FromInt(1))
}

func TestPrintRendersNameAndSentinels(t *testing.T) {
	tbl := New(pageheap.NewHeap())
	sym := tbl.Intern("toodaloo")
	if got := Print(ToValue(sym)); got != ":toodaloo" {
		t.Errorf("Print(sym) = %q, want :toodaloo", got)
	}
	if got := Print(value.Nil); got != ":nil" {
		t.Errorf("Print(nil) = %q, want :nil", got)
	}
}
