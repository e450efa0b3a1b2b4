package intrinsics

import (
	"testing"

	"github.com/krstoff/defunct/globalctx"
	"github.com/krstoff/defunct/heapobj"
	"github.com/krstoff/defunct/value"
)

func lookup(t *testing.T, g *globalctx.Global, name string) heapobj.Fn {
	t.Helper()
	sym, ok := g.Symbols.Lookup(name)
	if !ok {
		t.Fatalf("intrinsic %q was not installed", name)
	}
	v, _ := sym.Get()
	return heapobj.NativeFnFromValue(v).Call
}

func TestInstallRegistersEveryBuiltin(t *testing.T) {
	g := globalctx.New()
	Install(g)
	for _, b := range table {
		if _, ok := g.Symbols.Lookup(b.name); !ok {
			t.Errorf("Install did not register %q", b.name)
		}
	}
}

func TestExitHaltsWithItsArgument(t *testing.T) {
	g := globalctx.New()
	Install(g)
	exit := lookup(t, g, "exit")
	v, halt := exit([]value.Value{value.FromInt(7)}, g)
	if !halt {
		t.Fatal("exit should request a halt")
	}
	i, ok := v.Int()
	if !ok || i != 7 {
		t.Errorf("got %v, want int 7", v)
	}
}

func TestExitRejectsNonNumericArgument(t *testing.T) {
	g := globalctx.New()
	Install(g)
	defer func() {
		if recover() == nil {
			t.Fatal("expected exit to panic on a non-numeric argument")
		}
	}()
	exit := lookup(t, g, "exit")
	exit([]value.Value{value.Nil}, g)
}

func TestVectorPushReturnsPushedValue(t *testing.T) {
	g := globalctx.New()
	Install(g)
	vec := heapobj.NewVector(g.Heap())
	push := lookup(t, g, "vector-push!")
	v, halt := push([]value.Value{heapobj.VectorToValue(vec), value.FromInt(9)}, g)
	if halt {
		t.Fatal("vector-push! should not halt")
	}
	i, ok := v.Int()
	if !ok || i != 9 {
		t.Errorf("got %v, want int 9", v)
	}
	if vec.Len() != 1 || vec.Get(0).Equal(value.FromInt(9)) == false {
		t.Errorf("vector state after push: len=%d", vec.Len())
	}
}

func TestMapPutAndGetRoundTrip(t *testing.T) {
	g := globalctx.New()
	Install(g)
	m := heapobj.NewMap(g.Heap())
	put := lookup(t, g, "map-put!")
	get := lookup(t, g, "map-get")

	key := value.FromInt(1)
	if _, halt := put([]value.Value{heapobj.MapToValue(m), key, value.FromInt(42)}, g); halt {
		t.Fatal("map-put! should not halt")
	}
	v, _ := get([]value.Value{heapobj.MapToValue(m), key}, g)
	i, ok := v.Int()
	if !ok || i != 42 {
		t.Errorf("got %v, want int 42", v)
	}
}

func TestMapClearReturnsNil(t *testing.T) {
	g := globalctx.New()
	Install(g)
	m := heapobj.NewMap(g.Heap())
	m.Put(value.FromInt(1), value.FromInt(2))
	clear := lookup(t, g, "map-clear!")
	v, _ := clear([]value.Value{heapobj.MapToValue(m)}, g)
	if !v.IsNil() {
		t.Errorf("got %v, want the nil sentinel", v)
	}
	if m.Len() != 0 {
		t.Errorf("map length after clear = %d, want 0", m.Len())
	}
}

func TestVectorGetWrongKindIsFatal(t *testing.T) {
	g := globalctx.New()
	Install(g)
	defer func() {
		if recover() == nil {
			t.Fatal("expected vector-get to panic on a non-vector argument")
		}
	}()
	get := lookup(t, g, "vector-get")
	get([]value.Value{value.FromInt(1), value.FromInt(0)}, g)
}

func TestArityMismatchIsFatal(t *testing.T) {
	g := globalctx.New()
	Install(g)
	defer func() {
		if recover() == nil {
			t.Fatal("expected print to panic on the wrong argument count")
		}
	}()
	p := lookup(t, g, "print")
	p(nil, g)
}
