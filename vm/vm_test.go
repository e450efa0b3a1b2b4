package vm

import (
	"testing"

	"github.com/krstoff/defunct/asm"
	"github.com/krstoff/defunct/globalctx"
	"github.com/krstoff/defunct/value"
)

// asmRun assembles src and runs it to completion, grounded in the same
// assemble-then-run shape as
// _examples/original_source/tests/special_forms.rs.
func asmRun(t *testing.T, src string) (value.Value, error) {
	t.Helper()
	global := globalctx.New()
	co, err := asm.Assemble(global, "test", src)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	m := New(global, co, nil, false)
	return m.Run()
}

func TestMixedIntDoubleArithmeticWidensToDouble(t *testing.T) {
	v, err := asmRun(t, "const 1\nconst 2.5\nadd\nhalt")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	d, ok := v.Double()
	if !ok || d != 3.5 {
		t.Errorf("got %v, want double 3.5", v)
	}
}

func TestBothIntArithmeticStaysInt(t *testing.T) {
	v, err := asmRun(t, "const 7\nconst 2\ndiv\nhalt")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	i, ok := v.Int()
	if !ok || i != 3 {
		t.Errorf("got %v, want int 3 (integer division)", v)
	}
}

func TestArithmeticOnPointerOperandIsFatal(t *testing.T) {
	_, err := asmRun(t, "mapnew\nconst 1\nadd\nhalt")
	if err == nil {
		t.Fatal("expected a fatal RuntimeError adding a map to an int")
	}
	re, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("got error of type %T, want *RuntimeError", err)
	}
	if re.Kind != "type-error" {
		t.Errorf("Kind = %q, want type-error", re.Kind)
	}
}

func TestStackUnderflowIsFatal(t *testing.T) {
	_, err := asmRun(t, "pop #1\nhalt")
	if err == nil {
		t.Fatal("expected a fatal stack-underflow error")
	}
}

func TestMapDelPushesRemovedValue(t *testing.T) {
	v, err := asmRun(t, `
	mapnew
	dup #0
	const :k
	const 42
	mapset
	dup #0
	const :k
	mapdel
	halt
	`)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	i, ok := v.Int()
	if !ok || i != 42 {
		t.Errorf("got %v, want int 42 (the removed value)", v)
	}
}

func TestVectorOutOfRangeIndexIsFatal(t *testing.T) {
	_, err := asmRun(t, `
	vecnew
	dup #0
	const 0
	vecget
	halt
	`)
	if err == nil {
		t.Fatal("expected a fatal error indexing an empty vector")
	}
}
