package asm

import (
	"fmt"
	"testing"

	"github.com/krstoff/defunct/globalctx"
	"github.com/krstoff/defunct/heapobj"
	"github.com/krstoff/defunct/symboltable"
	"github.com/krstoff/defunct/vm"
)

// Scenario 7 of spec.md §8, ported from
// _examples/original_source/tests/special_forms.rs's `functions` test:
// assemble a two-argument "min" function, wrap it in a closure, splice
// its raw bits into a second assembled program that calls it.
func TestAssembledMinFunction(t *testing.T) {
	global := globalctx.New()

	minFn, err := Assemble(global, "min", `
	arity #2
	dup #0
	dup #1
	lt
	brnil .gte
	ret #0
.gte
	ret #1
	`)
	if err != nil {
		t.Fatalf("Assemble(minFn): %v", err)
	}

	closure := heapobj.NewClosure(global.Heap(), minFn)
	closureVal := heapobj.ClosureToValue(closure)

	entry, err := Assemble(global, "toplevel", fmt.Sprintf(`
	const 30
	const 100
	const %%%d
	call #2
	const :toodaloo
	halt
	`, closureVal.Bits()))
	if err != nil {
		t.Fatalf("Assemble(entry): %v", err)
	}

	m := vm.New(global, entry, nil, false)
	result, err := m.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	i, ok := result.Int()
	if !ok || i != 30 {
		t.Errorf("got %v, want int 30", result)
	}
}

func TestAssembledBrNilLandsOnElseBranch(t *testing.T) {
	global := globalctx.New()
	co, err := Assemble(global, "test", `
	const %0
	brnil .else
	const 1
	jmp .end
.else
	const 2
.end
	halt
	`)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	m := vm.New(global, co, nil, false)
	result, err := m.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	i, ok := result.Int()
	if !ok || i != 2 {
		t.Errorf("got %v, want int 2 (else branch taken on nil)", result)
	}
}

func TestAssembledJmpSkipsElseBranch(t *testing.T) {
	global := globalctx.New()
	co, err := Assemble(global, "test", `
	const 1
	brnil .else
	const 1
	jmp .end
.else
	const 2
.end
	halt
	`)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	m := vm.New(global, co, nil, false)
	result, err := m.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	i, ok := result.Int()
	if !ok || i != 1 {
		t.Errorf("got %v, want int 1 (then branch taken on non-nil)", result)
	}
}

func TestAssembleUndefinedLabel(t *testing.T) {
	global := globalctx.New()
	if _, err := Assemble(global, "test", "brnil .nope\nhalt"); err == nil {
		t.Fatal("expected an error for an undefined label")
	}
}

func TestAssembleUnknownMnemonic(t *testing.T) {
	global := globalctx.New()
	if _, err := Assemble(global, "test", "frobnicate #1"); err == nil {
		t.Fatal("expected an error for an unknown mnemonic")
	}
}

func TestAssembleKeywordConstant(t *testing.T) {
	global := globalctx.New()
	co, err := Assemble(global, "test", "const :hello\nhalt")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	m := vm.New(global, co, nil, false)
	result, err := m.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := symboltable.Print(result); got != ":hello" {
		t.Errorf("got %s, want :hello", got)
	}
}
