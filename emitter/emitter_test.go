package emitter

import (
	"testing"

	"github.com/krstoff/defunct/bytecode"
	"github.com/krstoff/defunct/pageheap"
	"github.com/krstoff/defunct/parser"
	"github.com/krstoff/defunct/reader"
	"github.com/krstoff/defunct/symboltable"
)

func emitSrc(t *testing.T, src string) []byte {
	t.Helper()
	forms, err := reader.ReadAll(src)
	if err != nil {
		t.Fatalf("reader.ReadAll(%q): %v", src, err)
	}
	if len(forms) != 1 {
		t.Fatalf("expected one top-level form in %q", src)
	}
	expr, err := parser.Parse(forms[0])
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	heap := pageheap.NewHeap()
	objs, err := Emit(symboltable.New(heap), heap, expr)
	if err != nil {
		t.Fatalf("Emit(%q): %v", src, err)
	}
	return objs[len(objs)-1].Code
}

// spec.md §8: "For every emitted If, following BrNil by its encoded
// offset lands on the first instruction of the else-branch; following
// Jmp lands past the else-branch." This is the property the BrNil/Jmp
// offset fix (see DESIGN.md) exists to satisfy.
func TestIfBranchOffsetsLandCorrectly(t *testing.T) {
	code := emitSrc(t, "(if (> 1 2) 0 99)")

	i := 0
	for i < len(code) {
		op, ok := bytecode.FromByte(code[i])
		if !ok {
			t.Fatalf("invalid opcode byte %d at %d", code[i], i)
		}
		if op == bytecode.BrNil {
			operandPos := i + 1
			offset := int8(code[operandPos])
			landing := operandPos + 1 + int(offset)

			elseOp, ok := bytecode.FromByte(code[landing])
			if !ok {
				t.Fatalf("BrNil landing at %d is not a valid opcode byte", landing)
			}
			if elseOp != bytecode.Const {
				t.Errorf("BrNil should land on the else branch's first instruction (const), got %s", elseOp)
			}
		}
		if op.HasParam() {
			i += 2
		} else {
			i++
		}
	}
}

func TestJmpLandsPastElseBranch(t *testing.T) {
	code := emitSrc(t, "(if (> 1 2) 0 99)")

	var jmpPos = -1
	i := 0
	for i < len(code) {
		op, ok := bytecode.FromByte(code[i])
		if !ok {
			t.Fatalf("invalid opcode byte %d at %d", code[i], i)
		}
		if op == bytecode.Jmp {
			jmpPos = i
			break
		}
		if op.HasParam() {
			i += 2
		} else {
			i++
		}
	}
	if jmpPos == -1 {
		t.Fatal("expected exactly one Jmp instruction")
	}
	operandPos := jmpPos + 1
	offset := int8(code[operandPos])
	landing := operandPos + 1 + int(offset)

	op, ok := bytecode.FromByte(code[landing])
	if !ok {
		t.Fatalf("Jmp landing at %d is not a valid opcode byte", landing)
	}
	if op != bytecode.Halt {
		t.Errorf("Jmp should land past the else branch (at Halt), got %s at %d", op, landing)
	}
}

func TestNestedFnSplicesCodeObjectBeforeEnclosing(t *testing.T) {
	forms, err := reader.ReadAll("(fn [x] (+ x 1))")
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	expr, err := parser.Parse(forms[0])
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	heap := pageheap.NewHeap()
	objs, err := Emit(symboltable.New(heap), heap, expr)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(objs) != 2 {
		t.Fatalf("expected 2 code objects (the fn body plus toplevel), got %d", len(objs))
	}
	if objs[0].Arity != 1 {
		t.Errorf("nested fn's arity = %d, want 1", objs[0].Arity)
	}
	if objs[1].Name != "toplevel" {
		t.Errorf("last code object's name = %q, want toplevel", objs[1].Name)
	}
}
