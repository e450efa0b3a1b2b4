// Package bytecode defines defunct's instruction set: one-byte opcodes,
// each with an optional one-byte immediate operand, and a one-line-per-
// instruction disassembler (Disassemble).
//
// Grounded in _examples/original_source/src/bytecode.rs's OpCode enum
// (exact ordering and has_param set preserved) and in the DWARF
// location-expression opcode tables read by
// _examples/golang-debug/program/server/dwarf.go — both are "a single
// byte op plus an optional single byte immediate" encodings disassembled
// the same way.
package bytecode

// Op is a single bytecode instruction opcode.
type Op byte

const (
	Const Op = iota
	Pop
	PopSave
	Dup

	Add
	Sub
	Mul
	Div
	Lt
	Gt
	Lte
	Gte
	Eq

	BrNil
	Jmp
	Call
	Ret

	MapSet
	MapGet
	MapDel
	MapNew

	VecNew
	VecSet
	VecGet
	VecPush
	VecPop

	SymSet
	SymGet

	Closure

	// SlotSet resolves the "setting a local" Open Question (spec.md §9):
	// it writes the value on top of the stack into the frame slot given
	// by its immediate, leaving the value on the stack. Not part of the
	// distilled opcode table; added here per SPEC_FULL.md's Open
	// Question decision.
	SlotSet

	Halt
	// Halt MUST remain the last opcode: FromByte rejects anything past it.
)

var names = [...]string{
	Const:   "const",
	Pop:     "pop",
	PopSave: "popsave",
	Dup:     "dup",
	Add:     "add",
	Sub:     "sub",
	Mul:     "mul",
	Div:     "div",
	Lt:      "lt",
	Gt:      "gt",
	Lte:     "lte",
	Gte:     "gte",
	Eq:      "eq",
	BrNil:   "brnil",
	Jmp:     "jmp",
	Call:    "call",
	Ret:     "ret",
	MapSet:  "mapset",
	MapGet:  "mapget",
	MapDel:  "mapdel",
	MapNew:  "mapnew",
	VecNew:  "vecnew",
	VecSet:  "vecset",
	VecGet:  "vecget",
	VecPush: "vecpush",
	VecPop:  "vecpop",
	SymSet:  "symset",
	SymGet:  "symget",
	Closure: "closure",
	SlotSet: "slotset",
	Halt:    "halt",
}

// String returns the lowercase mnemonic for op, matching the assembler's
// textual syntax (spec.md §6).
func (op Op) String() string {
	if int(op) < len(names) {
		return names[op]
	}
	return "???"
}

// HasParam reports whether op carries a one-byte immediate operand.
func (op Op) HasParam() bool {
	switch op {
	case Const, Pop, PopSave, Dup, BrNil, Call, Ret, Jmp, Closure, SlotSet:
		return true
	default:
		return false
	}
}

// FromByte validates and converts a raw byte into an Op. It returns false
// if the byte does not name a known opcode.
func FromByte(b byte) (Op, bool) {
	if b > byte(Halt) {
		return 0, false
	}
	return Op(b), true
}

// mnemonicToOp supports the assembler's text -> opcode direction.
var mnemonicToOp = func() map[string]Op {
	m := make(map[string]Op, len(names))
	for op, name := range names {
		m[name] = Op(op)
	}
	return m
}()

// Lookup returns the Op named by mnemonic (case-sensitive, lowercase),
// for the assembler.
func Lookup(mnemonic string) (Op, bool) {
	op, ok := mnemonicToOp[mnemonic]
	return op, ok
}
