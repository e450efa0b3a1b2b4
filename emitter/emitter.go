// Package emitter walks a parser.Expr AST and produces bytecode.CodeObject
// values, managing a logical stack-pointer model and a scope stack of
// (ident, slot) bindings (spec.md §4.6). Grounded, case for case, in
// _examples/original_source/src/compiler/emit.rs's Emitter/emit, ported
// from Rust's Result-returning recursion to Go's explicit error returns.
package emitter

import (
	"fmt"

	"github.com/krstoff/defunct/bytecode"
	"github.com/krstoff/defunct/heapobj"
	"github.com/krstoff/defunct/pageheap"
	"github.com/krstoff/defunct/parser"
	"github.com/krstoff/defunct/symboltable"
	"github.com/krstoff/defunct/value"
)

// maxBytes is the byte-operand ceiling spec.md §4.6 documents as a known
// scaling wart: constant pool, code buffer, and stack slots all top out
// at one byte.
const maxBytes = 256

// Emitter holds the state carried during emission of one code object: a
// growable instruction buffer, a growable constant pool, a logical stack
// pointer, a scope, and the list of nested code objects produced by any
// `fn` bodies encountered along the way. Nested code objects are arena-
// allocated as soon as their `fn` body finishes, since the enclosing
// Closure instruction needs a real *heapobj.CodeObject value to park in
// its own constant pool (original_source keeps these as Val::CodeObject
// entries in the const pool for the same reason).
type Emitter struct {
	isFn     bool
	arity    int
	consts   []value.Value
	code     []byte
	sp       int
	scope    *scope
	symbols  *symboltable.Table
	heap     *pageheap.Heap
	codeObjs []*heapobj.CodeObject
}

func newEmitter(isFn bool, startSP, arity int, symbols *symboltable.Table, heap *pageheap.Heap) *Emitter {
	return &Emitter{isFn: isFn, arity: arity, sp: startSP, scope: newScope(), symbols: symbols, heap: heap}
}

// Emit compiles expr into one or more code objects (nested `fn` bodies
// produce additional ones) and returns them with the entry point as the
// last element, matching the compile pipeline's documented convention
// (spec.md §8 scenario 7's "compile(src) -> Vec<ByteCode>, entrypoint =
// last element").
func Emit(symbols *symboltable.Table, heap *pageheap.Heap, expr parser.Expr) (objs []*heapobj.CodeObject, err error) {
	defer func() {
		if r := recover(); r != nil {
			if r != any(errTooManyInstructions) {
				panic(r)
			}
			objs, err = nil, errTooManyInstructions
		}
	}()
	e := newEmitter(false, 0, 0, symbols, heap)
	if err := e.emit(expr); err != nil {
		return nil, err
	}
	return e.finish("toplevel"), nil
}

func (e *Emitter) finish(name string) []*heapobj.CodeObject {
	if !e.isFn {
		e.pushCode(byte(bytecode.Halt))
	}
	self := heapobj.NewCodeObject(e.heap, e.consts, e.code, e.arity, name)
	return append(e.codeObjs, self)
}

// errTooManyInstructions is raised by pushCode as a panic and returned
// as an error by Emit.
var errTooManyInstructions = fmt.Errorf("emitter: too many instructions in one code object")

func (e *Emitter) pushCode(b byte) int {
	if len(e.code) >= maxBytes {
		panic(errTooManyInstructions)
	}
	e.code = append(e.code, b)
	return len(e.code) - 1
}

func (e *Emitter) pushConst(v value.Value) (byte, error) {
	if len(e.consts) >= maxBytes {
		return 0, fmt.Errorf("emitter: too many constants in one code object")
	}
	idx := byte(len(e.consts))
	e.consts = append(e.consts, v)
	return idx, nil
}

func (e *Emitter) write(codeIndex int, b byte) {
	e.code[codeIndex] = b
}

func (e *Emitter) end() int { return len(e.code) }

func (e *Emitter) emitConst(v value.Value) error {
	idx, err := e.pushConst(v)
	if err != nil {
		return err
	}
	e.pushCode(byte(bytecode.Const))
	e.pushCode(idx)
	return nil
}

// SlotTooLargeError is returned when a local or argument needs a slot
// beyond the one-byte operand range (spec.md §4.6's EmitError).
type SlotTooLargeError struct{ Slot int }

func (e *SlotTooLargeError) Error() string {
	return fmt.Sprintf("emitter: slot %d exceeds the one-byte operand range", e.Slot)
}

func (e *Emitter) emit(expr parser.Expr) error {
	switch n := expr.(type) {
	case parser.NumLiteral:
		v := value.FromInt(n.IntVal)
		if n.IsFloat {
			v = value.FromDouble(n.FloatVal)
		}
		return e.emitConst(v)

	case parser.VectorLiteral:
		return e.emitVectorLiteral(n)

	case parser.MapLiteral:
		return e.emitMapLiteral(n)

	case parser.Ident:
		return e.emitIdent(n)

	case parser.Keyword:
		sym := e.symbols.Intern(n.Name)
		return e.emitConst(symboltable.ToValue(sym))

	case parser.PrimOp:
		return e.emitPrimOp(n)

	case parser.Apply:
		return e.emitApply(n)

	case parser.Let:
		return e.emitLet(n)

	case parser.Fn:
		return e.emitFn(n)

	case parser.Do:
		return e.emitDo(n)

	case parser.If:
		return e.emitIf(n)

	case parser.Set:
		return e.emitSet(n)

	case parser.Return:
		if err := e.emit(n.Value); err != nil {
			return err
		}
		if e.sp > 255 {
			return &SlotTooLargeError{e.sp}
		}
		e.pushCode(byte(bytecode.Ret))
		e.pushCode(byte(e.sp))
		return nil

	default:
		return fmt.Errorf("emitter: unhandled AST node %T", expr)
	}
}

func (e *Emitter) emitVectorLiteral(n parser.VectorLiteral) error {
	e.pushCode(byte(bytecode.VecNew))
	vecSlot := e.sp
	e.sp++
	for _, item := range n.Elems {
		if vecSlot > 255 {
			return &SlotTooLargeError{vecSlot}
		}
		e.pushCode(byte(bytecode.Dup))
		e.pushCode(byte(vecSlot))
		e.sp++
		if err := e.emit(item); err != nil {
			return err
		}
		e.pushCode(byte(bytecode.VecPush))
		e.sp--
	}
	e.sp--
	return nil
}

func (e *Emitter) emitMapLiteral(n parser.MapLiteral) error {
	e.pushCode(byte(bytecode.MapNew))
	mapSlot := e.sp
	e.sp++
	for _, pair := range n.Pairs {
		if mapSlot > 255 {
			return &SlotTooLargeError{mapSlot}
		}
		e.pushCode(byte(bytecode.Dup))
		e.pushCode(byte(mapSlot))
		e.sp++
		if err := e.emit(pair.Key); err != nil {
			return err
		}
		if err := e.emit(pair.Value); err != nil {
			return err
		}
		e.pushCode(byte(bytecode.MapSet))
		e.sp--
	}
	e.sp--
	return nil
}

func (e *Emitter) emitIdent(n parser.Ident) error {
	if slot, ok := e.scope.lookup(n.Name); ok {
		if slot > 255 {
			return &SlotTooLargeError{slot}
		}
		e.pushCode(byte(bytecode.Dup))
		e.pushCode(byte(slot))
		return nil
	}
	sym := e.symbols.Intern(n.Name)
	if err := e.emitConst(symboltable.ToValue(sym)); err != nil {
		return err
	}
	e.pushCode(byte(bytecode.SymGet))
	return nil
}

func (e *Emitter) emitPrimOp(n parser.PrimOp) error {
	op, ok := primOpcode(n.Op)
	if !ok {
		return fmt.Errorf("emitter: unknown primitive operator %q", n.Op)
	}
	if err := e.emit(n.Left); err != nil {
		return err
	}
	e.sp++
	if err := e.emit(n.Right); err != nil {
		return err
	}
	e.pushCode(byte(op))
	e.sp--
	return nil
}

func primOpcode(op string) (bytecode.Op, bool) {
	switch op {
	case "+":
		return bytecode.Add, true
	case "-":
		return bytecode.Sub, true
	case "*":
		return bytecode.Mul, true
	case "/":
		return bytecode.Div, true
	case "<":
		return bytecode.Lt, true
	case ">":
		return bytecode.Gt, true
	case "<=":
		return bytecode.Lte, true
	case ">=":
		return bytecode.Gte, true
	case "eq":
		return bytecode.Eq, true
	default:
		return 0, false
	}
}

func (e *Emitter) emitApply(n parser.Apply) error {
	for _, arg := range n.Args {
		if err := e.emit(arg); err != nil {
			return err
		}
		e.sp++
	}
	if err := e.emit(n.Callee); err != nil {
		return err
	}
	if len(n.Args) > 255 {
		return &SlotTooLargeError{len(n.Args)}
	}
	e.pushCode(byte(bytecode.Call))
	e.pushCode(byte(len(n.Args)))
	e.sp -= len(n.Args)
	return nil
}

func (e *Emitter) emitLet(n parser.Let) error {
	type pending struct {
		name string
		slot int
	}
	var bound []pending
	for _, b := range n.Bindings {
		if err := e.emit(b.Init); err != nil {
			return err
		}
		bound = append(bound, pending{b.Name, e.sp})
		e.sp++
	}
	for _, b := range bound {
		e.scope.push(b.name, b.slot)
	}
	if err := e.emit(n.Body); err != nil {
		return err
	}
	for range n.Bindings {
		e.scope.pop()
	}
	e.sp -= len(n.Bindings)
	if len(n.Bindings) > 255 {
		return &SlotTooLargeError{len(n.Bindings)}
	}
	e.pushCode(byte(bytecode.PopSave))
	e.pushCode(byte(len(n.Bindings)))
	return nil
}

func (e *Emitter) emitFn(n parser.Fn) error {
	if len(n.Params) > 255 {
		return &SlotTooLargeError{len(n.Params)}
	}
	body := newEmitter(true, len(n.Params), len(n.Params), e.symbols, e.heap)
	for i, p := range n.Params {
		body.scope.push(p, i)
	}
	if err := body.emit(n.Body); err != nil {
		return err
	}
	body.pushCode(byte(bytecode.Ret))
	body.pushCode(byte(len(n.Params)))

	nested := body.finish(fmt.Sprintf("fn/%d", len(n.Params)))
	entry := nested[len(nested)-1]
	e.codeObjs = append(e.codeObjs, nested...)

	idx, err := e.pushConst(heapobj.CodeObjectToValue(entry))
	if err != nil {
		return err
	}
	e.pushCode(byte(bytecode.Closure))
	e.pushCode(idx)
	return nil
}

func (e *Emitter) emitDo(n parser.Do) error {
	if len(n.Exprs) == 0 {
		return e.emitConst(value.Nil)
	}
	for i, expr := range n.Exprs {
		if i > 0 {
			e.pushCode(byte(bytecode.Pop))
			e.pushCode(1)
		}
		if err := e.emit(expr); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) emitIf(n parser.If) error {
	if err := e.emit(n.Cond); err != nil {
		return err
	}
	e.pushCode(byte(bytecode.BrNil))
	brParam := e.pushCode(0)

	if err := e.emit(n.Then); err != nil {
		return err
	}
	e.pushCode(byte(bytecode.Jmp))
	jmpParam := e.pushCode(0)

	if err := e.emit(n.Else); err != nil {
		return err
	}
	// Both offsets are measured from the instruction pointer as it stands
	// right after this jump's own operand byte has been read (see vm's
	// step() for Jmp/BrNil). jmpParam - brParam lands exactly on the first
	// instruction of the else-branch; end()-jmpParam-1 lands exactly past
	// it. The "-1" corrects an off-by-one in
	// original_source/src/compiler/emit.rs's Jmp patch (it writes
	// end()-jmpParam, which overshoots by one byte — see DESIGN.md).
	e.write(brParam, byte(jmpParam-brParam))
	e.write(jmpParam, byte(e.end()-jmpParam-1))
	return nil
}

func (e *Emitter) emitSet(n parser.Set) error {
	if slot, ok := e.scope.lookup(n.Name); ok {
		if err := e.emit(n.Value); err != nil {
			return err
		}
		if slot > 255 {
			return &SlotTooLargeError{slot}
		}
		e.pushCode(byte(bytecode.SlotSet))
		e.pushCode(byte(slot))
		return nil
	}
	sym := e.symbols.Intern(n.Name)
	if err := e.emitConst(symboltable.ToValue(sym)); err != nil {
		return err
	}
	if err := e.emit(n.Value); err != nil {
		return err
	}
	e.pushCode(byte(bytecode.SymSet))
	return nil
}
