// Package vm executes defunct bytecode: a single value stack, a current
// frame, and a back-stack of suspended frames (spec.md §3's "VM state").
// Grounded throughout in
// _examples/original_source/src/vm/mod.rs's Vm::step/run, expanded from
// its `unimplemented!()` type-error panics into typed *RuntimeError
// values (spec.md §7: runtime type/structural errors are fatal, but
// should "report kind and current ip").
package vm

import (
	"fmt"

	"github.com/krstoff/defunct/bytecode"
	"github.com/krstoff/defunct/globalctx"
	"github.com/krstoff/defunct/heapobj"
	"github.com/krstoff/defunct/symboltable"
	"github.com/krstoff/defunct/value"
)

// RuntimeError is a fatal VM error: a type error, a stack-structure
// violation, or a call-frame underflow (spec.md §7's "runtime type
// errors" and "runtime structural errors", both fatal).
type RuntimeError struct {
	Kind   string
	IP     int
	Reason string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("vm: %s at ip=%d: %s", e.Kind, e.IP, e.Reason)
}

// VM interprets one entry code object against a shared global context.
type VM struct {
	Trace  bool
	global *globalctx.Global
	fp     frame
	frames []frame
	values []value.Value
}

// New constructs a VM ready to run entry with initArgs already seated on
// the value stack (spec.md §4.8 scenario wiring: a program's top-level
// code object has arity 0, so initArgs is normally empty; callers that
// want to invoke an arbitrary closure directly may seed arguments here).
func New(global *globalctx.Global, entry *heapobj.CodeObject, initArgs []value.Value, trace bool) *VM {
	values := make([]value.Value, len(initArgs))
	copy(values, initArgs)
	return &VM{
		Trace:  trace,
		global: global,
		values: values,
		fp: frame{
			constants: entry.Consts,
			code:      entry.Code,
		},
	}
}

func (m *VM) fail(kind, reason string) {
	panic(&RuntimeError{Kind: kind, IP: m.fp.ip, Reason: reason})
}

func (m *VM) pop() value.Value {
	if len(m.values) == 0 {
		m.fail("stack-underflow", "value stack was too small")
	}
	last := len(m.values) - 1
	v := m.values[last]
	m.values = m.values[:last]
	return v
}

func (m *VM) push(v value.Value) {
	m.values = append(m.values, v)
}

func (m *VM) takeOperand() byte {
	b := m.fp.code[m.fp.ip]
	m.fp.ip++
	return b
}

// Run drives step() to completion and returns the VM's final value, or
// the *RuntimeError that halted it. heapobj's own bounds checks (vector
// index, empty pop) panic with a bare string rather than a *RuntimeError
// — they have no ip to report — so any panic surfacing here, not just
// ones m.fail already raised, is wrapped uniformly: spec.md §7 requires
// every fatal condition to "report kind and current ip", not just the
// ones this package happens to originate itself.
func (m *VM) Run() (result value.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			if re, ok := r.(*RuntimeError); ok {
				err = re
				return
			}
			err = &RuntimeError{Kind: "fatal", IP: m.fp.ip, Reason: fmt.Sprint(r)}
		}
	}()
	for {
		if m.Trace {
			m.printState()
		}
		if m.step() {
			if len(m.values) == 0 {
				m.fail("stack-underflow", "VM halted without a final value")
			}
			return m.values[len(m.values)-1], nil
		}
	}
}

// step executes one instruction. It returns true if the VM must halt.
func (m *VM) step() bool {
	opByte := m.fp.code[m.fp.ip]
	m.fp.ip++
	op, ok := bytecode.FromByte(opByte)
	if !ok {
		m.fail("bad-opcode", fmt.Sprintf("byte %d does not name an opcode", opByte))
	}

	switch op {
	case bytecode.Halt:
		return true

	case bytecode.Const:
		i := m.takeOperand()
		m.push(m.fp.constants[i])

	case bytecode.Pop:
		n := m.takeOperand()
		for i := byte(0); i < n; i++ {
			m.pop()
		}

	case bytecode.PopSave:
		n := m.takeOperand()
		v := m.pop()
		for i := byte(0); i < n; i++ {
			m.pop()
		}
		m.push(v)

	case bytecode.Dup:
		i := m.takeOperand()
		m.push(m.values[m.fp.base+int(i)])

	case bytecode.SlotSet:
		i := m.takeOperand()
		if len(m.values) == 0 {
			m.fail("stack-underflow", "slotset with an empty value stack")
		}
		m.values[m.fp.base+int(i)] = m.values[len(m.values)-1]

	case bytecode.BrNil:
		cond := m.pop()
		offset := m.takeOperand()
		if cond.IsNil() {
			m.fp.ip += int(offset)
		}

	case bytecode.Jmp:
		offset := m.takeOperand()
		m.fp.ip += int(offset)

	case bytecode.Call:
		return m.doCall()

	case bytecode.Ret:
		m.doRet()

	case bytecode.Add:
		m.binaryMathOp(func(a, b int32) int32 { return a + b }, func(a, b float64) float64 { return a + b })
	case bytecode.Sub:
		m.binaryMathOp(func(a, b int32) int32 { return a - b }, func(a, b float64) float64 { return a - b })
	case bytecode.Mul:
		m.binaryMathOp(func(a, b int32) int32 { return a * b }, func(a, b float64) float64 { return a * b })
	case bytecode.Div:
		m.binaryMathOp(func(a, b int32) int32 { return a / b }, func(a, b float64) float64 { return a / b })

	case bytecode.Lt:
		m.binaryLogicOp(func(a, b int32) bool { return a < b }, func(a, b float64) bool { return a < b })
	case bytecode.Gt:
		m.binaryLogicOp(func(a, b int32) bool { return a > b }, func(a, b float64) bool { return a > b })
	case bytecode.Lte:
		m.binaryLogicOp(func(a, b int32) bool { return a <= b }, func(a, b float64) bool { return a <= b })
	case bytecode.Gte:
		m.binaryLogicOp(func(a, b int32) bool { return a >= b }, func(a, b float64) bool { return a >= b })

	case bytecode.Eq:
		right := m.pop()
		left := m.pop()
		m.push(value.FromBool(left.Equal(right)))

	case bytecode.MapNew:
		mp := heapobj.NewMap(m.global.Heap())
		m.push(heapobj.MapToValue(mp))

	case bytecode.MapGet:
		key := m.pop()
		mapVal := m.pop()
		m.push(m.asMap(mapVal, "mapget").Get(key))

	case bytecode.MapSet:
		val := m.pop()
		key := m.pop()
		mapVal := m.pop()
		m.asMap(mapVal, "mapset").Put(key, val)

	case bytecode.MapDel:
		key := m.pop()
		mapVal := m.pop()
		m.push(m.asMap(mapVal, "mapdel").Remove(key))

	case bytecode.VecNew:
		vec := heapobj.NewVector(m.global.Heap())
		m.push(heapobj.VectorToValue(vec))

	case bytecode.VecGet:
		index := m.pop()
		vecVal := m.pop()
		i := m.asIndex(index, "vecget")
		m.push(m.asVector(vecVal, "vecget").Get(i))

	case bytecode.VecSet:
		val := m.pop()
		index := m.pop()
		vecVal := m.pop()
		i := m.asIndex(index, "vecset")
		m.asVector(vecVal, "vecset").Set(i, val)

	case bytecode.VecPush:
		val := m.pop()
		vecVal := m.pop()
		m.asVector(vecVal, "vecpush").Push(val)

	case bytecode.VecPop:
		vecVal := m.pop()
		m.push(m.asVector(vecVal, "vecpop").Pop())

	case bytecode.SymGet:
		symVal := m.pop()
		sym := m.asSymbol(symVal, "symget")
		v, ok := sym.Get()
		if !ok {
			m.fail("unbound-symbol", fmt.Sprintf("symbol %q has no value", sym.Name))
		}
		m.push(v)

	case bytecode.SymSet:
		val := m.pop()
		symVal := m.pop()
		m.asSymbol(symVal, "symset").Set(val)
		m.push(val)

	case bytecode.Closure:
		i := m.takeOperand()
		co := heapobj.CodeObjectFromValue(m.fp.constants[i])
		m.push(heapobj.ClosureToValue(heapobj.NewClosure(m.global.Heap(), co)))

	default:
		m.fail("bad-opcode", fmt.Sprintf("opcode %s has no step() case", op))
	}
	return false
}

func (m *VM) doCall() bool {
	n := m.takeOperand()
	callee := m.pop()
	kind, _ := callee.Classify()
	switch kind {
	case value.KindFunction:
		cl := heapobj.ClosureFromValue(callee)
		m.frames = append(m.frames, m.fp)
		m.fp = frame{
			ip:        0,
			base:      len(m.values) - int(n),
			constants: cl.Code.Consts,
			code:      cl.Code.Code,
			env:       cl.Env,
		}
		return false
	case value.KindNativeFn:
		native := heapobj.NativeFnFromValue(callee)
		if len(m.values) < int(n) {
			m.fail("stack-underflow", "native call with fewer than n arguments on the stack")
		}
		begin := len(m.values) - int(n)
		result, shouldHalt := native.Call(m.values[begin:], m.global)
		if shouldHalt {
			m.values = m.values[:begin]
			m.push(result)
			return true
		}
		m.values = m.values[:begin]
		m.push(result)
		return false
	default:
		m.fail("type-error", fmt.Sprintf("call target is not callable (kind=%v)", kind))
		return false
	}
}

func (m *VM) doRet() {
	if len(m.frames) == 0 {
		m.fail("frame-underflow", "ret with no suspended caller frame")
	}
	n := m.takeOperand()
	val := m.values[m.fp.base+int(n)]
	m.values = m.values[:m.fp.base]
	m.push(val)
	m.fp = m.frames[len(m.frames)-1]
	m.frames = m.frames[:len(m.frames)-1]
}

func (m *VM) binaryMathOp(intOp func(a, b int32) int32, floatOp func(a, b float64) float64) {
	right := m.pop()
	left := m.pop()
	if li, lok := left.Int(); lok {
		if ri, rok := right.Int(); rok {
			m.push(value.FromInt(intOp(li, ri)))
			return
		}
	}
	if ld, lok := left.Double(); lok {
		if rd, rok := right.Double(); rok {
			m.push(value.FromDouble(floatOp(ld, rd)))
			return
		}
	}
	if left.IsPointer() || right.IsPointer() {
		m.fail("type-error", "arithmetic operand is a heap pointer, not a number")
		return
	}
	m.push(value.FromDouble(floatOp(asFloat(left), asFloat(right))))
}

func (m *VM) binaryLogicOp(intOp func(a, b int32) bool, floatOp func(a, b float64) bool) {
	right := m.pop()
	left := m.pop()
	if li, lok := left.Int(); lok {
		if ri, rok := right.Int(); rok {
			m.push(value.FromBool(intOp(li, ri)))
			return
		}
	}
	if ld, lok := left.Double(); lok {
		if rd, rok := right.Double(); rok {
			m.push(value.FromBool(floatOp(ld, rd)))
			return
		}
	}
	if left.IsPointer() || right.IsPointer() {
		m.fail("type-error", "comparison operand is a heap pointer, not a number")
		return
	}
	m.push(value.FromBool(floatOp(asFloat(left), asFloat(right))))
}

// asFloat coerces a mixed int/double operand pair the way
// original_source's primitive_math_op! macro does in its final,
// catch-all arm: whichever side is an int gets widened to float64.
func asFloat(v value.Value) float64 {
	if i, ok := v.Int(); ok {
		return float64(i)
	}
	d, _ := v.Double()
	return d
}

func (m *VM) asMap(v value.Value, op string) *heapobj.Map {
	kind, _ := v.Classify()
	if kind != value.KindMap {
		m.fail("type-error", fmt.Sprintf("%s expects a map, got kind=%v", op, kind))
	}
	return heapobj.MapFromValue(v)
}

func (m *VM) asVector(v value.Value, op string) *heapobj.Vector {
	kind, _ := v.Classify()
	if kind != value.KindVector {
		m.fail("type-error", fmt.Sprintf("%s expects a vector, got kind=%v", op, kind))
	}
	return heapobj.VectorFromValue(v)
}

func (m *VM) asSymbol(v value.Value, op string) *symboltable.Symbol {
	kind, _ := v.Classify()
	if kind != value.KindSymbol || v.IsNil() || v.IsT() {
		m.fail("type-error", fmt.Sprintf("%s expects a bound symbol, got kind=%v", op, kind))
	}
	return symboltable.FromValue(v)
}

func (m *VM) asIndex(v value.Value, op string) int {
	i, ok := v.Int()
	if !ok || i < 0 {
		m.fail("type-error", fmt.Sprintf("%s expects a non-negative int index", op))
	}
	return int(i)
}

func (m *VM) printState() {
	op, _ := bytecode.FromByte(m.fp.code[m.fp.ip])
	if op.HasParam() {
		fmt.Printf("%s #%d\t%v\n", op, m.fp.code[m.fp.ip+1], m.values)
	} else {
		fmt.Printf("%s\t%v\n", op, m.values)
	}
}
