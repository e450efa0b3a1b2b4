// Package intrinsics installs defunct's fixed set of host functions into
// a symbol table (spec.md §4.9): print, exit, and the vector/map
// mutators and accessors spec.md §6 lists as built-in identifiers.
// Grounded in
// _examples/original_source/src/intrinsics.rs's `print`/`exit` (the only
// two the original implements; the vector/map builtins are new, built in
// the same `(args, global) -> (value, shouldHalt)` shape spec.md §4.9
// documents for the whole set).
package intrinsics

import (
	"fmt"

	"github.com/krstoff/defunct/globalctx"
	"github.com/krstoff/defunct/heapobj"
	"github.com/krstoff/defunct/symboltable"
	"github.com/krstoff/defunct/value"
	"github.com/krstoff/defunct/vm"
)

// Install interns every built-in name into global's symbol table and
// binds it to a native-function value, per spec.md §4.9 ("installed into
// the symbol table at VM construction").
func Install(global *globalctx.Global) {
	for _, b := range table {
		sym := global.Symbols.Intern(b.name)
		fn := &heapobj.NativeFn{Name: b.name, Call: b.fn}
		global.Heap().Root(fn)
		sym.Set(heapobj.NativeFnToValue(fn))
	}
}

var table = []struct {
	name string
	fn   heapobj.Fn
}{
	{"print", print_},
	{"exit", exit_},
	{"vector-push!", vectorPush},
	{"vector-length", vectorLength},
	{"vector-set!", vectorSet},
	{"vector-get", vectorGet},
	{"vector-pop!", vectorPop},
	{"map-put!", mapPut},
	{"map-get", mapGet},
	{"map-length", mapLength},
	{"map-remove!", mapRemove},
	{"map-clear!", mapClear},
}

func fail(kind, reason string) {
	panic(&vm.RuntimeError{Kind: kind, IP: -1, Reason: reason})
}

func checkArity(name string, args []value.Value, n int) {
	if len(args) != n {
		fail("arity-error", fmt.Sprintf("%s expects %d argument(s), got %d", name, n, len(args)))
	}
}

// display renders v the way spec.md §4.3 requires: value.Value.String()
// handles ints, doubles, and non-symbol pointers, but cannot itself name
// a symbol without importing symboltable (which would cycle back
// through value) — so symbol-tagged values are special-cased here via
// symboltable.Print, the one place that cycle is resolved.
func display(v value.Value) string {
	if kind, _ := v.Classify(); kind == value.KindSymbol {
		return symboltable.Print(v)
	}
	return v.String()
}

// print_ renders args[0] to standard output, ending in a newline;
// returns nil without halting. Grounded in intrinsics.rs's print, widened
// from Rust's `{:?}` debug dump to display's equivalent plain rendering.
func print_(args []value.Value, _ any) (value.Value, bool) {
	checkArity("print", args, 1)
	fmt.Println(display(args[0]))
	return value.Nil, false
}

// exit_ halts the VM, yielding args[0] as the final value — the Open
// Question resolution documented in DESIGN.md ("exit halts the VM with
// its argument", never os.Exit).
func exit_(args []value.Value, _ any) (value.Value, bool) {
	checkArity("exit", args, 1)
	v := args[0]
	if _, ok := v.Int(); ok {
		return v, true
	}
	if _, ok := v.Double(); ok {
		return v, true
	}
	fail("type-error", "exit expects an int or double argument")
	return value.Nil, true
}

func asVector(name string, v value.Value) *heapobj.Vector {
	kind, _ := v.Classify()
	if kind != value.KindVector {
		fail("type-error", fmt.Sprintf("%s expects a vector argument, got kind=%v", name, kind))
	}
	return heapobj.VectorFromValue(v)
}

func asMap(name string, v value.Value) *heapobj.Map {
	kind, _ := v.Classify()
	if kind != value.KindMap {
		fail("type-error", fmt.Sprintf("%s expects a map argument, got kind=%v", name, kind))
	}
	return heapobj.MapFromValue(v)
}

func asIndex(name string, v value.Value) int {
	i, ok := v.Int()
	if !ok || i < 0 {
		fail("type-error", fmt.Sprintf("%s expects a non-negative int index", name))
	}
	return int(i)
}

func vectorPush(args []value.Value, _ any) (value.Value, bool) {
	checkArity("vector-push!", args, 2)
	vec := asVector("vector-push!", args[0])
	vec.Push(args[1])
	return args[1], false
}

func vectorLength(args []value.Value, _ any) (value.Value, bool) {
	checkArity("vector-length", args, 1)
	vec := asVector("vector-length", args[0])
	return value.FromInt(int32(vec.Len())), false
}

func vectorSet(args []value.Value, _ any) (value.Value, bool) {
	checkArity("vector-set!", args, 3)
	vec := asVector("vector-set!", args[0])
	i := asIndex("vector-set!", args[1])
	vec.Set(i, args[2])
	return args[2], false
}

func vectorGet(args []value.Value, _ any) (value.Value, bool) {
	checkArity("vector-get", args, 2)
	vec := asVector("vector-get", args[0])
	i := asIndex("vector-get", args[1])
	return vec.Get(i), false
}

func vectorPop(args []value.Value, _ any) (value.Value, bool) {
	checkArity("vector-pop!", args, 1)
	vec := asVector("vector-pop!", args[0])
	return vec.Pop(), false
}

func mapPut(args []value.Value, _ any) (value.Value, bool) {
	checkArity("map-put!", args, 3)
	m := asMap("map-put!", args[0])
	m.Put(args[1], args[2])
	return args[2], false
}

func mapGet(args []value.Value, _ any) (value.Value, bool) {
	checkArity("map-get", args, 2)
	m := asMap("map-get", args[0])
	return m.Get(args[1]), false
}

func mapLength(args []value.Value, _ any) (value.Value, bool) {
	checkArity("map-length", args, 1)
	m := asMap("map-length", args[0])
	return value.FromInt(int32(m.Len())), false
}

func mapRemove(args []value.Value, _ any) (value.Value, bool) {
	checkArity("map-remove!", args, 2)
	m := asMap("map-remove!", args[0])
	return m.Remove(args[1]), false
}

func mapClear(args []value.Value, _ any) (value.Value, bool) {
	checkArity("map-clear!", args, 1)
	m := asMap("map-clear!", args[0])
	m.Clear()
	return value.Nil, false
}
