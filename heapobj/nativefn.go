package heapobj

import (
	"fmt"
	"unsafe"

	"github.com/krstoff/defunct/value"
)

// Fn is the calling convention for a host-native function: it receives
// the VM's argument slice (read-only, spec.md §4.8's "native-call
// invariant") and a handle to the global context, and returns a result
// value plus a "should halt the VM" flag. Grounded in
// _examples/original_source/src/values/native_fns.rs's
// `NativeFn(fn(&[Val], &mut Global) -> (Val, ShouldHalt))`.
type Fn func(args []value.Value, g any) (value.Value, bool)

// NativeFn wraps a host function as a heap object so it can be tagged
// and stored in a symbol's value slot like any other callable.
type NativeFn struct {
	Name string
	Call Fn
}

// NativeFnToValue wraps n as a tagged pointer value.
func NativeFnToValue(n *NativeFn) value.Value {
	return value.FromPointer(value.TagNativeFn, unsafe.Pointer(n))
}

// NativeFnFromValue reverses NativeFnToValue.
func NativeFnFromValue(v value.Value) *NativeFn {
	if v.Tag() != value.TagNativeFn {
		panic(fmt.Sprintf("heapobj: value %v is not a native function", v))
	}
	return (*NativeFn)(v.Pointer())
}
