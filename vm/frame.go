package vm

import "github.com/krstoff/defunct/value"

// frame is one call's view into the shared value stack: an instruction
// pointer, the stack index its locals are based at, and the code object
// (split into constants/code for direct slice indexing) plus captured
// environment it is executing. Grounded in
// _examples/original_source/src/vm/mod.rs's Frame struct, with the raw
// pointer fields (`*const [Val]`) replaced by ordinary Go slices — no
// `unsafe` is needed here since a CodeObject already exposes its
// arena-backed constant pool and code buffer as Go slices (see
// DESIGN.md's "Object storage model").
type frame struct {
	ip        int
	base      int
	constants []value.Value
	code      []byte
	env       []value.Value
}
