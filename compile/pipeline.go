// Package compile wires defunct's front end together: reader, parser,
// and emitter, plus intrinsic installation, behind a single
// source-text-to-bytecode entrypoint. Grounded in
// _examples/original_source/tests/common.rs's `compile`/`eval`/`trace`
// helpers, which thread a Global through `compile(src, &mut global.st)`
// and treat the returned Vec<ByteCode>'s last element as the entrypoint.
package compile

import (
	"github.com/krstoff/defunct/emitter"
	"github.com/krstoff/defunct/globalctx"
	"github.com/krstoff/defunct/heapobj"
	"github.com/krstoff/defunct/intrinsics"
	"github.com/krstoff/defunct/parser"
	"github.com/krstoff/defunct/reader"
)

// Compile reads, parses, and emits every top-level form in src as a
// single implicit Do block, returning every code object the emission
// produced. Per emitter.Emit's contract, the last element is the
// program's entrypoint; earlier elements are the bodies of any nested
// fn expressions, included so callers (e.g. a disassembling trace tool)
// can inspect them.
func Compile(global *globalctx.Global, src string) ([]*heapobj.CodeObject, error) {
	forms, err := reader.ReadAll(src)
	if err != nil {
		return nil, err
	}
	exprs, err := parser.ParseAll(forms)
	if err != nil {
		return nil, err
	}
	program := parser.Do{Exprs: exprs}
	return emitter.Emit(global.Symbols, global.Heap(), program)
}

// NewGlobal constructs a Global with every built-in intrinsic already
// installed, the shape every Compile call expects its symbol table to be
// in (spec.md §4.9: intrinsics are "installed into the symbol table at
// VM construction").
func NewGlobal() *globalctx.Global {
	global := globalctx.New()
	intrinsics.Install(global)
	return global
}
