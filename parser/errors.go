package parser

import (
	"fmt"

	"github.com/krstoff/defunct/reader"
)

// Error is a parse error: one case per structural violation in spec.md
// §4.5/§7 (malformed special form, wrong arity, bindings not in a
// vector, unbalanced cond/let, wrong primitive arity).
type Error struct {
	Pos    reader.Pos
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Reason)
}
