package emitter

// slot is a position relative to the current frame's base on the value
// stack (spec.md's GLOSSARY "Slot").
type slot = int

// scope is a stack of (name, slot) pairs tracking which value-stack
// position each lexically bound local currently occupies. Lookup is a
// linear reverse scan so shadowing resolves to the innermost binding.
// Grounded in _examples/original_source/src/compiler/emit.rs's Scope.
type scope struct {
	names []string
	slots []slot
}

func newScope() *scope {
	return &scope{}
}

func (s *scope) push(name string, sl slot) {
	s.names = append(s.names, name)
	s.slots = append(s.slots, sl)
}

// pop removes the most recently pushed binding. It panics on an
// unbalanced pop, matching the original's "Unbalanced scope exit"
// expect().
func (s *scope) pop() {
	if len(s.names) == 0 {
		panic("emitter: unbalanced scope exit")
	}
	s.names = s.names[:len(s.names)-1]
	s.slots = s.slots[:len(s.slots)-1]
}

// lookup returns the innermost slot bound to name, if any.
func (s *scope) lookup(name string) (slot, bool) {
	for i := len(s.names) - 1; i >= 0; i-- {
		if s.names[i] == name {
			return s.slots[i], true
		}
	}
	return 0, false
}
