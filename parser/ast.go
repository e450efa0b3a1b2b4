// Package parser rewrites a reader.Sexp tree into a typed, validated AST
// (spec.md §4.5). Grounded in the type-switch dispatch style of
// _examples/golang-debug/ogle/program/server/eval.go's evalNode, which
// pre-classifies a parsed node before a single large switch handles each
// case — here the classification is "which special form or primitive op
// does this list's head name", resolved once via a pre-interned ident
// table (idents.go) rather than repeated string comparison.
package parser

import "github.com/krstoff/defunct/reader"

// Expr is any parsed AST node. The concrete types below are the closed
// set the emitter switches over.
type Expr interface {
	exprNode()
	Pos() reader.Pos
}

type base struct {
	pos reader.Pos
}

func (b base) Pos() reader.Pos { return b.pos }

// NumLiteral is a parsed integer or float constant.
type NumLiteral struct {
	base
	IsFloat  bool
	IntVal   int32
	FloatVal float64
}

// Ident is a bare identifier reference (a local or a global symbol,
// disambiguated later by the emitter's scope lookup).
type Ident struct {
	base
	Name string
}

// Keyword is a colon-prefixed identifier, evaluating to its interned
// symbol (spec.md §4.5: "effectively quoted symbols").
type Keyword struct {
	base
	Name string
}

// PrimOp is one of the two-argument primitive operators.
type PrimOp struct {
	base
	Op          string
	Left, Right Expr
}

// Apply calls Callee with Args, left to right.
type Apply struct {
	base
	Callee Expr
	Args   []Expr
}

// Binding is one (name, initializer) pair inside a Let.
type Binding struct {
	Name string
	Init Expr
}

// Let evaluates each binding's initializer in order, binds it, then
// evaluates Body (itself wrapped as an implicit Do by the parser).
type Let struct {
	base
	Bindings []Binding
	Body     Expr
}

// Fn is a function literal: named parameters bound to slots 0..len(Params)
// and a body wrapped as an implicit Do.
type Fn struct {
	base
	Params []string
	Body   Expr
}

// Do evaluates each expression in order, yielding the last one's value.
type Do struct {
	base
	Exprs []Expr
}

// If evaluates Cond; if it is not the nil sentinel, evaluates Then,
// otherwise Else.
type If struct {
	base
	Cond, Then, Else Expr
}

// Set assigns Value to the symbol or local named by Name.
type Set struct {
	base
	Name  string
	Value Expr
}

// Return evaluates Value and returns it from the enclosing Fn.
type Return struct {
	base
	Value Expr
}

// VectorLiteral constructs a vector from Elems, left to right.
type VectorLiteral struct {
	base
	Elems []Expr
}

// MapPair is one key/value pair inside a MapLiteral.
type MapPair struct {
	Key, Value Expr
}

// MapLiteral constructs a map from Pairs, left to right.
type MapLiteral struct {
	base
	Pairs []MapPair
}

func (NumLiteral) exprNode()    {}
func (Ident) exprNode()         {}
func (Keyword) exprNode()       {}
func (PrimOp) exprNode()        {}
func (Apply) exprNode()         {}
func (Let) exprNode()           {}
func (Fn) exprNode()            {}
func (Do) exprNode()            {}
func (If) exprNode()            {}
func (Set) exprNode()           {}
func (Return) exprNode()        {}
func (VectorLiteral) exprNode() {}
func (MapLiteral) exprNode()    {}
