// Package reader turns defunct source text into S-expressions: the text
// "characters -> implicit tokens -> tree" phase of the pipeline (spec.md
// §4.4). Grounded in the scanning style of
// _examples/golang-debug/internal/gocore/dwarf.go and
// _examples/golang-debug/dwtest/testdata/dwdumploc.go, which both track a
// running position into a byte stream for error reporting; here that
// position is a line/column pair over UTF-8 source text rather than a
// byte offset into a DWARF section.
package reader

import "fmt"

// Kind discriminates the S-expression node variants.
type Kind int

const (
	KindList Kind = iota
	KindVector
	KindMap
	KindKeyword
	KindNumber
	KindIdent
)

// Sexp is one parsed S-expression node, tagged by Kind with the other
// fields populated according to which kind it is.
type Sexp struct {
	Kind Kind
	Pos  Pos

	// KindList / KindVector / KindMap
	Items []Sexp

	// KindKeyword / KindIdent
	Name string

	// KindNumber
	IsFloat  bool
	IntVal   int32
	FloatVal float64
}

// Pos is a source location, 1-indexed like most editors.
type Pos struct {
	Line, Col int
}

func (p Pos) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Col) }

func (s Sexp) String() string {
	switch s.Kind {
	case KindList:
		return "(" + joinSexps(s.Items) + ")"
	case KindVector:
		return "[" + joinSexps(s.Items) + "]"
	case KindMap:
		return "{" + joinSexps(s.Items) + "}"
	case KindKeyword:
		return ":" + s.Name
	case KindIdent:
		return s.Name
	case KindNumber:
		if s.IsFloat {
			return fmt.Sprintf("%g", s.FloatVal)
		}
		return fmt.Sprintf("%d", s.IntVal)
	default:
		return "<?sexp?>"
	}
}

func joinSexps(items []Sexp) string {
	out := ""
	for i, it := range items {
		if i > 0 {
			out += " "
		}
		out += it.String()
	}
	return out
}
