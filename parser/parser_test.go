package parser

import (
	"testing"

	"github.com/krstoff/defunct/reader"
)

func parseSrc(t *testing.T, src string) Expr {
	t.Helper()
	forms, err := reader.ReadAll(src)
	if err != nil {
		t.Fatalf("reader.ReadAll(%q): %v", src, err)
	}
	if len(forms) != 1 {
		t.Fatalf("expected exactly one top-level form in %q, got %d", src, len(forms))
	}
	e, err := Parse(forms[0])
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return e
}

func TestParseIf(t *testing.T) {
	e := parseSrc(t, "(if (> 1 2) 0 99)")
	ifExpr, ok := e.(If)
	if !ok {
		t.Fatalf("got %T, want If", e)
	}
	if _, ok := ifExpr.Cond.(PrimOp); !ok {
		t.Errorf("Cond = %T, want PrimOp", ifExpr.Cond)
	}
}

func TestParseIfWrongArity(t *testing.T) {
	forms, _ := reader.ReadAll("(if (> 1 2) 0)")
	if _, err := Parse(forms[0]); err == nil {
		t.Fatal("expected an arity error")
	}
}

func TestParseLet(t *testing.T) {
	e := parseSrc(t, "(let [x 1 y 2] (+ x y))")
	l, ok := e.(Let)
	if !ok {
		t.Fatalf("got %T, want Let", e)
	}
	if len(l.Bindings) != 2 || l.Bindings[0].Name != "x" || l.Bindings[1].Name != "y" {
		t.Errorf("bindings = %+v", l.Bindings)
	}
}

func TestParseFn(t *testing.T) {
	e := parseSrc(t, "(fn [x] (+ x 20.0))")
	f, ok := e.(Fn)
	if !ok {
		t.Fatalf("got %T, want Fn", e)
	}
	if len(f.Params) != 1 || f.Params[0] != "x" {
		t.Errorf("params = %v", f.Params)
	}
}

func TestParseCondDesugarsToNestedIf(t *testing.T) {
	e := parseSrc(t, "(cond (eq 1 1) 10 (eq 1 2) 20)")
	outer, ok := e.(If)
	if !ok {
		t.Fatalf("got %T, want If", e)
	}
	inner, ok := outer.Else.(If)
	if !ok {
		t.Fatalf("else branch = %T, want nested If", outer.Else)
	}
	if _, ok := inner.Else.(Do); !ok {
		t.Fatalf("innermost else = %T, want empty Do (implicit nil)", inner.Else)
	}
}

func TestParseSetRequiresIdentFirstArg(t *testing.T) {
	forms, _ := reader.ReadAll("(set 1 2)")
	if _, err := Parse(forms[0]); err == nil {
		t.Fatal("expected an error for a non-identifier set target")
	}
}

func TestParseApplyOfArbitraryCallee(t *testing.T) {
	e := parseSrc(t, "((fn [x] x) 5)")
	app, ok := e.(Apply)
	if !ok {
		t.Fatalf("got %T, want Apply", e)
	}
	if _, ok := app.Callee.(Fn); !ok {
		t.Errorf("callee = %T, want Fn", app.Callee)
	}
}

func TestParseMapLiteral(t *testing.T) {
	e := parseSrc(t, "{:a 1 :b 2}")
	m, ok := e.(MapLiteral)
	if !ok {
		t.Fatalf("got %T, want MapLiteral", e)
	}
	if len(m.Pairs) != 2 {
		t.Fatalf("pairs = %+v", m.Pairs)
	}
}
