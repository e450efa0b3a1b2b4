package parser

import "github.com/krstoff/defunct/reader"

// Parse converts one reader.Sexp into a validated Expr.
func Parse(s reader.Sexp) (Expr, error) {
	switch s.Kind {
	case reader.KindNumber:
		return NumLiteral{base{s.Pos}, s.IsFloat, s.IntVal, s.FloatVal}, nil
	case reader.KindIdent:
		return Ident{base{s.Pos}, s.Name}, nil
	case reader.KindKeyword:
		return Keyword{base{s.Pos}, s.Name}, nil
	case reader.KindVector:
		return parseVectorLiteral(s)
	case reader.KindMap:
		return parseMapLiteral(s)
	case reader.KindList:
		return parseList(s)
	default:
		return nil, &Error{Pos: s.Pos, Reason: "unrecognized S-expression kind"}
	}
}

// ParseAll parses every top-level form.
func ParseAll(forms []reader.Sexp) ([]Expr, error) {
	out := make([]Expr, 0, len(forms))
	for _, f := range forms {
		e, err := Parse(f)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func parseVectorLiteral(s reader.Sexp) (Expr, error) {
	elems := make([]Expr, 0, len(s.Items))
	for _, it := range s.Items {
		e, err := Parse(it)
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
	}
	return VectorLiteral{base{s.Pos}, elems}, nil
}

func parseMapLiteral(s reader.Sexp) (Expr, error) {
	if len(s.Items)%2 != 0 {
		return nil, &Error{Pos: s.Pos, Reason: "map literal has an odd number of elements"}
	}
	pairs := make([]MapPair, 0, len(s.Items)/2)
	for i := 0; i < len(s.Items); i += 2 {
		k, err := Parse(s.Items[i])
		if err != nil {
			return nil, err
		}
		v, err := Parse(s.Items[i+1])
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, MapPair{k, v})
	}
	return MapLiteral{base{s.Pos}, pairs}, nil
}

func parseList(s reader.Sexp) (Expr, error) {
	if len(s.Items) == 0 {
		return nil, &Error{Pos: s.Pos, Reason: "empty list is not a valid expression"}
	}
	head := s.Items[0]
	args := s.Items[1:]

	if head.Kind == reader.KindIdent {
		sp := lookupSpecial(head.Name)
		switch {
		case sp == specialIf:
			return parseIf(s.Pos, args)
		case sp == specialLet:
			return parseLet(s.Pos, args)
		case sp == specialFn:
			return parseFn(s.Pos, args)
		case sp == specialCond:
			return parseCond(s.Pos, args)
		case sp == specialDo:
			return parseDo(s.Pos, args)
		case sp == specialSet:
			return parseSet(s.Pos, args)
		case sp == specialReturn:
			return parseReturn(s.Pos, args)
		case isPrim(sp):
			return parsePrimOp(s.Pos, sp, args)
		}
	}

	return parseApply(s.Pos, head, args)
}

func parseIf(pos reader.Pos, args []reader.Sexp) (Expr, error) {
	if len(args) != 3 {
		return nil, &Error{Pos: pos, Reason: "if requires exactly 3 arguments (cond, then, else)"}
	}
	cond, err := Parse(args[0])
	if err != nil {
		return nil, err
	}
	then, err := Parse(args[1])
	if err != nil {
		return nil, err
	}
	els, err := Parse(args[2])
	if err != nil {
		return nil, err
	}
	return If{base{pos}, cond, then, els}, nil
}

func parseLet(pos reader.Pos, args []reader.Sexp) (Expr, error) {
	if len(args) < 1 || args[0].Kind != reader.KindVector {
		return nil, &Error{Pos: pos, Reason: "let requires a vector of bindings as its first argument"}
	}
	bindingForms := args[0].Items
	if len(bindingForms)%2 != 0 {
		return nil, &Error{Pos: args[0].Pos, Reason: "let bindings vector must have an even number of elements"}
	}
	bindings := make([]Binding, 0, len(bindingForms)/2)
	for i := 0; i < len(bindingForms); i += 2 {
		key := bindingForms[i]
		if key.Kind != reader.KindIdent {
			return nil, &Error{Pos: key.Pos, Reason: "let binding keys must be identifiers"}
		}
		init, err := Parse(bindingForms[i+1])
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, Binding{Name: key.Name, Init: init})
	}
	body, err := parseDo(pos, args[1:])
	if err != nil {
		return nil, err
	}
	return Let{base{pos}, bindings, body}, nil
}

func parseFn(pos reader.Pos, args []reader.Sexp) (Expr, error) {
	if len(args) < 1 || args[0].Kind != reader.KindVector {
		return nil, &Error{Pos: pos, Reason: "fn requires a vector of parameters as its first argument"}
	}
	params := make([]string, 0, len(args[0].Items))
	for _, p := range args[0].Items {
		if p.Kind != reader.KindIdent {
			return nil, &Error{Pos: p.Pos, Reason: "fn parameters must be identifiers"}
		}
		params = append(params, p.Name)
	}
	body, err := parseDo(pos, args[1:])
	if err != nil {
		return nil, err
	}
	return Fn{base{pos}, params, body}, nil
}

// parseCond desugars (cond c1 e1 c2 e2 ...) into nested If expressions,
// iterating 0..len(args)/2 pairs — the fixed form of the Open Question's
// cond arity bug (spec.md §9; original_source/src/compiler/parse.rs
// indexed 2*i over 0..args.len(), double-counting each case). A cond with
// no matching clause evaluates to the nil sentinel, which an empty Do
// naturally produces (the emitter pushes nil for a no-expression Do).
func parseCond(pos reader.Pos, args []reader.Sexp) (Expr, error) {
	if len(args)%2 != 0 {
		return nil, &Error{Pos: pos, Reason: "cond requires an even number of arguments (condition/result pairs)"}
	}
	npairs := len(args) / 2
	var result Expr = Do{base{pos}, nil}
	for i := npairs - 1; i >= 0; i-- {
		cond, err := Parse(args[2*i])
		if err != nil {
			return nil, err
		}
		then, err := Parse(args[2*i+1])
		if err != nil {
			return nil, err
		}
		result = If{base{pos}, cond, then, result}
	}
	return result, nil
}

func parseDo(pos reader.Pos, forms []reader.Sexp) (Expr, error) {
	exprs := make([]Expr, 0, len(forms))
	for _, f := range forms {
		e, err := Parse(f)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	return Do{base{pos}, exprs}, nil
}

func parseSet(pos reader.Pos, args []reader.Sexp) (Expr, error) {
	if len(args) != 2 {
		return nil, &Error{Pos: pos, Reason: "set requires exactly 2 arguments"}
	}
	if args[0].Kind != reader.KindIdent {
		return nil, &Error{Pos: args[0].Pos, Reason: "set's first argument must be an identifier"}
	}
	val, err := Parse(args[1])
	if err != nil {
		return nil, err
	}
	return Set{base{pos}, args[0].Name, val}, nil
}

func parseReturn(pos reader.Pos, args []reader.Sexp) (Expr, error) {
	if len(args) != 1 {
		return nil, &Error{Pos: pos, Reason: "return requires exactly 1 argument"}
	}
	val, err := Parse(args[0])
	if err != nil {
		return nil, err
	}
	return Return{base{pos}, val}, nil
}

func parsePrimOp(pos reader.Pos, sp special, args []reader.Sexp) (Expr, error) {
	if len(args) != 2 {
		return nil, &Error{Pos: pos, Reason: "primitive operator " + primOpName(sp) + " requires exactly 2 arguments"}
	}
	left, err := Parse(args[0])
	if err != nil {
		return nil, err
	}
	right, err := Parse(args[1])
	if err != nil {
		return nil, err
	}
	return PrimOp{base{pos}, primOpName(sp), left, right}, nil
}

func parseApply(pos reader.Pos, head reader.Sexp, argForms []reader.Sexp) (Expr, error) {
	callee, err := Parse(head)
	if err != nil {
		return nil, err
	}
	args := make([]Expr, 0, len(argForms))
	for _, a := range argForms {
		e, err := Parse(a)
		if err != nil {
			return nil, err
		}
		args = append(args, e)
	}
	return Apply{base{pos}, callee, args}, nil
}
