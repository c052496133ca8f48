package ast

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tigerc/tigerc/pkg/runtime"
	"github.com/tigerc/tigerc/pkg/tree"
)

// Load reads a JSON-encoded program from path and resolves it into a typed
// *Program: the "lexing/parsing/semantic analysis out of scope" boundary
// spec §1 draws means this repository never parses Tiger's own surface
// syntax, but cmd/tigerc still needs *some* concrete textual input, so
// Load plays the role a real front end's last pass would — name
// resolution, turning bare identifiers into the Decl pointers venv/fenv
// key on — without pretending to do full semantic analysis (no type
// checking, no escape inference: "escapes" is read directly off the JSON,
// exactly as a prior escape-analysis pass would have left it).
//
// Every error Load returns is a plain error, never *ierr.Internal: a
// malformed input file is a user-facing mistake, not a compiler-internal
// invariant failure (spec §4.7).
func Load(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ast: reading %s: %w", path, err)
	}
	var raw rawProgram
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("ast: parsing %s: %w", path, err)
	}
	if raw.Main == nil {
		return nil, fmt.Errorf("ast: %s: missing top-level \"main\" function", path)
	}
	r := &resolver{funcs: map[string]*FuncDecl{}}
	main, err := r.resolveFunc(raw.Main, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("ast: %s: %w", path, err)
	}
	return &Program{Main: main}, nil
}

// --- JSON surface grammar -------------------------------------------------

type rawProgram struct {
	Main *rawFunc `json:"main"`
}

type rawFunc struct {
	Name   string     `json:"name"`
	Params []rawParam `json:"params"`
	Body   rawExpr    `json:"body"`
}

type rawParam struct {
	Name    string `json:"name"`
	Escapes bool   `json:"escapes"`
}

type rawDecl struct {
	Kind string `json:"kind"` // "var" | "func"

	// kind == "var"
	Name    string  `json:"name"`
	Escapes bool    `json:"escapes"`
	Init    rawExpr `json:"init"`

	// kind == "func"
	Params []rawParam `json:"params"`
	Body   rawExpr    `json:"body"`
}

type rawExpr struct {
	Kind string `json:"kind"`

	Value   json.RawMessage `json:"value"` // int | string
	Name    string          `json:"name"`  // var/call/externcall target name
	Op      string          `json:"op"`
	Left    *rawExpr        `json:"left"`
	Right   *rawExpr        `json:"right"`
	Cond    *rawExpr        `json:"cond"`
	Then    *rawExpr        `json:"then"`
	Else    *rawExpr        `json:"else"`
	Body    *rawExpr        `json:"body"`
	Var     *rawParam       `json:"var"`
	Lo      *rawExpr        `json:"lo"`
	Hi      *rawExpr        `json:"hi"`
	Decls   []rawDecl       `json:"decls"`
	Target  *rawExpr        `json:"target"`
	Args    []rawExpr       `json:"args"`
	Exprs   []rawExpr       `json:"exprs"`
	Fields  []rawExpr       `json:"fields"`
	Size    *rawExpr        `json:"size"`
	Init    *rawExpr        `json:"init"`
	Base    *rawExpr        `json:"base"`
	Index   *rawExpr        `json:"index"`
	IndexN  int             `json:"indexN"`
	CallFn  string          `json:"callTarget"`
}

// --- name resolution -------------------------------------------------------

// scope maps identifiers visible at one lexical level to the declaration
// they name; lookup walks outward through parents, mirroring the lexical
// scoping Translate itself assumes has already been resolved.
type scope struct {
	vars   map[string]any // *VarDecl | *Param
	parent *scope
}

func (s *scope) lookup(name string) any {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v
		}
	}
	return nil
}

func newScope(parent *scope) *scope {
	return &scope{vars: map[string]any{}, parent: parent}
}

// resolver accumulates every function declared anywhere in the program by
// name, in visitation order. A Call resolves only to a function the walk
// has already registered; a call to a function declared later (for example
// a later sibling in the same Let, as mutual recursion would need) is
// reported as undeclared.
type resolver struct {
	funcs map[string]*FuncDecl
}

func (r *resolver) resolveFunc(raw *rawFunc, parent *FuncDecl, enclosing *scope) (*FuncDecl, error) {
	fn := &FuncDecl{Name: raw.Name, Parent: parent}
	if existing, ok := r.funcs[raw.Name]; ok && existing != fn {
		return nil, fmt.Errorf("function %q declared more than once", raw.Name)
	}
	r.funcs[raw.Name] = fn

	sc := newScope(enclosing)
	for _, p := range raw.Params {
		param := &Param{Name: p.Name, Escapes: p.Escapes}
		fn.Params = append(fn.Params, param)
		sc.vars[p.Name] = param
	}
	body, err := r.resolveExpr(&raw.Body, sc)
	if err != nil {
		return nil, fmt.Errorf("in function %q: %w", raw.Name, err)
	}
	fn.Body = body
	return fn, nil
}

func (r *resolver) resolveExpr(e *rawExpr, sc *scope) (Expr, error) {
	if e == nil {
		return nil, fmt.Errorf("missing required expression")
	}
	switch e.Kind {
	case "int":
		var v int64
		if err := json.Unmarshal(e.Value, &v); err != nil {
			return nil, fmt.Errorf("int literal: %w", err)
		}
		return IntLit{Value: v}, nil
	case "string":
		var v string
		if err := json.Unmarshal(e.Value, &v); err != nil {
			return nil, fmt.Errorf("string literal: %w", err)
		}
		return StringLit{Value: v}, nil
	case "nil":
		return NilLit{}, nil
	case "var":
		decl := sc.lookup(e.Name)
		switch d := decl.(type) {
		case *VarDecl:
			return VarRef{Decl: d}, nil
		case *Param:
			return ParamRef{Decl: d}, nil
		default:
			return nil, fmt.Errorf("undeclared identifier %q", e.Name)
		}
	case "binop":
		return r.resolveBinop(e, sc)
	case "relop":
		return r.resolveRelop(e, sc)
	case "if":
		cond, err := r.resolveExpr(e.Cond, sc)
		if err != nil {
			return nil, err
		}
		then, err := r.resolveExpr(e.Then, sc)
		if err != nil {
			return nil, err
		}
		var els Expr
		if e.Else != nil {
			els, err = r.resolveExpr(e.Else, sc)
			if err != nil {
				return nil, err
			}
		}
		return If{Cond: cond, Then: then, Else: els}, nil
	case "while":
		cond, err := r.resolveExpr(e.Cond, sc)
		if err != nil {
			return nil, err
		}
		body, err := r.resolveExpr(e.Body, sc)
		if err != nil {
			return nil, err
		}
		return While{Cond: cond, Body: body}, nil
	case "for":
		return r.resolveFor(e, sc)
	case "break":
		return Break{}, nil
	case "let":
		return r.resolveLet(e, sc)
	case "call":
		return r.resolveCall(e, sc)
	case "externcall":
		if _, ok := runtime.Symbols[e.Name]; !ok {
			return nil, fmt.Errorf("externcall to unknown runtime routine %q", e.Name)
		}
		args, err := r.resolveExprs(e.Args, sc)
		if err != nil {
			return nil, err
		}
		return ExternCall{Name: e.Name, Args: args}, nil
	case "assign":
		target, err := r.resolveExpr(e.Target, sc)
		if err != nil {
			return nil, err
		}
		var valueRaw rawExpr
		if err := json.Unmarshal(e.Value, &valueRaw); err != nil {
			return nil, fmt.Errorf("assign: decoding \"value\": %w", err)
		}
		value, err := r.resolveExpr(&valueRaw, sc)
		if err != nil {
			return nil, err
		}
		return Assign{Target: target, Value: value}, nil
	case "seq":
		exprs, err := r.resolveExprs(e.Exprs, sc)
		if err != nil {
			return nil, err
		}
		return Seq{Exprs: exprs}, nil
	case "record":
		fields, err := r.resolveExprs(e.Fields, sc)
		if err != nil {
			return nil, err
		}
		return Record{Fields: fields}, nil
	case "array":
		size, err := r.resolveExpr(e.Size, sc)
		if err != nil {
			return nil, err
		}
		init, err := r.resolveExpr(e.Init, sc)
		if err != nil {
			return nil, err
		}
		return Array{Size: size, Init: init}, nil
	case "field":
		base, err := r.resolveExpr(e.Base, sc)
		if err != nil {
			return nil, err
		}
		return Field{Base: base, Index: e.IndexN}, nil
	case "subscript":
		base, err := r.resolveExpr(e.Base, sc)
		if err != nil {
			return nil, err
		}
		index, err := r.resolveExpr(e.Index, sc)
		if err != nil {
			return nil, err
		}
		return Subscript{Base: base, Index: index}, nil
	default:
		return nil, fmt.Errorf("unrecognized expression kind %q", e.Kind)
	}
}

func (r *resolver) resolveExprs(raws []rawExpr, sc *scope) ([]Expr, error) {
	out := make([]Expr, len(raws))
	for i := range raws {
		e, err := r.resolveExpr(&raws[i], sc)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func (r *resolver) resolveBinop(e *rawExpr, sc *scope) (Expr, error) {
	left, err := r.resolveExpr(e.Left, sc)
	if err != nil {
		return nil, err
	}
	right, err := r.resolveExpr(e.Right, sc)
	if err != nil {
		return nil, err
	}
	op, err := binOp(e.Op)
	if err != nil {
		return nil, err
	}
	return Binop{Op: op, Left: left, Right: right}, nil
}

func (r *resolver) resolveRelop(e *rawExpr, sc *scope) (Expr, error) {
	left, err := r.resolveExpr(e.Left, sc)
	if err != nil {
		return nil, err
	}
	right, err := r.resolveExpr(e.Right, sc)
	if err != nil {
		return nil, err
	}
	op, err := relOp(e.Op)
	if err != nil {
		return nil, err
	}
	return Relop{Op: op, Left: left, Right: right}, nil
}

func (r *resolver) resolveFor(e *rawExpr, sc *scope) (Expr, error) {
	lo, err := r.resolveExpr(e.Lo, sc)
	if err != nil {
		return nil, err
	}
	hi, err := r.resolveExpr(e.Hi, sc)
	if err != nil {
		return nil, err
	}
	if e.Var == nil {
		return nil, fmt.Errorf("for loop missing \"var\"")
	}
	decl := &VarDecl{Name: e.Var.Name, Escapes: e.Var.Escapes}
	inner := newScope(sc)
	inner.vars[e.Var.Name] = decl
	body, err := r.resolveExpr(e.Body, inner)
	if err != nil {
		return nil, err
	}
	return For{Var: decl, Lo: lo, Hi: hi, Body: body}, nil
}

func (r *resolver) resolveLet(e *rawExpr, sc *scope) (Expr, error) {
	inner := newScope(sc)
	var decls []Decl
	for i := range e.Decls {
		d := &e.Decls[i]
		switch d.Kind {
		case "var":
			init, err := r.resolveExpr(&d.Init, inner)
			if err != nil {
				return nil, fmt.Errorf("declaring %q: %w", d.Name, err)
			}
			decl := &VarDecl{Name: d.Name, Escapes: d.Escapes, Init: init}
			inner.vars[d.Name] = decl
			decls = append(decls, decl)
		case "func":
			// Parent is left nil here rather than threaded through every
			// resolveExpr call: Translate finds nesting via its own
			// Level.Parent chain built during the walk, never by reading
			// FuncDecl.Parent, so the field carries no behavior either way.
			fn, err := r.resolveFunc(&rawFunc{Name: d.Name, Params: d.Params, Body: d.Body}, nil, inner)
			if err != nil {
				return nil, err
			}
			decls = append(decls, fn)
		default:
			return nil, fmt.Errorf("unrecognized declaration kind %q", d.Kind)
		}
	}
	body, err := r.resolveExpr(e.Body, inner)
	if err != nil {
		return nil, err
	}
	return Let{Decls: decls, Body: body}, nil
}

func (r *resolver) resolveCall(e *rawExpr, sc *scope) (Expr, error) {
	fn, ok := r.funcs[e.CallFn]
	if !ok {
		return nil, fmt.Errorf("call to undeclared function %q", e.CallFn)
	}
	args, err := r.resolveExprs(e.Args, sc)
	if err != nil {
		return nil, err
	}
	return Call{Target: fn, Args: args}, nil
}

func binOp(name string) (tree.BinOp, error) {
	switch name {
	case "+":
		return tree.Plus, nil
	case "-":
		return tree.Minus, nil
	case "*":
		return tree.Mul, nil
	case "/":
		return tree.Div, nil
	case "&":
		return tree.And, nil
	case "|":
		return tree.Or, nil
	case "<<":
		return tree.LShift, nil
	case ">>":
		return tree.RShift, nil
	case ">>>":
		return tree.ARShift, nil
	case "^":
		return tree.Xor, nil
	default:
		return 0, fmt.Errorf("unrecognized binary operator %q", name)
	}
}

func relOp(name string) (tree.RelOp, error) {
	switch name {
	case "=":
		return tree.Eq, nil
	case "<>":
		return tree.Ne, nil
	case "<":
		return tree.Lt, nil
	case ">":
		return tree.Gt, nil
	case "<=":
		return tree.Le, nil
	case ">=":
		return tree.Ge, nil
	default:
		return 0, fmt.Errorf("unrecognized relational operator %q", name)
	}
}
