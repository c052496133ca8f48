package translate

import (
	"github.com/tigerc/tigerc/pkg/ast"
	"github.com/tigerc/tigerc/pkg/frame"
	"github.com/tigerc/tigerc/pkg/ierr"
	"github.com/tigerc/tigerc/pkg/runtime"
	"github.com/tigerc/tigerc/pkg/temp"
	"github.com/tigerc/tigerc/pkg/tree"
)

// binding records where a declared variable or parameter lives, and at
// which lexical level it was declared — the pair spec §3 calls "Variable
// access": (Level, Access).
type binding struct {
	level *frame.Level
	acc   frame.Access
}

// Translator walks a typed ast.Program and produces frame.Fragments. One
// Translator serves an entire program; venv/fenv are populated as
// declarations are visited, mirroring how a real Tiger front end
// interleaves semantic analysis and translation (spec §9 notes this
// repository assumes semantic analysis already ran, but the venv/fenv
// bookkeeping it would have produced is naturally rebuilt here instead of
// invented as a separate unused contract).
type Translator struct {
	mach  frame.Machine
	ts    *temp.Supply
	venv  map[any]binding    // *ast.VarDecl | *ast.Param -> binding
	fenv  map[*ast.FuncDecl]*frame.Level
	frags []frame.Fragment
	strs  map[string]temp.Label // dedupe identical string literals

	breakStack []temp.Label // innermost-last; Break targets the top
}

// Translate lowers prog to fragments: one ProcFragment per function
// (including the synthetic main wrapping the program expression) plus one
// StringFragment per distinct string literal (spec §4.1). It also returns
// the Supply it minted every Temp and Label from, so a caller that keeps
// compiling past Translate (pkg/driver's later stages) can continue
// numbering from exactly where Translate left off instead of guessing a
// safe starting point.
func Translate(prog *ast.Program, mach frame.Machine) ([]frame.Fragment, *temp.Supply, error) {
	ts := temp.NewSupply()
	tr := &Translator{
		mach: mach,
		ts:   ts,
		venv: make(map[any]binding),
		fenv: make(map[*ast.FuncDecl]*frame.Level),
		strs: make(map[string]temp.Label),
	}
	outer := frame.Outermost("main", mach, ts)
	if err := tr.translateFunc(prog.Main, outer); err != nil {
		return nil, nil, err
	}
	return tr.frags, ts, nil
}

func escapesOf(params []*ast.Param) []bool {
	out := make([]bool, len(params))
	for i, p := range params {
		out[i] = p.Escapes
	}
	return out
}

// translateFunc compiles one function declaration (already at level lvl,
// which the caller has constructed) into a ProcFragment.
func (tr *Translator) translateFunc(fn *ast.FuncDecl, lvl *frame.Level) error {
	tr.fenv[fn] = lvl
	for i, p := range fn.Params {
		tr.venv[p] = binding{level: lvl, acc: lvl.Formals()[i]}
	}

	// Pre-register any nested function declarations reachable from this
	// body so mutually-recursive calls resolve regardless of textual
	// order — a real semantic analyzer would do this as part of building
	// the function group; done here directly since that pass is assumed
	// already run in spirit but the levels it would have built still need
	// constructing.
	nested := collectNestedFuncs(fn.Body)
	for _, child := range nested {
		childLvl := frame.NewLevel(lvl, tr.ts.NamedLabel(child.Name), escapesOf(child.Params), tr.mach, tr.ts)
		tr.fenv[child] = childLvl
	}

	bodyExp, err := tr.translateExpr(fn.Body, lvl)
	if err != nil {
		return err
	}
	bodyStmt := tr.mach.ProcEntryExit1(lvl.Frame, UnNx(bodyExp, tr.ts), tr.ts)
	tr.frags = append(tr.frags, frame.ProcFragment{Body: bodyStmt, Frame: lvl.Frame})

	for _, child := range nested {
		if err := tr.translateFunc(child, tr.fenv[child]); err != nil {
			return err
		}
	}
	return nil
}

// collectNestedFuncs returns every function declared in a Let reachable
// from e without crossing into another function's own body (that
// function's nested declarations are found by its own translateFunc call
// instead, once its level exists).
func collectNestedFuncs(e ast.Expr) []*ast.FuncDecl {
	var out []*ast.FuncDecl
	var walk func(ast.Expr)
	walk = func(e ast.Expr) {
		switch v := e.(type) {
		case ast.Let:
			for _, d := range v.Decls {
				switch decl := d.(type) {
				case *ast.FuncDecl:
					out = append(out, decl)
				case *ast.VarDecl:
					walk(decl.Init)
				}
			}
			walk(v.Body)
		case ast.If:
			walk(v.Cond)
			walk(v.Then)
			if v.Else != nil {
				walk(v.Else)
			}
		case ast.While:
			walk(v.Cond)
			walk(v.Body)
		case ast.For:
			walk(v.Lo)
			walk(v.Hi)
			walk(v.Body)
		case ast.Seq:
			for _, se := range v.Exprs {
				walk(se)
			}
		case ast.Binop:
			walk(v.Left)
			walk(v.Right)
		case ast.Relop:
			walk(v.Left)
			walk(v.Right)
		case ast.Assign:
			walk(v.Target)
			walk(v.Value)
		case ast.Call:
			for _, a := range v.Args {
				walk(a)
			}
		case ast.ExternCall:
			for _, a := range v.Args {
				walk(a)
			}
		case ast.Record:
			for _, f := range v.Fields {
				walk(f)
			}
		case ast.Array:
			walk(v.Size)
			walk(v.Init)
		case ast.Field:
			walk(v.Base)
		case ast.Subscript:
			walk(v.Base)
			walk(v.Index)
		}
	}
	walk(e)
	return out
}

// simpleVar builds the Ex reading binding b when used from useLevel (spec
// §4.1's simple_var): if the declaring level equals the use level, apply
// the access formula at the current frame pointer; otherwise chase static
// links outward until the declaring level is reached.
func (tr *Translator) simpleVar(b binding, useLevel *frame.Level) Exp {
	fp := tree.Temp{Temp: tr.mach.FP()}
	lvl := useLevel
	var addr tree.Expr = fp
	for !lvl.Equal(b.level) {
		if lvl.Parent == nil {
			panic(ierr.New("translate.simple_var", "static-link walk from %v never reached declaring level %v", useLevel, b.level))
		}
		addr = lvl.StaticLink().Exp(addr)
		lvl = lvl.Parent
	}
	return Ex{Expr: b.acc.Exp(addr)}
}

// translateExpr is the recursive-descent dispatch over every ast.Expr
// kind, mirroring pkg/selection/expr.go's type-switch structure.
func (tr *Translator) translateExpr(e ast.Expr, lvl *frame.Level) (Exp, error) {
	switch v := e.(type) {
	case ast.IntLit:
		return Ex{Expr: tree.Const{Value: v.Value}}, nil
	case ast.NilLit:
		return Ex{Expr: tree.Const{Value: 0}}, nil
	case ast.StringLit:
		return Ex{Expr: tree.Name{Label: tr.stringLabel(v.Value)}}, nil
	case ast.ParamRef:
		return tr.simpleVar(tr.venv[v.Decl], lvl), nil
	case ast.VarRef:
		return tr.simpleVar(tr.venv[v.Decl], lvl), nil
	case ast.Binop:
		return tr.translateBinop(v, lvl)
	case ast.Relop:
		return tr.translateRelop(v, lvl)
	case ast.If:
		return tr.translateIf(v, lvl)
	case ast.While:
		return tr.translateWhile(v, lvl)
	case ast.For:
		return tr.translateFor(v, lvl)
	case ast.Break:
		return tr.translateBreak()
	case ast.Let:
		return tr.translateLet(v, lvl)
	case ast.Call:
		return tr.translateCall(v, lvl)
	case ast.ExternCall:
		return tr.translateExternCall(v, lvl)
	case ast.Assign:
		return tr.translateAssign(v, lvl)
	case ast.Seq:
		return tr.translateSeq(v, lvl)
	case ast.Record:
		return tr.translateRecord(v, lvl)
	case ast.Array:
		return tr.translateArray(v, lvl)
	case ast.Field:
		return tr.translateField(v, lvl)
	case ast.Subscript:
		return tr.translateSubscript(v, lvl)
	}
	return nil, ierr.New("translate", "unrecognized AST node %T", e)
}

func (tr *Translator) stringLabel(lit string) temp.Label {
	if l, ok := tr.strs[lit]; ok {
		return l
	}
	l := tr.ts.NamedLabel("str")
	tr.strs[lit] = l
	tr.frags = append(tr.frags, frame.StringFragment{Label: l, Literal: lit})
	return l
}

func (tr *Translator) translateBinop(v ast.Binop, lvl *frame.Level) (Exp, error) {
	left, err := tr.translateExpr(v.Left, lvl)
	if err != nil {
		return nil, err
	}
	right, err := tr.translateExpr(v.Right, lvl)
	if err != nil {
		return nil, err
	}
	return Ex{Expr: tree.Binop{Op: v.Op, Left: UnEx(left, tr.ts), Right: UnEx(right, tr.ts)}}, nil
}

func (tr *Translator) translateRelop(v ast.Relop, lvl *frame.Level) (Exp, error) {
	left, err := tr.translateExpr(v.Left, lvl)
	if err != nil {
		return nil, err
	}
	right, err := tr.translateExpr(v.Right, lvl)
	if err != nil {
		return nil, err
	}
	l, r := UnEx(left, tr.ts), UnEx(right, tr.ts)
	op := v.Op
	return Cx{Gen: func(t, f temp.Label) tree.Stmt {
		return tree.Cjump{Op: op, Left: l, Right: r, True: t, False: f}
	}}, nil
}

func (tr *Translator) translateIf(v ast.If, lvl *frame.Level) (Exp, error) {
	cond, err := tr.translateExpr(v.Cond, lvl)
	if err != nil {
		return nil, err
	}
	then, err := tr.translateExpr(v.Then, lvl)
	if err != nil {
		return nil, err
	}
	if v.Else == nil {
		t, f := tr.ts.NewLabel(), tr.ts.NewLabel()
		stmt := tree.SeqAll(UnCx(cond)(t, f), tree.Label{Label: t}, UnNx(then, tr.ts), tree.Label{Label: f})
		return Nx{Stmt: stmt}, nil
	}
	els, err := tr.translateExpr(v.Else, lvl)
	if err != nil {
		return nil, err
	}
	t, f, done := tr.ts.NewLabel(), tr.ts.NewLabel(), tr.ts.NewLabel()
	r := tr.ts.NewTemp()
	stmt := tree.SeqAll(
		UnCx(cond)(t, f),
		tree.Label{Label: t},
		tree.Move{Dst: tree.Temp{Temp: r}, Src: UnEx(then, tr.ts)},
		tree.Jump{Target: tree.Name{Label: done}, Targets: []temp.Label{done}},
		tree.Label{Label: f},
		tree.Move{Dst: tree.Temp{Temp: r}, Src: UnEx(els, tr.ts)},
		tree.Label{Label: done},
	)
	return Ex{Expr: tree.Eseq{Stmt: stmt, Expr: tree.Temp{Temp: r}}}, nil
}

func (tr *Translator) translateWhile(v ast.While, lvl *frame.Level) (Exp, error) {
	test, body, done := tr.ts.NewLabel(), tr.ts.NewLabel(), tr.ts.NewLabel()
	cond, err := tr.translateExpr(v.Cond, lvl)
	if err != nil {
		return nil, err
	}
	tr.breakStack = append(tr.breakStack, done)
	bodyExp, err := tr.translateExpr(v.Body, lvl)
	tr.breakStack = tr.breakStack[:len(tr.breakStack)-1]
	if err != nil {
		return nil, err
	}
	stmt := tree.SeqAll(
		tree.Label{Label: test},
		UnCx(cond)(body, done),
		tree.Label{Label: body},
		UnNx(bodyExp, tr.ts),
		tree.Jump{Target: tree.Name{Label: test}, Targets: []temp.Label{test}},
		tree.Label{Label: done},
	)
	return Nx{Stmt: stmt}, nil
}

func (tr *Translator) translateFor(v ast.For, lvl *frame.Level) (Exp, error) {
	loAcc := lvl.Frame.AllocLocal(v.Var.Escapes, tr.ts)
	tr.venv[v.Var] = binding{level: lvl, acc: loAcc}
	lo, err := tr.translateExpr(v.Lo, lvl)
	if err != nil {
		return nil, err
	}
	hi, err := tr.translateExpr(v.Hi, lvl)
	if err != nil {
		return nil, err
	}
	hiTemp := tr.ts.NewTemp()
	body, done := tr.ts.NewLabel(), tr.ts.NewLabel()
	tr.breakStack = append(tr.breakStack, done)
	bodyExp, err := tr.translateExpr(v.Body, lvl)
	tr.breakStack = tr.breakStack[:len(tr.breakStack)-1]
	if err != nil {
		return nil, err
	}
	iVar := loAcc.Exp(tree.Temp{Temp: tr.mach.FP()})
	incLbl := tr.ts.NewLabel()
	stmt := tree.SeqAll(
		tree.Move{Dst: iVar, Src: UnEx(lo, tr.ts)},
		tree.Move{Dst: tree.Temp{Temp: hiTemp}, Src: UnEx(hi, tr.ts)},
		tree.Cjump{Op: tree.Le, Left: iVar, Right: tree.Temp{Temp: hiTemp}, True: body, False: done},
		tree.Label{Label: body},
		UnNx(bodyExp, tr.ts),
		tree.Cjump{Op: tree.Lt, Left: iVar, Right: tree.Temp{Temp: hiTemp}, True: incLbl, False: done},
		tree.Label{Label: incLbl},
		tree.Move{Dst: iVar, Src: tree.Binop{Op: tree.Plus, Left: iVar, Right: tree.Const{Value: 1}}},
		tree.Jump{Target: tree.Name{Label: body}, Targets: []temp.Label{body}},
		tree.Label{Label: done},
	)
	return Nx{Stmt: stmt}, nil
}

func (tr *Translator) translateBreak() (Exp, error) {
	if len(tr.breakStack) == 0 {
		return nil, ierr.New("translate.break", "break outside any loop")
	}
	done := tr.breakStack[len(tr.breakStack)-1]
	return Nx{Stmt: tree.Jump{Target: tree.Name{Label: done}, Targets: []temp.Label{done}}}, nil
}

func (tr *Translator) translateLet(v ast.Let, lvl *frame.Level) (Exp, error) {
	var stmts []tree.Stmt
	for _, d := range v.Decls {
		switch decl := d.(type) {
		case *ast.VarDecl:
			init, err := tr.translateExpr(decl.Init, lvl)
			if err != nil {
				return nil, err
			}
			acc := lvl.Frame.AllocLocal(decl.Escapes, tr.ts)
			tr.venv[decl] = binding{level: lvl, acc: acc}
			stmts = append(stmts, tree.Move{Dst: acc.Exp(tree.Temp{Temp: tr.mach.FP()}), Src: UnEx(init, tr.ts)})
		case *ast.FuncDecl:
			// Its level was already constructed by translateFunc, from
			// collectNestedFuncs(fn.Body) run before the body (and this
			// Let within it) was walked.
		}
	}
	body, err := tr.translateExpr(v.Body, lvl)
	if err != nil {
		return nil, err
	}
	if len(stmts) == 0 {
		return body, nil
	}
	return Ex{Expr: tree.Eseq{Stmt: tree.SeqAll(stmts...), Expr: UnEx(body, tr.ts)}}, nil
}

func (tr *Translator) translateCall(v ast.Call, lvl *frame.Level) (Exp, error) {
	targetLvl, ok := tr.fenv[v.Target]
	if !ok {
		return nil, ierr.New("translate.call", "call to %q before its level was established", v.Target.Name)
	}
	args := []tree.Expr{tr.staticLinkFor(lvl, targetLvl)}
	for _, a := range v.Args {
		ax, err := tr.translateExpr(a, lvl)
		if err != nil {
			return nil, err
		}
		args = append(args, UnEx(ax, tr.ts))
	}
	fnName := tree.Name{Label: targetLvl.Frame.Name}
	return Ex{Expr: tree.Call{Fn: fnName, Args: args}}, nil
}

// staticLinkFor computes the static-link argument a call from callerLvl
// to a function at targetLvl must pass: the frame pointer of targetLvl's
// parent level, reached by chasing static links outward from callerLvl.
func (tr *Translator) staticLinkFor(callerLvl, targetLvl *frame.Level) tree.Expr {
	if targetLvl.Parent == nil {
		return tree.Const{Value: 0}
	}
	var addr tree.Expr = tree.Temp{Temp: tr.mach.FP()}
	lvl := callerLvl
	for !lvl.Equal(targetLvl.Parent) {
		if lvl.Parent == nil {
			panic(ierr.New("translate.call", "cannot find static link from %v to parent of %v", callerLvl, targetLvl))
		}
		addr = lvl.StaticLink().Exp(addr)
		lvl = lvl.Parent
	}
	return addr
}

func (tr *Translator) translateExternCall(v ast.ExternCall, lvl *frame.Level) (Exp, error) {
	var args []tree.Expr
	for _, a := range v.Args {
		ax, err := tr.translateExpr(a, lvl)
		if err != nil {
			return nil, err
		}
		args = append(args, UnEx(ax, tr.ts))
	}
	return Ex{Expr: tr.mach.ExternalCall(runtime.Symbol(v.Name), args)}, nil
}

func (tr *Translator) translateAssign(v ast.Assign, lvl *frame.Level) (Exp, error) {
	dst, err := tr.translateExpr(v.Target, lvl)
	if err != nil {
		return nil, err
	}
	src, err := tr.translateExpr(v.Value, lvl)
	if err != nil {
		return nil, err
	}
	return Nx{Stmt: tree.Move{Dst: UnEx(dst, tr.ts), Src: UnEx(src, tr.ts)}}, nil
}

func (tr *Translator) translateSeq(v ast.Seq, lvl *frame.Level) (Exp, error) {
	if len(v.Exprs) == 0 {
		return Ex{Expr: tree.Const{Value: 0}}, nil
	}
	var stmts []tree.Stmt
	for _, e := range v.Exprs[:len(v.Exprs)-1] {
		ex, err := tr.translateExpr(e, lvl)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, UnNx(ex, tr.ts))
	}
	last, err := tr.translateExpr(v.Exprs[len(v.Exprs)-1], lvl)
	if err != nil {
		return nil, err
	}
	if len(stmts) == 0 {
		return last, nil
	}
	return Ex{Expr: tree.Eseq{Stmt: tree.SeqAll(stmts...), Expr: UnEx(last, tr.ts)}}, nil
}

func (tr *Translator) translateRecord(v ast.Record, lvl *frame.Level) (Exp, error) {
	r := tr.ts.NewTemp()
	n := int64(len(v.Fields))
	word := tr.mach.WordSize()
	stmts := []tree.Stmt{
		tree.Move{
			Dst: tree.Temp{Temp: r},
			Src: tr.mach.ExternalCall(runtime.Symbol("initRecord"), []tree.Expr{tree.Const{Value: n * word}}),
		},
	}
	for i, f := range v.Fields {
		fx, err := tr.translateExpr(f, lvl)
		if err != nil {
			return nil, err
		}
		addr := tree.Binop{Op: tree.Plus, Left: tree.Temp{Temp: r}, Right: tree.Const{Value: int64(i) * word}}
		stmts = append(stmts, tree.Move{Dst: tree.Mem{Addr: addr}, Src: UnEx(fx, tr.ts)})
	}
	return Ex{Expr: tree.Eseq{Stmt: tree.SeqAll(stmts...), Expr: tree.Temp{Temp: r}}}, nil
}

func (tr *Translator) translateArray(v ast.Array, lvl *frame.Level) (Exp, error) {
	size, err := tr.translateExpr(v.Size, lvl)
	if err != nil {
		return nil, err
	}
	init, err := tr.translateExpr(v.Init, lvl)
	if err != nil {
		return nil, err
	}
	return Ex{Expr: tr.mach.ExternalCall(runtime.Symbol("initArray"), []tree.Expr{UnEx(size, tr.ts), UnEx(init, tr.ts)})}, nil
}

func (tr *Translator) translateField(v ast.Field, lvl *frame.Level) (Exp, error) {
	base, err := tr.translateExpr(v.Base, lvl)
	if err != nil {
		return nil, err
	}
	addr := tree.Binop{Op: tree.Plus, Left: UnEx(base, tr.ts), Right: tree.Const{Value: int64(v.Index) * tr.mach.WordSize()}}
	return Ex{Expr: tree.Mem{Addr: addr}}, nil
}

func (tr *Translator) translateSubscript(v ast.Subscript, lvl *frame.Level) (Exp, error) {
	base, err := tr.translateExpr(v.Base, lvl)
	if err != nil {
		return nil, err
	}
	idx, err := tr.translateExpr(v.Index, lvl)
	if err != nil {
		return nil, err
	}
	addr := tree.Binop{
		Op:   tree.Plus,
		Left: UnEx(base, tr.ts),
		Right: tree.Binop{
			Op:    tree.Mul,
			Left:  UnEx(idx, tr.ts),
			Right: tree.Const{Value: tr.mach.WordSize()},
		},
	}
	return Ex{Expr: tree.Mem{Addr: addr}}, nil
}
