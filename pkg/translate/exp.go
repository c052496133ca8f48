// Package translate converts a typed Tiger AST into Tree IR fragments,
// tracking lexical nesting via frame.Level (spec §4.1). Grounded on the
// teacher's pkg/rtlgen/cfg.go bookkeeping style (a single stateful builder
// threading counters and maps through a recursive-descent walk) and
// pkg/selection/expr.go's type-switch-per-node-kind dispatch.
package translate

import (
	"github.com/tigerc/tigerc/pkg/ierr"
	"github.com/tigerc/tigerc/pkg/temp"
	"github.com/tigerc/tigerc/pkg/tree"
)

// Exp is the three-way tagged form of a lowered expression (spec §3's
// Tr.exp): Ex yields a value, Nx is a pure statement, Cx is a conditional
// closure over the eventual true/false labels.
type Exp interface{ implExp() }

// Ex wraps a Tree IR expression.
type Ex struct{ Expr tree.Expr }

// Nx wraps a Tree IR statement with no value.
type Nx struct{ Stmt tree.Stmt }

// Cx wraps a conditional: given the labels to branch to on true/false, Gen
// produces the branching statement.
type Cx struct{ Gen func(t, f temp.Label) tree.Stmt }

func (Ex) implExp() {}
func (Nx) implExp() {}
func (Cx) implExp() {}

// UnEx converts any Exp to a value-yielding expression. Converting a Cx
// materializes a fresh temp and two labels (spec §9: "unEx of Cx must
// materialize a temp and two labels — preserve this behavior"). Converting
// an Nx is forbidden: spec §3 calls unEx(Nx) a fatal programming error,
// since a pure statement has no sensible value.
func UnEx(e Exp, ts *temp.Supply) tree.Expr {
	switch v := e.(type) {
	case Ex:
		return v.Expr
	case Cx:
		r := ts.NewTemp()
		t, f := ts.NewLabel(), ts.NewLabel()
		stmt := tree.SeqAll(
			tree.Move{Dst: tree.Temp{Temp: r}, Src: tree.Const{Value: 1}},
			v.Gen(t, f),
			tree.Label{Label: f},
			tree.Move{Dst: tree.Temp{Temp: r}, Src: tree.Const{Value: 0}},
			tree.Label{Label: t},
		)
		return tree.Eseq{Stmt: stmt, Expr: tree.Temp{Temp: r}}
	case Nx:
		panic(ierr.New("translate.unEx", "forbidden conversion unEx(Nx): a pure statement has no value"))
	}
	panic("translate: unknown Exp kind")
}

// UnNx converts any Exp to a statement executed for effect, discarding any
// value. Total over all three kinds: a Cx is run with both branches
// targeting the same fall-through label.
func UnNx(e Exp, ts *temp.Supply) tree.Stmt {
	switch v := e.(type) {
	case Ex:
		return tree.Exp{Expr: v.Expr}
	case Nx:
		return v.Stmt
	case Cx:
		l := ts.NewLabel()
		return tree.SeqAll(v.Gen(l, l), tree.Label{Label: l})
	}
	panic("translate: unknown Exp kind")
}

// UnCx converts any Exp to a conditional-branch generator. Converting an
// Ex follows the classic constant-folding special cases (a statically
// true/false Ex collapses to an unconditional jump) and otherwise compares
// against zero. Converting an Nx is forbidden, symmetrically with UnEx.
func UnCx(e Exp) func(t, f temp.Label) tree.Stmt {
	switch v := e.(type) {
	case Cx:
		return v.Gen
	case Ex:
		if c, ok := v.Expr.(tree.Const); ok {
			if c.Value == 0 {
				return func(_, f temp.Label) tree.Stmt { return tree.Jump{Target: tree.Name{Label: f}, Targets: []temp.Label{f}} }
			}
			return func(t, _ temp.Label) tree.Stmt { return tree.Jump{Target: tree.Name{Label: t}, Targets: []temp.Label{t}} }
		}
		expr := v.Expr
		return func(t, f temp.Label) tree.Stmt {
			return tree.Cjump{Op: tree.Ne, Left: expr, Right: tree.Const{Value: 0}, True: t, False: f}
		}
	case Nx:
		panic(ierr.New("translate.unCx", "forbidden conversion unCx(Nx): a pure statement has no condition"))
	}
	panic("translate: unknown Exp kind")
}
