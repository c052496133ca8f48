// Package canon implements the three canonicalization passes (spec §4.2):
// Linearize eliminates ESEQ and lifts CALL to statement position,
// BasicBlocks partitions the flat statement list, and TraceSchedule orders
// blocks so CJUMP false targets fall through, starting each trace at the
// next unscheduled block in list order and omitting a JUMP at the
// terminator when its target is placed next.
package canon

import (
	"github.com/tigerc/tigerc/pkg/temp"
	"github.com/tigerc/tigerc/pkg/tree"
)

// Linearize rewrites stmt so that no ESEQ remains and every CALL appears
// only as MOVE(TEMP _, CALL ...) or EXP(CALL ...), then flattens the
// result into a flat statement list (spec §4.2's linearize(stmt) → [stmt]).
func Linearize(stmt tree.Stmt, ts *temp.Supply) []tree.Stmt {
	canon := doStmt(stmt, ts)
	return flatten(canon)
}

// flatten walks nested Seqs into a flat slice, in left-to-right order.
func flatten(s tree.Stmt) []tree.Stmt {
	if seq, ok := s.(tree.Seq); ok {
		return append(flatten(seq.Left), flatten(seq.Right)...)
	}
	return []tree.Stmt{s}
}

// commutes approximates whether evaluating s before e is safe to reorder
// past e's own evaluation, conservatively (spec §4.2: "a CONST or NAME
// commutes with anything; everything else is assumed non-commuting" — the
// Open Question in spec §9 is resolved by keeping exactly this
// conservative rule, see DESIGN.md).
func commutes(s tree.Stmt, e tree.Expr) bool {
	if isNop(s) {
		return true
	}
	switch e.(type) {
	case tree.Const, tree.Name:
		return true
	default:
		return false
	}
}

func isNop(s tree.Stmt) bool {
	exp, ok := s.(tree.Exp)
	if !ok {
		return false
	}
	c, ok := exp.Expr.(tree.Const)
	return ok && c.Value == 0
}

func nop() tree.Stmt { return tree.Exp{Expr: tree.Const{Value: 0}} }

// doStmt canonicalizes one statement, returning an equivalent statement
// containing no ESEQ and no nested CALL.
func doStmt(s tree.Stmt, ts *temp.Supply) tree.Stmt {
	switch v := s.(type) {
	case tree.Seq:
		return tree.Seq{Left: doStmt(v.Left, ts), Right: doStmt(v.Right, ts)}
	case tree.Move:
		switch dst := v.Dst.(type) {
		case tree.Temp:
			s2, e2 := doExpr(v.Src, ts)
			return seqStmt(s2, tree.Move{Dst: dst, Src: e2})
		case tree.Mem:
			sAddr, eAddr := doExpr(dst.Addr, ts)
			sSrc, eSrc := doExpr(v.Src, ts)
			if commutes(sSrc, eAddr) {
				return seqStmt(sAddr, seqStmt(sSrc, tree.Move{Dst: tree.Mem{Addr: eAddr}, Src: eSrc}))
			}
			// Unsafe to reorder: hoist the address into a temp first.
			t := ts.NewTemp()
			return seqStmt(sAddr, seqStmt(tree.Move{Dst: tree.Temp{Temp: t}, Src: eAddr}, seqStmt(sSrc, tree.Move{Dst: tree.Mem{Addr: tree.Temp{Temp: t}}, Src: eSrc})))
		default:
			s2, e2 := doExpr(v.Src, ts)
			return seqStmt(s2, tree.Move{Dst: dst, Src: e2})
		}
	case tree.Exp:
		if call, ok := v.Expr.(tree.Call); ok {
			s2, e2 := doCall(call, ts)
			return seqStmt(s2, tree.Exp{Expr: e2})
		}
		s2, e2 := doExpr(v.Expr, ts)
		return seqStmt(s2, tree.Exp{Expr: e2})
	case tree.Jump:
		s2, e2 := doExpr(v.Target, ts)
		return seqStmt(s2, tree.Jump{Target: e2, Targets: v.Targets})
	case tree.Cjump:
		sLeft, eLeft := doExpr(v.Left, ts)
		sRight, eRight := doExpr(v.Right, ts)
		if commutes(sRight, eLeft) {
			return seqStmt(sLeft, seqStmt(sRight, tree.Cjump{Op: v.Op, Left: eLeft, Right: eRight, True: v.True, False: v.False}))
		}
		t := ts.NewTemp()
		return seqStmt(sLeft, seqStmt(tree.Move{Dst: tree.Temp{Temp: t}, Src: eLeft}, seqStmt(sRight, tree.Cjump{Op: v.Op, Left: tree.Temp{Temp: t}, Right: eRight, True: v.True, False: v.False})))
	case tree.Label:
		return v
	}
	return s
}

// seqStmt sequences a and b, dropping either side if it is a no-op so the
// tree stays small.
func seqStmt(a, b tree.Stmt) tree.Stmt {
	if isNop(a) {
		return b
	}
	if isNop(b) {
		return a
	}
	return tree.Seq{Left: a, Right: b}
}

// doExpr canonicalizes one expression, returning the side-effecting
// statement that must run first (possibly a no-op) and the resulting
// ESEQ-free, CALL-free-except-when-lifted expression.
func doExpr(e tree.Expr, ts *temp.Supply) (tree.Stmt, tree.Expr) {
	switch v := e.(type) {
	case tree.Const, tree.Name, tree.Temp:
		return nop(), v
	case tree.Binop:
		sLeft, eLeft := doExpr(v.Left, ts)
		sRight, eRight := doExpr(v.Right, ts)
		if commutes(sRight, eLeft) {
			return seqStmt(sLeft, sRight), tree.Binop{Op: v.Op, Left: eLeft, Right: eRight}
		}
		t := ts.NewTemp()
		return seqStmt(sLeft, seqStmt(tree.Move{Dst: tree.Temp{Temp: t}, Src: eLeft}, sRight)), tree.Binop{Op: v.Op, Left: tree.Temp{Temp: t}, Right: eRight}
	case tree.Mem:
		s, addr := doExpr(v.Addr, ts)
		return s, tree.Mem{Addr: addr}
	case tree.Call:
		s, e2 := doCall(v, ts)
		// CALL must end up in statement position (spec §4.2): lift it
		// into a fresh temp here, so it is never nested inside another
		// expression.
		t := ts.NewTemp()
		return seqStmt(s, tree.Move{Dst: tree.Temp{Temp: t}, Src: e2}), tree.Temp{Temp: t}
	case tree.Eseq:
		s1 := doStmt(v.Stmt, ts)
		s2, e2 := doExpr(v.Expr, ts)
		return seqStmt(s1, s2), e2
	}
	return nop(), e
}

// doCall canonicalizes a CALL's function and argument subexpressions via
// reorder, the classic "save non-commuting args" rule: an earlier
// expression's value is hoisted into a temp whenever a later expression's
// side-effecting statement would be unsafe to evaluate after it.
func doCall(c tree.Call, ts *temp.Supply) (tree.Stmt, tree.Expr) {
	items := make([]tree.Expr, 0, len(c.Args)+1)
	items = append(items, c.Fn)
	items = append(items, c.Args...)

	stmt, exprs := reorder(items, ts)
	return stmt, tree.Call{Fn: exprs[0], Args: exprs[1:]}
}

// reorder evaluates exprs left to right, pairing each expression's value
// against the combined side-effecting statement of every expression after
// it: if that later statement doesn't commute with the earlier value, the
// earlier value is hoisted into a temp before the later statement runs
// (the classical Appel reorder pairing, mirrored in doStmt's Cjump and
// Mem-dst cases which check the same commutes(sLater, eEarlier) pairing).
func reorder(exprs []tree.Expr, ts *temp.Supply) (tree.Stmt, []tree.Expr) {
	if len(exprs) == 0 {
		return nop(), nil
	}
	s, e := doExpr(exprs[0], ts)
	sRest, eRest := reorder(exprs[1:], ts)
	if commutes(sRest, e) {
		return seqStmt(s, sRest), append([]tree.Expr{e}, eRest...)
	}
	t := ts.NewTemp()
	combined := seqStmt(seqStmt(s, tree.Move{Dst: tree.Temp{Temp: t}, Src: e}), sRest)
	return combined, append([]tree.Expr{tree.Temp{Temp: t}}, eRest...)
}
