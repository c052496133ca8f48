// Package tree defines the Tree IR: the small expression/statement
// language every backend stage from Translate through Codegen manipulates.
// Node kinds are modeled as a closed interface with a private marker
// method per concrete kind, so a type switch in any consuming pass is
// exhaustive and the compiler catches an unhandled case at the switch,
// not at runtime.
package tree

import "github.com/tigerc/tigerc/pkg/temp"

// BinOp names a binary arithmetic or bitwise operator.
type BinOp int

const (
	Plus BinOp = iota
	Minus
	Mul
	Div
	And
	Or
	LShift
	RShift
	ARShift
	Xor
)

// RelOp names a relational operator used by CJUMP.
type RelOp int

const (
	Eq RelOp = iota
	Ne
	Lt
	Gt
	Le
	Ge
	Ult
	Ule
	Ugt
	Uge
)

// Negate returns the relational operator testing the opposite condition,
// used by canon's trace scheduling to swap a CJUMP's sense when that lets
// the false target fall through (spec §4.2 step 3).
func (r RelOp) Negate() RelOp {
	switch r {
	case Eq:
		return Ne
	case Ne:
		return Eq
	case Lt:
		return Ge
	case Ge:
		return Lt
	case Le:
		return Gt
	case Gt:
		return Le
	case Ult:
		return Uge
	case Uge:
		return Ult
	case Ule:
		return Ugt
	case Ugt:
		return Ule
	}
	panic("tree: unknown RelOp")
}

// Expr is any Tree IR expression node.
type Expr interface{ implExpr() }

// Stmt is any Tree IR statement node.
type Stmt interface{ implStmt() }

// Const is an integer literal.
type Const struct{ Value int64 }

// Name is a reference to a code or data label.
type Name struct{ Label temp.Label }

// Temp is a reference to a virtual register.
type Temp struct{ Temp temp.Temp }

// Binop applies Op to Left and Right.
type Binop struct {
	Op          BinOp
	Left, Right Expr
}

// Mem dereferences the address yielded by Addr.
type Mem struct{ Addr Expr }

// Call invokes Fn with Args; evaluates to the callee's return value.
type Call struct {
	Fn   Expr
	Args []Expr
}

// Eseq evaluates Stmt for effect, then yields the value of Expr. Canon's
// linearize pass eliminates every Eseq (spec §3 invariant: "no ESEQ
// anywhere" after canonicalization).
type Eseq struct {
	Stmt Stmt
	Expr Expr
}

// Extern names a symbol resolved only at link time, never by a Label this
// compilation mints itself (spec §6's runtime symbols — initRecord,
// stringConcat, and friends). Kept distinct from Name because its text is
// an ABI contract, not a debug-named internal label: codegen renders it
// literally rather than through the Temp/Label supply.
type Extern struct{ Symbol string }

func (Const) implExpr()  {}
func (Name) implExpr()   {}
func (Temp) implExpr()   {}
func (Binop) implExpr()  {}
func (Mem) implExpr()    {}
func (Call) implExpr()   {}
func (Eseq) implExpr()   {}
func (Extern) implExpr() {}

// Move assigns the value of Src to the location denoted by Dst (a Temp or
// a Mem).
type Move struct{ Dst, Src Expr }

// Exp evaluates Expr and discards its value (used for CALLs made for
// effect, e.g. a procedure call with no result used).
type Exp struct{ Expr Expr }

// Jump transfers control to the address yielded by Target. Targets lists
// every label Target might evaluate to, for CFG construction.
type Jump struct {
	Target  Expr
	Targets []temp.Label
}

// Cjump transfers control to True if Left Op Right holds, else falls
// through to — after canonicalization — the immediately following
// LABEL(False) (spec §4.2 trace invariant).
type Cjump struct {
	Op          RelOp
	Left, Right Expr
	True, False temp.Label
}

// Seq sequences Left then Right. Canon's linearize flattens every Seq into
// a flat statement list; no Seq survives canonicalization.
type Seq struct{ Left, Right Stmt }

// Label marks the statement stream at Label's address.
type Label struct{ Label temp.Label }

func (Move) implStmt()  {}
func (Exp) implStmt()   {}
func (Jump) implStmt()  {}
func (Cjump) implStmt() {}
func (Seq) implStmt()   {}
func (Label) implStmt() {}

// SeqAll folds a slice of statements into a right-nested Seq chain,
// dropping any nils so callers can build statement lists conditionally.
func SeqAll(stmts ...Stmt) Stmt {
	var filtered []Stmt
	for _, s := range stmts {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	if len(filtered) == 0 {
		return Exp{Expr: Const{Value: 0}}
	}
	result := filtered[len(filtered)-1]
	for i := len(filtered) - 2; i >= 0; i-- {
		result = Seq{Left: filtered[i], Right: result}
	}
	return result
}
