package tree

import (
	"fmt"
	"io"

	"github.com/tigerc/tigerc/pkg/temp"
)

// Printer renders Tree IR as flat, parenthesized text for debugging — the
// --dtree and --dcanon dumps in cmd/tigerc: a Printer{w io.Writer}
// wrapping fmt.Fprint* calls, one print method per node kind dispatched
// through a type switch.
type Printer struct {
	w     io.Writer
	names map[temp.Label]string
}

// NewPrinter returns a Printer writing to w, rendering every label as its
// bare "L7" form.
func NewPrinter(w io.Writer) *Printer { return &Printer{w: w} }

// NewPrinterWithNames returns a Printer that renders a label carrying a
// debug prefix (registered via Supply.NamedLabel) as "<prefix>7" instead
// of the bare "L7" form — spec §3's "labels optionally created with a
// prefix string for debuggability", realized here since Label itself has
// no way to recover the prefix its originating Supply recorded.
func NewPrinterWithNames(w io.Writer, names map[temp.Label]string) *Printer {
	return &Printer{w: w, names: names}
}

func (p *Printer) labelText(l temp.Label) string {
	if name, ok := p.names[l]; ok && name != "" {
		return fmt.Sprintf("%s%d", name, int(l))
	}
	return l.String()
}

// PrintStmts prints one statement per line, in order.
func (p *Printer) PrintStmts(stmts []Stmt) {
	for _, s := range stmts {
		p.printStmt(s)
		fmt.Fprintln(p.w)
	}
}

func (p *Printer) printStmt(s Stmt) {
	switch v := s.(type) {
	case Move:
		fmt.Fprint(p.w, "MOVE(")
		p.printExpr(v.Dst)
		fmt.Fprint(p.w, ", ")
		p.printExpr(v.Src)
		fmt.Fprint(p.w, ")")
	case Exp:
		fmt.Fprint(p.w, "EXP(")
		p.printExpr(v.Expr)
		fmt.Fprint(p.w, ")")
	case Jump:
		fmt.Fprint(p.w, "JUMP(")
		p.printExpr(v.Target)
		fmt.Fprint(p.w, ")")
	case Cjump:
		fmt.Fprintf(p.w, "CJUMP(%s, ", relOpName(v.Op))
		p.printExpr(v.Left)
		fmt.Fprint(p.w, ", ")
		p.printExpr(v.Right)
		fmt.Fprintf(p.w, ", %s, %s)", p.labelText(v.True), p.labelText(v.False))
	case Seq:
		fmt.Fprint(p.w, "SEQ(")
		p.printStmt(v.Left)
		fmt.Fprint(p.w, "; ")
		p.printStmt(v.Right)
		fmt.Fprint(p.w, ")")
	case Label:
		fmt.Fprintf(p.w, "LABEL(%s)", p.labelText(v.Label))
	default:
		fmt.Fprintf(p.w, "<unknown stmt %T>", v)
	}
}

func (p *Printer) printExpr(e Expr) {
	switch v := e.(type) {
	case Const:
		fmt.Fprintf(p.w, "CONST(%d)", v.Value)
	case Name:
		fmt.Fprintf(p.w, "NAME(%s)", p.labelText(v.Label))
	case Extern:
		fmt.Fprintf(p.w, "EXTERN(%s)", v.Symbol)
	case Temp:
		fmt.Fprintf(p.w, "TEMP(%s)", v.Temp)
	case Binop:
		fmt.Fprintf(p.w, "BINOP(%s, ", binOpName(v.Op))
		p.printExpr(v.Left)
		fmt.Fprint(p.w, ", ")
		p.printExpr(v.Right)
		fmt.Fprint(p.w, ")")
	case Mem:
		fmt.Fprint(p.w, "MEM(")
		p.printExpr(v.Addr)
		fmt.Fprint(p.w, ")")
	case Call:
		fmt.Fprint(p.w, "CALL(")
		p.printExpr(v.Fn)
		for _, a := range v.Args {
			fmt.Fprint(p.w, ", ")
			p.printExpr(a)
		}
		fmt.Fprint(p.w, ")")
	case Eseq:
		fmt.Fprint(p.w, "ESEQ(")
		p.printStmt(v.Stmt)
		fmt.Fprint(p.w, ", ")
		p.printExpr(v.Expr)
		fmt.Fprint(p.w, ")")
	default:
		fmt.Fprintf(p.w, "<unknown expr %T>", v)
	}
}

func binOpName(op BinOp) string {
	switch op {
	case Plus:
		return "+"
	case Minus:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	case And:
		return "&"
	case Or:
		return "|"
	case LShift:
		return "<<"
	case RShift:
		return ">>"
	case ARShift:
		return ">>>"
	case Xor:
		return "^"
	default:
		return "?"
	}
}

func relOpName(op RelOp) string {
	switch op {
	case Eq:
		return "="
	case Ne:
		return "<>"
	case Lt:
		return "<"
	case Gt:
		return ">"
	case Le:
		return "<="
	case Ge:
		return ">="
	case Ult:
		return "u<"
	case Ule:
		return "u<="
	case Ugt:
		return "u>"
	case Uge:
		return "u>="
	default:
		return "?"
	}
}
