package regalloc

import (
	"fmt"

	"github.com/tigerc/tigerc/pkg/assem"
	"github.com/tigerc/tigerc/pkg/frame"
	"github.com/tigerc/tigerc/pkg/temp"
	"github.com/tigerc/tigerc/pkg/tree"
)

// fakeMachine is a minimal frame.Machine double exercising exactly the
// methods the regalloc package calls: Registers/CalleeSaves/RegName for
// coloring, SpillLoad/SpillStore for the rewrite loop. It deliberately
// exposes only two colorable registers so tests can force real spills
// without synthesizing a large interference graph.
type fakeMachine struct {
	r1, r2 temp.Temp
}

func newFakeMachine() *fakeMachine {
	return &fakeMachine{r1: 9001, r2: 9002}
}

func (m *fakeMachine) WordSize() int64        { return 8 }
func (m *fakeMachine) FP() temp.Temp          { return 9000 }
func (m *fakeMachine) RV() temp.Temp          { return m.r1 }
func (m *fakeMachine) ArgRegs() []temp.Temp   { return []temp.Temp{m.r1} }
func (m *fakeMachine) Registers() []temp.Temp { return []temp.Temp{m.r1, m.r2} }
func (m *fakeMachine) CalleeSaves() []temp.Temp { return []temp.Temp{m.r2} }

func (m *fakeMachine) RegName(t temp.Temp) (string, bool) {
	switch t {
	case m.r1:
		return "r1", true
	case m.r2:
		return "r2", true
	default:
		return "", false
	}
}

func (m *fakeMachine) ExternalCall(name string, args []tree.Expr) tree.Expr { panic("unused") }
func (m *fakeMachine) CodeGen(fr *frame.Frame, stmts []tree.Stmt, ts *temp.Supply) []frame.AssemInstr {
	panic("unused")
}
func (m *fakeMachine) ProcEntryExit1(fr *frame.Frame, body tree.Stmt, ts *temp.Supply) tree.Stmt {
	panic("unused")
}
func (m *fakeMachine) ProcEntryExit2(instrs []frame.AssemInstr) []frame.AssemInstr {
	panic("unused")
}
func (m *fakeMachine) ProcEntryExit3(fr *frame.Frame, instrs []frame.AssemInstr) frame.ProcBody {
	panic("unused")
}
func (m *fakeMachine) DataDirectives(label temp.Label, literal string) []string { panic("unused") }

func (m *fakeMachine) SpillLoad(fr *frame.Frame, acc frame.Access, dst temp.Temp) frame.AssemInstr {
	return assem.Oper{Asm: fmt.Sprintf("load `d0`, [fp%+d]", acc.Offset()), Dst: []temp.Temp{dst}}
}

func (m *fakeMachine) SpillStore(fr *frame.Frame, acc frame.Access, src temp.Temp) frame.AssemInstr {
	return assem.Oper{Asm: fmt.Sprintf("store `s0`, [fp%+d]", acc.Offset()), Src: []temp.Temp{src}}
}
