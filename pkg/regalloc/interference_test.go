package regalloc

import (
	"testing"

	"github.com/tigerc/tigerc/pkg/assem"
	"github.com/tigerc/tigerc/pkg/temp"
)

func TestBuildInterferenceGraphNoSelfLoop(t *testing.T) {
	var t1 temp.Temp = 1
	instrs := []Instr{
		assem.Oper{Asm: "inc", Dst: []temp.Temp{t1}, Src: []temp.Temp{t1}},
	}
	live := AnalyzeLiveness(instrs)
	g := BuildInterferenceGraph(instrs, live)

	if g.HasEdge(t1, t1) {
		t.Error("no self-interference is allowed (spec §8)")
	}
}

func TestBuildInterferenceGraphMoveException(t *testing.T) {
	var d, s, other temp.Temp = 1, 2, 3
	instrs := []Instr{
		assem.Oper{Asm: "const", Dst: []temp.Temp{s}},
		assem.Oper{Asm: "const", Dst: []temp.Temp{other}},
		assem.Move{Asm: "mov", Dst: d, Src: s},
		assem.Oper{Asm: "use", Src: []temp.Temp{d, s, other}},
	}
	live := AnalyzeLiveness(instrs)
	g := BuildInterferenceGraph(instrs, live)

	if g.HasEdge(d, s) {
		t.Error("a MOVE d <- s must not interfere with its own source (spec §4.4 step 3)")
	}
	if !g.HasEdge(d, other) {
		t.Error("d should still interfere with other live-out temps")
	}
	if !g.MoveRelated(d) || !g.MoveRelated(s) {
		t.Error("d and s should be move-related candidates for coalescing")
	}
}

func TestBuildInterferenceGraphLiveAcrossCalls(t *testing.T) {
	var n, arg, result temp.Temp = 1, 2, 3
	instrs := []Instr{
		assem.Oper{Asm: "const", Dst: []temp.Temp{n}},
		assem.Move{Asm: "mov", Dst: arg, Src: n},
		assem.Oper{Asm: "call", Src: []temp.Temp{arg}, Dst: []temp.Temp{result}, IsCall: true},
		assem.Oper{Asm: "use", Src: []temp.Temp{n, result}},
	}
	live := AnalyzeLiveness(instrs)
	g := BuildInterferenceGraph(instrs, live)

	if !g.LiveAcrossCalls.Contains(n) {
		t.Error("n is used after the call, so it must be tracked as live across the call")
	}
}
