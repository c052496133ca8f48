// Package regalloc implements register allocation by liveness analysis,
// interference-graph construction, and iterated graph coloring with
// coalescing (spec §4.4): interference.go's AddEdge/AddPreference/
// BuildInterferenceGraph (including the move-non-interference special
// case) and irc.go's worklist-driven allocator. liveness.go's own
// RegSet/LiveIn/LiveOut/Use/Def contract is pinned down by
// liveness_test.go.
package regalloc

import (
	"github.com/tigerc/tigerc/pkg/assem"
	"github.com/tigerc/tigerc/pkg/temp"
)

// RegSet is a set of temps, a minimal set abstraction
// (Add/Contains/Union/Minus/Equal/Copy).
type RegSet map[temp.Temp]struct{}

// NewRegSet returns an empty RegSet.
func NewRegSet() RegSet { return make(RegSet) }

func (s RegSet) Add(t temp.Temp)      { s[t] = struct{}{} }
func (s RegSet) Contains(t temp.Temp) bool { _, ok := s[t]; return ok }
func (s RegSet) Remove(t temp.Temp)   { delete(s, t) }

func (s RegSet) Union(other RegSet) RegSet {
	out := make(RegSet, len(s)+len(other))
	for t := range s {
		out[t] = struct{}{}
	}
	for t := range other {
		out[t] = struct{}{}
	}
	return out
}

func (s RegSet) Minus(other RegSet) RegSet {
	out := make(RegSet, len(s))
	for t := range s {
		if !other.Contains(t) {
			out[t] = struct{}{}
		}
	}
	return out
}

func (s RegSet) Equal(other RegSet) bool {
	if len(s) != len(other) {
		return false
	}
	for t := range s {
		if !other.Contains(t) {
			return false
		}
	}
	return true
}

func (s RegSet) Copy() RegSet {
	out := make(RegSet, len(s))
	for t := range s {
		out[t] = struct{}{}
	}
	return out
}

func (s RegSet) Slice() []temp.Temp {
	out := make([]temp.Temp, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	return out
}

// Instr is the instruction view every regalloc stage operates over.
type Instr = assem.Instruction

// LivenessInfo holds the per-instruction dataflow result, indexed by
// position in the instruction slice liveness was computed over.
type LivenessInfo struct {
	Def, Use        []RegSet
	LiveIn, LiveOut []RegSet
}

// cfg is the control-flow-graph view over a flat instruction list: succs
// maps each position to the positions control may flow to next. A label's
// own position is a fall-through-only node (it defines/uses nothing).
type cfg struct {
	succs [][]int
}

// isMove reports whether instr is a coalescable register-to-register copy.
// Liveness and interference treat such an instruction specially: its
// source is used but does not interfere with its destination (spec §4.4
// step 2).
func isMove(instr Instr) bool {
	_, ok := instr.(assem.Move)
	return ok
}

func buildCFG(instrs []Instr, labelPos map[temp.Label]int) *cfg {
	g := &cfg{succs: make([][]int, len(instrs))}
	for i, instr := range instrs {
		jumps := instr.Jumps()
		if len(jumps) == 0 {
			if i+1 < len(instrs) {
				g.succs[i] = []int{i + 1}
			}
			continue
		}
		for _, l := range jumps {
			if pos, ok := labelPos[l]; ok {
				g.succs[i] = append(g.succs[i], pos)
			}
		}
		// A conditional jump instruction (one with targets but that does
		// not exhaustively cover control flow, e.g. a compare+branch that
		// falls through when untaken) also falls through; codegen always
		// emits an explicit unconditional jump for the non-fall-through
		// case after canonicalization guarantees the false label follows
		// immediately, so no extra fall-through edge is added here for
		// genuine (single- or multi-target) jumps.
	}
	return g
}

func labelPositions(instrs []Instr) map[temp.Label]int {
	pos := make(map[temp.Label]int)
	for i, instr := range instrs {
		if l, ok := instr.(assem.Label); ok {
			pos[l.Label] = i
		}
	}
	return pos
}

// ComputeDefUse computes the def/use sets of every instruction.
func ComputeDefUse(instrs []Instr) (def, use []RegSet) {
	def = make([]RegSet, len(instrs))
	use = make([]RegSet, len(instrs))
	for i, instr := range instrs {
		d, u := NewRegSet(), NewRegSet()
		for _, t := range instr.Dsts() {
			d.Add(t)
		}
		for _, t := range instr.Srcs() {
			u.Add(t)
		}
		def[i], use[i] = d, u
	}
	return
}

// AnalyzeLiveness runs the classic backward dataflow fixpoint (spec §4.4
// step 2): live_in = use ∪ (live_out − def), live_out = ⋃ live_in(succ).
func AnalyzeLiveness(instrs []Instr) *LivenessInfo {
	def, use := ComputeDefUse(instrs)
	positions := labelPositions(instrs)
	g := buildCFG(instrs, positions)

	n := len(instrs)
	liveIn := make([]RegSet, n)
	liveOut := make([]RegSet, n)
	for i := range instrs {
		liveIn[i] = NewRegSet()
		liveOut[i] = NewRegSet()
	}

	changed := true
	for changed {
		changed = false
		for i := n - 1; i >= 0; i-- {
			newOut := NewRegSet()
			for _, s := range g.succs[i] {
				newOut = newOut.Union(liveIn[s])
			}
			newIn := use[i].Union(newOut.Minus(def[i]))
			if !newIn.Equal(liveIn[i]) || !newOut.Equal(liveOut[i]) {
				changed = true
			}
			liveIn[i] = newIn
			liveOut[i] = newOut
		}
	}
	return &LivenessInfo{Def: def, Use: use, LiveIn: liveIn, LiveOut: liveOut}
}
