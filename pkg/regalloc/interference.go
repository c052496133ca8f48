package regalloc

import (
	"github.com/tigerc/tigerc/pkg/assem"
	"github.com/tigerc/tigerc/pkg/temp"
)

// InterferenceGraph represents the register interference graph. Two temps
// interfere if they are both live at the same point and are not related by
// an uncommitted move.
type InterferenceGraph struct {
	// Nodes are every temp that appears in the instruction list.
	Nodes RegSet
	// Edges maps each temp to its interfering neighbors.
	Edges map[temp.Temp]RegSet
	// Preferences maps each temp to temps it is moved to/from (candidates
	// for coalescing).
	Preferences map[temp.Temp]RegSet
	// LiveAcrossCalls tracks temps live across a call instruction; these
	// must be colored with a callee-saved register or spilled.
	LiveAcrossCalls RegSet
}

// NewInterferenceGraph returns an empty graph.
func NewInterferenceGraph() *InterferenceGraph {
	return &InterferenceGraph{
		Nodes:           NewRegSet(),
		Edges:           make(map[temp.Temp]RegSet),
		Preferences:     make(map[temp.Temp]RegSet),
		LiveAcrossCalls: NewRegSet(),
	}
}

// AddNode registers t in the graph, even if it ends up with no edges.
func (g *InterferenceGraph) AddNode(t temp.Temp) {
	g.Nodes.Add(t)
	if g.Edges[t] == nil {
		g.Edges[t] = NewRegSet()
	}
	if g.Preferences[t] == nil {
		g.Preferences[t] = NewRegSet()
	}
}

// AddEdge records that r1 and r2 interfere (spec §8: "No self-interference"
// forbids self-loops).
func (g *InterferenceGraph) AddEdge(r1, r2 temp.Temp) {
	if r1 == r2 {
		return
	}
	g.AddNode(r1)
	g.AddNode(r2)
	g.Edges[r1].Add(r2)
	g.Edges[r2].Add(r1)
}

// AddPreference records a move-coalescing candidate between r1 and r2.
func (g *InterferenceGraph) AddPreference(r1, r2 temp.Temp) {
	if r1 == r2 {
		return
	}
	g.AddNode(r1)
	g.AddNode(r2)
	g.Preferences[r1].Add(r2)
	g.Preferences[r2].Add(r1)
}

// HasEdge reports whether r1 and r2 interfere.
func (g *InterferenceGraph) HasEdge(r1, r2 temp.Temp) bool {
	if edges, ok := g.Edges[r1]; ok {
		return edges.Contains(r2)
	}
	return false
}

// Degree returns the number of interfering neighbors of r.
func (g *InterferenceGraph) Degree(r temp.Temp) int {
	if edges, ok := g.Edges[r]; ok {
		return len(edges)
	}
	return 0
}

// Neighbors returns a copy of r's interfering neighbors.
func (g *InterferenceGraph) Neighbors(r temp.Temp) RegSet {
	if edges, ok := g.Edges[r]; ok {
		return edges.Copy()
	}
	return NewRegSet()
}

// RemoveNode deletes r and every edge/preference touching it.
func (g *InterferenceGraph) RemoveNode(r temp.Temp) {
	if edges, ok := g.Edges[r]; ok {
		for neighbor := range edges {
			delete(g.Edges[neighbor], r)
		}
	}
	if prefs, ok := g.Preferences[r]; ok {
		for neighbor := range prefs {
			delete(g.Preferences[neighbor], r)
		}
	}
	delete(g.Nodes, r)
	delete(g.Edges, r)
	delete(g.Preferences, r)
}

// BuildInterferenceGraph constructs the interference graph from an
// instruction list and its liveness result (spec §4.4 step 3).
func BuildInterferenceGraph(instrs []Instr, liveness *LivenessInfo) *InterferenceGraph {
	g := NewInterferenceGraph()

	for i := range instrs {
		for r := range liveness.Def[i] {
			g.AddNode(r)
		}
		for r := range liveness.Use[i] {
			g.AddNode(r)
		}
	}

	for i, instr := range instrs {
		def := liveness.Def[i]
		liveOut := liveness.LiveOut[i]

		for defReg := range def {
			for liveReg := range liveOut {
				if liveReg == defReg {
					continue
				}
				// A MOVE d <- s does not interfere with its own source
				// (spec §4.4 step 3).
				if isMove(instr) && isMoveSource(instr, liveReg) {
					continue
				}
				g.AddEdge(defReg, liveReg)
			}
		}

		if isCall(instr) {
			for liveReg := range liveOut {
				if def.Contains(liveReg) {
					// The call's own result starts life after the call.
					continue
				}
				g.LiveAcrossCalls.Add(liveReg)
			}
		}
	}

	for _, instr := range instrs {
		if mv, ok := instr.(assem.Move); ok {
			g.AddPreference(mv.Dst, mv.Src)
		}
	}

	return g
}

// isCall reports whether instr is a call instruction: every temp live out
// of it is a candidate for a callee-saved register rather than a
// caller-saved one (regalloc's LiveAcrossCalls tracking).
func isCall(instr Instr) bool {
	oper, ok := instr.(assem.Oper)
	return ok && oper.IsCall
}

// isMoveSource reports whether reg is the source half of a move, the
// exception spec §4.4 step 3 carves out of the interference rule.
func isMoveSource(instr Instr, reg temp.Temp) bool {
	mv, ok := instr.(assem.Move)
	return ok && mv.Src == reg
}

// MoveRelated reports whether r is a candidate for coalescing.
func (g *InterferenceGraph) MoveRelated(r temp.Temp) bool {
	return len(g.Preferences[r]) > 0
}
