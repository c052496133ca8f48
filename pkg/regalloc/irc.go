package regalloc

import (
	"github.com/tigerc/tigerc/pkg/frame"
	"github.com/tigerc/tigerc/pkg/temp"
)

const infiniteDegree = 1 << 30

// Allocator performs one round of iterated register coalescing (spec §4.4
// steps 4-9) over a fixed instruction list. A round either colors every
// temp or reports a set of actual spills for the caller to rewrite before
// restarting a fresh round (spec §4.4 step 10-11, driven by Allocate in
// rewrite.go).
type Allocator struct {
	mach   frame.Machine
	graph  *InterferenceGraph
	instrs []Instr

	// K is the number of usable colors; colorPool holds the K physical
	// register temps in color-index order, non-callee-saved first so that
	// callee-saved colors occupy the high end (spec §4.4's precolored-temp
	// note, used by assignColors to keep call-surviving values safe).
	K                     int
	colorPool             []temp.Temp
	firstCalleeSavedColor int
	poolIndex             map[temp.Temp]int
	precolored            RegSet

	// useDefCount approximates spill cost's "uses + defs weighted by loop
	// nesting" (spec §4.4 step 8); loop depth is approximated as 1
	// uniformly, per the step's own allowance, since no loop-detection pass
	// exists in this pipeline.
	useDefCount map[temp.Temp]int

	colors       map[temp.Temp]int
	simplifyWorklist []temp.Temp
	freezeWorklist   []temp.Temp
	spillWorklist    []temp.Temp
	selectStack      []temp.Temp
	coalescedNodes   RegSet
	coloredNodes     RegSet
	spilledNodes     RegSet
	alias            map[temp.Temp]temp.Temp

	coalescedMoves   [][2]temp.Temp
	constrainedMoves [][2]temp.Temp
	frozenMoves      [][2]temp.Temp
	worklistMoves    [][2]temp.Temp
	activeMoves      [][2]temp.Temp
}

// AllocationResult is one round's outcome: Colors maps every successfully
// colored or precolored temp to its physical register name, and
// SpilledNodes names every temp that must still be rewritten to a frame
// slot before the next round (spec §4.4 step 11: "done when no actual
// spills occurred").
type AllocationResult struct {
	Colors       map[temp.Temp]string
	SpilledNodes RegSet
}

// NewAllocator builds an allocator for one round over graph/instrs.
func NewAllocator(mach frame.Machine, graph *InterferenceGraph, instrs []Instr) *Allocator {
	regs := mach.Registers()
	calleeSet := NewRegSet()
	for _, r := range mach.CalleeSaves() {
		calleeSet.Add(r)
	}
	var pool []temp.Temp
	for _, r := range regs {
		if !calleeSet.Contains(r) {
			pool = append(pool, r)
		}
	}
	first := len(pool)
	for _, r := range regs {
		if calleeSet.Contains(r) {
			pool = append(pool, r)
		}
	}
	poolIndex := make(map[temp.Temp]int, len(pool))
	for i, r := range pool {
		poolIndex[r] = i
	}

	precolored := NewRegSet()
	for r := range graph.Nodes {
		if _, ok := mach.RegName(r); ok {
			precolored.Add(r)
		}
	}

	useDef := make(map[temp.Temp]int)
	for _, instr := range instrs {
		for _, t := range instr.Dsts() {
			useDef[t]++
		}
		for _, t := range instr.Srcs() {
			useDef[t]++
		}
	}

	return &Allocator{
		mach:                  mach,
		graph:                 graph,
		instrs:                instrs,
		K:                     len(pool),
		colorPool:             pool,
		firstCalleeSavedColor: first,
		poolIndex:             poolIndex,
		precolored:            precolored,
		useDefCount:           useDef,
		colors:                make(map[temp.Temp]int),
		coalescedNodes:        NewRegSet(),
		coloredNodes:          NewRegSet(),
		spilledNodes:          NewRegSet(),
		alias:                 make(map[temp.Temp]temp.Temp),
	}
}

// Allocate runs one full round: worklist-driven simplify/coalesce/freeze/
// spill until all three worklists are empty, then assigns colors.
func (a *Allocator) Allocate() *AllocationResult {
	a.buildWorklists()
	for {
		switch {
		case len(a.simplifyWorklist) > 0:
			a.simplify()
		case len(a.worklistMoves) > 0:
			a.coalesce()
		case len(a.freezeWorklist) > 0:
			a.freeze()
		case len(a.spillWorklist) > 0:
			a.selectSpill()
		default:
			goto colorize
		}
	}
colorize:
	a.assignColors()
	return a.buildResult()
}

func (a *Allocator) buildWorklists() {
	for r := range a.graph.Nodes {
		if a.precolored.Contains(r) {
			continue
		}
		if a.degree(r) >= a.K {
			a.spillWorklist = append(a.spillWorklist, r)
		} else if a.graph.MoveRelated(r) {
			a.freezeWorklist = append(a.freezeWorklist, r)
		} else {
			a.simplifyWorklist = append(a.simplifyWorklist, r)
		}
	}

	for r, prefs := range a.graph.Preferences {
		for p := range prefs {
			if r < p {
				a.worklistMoves = append(a.worklistMoves, [2]temp.Temp{r, p})
			}
		}
	}
}

// degree treats a precolored temp as having infinite degree (spec §4.4:
// "preassigned colors with infinite degree; they are never spilled, never
// simplified, never coalesced away").
func (a *Allocator) degree(r temp.Temp) int {
	if a.precolored.Contains(r) {
		return infiniteDegree
	}
	onStack := NewRegSet()
	for _, s := range a.selectStack {
		onStack.Add(s)
	}
	deg := 0
	for neighbor := range a.graph.Edges[r] {
		if !a.coalescedNodes.Contains(neighbor) && !onStack.Contains(neighbor) {
			deg++
		}
	}
	return deg
}

func (a *Allocator) simplify() {
	n := len(a.simplifyWorklist) - 1
	r := a.simplifyWorklist[n]
	a.simplifyWorklist = a.simplifyWorklist[:n]

	a.selectStack = append(a.selectStack, r)
	for neighbor := range a.graph.Edges[r] {
		a.decrementDegree(neighbor)
	}
}

func (a *Allocator) decrementDegree(r temp.Temp) {
	if a.precolored.Contains(r) || a.coalescedNodes.Contains(r) {
		return
	}
	if a.degree(r) == a.K-1 && a.inSpillWorklist(r) {
		a.removeFromWorklist(r, &a.spillWorklist)
		if a.graph.MoveRelated(r) {
			a.freezeWorklist = append(a.freezeWorklist, r)
		} else {
			a.simplifyWorklist = append(a.simplifyWorklist, r)
		}
	}
}

func (a *Allocator) inSpillWorklist(r temp.Temp) bool {
	for _, reg := range a.spillWorklist {
		if reg == r {
			return true
		}
	}
	return false
}

func (a *Allocator) removeFromWorklist(r temp.Temp, list *[]temp.Temp) {
	for i, reg := range *list {
		if reg == r {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}

func (a *Allocator) coalesce() {
	n := len(a.worklistMoves) - 1
	m := a.worklistMoves[n]
	a.worklistMoves = a.worklistMoves[:n]

	x := a.getAlias(m[0])
	y := a.getAlias(m[1])

	var u, v temp.Temp
	switch {
	case a.precolored.Contains(x):
		u, v = x, y
	case a.precolored.Contains(y):
		u, v = y, x
	case x < y:
		u, v = x, y
	default:
		u, v = y, x
	}

	switch {
	case u == v:
		a.coalescedMoves = append(a.coalescedMoves, m)
		a.addToWorklist(u)
	case a.precolored.Contains(u) && a.precolored.Contains(v):
		// Two distinct physical registers can never be the same node.
		a.constrainedMoves = append(a.constrainedMoves, m)
	case a.graph.HasEdge(u, v):
		a.constrainedMoves = append(a.constrainedMoves, m)
		a.addToWorklist(u)
		a.addToWorklist(v)
	case a.precolored.Contains(u) && a.george(u, v), !a.precolored.Contains(u) && a.briggs(u, v):
		a.coalescedMoves = append(a.coalescedMoves, m)
		a.combine(u, v)
		a.addToWorklist(u)
	default:
		a.activeMoves = append(a.activeMoves, m)
	}
}

func (a *Allocator) getAlias(r temp.Temp) temp.Temp {
	if a.coalescedNodes.Contains(r) {
		return a.getAlias(a.alias[r])
	}
	return r
}

// briggs is the conservative coalescing test for two non-precolored nodes:
// safe if the combined node has fewer than K neighbors of degree >= K
// (spec §4.4 step 6).
func (a *Allocator) briggs(u, v temp.Temp) bool {
	neighbors := NewRegSet()
	for n := range a.graph.Edges[u] {
		if !a.coalescedNodes.Contains(n) {
			neighbors.Add(n)
		}
	}
	for n := range a.graph.Edges[v] {
		if !a.coalescedNodes.Contains(n) {
			neighbors.Add(n)
		}
	}
	highDegree := 0
	for n := range neighbors {
		if a.degree(n) >= a.K {
			highDegree++
		}
	}
	return highDegree < a.K
}

// george is the conservative coalescing test to use when u is precolored:
// safe if every neighbor of v either already interferes with u or has
// degree < K (spec §4.4 step 6, "George's... criterion").
func (a *Allocator) george(u, v temp.Temp) bool {
	for n := range a.graph.Edges[v] {
		if a.coalescedNodes.Contains(n) {
			continue
		}
		if a.graph.HasEdge(n, u) {
			continue
		}
		if a.degree(n) < a.K {
			continue
		}
		return false
	}
	return true
}

func (a *Allocator) combine(u, v temp.Temp) {
	a.removeFromWorklist(v, &a.freezeWorklist)
	a.removeFromWorklist(v, &a.spillWorklist)

	a.coalescedNodes.Add(v)
	a.alias[v] = u

	if a.graph.LiveAcrossCalls.Contains(v) {
		a.graph.LiveAcrossCalls.Add(u)
	}

	for n := range a.graph.Edges[v] {
		if !a.coalescedNodes.Contains(n) && n != u {
			a.graph.AddEdge(u, n)
			a.decrementDegree(n)
		}
	}
	for n := range a.graph.Preferences[v] {
		if n != u {
			a.graph.AddPreference(u, n)
		}
	}

	if !a.precolored.Contains(u) && a.degree(u) >= a.K {
		a.removeFromWorklist(u, &a.freezeWorklist)
		a.spillWorklist = append(a.spillWorklist, u)
	}
}

func (a *Allocator) addToWorklist(r temp.Temp) {
	if a.precolored.Contains(r) || a.coalescedNodes.Contains(r) {
		return
	}
	if a.degree(r) < a.K && !a.graph.MoveRelated(r) {
		a.removeFromWorklist(r, &a.freezeWorklist)
		a.simplifyWorklist = append(a.simplifyWorklist, r)
	}
}

func (a *Allocator) freeze() {
	n := len(a.freezeWorklist) - 1
	r := a.freezeWorklist[n]
	a.freezeWorklist = a.freezeWorklist[:n]

	a.simplifyWorklist = append(a.simplifyWorklist, r)
	a.freezeMovesFor(r)
}

func (a *Allocator) freezeMovesFor(r temp.Temp) {
	var remaining [][2]temp.Temp
	for _, m := range a.activeMoves {
		if m[0] == r || m[1] == r {
			a.frozenMoves = append(a.frozenMoves, m)
			other := m[1]
			if m[1] == r {
				other = m[0]
			}
			a.addToWorklist(other)
		} else {
			remaining = append(remaining, m)
		}
	}
	a.activeMoves = remaining
}

// selectSpill picks the spill-worklist node with the highest
// degree-to-use/def ratio (spec §4.4 step 8: "degree ÷ (uses + defs
// weighted by loop nesting)"), breaking ties by lowest temp id (spec §4.4's
// "Numeric semantics").
func (a *Allocator) selectSpill() {
	bestIdx := -1
	var bestRatio float64
	var bestReg temp.Temp

	for i, r := range a.spillWorklist {
		weight := a.useDefCount[r]
		if weight == 0 {
			weight = 1
		}
		ratio := float64(a.degree(r)) / float64(weight)
		if bestIdx == -1 || ratio > bestRatio || (ratio == bestRatio && r < bestReg) {
			bestIdx, bestRatio, bestReg = i, ratio, r
		}
	}

	a.spillWorklist = append(a.spillWorklist[:bestIdx], a.spillWorklist[bestIdx+1:]...)
	a.simplifyWorklist = append(a.simplifyWorklist, bestReg)
	a.freezeMovesFor(bestReg)
}

// assignColors pops the select stack and gives each node the lowest color
// not used by an already-colored neighbor (spec §4.4 step 9); a node live
// across a call is restricted to the callee-saved color range.
func (a *Allocator) assignColors() {
	for len(a.selectStack) > 0 {
		n := len(a.selectStack) - 1
		r := a.selectStack[n]
		a.selectStack = a.selectStack[:n]

		used := make(map[int]bool)
		for neighbor := range a.graph.Edges[r] {
			alias := a.getAlias(neighbor)
			if a.precolored.Contains(alias) {
				if idx, ok := a.poolIndex[alias]; ok {
					used[idx] = true
				}
				continue
			}
			if a.coloredNodes.Contains(alias) {
				used[a.colors[alias]] = true
			}
		}

		start := 0
		if a.graph.LiveAcrossCalls.Contains(r) {
			start = a.firstCalleeSavedColor
		}
		color := -1
		for c := start; c < a.K; c++ {
			if !used[c] {
				color = c
				break
			}
		}
		if color >= 0 {
			a.colors[r] = color
			a.coloredNodes.Add(r)
		} else {
			a.spilledNodes.Add(r)
		}
	}

	for r := range a.coalescedNodes {
		alias := a.getAlias(r)
		switch {
		case a.precolored.Contains(alias):
			// Printed directly from its own RegName at result-build time.
		case a.coloredNodes.Contains(alias):
			a.colors[r] = a.colors[alias]
			a.coloredNodes.Add(r)
		case a.spilledNodes.Contains(alias):
			a.spilledNodes.Add(r)
		}
	}
}

// buildResult resolves every node's color through its coalescing alias, so
// a virtual temp merged into a precolored register (or into another
// virtual temp) ends up with the same register name as its representative
// (spec §8's "Allocation totality": every temp is a key in the result).
func (a *Allocator) buildResult() *AllocationResult {
	result := &AllocationResult{
		Colors:       make(map[temp.Temp]string),
		SpilledNodes: a.spilledNodes.Copy(),
	}

	for r := range a.graph.Nodes {
		if a.spilledNodes.Contains(r) {
			continue
		}
		alias := a.getAlias(r)
		if a.precolored.Contains(alias) {
			name, _ := a.mach.RegName(alias)
			result.Colors[r] = name
			continue
		}
		if a.coloredNodes.Contains(alias) {
			name, _ := a.mach.RegName(a.colorPool[a.colors[alias]])
			result.Colors[r] = name
		}
	}
	return result
}
