package regalloc

import (
	"github.com/tigerc/tigerc/pkg/assem"
	"github.com/tigerc/tigerc/pkg/frame"
	"github.com/tigerc/tigerc/pkg/ierr"
	"github.com/tigerc/tigerc/pkg/temp"
)

// Allocate is the top-level register-allocation entry point (spec §4.4):
// it runs rounds of the worklist allocator, and whenever a round reports
// actual spills, rewrites the instruction list to load/store through fresh
// frame slots and restarts from step 1, exactly as spec §4.4 step 10
// prescribes ("Restart from step 1"). The loop is bounded by the number of
// distinct temps in the procedure, since each round's rewrite strictly
// replaces a spilled temp with fresh ones that did not exist before (the
// well-foundedness argument spec §4.4 calls for).
func Allocate(mach frame.Machine, fr *frame.Frame, instrs []Instr, ts *temp.Supply) ([]Instr, map[temp.Temp]string, error) {
	cur := instrs
	limit := countDistinctTemps(cur) + 1

	for round := 0; round <= limit; round++ {
		liveness := AnalyzeLiveness(cur)
		graph := BuildInterferenceGraph(cur, liveness)
		result := NewAllocator(mach, graph, cur).Allocate()

		if len(result.SpilledNodes) == 0 {
			return cur, result.Colors, nil
		}
		cur = rewriteSpills(cur, result.SpilledNodes, fr, mach, ts)
	}
	return nil, nil, ierr.New("regalloc", "allocation did not converge within %d rounds", limit)
}

func countDistinctTemps(instrs []Instr) int {
	seen := NewRegSet()
	for _, instr := range instrs {
		for _, t := range instr.Dsts() {
			seen.Add(t)
		}
		for _, t := range instr.Srcs() {
			seen.Add(t)
		}
	}
	return len(seen)
}

// rewriteSpills implements spec §4.4 step 10: each spilled temp gets one
// frame slot; every use is preceded by a load into a fresh temp and every
// def is followed by a store from a fresh temp.
func rewriteSpills(instrs []Instr, spilled RegSet, fr *frame.Frame, mach frame.Machine, ts *temp.Supply) []Instr {
	slots := make(map[temp.Temp]frame.Access, len(spilled))
	for t := range spilled {
		slots[t] = fr.AllocLocal(true, ts)
	}

	out := make([]Instr, 0, len(instrs))
	for _, instr := range instrs {
		srcMap := make(map[temp.Temp]temp.Temp)
		var loads []Instr
		for _, s := range instr.Srcs() {
			if acc, ok := slots[s]; ok {
				if _, done := srcMap[s]; !done {
					fresh := ts.NewTemp()
					loads = append(loads, mach.SpillLoad(fr, acc, fresh).(assem.Instruction))
					srcMap[s] = fresh
				}
			}
		}

		dstMap := make(map[temp.Temp]temp.Temp)
		var stores []Instr
		for _, d := range instr.Dsts() {
			if acc, ok := slots[d]; ok {
				if _, done := dstMap[d]; !done {
					fresh := ts.NewTemp()
					stores = append(stores, mach.SpillStore(fr, acc, fresh).(assem.Instruction))
					dstMap[d] = fresh
				}
			}
		}

		out = append(out, loads...)
		out = append(out, remapInstr(instr, srcMap, dstMap))
		out = append(out, stores...)
	}
	return out
}

func remapInstr(instr Instr, srcMap, dstMap map[temp.Temp]temp.Temp) Instr {
	switch i := instr.(type) {
	case assem.Oper:
		return assem.Oper{
			Asm:    i.Asm,
			Dst:    remapSlice(i.Dst, dstMap),
			Src:    remapSlice(i.Src, srcMap),
			Jump:   i.Jump,
			IsCall: i.IsCall,
		}
	case assem.Move:
		dst, src := i.Dst, i.Src
		if r, ok := dstMap[dst]; ok {
			dst = r
		}
		if r, ok := srcMap[src]; ok {
			src = r
		}
		return assem.Move{Asm: i.Asm, Dst: dst, Src: src}
	default:
		return instr
	}
}

func remapSlice(ts []temp.Temp, replace map[temp.Temp]temp.Temp) []temp.Temp {
	if len(replace) == 0 {
		return ts
	}
	out := make([]temp.Temp, len(ts))
	for i, t := range ts {
		if r, ok := replace[t]; ok {
			out[i] = r
		} else {
			out[i] = t
		}
	}
	return out
}
