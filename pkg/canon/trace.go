package canon

import (
	"github.com/tigerc/tigerc/pkg/temp"
	"github.com/tigerc/tigerc/pkg/tree"
)

// TraceSchedule orders blocks into traces so that, wherever possible, the
// block following a CJUMP is its false target (spec §4.2's
// trace_schedule(blocks, done_label) → [stmt]): a block is chosen, its
// trace is extended by following JUMP/CJUMP successors while they remain
// unscheduled, and a fall-through goto is omitted whenever the next
// emitted block already is the target. When only the true target is
// still free, this pass negates the condition rather than emitting both
// arms: spec §4.2 step 3 asks to "swap the condition... so the unused
// target is false" before resorting to a trampoline.
func TraceSchedule(blocks []*Block, doneLabel temp.Label, ts *temp.Supply) []tree.Stmt {
	byLabel := make(map[temp.Label]*Block, len(blocks))
	for _, b := range blocks {
		byLabel[b.Label] = b
	}
	scheduled := make(map[temp.Label]bool)

	var out []tree.Stmt
	for _, start := range blocks {
		if scheduled[start.Label] {
			continue
		}
		emitTrace(start, byLabel, scheduled, doneLabel, ts, &out)
	}
	out = append(out, tree.Label{Label: doneLabel})
	return dropRedundantJumps(out)
}

// emitTrace emits b and follows its successor chain as long as the next
// block is unscheduled, appending everything to out.
func emitTrace(b *Block, byLabel map[temp.Label]*Block, scheduled map[temp.Label]bool, doneLabel temp.Label, ts *temp.Supply, out *[]tree.Stmt) {
	for b != nil && !scheduled[b.Label] {
		scheduled[b.Label] = true
		*out = append(*out, tree.Label{Label: b.Label})
		*out = append(*out, b.Stmts[:len(b.Stmts)-1]...)

		term := b.Stmts[len(b.Stmts)-1]
		next, rewritten := scheduleTerminal(term, byLabel, scheduled, doneLabel, ts)
		*out = append(*out, rewritten...)
		b = next
	}
}

// scheduleTerminal decides which block, if any, should be emitted right
// after term's owning block, and returns the (possibly rewritten)
// terminal statement(s) to emit.
func scheduleTerminal(term tree.Stmt, byLabel map[temp.Label]*Block, scheduled map[temp.Label]bool, doneLabel temp.Label, ts *temp.Supply) (*Block, []tree.Stmt) {
	switch t := term.(type) {
	case tree.Jump:
		if len(t.Targets) == 1 {
			if next := byLabel[t.Targets[0]]; next != nil && !scheduled[next.Label] {
				return next, nil
			}
		}
		return nil, []tree.Stmt{t}

	case tree.Cjump:
		falseBlk := byLabel[t.False]
		trueBlk := byLabel[t.True]
		falseFree := falseBlk != nil && !scheduled[falseBlk.Label]
		trueFree := trueBlk != nil && !scheduled[trueBlk.Label]

		if falseFree {
			return falseBlk, []tree.Stmt{t}
		}
		if trueFree {
			// Swap the condition's sense so the still-unscheduled true
			// target becomes the new false target and can fall through
			// (spec §4.2 step 3, first option).
			swapped := tree.Cjump{Op: t.Op.Negate(), Left: t.Left, Right: t.Right, True: t.False, False: t.True}
			return trueBlk, []tree.Stmt{swapped}
		}
		// Neither target is free: retarget False to a fresh trampoline
		// label placed immediately after the CJUMP (preserving the trace
		// invariant that a CJUMP is always immediately followed by
		// LABEL(False)), and have the trampoline jump on to the real
		// true target (spec §4.2 step 3, second option).
		trampoline := ts.NewLabel()
		retargeted := tree.Cjump{Op: t.Op, Left: t.Left, Right: t.Right, True: t.True, False: trampoline}
		return nil, []tree.Stmt{
			retargeted,
			tree.Label{Label: trampoline},
			tree.Jump{Target: tree.Name{Label: t.True}, Targets: []temp.Label{t.True}},
		}
	}
	return nil, []tree.Stmt{term}
}

// dropRedundantJumps removes a JUMP(NAME l, _) immediately followed by
// LABEL(l) (spec §4.2 step 4).
func dropRedundantJumps(stmts []tree.Stmt) []tree.Stmt {
	out := make([]tree.Stmt, 0, len(stmts))
	for i := 0; i < len(stmts); i++ {
		if i+1 < len(stmts) {
			if j, ok := stmts[i].(tree.Jump); ok && len(j.Targets) == 1 {
				if l, ok := stmts[i+1].(tree.Label); ok && l.Label == j.Targets[0] {
					continue
				}
			}
		}
		out = append(out, stmts[i])
	}
	return out
}

// Canonicalize chains Linearize, BasicBlocks and TraceSchedule, the
// composite transformation spec §4.2 names as a whole.
func Canonicalize(stmt tree.Stmt, ts *temp.Supply) []tree.Stmt {
	flat := Linearize(stmt, ts)
	blocks, done := BasicBlocks(flat, ts)
	return TraceSchedule(blocks, done, ts)
}
