package canon

import (
	"github.com/tigerc/tigerc/pkg/temp"
	"github.com/tigerc/tigerc/pkg/tree"
)

// Block is a basic block (spec §3): its first statement is implicitly its
// label, Stmts holds the body with no interior LABEL, and the last
// statement of Stmts is always a JUMP or CJUMP.
type Block struct {
	Label temp.Label
	Stmts []tree.Stmt
}

// BasicBlocks partitions a flat statement list into blocks, synthesizing
// labels and jumps as needed so every block is well-formed (spec §4.2's
// basic_blocks([stmt]) → ([block], done_label)).
func BasicBlocks(stmts []tree.Stmt, ts *temp.Supply) ([]*Block, temp.Label) {
	doneLabel := ts.NewLabel()
	var blocks []*Block
	i := 0
	for i < len(stmts) {
		var lbl temp.Label
		if l, ok := stmts[i].(tree.Label); ok {
			lbl = l.Label
			i++
		} else {
			lbl = ts.NewLabel()
		}
		var body []tree.Stmt
		for i < len(stmts) {
			if _, isLabel := stmts[i].(tree.Label); isLabel {
				break
			}
			s := stmts[i]
			i++
			body = append(body, s)
			if isTerminal(s) {
				break
			}
		}
		if len(body) == 0 || !isTerminal(body[len(body)-1]) {
			// Fell through into the next LABEL (or end of list) without a
			// terminating jump: synthesize one (spec §4.2).
			var target temp.Label
			if i < len(stmts) {
				target = stmts[i].(tree.Label).Label
			} else {
				target = doneLabel
			}
			body = append(body, tree.Jump{Target: tree.Name{Label: target}, Targets: []temp.Label{target}})
		}
		blocks = append(blocks, &Block{Label: lbl, Stmts: body})
	}
	return blocks, doneLabel
}

func isTerminal(s tree.Stmt) bool {
	switch s.(type) {
	case tree.Jump, tree.Cjump:
		return true
	}
	return false
}
