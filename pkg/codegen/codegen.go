// Package codegen is the spec §4.3 entry point for instruction selection:
// a thin dispatch onto the target-supplied maximal-munch tiler
// (frame.Machine.CodeGen), so every caller goes through one name
// regardless of which concrete target.Machine — only target/arm64 today —
// is in play.
package codegen

import (
	"github.com/tigerc/tigerc/pkg/frame"
	"github.com/tigerc/tigerc/pkg/temp"
	"github.com/tigerc/tigerc/pkg/tree"
)

// Gen tiles stmts into target instructions over virtual temps (spec
// §4.3's codegen(frame, stmt) contract).
func Gen(mach frame.Machine, fr *frame.Frame, stmts []tree.Stmt, ts *temp.Supply) []frame.AssemInstr {
	return mach.CodeGen(fr, stmts, ts)
}

// GenData lowers every string fragment to target data-section lines
// (spec §4.3's codegen_data).
func GenData(mach frame.Machine, frags []frame.Fragment) []string {
	var lines []string
	for _, f := range frags {
		if str, ok := f.(frame.StringFragment); ok {
			lines = append(lines, mach.DataDirectives(str.Label, str.Literal)...)
		}
	}
	return lines
}
