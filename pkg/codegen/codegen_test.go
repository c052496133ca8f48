package codegen

import (
	"testing"

	"github.com/tigerc/tigerc/pkg/frame"
	"github.com/tigerc/tigerc/pkg/temp"
	"github.com/tigerc/tigerc/pkg/tree"
	"github.com/tigerc/tigerc/target/arm64"
)

func TestGenDelegatesToMachine(t *testing.T) {
	mach := arm64.New()
	ts := temp.NewSupply()
	fr := frame.NewFrame(ts.NamedLabel("f"), []bool{true}, mach, ts)
	d := ts.NewTemp()

	instrs := Gen(mach, fr, []tree.Stmt{tree.Move{Dst: tree.Temp{Temp: d}, Src: tree.Const{Value: 1}}}, ts)
	if len(instrs) == 0 {
		t.Fatal("Gen should produce at least one instruction")
	}
}

func TestGenDataOnlyLowersStringFragments(t *testing.T) {
	mach := arm64.New()
	ts := temp.NewSupply()
	l := ts.NamedLabel("str")
	frags := []frame.Fragment{
		frame.StringFragment{Label: l, Literal: "hi"},
		frame.ProcFragment{},
	}
	lines := GenData(mach, frags)
	if len(lines) == 0 {
		t.Fatal("GenData should emit lines for the string fragment")
	}
}
