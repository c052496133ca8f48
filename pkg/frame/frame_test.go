package frame_test

import (
	"testing"

	"github.com/tigerc/tigerc/pkg/frame"
	"github.com/tigerc/tigerc/pkg/temp"
	"github.com/tigerc/tigerc/pkg/tree"
	"github.com/tigerc/tigerc/target/arm64"
)

func TestAccessInRegRoundTrips(t *testing.T) {
	ts := temp.NewSupply()
	tm := ts.NewTemp()
	a := frame.InReg(tm)
	if a.IsInMem() {
		t.Fatal("InReg access should not report IsInMem")
	}
	if a.Reg() != tm {
		t.Errorf("Reg() = %v, want %v", a.Reg(), tm)
	}
}

func TestAccessInMemRoundTrips(t *testing.T) {
	a := frame.InMem(-16)
	if !a.IsInMem() {
		t.Fatal("InMem access should report IsInMem")
	}
	if a.Offset() != -16 {
		t.Errorf("Offset() = %d, want -16", a.Offset())
	}
}

func TestAccessRegPanicsOnMemAccess(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Reg() on a memory access should panic")
		}
	}()
	frame.InMem(-8).Reg()
}

func TestAccessOffsetPanicsOnRegAccess(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Offset() on a register access should panic")
		}
	}()
	ts := temp.NewSupply()
	frame.InReg(ts.NewTemp()).Offset()
}

func TestAccessExpInRegIgnoresFramePointer(t *testing.T) {
	ts := temp.NewSupply()
	tm := ts.NewTemp()
	got := frame.InReg(tm).Exp(tree.Const{Value: 999})
	te, ok := got.(tree.Temp)
	if !ok || te.Temp != tm {
		t.Errorf("Exp() = %#v, want tree.Temp{%v}", got, tm)
	}
}

func TestAccessExpInMemAddsOffsetToFramePointer(t *testing.T) {
	fp := tree.Temp{Temp: temp.Temp(1)}
	got := frame.InMem(-24).Exp(fp)
	mem, ok := got.(tree.Mem)
	if !ok {
		t.Fatalf("Exp() = %T, want tree.Mem", got)
	}
	bin, ok := mem.Addr.(tree.Binop)
	if !ok || bin.Op != tree.Plus {
		t.Fatalf("Mem.Addr = %#v, want a Plus Binop", mem.Addr)
	}
	if bin.Left != tree.Expr(fp) {
		t.Errorf("Binop.Left = %#v, want the frame pointer", bin.Left)
	}
	if c, ok := bin.Right.(tree.Const); !ok || c.Value != -24 {
		t.Errorf("Binop.Right = %#v, want Const{-24}", bin.Right)
	}
}

func TestAllocLocalEscapingGetsDistinctDecreasingOffsets(t *testing.T) {
	mach := arm64.New()
	ts := temp.NewSupply()
	fr := frame.NewFrame(ts.NamedLabel("f"), nil, mach, ts)

	a := fr.AllocLocal(true, ts)
	b := fr.AllocLocal(true, ts)
	if !a.IsInMem() || !b.IsInMem() {
		t.Fatal("escaping locals must be memory accesses")
	}
	if a.Offset() == b.Offset() {
		t.Error("two escaping locals should not share an offset")
	}
	if b.Offset() >= a.Offset() {
		t.Errorf("offsets should grow downward: first=%d, second=%d", a.Offset(), b.Offset())
	}
}

func TestAllocLocalNonEscapingGetsFreshRegister(t *testing.T) {
	mach := arm64.New()
	ts := temp.NewSupply()
	fr := frame.NewFrame(ts.NamedLabel("f"), nil, mach, ts)

	a := fr.AllocLocal(false, ts)
	b := fr.AllocLocal(false, ts)
	if a.IsInMem() || b.IsInMem() {
		t.Fatal("non-escaping locals must be register accesses")
	}
	if a.Reg() == b.Reg() {
		t.Error("two non-escaping locals should not share a register")
	}
}

func TestFrameSizeGrowsWithEscapingLocals(t *testing.T) {
	mach := arm64.New()
	ts := temp.NewSupply()
	fr := frame.NewFrame(ts.NamedLabel("f"), nil, mach, ts)
	if fr.Size() != 0 {
		t.Fatalf("empty frame Size() = %d, want 0", fr.Size())
	}
	fr.AllocLocal(true, ts)
	fr.AllocLocal(false, ts) // must not affect Size()
	fr.AllocLocal(true, ts)
	if fr.Size() != 2*mach.WordSize() {
		t.Errorf("Size() = %d, want %d", fr.Size(), 2*mach.WordSize())
	}
}

func TestOutermostLevelHasNoParentAndAllFormals(t *testing.T) {
	mach := arm64.New()
	ts := temp.NewSupply()
	top := frame.Outermost("main", mach, ts)
	if top.Parent != nil {
		t.Error("Outermost level should have a nil parent")
	}
	if len(top.Formals()) != 0 {
		t.Errorf("Outermost level should have no user-visible formals, got %d", len(top.Formals()))
	}
}

func TestNewLevelPrependsStaticLink(t *testing.T) {
	mach := arm64.New()
	ts := temp.NewSupply()
	top := frame.Outermost("main", mach, ts)
	child := frame.NewLevel(top, ts.NamedLabel("f"), []bool{false, true}, mach, ts)

	if len(child.Frame.Formals) != 3 {
		t.Fatalf("Frame.Formals has %d entries, want 3 (static link + 2 user formals)", len(child.Frame.Formals))
	}
	if len(child.Formals()) != 2 {
		t.Fatalf("Formals() (user-visible) has %d entries, want 2", len(child.Formals()))
	}

	staticLink := child.StaticLink()
	if !staticLink.IsInMem() {
		t.Error("static link formal should always escape (be a memory access)")
	}
}

func TestLevelEqual(t *testing.T) {
	mach := arm64.New()
	ts := temp.NewSupply()
	a := frame.Outermost("a", mach, ts)
	b := frame.Outermost("b", mach, ts)
	if a.Equal(b) {
		t.Error("two distinct levels should not be Equal")
	}
	if !a.Equal(a) {
		t.Error("a level should be Equal to itself")
	}
	var nilLevel *frame.Level
	if nilLevel.Equal(a) {
		t.Error("a nil level should not be Equal to a non-nil one")
	}
}

func TestStaticLinkPanicsOnOutermost(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("StaticLink() on the outermost level should panic")
		}
	}()
	mach := arm64.New()
	ts := temp.NewSupply()
	frame.Outermost("main", mach, ts).StaticLink()
}
