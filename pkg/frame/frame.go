// Package frame implements the per-function activation record (spec §3
// "Frame") and the lexical-scope Level wrapper around it, parameterized by
// a target.Machine-shaped description so the same Frame/Level/Access logic
// serves any target. Frame-slot arithmetic and the mutable
// counter-and-map bookkeeping style carried into Frame's own interior
// mutability follow spec §9's note that frames "carry mutable state".
package frame

import (
	"fmt"

	"github.com/tigerc/tigerc/pkg/temp"
	"github.com/tigerc/tigerc/pkg/tree"
)

// Machine is the target-description parameter named in spec §9: register
// sets, word size, calling convention and the per-target code-generation
// and procedure-entry/exit hooks. Defined here, not in a separate
// top-level target package, to avoid an import cycle (Machine's methods
// need to name Frame itself).
type Machine interface {
	// WordSize is the size in bytes of one machine word / frame slot.
	WordSize() int64

	// FP and RV are the precolored temps standing for the frame-pointer
	// and return-value physical registers (spec §6: "Frame pointer temp
	// is a distinguished pre-colored temp, exported by the frame
	// module").
	FP() temp.Temp
	RV() temp.Temp

	// ArgRegs lists the precolored temps used for the first N integer
	// arguments, in calling-convention order.
	ArgRegs() []temp.Temp

	// Registers lists every allocatable physical register as a precolored
	// temp, in a fixed, deterministic order; len(Registers()) is K in the
	// register-allocation algorithm (spec §4.4 step 4).
	Registers() []temp.Temp

	// CalleeSaves is the subset of Registers() that must be saved and
	// restored across a call if used by the callee.
	CalleeSaves() []temp.Temp

	// RegName renders a precolored temp as the assembler's register name,
	// e.g. "x0". ok is false if t is not precolored.
	RegName(t temp.Temp) (name string, ok bool)

	// ExternalCall builds the Tree IR expression for invoking a runtime
	// or library routine by name (spec §4.1: "Record and array creation
	// lower to a call into an external runtime routine").
	ExternalCall(name string, args []tree.Expr) tree.Expr

	// CodeGen tiles a canonical statement list into target instructions
	// (spec §4.3's codegen(frame, stmt) contract), using ts to allocate
	// any fresh temps the tiling needs.
	CodeGen(fr *Frame, stmts []tree.Stmt, ts *temp.Supply) []AssemInstr

	// ProcEntryExit1 wraps a procedure body with the moves that place the
	// result in RV and save/restore callee-saved temps (spec §4.1 stage
	// 1). ts mints the fresh temps those save/restore moves need.
	ProcEntryExit1(fr *Frame, body tree.Stmt, ts *temp.Supply) tree.Stmt

	// ProcEntryExit2 appends the dummy instruction declaring the
	// epilogue's live-out registers (spec §4.1 stage 2).
	ProcEntryExit2(instrs []AssemInstr) []AssemInstr

	// ProcEntryExit3 wraps the allocated instruction list with
	// target-specific prologue and epilogue text (spec §4.1 stage 3).
	ProcEntryExit3(fr *Frame, instrs []AssemInstr) ProcBody

	// DataDirectives lowers one string literal to target data-section
	// lines (spec §4.3's codegen_data).
	DataDirectives(label temp.Label, literal string) []string

	// SpillLoad builds the single instruction that loads acc into dst
	// (spec §4.4 step 10: "insert a load into a fresh temp immediately
	// before the instruction").
	SpillLoad(fr *Frame, acc Access, dst temp.Temp) AssemInstr

	// SpillStore builds the single instruction that stores src into acc
	// (spec §4.4 step 10: "insert a store from a fresh temp immediately
	// after the instruction").
	SpillStore(fr *Frame, acc Access, src temp.Temp) AssemInstr
}

// AssemInstr is a type alias avoiding a frame -> assem -> frame cycle: the
// assem package has no need to know about Frame, so Machine's signatures
// name the interface directly.
type AssemInstr = interface {
	Dsts() []temp.Temp
	Srcs() []temp.Temp
	Jumps() []temp.Label
}

// ProcBody is the prologue/body/epilogue split produced by ProcEntryExit3.
type ProcBody struct {
	Prologue []string
	Body     []AssemInstr
	Epilogue []string
}

// Access describes where a variable lives: either a virtual register
// (InReg) or a frame-relative memory slot (InMem), per spec §3.
type Access struct {
	reg     temp.Temp
	offset  int64
	inMem   bool
}

// InReg returns an Access living in virtual register t.
func InReg(t temp.Temp) Access { return Access{reg: t} }

// InMem returns an Access living at frame-pointer + offset.
func InMem(offset int64) Access { return Access{offset: offset, inMem: true} }

// IsInMem reports whether the access is a memory slot rather than a
// register.
func (a Access) IsInMem() bool { return a.inMem }

// Offset returns the frame-relative offset of a memory access. Panics if
// called on a register access — callers must check IsInMem first.
func (a Access) Offset() int64 {
	if !a.inMem {
		panic("frame: Offset called on a register access")
	}
	return a.offset
}

// Reg returns the temp of a register access. Panics if called on a memory
// access.
func (a Access) Reg() temp.Temp {
	if a.inMem {
		panic("frame: Reg called on a memory access")
	}
	return a.reg
}

// Exp builds the Tree IR expression that reads this access, given the
// current frame pointer expression (the caller chases static links first
// when the access belongs to an outer level — see pkg/translate).
func (a Access) Exp(framePtr tree.Expr) tree.Expr {
	if !a.inMem {
		return tree.Temp{Temp: a.reg}
	}
	return tree.Mem{Addr: tree.Binop{Op: tree.Plus, Left: framePtr, Right: tree.Const{Value: a.offset}}}
}

// Frame is the per-function activation record (spec §3). It carries
// interior mutability (spec §9: "give frames interior mutability behind a
// single-owner handle") because locals accumulate throughout Translate.
type Frame struct {
	Name    temp.Label
	Formals []Access // formals[0] is always the static link
	Locals  []Access

	mach       Machine
	nextOffset int64 // next free (negative-growing) local-slot offset
}

// NewFrame builds a frame for a function whose formals escape according
// to escapes (escapes[0] must correspond to the synthetic static link —
// Level.NewLevel is responsible for prepending it, per spec §4.1's
// new_level contract).
func NewFrame(name temp.Label, escapes []bool, mach Machine, ts *temp.Supply) *Frame {
	fr := &Frame{Name: name, mach: mach}
	for i, esc := range escapes {
		fr.Formals = append(fr.Formals, fr.allocFormal(i, esc, ts))
	}
	return fr
}

// allocFormal computes the access for formal index i. Escaping formals
// live at a fixed offset below the frame pointer, one word apart (spec §9
// Open Question #2, resolved in DESIGN.md: offset is -WordSize*(i+1), not the
// source's 4-byte-assuming -4*i).
func (fr *Frame) allocFormal(i int, escapes bool, ts *temp.Supply) Access {
	if escapes {
		return InMem(-fr.mach.WordSize() * int64(i+1))
	}
	return InReg(ts.NewTemp())
}

// AllocLocal allocates a new local variable, returning its Access. An
// escaping local is placed on the frame at a fresh, word-sized offset
// below the last-allocated slot; a non-escaping local gets a fresh temp
// (spec §4.1's alloc_local).
func (fr *Frame) AllocLocal(escapes bool, ts *temp.Supply) Access {
	if !escapes {
		a := InReg(ts.NewTemp())
		fr.Locals = append(fr.Locals, a)
		return a
	}
	fr.nextOffset -= fr.mach.WordSize()
	a := InMem(fr.nextOffset - int64(len(fr.Formals))*fr.mach.WordSize())
	fr.Locals = append(fr.Locals, a)
	return a
}

// Size returns the number of bytes of local storage allocated on this
// frame so far (callee-save space and the fixed prologue slots are added
// separately by the target's ProcEntryExit3).
func (fr *Frame) Size() int64 {
	return -fr.nextOffset
}

// Level is the lexical-scope wrapper around a Frame (spec §3).
type Level struct {
	id     int
	Parent *Level
	Frame  *Frame
}

var nextLevelID int

// Outermost constructs the distinguished top-level Level: no parent, a
// frame named "main" (or the given name) with no user-visible formals.
func Outermost(name string, mach Machine, ts *temp.Supply) *Level {
	nextLevelID++
	return &Level{
		id:    nextLevelID,
		Frame: NewFrame(ts.NamedLabel(name), nil, mach, ts),
	}
}

// NewLevel creates a child level one lexical scope inside parent. escapes
// lists whether each user-visible formal escapes; NewLevel itself prepends
// the synthetic always-escaping static link as formal #0 (spec §4.1's
// new_level: "prepends a synthetic true to escapes so the static link is
// formal #0").
func NewLevel(parent *Level, name temp.Label, escapes []bool, mach Machine, ts *temp.Supply) *Level {
	nextLevelID++
	allEscapes := append([]bool{true}, escapes...)
	return &Level{
		id:     nextLevelID,
		Parent: parent,
		Frame:  NewFrame(name, allEscapes, mach, ts),
	}
}

// Equal reports whether two levels are the same level, by identity (spec
// §3: "Two levels are equal iff their ids match").
func (l *Level) Equal(other *Level) bool {
	if l == nil || other == nil {
		return l == other
	}
	return l.id == other.id
}

// Formals returns the user-visible formals of this level: the static link
// (formal #0 of the underlying frame) is elided, per spec §4.1's
// get_formals contract.
func (l *Level) Formals() []Access {
	if l.Parent == nil {
		return l.Frame.Formals
	}
	if len(l.Frame.Formals) == 0 {
		panic(fmt.Sprintf("frame: level %d has no formals; every non-outermost level must have at least the static link", l.id))
	}
	return l.Frame.Formals[1:]
}

// StaticLink returns the access to this level's static-link formal.
// Panics on the outermost level, which has none.
func (l *Level) StaticLink() Access {
	if l.Parent == nil {
		panic("frame: outermost level has no static link")
	}
	return l.Frame.Formals[0]
}
