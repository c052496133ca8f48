// Package assem defines the target-instruction representation Codegen
// emits and Register Allocation rewrites: a small tagged variant with an
// assembly template carrying positional holes for its destination and
// source temps, rather than one Go struct per opcode. A fixed struct per
// opcode (ADD, ADDi, SUB, ...) fits a fixed-ISA backend with no separate
// register-allocation rewrite step, but spec §3's Instruction contract
// (OPER/MOVE/LABEL, "asm is a template with positional holes") needs
// holes an allocator can renumber in place when it spills, so this
// package keeps a closed-interface idiom (one private marker method per
// concrete kind) but reshapes the payload around those holes.
package assem

import (
	"strconv"
	"strings"

	"github.com/tigerc/tigerc/pkg/temp"
)

// Instruction is any target instruction in the Codegen/RegAlloc
// representation.
type Instruction interface {
	implInstruction()
	// Dsts, Srcs and Jumps let liveness analysis and the allocator treat
	// every instruction kind uniformly without a type switch.
	Dsts() []temp.Temp
	Srcs() []temp.Temp
	Jumps() []temp.Label
}

// Oper is a general target instruction: it defines Dst, uses Src, and may
// transfer control to one of Jump (empty Jump means "falls through to the
// next instruction").
type Oper struct {
	Asm  string
	Dst  []temp.Temp
	Src  []temp.Temp
	Jump []temp.Label
	// IsCall marks a call instruction: every temp live across it is a
	// candidate for spilling to a callee-saved register rather than a
	// caller-saved one (regalloc's LiveAcrossCalls tracking).
	IsCall bool
}

func (o Oper) implInstruction() {}
func (o Oper) Dsts() []temp.Temp  { return o.Dst }
func (o Oper) Srcs() []temp.Temp  { return o.Src }
func (o Oper) Jumps() []temp.Label { return o.Jump }

// Move is a register-to-register copy, distinguished from Oper so the
// allocator's coalescing pass (spec §4.4 step 6) can recognize it: a Move
// whose Dst and Src end up in the same register can be deleted entirely.
type Move struct {
	Asm      string
	Dst, Src temp.Temp
}

func (m Move) implInstruction() {}
func (m Move) Dsts() []temp.Temp  { return []temp.Temp{m.Dst} }
func (m Move) Srcs() []temp.Temp  { return []temp.Temp{m.Src} }
func (m Move) Jumps() []temp.Label { return nil }

// Label marks the instruction stream at a code address, for jump targets
// and for the disassembly text.
type Label struct {
	Asm   string
	Label temp.Label
}

func (l Label) implInstruction()    {}
func (l Label) Dsts() []temp.Temp   { return nil }
func (l Label) Srcs() []temp.Temp   { return nil }
func (l Label) Jumps() []temp.Label { return nil }

// Format substitutes positional holes in asm ("`d0`", "`s0`", "`j0`"...)
// with the printed names of dsts, srcs and jumps respectively, the classic
// Appel-style template expansion. regName, if non-nil, renders a temp as
// a physical register name (post-allocation); if nil, temps print their
// own String().
func Format(asmTemplate string, dsts, srcs []temp.Temp, jumps []temp.Label, regName func(temp.Temp) (string, bool)) string {
	render := func(t temp.Temp) string {
		if regName != nil {
			if name, ok := regName(t); ok {
				return name
			}
		}
		return t.String()
	}
	out := asmTemplate
	for i, d := range dsts {
		out = strings.ReplaceAll(out, "`d"+strconv.Itoa(i)+"`", render(d))
	}
	for i, s := range srcs {
		out = strings.ReplaceAll(out, "`s"+strconv.Itoa(i)+"`", render(s))
	}
	for i, j := range jumps {
		out = strings.ReplaceAll(out, "`j"+strconv.Itoa(i)+"`", j.String())
	}
	return out
}

// FormatInstruction renders a full instruction line using Format, handling
// each concrete kind's own Asm/Dst/Src/Jump fields.
func FormatInstruction(instr Instruction, regName func(temp.Temp) (string, bool)) string {
	switch i := instr.(type) {
	case Oper:
		return Format(i.Asm, i.Dst, i.Src, i.Jump, regName)
	case Move:
		return Format(i.Asm, []temp.Temp{i.Dst}, []temp.Temp{i.Src}, nil, regName)
	case Label:
		return Format(i.Asm, nil, nil, nil, regName)
	}
	return "?"
}
