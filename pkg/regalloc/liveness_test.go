package regalloc

import (
	"testing"

	"github.com/tigerc/tigerc/pkg/assem"
	"github.com/tigerc/tigerc/pkg/temp"
)

func TestRegSetOperations(t *testing.T) {
	t.Run("Add and Contains", func(t *testing.T) {
		s := NewRegSet()
		s.Add(1)
		s.Add(2)
		if !s.Contains(1) || !s.Contains(2) {
			t.Error("set should contain 1 and 2")
		}
		if s.Contains(3) {
			t.Error("set should not contain 3")
		}
	})

	t.Run("Union", func(t *testing.T) {
		s1, s2 := NewRegSet(), NewRegSet()
		s1.Add(1)
		s1.Add(2)
		s2.Add(2)
		s2.Add(3)
		u := s1.Union(s2)
		if !u.Contains(1) || !u.Contains(2) || !u.Contains(3) {
			t.Error("union should contain 1, 2 and 3")
		}
	})

	t.Run("Minus", func(t *testing.T) {
		s1, s2 := NewRegSet(), NewRegSet()
		s1.Add(1)
		s1.Add(2)
		s1.Add(3)
		s2.Add(2)
		diff := s1.Minus(s2)
		if !diff.Contains(1) || !diff.Contains(3) || diff.Contains(2) {
			t.Error("difference should be {1, 3}")
		}
	})

	t.Run("Equal and Copy", func(t *testing.T) {
		s1 := NewRegSet()
		s1.Add(1)
		c := s1.Copy()
		s1.Add(2)
		if c.Equal(s1) {
			t.Error("copy should not see later mutations")
		}
	})
}

func TestComputeDefUse(t *testing.T) {
	var t1, t2, t3 temp.Temp = 1, 2, 3
	instrs := []Instr{
		assem.Oper{Asm: "const", Dst: []temp.Temp{t1}},
		assem.Oper{Asm: "add", Dst: []temp.Temp{t2}, Src: []temp.Temp{t1, t1}},
		assem.Oper{Asm: "ret", Src: []temp.Temp{t2}},
	}
	def, use := ComputeDefUse(instrs)

	if !def[0].Contains(t1) || len(def[0]) != 1 {
		t.Errorf("instr 0 def = %v, want {t1}", def[0].Slice())
	}
	if len(use[0]) != 0 {
		t.Errorf("instr 0 use = %v, want {}", use[0].Slice())
	}
	if !use[1].Contains(t1) || !def[1].Contains(t2) {
		t.Error("instr 1 should use t1 and define t2")
	}
	if !use[2].Contains(t2) || len(def[2]) != 0 {
		t.Error("instr 2 should use t2 and define nothing")
	}
	_ = t3
}

func TestAnalyzeLivenessSimple(t *testing.T) {
	var t1, t2, t3 temp.Temp = 1, 2, 3
	instrs := []Instr{
		assem.Oper{Asm: "const 1", Dst: []temp.Temp{t1}},
		assem.Oper{Asm: "const 2", Dst: []temp.Temp{t2}},
		assem.Oper{Asm: "add", Dst: []temp.Temp{t3}, Src: []temp.Temp{t1, t2}},
		assem.Oper{Asm: "ret", Src: []temp.Temp{t3}},
	}
	info := AnalyzeLiveness(instrs)

	if !info.LiveIn[3].Contains(t3) {
		t.Error("t3 should be live entering the return")
	}
	if len(info.LiveOut[3]) != 0 {
		t.Error("nothing should be live leaving the return")
	}
	if !info.LiveIn[2].Contains(t1) || !info.LiveIn[2].Contains(t2) {
		t.Error("t1 and t2 should be live entering the add")
	}
	if !info.LiveOut[1].Contains(t1) {
		t.Error("t1 should survive past the second const")
	}
}

func TestAnalyzeLivenessWithBranch(t *testing.T) {
	lTrue, lFalse, lJoin := temp.Label(10), temp.Label(11), temp.Label(12)
	var t1, t2 temp.Temp = 1, 2
	instrs := []Instr{
		assem.Oper{Asm: "const", Dst: []temp.Temp{t1}},
		assem.Oper{Asm: "cjump", Src: []temp.Temp{t1}, Jump: []temp.Label{lTrue, lFalse}},
		assem.Label{Label: lTrue},
		assem.Oper{Asm: "const 10", Dst: []temp.Temp{t2}, Jump: []temp.Label{lJoin}},
		assem.Label{Label: lFalse},
		assem.Oper{Asm: "const 20", Dst: []temp.Temp{t2}, Jump: []temp.Label{lJoin}},
		assem.Label{Label: lJoin},
		assem.Oper{Asm: "ret", Src: []temp.Temp{t2}},
	}
	info := AnalyzeLiveness(instrs)

	if !info.LiveIn[1].Contains(t1) {
		t.Error("t1 should be live entering the branch")
	}
	if info.LiveOut[1].Contains(t2) {
		t.Error("t2 is defined on both arms after the branch, not live across it")
	}
}

func TestAnalyzeLivenessAcrossCall(t *testing.T) {
	var arg, result temp.Temp = 1, 2
	var n temp.Temp = 3
	instrs := []Instr{
		assem.Oper{Asm: "const n", Dst: []temp.Temp{n}},
		assem.Oper{Asm: "mov", Dst: []temp.Temp{arg}, Src: []temp.Temp{n}},
		assem.Oper{Asm: "call f", Src: []temp.Temp{arg}, Dst: []temp.Temp{result}, IsCall: true},
		assem.Oper{Asm: "mul", Dst: []temp.Temp{result}, Src: []temp.Temp{n, result}},
		assem.Oper{Asm: "ret", Src: []temp.Temp{result}},
	}
	info := AnalyzeLiveness(instrs)

	if !info.LiveOut[2].Contains(n) {
		t.Error("n should be live out of the call instruction; it is used afterward")
	}
}
