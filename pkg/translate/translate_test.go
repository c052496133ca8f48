package translate

import (
	"testing"

	"github.com/tigerc/tigerc/pkg/ast"
	"github.com/tigerc/tigerc/pkg/frame"
	"github.com/tigerc/tigerc/pkg/ierr"
	"github.com/tigerc/tigerc/target/arm64"
)

func program(body ast.Expr) *ast.Program {
	return &ast.Program{Main: &ast.FuncDecl{Name: "main", Body: body}}
}

func TestTranslateIntLiteralProducesOneProcFragment(t *testing.T) {
	mach := arm64.New()
	frags, ts, err := Translate(program(ast.IntLit{Value: 42}), mach)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if ts == nil {
		t.Fatal("Translate should return the Supply it minted ids from")
	}
	if len(frags) != 1 {
		t.Fatalf("got %d fragments, want 1", len(frags))
	}
	if _, ok := frags[0].(frame.ProcFragment); !ok {
		t.Errorf("frags[0] = %T, want frame.ProcFragment", frags[0])
	}
}

func TestTranslateDedupesIdenticalStringLiterals(t *testing.T) {
	mach := arm64.New()
	body := ast.Seq{Exprs: []ast.Expr{
		ast.StringLit{Value: "hi"},
		ast.StringLit{Value: "hi"},
		ast.StringLit{Value: "bye"},
	}}
	frags, _, err := Translate(program(body), mach)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	var strFrags []frame.StringFragment
	for _, f := range frags {
		if sf, ok := f.(frame.StringFragment); ok {
			strFrags = append(strFrags, sf)
		}
	}
	if len(strFrags) != 2 {
		t.Fatalf("got %d distinct string fragments, want 2 (dedup of the repeated \"hi\")", len(strFrags))
	}
}

func TestTranslateBreakOutsideLoopIsInternalError(t *testing.T) {
	mach := arm64.New()
	_, _, err := Translate(program(ast.Break{}), mach)
	if err == nil {
		t.Fatal("expected an error for break outside any loop")
	}
	if _, ok := err.(*ierr.Internal); !ok {
		t.Errorf("err = %T, want *ierr.Internal", err)
	}
}

func TestTranslateWhileWithBreakSucceeds(t *testing.T) {
	mach := arm64.New()
	body := ast.While{
		Cond: ast.IntLit{Value: 1},
		Body: ast.Break{},
	}
	_, _, err := Translate(program(body), mach)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
}

func TestTranslateNestedFunctionProducesTwoProcFragments(t *testing.T) {
	mach := arm64.New()
	inner := &ast.FuncDecl{Name: "inner", Body: ast.IntLit{Value: 7}}
	x := &ast.VarDecl{Name: "x", Escapes: true, Init: ast.IntLit{Value: 1}}
	letBody := ast.Let{
		Decls: []ast.Decl{x, inner},
		Body:  ast.Call{Target: inner, Args: nil},
	}
	frags, _, err := Translate(program(letBody), mach)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	var procs int
	for _, f := range frags {
		if _, ok := f.(frame.ProcFragment); ok {
			procs++
		}
	}
	if procs != 2 {
		t.Fatalf("got %d proc fragments, want 2 (main + inner)", procs)
	}
}

func TestTranslateCallToUndeclaredFunctionIsInternalError(t *testing.T) {
	mach := arm64.New()
	ghost := &ast.FuncDecl{Name: "ghost", Body: ast.IntLit{Value: 0}}
	_, _, err := Translate(program(ast.Call{Target: ghost, Args: nil}), mach)
	if err == nil {
		t.Fatal("expected an error calling a function never declared in any reachable Let")
	}
}

func TestTranslateRecordAndArray(t *testing.T) {
	mach := arm64.New()
	rec := ast.Record{Fields: []ast.Expr{ast.IntLit{Value: 1}, ast.IntLit{Value: 2}}}
	if _, _, err := Translate(program(rec), mach); err != nil {
		t.Fatalf("Translate(record): %v", err)
	}

	arr := ast.Array{Size: ast.IntLit{Value: 3}, Init: ast.IntLit{Value: 0}}
	if _, _, err := Translate(program(arr), mach); err != nil {
		t.Fatalf("Translate(array): %v", err)
	}
}
