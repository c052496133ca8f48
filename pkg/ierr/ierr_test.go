package ierr

import (
	"strings"
	"testing"
)

func TestNewFormatsDetailWithArgs(t *testing.T) {
	err := New("codegen", "unhandled node %T", 42)
	if err.Phase != "codegen" {
		t.Errorf("Phase = %q, want %q", err.Phase, "codegen")
	}
	if err.Detail != "unhandled node int" {
		t.Errorf("Detail = %q, want %q", err.Detail, "unhandled node int")
	}
	if err.Proc != "" {
		t.Errorf("Proc = %q, want empty until WithProc is called", err.Proc)
	}
}

func TestErrorOmitsProcWhenEmpty(t *testing.T) {
	err := New("regalloc", "no color available")
	if strings.Contains(err.Error(), `""`) {
		t.Errorf("Error() = %q, should not render an empty proc placeholder", err.Error())
	}
	if !strings.Contains(err.Error(), "regalloc") || !strings.Contains(err.Error(), "no color available") {
		t.Errorf("Error() = %q, want it to mention phase and detail", err.Error())
	}
}

func TestErrorIncludesProcWhenSet(t *testing.T) {
	err := New("canon.linearize", "bad seq").WithProc("main")
	if !strings.Contains(err.Error(), "main") {
		t.Errorf("Error() = %q, want it to mention the proc name", err.Error())
	}
}

func TestWithProcDoesNotOverwriteAnExistingProc(t *testing.T) {
	err := New("codegen", "boom").WithProc("inner")
	again := err.WithProc("outer")
	if again.Proc != "inner" {
		t.Errorf("WithProc should not overwrite an already-set Proc, got %q", again.Proc)
	}
}

func TestWithProcReturnsACopyNotTheOriginal(t *testing.T) {
	err := New("codegen", "boom")
	annotated := err.WithProc("main")
	if err.Proc != "" {
		t.Errorf("WithProc must not mutate the receiver, original Proc = %q", err.Proc)
	}
	if annotated.Proc != "main" {
		t.Errorf("annotated.Proc = %q, want %q", annotated.Proc, "main")
	}
}
