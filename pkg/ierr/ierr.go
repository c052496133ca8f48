// Package ierr defines the compiler-internal invariant-failure error type
// (spec §7 category 2). The teacher reports its own internal errors with
// plain fmt.Errorf/errors.New (cmd/ralph-cc/main.go's ErrNotImplemented);
// this package follows the same stdlib-only idiom, adding just enough
// structure (Phase/Proc/Detail) to satisfy spec §7's "surface with enough
// context to locate the offending procedure and statement."
package ierr

import "fmt"

// Internal is a compiler-internal invariant failure: a bug, never a
// user-program error. Spec §7 calls for no silent recovery, so every
// caller that constructs one is expected to propagate it to the driver
// unchanged.
type Internal struct {
	Phase  string // e.g. "canon.linearize", "codegen", "regalloc"
	Proc   string // procedure name, "" if not yet known
	Detail string
}

func (e *Internal) Error() string {
	if e.Proc != "" {
		return fmt.Sprintf("%s: internal error in %q: %s", e.Phase, e.Proc, e.Detail)
	}
	return fmt.Sprintf("%s: internal error: %s", e.Phase, e.Detail)
}

// New constructs an Internal error for Phase with no procedure context
// yet (the driver fills Proc in as the error propagates up).
func New(phase, detail string, args ...any) *Internal {
	return &Internal{Phase: phase, Detail: fmt.Sprintf(detail, args...)}
}

// WithProc returns a copy of e annotated with the offending procedure
// name, if not already set.
func (e *Internal) WithProc(proc string) *Internal {
	if e.Proc != "" {
		return e
	}
	cp := *e
	cp.Proc = proc
	return &cp
}
