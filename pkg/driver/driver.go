// Package driver sequences the backend pipeline end to end (spec §4.5):
// Translate, then per procedure linearize -> basic_blocks -> trace_schedule
// -> codegen -> proc_entry_exit2 -> register_allocate -> proc_entry_exit3,
// plus codegen_data for every string fragment: one function that walks a
// fixed stage order and returns the first error it hits, no partial
// recovery (spec §7).
package driver

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/tigerc/tigerc/pkg/ast"
	"github.com/tigerc/tigerc/pkg/assem"
	"github.com/tigerc/tigerc/pkg/canon"
	"github.com/tigerc/tigerc/pkg/codegen"
	"github.com/tigerc/tigerc/pkg/frame"
	"github.com/tigerc/tigerc/pkg/ierr"
	"github.com/tigerc/tigerc/pkg/regalloc"
	"github.com/tigerc/tigerc/pkg/temp"
	"github.com/tigerc/tigerc/pkg/translate"
	"github.com/tigerc/tigerc/pkg/tree"
)

// Procedure is one compiled function: its formatted prologue, allocated
// body instructions (register names already substituted) and epilogue.
type Procedure struct {
	Name     string
	Prologue []string
	Body     []string
	Epilogue []string
}

// Assembly is the driver's complete output (spec §6): one Procedure per
// compiled function plus the data section for string fragments. Emitting
// this to a file is the caller's job (spec §1's scope: "emission of final
// assembly text" is an external collaborator).
type Assembly struct {
	Procedures []Procedure
	Data       []string
}

// Lines flattens the whole assembly into one ordered text-line slice:
// every procedure's prologue/body/epilogue, in fragment order, followed
// by the data section.
func (a *Assembly) Lines() []string {
	var out []string
	for _, p := range a.Procedures {
		out = append(out, p.Prologue...)
		out = append(out, p.Body...)
		out = append(out, p.Epilogue...)
	}
	out = append(out, a.Data...)
	return out
}

// recoverInternal turns a panicking *ierr.Internal, or any other panic
// value, into a returned error — spec §4.7's "the driver wraps the first
// Internal it encounters and returns it to the CLI" only holds for an
// Internal that actually reaches the driver as a return value, and every
// phase below constructs its Internal and panics it instead of returning
// it. Recovering here, at the driver's own call boundaries, is what makes
// that contract hold without rewriting every phase's call chain to thread
// error returns through.
func recoverInternal(r any) error {
	if internal, ok := r.(*ierr.Internal); ok {
		return internal
	}
	return fmt.Errorf("panic: %v", r)
}

// translateSafe runs translate.Translate with a recover, so a panicking
// Internal from simpleVar's static-link walk or translateCall's static-
// link search (the two translate.go sites that panic before any
// procedure-level recover would see them) still comes back as an error.
func translateSafe(prog *ast.Program, mach frame.Machine) (frags []frame.Fragment, ts *temp.Supply, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoverInternal(r)
		}
	}()
	return translate.Translate(prog, mach)
}

// Compile runs the full pipeline sequentially over prog's fragments (spec
// §4.5 steps 1-5), in declaration order, so its output is deterministic.
func Compile(prog *ast.Program, mach frame.Machine) (*Assembly, error) {
	frags, ts, err := translateSafe(prog, mach)
	if err != nil {
		return nil, err
	}

	asm := &Assembly{}
	for _, f := range frags {
		switch frag := f.(type) {
		case frame.ProcFragment:
			proc, err := compileProc(mach, frag, ts)
			if err != nil {
				return nil, annotate(err, frag.Frame.Name.String())
			}
			asm.Procedures = append(asm.Procedures, *proc)
		case frame.StringFragment:
			asm.Data = append(asm.Data, codegen.GenData(mach, []frame.Fragment{frag})...)
		}
	}
	return asm, nil
}

// CompileParallel compiles prog's procedure fragments independently
// across a bounded worker pool (spec §5: "may be compiled in parallel by
// an outer orchestrator... a pure function from (frame, ir_stmt)"), then
// reassembles them in declaration order so output is identical to
// Compile's. Each procedure's post-Translate stages get their own
// temp.Supply carved out of a shared, mutex-protected counter so no two
// concurrently compiled procedures can ever mint the same Temp or Label.
func CompileParallel(prog *ast.Program, mach frame.Machine) (*Assembly, error) {
	frags, ts, err := translateSafe(prog, mach)
	if err != nil {
		return nil, err
	}

	n := len(frags)
	procs := make([]*Procedure, n)
	strs := make([][]string, n)
	errs := make([]error, n)

	startTemp, startLabel := ts.NextIDs()
	counter := newSharedCounter(startTemp, startLabel)
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	jobs := make(chan int)
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				switch frag := frags[i].(type) {
				case frame.ProcFragment:
					ts := counter.next()
					proc, err := compileProc(mach, frag, ts)
					if err != nil {
						errs[i] = annotate(err, frag.Frame.Name.String())
						continue
					}
					procs[i] = proc
				case frame.StringFragment:
					strs[i] = codegen.GenData(mach, []frame.Fragment{frag})
				}
			}
		}()
	}
	for i := range frags {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, e := range errs {
		if e != nil {
			return nil, e
		}
	}

	asm := &Assembly{}
	for i := range frags {
		if procs[i] != nil {
			asm.Procedures = append(asm.Procedures, *procs[i])
		}
		asm.Data = append(asm.Data, strs[i]...)
	}
	return asm, nil
}

// ProcTrace captures the intermediate value of one procedure at every
// named pipeline stage, for cmd/tigerc's --dtree/--dcanon/--dasm/--dalloc
// debug dumps (spec §4.6): dumping is a view onto a value the pipeline
// produced while running to completion, never a truncation of it.
type ProcTrace struct {
	Name  string
	Tree  tree.Stmt          // post-Translate, pre-Canonicalize
	Canon []tree.Stmt        // post-Canonicalize
	Asm   []assem.Instruction // post-Codegen, pre-allocation (virtual temps)
	Alloc []assem.Instruction // post-register-allocation (spill code inserted; temps still virtual)
}

// Trace is CompileTraced's companion output: one ProcTrace per compiled
// procedure, in declaration order, plus the debug-prefix names Translate's
// Supply registered via NamedLabel (cmd/tigerc's dump flags pass Names
// into tree.NewPrinterWithNames so a dump shows "main1" rather than "L1").
type Trace struct {
	Procedures []ProcTrace
	Names      map[temp.Label]string
}

// CompileTraced runs exactly Compile's pipeline but additionally records
// each procedure's intermediate value at every stage boundary, for
// cmd/tigerc's debug-dump flags.
func CompileTraced(prog *ast.Program, mach frame.Machine) (*Assembly, *Trace, error) {
	frags, ts, err := translateSafe(prog, mach)
	if err != nil {
		return nil, nil, err
	}

	asm := &Assembly{}
	trace := &Trace{}
	for _, f := range frags {
		switch frag := f.(type) {
		case frame.ProcFragment:
			proc, pt, err := compileProcTraced(mach, frag, ts)
			if err != nil {
				return nil, nil, annotate(err, frag.Frame.Name.String())
			}
			asm.Procedures = append(asm.Procedures, *proc)
			trace.Procedures = append(trace.Procedures, *pt)
		case frame.StringFragment:
			asm.Data = append(asm.Data, codegen.GenData(mach, []frame.Fragment{frag})...)
		}
	}
	trace.Names = ts.Names()
	return asm, trace, nil
}

func compileProcTraced(mach frame.Machine, frag frame.ProcFragment, ts *temp.Supply) (proc *Procedure, pt *ProcTrace, err error) {
	defer func() {
		if r := recover(); r != nil {
			proc, pt, err = nil, nil, recoverInternal(r)
		}
	}()
	canonical := canon.Canonicalize(frag.Body, ts)
	instrs := codegen.Gen(mach, frag.Frame, canonical, ts)
	instrs = mach.ProcEntryExit2(instrs)
	preAlloc := toInstructions(instrs)

	allocated, colors, err := regalloc.Allocate(mach, frag.Frame, preAlloc, ts)
	if err != nil {
		return nil, nil, err
	}

	body := mach.ProcEntryExit3(frag.Frame, toAssemInstrs(allocated))
	proc = &Procedure{
		Name:     frag.Frame.Name.String(),
		Prologue: body.Prologue,
		Body:     formatAll(allocated, mach, colors),
		Epilogue: body.Epilogue,
	}
	pt = &ProcTrace{
		Name:  proc.Name,
		Tree:  frag.Body,
		Canon: canonical,
		Asm:   preAlloc,
		Alloc: allocated,
	}
	return proc, pt, nil
}

// compileProc runs one procedure through linearize -> basic_blocks ->
// trace_schedule -> codegen -> proc_entry_exit2 -> register_allocate ->
// proc_entry_exit3 (spec §4.5 step 3).
func compileProc(mach frame.Machine, frag frame.ProcFragment, ts *temp.Supply) (proc *Procedure, err error) {
	defer func() {
		if r := recover(); r != nil {
			proc, err = nil, recoverInternal(r)
		}
	}()
	canonical := canon.Canonicalize(frag.Body, ts)
	instrs := codegen.Gen(mach, frag.Frame, canonical, ts)
	instrs = mach.ProcEntryExit2(instrs)

	allocated, colors, err := regalloc.Allocate(mach, frag.Frame, toInstructions(instrs), ts)
	if err != nil {
		return nil, err
	}

	body := mach.ProcEntryExit3(frag.Frame, toAssemInstrs(allocated))
	return &Procedure{
		Name:     frag.Frame.Name.String(),
		Prologue: body.Prologue,
		Body:     formatAll(allocated, mach, colors),
		Epilogue: body.Epilogue,
	}, nil
}

func toInstructions(in []frame.AssemInstr) []assem.Instruction {
	out := make([]assem.Instruction, len(in))
	for i, v := range in {
		out[i] = v.(assem.Instruction)
	}
	return out
}

func toAssemInstrs(in []assem.Instruction) []frame.AssemInstr {
	out := make([]frame.AssemInstr, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

// formatAll renders each instruction's text with temps resolved to
// physical register names through colors, falling back to the machine's
// own precolored RegName for any temp the allocator didn't need to touch
// (spec §8's "Allocation totality" guarantees every temp it rewrote is a
// colors key; a handful of already-physical temps referenced directly by
// codegen, e.g. argument registers, are covered by mach.RegName instead).
func formatAll(instrs []assem.Instruction, mach frame.Machine, colors map[temp.Temp]string) []string {
	regName := func(t temp.Temp) (string, bool) {
		if name, ok := colors[t]; ok {
			return name, true
		}
		return mach.RegName(t)
	}
	out := make([]string, len(instrs))
	for i, instr := range instrs {
		out[i] = assem.FormatInstruction(instr, regName)
	}
	return out
}

// sharedCounter hands out disjoint Supply ranges to concurrently running
// workers (spec §5's "shared, mutex-protected counter").
type sharedCounter struct {
	mu        sync.Mutex
	nextTemp  temp.Temp
	nextLabel temp.Label
}

// chunk is generous enough that no single procedure's canon/codegen/
// regalloc stages could plausibly mint this many fresh ids.
const chunk = 100000

func newSharedCounter(startTemp temp.Temp, startLabel temp.Label) *sharedCounter {
	return &sharedCounter{nextTemp: startTemp, nextLabel: startLabel}
}

func (c *sharedCounter) next() *temp.Supply {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, l := c.nextTemp, c.nextLabel
	c.nextTemp += chunk
	c.nextLabel += chunk
	return temp.NewSupplyFrom(t, l)
}

// annotate wraps err with the procedure name if it is a compiler-internal
// invariant failure (spec §7: "surface with enough context to locate the
// offending procedure"); any other error passes through unchanged.
func annotate(err error, proc string) error {
	if internal, ok := err.(*ierr.Internal); ok {
		return internal.WithProc(proc)
	}
	return fmt.Errorf("%s: %w", proc, err)
}
