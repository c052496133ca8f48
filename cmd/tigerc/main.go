// Command tigerc drives the Tiger backend pipeline end to end: Translate,
// Canonicalize, Codegen and Register Allocation (pkg/driver), emitting
// assembly text for one concrete target.
//
// Grounded on cmd/ralph-cc/main.go's newRootCmd(out, errOut io.Writer)
// structure (buffered out/errOut for testability, SilenceUsage/
// SilenceErrors, one RunE dispatching on flags) and its debug-dump-flag
// idiom, narrowed from "one flag per CompCert IR" to "one flag per backend
// stage" (spec §4.6).
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tigerc/tigerc/pkg/assem"
	"github.com/tigerc/tigerc/pkg/ast"
	"github.com/tigerc/tigerc/pkg/driver"
	"github.com/tigerc/tigerc/pkg/frame"
	"github.com/tigerc/tigerc/pkg/ierr"
	"github.com/tigerc/tigerc/pkg/temp"
	"github.com/tigerc/tigerc/pkg/tree"
	"github.com/tigerc/tigerc/target/arm64"
)

var version = "0.1.0"

// targets registers every target.Machine this binary can select with
// --target; only "arm64" ships today (spec §4.6: "unknown names are a
// user-facing cobra usage error, not a panic").
var targets = map[string]func() frame.Machine{
	"arm64": func() frame.Machine { return arm64.New() },
}

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tigerc",
		Short:         "tigerc compiles a Tiger backend input program to target assembly",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.AddCommand(newBuildCmd(out, errOut))
	rootCmd.AddCommand(newVersionCmd(out))
	return rootCmd
}

func newVersionCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the build version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(out, version)
			return nil
		},
	}
}

func newBuildCmd(out, errOut io.Writer) *cobra.Command {
	var (
		outputPath string
		targetName string
		dTree      bool
		dCanon     bool
		dAsm       bool
		dAlloc     bool
	)

	cmd := &cobra.Command{
		Use:           "build <file.tig>",
		Short:         "compile a Tiger backend input program to assembly",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dumps := 0
			for _, on := range []bool{dTree, dCanon, dAsm, dAlloc} {
				if on {
					dumps++
				}
			}
			if dumps > 1 {
				return fmt.Errorf("tigerc: at most one of --dtree, --dcanon, --dasm, --dalloc may be given")
			}

			newMach, ok := targets[targetName]
			if !ok {
				return fmt.Errorf("tigerc: unknown target %q (known: arm64)", targetName)
			}
			mach := newMach()

			prog, err := ast.Load(args[0])
			if err != nil {
				return err
			}

			asm, trace, err := driver.CompileTraced(prog, mach)
			if err != nil {
				return reportCompileError(errOut, err)
			}

			switch {
			case dTree:
				writeTrace(out, trace, func(p driver.ProcTrace) []string { return dumpTreeStmt(p.Tree, trace.Names) })
			case dCanon:
				writeTrace(out, trace, func(p driver.ProcTrace) []string { return dumpTreeStmts(p.Canon, trace.Names) })
			case dAsm:
				writeTrace(out, trace, func(p driver.ProcTrace) []string { return dumpVirtualInstrs(p.Asm) })
			case dAlloc:
				writeTrace(out, trace, func(p driver.ProcTrace) []string { return dumpVirtualInstrs(p.Alloc) })
			default:
				return writeAssembly(out, outputPath, asm)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write assembly text to this file instead of stdout")
	cmd.Flags().StringVar(&targetName, "target", "arm64", "target machine to compile for")
	cmd.Flags().BoolVar(&dTree, "dtree", false, "dump the post-Translate Tree IR instead of assembling")
	cmd.Flags().BoolVar(&dCanon, "dcanon", false, "dump the post-Canonicalize statement list instead of assembling")
	cmd.Flags().BoolVar(&dAsm, "dasm", false, "dump post-Codegen instructions (virtual temps) instead of assembling")
	cmd.Flags().BoolVar(&dAlloc, "dalloc", false, "dump post-register-allocation instructions instead of assembling")
	return cmd
}

// reportCompileError surfaces a compiler-internal invariant failure with
// its phase and procedure (spec §4.7: "no recovery"); any other error
// passes through for cobra to print as-is.
func reportCompileError(errOut io.Writer, err error) error {
	if internal, ok := err.(*ierr.Internal); ok {
		fmt.Fprintf(errOut, "tigerc: internal error in phase %q (proc %q): %s\n", internal.Phase, internal.Proc, internal.Detail)
	}
	return err
}

func writeAssembly(out io.Writer, outputPath string, asm *driver.Assembly) error {
	lines := asm.Lines()
	w := out
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("tigerc: creating %s: %w", outputPath, err)
		}
		defer f.Close()
		w = f
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	return nil
}

func writeTrace(out io.Writer, trace *driver.Trace, render func(driver.ProcTrace) []string) {
	for _, p := range trace.Procedures {
		fmt.Fprintf(out, "; -- %s --\n", p.Name)
		for _, line := range render(p) {
			fmt.Fprintln(out, line)
		}
	}
}

func dumpTreeStmt(stmt tree.Stmt, names map[temp.Label]string) []string {
	return dumpTreeStmts([]tree.Stmt{stmt}, names)
}

func dumpTreeStmts(stmts []tree.Stmt, names map[temp.Label]string) []string {
	var buf strings.Builder
	p := tree.NewPrinterWithNames(&buf, names)
	p.PrintStmts(stmts)
	text := buf.String()
	if len(text) > 0 && text[len(text)-1] == '\n' {
		text = text[:len(text)-1]
	}
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// dumpVirtualInstrs renders instructions with every temp, precolored ones
// included, shown as its raw "t7" text (temp.Temp.String()) rather than a
// register name, for the pre-allocation (--dasm) and post-allocation
// (--dalloc) dumps; neither the allocator's colors nor the machine's
// RegName are consulted.
func dumpVirtualInstrs(instrs []assem.Instruction) []string {
	regName := func(t temp.Temp) (string, bool) { return t.String(), true }
	out := make([]string, len(instrs))
	for i, instr := range instrs {
		out[i] = assem.FormatInstruction(instr, regName)
	}
	return out
}
