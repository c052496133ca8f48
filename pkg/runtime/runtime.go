// Package runtime centralizes the runtime symbol table spec §6 names:
// ABI-level symbols the code generator emits calls to, expected to be
// satisfied by the Tiger runtime library at link time. Its contents
// follow spec §6 directly.
package runtime

// Symbols maps a logical runtime-routine name to the ABI symbol the
// generated assembly calls. Centralized here so pkg/translate (building
// CALL nodes) and a target package (deciding which calls are
// leaf-callable) agree on the same names.
var Symbols = map[string]string{
	"initRecord":   "tiger_initRecord",
	"initArray":    "tiger_initArray",
	"stringEqual":  "tiger_stringEqual",
	"stringCmp":    "tiger_stringCompare",
	"stringConcat": "tiger_stringConcat",
	"printInt":     "tiger_printInt",
	"printString":  "tiger_printString",
	"readLine":     "tiger_readLine",
	"allocString":  "tiger_allocString",
}

// Symbol returns the ABI symbol for a logical runtime routine name,
// panicking if name is not a known runtime routine — callers in
// pkg/translate only ever pass compile-time-constant names, so an unknown
// name is a programming error, not a user-facing one.
func Symbol(name string) string {
	sym, ok := Symbols[name]
	if !ok {
		panic("runtime: unknown runtime routine " + name)
	}
	return sym
}
