package runtime

import "testing"

func TestSymbolReturnsKnownRoutine(t *testing.T) {
	got := Symbol("printInt")
	want := "tiger_printInt"
	if got != want {
		t.Errorf("Symbol(%q) = %q, want %q", "printInt", got, want)
	}
}

func TestSymbolPanicsOnUnknownRoutine(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Symbol on an unknown routine should panic")
		}
	}()
	Symbol("notARealRoutine")
}

func TestSymbolsTableCoversEveryRoutineNamedInSymbol(t *testing.T) {
	for _, name := range []string{
		"initRecord", "initArray", "stringEqual", "stringCmp",
		"stringConcat", "printInt", "printString", "readLine", "allocString",
	} {
		if _, ok := Symbols[name]; !ok {
			t.Errorf("Symbols is missing entry for %q", name)
		}
	}
}

func TestSymbolsAreAllDistinct(t *testing.T) {
	seen := make(map[string]string)
	for name, sym := range Symbols {
		if other, ok := seen[sym]; ok {
			t.Errorf("symbol %q used by both %q and %q", sym, name, other)
		}
		seen[sym] = name
	}
}
