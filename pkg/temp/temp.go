// Package temp generates the opaque Temp and Label identifiers the rest of
// the backend manipulates. Temps stand for virtual registers; labels stand
// for code addresses. Both are compared by identity and own no memory.
package temp

import "fmt"

// Temp is an opaque virtual-register identifier.
type Temp int

// Label is an opaque code-address identifier.
type Label int

// String renders a temp as a debug name, e.g. "t7".
func (t Temp) String() string {
	return fmt.Sprintf("t%d", int(t))
}

// String renders a label in its bare "L7" form. A Label carries no
// reference back to the Supply that may have registered a debug prefix
// for it via NamedLabel; callers that want the prefixed form pass
// Supply.Names to tree.NewPrinterWithNames.
func (l Label) String() string {
	return fmt.Sprintf("L%d", int(l))
}

// Supply hands out fresh Temps and Labels from a monotonic counter.
// pkg/driver's sequential Compile keeps using Translate's one Supply for
// every procedure; its parallel path gives each procedure its own Supply
// (see NewSupplyFrom).
type Supply struct {
	nextTemp  Temp
	nextLabel Label
	names     map[Label]string
}

// NewSupply returns a Supply starting both counters at 1, mirroring the
// teacher's own convention of reserving 0 as "no temp"/"no label".
func NewSupply() *Supply {
	return &Supply{nextTemp: 1, nextLabel: 1, names: make(map[Label]string)}
}

// NewSupplyFrom returns a Supply whose counters start at startTemp and
// startLabel. Used by pkg/driver's parallel compilation path (spec §5) to
// hand each procedure its own Supply carved out of a shared, mutex-
// protected counter, so concurrently compiled procedures never mint the
// same Temp or Label.
func NewSupplyFrom(startTemp Temp, startLabel Label) *Supply {
	return &Supply{nextTemp: startTemp, nextLabel: startLabel, names: make(map[Label]string)}
}

// NewTemp returns a fresh Temp, never previously returned by this Supply.
func (s *Supply) NewTemp() Temp {
	t := s.nextTemp
	s.nextTemp++
	return t
}

// NewLabel returns a fresh, unnamed Label.
func (s *Supply) NewLabel() Label {
	l := s.nextLabel
	s.nextLabel++
	return l
}

// NamedLabel returns a fresh Label carrying a debug prefix, for
// human-readable disassembly (e.g. function entry points).
func (s *Supply) NamedLabel(prefix string) Label {
	l := s.NewLabel()
	s.names[l] = prefix
	return l
}

// NextIDs returns the Temp and Label this Supply would hand out next,
// without consuming either. Used by pkg/driver's parallel path to seed a
// sharedCounter's range without risking a collision with ids Translate
// already minted.
func (s *Supply) NextIDs() (Temp, Label) {
	return s.nextTemp, s.nextLabel
}

// Name returns the debug prefix registered for l via NamedLabel, or "" if
// the label has none.
func (s *Supply) Name(l Label) string {
	return s.names[l]
}

// Names returns a copy of every prefix this Supply has registered via
// NamedLabel, for callers (tree.NewPrinterWithNames) that want to render
// labels with their debug prefix rather than the bare "L7" form.
func (s *Supply) Names() map[Label]string {
	out := make(map[Label]string, len(s.names))
	for l, n := range s.names {
		out[l] = n
	}
	return out
}
