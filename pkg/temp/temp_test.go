package temp

import "testing"

func TestNewSupplyStartsAtOne(t *testing.T) {
	s := NewSupply()
	if got := s.NewTemp(); got != 1 {
		t.Errorf("first temp = %d, want 1", got)
	}
	if got := s.NewLabel(); got != 1 {
		t.Errorf("first label = %d, want 1", got)
	}
}

func TestNewTempNeverRepeats(t *testing.T) {
	s := NewSupply()
	seen := map[Temp]bool{}
	for i := 0; i < 100; i++ {
		temp := s.NewTemp()
		if seen[temp] {
			t.Fatalf("NewTemp() returned %v twice", temp)
		}
		seen[temp] = true
	}
}

func TestNewSupplyFromContinuesCounters(t *testing.T) {
	s := NewSupplyFrom(42, 99)
	if got := s.NewTemp(); got != 42 {
		t.Errorf("first temp = %d, want 42", got)
	}
	if got := s.NewLabel(); got != 99 {
		t.Errorf("first label = %d, want 99", got)
	}
}

func TestNextIDsDoesNotConsume(t *testing.T) {
	s := NewSupply()
	s.NewTemp()
	s.NewLabel()
	s.NewLabel()

	beforeTemp, beforeLabel := s.NextIDs()
	afterTemp, afterLabel := s.NextIDs()
	if beforeTemp != afterTemp || beforeLabel != afterLabel {
		t.Fatalf("NextIDs should be idempotent, got (%d,%d) then (%d,%d)", beforeTemp, beforeLabel, afterTemp, afterLabel)
	}

	nextTemp := s.NewTemp()
	if nextTemp != beforeTemp {
		t.Errorf("NewTemp() after NextIDs() = %d, want %d", nextTemp, beforeTemp)
	}
}

func TestNamedLabelRecordsPrefix(t *testing.T) {
	s := NewSupply()
	l := s.NamedLabel("main")
	if got := s.Name(l); got != "main" {
		t.Errorf("Name(l) = %q, want %q", got, "main")
	}

	anon := s.NewLabel()
	if got := s.Name(anon); got != "" {
		t.Errorf("Name(anon) = %q, want empty string", got)
	}
}

func TestStringFormatting(t *testing.T) {
	if got := Temp(7).String(); got != "t7" {
		t.Errorf("Temp(7).String() = %q, want %q", got, "t7")
	}
	if got := Label(7).String(); got != "L7" {
		t.Errorf("Label(7).String() = %q, want %q", got, "L7")
	}
}
