package loop

import "testing"

func TestConstantMappedParameterValue(t *testing.T) {
	p := NewConstantMappedParameter("n", 5)
	if got := p.Value(); got != 5 {
		t.Errorf("Value() = %d, want 5", got)
	}
}

func TestMappedParameterUpdateConstants(t *testing.T) {
	p := NewConstantMappedParameter("n", 5)
	p.UpdateConstants(map[string]int{"n": 9})
	if got := p.Value(); got != 9 {
		t.Errorf("after update Value() = %d, want 9", got)
	}

	// unrelated names are ignored
	p.UpdateConstants(map[string]int{"other": 100})
	if got := p.Value(); got != 9 {
		t.Errorf("after unrelated update Value() = %d, want 9", got)
	}
}

func TestMappedParameterMulInt(t *testing.T) {
	p := NewConstantMappedParameter("n", 3)
	merged := p.MulInt(4)
	if got := merged.Value(); got != 12 {
		t.Errorf("MulInt Value() = %d, want 12", got)
	}

	// updating the shared namespace propagates into the derived parameter
	p.UpdateConstants(map[string]int{"n": 5})
	if got := merged.Value(); got != 20 {
		t.Errorf("after update, MulInt Value() = %d, want 20", got)
	}
}

func TestMappedParameterSubInt(t *testing.T) {
	p := NewConstantMappedParameter("n", 10)
	derived := p.SubInt(1)
	if got := derived.Value(); got != 9 {
		t.Errorf("SubInt Value() = %d, want 9", got)
	}
}

func TestMappedParameterMulParameter(t *testing.T) {
	parent := NewConstantMappedParameter("parent_n", 3)
	child := NewConstantMappedParameter("child_n", 4)
	merged := parent.MulParameter(child, "parent_repetition_count", "child_repetition_count")
	if got := merged.Value(); got != 12 {
		t.Errorf("MulParameter Value() = %d, want 12", got)
	}

	parent.UpdateConstants(map[string]int{"parent_n": 6})
	if got := merged.Value(); got != 24 {
		t.Errorf("after parent update, MulParameter Value() = %d, want 24", got)
	}
}

func TestExprRefPanicsOnUnboundName(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on unbound reference")
		}
	}()
	e := exprRef("missing")
	e.eval(map[string]ValueProvider{})
}

func TestMappedParameterString(t *testing.T) {
	p := NewConstantMappedParameter("n", 3)
	merged := p.MulInt(2)
	if got := merged.String(); got != "(n * 2)" {
		t.Errorf("String() = %q, want %q", got, "(n * 2)")
	}
}
