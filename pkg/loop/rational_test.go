package loop

import "testing"

func TestNewTimeType(t *testing.T) {
	tests := []struct {
		name    string
		num     int64
		den     int64
		wantNum int64
		wantDen int64
		wantErr bool
	}{
		{"already reduced", 3, 4, 3, 4, false},
		{"reduces", 6, 8, 3, 4, false},
		{"negative denominator moves sign", 3, -4, 0, 0, true}, // 3/-4 == -3/4, negative -> error
		{"zero numerator", 0, 5, 0, 1, false},
		{"zero denominator", 1, 0, 0, 0, true},
		{"negative numerator", -1, 2, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewTimeType(tt.num, tt.den)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Numerator() != tt.wantNum || got.Denominator() != tt.wantDen {
				t.Errorf("got %d/%d, want %d/%d", got.Numerator(), got.Denominator(), tt.wantNum, tt.wantDen)
			}
		})
	}
}

func TestTimeTypeAdd(t *testing.T) {
	a := MustTimeType(1, 2)
	b := MustTimeType(1, 3)
	got := a.Add(b)
	want := MustTimeType(5, 6)
	if !got.Equal(want) {
		t.Errorf("1/2 + 1/3 = %s, want %s", got, want)
	}
}

func TestTimeTypeMulInt(t *testing.T) {
	a := MustTimeType(10, 1)
	got := a.MulInt(3)
	want := TimeFromInt(30)
	if !got.Equal(want) {
		t.Errorf("10 * 3 = %s, want %s", got, want)
	}
}

func TestTimeTypeDivInt(t *testing.T) {
	a := TimeFromInt(8)
	got := a.DivInt(2)
	want := TimeFromInt(4)
	if !got.Equal(want) {
		t.Errorf("8 / 2 = %s, want %s", got, want)
	}
}

func TestTimeTypeSub(t *testing.T) {
	a := TimeFromInt(5)
	b := TimeFromInt(3)
	got, err := a.Sub(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(TimeFromInt(2)) {
		t.Errorf("5 - 3 = %s, want 2", got)
	}

	if _, err := b.Sub(a); err == nil {
		t.Error("expected error subtracting to negative")
	}
}

func TestTimeTypeCmp(t *testing.T) {
	a := MustTimeType(1, 2)
	b := MustTimeType(2, 3)
	if a.Cmp(b) >= 0 {
		t.Errorf("expected 1/2 < 2/3")
	}
	if !a.Less(b) {
		t.Errorf("expected Less true")
	}
	if !a.Equal(MustTimeType(2, 4)) {
		t.Errorf("expected 1/2 == 2/4")
	}
}

func TestTimeTypeIsIntegerAndModInt(t *testing.T) {
	integer := TimeFromInt(9)
	if !integer.IsInteger() {
		t.Fatalf("expected integer TimeType to report IsInteger")
	}
	v, ok := integer.IntValue()
	if !ok || v != 9 {
		t.Fatalf("IntValue() = (%d, %v), want (9, true)", v, ok)
	}
	m, err := integer.ModInt(4)
	if err != nil || m != 1 {
		t.Fatalf("ModInt(4) = (%d, %v), want (1, nil)", m, err)
	}

	fraction := MustTimeType(1, 3)
	if fraction.IsInteger() {
		t.Fatalf("expected 1/3 to not be integer")
	}
	if _, err := fraction.ModInt(4); err == nil {
		t.Fatalf("expected error calling ModInt on a fraction")
	}
}

func TestTimeTypeString(t *testing.T) {
	if got := TimeFromInt(6).String(); got != "6" {
		t.Errorf("String() = %q, want %q", got, "6")
	}
	if got := MustTimeType(3, 4).String(); got != "3/4" {
		t.Errorf("String() = %q, want %q", got, "3/4")
	}
}

func TestTimeTypeFloat64(t *testing.T) {
	got := MustTimeType(1, 4).Float64()
	if got != 0.25 {
		t.Errorf("Float64() = %v, want 0.25", got)
	}
}
