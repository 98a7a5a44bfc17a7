package loop

import "testing"

func TestUnrollFailsOnLeaf(t *testing.T) {
	leaf := mustLoop(t, LoopSpec{Waveform: NewSimpleWaveform(TimeFromInt(1), NewChannelSet("a"))})
	if err := leaf.Unroll(nil); err == nil {
		t.Errorf("expected error unrolling a leaf")
	}
}

func TestUnrollFailsAtRoot(t *testing.T) {
	channels := NewChannelSet("a")
	childA := mustLoop(t, LoopSpec{Waveform: NewSimpleWaveform(TimeFromInt(1), channels)})
	root := mustLoop(t, LoopSpec{Children: []*Loop{childA}})
	if err := root.Unroll(nil); err == nil {
		t.Errorf("expected error unrolling the root")
	}
}

func TestUnrollE3(t *testing.T) {
	channels := NewChannelSet("a")
	a := mustLoop(t, LoopSpec{Waveform: NewSimpleWaveform(TimeFromInt(1), channels)})
	b := mustLoop(t, LoopSpec{Waveform: NewSimpleWaveform(TimeFromInt(2), channels)})
	mid := mustLoop(t, LoopSpec{RepetitionCount: 3, Children: []*Loop{a, b}})
	grandparent := mustLoop(t, LoopSpec{Children: []*Loop{mid}})

	if err := mid.Unroll(nil); err != nil {
		t.Fatalf("Unroll: %v", err)
	}
	if grandparent.Len() != 6 {
		t.Fatalf("grandparent.Len() = %d, want 6", grandparent.Len())
	}
	for i := 0; i < 6; i += 2 {
		if !grandparent.At(i).Duration().Equal(TimeFromInt(1)) {
			t.Errorf("child %d duration = %s, want 1", i, grandparent.At(i).Duration())
		}
		if !grandparent.At(i+1).Duration().Equal(TimeFromInt(2)) {
			t.Errorf("child %d duration = %s, want 2", i+1, grandparent.At(i+1).Duration())
		}
	}
	if err := grandparent.AssertTreeIntegrity(); err != nil {
		t.Errorf("AssertTreeIntegrity: %v", err)
	}
}

func TestUnrollEmitsVolatileDiagnostic(t *testing.T) {
	channels := NewChannelSet("a")
	a := mustLoop(t, LoopSpec{Waveform: NewSimpleWaveform(TimeFromInt(1), channels)})
	mid := mustLoop(t, LoopSpec{RepetitionParameter: NewConstantMappedParameter("n", 2), Children: []*Loop{a}})
	grandparent := mustLoop(t, LoopSpec{Children: []*Loop{mid}})

	diag := NewDiagnostics()
	if err := mid.Unroll(diag); err != nil {
		t.Fatalf("Unroll: %v", err)
	}
	if diag.Len() != 1 || diag.Items()[0].Kind != DiagVolatileModification {
		t.Errorf("expected one VolatileModification diagnostic, got %v", diag.Items())
	}
	_ = grandparent
}

func TestUnrollChildren(t *testing.T) {
	channels := NewChannelSet("a")
	a := mustLoop(t, LoopSpec{Waveform: NewSimpleWaveform(TimeFromInt(1), channels)})
	b := mustLoop(t, LoopSpec{Waveform: NewSimpleWaveform(TimeFromInt(2), channels)})
	root := mustLoop(t, LoopSpec{RepetitionCount: 2, Children: []*Loop{a, b}})

	if err := root.UnrollChildren(nil); err != nil {
		t.Fatalf("UnrollChildren: %v", err)
	}
	if root.RepetitionCount() != 1 {
		t.Errorf("RepetitionCount() = %d, want 1", root.RepetitionCount())
	}
	if root.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", root.Len())
	}
	if !root.Duration().Equal(TimeFromInt(6)) {
		t.Errorf("Duration() = %s, want 6", root.Duration())
	}
}

func TestEncapsulate(t *testing.T) {
	channels := NewChannelSet("a")
	a := mustLoop(t, LoopSpec{Waveform: NewSimpleWaveform(TimeFromInt(5), channels)})
	root := mustLoop(t, LoopSpec{RepetitionCount: 3, Children: []*Loop{a}})
	durationBefore := root.Duration()

	root.Encapsulate()

	if root.RepetitionCount() != 1 {
		t.Errorf("RepetitionCount() = %d, want 1", root.RepetitionCount())
	}
	if root.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", root.Len())
	}
	inner := root.At(0)
	if inner.RepetitionCount() != 3 {
		t.Errorf("inner.RepetitionCount() = %d, want 3", inner.RepetitionCount())
	}
	if inner.Parent() != root {
		t.Errorf("inner.Parent() != root")
	}
	if !root.Duration().Equal(durationBefore) {
		t.Errorf("Duration() changed across Encapsulate: %s vs %s", root.Duration(), durationBefore)
	}
}

func TestSplitOneChildDefaultSelection(t *testing.T) {
	channels := NewChannelSet("a")
	a := mustLoop(t, LoopSpec{RepetitionCount: 3, Waveform: NewSimpleWaveform(TimeFromInt(1), channels)})
	b := mustLoop(t, LoopSpec{RepetitionCount: 1, Waveform: NewSimpleWaveform(TimeFromInt(2), channels)})
	root := mustLoop(t, LoopSpec{Children: []*Loop{a, b}})

	if err := root.SplitOneChild(nil, nil); err != nil {
		t.Fatalf("SplitOneChild: %v", err)
	}
	if root.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", root.Len())
	}
	if root.At(0).RepetitionCount() != 2 {
		t.Errorf("At(0).RepetitionCount() = %d, want 2", root.At(0).RepetitionCount())
	}
	if root.At(1).RepetitionCount() != 1 {
		t.Errorf("At(1).RepetitionCount() = %d, want 1", root.At(1).RepetitionCount())
	}
	if !root.At(1).Duration().Equal(TimeFromInt(1)) {
		t.Errorf("At(1).Duration() = %s, want 1", root.At(1).Duration())
	}
}

func TestSplitOneChildRejectsLowRepetitionIndex(t *testing.T) {
	channels := NewChannelSet("a")
	a := mustLoop(t, LoopSpec{Waveform: NewSimpleWaveform(TimeFromInt(1), channels)})
	root := mustLoop(t, LoopSpec{Children: []*Loop{a}})
	idx := 0
	if err := root.SplitOneChild(&idx, nil); err == nil {
		t.Errorf("expected error splitting a child with repetition count < 2")
	}
}

func TestSplitOneChildFailsWithNoCandidate(t *testing.T) {
	channels := NewChannelSet("a")
	a := mustLoop(t, LoopSpec{Waveform: NewSimpleWaveform(TimeFromInt(1), channels)})
	root := mustLoop(t, LoopSpec{Children: []*Loop{a}})
	if err := root.SplitOneChild(nil, nil); err == nil {
		t.Errorf("expected error with no split candidate")
	}
}

func TestFlattenAndBalance(t *testing.T) {
	channels := NewChannelSet("a")
	deep := mustLoop(t, LoopSpec{Waveform: NewSimpleWaveform(TimeFromInt(1), channels)})
	shallow := mustLoop(t, LoopSpec{Waveform: NewSimpleWaveform(TimeFromInt(2), channels)})
	root := mustLoop(t, LoopSpec{Children: []*Loop{deep, shallow}})

	if err := root.FlattenAndBalance(2, nil); err != nil {
		t.Fatalf("FlattenAndBalance: %v", err)
	}
	if !root.IsBalanced() {
		t.Errorf("expected root to be balanced after FlattenAndBalance")
	}
	if root.Depth() != 2 {
		t.Errorf("root.Depth() = %d, want 2", root.Depth())
	}
	if err := root.AssertTreeIntegrity(); err != nil {
		t.Errorf("AssertTreeIntegrity: %v", err)
	}
}

func TestCleanupRemovesEmptyLeafAndEmitsDiagnostic(t *testing.T) {
	empty := mustLoop(t, LoopSpec{
		Measurements: []MeasurementWindow{{Name: "m", Begin: Zero, Length: TimeFromInt(1)}},
	})
	channels := NewChannelSet("a")
	kept := mustLoop(t, LoopSpec{Waveform: NewSimpleWaveform(TimeFromInt(3), channels)})
	root := mustLoop(t, LoopSpec{Children: []*Loop{empty, kept}})

	diag := NewDiagnostics()
	root.Cleanup(RemoveEmptyLoops, diag)

	if root.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", root.Len())
	}
	if root.At(0) != kept {
		t.Errorf("expected the surviving child to be the waveform leaf")
	}
	if diag.Len() != 1 || diag.Items()[0].Kind != DiagDroppedMeasurement {
		t.Errorf("expected one DroppedMeasurement diagnostic, got %v", diag.Items())
	}
}

func TestCleanupE4Merge(t *testing.T) {
	channels := NewChannelSet("a")
	w := NewSimpleWaveform(TimeFromInt(7), channels)
	child := mustLoop(t, LoopSpec{RepetitionCount: 3, Waveform: w})
	root := mustLoop(t, LoopSpec{RepetitionCount: 2, Children: []*Loop{child}})

	root.Cleanup(MergeSingleChild, nil)

	if root.RepetitionCount() != 6 {
		t.Errorf("RepetitionCount() = %d, want 6", root.RepetitionCount())
	}
	if !root.IsLeaf() {
		t.Errorf("expected root to be a leaf after merge")
	}
	if root.Waveform() == nil || !root.Waveform().Equal(w) {
		t.Errorf("expected root.Waveform() to be the original waveform")
	}
}

func TestMergeSingleChildRejectsWhenMeasurementsBlockIt(t *testing.T) {
	channels := NewChannelSet("a")
	child := mustLoop(t, LoopSpec{RepetitionCount: 2, Waveform: NewSimpleWaveform(TimeFromInt(1), channels)})
	root := mustLoop(t, LoopSpec{
		Children:     []*Loop{child},
		Measurements: []MeasurementWindow{{Name: "m", Begin: Zero, Length: TimeFromInt(1)}},
	})
	if err := root.MergeSingleChild(); err == nil {
		t.Errorf("expected error merging when own measurements block a rep>1 child")
	}
}

func TestMergeSingleChildBothVolatile(t *testing.T) {
	channels := NewChannelSet("a")
	parentParam := NewConstantMappedParameter("p", 2)
	childParam := NewConstantMappedParameter("c", 3)
	child := mustLoop(t, LoopSpec{RepetitionParameter: childParam, Waveform: NewSimpleWaveform(TimeFromInt(1), channels)})
	root := mustLoop(t, LoopSpec{RepetitionParameter: parentParam, Children: []*Loop{child}})

	if err := root.MergeSingleChild(); err != nil {
		t.Fatalf("MergeSingleChild: %v", err)
	}
	if root.RepetitionCount() != 6 {
		t.Errorf("RepetitionCount() = %d, want 6", root.RepetitionCount())
	}
	if !root.IsVolatile() {
		t.Errorf("expected merged node to remain volatile")
	}
}
