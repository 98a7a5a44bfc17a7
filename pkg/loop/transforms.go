package loop

// spliceChildren replaces the half-open child range [start, end) with
// replacement, reparenting every node in replacement to l and fully
// invalidating l's cached duration. Every structural transform below goes
// through this single splice point rather than mutating l.children by hand.
func (l *Loop) spliceChildren(start, end int, replacement []*Loop) {
	next := make([]*Loop, 0, len(l.children)-(end-start)+len(replacement))
	next = append(next, l.children[:start]...)
	next = append(next, replacement...)
	next = append(next, l.children[end:]...)
	l.setChildrenRaw(next)
}

// Unroll replaces l, in its parent's child list, with repetitionCount deep
// clones of l's own children, each reparented to l's former parent. Fails
// on a leaf (nothing to unroll) or at the root (no parent list to splice
// into). Emits a volatile-modification diagnostic if l is volatile, since
// the clones it is replaced with are all fixed-repetition.
func (l *Loop) Unroll(diag *Diagnostics) error {
	if l.IsLeaf() {
		return newError(ErrInvalidArgument, "Unroll", "cannot unroll a leaf")
	}
	if l.parent == nil {
		return newError(ErrInvalidArgument, "Unroll", "cannot unroll the root: no parent to splice into")
	}
	if l.IsVolatile() {
		diag.emit(DiagVolatileModification, "unroll discarded volatility of a node repeated %d time(s)", l.repetitionCount)
	}

	parent := l.parent
	idx, _ := l.ParentIndex()

	replacement := make([]*Loop, 0, l.repetitionCount*len(l.children))
	for k := 0; k < l.repetitionCount; k++ {
		for _, c := range l.children {
			replacement = append(replacement, c.CopyTreeStructure(parent))
		}
	}
	parent.spliceChildren(idx, idx+1, replacement)
	return nil
}

// UnrollChildren replaces l's own children with repetitionCount deep clones
// of the current child sequence, then resets l's repetition to a fixed 1.
// Emits a volatile-modification diagnostic if l was volatile.
func (l *Loop) UnrollChildren(diag *Diagnostics) error {
	if l.IsVolatile() {
		diag.emit(DiagVolatileModification, "unroll_children discarded volatility of a node repeated %d time(s)", l.repetitionCount)
	}

	next := make([]*Loop, 0, l.repetitionCount*len(l.children))
	for k := 0; k < l.repetitionCount; k++ {
		for _, c := range l.children {
			next = append(next, c.CopyTreeStructure(l))
		}
	}
	l.setChildrenRaw(next)
	l.repetitionCount = 1
	l.repetitionParameter = nil
	l.invalidate(nil)
	return nil
}

// Encapsulate adds one nesting level: l's former payload (children,
// waveform, measurements, repetition count, volatility) moves into a new
// single child, and l itself is reset to a fixed-repetition-1 node with no
// waveform or measurements whose only child is that new node.
func (l *Loop) Encapsulate() {
	inner := &Loop{
		waveform:            l.waveform,
		repetitionCount:     l.repetitionCount,
		repetitionParameter: l.repetitionParameter,
		measurements:        l.measurements,
	}
	for _, c := range l.children {
		c.parent = inner
	}
	inner.children = l.children

	l.waveform = nil
	l.repetitionCount = 1
	l.repetitionParameter = nil
	l.measurements = nil
	l.setChildrenRaw([]*Loop{inner})
}

// SplitOneChild decrements one child's repetition count by 1 and inserts a
// structural copy of that child's body, with repetition count fixed at 1,
// immediately after it. If index is non-nil, the child at that position
// must already have a repetition count >= 2. Otherwise the last child with
// repetition count > 1 is chosen, preferring a non-volatile candidate and
// only falling back to a volatile one if no non-volatile candidate exists.
// Splitting a volatile child emits a volatile-modification diagnostic and
// rewrites its repetition expression as old_expr - 1.
func (l *Loop) SplitOneChild(index *int, diag *Diagnostics) error {
	var idx int
	switch {
	case index != nil:
		idx = *index
		if idx < 0 || idx >= len(l.children) {
			return newError(ErrInvalidArgument, "SplitOneChild", "index %d out of range", idx)
		}
		if l.children[idx].repetitionCount < 2 {
			return newError(ErrInvalidArgument, "SplitOneChild", "child at index %d has repetition count %d, want >= 2", idx, l.children[idx].repetitionCount)
		}
	default:
		nonVolatile, volatile := -1, -1
		for i, c := range l.children {
			if c.repetitionCount <= 1 {
				continue
			}
			if c.IsVolatile() {
				volatile = i
			} else {
				nonVolatile = i
			}
		}
		switch {
		case nonVolatile >= 0:
			idx = nonVolatile
		case volatile >= 0:
			idx = volatile
		default:
			return newError(ErrInvalidArgument, "SplitOneChild", "no child with repetition count >= 2 found")
		}
	}

	child := l.children[idx]
	if child.IsVolatile() {
		diag.emit(DiagVolatileModification, "split_one_child rewrote child %d's repetition expression as old - 1", idx)
		child.repetitionParameter = child.repetitionParameter.SubInt(1)
		child.repetitionCount = child.repetitionParameter.Value()
		child.invalidate(nil)
	} else if err := child.SetRepetitionCount(child.repetitionCount - 1); err != nil {
		return err
	}

	copyChildren := make([]*Loop, len(child.children))
	for i, c := range child.children {
		copyChildren[i] = c.CopyTreeStructure(nil)
	}
	copyNode, err := NewLoop(LoopSpec{
		Waveform:        child.waveform,
		Children:        copyChildren,
		RepetitionCount: 1,
		Measurements:    append([]MeasurementWindow(nil), child.measurements...),
	})
	if err != nil {
		return err
	}

	l.spliceChildren(idx+1, idx+1, []*Loop{copyNode})
	return nil
}

// FlattenAndBalance rewrites the subtree so that every leaf sits at exactly
// targetDepth from l, walking children left to right and re-examining the
// same index after any mutation (encapsulate, recursive balance, merge, or
// unroll) rather than advancing past it — a child can itself shrink or grow
// during that step, so only a fresh look decides what to do next. diag
// receives any volatile-modification diagnostics raised by the unrolls this
// may perform.
func (l *Loop) FlattenAndBalance(targetDepth int, diag *Diagnostics) error {
	i := 0
	for i < len(l.children) {
		child := l.children[i]
		depth := child.Depth()

		switch {
		case depth < targetDepth-1:
			child.Encapsulate()
		case !child.IsBalanced():
			if err := child.FlattenAndBalance(targetDepth-1, diag); err != nil {
				return err
			}
		case depth == targetDepth-1:
			i++
		default:
			if child.hasSingleChildThatCanBeMerged() {
				if err := child.MergeSingleChild(); err != nil {
					return err
				}
			} else if !child.IsLeaf() {
				if err := child.Unroll(diag); err != nil {
					return err
				}
			} else {
				i++
			}
		}
	}
	return nil
}

// CleanupActions is a bitmask selecting which cleanup passes Cleanup runs.
type CleanupActions uint8

const (
	// RemoveEmptyLoops drops any leaf with no waveform, post-order, along
	// with any inner node that recursively becomes empty this way.
	RemoveEmptyLoops CleanupActions = 1 << iota
	// MergeSingleChild folds single-child nodes into their parent wherever
	// hasSingleChildThatCanBeMerged allows it, post-order.
	MergeSingleChild
)

// Cleanup walks the subtree rooted at l post-order, applying the selected
// actions. A dropped node that carried measurements emits a
// dropped-measurement diagnostic.
func (l *Loop) Cleanup(actions CleanupActions, diag *Diagnostics) {
	if actions&RemoveEmptyLoops != 0 {
		kept := make([]*Loop, 0, len(l.children))
		for _, c := range l.children {
			c.Cleanup(actions, diag)
			if c.isEmpty() {
				if len(c.measurements) > 0 {
					diag.emit(DiagDroppedMeasurement, "cleanup dropped a node carrying %d measurement window(s)", len(c.measurements))
				}
				continue
			}
			kept = append(kept, c)
		}
		l.setChildrenRaw(kept)
	} else {
		for _, c := range l.children {
			c.Cleanup(actions, diag)
		}
	}

	if actions&MergeSingleChild != 0 && l.hasSingleChildThatCanBeMerged() {
		_ = l.MergeSingleChild()
	}
}

func (l *Loop) isEmpty() bool {
	return l.IsLeaf() && l.waveform == nil
}

// hasSingleChildThatCanBeMerged reports whether l has exactly one child and
// either l carries no measurements of its own, or that child has a fixed
// repetition count of 1.
func (l *Loop) hasSingleChildThatCanBeMerged() bool {
	if l.waveform != nil || len(l.children) != 1 {
		return false
	}
	child := l.children[0]
	if len(l.measurements) == 0 {
		return true
	}
	return child.repetitionCount == 1 && !child.IsVolatile()
}

// MergeSingleChild lifts l's single child into l itself: repetition counts
// multiply, volatility combines (fixed×fixed stays fixed; fixed×volatile
// picks up the volatile side's expression scaled by the fixed side's
// count; volatile×volatile builds a product expression over both
// parameters), measurements concatenate child-then-self, and l's waveform
// and children become the child's former waveform and children. Fails if l
// does not currently satisfy hasSingleChildThatCanBeMerged.
func (l *Loop) MergeSingleChild() error {
	if !l.hasSingleChildThatCanBeMerged() {
		return newError(ErrInvalidArgument, "MergeSingleChild", "preconditions for single-child merge not satisfied")
	}
	child := l.children[0]

	var merged *MappedParameter
	switch {
	case !l.IsVolatile() && !child.IsVolatile():
		merged = nil
	case l.IsVolatile() && !child.IsVolatile():
		merged = l.repetitionParameter.MulInt(child.repetitionCount)
	case !l.IsVolatile() && child.IsVolatile():
		merged = child.repetitionParameter.MulInt(l.repetitionCount)
	default:
		merged = l.repetitionParameter.MulParameter(child.repetitionParameter, "parent_repetition_count", "child_repetition_count")
	}

	newRepetitionCount := l.repetitionCount * child.repetitionCount
	mergedMeasurements := append(append([]MeasurementWindow(nil), child.measurements...), l.measurements...)
	newChildren := child.children

	l.waveform = child.waveform
	l.measurements = mergedMeasurements
	l.repetitionCount = newRepetitionCount
	l.repetitionParameter = merged
	l.setChildrenRaw(newChildren)
	return nil
}
