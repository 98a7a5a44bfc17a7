package loop

// Parent returns this node's parent, or nil at the root. The returned
// pointer is a non-owning back-reference: a Loop never shares ownership
// with its parent, only a lookup handle for parent_index and duration
// invalidation.
func (l *Loop) Parent() *Loop {
	return l.parent
}

// ParentIndex returns this node's position among its parent's children, and
// false if l is the root.
func (l *Loop) ParentIndex() (int, bool) {
	if l.parent == nil {
		return 0, false
	}
	for i, c := range l.parent.children {
		if c == l {
			return i, true
		}
	}
	// Unreachable unless the tree's invariants were broken by direct field
	// mutation outside this package.
	panic("loop: node not found among its own parent's children")
}

// Len reports the number of direct children. Zero means l is a leaf.
func (l *Loop) Len() int {
	return len(l.children)
}

// IsLeaf reports whether l has no children.
func (l *Loop) IsLeaf() bool {
	return len(l.children) == 0
}

// At returns the child at position i, panicking if i is out of range —
// mirroring slice indexing semantics rather than returning an error for
// what is a programmer error, not an input-validation failure.
func (l *Loop) At(i int) *Loop {
	return l.children[i]
}

// Children returns the live slice of direct children. Callers must treat it
// as read-only: mutating it directly bypasses duration-cache invalidation.
func (l *Loop) Children() []*Loop {
	return l.children
}

// DepthFirst walks the subtree rooted at l in pre-order (a node before its
// children, children left to right), calling visit on each node including l
// itself.
func (l *Loop) DepthFirst(visit func(*Loop)) {
	visit(l)
	for _, c := range l.children {
		c.DepthFirst(visit)
	}
}

// Locate walks down from l following the given path of child indices,
// returning the reached node. An empty path returns l itself.
func (l *Loop) Locate(path []int) (*Loop, error) {
	cur := l
	for depth, idx := range path {
		if idx < 0 || idx >= len(cur.children) {
			return nil, newError(ErrInvalidArgument, "Locate", "index %d out of range at path depth %d", idx, depth)
		}
		cur = cur.children[idx]
	}
	return cur, nil
}

// GetLocation returns the sequence of child indices from the root down to l.
func (l *Loop) GetLocation() []int {
	var path []int
	cur := l
	for cur.parent != nil {
		idx, _ := cur.ParentIndex()
		path = append([]int{idx}, path...)
		cur = cur.parent
	}
	return path
}

// Depth returns the maximum distance from l down to any leaf: 0 for a leaf,
// otherwise 1 + max(child.Depth()).
func (l *Loop) Depth() int {
	if l.IsLeaf() {
		return 0
	}
	max := 0
	for _, c := range l.children {
		if d := c.Depth(); d > max {
			max = d
		}
	}
	return max + 1
}

// IsBalanced reports whether every leaf under l sits at the same depth.
func (l *Loop) IsBalanced() bool {
	if l.IsLeaf() {
		return true
	}
	want := l.children[0].Depth()
	for _, c := range l.children {
		if !c.IsBalanced() || c.Depth() != want {
			return false
		}
	}
	return true
}

// AssertTreeIntegrity walks every descendant of l and verifies that its
// parent pointer and parent_index agree with the structural walk. It
// returns an error rather than panicking, since a caller may want to
// surface this as a diagnosable condition rather than crash.
func (l *Loop) AssertTreeIntegrity() error {
	var walk func(n *Loop) error
	walk = func(n *Loop) error {
		for i, c := range n.children {
			if c.parent != n {
				return newError(ErrInvalidArgument, "AssertTreeIntegrity", "child %d has parent %p, want %p", i, c.parent, n)
			}
			idx, ok := c.ParentIndex()
			if !ok || idx != i {
				return newError(ErrInvalidArgument, "AssertTreeIntegrity", "child at position %d reports parent index %d", i, idx)
			}
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(l)
}

// CopyTreeStructure produces a deep structural clone of the subtree rooted
// at l: every Loop node, its children slice and its measurement slice are
// freshly allocated, so structural mutation of the copy (children,
// repetition count, waveform) never affects the original. Waveforms are
// shared, and so is the repetition parameter: the clone holds the same
// *MappedParameter, so updating its constants through either tree changes
// the parameter's value for both. newParent becomes the clone's Parent();
// pass nil for a detached clone.
func (l *Loop) CopyTreeStructure(newParent *Loop) *Loop {
	clone := &Loop{
		parent:          newParent,
		waveform:        l.waveform,
		repetitionCount: l.repetitionCount,
		measurements:    append([]MeasurementWindow(nil), l.measurements...),
	}
	if l.repetitionParameter != nil {
		clone.repetitionParameter = l.repetitionParameter
	}
	if len(l.children) > 0 {
		clone.children = make([]*Loop, len(l.children))
		for i, c := range l.children {
			clone.children[i] = c.CopyTreeStructure(clone)
		}
	}
	if l.cachedBodyDuration != nil {
		d := *l.cachedBodyDuration
		clone.cachedBodyDuration = &d
	}
	return clone
}

