package loop

import "fmt"

// Loop is one node of the Loop tree IR: a hierarchical description of a
// multi-channel pulse schedule. A leaf carries at most one Waveform; an
// inner node carries a repetition count (fixed or volatile) and a list of
// children whose concatenated bodies are played repetitionCount times.
type Loop struct {
	parent   *Loop
	children []*Loop

	waveform            Waveform
	repetitionCount     int
	repetitionParameter *MappedParameter
	measurements        []MeasurementWindow

	cachedBodyDuration *TimeType
}

// LoopSpec configures NewLoop. Waveform and Children are mutually
// exclusive: a node with children has no waveform payload of its own.
// RepetitionCount defaults to 1 when RepetitionParameter is nil; when
// RepetitionParameter is set, RepetitionCount is ignored and instead
// derived from the parameter's current value.
type LoopSpec struct {
	Waveform            Waveform
	Children            []*Loop
	RepetitionCount     int
	RepetitionParameter *MappedParameter
	Measurements        []MeasurementWindow
}

// NewLoop builds a detached root Loop from spec. Children passed in spec
// are reparented to the new node.
func NewLoop(spec LoopSpec) (*Loop, error) {
	if spec.Waveform != nil && len(spec.Children) > 0 {
		return nil, newError(ErrInvalidArgument, "NewLoop", "waveform and children are mutually exclusive")
	}

	rep := spec.RepetitionCount
	if spec.RepetitionParameter != nil {
		rep = spec.RepetitionParameter.Value()
	} else if rep == 0 {
		rep = 1
	}
	if rep < 1 {
		return nil, newError(ErrInvalidArgument, "NewLoop", "repetition count %d must be >= 1", rep)
	}

	l := &Loop{
		waveform:            spec.Waveform,
		repetitionCount:     rep,
		repetitionParameter: spec.RepetitionParameter,
		measurements:        append([]MeasurementWindow(nil), spec.Measurements...),
	}
	for _, c := range spec.Children {
		c.parent = l
		l.children = append(l.children, c)
	}
	return l, nil
}

// Waveform returns the leaf payload, or nil if l has children (or is an
// empty leaf awaiting cleanup).
func (l *Loop) Waveform() Waveform {
	return l.waveform
}

// RepetitionCount returns the current repetition count — always in sync
// with RepetitionParameter().Value() when volatile.
func (l *Loop) RepetitionCount() int {
	return l.repetitionCount
}

// RepetitionParameter returns the volatility marker, or nil if l's
// repetition count is fixed.
func (l *Loop) RepetitionParameter() *MappedParameter {
	return l.repetitionParameter
}

// IsVolatile reports whether l's repetition count is backed by a
// MappedParameter.
func (l *Loop) IsVolatile() bool {
	return l.repetitionParameter != nil
}

// Measurements returns l's own measurement windows, relative to l's body
// start. Callers must treat the returned slice as read-only.
func (l *Loop) Measurements() []MeasurementWindow {
	return l.measurements
}

// AppendChild appends a single child to l, either an existing detached
// Loop or one built from spec — exactly one of the two must be given.
// Invalidates l's cached duration incrementally using the appended child's
// duration, since it is additive and known.
func (l *Loop) AppendChild(child *Loop, spec *LoopSpec) error {
	if (child == nil) == (spec == nil) {
		return newError(ErrInvalidArgument, "AppendChild", "exactly one of child or spec must be given")
	}
	if child != nil && child.parent != nil {
		return newError(ErrInvalidArgument, "AppendChild", "child already has a parent")
	}
	if spec != nil {
		built, err := NewLoop(*spec)
		if err != nil {
			return err
		}
		child = built
	}

	child.parent = l
	l.children = append(l.children, child)

	delta := child.Duration()
	l.invalidate(&delta)
	return nil
}

// SetWaveform replaces l's waveform payload, fully invalidating l's cached
// duration (the new waveform's duration is unrelated to any previous one).
func (l *Loop) SetWaveform(w Waveform) {
	l.waveform = w
	l.invalidate(nil)
}

// SetRepetitionCount sets a fixed repetition count, rejecting values below
// 1 — Go's int already guarantees integrality, so this is the surviving
// half of "reject any non-integer repetition count". Does not touch
// RepetitionParameter: callers that want to drop volatility should do so
// explicitly.
func (l *Loop) SetRepetitionCount(n int) error {
	if n < 1 {
		return newError(ErrInvalidArgument, "SetRepetitionCount", "repetition count %d must be >= 1", n)
	}
	l.repetitionCount = n
	l.invalidate(nil)
	return nil
}

// AddMeasurements appends ms to l's measurement list, each begin offset by
// l's current body duration, in insertion order (duplicates allowed).
func (l *Loop) AddMeasurements(ms []MeasurementWindow) {
	base := l.BodyDuration()
	for _, m := range ms {
		m.Begin = m.Begin.Add(base)
		l.measurements = append(l.measurements, m)
	}
}

// UpdateVolatileRepetition updates the namespace of l's volatile repetition
// parameter (if any) with delta, then recomputes RepetitionCount from the
// parameter's new value. A no-op if l is not volatile.
func (l *Loop) UpdateVolatileRepetition(delta map[string]int) {
	if l.repetitionParameter == nil {
		return
	}
	l.repetitionParameter.UpdateConstants(delta)
	n := l.repetitionParameter.Value()
	if n != l.repetitionCount {
		l.repetitionCount = n
		l.invalidate(nil)
	}
}

// setChildrenRaw replaces l's entire child list, reparenting each new
// child, and fully invalidates l's cached duration. Used by the structural
// transforms, which always replace the whole list rather than append.
func (l *Loop) setChildrenRaw(children []*Loop) {
	for _, c := range children {
		c.parent = l
	}
	l.children = children
	l.invalidate(nil)
}

// invalidate drops (or, for l itself, incrementally advances) the cached
// body duration and propagates plain invalidation up to the root. A
// parent's body duration is the sum of its children's Duration(), which
// scales by each ancestor's own repetition count — an additive delta at l
// does not translate into a simple additive delta higher up, so only l's
// own cache can be updated incrementally; every ancestor above it is fully
// invalidated and recomputed lazily on next access. bodyDurationDelta, when
// non-nil, is an additive amount known to apply to l's body duration alone
// (e.g. the duration of a single freshly appended child).
func (l *Loop) invalidate(bodyDurationDelta *TimeType) {
	if bodyDurationDelta != nil && l.cachedBodyDuration != nil {
		updated := l.cachedBodyDuration.Add(*bodyDurationDelta)
		l.cachedBodyDuration = &updated
	} else {
		l.cachedBodyDuration = nil
	}
	for n := l.parent; n != nil; n = n.parent {
		n.cachedBodyDuration = nil
	}
}

// BodyDuration returns Σ child.Duration() for an inner node, the leaf
// waveform's duration for a waveform-leaf, or Zero for an empty leaf.
// Memoized; recomputed lazily after invalidation.
func (l *Loop) BodyDuration() TimeType {
	if l.cachedBodyDuration != nil {
		return *l.cachedBodyDuration
	}
	var d TimeType
	switch {
	case l.IsLeaf() && l.waveform != nil:
		d = l.waveform.Duration()
	case l.IsLeaf():
		d = Zero
	default:
		d = Zero
		for _, c := range l.children {
			d = d.Add(c.Duration())
		}
	}
	l.cachedBodyDuration = &d
	return d
}

// Duration returns BodyDuration() * RepetitionCount().
func (l *Loop) Duration() TimeType {
	return l.BodyDuration().MulInt(l.repetitionCount)
}

// Equal reports structural equality: same repetition count, same waveform
// (or both nil), same measurements (treating nil and empty as equal), same
// volatility marker (nil-ness only — the parameter's current value is what
// matters, already reflected in RepetitionCount), and the same ordered
// children, recursively. Cache fields and parent back-references play no
// part in equality.
func (l *Loop) Equal(other *Loop) bool {
	if l == nil || other == nil {
		return l == other
	}
	if l.repetitionCount != other.repetitionCount {
		return false
	}
	if l.IsVolatile() != other.IsVolatile() {
		return false
	}
	if (l.waveform == nil) != (other.waveform == nil) {
		return false
	}
	if l.waveform != nil && !l.waveform.Equal(other.waveform) {
		return false
	}
	if !measurementsEqual(l.measurements, other.measurements) {
		return false
	}
	if len(l.children) != len(other.children) {
		return false
	}
	for i := range l.children {
		if !l.children[i].Equal(other.children[i]) {
			return false
		}
	}
	return true
}

func measurementsEqual(a, b []MeasurementWindow) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || !a[i].Begin.Equal(b[i].Begin) || !a[i].Length.Equal(b[i].Length) {
			return false
		}
	}
	return true
}

const maxReprSize = 2000

// String renders a depth-first EXEC/LOOP listing of the subtree rooted at
// l, truncated once the output passes maxReprSize characters — mirroring
// qupulse's Loop.__repr__ truncation past MAX_REPR_SIZE. Guards against a
// corrupted, circular tree (which should never occur under this package's
// own mutators) by bounding recursion depth rather than looping forever.
func (l *Loop) String() string {
	remaining := maxReprSize
	return l.repr(0, &remaining, 0)
}

const reprCircularGuardDepth = 100000

func (l *Loop) repr(indent int, remaining *int, depth int) string {
	if depth > reprCircularGuardDepth {
		return "...<circular?>"
	}
	if *remaining <= 0 {
		return "..."
	}
	prefix := make([]byte, indent*2)
	for i := range prefix {
		prefix[i] = ' '
	}

	var line string
	switch {
	case l.IsLeaf() && l.waveform != nil:
		line = fmt.Sprintf("%sEXEC rep=%d dur=%s", prefix, l.repetitionCount, l.waveform.Duration())
	case l.IsLeaf():
		line = fmt.Sprintf("%sEXEC rep=%d <empty>", prefix, l.repetitionCount)
	default:
		line = fmt.Sprintf("%sLOOP rep=%d children=%d", prefix, l.repetitionCount, len(l.children))
	}
	*remaining -= len(line)

	out := line
	for _, c := range l.children {
		if *remaining <= 0 {
			out += "\n" + string(prefix) + "  ..."
			break
		}
		out += "\n" + c.repr(indent+1, remaining, depth+1)
	}
	return out
}

// DurationStructure returns a nested, side-effect-free snapshot of l's
// shape: (repetitionCount, duration) for a leaf, or (repetitionCount,
// []childStructure) for an inner node — qupulse's get_duration_structure,
// kept for debugging/introspection, never consulted by this package's own
// transforms.
type DurationStructure struct {
	RepetitionCount int
	Duration        TimeType
	Children        []DurationStructure
}

// DurationStructure computes the nested duration-structure snapshot of l.
func (l *Loop) DurationStructure() DurationStructure {
	s := DurationStructure{RepetitionCount: l.repetitionCount}
	if l.IsLeaf() {
		s.Duration = l.BodyDuration()
		return s
	}
	s.Children = make([]DurationStructure, len(l.children))
	for i, c := range l.children {
		s.Children[i] = c.DurationStructure()
	}
	return s
}
