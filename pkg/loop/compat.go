package loop

import "fmt"

// DeviceConstraints describes the three AWG sample-grid constants that
// compatibility analysis and rewriting check a Loop tree against, promoted
// to a validated configuration value rather than three loose parameters —
// in the spirit of a validated config struct with its own constructor.
type DeviceConstraints struct {
	// MinLen is the minimum waveform length, in samples.
	MinLen int64
	// Quantum is the sample-count granularity every waveform length must
	// be an integer multiple of.
	Quantum int64
	// SampleRate converts a TimeType duration into a sample count: samples
	// per time unit.
	SampleRate TimeType
}

// NewDeviceConstraints validates and builds a DeviceConstraints value.
func NewDeviceConstraints(minLen, quantum int64, sampleRate TimeType) (DeviceConstraints, error) {
	if minLen < 0 {
		return DeviceConstraints{}, newError(ErrInvalidArgument, "NewDeviceConstraints", "min_len must be >= 0, got %d", minLen)
	}
	if quantum < 1 {
		return DeviceConstraints{}, newError(ErrInvalidArgument, "NewDeviceConstraints", "quantum must be >= 1, got %d", quantum)
	}
	if sampleRate.IsZero() {
		return DeviceConstraints{}, newError(ErrInvalidArgument, "NewDeviceConstraints", "sample_rate must be positive")
	}
	return DeviceConstraints{MinLen: minLen, Quantum: quantum, SampleRate: sampleRate}, nil
}

// CompatibilityLevel classifies a Loop against a set of DeviceConstraints.
type CompatibilityLevel int

const (
	// Compatible means this node and every descendant already satisfies
	// the device constraints; no rewrite is needed.
	Compatible CompatibilityLevel = iota
	// ActionRequired means this node needs rewriting: on a leaf, its own
	// sample length is out of bounds; on an inner node, some child is not
	// Compatible.
	ActionRequired
	// IncompatibleFraction means duration * sample_rate is not an integer
	// number of samples at all.
	IncompatibleFraction
	// IncompatibleTooShort means the sample count is an integer but below
	// MinLen.
	IncompatibleTooShort
	// IncompatibleQuantum means the sample count is >= MinLen but not a
	// multiple of Quantum.
	IncompatibleQuantum
)

func (lvl CompatibilityLevel) String() string {
	switch lvl {
	case Compatible:
		return "compatible"
	case ActionRequired:
		return "action_required"
	case IncompatibleFraction:
		return "incompatible_fraction"
	case IncompatibleTooShort:
		return "incompatible_too_short"
	case IncompatibleQuantum:
		return "incompatible_quantum"
	default:
		return fmt.Sprintf("CompatibilityLevel(%d)", int(lvl))
	}
}

// sampleCount converts a duration into samples under constraints, reporting
// whether the result is an integer number of samples.
func sampleCount(d TimeType, constraints DeviceConstraints) (int64, bool) {
	samples := d.Mul(constraints.SampleRate)
	return samples.IntValue()
}

// isCompatible classifies l as described in §4.7. On an inner node it
// recursively classifies each child, so the whole subtree is walked, since
// ActionRequired on an inner node depends on every child's own
// classification.
func isCompatible(l *Loop, constraints DeviceConstraints, diag *Diagnostics) CompatibilityLevel {
	n, isInt := sampleCount(l.Duration(), constraints)
	if !isInt {
		return IncompatibleFraction
	}
	if n < constraints.MinLen {
		return IncompatibleTooShort
	}
	if n%constraints.Quantum != 0 {
		return IncompatibleQuantum
	}

	var level CompatibilityLevel
	if l.IsLeaf() {
		body, isInt := sampleCount(l.BodyDuration(), constraints)
		if !isInt || body < constraints.MinLen || body%constraints.Quantum != 0 {
			level = ActionRequired
		} else {
			level = Compatible
		}
	} else {
		level = Compatible
		for _, c := range l.children {
			if isCompatible(c, constraints, diag) != Compatible {
				level = ActionRequired
				break
			}
		}
	}

	if level == ActionRequired && l.IsVolatile() {
		diag.emit(DiagVolatileModification, "make_compatible will drop volatility while rewriting a node for device compatibility")
	}
	return level
}

// IsCompatible reports l's top-level CompatibilityLevel against constraints.
func IsCompatible(l *Loop, constraints DeviceConstraints, diag *Diagnostics) CompatibilityLevel {
	return isCompatible(l, constraints, diag)
}

// MakeCompatible rewrites program in place so that every emitted waveform
// satisfies constraints, using factory to render any collapsed subtrees
// back into single waveforms. Fails with ErrInvalidArgument, carrying the
// computed values (the duration and sample rate for a non-integer sample
// count, otherwise the sample count), if the root itself is fundamentally incompatible
// (non-integer duration, too short, or not a quantum multiple) rather than
// merely needing a local rewrite.
func MakeCompatible(program *Loop, constraints DeviceConstraints, factory WaveformFactory, diag *Diagnostics) error {
	n, isInt := sampleCount(program.Duration(), constraints)
	switch {
	case !isInt:
		return newError(ErrInvalidArgument, "MakeCompatible", "program duration %s is not an integer number of samples at rate %s", program.Duration(), constraints.SampleRate)
	case n < constraints.MinLen:
		return newError(ErrInvalidArgument, "MakeCompatible", "program is %d samples, shorter than min_len %d", n, constraints.MinLen)
	case n%constraints.Quantum != 0:
		return newError(ErrInvalidArgument, "MakeCompatible", "program is %d samples, not a multiple of quantum %d", n, constraints.Quantum)
	}

	level := isCompatible(program, constraints, nil)
	if level == Compatible {
		return nil
	}

	diag.emit(DiagMakeCompatible, "rewriting subtree to satisfy device constraints (min_len=%d quantum=%d)", constraints.MinLen, constraints.Quantum)
	return makeCompatible(program, constraints, factory, diag)
}

// makeCompatible performs the in-place rewrite described in §4.7, assuming
// the caller has already verified the root is not fundamentally
// incompatible.
func makeCompatible(l *Loop, constraints DeviceConstraints, factory WaveformFactory, diag *Diagnostics) error {
	if l.IsLeaf() {
		rendered, err := ToWaveform(l, factory)
		if err != nil {
			return err
		}
		l.waveform = rendered
		l.repetitionCount = 1
		l.repetitionParameter = nil
		l.invalidate(nil)
		return nil
	}

	anyIncompatible := false
	for _, c := range l.children {
		if lvl := isCompatible(c, constraints, nil); lvl != Compatible && lvl != ActionRequired {
			anyIncompatible = true
			break
		}
	}

	if anyIncompatible {
		singleRun := l.Duration().Mul(constraints.SampleRate).DivInt(int64(l.repetitionCount))
		singleRunSamples, isInt := singleRun.IntValue()
		collapsible := isInt && singleRunSamples >= constraints.MinLen && singleRunSamples%constraints.Quantum == 0

		var rendered Waveform
		var err error
		if collapsible {
			rendered, err = toWaveformFromChildren(l, factory)
		} else {
			// l.repetitionCount is still in effect here, so ToWaveform bakes
			// the repeat into the rendered waveform via factory.Repetition
			// before it gets reset to 1 below.
			rendered, err = ToWaveform(l, factory)
		}
		if err != nil {
			return err
		}

		if !collapsible {
			l.repetitionCount = 1
			l.repetitionParameter = nil
		}
		l.waveform = rendered
		l.setChildrenRaw(nil)
		return nil
	}

	for _, c := range l.children {
		if lvl := isCompatible(c, constraints, nil); lvl == ActionRequired {
			if err := makeCompatible(c, constraints, factory, diag); err != nil {
				return err
			}
		}
	}
	return nil
}

// ToWaveform renders the subtree rooted at l back into a single Waveform
// via factory, without mutating l.
func ToWaveform(l *Loop, factory WaveformFactory) (Waveform, error) {
	if l.IsLeaf() {
		if l.waveform == nil {
			return nil, newError(ErrInvalidArgument, "ToWaveform", "cannot render an empty leaf")
		}
		if l.repetitionCount == 1 {
			return l.waveform, nil
		}
		return factory.Repetition(l.waveform, l.repetitionCount), nil
	}
	body, err := toWaveformFromChildren(l, factory)
	if err != nil {
		return nil, err
	}
	if l.repetitionCount == 1 {
		return body, nil
	}
	return factory.Repetition(body, l.repetitionCount), nil
}

// toWaveformFromChildren renders l's body (its children only, ignoring l's
// own repetition count) into a single Waveform: the sole child's rendering
// when l has exactly one (skipping a redundant sequence of one), or a
// sequence of every child's rendering otherwise.
func toWaveformFromChildren(l *Loop, factory WaveformFactory) (Waveform, error) {
	if len(l.children) == 1 {
		return ToWaveform(l.children[0], factory)
	}
	parts := make([]Waveform, len(l.children))
	for i, c := range l.children {
		w, err := ToWaveform(c, factory)
		if err != nil {
			return nil, err
		}
		parts[i] = w
	}
	return factory.Sequence(parts), nil
}
