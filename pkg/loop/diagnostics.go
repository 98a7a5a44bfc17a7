package loop

import "fmt"

// DiagnosticKind classifies a non-fatal diagnostic raised while building or
// rewriting a Loop tree. None of these stop the transform that raised them;
// they are collected for the caller to inspect or log afterwards.
type DiagnosticKind int

const (
	// DiagDroppedMeasurement is raised when Cleanup removes an empty node
	// (no waveform, no surviving children) that carried measurement
	// windows, dropping those windows with it.
	DiagDroppedMeasurement DiagnosticKind = iota
	// DiagVolatileModification is raised when a transform alters a node
	// whose repetition count is volatile: Unroll, UnrollChildren,
	// SplitOneChild on a volatile child, or a compatibility classification
	// that finds a volatile node needing a rewrite. MergeSingleChild does
	// not raise it.
	DiagVolatileModification
	// DiagMakeCompatible is raised once by MakeCompatible when the tree
	// needs rewriting, before it renders subtrees into concatenated
	// waveforms to satisfy the device constraints.
	DiagMakeCompatible
)

func (k DiagnosticKind) String() string {
	switch k {
	case DiagDroppedMeasurement:
		return "DroppedMeasurement"
	case DiagVolatileModification:
		return "VolatileModification"
	case DiagMakeCompatible:
		return "MakeCompatible"
	default:
		return fmt.Sprintf("DiagnosticKind(%d)", int(k))
	}
}

// Diagnostic is a single non-fatal observation raised during a transform.
type Diagnostic struct {
	Kind    DiagnosticKind
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Kind, d.Message)
}

// Diagnostics accumulates Diagnostic values raised by Loop transforms. A nil
// *Diagnostics is valid and silently discards everything emitted to it, so
// callers that don't care about diagnostics can pass nil instead of
// constructing and draining a sink.
type Diagnostics struct {
	items []Diagnostic
}

// NewDiagnostics returns an empty Diagnostics sink.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{}
}

func (d *Diagnostics) emit(kind DiagnosticKind, format string, args ...interface{}) {
	if d == nil {
		return
	}
	d.items = append(d.items, Diagnostic{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// Items returns the diagnostics collected so far, in emission order. Calling
// Items on a nil *Diagnostics returns nil.
func (d *Diagnostics) Items() []Diagnostic {
	if d == nil {
		return nil
	}
	return d.items
}

// Len reports how many diagnostics have been collected. A nil *Diagnostics
// reports zero.
func (d *Diagnostics) Len() int {
	if d == nil {
		return 0
	}
	return len(d.items)
}
