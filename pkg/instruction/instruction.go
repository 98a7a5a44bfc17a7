// Package instruction models the flat, linear instruction stream that a
// pulse-program front-end emits and that pkg/lowering turns into one Loop
// tree per maximal set of co-defined channels.
package instruction

import "pulseir/pkg/loop"

// Kind discriminates the closed set of instruction variants a block may
// contain. New kinds are never added at runtime, so dispatch is a plain Go
// switch rather than open polymorphism.
type Kind int

const (
	// Exec plays a single waveform.
	Exec Kind = iota
	// Repj pushes a new repeated child block.
	Repj
	// Goto transfers control to another target unconditionally.
	Goto
	// Chan splits execution by channel set.
	Chan
	// Meas attaches measurement windows to the current loop.
	Meas
	// Stop terminates the current frame.
	Stop
)

func (k Kind) String() string {
	switch k {
	case Exec:
		return "EXEC"
	case Repj:
		return "REPJ"
	case Goto:
		return "GOTO"
	case Chan:
		return "CHAN"
	case Meas:
		return "MEAS"
	case Stop:
		return "STOP"
	default:
		return "UNKNOWN"
	}
}

// Target points at a position within a Block: an instruction offset that
// may point into a block other than the one containing the instruction
// that references it.
type Target struct {
	Block  *Block
	Offset int
}

// Instruction is one entry of a Block. Only the fields relevant to Kind are
// populated; the others are left at their zero value.
type Instruction struct {
	Kind Kind

	// Exec
	Waveform loop.Waveform

	// Repj
	RepetitionCount     int
	RepetitionParameter *loop.MappedParameter
	RepjTarget          Target

	// Goto
	GotoTarget Target

	// Chan: maps a channel set to the block/offset that continues
	// execution for exactly that set of channels.
	ChannelTargets map[loop.ChannelSet]Target

	// Meas
	Measurements []loop.MeasurementWindow
}

// NewExec builds an EXEC instruction playing wf.
func NewExec(wf loop.Waveform) Instruction {
	return Instruction{Kind: Exec, Waveform: wf}
}

// NewRepj builds a REPJ instruction repeating the block starting at target
// count times, with an optional volatile RepetitionParameter (nil for a
// fixed count).
func NewRepj(count int, param *loop.MappedParameter, target Target) Instruction {
	return Instruction{Kind: Repj, RepetitionCount: count, RepetitionParameter: param, RepjTarget: target}
}

// NewGoto builds a GOTO instruction transferring to target.
func NewGoto(target Target) Instruction {
	return Instruction{Kind: Goto, GotoTarget: target}
}

// NewChan builds a CHAN instruction splitting execution across targets,
// keyed by channel set.
func NewChan(targets map[loop.ChannelSet]Target) Instruction {
	return Instruction{Kind: Chan, ChannelTargets: targets}
}

// NewMeas builds a MEAS instruction attaching ms to the current loop.
func NewMeas(ms []loop.MeasurementWindow) Instruction {
	return Instruction{Kind: Meas, Measurements: ms}
}

// NewStop builds a STOP instruction.
func NewStop() Instruction {
	return Instruction{Kind: Stop}
}

// Block is a flat, ordered sequence of Instructions, the unit Target and
// REPJ/CHAN offsets index into.
type Block struct {
	Instructions []Instruction
}

// NewBlock wraps instructions as a Block.
func NewBlock(instructions []Instruction) *Block {
	return &Block{Instructions: instructions}
}

// Len reports the number of instructions in the block.
func (b *Block) Len() int {
	return len(b.Instructions)
}

// At returns the instruction at position i.
func (b *Block) At(i int) Instruction {
	return b.Instructions[i]
}

// Slice returns the sub-slice of instructions [start:end), matching
// Python's slicing semantics used by the lowering driver to carve a
// sub-block starting at a CHAN or REPJ target's offset.
func (b *Block) Slice(start, end int) []Instruction {
	if end < 0 {
		end = len(b.Instructions) + end
	}
	return b.Instructions[start:end]
}
