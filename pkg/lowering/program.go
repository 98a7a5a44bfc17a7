// Package lowering turns a flat instruction.Block into one loop.Loop tree
// per maximal set of channels that are ever driven together, following a
// frame-stack interpreter rather than recursive descent so that a CHAN
// instruction can suspend and fork execution mid-block.
package lowering

import (
	"fmt"

	"pulseir/internal/telemetry"
	"pulseir/pkg/instruction"
	"pulseir/pkg/loop"
)

// Program is the result of lowering one instruction.Block: a Loop tree per
// channel set that the block ever addresses together.
type Program struct {
	trees map[loop.ChannelSet]*loop.Loop
}

// Programs returns every (channels, tree) pair produced by lowering, in no
// particular order.
func (p *Program) Programs() map[loop.ChannelSet]*loop.Loop {
	return p.trees
}

// Channels returns the channel sets that lowering produced a tree for.
func (p *Program) Channels() []loop.ChannelSet {
	out := make([]loop.ChannelSet, 0, len(p.trees))
	for s := range p.trees {
		out = append(out, s)
	}
	return out
}

// Get returns the tree whose channel set is a superset of channels. It is an
// error if no tree qualifies, or if more than one does (the block addressed
// an ambiguous combination of channels that never appear together).
func (p *Program) Get(channels loop.ChannelSet) (*loop.Loop, error) {
	var found *loop.Loop
	var foundSet loop.ChannelSet
	for s, tree := range p.trees {
		if !s.IsSupersetOf(channels) {
			continue
		}
		if found != nil {
			return nil, &loop.Error{Kind: loop.ErrChannelMismatch, Op: "Get", Msg: fmt.Sprintf("channels %q are ambiguous between %q and %q", channels, foundSet, s)}
		}
		found, foundSet = tree, s
	}
	if found == nil {
		return nil, &loop.Error{Kind: loop.ErrChannelMismatch, Op: "Get", Msg: fmt.Sprintf("no lowered program contains channels %q", channels)}
	}
	return found, nil
}

// frame is one entry of a channel set's frame stack: the path (from that
// channel set's own root) of the Loop currently being appended to, and the
// instructions still to interpret against it.
type frame struct {
	loopPath  []int
	remaining []instruction.Instruction
}

// channelSplitSignal is raised internally when a CHAN instruction's target
// map has no entry for the channel set currently being lowered. It never
// escapes this package: NewMultiChannelProgram catches it one level up and
// forks the work queue instead of returning it to the caller.
type channelSplitSignal struct {
	channelSets []loop.ChannelSet
}

func (s *channelSplitSignal) Error() string {
	return fmt.Sprintf("lowering: channel split into %v", s.channelSets)
}

// NewMultiChannelProgram lowers block into a Program. If channels is the
// zero ChannelSet (""), the channel set to start lowering with is discovered
// by walking REPJ and GOTO targets for the first EXEC or CHAN encountered.
func NewMultiChannelProgram(block *instruction.Block, channels loop.ChannelSet) (*Program, error) {
	if channels == "" {
		discovered, err := discoverChannels(block)
		if err != nil {
			return nil, err
		}
		channels = discovered
	}

	type workItem struct {
		channels loop.ChannelSet
		root     *loop.Loop
		frames   []frame
	}

	root0, err := loop.NewLoop(loop.LoopSpec{})
	if err != nil {
		return nil, err
	}
	queue := []*workItem{{
		channels: channels,
		root:     root0,
		frames:   []frame{{loopPath: nil, remaining: block.Instructions}},
	}}

	done := map[loop.ChannelSet]*loop.Loop{}
	queued := map[loop.ChannelSet]bool{channels: true}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		remainingFrames, split, err := lowerChannelSet(item.root, item.channels, item.frames)
		if err != nil {
			return nil, err
		}
		if split != nil {
			telemetry.Tracef("lowering: channel set %q split into %v", item.channels, split.channelSets)
			for _, si := range split.channelSets {
				if !si.IsSubsetOf(item.channels) {
					return nil, &loop.Error{Kind: loop.ErrChannelMismatch, Op: "NewMultiChannelProgram", Msg: fmt.Sprintf("CHAN target %q is not a subset of the splitting channel set %q", si, item.channels)}
				}
				if _, exists := done[si]; exists || queued[si] {
					return nil, &loop.Error{Kind: loop.ErrInvalidArgument, Op: "NewMultiChannelProgram", Msg: fmt.Sprintf("channel set %q was already produced by an earlier split", si)}
				}
				queued[si] = true
				queue = append(queue, &workItem{
					channels: si,
					root:     item.root.CopyTreeStructure(nil),
					frames:   deepCopyFrames(remainingFrames),
				})
			}
			continue
		}
		done[item.channels] = item.root
	}

	for _, root := range done {
		root.Cleanup(loop.RemoveEmptyLoops|loop.MergeSingleChild, nil)
	}

	return &Program{trees: done}, nil
}

func deepCopyFrames(frames []frame) []frame {
	out := make([]frame, len(frames))
	for i, f := range frames {
		out[i] = frame{
			loopPath:  append([]int(nil), f.loopPath...),
			remaining: append([]instruction.Instruction(nil), f.remaining...),
		}
	}
	return out
}

// lowerChannelSet drains frames against root under the constraint that every
// EXEC's waveform must define at least channels. It returns the frame stack
// at the point a CHAN instruction forced a channelSplitSignal (with the CHAN
// itself restored to the front of the top frame's remaining instructions so
// the forked work items resume at exactly that point), or (nil, nil, nil) on
// a clean drain.
func lowerChannelSet(root *loop.Loop, channels loop.ChannelSet, frames []frame) ([]frame, *channelSplitSignal, error) {
	for len(frames) > 0 {
		top := &frames[len(frames)-1]
		if len(top.remaining) == 0 {
			frames = frames[:len(frames)-1]
			continue
		}

		instr := top.remaining[0]
		top.remaining = top.remaining[1:]

		cur, err := root.Locate(top.loopPath)
		if err != nil {
			return nil, nil, err
		}

		switch instr.Kind {
		case instruction.Stop:
			frames = frames[:len(frames)-1]

		case instruction.Exec:
			if !instr.Waveform.DefinedChannels().IsSupersetOf(channels) {
				return nil, nil, &loop.Error{Kind: loop.ErrChannelMismatch, Op: "lowerChannelSet", Msg: fmt.Sprintf("EXEC waveform defines %q, want a superset of %q", instr.Waveform.DefinedChannels(), channels)}
			}
			if err := cur.AppendChild(nil, &loop.LoopSpec{Waveform: instr.Waveform}); err != nil {
				return nil, nil, err
			}

		case instruction.Meas:
			cur.AddMeasurements(instr.Measurements)

		case instruction.Repj:
			childSpec := loop.LoopSpec{RepetitionCount: instr.RepetitionCount, RepetitionParameter: instr.RepetitionParameter}
			if err := cur.AppendChild(nil, &childSpec); err != nil {
				return nil, nil, err
			}
			childPath := append(append([]int(nil), top.loopPath...), cur.Len()-1)
			body := instr.RepjTarget.Block.Slice(instr.RepjTarget.Offset, -1)
			frames = append(frames, frame{loopPath: childPath, remaining: body})

		case instruction.Chan:
			if target, ok := instr.ChannelTargets[channels]; ok {
				body := target.Block.Slice(target.Offset, -1)
				top.remaining = append(append([]instruction.Instruction(nil), body...), top.remaining...)
				continue
			}
			top.remaining = append([]instruction.Instruction{instr}, top.remaining...)
			sets := make([]loop.ChannelSet, 0, len(instr.ChannelTargets))
			for s := range instr.ChannelTargets {
				sets = append(sets, s)
			}
			return frames, &channelSplitSignal{channelSets: sets}, nil

		default:
			return nil, nil, &loop.Error{Kind: loop.ErrUnhandledInstruction, Op: "lowerChannelSet", Msg: fmt.Sprintf("unhandled instruction kind %v", instr.Kind)}
		}
	}
	return nil, nil, nil
}

// discoverChannels walks block from the start, following REPJ and GOTO
// targets unconditionally (there is no branching to resolve — every
// instruction sequence in a block is linear until a CHAN fork), looking for
// the first EXEC's defined channels or the union of a CHAN's target keys.
func discoverChannels(block *instruction.Block) (loop.ChannelSet, error) {
	visited := map[*instruction.Block]map[int]bool{}
	cur := block
	pos := 0
	for {
		if cur == nil || pos >= cur.Len() {
			return "", &loop.Error{Kind: loop.ErrNoDefinedChannels, Op: "discoverChannels", Msg: "instruction block contains no EXEC or CHAN to discover channels from"}
		}
		if visited[cur] == nil {
			visited[cur] = map[int]bool{}
		}
		if visited[cur][pos] {
			return "", &loop.Error{Kind: loop.ErrNoDefinedChannels, Op: "discoverChannels", Msg: "instruction block loops without ever reaching an EXEC or CHAN"}
		}
		visited[cur][pos] = true

		instr := cur.At(pos)
		switch instr.Kind {
		case instruction.Exec:
			return instr.Waveform.DefinedChannels(), nil
		case instruction.Chan:
			channels := make([]loop.ChannelID, 0)
			for s := range instr.ChannelTargets {
				channels = append(channels, s.Channels()...)
			}
			return loop.NewChannelSet(channels...), nil
		case instruction.Repj:
			cur, pos = instr.RepjTarget.Block, instr.RepjTarget.Offset
		case instruction.Goto:
			cur, pos = instr.GotoTarget.Block, instr.GotoTarget.Offset
		case instruction.Stop:
			return "", &loop.Error{Kind: loop.ErrNoDefinedChannels, Op: "discoverChannels", Msg: "instruction block stops without ever reaching an EXEC or CHAN"}
		default:
			pos++
		}
	}
}
