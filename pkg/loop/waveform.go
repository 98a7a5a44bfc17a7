package loop

import (
	"sort"
	"strings"
)

// ChannelID names a single output channel of an AWG.
type ChannelID string

// ChannelSet is a canonically-ordered, comma-joined encoding of a set of
// ChannelIDs. It is comparable and usable as a map key directly, which a
// Go set type built from map[ChannelID]struct{} is not — the frame-stack
// lowering driver keys its per-channel-group Loop trees by ChannelSet.
type ChannelSet string

// NewChannelSet builds a ChannelSet from an unordered slice of channels,
// deduplicating and sorting so that two calls with the same members in a
// different order produce the same key.
func NewChannelSet(channels ...ChannelID) ChannelSet {
	seen := make(map[ChannelID]struct{}, len(channels))
	unique := make([]string, 0, len(channels))
	for _, c := range channels {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		unique = append(unique, string(c))
	}
	sort.Strings(unique)
	return ChannelSet(strings.Join(unique, ","))
}

// Channels splits the set back into its sorted member ChannelIDs.
func (s ChannelSet) Channels() []ChannelID {
	if s == "" {
		return nil
	}
	parts := strings.Split(string(s), ",")
	out := make([]ChannelID, len(parts))
	for i, p := range parts {
		out[i] = ChannelID(p)
	}
	return out
}

// Len reports the number of channels in the set.
func (s ChannelSet) Len() int {
	if s == "" {
		return 0
	}
	return strings.Count(string(s), ",") + 1
}

// IsSupersetOf reports whether every channel in other is also in s.
func (s ChannelSet) IsSupersetOf(other ChannelSet) bool {
	if other == "" {
		return true
	}
	members := make(map[ChannelID]struct{}, s.Len())
	for _, c := range s.Channels() {
		members[c] = struct{}{}
	}
	for _, c := range other.Channels() {
		if _, ok := members[c]; !ok {
			return false
		}
	}
	return true
}

// IsSubsetOf reports whether every channel in s is also in other.
func (s ChannelSet) IsSubsetOf(other ChannelSet) bool {
	return other.IsSupersetOf(s)
}

// Waveform is the opaque payload carried by leaf Loop nodes. Its concrete
// shape (sample data, played duration, defined channels) is owned by the
// caller's waveform layer; the Loop tree only needs the methods below to
// compute durations and to drive AWG-compatibility rewriting.
type Waveform interface {
	Duration() TimeType
	DefinedChannels() ChannelSet
	// Equal reports structural equality, stable across the lifetime of an IR.
	Equal(other Waveform) bool
}

// WaveformFactory builds the two composite waveforms that make_compatible
// needs to synthesize when it merges runs of nodes into a single leaf:
// a sequential concatenation and a repeated play of one waveform.
type WaveformFactory interface {
	// Sequence concatenates waveforms back to back. Called with len(parts) >= 2.
	Sequence(parts []Waveform) Waveform
	// Repetition plays base count times in a row. Called with count >= 1.
	Repetition(base Waveform, count int) Waveform
}

// simpleWaveform is a minimal concrete Waveform used by tests and by the
// demo in cmd/example, carrying only a duration and a channel set, no
// actual sample data.
type simpleWaveform struct {
	duration TimeType
	channels ChannelSet
}

// NewSimpleWaveform builds a Waveform with the given duration and defined
// channels, suitable for tests that only exercise duration/channel logic.
func NewSimpleWaveform(duration TimeType, channels ChannelSet) Waveform {
	return simpleWaveform{duration: duration, channels: channels}
}

func (w simpleWaveform) Duration() TimeType          { return w.duration }
func (w simpleWaveform) DefinedChannels() ChannelSet { return w.channels }
func (w simpleWaveform) Equal(other Waveform) bool {
	o, ok := other.(simpleWaveform)
	return ok && w.duration.Equal(o.duration) && w.channels == o.channels
}

type sequenceWaveform struct {
	parts    []Waveform
	duration TimeType
	channels ChannelSet
}

func (w sequenceWaveform) Duration() TimeType          { return w.duration }
func (w sequenceWaveform) DefinedChannels() ChannelSet { return w.channels }
func (w sequenceWaveform) Equal(other Waveform) bool {
	o, ok := other.(sequenceWaveform)
	if !ok || len(w.parts) != len(o.parts) {
		return false
	}
	for i := range w.parts {
		if !w.parts[i].Equal(o.parts[i]) {
			return false
		}
	}
	return true
}

type repetitionWaveform struct {
	base     Waveform
	count    int
	duration TimeType
}

func (w repetitionWaveform) Duration() TimeType { return w.duration }
func (w repetitionWaveform) DefinedChannels() ChannelSet {
	return w.base.DefinedChannels()
}
func (w repetitionWaveform) Equal(other Waveform) bool {
	o, ok := other.(repetitionWaveform)
	return ok && w.count == o.count && w.base.Equal(o.base)
}

// SimpleWaveformFactory is a WaveformFactory over simpleWaveform-shaped
// waveforms, summing durations and assuming all parts share one channel set
// (the caller, e.g. make_compatible, only ever merges nodes that already
// passed a channel-consistency check).
type SimpleWaveformFactory struct{}

// Sequence concatenates parts, summing their durations.
func (SimpleWaveformFactory) Sequence(parts []Waveform) Waveform {
	total := Zero
	channels := parts[0].DefinedChannels()
	for _, p := range parts {
		total = total.Add(p.Duration())
	}
	return sequenceWaveform{parts: parts, duration: total, channels: channels}
}

// Repetition plays base count times.
func (SimpleWaveformFactory) Repetition(base Waveform, count int) Waveform {
	return repetitionWaveform{base: base, count: count, duration: base.Duration().MulInt(count)}
}
