// Command example builds a small multi-channel pulse program, lowers it to
// Loop trees, rewrites the result to satisfy a set of AWG device
// constraints, and reports summary statistics over its measurement windows.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"

	"pulseir/pkg/instruction"
	"pulseir/pkg/loop"
	"pulseir/pkg/lowering"

	"gonum.org/v1/gonum/stat"
)

var (
	minLen   = flag.Int64("min-len", 8, "minimum AWG waveform length, in samples")
	quantum  = flag.Int64("quantum", 4, "AWG waveform length granularity, in samples")
	sampleHz = flag.Int64("sample-rate", 1, "AWG sample rate, samples per unit time")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	block := buildDemoBlock()

	program, err := lowering.NewMultiChannelProgram(block, "")
	if err != nil {
		glog.Errorf("lowering failed: %v", err)
		os.Exit(1)
	}

	constraints, err := loop.NewDeviceConstraints(*minLen, *quantum, loop.TimeFromInt(*sampleHz))
	if err != nil {
		glog.Errorf("invalid device constraints: %v", err)
		os.Exit(1)
	}

	diag := loop.NewDiagnostics()
	var factory loop.SimpleWaveformFactory

	for _, channels := range program.Channels() {
		tree, err := program.Get(channels)
		if err != nil {
			glog.Errorf("channels %q: %v", channels, err)
			os.Exit(1)
		}

		level := loop.IsCompatible(tree, constraints, nil)
		fmt.Printf("channels %q: duration=%s compatibility=%s\n", channels, tree.Duration(), level)

		if err := loop.MakeCompatible(tree, constraints, factory, diag); err != nil {
			glog.Errorf("channels %q: MakeCompatible: %v", channels, err)
			os.Exit(1)
		}

		report(channels, tree)
	}

	for _, d := range diag.Items() {
		fmt.Printf("diagnostic: %s\n", d)
	}
}

// report prints mean, median, and 5th/95th percentile statistics over every
// measurement window's begin offsets, the way a calibration pass would
// summarize jitter across repeated acquisitions.
func report(channels loop.ChannelSet, tree *loop.Loop) {
	windows := tree.GetMeasurementWindows()
	for _, name := range sortedNames(windows) {
		arr := windows[name]
		if len(arr.Begins) == 0 {
			continue
		}
		begins := append([]float64(nil), arr.Begins...)
		mean := stat.Mean(begins, nil)
		median := stat.Quantile(0.5, stat.Empirical, begins, nil)
		p5 := stat.Quantile(0.05, stat.Empirical, begins, nil)
		p95 := stat.Quantile(0.95, stat.Empirical, begins, nil)
		fmt.Printf("channels %q measurement %q: n=%d mean=%.3f median=%.3f p5=%.3f p95=%.3f\n",
			channels, name, len(begins), mean, median, p5, p95)
	}
}

func sortedNames(windows map[string]loop.MeasurementArray) []string {
	names := make([]string, 0, len(windows))
	for name := range windows {
		names = append(names, name)
	}
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j-1] > names[j]; j-- {
			names[j-1], names[j] = names[j], names[j-1]
		}
	}
	return names
}

// buildDemoBlock constructs a two-channel instruction block: channels a and
// b play together for one EXEC, then split so that a repeats a short pulse
// four times while b plays a single longer one, each tagged with a
// measurement window.
func buildDemoBlock() *instruction.Block {
	channelsA := loop.NewChannelSet("a")
	channelsB := loop.NewChannelSet("b")
	channelsAB := loop.NewChannelSet("a", "b")

	aBody := instruction.NewBlock([]instruction.Instruction{
		instruction.NewExec(loop.NewSimpleWaveform(loop.TimeFromInt(2), channelsA)),
		instruction.NewStop(),
	})
	aBranch := instruction.NewBlock([]instruction.Instruction{
		instruction.NewRepj(4, nil, instruction.Target{Block: aBody, Offset: 0}),
		instruction.NewMeas([]loop.MeasurementWindow{{Name: "readout", Begin: loop.Zero, Length: loop.TimeFromInt(1)}}),
		instruction.NewStop(),
	})

	bBranch := instruction.NewBlock([]instruction.Instruction{
		instruction.NewExec(loop.NewSimpleWaveform(loop.TimeFromInt(8), channelsB)),
		instruction.NewMeas([]loop.MeasurementWindow{{Name: "readout", Begin: loop.Zero, Length: loop.TimeFromInt(2)}}),
		instruction.NewStop(),
	})

	root := instruction.NewBlock([]instruction.Instruction{
		instruction.NewExec(loop.NewSimpleWaveform(loop.TimeFromInt(4), channelsAB)),
		instruction.NewChan(map[loop.ChannelSet]instruction.Target{
			channelsA: {Block: aBranch, Offset: 0},
			channelsB: {Block: bBranch, Offset: 0},
		}),
		instruction.NewStop(),
	})
	return root
}
