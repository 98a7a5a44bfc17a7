package loop

// MeasurementWindow is a single named acquisition window, relative to its
// owning Loop node's body start.
type MeasurementWindow struct {
	Name   string
	Begin  TimeType
	Length TimeType
}

// MeasurementArray is the flattened, external-boundary view of every
// occurrence of one measurement name across a tree: parallel begin/length
// arrays, one entry per occurrence, in traversal order.
type MeasurementArray struct {
	Begins  []float64
	Lengths []float64
}

// GetMeasurementWindows materializes every measurement window reachable
// from l, tiled repetitionCount times at every level, into a flat
// map[name]MeasurementArray of absolute offsets from l's own body start.
func (l *Loop) GetMeasurementWindows() map[string]MeasurementArray {
	raw := l.collectMeasurements()
	out := make(map[string]MeasurementArray, len(raw))
	for name, windows := range raw {
		arr := MeasurementArray{
			Begins:  make([]float64, len(windows)),
			Lengths: make([]float64, len(windows)),
		}
		for i, w := range windows {
			arr.Begins[i] = w.Begin.Float64()
			arr.Lengths[i] = w.Length.Float64()
		}
		out[name] = arr
	}
	return out
}

// collectMeasurements performs the post-order tiling/offsetting algorithm
// in the exact (rational) domain, returning per-name lists of absolute
// windows relative to l's own body start, already tiled repetitionCount
// times.
func (l *Loop) collectMeasurements() map[string][]MeasurementWindow {
	perName := map[string][]MeasurementWindow{}
	for _, m := range l.measurements {
		perName[m.Name] = append(perName[m.Name], m)
	}

	offset := Zero
	for _, c := range l.children {
		childWindows := c.collectMeasurements()
		for name, windows := range childWindows {
			for _, w := range windows {
				perName[name] = append(perName[name], MeasurementWindow{
					Name:   name,
					Begin:  w.Begin.Add(offset),
					Length: w.Length,
				})
			}
		}
		offset = offset.Add(c.Duration())
	}

	body := l.BodyDuration()
	if l.repetitionCount == 1 {
		return perName
	}
	tiled := make(map[string][]MeasurementWindow, len(perName))
	for name, windows := range perName {
		out := make([]MeasurementWindow, 0, len(windows)*l.repetitionCount)
		for k := 0; k < l.repetitionCount; k++ {
			shift := body.MulInt(k)
			for _, w := range windows {
				out = append(out, MeasurementWindow{
					Name:   name,
					Begin:  w.Begin.Add(shift),
					Length: w.Length,
				})
			}
		}
		tiled[name] = out
	}
	return tiled
}
