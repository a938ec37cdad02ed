package viseme

import "sort"

// UsesMilliseconds reports whether a timeline's raw times are in
// milliseconds. A single value above 20 flips the whole timeline.
func UsesMilliseconds(times []float64) bool {
	for _, t := range times {
		if t > millisecondThreshold {
			return true
		}
	}
	return false
}

// Normalize resolves each raw frame against lookup, converts the timeline
// to seconds and sorts it by time. Unresolvable frames are dropped before
// the unit is inferred.
func Normalize(raw []RawFrame, lookup *Lookup) []Frame {
	frames := make([]Frame, 0, len(raw))
	times := make([]float64, 0, len(raw))
	for _, f := range raw {
		idx, ok := lookup.Resolve(f)
		if !ok {
			continue
		}
		frames = append(frames, Frame{Index: idx, Time: f.Time})
		times = append(times, f.Time)
	}
	if len(frames) == 0 {
		return nil
	}

	if UsesMilliseconds(times) {
		for i := range frames {
			frames[i].Time /= 1000
		}
	}
	sort.SliceStable(frames, func(i, j int) bool {
		return frames[i].Time < frames[j].Time
	})
	return frames
}
