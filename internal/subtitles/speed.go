package subtitles

import (
	"math"
	"strings"
)

// AdjustSpeed rescales every timing line for playback at the given speed
// factor (new = old / speed). Lines that do not split on the range separator
// are left alone, as are all segments when speed is 1 or not positive.
func AdjustSpeed(segments []Segment, speed float64) []Segment {
	out := append([]Segment(nil), segments...)
	if speed == 1 || speed <= 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		return out
	}
	for i := range out {
		parts := strings.Split(out[i].Timestamp, RangeSeparator)
		if len(parts) != 2 {
			continue
		}
		start := scale(ParseTimestamp(parts[0]), speed)
		end := scale(ParseTimestamp(parts[1]), speed)
		out[i].Timestamp = FormatRange(start, end)
	}
	return out
}

// scale truncates toward the earlier millisecond.
func scale(ms int64, speed float64) int64 {
	return int64(math.Floor(float64(ms) / speed))
}
