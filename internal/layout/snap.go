package layout

import "math"

// SnapTolerance is the default distance, in hours, within which a dragged
// value is pulled onto the quarter-hour grid (6 minutes).
const SnapTolerance = 0.1

const quartersPerHour = 4

// RoundToQuarterHour rounds a fractional hour to the nearest quarter hour.
func RoundToQuarterHour(hour float64) float64 {
	return roundHalfUp(hour*quartersPerHour) / quartersPerHour
}

// SnapToNearestSlot returns the nearest quarter hour when hour lies within
// tolerance of it (inclusive) and hour unchanged otherwise.
//
// The distance is evaluated in float64, so values sitting exactly on a
// decimal tolerance boundary resolve by their binary representation:
// 9.40 snaps to 9.5 with tolerance 0.1 because 9.5-9.4 is just below 0.1.
func SnapToNearestSlot(hour, tolerance float64) float64 {
	q := RoundToQuarterHour(hour)
	if math.Abs(hour-q) <= tolerance {
		return q
	}
	return hour
}
