// Package layout computes time-grid geometry for calendar events: overlap
// clustering, side-by-side column packing, time <-> pixel mapping and the
// quarter-hour snapping used by drag interactions.
//
// Every function here is pure. Nothing is cached between calls and the
// input events are never modified, so the package is safe for concurrent
// use without locking.
package layout

import "math"

// Grid geometry.
const (
	// PixelsPerHour is the vertical scale of the grid (one pixel per minute).
	PixelsPerHour = 60
	// MinBoxHeight is the floor applied to every emitted box height.
	MinBoxHeight = 20
	// GapPercent is the horizontal gap between adjacent columns of a cluster.
	GapPercent = 1
	// MaxOverlapLevel caps Box.OverlapLevel.
	MaxOverlapLevel = 4
	// DaysPerWeek is the number of day columns in a week view.
	DaysPerWeek = 7

	minutesPerHour = 60
	minutesPerDay  = 24 * minutesPerHour
)

// HourToY converts a fractional clock hour to a pixel offset from the top of
// a grid whose first visible hour is startHour. Hours above the window give
// negative offsets; clipping is left to the caller.
func HourToY(hour float64, startHour int) float64 {
	return (hour - float64(startHour)) * PixelsPerHour
}

// YToHour is the inverse of HourToY.
func YToHour(y float64, startHour int) float64 {
	return y/PixelsPerHour + float64(startHour)
}

// roundHalfUp rounds x to the nearest integer with ties going toward +Inf.
// math.Round sends ties away from zero, which differs for negative halves.
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}
