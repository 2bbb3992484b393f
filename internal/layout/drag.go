package layout

import (
	"fmt"
	"math"
	"strings"
	"time"

	"timegrid/internal/model"
)

// CalculateDayIndex maps a horizontal drag delta, relative to the day column
// the drag started in, onto a day column of a week view. The result is always
// within [0, DaysPerWeek-1].
func CalculateDayIndex(deltaX float64, originalDayIndex int, dayWidth float64) int {
	if !(dayWidth > 0) || math.IsInf(dayWidth, 0) || math.IsNaN(deltaX) {
		return clampDay(originalDayIndex)
	}
	relativeX := deltaX + float64(originalDayIndex)*dayWidth
	idx := roundHalfUp(relativeX / dayWidth)
	switch {
	case math.IsNaN(idx):
		return clampDay(originalDayIndex)
	case idx < 0:
		return 0
	case idx > DaysPerWeek-1:
		return DaysPerWeek - 1
	}
	return int(idx)
}

func clampDay(i int) int {
	return min(max(i, 0), DaysPerWeek-1)
}

// ResizeHandle identifies which edge of a box is being dragged.
type ResizeHandle string

const (
	HandleTop    ResizeHandle = "top"
	HandleBottom ResizeHandle = "bottom"
)

// ParseResizeHandle accepts "top"/"start" and "bottom"/"end".
func ParseResizeHandle(s string) (ResizeHandle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "top", "start":
		return HandleTop, nil
	case "bottom", "end":
		return HandleBottom, nil
	default:
		return "", fmt.Errorf("layout: unknown resize handle %q", s)
	}
}

// WithClock returns t on the same calendar date with its wall clock replaced
// by the fractional hour h. Seconds are cleared. Hours outside [0, 24)
// roll into neighbouring days the way time.Date normalizes them, bounded to
// maxClockHours either way. A NaN or infinite h returns t unchanged.
func WithClock(t time.Time, h float64) time.Time {
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return t
	}
	h = min(max(h, -maxClockHours), maxClockHours)
	totalMin := int(roundHalfUp(h * minutesPerHour))
	hour := floorDiv(totalMin, minutesPerHour)
	minute := totalMin - hour*minutesPerHour
	y, m, d := t.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, t.Location())
}

// maxClockHours bounds WithClock's roll-over to about a million days.
const maxClockHours = 24e6

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// CalculateNewStartTime resolves a top-handle drag at newY into a new start,
// snapped to the quarter hour, on ev.Start's date. ev.End is not consulted;
// callers must reject a start that passes the end.
func CalculateNewStartTime(ev model.Event, newY float64, startHour int) time.Time {
	return WithClock(ev.Start, RoundToQuarterHour(YToHour(newY, startHour)))
}

// CalculateNewEndTime is the bottom-handle counterpart of CalculateNewStartTime.
func CalculateNewEndTime(ev model.Event, newY float64, startHour int) time.Time {
	return WithClock(ev.End, RoundToQuarterHour(YToHour(newY, startHour)))
}

// Resize applies a handle drag and returns the resulting start and end.
// Only the endpoint under the handle changes.
func Resize(ev model.Event, newY float64, handle ResizeHandle, startHour int) (start, end time.Time) {
	start, end = ev.Start, ev.End
	switch handle {
	case HandleTop:
		start = CalculateNewStartTime(ev, newY, startHour)
	case HandleBottom:
		end = CalculateNewEndTime(ev, newY, startHour)
	}
	return start, end
}

// Move drags a whole event: its start snaps to the quarter hour at newTopY on
// the date dayDelta days away from ev.Start, and its duration is preserved.
func Move(ev model.Event, newTopY float64, dayDelta int, startHour int) (start, end time.Time) {
	day := ev.Start.AddDate(0, 0, dayDelta)
	start = WithClock(day, RoundToQuarterHour(YToHour(newTopY, startHour)))
	return start, start.Add(ev.Duration())
}

// minCreateDuration is the shortest event drag-to-create will produce.
const minCreateDuration = 15 * time.Minute

// CreateRange turns a drag between y1 and y2 inside day's column into a new
// snapped [start, end). The drag may run upwards; a zero-length drag still
// yields one quarter hour.
func CreateRange(day time.Time, y1, y2 float64, startHour int) (start, end time.Time) {
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	start = WithClock(day, RoundToQuarterHour(YToHour(y1, startHour)))
	end = WithClock(day, RoundToQuarterHour(YToHour(y2, startHour)))
	if end.Sub(start) < minCreateDuration {
		end = start.Add(minCreateDuration)
	}
	return start, end
}
