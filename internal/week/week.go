// Package week arranges a week's events into seven day columns and runs the
// layout engine for each of them.
package week

import (
	"fmt"
	"strings"
	"time"

	"timegrid/internal/layout"
	"timegrid/internal/model"
)

// ParseWeekday accepts "monday" or "sunday", the two supported week starts.
func ParseWeekday(s string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "monday":
		return time.Monday, nil
	case "sunday":
		return time.Sunday, nil
	default:
		return time.Monday, fmt.Errorf("week: unsupported week start %q", s)
	}
}

// StartOfWeek returns local midnight of the first day of the week containing t.
func StartOfWeek(t time.Time, first time.Weekday) time.Time {
	d := startOfDay(t)
	offset := (int(d.Weekday()) - int(first) + layout.DaysPerWeek) % layout.DaysPerWeek
	return d.AddDate(0, 0, -offset)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayIndex returns the column of t in the week beginning at weekStart, or -1
// when t falls outside it. weekStart must be a local midnight.
func DayIndex(weekStart, t time.Time) int {
	d := startOfDay(t.In(weekStart.Location()))
	for i := 0; i < layout.DaysPerWeek; i++ {
		if weekStart.AddDate(0, 0, i).Equal(d) {
			return i
		}
	}
	return -1
}

// Day is a single column of a week view.
type Day struct {
	Date   time.Time     `json:"date"`
	AllDay []model.Event `json:"all_day"`
	Boxes  []model.Box   `json:"boxes"`
}

// View is the laid-out week.
type View struct {
	Start     time.Time `json:"start"`
	StartHour int       `json:"start_hour"`
	Days      []Day     `json:"days"`
}

// Build buckets events by the day their start falls on, keeps all-day events
// out of the grid and lays out each day independently. Events starting
// outside the week are ignored. A timed event that runs past midnight stays
// in its start day's column.
func Build(weekStart time.Time, events []model.Event, engine *layout.Engine) (View, error) {
	weekStart = startOfDay(weekStart)
	view := View{
		Start:     weekStart,
		StartHour: engine.Options().StartHour,
		Days:      make([]Day, layout.DaysPerWeek),
	}

	timed := make([][]model.Event, layout.DaysPerWeek)
	for i := range view.Days {
		view.Days[i] = Day{
			Date:   weekStart.AddDate(0, 0, i),
			AllDay: []model.Event{},
		}
	}

	for _, ev := range events {
		idx := DayIndex(weekStart, ev.Start)
		if idx < 0 {
			continue
		}
		if ev.AllDay {
			view.Days[idx].AllDay = append(view.Days[idx].AllDay, ev)
			continue
		}
		ev.Start = ev.Start.In(weekStart.Location())
		ev.End = ev.End.In(weekStart.Location())
		timed[idx] = append(timed[idx], ev)
	}

	for i := range view.Days {
		boxes, err := engine.Layout(timed[i])
		if err != nil {
			return View{}, fmt.Errorf("week: day %s: %w", view.Days[i].Date.Format(time.DateOnly), err)
		}
		view.Days[i].Boxes = boxes
	}
	return view, nil
}
