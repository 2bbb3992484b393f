package layout

import (
	"cmp"
	"slices"
	"time"

	"timegrid/internal/model"
)

// interval is the minutes-of-day projection of an event.
type interval struct {
	ev    model.Event
	start float64
	end   float64
}

// project maps an event onto [start, end) wall-clock minutes of its start
// day. Both ends are read off the wall clock so DST transitions do not skew
// the box. An end on a later calendar date adds 1440 minutes per day, which
// keeps an event finishing at the following midnight at full length.
func project(ev model.Event) interval {
	end := ev.End.In(ev.Start.Location())
	return interval{
		ev:    ev,
		start: wallMinutes(ev.Start),
		end:   wallMinutes(end) + float64(daysBetween(ev.Start, end)*minutesPerDay),
	}
}

func wallMinutes(t time.Time) float64 {
	return float64(t.Hour()*minutesPerHour+t.Minute()) +
		float64(t.Second())/60 + float64(t.Nanosecond())/6e10
}

// daysBetween counts calendar dates from a to b, ignoring the clock.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// Cluster partitions events into maximal groups connected by a chain of
// time overlaps: the connected components of the interval graph.
//
// Events are stable-sorted by start, then swept once while tracking the
// running maximum end of the open group. An event joins the group when it
// starts strictly before that maximum, so touching intervals (one ends at
// 10:00, the next starts at 10:00) fall into separate clusters.
func Cluster(events []model.Event) [][]model.Event {
	groups := clusterIntervals(projectAll(events))
	out := make([][]model.Event, 0, len(groups))
	for _, g := range groups {
		evs := make([]model.Event, len(g))
		for i, iv := range g {
			evs[i] = iv.ev
		}
		out = append(out, evs)
	}
	return out
}

func projectAll(events []model.Event) []interval {
	ivs := make([]interval, len(events))
	for i, ev := range events {
		ivs[i] = project(ev)
	}
	return ivs
}

func clusterIntervals(ivs []interval) [][]interval {
	if len(ivs) == 0 {
		return nil
	}

	sorted := slices.Clone(ivs)
	slices.SortStableFunc(sorted, func(a, b interval) int {
		return cmp.Compare(a.start, b.start)
	})

	groups := make([][]interval, 0, 1)
	current := []interval{sorted[0]}
	groupEnd := sorted[0].end
	for _, iv := range sorted[1:] {
		if iv.start < groupEnd {
			current = append(current, iv)
			groupEnd = max(groupEnd, iv.end)
			continue
		}
		groups = append(groups, current)
		current = []interval{iv}
		groupEnd = iv.end
	}
	return append(groups, current)
}
