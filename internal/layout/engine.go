package layout

import (
	"errors"
	"fmt"
	"strings"

	"timegrid/internal/model"
)

// ErrInvertedInterval is returned under InvertedReject for an event whose
// end precedes its start.
var ErrInvertedInterval = errors.New("layout: event ends before it starts")

// InvertedPolicy decides what Layout does with events where End < Start.
type InvertedPolicy string

const (
	// InvertedPermissive lays the event out as given; the negative height is
	// lifted to MinBoxHeight.
	InvertedPermissive InvertedPolicy = "permissive"
	// InvertedNormalize swaps start and end before layout.
	InvertedNormalize InvertedPolicy = "normalize"
	// InvertedReject fails the whole call.
	InvertedReject InvertedPolicy = "reject"
)

// ParseInvertedPolicy parses an InvertedPolicy; empty means permissive.
func ParseInvertedPolicy(s string) (InvertedPolicy, error) {
	switch InvertedPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", InvertedPermissive:
		return InvertedPermissive, nil
	case InvertedNormalize:
		return InvertedNormalize, nil
	case InvertedReject:
		return InvertedReject, nil
	default:
		return "", fmt.Errorf("layout: unknown inverted policy %q", s)
	}
}

// Options configures an Engine. The zero value is the compatible default:
// window starting at midnight, uncapped columns, permissive intervals.
type Options struct {
	StartHour int
	Columns   ColumnMode
	Inverted  InvertedPolicy
}

// Engine assembles per-event boxes for a single day column. It holds only
// its options and may be shared between goroutines.
type Engine struct {
	opts Options
}

// NewEngine returns an Engine for opts.
func NewEngine(opts Options) *Engine {
	if opts.Columns == "" {
		opts.Columns = ColumnsUncapped
	}
	if opts.Inverted == "" {
		opts.Inverted = InvertedPermissive
	}
	return &Engine{opts: opts}
}

// Options returns the engine's effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// WithStartHour returns a copy of the engine using a different window start.
func (e *Engine) WithStartHour(h int) *Engine {
	opts := e.opts
	opts.StartHour = h
	return &Engine{opts: opts}
}

// Layout returns one box per event, ordered by cluster and then by column.
// events must already be restricted to one day and exclude all-day entries.
// An error is only possible under InvertedReject.
func (e *Engine) Layout(events []model.Event) ([]model.Box, error) {
	ivs, err := e.intervals(events)
	if err != nil {
		return nil, err
	}

	boxes := make([]model.Box, 0, len(ivs))
	offset := float64(e.opts.StartHour * minutesPerHour)

	for _, group := range clusterIntervals(ivs) {
		cols := Pack(len(group), e.opts.Columns)
		for i, iv := range group {
			c := cols[i]
			boxes = append(boxes, model.Box{
				Event:        iv.ev,
				Top:          (iv.start - offset) * PixelsPerHour / minutesPerHour,
				Height:       max((iv.end-iv.start)*PixelsPerHour/minutesPerHour, MinBoxHeight),
				Left:         c.Left,
				Width:        c.Width,
				Column:       c.Index,
				TotalColumns: c.TotalColumns,
				OverlapLevel: c.OverlapLevel,
			})
		}
	}
	return boxes, nil
}

func (e *Engine) intervals(events []model.Event) ([]interval, error) {
	ivs := make([]interval, 0, len(events))
	for _, ev := range events {
		if ev.Inverted() {
			switch e.opts.Inverted {
			case InvertedReject:
				return nil, fmt.Errorf("%w: id=%s", ErrInvertedInterval, ev.ID)
			case InvertedNormalize:
				ev.Start, ev.End = ev.End, ev.Start
			}
		}
		ivs = append(ivs, project(ev))
	}
	return ivs, nil
}
