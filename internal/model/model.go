package model

import "time"

// Event is a single timed (or all-day) calendar entry as supplied by the
// caller. The layout engine treats it as read-only and passes the display
// fields through unchanged.
type Event struct {
	ID       string `json:"id"`
	SourceID string `json:"source_id,omitempty"` // feed ID when the event came from an ICS source

	Title    string `json:"title"`
	Color    string `json:"color,omitempty"`
	Category string `json:"category,omitempty"`
	Location string `json:"location,omitempty"`

	AllDay bool `json:"all_day"`

	// Start / End are wall-clock instants already in the viewer's frame.
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns End - Start. It is negative for inverted intervals.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Inverted reports whether the event ends before it starts.
func (e Event) Inverted() bool {
	return e.End.Before(e.Start)
}

// Box is the computed geometry of one event inside a day column.
//
// Top and Height are pixels from the grid's zero line; Left and Width are
// percentages of the column width.
type Box struct {
	Event Event `json:"event"`

	Top    float64 `json:"top"`
	Height float64 `json:"height"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`

	Column       int `json:"column"`
	TotalColumns int `json:"total_columns"`
	OverlapLevel int `json:"overlap_level"`
}
