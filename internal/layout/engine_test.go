package layout

import (
	"fmt"
	"math/rand"
	"slices"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timegrid/internal/model"
)

var day = time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func ev(id string, sh, sm, eh, em int) model.Event {
	return model.Event{ID: id, Title: "title " + id, Start: at(sh, sm), End: at(eh, em)}
}

func ids(evs []model.Event) []string {
	out := make([]string, len(evs))
	for i, e := range evs {
		out[i] = e.ID
	}
	return out
}

func TestCluster(t *testing.T) {
	t.Parallel()

	t.Run("transitive overlap forms one cluster", func(t *testing.T) {
		a := ev("A", 10, 0, 11, 0)
		b := ev("B", 10, 30, 11, 30)
		c := ev("C", 11, 15, 12, 0)

		got := Cluster([]model.Event{c, a, b})
		require.Len(t, got, 1)
		assert.Equal(t, []string{"A", "B", "C"}, ids(got[0]))
	})

	t.Run("disjoint events are isolated", func(t *testing.T) {
		got := Cluster([]model.Event{ev("E", 11, 0, 12, 0), ev("D", 9, 0, 10, 0)})
		require.Len(t, got, 2)
		assert.Equal(t, []string{"D"}, ids(got[0]))
		assert.Equal(t, []string{"E"}, ids(got[1]))
	})

	t.Run("touching intervals do not overlap", func(t *testing.T) {
		got := Cluster([]model.Event{ev("A", 9, 0, 10, 0), ev("B", 10, 0, 11, 0)})
		assert.Len(t, got, 2)
	})

	t.Run("zero duration event", func(t *testing.T) {
		got := Cluster([]model.Event{ev("Z", 10, 0, 10, 0), ev("B", 10, 0, 11, 0)})
		require.Len(t, got, 2)
		assert.Equal(t, []string{"Z"}, ids(got[0]))

		got = Cluster([]model.Event{ev("A", 9, 0, 11, 0), ev("Z", 10, 0, 10, 0)})
		assert.Len(t, got, 1)
	})

	t.Run("equal starts keep input order", func(t *testing.T) {
		got := Cluster([]model.Event{ev("X", 9, 0, 10, 0), ev("Y", 9, 0, 9, 30)})
		require.Len(t, got, 1)
		assert.Equal(t, []string{"X", "Y"}, ids(got[0]))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Cluster(nil))
	})
}

func TestCluster_Partition(t *testing.T) {
	t.Parallel()

	rnd := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		n := rnd.Intn(30)
		events := make([]model.Event, n)
		for i := range events {
			start := rnd.Intn(22 * 60)
			dur := rnd.Intn(180)
			events[i] = model.Event{
				ID:    fmt.Sprintf("e%d", i),
				Start: day.Add(time.Duration(start) * time.Minute),
				End:   day.Add(time.Duration(start+dur) * time.Minute),
			}
		}

		clusters := Cluster(events)
		seen := make(map[string]int)
		for _, c := range clusters {
			require.NotEmpty(t, c)
			for _, e := range c {
				seen[e.ID]++
			}
		}
		require.Len(t, seen, n, "round %d", round)
		for id, count := range seen {
			require.Equal(t, 1, count, "event %s in round %d", id, round)
		}

		// Consecutive clusters never overlap.
		for i := 1; i < len(clusters); i++ {
			prevEnd := clusters[i-1][0].End
			for _, e := range clusters[i-1] {
				if e.End.After(prevEnd) {
					prevEnd = e.End
				}
			}
			assert.False(t, clusters[i][0].Start.Before(prevEnd), "round %d cluster %d", round, i)
		}
	}
}

func TestEngine_Layout(t *testing.T) {
	t.Parallel()

	t.Run("two overlapping events", func(t *testing.T) {
		f := ev("F", 9, 0, 10, 0)
		g := ev("G", 9, 30, 10, 30)

		boxes, err := NewEngine(Options{}).Layout([]model.Event{g, f})
		require.NoError(t, err)
		require.Len(t, boxes, 2)

		fb, gb := boxes[0], boxes[1]
		assert.Equal(t, "F", fb.Event.ID)
		assert.Equal(t, 540.0, fb.Top)
		assert.Equal(t, 60.0, fb.Height)
		assert.Equal(t, 0, fb.Column)
		assert.Equal(t, 0.0, fb.Left)
		assert.InDelta(t, 49.5, fb.Width, 1e-9)
		assert.Equal(t, 2, fb.TotalColumns)
		assert.Equal(t, 2, fb.OverlapLevel)

		assert.Equal(t, "G", gb.Event.ID)
		assert.Equal(t, 570.0, gb.Top)
		assert.Equal(t, 60.0, gb.Height)
		assert.Equal(t, 1, gb.Column)
		assert.InDelta(t, 50.5, gb.Left, 1e-9)
		assert.InDelta(t, 49.5, gb.Width, 1e-9)
	})

	t.Run("isolated events take full width", func(t *testing.T) {
		boxes, err := NewEngine(Options{}).Layout([]model.Event{ev("D", 9, 0, 10, 0), ev("E", 11, 0, 12, 0)})
		require.NoError(t, err)
		for _, b := range boxes {
			assert.Equal(t, 1, b.TotalColumns)
			assert.Equal(t, 0.0, b.Left)
			assert.Equal(t, 100.0, b.Width)
		}
	})

	t.Run("height floor", func(t *testing.T) {
		boxes, err := NewEngine(Options{}).Layout([]model.Event{ev("S", 9, 0, 9, 5), ev("Z", 12, 0, 12, 0)})
		require.NoError(t, err)
		for _, b := range boxes {
			assert.Equal(t, float64(MinBoxHeight), b.Height)
		}
	})

	t.Run("start hour shifts top", func(t *testing.T) {
		boxes, err := NewEngine(Options{StartHour: 8}).Layout([]model.Event{ev("A", 7, 30, 9, 0)})
		require.NoError(t, err)
		assert.Equal(t, -30.0, boxes[0].Top)
		assert.Equal(t, 90.0, boxes[0].Height)
	})

	t.Run("event ending at next midnight keeps its height", func(t *testing.T) {
		e := model.Event{ID: "late", Start: at(23, 0), End: at(24, 0)}
		boxes, err := NewEngine(Options{}).Layout([]model.Event{e})
		require.NoError(t, err)
		assert.Equal(t, 1380.0, boxes[0].Top)
		assert.Equal(t, 60.0, boxes[0].Height)
	})

	t.Run("daylight saving day uses wall clock", func(t *testing.T) {
		ny, err := time.LoadLocation("America/New_York")
		require.NoError(t, err)
		spring := func(h, m int) time.Time { return time.Date(2026, 3, 8, h, m, 0, 0, ny) }

		x := model.Event{ID: "X", Start: spring(1, 30), End: spring(3, 30)}
		y := model.Event{ID: "Y", Start: spring(3, 0), End: spring(4, 0)}
		boxes, err := NewEngine(Options{}).Layout([]model.Event{x, y})
		require.NoError(t, err)
		require.Len(t, boxes, 2)

		assert.Equal(t, 90.0, boxes[0].Top)
		assert.Equal(t, 120.0, boxes[0].Height)
		assert.Equal(t, 180.0, boxes[1].Top)
		assert.Equal(t, 60.0, boxes[1].Height)
		for _, b := range boxes {
			assert.Equal(t, 2, b.TotalColumns, b.Event.ID)
		}
		assert.Len(t, Cluster([]model.Event{x, y}), 1)
	})

	t.Run("fall back day uses wall clock", func(t *testing.T) {
		ny, err := time.LoadLocation("America/New_York")
		require.NoError(t, err)
		e := model.Event{
			ID:    "fall",
			Start: time.Date(2026, 11, 1, 0, 30, 0, 0, ny),
			End:   time.Date(2026, 11, 1, 2, 30, 0, 0, ny),
		}
		boxes, err := NewEngine(Options{}).Layout([]model.Event{e})
		require.NoError(t, err)
		assert.Equal(t, 30.0, boxes[0].Top)
		assert.Equal(t, 120.0, boxes[0].Height)
	})

	t.Run("display payload passes through", func(t *testing.T) {
		e := ev("P", 9, 0, 10, 0)
		e.Color = "#ff0000"
		e.Category = "exam"
		boxes, err := NewEngine(Options{}).Layout([]model.Event{e})
		require.NoError(t, err)
		assert.Equal(t, e, boxes[0].Event)
	})

	t.Run("empty input", func(t *testing.T) {
		boxes, err := NewEngine(Options{}).Layout(nil)
		require.NoError(t, err)
		assert.NotNil(t, boxes)
		assert.Empty(t, boxes)
	})
}

func TestEngine_ColumnInvariants(t *testing.T) {
	t.Parallel()

	// Six events all overlapping 10:00-11:00.
	var events []model.Event
	for i := 0; i < 6; i++ {
		events = append(events, ev(fmt.Sprintf("e%d", i), 9, i*5, 11, 0))
	}

	for _, mode := range []ColumnMode{ColumnsUncapped, ColumnsCapped} {
		t.Run(string(mode), func(t *testing.T) {
			boxes, err := NewEngine(Options{Columns: mode}).Layout(events)
			require.NoError(t, err)
			require.Len(t, boxes, 6)

			var cols []int
			for _, b := range boxes {
				cols = append(cols, b.Column)
				assert.Equal(t, 6, b.TotalColumns)
				assert.Equal(t, 4, b.OverlapLevel)
				assert.GreaterOrEqual(t, b.Left, 0.0)
				assert.LessOrEqual(t, b.Left+b.Width, 100.0+1e-9)
			}
			slices.Sort(cols)
			assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, cols)
		})
	}

	t.Run("capped width stops shrinking", func(t *testing.T) {
		boxes, err := NewEngine(Options{Columns: ColumnsCapped}).Layout(events)
		require.NoError(t, err)
		assert.InDelta(t, 24.25, boxes[0].Width, 1e-9)
		assert.InDelta(t, boxes[0].Left, boxes[4].Left, 1e-9)

		boxes, err = NewEngine(Options{}).Layout(events)
		require.NoError(t, err)
		assert.InDelta(t, 95.0/6, boxes[0].Width, 1e-9)
	})
}

func TestEngine_InvertedPolicy(t *testing.T) {
	t.Parallel()

	inv := ev("I", 10, 0, 9, 0)

	t.Run("permissive floors height", func(t *testing.T) {
		boxes, err := NewEngine(Options{}).Layout([]model.Event{inv})
		require.NoError(t, err)
		assert.Equal(t, 600.0, boxes[0].Top)
		assert.Equal(t, float64(MinBoxHeight), boxes[0].Height)
	})

	t.Run("normalize swaps", func(t *testing.T) {
		boxes, err := NewEngine(Options{Inverted: InvertedNormalize}).Layout([]model.Event{inv})
		require.NoError(t, err)
		assert.Equal(t, 540.0, boxes[0].Top)
		assert.Equal(t, 60.0, boxes[0].Height)
		assert.Equal(t, at(9, 0), boxes[0].Event.Start)
	})

	t.Run("reject errors", func(t *testing.T) {
		_, err := NewEngine(Options{Inverted: InvertedReject}).Layout([]model.Event{ev("ok", 8, 0, 9, 0), inv})
		require.ErrorIs(t, err, ErrInvertedInterval)
		assert.Contains(t, err.Error(), "id=I")
	})
}

func TestEngine_WithStartHour(t *testing.T) {
	t.Parallel()

	base := NewEngine(Options{Columns: ColumnsCapped})
	shifted := base.WithStartHour(6)
	assert.Equal(t, 0, base.Options().StartHour)
	assert.Equal(t, 6, shifted.Options().StartHour)
	assert.Equal(t, ColumnsCapped, shifted.Options().Columns)
	assert.Equal(t, InvertedPermissive, shifted.Options().Inverted)
}

func TestParseOptions(t *testing.T) {
	t.Parallel()

	m, err := ParseColumnMode(" Capped ")
	require.NoError(t, err)
	assert.Equal(t, ColumnsCapped, m)
	m, err = ParseColumnMode("")
	require.NoError(t, err)
	assert.Equal(t, ColumnsUncapped, m)
	_, err = ParseColumnMode("wide")
	assert.Error(t, err)

	p, err := ParseInvertedPolicy("reject")
	require.NoError(t, err)
	assert.Equal(t, InvertedReject, p)
	_, err = ParseInvertedPolicy("ignore")
	assert.Error(t, err)
}
