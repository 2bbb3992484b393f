package layout

import (
	"fmt"
	"strings"
)

// ColumnMode selects the divisor used to split a cluster's horizontal space.
type ColumnMode string

const (
	// ColumnsUncapped divides the width by the full cluster size, so columns
	// keep shrinking however many events overlap.
	ColumnsUncapped ColumnMode = "uncapped"
	// ColumnsCapped divides the width by the overlap level (at most
	// MaxOverlapLevel). Members past the cap reuse slots modulo the level
	// and render stacked on top of earlier members.
	ColumnsCapped ColumnMode = "capped"
)

// ParseColumnMode parses a ColumnMode; an empty string yields ColumnsUncapped.
func ParseColumnMode(s string) (ColumnMode, error) {
	switch ColumnMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ColumnsUncapped:
		return ColumnsUncapped, nil
	case ColumnsCapped:
		return ColumnsCapped, nil
	default:
		return "", fmt.Errorf("layout: unknown column mode %q", s)
	}
}

// Column is the horizontal placement of one cluster member.
type Column struct {
	Index        int
	TotalColumns int
	OverlapLevel int
	Left         float64
	Width        float64
}

// OverlapLevel returns min(totalColumns, MaxOverlapLevel).
func OverlapLevel(totalColumns int) int {
	return min(totalColumns, MaxOverlapLevel)
}

// Pack assigns columns to the n members of a start-ordered cluster. Member i
// always gets column i; freed columns are never reused.
func Pack(n int, mode ColumnMode) []Column {
	if n <= 0 {
		return nil
	}

	level := OverlapLevel(n)
	divisor := n
	if mode == ColumnsCapped {
		divisor = level
	}

	gap := 0.0
	if divisor > 1 {
		gap = GapPercent
	}
	available := 100 - gap*float64(divisor-1)
	width := available / float64(divisor)

	cols := make([]Column, n)
	for i := range cols {
		slot := i % divisor
		cols[i] = Column{
			Index:        i,
			TotalColumns: n,
			OverlapLevel: level,
			Left:         float64(slot) * (width + gap),
			Width:        width,
		}
	}
	return cols
}
