// Package gcell provides the coarse grid geometry used by global routing:
// grid cells, bounding boxes and ordered cell sets.
package gcell

import (
	"fmt"
	"math"
)

// GCell is one coarse cell of the routing grid.
//
// Cells are totally ordered by (Y, X) so that a sorted slice walks the grid
// row by row.
type GCell struct {
	X int16
	Y int16
}

// Invalid is the value of a cell that does not refer to any grid position.
var Invalid = GCell{X: math.MinInt16, Y: math.MinInt16}

// New returns the cell at (x, y), clamping both coordinates to the int16 range.
func New(x, y int) GCell {
	return GCell{X: clamp16(x), Y: clamp16(y)}
}

func clamp16(v int) int16 {
	if v < math.MinInt16 {
		return math.MinInt16
	}
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	return int16(v)
}

// IsValid reports whether c is not the Invalid sentinel.
func (c GCell) IsValid() bool {
	return c != Invalid
}

// Less reports whether c sorts before o.
func (c GCell) Less(o GCell) bool {
	if c.Y != o.Y {
		return c.Y < o.Y
	}
	return c.X < o.X
}

// Compare returns -1, 0 or +1 following the (Y, X) order.
func (c GCell) Compare(o GCell) int {
	switch {
	case c.Less(o):
		return -1
	case o.Less(c):
		return 1
	}
	return 0
}

// MDist returns the Manhattan distance between c and o.
func (c GCell) MDist(o GCell) int {
	return abs(int(c.X)-int(o.X)) + abs(int(c.Y)-int(o.Y))
}

// Add returns c translated by (dx, dy).
func (c GCell) Add(dx, dy int) GCell {
	return New(int(c.X)+dx, int(c.Y)+dy)
}

// Aligned reports whether c and o share a row or a column.
func (c GCell) Aligned(o GCell) bool {
	return c.X == o.X || c.Y == o.Y
}

func (c GCell) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
