package gcell

import "math"

// GBox is an inclusive rectangle of cells.
//
// The zero-area empty box has its lower corner at the maximum coordinate and
// its upper corner at the minimum one, so that extending it with any cell
// yields exactly that cell.
type GBox struct {
	X0, Y0 int16
	X1, Y1 int16
}

// EmptyBox returns the empty sentinel box.
func EmptyBox() GBox {
	return GBox{X0: math.MaxInt16, Y0: math.MaxInt16, X1: math.MinInt16, Y1: math.MinInt16}
}

// BoxAt returns the single-cell box containing c.
func BoxAt(c GCell) GBox {
	return GBox{X0: c.X, Y0: c.Y, X1: c.X, Y1: c.Y}
}

// Empty reports whether b contains no cell.
func (b GBox) Empty() bool {
	return b.X0 > b.X1 || b.Y0 > b.Y1
}

// Extend grows b to include c. It never shrinks the box.
func (b *GBox) Extend(c GCell) {
	if c.X < b.X0 {
		b.X0 = c.X
	}
	if c.Y < b.Y0 {
		b.Y0 = c.Y
	}
	if c.X > b.X1 {
		b.X1 = c.X
	}
	if c.Y > b.Y1 {
		b.Y1 = c.Y
	}
}

// Contains reports whether c lies inside b.
func (b GBox) Contains(c GCell) bool {
	return c.X >= b.X0 && c.X <= b.X1 && c.Y >= b.Y0 && c.Y <= b.Y1
}

// Expand returns b grown by margin cells on every side. An empty box stays empty.
func (b GBox) Expand(margin int) GBox {
	if b.Empty() {
		return b
	}
	return GBox{
		X0: clamp16(int(b.X0) - margin),
		Y0: clamp16(int(b.Y0) - margin),
		X1: clamp16(int(b.X1) + margin),
		Y1: clamp16(int(b.Y1) + margin),
	}
}

// Overlaps reports whether b and o share at least one cell.
func (b GBox) Overlaps(o GBox) bool {
	if b.Empty() || o.Empty() {
		return false
	}
	return b.X0 <= o.X1 && o.X0 <= b.X1 && b.Y0 <= o.Y1 && o.Y0 <= b.Y1
}

// Width returns the number of columns covered by b.
func (b GBox) Width() int {
	if b.Empty() {
		return 0
	}
	return int(b.X1) - int(b.X0) + 1
}

// Height returns the number of rows covered by b.
func (b GBox) Height() int {
	if b.Empty() {
		return 0
	}
	return int(b.Y1) - int(b.Y0) + 1
}

// Center returns the middle cell of b, rounding towards the lower corner.
func (b GBox) Center() GCell {
	if b.Empty() {
		return Invalid
	}
	return New((int(b.X0)+int(b.X1))/2, (int(b.Y0)+int(b.Y1))/2)
}

// HalfPerimeter returns the half perimeter wirelength of b.
func (b GBox) HalfPerimeter() int {
	if b.Empty() {
		return 0
	}
	return int(b.X1) - int(b.X0) + int(b.Y1) - int(b.Y0)
}
