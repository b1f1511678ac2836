package gcell

import (
	"math"
	"slices"
	"sort"
)

// Set is an ordered, deduplicated collection of cells.
//
// Push is cheap and leaves the set dirty; every ordered query sorts first.
// The set is not safe for concurrent use.
type Set struct {
	cells []GCell
	rows  []row
	dirty bool
}

type row struct {
	y          int16
	start, end int
}

// NewSet returns a set holding the given cells.
func NewSet(cells ...GCell) *Set {
	s := &Set{}
	for _, c := range cells {
		s.Push(c)
	}
	return s
}

// Push adds c to the set.
func (s *Set) Push(c GCell) {
	s.cells = append(s.cells, c)
	s.dirty = true
}

// Clear removes every cell.
func (s *Set) Clear() {
	s.cells = s.cells[:0]
	s.rows = s.rows[:0]
	s.dirty = false
}

// Dirty reports whether cells were pushed since the last sort.
func (s *Set) Dirty() bool {
	return s.dirty
}

// Sort orders the cells, drops duplicates and rebuilds the row index.
func (s *Set) Sort() {
	slices.SortFunc(s.cells, GCell.Compare)
	s.cells = slices.Compact(s.cells)
	s.rows = s.rows[:0]
	for i, c := range s.cells {
		if n := len(s.rows); n > 0 && s.rows[n-1].y == c.Y {
			s.rows[n-1].end = i + 1
			continue
		}
		s.rows = append(s.rows, row{y: c.Y, start: i, end: i + 1})
	}
	s.dirty = false
}

func (s *Set) sorted() {
	if s.dirty {
		s.Sort()
	}
}

// Len returns the number of distinct cells.
func (s *Set) Len() int {
	s.sorted()
	return len(s.cells)
}

// Cells returns the sorted cells. The slice must not be modified.
func (s *Set) Cells() []GCell {
	s.sorted()
	return s.cells
}

// Contains reports whether c is in the set.
func (s *Set) Contains(c GCell) bool {
	s.sorted()
	_, ok := slices.BinarySearchFunc(s.cells, c, GCell.Compare)
	return ok
}

// First returns the smallest cell, or Invalid when the set is empty.
func (s *Set) First() GCell {
	s.sorted()
	if len(s.cells) == 0 {
		return Invalid
	}
	return s.cells[0]
}

// Last returns the greatest cell, or Invalid when the set is empty.
func (s *Set) Last() GCell {
	s.sorted()
	if len(s.cells) == 0 {
		return Invalid
	}
	return s.cells[len(s.cells)-1]
}

// PrevCell returns the greatest cell strictly less than c, or Invalid.
func (s *Set) PrevCell(c GCell) GCell {
	s.sorted()
	i, _ := slices.BinarySearchFunc(s.cells, c, GCell.Compare)
	if i == 0 {
		return Invalid
	}
	return s.cells[i-1]
}

// NextCell returns the smallest cell strictly greater than c, or Invalid.
func (s *Set) NextCell(c GCell) GCell {
	s.sorted()
	i, found := slices.BinarySearchFunc(s.cells, c, GCell.Compare)
	if found {
		i++
	}
	if i >= len(s.cells) {
		return Invalid
	}
	return s.cells[i]
}

// PrevY returns the nearest populated row strictly below y, or math.MinInt16.
func (s *Set) PrevY(y int16) int16 {
	s.sorted()
	i := sort.Search(len(s.rows), func(i int) bool { return s.rows[i].y >= y })
	if i == 0 {
		return math.MinInt16
	}
	return s.rows[i-1].y
}

// NextY returns the nearest populated row strictly above y, or math.MaxInt16.
func (s *Set) NextY(y int16) int16 {
	s.sorted()
	i := sort.Search(len(s.rows), func(i int) bool { return s.rows[i].y > y })
	if i >= len(s.rows) {
		return math.MaxInt16
	}
	return s.rows[i].y
}

// Row returns the cells of row y in increasing X order.
func (s *Set) Row(y int16) []GCell {
	s.sorted()
	i := sort.Search(len(s.rows), func(i int) bool { return s.rows[i].y >= y })
	if i >= len(s.rows) || s.rows[i].y != y {
		return nil
	}
	return s.cells[s.rows[i].start:s.rows[i].end]
}

// Box returns the bounding box of the set.
func (s *Set) Box() GBox {
	b := EmptyBox()
	for _, c := range s.Cells() {
		b.Extend(c)
	}
	return b
}
