package gcell

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestOrderAndDistance(t *testing.T) {
	tests := []struct {
		a, b GCell
		less bool
		dist int
	}{
		{GCell{0, 0}, GCell{1, 0}, true, 1},
		{GCell{5, 0}, GCell{0, 1}, true, 6},
		{GCell{0, 1}, GCell{5, 0}, false, 6},
		{GCell{3, 3}, GCell{3, 3}, false, 0},
		{GCell{-2, 4}, GCell{2, -4}, false, 12},
	}
	for _, tt := range tests {
		if got := tt.a.Less(tt.b); got != tt.less {
			t.Errorf("%v.Less(%v) = %v, want %v", tt.a, tt.b, got, tt.less)
		}
		if got := tt.a.MDist(tt.b); got != tt.dist {
			t.Errorf("%v.MDist(%v) = %d, want %d", tt.a, tt.b, got, tt.dist)
		}
		if tt.a.MDist(tt.b) != tt.b.MDist(tt.a) {
			t.Errorf("MDist not symmetric for %v %v", tt.a, tt.b)
		}
	}
	if New(100000, -100000) != (GCell{math.MaxInt16, math.MinInt16}) {
		t.Errorf("New did not clamp")
	}
}

func TestEmptyBoxExtend(t *testing.T) {
	b := EmptyBox()
	if !b.Empty() {
		t.Fatalf("EmptyBox not empty")
	}
	if b.Width() != 0 || b.Contains(GCell{0, 0}) {
		t.Fatalf("empty box has area")
	}
	b.Extend(GCell{3, 4})
	if b != BoxAt(GCell{3, 4}) {
		t.Fatalf("Extend on empty box = %+v, want single cell", b)
	}
	b.Extend(GCell{1, 7})
	b.Extend(GCell{2, 5})
	want := GBox{X0: 1, Y0: 4, X1: 3, Y1: 7}
	if b != want {
		t.Fatalf("box = %+v, want %+v", b, want)
	}
	if b.Width() != 3 || b.Height() != 4 || b.HalfPerimeter() != 5 {
		t.Errorf("bad dimensions %d x %d", b.Width(), b.Height())
	}
	if !b.Overlaps(BoxAt(GCell{3, 7})) || b.Overlaps(BoxAt(GCell{4, 7})) {
		t.Errorf("Overlaps wrong")
	}
	if !b.Expand(1).Overlaps(BoxAt(GCell{4, 7})) {
		t.Errorf("Expand(1) should reach (4,7)")
	}
	if !EmptyBox().Expand(3).Empty() {
		t.Errorf("expanded empty box should stay empty")
	}
}

func TestSetSortAndWalk(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := &Set{}
	seen := map[GCell]bool{}
	for i := 0; i < 500; i++ {
		c := GCell{int16(rng.Intn(20) - 5), int16(rng.Intn(20) - 5)}
		s.Push(c)
		seen[c] = true
	}
	if !s.Dirty() {
		t.Fatalf("set should be dirty after Push")
	}
	s.Sort()
	if s.Dirty() {
		t.Fatalf("set should be clean after Sort")
	}
	if s.Len() != len(seen) {
		t.Fatalf("Len = %d, want %d", s.Len(), len(seen))
	}

	visited := 0
	prev := Invalid
	for c := s.First(); c.IsValid(); c = s.NextCell(c) {
		if !seen[c] {
			t.Fatalf("walk visited %v which was never pushed", c)
		}
		if prev.IsValid() && !prev.Less(c) {
			t.Fatalf("walk not increasing: %v then %v", prev, c)
		}
		if got := s.PrevCell(c); got != prev {
			t.Fatalf("PrevCell(%v) = %v, want %v", c, got, prev)
		}
		prev = c
		visited++
	}
	if visited != len(seen) {
		t.Fatalf("walk visited %d cells, want %d", visited, len(seen))
	}
	if prev != s.Last() {
		t.Fatalf("walk ended at %v, Last = %v", prev, s.Last())
	}
}

func TestSetQueriesOnAbsentCells(t *testing.T) {
	s := NewSet(GCell{4, 1}, GCell{0, 1}, GCell{2, 5}, GCell{0, 1}, GCell{7, 3})

	if got := s.NextCell(GCell{1, 1}); got != (GCell{4, 1}) {
		t.Errorf("NextCell((1,1)) = %v", got)
	}
	if got := s.PrevCell(GCell{0, 4}); got != (GCell{7, 3}) {
		t.Errorf("PrevCell((0,4)) = %v", got)
	}
	if got := s.NextCell(GCell{2, 5}); got.IsValid() {
		t.Errorf("NextCell(last) = %v, want Invalid", got)
	}
	if got := s.PrevCell(GCell{0, 1}); got.IsValid() {
		t.Errorf("PrevCell(first) = %v, want Invalid", got)
	}

	if got := s.NextY(1); got != 3 {
		t.Errorf("NextY(1) = %d, want 3", got)
	}
	if got := s.NextY(2); got != 3 {
		t.Errorf("NextY(2) = %d, want 3", got)
	}
	if got := s.PrevY(5); got != 3 {
		t.Errorf("PrevY(5) = %d, want 3", got)
	}
	if got := s.PrevY(1); got != math.MinInt16 {
		t.Errorf("PrevY(1) = %d, want sentinel", got)
	}
	if got := s.NextY(5); got != math.MaxInt16 {
		t.Errorf("NextY(5) = %d, want sentinel", got)
	}

	if diff := cmp.Diff([]GCell{{0, 1}, {4, 1}}, s.Row(1)); diff != "" {
		t.Errorf("Row(1) mismatch (-want +got):\n%s", diff)
	}
	if s.Row(2) != nil {
		t.Errorf("Row(2) should be empty")
	}
	if !s.Contains(GCell{7, 3}) || s.Contains(GCell{3, 7}) {
		t.Errorf("Contains wrong")
	}
	if b := s.Box(); b != (GBox{X0: 0, Y0: 1, X1: 7, Y1: 5}) {
		t.Errorf("Box = %+v", b)
	}

	s.Clear()
	if s.Len() != 0 || s.First().IsValid() {
		t.Errorf("Clear left cells behind")
	}
}
