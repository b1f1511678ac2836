package route

import (
	"testing"

	"github.com/OpenTraceLab/feline/pkg/gcell"
)

func c(x, y int) gcell.GCell { return gcell.New(x, y) }

func TestWithinTolOfLine(t *testing.T) {
	g := newCorridor([]gcell.GCell{c(0, 0), c(4, 0), c(4, 3)}, 1)

	tests := []struct {
		name   string
		l0, l1 gcell.GCell
		at     gcell.GCell
		want   int
	}{
		{"on line", c(0, 0), c(4, 0), c(2, 0), 0},
		{"one off", c(0, 0), c(4, 0), c(2, 1), 1},
		{"too far across", c(0, 0), c(4, 0), c(2, 2), offLine},
		{"behind origin", c(0, 0), c(4, 0), c(-2, 0), behindOrigin},
		{"just behind", c(0, 0), c(4, 0), c(-1, 0), 0},
		{"past the end", c(0, 0), c(4, 0), c(6, 0), offLine},
		{"westward behind", c(4, 0), c(0, 0), c(6, 0), behindOrigin},
		{"vertical", c(4, 0), c(4, 3), c(3, 2), 1},
		{"diagonal", c(0, 0), c(2, 2), c(1, 1), offLine},
		{"degenerate", c(1, 1), c(1, 1), c(2, 2), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.withinTolOfLine(tt.l0, tt.l1, tt.at); got != tt.want {
				t.Errorf("withinTolOfLine = %d, want %d", got, tt.want)
			}
		})
	}

	if got := g.withinTolOfCell(c(0, 0), c(1, 1)); got != 2 {
		t.Errorf("withinTolOfCell inside = %d, want 2", got)
	}
	if got := g.withinTolOfCell(c(0, 0), c(2, 0)); got != offLine {
		t.Errorf("withinTolOfCell outside = %d, want %d", got, offLine)
	}
}

func TestNextGlobalIdx(t *testing.T) {
	g := newCorridor([]gcell.GCell{c(0, 0), c(4, 0), c(4, 3)}, 1)

	tests := []struct {
		name     string
		at       gcell.GCell
		curr     int
		wantIdx  int
		wantDist int
	}{
		{"first leg", c(2, 0), 0, 0, 0},
		{"on first leg near corner", c(3, 0), 0, 0, 0},
		{"beside first leg near corner", c(3, 1), 0, 0, 1},
		{"corner reached", c(4, 0), 0, 1, 0},
		{"corner cell", c(4, 1), 0, 1, 0},
		{"second leg", c(4, 3), 1, 1, 0},
		{"off corridor", c(0, 3), 0, -1, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, dist := g.nextGlobalIdx(tt.at, tt.curr)
			if idx != tt.wantIdx || dist != tt.wantDist {
				t.Errorf("nextGlobalIdx(%v, %d) = %d, %d, want %d, %d", tt.at, tt.curr, idx, dist, tt.wantIdx, tt.wantDist)
			}
		})
	}
}

func TestForwardGuidance(t *testing.T) {
	g := newCorridor([]gcell.GCell{c(0, 0), c(4, 0), c(4, 3)}, 1)
	gc := guideCosts{weight: 0.5, off: 10, regress: 100}

	prog, cost := g.forward(c(3, 0), SteinerProgress{}, gc)
	if prog != (SteinerProgress{Index: 0, Alongness: 3}) || cost != 0 {
		t.Errorf("on corridor: got %+v cost %v", prog, cost)
	}

	near, cost := g.forward(c(3, 1), SteinerProgress{}, gc)
	if near != (SteinerProgress{Index: 0, Alongness: 3}) || cost != 0.5 {
		t.Errorf("beside corner: got %+v cost %v", near, cost)
	}

	prog, cost = g.forward(c(4, 2), prog, gc)
	if prog != (SteinerProgress{Index: 1, Alongness: 2}) || cost != 0 {
		t.Errorf("turn: got %+v cost %v", prog, cost)
	}

	_, cost = g.forward(c(1, 0), SteinerProgress{Index: 0, Alongness: 3}, gc)
	if cost != 100 {
		t.Errorf("regress cost = %v, want 100", cost)
	}

	prev := SteinerProgress{Index: 0, Alongness: 2}
	prog, cost = g.forward(c(2, 3), prev, gc)
	if prog != prev || cost != 10 {
		t.Errorf("off corridor: got %+v cost %v", prog, cost)
	}

	if cost := g.backward(c(2, 1), gc); cost != 0.5 {
		t.Errorf("backward cost = %v, want 0.5", cost)
	}
	if cost := g.backward(c(0, 3), gc); cost != 10 {
		t.Errorf("backward off corridor = %v, want 10", cost)
	}

	single := newCorridor([]gcell.GCell{c(2, 2)}, 1)
	if _, cost := single.forward(c(3, 2), SteinerProgress{}, gc); cost != 0.5 {
		t.Errorf("single cell cost = %v, want 0.5", cost)
	}
}
