package route

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/OpenTraceLab/feline/pkg/arch"
	"github.com/OpenTraceLab/feline/pkg/gcell"
	"github.com/OpenTraceLab/feline/pkg/steiner"
)

func TestChannelCapacity(t *testing.T) {
	m := NewChannelModel(4, 2, []arch.RoutingResource{
		{Width: 2, Hops: []int{1}, Dir: arch.Horizontal},
		{Width: 1, Hops: []int{2}, Dir: arch.Horizontal},
		{Width: 3, Hops: []int{-1}, Dir: arch.Vertical},
	})
	if diff := cmp.Diff([]float64{3, 4, 3}, m.capH); diff != "" {
		t.Errorf("horizontal capacity mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{3}, m.capV); diff != "" {
		t.Errorf("vertical capacity mismatch (-want +got):\n%s", diff)
	}
	if !m.Enabled() {
		t.Errorf("model with capacity should be enabled")
	}
	if NewChannelModel(4, 2, nil).Enabled() {
		t.Errorf("model without resources should be disabled")
	}
}

func TestChannelDemand(t *testing.T) {
	m := NewChannelModel(4, 2, []arch.RoutingResource{
		{Width: 2, Hops: []int{1}, Dir: arch.Horizontal},
		{Width: 1, Hops: []int{1}, Dir: arch.Vertical},
	})

	tree := steiner.New(c(0, 0))
	tree.AddPort(c(3, 0), 0)
	tree.Nodes[c(3, 0)].Uphill = c(0, 0)
	m.Estimate([]*steiner.Tree{tree, tree, tree})

	if got := m.Utilisation(c(1, 0), arch.Horizontal); got != 1.5 {
		t.Errorf("Utilisation = %v, want 1.5", got)
	}
	if got := m.Utilisation(c(1, 1), arch.Horizontal); got != 0 {
		t.Errorf("Utilisation of an unused row = %v, want 0", got)
	}
	if got := m.Utilisation(c(3, 0), arch.Horizontal); got != 0 {
		t.Errorf("Utilisation past the east edge = %v, want 0", got)
	}
	if got, want := m.SegmentCost(c(0, 0), c(2, 0)), 2*(1+1.5); math.Abs(got-want) > 1e-9 {
		t.Errorf("SegmentCost = %v, want %v", got, want)
	}
	if got := m.SegmentCost(c(0, 1), c(0, 0)); got != 1 {
		t.Errorf("SegmentCost of a free vertical = %v, want 1", got)
	}

	if !m.Congested(c(2, 0)) || m.Congested(c(0, 1)) {
		t.Errorf("Congested wrong")
	}
	if got := m.Tolerance([]gcell.GCell{c(0, 1), c(1, 0)}, 1); got != 2 {
		t.Errorf("Tolerance = %d, want 2", got)
	}

	hs := m.Hotspots(2)
	if len(hs) != 2 || hs[0].Utilisation != 1.5 || hs[0].Dir != arch.Horizontal {
		t.Errorf("Hotspots = %+v", hs)
	}

	m.AddTree(tree, -3)
	if got := m.Utilisation(c(1, 0), arch.Horizontal); got != 0 {
		t.Errorf("Utilisation after removal = %v, want 0", got)
	}
}

func TestChannelDiagonalSplit(t *testing.T) {
	m := NewChannelModel(2, 2, []arch.RoutingResource{
		{Width: 1, Hops: []int{1}, Dir: arch.Horizontal},
		{Width: 1, Hops: []int{1}, Dir: arch.Vertical},
	})
	tree := steiner.New(c(0, 0))
	tree.AddPort(c(1, 1), 0)
	tree.Nodes[c(1, 1)].Uphill = c(0, 0)
	m.Estimate([]*steiner.Tree{tree})

	for _, tt := range []struct {
		at  gcell.GCell
		dir arch.RRDir
	}{
		{c(0, 0), arch.Horizontal},
		{c(0, 1), arch.Horizontal},
		{c(0, 0), arch.Vertical},
		{c(1, 0), arch.Vertical},
	} {
		if got := m.Utilisation(tt.at, tt.dir); got != 0.5 {
			t.Errorf("Utilisation(%v, %v) = %v, want 0.5", tt.at, tt.dir, got)
		}
	}
}
