package route

import (
	"sort"

	"github.com/OpenTraceLab/feline/pkg/arch"
	"github.com/OpenTraceLab/feline/pkg/gcell"
	"github.com/OpenTraceLab/feline/pkg/steiner"
)

// ChannelModel estimates routing demand across tile boundaries from Steiner
// trees, against the capacity the architecture's routing resources offer.
// Boundary (x, y) in the horizontal plane lies between tiles (x, y) and
// (x+1, y); in the vertical plane between (x, y) and (x, y+1).
type ChannelModel struct {
	width, height int

	// capacity per boundary index along each axis, uniform across rows
	capH, capV []float64
	demH, demV []float64
}

// Hotspot is one boundary whose estimated demand is high.
type Hotspot struct {
	Cell        gcell.GCell
	Dir         arch.RRDir
	Utilisation float64
}

// NewChannelModel derives boundary capacities from rrs. A wire with hop h
// started at every tile crosses |h| boundaries; wires that would leave the
// device are not counted.
func NewChannelModel(width, height int, rrs []arch.RoutingResource) *ChannelModel {
	m := &ChannelModel{
		width:  width,
		height: height,
		capH:   make([]float64, max(width-1, 0)),
		capV:   make([]float64, max(height-1, 0)),
		demH:   make([]float64, max(width-1, 0)*height),
		demV:   make([]float64, width*max(height-1, 0)),
	}
	for _, rr := range rrs {
		caps, n := m.capH, width
		if rr.Dir == arch.Vertical {
			caps, n = m.capV, height
		}
		for _, h := range rr.Hops {
			for x := 0; x < n; x++ {
				end := x + h
				if h == 0 || end < 0 || end >= n {
					continue
				}
				for b := min(x, end); b < max(x, end); b++ {
					caps[b] += float64(rr.Width)
				}
			}
		}
	}
	return m
}

// Enabled reports whether any capacity is known.
func (m *ChannelModel) Enabled() bool {
	for _, c := range m.capH {
		if c > 0 {
			return true
		}
	}
	for _, c := range m.capV {
		if c > 0 {
			return true
		}
	}
	return false
}

// Reset clears all demand.
func (m *ChannelModel) Reset() {
	clear(m.demH)
	clear(m.demV)
}

// AddTree adds weight units of demand along every edge of t. A diagonal
// edge is split evenly over both L shapes.
func (m *ChannelModel) AddTree(t *steiner.Tree, weight float64) {
	for _, e := range t.Edges() {
		if e.Diagonal() {
			hv := gcell.GCell{X: e.To.X, Y: e.From.Y}
			vh := gcell.GCell{X: e.From.X, Y: e.To.Y}
			m.addSegment(e.From, hv, weight/2)
			m.addSegment(hv, e.To, weight/2)
			m.addSegment(e.From, vh, weight/2)
			m.addSegment(vh, e.To, weight/2)
			continue
		}
		m.addSegment(e.From, e.To, weight)
	}
}

// Estimate replaces the demand with that of trees.
func (m *ChannelModel) Estimate(trees []*steiner.Tree) {
	m.Reset()
	for _, t := range trees {
		if t != nil {
			m.AddTree(t, 1)
		}
	}
}

func (m *ChannelModel) addSegment(a, b gcell.GCell, weight float64) {
	m.walk(a, b, func(dem []float64, idx int, _ float64) {
		dem[idx] += weight
	})
}

// walk calls fn for every boundary crossed by the axis-aligned segment a-b.
func (m *ChannelModel) walk(a, b gcell.GCell, fn func(dem []float64, idx int, capacity float64)) {
	switch {
	case a.Y == b.Y:
		y := int(a.Y)
		if y < 0 || y >= m.height {
			return
		}
		for x := max(int(min(a.X, b.X)), 0); x < int(max(a.X, b.X)) && x < m.width-1; x++ {
			fn(m.demH, y*(m.width-1)+x, m.capH[x])
		}
	case a.X == b.X:
		x := int(a.X)
		if x < 0 || x >= m.width {
			return
		}
		for y := max(int(min(a.Y, b.Y)), 0); y < int(max(a.Y, b.Y)) && y < m.height-1; y++ {
			fn(m.demV, y*m.width+x, m.capV[y])
		}
	}
}

// Utilisation returns demand over capacity of the boundary east (Horizontal)
// or north (Vertical) of c. Boundaries without capacity count their demand
// against a capacity of one.
func (m *ChannelModel) Utilisation(c gcell.GCell, dir arch.RRDir) float64 {
	x, y := int(c.X), int(c.Y)
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return 0
	}
	if dir == arch.Horizontal {
		if x >= m.width-1 {
			return 0
		}
		return m.demH[y*(m.width-1)+x] / max(m.capH[x], 1)
	}
	if y >= m.height-1 {
		return 0
	}
	return m.demV[y*m.width+x] / max(m.capV[y], 1)
}

// SegmentCost prices an axis-aligned segment as one unit per boundary plus
// the utilisation of each boundary crossed.
func (m *ChannelModel) SegmentCost(a, b gcell.GCell) float64 {
	cost := 0.0
	m.walk(a, b, func(dem []float64, idx int, capacity float64) {
		cost += 1 + dem[idx]/max(capacity, 1)
	})
	return cost
}

// Congested reports whether a boundary touching c is over capacity.
func (m *ChannelModel) Congested(c gcell.GCell) bool {
	w := c.Add(-1, 0)
	s := c.Add(0, -1)
	return m.Utilisation(c, arch.Horizontal) > 1 || m.Utilisation(c, arch.Vertical) > 1 ||
		m.Utilisation(w, arch.Horizontal) > 1 || m.Utilisation(s, arch.Vertical) > 1
}

// Tolerance widens base by one cell when the path crosses a congested tile.
func (m *ChannelModel) Tolerance(path []gcell.GCell, base int) int {
	for _, c := range path {
		if m.Congested(c) {
			return base + 1
		}
	}
	return base
}

// Hotspots returns the n most utilised boundaries, highest first.
func (m *ChannelModel) Hotspots(n int) []Hotspot {
	var out []Hotspot
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			c := gcell.New(x, y)
			for _, dir := range []arch.RRDir{arch.Horizontal, arch.Vertical} {
				if u := m.Utilisation(c, dir); u > 0 {
					out = append(out, Hotspot{Cell: c, Dir: dir, Utilisation: u})
				}
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Utilisation > out[j].Utilisation })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
