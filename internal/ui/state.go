package ui

import (
	"fmt"
	"sort"
	"sync"

	"github.com/OpenTraceLab/feline/pkg/arch"
	"github.com/OpenTraceLab/feline/pkg/gcell"
	"github.com/OpenTraceLab/feline/pkg/route"
	"github.com/OpenTraceLab/feline/pkg/steiner"
)

// Layer is one toggleable overlay of the routing view.
type Layer int

const (
	LayerWires Layer = iota
	LayerTrees
	LayerHeat
	layerCount
)

func (l Layer) String() string {
	switch l {
	case LayerWires:
		return "Wires"
	case LayerTrees:
		return "Trees"
	case LayerHeat:
		return "Heat"
	}
	return fmt.Sprintf("Layer(%d)", int(l))
}

// Segment is a routed wire drawn between the centres of its end tiles.
type Segment struct {
	X0, Y0, X1, Y1 float64
	Overused       bool
}

// NetView is the drawable routing of one net.
type NetView struct {
	Name     string
	Status   route.NetStatus
	Source   gcell.GCell
	Ports    []gcell.GCell
	Wires    []Segment
	Tree     []steiner.Edge
	Overused bool
}

// StateSnapshot is a copy of the view state used while laying out a frame
// without holding the lock.
type StateSnapshot struct {
	Width, Height int
	Holes         []gcell.GCell
	Heat          map[gcell.GCell]float64
	Nets          []NetView
	Selected      int
	Layers        [layerCount]bool
	Hover         gcell.GCell
	Status        string
}

// AppState is the routed design shown by the viewer, shared between the
// event loop and whoever loads results into it.
type AppState struct {
	mu sync.RWMutex

	width, height int
	holes         []gcell.GCell
	heat          map[gcell.GCell]float64
	nets          []NetView
	selected      int
	layers        [layerCount]bool
	hover         gcell.GCell
	status        string
}

// NewState returns an empty state with wires and heat visible.
func NewState() *AppState {
	s := &AppState{selected: -1, hover: gcell.Invalid, heat: map[gcell.GCell]float64{}}
	s.layers[LayerWires] = true
	s.layers[LayerHeat] = true
	return s
}

// Load replaces the view with the routing held by r.
func (s *AppState) Load(dev arch.Device, api arch.API, r *route.Router, res *route.Result) {
	var holes []gcell.GCell
	for y := 0; y < dev.Height(); y++ {
		for x := 0; x < dev.Width(); x++ {
			if !api.IsInterconnect(x, y) {
				holes = append(holes, gcell.New(x, y))
			}
		}
	}

	st := r.State()
	nets := make([]NetView, 0, len(st.Nets))
	for _, nd := range st.Nets {
		nets = append(nets, netView(dev, r, nd))
	}
	heat := heatMap(dev, r)

	status := "not routed"
	if res != nil {
		if res.Converged {
			status = fmt.Sprintf("converged after %d rounds, %d wires", res.Rounds, res.WireLength)
		} else {
			status = fmt.Sprintf("not converged after %d rounds: %d overused, %d failed",
				res.Rounds, res.Overused, len(res.FailedNets))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.width, s.height = dev.Width(), dev.Height()
	s.holes = holes
	s.heat = heat
	s.nets = nets
	s.selected = -1
	s.status = status
}

func netView(dev arch.Device, r *route.Router, nd *route.PerNetData) NetView {
	st := r.State()
	nv := NetView{Name: nd.Net.Name, Status: nd.Status, Source: nd.SrcGCell}
	for _, ports := range nd.SinkData {
		for _, p := range ports {
			nv.Ports = append(nv.Ports, p.GCell)
		}
	}
	flats := make([]int32, 0, len(nd.BwdRouteTree))
	for f := range nd.BwdRouteTree {
		flats = append(flats, f)
	}
	sort.Slice(flats, func(i, j int) bool { return flats[i] < flats[j] })
	for _, f := range flats {
		box := dev.WireBox(r.WireOf(f))
		over := st.Wires[f].Curr() > 1
		nv.Overused = nv.Overused || over
		nv.Wires = append(nv.Wires, Segment{
			X0: float64(box.X0) + 0.5, Y0: float64(box.Y0) + 0.5,
			X1: float64(box.X1) + 0.5, Y1: float64(box.Y1) + 0.5,
			Overused: over,
		})
	}
	if nd.SteinerTree != nil {
		nv.Tree = nd.SteinerTree.Edges()
	}
	return nv
}

// heatMap rates every tile in [0, inf). With a channel model the rating is
// the worst boundary utilisation next to the tile; otherwise it counts
// overused wires located in the tile.
func heatMap(dev arch.Device, r *route.Router) map[gcell.GCell]float64 {
	heat := make(map[gcell.GCell]float64)
	if ch := r.Channels(); ch != nil && ch.Enabled() {
		for y := 0; y < dev.Height(); y++ {
			for x := 0; x < dev.Width(); x++ {
				c := gcell.New(x, y)
				u := max(ch.Utilisation(c, arch.Horizontal), ch.Utilisation(c, arch.Vertical))
				if u > 0 {
					heat[c] = u
				}
			}
		}
		return heat
	}
	for _, f := range r.State().OverusedWires() {
		box := dev.WireBox(r.WireOf(f))
		heat[gcell.New(int(box.X0), int(box.Y0))]++
	}
	return heat
}

// Snapshot returns a copy of the current state.
func (s *AppState) Snapshot() StateSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	heat := make(map[gcell.GCell]float64, len(s.heat))
	for c, v := range s.heat {
		heat[c] = v
	}
	return StateSnapshot{
		Width:    s.width,
		Height:   s.height,
		Holes:    append([]gcell.GCell(nil), s.holes...),
		Heat:     heat,
		Nets:     append([]NetView(nil), s.nets...),
		Selected: s.selected,
		Layers:   s.layers,
		Hover:    s.hover,
		Status:   s.status,
	}
}

// Bounds returns the box covering the whole grid.
func (s *AppState) Bounds() gcell.GBox {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.width == 0 || s.height == 0 {
		return gcell.EmptyBox()
	}
	return gcell.GBox{X1: int16(s.width - 1), Y1: int16(s.height - 1)}
}

// SelectNet selects a net by name. An unknown name clears the selection.
func (s *AppState) SelectNet(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.nets {
		if n.Name == name {
			s.selected = i
			return true
		}
	}
	s.selected = -1
	return false
}

// StepSelection moves the selection by delta, wrapping around. From no
// selection a positive step picks the first net and a negative one the last.
func (s *AppState) StepSelection(delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.nets)
	if n == 0 {
		return
	}
	if s.selected < 0 {
		if delta > 0 {
			s.selected = 0
		} else {
			s.selected = n - 1
		}
		return
	}
	s.selected = ((s.selected+delta)%n + n) % n
}

// ClearSelection deselects all nets.
func (s *AppState) ClearSelection() {
	s.mu.Lock()
	s.selected = -1
	s.mu.Unlock()
}

// ToggleLayer flips the visibility of l and returns the new value.
func (s *AppState) ToggleLayer(l Layer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l < 0 || l >= layerCount {
		return false
	}
	s.layers[l] = !s.layers[l]
	return s.layers[l]
}

// SetHover records the cell under the pointer.
func (s *AppState) SetHover(c gcell.GCell) {
	s.mu.Lock()
	s.hover = c
	s.mu.Unlock()
}

// NetsAt returns the names of nets with a wire or port in cell c.
func (s *AppState) NetsAt(c gcell.GCell) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var names []string
	for _, n := range s.nets {
		if n.touches(c) {
			names = append(names, n.Name)
		}
	}
	return names
}

func (n *NetView) touches(c gcell.GCell) bool {
	if n.Source == c {
		return true
	}
	for _, p := range n.Ports {
		if p == c {
			return true
		}
	}
	cx, cy := float64(c.X)+0.5, float64(c.Y)+0.5
	for _, w := range n.Wires {
		if cx >= min(w.X0, w.X1) && cx <= max(w.X0, w.X1) &&
			cy >= min(w.Y0, w.Y1) && cy <= max(w.Y0, w.Y1) {
			return true
		}
	}
	return false
}
