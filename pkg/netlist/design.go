// Package netlist holds a placed design: cells bound to bels, nets joining
// cell ports, and the routing produced for every net.
package netlist

import (
	"fmt"
	"sort"

	"github.com/OpenTraceLab/feline/pkg/arch"
)

// Cell is a placed logic element.
type Cell struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	BelName string `json:"bel"`
	// PinMap maps a logical port to the bel pins it drives or reads.
	// Ports without an entry map to the bel pin of the same name.
	PinMap map[string][]string `json:"pins,omitempty"`

	Bel arch.BelID `json:"-"`
}

// BelPins returns the physical bel pins of a logical port. The index into
// the result is the physical port index of a sink.
func (c *Cell) BelPins(port string) []string {
	if pins, ok := c.PinMap[port]; ok && len(pins) > 0 {
		return pins
	}
	return []string{port}
}

// PortRef is one endpoint of a net.
type PortRef struct {
	Cell        *Cell
	Port        string
	Criticality float32
}

// Info describes the port to the architecture capability interface.
func (p PortRef) Info() arch.PortInfo {
	if p.Cell == nil {
		return arch.PortInfo{Port: p.Port, Bel: arch.NoBel}
	}
	return arch.PortInfo{Cell: p.Cell.Name, CellType: p.Cell.Type, Port: p.Port, Bel: p.Cell.Bel}
}

func (p PortRef) String() string {
	if p.Cell == nil {
		return "<none>." + p.Port
	}
	return p.Cell.Name + "." + p.Port
}

// Net is a driver and its users together with the routing bound to it.
type Net struct {
	Name   string
	Index  int
	Driver PortRef
	Users  []PortRef

	// Wires maps every wire used by the net to the pip driving it. The
	// source wire maps to arch.NoPip.
	Wires map[arch.WireID]arch.PipID
}

// BindWire records that wire w is driven through pip p.
func (n *Net) BindWire(w arch.WireID, p arch.PipID) {
	if n.Wires == nil {
		n.Wires = make(map[arch.WireID]arch.PipID)
	}
	n.Wires[w] = p
}

// UnbindAll drops the routing of the net.
func (n *Net) UnbindAll() {
	n.Wires = nil
}

// Routed reports whether any routing is bound.
func (n *Net) Routed() bool {
	return len(n.Wires) > 0
}

// PathToSource walks the bound routing from sink back to the source wire and
// returns the pips crossed, sink side first.
func (n *Net) PathToSource(dev arch.Device, sink arch.WireID) ([]arch.PipID, error) {
	var pips []arch.PipID
	cursor := sink
	for steps := 0; steps <= len(n.Wires); steps++ {
		pip, ok := n.Wires[cursor]
		if !ok {
			return nil, fmt.Errorf("netlist: net %s: wire %s is not bound", n.Name, dev.WireName(cursor))
		}
		if pip == arch.NoPip {
			return pips, nil
		}
		pips = append(pips, pip)
		cursor = dev.PipSrcWire(pip)
	}
	return nil, fmt.Errorf("netlist: net %s: routing loop above wire %s", n.Name, dev.WireName(sink))
}

// SortedWires returns the bound wires in increasing ID order.
func (n *Net) SortedWires() []arch.WireID {
	wires := make([]arch.WireID, 0, len(n.Wires))
	for w := range n.Wires {
		wires = append(wires, w)
	}
	sort.Slice(wires, func(i, j int) bool { return wires[i] < wires[j] })
	return wires
}

// Design is a placed netlist.
type Design struct {
	Name  string
	Cells []*Cell
	Nets  []*Net

	cellIdx map[string]*Cell
	netIdx  map[string]*Net
}

// NewDesign creates an empty design.
func NewDesign(name string) *Design {
	return &Design{
		Name:    name,
		cellIdx: make(map[string]*Cell),
		netIdx:  make(map[string]*Net),
	}
}

// AddCell adds a cell placed on the named bel.
func (d *Design) AddCell(name, typ, bel string) (*Cell, error) {
	if _, dup := d.cellIdx[name]; dup {
		return nil, fmt.Errorf("netlist: duplicate cell %q", name)
	}
	c := &Cell{Name: name, Type: typ, BelName: bel, Bel: arch.NoBel}
	d.Cells = append(d.Cells, c)
	d.cellIdx[name] = c
	return c, nil
}

// Cell looks up a cell by name.
func (d *Design) Cell(name string) *Cell {
	return d.cellIdx[name]
}

// AddNet adds a net. The net index is its position in Nets.
func (d *Design) AddNet(name string, driver PortRef, users ...PortRef) (*Net, error) {
	if _, dup := d.netIdx[name]; dup {
		return nil, fmt.Errorf("netlist: duplicate net %q", name)
	}
	if driver.Cell == nil {
		return nil, fmt.Errorf("netlist: net %q has no driver", name)
	}
	for _, u := range users {
		if u.Cell == nil {
			return nil, fmt.Errorf("netlist: net %q has a user without a cell", name)
		}
	}
	n := &Net{Name: name, Index: len(d.Nets), Driver: driver, Users: users}
	d.Nets = append(d.Nets, n)
	d.netIdx[name] = n
	return n, nil
}

// Net looks up a net by name.
func (d *Design) Net(name string) *Net {
	return d.netIdx[name]
}

// Place resolves every cell's bel name against dev.
func (d *Design) Place(dev arch.Device) error {
	taken := make(map[arch.BelID]string)
	for _, c := range d.Cells {
		bel := dev.BelByName(c.BelName)
		if bel == arch.NoBel {
			return fmt.Errorf("netlist: cell %s placed on unknown bel %q", c.Name, c.BelName)
		}
		if other, ok := taken[bel]; ok {
			return fmt.Errorf("netlist: cells %s and %s share bel %s", other, c.Name, c.BelName)
		}
		taken[bel] = c.Name
		c.Bel = bel
	}
	return nil
}

// Clone creates a deep copy of the design, routing included.
func (d *Design) Clone() *Design {
	clone := NewDesign(d.Name)
	for _, c := range d.Cells {
		cc := &Cell{Name: c.Name, Type: c.Type, BelName: c.BelName, Bel: c.Bel}
		if c.PinMap != nil {
			cc.PinMap = make(map[string][]string, len(c.PinMap))
			for k, v := range c.PinMap {
				cc.PinMap[k] = append([]string(nil), v...)
			}
		}
		clone.Cells = append(clone.Cells, cc)
		clone.cellIdx[cc.Name] = cc
	}
	remap := func(p PortRef) PortRef {
		return PortRef{Cell: clone.cellIdx[p.Cell.Name], Port: p.Port, Criticality: p.Criticality}
	}
	for _, n := range d.Nets {
		cn := &Net{Name: n.Name, Index: n.Index, Driver: remap(n.Driver)}
		for _, u := range n.Users {
			cn.Users = append(cn.Users, remap(u))
		}
		for w, p := range n.Wires {
			cn.BindWire(w, p)
		}
		clone.Nets = append(clone.Nets, cn)
		clone.netIdx[cn.Name] = cn
	}
	return clone
}
