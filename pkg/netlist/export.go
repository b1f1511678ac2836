package netlist

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/OpenTraceLab/feline/pkg/arch"
)

// PipRoute is one pip of an exported route.
type PipRoute struct {
	Src string `json:"src"`
	Dst string `json:"dst"`
}

// NetRoute is the exported routing of one net.
type NetRoute struct {
	Name   string     `json:"name"`
	Driver string     `json:"driver"`
	Users  []string   `json:"users"`
	Source string     `json:"source_wire,omitempty"`
	Wires  int        `json:"wire_count"`
	Pips   []PipRoute `json:"pips"`
}

// Routes collects the routing of every net in wire order.
func (d *Design) Routes(dev arch.Device) []NetRoute {
	routes := make([]NetRoute, 0, len(d.Nets))
	for _, n := range d.Nets {
		r := NetRoute{Name: n.Name, Driver: n.Driver.String(), Wires: len(n.Wires)}
		for _, u := range n.Users {
			r.Users = append(r.Users, u.String())
		}
		for _, w := range n.SortedWires() {
			pip := n.Wires[w]
			if pip == arch.NoPip {
				r.Source = dev.WireName(w)
				continue
			}
			r.Pips = append(r.Pips, PipRoute{
				Src: dev.WireName(dev.PipSrcWire(pip)),
				Dst: dev.WireName(w),
			})
		}
		routes = append(routes, r)
	}
	return routes
}

// ExportJSON exports the routing to JSON format.
func (d *Design) ExportJSON(dev arch.Device) ([]byte, error) {
	if dev == nil {
		return nil, fmt.Errorf("netlist: no device to resolve wire names")
	}
	routes := d.Routes(dev)
	routed := 0
	for _, n := range d.Nets {
		if n.Routed() {
			routed++
		}
	}

	output := struct {
		Version     string     `json:"version"`
		Design      string     `json:"design"`
		Device      string     `json:"device"`
		NetCount    int        `json:"net_count"`
		RoutedNets  int        `json:"routed_nets"`
		Nets        []NetRoute `json:"nets"`
		GeneratedBy string     `json:"generated_by"`
	}{
		Version:     "1.0",
		Design:      d.Name,
		Device:      dev.Name(),
		NetCount:    len(d.Nets),
		RoutedNets:  routed,
		Nets:        routes,
		GeneratedBy: "feline router",
	}

	return json.MarshalIndent(output, "", "  ")
}

// ExportRoutes exports the routing as s-expressions, one (net ...) form per
// net listing its source wire and pips.
func (d *Design) ExportRoutes(dev arch.Device) (string, error) {
	if dev == nil {
		return "", fmt.Errorf("netlist: no device to resolve wire names")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "(routes %s (device %s)\n", d.Name, dev.Name())
	for _, r := range d.Routes(dev) {
		fmt.Fprintf(&sb, "  (net (name %s)", r.Name)
		if r.Source != "" {
			fmt.Fprintf(&sb, " (source %s)", r.Source)
		}
		sb.WriteString("\n")
		for _, p := range r.Pips {
			fmt.Fprintf(&sb, "    (pip %s %s)\n", p.Src, p.Dst)
		}
		sb.WriteString("  )\n")
	}
	sb.WriteString(")\n")
	return sb.String(), nil
}
