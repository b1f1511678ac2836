package devicedb

import (
	"fmt"

	"github.com/OpenTraceLab/feline/pkg/arch"
)

const (
	defaultWireDelay = 1.0
	defaultPipDelay  = 0.1
)

// Compile turns a parsed description into a device.
//
// The grid statement must come first. Generated fabric (tracks, bels) is laid
// down before explicit wires, pips and bels, so explicit pips may connect to
// generated wires by name.
func Compile(f *File) (*arch.GridDevice, error) {
	if f == nil || f.Device == nil {
		return nil, fmt.Errorf("devicedb: empty description")
	}
	d := f.Device
	if len(d.Stmts) == 0 || d.Stmts[0].Grid == nil {
		return nil, fmt.Errorf("devicedb: device %q must start with a grid statement", d.Name)
	}
	grid := d.Stmts[0].Grid
	b := arch.NewBuilder(d.Name, grid.Width, grid.Height)

	spec := arch.DefaultGridSpec()
	spec.Tracks = 0
	spec.BelsPerTile = 0
	for _, s := range d.Stmts[1:] {
		switch {
		case s.Grid != nil:
			return nil, fmt.Errorf("devicedb: device %q has more than one grid statement", d.Name)
		case s.Tracks != nil:
			if s.Tracks.Count <= 0 {
				return nil, fmt.Errorf("devicedb: tracks must be positive, got %d", s.Tracks.Count)
			}
			spec.Tracks = s.Tracks.Count
			if s.Tracks.Delay != nil {
				spec.TrackDelay = s.Tracks.Delay.Value
			}
		case s.Bels != nil:
			spec.BelsPerTile = s.Bels.Count
			spec.Inputs = s.Bels.Inputs
			spec.Outputs = s.Bels.Outputs
			if spec.Outputs == 0 {
				spec.Outputs = 1
			}
		case s.Switch != nil:
			spec.SwitchDelay = s.Switch.Delay
		case s.Channel != nil:
			dir := arch.Horizontal
			if s.Channel.Dir == "vertical" {
				dir = arch.Vertical
			}
			b.AddChannel(arch.RoutingResource{Width: s.Channel.Width, Hops: s.Channel.Hops, Dir: dir})
		case s.Hole != nil:
			b.SetHole(s.Hole.X, s.Hole.Y)
		case s.Skip != nil:
			b.AddSkipPort(s.Skip.CellType, s.Skip.Port)
		}
	}
	if spec.BelsPerTile > 0 && spec.Tracks == 0 {
		return nil, fmt.Errorf("devicedb: generated bels need a tracks statement")
	}
	if spec.Tracks > 0 {
		arch.GenerateGrid(b, spec)
	}

	for _, s := range d.Stmts {
		if s.Wire == nil {
			continue
		}
		to := s.Wire.From
		if s.Wire.To != nil {
			to = s.Wire.To
		}
		b.AddWire(s.Wire.Name, s.Wire.From.X, s.Wire.From.Y, to.X, to.Y, delayOr(s.Wire.Delay, defaultWireDelay))
	}
	for _, s := range d.Stmts {
		if s.Pip == nil {
			continue
		}
		b.AddPipByName(s.Pip.Src, s.Pip.Dst, delayOr(s.Pip.Delay, defaultPipDelay))
	}
	slots := make(map[arch.Loc]int)
	for _, s := range d.Stmts {
		if s.Bel == nil {
			continue
		}
		tile := arch.Loc{X: s.Bel.At.X, Y: s.Bel.At.Y}
		bel := b.AddBel(s.Bel.Name, tile.X, tile.Y, spec.BelsPerTile+slots[tile])
		slots[tile]++
		for _, pin := range s.Bel.Pins {
			wire := b.Wire(pin.Wire)
			if wire == arch.NoWire {
				return nil, fmt.Errorf("devicedb: pin %s.%s refers to unknown wire %q", s.Bel.Name, pin.Name, pin.Wire)
			}
			b.AddBelPin(bel, pin.Name, wire)
		}
	}

	dev, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("devicedb: device %q: %w", d.Name, err)
	}
	return dev, nil
}

func delayOr(d *Delay, def float64) float64 {
	if d == nil {
		return def
	}
	return d.Value
}
