package arch

import (
	"fmt"
	"sort"

	"github.com/OpenTraceLab/feline/pkg/gcell"
)

// GridSpec parameterises the generic island-style fabric produced by
// GenerateGrid.
type GridSpec struct {
	Tracks      int     // tracks per direction in every tile
	TrackDelay  float64 // delay of one track segment
	SwitchDelay float64 // delay of a switch box or pin pip
	BelsPerTile int
	Inputs      int // input pins per bel
	Outputs     int // output pins per bel
	PinDelay    float64
}

// DefaultGridSpec returns a small fabric suitable for tests and demos.
func DefaultGridSpec() GridSpec {
	return GridSpec{
		Tracks:      4,
		TrackDelay:  1.0,
		SwitchDelay: 0.2,
		BelsPerTile: 2,
		Inputs:      4,
		Outputs:     1,
		PinDelay:    0.1,
	}
}

// TrackName returns the name of a generated track segment.
func TrackName(x, y int, dir RRDir, track int) string {
	if dir == Vertical {
		return fmt.Sprintf("X%dY%d/V%d", x, y, track)
	}
	return fmt.Sprintf("X%dY%d/H%d", x, y, track)
}

// BelSiteName returns the name of a generated bel.
func BelSiteName(x, y, z int) string {
	return fmt.Sprintf("X%dY%d/SLICE%d", x, y, z)
}

// GenerateGrid populates b with tracks, switch boxes and logic bels.
//
// Every tile owns a horizontal track segment to its east neighbour and a
// vertical one to its north neighbour for each track index. Segment ends
// meeting at a tile are joined by a disjoint switch box: each end connects to
// every other end of the same track index. Bel outputs drive every segment end
// of their tile and every segment end drives every bel input. Holes get
// neither segments nor bels. Channel resources matching the tracks are
// declared when none were added before.
func GenerateGrid(b *Builder, spec GridSpec) {
	if spec.Tracks <= 0 {
		b.errorf("arch: grid needs at least one track, got %d", spec.Tracks)
		return
	}
	w, h := b.dev.width, b.dev.height
	usable := func(x, y int) bool {
		return b.inGrid(x, y) && !b.dev.holes[gcell.New(x, y)]
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !usable(x, y) {
				continue
			}
			for t := 0; t < spec.Tracks; t++ {
				if usable(x+1, y) {
					b.AddWire(TrackName(x, y, Horizontal, t), x, y, x+1, y, spec.TrackDelay)
				}
				if usable(x, y+1) {
					b.AddWire(TrackName(x, y, Vertical, t), x, y, x, y+1, spec.TrackDelay)
				}
			}
		}
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !usable(x, y) {
				continue
			}
			var ends [][]WireID
			for t := 0; t < spec.Tracks; t++ {
				var te []WireID
				for _, name := range []string{
					TrackName(x, y, Horizontal, t),
					TrackName(x-1, y, Horizontal, t),
					TrackName(x, y, Vertical, t),
					TrackName(x, y-1, Vertical, t),
				} {
					if wire := b.dev.WireByName(name); wire != NoWire {
						te = append(te, wire)
					}
				}
				for _, a := range te {
					for _, c := range te {
						if a != c {
							b.AddPip(a, c, spec.SwitchDelay)
						}
					}
				}
				ends = append(ends, te)
			}

			for z := 0; z < spec.BelsPerTile; z++ {
				bel := b.AddBel(BelSiteName(x, y, z), x, y, z)
				if bel == NoBel {
					continue
				}
				for i := 0; i < spec.Inputs; i++ {
					pin := fmt.Sprintf("I%d", i)
					wire := b.AddWire(BelSiteName(x, y, z)+"."+pin, x, y, x, y, spec.PinDelay)
					b.AddBelPin(bel, pin, wire)
					for _, te := range ends {
						for _, e := range te {
							b.AddPip(e, wire, spec.SwitchDelay)
						}
					}
				}
				for i := 0; i < spec.Outputs; i++ {
					pin := fmt.Sprintf("O%d", i)
					wire := b.AddWire(BelSiteName(x, y, z)+"."+pin, x, y, x, y, spec.PinDelay)
					b.AddBelPin(bel, pin, wire)
					for _, te := range ends {
						for _, e := range te {
							b.AddPip(wire, e, spec.SwitchDelay)
						}
					}
				}
			}
		}
	}

	if len(b.dev.channels) == 0 {
		b.dev.channels = append(b.dev.channels,
			RoutingResource{Width: spec.Tracks, Hops: []int{1}, Dir: Horizontal},
			RoutingResource{Width: spec.Tracks, Hops: []int{1}, Dir: Vertical},
		)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
