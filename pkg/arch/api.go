package arch

import (
	"sort"

	"github.com/OpenTraceLab/feline/pkg/gcell"
)

// RRDir is the direction of a routing resource.
type RRDir uint8

const (
	Horizontal RRDir = iota
	Vertical
)

func (d RRDir) String() string {
	if d == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// RoutingResource is one class of channel wiring in the abstracted channel
// model: Width parallel tracks per tile, each spanning the given hops.
type RoutingResource struct {
	Width int
	Hops  []int
	Dir   RRDir
}

// Capacity returns the number of crossings the resource contributes to one
// tile boundary in its direction.
func (r RoutingResource) Capacity() int {
	total := 0
	for _, h := range r.Hops {
		if h < 0 {
			h = -h
		}
		total += h
	}
	return r.Width * total
}

// PortInfo identifies a net endpoint to the capability interface.
type PortInfo struct {
	Cell     string
	CellType string
	Port     string
	Bel      BelID
}

// API is the capability contract the router requires from an architecture.
type API interface {
	// IsInterconnect reports whether tile (x, y) can carry general routing.
	IsInterconnect(x, y int) bool
	// PinInterconLoc returns the interconnect cell reached from a bel pin.
	PinInterconLoc(bel BelID, pin string) gcell.GCell
	// FlatWireIndex maps a wire to a dense index below FlatWireSize, or -1.
	FlatWireIndex(w WireID) int32
	FlatWireSize() int32
	ApproxWireLoc(w WireID) gcell.GCell
	// SteinerSkipPort reports whether a port is excluded from the Steiner
	// tree and routed unguided (dedicated or global wiring).
	SteinerSkipPort(net string, port PortInfo) bool
	Channels() []RoutingResource
}

// BaseAPI implements API with neutral defaults on top of any Device. Every
// tile is interconnect, pins sit at their bel's tile, wires are located at the
// middle of their bounding box and no port is skipped.
type BaseAPI struct {
	dev   Device
	flat  map[WireID]int32
	wires []WireID
	size  int32
}

// NewBaseAPI returns a BaseAPI for dev. With initFlatWires the flat index is a
// dictionary built from dev.Wires(); otherwise wire IDs are assumed dense from
// zero and used as their own index.
func NewBaseAPI(dev Device, initFlatWires bool) *BaseAPI {
	b := &BaseAPI{dev: dev}
	wires := dev.Wires()
	if initFlatWires {
		b.flat = make(map[WireID]int32, len(wires))
		b.wires = make([]WireID, len(wires))
		sorted := append([]WireID(nil), wires...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		for i, w := range sorted {
			b.flat[w] = int32(i)
			b.wires[i] = w
		}
		b.size = int32(len(sorted))
		return b
	}
	for _, w := range wires {
		if int32(w)+1 > b.size {
			b.size = int32(w) + 1
		}
	}
	return b
}

// Device returns the underlying device.
func (b *BaseAPI) Device() Device {
	return b.dev
}

func (b *BaseAPI) IsInterconnect(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.dev.Width() && y < b.dev.Height()
}

func (b *BaseAPI) PinInterconLoc(bel BelID, _ string) gcell.GCell {
	if bel == NoBel {
		return gcell.Invalid
	}
	return b.dev.BelLocation(bel).Cell()
}

func (b *BaseAPI) FlatWireIndex(w WireID) int32 {
	if b.flat != nil {
		if idx, ok := b.flat[w]; ok {
			return idx
		}
		return -1
	}
	if w < 0 || int32(w) >= b.size {
		return -1
	}
	return int32(w)
}

func (b *BaseAPI) FlatWireSize() int32 {
	return b.size
}

// WireAt is the inverse of FlatWireIndex.
func (b *BaseAPI) WireAt(idx int32) WireID {
	if idx < 0 || idx >= b.size {
		return NoWire
	}
	if b.wires != nil {
		return b.wires[idx]
	}
	return WireID(idx)
}

func (b *BaseAPI) ApproxWireLoc(w WireID) gcell.GCell {
	box := b.dev.WireBox(w)
	return box.Center()
}

func (b *BaseAPI) SteinerSkipPort(string, PortInfo) bool {
	return false
}

func (b *BaseAPI) Channels() []RoutingResource {
	return nil
}
