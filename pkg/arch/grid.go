package arch

import (
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/OpenTraceLab/feline/pkg/gcell"
)

type wireData struct {
	name     string
	box      gcell.GBox
	delay    float64
	downhill []PipID
	uphill   []PipID
}

type pipData struct {
	src, dst WireID
	delay    float64
}

type belData struct {
	name string
	loc  Loc
	pins map[string]WireID
}

// GridDevice is an in-memory Device built with a Builder. It backs the CLI
// and the tests; real chip databases are out of scope.
type GridDevice struct {
	name          string
	width, height int

	wires   []wireData
	wireIdx map[string]WireID
	pips    []pipData
	bels    []belData
	belIdx  map[string]BelID

	holes    map[gcell.GCell]bool
	channels []RoutingResource
	skip     map[string]bool

	wireIDs []WireID
	pipIDs  []PipID
	belIDs  []BelID
}

var _ Device = (*GridDevice)(nil)

func (d *GridDevice) Name() string { return d.name }
func (d *GridDevice) Width() int   { return d.width }
func (d *GridDevice) Height() int  { return d.height }

func (d *GridDevice) Wires() []WireID { return d.wireIDs }

func (d *GridDevice) validWire(w WireID) bool {
	return w >= 0 && int(w) < len(d.wires)
}

func (d *GridDevice) validPip(p PipID) bool {
	return p >= 0 && int(p) < len(d.pips)
}

func (d *GridDevice) validBel(b BelID) bool {
	return b >= 0 && int(b) < len(d.bels)
}

func (d *GridDevice) WireName(w WireID) string {
	if !d.validWire(w) {
		return ""
	}
	return d.wires[w].name
}

func (d *GridDevice) WireByName(name string) WireID {
	if w, ok := d.wireIdx[name]; ok {
		return w
	}
	return NoWire
}

func (d *GridDevice) WireBox(w WireID) gcell.GBox {
	if !d.validWire(w) {
		return gcell.EmptyBox()
	}
	return d.wires[w].box
}

func (d *GridDevice) WireDelay(w WireID) float64 {
	if !d.validWire(w) {
		return 0
	}
	return d.wires[w].delay
}

func (d *GridDevice) PipsDownhill(w WireID) []PipID {
	if !d.validWire(w) {
		return nil
	}
	return d.wires[w].downhill
}

func (d *GridDevice) PipsUphill(w WireID) []PipID {
	if !d.validWire(w) {
		return nil
	}
	return d.wires[w].uphill
}

func (d *GridDevice) Pips() []PipID { return d.pipIDs }

func (d *GridDevice) PipSrcWire(p PipID) WireID {
	if !d.validPip(p) {
		return NoWire
	}
	return d.pips[p].src
}

func (d *GridDevice) PipDstWire(p PipID) WireID {
	if !d.validPip(p) {
		return NoWire
	}
	return d.pips[p].dst
}

func (d *GridDevice) PipDelay(p PipID) float64 {
	if !d.validPip(p) {
		return 0
	}
	return d.pips[p].delay
}

func (d *GridDevice) PipName(p PipID) string {
	if !d.validPip(p) {
		return ""
	}
	return d.wires[d.pips[p].src].name + "->" + d.wires[d.pips[p].dst].name
}

func (d *GridDevice) Bels() []BelID { return d.belIDs }

func (d *GridDevice) BelByName(name string) BelID {
	if b, ok := d.belIdx[name]; ok {
		return b
	}
	return NoBel
}

func (d *GridDevice) BelName(b BelID) string {
	if !d.validBel(b) {
		return ""
	}
	return d.bels[b].name
}

func (d *GridDevice) BelLocation(b BelID) Loc {
	if !d.validBel(b) {
		return Loc{X: -1, Y: -1}
	}
	return d.bels[b].loc
}

func (d *GridDevice) BelPinWire(b BelID, pin string) WireID {
	if !d.validBel(b) {
		return NoWire
	}
	if w, ok := d.bels[b].pins[pin]; ok {
		return w
	}
	return NoWire
}

// BelPins returns the pin names of a bel in sorted order.
func (d *GridDevice) BelPins(b BelID) []string {
	if !d.validBel(b) {
		return nil
	}
	return sortedKeys(d.bels[b].pins)
}

// IsHole reports whether tile (x, y) was marked as carrying no routing.
func (d *GridDevice) IsHole(x, y int) bool {
	return d.holes[gcell.New(x, y)]
}

// Channels returns the channel resources declared for the device.
func (d *GridDevice) Channels() []RoutingResource {
	return d.channels
}

// API returns the capability interface of the device.
func (d *GridDevice) API() *GridAPI {
	return &GridAPI{BaseAPI: NewBaseAPI(d, false), dev: d}
}

// GridAPI specialises BaseAPI with the holes, channels and skipped ports of a
// GridDevice.
type GridAPI struct {
	*BaseAPI
	dev *GridDevice
}

var _ API = (*GridAPI)(nil)

func (a *GridAPI) IsInterconnect(x, y int) bool {
	return a.BaseAPI.IsInterconnect(x, y) && !a.dev.IsHole(x, y)
}

func (a *GridAPI) SteinerSkipPort(_ string, port PortInfo) bool {
	return a.dev.skip[port.CellType+"/"+port.Port] || a.dev.skip["*/"+port.Port]
}

func (a *GridAPI) Channels() []RoutingResource {
	return a.dev.channels
}

// Builder assembles a GridDevice. Errors are collected and reported by Build.
type Builder struct {
	dev  *GridDevice
	errs []error
}

// NewBuilder starts a device of the given grid size.
func NewBuilder(name string, width, height int) *Builder {
	b := &Builder{dev: &GridDevice{
		name:    name,
		width:   width,
		height:  height,
		wireIdx: make(map[string]WireID),
		belIdx:  make(map[string]BelID),
		holes:   make(map[gcell.GCell]bool),
		skip:    make(map[string]bool),
	}}
	if width <= 0 || height <= 0 {
		b.errorf("arch: invalid grid size %dx%d", width, height)
	}
	return b
}

func (b *Builder) errorf(format string, args ...any) {
	b.errs = append(b.errs, fmt.Errorf(format, args...))
}

func (b *Builder) inGrid(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.dev.width && y < b.dev.height
}

// AddWire adds a wire spanning the tiles from (x0, y0) to (x1, y1).
func (b *Builder) AddWire(name string, x0, y0, x1, y1 int, delay float64) WireID {
	if _, dup := b.dev.wireIdx[name]; dup {
		b.errorf("arch: duplicate wire %q", name)
		return NoWire
	}
	if !b.inGrid(x0, y0) || !b.inGrid(x1, y1) {
		b.errorf("arch: wire %q outside the %dx%d grid", name, b.dev.width, b.dev.height)
		return NoWire
	}
	if delay < 0 {
		b.errorf("arch: wire %q has negative delay %g", name, delay)
		return NoWire
	}
	box := gcell.BoxAt(gcell.New(x0, y0))
	box.Extend(gcell.New(x1, y1))
	id := WireID(len(b.dev.wires))
	b.dev.wires = append(b.dev.wires, wireData{name: name, box: box, delay: delay})
	b.dev.wireIdx[name] = id
	return id
}

// Wire looks up a wire by name while building.
func (b *Builder) Wire(name string) WireID {
	return b.dev.WireByName(name)
}

// AddPip adds a directed pip from src to dst.
func (b *Builder) AddPip(src, dst WireID, delay float64) PipID {
	if !b.dev.validWire(src) || !b.dev.validWire(dst) {
		b.errorf("arch: pip between unknown wires %d and %d", src, dst)
		return NoPip
	}
	if src == dst {
		b.errorf("arch: pip from wire %q to itself", b.dev.wires[src].name)
		return NoPip
	}
	if delay < 0 {
		b.errorf("arch: pip %q has negative delay %g", b.dev.wires[src].name, delay)
		return NoPip
	}
	id := PipID(len(b.dev.pips))
	b.dev.pips = append(b.dev.pips, pipData{src: src, dst: dst, delay: delay})
	b.dev.wires[src].downhill = append(b.dev.wires[src].downhill, id)
	b.dev.wires[dst].uphill = append(b.dev.wires[dst].uphill, id)
	return id
}

// AddPipByName adds a pip between two named wires.
func (b *Builder) AddPipByName(src, dst string, delay float64) PipID {
	s, d := b.dev.WireByName(src), b.dev.WireByName(dst)
	if s == NoWire {
		b.errorf("arch: pip source wire %q not found", src)
		return NoPip
	}
	if d == NoWire {
		b.errorf("arch: pip destination wire %q not found", dst)
		return NoPip
	}
	return b.AddPip(s, d, delay)
}

// AddBel adds a placement site.
func (b *Builder) AddBel(name string, x, y, z int) BelID {
	if _, dup := b.dev.belIdx[name]; dup {
		b.errorf("arch: duplicate bel %q", name)
		return NoBel
	}
	if !b.inGrid(x, y) {
		b.errorf("arch: bel %q outside the grid", name)
		return NoBel
	}
	id := BelID(len(b.dev.bels))
	b.dev.bels = append(b.dev.bels, belData{name: name, loc: Loc{X: x, Y: y, Z: z}, pins: make(map[string]WireID)})
	b.dev.belIdx[name] = id
	return id
}

// AddBelPin ties a bel pin to a wire.
func (b *Builder) AddBelPin(bel BelID, pin string, wire WireID) {
	if !b.dev.validBel(bel) {
		b.errorf("arch: pin %q on unknown bel %d", pin, bel)
		return
	}
	if !b.dev.validWire(wire) {
		b.errorf("arch: pin %s.%s tied to unknown wire %d", b.dev.bels[bel].name, pin, wire)
		return
	}
	if _, dup := b.dev.bels[bel].pins[pin]; dup {
		b.errorf("arch: duplicate pin %s.%s", b.dev.bels[bel].name, pin)
		return
	}
	b.dev.bels[bel].pins[pin] = wire
}

// AddChannel declares a channel resource for congestion estimation.
func (b *Builder) AddChannel(rr RoutingResource) {
	if rr.Width <= 0 || len(rr.Hops) == 0 {
		b.errorf("arch: channel needs a positive width and at least one hop")
		return
	}
	b.dev.channels = append(b.dev.channels, rr)
}

// SetHole marks tile (x, y) as carrying no general routing.
func (b *Builder) SetHole(x, y int) {
	if !b.inGrid(x, y) {
		b.errorf("arch: hole (%d,%d) outside the grid", x, y)
		return
	}
	b.dev.holes[gcell.New(x, y)] = true
}

// AddSkipPort excludes a cell type port from Steiner guidance. A cellType of
// "*" matches any cell.
func (b *Builder) AddSkipPort(cellType, port string) {
	b.dev.skip[cellType+"/"+port] = true
}

// Build validates and returns the device.
func (b *Builder) Build() (*GridDevice, error) {
	if err := utilerrors.NewAggregate(b.errs); err != nil {
		return nil, err
	}
	d := b.dev
	d.wireIDs = make([]WireID, len(d.wires))
	for i := range d.wires {
		d.wireIDs[i] = WireID(i)
	}
	d.pipIDs = make([]PipID, len(d.pips))
	for i := range d.pips {
		d.pipIDs[i] = PipID(i)
	}
	d.belIDs = make([]BelID, len(d.bels))
	for i := range d.bels {
		d.belIDs[i] = BelID(i)
	}
	return d, nil
}
