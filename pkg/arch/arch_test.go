package arch

import (
	"strings"
	"testing"

	"github.com/OpenTraceLab/feline/pkg/gcell"
)

func TestBuilderCollectsErrors(t *testing.T) {
	b := NewBuilder("bad", 2, 2)
	w := b.AddWire("A", 0, 0, 1, 0, 1)
	b.AddWire("A", 0, 0, 0, 0, 1)
	b.AddWire("OUT", 5, 5, 5, 5, 1)
	b.AddPip(w, w, 0)
	b.AddPipByName("A", "MISSING", 0)

	_, err := b.Build()
	if err == nil {
		t.Fatalf("expected build error")
	}
	for _, want := range []string{"duplicate wire", "outside", "to itself", "MISSING"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestBuilderGraph(t *testing.T) {
	b := NewBuilder("chain", 3, 1)
	w0 := b.AddWire("W0", 0, 0, 0, 0, 1)
	w1 := b.AddWire("W1", 0, 0, 2, 0, 2)
	p := b.AddPip(w0, w1, 0.5)
	bel := b.AddBel("B", 2, 0, 0)
	b.AddBelPin(bel, "I", w1)
	dev, err := b.Build()
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	if got := dev.PipsDownhill(w0); len(got) != 1 || got[0] != p {
		t.Fatalf("PipsDownhill(W0) = %v", got)
	}
	if got := dev.PipsUphill(w1); len(got) != 1 || got[0] != p {
		t.Fatalf("PipsUphill(W1) = %v", got)
	}
	if dev.PipSrcWire(p) != w0 || dev.PipDstWire(p) != w1 || dev.PipDelay(p) != 0.5 {
		t.Fatalf("pip endpoints wrong")
	}
	if dev.PipName(p) != "W0->W1" {
		t.Errorf("PipName = %q", dev.PipName(p))
	}
	if dev.BelPinWire(bel, "I") != w1 || dev.BelPinWire(bel, "X") != NoWire {
		t.Errorf("BelPinWire wrong")
	}
	if dev.BelByName("B") != bel || dev.BelLocation(bel) != (Loc{X: 2}) {
		t.Errorf("bel lookup wrong")
	}
	if dev.WireBox(w1) != (gcell.GBox{X0: 0, Y0: 0, X1: 2, Y1: 0}) {
		t.Errorf("WireBox(W1) = %+v", dev.WireBox(w1))
	}
	if dev.WireDelay(NoWire) != 0 || dev.PipsDownhill(42) != nil {
		t.Errorf("invalid IDs should yield zero values")
	}
}

func TestGenerateGridCounts(t *testing.T) {
	b := NewBuilder("tiny", 2, 1)
	GenerateGrid(b, GridSpec{Tracks: 1, TrackDelay: 1, SwitchDelay: 0.1, BelsPerTile: 1, Inputs: 1, Outputs: 1})
	dev, err := b.Build()
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if n := len(dev.Wires()); n != 5 {
		t.Errorf("wires = %d, want 5", n)
	}
	if n := len(dev.Pips()); n != 4 {
		t.Errorf("pips = %d, want 4", n)
	}
	if n := len(dev.Bels()); n != 2 {
		t.Errorf("bels = %d, want 2", n)
	}
	if len(dev.Channels()) != 2 {
		t.Errorf("default channels not declared")
	}
}

func TestGenerateGridSwitchBox(t *testing.T) {
	b := NewBuilder("sb", 3, 3)
	GenerateGrid(b, GridSpec{Tracks: 2, TrackDelay: 1, SwitchDelay: 0.1})
	dev, err := b.Build()
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	// centre tile: four ends per track, each joined to the three others
	h := dev.WireByName(TrackName(1, 1, Horizontal, 0))
	west := dev.WireByName(TrackName(0, 1, Horizontal, 0))
	if h == NoWire || west == NoWire {
		t.Fatalf("tracks missing")
	}
	found := false
	for _, p := range dev.PipsDownhill(west) {
		if dev.PipDstWire(p) == h {
			found = true
		}
		if dst := dev.PipDstWire(p); strings.HasSuffix(dev.WireName(dst), "1") {
			t.Errorf("switch box crosses track index: %s", dev.PipName(p))
		}
	}
	if !found {
		t.Errorf("no switch pip from %s to %s", dev.WireName(west), dev.WireName(h))
	}
}

func TestGridAPI(t *testing.T) {
	b := NewBuilder("holes", 4, 4)
	b.SetHole(1, 1)
	b.AddSkipPort("GBUF", "I")
	GenerateGrid(b, DefaultGridSpec())
	dev, err := b.Build()
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	api := dev.API()

	if api.IsInterconnect(1, 1) || !api.IsInterconnect(0, 1) || api.IsInterconnect(4, 0) {
		t.Errorf("IsInterconnect wrong")
	}
	if dev.WireByName(TrackName(0, 1, Horizontal, 0)) != NoWire {
		t.Errorf("track into a hole should not exist")
	}
	if dev.BelByName(BelSiteName(1, 1, 0)) != NoBel {
		t.Errorf("bel inside a hole should not exist")
	}
	if !api.SteinerSkipPort("n", PortInfo{CellType: "GBUF", Port: "I"}) {
		t.Errorf("GBUF.I should be skipped")
	}
	if api.SteinerSkipPort("n", PortInfo{CellType: "LUT", Port: "I"}) {
		t.Errorf("LUT.I should not be skipped")
	}

	if api.FlatWireSize() != int32(len(dev.Wires())) {
		t.Fatalf("FlatWireSize = %d, want %d", api.FlatWireSize(), len(dev.Wires()))
	}
	for _, w := range dev.Wires() {
		idx := api.FlatWireIndex(w)
		if idx < 0 || idx >= api.FlatWireSize() || api.WireAt(idx) != w {
			t.Fatalf("flat index of %d = %d", w, idx)
		}
	}
	if api.FlatWireIndex(NoWire) != -1 {
		t.Errorf("FlatWireIndex(NoWire) should be -1")
	}

	bel := dev.BelByName(BelSiteName(2, 3, 1))
	if got := api.PinInterconLoc(bel, "I0"); got != gcell.New(2, 3) {
		t.Errorf("PinInterconLoc = %v", got)
	}
	track := dev.WireByName(TrackName(2, 0, Vertical, 0))
	if got := api.ApproxWireLoc(track); got != gcell.New(2, 0) {
		t.Errorf("ApproxWireLoc = %v", got)
	}
}

func TestBaseAPIDictionary(t *testing.T) {
	b := NewBuilder("dict", 1, 1)
	b.AddWire("A", 0, 0, 0, 0, 1)
	b.AddWire("B", 0, 0, 0, 0, 1)
	dev, err := b.Build()
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	api := NewBaseAPI(dev, true)
	if api.FlatWireSize() != 2 || api.FlatWireIndex(1) != 1 || api.WireAt(0) != 0 {
		t.Errorf("dictionary flat index wrong")
	}
	if api.WireAt(2) != NoWire {
		t.Errorf("WireAt out of range should be NoWire")
	}
	if len(api.Channels()) != 0 || api.SteinerSkipPort("", PortInfo{}) {
		t.Errorf("BaseAPI defaults wrong")
	}
	if (RoutingResource{Width: 3, Hops: []int{-1, 2}}).Capacity() != 9 {
		t.Errorf("Capacity wrong")
	}
}
