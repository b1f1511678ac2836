package route

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/OpenTraceLab/feline/pkg/arch"
	"github.com/OpenTraceLab/feline/pkg/gcell"
	"github.com/OpenTraceLab/feline/pkg/netlist"
)

// chainFixture is a 1xN device with a single wire per tile chained east.
func chainFixture(t *testing.T, n int) (*arch.GridDevice, *netlist.Design) {
	t.Helper()
	b := arch.NewBuilder("chain", n, 1)
	prev := arch.NoWire
	for i := 0; i < n; i++ {
		w := b.AddWire(fmt.Sprintf("W%d", i), i, 0, i, 0, 1)
		if prev != arch.NoWire {
			b.AddPip(prev, w, 0.1)
		}
		prev = w
	}
	src := b.AddBel("SRC", 0, 0, 0)
	dst := b.AddBel("DST", n-1, 0, 0)
	b.AddBelPin(src, "O", b.Wire("W0"))
	b.AddBelPin(dst, "I", b.Wire(fmt.Sprintf("W%d", n-1)))
	dev, err := b.Build()
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	d := netlist.NewDesign("chain")
	a, _ := d.AddCell("a", "LUT", "SRC")
	z, _ := d.AddCell("z", "LUT", "DST")
	if _, err := d.AddNet("n", netlist.PortRef{Cell: a, Port: "O"}, netlist.PortRef{Cell: z, Port: "I"}); err != nil {
		t.Fatalf("AddNet returned error: %v", err)
	}
	if err := d.Place(dev); err != nil {
		t.Fatalf("Place returned error: %v", err)
	}
	return dev, d
}

// sharedFixture has two nets that both prefer wire S. With alt, net a can
// detour over the slower wire ALT.
func sharedFixture(t *testing.T, alt bool) (*arch.GridDevice, *netlist.Design) {
	t.Helper()
	b := arch.NewBuilder("shared", 1, 1)
	for _, name := range []string{"AO", "AI", "BO", "BI"} {
		b.AddWire(name, 0, 0, 0, 0, 0.5)
	}
	b.AddWire("S", 0, 0, 0, 0, 1)
	b.AddPipByName("AO", "S", 0.1)
	b.AddPipByName("S", "AI", 0.1)
	b.AddPipByName("BO", "S", 0.1)
	b.AddPipByName("S", "BI", 0.1)
	if alt {
		b.AddWire("ALT", 0, 0, 0, 0, 3)
		b.AddPipByName("AO", "ALT", 0.1)
		b.AddPipByName("ALT", "AI", 0.1)
	}
	for _, bel := range []string{"A", "B"} {
		drv := b.AddBel(bel+"DRV", 0, 0, 0)
		snk := b.AddBel(bel+"SNK", 0, 0, 1)
		b.AddBelPin(drv, "O", b.Wire(bel+"O"))
		b.AddBelPin(snk, "I", b.Wire(bel+"I"))
	}
	dev, err := b.Build()
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	d := netlist.NewDesign("shared")
	for _, bel := range []string{"A", "B"} {
		name := strings.ToLower(bel)
		drv, _ := d.AddCell(name+"_drv", "LUT", bel+"DRV")
		snk, _ := d.AddCell(name+"_snk", "LUT", bel+"SNK")
		if _, err := d.AddNet(name, netlist.PortRef{Cell: drv, Port: "O"}, netlist.PortRef{Cell: snk, Port: "I"}); err != nil {
			t.Fatalf("AddNet returned error: %v", err)
		}
	}
	if err := d.Place(dev); err != nil {
		t.Fatalf("Place returned error: %v", err)
	}
	return dev, d
}

func newTestRouter(t *testing.T, dev *arch.GridDevice, d *netlist.Design, cfg *Config, opts ...Option) *Router {
	t.Helper()
	r, err := NewRouter(dev, dev.API(), d, cfg, opts...)
	if err != nil {
		t.Fatalf("NewRouter returned error: %v", err)
	}
	return r
}

func wireNames(dev arch.Device, n *netlist.Net) []string {
	var names []string
	for _, w := range n.SortedWires() {
		names = append(names, dev.WireName(w))
	}
	return names
}

func TestRouteChain(t *testing.T) {
	const n = 6
	dev, d := chainFixture(t, n)
	r := newTestRouter(t, dev, d, nil)

	res, err := r.Route(context.Background())
	if err != nil {
		t.Fatalf("Route returned error: %v", err)
	}
	if !res.Converged || res.Rounds != 1 || res.Overused != 0 || len(res.FailedNets) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.WireLength != n {
		t.Errorf("WireLength = %d, want %d", res.WireLength, n)
	}

	net := d.Net("n")
	pips, err := net.PathToSource(dev, dev.WireByName(fmt.Sprintf("W%d", n-1)))
	if err != nil {
		t.Fatalf("PathToSource returned error: %v", err)
	}
	if len(pips) != n-1 {
		t.Errorf("path has %d pips, want %d", len(pips), n-1)
	}
	if net.Wires[dev.WireByName("W0")] != arch.NoPip {
		t.Errorf("source wire should be bound without a pip")
	}
	for i := range r.State().Wires {
		if curr := r.State().Wires[i].Curr(); curr != 1 {
			t.Errorf("wire %s has %d users, want 1", dev.WireName(r.WireOf(int32(i))), curr)
		}
	}
}

func TestRouteNegotiatesSharedWire(t *testing.T) {
	dev, d := sharedFixture(t, true)
	r := newTestRouter(t, dev, d, nil)

	res, err := r.Route(context.Background())
	if err != nil {
		t.Fatalf("Route returned error: %v", err)
	}
	if !res.Converged || res.Rounds != 2 {
		t.Fatalf("Converged = %v after %d rounds, want true after 2", res.Converged, res.Rounds)
	}
	if res.Stats[0].Overused != 1 || res.Stats[1].Overused != 0 {
		t.Errorf("overuse per round = %d, %d; want 1, 0", res.Stats[0].Overused, res.Stats[1].Overused)
	}
	if res.Stats[1].PresentFactor <= res.Stats[0].PresentFactor {
		t.Errorf("present factor did not grow: %+v", res.Stats)
	}

	if diff := cmp.Diff([]string{"AO", "AI", "ALT"}, wireNames(dev, d.Net("a"))); diff != "" {
		t.Errorf("net a wires mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"BO", "BI", "S"}, wireNames(dev, d.Net("b"))); diff != "" {
		t.Errorf("net b wires mismatch (-want +got):\n%s", diff)
	}
	curr, hist := r.Congestion(dev.WireByName("S"))
	if curr != 1 || hist != 1 {
		t.Errorf("S congestion = %d users, history %v; want 1, 1", curr, hist)
	}
}

func TestRouteNotConverged(t *testing.T) {
	dev, d := sharedFixture(t, false)
	cfg := DefaultConfig()
	cfg.MaxRounds = 4
	cfg.StallRounds = 0

	var seen []float32
	s := dev.WireByName("S")
	r := newTestRouter(t, dev, d, cfg, WithCostModel(CostFunc(func(base float64, curr int32, hist float32, pres float64) float64 {
		if base == dev.WireDelay(s) {
			seen = append(seen, hist)
		}
		return PathFinderCost{}.WireCost(base, curr, hist, pres)
	})))

	res, err := r.Route(context.Background())
	if !errors.Is(err, ErrNotConverged) {
		t.Fatalf("Route error = %v, want ErrNotConverged", err)
	}
	if res == nil || res.Converged || res.Rounds != 4 || res.Overused != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if _, hist := r.Congestion(s); hist != 4 {
		t.Errorf("history of S = %v, want 4", hist)
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] < seen[i-1] {
			t.Fatalf("history decreased: %v", seen)
		}
	}
	if !d.Net("a").Routed() || !d.Net("b").Routed() {
		t.Errorf("best routing should be written back")
	}
}

func TestRouteStall(t *testing.T) {
	dev, d := sharedFixture(t, false)
	cfg := DefaultConfig()
	cfg.StallRounds = 2
	r := newTestRouter(t, dev, d, cfg)

	res, err := r.Route(context.Background())
	if !errors.Is(err, ErrNotConverged) {
		t.Fatalf("Route error = %v, want ErrNotConverged", err)
	}
	if res.Rounds != 3 {
		t.Errorf("Rounds = %d, want 3", res.Rounds)
	}
}

func TestRouteTimeBudget(t *testing.T) {
	dev, d := sharedFixture(t, false)
	cfg := DefaultConfig()
	cfg.TimeBudget.Duration = 500 * time.Millisecond

	fc := clocktesting.NewFakeClock(time.Unix(0, 0))
	r := newTestRouter(t, dev, d, cfg, WithClock(fc), WithCostModel(CostFunc(func(base float64, curr int32, hist float32, pres float64) float64 {
		fc.Step(time.Second)
		return PathFinderCost{}.WireCost(base, curr, hist, pres)
	})))

	res, err := r.Route(context.Background())
	if !errors.Is(err, ErrNotConverged) {
		t.Fatalf("Route error = %v, want ErrNotConverged", err)
	}
	if res.Rounds != 1 {
		t.Errorf("Rounds = %d, want 1", res.Rounds)
	}
	if res.Elapsed < time.Second {
		t.Errorf("Elapsed = %v, want at least 1s", res.Elapsed)
	}
}

func TestRouteCancelled(t *testing.T) {
	dev, d := chainFixture(t, 4)
	r := newTestRouter(t, dev, d, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := r.Route(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Route error = %v, want context.Canceled", err)
	}
	if res == nil || res.Rounds != 0 || res.Converged {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestRouteNetIdempotent(t *testing.T) {
	dev, d := chainFixture(t, 5)
	r := newTestRouter(t, dev, d, nil)
	if _, err := r.Route(context.Background()); err != nil {
		t.Fatalf("Route returned error: %v", err)
	}
	before := map[arch.WireID]arch.PipID{}
	for w, p := range d.Net("n").Wires {
		before[w] = p
	}

	if err := r.RouteNet(context.Background(), 0); err != nil {
		t.Fatalf("RouteNet returned error: %v", err)
	}
	if diff := cmp.Diff(before, d.Net("n").Wires); diff != "" {
		t.Errorf("reroute changed the net (-before +after):\n%s", diff)
	}
	if got := r.State().Overused(); got != 0 {
		t.Errorf("Overused = %d after reroute, want 0", got)
	}
	if err := r.RouteNet(context.Background(), 3); err == nil {
		t.Errorf("expected out of range error")
	}
}

// defectAPI breaks one promise of the wrapped architecture.
type defectAPI struct {
	*arch.GridAPI
	badWire arch.WireID
	hole    gcell.GCell
}

func (a *defectAPI) FlatWireIndex(w arch.WireID) int32 {
	if w == a.badWire {
		return a.FlatWireSize() + 3
	}
	return a.GridAPI.FlatWireIndex(w)
}

func (a *defectAPI) IsInterconnect(x, y int) bool {
	if gcell.New(x, y) == a.hole {
		return false
	}
	return a.GridAPI.IsInterconnect(x, y)
}

func TestSetupDeviceDefects(t *testing.T) {
	tests := []struct {
		name string
		api  func(dev *arch.GridDevice) arch.API
	}{
		{
			name: "flat index out of range",
			api: func(dev *arch.GridDevice) arch.API {
				return &defectAPI{GridAPI: dev.API(), badWire: dev.WireByName("W2"), hole: gcell.Invalid}
			},
		},
		{
			name: "sink without interconnect",
			api: func(dev *arch.GridDevice) arch.API {
				return &defectAPI{GridAPI: dev.API(), badWire: arch.NoWire, hole: gcell.New(3, 0)}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, d := chainFixture(t, 4)
			r, err := NewRouter(dev, tt.api(dev), d, nil)
			if err != nil {
				t.Fatalf("NewRouter returned error: %v", err)
			}
			_, err = r.Route(context.Background())
			if !errors.Is(err, ErrDeviceDefect) {
				t.Fatalf("Route error = %v, want ErrDeviceDefect", err)
			}
		})
	}
}

func TestSetupMissingPinWire(t *testing.T) {
	dev, d := chainFixture(t, 3)
	d.Cell("z").PinMap = map[string][]string{"I": {"NOPE"}}
	r := newTestRouter(t, dev, d, nil)
	if err := r.Setup(); !errors.Is(err, ErrDeviceDefect) {
		t.Fatalf("Setup error = %v, want ErrDeviceDefect", err)
	}
}

func TestRouteUnreachableSink(t *testing.T) {
	b := arch.NewBuilder("split", 2, 1)
	o := b.AddWire("O", 0, 0, 0, 0, 1)
	i := b.AddWire("I", 1, 0, 1, 0, 1)
	src := b.AddBel("SRC", 0, 0, 0)
	dst := b.AddBel("DST", 1, 0, 0)
	b.AddBelPin(src, "O", o)
	b.AddBelPin(dst, "I", i)
	dev, err := b.Build()
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	d := netlist.NewDesign("split")
	a, _ := d.AddCell("a", "LUT", "SRC")
	z, _ := d.AddCell("z", "LUT", "DST")
	d.AddNet("n", netlist.PortRef{Cell: a, Port: "O"}, netlist.PortRef{Cell: z, Port: "I"})
	if err := d.Place(dev); err != nil {
		t.Fatalf("Place returned error: %v", err)
	}

	cfg := DefaultConfig()
	cfg.MaxRounds = 3
	r := newTestRouter(t, dev, d, cfg)
	res, err := r.Route(context.Background())
	if !errors.Is(err, ErrNotConverged) {
		t.Fatalf("Route error = %v, want ErrNotConverged", err)
	}
	if diff := cmp.Diff([]string{"n"}, res.FailedNets); diff != "" {
		t.Errorf("FailedNets mismatch (-want +got):\n%s", diff)
	}
	if err := r.RouteNet(context.Background(), 0); !errors.Is(err, ErrUnroutable) {
		t.Errorf("RouteNet error = %v, want ErrUnroutable", err)
	}
}

// rowsFixture builds rows independent chains, one net per row.
func rowsFixture(t *testing.T, n, rows int) (*arch.GridDevice, *netlist.Design) {
	t.Helper()
	b := arch.NewBuilder("rows", n, rows)
	for y := 0; y < rows; y++ {
		prev := arch.NoWire
		for x := 0; x < n; x++ {
			w := b.AddWire(fmt.Sprintf("R%dW%d", y, x), x, y, x, y, 1)
			if prev != arch.NoWire {
				b.AddPip(prev, w, 0.1)
			}
			prev = w
		}
		src := b.AddBel(fmt.Sprintf("SRC%d", y), 0, y, 0)
		dst := b.AddBel(fmt.Sprintf("DST%d", y), n-1, y, 0)
		b.AddBelPin(src, "O", b.Wire(fmt.Sprintf("R%dW0", y)))
		b.AddBelPin(dst, "I", b.Wire(fmt.Sprintf("R%dW%d", y, n-1)))
	}
	dev, err := b.Build()
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	d := netlist.NewDesign("rows")
	for y := 0; y < rows; y++ {
		a, _ := d.AddCell(fmt.Sprintf("a%d", y), "LUT", fmt.Sprintf("SRC%d", y))
		z, _ := d.AddCell(fmt.Sprintf("z%d", y), "LUT", fmt.Sprintf("DST%d", y))
		d.AddNet(fmt.Sprintf("n%d", y), netlist.PortRef{Cell: a, Port: "O"}, netlist.PortRef{Cell: z, Port: "I"})
	}
	if err := d.Place(dev); err != nil {
		t.Fatalf("Place returned error: %v", err)
	}
	return dev, d
}

func TestRouteParallel(t *testing.T) {
	const n, rows = 5, 4
	dev, d := rowsFixture(t, n, rows)
	cfg := DefaultConfig()
	cfg.Workers = 3
	cfg.BBoxMargin = 0
	r := newTestRouter(t, dev, d, cfg)

	res, err := r.Route(context.Background())
	if err != nil {
		t.Fatalf("Route returned error: %v", err)
	}
	if !res.Converged || res.WireLength != n*rows {
		t.Fatalf("unexpected result: %+v", res)
	}
	for _, net := range d.Nets {
		if len(net.Wires) != n {
			t.Errorf("net %s has %d wires, want %d", net.Name, len(net.Wires), n)
		}
	}
	if got := len(r.batches(r.State().Nets)); got != 1 {
		t.Errorf("disjoint rows form %d batches, want 1", got)
	}

	r.cfg.BBoxMargin = 1
	var sizes []int
	for _, b := range r.batches(r.State().Nets) {
		sizes = append(sizes, len(b))
	}
	if diff := cmp.Diff([]int{2, 1, 1}, sizes); diff != "" {
		t.Errorf("batch sizes mismatch (-want +got):\n%s", diff)
	}
}

func TestRouteGeneratedGrid(t *testing.T) {
	b := arch.NewBuilder("grid", 4, 4)
	b.SetHole(1, 2)
	arch.GenerateGrid(b, arch.DefaultGridSpec())
	dev, err := b.Build()
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	d := netlist.NewDesign("top")
	cells := map[string]string{
		"src0": arch.BelSiteName(0, 0, 0),
		"src1": arch.BelSiteName(3, 3, 1),
		"dst0": arch.BelSiteName(3, 3, 0),
		"dst1": arch.BelSiteName(3, 0, 1),
		"dst2": arch.BelSiteName(0, 3, 0),
	}
	for _, name := range []string{"src0", "src1", "dst0", "dst1", "dst2"} {
		if _, err := d.AddCell(name, "SLICE", cells[name]); err != nil {
			t.Fatalf("AddCell returned error: %v", err)
		}
	}
	d.AddNet("fan", netlist.PortRef{Cell: d.Cell("src0"), Port: "O0"},
		netlist.PortRef{Cell: d.Cell("dst0"), Port: "I0", Criticality: 0.9},
		netlist.PortRef{Cell: d.Cell("dst1"), Port: "I1"},
		netlist.PortRef{Cell: d.Cell("dst2"), Port: "I2"})
	d.AddNet("back", netlist.PortRef{Cell: d.Cell("src1"), Port: "O0"},
		netlist.PortRef{Cell: d.Cell("dst2"), Port: "I0"},
		netlist.PortRef{Cell: d.Cell("dst1"), Port: "I0"})
	if err := d.Place(dev); err != nil {
		t.Fatalf("Place returned error: %v", err)
	}

	r := newTestRouter(t, dev, d, nil)
	res, err := r.Route(context.Background())
	if err != nil {
		t.Fatalf("Route returned error: %v", err)
	}
	if !res.Converged {
		t.Fatalf("grid did not converge: %+v", res)
	}
	if r.Channels() == nil {
		t.Errorf("generated grid should enable the channel model")
	}

	owner := map[arch.WireID]string{}
	for _, net := range d.Nets {
		for _, u := range net.Users {
			sink := dev.BelPinWire(u.Cell.Bel, u.Port)
			if _, err := net.PathToSource(dev, sink); err != nil {
				t.Errorf("net %s: %v", net.Name, err)
			}
		}
		for w := range net.Wires {
			if other, ok := owner[w]; ok {
				t.Errorf("wire %s used by %s and %s", dev.WireName(w), other, net.Name)
			}
			owner[w] = net.Name
		}
	}

	var out strings.Builder
	res.Print(&out)
	if !strings.Contains(out.String(), "converged after") {
		t.Errorf("report missing summary:\n%s", out.String())
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "route.yaml")
	data := "alpha: 0.5\nmaxRounds: 12\ntimeBudget: 90s\nworkers: 0\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile returned error: %v", err)
	}
	want := DefaultConfig()
	want.Alpha = 0.5
	want.MaxRounds = 12
	want.TimeBudget.Duration = 90 * time.Second
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("alpha: 2\n"), 0o644)
	if _, err := LoadConfigFile(bad); err == nil {
		t.Errorf("expected alpha range error")
	}
	unknown := filepath.Join(dir, "unknown.yaml")
	os.WriteFile(unknown, []byte("alhpa: 0.2\n"), 0o644)
	if _, err := LoadConfigFile(unknown); err == nil {
		t.Errorf("expected unknown field error")
	}
	if _, err := LoadConfigFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Errorf("expected missing file error")
	}
}
