package netlist

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/OpenTraceLab/feline/pkg/arch"
)

func chainDevice(t *testing.T) (*arch.GridDevice, []arch.WireID, []arch.PipID) {
	t.Helper()
	b := arch.NewBuilder("chain", 4, 1)
	var wires []arch.WireID
	var pips []arch.PipID
	for i := 0; i < 4; i++ {
		wires = append(wires, b.AddWire("W"+string(rune('0'+i)), i, 0, i, 0, 1))
		if i > 0 {
			pips = append(pips, b.AddPip(wires[i-1], wires[i], 0.1))
		}
	}
	b.AddBel("A", 0, 0, 0)
	b.AddBel("B", 3, 0, 0)
	dev, err := b.Build()
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	return dev, wires, pips
}

func TestDesignBuildAndPlace(t *testing.T) {
	dev, _, _ := chainDevice(t)
	d := NewDesign("top")
	a, err := d.AddCell("a", "LUT", "A")
	if err != nil {
		t.Fatalf("AddCell returned error: %v", err)
	}
	b, _ := d.AddCell("b", "LUT", "B")
	if _, err := d.AddCell("a", "LUT", "B"); err == nil {
		t.Fatalf("expected duplicate cell error")
	}
	n, err := d.AddNet("n", PortRef{Cell: a, Port: "O"}, PortRef{Cell: b, Port: "I", Criticality: 0.5})
	if err != nil {
		t.Fatalf("AddNet returned error: %v", err)
	}
	if n.Index != 0 || d.Net("n") != n {
		t.Errorf("net index/lookup wrong")
	}
	if _, err := d.AddNet("x", PortRef{}); err == nil {
		t.Errorf("expected missing driver error")
	}

	if err := d.Place(dev); err != nil {
		t.Fatalf("Place returned error: %v", err)
	}
	if a.Bel != dev.BelByName("A") {
		t.Errorf("cell a not placed")
	}
	info := n.Users[0].Info()
	if info.Cell != "b" || info.CellType != "LUT" || info.Port != "I" || info.Bel != b.Bel {
		t.Errorf("PortRef.Info = %+v", info)
	}

	bad := NewDesign("bad")
	bad.AddCell("x", "LUT", "A")
	bad.AddCell("y", "LUT", "A")
	if err := bad.Place(dev); err == nil || !strings.Contains(err.Error(), "share bel") {
		t.Errorf("expected shared bel error, got %v", err)
	}
	bad2 := NewDesign("bad2")
	bad2.AddCell("x", "LUT", "NOPE")
	if err := bad2.Place(dev); err == nil {
		t.Errorf("expected unknown bel error")
	}
}

func TestBelPins(t *testing.T) {
	c := &Cell{Name: "c", PinMap: map[string][]string{"D": {"I0", "I1"}}}
	if got := c.BelPins("D"); len(got) != 2 || got[1] != "I1" {
		t.Errorf("BelPins(D) = %v", got)
	}
	if got := c.BelPins("CLK"); len(got) != 1 || got[0] != "CLK" {
		t.Errorf("BelPins(CLK) = %v", got)
	}
}

func TestRoutingBindAndExport(t *testing.T) {
	dev, wires, pips := chainDevice(t)
	d := NewDesign("top")
	a, _ := d.AddCell("a", "LUT", "A")
	b, _ := d.AddCell("b", "LUT", "B")
	n, _ := d.AddNet("n", PortRef{Cell: a, Port: "O"}, PortRef{Cell: b, Port: "I"})

	n.BindWire(wires[0], arch.NoPip)
	for i, p := range pips {
		n.BindWire(wires[i+1], p)
	}
	if !n.Routed() {
		t.Fatalf("net should be routed")
	}
	path, err := n.PathToSource(dev, wires[3])
	if err != nil {
		t.Fatalf("PathToSource returned error: %v", err)
	}
	if len(path) != 3 || path[0] != pips[2] || path[2] != pips[0] {
		t.Errorf("path = %v", path)
	}

	data, err := d.ExportJSON(dev)
	if err != nil {
		t.Fatalf("ExportJSON returned error: %v", err)
	}
	var out struct {
		RoutedNets int        `json:"routed_nets"`
		Nets       []NetRoute `json:"nets"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if out.RoutedNets != 1 || out.Nets[0].Source != "W0" || len(out.Nets[0].Pips) != 3 {
		t.Errorf("unexpected export: %s", data)
	}

	text, err := d.ExportRoutes(dev)
	if err != nil {
		t.Fatalf("ExportRoutes returned error: %v", err)
	}
	for _, want := range []string{"(routes top (device chain)", "(source W0)", "(pip W2 W3)"} {
		if !strings.Contains(text, want) {
			t.Errorf("route text missing %q:\n%s", want, text)
		}
	}

	clone := d.Clone()
	n.UnbindAll()
	if n.Routed() || !clone.Net("n").Routed() {
		t.Errorf("Clone should not share routing")
	}
	if clone.Net("n").Driver.Cell == a {
		t.Errorf("Clone should not share cells")
	}
	if _, err := n.PathToSource(dev, wires[3]); err == nil {
		t.Errorf("expected unbound wire error")
	}
}

func TestPathToSourceLoop(t *testing.T) {
	dev, wires, pips := chainDevice(t)
	n := &Net{Name: "loop"}
	n.BindWire(wires[1], pips[0])
	n.BindWire(wires[0], pips[0])
	if _, err := n.PathToSource(dev, wires[1]); err == nil {
		t.Fatalf("expected loop error")
	}
}

func TestReadFile(t *testing.T) {
	d, err := ReadFile("testdata/counter.sexp")
	if err != nil {
		t.Fatalf("ReadFile returned error: %v", err)
	}
	if d.Name != "counter" || len(d.Cells) != 3 || len(d.Nets) != 2 {
		t.Fatalf("unexpected design %s: %d cells %d nets", d.Name, len(d.Cells), len(d.Nets))
	}
	n0 := d.Net("n0")
	if n0.Driver.Cell.Name != "q0" || n0.Driver.Port != "O0" || len(n0.Users) != 2 {
		t.Fatalf("n0 parsed wrong: %+v", n0)
	}
	if n0.Users[0].Criticality != 0.75 || n0.Users[1].Criticality != 0 {
		t.Errorf("criticality parsed wrong")
	}
	if pins := d.Cell("q0").BelPins("D"); len(pins) != 2 || pins[0] != "I0" {
		t.Errorf("pin map parsed wrong: %v", pins)
	}
	if d.Cell("q2").BelName != "X1Y2/SLICE1" {
		t.Errorf("bel parsed wrong: %q", d.Cell("q2").BelName)
	}
}

func TestReadSexpQuotedAtoms(t *testing.T) {
	input := `(design "top" (cell (name "a") (type LUT) (bel X0Y0/SLICE0)) (cell (name b) (bel "X1Y0/SLICE0")) (net (name "n") (driver "a" O0) (user b I0 0.5)))`
	d, err := ReadSexp(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadSexp returned error: %v", err)
	}
	if d.Name != "top" {
		t.Errorf("design name = %q, want top", d.Name)
	}
	if c := d.Cell("a"); c == nil || c.Type != "LUT" {
		t.Fatalf("cell a parsed wrong: %+v", c)
	}
	if bel := d.Cell("b").BelName; bel != "X1Y0/SLICE0" {
		t.Errorf("bel = %q, want X1Y0/SLICE0", bel)
	}
	n := d.Net("n")
	if n == nil || n.Driver.Cell.Name != "a" || len(n.Users) != 1 || n.Users[0].Criticality != 0.5 {
		t.Fatalf("net n parsed wrong: %+v", n)
	}
}

func TestReadSexpErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no design", "(foo bar)"},
		{"unknown cell", "(design d (net (name n) (driver x O)))"},
		{"bad criticality", "(design d (cell (name a) (bel B)) (net (name n) (driver a O) (user a I 7)))"},
		{"unknown form", "(design d (wire w))"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadSexp(strings.NewReader(tt.input)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
