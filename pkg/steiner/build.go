package steiner

import (
	"fmt"
	"math"

	"github.com/OpenTraceLab/feline/pkg/gcell"
)

// Fabric reports which cells carry general interconnect.
type Fabric interface {
	IsInterconnect(x, y int) bool
}

// EdgeCoster prices an axis-aligned segment between two cells. It lets a
// congestion estimate steer corner selection during steinerisation.
type EdgeCoster interface {
	SegmentCost(a, b gcell.GCell) float64
}

// Terminal is a sink cell of a net.
type Terminal struct {
	Cell        gcell.GCell
	Criticality float32
}

// Options tunes tree construction.
type Options struct {
	// Alpha in [0, 1]: 1 favours wirelength (MST), 0 favours path length (SPT).
	Alpha float32
	// Fabric is consulted for terminal legality and corner choice. Nil
	// treats every cell as interconnect.
	Fabric Fabric
	// Coster optionally prices corner candidates.
	Coster EdgeCoster
	// FlipLimit skips edge flips on trees with more nodes than this. Zero
	// uses DefaultFlipLimit; a negative value disables flips.
	FlipLimit int
}

// DefaultFlipLimit bounds the cubic edge flip pass.
const DefaultFlipLimit = 128

// Build constructs, improves and steinerises the tree of one net.
func Build(source gcell.GCell, sinks []Terminal, opts Options) (*Tree, error) {
	if opts.Alpha < 0 || opts.Alpha > 1 || math.IsNaN(float64(opts.Alpha)) {
		return nil, fmt.Errorf("steiner: alpha %v outside [0, 1]", opts.Alpha)
	}
	if err := checkInterconnect(opts.Fabric, source, "source"); err != nil {
		return nil, err
	}
	t := New(source)
	for _, s := range sinks {
		if err := checkInterconnect(opts.Fabric, s.Cell, "sink"); err != nil {
			return nil, err
		}
		t.AddPort(s.Cell, s.Criticality)
	}

	t.PrimDijkstra(opts.Alpha)
	limit := opts.FlipLimit
	if limit == 0 {
		limit = DefaultFlipLimit
	}
	if limit > 0 && t.Len() <= limit {
		t.EdgeFlips(opts.Alpha)
	}
	t.SteineriseHVW(opts.Fabric, opts.Coster)

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func checkInterconnect(f Fabric, c gcell.GCell, role string) error {
	if !c.IsValid() {
		return fmt.Errorf("%w: %s cell is invalid", ErrNoInterconnect, role)
	}
	if f != nil && !f.IsInterconnect(int(c.X), int(c.Y)) {
		return fmt.Errorf("%w: %s at %v", ErrNoInterconnect, role, c)
	}
	return nil
}

// PrimDijkstra connects every node to the tree, growing from the source.
//
// A node v joins through the tree node u minimising
// mdist(u, v) + (1 - a)*PL(u), where PL is the path length from the source
// and a = alpha*(1 - criticality(v)). Ties go to the shorter edge and then
// to the smaller cell. Steiner points from an earlier run are discarded.
func (t *Tree) PrimDijkstra(alpha float32) {
	for c := range t.Nodes {
		if t.IsSteiner(c) {
			delete(t.Nodes, c)
		}
	}

	pending := t.Cells()
	pl := map[gcell.GCell]int{t.Source: 0}
	type best struct {
		key    float64
		parent gcell.GCell
		dist   int
	}
	keys := make(map[gcell.GCell]best, len(pending))
	weight := func(v gcell.GCell) float64 {
		a := float64(alpha) * (1 - float64(t.Nodes[v].Criticality))
		return 1 - a
	}
	better := func(a, b best) bool {
		if a.key != b.key {
			return a.key < b.key
		}
		if a.dist != b.dist {
			return a.dist < b.dist
		}
		return a.parent.Less(b.parent)
	}

	remaining := pending[:0]
	for _, v := range pending {
		if v == t.Source {
			continue
		}
		d := t.Source.MDist(v)
		keys[v] = best{key: float64(d), parent: t.Source, dist: d}
		remaining = append(remaining, v)
	}

	for len(remaining) > 0 {
		pick := 0
		for i := 1; i < len(remaining); i++ {
			a, b := keys[remaining[i]], keys[remaining[pick]]
			if a.key < b.key || (a.key == b.key && (a.dist < b.dist ||
				(a.dist == b.dist && remaining[i].Less(remaining[pick])))) {
				pick = i
			}
		}
		v := remaining[pick]
		remaining = append(remaining[:pick], remaining[pick+1:]...)

		k := keys[v]
		t.Nodes[v].Uphill = k.parent
		pl[v] = pl[k.parent] + k.dist

		for _, w := range remaining {
			d := v.MDist(w)
			cand := best{key: float64(d) + weight(w)*float64(pl[v]), parent: v, dist: d}
			if better(cand, keys[w]) {
				keys[w] = cand
			}
		}
	}
}
