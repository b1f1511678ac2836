package steiner

import (
	"github.com/OpenTraceLab/feline/pkg/gcell"
)

// SteineriseHVW replaces every diagonal edge by axis-aligned segments.
//
// For an edge u->v the two L corners (v.X, u.Y) and (u.X, v.Y) are tried,
// keeping those on interconnect and picking the cheaper under coster (the
// horizontal-first corner on ties). With no usable corner the edge becomes a
// Z or U shaped detour with both bends on interconnect. A corner that already
// holds a node is reused: outside v's subtree the new path simply joins it,
// inside v's subtree that node is lifted out and hung from the corner chain.
// No diagonal edge remains afterwards.
func (t *Tree) SteineriseHVW(fabric Fabric, coster EdgeCoster) {
	for pass := 0; pass <= len(t.Nodes)*2; pass++ {
		var diagonal []gcell.GCell
		for _, e := range t.Edges() {
			if e.Diagonal() {
				diagonal = append(diagonal, e.To)
			}
		}
		if len(diagonal) == 0 {
			break
		}
		for _, v := range diagonal {
			n := t.Nodes[v]
			if n == nil || !n.Uphill.IsValid() || n.Uphill.Aligned(v) {
				continue
			}
			t.straighten(n.Uphill, v, cornerPath(n.Uphill, v, fabric, coster))
		}
	}
	t.prune()
	for c := range t.Nodes {
		t.Box.Extend(c)
	}
}

// cornerPath returns the intermediate cells of the axis-aligned path chosen
// for the diagonal edge u->v.
func cornerPath(u, v gcell.GCell, fabric Fabric, coster EdgeCoster) []gcell.GCell {
	hv := gcell.GCell{X: v.X, Y: u.Y}
	vh := gcell.GCell{X: u.X, Y: v.Y}
	usable := func(c gcell.GCell) bool {
		return fabric == nil || fabric.IsInterconnect(int(c.X), int(c.Y))
	}
	cost := func(c gcell.GCell) float64 {
		if coster == nil {
			return 0
		}
		return coster.SegmentCost(u, c) + coster.SegmentCost(c, v)
	}

	switch okH, okV := usable(hv), usable(vh); {
	case okH && okV:
		if cost(vh) < cost(hv) {
			return []gcell.GCell{vh}
		}
		return []gcell.GCell{hv}
	case okH:
		return []gcell.GCell{hv}
	case okV:
		return []gcell.GCell{vh}
	}

	if path := detour(u, v, usable, coster); path != nil {
		return path
	}
	return []gcell.GCell{hv}
}

// maxDetour bounds how many columns or rows beyond the edge box detour
// searches for a usable bend pair.
const maxDetour = 16

// detour returns the two bends of a Z or U shaped path from u to v whose
// bends are both usable. Columns and rows inside the edge box are tried
// first, then rings one step further out. Within a ring the path crossing
// the fewest unusable cells wins, then the cheapest under coster, then the
// one nearest the middle of the box. It returns nil when no ring within
// maxDetour has a candidate.
func detour(u, v gcell.GCell, usable func(gcell.GCell) bool, coster EdgeCoster) []gcell.GCell {
	type candidate struct {
		a, b    gcell.GCell
		blocked int
		cost    float64
		centre  int
	}
	better := func(x, y candidate) bool {
		if x.blocked != y.blocked {
			return x.blocked < y.blocked
		}
		if x.cost != y.cost {
			return x.cost < y.cost
		}
		return x.centre < y.centre
	}
	consider := func(best *candidate, found *bool, a, b gcell.GCell, centre int) {
		if !usable(a) || !usable(b) {
			return
		}
		cand := candidate{
			a:       a,
			b:       b,
			blocked: blockedAlong(u, a, usable) + blockedAlong(a, b, usable) + blockedAlong(b, v, usable),
			centre:  centre,
		}
		if coster != nil {
			cand.cost = coster.SegmentCost(u, a) + coster.SegmentCost(a, b) + coster.SegmentCost(b, v)
		}
		if !*found || better(cand, *best) {
			*best, *found = cand, true
		}
	}

	x0, x1 := min(int(u.X), int(v.X)), max(int(u.X), int(v.X))
	y0, y1 := min(int(u.Y), int(v.Y)), max(int(u.Y), int(v.Y))
	column := func(best *candidate, found *bool, x int) {
		consider(best, found, gcell.New(x, int(u.Y)), gcell.New(x, int(v.Y)), absInt(2*x-x0-x1))
	}
	row := func(best *candidate, found *bool, y int) {
		consider(best, found, gcell.New(int(u.X), y), gcell.New(int(v.X), y), absInt(2*y-y0-y1))
	}

	for ring := 0; ring <= maxDetour; ring++ {
		var best candidate
		found := false
		if ring == 0 {
			for x := x0 + 1; x < x1; x++ {
				column(&best, &found, x)
			}
			for y := y0 + 1; y < y1; y++ {
				row(&best, &found, y)
			}
		} else {
			column(&best, &found, x0-ring)
			column(&best, &found, x1+ring)
			row(&best, &found, y0-ring)
			row(&best, &found, y1+ring)
		}
		if found {
			return []gcell.GCell{best.a, best.b}
		}
	}
	return nil
}

// blockedAlong counts the unusable cells strictly between a and b on an
// axis-aligned segment.
func blockedAlong(a, b gcell.GCell, usable func(gcell.GCell) bool) int {
	n := 0
	dx, dy := sign(int(b.X)-int(a.X)), sign(int(b.Y)-int(a.Y))
	x, y := int(a.X)+dx, int(a.Y)+dy
	for x != int(b.X) || y != int(b.Y) {
		if !usable(gcell.New(x, y)) {
			n++
		}
		x, y = x+dx, y+dy
	}
	return n
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// straighten rewires v to hang from u through the given axis-aligned chain.
func (t *Tree) straighten(u, v gcell.GCell, chain []gcell.GCell) {
	prev := u
	for _, p := range chain {
		existing, ok := t.Nodes[p]
		switch {
		case !ok:
			t.Nodes[p] = &Node{Uphill: prev}
		case t.isAncestor(v, p):
			existing.Uphill = prev
		}
		prev = p
	}
	t.Nodes[v].Uphill = prev
}
